package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-hdl/loom/pkg/buildcache"
	"github.com/loom-hdl/loom/pkg/project"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func setupProject(t *testing.T) *project.Project {
	t.Helper()
	root := t.TempDir()
	write(t, root, "Loom.toml", `
[package]
name = "uart"
version = "1.0.0"

[[sources]]
files = ["rtl/*.sv"]
include_dirs = ["include"]
defines = ["ASIC"]
`)
	write(t, root, "include/defs.svh", "`define WIDTH 8\n")
	write(t, root, "rtl/uart_top.sv", "`include \"defs.svh\"\n"+
		"module uart_top (input wire clk);\n"+
		"  uart_core u_core (.clk(clk));\n"+
		"endmodule\n")
	write(t, root, "rtl/uart_core.sv",
		"module uart_core (input wire clk, output reg q);\n"+
			"  always @(posedge clk) q <= ~q;\nendmodule\n")

	proj, err := project.Load(root)
	require.NoError(t, err)
	return proj
}

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cache, err := buildcache.Open(filepath.Join(t.TempDir(), "loom_cache.db"))
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return New(cache, "0.1.0", nil)
}

func TestRunColdThenWarm(t *testing.T) {
	proj := setupProject(t)
	p := newPipeline(t)

	cold, err := p.Run(proj, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cold.Files)
	assert.Equal(t, 0, cold.CacheHits)
	assert.Equal(t, 2, cold.CacheMisses)
	assert.Len(t, cold.FilelistKey, 64)
	assert.Len(t, cold.FileList, 2)

	// uart_top instantiates uart_core, so only uart_top is a root.
	assert.Equal(t, []string{"uart_top"}, cold.TopModules)

	// A second run over unchanged files is all hits with the same key.
	warm, err := p.Run(proj, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, warm.CacheHits)
	assert.Equal(t, 0, warm.CacheMisses)
	assert.Equal(t, cold.FilelistKey, warm.FilelistKey)
}

func TestRunStoresEdgesAndIncludes(t *testing.T) {
	proj := setupProject(t)
	cache, err := buildcache.Open(filepath.Join(t.TempDir(), "loom_cache.db"))
	require.NoError(t, err)
	defer cache.Close()
	p := New(cache, "0.1.0", nil)

	_, err = p.Run(proj, nil)
	require.NoError(t, err)

	topPath := filepath.Join(proj.RootDir, "rtl", "uart_top.sv")
	topHash, err := cache.CachedFileHash(topPath)
	require.NoError(t, err)

	edges, err := cache.Edges(topHash)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "uart_top", edges[0].SourceUnit)
	assert.Equal(t, "uart_core", edges[0].TargetUnit)

	includes, err := cache.Includes(topHash)
	require.NoError(t, err)
	require.Len(t, includes, 1)
	assert.Equal(t, "defs.svh", includes[0].IncludePath)

	// The reverse index finds the includer from the include's hash.
	includers, err := cache.FindIncluders(includes[0].IncludeHash)
	require.NoError(t, err)
	assert.Equal(t, []string{topHash}, includers)
}

func TestIncludeChangeMovesFilelistKey(t *testing.T) {
	proj := setupProject(t)
	p := newPipeline(t)

	first, err := p.Run(proj, nil)
	require.NoError(t, err)

	// Changing an included header leaves every source file untouched but
	// must still move the project fingerprint.
	write(t, proj.RootDir, "include/defs.svh", "`define WIDTH 16\n")

	second, err := p.Run(proj, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.FilelistKey, second.FilelistKey)
}

func TestExplicitTopWins(t *testing.T) {
	root := t.TempDir()
	write(t, root, "Loom.toml", `
[package]
name = "soc"
version = "1.0.0"
top = "chip_top"

[[sources]]
files = ["rtl/*.sv"]
`)
	write(t, root, "rtl/a.sv", "module a; endmodule\n")

	proj, err := project.Load(root)
	require.NoError(t, err)

	p := newPipeline(t)
	result, err := p.Run(proj, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"chip_top"}, result.TopModules)
}

func TestIncludePaths(t *testing.T) {
	src := "`include \"defs.svh\"\n`include \"sub/params.svh\"\n`define X 1\nmodule m; endmodule\n"
	assert.Equal(t, []string{"defs.svh", "sub/params.svh"}, IncludePaths(src))
	assert.Empty(t, IncludePaths("module m; endmodule\n"))
}
