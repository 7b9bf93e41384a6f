package buildcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/verilog"
)

func openCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "loom_cache.db"))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestStatRoundTrip(t *testing.T) {
	c := openCache(t)

	entry := FileStatEntry{
		Path:        "/tmp/a.sv",
		Inode:       42,
		MtimeSec:    1700000000,
		MtimeNsec:   123456789,
		Size:        1024,
		ContentHash: "abc",
	}
	require.NoError(t, c.UpdateStat(entry))

	got, err := c.LookupStat("/tmp/a.sv")
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	_, err = c.LookupStat("/tmp/missing.sv")
	assert.Equal(t, errors.NotFound, errors.GetCode(err))

	require.NoError(t, c.RemoveStat("/tmp/a.sv"))
	_, err = c.LookupStat("/tmp/a.sv")
	assert.Equal(t, errors.NotFound, errors.GetCode(err))
}

func TestCachedFileHash(t *testing.T) {
	c := openCache(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "top.sv")
	require.NoError(t, os.WriteFile(path, []byte("module top; endmodule\n"), 0o644))

	h1, err := c.CachedFileHash(path)
	require.NoError(t, err)
	require.Len(t, h1, 64)

	// Unchanged identity returns the same hash without rehashing.
	h2, err := c.CachedFileHash(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	// Content change invalidates and recomputes. The write also moves the
	// mtime; back-dating guards against same-nanosecond writes.
	require.NoError(t, os.WriteFile(path, []byte("module top2; endmodule\n"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	h3, err := c.CachedFileHash(path)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)

	_, err = c.CachedFileHash(filepath.Join(dir, "missing.sv"))
	assert.Equal(t, errors.IO, errors.GetCode(err))
}

func sampleResult() *verilog.ParseResult {
	return &verilog.ParseResult{
		Units: []verilog.DesignUnit{{
			Kind:      verilog.KindModule,
			Name:      "uart_tx",
			StartLine: 3,
			EndLine:   87,
			Ports: []verilog.PortDecl{
				{Name: "clk", Direction: verilog.DirInput, TypeText: "wire", Pos: verilog.SourcePos{Line: 4, Col: 3}},
				{Name: "tx", Direction: verilog.DirOutput, TypeText: "logic", Pos: verilog.SourcePos{Line: 5, Col: 3}},
			},
			Params: []verilog.ParamDecl{
				{Name: "BAUD", DefaultText: "115200", Pos: verilog.SourcePos{Line: 2, Col: 1}},
			},
			Instantiations: []verilog.Instantiation{
				{ModuleName: "fifo", InstanceName: "u_fifo", IsParameterized: true, Pos: verilog.SourcePos{Line: 20, Col: 3}},
			},
			Imports: []verilog.ImportDecl{
				{PackageName: "uart_pkg", Symbol: "*", IsWildcard: true, Pos: verilog.SourcePos{Line: 6, Col: 3}},
			},
			AlwaysBlocks: []verilog.AlwaysBlock{{
				Kind:  verilog.AlwaysFf,
				Label: "tx_seq",
				Assignments: []verilog.Assignment{
					{IsBlocking: false, Target: "tx", Pos: verilog.SourcePos{Line: 31, Col: 5}},
				},
				Pos: verilog.SourcePos{Line: 30, Col: 3},
			}},
			CaseStatements: []verilog.CaseStatement{
				{Kind: verilog.CaseZ, HasDefault: true, IsUnique: true, Pos: verilog.SourcePos{Line: 40, Col: 5}},
			},
			Signals: []verilog.SignalDecl{
				{Name: "state", TypeText: "logic [2:0]", Pos: verilog.SourcePos{Line: 10, Col: 3}},
			},
			GenerateBlocks: []verilog.GenerateBlock{
				{Label: "gen_buf", HasLabel: true, Pos: verilog.SourcePos{Line: 60, Col: 3}},
			},
			LabeledBlocks: []verilog.LabeledBlock{
				{BeginLabel: "init", EndLabel: "init", LabelsMatch: true, Pos: verilog.SourcePos{Line: 70, Col: 3}},
			},
			HasDefparam: true,
			Pos:         verilog.SourcePos{Line: 3, Col: 1},
		}},
		Diagnostics: []verilog.Diagnostic{
			{Message: "unterminated begin/end block", File: "uart_tx.sv", Line: 80, Col: 5},
		},
	}
}

func TestParseResultRoundTrip(t *testing.T) {
	original := sampleResult()

	blob := SerializeParseResult(original)
	assert.Equal(t, []byte{'L', 'P', 'R', 0x01}, blob[:4])

	// Serialization is deterministic.
	assert.Equal(t, blob, SerializeParseResult(original))

	decoded, err := DeserializeParseResult(blob)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDeserializeErrors(t *testing.T) {
	// Wrong magic is a checksum error.
	_, err := DeserializeParseResult([]byte("XXXX garbage"))
	assert.Equal(t, errors.Checksum, errors.GetCode(err))

	_, err = DeserializeParseResult([]byte{'L', 'P'})
	assert.Equal(t, errors.Checksum, errors.GetCode(err))

	// Truncation is an IO error.
	blob := SerializeParseResult(sampleResult())
	_, err = DeserializeParseResult(blob[:len(blob)/2])
	assert.Equal(t, errors.IO, errors.GetCode(err))
}

func TestParseStoreRoundTrip(t *testing.T) {
	c := openCache(t)
	pr := sampleResult()

	require.NoError(t, c.StoreParse("hash1", pr))
	got, err := c.LookupParse("hash1")
	require.NoError(t, err)
	assert.Equal(t, pr, got)

	_, err = c.LookupParse("missing")
	assert.Equal(t, errors.NotFound, errors.GetCode(err))
}

func TestIncludeDeps(t *testing.T) {
	c := openCache(t)

	deps := []IncludeDepEntry{
		{SourceHash: "src1", IncludePath: "defs.svh", IncludeHash: "inc1"},
		{SourceHash: "src1", IncludePath: "params.svh", IncludeHash: "inc2"},
	}
	require.NoError(t, c.StoreIncludes("src1", deps))
	require.NoError(t, c.StoreIncludes("src2", []IncludeDepEntry{
		{SourceHash: "src2", IncludePath: "defs.svh", IncludeHash: "inc1"},
	}))

	got, err := c.Includes("src1")
	require.NoError(t, err)
	assert.ElementsMatch(t, deps, got)

	// Reverse index: who includes inc1?
	includers, err := c.FindIncluders("inc1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src1", "src2"}, includers)

	// Replacing edges drops the old set.
	require.NoError(t, c.StoreIncludes("src1", nil))
	got, err = c.Includes("src1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDepEdges(t *testing.T) {
	c := openCache(t)

	edges := []DepEdgeEntry{
		{SourceHash: "src1", SourceUnit: "top", TargetUnit: "fifo"},
		{SourceHash: "src1", SourceUnit: "top", TargetUnit: "uart"},
	}
	require.NoError(t, c.StoreEdges("src1", edges))

	got, err := c.Edges("src1")
	require.NoError(t, err)
	assert.ElementsMatch(t, edges, got)
}

func TestFilelist(t *testing.T) {
	c := openCache(t)

	entry := FilelistEntry{
		FilelistKey: "key1",
		FileList:    []string{"a.sv", "b.sv"},
		TopModules:  []string{"top"},
	}
	require.NoError(t, c.StoreFilelist(entry))

	got, err := c.LookupFilelist("key1")
	require.NoError(t, err)
	assert.Equal(t, entry.FileList, got.FileList)
	assert.Equal(t, entry.TopModules, got.TopModules)
	assert.NotZero(t, got.CreatedAt)

	_, err = c.LookupFilelist("missing")
	assert.Equal(t, errors.NotFound, errors.GetCode(err))
}

func TestEffectiveHashPermutationInvariance(t *testing.T) {
	a := EffectiveHash("content",
		[]string{"i1", "i2", "i3"}, []string{"D1", "D2"}, []string{"inc", "rtl"})
	b := EffectiveHash("content",
		[]string{"i3", "i1", "i2"}, []string{"D2", "D1"}, []string{"rtl", "inc"})
	assert.Equal(t, a, b)

	// Content changes and list changes both move the hash.
	assert.NotEqual(t, a, EffectiveHash("other", []string{"i1", "i2", "i3"}, []string{"D1", "D2"}, []string{"inc", "rtl"}))
	assert.NotEqual(t, a, EffectiveHash("content", []string{"i1", "i2"}, []string{"D1", "D2"}, []string{"inc", "rtl"}))
}

func TestFilelistKey(t *testing.T) {
	a := FilelistKey("0.1.0", "mh", []string{"e1", "e2"})
	b := FilelistKey("0.1.0", "mh", []string{"e2", "e1"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, FilelistKey("0.2.0", "mh", []string{"e1", "e2"}))
	assert.NotEqual(t, a, FilelistKey("0.1.0", "other", []string{"e1", "e2"}))
}

func TestSchemaMismatchClears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom_cache.db")

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.UpdateStat(FileStatEntry{Path: "/a", ContentHash: "h"}))
	_, err = c.db.Exec("UPDATE schema_info SET value='0' WHERE key='version'")
	require.NoError(t, err)
	c.Close()

	// Reopening with a mismatched version preserves functionality but
	// discards all prior rows.
	c2, err := Open(path)
	require.NoError(t, err)
	defer c2.Close()

	_, err = c2.LookupStat("/a")
	assert.Equal(t, errors.NotFound, errors.GetCode(err))

	require.NoError(t, c2.UpdateStat(FileStatEntry{Path: "/b", ContentHash: "h2"}))
	got, err := c2.LookupStat("/b")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.ContentHash)
}

func TestCorruptionRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom_cache.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite database at all"), 0o644))

	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()

	// The recreated store is empty but fully usable.
	require.NoError(t, c.UpdateStat(FileStatEntry{Path: "/x", ContentHash: "h"}))
	got, err := c.LookupStat("/x")
	require.NoError(t, err)
	assert.Equal(t, "h", got.ContentHash)
}

func TestPruneAndClear(t *testing.T) {
	c := openCache(t)

	require.NoError(t, c.UpdateStat(FileStatEntry{Path: "/a", ContentHash: "live"}))
	require.NoError(t, c.StoreParse("live", sampleResult()))
	require.NoError(t, c.StoreParse("dead", sampleResult()))
	require.NoError(t, c.StoreIncludes("dead", []IncludeDepEntry{
		{SourceHash: "dead", IncludePath: "x.svh", IncludeHash: "i"},
	}))
	require.NoError(t, c.StoreEdges("dead", []DepEdgeEntry{
		{SourceHash: "dead", SourceUnit: "a", TargetUnit: "b"},
	}))

	require.NoError(t, c.Prune())

	_, err := c.LookupParse("live")
	assert.NoError(t, err)
	_, err = c.LookupParse("dead")
	assert.Equal(t, errors.NotFound, errors.GetCode(err))

	require.NoError(t, c.Clear())
	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.FileStatCount)
	assert.Zero(t, stats.ParseResultCount)

	require.NoError(t, c.Vacuum())
}

func TestGetStats(t *testing.T) {
	c := openCache(t)

	require.NoError(t, c.UpdateStat(FileStatEntry{Path: "/a", ContentHash: "h"}))
	require.NoError(t, c.UpdateStat(FileStatEntry{Path: "/b", ContentHash: "h"}))
	require.NoError(t, c.StoreParse("h", sampleResult()))

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.FileStatCount)
	assert.Equal(t, int64(1), stats.ParseResultCount)
	assert.Positive(t, stats.TotalBytes)
}
