package buildcache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The incremental-check contracts: a warm cache makes a full no-change
// pass over 1,000 files effectively free.

func populate(t *testing.T, c *Cache, dir string, n int) []string {
	t.Helper()
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("mod_%04d.sv", i))
		src := fmt.Sprintf("module mod_%04d (input wire clk, output reg q);\n"+
			"  always @(posedge clk) q <= ~q;\nendmodule\n", i)
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

		hash, err := c.CachedFileHash(path)
		require.NoError(t, err)
		require.NoError(t, c.StoreParse(hash, sampleResult()))
		paths[i] = path
	}
	return paths
}

func TestIncrementalCheck1000Files(t *testing.T) {
	if testing.Short() {
		t.Skip("timed test")
	}

	c := openCache(t)
	dir := t.TempDir()
	paths := populate(t, c, dir, 1000)

	// Warm pass: stat lookup -> stat compare against the real file ->
	// parse lookup, for every file.
	start := time.Now()
	hits := 0
	for _, path := range paths {
		hash, err := c.CachedFileHash(path)
		require.NoError(t, err)
		if _, err := c.LookupParse(hash); err == nil {
			hits++
		}
	}
	elapsed := time.Since(start)

	assert.Equal(t, 1000, hits)
	assert.Less(t, elapsed, 200*time.Millisecond,
		"full 1000-file incremental check must stay under 200ms")
}

func TestStatLookupLatency(t *testing.T) {
	if testing.Short() {
		t.Skip("timed test")
	}

	c := openCache(t)
	for i := 0; i < 1000; i++ {
		require.NoError(t, c.UpdateStat(FileStatEntry{
			Path:        fmt.Sprintf("/proj/rtl/mod_%04d.sv", i),
			Inode:       uint64(i),
			Size:        int64(i * 100),
			ContentHash: fmt.Sprintf("hash%04d", i),
		}))
	}

	// Scattered access over the warm cache.
	start := time.Now()
	const lookups = 1000
	for i := 0; i < lookups; i++ {
		idx := (i * 577) % 1000
		_, err := c.LookupStat(fmt.Sprintf("/proj/rtl/mod_%04d.sv", idx))
		require.NoError(t, err)
	}
	perLookup := time.Since(start) / lookups

	assert.Less(t, perLookup, 100*time.Microsecond,
		"cached stat lookup must average under 0.1ms")
}

func BenchmarkLookupParse(b *testing.B) {
	c, err := Open(filepath.Join(b.TempDir(), "loom_cache.db"))
	require.NoError(b, err)
	defer c.Close()

	for i := 0; i < 1000; i++ {
		require.NoError(b, c.StoreParse(fmt.Sprintf("hash%04d", i), sampleResult()))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.LookupParse(fmt.Sprintf("hash%04d", i%1000)); err != nil {
			b.Fatal(err)
		}
	}
}
