package glob

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`a\b\c`, "a/b/c"},
		{"a//b///c", "a/b/c"},
		{"a/b/", "a/b"},
		{"/", "/"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern, path string
		want          bool
	}{
		// * and ? stay within one segment
		{"*.sv", "top.sv", true},
		{"*.sv", "rtl/top.sv", false},
		{"rtl/*.sv", "rtl/top.sv", true},
		{"rtl/?op.sv", "rtl/top.sv", true},
		{"rtl/?op.sv", "rtl/stop.sv", false},
		// ** crosses zero or more segments
		{"**/*.sv", "top.sv", true},
		{"**/*.sv", "a/b/c/top.sv", true},
		{"rtl/**", "rtl/deep/file.sv", true},
		{"rtl/**/tb.sv", "rtl/tb.sv", true},
		// Character classes
		{"file[0-9].sv", "file3.sv", true},
		{"file[0-9].sv", "filex.sv", false},
		{"file[!0-9].sv", "filex.sv", true},
		{"file[abc].sv", "fileb.sv", true},
		// Backslash input normalizes before matching
		{`rtl\*.sv`, `rtl\top.sv`, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Match(tt.pattern, tt.path), "%q vs %q", tt.pattern, tt.path)
	}
}

func TestFilterNegation(t *testing.T) {
	paths := []string{"rtl/a.sv", "rtl/b.sv", "tb/a_tb.sv", "rtl/gen/c.sv"}

	got := Filter([]string{"rtl/**"}, paths)
	assert.Equal(t, []string{"rtl/a.sv", "rtl/b.sv", "rtl/gen/c.sv"}, got)

	// Exclude after include drops matches.
	got = Filter([]string{"**", "!tb/**"}, paths)
	assert.Equal(t, []string{"rtl/a.sv", "rtl/b.sv", "rtl/gen/c.sv"}, got)

	// Last match wins: re-include after an exclude.
	got = Filter([]string{"**", "!rtl/**", "rtl/a.sv"}, paths)
	assert.Equal(t, []string{"rtl/a.sv", "tb/a_tb.sv"}, got)
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rtl", "gen"), 0o755))
	for _, f := range []string{"top.sv", "rtl/alu.sv", "rtl/gen/mul.sv", "rtl/notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.FromSlash(f)), []byte("x"), 0o644))
	}

	got, err := Expand("rtl/**/*.sv", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"rtl/alu.sv", "rtl/gen/mul.sv"}, got)

	got, err = Expand("**/*.sv", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"rtl/alu.sv", "rtl/gen/mul.sv", "top.sv"}, got)

	_, err = Expand("*.sv", filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
