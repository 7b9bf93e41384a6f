package srccache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-hdl/loom/pkg/errors"
)

func TestDirName(t *testing.T) {
	url := "https://github.com/org/uart.git"
	name := DirName("uart", url)

	sum := sha256.Sum256([]byte(url))
	want := "uart-" + hex.EncodeToString(sum[:])[:16]
	assert.Equal(t, want, name)

	// Different URLs for the same package land in different directories.
	assert.NotEqual(t, name, DirName("uart", "https://github.com/fork/uart.git"))
}

func TestPaths(t *testing.T) {
	c := New("/cache", nil)
	url := "https://example.com/a.git"
	stem := DirName("a", url)

	assert.Equal(t, filepath.Join("/cache", "git", "db", stem), c.BareRepoPath("a", url))

	commit := "0123456789abcdef0123456789abcdef01234567"
	co := c.CheckoutPath("a", url, "1.2.0", commit)
	assert.Equal(t, filepath.Join("/cache", "git", "checkouts", stem, "1.2.0-0123456"), co)

	// Short commits are used as-is.
	co = c.CheckoutPath("a", url, "1.2.0", "abc")
	assert.True(t, strings.HasSuffix(co, "1.2.0-abc"))
}

func TestDefaultRoot(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	assert.Equal(t, filepath.Join("/home/dev", ".loom", "cache"), DefaultRoot())

	t.Setenv("HOME", "")
	assert.Equal(t, filepath.Join("/tmp", ".loom", "cache"), DefaultRoot())
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestComputeChecksumDeterministic(t *testing.T) {
	files := map[string]string{
		"rtl/top.sv":  "module top; endmodule\n",
		"rtl/alu.sv":  "module alu; endmodule\n",
		"Loom.toml":   "[package]\nname = \"a\"\n",
		"README.md":   "hello\n",
		"deep/x/y.sv": "module y; endmodule\n",
	}

	dirA := t.TempDir()
	writeTree(t, dirA, files)
	sumA, err := ComputeChecksum(dirA)
	require.NoError(t, err)
	require.Len(t, sumA, 64)

	// Identical content at a different location hashes identically.
	dirB := t.TempDir()
	writeTree(t, dirB, files)
	sumB, err := ComputeChecksum(dirB)
	require.NoError(t, err)
	assert.Equal(t, sumA, sumB)

	// Content changes change the digest.
	require.NoError(t, os.WriteFile(filepath.Join(dirB, "README.md"), []byte("changed\n"), 0o644))
	sumC, err := ComputeChecksum(dirB)
	require.NoError(t, err)
	assert.NotEqual(t, sumA, sumC)
}

func TestComputeChecksumIgnoresGit(t *testing.T) {
	files := map[string]string{"rtl/top.sv": "module top; endmodule\n"}

	dirA := t.TempDir()
	writeTree(t, dirA, files)
	sumA, err := ComputeChecksum(dirA)
	require.NoError(t, err)

	// .git content, leading or nested, does not affect the digest.
	dirB := t.TempDir()
	writeTree(t, dirB, files)
	writeTree(t, dirB, map[string]string{
		".git/HEAD":            "ref: refs/heads/main\n",
		".git/objects/ab/cdef": "blob",
		"sub/.git/config":      "[core]\n",
	})
	sumB, err := ComputeChecksum(dirB)
	require.NoError(t, err)
	assert.Equal(t, sumA, sumB)
}

func TestComputeChecksumMissingDir(t *testing.T) {
	_, err := ComputeChecksum(filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, errors.NotFound, errors.GetCode(err))
}

func TestCleanOperations(t *testing.T) {
	root := t.TempDir()
	c := New(root, nil)

	writeTree(t, root, map[string]string{
		"git/db/a-0000000000000000/HEAD":                 "x",
		"git/checkouts/a-0000000000000000/1.0.0-abc/f.sv": "x",
	})

	require.NoError(t, c.CleanCheckouts())
	_, err := os.Stat(filepath.Join(root, "git", "checkouts"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "git", "db"))
	assert.NoError(t, err)

	require.NoError(t, c.CleanAll())
	_, err = os.Stat(filepath.Join(root, "git"))
	assert.True(t, os.IsNotExist(err))
}
