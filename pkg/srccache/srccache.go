// Package srccache implements the two-tier source cache: bare git mirrors
// under git/db/ and immutable per-version working-tree checkouts under
// git/checkouts/, with deterministic tree checksumming that excludes VCS
// metadata.
//
// Layout, rooted at a configurable directory:
//
//	<root>/git/db/<pkg>-<urlhash16>/                      bare mirror
//	<root>/git/checkouts/<pkg>-<urlhash16>/<ver>-<sha7>/  working tree
//
// urlhash16 is the first 16 hex chars of SHA-256(url); sha7 is the first
// seven chars of the commit.
package srccache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/git"
)

// Cache manages the on-disk source store for one root directory.
type Cache struct {
	root   string
	git    *git.Client
	logger *log.Logger
}

// New creates a cache rooted at root.
func New(root string, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{root: root, git: git.NewClient(logger), logger: logger}
}

// DefaultRoot returns $HOME/.loom/cache, falling back to /tmp when HOME is
// unset.
func DefaultRoot() string {
	home := os.Getenv("HOME")
	if home == "" {
		home = "/tmp"
	}
	return filepath.Join(home, ".loom", "cache")
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.root }

// Git exposes the underlying git client, e.g. for setting offline mode.
func (c *Cache) Git() *git.Client { return c.git }

// DirName builds "<pkg>-<first 16 hex of sha256(url)>", the directory stem
// shared by the bare mirror and its checkouts.
func DirName(pkgName, url string) string {
	sum := sha256.Sum256([]byte(url))
	return pkgName + "-" + hex.EncodeToString(sum[:])[:16]
}

// BareRepoPath returns the bare mirror directory for (name, url).
func (c *Cache) BareRepoPath(pkgName, url string) string {
	return filepath.Join(c.root, "git", "db", DirName(pkgName, url))
}

// CheckoutPath returns the working-tree directory for
// (name, url, version, commit).
func (c *Cache) CheckoutPath(pkgName, url, version, commit string) string {
	shortSHA := commit
	if len(shortSHA) > 7 {
		shortSHA = shortSHA[:7]
	}
	return filepath.Join(c.root, "git", "checkouts", DirName(pkgName, url), version+"-"+shortSHA)
}

// EnsureBareRepo makes sure the bare mirror for (name, url) exists and is
// fresh: an existing mirror is fetched, a missing one is cloned bare.
func (c *Cache) EnsureBareRepo(name, url string) (string, error) {
	path := c.BareRepoPath(name, url)

	if _, err := os.Stat(path); err == nil {
		c.logger.Debugf("bare repo exists, fetching: %s", path)
		if err := c.git.Fetch(path); err != nil {
			return "", err
		}
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(errors.IO, err, "cannot create cache directory")
	}

	c.logger.Infof("cloning bare: %s -> %s", url, path)
	return c.git.CloneBare(url, path)
}

// EnsureCheckout makes sure a working tree for (name, url, version,
// commit) exists, producing it from the bare mirror when missing. Existing
// checkouts are returned as-is; they are immutable once created.
func (c *Cache) EnsureCheckout(name, url, version, commit string) (string, error) {
	coPath := c.CheckoutPath(name, url, version, commit)

	if _, err := os.Stat(coPath); err == nil {
		c.logger.Debugf("checkout exists: %s", coPath)
		return coPath, nil
	}

	bare, err := c.EnsureBareRepo(name, url)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(coPath), 0o755); err != nil {
		return "", errors.Wrap(errors.IO, err, "cannot create checkout directory")
	}

	c.logger.Infof("checking out %s@%s -> %s", name, version, coPath)
	return c.git.Checkout(bare, commit, coPath)
}

// ComputeChecksum hashes a checkout tree deterministically: regular files
// only, paths with a .git segment excluded, relative paths sorted, and one
// SHA-256 fed the sequence <relpath><file bytes> per file.
func (c *Cache) ComputeChecksum(checkoutPath string) (string, error) {
	return ComputeChecksum(checkoutPath)
}

// ComputeChecksum is the package-level form, usable without a Cache.
func ComputeChecksum(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", errors.Newf(errors.NotFound, "checkout path does not exist: %s", dir)
	}

	var relPaths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if isVCSPath(rel) {
			return nil
		}
		relPaths = append(relPaths, rel)
		return nil
	})
	if err != nil {
		return "", errors.Wrap(errors.IO, err, "cannot walk checkout tree %s", dir)
	}
	sort.Strings(relPaths)

	hasher := sha256.New()
	for _, rel := range relPaths {
		hasher.Write([]byte(rel))
		f, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		// Each buffer is fed exactly once.
		_, copyErr := io.Copy(hasher, f)
		f.Close()
		if copyErr != nil {
			return "", errors.Wrap(errors.IO, copyErr, "cannot read %s", rel)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// isVCSPath reports whether a relative slash path has a leading or nested
// .git segment.
func isVCSPath(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".git" {
			return true
		}
	}
	return false
}

// CleanCheckouts removes the checkouts subtree but keeps bare mirrors.
func (c *Cache) CleanCheckouts() error {
	dir := filepath.Join(c.root, "git", "checkouts")
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(errors.IO, err, "failed to clean checkouts")
	}
	return nil
}

// CleanAll removes the entire git subtree, mirrors included.
func (c *Cache) CleanAll() error {
	dir := filepath.Join(c.root, "git")
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(errors.IO, err, "failed to clean cache")
	}
	return nil
}
