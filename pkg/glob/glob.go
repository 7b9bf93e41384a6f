// Package glob implements the path pattern matching used by workspace
// member expansion and manifest source groups.
//
// Matching is segment-wise: `*` and `?` never cross a `/`, `**` matches
// zero or more whole segments, and `[abc]`, `[a-z]`, `[!...]` are
// character classes. Ordered pattern lists support `!`-prefixed excludes
// with last-match-wins semantics.
package glob

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/loom-hdl/loom/pkg/errors"
)

// Normalize converts backslashes to forward slashes, collapses consecutive
// separators, and strips a trailing slash (unless the whole path is "/").
func Normalize(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	for _, c := range p {
		if c == '\\' {
			c = '/'
		}
		if c == '/' && b.Len() > 0 && b.String()[b.Len()-1] == '/' {
			continue
		}
		b.WriteRune(c)
	}
	out := b.String()
	if len(out) > 1 && out[len(out)-1] == '/' {
		out = out[:len(out)-1]
	}
	return out
}

// Match reports whether path matches pattern after normalization.
// Malformed patterns do not match.
func Match(pattern, path string) bool {
	ok, err := doublestar.Match(Normalize(pattern), Normalize(path))
	return err == nil && ok
}

// IsNegation reports whether pattern is a `!`-prefixed exclude, returning
// the inner pattern when it is.
func IsNegation(pattern string) (string, bool) {
	if strings.HasPrefix(pattern, "!") {
		return pattern[1:], true
	}
	return "", false
}

// Expand walks rootDir and returns the normalized relative paths of every
// regular file matching pattern, sorted lexically.
func Expand(pattern string, rootDir string) ([]string, error) {
	info, err := os.Stat(rootDir)
	if err != nil || !info.IsDir() {
		return nil, errors.Newf(errors.IO, "glob expand: root directory does not exist: %s", rootDir)
	}

	pat := Normalize(pattern)
	var results []string
	walkErr := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return nil
		}
		rel = Normalize(filepath.ToSlash(rel))
		if Match(pat, rel) {
			results = append(results, rel)
		}
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.IO, walkErr, "glob expand: error walking %s", rootDir)
	}

	sort.Strings(results)
	return results, nil
}

// Filter applies an ordered pattern list to paths. Patterns are processed
// in order per path; a plain pattern includes on match, a `!` pattern
// excludes on match, and the last matching pattern wins.
func Filter(patterns, paths []string) []string {
	var result []string
	for _, path := range paths {
		included := false
		for _, pat := range patterns {
			if inner, neg := IsNegation(pat); neg {
				if Match(inner, path) {
					included = false
				}
			} else if Match(pat, path) {
				included = true
			}
		}
		if included {
			result = append(result, path)
		}
	}
	return result
}
