// Package lockfile reads and writes Loom.lock: the pinned, sorted record
// of resolution output. The on-disk form is TOML-shaped and
// byte-deterministic for a given resolved set, so lockfiles diff cleanly
// and re-resolution of an unchanged project is a no-op.
package lockfile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/manifest"
)

// Package is one locked package entry.
type Package struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source"` // "git+<url>" or "path+<path>"
	Commit       string   `toml:"commit"` // full SHA, empty for path sources
	Ref          string   `toml:"ref"`    // original tag/branch/rev
	Checksum     string   `toml:"checksum"`
	Dependencies []string `toml:"dependencies"`
}

// File is a parsed Loom.lock.
type File struct {
	LoomVersion string    `toml:"loom_version"`
	RootName    string    `toml:"-"`
	RootVersion string    `toml:"-"`
	Packages    []Package `toml:"packages"`
}

type rawFile struct {
	LoomVersion string    `toml:"loom_version"`
	Root        rawRoot   `toml:"root"`
	Packages    []Package `toml:"packages"`
}

type rawRoot struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Load reads a lockfile from disk. A missing file is a NotFound error; an
// unparseable one is a Parse error.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.NotFound, "no lockfile at %s", path)
		}
		return nil, errors.Wrap(errors.IO, err, "cannot read lockfile %s", path)
	}

	var raw rawFile
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, errors.Wrap(errors.Parse, err, "malformed lockfile %s", path)
	}

	return &File{
		LoomVersion: raw.LoomVersion,
		RootName:    raw.Root.Name,
		RootVersion: raw.Root.Version,
		Packages:    raw.Packages,
	}, nil
}

// Save writes the lockfile. Packages are emitted sorted by name and every
// key is written unconditionally, so the output bytes are a pure function
// of the resolved set.
func (f *File) Save(path string) error {
	if err := os.WriteFile(path, []byte(f.Render()), 0o644); err != nil {
		return errors.Wrap(errors.IO, err, "cannot write lockfile %s", path)
	}
	return nil
}

// Render produces the deterministic textual form.
func (f *File) Render() string {
	pkgs := make([]Package, len(f.Packages))
	copy(pkgs, f.Packages)
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })

	var b strings.Builder
	b.WriteString("# This file is auto-generated by loom.\n")
	b.WriteString("# Do not edit it manually.\n\n")
	fmt.Fprintf(&b, "loom_version = %q\n\n", f.LoomVersion)
	b.WriteString("[root]\n")
	fmt.Fprintf(&b, "name = %q\n", f.RootName)
	fmt.Fprintf(&b, "version = %q\n", f.RootVersion)

	for _, p := range pkgs {
		b.WriteString("\n[[packages]]\n")
		fmt.Fprintf(&b, "name = %q\n", p.Name)
		fmt.Fprintf(&b, "version = %q\n", p.Version)
		fmt.Fprintf(&b, "source = %q\n", p.Source)
		fmt.Fprintf(&b, "commit = %q\n", p.Commit)
		fmt.Fprintf(&b, "ref = %q\n", p.Ref)
		fmt.Fprintf(&b, "checksum = %q\n", p.Checksum)
		b.WriteString("dependencies = [")
		for i, d := range p.Dependencies {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%q", d)
		}
		b.WriteString("]\n")
	}

	return b.String()
}

// Find returns the locked package with the given name, or nil.
func (f *File) Find(name string) *Package {
	for i := range f.Packages {
		if f.Packages[i].Name == name {
			return &f.Packages[i]
		}
	}
	return nil
}

// IsStale reports whether the lockfile no longer matches the manifest's
// dependency set. The comparison is on (name, source) pairs only: a
// changed tag on the same URL does not make a lockfile stale — that is
// what 'loom update' is for.
func (f *File) IsStale(deps []manifest.Dependency) bool {
	lockSet := make(map[string]bool, len(f.Packages))
	for _, p := range f.Packages {
		lockSet[p.Name+"\x00"+p.Source] = true
	}

	depSet := make(map[string]bool, len(deps))
	for _, d := range deps {
		depSet[d.Name+"\x00"+d.SourceKey()] = true
	}

	if len(lockSet) != len(depSet) {
		return true
	}
	for k := range depSet {
		if !lockSet[k] {
			return true
		}
	}
	return false
}
