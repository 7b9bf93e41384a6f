// Package manifest models the Loom.toml project manifest: the package
// section, dependency declarations, source groups with target expressions,
// target configurations, lint rules, build flags, and the workspace
// descriptor.
package manifest

import (
	"os"

	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/target"
)

// Package is the [package] section.
type Package struct {
	Name    string
	Version string
	Top     string // optional top design-unit name
	Authors []string
}

// GitSource declares a git dependency: a URL plus exactly one of
// Tag, Version (semver constraint), Rev, or Branch.
type GitSource struct {
	URL     string
	Tag     string
	Version string
	Rev     string
	Branch  string
}

// PathSource declares a path dependency, relative to the consuming
// manifest's directory.
type PathSource struct {
	Path string
}

// Dependency bundles a package name with exactly one source: git, path, a
// workspace reference, or a member reference.
type Dependency struct {
	Name      string
	Git       *GitSource
	Path      *PathSource
	Workspace bool // workspace = true
	Member    bool // member = true
}

// SourceKey returns the canonical source string used by lockfile staleness
// checks and workspace conflict detection: "git+<url>" or "path+<path>".
// Workspace and member references have no source key until expanded.
func (d Dependency) SourceKey() string {
	switch {
	case d.Git != nil:
		return "git+" + d.Git.URL
	case d.Path != nil:
		return "path+" + d.Path.Path
	}
	return ""
}

// SourceGroup is one [[sources]] entry: an optional target expression
// guarding a set of files with their include directories and defines.
type SourceGroup struct {
	Target      *target.Expr
	Files       []string
	IncludeDirs []string
	Defines     []string
}

// TargetConfig is one [targets.<name>] section: the external tool to run,
// its action, and a flat string-valued option map.
type TargetConfig struct {
	Name    string
	Tool    string
	Action  string
	Options map[string]string
}

// Lint holds rule severities (rule-id -> off|warn|error) and naming
// patterns.
type Lint struct {
	Rules  map[string]string
	Naming map[string]string
}

// Build holds the build flags. The *Set bits record whether a flag was
// written explicitly, which the config layering relies on.
type Build struct {
	PreLint      bool
	LintFatal    bool
	PreLintSet   bool
	LintFatalSet bool
}

// WorkspaceConfig is the [workspace] descriptor of a workspace root.
type WorkspaceConfig struct {
	Members        []string
	Exclude        []string
	DefaultMembers []string
	Dependencies   []Dependency // shared-dependency table
}

// Manifest is a parsed Loom.toml.
type Manifest struct {
	Package      Package
	Dependencies []Dependency // in declaration order
	Sources      []SourceGroup
	Targets      map[string]TargetConfig
	Lint         Lint
	Build        Build
	Workspace    *WorkspaceConfig
}

// IsWorkspace reports whether the manifest has a [workspace] section.
func (m *Manifest) IsWorkspace() bool {
	return m.Workspace != nil
}

// FindDependency returns the declared dependency with the given name, or
// nil.
func (m *Manifest) FindDependency(name string) *Dependency {
	for i := range m.Dependencies {
		if m.Dependencies[i].Name == name {
			return &m.Dependencies[i]
		}
	}
	return nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.IO, err, "cannot open manifest file: %s", path)
	}
	return Parse(data)
}

// FilterSourceGroups keeps every group whose target expression is absent
// or evaluates true against the active set.
func FilterSourceGroups(groups []SourceGroup, active target.Set) []SourceGroup {
	var out []SourceGroup
	for _, g := range groups {
		if g.Target == nil || g.Target.Eval(active) {
			out = append(out, g)
		}
	}
	return out
}
