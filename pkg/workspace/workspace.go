// Package workspace implements multi-package workspaces: discovery from a
// start directory, member expansion from glob patterns, validation, target
// selection, workspace/member dependency shortcuts, and layered effective
// configuration.
package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/loom-hdl/loom/pkg/config"
	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/glob"
	"github.com/loom-hdl/loom/pkg/ident"
	"github.com/loom-hdl/loom/pkg/manifest"
)

// Member is one discovered workspace member.
type Member struct {
	Name         string
	Version      string
	ManifestPath string
	RootDir      string
	Manifest     *manifest.Manifest
}

// Workspace is a loaded multi-package root.
type Workspace struct {
	rootManifest *manifest.Manifest
	rootDir      string
	members      []Member
}

// Load parses the manifest at workspaceRoot, expands member globs, and
// validates the result. The manifest must carry a [workspace] section.
func Load(workspaceRoot string) (*Workspace, error) {
	manifestPath := filepath.Join(workspaceRoot, "Loom.toml")
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	if !m.IsWorkspace() {
		return nil, errors.Newf(errors.Manifest, "not a workspace: %s", manifestPath).
			WithHint("add a [workspace] section to make this a workspace root")
	}

	ws := &Workspace{rootManifest: m}

	abs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, errors.Wrap(errors.IO, err, "cannot resolve path: %s", workspaceRoot)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	ws.rootDir = abs

	if err := ws.expandMemberGlobs(); err != nil {
		return nil, err
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	return ws, nil
}

// Discover walks upward from startDir until a manifest with a workspace
// section is found.
func Discover(startDir string) (*Workspace, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, errors.Wrap(errors.IO, err, "cannot resolve path: %s", startDir)
	}

	for {
		candidate := filepath.Join(dir, "Loom.toml")
		if _, err := os.Stat(candidate); err == nil {
			if m, err := manifest.Load(candidate); err == nil && m.IsWorkspace() {
				return Load(dir)
			}
			// Not a workspace root, keep walking up.
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, errors.Newf(errors.NotFound, "no workspace root found from: %s", startDir)
		}
		dir = parent
	}
}

// expandMemberGlobs walks the tree below the root for directories holding
// a Loom.toml, keeps those matching a member pattern and not matching an
// exclude pattern, and loads each surviving manifest.
func (w *Workspace) expandMemberGlobs() error {
	wc := w.rootManifest.Workspace

	var memberDirs []string
	err := filepath.WalkDir(w.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() || path == w.rootDir {
			return nil
		}
		if _, err := os.Stat(filepath.Join(path, "Loom.toml")); err != nil {
			return nil
		}

		rel, err := filepath.Rel(w.rootDir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		matched := false
		for _, pattern := range wc.Members {
			if glob.Match(pattern, rel) {
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}
		for _, pattern := range wc.Exclude {
			if glob.Match(pattern, rel) {
				return nil
			}
		}

		memberDirs = append(memberDirs, rel)
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.IO, err, "cannot walk workspace tree")
	}

	for _, relDir := range memberDirs {
		memberDir := filepath.Join(w.rootDir, filepath.FromSlash(relDir))
		manifestPath := filepath.Join(memberDir, "Loom.toml")

		m, err := manifest.Load(manifestPath)
		if err != nil {
			return err
		}

		w.members = append(w.members, Member{
			Name:         m.Package.Name,
			Version:      m.Package.Version,
			ManifestPath: manifestPath,
			RootDir:      memberDir,
			Manifest:     m,
		})
	}

	sort.Slice(w.members, func(i, j int) bool {
		return w.members[i].Name < w.members[j].Name
	})
	return nil
}

// Members returns the sorted member list.
func (w *Workspace) Members() []Member { return w.members }

// MemberCount returns the number of members.
func (w *Workspace) MemberCount() int { return len(w.members) }

// RootManifest returns the workspace root manifest.
func (w *Workspace) RootManifest() *manifest.Manifest { return w.rootManifest }

// RootDir returns the canonical workspace root directory.
func (w *Workspace) RootDir() string { return w.rootDir }

// IsVirtual reports whether the root manifest has no package section.
func (w *Workspace) IsVirtual() bool { return w.rootManifest.Package.Name == "" }

// FindMember returns the member with the given name, or nil.
func (w *Workspace) FindMember(name string) *Member {
	for i := range w.members {
		if w.members[i].Name == name {
			return &w.members[i]
		}
	}
	return nil
}

// MemberForPath returns the member whose root directory contains path, or
// nil.
func (w *Workspace) MemberForPath(path string) *Member {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	for i := range w.members {
		memberRoot := w.members[i].RootDir
		if resolved, err := filepath.EvalSymlinks(memberRoot); err == nil {
			memberRoot = resolved
		}
		rel, err := filepath.Rel(memberRoot, abs)
		if err != nil {
			continue
		}
		if rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)) {
			return &w.members[i]
		}
	}
	return nil
}

// ResolveTargets selects members for a command invocation: explicit
// package flags win; then --all; then the root manifest's default-members
// (relative directory paths); then the member containing cwd; then all
// members.
func (w *Workspace) ResolveTargets(pkgFlags []string, all bool, cwd string) ([]*Member, error) {
	if len(pkgFlags) > 0 {
		var result []*Member
		for _, name := range pkgFlags {
			m := w.FindMember(name)
			if m == nil {
				return nil, errors.Newf(errors.NotFound, "no workspace member named '%s'", name)
			}
			result = append(result, m)
		}
		return result, nil
	}

	allMembers := func() []*Member {
		result := make([]*Member, len(w.members))
		for i := range w.members {
			result[i] = &w.members[i]
		}
		return result
	}

	if all {
		return allMembers(), nil
	}

	if dm := w.rootManifest.Workspace.DefaultMembers; len(dm) > 0 {
		var result []*Member
		for _, relPath := range dm {
			dmAbs := filepath.Join(w.rootDir, filepath.FromSlash(relPath))
			if resolved, err := filepath.EvalSymlinks(dmAbs); err == nil {
				dmAbs = resolved
			}
			for i := range w.members {
				memberAbs := w.members[i].RootDir
				if resolved, err := filepath.EvalSymlinks(memberAbs); err == nil {
					memberAbs = resolved
				}
				if memberAbs == dmAbs {
					result = append(result, &w.members[i])
					break
				}
			}
		}
		if len(result) > 0 {
			return result, nil
		}
	}

	if m := w.MemberForPath(cwd); m != nil {
		return []*Member{m}, nil
	}

	return allMembers(), nil
}

// ResolveWorkspaceDep expands a `workspace = true` reference against the
// shared-dependency table of the root manifest.
func (w *Workspace) ResolveWorkspaceDep(depName string) (manifest.Dependency, error) {
	for _, dep := range w.rootManifest.Workspace.Dependencies {
		if dep.Name == depName {
			return dep, nil
		}
	}
	return manifest.Dependency{}, errors.Newf(errors.Dependency,
		"workspace dependency '%s' not found in [workspace.dependencies]", depName)
}

// ResolveMemberDep expands a `member = true` reference to a path
// dependency pointing at the member's root directory.
func (w *Workspace) ResolveMemberDep(depName string) (manifest.Dependency, error) {
	m := w.FindMember(depName)
	if m == nil {
		return manifest.Dependency{}, errors.Newf(errors.Dependency,
			"member dependency '%s' not found in workspace members", depName)
	}
	return manifest.Dependency{
		Name: depName,
		Path: &manifest.PathSource{Path: m.RootDir},
	}, nil
}

// EffectiveConfig folds global-file config, workspace-level config from
// the root manifest, and the member's own config.
func (w *Workspace) EffectiveConfig(member *Member) config.Config {
	var global *config.Config
	if gpath := config.GlobalPath(); gpath != "" {
		if gc, err := config.Load(gpath); err == nil {
			global = &gc
		}
	}

	wsCfg := config.FromManifest(w.rootManifest)
	memberCfg := config.FromManifest(member.Manifest)

	return config.Effective(global, &wsCfg, &memberCfg)
}

// Validate checks workspace invariants: unique member names (compared in
// normalized form), no nested workspaces, no member lockfiles, and
// resolvable workspace/member dependency shortcuts.
func (w *Workspace) Validate() error {
	seen := make(map[string]bool)
	for _, m := range w.members {
		normalized := ident.NormalizeName(m.Name)
		if seen[normalized] {
			return errors.Newf(errors.Duplicate, "duplicate workspace member name: %s", m.Name)
		}
		seen[normalized] = true
	}

	for _, m := range w.members {
		if m.Manifest.IsWorkspace() {
			return errors.Newf(errors.Manifest,
				"member '%s' is itself a workspace, nested workspaces not allowed", m.Name)
		}
	}

	for _, m := range w.members {
		if _, err := os.Stat(filepath.Join(m.RootDir, "Loom.lock")); err == nil {
			return errors.Newf(errors.Manifest,
				"member '%s' has its own Loom.lock, only the workspace root should have a lockfile", m.Name)
		}
	}

	for _, m := range w.members {
		for _, dep := range m.Manifest.Dependencies {
			if dep.Workspace {
				if _, err := w.ResolveWorkspaceDep(dep.Name); err != nil {
					return errors.Newf(errors.Dependency,
						"member '%s' depends on workspace dep '%s' which is not in [workspace.dependencies]",
						m.Name, dep.Name)
				}
			}
			if dep.Member {
				if w.FindMember(dep.Name) == nil {
					return errors.Newf(errors.Dependency,
						"member '%s' depends on member '%s' which is not a workspace member",
						m.Name, dep.Name)
				}
			}
		}
	}

	return nil
}
