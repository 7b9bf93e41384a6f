// Package resolver turns a manifest (or a workspace) plus an optional
// existing lockfile into a new lockfile of pinned package revisions.
//
// Resolution is a BFS closure over declared dependencies: the queue is
// FIFO, seeded in manifest declaration order, and the first resolution of
// a name wins — so a dependency declared close to the root always beats a
// transitive one of the same name. Termination is guaranteed by the
// resolved-name map even for cyclic declarations; cycles are then caught
// by a topological-sort post-pass and reported as a typed error.
package resolver

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/loom-hdl/loom/pkg/dag"
	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/git"
	"github.com/loom-hdl/loom/pkg/lockfile"
	"github.com/loom-hdl/loom/pkg/manifest"
	"github.com/loom-hdl/loom/pkg/overrides"
	"github.com/loom-hdl/loom/pkg/srccache"
	"github.com/loom-hdl/loom/pkg/version"
	"github.com/loom-hdl/loom/pkg/workspace"
)

// LoomVersion stamps produced lockfiles and participates in filelist keys.
const LoomVersion = "0.1.0"

// Options parameterize one resolution run.
type Options struct {
	NoLocal       bool   // suppress Loom.local overrides
	Offline       bool   // fail instead of touching the network
	UpdateAll     bool   // never reuse the existing lockfile verbatim; its entries still serve as hints
	UpdatePackage string // force re-resolution of one package
}

// resolvedPackage is the in-flight result for one package.
type resolvedPackage struct {
	name      string
	version   string
	commit    string
	ref       string
	sourceURL string // git URL, or the canonical path for path deps
	isPath    bool
	checksum  string
	depNames  []string
}

// Resolver runs dependency resolution against a source cache.
type Resolver struct {
	cache  *srccache.Cache
	logger *log.Logger
}

// New creates a resolver over the given source cache.
func New(cache *srccache.Cache, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{cache: cache, logger: logger}
}

// Resolve produces a lockfile for a single-package manifest. When an
// existing lockfile is present, update-all is off, and the lockfile is not
// stale against the manifest's dependency set, the existing lockfile is
// returned verbatim.
func (r *Resolver) Resolve(m *manifest.Manifest, manifestDir string,
	existing *lockfile.File, opts Options,
) (*lockfile.File, error) {
	if opts.Offline {
		r.cache.Git().SetOffline(true)
	}

	if existing != nil && !opts.UpdateAll && !existing.IsStale(m.Dependencies) {
		r.logger.Debug("lockfile is up-to-date, reusing")
		return existing, nil
	}

	resolved, err := r.resolveDeps(m.Dependencies, existing, opts, manifestDir)
	if err != nil {
		return nil, err
	}
	return buildLockfile(m, resolved), nil
}

// Update re-resolves a single package: the named entry is removed from a
// copy of the existing lockfile, resolution re-runs with that copy as the
// hint source, and the package is excluded from hint reuse so it is
// resolved fresh.
func (r *Resolver) Update(m *manifest.Manifest, manifestDir string,
	existing *lockfile.File, packageName string, opts Options,
) (*lockfile.File, error) {
	if opts.Offline {
		r.cache.Git().SetOffline(true)
	}

	if existing.Find(packageName) == nil {
		return nil, errors.Newf(errors.NotFound,
			"package '%s' not found in lockfile", packageName)
	}

	modified := &lockfile.File{
		LoomVersion: existing.LoomVersion,
		RootName:    existing.RootName,
		RootVersion: existing.RootVersion,
	}
	for _, p := range existing.Packages {
		if p.Name != packageName {
			modified.Packages = append(modified.Packages, p)
		}
	}

	opts.UpdatePackage = packageName
	resolved, err := r.resolveDeps(m.Dependencies, modified, opts, manifestDir)
	if err != nil {
		return nil, err
	}
	return buildLockfile(m, resolved), nil
}

// ResolveWorkspace produces a single unified lockfile for all workspace
// members: workspace/member shortcuts are expanded, the expanded set is
// deduplicated with conflict detection on (name, source), root manifest
// dependencies join for a non-virtual workspace, and the ordinary closure
// runs with the workspace root as the context directory.
func (r *Resolver) ResolveWorkspace(ws *workspace.Workspace,
	existing *lockfile.File, opts Options,
) (*lockfile.File, error) {
	if opts.Offline {
		r.cache.Git().SetOffline(true)
	}

	var allDeps []manifest.Dependency
	depSources := make(map[string]string)

	addDep := func(dep manifest.Dependency) error {
		sourceKey := dep.SourceKey()
		if prev, ok := depSources[dep.Name]; ok {
			if prev != sourceKey {
				return errors.Newf(errors.Dependency,
					"conflicting sources for dependency '%s': '%s' vs '%s'",
					dep.Name, prev, sourceKey)
			}
			return nil // already collected
		}
		depSources[dep.Name] = sourceKey
		allDeps = append(allDeps, dep)
		return nil
	}

	for _, member := range ws.Members() {
		for _, dep := range member.Manifest.Dependencies {
			resolved := dep

			if dep.Workspace {
				wsDep, err := ws.ResolveWorkspaceDep(dep.Name)
				if err != nil {
					return nil, err
				}
				resolved = wsDep
			}
			if dep.Member {
				memDep, err := ws.ResolveMemberDep(dep.Name)
				if err != nil {
					return nil, err
				}
				resolved = memDep
			}

			if err := addDep(resolved); err != nil {
				return nil, err
			}
		}
	}

	if !ws.IsVirtual() {
		for _, dep := range ws.RootManifest().Dependencies {
			if _, ok := depSources[dep.Name]; ok {
				continue
			}
			if err := addDep(dep); err != nil {
				return nil, err
			}
		}
	}

	resolved, err := r.resolveDeps(allDeps, existing, opts, ws.RootDir())
	if err != nil {
		return nil, err
	}
	return buildLockfile(ws.RootManifest(), resolved), nil
}

// queueEntry pairs a dependency with the directory whose manifest
// introduced it, which anchors relative path dependencies.
type queueEntry struct {
	dep        manifest.Dependency
	contextDir string
}

// resolveDeps is the BFS closure.
func (r *Resolver) resolveDeps(deps []manifest.Dependency,
	existing *lockfile.File, opts Options, manifestDir string,
) (map[string]resolvedPackage, error) {
	resolved := make(map[string]resolvedPackage)

	queue := make([]queueEntry, 0, len(deps))
	for _, dep := range deps {
		queue = append(queue, queueEntry{dep: dep, contextDir: manifestDir})
	}

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]
		dep := entry.dep

		// First-to-resolve wins: BFS order guarantees the resolution
		// closest to the root is kept.
		if _, ok := resolved[dep.Name]; ok {
			continue
		}

		if dep.Workspace || dep.Member {
			return nil, errors.Newf(errors.Dependency,
				"unexpected workspace/member dependency '%s' in resolution; "+
					"these must be expanded before resolving", dep.Name)
		}

		var locked *lockfile.Package
		if existing != nil {
			locked = existing.Find(dep.Name)
			if locked != nil && opts.UpdatePackage != "" && dep.Name == opts.UpdatePackage {
				locked = nil
			}
		}

		var pkg resolvedPackage
		var err error
		switch {
		case dep.Git != nil:
			pkg, err = r.resolveGit(dep, locked)
		case dep.Path != nil:
			pkg, err = r.resolvePath(dep, entry.contextDir)
		default:
			err = errors.Newf(errors.Dependency,
				"dependency '%s' has no source (git or path)", dep.Name)
		}
		if err != nil {
			return nil, err
		}

		transitive, err := r.loadTransitiveDeps(pkg)
		if err != nil {
			return nil, err
		}
		for _, td := range transitive {
			pkg.depNames = append(pkg.depNames, td.Name)
		}

		// Context for the transitive deps' own path dependencies: the
		// package's checkout directory (git) or its path (path).
		transDir := pkg.sourceURL
		if !pkg.isPath {
			transDir = r.cache.CheckoutPath(pkg.name, pkg.sourceURL, pkg.version, pkg.commit)
		}

		resolved[dep.Name] = pkg

		for _, td := range transitive {
			if _, ok := resolved[td.Name]; !ok {
				queue = append(queue, queueEntry{dep: td, contextDir: transDir})
			}
		}
	}

	// Post-pass: the closure terminates on cycles, the sort names them.
	graph := dag.NewMap()
	for name, pkg := range resolved {
		graph.AddNode(name)
		for _, depName := range pkg.depNames {
			graph.AddEdge(name, depName)
		}
	}
	if _, err := graph.TopoSort(); err != nil {
		return nil, errors.New(errors.Cycle, "dependency cycle detected in resolved packages")
	}

	return resolved, nil
}

// resolveGit resolves one git dependency, preferring a lock hint whose
// source matches so no network is touched for unchanged packages.
func (r *Resolver) resolveGit(dep manifest.Dependency, locked *lockfile.Package) (resolvedPackage, error) {
	gs := dep.Git

	if locked != nil && locked.Source == "git+"+gs.URL && locked.Commit != "" {
		r.logger.Debugf("reusing locked %s @ %s", dep.Name, shortSHA(locked.Commit))
		return resolvedPackage{
			name:      dep.Name,
			version:   locked.Version,
			commit:    locked.Commit,
			ref:       locked.Ref,
			sourceURL: gs.URL,
			checksum:  locked.Checksum,
		}, nil
	}

	barePath, err := r.cache.EnsureBareRepo(dep.Name, gs.URL)
	if err != nil {
		return resolvedPackage{}, err
	}

	var commit, ref, versionStr string

	switch {
	case gs.Tag != "":
		ref = gs.Tag
		commit, err = r.cache.Git().ResolveRef(barePath, ref)
		if err != nil {
			return resolvedPackage{}, err
		}
		// The version is the tag with a leading v stripped, kept verbatim
		// when it does not parse.
		versionStr = ref
		if v, err := version.Parse(git.StripVPrefix(ref)); err == nil {
			versionStr = v.String()
		}

	case gs.Version != "":
		req, err := version.ParseReq(gs.Version)
		if err != nil {
			return resolvedPackage{}, err
		}
		lsOutput, err := r.cache.Git().LsRemote(gs.URL)
		if err != nil {
			return resolvedPackage{}, err
		}
		tags, err := git.ParseLsRemoteTags(lsOutput)
		if err != nil {
			return resolvedPackage{}, err
		}
		best, err := git.ResolveVersionFromTags(tags, req)
		if err != nil {
			return resolvedPackage{}, err
		}
		ref = best.Name
		commit = best.Commit
		versionStr = best.Version.String()

		// ls-remote may report the tag object; rev-parse in the bare
		// mirror canonicalizes to the commit.
		if fullSHA, err := r.cache.Git().ResolveRef(barePath, ref); err == nil {
			commit = fullSHA
		}

	case gs.Rev != "":
		ref = gs.Rev
		commit, err = r.cache.Git().ResolveRef(barePath, ref)
		if err != nil {
			return resolvedPackage{}, err
		}
		versionStr = shortSHA(commit)

	case gs.Branch != "":
		ref = gs.Branch
		commit, err = r.cache.Git().ResolveRef(barePath, "refs/heads/"+ref)
		if err != nil {
			commit, err = r.cache.Git().ResolveRef(barePath, ref)
			if err != nil {
				return resolvedPackage{}, err
			}
		}
		versionStr = ref + "-" + shortSHA(commit)

	default:
		return resolvedPackage{}, errors.Newf(errors.Dependency,
			"git dependency '%s' must specify tag, version, rev, or branch", dep.Name)
	}

	coPath, err := r.cache.EnsureCheckout(dep.Name, gs.URL, versionStr, commit)
	if err != nil {
		return resolvedPackage{}, err
	}
	checksum, err := r.cache.ComputeChecksum(coPath)
	if err != nil {
		return resolvedPackage{}, err
	}

	return resolvedPackage{
		name:      dep.Name,
		version:   versionStr,
		commit:    commit,
		ref:       ref,
		sourceURL: gs.URL,
		checksum:  checksum,
	}, nil
}

// resolvePath resolves one path dependency against the directory of the
// manifest that declared it.
func (r *Resolver) resolvePath(dep manifest.Dependency, contextDir string) (resolvedPackage, error) {
	depPath := dep.Path.Path
	if !filepath.IsAbs(depPath) {
		depPath = filepath.Join(contextDir, depPath)
	}

	canonical, err := filepath.EvalSymlinks(depPath)
	if err != nil {
		return resolvedPackage{}, errors.Newf(errors.NotFound,
			"path dependency '%s': directory does not exist: %s", dep.Name, depPath)
	}
	depPath = canonical

	manifestFile := filepath.Join(depPath, "Loom.toml")
	if _, err := os.Stat(manifestFile); err != nil {
		return resolvedPackage{}, errors.Newf(errors.Manifest,
			"path dependency '%s': no Loom.toml found in %s", dep.Name, depPath)
	}

	m, err := manifest.Load(manifestFile)
	if err != nil {
		return resolvedPackage{}, err
	}

	checksum, err := r.cache.ComputeChecksum(depPath)
	if err != nil {
		return resolvedPackage{}, err
	}

	return resolvedPackage{
		name:      dep.Name,
		version:   m.Package.Version,
		sourceURL: depPath,
		isPath:    true,
		checksum:  checksum,
	}, nil
}

// loadTransitiveDeps reads the package's own manifest: from disk for path
// packages, from the bare mirror at the resolved commit for git packages.
// A git package without a Loom.toml simply has no transitive deps.
// Workspace/member shortcuts are only valid at the workspace root, so any
// found here are dropped with a warning.
func (r *Resolver) loadTransitiveDeps(pkg resolvedPackage) ([]manifest.Dependency, error) {
	var m *manifest.Manifest

	if pkg.isPath {
		loaded, err := manifest.Load(filepath.Join(pkg.sourceURL, "Loom.toml"))
		if err != nil {
			return nil, err
		}
		m = loaded
	} else {
		bare := r.cache.BareRepoPath(pkg.name, pkg.sourceURL)
		content, err := r.cache.Git().ShowFile(bare, pkg.commit, "Loom.toml")
		if err != nil {
			if errors.Is(err, errors.NotFound) || errors.Is(err, errors.IO) {
				return nil, nil
			}
			return nil, err
		}
		parsed, err := manifest.Parse([]byte(content))
		if err != nil {
			return nil, err
		}
		m = parsed
	}

	var result []manifest.Dependency
	for _, dep := range m.Dependencies {
		if dep.Workspace || dep.Member {
			r.logger.Warnf("ignoring workspace/member dependency '%s' in transitive dependency '%s'",
				dep.Name, pkg.name)
			continue
		}
		result = append(result, dep)
	}
	return result, nil
}

// ApplyOverrides rewrites locked packages per the overrides map. A missing
// target package warns and continues; a path override replaces the source
// and clears commit and ref; a git override replaces the source and sets
// ref from tag, branch, or rev in that order of preference.
func ApplyOverrides(lf *lockfile.File, o *overrides.Overrides, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}

	for name, src := range o.Entries {
		target := lf.Find(name)
		if target == nil {
			logger.Warnf("local override for '%s' has no matching locked package, skipping", name)
			continue
		}

		if src.Kind == overrides.PathKind {
			target.Source = "path+" + src.Path
			target.Commit = ""
			target.Ref = ""
			logger.Infof("override: %s -> path '%s'", name, src.Path)
		} else {
			target.Source = "git+" + src.URL
			switch {
			case src.Tag != "":
				target.Ref = src.Tag
			case src.Branch != "":
				target.Ref = src.Branch
			case src.Rev != "":
				target.Ref = src.Rev
			}
			logger.Infof("override: %s -> git '%s'", name, src.URL)
		}
	}
}

// TopologicalSort orders the lockfile's packages so every package precedes
// its dependencies, or returns the Cycle error.
func TopologicalSort(lf *lockfile.File) ([]string, error) {
	graph := dag.NewMap()
	for _, pkg := range lf.Packages {
		graph.AddNode(pkg.Name)
		for _, dep := range pkg.Dependencies {
			graph.AddEdge(pkg.Name, dep)
		}
	}
	return graph.TopoSort()
}

// buildLockfile converts the resolved map into a sorted, stamped lockfile.
func buildLockfile(rootManifest *manifest.Manifest, resolved map[string]resolvedPackage) *lockfile.File {
	lf := &lockfile.File{
		LoomVersion: LoomVersion,
		RootName:    rootManifest.Package.Name,
		RootVersion: rootManifest.Package.Version,
	}

	for _, pkg := range resolved {
		source := "git+" + pkg.sourceURL
		if pkg.isPath {
			source = "path+" + pkg.sourceURL
		}
		lf.Packages = append(lf.Packages, lockfile.Package{
			Name:         pkg.name,
			Version:      pkg.version,
			Source:       source,
			Commit:       pkg.commit,
			Ref:          pkg.ref,
			Checksum:     pkg.checksum,
			Dependencies: pkg.depNames,
		})
	}

	sort.Slice(lf.Packages, func(i, j int) bool {
		return lf.Packages[i].Name < lf.Packages[j].Name
	})
	return lf
}

func shortSHA(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
