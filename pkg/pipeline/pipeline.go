// Package pipeline drives the per-file incremental build step: consult
// the build cache by file identity, lex and parse on miss, refresh the
// include and design-unit edges, and assemble the whole-project filelist
// under its composite key.
package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/loom-hdl/loom/pkg/buildcache"
	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/manifest"
	"github.com/loom-hdl/loom/pkg/project"
	"github.com/loom-hdl/loom/pkg/target"
	"github.com/loom-hdl/loom/pkg/verilog"
)

// Result summarizes one pipeline run.
type Result struct {
	Files       int
	CacheHits   int
	CacheMisses int
	FilelistKey string
	FileList    []string
	TopModules  []string
	Diagnostics []verilog.Diagnostic
}

// Pipeline runs builds against one build cache.
type Pipeline struct {
	cache       *buildcache.Cache
	loomVersion string
	logger      *log.Logger
}

// New creates a pipeline over an open build cache.
func New(cache *buildcache.Cache, loomVersion string, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{cache: cache, loomVersion: loomVersion, logger: logger}
}

// fileUnits is the per-file outcome threaded into filelist assembly.
type fileUnits struct {
	effectiveHash string
	units         []verilog.DesignUnit
}

// Run processes every source file of the project selected by the active
// target set.
func (p *Pipeline) Run(proj *project.Project, active target.Set) (*Result, error) {
	groups, err := proj.CollectSourceGroups(active)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var effectiveHashes []string
	var allUnits []fileUnits
	seen := make(map[string]bool)

	for _, group := range groups {
		includeDirs := resolveIncludeDirs(group.IncludeDirs, proj.RootDir)
		for _, file := range group.Files {
			if seen[file] {
				continue
			}
			seen[file] = true
			result.Files++

			fu, hit, diags, err := p.processFile(file, group, includeDirs)
			if err != nil {
				return nil, err
			}
			if hit {
				result.CacheHits++
			} else {
				result.CacheMisses++
			}

			result.FileList = append(result.FileList, file)
			result.Diagnostics = append(result.Diagnostics, diags...)
			effectiveHashes = append(effectiveHashes, fu.effectiveHash)
			allUnits = append(allUnits, fu)
		}
	}

	result.FilelistKey = buildcache.FilelistKey(p.loomVersion, proj.Checksum, effectiveHashes)
	result.TopModules = topModules(allUnits, proj.Manifest.Package.Top)

	if _, err := p.cache.LookupFilelist(result.FilelistKey); errors.Is(err, errors.NotFound) {
		if err := p.cache.StoreFilelist(buildcache.FilelistEntry{
			FilelistKey: result.FilelistKey,
			FileList:    result.FileList,
			TopModules:  result.TopModules,
		}); err != nil {
			return nil, err
		}
	}

	p.logger.Debugf("pipeline: %d files, %d hits, %d misses",
		result.Files, result.CacheHits, result.CacheMisses)
	return result, nil
}

// processFile runs the cached path for one file: stat-based hash, include
// resolution, parse lookup by content hash, and on miss a parse plus edge
// refresh.
func (p *Pipeline) processFile(file string, group manifest.SourceGroup,
	includeDirs []string,
) (fileUnits, bool, []verilog.Diagnostic, error) {
	contentHash, err := p.cache.CachedFileHash(file)
	if err != nil {
		return fileUnits{}, false, nil, err
	}

	includes, err := p.resolveIncludes(file, includeDirs)
	if err != nil {
		return fileUnits{}, false, nil, err
	}
	includeHashes := make([]string, 0, len(includes))
	for _, inc := range includes {
		includeHashes = append(includeHashes, inc.IncludeHash)
	}

	effective := buildcache.EffectiveHash(contentHash, includeHashes, group.Defines, group.IncludeDirs)
	fu := fileUnits{effectiveHash: effective}

	if cached, err := p.cache.LookupParse(contentHash); err == nil {
		fu.units = cached.Units
		return fu, true, nil, nil
	}

	src, err := os.ReadFile(file)
	if err != nil {
		return fileUnits{}, false, nil, errors.Wrap(errors.IO, err, "cannot read source file: %s", file)
	}

	parsed := verilog.Parse(string(src), file)
	if err := p.cache.StoreParse(contentHash, &parsed); err != nil {
		return fileUnits{}, false, nil, err
	}

	// Refresh the include edges under the includer's content hash.
	for i := range includes {
		includes[i].SourceHash = contentHash
	}
	if err := p.cache.StoreIncludes(contentHash, includes); err != nil {
		return fileUnits{}, false, nil, err
	}

	// Refresh the design-unit edges from the instantiations.
	var edges []buildcache.DepEdgeEntry
	for _, unit := range parsed.Units {
		for _, inst := range unit.Instantiations {
			edges = append(edges, buildcache.DepEdgeEntry{
				SourceHash: contentHash,
				SourceUnit: unit.Name,
				TargetUnit: inst.ModuleName,
			})
		}
	}
	if err := p.cache.StoreEdges(contentHash, edges); err != nil {
		return fileUnits{}, false, nil, err
	}

	fu.units = parsed.Units
	return fu, false, parsed.Diagnostics, nil
}

// resolveIncludes scans a file's `include directives and hashes every
// include that resolves against the include directories. Unresolvable
// includes are skipped; the downstream tool's preprocessor diagnoses
// them.
func (p *Pipeline) resolveIncludes(file string, includeDirs []string) ([]buildcache.IncludeDepEntry, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(errors.IO, err, "cannot read source file: %s", file)
	}

	var deps []buildcache.IncludeDepEntry
	for _, name := range IncludePaths(string(src)) {
		resolved := ""
		for _, dir := range append([]string{filepath.Dir(file)}, includeDirs...) {
			candidate := filepath.Join(dir, filepath.FromSlash(name))
			if _, err := os.Stat(candidate); err == nil {
				resolved = candidate
				break
			}
		}
		if resolved == "" {
			continue
		}

		hash, err := p.cache.CachedFileHash(resolved)
		if err != nil {
			return nil, err
		}
		deps = append(deps, buildcache.IncludeDepEntry{
			IncludePath: name,
			IncludeHash: hash,
		})
	}
	return deps, nil
}

// IncludePaths extracts the quoted operands of `include directives.
func IncludePaths(src string) []string {
	var out []string
	lexer := verilog.NewLexer(src, "")
	for {
		tok := lexer.Next()
		if tok.Type == verilog.TokEOF {
			return out
		}
		if tok.Type != verilog.TokDirective || !strings.HasPrefix(tok.Text, "include") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(tok.Text, "include"))
		if len(rest) >= 2 && rest[0] == '"' {
			if end := strings.IndexByte(rest[1:], '"'); end >= 0 {
				out = append(out, rest[1:1+end])
			}
		}
	}
}

// topModules picks the root design units: modules that no other unit in
// the run instantiates. An explicit package-section top wins outright.
func topModules(files []fileUnits, explicitTop string) []string {
	if explicitTop != "" {
		return []string{explicitTop}
	}

	declared := make(map[string]bool)
	instantiated := make(map[string]bool)
	var order []string

	for _, fu := range files {
		for _, unit := range fu.units {
			if unit.Kind != verilog.KindModule || unit.Depth > 0 {
				continue
			}
			if !declared[unit.Name] {
				declared[unit.Name] = true
				order = append(order, unit.Name)
			}
			for _, inst := range unit.Instantiations {
				instantiated[inst.ModuleName] = true
			}
		}
	}

	var tops []string
	for _, name := range order {
		if !instantiated[name] {
			tops = append(tops, name)
		}
	}
	return tops
}

func resolveIncludeDirs(dirs []string, root string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if filepath.IsAbs(d) {
			out = append(out, d)
		} else {
			out = append(out, filepath.Join(root, filepath.FromSlash(d)))
		}
	}
	return out
}
