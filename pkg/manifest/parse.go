package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/target"
)

// Raw TOML shapes. Pointer fields distinguish absent keys from zero
// values where the layering needs it.
type rawManifest struct {
	Package      *rawPackage              `toml:"package"`
	Dependencies map[string]rawDependency `toml:"dependencies"`
	Sources      []rawSourceGroup         `toml:"sources"`
	Targets      map[string]rawTarget     `toml:"targets"`
	Lint         map[string]any           `toml:"lint"`
	Build        *rawBuild                `toml:"build"`
	Workspace    *rawWorkspace            `toml:"workspace"`
}

type rawPackage struct {
	Name    string   `toml:"name"`
	Version string   `toml:"version"`
	Top     string   `toml:"top"`
	Authors []string `toml:"authors"`
}

type rawDependency struct {
	Git       string `toml:"git"`
	Tag       string `toml:"tag"`
	Version   string `toml:"version"`
	Rev       string `toml:"rev"`
	Branch    string `toml:"branch"`
	Path      string `toml:"path"`
	Workspace bool   `toml:"workspace"`
	Member    bool   `toml:"member"`
}

type rawSourceGroup struct {
	Target      string   `toml:"target"`
	Files       []string `toml:"files"`
	IncludeDirs []string `toml:"include_dirs"`
	Defines     []string `toml:"defines"`
}

type rawTarget struct {
	Tool    string         `toml:"tool"`
	Action  string         `toml:"action"`
	Options map[string]any `toml:"options"`
}

type rawBuild struct {
	PreLint   *bool `toml:"pre-lint"`
	LintFatal *bool `toml:"lint-fatal"`
}

type rawWorkspace struct {
	Members        []string                 `toml:"members"`
	Exclude        []string                 `toml:"exclude"`
	DefaultMembers []string                 `toml:"default-members"`
	Dependencies   map[string]rawDependency `toml:"dependencies"`
}

// Parse parses a Loom.toml document. Dependency declaration order is
// preserved from the file so resolution order is deterministic.
func Parse(data []byte) (*Manifest, error) {
	var raw rawManifest
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, errors.Wrap(errors.Parse, err, "TOML parse error")
	}

	m := &Manifest{Targets: make(map[string]TargetConfig)}

	if raw.Package != nil {
		m.Package = Package{
			Name:    raw.Package.Name,
			Version: raw.Package.Version,
			Top:     raw.Package.Top,
			Authors: raw.Package.Authors,
		}
	}

	deps, err := convertDependencies(raw.Dependencies, declOrder(md, "dependencies"))
	if err != nil {
		return nil, err
	}
	m.Dependencies = deps

	for _, rg := range raw.Sources {
		sg := SourceGroup{
			Files:       rg.Files,
			IncludeDirs: rg.IncludeDirs,
			Defines:     rg.Defines,
		}
		if rg.Target != "" {
			expr, err := target.Parse(rg.Target)
			if err != nil {
				return nil, err
			}
			sg.Target = &expr
		}
		m.Sources = append(m.Sources, sg)
	}

	for name, rt := range raw.Targets {
		m.Targets[name] = TargetConfig{
			Name:    name,
			Tool:    rt.Tool,
			Action:  rt.Action,
			Options: flattenOptions(rt.Options),
		}
	}

	m.Lint = parseLint(raw.Lint)

	if raw.Build != nil {
		if raw.Build.PreLint != nil {
			m.Build.PreLint = *raw.Build.PreLint
			m.Build.PreLintSet = true
		}
		if raw.Build.LintFatal != nil {
			m.Build.LintFatal = *raw.Build.LintFatal
			m.Build.LintFatalSet = true
		}
	}

	if raw.Workspace != nil {
		wc := &WorkspaceConfig{
			Members:        raw.Workspace.Members,
			Exclude:        raw.Workspace.Exclude,
			DefaultMembers: raw.Workspace.DefaultMembers,
		}
		wdeps, err := convertDependencies(raw.Workspace.Dependencies,
			declOrder(md, "workspace", "dependencies"))
		if err != nil {
			return nil, err
		}
		wc.Dependencies = wdeps
		m.Workspace = wc
	}

	return m, nil
}

// declOrder extracts the declaration order of the keys directly under the
// given table from TOML metadata.
func declOrder(md toml.MetaData, table ...string) []string {
	var order []string
	seen := make(map[string]bool)
	for _, key := range md.Keys() {
		if len(key) != len(table)+1 {
			continue
		}
		match := true
		for i, t := range table {
			if key[i] != t {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		name := key[len(table)]
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	return order
}

func convertDependencies(raw map[string]rawDependency, order []string) ([]Dependency, error) {
	var deps []Dependency
	for _, name := range order {
		rd, ok := raw[name]
		if !ok {
			continue
		}
		dep := Dependency{
			Name:      name,
			Workspace: rd.Workspace,
			Member:    rd.Member,
		}
		if rd.Git != "" || rd.Tag != "" || rd.Version != "" || rd.Rev != "" || rd.Branch != "" {
			dep.Git = &GitSource{
				URL:     rd.Git,
				Tag:     rd.Tag,
				Version: rd.Version,
				Rev:     rd.Rev,
				Branch:  rd.Branch,
			}
		}
		if rd.Path != "" {
			dep.Path = &PathSource{Path: rd.Path}
		}
		if err := dep.Validate(); err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

func parseLint(raw map[string]any) Lint {
	lint := Lint{Rules: make(map[string]string), Naming: make(map[string]string)}
	for k, v := range raw {
		if k == "naming" {
			if naming, ok := v.(map[string]any); ok {
				for nk, nv := range naming {
					if s, ok := nv.(string); ok {
						lint.Naming[nk] = s
					}
				}
			}
			continue
		}
		if s, ok := v.(string); ok {
			lint.Rules[k] = s
		}
	}
	return lint
}

// flattenOptions converts TOML option values to strings: booleans and
// integers print naturally, string arrays join with commas.
func flattenOptions(raw map[string]any) map[string]string {
	opts := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			opts[k] = val
		case bool:
			opts[k] = strconv.FormatBool(val)
		case int64:
			opts[k] = strconv.FormatInt(val, 10)
		case []any:
			parts := make([]string, 0, len(val))
			for _, elem := range val {
				if s, ok := elem.(string); ok {
					parts = append(parts, s)
				}
			}
			opts[k] = strings.Join(parts, ",")
		default:
			opts[k] = fmt.Sprintf("%v", val)
		}
	}
	return opts
}
