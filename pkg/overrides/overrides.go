// Package overrides reads Loom.local: a developer-private document that
// redirects locked dependencies to a local path or an alternate git
// source. Overrides are applied as a post-pass after resolution; the
// overridden entries are part of the lockfile that is then written out.
package overrides

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/loom-hdl/loom/pkg/errors"
)

// Kind discriminates override sources.
type Kind int

const (
	// PathKind redirects to a local directory.
	PathKind Kind = iota
	// GitKind redirects to an alternate git URL.
	GitKind
)

// Source is one override entry.
type Source struct {
	Kind   Kind
	Path   string
	URL    string
	Branch string
	Tag    string
	Rev    string
}

// Overrides maps package names to their override sources.
type Overrides struct {
	Entries map[string]Source
}

type rawOverride struct {
	Path   string `toml:"path"`
	Git    string `toml:"git"`
	Branch string `toml:"branch"`
	Tag    string `toml:"tag"`
	Rev    string `toml:"rev"`
}

type rawDoc struct {
	Overrides map[string]rawOverride `toml:"overrides"`
}

// Parse parses a Loom.local document. An entry must carry either a path
// or a git URL, never both or neither.
func Parse(data []byte) (*Overrides, error) {
	var raw rawDoc
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, errors.Wrap(errors.Parse, err, "Loom.local parse error")
	}

	o := &Overrides{Entries: make(map[string]Source)}
	for name, r := range raw.Overrides {
		if r.Path != "" && r.Git != "" {
			return nil, errors.Newf(errors.Parse,
				"override '%s' cannot have both 'path' and 'git'", name)
		}
		if r.Path == "" && r.Git == "" {
			return nil, errors.Newf(errors.Parse,
				"override '%s' must have either 'path' or 'git'", name)
		}

		if r.Path != "" {
			o.Entries[name] = Source{Kind: PathKind, Path: r.Path}
		} else {
			o.Entries[name] = Source{
				Kind:   GitKind,
				URL:    r.Git,
				Branch: r.Branch,
				Tag:    r.Tag,
				Rev:    r.Rev,
			}
		}
	}
	return o, nil
}

// Load reads and parses a Loom.local file.
func Load(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.IO, err, "cannot open local overrides file: %s", path)
	}
	return Parse(data)
}

// Discover looks for Loom.local in projectRoot. An absent file yields
// empty overrides, not an error.
func Discover(projectRoot string) (*Overrides, error) {
	path := filepath.Join(projectRoot, "Loom.local")
	if _, err := os.Stat(path); err != nil {
		return &Overrides{Entries: make(map[string]Source)}, nil
	}
	return Load(path)
}

// Suppressed reports whether overrides should be ignored, either from the
// --no-local flag or the LOOM_NO_LOCAL=1 environment variable.
func Suppressed(noLocalFlag bool) bool {
	if noLocalFlag {
		return true
	}
	return os.Getenv("LOOM_NO_LOCAL") == "1"
}

// Count returns the number of override entries.
func (o *Overrides) Count() int { return len(o.Entries) }

// Empty reports whether there are no entries.
func (o *Overrides) Empty() bool { return len(o.Entries) == 0 }

// Get returns the override for name, or nil.
func (o *Overrides) Get(name string) *Source {
	if s, ok := o.Entries[name]; ok {
		return &s
	}
	return nil
}

// Validate checks that path overrides point at directories containing a
// Loom.toml and that git overrides carry a URL.
func (o *Overrides) Validate() error {
	for name, src := range o.Entries {
		if src.Kind == PathKind {
			info, err := os.Stat(src.Path)
			if err != nil || !info.IsDir() {
				return errors.Newf(errors.IO,
					"override '%s': path does not exist or is not a directory: %s", name, src.Path)
			}
			if _, err := os.Stat(filepath.Join(src.Path, "Loom.toml")); err != nil {
				return errors.Newf(errors.Manifest,
					"override '%s': path '%s' does not contain a Loom.toml", name, src.Path)
			}
		} else if src.URL == "" {
			return errors.Newf(errors.Parse, "override '%s': git URL cannot be empty", name)
		}
	}
	return nil
}

// WarnActive logs one warning per active override so redirected builds are
// never silent.
func (o *Overrides) WarnActive(logger *log.Logger) {
	for name, src := range o.Entries {
		if src.Kind == PathKind {
			logger.Warnf("local override active: %s -> path '%s'", name, src.Path)
			continue
		}
		ref := ""
		switch {
		case src.Branch != "":
			ref = " (branch=" + src.Branch + ")"
		case src.Tag != "":
			ref = " (tag=" + src.Tag + ")"
		case src.Rev != "":
			ref = " (rev=" + src.Rev + ")"
		}
		logger.Warnf("local override active: %s -> git '%s'%s", name, src.URL, ref)
	}
}
