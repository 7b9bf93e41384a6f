// Package config implements the layered effective configuration: global
// file (~/.loom/config.toml), then workspace-level settings from the root
// manifest, then the member's own settings. Later layers replace lint
// rules per key, override only explicitly-set build flags, and take the
// last write per target configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/manifest"
)

// Config is one configuration layer.
type Config struct {
	Lint    manifest.Lint
	Build   manifest.Build
	Targets map[string]manifest.TargetConfig
}

// New returns an empty layer with initialized maps.
func New() Config {
	return Config{
		Lint: manifest.Lint{
			Rules:  make(map[string]string),
			Naming: make(map[string]string),
		},
		Targets: make(map[string]manifest.TargetConfig),
	}
}

// FromManifest extracts the configuration sections of a manifest as one
// layer. Build flags keep their explicit-set bits.
func FromManifest(m *manifest.Manifest) Config {
	cfg := New()
	for k, v := range m.Lint.Rules {
		cfg.Lint.Rules[k] = v
	}
	for k, v := range m.Lint.Naming {
		cfg.Lint.Naming[k] = v
	}
	cfg.Build = m.Build
	for k, v := range m.Targets {
		cfg.Targets[k] = v
	}
	return cfg
}

// Parse parses a config document. The [lint], [build], and
// [targets.<name>] sections have the same shape as in a manifest.
func Parse(data []byte) (Config, error) {
	m, err := manifest.Parse(data)
	if err != nil {
		return Config{}, err
	}
	return FromManifest(m), nil
}

// Load reads and parses a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.IO, err, "cannot open config file: %s", path)
	}
	return Parse(data)
}

// Merge folds other into c: lint entries replace per key, build flags
// override only when other set them explicitly, target configurations
// replace per name.
func (c *Config) Merge(other Config) {
	for k, v := range other.Lint.Rules {
		c.Lint.Rules[k] = v
	}
	for k, v := range other.Lint.Naming {
		c.Lint.Naming[k] = v
	}

	if other.Build.PreLintSet {
		c.Build.PreLint = other.Build.PreLint
		c.Build.PreLintSet = true
	}
	if other.Build.LintFatalSet {
		c.Build.LintFatal = other.Build.LintFatal
		c.Build.LintFatalSet = true
	}

	for k, v := range other.Targets {
		c.Targets[k] = v
	}
}

// Effective folds the layers global -> workspace -> member. Nil layers are
// skipped.
func Effective(global, workspace, member *Config) Config {
	result := New()
	for _, layer := range []*Config{global, workspace, member} {
		if layer != nil {
			result.Merge(*layer)
		}
	}
	return result
}

// GlobalPath returns the path of the global config file, derived from HOME
// (or USERPROFILE on Windows). Empty when neither is set.
func GlobalPath() string {
	home := os.Getenv("HOME")
	if home == "" {
		home = os.Getenv("USERPROFILE")
	}
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".loom", "config.toml")
}
