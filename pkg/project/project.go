// Package project loads single-package projects: manifest discovery by
// upward walk, manifest checksumming, and source collection from the
// manifest's target-filtered source groups.
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/glob"
	"github.com/loom-hdl/loom/pkg/manifest"
	"github.com/loom-hdl/loom/pkg/target"
)

// Project is a loaded single-package project.
type Project struct {
	Manifest     *manifest.Manifest
	RootDir      string
	ManifestPath string
	Checksum     string // SHA-256 of the manifest bytes
}

// FindManifest walks upward from startDir for a Loom.toml.
func FindManifest(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.Wrap(errors.IO, err, "cannot resolve path: %s", startDir)
	}

	for {
		candidate := filepath.Join(dir, "Loom.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Newf(errors.NotFound,
				"no Loom.toml found in %s or any parent directory", startDir)
		}
		dir = parent
	}
}

// HasManifest reports whether dir contains a Loom.toml.
func HasManifest(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "Loom.toml"))
	return err == nil
}

// IsWorkspaceRoot reports whether dir's manifest carries a [workspace]
// section.
func IsWorkspaceRoot(dir string) (bool, error) {
	path := filepath.Join(dir, "Loom.toml")
	if _, err := os.Stat(path); err != nil {
		return false, errors.Newf(errors.NotFound, "no Loom.toml in: %s", dir)
	}
	m, err := manifest.Load(path)
	if err != nil {
		return false, err
	}
	return m.IsWorkspace(), nil
}

// Load reads the project rooted at projectDir.
func Load(projectDir string) (*Project, error) {
	manifestPath := filepath.Join(projectDir, "Loom.toml")

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, errors.Wrap(errors.IO, err, "cannot open manifest: %s", manifestPath)
	}

	sum := sha256.Sum256(data)

	m, err := manifest.Parse(data)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, errors.Wrap(errors.IO, err, "cannot resolve path: %s", projectDir)
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	return &Project{
		Manifest:     m,
		RootDir:      absRoot,
		ManifestPath: filepath.Join(absRoot, "Loom.toml"),
		Checksum:     hex.EncodeToString(sum[:]),
	}, nil
}

// Discover finds the nearest manifest above startDir and loads its
// project.
func Discover(startDir string) (*Project, error) {
	manifestPath, err := FindManifest(startDir)
	if err != nil {
		return nil, err
	}
	return Load(filepath.Dir(manifestPath))
}

// isGlobPattern reports whether a file entry needs glob expansion.
func isGlobPattern(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// CollectSourceGroups filters the manifest's source groups by the active
// target set and expands file globs against the project root. Plain file
// entries pass through unexpanded.
func (p *Project) CollectSourceGroups(active target.Set) ([]manifest.SourceGroup, error) {
	filtered := manifest.FilterSourceGroups(p.Manifest.Sources, active)

	var result []manifest.SourceGroup
	for _, group := range filtered {
		resolved := manifest.SourceGroup{
			Target:      group.Target,
			IncludeDirs: group.IncludeDirs,
			Defines:     group.Defines,
		}

		for _, filePat := range group.Files {
			if isGlobPattern(filePat) {
				expanded, err := glob.Expand(filePat, p.RootDir)
				if err != nil {
					return nil, err
				}
				for _, rel := range expanded {
					resolved.Files = append(resolved.Files,
						filepath.Join(p.RootDir, filepath.FromSlash(rel)))
				}
			} else {
				resolved.Files = append(resolved.Files,
					filepath.Join(p.RootDir, filepath.FromSlash(filePat)))
			}
		}
		result = append(result, resolved)
	}

	return result, nil
}

// CollectSources flattens the collected groups into a deduplicated file
// list, preserving group order.
func (p *Project) CollectSources(active target.Set) ([]string, error) {
	groups, err := p.CollectSourceGroups(active)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var result []string
	for _, group := range groups {
		for _, f := range group.Files {
			if !seen[f] {
				seen[f] = true
				result = append(result, f)
			}
		}
	}
	return result, nil
}
