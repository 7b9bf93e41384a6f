package manifest

import (
	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/ident"
	"github.com/loom-hdl/loom/pkg/version"
)

// Validate checks the dependency's shape: a well-formed package name,
// exactly one source class, a non-empty git URL with exactly one ref
// selector, a parseable version constraint, and a non-empty path.
func (d Dependency) Validate() error {
	if _, err := ident.ParseName(d.Name); err != nil {
		return errors.Newf(errors.Dependency, "invalid dependency name '%s'", d.Name).
			WithHint("package names must match [a-zA-Z][a-zA-Z0-9_-]*")
	}

	sources := 0
	if d.Git != nil {
		sources++
	}
	if d.Path != nil {
		sources++
	}
	if d.Workspace {
		sources++
	}
	if d.Member {
		sources++
	}

	if sources == 0 {
		return errors.Newf(errors.Dependency, "dependency '%s' has no source", d.Name).
			WithHint("specify one of: git, path, workspace = true, or member = true")
	}
	if sources > 1 {
		return errors.Newf(errors.Dependency, "dependency '%s' has multiple sources", d.Name).
			WithHint("git, path, workspace, and member are mutually exclusive")
	}

	if d.Git != nil {
		g := d.Git
		if g.URL == "" {
			return errors.Newf(errors.Dependency, "dependency '%s' has empty git URL", d.Name)
		}

		refs := 0
		if g.Tag != "" {
			refs++
		}
		if g.Version != "" {
			refs++
		}
		if g.Rev != "" {
			refs++
		}
		if g.Branch != "" {
			refs++
		}
		if refs == 0 {
			return errors.Newf(errors.Dependency, "dependency '%s' git source has no ref", d.Name).
				WithHint("specify one of: tag, version, rev, or branch")
		}
		if refs > 1 {
			return errors.Newf(errors.Dependency, "dependency '%s' git source has multiple refs", d.Name).
				WithHint("tag, version, rev, and branch are mutually exclusive")
		}

		if g.Version != "" {
			if _, err := version.ParseReq(g.Version); err != nil {
				return errors.Newf(errors.Dependency,
					"dependency '%s' has invalid version constraint '%s'", d.Name, g.Version)
			}
		}
	}

	if d.Path != nil && d.Path.Path == "" {
		return errors.Newf(errors.Dependency, "dependency '%s' has empty path", d.Name)
	}

	return nil
}
