// Package ident provides the identifier primitives shared across Loom:
// validated package names with normalized comparison, and v4 UUIDs with a
// compact base-36 encoding.
package ident

import (
	"strings"

	"github.com/loom-hdl/loom/pkg/errors"
)

// PkgName is a validated package name. Two names are equal iff their
// normalized forms (lowercase, hyphens replaced by underscores) are equal.
type PkgName struct {
	raw        string
	normalized string
}

// ParseName validates raw against [a-zA-Z][a-zA-Z0-9_-]* and returns the
// name with its normalized form precomputed.
func ParseName(raw string) (PkgName, error) {
	if raw == "" {
		return PkgName{}, errors.New(errors.InvalidArg, "empty package name")
	}
	if !isAlpha(raw[0]) {
		return PkgName{}, errors.Newf(errors.InvalidArg, "invalid package name '%s'", raw).
			WithHint("package names must start with a letter")
	}
	for i := 1; i < len(raw); i++ {
		c := raw[i]
		if !isAlpha(c) && !isDigit(c) && c != '_' && c != '-' {
			return PkgName{}, errors.Newf(errors.InvalidArg,
				"invalid character '%c' in package name '%s'", c, raw).
				WithHint("allowed: [a-zA-Z0-9_-]")
		}
	}

	return PkgName{raw: raw, normalized: NormalizeName(raw)}, nil
}

// NormalizeName lowercases s and replaces hyphens with underscores.
func NormalizeName(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' {
			return '_'
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// Raw returns the name as written.
func (n PkgName) Raw() string { return n.raw }

// Normalized returns the canonical comparison form.
func (n PkgName) Normalized() string { return n.normalized }

// Equal compares two names by normalized form.
func (n PkgName) Equal(o PkgName) bool { return n.normalized == o.normalized }

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
