// Package version implements the semantic version algebra used by the
// dependency resolver: full versions with an optional prerelease label,
// partial versions for constraint right-hand sides, and Cargo-style
// requirement matching.
//
// Ordering is total: versions compare lexicographically on
// (major, minor, micro), and a version carrying a prerelease label orders
// strictly before the same triple without one. Within prereleases the
// labels compare by ordinary string order.
package version

import (
	"strconv"
	"strings"

	"github.com/loom-hdl/loom/pkg/errors"
)

// Version is a fully specified semantic version.
type Version struct {
	Major int
	Minor int
	Micro int
	Label string // prerelease label, empty for releases
}

// Parse parses "major.minor.micro[-label]". Empty strings, non-numeric or
// negative components, and a trailing '-' with no label are rejected.
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, errors.New(errors.Version, "empty version string")
	}

	rest := s
	var label string
	if dash := strings.IndexByte(rest, '-'); dash >= 0 {
		label = rest[dash+1:]
		rest = rest[:dash]
		if label == "" {
			return Version{}, errors.Newf(errors.Version, "empty label after '-' in '%s'", s)
		}
	}

	parts := strings.Split(rest, ".")
	if len(parts) != 3 {
		return Version{}, errors.Newf(errors.Version, "invalid version '%s'", s).
			WithHint("expected format: major.minor.micro[-label]")
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := parseComponent(p)
		if err != nil {
			return Version{}, errors.Newf(errors.Version, "invalid version component '%s' in '%s'", p, s)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Micro: nums[2], Label: label}, nil
}

// parseComponent parses one non-negative numeric component.
func parseComponent(s string) (int, error) {
	if s == "" {
		return 0, errors.New(errors.Version, "empty component")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.Newf(errors.Version, "invalid component '%s'", s)
	}
	return n, nil
}

// String renders "major.minor.micro[-label]".
func (v Version) String() string {
	s := strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Micro)
	if v.Label != "" {
		s += "-" + v.Label
	}
	return s
}

// IsPrerelease reports whether the version carries a prerelease label.
func (v Version) IsPrerelease() bool {
	return v.Label != ""
}

// Compare returns -1, 0, or 1. Prereleases order strictly before the same
// (major, minor, micro) release.
func (v Version) Compare(o Version) int {
	if v.Major != o.Major {
		return cmpInt(v.Major, o.Major)
	}
	if v.Minor != o.Minor {
		return cmpInt(v.Minor, o.Minor)
	}
	if v.Micro != o.Micro {
		return cmpInt(v.Micro, o.Micro)
	}
	switch {
	case v.Label == o.Label:
		return 0
	case v.Label == "":
		return 1
	case o.Label == "":
		return -1
	case v.Label < o.Label:
		return -1
	default:
		return 1
	}
}

// Less reports v < o under the total order.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Unset marks an absent minor or micro component of a PartialVersion.
const Unset = -1

// PartialVersion is a constraint right-hand side: major is required, minor
// and micro are optional and tracked with the Unset sentinel.
type PartialVersion struct {
	Major int
	Minor int
	Micro int
}

// ParsePartial parses "1", "1.2", or "1.2.3".
func ParsePartial(s string) (PartialVersion, error) {
	if s == "" {
		return PartialVersion{}, errors.New(errors.Version, "empty partial version string")
	}

	pv := PartialVersion{Minor: Unset, Micro: Unset}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return PartialVersion{}, errors.Newf(errors.Version, "invalid partial version '%s'", s)
	}

	for i, p := range parts {
		n, err := parseComponent(p)
		if err != nil {
			return PartialVersion{}, errors.Newf(errors.Version, "invalid partial version '%s'", s)
		}
		switch i {
		case 0:
			pv.Major = n
		case 1:
			pv.Minor = n
		case 2:
			pv.Micro = n
		}
	}

	return pv, nil
}

// String renders only the components that were present, so parsing and
// printing round-trip ("1" stays "1").
func (pv PartialVersion) String() string {
	s := strconv.Itoa(pv.Major)
	if pv.Minor != Unset {
		s += "." + strconv.Itoa(pv.Minor)
		if pv.Micro != Unset {
			s += "." + strconv.Itoa(pv.Micro)
		}
	}
	return s
}

// expand fills unset components with zero for comparison.
func (pv PartialVersion) expand() Version {
	v := Version{Major: pv.Major}
	if pv.Minor != Unset {
		v.Minor = pv.Minor
	}
	if pv.Micro != Unset {
		v.Micro = pv.Micro
	}
	return v
}
