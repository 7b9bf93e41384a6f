package version

import (
	"strings"

	"github.com/loom-hdl/loom/pkg/errors"
)

// Op is a constraint operator.
type Op int

const (
	// Exact is "=X.Y.Z": the release with exactly that triple.
	Exact Op = iota
	// Caret is "^X.Y.Z": compatible with the leading nonzero component.
	Caret
	// Tilde is "~X.Y.Z": patch-level changes only.
	Tilde
	// GreaterEq, Greater, LessEq, Less are the boundary comparisons.
	GreaterEq
	Greater
	LessEq
	Less
)

func (op Op) String() string {
	switch op {
	case Exact:
		return "="
	case Caret:
		return "^"
	case Tilde:
		return "~"
	case GreaterEq:
		return ">="
	case Greater:
		return ">"
	case LessEq:
		return "<="
	case Less:
		return "<"
	}
	return "?"
}

// Constraint pairs an operator with a partial version.
type Constraint struct {
	Op      Op
	Version PartialVersion
}

// Matches reports whether v satisfies the constraint. Prereleases never
// satisfy any constraint: a version carrying a label is rejected by every
// operator, including the boundary comparisons.
func (c Constraint) Matches(v Version) bool {
	if v.IsPrerelease() {
		return false
	}

	req := c.Version.expand()

	switch c.Op {
	case Exact:
		return v.Major == req.Major && v.Minor == req.Minor && v.Micro == req.Micro
	case Caret:
		// ^X.Y.Z with X>0 locks major; ^0.Y.Z with Y>0 locks minor;
		// ^0.0.Z locks exactly.
		if v.Less(req) {
			return false
		}
		if req.Major > 0 {
			return v.Major == req.Major
		}
		if req.Minor > 0 {
			return v.Major == 0 && v.Minor == req.Minor
		}
		return v.Major == 0 && v.Minor == 0 && v.Micro == req.Micro
	case Tilde:
		// ~X.Y.Z: >=X.Y.Z and <X.(Y+1).0
		if v.Less(req) {
			return false
		}
		return v.Major == req.Major && v.Minor == req.Minor
	case GreaterEq:
		return !v.Less(req)
	case Greater:
		return req.Less(v)
	case LessEq:
		return !req.Less(v)
	case Less:
		return v.Less(req)
	}
	return false
}

// String renders the operator followed by the partial version.
func (c Constraint) String() string {
	return c.Op.String() + c.Version.String()
}

// Req is a comma-separated AND of constraints.
type Req struct {
	Constraints []Constraint
}

// parseConstraint parses one constraint token. A bare version with no
// operator defaults to caret, like Cargo.
func parseConstraint(s string) (Constraint, error) {
	s = strings.TrimSpace(s)

	op := Caret
	switch {
	case strings.HasPrefix(s, ">="):
		op, s = GreaterEq, s[2:]
	case strings.HasPrefix(s, "<="):
		op, s = LessEq, s[2:]
	case strings.HasPrefix(s, "^"):
		op, s = Caret, s[1:]
	case strings.HasPrefix(s, "~"):
		op, s = Tilde, s[1:]
	case strings.HasPrefix(s, "="):
		op, s = Exact, s[1:]
	case strings.HasPrefix(s, ">"):
		op, s = Greater, s[1:]
	case strings.HasPrefix(s, "<"):
		op, s = Less, s[1:]
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return Constraint{}, errors.New(errors.Version, "missing version in constraint")
	}

	pv, err := ParsePartial(s)
	if err != nil {
		return Constraint{}, err
	}
	return Constraint{Op: op, Version: pv}, nil
}

// ParseReq parses a comma-separated requirement. Empty requirements are
// rejected.
func ParseReq(s string) (Req, error) {
	if s == "" {
		return Req{}, errors.New(errors.Version, "empty version requirement")
	}

	var req Req
	for _, tok := range strings.Split(s, ",") {
		c, err := parseConstraint(tok)
		if err != nil {
			return Req{}, err
		}
		req.Constraints = append(req.Constraints, c)
	}

	if len(req.Constraints) == 0 {
		return Req{}, errors.Newf(errors.Version, "no constraints in version requirement '%s'", s)
	}
	return req, nil
}

// Matches reports whether every constraint matches v.
func (r Req) Matches(v Version) bool {
	for _, c := range r.Constraints {
		if !c.Matches(v) {
			return false
		}
	}
	return true
}

// String joins the constraints with ", ".
func (r Req) String() string {
	parts := make([]string, len(r.Constraints))
	for i, c := range r.Constraints {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
