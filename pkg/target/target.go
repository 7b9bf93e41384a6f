// Package target implements the target expression language used to select
// manifest source groups:
//
//	*                 wildcard, always true
//	fpga              identifier, true iff in the active target set
//	all(a, b)         conjunction (empty all() is true)
//	any(a, b)         disjunction (empty any() is false)
//	not(e)            negation
package target

import (
	"strconv"
	"strings"

	"github.com/loom-hdl/loom/pkg/errors"
)

// Kind discriminates expression nodes.
type Kind int

const (
	Wildcard Kind = iota
	Identifier
	All
	Any
	Not
)

// Expr is one node of a parsed target expression.
type Expr struct {
	Kind     Kind
	Name     string // identifier name, for Kind == Identifier
	Children []Expr // operands of all/any/not
}

// Set is an active target set.
type Set map[string]bool

// Eval evaluates the expression against the active set.
func (e Expr) Eval(active Set) bool {
	switch e.Kind {
	case Wildcard:
		return true
	case Identifier:
		return active[e.Name]
	case All:
		for _, c := range e.Children {
			if !c.Eval(active) {
				return false
			}
		}
		return true
	case Any:
		for _, c := range e.Children {
			if c.Eval(active) {
				return true
			}
		}
		return false
	case Not:
		return !e.Children[0].Eval(active)
	}
	return false
}

// String renders the expression in its source form.
func (e Expr) String() string {
	switch e.Kind {
	case Wildcard:
		return "*"
	case Identifier:
		return e.Name
	case All, Any:
		parts := make([]string, len(e.Children))
		for i, c := range e.Children {
			parts[i] = c.String()
		}
		kw := "all"
		if e.Kind == Any {
			kw = "any"
		}
		return kw + "(" + strings.Join(parts, ", ") + ")"
	case Not:
		return "not(" + e.Children[0].String() + ")"
	}
	return ""
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipWS() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) atEnd() bool { return p.pos >= len(p.input) }

func (p *parser) tryConsume(kw string) bool {
	if strings.HasPrefix(p.input[p.pos:], kw) {
		p.pos += len(kw)
		return true
	}
	return false
}

func (p *parser) parseExpr() (Expr, error) {
	p.skipWS()
	if p.atEnd() {
		return Expr{}, errors.New(errors.Parse, "unexpected end of target expression")
	}

	if p.input[p.pos] == '*' {
		p.pos++
		return Expr{Kind: Wildcard}, nil
	}
	if p.tryConsume("all(") {
		return p.parseCompound(All)
	}
	if p.tryConsume("any(") {
		return p.parseCompound(Any)
	}
	if p.tryConsume("not(") {
		return p.parseNot()
	}
	return p.parseIdentifier()
}

func (p *parser) parseCompound(kind Kind) (Expr, error) {
	children := []Expr{}
	p.skipWS()

	// all() and any() with no operands are valid.
	if !p.atEnd() && p.input[p.pos] == ')' {
		p.pos++
		return Expr{Kind: kind, Children: children}, nil
	}

	first, err := p.parseExpr()
	if err != nil {
		return Expr{}, err
	}
	children = append(children, first)

	p.skipWS()
	for !p.atEnd() && p.input[p.pos] == ',' {
		p.pos++
		child, err := p.parseExpr()
		if err != nil {
			return Expr{}, err
		}
		children = append(children, child)
		p.skipWS()
	}

	if p.atEnd() || p.input[p.pos] != ')' {
		return Expr{}, errors.New(errors.Parse, "expected ')' in target expression").
			WithHint("check for unclosed parentheses")
	}
	p.pos++
	return Expr{Kind: kind, Children: children}, nil
}

func (p *parser) parseNot() (Expr, error) {
	child, err := p.parseExpr()
	if err != nil {
		return Expr{}, err
	}
	p.skipWS()
	if p.atEnd() || p.input[p.pos] != ')' {
		return Expr{}, errors.New(errors.Parse, "expected ')' after not() argument").
			WithHint("not() takes exactly one argument")
	}
	p.pos++
	return Expr{Kind: Not, Children: []Expr{child}}, nil
}

func (p *parser) parseIdentifier() (Expr, error) {
	p.skipWS()
	if p.atEnd() {
		return Expr{}, errors.New(errors.Parse, "expected target name")
	}

	start := p.pos
	c := p.input[p.pos]
	if !isAlpha(c) {
		return Expr{}, errors.Newf(errors.Parse, "invalid target name starting with '%c'", c).
			WithHint("target names must start with a letter")
	}
	p.pos++
	for !p.atEnd() {
		c := p.input[p.pos]
		if isAlpha(c) || isDigit(c) || c == '_' || c == '-' {
			p.pos++
		} else {
			break
		}
	}
	return Expr{Kind: Identifier, Name: p.input[start:p.pos]}, nil
}

// Parse parses a complete target expression; trailing characters are an
// error.
func Parse(input string) (Expr, error) {
	if input == "" {
		return Expr{}, errors.New(errors.InvalidArg, "empty target expression")
	}

	p := parser{input: input}
	expr, err := p.parseExpr()
	if err != nil {
		return Expr{}, err
	}
	p.skipWS()
	if !p.atEnd() {
		return Expr{}, errors.New(errors.Parse, "unexpected characters after target expression").
			WithHint("at position " + strconv.Itoa(p.pos))
	}
	return expr, nil
}

// IsValidName reports whether name matches [a-zA-Z][a-zA-Z0-9_-]*.
func IsValidName(name string) bool {
	if name == "" || !isAlpha(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !isAlpha(c) && !isDigit(c) && c != '_' && c != '-' {
			return false
		}
	}
	return true
}

// ParseSet parses a comma-separated list of target names into a Set.
func ParseSet(input string) (Set, error) {
	if input == "" {
		return nil, errors.New(errors.InvalidArg, "empty target set string")
	}

	set := make(Set)
	for _, tok := range strings.Split(input, ",") {
		name := strings.TrimSpace(tok)
		if name == "" {
			return nil, errors.New(errors.Parse, "empty target name in target set").
				WithHint("check for consecutive commas or trailing commas")
		}
		if !IsValidName(name) {
			return nil, errors.Newf(errors.Parse, "invalid target name '%s'", name).
				WithHint("target names must match [a-zA-Z][a-zA-Z0-9_-]*")
		}
		set[name] = true
	}
	return set, nil
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
