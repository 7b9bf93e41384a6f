package verilog

import "strings"

// Parser is a single-pass structural walker over the token stream. It
// never backtracks beyond bounded lookahead; when a construct does not
// match, it skips to the next structural keyword and records a
// diagnostic.
type Parser struct {
	tokens []Token
	pos    int
	file   string
	result ParseResult
}

// Parse lexes and parses one source file.
func Parse(src, file string) ParseResult {
	lexer := NewLexer(src, file)
	p := &Parser{tokens: lexer.Tokenize(), file: file}
	p.parseFile()
	return p.result
}

func (p *Parser) cur() Token { return p.tokens[p.pos] }

func (p *Parser) peekAt(off int) Token {
	if p.pos+off >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos+off]
}

func (p *Parser) atEnd() bool { return p.cur().Type == TokEOF }

func (p *Parser) advance() Token {
	tok := p.cur()
	if !p.atEnd() {
		p.pos++
	}
	return tok
}

func (p *Parser) at(t TokenType) bool { return p.cur().Type == t }

func (p *Parser) accept(t TokenType) bool {
	if p.at(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) diag(msg string) {
	tok := p.cur()
	p.result.Diagnostics = append(p.result.Diagnostics, Diagnostic{
		Message: msg,
		File:    p.file,
		Line:    tok.Pos.Line,
		Col:     tok.Pos.Col,
	})
}

func (p *Parser) skipToSemicolon() {
	for !p.atEnd() && !p.at(TokSemicolon) {
		p.advance()
	}
	p.accept(TokSemicolon)
}

// skipBalanced consumes from an open delimiter through its matching close.
func (p *Parser) skipBalanced(open, close TokenType) {
	if !p.at(open) {
		return
	}
	depth := 0
	for !p.atEnd() {
		if p.at(open) {
			depth++
		} else if p.at(close) {
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// unitEndKeyword maps a design-unit kind to its closer.
func unitEndKeyword(kind DesignUnitKind) TokenType {
	switch kind {
	case KindModule:
		return TokKwEndmodule
	case KindPackage:
		return TokKwEndpackage
	case KindInterface:
		return TokKwEndinterface
	case KindClass:
		return TokKwEndclass
	case KindProgram:
		return TokKwEndprogram
	}
	return TokEOF
}

func unitKindOf(t TokenType) (DesignUnitKind, bool) {
	switch t {
	case TokKwModule:
		return KindModule, true
	case TokKwPackage:
		return KindPackage, true
	case TokKwInterface:
		return KindInterface, true
	case TokKwClass:
		return KindClass, true
	case TokKwProgram:
		return KindProgram, true
	}
	return 0, false
}

func (p *Parser) parseFile() {
	for !p.atEnd() {
		if kind, ok := unitKindOf(p.cur().Type); ok {
			p.parseDesignUnit(kind, 0)
			continue
		}
		p.advance()
	}
}

// parseDesignUnit parses one module/package/interface/class/program at the
// given nesting depth, including nested units.
func (p *Parser) parseDesignUnit(kind DesignUnitKind, depth int) {
	startTok := p.advance() // unit keyword

	unit := DesignUnit{
		Kind:      kind,
		Depth:     depth,
		StartLine: startTok.Pos.Line,
		Pos:       startTok.Pos,
	}

	// Optional lifetime qualifier.
	if p.at(TokKwAutomatic) || p.at(TokKwStatic) {
		p.advance()
	}

	if !p.at(TokIdentifier) && !p.at(TokEscapedIdentifier) {
		p.diag("expected " + kind.String() + " name")
		p.skipToNextStructural()
		return
	}
	unit.Name = p.advance().Text

	// Class inheritance clauses carry no structural information here.
	if kind == KindClass {
		for p.at(TokKwExtends) || p.at(TokKwImplements) {
			p.advance()
			for p.at(TokIdentifier) || p.at(TokDoubleColon) || p.at(TokComma) ||
				p.at(TokHash) || p.at(TokLParen) {
				if p.at(TokLParen) {
					p.skipBalanced(TokLParen, TokRParen)
					continue
				}
				p.advance()
			}
		}
	}

	// Parameter port list: #( ... )
	if p.at(TokHash) && p.peekAt(1).Type == TokLParen {
		p.advance() // #
		p.parseParameterList(&unit)
	}

	// ANSI port list.
	if p.at(TokLParen) {
		p.parsePortList(&unit)
	}

	p.accept(TokSemicolon)

	endKw := unitEndKeyword(kind)
	p.parseBody(&unit, endKw)

	if p.at(endKw) {
		unit.EndLine = p.cur().Pos.Line
		p.advance()
		// Optional end label: "endmodule : name"
		if p.at(TokColon) {
			p.advance()
			p.accept(TokIdentifier)
		}
	} else {
		p.diag("missing " + kind.String() + " end keyword for '" + unit.Name + "'")
		unit.EndLine = p.peekAt(-1).Pos.Line
	}

	p.result.Units = append(p.result.Units, unit)
}

// skipToNextStructural recovers by advancing to the next design-unit or
// end keyword.
func (p *Parser) skipToNextStructural() {
	for !p.atEnd() {
		t := p.cur().Type
		if _, ok := unitKindOf(t); ok {
			return
		}
		switch t {
		case TokKwEndmodule, TokKwEndpackage, TokKwEndinterface, TokKwEndclass, TokKwEndprogram:
			return
		}
		p.advance()
	}
}

// parseParameterList parses "#(...)" ANSI parameter ports.
func (p *Parser) parseParameterList(unit *DesignUnit) {
	p.advance() // (
	depth := 1

	var isLocal bool
	for !p.atEnd() && depth > 0 {
		switch p.cur().Type {
		case TokLParen:
			depth++
			p.advance()
		case TokRParen:
			depth--
			p.advance()
		case TokKwParameter:
			isLocal = false
			p.advance()
		case TokKwLocalparam:
			isLocal = true
			p.advance()
		case TokIdentifier:
			// A parameter name is an identifier followed by '=' (or a
			// separator for defaultless parameters).
			next := p.peekAt(1).Type
			if next == TokAssign || next == TokComma || (next == TokRParen && depth == 1) {
				param := ParamDecl{
					Name:    p.cur().Text,
					IsLocal: isLocal,
					Pos:     p.cur().Pos,
				}
				p.advance()
				if p.accept(TokAssign) {
					param.DefaultText = p.collectUntil(TokComma, TokRParen, depth)
				}
				unit.Params = append(unit.Params, param)
			} else {
				p.advance()
			}
		default:
			p.advance()
		}
	}
}

// collectUntil joins token texts until one of the stops at the given paren
// depth, without consuming the stop.
func (p *Parser) collectUntil(stopA, stopB TokenType, baseDepth int) string {
	var parts []string
	depth := baseDepth
	for !p.atEnd() {
		t := p.cur().Type
		if (t == stopA || t == stopB) && depth == baseDepth {
			return strings.Join(parts, " ")
		}
		if t == TokLParen || t == TokLBracket || t == TokLBrace {
			depth++
		}
		if t == TokRParen || t == TokRBracket || t == TokRBrace {
			depth--
		}
		parts = append(parts, p.advance().Text)
	}
	return strings.Join(parts, " ")
}

// parsePortList parses an ANSI port list: direction keywords start a new
// declaration context, the identifier before each separator is the port
// name, and everything between direction and name is preserved as the raw
// type text.
func (p *Parser) parsePortList(unit *DesignUnit) {
	p.advance() // (
	depth := 1

	direction := DirInput
	haveDirection := false
	var typeParts []string
	var pending *PortDecl

	// emit appends the pending port; reset additionally clears the type
	// context, which only a new direction keyword does — names after a
	// comma inherit the group's type.
	emit := func() {
		if pending != nil {
			unit.Ports = append(unit.Ports, *pending)
			pending = nil
		}
	}
	reset := func() {
		emit()
		typeParts = typeParts[:0]
	}

	for !p.atEnd() && depth > 0 {
		tok := p.cur()
		switch tok.Type {
		case TokLParen:
			depth++
			p.advance()
		case TokRParen:
			depth--
			p.advance()
			if depth == 0 {
				emit()
			}
		case TokKwInput, TokKwOutput, TokKwInout, TokKwRef:
			reset()
			haveDirection = true
			switch tok.Type {
			case TokKwInput:
				direction = DirInput
			case TokKwOutput:
				direction = DirOutput
			case TokKwInout:
				direction = DirInout
			case TokKwRef:
				direction = DirRef
			}
			p.advance()
		case TokComma:
			if depth == 1 {
				emit()
			}
			p.advance()
		case TokIdentifier, TokEscapedIdentifier:
			next := p.peekAt(1).Type
			isName := haveDirection && depth == 1 &&
				(next == TokComma || next == TokRParen || next == TokLBracket)
			if isName {
				if pending != nil {
					// "input a, b": the second name inherits the type.
					unit.Ports = append(unit.Ports, *pending)
				}
				pending = &PortDecl{
					Name:      tok.Text,
					Direction: direction,
					TypeText:  strings.Join(typeParts, " "),
					Pos:       tok.Pos,
				}
				p.advance()
				// Unpacked array dimensions after the name.
				for p.at(TokLBracket) {
					p.skipBalanced(TokLBracket, TokRBracket)
				}
			} else {
				typeParts = append(typeParts, tok.Text)
				p.advance()
			}
		case TokLBracket:
			start := p.pos
			p.skipBalanced(TokLBracket, TokRBracket)
			var b strings.Builder
			for _, t := range p.tokens[start:p.pos] {
				b.WriteString(t.Text)
			}
			typeParts = append(typeParts, b.String())
		default:
			if haveDirection {
				typeParts = append(typeParts, tok.Text)
			}
			p.advance()
		}
	}
}

// parseBody walks a design unit body until its end keyword.
func (p *Parser) parseBody(unit *DesignUnit, endKw TokenType) {
	for !p.atEnd() && !p.at(endKw) {
		t := p.cur().Type

		if kind, ok := unitKindOf(t); ok {
			p.parseDesignUnit(kind, unit.Depth+1)
			continue
		}

		switch t {
		case TokKwInput, TokKwOutput, TokKwInout:
			p.parseNonAnsiPort(unit)
		case TokKwParameter, TokKwLocalparam:
			p.parseBodyParameter(unit)
		case TokKwImport:
			p.parseImport(unit)
		case TokKwAlways, TokKwAlwaysComb, TokKwAlwaysFf, TokKwAlwaysLatch:
			p.parseAlwaysBlock(unit)
		case TokKwCase, TokKwCasex, TokKwCasez, TokKwUnique, TokKwPriority:
			p.parseCaseStatement(unit)
		case TokKwWire, TokKwReg, TokKwLogic, TokKwBit, TokKwByte, TokKwInteger,
			TokKwInt, TokKwShortint, TokKwLongint, TokKwTime, TokKwReal,
			TokKwGenvar, TokKwSupply0, TokKwSupply1:
			p.parseSignalDecl(unit)
		case TokKwGenerate:
			p.parseGenerateBlock(unit)
		case TokKwBegin:
			p.parseLabeledBlock(unit)
		case TokKwDefparam:
			unit.HasDefparam = true
			p.skipToSemicolon()
		case TokKwAssign:
			p.skipToSemicolon()
		case TokKwFunction:
			p.skipToEndKeyword(TokKwFunction, TokKwEndfunction)
		case TokKwTask:
			p.skipToEndKeyword(TokKwTask, TokKwEndtask)
		case TokIdentifier:
			if !p.tryParseInstantiation(unit) {
				p.advance()
			}
		default:
			p.advance()
		}
	}
}

// skipToEndKeyword consumes until the matching end keyword, tracking
// nesting of the begin keyword.
func (p *Parser) skipToEndKeyword(beginKw, endKw TokenType) {
	depth := 0
	for !p.atEnd() {
		if p.at(beginKw) {
			depth++
		} else if p.at(endKw) {
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// parseNonAnsiPort parses "input [7:0] a, b;" inside a body.
func (p *Parser) parseNonAnsiPort(unit *DesignUnit) {
	dirTok := p.advance()
	direction := DirInput
	switch dirTok.Type {
	case TokKwOutput:
		direction = DirOutput
	case TokKwInout:
		direction = DirInout
	}

	var typeParts []string
	for !p.atEnd() && !p.at(TokSemicolon) {
		tok := p.cur()
		if tok.Type == TokIdentifier || tok.Type == TokEscapedIdentifier {
			next := p.peekAt(1).Type
			if next == TokComma || next == TokSemicolon {
				unit.Ports = append(unit.Ports, PortDecl{
					Name:      tok.Text,
					Direction: direction,
					TypeText:  strings.Join(typeParts, " "),
					Pos:       tok.Pos,
				})
				p.advance()
				p.accept(TokComma)
				continue
			}
			typeParts = append(typeParts, tok.Text)
			p.advance()
			continue
		}
		if tok.Type == TokLBracket {
			start := p.pos
			p.skipBalanced(TokLBracket, TokRBracket)
			var b strings.Builder
			for _, t := range p.tokens[start:p.pos] {
				b.WriteString(t.Text)
			}
			typeParts = append(typeParts, b.String())
			continue
		}
		typeParts = append(typeParts, tok.Text)
		p.advance()
	}
	p.accept(TokSemicolon)
}

// parseBodyParameter parses "parameter X = expr;" and localparams.
func (p *Parser) parseBodyParameter(unit *DesignUnit) {
	isLocal := p.cur().Type == TokKwLocalparam
	p.advance()

	for !p.atEnd() && !p.at(TokSemicolon) {
		if p.at(TokIdentifier) && p.peekAt(1).Type == TokAssign {
			param := ParamDecl{
				Name:    p.cur().Text,
				IsLocal: isLocal,
				Pos:     p.cur().Pos,
			}
			p.advance()
			p.advance() // =
			param.DefaultText = p.collectUntil(TokComma, TokSemicolon, 0)
			unit.Params = append(unit.Params, param)
			continue
		}
		p.advance()
	}
	p.accept(TokSemicolon)
}

// parseImport parses "import pkg::sym;" and "import pkg::*;".
func (p *Parser) parseImport(unit *DesignUnit) {
	importTok := p.advance()

	for {
		if !p.at(TokIdentifier) {
			p.skipToSemicolon()
			return
		}
		imp := ImportDecl{PackageName: p.advance().Text, Pos: importTok.Pos}

		if p.accept(TokDoubleColon) {
			if p.at(TokStar) {
				imp.Symbol = "*"
				imp.IsWildcard = true
				p.advance()
			} else if p.at(TokIdentifier) {
				imp.Symbol = p.advance().Text
			}
		}
		unit.Imports = append(unit.Imports, imp)

		if !p.accept(TokComma) {
			break
		}
	}
	p.accept(TokSemicolon)
}

// tryParseInstantiation applies the two instantiation heuristics:
//
//	IDENT IDENT (            plain instantiation
//	IDENT #( ... ) IDENT (   parameterized instantiation
//
// Returns false without consuming anything when neither matches.
func (p *Parser) tryParseInstantiation(unit *DesignUnit) bool {
	moduleTok := p.cur()

	// Plain: IDENT IDENT (
	if p.peekAt(1).Type == TokIdentifier && p.peekAt(2).Type == TokLParen {
		p.advance() // module name
		instTok := p.advance()
		p.skipBalanced(TokLParen, TokRParen)
		p.accept(TokSemicolon)
		unit.Instantiations = append(unit.Instantiations, Instantiation{
			ModuleName:   moduleTok.Text,
			InstanceName: instTok.Text,
			Pos:          moduleTok.Pos,
		})
		return true
	}

	// Parameterized: IDENT #( ... ) IDENT (
	if p.peekAt(1).Type == TokHash && p.peekAt(2).Type == TokLParen {
		// Bounded lookahead across the parameter list.
		look := p.pos + 2
		depth := 0
		for look < len(p.tokens) {
			t := p.tokens[look].Type
			if t == TokLParen {
				depth++
			} else if t == TokRParen {
				depth--
				if depth == 0 {
					break
				}
			} else if t == TokEOF {
				return false
			}
			look++
		}
		if look+2 < len(p.tokens) &&
			p.tokens[look+1].Type == TokIdentifier &&
			p.tokens[look+2].Type == TokLParen {
			p.advance() // module name
			p.advance() // #
			p.skipBalanced(TokLParen, TokRParen)
			instTok := p.advance()
			p.skipBalanced(TokLParen, TokRParen)
			p.accept(TokSemicolon)
			unit.Instantiations = append(unit.Instantiations, Instantiation{
				ModuleName:      moduleTok.Text,
				InstanceName:    instTok.Text,
				IsParameterized: true,
				Pos:             moduleTok.Pos,
			})
			return true
		}
	}

	return false
}

// parseAlwaysBlock parses one procedural block, classifying its kind and
// capturing the assignments inside it.
func (p *Parser) parseAlwaysBlock(unit *DesignUnit) {
	alwaysTok := p.advance()

	blk := AlwaysBlock{Pos: alwaysTok.Pos}
	switch alwaysTok.Type {
	case TokKwAlwaysComb:
		blk.Kind = AlwaysComb
	case TokKwAlwaysFf:
		blk.Kind = AlwaysFf
	case TokKwAlwaysLatch:
		blk.Kind = AlwaysLatch
	default:
		blk.Kind = AlwaysPlain
	}

	// Sensitivity list: @(*) and @* make a star block.
	if p.at(TokAt) {
		p.advance()
		if p.at(TokStar) {
			blk.Kind = AlwaysStar
			p.advance()
		} else if p.at(TokLParen) {
			if p.peekAt(1).Type == TokStar && p.peekAt(2).Type == TokRParen {
				blk.Kind = AlwaysStar
			}
			p.skipBalanced(TokLParen, TokRParen)
		}
	}

	if p.at(TokKwBegin) {
		p.advance()
		if p.accept(TokColon) {
			if p.at(TokIdentifier) {
				blk.Label = p.advance().Text
			}
		}
		p.parseAlwaysBody(unit, &blk, 1)
	} else {
		// Single statement without begin/end.
		p.parseAlwaysStatement(unit, &blk)
	}

	unit.AlwaysBlocks = append(unit.AlwaysBlocks, blk)
}

// parseAlwaysBody walks statements until the begin/end depth closes.
func (p *Parser) parseAlwaysBody(unit *DesignUnit, blk *AlwaysBlock, depth int) {
	for !p.atEnd() && depth > 0 {
		switch p.cur().Type {
		case TokKwBegin:
			depth++
			p.advance()
			if p.accept(TokColon) {
				p.accept(TokIdentifier)
			}
		case TokKwEnd:
			depth--
			p.advance()
			if depth > 0 {
				continue
			}
			// Optional end label.
			if p.at(TokColon) {
				p.advance()
				p.accept(TokIdentifier)
			}
		case TokKwCase, TokKwCasex, TokKwCasez, TokKwUnique, TokKwPriority:
			p.parseCaseStatement(unit)
		case TokKwEndmodule, TokKwEndpackage, TokKwEndinterface:
			// Unbalanced block; bail out so the unit still closes.
			p.diag("unterminated begin/end block")
			return
		case TokIdentifier, TokEscapedIdentifier:
			p.parseAlwaysStatement(unit, blk)
		default:
			p.advance()
		}
	}
}

// parseAlwaysStatement captures "target = expr;" / "target <= expr;"
// statements, tolerating indexed and hierarchical left-hand sides.
func (p *Parser) parseAlwaysStatement(unit *DesignUnit, blk *AlwaysBlock) {
	if !p.at(TokIdentifier) && !p.at(TokEscapedIdentifier) {
		// Not an assignment opener; consume one token so the walk makes
		// progress.
		if !p.at(TokKwEnd) && !p.atEnd() {
			p.advance()
		}
		return
	}

	startTok := p.cur()
	target := p.advance().Text

	// Swallow select/member suffixes: a[3], a.b, a::b.
	for {
		switch p.cur().Type {
		case TokLBracket:
			p.skipBalanced(TokLBracket, TokRBracket)
			continue
		case TokDot, TokDoubleColon:
			p.advance()
			if p.at(TokIdentifier) {
				p.advance()
			}
			continue
		}
		break
	}

	switch p.cur().Type {
	case TokAssign:
		p.advance()
		blk.Assignments = append(blk.Assignments, Assignment{
			IsBlocking: true,
			Target:     target,
			Pos:        startTok.Pos,
		})
		p.skipToSemicolon()
	case TokLessEq:
		// The lexer emits one token for <=; statement position makes it a
		// non-blocking assignment.
		p.advance()
		blk.Assignments = append(blk.Assignments, Assignment{
			IsBlocking: false,
			Target:     target,
			Pos:        startTok.Pos,
		})
		p.skipToSemicolon()
	default:
		p.skipToSemicolon()
	}
}

// parseCaseStatement parses case/casex/casez with optional unique/priority
// qualifiers, recording shape only.
func (p *Parser) parseCaseStatement(unit *DesignUnit) {
	cs := CaseStatement{Pos: p.cur().Pos}

	for p.at(TokKwUnique) || p.at(TokKwPriority) {
		if p.at(TokKwUnique) {
			cs.IsUnique = true
		} else {
			cs.IsPriority = true
		}
		p.advance()
	}

	switch p.cur().Type {
	case TokKwCase:
		cs.Kind = CaseNormal
	case TokKwCasex:
		cs.Kind = CaseX
	case TokKwCasez:
		cs.Kind = CaseZ
	default:
		// unique/priority on an if statement; nothing more to record.
		return
	}
	p.advance()
	p.skipBalanced(TokLParen, TokRParen)

	depth := 1
	for !p.atEnd() && depth > 0 {
		switch p.cur().Type {
		case TokKwCase, TokKwCasex, TokKwCasez:
			depth++
			p.advance()
		case TokKwEndcase:
			depth--
			p.advance()
		case TokKwDefault:
			if depth == 1 {
				cs.HasDefault = true
			}
			p.advance()
		default:
			p.advance()
		}
	}

	unit.CaseStatements = append(unit.CaseStatements, cs)
}

// parseSignalDecl parses net/variable declarations, one SignalDecl per
// declared name. Declarations with initializers keep only the name.
func (p *Parser) parseSignalDecl(unit *DesignUnit) {
	typeTok := p.advance()
	typeParts := []string{typeTok.Text}

	// Optional signing and packed ranges.
	for !p.atEnd() {
		if p.at(TokLBracket) {
			start := p.pos
			p.skipBalanced(TokLBracket, TokRBracket)
			var b strings.Builder
			for _, t := range p.tokens[start:p.pos] {
				b.WriteString(t.Text)
			}
			typeParts = append(typeParts, b.String())
			continue
		}
		if p.at(TokIdentifier) {
			next := p.peekAt(1).Type
			if next == TokComma || next == TokSemicolon || next == TokAssign ||
				next == TokLBracket {
				break
			}
			typeParts = append(typeParts, p.advance().Text)
			continue
		}
		break
	}

	typeText := strings.Join(typeParts, " ")

	for !p.atEnd() && !p.at(TokSemicolon) {
		if p.at(TokIdentifier) || p.at(TokEscapedIdentifier) {
			tok := p.advance()
			unit.Signals = append(unit.Signals, SignalDecl{
				Name:     tok.Text,
				TypeText: typeText,
				Pos:      tok.Pos,
			})
			// Unpacked dimensions after the name.
			for p.at(TokLBracket) {
				p.skipBalanced(TokLBracket, TokRBracket)
			}
			// Initializer runs to the next separator.
			if p.accept(TokAssign) {
				p.collectUntil(TokComma, TokSemicolon, 0)
			}
			p.accept(TokComma)
			continue
		}
		p.advance()
	}
	p.accept(TokSemicolon)
}

// parseGenerateBlock records one generate region, labeled by the first
// named begin at generate level.
func (p *Parser) parseGenerateBlock(unit *DesignUnit) {
	genTok := p.advance()
	gen := GenerateBlock{Pos: genTok.Pos}

	depth := 1
	for !p.atEnd() && depth > 0 {
		switch p.cur().Type {
		case TokKwGenerate:
			depth++
			p.advance()
		case TokKwEndgenerate:
			depth--
			p.advance()
		case TokKwBegin:
			p.advance()
			if p.at(TokColon) && p.peekAt(1).Type == TokIdentifier {
				p.advance()
				label := p.advance().Text
				if !gen.HasLabel {
					gen.Label = label
					gen.HasLabel = true
				}
			}
		case TokKwEndmodule:
			p.diag("unterminated generate block")
			unit.GenerateBlocks = append(unit.GenerateBlocks, gen)
			return
		case TokIdentifier:
			if !p.tryParseInstantiation(unit) {
				p.advance()
			}
		default:
			p.advance()
		}
	}

	unit.GenerateBlocks = append(unit.GenerateBlocks, gen)
}

// parseLabeledBlock parses a free-standing "begin : label ... end : label"
// pair and checks that the two labels agree.
func (p *Parser) parseLabeledBlock(unit *DesignUnit) {
	beginTok := p.advance()

	lb := LabeledBlock{LabelsMatch: true, Pos: beginTok.Pos}
	if p.accept(TokColon) {
		if p.at(TokIdentifier) {
			lb.BeginLabel = p.advance().Text
		}
	}

	depth := 1
	for !p.atEnd() && depth > 0 {
		switch p.cur().Type {
		case TokKwBegin:
			depth++
			p.advance()
		case TokKwEnd:
			depth--
			p.advance()
			if depth == 0 && p.at(TokColon) {
				p.advance()
				if p.at(TokIdentifier) {
					lb.EndLabel = p.advance().Text
				}
			}
		case TokKwEndmodule:
			p.diag("unterminated labeled block")
			unit.LabeledBlocks = append(unit.LabeledBlocks, lb)
			return
		default:
			p.advance()
		}
	}

	if lb.BeginLabel != "" && lb.EndLabel != "" {
		lb.LabelsMatch = lb.BeginLabel == lb.EndLabel
	}
	unit.LabeledBlocks = append(unit.LabeledBlocks, lb)
}
