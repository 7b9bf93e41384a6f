package buildcache

import (
	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/verilog"
)

// The parse-result blob starts with this magic. Integers are base-128
// little-endian varints, strings are varint-length-prefixed. Source
// positions carry line and column only — the filename is redundant in
// cache context. Diagnostics keep their filename.
var blobMagic = []byte{'L', 'P', 'R', 0x01}

type encoder struct {
	buf []byte
}

func (e *encoder) varint(v uint64) {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v&0x7F)|0x80)
		v >>= 7
	}
	e.buf = append(e.buf, byte(v))
}

func (e *encoder) int(v int) { e.varint(uint64(uint32(v))) }

func (e *encoder) str(s string) {
	e.varint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) bool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *encoder) byteVal(b byte) { e.buf = append(e.buf, b) }

func (e *encoder) pos(p verilog.SourcePos) {
	e.int(p.Line)
	e.int(p.Col)
}

type decoder struct {
	data []byte
	off  int
}

func (d *decoder) varint() (uint64, bool) {
	var v uint64
	var shift uint
	for d.off < len(d.data) {
		b := d.data[d.off]
		d.off++
		v |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return v, true
		}
		shift += 7
		if shift >= 64 {
			return 0, false
		}
	}
	return 0, false
}

func (d *decoder) int() (int, bool) {
	raw, ok := d.varint()
	return int(int32(uint32(raw))), ok
}

func (d *decoder) str() (string, bool) {
	n, ok := d.varint()
	if !ok || d.off+int(n) > len(d.data) {
		return "", false
	}
	s := string(d.data[d.off : d.off+int(n)])
	d.off += int(n)
	return s, true
}

func (d *decoder) bool() (bool, bool) {
	if d.off >= len(d.data) {
		return false, false
	}
	b := d.data[d.off]
	d.off++
	return b != 0, true
}

func (d *decoder) byteVal() (byte, bool) {
	if d.off >= len(d.data) {
		return 0, false
	}
	b := d.data[d.off]
	d.off++
	return b, true
}

func (d *decoder) pos() (verilog.SourcePos, bool) {
	line, ok1 := d.int()
	col, ok2 := d.int()
	return verilog.SourcePos{Line: line, Col: col}, ok1 && ok2
}

// SerializeParseResult encodes a ParseResult into the cache blob layout.
// Output bytes are deterministic for identical input.
func SerializeParseResult(pr *verilog.ParseResult) []byte {
	e := &encoder{buf: make([]byte, 0, 1024)}
	e.buf = append(e.buf, blobMagic...)

	e.varint(uint64(len(pr.Units)))
	for _, u := range pr.Units {
		e.byteVal(byte(u.Kind))
		e.str(u.Name)
		e.int(u.StartLine)
		e.int(u.EndLine)
		e.int(u.Depth)
		e.bool(u.HasDefparam)

		e.varint(uint64(len(u.Ports)))
		for _, p := range u.Ports {
			e.str(p.Name)
			e.byteVal(byte(p.Direction))
			e.str(p.TypeText)
			e.pos(p.Pos)
		}

		e.varint(uint64(len(u.Params)))
		for _, p := range u.Params {
			e.str(p.Name)
			e.str(p.DefaultText)
			e.bool(p.IsLocal)
			e.pos(p.Pos)
		}

		e.varint(uint64(len(u.Instantiations)))
		for _, inst := range u.Instantiations {
			e.str(inst.ModuleName)
			e.str(inst.InstanceName)
			e.bool(inst.IsParameterized)
			e.pos(inst.Pos)
		}

		e.varint(uint64(len(u.Imports)))
		for _, imp := range u.Imports {
			e.str(imp.PackageName)
			e.str(imp.Symbol)
			e.bool(imp.IsWildcard)
			e.pos(imp.Pos)
		}

		e.varint(uint64(len(u.AlwaysBlocks)))
		for _, ab := range u.AlwaysBlocks {
			e.byteVal(byte(ab.Kind))
			e.str(ab.Label)
			e.varint(uint64(len(ab.Assignments)))
			for _, a := range ab.Assignments {
				e.bool(a.IsBlocking)
				e.str(a.Target)
				e.pos(a.Pos)
			}
			e.pos(ab.Pos)
		}

		e.varint(uint64(len(u.CaseStatements)))
		for _, cs := range u.CaseStatements {
			e.byteVal(byte(cs.Kind))
			e.bool(cs.HasDefault)
			e.bool(cs.IsUnique)
			e.bool(cs.IsPriority)
			e.pos(cs.Pos)
		}

		e.varint(uint64(len(u.Signals)))
		for _, s := range u.Signals {
			e.str(s.Name)
			e.str(s.TypeText)
			e.pos(s.Pos)
		}

		e.varint(uint64(len(u.GenerateBlocks)))
		for _, g := range u.GenerateBlocks {
			e.str(g.Label)
			e.bool(g.HasLabel)
			e.pos(g.Pos)
		}

		e.varint(uint64(len(u.LabeledBlocks)))
		for _, lb := range u.LabeledBlocks {
			e.str(lb.BeginLabel)
			e.str(lb.EndLabel)
			e.bool(lb.LabelsMatch)
			e.pos(lb.Pos)
		}

		e.pos(u.Pos)
	}

	e.varint(uint64(len(pr.Diagnostics)))
	for _, diag := range pr.Diagnostics {
		e.str(diag.Message)
		e.str(diag.File)
		e.int(diag.Line)
		e.int(diag.Col)
	}

	return e.buf
}

// DeserializeParseResult decodes a cache blob. Wrong magic is a Checksum
// error; any truncation during decoding is an IO error.
func DeserializeParseResult(data []byte) (*verilog.ParseResult, error) {
	if len(data) < len(blobMagic) || string(data[:len(blobMagic)]) != string(blobMagic) {
		return nil, errors.New(errors.Checksum, "invalid cache magic bytes")
	}

	d := &decoder{data: data, off: len(blobMagic)}
	truncated := func(what string) error {
		return errors.Newf(errors.IO, "corrupted cache: truncated %s", what)
	}

	pr := &verilog.ParseResult{}

	numUnits, ok := d.varint()
	if !ok {
		return nil, truncated("unit count")
	}

	for ui := uint64(0); ui < numUnits; ui++ {
		var u verilog.DesignUnit

		kind, ok := d.byteVal()
		if !ok {
			return nil, truncated("unit kind")
		}
		u.Kind = verilog.DesignUnitKind(kind)

		var ok1, ok2, ok3, ok4, ok5 bool
		u.Name, ok1 = d.str()
		u.StartLine, ok2 = d.int()
		u.EndLine, ok3 = d.int()
		u.Depth, ok4 = d.int()
		u.HasDefparam, ok5 = d.bool()
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			return nil, truncated("unit header")
		}

		n, ok := d.varint()
		if !ok {
			return nil, truncated("port count")
		}
		for i := uint64(0); i < n; i++ {
			var p verilog.PortDecl
			var dir byte
			var ok1, ok2, ok3, ok4 bool
			p.Name, ok1 = d.str()
			dir, ok2 = d.byteVal()
			p.TypeText, ok3 = d.str()
			p.Pos, ok4 = d.pos()
			if !ok1 || !ok2 || !ok3 || !ok4 {
				return nil, truncated("port")
			}
			p.Direction = verilog.PortDirection(dir)
			u.Ports = append(u.Ports, p)
		}

		if n, ok = d.varint(); !ok {
			return nil, truncated("param count")
		}
		for i := uint64(0); i < n; i++ {
			var p verilog.ParamDecl
			var ok1, ok2, ok3, ok4 bool
			p.Name, ok1 = d.str()
			p.DefaultText, ok2 = d.str()
			p.IsLocal, ok3 = d.bool()
			p.Pos, ok4 = d.pos()
			if !ok1 || !ok2 || !ok3 || !ok4 {
				return nil, truncated("param")
			}
			u.Params = append(u.Params, p)
		}

		if n, ok = d.varint(); !ok {
			return nil, truncated("instantiation count")
		}
		for i := uint64(0); i < n; i++ {
			var inst verilog.Instantiation
			var ok1, ok2, ok3, ok4 bool
			inst.ModuleName, ok1 = d.str()
			inst.InstanceName, ok2 = d.str()
			inst.IsParameterized, ok3 = d.bool()
			inst.Pos, ok4 = d.pos()
			if !ok1 || !ok2 || !ok3 || !ok4 {
				return nil, truncated("instantiation")
			}
			u.Instantiations = append(u.Instantiations, inst)
		}

		if n, ok = d.varint(); !ok {
			return nil, truncated("import count")
		}
		for i := uint64(0); i < n; i++ {
			var imp verilog.ImportDecl
			var ok1, ok2, ok3, ok4 bool
			imp.PackageName, ok1 = d.str()
			imp.Symbol, ok2 = d.str()
			imp.IsWildcard, ok3 = d.bool()
			imp.Pos, ok4 = d.pos()
			if !ok1 || !ok2 || !ok3 || !ok4 {
				return nil, truncated("import")
			}
			u.Imports = append(u.Imports, imp)
		}

		if n, ok = d.varint(); !ok {
			return nil, truncated("always count")
		}
		for i := uint64(0); i < n; i++ {
			var ab verilog.AlwaysBlock
			kind, ok1 := d.byteVal()
			label, ok2 := d.str()
			if !ok1 || !ok2 {
				return nil, truncated("always block")
			}
			ab.Kind = verilog.AlwaysKind(kind)
			ab.Label = label

			na, ok := d.varint()
			if !ok {
				return nil, truncated("assignment count")
			}
			for j := uint64(0); j < na; j++ {
				var a verilog.Assignment
				var ok1, ok2, ok3 bool
				a.IsBlocking, ok1 = d.bool()
				a.Target, ok2 = d.str()
				a.Pos, ok3 = d.pos()
				if !ok1 || !ok2 || !ok3 {
					return nil, truncated("assignment")
				}
				ab.Assignments = append(ab.Assignments, a)
			}

			var okPos bool
			ab.Pos, okPos = d.pos()
			if !okPos {
				return nil, truncated("always pos")
			}
			u.AlwaysBlocks = append(u.AlwaysBlocks, ab)
		}

		if n, ok = d.varint(); !ok {
			return nil, truncated("case count")
		}
		for i := uint64(0); i < n; i++ {
			var cs verilog.CaseStatement
			kind, ok1 := d.byteVal()
			var ok2, ok3, ok4, ok5 bool
			cs.HasDefault, ok2 = d.bool()
			cs.IsUnique, ok3 = d.bool()
			cs.IsPriority, ok4 = d.bool()
			cs.Pos, ok5 = d.pos()
			if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
				return nil, truncated("case statement")
			}
			cs.Kind = verilog.CaseKind(kind)
			u.CaseStatements = append(u.CaseStatements, cs)
		}

		if n, ok = d.varint(); !ok {
			return nil, truncated("signal count")
		}
		for i := uint64(0); i < n; i++ {
			var s verilog.SignalDecl
			var ok1, ok2, ok3 bool
			s.Name, ok1 = d.str()
			s.TypeText, ok2 = d.str()
			s.Pos, ok3 = d.pos()
			if !ok1 || !ok2 || !ok3 {
				return nil, truncated("signal")
			}
			u.Signals = append(u.Signals, s)
		}

		if n, ok = d.varint(); !ok {
			return nil, truncated("generate count")
		}
		for i := uint64(0); i < n; i++ {
			var g verilog.GenerateBlock
			var ok1, ok2, ok3 bool
			g.Label, ok1 = d.str()
			g.HasLabel, ok2 = d.bool()
			g.Pos, ok3 = d.pos()
			if !ok1 || !ok2 || !ok3 {
				return nil, truncated("generate block")
			}
			u.GenerateBlocks = append(u.GenerateBlocks, g)
		}

		if n, ok = d.varint(); !ok {
			return nil, truncated("labeled count")
		}
		for i := uint64(0); i < n; i++ {
			var lb verilog.LabeledBlock
			var ok1, ok2, ok3, ok4 bool
			lb.BeginLabel, ok1 = d.str()
			lb.EndLabel, ok2 = d.str()
			lb.LabelsMatch, ok3 = d.bool()
			lb.Pos, ok4 = d.pos()
			if !ok1 || !ok2 || !ok3 || !ok4 {
				return nil, truncated("labeled block")
			}
			u.LabeledBlocks = append(u.LabeledBlocks, lb)
		}

		var okPos bool
		u.Pos, okPos = d.pos()
		if !okPos {
			return nil, truncated("unit pos")
		}

		pr.Units = append(pr.Units, u)
	}

	numDiags, ok := d.varint()
	if !ok {
		return nil, truncated("diagnostic count")
	}
	for i := uint64(0); i < numDiags; i++ {
		var diag verilog.Diagnostic
		var ok1, ok2, ok3, ok4 bool
		diag.Message, ok1 = d.str()
		diag.File, ok2 = d.str()
		diag.Line, ok3 = d.int()
		diag.Col, ok4 = d.int()
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil, truncated("diagnostic")
		}
		pr.Diagnostics = append(pr.Diagnostics, diag)
	}

	return pr, nil
}
