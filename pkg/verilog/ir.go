// Package verilog contains the hand-written Verilog/SystemVerilog lexer
// and the heuristic structural parser behind Loom's build pipeline.
//
// The parser is not a simulator front-end: it extracts the structural IR
// the build and lint layers need (design units, ports, parameters,
// instantiations, always blocks, case statements) and error-recovers by
// skipping to the next structural keyword instead of failing a file.
package verilog

// SourcePos is a position within a source file.
type SourcePos struct {
	File string
	Line int
	Col  int
}

// DesignUnitKind discriminates the top-level constructs.
type DesignUnitKind int

const (
	KindModule DesignUnitKind = iota
	KindPackage
	KindInterface
	KindClass
	KindProgram
)

func (k DesignUnitKind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindPackage:
		return "package"
	case KindInterface:
		return "interface"
	case KindClass:
		return "class"
	case KindProgram:
		return "program"
	}
	return "unknown"
}

// PortDirection is a port's declared direction.
type PortDirection int

const (
	DirInput PortDirection = iota
	DirOutput
	DirInout
	DirRef
)

// AlwaysKind classifies procedural blocks.
type AlwaysKind int

const (
	AlwaysPlain AlwaysKind = iota // always @(...)
	AlwaysStar                    // always @(*)
	AlwaysComb                    // always_comb
	AlwaysFf                      // always_ff
	AlwaysLatch                   // always_latch
)

// CaseKind discriminates case/casex/casez.
type CaseKind int

const (
	CaseNormal CaseKind = iota
	CaseX
	CaseZ
)

// PortDecl is one declared port. The raw type text is preserved for lint
// rules that inspect it.
type PortDecl struct {
	Name      string
	Direction PortDirection
	TypeText  string // e.g. "wire", "logic [7:0]"
	Pos       SourcePos
}

// ParamDecl is one parameter or localparam.
type ParamDecl struct {
	Name        string
	DefaultText string
	IsLocal     bool
	Pos         SourcePos
}

// Instantiation is one detected module/interface instantiation.
type Instantiation struct {
	ModuleName      string
	InstanceName    string
	IsParameterized bool // instantiated with #(...)
	Pos             SourcePos
}

// Assignment is one procedural assignment inside an always block.
type Assignment struct {
	IsBlocking bool // = vs <=
	Target     string
	Pos        SourcePos
}

// AlwaysBlock is one procedural block with its captured assignments.
type AlwaysBlock struct {
	Kind        AlwaysKind
	Label       string
	Assignments []Assignment
	Pos         SourcePos
}

// CaseStatement records the shape of one case statement.
type CaseStatement struct {
	Kind       CaseKind
	HasDefault bool
	IsUnique   bool
	IsPriority bool
	Pos        SourcePos
}

// SignalDecl is one net or variable declaration.
type SignalDecl struct {
	Name     string
	TypeText string
	Pos      SourcePos
}

// GenerateBlock is one generate region.
type GenerateBlock struct {
	Label    string
	HasLabel bool
	Pos      SourcePos
}

// LabeledBlock is one named begin/end pair with its end-label check.
type LabeledBlock struct {
	BeginLabel  string
	EndLabel    string
	LabelsMatch bool
	Pos         SourcePos
}

// ImportDecl is one package import.
type ImportDecl struct {
	PackageName string
	Symbol      string
	IsWildcard  bool
	Pos         SourcePos
}

// DesignUnit bundles everything extracted from one
// module/package/interface/class/program.
type DesignUnit struct {
	Kind      DesignUnitKind
	Name      string
	StartLine int
	EndLine   int
	Depth     int // nesting depth, 0 for top-level

	Ports          []PortDecl
	Params         []ParamDecl
	Instantiations []Instantiation
	Imports        []ImportDecl
	AlwaysBlocks   []AlwaysBlock
	CaseStatements []CaseStatement
	Signals        []SignalDecl
	GenerateBlocks []GenerateBlock
	LabeledBlocks  []LabeledBlock
	HasDefparam    bool

	Pos SourcePos
}

// Diagnostic is one parse diagnostic.
type Diagnostic struct {
	Message string
	File    string
	Line    int
	Col     int
}

// ParseResult is the parser output for one file.
type ParseResult struct {
	Units       []DesignUnit
	Diagnostics []Diagnostic
}
