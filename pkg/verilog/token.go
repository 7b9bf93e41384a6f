package verilog

// TokenType enumerates lexer token kinds. The `<=` lexeme is emitted as a
// single LessEq token; the parser reclassifies it as a non-blocking
// assignment in statement position.
type TokenType int

const (
	// Literals
	TokIdentifier TokenType = iota
	TokEscapedIdentifier
	TokNumber
	TokString
	TokDirective // `define, `include, `ifdef, ...

	// Verilog-2001 keywords
	TokKwModule
	TokKwEndmodule
	TokKwInput
	TokKwOutput
	TokKwInout
	TokKwWire
	TokKwReg
	TokKwParameter
	TokKwLocalparam
	TokKwAssign
	TokKwAlways
	TokKwInitial
	TokKwBegin
	TokKwEnd
	TokKwIf
	TokKwElse
	TokKwCase
	TokKwCasex
	TokKwCasez
	TokKwEndcase
	TokKwFor
	TokKwWhile
	TokKwGenerate
	TokKwEndgenerate
	TokKwFunction
	TokKwEndfunction
	TokKwTask
	TokKwEndtask
	TokKwDefparam
	TokKwDefault
	TokKwPosedge
	TokKwNegedge
	TokKwOr
	TokKwAnd
	TokKwNot
	TokKwSupply0
	TokKwSupply1
	TokKwInteger
	TokKwReal
	TokKwTime
	TokKwGenvar

	// SystemVerilog keywords
	TokKwLogic
	TokKwBit
	TokKwByte
	TokKwShortint
	TokKwInt
	TokKwLongint
	TokKwInterface
	TokKwEndinterface
	TokKwPackage
	TokKwEndpackage
	TokKwClass
	TokKwEndclass
	TokKwImport
	TokKwExport
	TokKwTypedef
	TokKwEnum
	TokKwStruct
	TokKwUnion
	TokKwVirtual
	TokKwExtends
	TokKwImplements
	TokKwModport
	TokKwClocking
	TokKwEndclocking
	TokKwProperty
	TokKwEndproperty
	TokKwSequence
	TokKwEndsequence
	TokKwAssert
	TokKwAssume
	TokKwCover
	TokKwConstraint
	TokKwRand
	TokKwRandc
	TokKwUnique
	TokKwPriority
	TokKwAlwaysComb
	TokKwAlwaysFf
	TokKwAlwaysLatch
	TokKwForeach
	TokKwReturn
	TokKwVoid
	TokKwAutomatic
	TokKwStatic
	TokKwConst
	TokKwRef
	TokKwProgram
	TokKwEndprogram

	// Operators and punctuation
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokLBrace
	TokRBrace
	TokSemicolon
	TokColon
	TokComma
	TokDot
	TokHash
	TokAt
	TokAssign // =
	TokLessEq // <= (non-blocking assignment or comparison)
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokPercent
	TokAmpersand
	TokPipe
	TokCaret
	TokTilde
	TokBang
	TokQuestion
	TokDoubleColon
	TokArrow   // ->
	TokFatArrow // =>
	TokDoubleEq
	TokNotEq
	TokTripleEq
	TokTripleNotEq
	TokGreaterEq
	TokLess
	TokGreater
	TokLShift
	TokRShift
	TokLogAnd
	TokLogOr
	TokPower

	TokEOF
	TokUnknown
)

// Token is one lexed token with its source text and position.
type Token struct {
	Type TokenType
	Text string
	Pos  SourcePos
}

// keywords maps keyword spellings to their token types.
var keywords = map[string]TokenType{
	"module": TokKwModule, "endmodule": TokKwEndmodule,
	"input": TokKwInput, "output": TokKwOutput, "inout": TokKwInout,
	"wire": TokKwWire, "reg": TokKwReg,
	"parameter": TokKwParameter, "localparam": TokKwLocalparam,
	"assign": TokKwAssign, "always": TokKwAlways, "initial": TokKwInitial,
	"begin": TokKwBegin, "end": TokKwEnd,
	"if": TokKwIf, "else": TokKwElse,
	"case": TokKwCase, "casex": TokKwCasex, "casez": TokKwCasez, "endcase": TokKwEndcase,
	"for": TokKwFor, "while": TokKwWhile,
	"generate": TokKwGenerate, "endgenerate": TokKwEndgenerate,
	"function": TokKwFunction, "endfunction": TokKwEndfunction,
	"task": TokKwTask, "endtask": TokKwEndtask,
	"defparam": TokKwDefparam, "default": TokKwDefault,
	"posedge": TokKwPosedge, "negedge": TokKwNegedge,
	"or": TokKwOr, "and": TokKwAnd, "not": TokKwNot,
	"supply0": TokKwSupply0, "supply1": TokKwSupply1,
	"integer": TokKwInteger, "real": TokKwReal, "time": TokKwTime, "genvar": TokKwGenvar,
	"logic": TokKwLogic, "bit": TokKwBit, "byte": TokKwByte,
	"shortint": TokKwShortint, "int": TokKwInt, "longint": TokKwLongint,
	"interface": TokKwInterface, "endinterface": TokKwEndinterface,
	"package": TokKwPackage, "endpackage": TokKwEndpackage,
	"class": TokKwClass, "endclass": TokKwEndclass,
	"import": TokKwImport, "export": TokKwExport,
	"typedef": TokKwTypedef, "enum": TokKwEnum, "struct": TokKwStruct, "union": TokKwUnion,
	"virtual": TokKwVirtual, "extends": TokKwExtends, "implements": TokKwImplements,
	"modport": TokKwModport, "clocking": TokKwClocking, "endclocking": TokKwEndclocking,
	"property": TokKwProperty, "endproperty": TokKwEndproperty,
	"sequence": TokKwSequence, "endsequence": TokKwEndsequence,
	"assert": TokKwAssert, "assume": TokKwAssume, "cover": TokKwCover,
	"constraint": TokKwConstraint, "rand": TokKwRand, "randc": TokKwRandc,
	"unique": TokKwUnique, "priority": TokKwPriority,
	"always_comb": TokKwAlwaysComb, "always_ff": TokKwAlwaysFf, "always_latch": TokKwAlwaysLatch,
	"foreach": TokKwForeach, "return": TokKwReturn, "void": TokKwVoid,
	"automatic": TokKwAutomatic, "static": TokKwStatic, "const": TokKwConst, "ref": TokKwRef,
	"program": TokKwProgram, "endprogram": TokKwEndprogram,
}
