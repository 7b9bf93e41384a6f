package verilog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) DesignUnit {
	t.Helper()
	result := Parse(src, "test.sv")
	require.Len(t, result.Units, 1, "diagnostics: %v", result.Diagnostics)
	return result.Units[0]
}

func TestParseSimpleModule(t *testing.T) {
	unit := parseOne(t, `
module counter (
  input  wire       clk,
  input  wire       rst_n,
  output reg [7:0]  count
);
endmodule : counter
`)
	assert.Equal(t, KindModule, unit.Kind)
	assert.Equal(t, "counter", unit.Name)
	assert.Equal(t, 0, unit.Depth)
	assert.Equal(t, 2, unit.StartLine)
	assert.Equal(t, 7, unit.EndLine)

	require.Len(t, unit.Ports, 3)
	assert.Equal(t, "clk", unit.Ports[0].Name)
	assert.Equal(t, DirInput, unit.Ports[0].Direction)
	assert.Equal(t, "wire", unit.Ports[0].TypeText)
	assert.Equal(t, "count", unit.Ports[2].Name)
	assert.Equal(t, DirOutput, unit.Ports[2].Direction)
	assert.Contains(t, unit.Ports[2].TypeText, "[7:0]")
}

func TestParsePortsSharedDirection(t *testing.T) {
	unit := parseOne(t, "module m (input logic a, b, output logic c); endmodule")
	require.Len(t, unit.Ports, 3)
	assert.Equal(t, DirInput, unit.Ports[0].Direction)
	assert.Equal(t, DirInput, unit.Ports[1].Direction)
	assert.Equal(t, "b", unit.Ports[1].Name)
	assert.Equal(t, DirOutput, unit.Ports[2].Direction)
}

func TestParseParameters(t *testing.T) {
	unit := parseOne(t, `
module fifo #(
  parameter WIDTH = 8,
  parameter DEPTH = 16,
  localparam ADDR_W = 4
) (input wire clk);
  localparam FULL = DEPTH - 1;
endmodule
`)
	require.Len(t, unit.Params, 4)
	assert.Equal(t, "WIDTH", unit.Params[0].Name)
	assert.Equal(t, "8", unit.Params[0].DefaultText)
	assert.False(t, unit.Params[0].IsLocal)
	assert.True(t, unit.Params[2].IsLocal)
	assert.Equal(t, "FULL", unit.Params[3].Name)
	assert.True(t, unit.Params[3].IsLocal)
	assert.Equal(t, "DEPTH - 1", unit.Params[3].DefaultText)
}

func TestParseInstantiations(t *testing.T) {
	unit := parseOne(t, `
module top (input wire clk);
  fifo u_fifo (.clk(clk), .data(data));
  fifo #(.WIDTH(16), .DEPTH(32)) u_wide (.clk(clk));
endmodule
`)
	require.Len(t, unit.Instantiations, 2)
	assert.Equal(t, "fifo", unit.Instantiations[0].ModuleName)
	assert.Equal(t, "u_fifo", unit.Instantiations[0].InstanceName)
	assert.False(t, unit.Instantiations[0].IsParameterized)
	assert.Equal(t, "u_wide", unit.Instantiations[1].InstanceName)
	assert.True(t, unit.Instantiations[1].IsParameterized)
}

func TestParseAlwaysBlocks(t *testing.T) {
	unit := parseOne(t, `
module seq (input wire clk, input wire d, output reg q);
  always @(posedge clk) begin
    q <= d;
  end

  always @(*) begin
    a = b;
  end

  always_comb begin : comb_logic
    x = y;
  end

  always_ff @(posedge clk) q2 <= d2;

  always_latch begin
    if (en) l = d;
  end
endmodule
`)
	require.Len(t, unit.AlwaysBlocks, 5)

	assert.Equal(t, AlwaysPlain, unit.AlwaysBlocks[0].Kind)
	require.Len(t, unit.AlwaysBlocks[0].Assignments, 1)
	assert.False(t, unit.AlwaysBlocks[0].Assignments[0].IsBlocking)
	assert.Equal(t, "q", unit.AlwaysBlocks[0].Assignments[0].Target)

	assert.Equal(t, AlwaysStar, unit.AlwaysBlocks[1].Kind)
	require.Len(t, unit.AlwaysBlocks[1].Assignments, 1)
	assert.True(t, unit.AlwaysBlocks[1].Assignments[0].IsBlocking)

	assert.Equal(t, AlwaysComb, unit.AlwaysBlocks[2].Kind)
	assert.Equal(t, "comb_logic", unit.AlwaysBlocks[2].Label)

	assert.Equal(t, AlwaysFf, unit.AlwaysBlocks[3].Kind)
	require.Len(t, unit.AlwaysBlocks[3].Assignments, 1)
	assert.Equal(t, "q2", unit.AlwaysBlocks[3].Assignments[0].Target)

	assert.Equal(t, AlwaysLatch, unit.AlwaysBlocks[4].Kind)
}

func TestParseCaseStatements(t *testing.T) {
	unit := parseOne(t, `
module fsm (input wire [1:0] state);
  always @(*) begin
    case (state)
      2'b00: a = 1;
      default: a = 0;
    endcase
  end

  always @(*) begin
    unique casez (state)
      2'b0?: b = 1;
    endcase
  end
endmodule
`)
	require.Len(t, unit.CaseStatements, 2)
	assert.Equal(t, CaseNormal, unit.CaseStatements[0].Kind)
	assert.True(t, unit.CaseStatements[0].HasDefault)
	assert.False(t, unit.CaseStatements[0].IsUnique)

	assert.Equal(t, CaseZ, unit.CaseStatements[1].Kind)
	assert.True(t, unit.CaseStatements[1].IsUnique)
	assert.False(t, unit.CaseStatements[1].HasDefault)
}

func TestParseSignals(t *testing.T) {
	unit := parseOne(t, `
module sig (input wire clk);
  wire [7:0] bus;
  reg a, b;
  logic [3:0] nibble = 4'h0;
endmodule
`)
	require.Len(t, unit.Signals, 4)
	assert.Equal(t, "bus", unit.Signals[0].Name)
	assert.Contains(t, unit.Signals[0].TypeText, "wire")
	assert.Contains(t, unit.Signals[0].TypeText, "[7:0]")
	assert.Equal(t, "a", unit.Signals[1].Name)
	assert.Equal(t, "b", unit.Signals[2].Name)
	assert.Equal(t, "nibble", unit.Signals[3].Name)
}

func TestParseNonAnsiPorts(t *testing.T) {
	unit := parseOne(t, `
module legacy (clk, rst, q);
  input clk;
  input rst;
  output [7:0] q;
endmodule
`)
	// The header list has no directions; the body declarations carry them.
	dirs := map[string]PortDirection{}
	for _, port := range unit.Ports {
		dirs[port.Name] = port.Direction
	}
	assert.Equal(t, DirInput, dirs["clk"])
	assert.Equal(t, DirInput, dirs["rst"])
	assert.Equal(t, DirOutput, dirs["q"])
}

func TestParseImports(t *testing.T) {
	unit := parseOne(t, `
module imp (input wire clk);
  import axi_pkg::*;
  import math_pkg::clog2;
endmodule
`)
	require.Len(t, unit.Imports, 2)
	assert.Equal(t, "axi_pkg", unit.Imports[0].PackageName)
	assert.True(t, unit.Imports[0].IsWildcard)
	assert.Equal(t, "clog2", unit.Imports[1].Symbol)
	assert.False(t, unit.Imports[1].IsWildcard)
}

func TestParseGenerateAndDefparam(t *testing.T) {
	unit := parseOne(t, `
module gen (input wire clk);
  genvar i;
  generate
    for (i = 0; i < 4; i = i + 1) begin : gen_loop
      buf_cell u_buf (.in(a[i]), .out(b[i]));
    end
  endgenerate
  defparam u_buf.DELAY = 2;
endmodule
`)
	require.Len(t, unit.GenerateBlocks, 1)
	assert.True(t, unit.GenerateBlocks[0].HasLabel)
	assert.Equal(t, "gen_loop", unit.GenerateBlocks[0].Label)
	assert.True(t, unit.HasDefparam)
	// The instantiation inside the generate region is still captured.
	require.Len(t, unit.Instantiations, 1)
	assert.Equal(t, "buf_cell", unit.Instantiations[0].ModuleName)
}

func TestParseLabeledBlocks(t *testing.T) {
	unit := parseOne(t, `
module lb (input wire clk);
  begin : named
  end : named

  begin : first
  end : second
endmodule
`)
	require.Len(t, unit.LabeledBlocks, 2)
	assert.True(t, unit.LabeledBlocks[0].LabelsMatch)
	assert.Equal(t, "named", unit.LabeledBlocks[0].BeginLabel)
	assert.False(t, unit.LabeledBlocks[1].LabelsMatch)
}

func TestParseMultipleUnitsAndKinds(t *testing.T) {
	result := Parse(`
package math_pkg;
endpackage

interface axi_if;
endinterface

module top;
endmodule

class checker_c;
endclass

program tb;
endprogram
`, "multi.sv")
	require.Len(t, result.Units, 5)
	assert.Equal(t, KindPackage, result.Units[0].Kind)
	assert.Equal(t, KindInterface, result.Units[1].Kind)
	assert.Equal(t, KindModule, result.Units[2].Kind)
	assert.Equal(t, KindClass, result.Units[3].Kind)
	assert.Equal(t, KindProgram, result.Units[4].Kind)
}

func TestParseNestedModuleDepth(t *testing.T) {
	result := Parse(`
module outer;
  module inner;
  endmodule
endmodule
`, "nested.sv")
	require.Len(t, result.Units, 2)
	// Nested units complete first.
	assert.Equal(t, "inner", result.Units[0].Name)
	assert.Equal(t, 1, result.Units[0].Depth)
	assert.Equal(t, "outer", result.Units[1].Name)
	assert.Equal(t, 0, result.Units[1].Depth)
}

func TestParseErrorRecovery(t *testing.T) {
	// A garbled module must not take down the file: the parser records a
	// diagnostic and recovers at the next structural keyword.
	result := Parse(`
module 123bad
module good (input wire clk);
endmodule
`, "bad.sv")
	require.NotEmpty(t, result.Diagnostics)
	require.Len(t, result.Units, 1)
	assert.Equal(t, "good", result.Units[0].Name)
}

func TestParseMissingEndmodule(t *testing.T) {
	result := Parse("module unterminated (input wire clk);\n  wire x;\n", "u.sv")
	require.Len(t, result.Units, 1)
	assert.Equal(t, "unterminated", result.Units[0].Name)
	assert.NotEmpty(t, result.Diagnostics)
}
