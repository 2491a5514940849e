package emit

import (
	"strings"
	"testing"

	"github.com/go-evm/decomp/internal/ir"
	"github.com/holiman/uint256"
)

func sampleFunction() ir.Function {
	sel := [4]byte{0xde, 0xad, 0xbe, 0xef}
	return ir.Function{
		Selector:   &sel,
		Name:       "transfer",
		Visibility: ir.External,
		Params:     []ir.Param{{Name: "to", Type: ir.SolidityType{Kind: ir.KindAddress}}},
		Returns:    []ir.SolidityType{{Kind: ir.KindBool}},
		Blocks: []*ir.Block{{
			Label: 0,
			Stmts: []ir.Stmt{
				ir.Store{Type: ir.StoreStorage, Addr: ir.Const{Value: uint256.NewInt(0)}, Value: ir.Var{Name: "to"}},
			},
			Terminator: ir.ReturnTerm{Values: []ir.Expr{ir.Const{Value: uint256.NewInt(1)}}},
		}},
	}
}

func TestSolidityHasBannerAndFunctionSignature(t *testing.T) {
	out := Solidity("0.1.0", []ir.Function{sampleFunction()})
	if !strings.Contains(out, "// Decompiled by evmdecomp v0.1.0") {
		t.Fatalf("missing banner:\n%s", out)
	}
	if !strings.Contains(out, "function transfer(address to) external") {
		t.Fatalf("missing function signature:\n%s", out)
	}
	if !strings.Contains(out, "returns (bool)") {
		t.Fatalf("missing returns clause:\n%s", out)
	}
}

func TestSolidityParenthesisesOnlyWhenNecessary(t *testing.T) {
	// (a + b) * c needs parens around the addition; a + b * c does not
	// need parens at all.
	addMul := ir.BinOpExpr{
		Op: ir.Mul,
		X:  ir.BinOpExpr{Op: ir.Add, X: ir.Var{Name: "a"}, Y: ir.Var{Name: "b"}},
		Y:  ir.Var{Name: "c"},
	}
	got := renderExpr(addMul, 0)
	if !strings.Contains(got, "(a + b)") {
		t.Fatalf("expected parens around a+b, got %q", got)
	}

	mulAdd := ir.BinOpExpr{
		Op: ir.Add,
		X:  ir.Var{Name: "a"},
		Y:  ir.BinOpExpr{Op: ir.Mul, X: ir.Var{Name: "b"}, Y: ir.Var{Name: "c"}},
	}
	got2 := renderExpr(mulAdd, 0)
	if strings.Contains(got2, "(") {
		t.Fatalf("did not expect parens in a + b*c, got %q", got2)
	}
}

func TestYulHasSwitchDispatchAndObjectWrapper(t *testing.T) {
	out := Yul("0.1.0", []ir.Function{sampleFunction()})
	if !strings.Contains(out, `object "Contract" {`) {
		t.Fatalf("missing object wrapper:\n%s", out)
	}
	if !strings.Contains(out, "case 0xdeadbeef {") {
		t.Fatalf("missing selector case:\n%s", out)
	}
	if !strings.Contains(out, "default { revert(0, 0) }") {
		t.Fatalf("missing default revert:\n%s", out)
	}
	if !strings.Contains(out, "sstore(0x0, to)") {
		t.Fatalf("missing sstore:\n%s", out)
	}
}

func TestHexReduceTrimsLeadingZerosKeepsOneDigit(t *testing.T) {
	if got := hexReduce("0x00ff"); got != "0xff" {
		t.Fatalf("hexReduce(0x00ff) = %s, want 0xff", got)
	}
	if got := hexReduce("0x0000"); got != "0x0" {
		t.Fatalf("hexReduce(0x0000) = %s, want 0x0", got)
	}
}
