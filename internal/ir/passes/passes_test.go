package passes

import (
	"testing"

	"github.com/go-evm/decomp/internal/ir"
	"github.com/holiman/uint256"
)

func constE(v uint64) ir.Expr { return ir.Const{Value: uint256.NewInt(v)} }

func TestConstantFoldEvaluatesBinOp(t *testing.T) {
	f := ir.Function{Blocks: []*ir.Block{{
		Label: 0,
		Stmts: []ir.Stmt{ir.Assign{Name: "x", Value: ir.BinOpExpr{Op: ir.Add, X: constE(2), Y: constE(3)}}},
	}}}
	out := ConstantFold(f)
	a := out.Blocks[0].Stmts[0].(ir.Assign)
	c, ok := a.Value.(ir.Const)
	if !ok || c.Value.Uint64() != 5 {
		t.Fatalf("got %#v, want Const(5)", a.Value)
	}
}

func TestConstantFoldDivByZeroIsZero(t *testing.T) {
	expr := ir.BinOpExpr{Op: ir.Div, X: constE(9), Y: constE(0)}
	got := foldExpr(expr).(ir.Const)
	if !got.Value.IsZero() {
		t.Fatalf("div by zero folded to %v, want 0", got.Value)
	}
}

func TestAlgebraicSimplifyDropsIdentities(t *testing.T) {
	cases := []struct {
		name    string
		in      ir.Expr
		wantVar string
		wantZero bool
	}{
		{name: "x+0", in: ir.BinOpExpr{Op: ir.Add, X: ir.Var{Name: "x"}, Y: constE(0)}, wantVar: "x"},
		{name: "x*1", in: ir.BinOpExpr{Op: ir.Mul, X: ir.Var{Name: "x"}, Y: constE(1)}, wantVar: "x"},
		{name: "x*0", in: ir.BinOpExpr{Op: ir.Mul, X: ir.Var{Name: "x"}, Y: constE(0)}, wantZero: true},
		{name: "x-0", in: ir.BinOpExpr{Op: ir.Sub, X: ir.Var{Name: "x"}, Y: constE(0)}, wantVar: "x"},
		{name: "x/1", in: ir.BinOpExpr{Op: ir.Div, X: ir.Var{Name: "x"}, Y: constE(1)}, wantVar: "x"},
		{
			name:    "!!x",
			in:      ir.UnOpExpr{Op: ir.IsZero, X: ir.UnOpExpr{Op: ir.IsZero, X: ir.Var{Name: "x"}}},
			wantVar: "x",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := simplifyExpr(c.in)
			switch {
			case c.wantZero:
				cst, ok := got.(ir.Const)
				if !ok || !cst.Value.IsZero() {
					t.Fatalf("simplify(%s) = %#v, want zero Const", c.name, got)
				}
			default:
				v, ok := got.(ir.Var)
				if !ok || v.Name != c.wantVar {
					t.Fatalf("simplify(%s) = %#v, want Var(%s)", c.name, got, c.wantVar)
				}
			}
		})
	}
}

func TestBitmaskToCastRecognisesByteWidth(t *testing.T) {
	mask := ir.Const{Value: uint256.NewInt(0xffff)} // 2-byte mask
	expr := ir.BinOpExpr{Op: ir.And, X: ir.Var{Name: "x"}, Y: mask}
	got := castExpr(expr)
	cast, ok := got.(ir.Cast)
	if !ok {
		t.Fatalf("got %#v, want Cast", got)
	}
	if cast.Type.Kind != ir.KindUint || cast.Type.Bits != 16 {
		t.Fatalf("cast type = %#v, want uint16", cast.Type)
	}
}

func TestBitmaskToCastRecognisesAddressMask(t *testing.T) {
	addrMask := new(uint256.Int)
	addrMask.Lsh(uint256.NewInt(1), 160)
	addrMask.Sub(addrMask, uint256.NewInt(1))
	expr := ir.BinOpExpr{Op: ir.And, X: ir.Const{Value: addrMask}, Y: ir.Var{Name: "x"}}
	got := castExpr(expr).(ir.Cast)
	if got.Type.Kind != ir.KindAddress {
		t.Fatalf("cast type = %#v, want address", got.Type)
	}
}

func TestBitmaskToCastIgnoresNonMasks(t *testing.T) {
	expr := ir.BinOpExpr{Op: ir.And, X: ir.Var{Name: "x"}, Y: constE(0x0f0f)}
	got := castExpr(expr)
	if _, ok := got.(ir.Cast); ok {
		t.Fatalf("0x0f0f is not a byte mask, should not cast: %#v", got)
	}
}

func TestStrengthReduceMulAndDivByPowerOfTwo(t *testing.T) {
	mul := reduceExpr(ir.BinOpExpr{Op: ir.Mul, X: ir.Var{Name: "x"}, Y: constE(8)}).(ir.BinOpExpr)
	if mul.Op != ir.Shl {
		t.Fatalf("mul by 8 did not reduce to Shl: %#v", mul)
	}
	div := reduceExpr(ir.BinOpExpr{Op: ir.Div, X: ir.Var{Name: "x"}, Y: constE(4)}).(ir.BinOpExpr)
	if div.Op != ir.Shr {
		t.Fatalf("div by 4 did not reduce to Shr: %#v", div)
	}
}

func TestDeadCodeEliminateDropsUnusedPureAssign(t *testing.T) {
	f := ir.Function{Blocks: []*ir.Block{{
		Label: 0,
		Stmts: []ir.Stmt{
			ir.Assign{Name: "unused", Value: constE(1)},
			ir.Assign{Name: "used", Value: constE(2)},
		},
		Terminator: ir.ReturnTerm{Values: []ir.Expr{ir.Var{Name: "used"}}},
	}}}
	out := DeadCodeEliminate(f)
	if len(out.Blocks[0].Stmts) != 1 {
		t.Fatalf("stmts = %d, want 1 (unused dropped): %#v", len(out.Blocks[0].Stmts), out.Blocks[0].Stmts)
	}
}

func TestDeadCodeEliminateKeepsCallEvenWhenUnused(t *testing.T) {
	f := ir.Function{Blocks: []*ir.Block{{
		Label:      0,
		Stmts:      []ir.Stmt{ir.Assign{Name: "r", Value: ir.Call{Type: ir.CallTypeCall}}},
		Terminator: ir.StopTerm{},
	}}}
	out := DeadCodeEliminate(f)
	if len(out.Blocks[0].Stmts) != 1 {
		t.Fatalf("call-producing assign should survive DCE even unused, got %#v", out.Blocks[0].Stmts)
	}
}

func TestCommonSubexpressionEliminateHoistsRepeatedExpr(t *testing.T) {
	dup := ir.BinOpExpr{Op: ir.Add, X: ir.Var{Name: "a"}, Y: ir.Var{Name: "b"}}
	f := ir.Function{Blocks: []*ir.Block{{
		Label: 0,
		Stmts: []ir.Stmt{
			ir.Assign{Name: "x", Value: dup},
			ir.Assign{Name: "y", Value: dup},
		},
	}}}
	out := CommonSubexpressionEliminate(f)
	yAssign := out.Blocks[0].Stmts[len(out.Blocks[0].Stmts)-1].(ir.Assign)
	if yAssign.Name != "y" {
		t.Fatalf("expected last stmt to still assign y, got %#v", yAssign)
	}
	if _, ok := yAssign.Value.(ir.Var); !ok {
		t.Fatalf("second occurrence should reference hoisted var, got %#v", yAssign.Value)
	}
}

func TestCopyPropagateInlinesSimpleAlias(t *testing.T) {
	f := ir.Function{Blocks: []*ir.Block{{
		Label: 0,
		Stmts: []ir.Stmt{
			ir.Assign{Name: "x", Value: constE(7)},
		},
		Terminator: ir.ReturnTerm{Values: []ir.Expr{ir.Var{Name: "x"}}},
	}}}
	out := CopyPropagate(f)
	term := out.Blocks[0].Terminator.(ir.ReturnTerm)
	c, ok := term.Values[0].(ir.Const)
	if !ok || c.Value.Uint64() != 7 {
		t.Fatalf("return value = %#v, want Const(7)", term.Values[0])
	}
}

func TestRecoverControlFlowLiftsIfGuard(t *testing.T) {
	cond := ir.Var{Name: "cond"}
	f := ir.Function{Blocks: []*ir.Block{
		{
			Label:      0,
			Terminator: ir.ConditionalJumpTerm{Cond: cond, Target: 2, Fallthrough: 1},
		},
		{
			Label:      1,
			Stmts:      []ir.Stmt{ir.Log{Topics: 0}},
			Terminator: ir.JumpTerm{Target: 2},
		},
		{
			Label:      2,
			Terminator: ir.StopTerm{},
		},
	}}
	out := RecoverControlFlow(f)
	if len(out.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2 (fallthrough block folded into the If)", len(out.Blocks))
	}
	ifStmt, ok := out.Blocks[0].Stmts[len(out.Blocks[0].Stmts)-1].(ir.If)
	if !ok {
		t.Fatalf("expected trailing If statement, got %#v", out.Blocks[0].Stmts)
	}
	if ifStmt.Else != nil {
		t.Fatalf("expected no Else branch, got %#v", ifStmt.Else)
	}
}

func TestRecoverControlFlowLiftsSelfLoop(t *testing.T) {
	cond := ir.Var{Name: "cond"}
	f := ir.Function{Blocks: []*ir.Block{{
		Label:      5,
		Stmts:      []ir.Stmt{ir.Log{Topics: 0}},
		Terminator: ir.ConditionalJumpTerm{Cond: cond, Target: 5, Fallthrough: 9},
	}}}
	out := RecoverControlFlow(f)
	loop, ok := out.Blocks[0].Stmts[0].(ir.While)
	if !ok {
		t.Fatalf("expected While, got %#v", out.Blocks[0].Stmts)
	}
	if loop.Cond != ir.Expr(cond) {
		t.Fatalf("loop cond = %#v, want %#v", loop.Cond, cond)
	}
}

func TestInferTypesDefaultsToBytes32(t *testing.T) {
	f := ir.Function{Returns: []ir.SolidityType{{}}}
	out := InferTypes(f)
	if out.Returns[0].Kind != ir.KindBytesN || out.Returns[0].Bits != 32 {
		t.Fatalf("return type = %#v, want bytes32", out.Returns[0])
	}
}

func TestInferTypesNarrowsCalldataParamFromCast(t *testing.T) {
	load := ir.Load{Type: ir.LoadCalldata, Addr: constE(4)}
	cast := ir.Cast{Type: ir.SolidityType{Kind: ir.KindUint, Bits: 8}, X: load}
	f := ir.Function{
		Params: []ir.Param{{Name: "p0"}},
		Blocks: []*ir.Block{{Label: 0, Terminator: ir.ReturnTerm{Values: []ir.Expr{cast}}}},
	}
	out := InferTypes(f)
	if out.Params[0].Type.Bits != 8 {
		t.Fatalf("param type = %#v, want uint8", out.Params[0].Type)
	}
}

func TestRunPipelineIsIdempotent(t *testing.T) {
	f := ir.Function{Blocks: []*ir.Block{{
		Label: 0,
		Stmts: []ir.Stmt{
			ir.Assign{Name: "x", Value: ir.BinOpExpr{Op: ir.Mul, X: constE(3), Y: constE(4)}},
		},
		Terminator: ir.ReturnTerm{Values: []ir.Expr{ir.Var{Name: "x"}}},
	}}}
	once := Run(f)
	twice := Run(once)
	if len(once.Blocks[0].Stmts) != len(twice.Blocks[0].Stmts) {
		t.Fatalf("pipeline not idempotent: once=%#v twice=%#v", once.Blocks[0].Stmts, twice.Blocks[0].Stmts)
	}
}
