package passes

import (
	"github.com/go-evm/decomp/internal/ir"
	"github.com/holiman/uint256"
)

// StrengthReduce rewrites multiplication/division by a power of two into
// the equivalent shift.
func StrengthReduce(f ir.Function) ir.Function {
	return mapFunctionExprs(f, reduceExpr)
}

func reduceExpr(e ir.Expr) ir.Expr {
	bin, ok := e.(ir.BinOpExpr)
	if !ok {
		return e
	}
	switch bin.Op {
	case ir.Mul:
		if k, ok := powerOfTwo(bin.Y); ok {
			return ir.BinOpExpr{Op: ir.Shl, X: constUint(k), Y: bin.X}
		}
		if k, ok := powerOfTwo(bin.X); ok {
			return ir.BinOpExpr{Op: ir.Shl, X: constUint(k), Y: bin.Y}
		}
	case ir.Div:
		if k, ok := powerOfTwo(bin.Y); ok {
			return ir.BinOpExpr{Op: ir.Shr, X: constUint(k), Y: bin.X}
		}
	}
	return e
}

// powerOfTwo reports whether e is a constant 2^k for some k >= 1 (k=0, the
// constant 1, is left for algebraic simplification to drop entirely).
func powerOfTwo(e ir.Expr) (uint64, bool) {
	c, ok := e.(ir.Const)
	if !ok || c.Value == nil || c.Value.IsZero() {
		return 0, false
	}
	bit := c.Value.BitLen() - 1
	if bit <= 0 {
		return 0, false
	}
	candidate := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bit))
	if !candidate.Eq(c.Value) {
		return 0, false
	}
	return uint64(bit), true
}

func constUint(k uint64) ir.Expr {
	return ir.Const{Value: uint256.NewInt(k)}
}
