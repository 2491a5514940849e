package passes

import (
	"github.com/go-evm/decomp/internal/ir"
	"github.com/holiman/uint256"
)

// AlgebraicSimplify applies the identity rewrites named in the design:
// x+0, x*1, x*0, x-0, x/1, and double-negation.
func AlgebraicSimplify(f ir.Function) ir.Function {
	return mapFunctionExprs(f, simplifyExpr)
}

func simplifyExpr(e ir.Expr) ir.Expr {
	switch v := e.(type) {
	case ir.BinOpExpr:
		switch v.Op {
		case ir.Add:
			if isZeroConst(v.Y) {
				return v.X
			}
			if isZeroConst(v.X) {
				return v.Y
			}
		case ir.Sub:
			if isZeroConst(v.Y) {
				return v.X
			}
		case ir.Mul:
			if isZeroConst(v.X) || isZeroConst(v.Y) {
				return ir.Const{Value: zeroValue()}
			}
			if isOneConst(v.Y) {
				return v.X
			}
			if isOneConst(v.X) {
				return v.Y
			}
		case ir.Div:
			if isOneConst(v.Y) {
				return v.X
			}
		}
		return v
	case ir.UnOpExpr:
		if v.Op == ir.IsZero {
			if inner, ok := v.X.(ir.UnOpExpr); ok && inner.Op == ir.IsZero {
				return inner.X
			}
		}
		return v
	default:
		return e
	}
}

func zeroValue() *uint256.Int { return new(uint256.Int) }

func isZeroConst(e ir.Expr) bool {
	c, ok := e.(ir.Const)
	return ok && c.Value != nil && c.Value.IsZero()
}

func isOneConst(e ir.Expr) bool {
	c, ok := e.(ir.Const)
	return ok && c.Value != nil && c.Value.IsUint64() && c.Value.Uint64() == 1
}
