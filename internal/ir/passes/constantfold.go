package passes

import (
	"github.com/go-evm/decomp/internal/ir"
	"github.com/holiman/uint256"
)

// ConstantFold evaluates pure binary/unary operations whose operands are
// both constant leaves, folding the node into a Const. Division and
// modulo by zero fold to zero, matching EVM semantics rather than Go's.
func ConstantFold(f ir.Function) ir.Function {
	return mapFunctionExprs(f, foldExpr)
}

func foldExpr(e ir.Expr) ir.Expr {
	switch v := e.(type) {
	case ir.BinOpExpr:
		x, xok := v.X.(ir.Const)
		y, yok := v.Y.(ir.Const)
		if !xok || !yok || x.Value == nil || y.Value == nil {
			return v
		}
		if result, ok := evalBinOp(v.Op, x.Value, y.Value); ok {
			return ir.Const{Value: result}
		}
		return v
	case ir.UnOpExpr:
		x, ok := v.X.(ir.Const)
		if !ok || x.Value == nil {
			return v
		}
		return ir.Const{Value: evalUnOp(v.Op, x.Value)}
	default:
		return e
	}
}

func boolConst(b bool) *uint256.Int {
	if b {
		return uint256.NewInt(1)
	}
	return new(uint256.Int)
}

func evalBinOp(op ir.BinOp, a, b *uint256.Int) (*uint256.Int, bool) {
	r := new(uint256.Int)
	switch op {
	case ir.Add:
		r.Add(a, b)
	case ir.Sub:
		r.Sub(a, b)
	case ir.Mul:
		r.Mul(a, b)
	case ir.Div:
		if b.IsZero() {
			return new(uint256.Int), true
		}
		r.Div(a, b)
	case ir.Mod:
		if b.IsZero() {
			return new(uint256.Int), true
		}
		r.Mod(a, b)
	case ir.Exp:
		r.Exp(a, b)
	case ir.And:
		r.And(a, b)
	case ir.Or:
		r.Or(a, b)
	case ir.Xor:
		r.Xor(a, b)
	case ir.Shl:
		if a.LtUint64(256) {
			r.Lsh(b, uint(a.Uint64()))
		}
	case ir.Shr:
		if a.LtUint64(256) {
			r.Rsh(b, uint(a.Uint64()))
		}
	case ir.Sar:
		shift := uint(256)
		if a.LtUint64(256) {
			shift = uint(a.Uint64())
		}
		r.SRsh(b, shift)
	case ir.Eq:
		return boolConst(a.Eq(b)), true
	case ir.Ne:
		return boolConst(!a.Eq(b)), true
	case ir.Lt:
		return boolConst(a.Lt(b)), true
	case ir.Le:
		return boolConst(!b.Lt(a)), true
	case ir.Gt:
		return boolConst(a.Gt(b)), true
	case ir.Ge:
		return boolConst(!a.Lt(b)), true
	case ir.Slt:
		return boolConst(a.Slt(b)), true
	case ir.Sle:
		return boolConst(!b.Slt(a)), true
	case ir.Sgt:
		return boolConst(a.Sgt(b)), true
	case ir.Sge:
		return boolConst(!a.Slt(b)), true
	default:
		return nil, false
	}
	return r, true
}

func evalUnOp(op ir.UnOp, x *uint256.Int) *uint256.Int {
	switch op {
	case ir.Not:
		return new(uint256.Int).Not(x)
	case ir.IsZero:
		return boolConst(x.IsZero())
	case ir.Neg:
		return new(uint256.Int).Sub(new(uint256.Int), x)
	default:
		return x.Clone()
	}
}
