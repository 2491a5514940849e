package passes

import (
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/go-evm/decomp/internal/ir"
)

// byteMaskPattern recognises a hex string (even length, no 0x prefix) that
// is zero or more "00" bytes followed by a run of one or more "FF" bytes
// to the end: exactly the shape of an AND mask that keeps only the low k
// bytes of its operand. The lookaround-capable regexp2 engine is used here
// (rather than stdlib regexp) to express the anchored byte-pair grouping
// without resorting to manual string scanning.
var byteMaskPattern = regexp2.MustCompile(`^(?:00)*((?:FF){1,32})$`, regexp2.None)

// BitmaskToCast rewrites `x & mask` into a narrowing Cast when mask keeps
// exactly the low k bytes of its operand, recognising both uint{8k} masks
// and the 20-byte address mask.
func BitmaskToCast(f ir.Function) ir.Function {
	return mapFunctionExprs(f, castExpr)
}

func castExpr(e ir.Expr) ir.Expr {
	bin, ok := e.(ir.BinOpExpr)
	if !ok || bin.Op != ir.And {
		return e
	}
	mask, x, ok := splitMask(bin)
	if !ok {
		return e
	}
	k, ok := maskByteWidth(mask)
	if !ok {
		return e
	}
	return ir.Cast{Type: castType(k), X: x}
}

func splitMask(bin ir.BinOpExpr) (mask ir.Const, x ir.Expr, ok bool) {
	if c, isConst := bin.X.(ir.Const); isConst && c.Value != nil {
		return c, bin.Y, true
	}
	if c, isConst := bin.Y.(ir.Const); isConst && c.Value != nil {
		return c, bin.X, true
	}
	return ir.Const{}, nil, false
}

func maskByteWidth(mask ir.Const) (int, bool) {
	hex := strings.ToUpper(strings.TrimPrefix(mask.Value.Hex(), "0x"))
	if hex == "" {
		return 0, false
	}
	if len(hex)%2 != 0 {
		hex = "0" + hex
	}
	m, err := byteMaskPattern.FindStringMatch(hex)
	if err != nil || m == nil {
		return 0, false
	}
	group := m.GroupByNumber(1)
	if group == nil || len(group.Captures) == 0 {
		return 0, false
	}
	return len(group.String()) / 2, true
}

func castType(k int) ir.SolidityType {
	if k == 20 {
		return ir.SolidityType{Kind: ir.KindAddress}
	}
	return ir.SolidityType{Kind: ir.KindUint, Bits: k * 8}
}
