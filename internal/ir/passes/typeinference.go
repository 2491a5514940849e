package passes

import "github.com/go-evm/decomp/internal/ir"

// InferTypes propagates the casts surfaced by the bitmask-to-cast pass
// into parameter type hints, and defaults every parameter and return type
// that is still unset to bytes32. Return types are never narrowed from
// casts. It does not rewrite expressions; it only fills in
// Function.Params/Returns.
func InferTypes(f ir.Function) ir.Function {
	calldataBits := calldataLoadCastWidths(f)

	for i := range f.Params {
		if t, ok := calldataBits[i]; ok {
			f.Params[i].Type = t
		} else if f.Params[i].Type == (ir.SolidityType{}) {
			f.Params[i].Type = bytes32Type()
		}
	}
	for i := range f.Returns {
		if f.Returns[i] == (ir.SolidityType{}) {
			f.Returns[i] = bytes32Type()
		}
	}
	return f
}

func bytes32Type() ir.SolidityType {
	return ir.SolidityType{Kind: ir.KindBytesN, Bits: 32}
}

// calldataLoadCastWidths maps a calldata parameter's argument index (its
// 32-byte slot offset, 0-based after the 4-byte selector) to the
// narrowest Cast type ever applied to a Load of that slot.
func calldataLoadCastWidths(f ir.Function) map[int]ir.SolidityType {
	widths := make(map[int]ir.SolidityType)
	walkExprs(f, func(e ir.Expr) {
		cast, ok := e.(ir.Cast)
		if !ok {
			return
		}
		load, ok := cast.X.(ir.Load)
		if !ok || load.Type != ir.LoadCalldata {
			return
		}
		offset, ok := calldataSlotIndex(load.Addr)
		if !ok {
			return
		}
		if existing, has := widths[offset]; !has || narrower(cast.Type, existing) {
			widths[offset] = cast.Type
		}
	})
	return widths
}

func calldataSlotIndex(e ir.Expr) (int, bool) {
	c, ok := e.(ir.Const)
	if !ok || c.Value == nil || !c.Value.IsUint64() {
		return 0, false
	}
	off := c.Value.Uint64()
	if off < 4 || (off-4)%32 != 0 {
		return 0, false
	}
	return int((off - 4) / 32), true
}

func narrower(a, b ir.SolidityType) bool {
	return a.Bits != 0 && (b.Bits == 0 || a.Bits < b.Bits)
}
