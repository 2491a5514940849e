package passes

import "github.com/go-evm/decomp/internal/ir"

// RecoverControlFlow lifts the two EVM control-flow idioms compilers emit
// most often back into structured statements:
//
//   - a conditional-jump "guard" whose not-taken side is a single block
//     that unconditionally jumps to the same label the taken side jumps
//     to directly, recovered as an If with no Else;
//   - a conditional jump back to a block's own label, recovered as a
//     While wrapping that block's straight-line body.
//
// Anything beyond these two shapes (general multi-block regions, nested
// loops spanning several blocks) is left as flat blocks connected by
// Jump/ConditionalJump statements; the emitters render those as labelled
// blocks rather than failing.
func RecoverControlFlow(f ir.Function) ir.Function {
	byLabel := make(map[ir.Label]*ir.Block, len(f.Blocks))
	for _, b := range f.Blocks {
		byLabel[b.Label] = b
	}

	consumed := make(map[ir.Label]bool)
	var out []*ir.Block
	for _, b := range f.Blocks {
		if consumed[b.Label] {
			continue
		}
		out = append(out, recoverBlock(b, byLabel, consumed))
	}
	f.Blocks = out
	return f
}

func recoverBlock(b *ir.Block, byLabel map[ir.Label]*ir.Block, consumed map[ir.Label]bool) *ir.Block {
	cj, ok := b.Terminator.(ir.ConditionalJumpTerm)
	if !ok {
		return b
	}

	// Self-loop: the taken branch jumps back to this very block.
	if cj.Target == b.Label {
		nb := &ir.Block{Label: b.Label}
		nb.Stmts = append(nb.Stmts, ir.While{
			Cond: cj.Cond,
			Body: &ir.Block{Stmts: b.Stmts},
		})
		nb.Terminator = ir.JumpTerm{Target: cj.Fallthrough}
		return nb
	}

	// If-guard: the not-taken side is exactly one block that falls
	// straight through to the same label the taken side jumps to.
	fallthroughBlock, ok := byLabel[cj.Fallthrough]
	if !ok || consumed[cj.Fallthrough] {
		return b
	}
	jt, ok := fallthroughBlock.Terminator.(ir.JumpTerm)
	if !ok || jt.Target != cj.Target {
		return b
	}

	consumed[cj.Fallthrough] = true
	nb := &ir.Block{Label: b.Label}
	nb.Stmts = append(nb.Stmts, b.Stmts...)
	nb.Stmts = append(nb.Stmts, ir.If{
		Cond: ir.UnOpExpr{Op: ir.IsZero, X: cj.Cond},
		Then: &ir.Block{Stmts: fallthroughBlock.Stmts},
	})
	nb.Terminator = ir.JumpTerm{Target: cj.Target}
	return nb
}
