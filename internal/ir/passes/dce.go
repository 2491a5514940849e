package passes

import "github.com/go-evm/decomp/internal/ir"

// DeadCodeEliminate drops Assign statements whose name is never read
// anywhere in the function and whose value expression has no side
// effects worth preserving (a bare Call is kept even when unused, since
// dropping it would remove an external interaction).
func DeadCodeEliminate(f ir.Function) ir.Function {
	used := collectVarUses(f)
	f.Blocks = dceBlocks(f.Blocks, used)
	return f
}

func collectVarUses(f ir.Function) map[string]bool {
	used := make(map[string]bool)
	walkExprs(f, func(e ir.Expr) {
		if v, ok := e.(ir.Var); ok {
			used[v.Name] = true
		}
	})
	return used
}

func dceBlocks(blocks []*ir.Block, used map[string]bool) []*ir.Block {
	if blocks == nil {
		return nil
	}
	out := make([]*ir.Block, len(blocks))
	for i, b := range blocks {
		out[i] = dceBlock(b, used)
	}
	return out
}

func dceBlock(b *ir.Block, used map[string]bool) *ir.Block {
	if b == nil {
		return nil
	}
	nb := &ir.Block{Label: b.Label, Terminator: b.Terminator}
	for _, s := range b.Stmts {
		switch v := s.(type) {
		case ir.Assign:
			if !used[v.Name] && !hasSideEffect(v.Value) {
				continue
			}
			nb.Stmts = append(nb.Stmts, v)
		case ir.If:
			v.Then = dceBlock(v.Then, used)
			v.Else = dceBlock(v.Else, used)
			nb.Stmts = append(nb.Stmts, v)
		case ir.While:
			v.Body = dceBlock(v.Body, used)
			nb.Stmts = append(nb.Stmts, v)
		default:
			nb.Stmts = append(nb.Stmts, s)
		}
	}
	return nb
}

// hasSideEffect reports whether evaluating e could matter even if its
// result is discarded: today only a bare Call qualifies.
func hasSideEffect(e ir.Expr) bool {
	_, ok := e.(ir.Call)
	return ok
}
