package passes

import "github.com/go-evm/decomp/internal/ir"

// CopyPropagate replaces uses of a Var defined by a single Assign whose
// value is itself pure (no Call) with that defining expression. The
// now-unused Assign is left in place; DeadCodeEliminate drops it on
// Run's next round.
func CopyPropagate(f ir.Function) ir.Function {
	f.Blocks = copyPropBlocks(f.Blocks)
	return f
}

func copyPropBlocks(blocks []*ir.Block) []*ir.Block {
	if blocks == nil {
		return nil
	}
	out := make([]*ir.Block, len(blocks))
	for i, b := range blocks {
		out[i] = copyPropBlock(b)
	}
	return out
}

func copyPropBlock(b *ir.Block) *ir.Block {
	if b == nil {
		return nil
	}
	defs := make(map[string]ir.Expr)
	nb := &ir.Block{Label: b.Label}
	for _, s := range b.Stmts {
		s = substituteStmt(s, defs)
		if a, ok := s.(ir.Assign); ok && pureExpr(a.Value) {
			defs[a.Name] = a.Value
		}
		nb.Stmts = append(nb.Stmts, s)
	}
	nb.Terminator = mapTerminator(b.Terminator, func(e ir.Expr) ir.Expr {
		return substitute(e, defs)
	})
	return nb
}

func substituteStmt(s ir.Stmt, defs map[string]ir.Expr) ir.Stmt {
	sub := func(e ir.Expr) ir.Expr { return substitute(e, defs) }
	switch v := s.(type) {
	case ir.Assign:
		v.Value = sub(v.Value)
		return v
	case ir.Store:
		v.Addr = sub(v.Addr)
		v.Value = sub(v.Value)
		return v
	case ir.If:
		v.Cond = sub(v.Cond)
		v.Then = copyPropBlock(v.Then)
		v.Else = copyPropBlock(v.Else)
		return v
	case ir.While:
		v.Cond = sub(v.Cond)
		v.Body = copyPropBlock(v.Body)
		return v
	case ir.Return:
		v.Values = mapExprs(v.Values, sub)
		return v
	case ir.Revert:
		v.Values = mapExprs(v.Values, sub)
		return v
	case ir.CallStmt:
		if call, ok := sub(v.Call).(ir.Call); ok {
			v.Call = call
		}
		return v
	case ir.Log:
		v.Args = mapExprs(v.Args, sub)
		return v
	default:
		return s
	}
}

func substitute(e ir.Expr, defs map[string]ir.Expr) ir.Expr {
	return mapExprTree(e, func(node ir.Expr) ir.Expr {
		v, ok := node.(ir.Var)
		if !ok {
			return node
		}
		if def, ok := defs[v.Name]; ok {
			return def
		}
		return node
	})
}

func pureExpr(e ir.Expr) bool {
	pure := true
	var visit func(ir.Expr)
	visit = func(e ir.Expr) {
		if e == nil {
			return
		}
		switch v := e.(type) {
		case ir.Call:
			pure = false
		case ir.BinOpExpr:
			visit(v.X)
			visit(v.Y)
		case ir.UnOpExpr:
			visit(v.X)
		case ir.Cast:
			visit(v.X)
		case ir.Ternary:
			visit(v.Cond)
			visit(v.Then)
			visit(v.Else)
		case ir.Load:
			visit(v.Addr)
		}
	}
	visit(e)
	return pure
}
