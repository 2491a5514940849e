// Package passes implements the fixed-order IR simplification pipeline:
// each pass is a pure Function -> Function mapping, never introducing an
// opcode not already present in its input.
package passes

import "github.com/go-evm/decomp/internal/ir"

type exprFn func(ir.Expr) ir.Expr

// mapExprTree rewrites e bottom-up: children are rewritten first, then fn
// is applied to the (possibly already-rewritten) node itself.
func mapExprTree(e ir.Expr, fn exprFn) ir.Expr {
	if e == nil {
		return nil
	}
	switch v := e.(type) {
	case ir.BinOpExpr:
		v.X = mapExprTree(v.X, fn)
		v.Y = mapExprTree(v.Y, fn)
		return fn(v)
	case ir.UnOpExpr:
		v.X = mapExprTree(v.X, fn)
		return fn(v)
	case ir.Call:
		v.Address = mapExprTree(v.Address, fn)
		v.Value = mapExprTree(v.Value, fn)
		v.Code = mapExprTree(v.Code, fn)
		v.Salt = mapExprTree(v.Salt, fn)
		v.Args = mapExprs(v.Args, fn)
		return fn(v)
	case ir.Load:
		v.Addr = mapExprTree(v.Addr, fn)
		return fn(v)
	case ir.Cast:
		v.X = mapExprTree(v.X, fn)
		return fn(v)
	case ir.Ternary:
		v.Cond = mapExprTree(v.Cond, fn)
		v.Then = mapExprTree(v.Then, fn)
		v.Else = mapExprTree(v.Else, fn)
		return fn(v)
	default:
		return fn(e)
	}
}

func mapExprs(es []ir.Expr, fn exprFn) []ir.Expr {
	if es == nil {
		return nil
	}
	out := make([]ir.Expr, len(es))
	for i, e := range es {
		out[i] = mapExprTree(e, fn)
	}
	return out
}

// mapFunctionExprs returns a copy of f with fn applied to every expression
// reachable from its blocks. Blocks, statements, and terminators are
// rebuilt rather than mutated in place.
func mapFunctionExprs(f ir.Function, fn exprFn) ir.Function {
	f.Blocks = mapBlocks(f.Blocks, fn)
	return f
}

func mapBlocks(blocks []*ir.Block, fn exprFn) []*ir.Block {
	if blocks == nil {
		return nil
	}
	out := make([]*ir.Block, len(blocks))
	for i, b := range blocks {
		out[i] = mapBlock(b, fn)
	}
	return out
}

func mapBlock(b *ir.Block, fn exprFn) *ir.Block {
	if b == nil {
		return nil
	}
	nb := &ir.Block{Label: b.Label}
	if b.Stmts != nil {
		nb.Stmts = make([]ir.Stmt, len(b.Stmts))
		for i, s := range b.Stmts {
			nb.Stmts[i] = mapStmt(s, fn)
		}
	}
	nb.Terminator = mapTerminator(b.Terminator, fn)
	return nb
}

func mapStmt(s ir.Stmt, fn exprFn) ir.Stmt {
	switch v := s.(type) {
	case ir.Assign:
		v.Value = mapExprTree(v.Value, fn)
		return v
	case ir.Store:
		v.Addr = mapExprTree(v.Addr, fn)
		v.Value = mapExprTree(v.Value, fn)
		return v
	case ir.If:
		v.Cond = mapExprTree(v.Cond, fn)
		v.Then = mapBlock(v.Then, fn)
		v.Else = mapBlock(v.Else, fn)
		return v
	case ir.While:
		v.Cond = mapExprTree(v.Cond, fn)
		v.Body = mapBlock(v.Body, fn)
		return v
	case ir.Return:
		v.Values = mapExprs(v.Values, fn)
		return v
	case ir.Revert:
		v.Values = mapExprs(v.Values, fn)
		return v
	case ir.CallStmt:
		if call, ok := mapExprTree(v.Call, fn).(ir.Call); ok {
			v.Call = call
		}
		return v
	case ir.Log:
		v.Args = mapExprs(v.Args, fn)
		return v
	default:
		return s
	}
}

func mapTerminator(t ir.Terminator, fn exprFn) ir.Terminator {
	switch v := t.(type) {
	case ir.ReturnTerm:
		v.Values = mapExprs(v.Values, fn)
		return v
	case ir.RevertTerm:
		v.Values = mapExprs(v.Values, fn)
		return v
	case ir.ConditionalJumpTerm:
		v.Cond = mapExprTree(v.Cond, fn)
		return v
	default:
		return t
	}
}

// walkExprs calls visit on every expression reachable from f's blocks,
// without rewriting anything; used by passes that only need to observe
// uses (DCE and type inference).
func walkExprs(f ir.Function, visit func(ir.Expr)) {
	observe := func(e ir.Expr) ir.Expr {
		visit(e)
		return e
	}
	for _, b := range f.Blocks {
		walkBlockExprs(b, observe)
	}
}

func walkBlockExprs(b *ir.Block, fn exprFn) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		mapStmt(s, fn)
	}
	mapTerminator(b.Terminator, fn)
}
