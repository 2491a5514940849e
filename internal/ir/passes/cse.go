package passes

import (
	"strconv"

	"github.com/go-evm/decomp/internal/ir"
)

// CommonSubexpressionEliminate hoists repeated pure subexpressions within a
// block into a single Assign, replacing later occurrences with a Var
// reference. Subexpressions that read memory or storage are only reused
// across statements that do not write to that space; any Store or call
// clears the relevant cache rather than attempting alias analysis.
func CommonSubexpressionEliminate(f ir.Function) ir.Function {
	f.Blocks = cseBlocks(f.Blocks)
	return f
}

func cseBlocks(blocks []*ir.Block) []*ir.Block {
	if blocks == nil {
		return nil
	}
	out := make([]*ir.Block, len(blocks))
	for i, b := range blocks {
		out[i] = cseBlock(b)
	}
	return out
}

type cseState struct {
	seen    map[string]ir.Var
	counter int
	pending []ir.Stmt
}

func cseBlock(b *ir.Block) *ir.Block {
	if b == nil {
		return nil
	}
	st := &cseState{seen: make(map[string]ir.Var)}
	nb := &ir.Block{Label: b.Label}
	for _, s := range b.Stmts {
		nb.Stmts = append(nb.Stmts, st.process(s)...)
	}
	if b.Terminator != nil {
		nb.Terminator = mapTerminator(b.Terminator, st.rewrite)
	}
	return nb
}

// process rewrites one statement, possibly prefixing it with the Assign
// statements that hoist newly discovered common subexpressions, and
// invalidates the cache on a Store/Log/CallStmt.
func (st *cseState) process(s ir.Stmt) []ir.Stmt {
	switch v := s.(type) {
	case ir.Store:
		v.Addr = st.rewrite(v.Addr)
		v.Value = st.rewrite(v.Value)
		st.invalidate(v.Type)
		return append(st.drain(), v)
	case ir.Log:
		v.Args = mapExprs(v.Args, st.rewrite)
		st.invalidate(ir.StoreMemory)
		return append(st.drain(), v)
	case ir.CallStmt:
		if call, ok := st.rewrite(v.Call).(ir.Call); ok {
			v.Call = call
		}
		st.seen = make(map[string]ir.Var)
		return append(st.drain(), v)
	case ir.If:
		v.Cond = st.rewrite(v.Cond)
		v.Then = cseBlock(v.Then)
		v.Else = cseBlock(v.Else)
		return append(st.drain(), v)
	case ir.While:
		v.Cond = st.rewrite(v.Cond)
		v.Body = cseBlock(v.Body)
		return append(st.drain(), v)
	case ir.Return:
		v.Values = mapExprs(v.Values, st.rewrite)
		return append(st.drain(), v)
	case ir.Revert:
		v.Values = mapExprs(v.Values, st.rewrite)
		return append(st.drain(), v)
	case ir.Assign:
		v.Value = st.rewrite(v.Value)
		return append(st.drain(), v)
	default:
		return append(st.drain(), s)
	}
}

// rewrite walks e bottom-up; any BinOpExpr/UnOpExpr subtree seen a second
// time (by structural key) is replaced with a reference to a hoisted Var.
func (st *cseState) rewrite(e ir.Expr) ir.Expr {
	return mapExprTree(e, func(node ir.Expr) ir.Expr {
		if !cseEligible(node) {
			return node
		}
		key := exprKey(node)
		existing, ok := st.seen[key]
		if !ok {
			// first occurrence: remember it, but leave it in place.
			st.seen[key] = ir.Var{}
			return node
		}
		if existing.Name != "" {
			return existing
		}
		v := ir.Var{Name: "_cse" + strconv.Itoa(st.counter)}
		st.counter++
		st.seen[key] = v
		st.pending = append(st.pending, ir.Assign{Name: v.Name, Value: node})
		return v
	})
}

func cseEligible(e ir.Expr) bool {
	switch e.(type) {
	case ir.BinOpExpr, ir.UnOpExpr, ir.Cast:
		return true
	default:
		return false
	}
}

func (st *cseState) drain() []ir.Stmt {
	out := st.pending
	st.pending = nil
	return out
}

func (st *cseState) invalidate(t ir.StoreType) {
	for key, v := range st.seen {
		if exprKeyReadsSpace(key, t) {
			delete(st.seen, key)
			_ = v
		}
	}
}

// exprKeyReadsSpace is a coarse heuristic: a cached key mentioning the
// Load-type marker for t is dropped. Correctness-preserving because the
// marker text is unique to exprKey's own Load rendering.
func exprKeyReadsSpace(key string, t ir.StoreType) bool {
	marker := loadMarker(loadTypeForStore(t))
	return containsSubstr(key, marker)
}

func loadTypeForStore(t ir.StoreType) ir.LoadType {
	switch t {
	case ir.StoreStorage:
		return ir.LoadStorage
	case ir.StoreTransient:
		return ir.LoadTransient
	default:
		return ir.LoadMemory
	}
}

func loadMarker(t ir.LoadType) string {
	return "load" + strconv.Itoa(int(t)) + "("
}

func containsSubstr(s, sub string) bool {
	return len(sub) == 0 || indexOf(s, sub) >= 0
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

// exprKey renders a structural fingerprint of e, stable across equal
// subtrees regardless of source position.
func exprKey(e ir.Expr) string {
	switch v := e.(type) {
	case ir.Const:
		if v.Value == nil {
			return "c:0"
		}
		return "c:" + v.Value.Hex()
	case ir.Var:
		return "v:" + v.Name
	case ir.BinOpExpr:
		return "b" + strconv.Itoa(int(v.Op)) + "(" + exprKey(v.X) + "," + exprKey(v.Y) + ")"
	case ir.UnOpExpr:
		return "u" + strconv.Itoa(int(v.Op)) + "(" + exprKey(v.X) + ")"
	case ir.Load:
		return loadMarker(v.Type) + exprKey(v.Addr) + ")"
	case ir.Cast:
		return "cast" + v.Type.String() + "(" + exprKey(v.X) + ")"
	case ir.Ternary:
		return "t(" + exprKey(v.Cond) + "," + exprKey(v.Then) + "," + exprKey(v.Else) + ")"
	case ir.Call:
		return "call"
	default:
		return "?"
	}
}
