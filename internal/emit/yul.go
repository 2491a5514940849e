package emit

import (
	"fmt"
	"strings"

	"github.com/go-evm/decomp/internal/ir"
)

// Yul renders functions as a switch-dispatched Yul object, the shape
// `solc --ir` itself emits: a selector switch inside object "Contract".
func Yul(version string, functions []ir.Function) string {
	var b strings.Builder
	b.WriteString(Banner(version))
	b.WriteString(`object "Contract" {
  code {
    switch selector()
`)
	for _, f := range functions {
		if f.Fallback || f.Selector == nil {
			continue
		}
		fmt.Fprintf(&b, "    case 0x%x {\n", f.Selector[:])
		renderYulFunctionBody(&b, f, 6)
		b.WriteString("    }\n")
	}
	b.WriteString("    default { revert(0, 0) }\n")
	b.WriteString(`
    function selector() -> s {
      s := shr(224, calldataload(0))
    }
  }
}
`)
	return b.String()
}

func renderYulFunctionBody(b *strings.Builder, f ir.Function, indent int) {
	for _, block := range f.Blocks {
		renderYulBlock(b, block, indent)
	}
}

func renderYulBlock(b *strings.Builder, block *ir.Block, indent int) {
	if block == nil {
		return
	}
	pad := strings.Repeat("  ", indent/2)
	for _, s := range block.Stmts {
		renderYulStmt(b, s, indent)
	}
	switch t := block.Terminator.(type) {
	case ir.ReturnTerm:
		fmt.Fprintf(b, "%sreturn(%s)\n", pad, yulArgs(t.Values))
	case ir.RevertTerm:
		fmt.Fprintf(b, "%srevert(%s)\n", pad, yulArgs(t.Values))
	case ir.StopTerm:
		fmt.Fprintf(b, "%sstop()\n", pad)
	case ir.JumpTerm:
		fmt.Fprintf(b, "%s// jump to block_%d\n", pad, t.Target)
	case ir.ConditionalJumpTerm:
		fmt.Fprintf(b, "%sif %s { /* jump to block_%d */ }\n", pad, renderYulExpr(t.Cond), t.Target)
	}
}

func yulArgs(es []ir.Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = renderYulExpr(e)
	}
	return strings.Join(parts, ", ")
}

func renderYulStmt(b *strings.Builder, s ir.Stmt, indent int) {
	pad := strings.Repeat("  ", indent/2)
	switch v := s.(type) {
	case ir.Assign:
		fmt.Fprintf(b, "%slet %s := %s\n", pad, v.Name, renderYulExpr(v.Value))
	case ir.Store:
		fmt.Fprintf(b, "%s%s(%s, %s)\n", pad, yulStoreOp(v.Type), renderYulExpr(v.Addr), renderYulExpr(v.Value))
	case ir.If:
		fmt.Fprintf(b, "%sif %s {\n", pad, renderYulExpr(v.Cond))
		renderYulBlock(b, v.Then, indent+2)
		fmt.Fprintf(b, "%s}\n", pad)
		if v.Else != nil {
			fmt.Fprintf(b, "%s// else\n", pad)
			renderYulBlock(b, v.Else, indent+2)
		}
	case ir.While:
		fmt.Fprintf(b, "%sfor {} %s {} {\n", pad, renderYulExpr(v.Cond))
		renderYulBlock(b, v.Body, indent+2)
		fmt.Fprintf(b, "%s}\n", pad)
	case ir.Return:
		fmt.Fprintf(b, "%sreturn(%s)\n", pad, yulArgs(v.Values))
	case ir.Revert:
		fmt.Fprintf(b, "%srevert(%s)\n", pad, yulArgs(v.Values))
	case ir.CallStmt:
		fmt.Fprintf(b, "%spop(%s)\n", pad, renderYulExpr(v.Call))
	case ir.Log:
		fmt.Fprintf(b, "%slog%d(%s)\n", pad, v.Topics, yulArgs(v.Args))
	}
}

func yulStoreOp(t ir.StoreType) string {
	switch t {
	case ir.StoreStorage:
		return "sstore"
	case ir.StoreTransient:
		return "tstore"
	default:
		return "mstore"
	}
}

func renderYulExpr(e ir.Expr) string {
	switch v := e.(type) {
	case ir.Const:
		if v.Value == nil {
			return "0x0"
		}
		return hexReduce(v.Value.Hex())
	case ir.Var:
		return v.Name
	case ir.BinOpExpr:
		return fmt.Sprintf("%s(%s, %s)", yulBinOpName(v.Op), renderYulExpr(v.X), renderYulExpr(v.Y))
	case ir.UnOpExpr:
		return fmt.Sprintf("%s(%s)", yulUnOpName(v.Op), renderYulExpr(v.X))
	case ir.Cast:
		return renderYulExpr(v.X)
	case ir.Load:
		return fmt.Sprintf("%s(%s)", yulLoadOp(v.Type), renderYulExpr(v.Addr))
	case ir.Ternary:
		return fmt.Sprintf("ternary(%s, %s, %s)", renderYulExpr(v.Cond), renderYulExpr(v.Then), renderYulExpr(v.Else))
	case ir.Call:
		return renderYulCall(v)
	default:
		return "0x0"
	}
}

func yulLoadOp(t ir.LoadType) string {
	switch t {
	case ir.LoadStorage:
		return "sload"
	case ir.LoadCalldata:
		return "calldataload"
	case ir.LoadTransient:
		return "tload"
	default:
		return "mload"
	}
}

func yulBinOpName(op ir.BinOp) string {
	switch op {
	case ir.Add:
		return "add"
	case ir.Sub:
		return "sub"
	case ir.Mul:
		return "mul"
	case ir.Div:
		return "div"
	case ir.Mod:
		return "mod"
	case ir.Exp:
		return "exp"
	case ir.And:
		return "and"
	case ir.Or:
		return "or"
	case ir.Xor:
		return "xor"
	case ir.Shl:
		return "shl"
	case ir.Shr:
		return "shr"
	case ir.Sar:
		return "sar"
	case ir.Eq:
		return "eq"
	case ir.Ne:
		return "iszero_eq"
	case ir.Lt:
		return "lt"
	case ir.Gt:
		return "gt"
	case ir.Slt:
		return "slt"
	case ir.Sgt:
		return "sgt"
	default:
		return "add"
	}
}

func yulUnOpName(op ir.UnOp) string {
	switch op {
	case ir.Not:
		return "not"
	case ir.IsZero:
		return "iszero"
	default:
		return "iszero"
	}
}

func renderYulCall(c ir.Call) string {
	name := "call"
	switch c.Type {
	case ir.CallTypeDelegateCall:
		name = "delegatecall"
	case ir.CallTypeStaticCall:
		name = "staticcall"
	case ir.CallTypeCreate:
		name = "create"
	case ir.CallTypeCreate2:
		name = "create2"
	}
	parts := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		parts = append(parts, renderYulExpr(a))
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

// hexReduce trims leading zero digits from a "0x..."-prefixed hex string,
// preserving at least one digit, matching the Yul emitter's constant
// formatting rule.
func hexReduce(hex string) string {
	hex = strings.TrimPrefix(hex, "0x")
	hex = strings.TrimLeft(hex, "0")
	if hex == "" {
		hex = "0"
	}
	return "0x" + hex
}
