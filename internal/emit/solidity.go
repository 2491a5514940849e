// Package emit renders decompiled ir.Function values as Solidity or Yul
// source text.
package emit

import (
	"fmt"
	"strings"

	"github.com/go-evm/decomp/internal/ir"
)

// Banner is the header comment every emitted file opens with.
func Banner(version string) string {
	return fmt.Sprintf("// Decompiled by evmdecomp v%s\n", version)
}

// Solidity renders a full pseudo-contract: the banner, followed by one
// function declaration per entry in functions.
func Solidity(version string, functions []ir.Function) string {
	var b strings.Builder
	b.WriteString(Banner(version))
	b.WriteString("pragma solidity ^0.8.0;\n\n")
	b.WriteString("contract Decompiled {\n")
	for _, f := range functions {
		b.WriteString(renderFunctionHeader(f))
		b.WriteString(" {\n")
		for _, block := range f.Blocks {
			renderBlock(&b, block, 2)
		}
		b.WriteString("    }\n\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func renderFunctionHeader(f ir.Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "    function %s(%s) %s", f.Name, renderParams(f.Params), f.Visibility)
	if f.Pure {
		b.WriteString(" pure")
	} else if f.View {
		b.WriteString(" view")
	}
	if f.Payable {
		b.WriteString(" payable")
	}
	for _, m := range f.Modifiers {
		fmt.Fprintf(&b, " %s", m)
	}
	if len(f.Returns) > 0 {
		fmt.Fprintf(&b, " returns (%s)", renderReturns(f.Returns))
	}
	return b.String()
}

func renderParams(params []ir.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s %s", p.Type.String(), p.Name)
	}
	return strings.Join(parts, ", ")
}

func renderReturns(returns []ir.SolidityType) string {
	parts := make([]string, len(returns))
	for i, t := range returns {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func renderBlock(b *strings.Builder, block *ir.Block, indent int) {
	if block == nil {
		return
	}
	pad := strings.Repeat("    ", indent)
	for _, s := range block.Stmts {
		renderStmt(b, s, indent)
	}
	switch t := block.Terminator.(type) {
	case ir.ReturnTerm:
		fmt.Fprintf(b, "%sreturn %s;\n", pad, renderExprList(t.Values))
	case ir.RevertTerm:
		fmt.Fprintf(b, "%srevert(%s);\n", pad, renderExprList(t.Values))
	case ir.StopTerm:
		fmt.Fprintf(b, "%sreturn;\n", pad)
	case ir.JumpTerm:
		fmt.Fprintf(b, "%s// goto block_%d\n", pad, t.Target)
	case ir.ConditionalJumpTerm:
		fmt.Fprintf(b, "%sif (%s) { /* goto block_%d */ } else { /* goto block_%d */ }\n",
			pad, renderExpr(t.Cond, 0), t.Target, t.Fallthrough)
	}
}

func renderExprList(es []ir.Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = renderExpr(e, 0)
	}
	return strings.Join(parts, ", ")
}

func renderStmt(b *strings.Builder, s ir.Stmt, indent int) {
	pad := strings.Repeat("    ", indent)
	switch v := s.(type) {
	case ir.Assign:
		fmt.Fprintf(b, "%suint256 %s = %s;\n", pad, v.Name, renderExpr(v.Value, 0))
	case ir.Store:
		fmt.Fprintf(b, "%s%s[%s] = %s;\n", pad, storeSpaceName(v.Type), renderExpr(v.Addr, 0), renderExpr(v.Value, 0))
	case ir.If:
		fmt.Fprintf(b, "%sif (%s) {\n", pad, renderExpr(v.Cond, 0))
		renderBlock(b, v.Then, indent+1)
		if v.Else != nil {
			fmt.Fprintf(b, "%s} else {\n", pad)
			renderBlock(b, v.Else, indent+1)
		}
		fmt.Fprintf(b, "%s}\n", pad)
	case ir.While:
		fmt.Fprintf(b, "%swhile (%s) {\n", pad, renderExpr(v.Cond, 0))
		renderBlock(b, v.Body, indent+1)
		fmt.Fprintf(b, "%s}\n", pad)
	case ir.Return:
		fmt.Fprintf(b, "%sreturn %s;\n", pad, renderExprList(v.Values))
	case ir.Revert:
		fmt.Fprintf(b, "%srevert(%s);\n", pad, renderExprList(v.Values))
	case ir.CallStmt:
		fmt.Fprintf(b, "%s%s;\n", pad, renderExpr(v.Call, 0))
	case ir.Log:
		fmt.Fprintf(b, "%semit Log%d(%s);\n", pad, v.Topics, renderExprList(v.Args))
	}
}

func storeSpaceName(t ir.StoreType) string {
	switch t {
	case ir.StoreStorage:
		return "storage"
	case ir.StoreTransient:
		return "transient"
	default:
		return "memory"
	}
}

// renderExpr renders e, parenthesising only when e's own precedence is
// lower than parentPrec (the precedence of the operator it sits inside).
func renderExpr(e ir.Expr, parentPrec uint8) string {
	switch v := e.(type) {
	case ir.Const:
		if v.Value == nil {
			return "0"
		}
		return v.Value.Hex()
	case ir.Var:
		return v.Name
	case ir.BinOpExpr:
		prec := v.Op.Precedence()
		s := fmt.Sprintf("%s %s %s", renderExpr(v.X, prec), v.Op, renderExpr(v.Y, prec+1))
		if prec < parentPrec {
			return "(" + s + ")"
		}
		return s
	case ir.UnOpExpr:
		return v.Op.String() + renderExpr(v.X, 15)
	case ir.Cast:
		return fmt.Sprintf("%s(%s)", v.Type.String(), renderExpr(v.X, 0))
	case ir.Load:
		return fmt.Sprintf("%s[%s]", loadSpaceName(v.Type), renderExpr(v.Addr, 0))
	case ir.Ternary:
		return fmt.Sprintf("%s ? %s : %s", renderExpr(v.Cond, 0), renderExpr(v.Then, 0), renderExpr(v.Else, 0))
	case ir.Call:
		return renderCall(v)
	default:
		return "<?>"
	}
}

func loadSpaceName(t ir.LoadType) string {
	switch t {
	case ir.LoadStorage:
		return "storage"
	case ir.LoadCalldata:
		return "msg.data"
	case ir.LoadTransient:
		return "transient"
	default:
		return "memory"
	}
}

func renderCall(c ir.Call) string {
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
		parts = append(parts, renderExpr(a, 0))
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
