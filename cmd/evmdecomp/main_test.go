package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-evm/decomp/internal/opcodes"
)

type hexSource struct{ code []byte }

func (h hexSource) Fetch(context.Context, string) ([]byte, error) { return h.code, nil }

func simpleAddContract() []byte {
	return []byte{
		opcodes.PUSH1, 0x01,
		opcodes.PUSH1, 0x02,
		opcodes.ADD,
		opcodes.PUSH1, 0x00,
		opcodes.MSTORE,
		opcodes.PUSH1, 0x20,
		opcodes.PUSH1, 0x00,
		opcodes.RETURN,
	}
}

func runApp(t *testing.T, src BytecodeSource, args ...string) string {
	t.Helper()
	app := newApp(src)
	var out bytes.Buffer
	app.Writer = &out
	full := append([]string{"evmdecomp"}, args...)
	if err := app.Run(full); err != nil {
		t.Fatalf("app.Run(%v): %v", args, err)
	}
	return out.String()
}

func TestDisassembleListsEveryInstruction(t *testing.T) {
	out := runApp(t, hexSource{simpleAddContract()}, "disassemble", "deadbeef")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// simpleAddContract is 12 bytes but 8 instructions: one line each.
	if len(lines) != 8 {
		t.Fatalf("got %d lines, want 8", len(lines))
	}
	if !strings.Contains(lines[2], "ADD") {
		t.Fatalf("line 2 = %q, want it to mention ADD", lines[2])
	}
}

func TestDisassembleRejectsEmptyBytecode(t *testing.T) {
	app := newApp(hexSource{nil})
	var out bytes.Buffer
	app.Writer = &out
	err := app.Run([]string{"evmdecomp", "disassemble", "deadbeef"})
	if err == nil {
		t.Fatalf("expected an error for empty bytecode")
	}
}

func TestCfgProducesDOTGraph(t *testing.T) {
	out := runApp(t, hexSource{simpleAddContract()}, "cfg", "deadbeef")
	if !strings.HasPrefix(strings.TrimSpace(out), "digraph") {
		t.Fatalf("expected a DOT digraph, got %q", out)
	}
}

func TestDecompileEmitsSolidityBanner(t *testing.T) {
	out := runApp(t, hexSource{simpleAddContract()}, "--skip-resolving", "decompile", "deadbeef")
	if !strings.Contains(out, "Decompiled by evmdecomp") {
		t.Fatalf("expected banner comment in Solidity output, got %q", out)
	}
}

func TestDecompileYulFlagEmitsObjectWrapper(t *testing.T) {
	out := runApp(t, hexSource{simpleAddContract()}, "--skip-resolving", "decompile", "--yul", "deadbeef")
	if !strings.Contains(out, "object \"Contract\"") {
		t.Fatalf("expected a Yul object wrapper, got %q", out)
	}
}

func TestLocalSourceAcceptsHexLiteral(t *testing.T) {
	got, err := localSource{}.Fetch(context.Background(), "0x6001")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(got, []byte{0x60, 0x01}) {
		t.Fatalf("got %x, want 6001", got)
	}
}

func TestLocalSourceRejectsUnreadablePath(t *testing.T) {
	_, err := localSource{}.Fetch(context.Background(), "/nonexistent/path/to/bytecode")
	if err == nil {
		t.Fatalf("expected an error for an unreadable path")
	}
}
