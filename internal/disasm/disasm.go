// Package disasm linearly disassembles EVM bytecode into one Instruction
// per opcode, correctly skipping PUSHn immediates rather than walking byte
// by byte.
package disasm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-evm/decomp/internal/opcodes"
)

// Instruction is one disassembled opcode and, for PUSHn, its immediate
// bytes exactly as they appeared in the input.
type Instruction struct {
	PC     uint64
	Opcode byte
	Pushed []byte
	// Truncated is set when a PUSHn at the end of the bytecode did not have
	// enough trailing bytes for its full immediate; Pushed then holds
	// whatever bytes remained.
	Truncated bool
}

// Mnemonic returns the opcode's name.
func (i Instruction) Mnemonic() string { return opcodes.Name(i.Opcode) }

// Disassemble walks bytecode instruction by instruction, treating PUSH0
// through PUSH32's immediate bytes as part of the instruction rather than
// separate opcodes.
func Disassemble(bytecode []byte) []Instruction {
	var out []Instruction
	pc := 0
	for pc < len(bytecode) {
		op := bytecode[pc]
		instr := Instruction{PC: uint64(pc), Opcode: op}

		if opcodes.IsPush(op) {
			n := opcodes.PushBytes(op)
			end := pc + 1 + n
			if end > len(bytecode) {
				instr.Pushed = append([]byte(nil), bytecode[pc+1:]...)
				instr.Truncated = true
				out = append(out, instr)
				break
			}
			instr.Pushed = append([]byte(nil), bytecode[pc+1:end]...)
			out = append(out, instr)
			pc = end
			continue
		}

		out = append(out, instr)
		pc++
	}
	return out
}

// Reassemble concatenates each instruction's opcode byte and pushed
// immediate back into a byte sequence. Round-tripping Disassemble then
// Reassemble reproduces the original bytecode exactly, including a
// truncated trailing PUSHn (its available bytes are carried verbatim, not
// padded).
func Reassemble(instrs []Instruction) []byte {
	var out []byte
	for _, instr := range instrs {
		out = append(out, instr.Opcode)
		out = append(out, instr.Pushed...)
	}
	return out
}

// FormatPC renders a program counter as zero-padded 6-digit hex by default,
// or plain decimal when decimal is true.
func FormatPC(pc uint64, decimal bool) string {
	if decimal {
		return strconv.FormatUint(pc, 10)
	}
	return fmt.Sprintf("%06x", pc)
}

// Format renders one disassembly line: "{pc} {MNEMONIC} {pushed_bytes?}".
// Pushed bytes are lower-case hex without a leading 0x.
func (i Instruction) Format(decimal bool) string {
	line := FormatPC(i.PC, decimal) + " " + i.Mnemonic()
	if len(i.Pushed) > 0 {
		line += " " + strings.ToLower(fmt.Sprintf("%x", i.Pushed))
	}
	return line
}

// FormatAll renders the full instruction list, one line per instruction.
func FormatAll(instrs []Instruction, decimal bool) []string {
	lines := make([]string, len(instrs))
	for i, instr := range instrs {
		lines[i] = instr.Format(decimal)
	}
	return lines
}
