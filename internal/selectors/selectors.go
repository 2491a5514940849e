// Package selectors discovers candidate function selectors in bytecode and
// locates each one's entry point by driving the interpreter with that
// selector as calldata and watching the dispatcher's comparison chain.
package selectors

import (
	"strings"

	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/go-evm/decomp/internal/vm"
	"github.com/holiman/uint256"
)

// Function is one discovered dispatcher entry: a 4-byte selector and the PC
// of its function body. Fallback entries carry the zero selector and
// Fallback=true, matching AnalyzedFunction's fallback flag.
type Function struct {
	Selector [4]byte
	EntryPC  uint64
	Fallback bool
}

// DefaultMaxSteps bounds how long a single selector's dispatcher simulation
// may run before being abandoned: real dispatcher chains are at most a few
// hundred instructions, so this is generous headroom, not a tight budget.
const DefaultMaxSteps = 200000

// calldataPadding is how many zero bytes follow the 4-byte selector in the
// synthetic calldata fed to the simulator, so a dispatcher reading past the
// selector (it never legitimately does before branching) sees zeros rather
// than running off the end.
const calldataPadding = 128

var boolTrue = uint256.NewInt(1)

// ScanPush4 walks bytecode instruction by instruction, respecting PUSH
// immediates, and returns every distinct 4-byte value pushed by a PUSH4, in
// first-seen order. This is Phase 1 of selector discovery.
func ScanPush4(bytecode []byte) [][4]byte {
	seen := make(map[[4]byte]bool)
	var out [][4]byte
	pc := 0
	for pc < len(bytecode) {
		op := bytecode[pc]
		if !opcodes.IsPush(op) {
			pc++
			continue
		}
		n := opcodes.PushBytes(op)
		if op == opcodes.PUSH4 && pc+1+4 <= len(bytecode) {
			var sel [4]byte
			copy(sel[:], bytecode[pc+1:pc+1+4])
			if !seen[sel] {
				seen[sel] = true
				out = append(out, sel)
			}
		}
		pc += 1 + n
	}
	return out
}

// Discover runs both phases of selector discovery: it scans for PUSH4
// candidates, then drives the interpreter once per candidate with that
// selector as calldata, recording the destination of whichever JUMPI
// matches the dispatcher's comparison pattern. Candidates matching nothing
// are folded into a single fallback function at the PC immediately past
// the dispatcher's final comparison; if no PUSH4 candidate matches at all
// (including the case of no PUSH4s in the bytecode), the fallback sits at
// entry PC 0, matching a contract with a single unconditional entry point.
func Discover(bytecode []byte, gasLimit uint64, maxSteps int) []Function {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	candidates := ScanPush4(bytecode)

	var functions []Function
	fallbackPC := uint64(0)
	haveFallbackPC := false

	for _, sel := range candidates {
		result := simulate(bytecode, sel, gasLimit, maxSteps)
		if result.matched {
			functions = append(functions, Function{Selector: sel, EntryPC: result.entryPC})
			continue
		}
		if !haveFallbackPC {
			fallbackPC = result.lastFallthrough
			haveFallbackPC = true
		}
	}

	if len(functions) == 0 {
		return []Function{{EntryPC: 0, Fallback: true}}
	}
	if haveFallbackPC {
		functions = append(functions, Function{EntryPC: fallbackPC, Fallback: true})
	}
	return functions
}

type simResult struct {
	entryPC         uint64
	matched         bool
	lastFallthrough uint64
}

// simulate drives a fresh VM with sel as calldata, following whichever
// branch the concrete interpreter actually takes at every JUMPI -- since
// the calldata is concrete, no forking is needed: exactly one comparison in
// a well-formed dispatcher evaluates true for a given selector.
func simulate(bytecode []byte, sel [4]byte, gasLimit uint64, maxSteps int) simResult {
	calldata := make([]byte, 4+calldataPadding)
	copy(calldata, sel[:])

	m := vm.New(bytecode, gasLimit, calldata)
	selHex := new(uint256.Int).SetBytes(sel[:]).Hex()

	var res simResult
	for steps := 0; steps < maxSteps; steps++ {
		if !m.Running() {
			return res
		}
		pc := m.PC
		if pc >= uint64(len(bytecode)) {
			return res
		}
		isJumpi := bytecode[pc] == opcodes.JUMPI

		var destFrame, condFrame evmstate.Frame
		if isJumpi {
			if f, err := m.Stack.Peek(0); err == nil {
				destFrame = f
			}
			if f, err := m.Stack.Peek(1); err == nil {
				condFrame = f
			}
		}

		if _, err := m.Step(); err != nil {
			return res
		}
		if !isJumpi {
			continue
		}
		if !m.Running() {
			return res
		}

		taken := destFrame.Value != nil && m.PC == destFrame.Value.Uint64()
		if taken && condFrame.Value != nil && condFrame.Value.Eq(boolTrue) {
			condStr := ""
			if condFrame.Op != nil {
				condStr = condFrame.Op.String()
			}
			if strings.Contains(condStr, selHex) && strings.Contains(condStr, "CALLDATALOAD(") {
				res.entryPC = m.PC
				res.matched = true
				return res
			}
		}
		res.lastFallthrough = m.PC
	}
	return res
}
