package decompile

import (
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/go-evm/decomp/internal/vm"
)

// nonPureOpcodes are the opcodes that read chain/environment state outside
// the current call's own arguments: any one of them appearing in a
// function's trace means the function cannot be pure.
var nonPureOpcodes = map[byte]bool{
	0x31: true, // BALANCE
	0x32: true, // ORIGIN
	0x33: true, // CALLER
	0x3a: true, // GASPRICE
	0x3b: true, // EXTCODESIZE
	0x3c: true, // EXTCODECOPY
	0x3f: true, // EXTCODEHASH
	0x40: true, // BLOCKHASH
	0x41: true, // COINBASE
	0x42: true, // TIMESTAMP
	0x43: true, // NUMBER
	0x44: true, // DIFFICULTY / PREVRANDAO
	0x45: true, // GASLIMIT
	0x46: true, // CHAINID
	0x47: true, // SELFBALANCE
	0x48: true, // BASEFEE
	0x54: true, // SLOAD
	0x55: true, // SSTORE
	0xf0: true, // CREATE
	0xf1: true, // CALL
	0xf2: true, // CALLCODE
	0xf4: true, // DELEGATECALL
	0xf5: true, // CREATE2
	0xfa: true, // STATICCALL
	0xff: true, // SELFDESTRUCT
}

// nonViewOpcodes are the subset of nonPureOpcodes whose presence rules out
// view: the state-mutating opcodes, plus STATICCALL.
var nonViewOpcodes = map[byte]bool{
	0x55: true, // SSTORE
	0xf0: true, // CREATE
	0xf1: true, // CALL
	0xf2: true, // CALLCODE
	0xf4: true, // DELEGATECALL
	0xf5: true, // CREATE2
	0xfa: true, // STATICCALL
	0xff: true, // SELFDESTRUCT
}

// modifierHeuristic narrows a function's pure/view/payable flags as its
// trace is observed. Once cleared a flag never comes back; every function
// starts optimistic (pure, view, payable) and loses a flag the first time
// an instruction proves otherwise.
func modifierHeuristic(af *AnalyzedFunction, state *vm.State) {
	instr := state.LastInstruction

	if af.Pure && nonPureOpcodes[instr.Opcode] {
		af.Pure = false
	}
	if af.View && nonViewOpcodes[instr.Opcode] {
		af.View = false
	}

	// A JUMPI whose condition is exactly ISZERO(CALLVALUE()) is the
	// canonical "require(msg.value == 0)" guard Solidity emits for a
	// non-payable function.
	if af.Payable && instr.Opcode == opcodes.JUMPI && len(instr.InputOperations) > 1 {
		if isIsZeroCallvalue(instr.InputOperations[1]) {
			af.Payable = false
		}
	}
}

func isIsZeroCallvalue(op *opcodes.WrappedOp) bool {
	if op == nil || op.Opcode != opcodes.ISZERO || len(op.Inputs) != 1 {
		return false
	}
	inner := op.Inputs[0].Op
	return inner != nil && inner.Opcode == opcodes.CALLVALUE
}

// eventHeuristic records the topic0 selector of every LOG instruction seen,
// skipping LOG0 (anonymous events carry no topic to key on).
func eventHeuristic(af *AnalyzedFunction, state *vm.State) {
	if !opcodes.IsLog(state.LastInstruction.Opcode) || len(state.Events) == 0 {
		return
	}
	event := state.Events[len(state.Events)-1]
	if len(event.Topics) == 0 {
		return
	}
	af.Events[event.Topics[0]] = struct{}{}
}

// errorHeuristic records a candidate custom-error selector when a REVERT's
// return data looks like `abi.encodeWithSelector(CustomError.selector,
// ...)`: at least 4 bytes of revert data, read directly out of memory at
// the point of revert. This is a shape match, not proof -- a plain
// `revert("reason string")` also has >=4 bytes and will be recorded here
// indistinguishably from a real custom error, same as any other decoder
// working from bytecode alone.
func errorHeuristic(af *AnalyzedFunction, state *vm.State) {
	instr := state.LastInstruction
	if instr.Opcode != opcodes.REVERT || len(instr.Inputs) < 2 {
		return
	}
	offset, size := instr.Inputs[0].Uint64(), instr.Inputs[1].Uint64()
	if size < 4 {
		return
	}
	data := state.Memory.Read(offset, 4)
	var sel [4]byte
	copy(sel[:], data)
	af.Errors[sel] = struct{}{}
}

// argumentHeuristic narrows the accumulated type guess for a calldata
// argument slot as the value derived from its CALLDATALOAD is consumed by
// later instructions. This is original reasoning (no upstream heuristic
// module for it survived retrieval): walk every operand tree attached to
// the current instruction looking for a CALLDATALOAD leaf at a 32-byte
// calldata slot, and let the enclosing opcode narrow that slot's type.
func argumentHeuristic(af *AnalyzedFunction, state *vm.State) {
	instr := state.LastInstruction
	for _, op := range instr.InputOperations {
		walkForCalldataSlots(af, instr.Opcode, op, true)
	}
}

func walkForCalldataSlots(af *AnalyzedFunction, enclosing byte, op *opcodes.WrappedOp, direct bool) {
	if op == nil {
		return
	}
	if op.Opcode == opcodes.CALLDATALOAD && len(op.Inputs) == 1 && op.Inputs[0].Raw != nil {
		offset := op.Inputs[0].Raw.Uint64()
		if offset >= 4 && (offset-4)%32 == 0 {
			slot := int((offset - 4) / 32)
			if direct {
				classifyArgument(af.argument(slot), enclosing, op)
			}
		}
		return
	}
	for _, in := range op.Inputs {
		walkForCalldataSlots(af, enclosing, in.Op, false)
	}
}

// classifyArgument narrows cf's heuristics and byte-mask size based on the
// opcode that directly consumes the CALLDATALOAD value.
func classifyArgument(cf *CalldataFrame, enclosing byte, load *opcodes.WrappedOp) {
	switch enclosing {
	case opcodes.ISZERO:
		cf.addHeuristic("bool")
	case opcodes.AND:
		cf.addHeuristic("bytesN")
	case opcodes.LT, opcodes.GT, opcodes.SLT, opcodes.SGT:
		cf.addHeuristic("uint256")
	case opcodes.EQ:
		cf.addHeuristic("bytes32")
	case opcodes.CALLDATALOAD:
		// argument itself used as an offset: a dynamic type (array/bytes/string).
		cf.addHeuristic("bytes")
	default:
		cf.addHeuristic("uint256")
	}
	if cf.ByteMaskSize == 0 {
		cf.ByteMaskSize = 32
	}
}
