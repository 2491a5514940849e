package vm

import (
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
)

func opStop(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	vm.Exit(Success, nil)
	return nil, nil
}

func opJumpdest(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	return nil, nil
}

// ValidJumpDest reports whether dest is a legal JUMP/JUMPI target, for
// callers (the exploration driver) that need to check a hypothetical
// destination before forking a VM onto it.
func (vm *VM) ValidJumpDest(dest uint64) bool { return vm.validJumpDest(dest) }

// validJumpDest reports whether dest lands on a JUMPDEST byte that is not
// itself inside a PUSH immediate (a push argument that happens to equal
// 0x5b is not a valid destination).
func (vm *VM) validJumpDest(dest uint64) bool {
	if dest >= uint64(len(vm.Bytecode)) {
		return false
	}
	if vm.Bytecode[dest] != opcodes.JUMPDEST {
		return false
	}
	// Walk from the start re-deriving instruction boundaries; a JUMPDEST
	// byte reached mid-immediate is not a real destination.
	pc := uint64(0)
	for pc < dest {
		op := vm.Bytecode[pc]
		if opcodes.IsPush(op) {
			pc += 1 + uint64(opcodes.PushBytes(op))
		} else {
			pc++
		}
	}
	return pc == dest
}

func opJump(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	dest, ok := vm.pop1("JUMP")
	if !ok {
		return nil, nil
	}
	destPC := dest.Value.Uint64()
	if !dest.Value.IsUint64() || !vm.validJumpDest(destPC) {
		vm.Exit(InvalidJump, nil)
		return []evmstate.Frame{dest}, nil
	}
	vm.PC = destPC
	return []evmstate.Frame{dest}, nil
}

func opJumpi(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	dest, cond, ok := vm.pop2("JUMPI")
	if !ok {
		return nil, nil
	}
	if cond.Value.IsZero() {
		return []evmstate.Frame{dest, cond}, nil
	}
	destPC := dest.Value.Uint64()
	if !dest.Value.IsUint64() || !vm.validJumpDest(destPC) {
		vm.Exit(InvalidJump, nil)
		return []evmstate.Frame{dest, cond}, nil
	}
	vm.PC = destPC
	return []evmstate.Frame{dest, cond}, nil
}

func init() {
	register(opcodes.STOP, opStop)
	register(opcodes.JUMPDEST, opJumpdest)
	register(opcodes.JUMP, opJump)
	register(opcodes.JUMPI, opJumpi)
}
