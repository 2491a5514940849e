package vm

import (
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/holiman/uint256"
)

func opPop(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, ok := vm.pop1("POP")
	if !ok {
		return nil, nil
	}
	return []evmstate.Frame{a}, nil
}

// opPush reads PushBytes(opcode) immediate bytes following the opcode,
// zero-extends them to 256 bits, and pushes a fresh leaf value. It advances
// vm.PC past the immediate.
func opPush(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	n := opcodes.PushBytes(opcode)
	start := vm.PC // vm.PC already points past the opcode byte itself
	end := start + uint64(n)

	var buf [32]byte
	if n > 0 {
		avail := uint64(len(vm.Bytecode))
		for i := 0; i < n; i++ {
			idx := start + uint64(i)
			if idx < avail {
				buf[32-n+i] = vm.Bytecode[idx]
			}
			// bytes past the end of the bytecode are implicitly zero, matching
			// the EVM's truncated-push behavior.
		}
	}
	value := new(uint256.Int).SetBytes(buf[:])

	if err := vm.Stack.Push(value, nil); err != nil {
		vm.Exit(StackOverflow, nil)
		return nil, nil
	}
	vm.PC = end
	return nil, stackTop(vm)
}

func opDup(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	n := opcodes.DupN(opcode)
	if err := vm.Stack.Dup(n); err != nil {
		vm.Exit(StackUnderflow, nil)
		return nil, nil
	}
	src, _ := vm.Stack.Peek(n) // the duplicated original is now n deep from the new top
	return []evmstate.Frame{src}, stackTop(vm)
}

func opSwap(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	n := opcodes.SwapN(opcode)
	top, errTop := vm.Stack.Peek(0)
	other, errOther := vm.Stack.Peek(n)
	if err := vm.Stack.Swap(n); err != nil {
		vm.Exit(StackUnderflow, nil)
		return nil, nil
	}
	if errTop != nil || errOther != nil {
		return nil, nil
	}
	return []evmstate.Frame{top, other}, nil
}

func opPc(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	pcValue := new(uint256.Int).SetUint64(vm.PC - 1)
	_ = vm.pushDerived(opcode, pcValue)
	return nil, stackTop(vm)
}

func opMsize(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	size := new(uint256.Int).SetUint64(uint64(vm.Memory.Size()))
	_ = vm.pushDerived(opcode, size)
	return nil, stackTop(vm)
}

func opGas(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	remaining := new(uint256.Int).SetUint64(vm.GasRemaining)
	_ = vm.pushDerived(opcode, remaining)
	return nil, stackTop(vm)
}

func init() {
	register(opcodes.POP, opPop)
	for i := byte(opcodes.PUSH0); i <= opcodes.PUSH32; i++ {
		register(i, opPush)
	}
	for i := byte(opcodes.DUP1); i <= opcodes.DUP1+15; i++ {
		register(i, opDup)
	}
	for i := byte(opcodes.SWAP1); i <= opcodes.SWAP1+15; i++ {
		register(i, opSwap)
	}
	register(opcodes.PC, opPc)
	register(opcodes.MSIZE, opMsize)
	register(opcodes.GAS, opGas)
}
