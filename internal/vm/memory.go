package vm

import (
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/holiman/uint256"
)

func wordsFor(size uint64) uint64 {
	return (size + 31) / 32
}

func opMload(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	offsetFrame, ok := vm.pop1("MLOAD")
	if !ok {
		return nil, nil
	}
	offset := offsetFrame.Value.Uint64()
	vm.ConsumeGas(opcodes.Name(opcode), vm.memCost(opcodes.Name(opcode), offset, 32))
	if !vm.Running() {
		return []evmstate.Frame{offsetFrame}, nil
	}
	data := vm.Memory.Read(offset, 32)
	result := new(uint256.Int).SetBytes(data)
	_ = vm.pushDerived(opcode, result, offsetFrame)
	return []evmstate.Frame{offsetFrame}, stackTop(vm)
}

func opMstore(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	offsetFrame, value, ok := vm.pop2("MSTORE")
	if !ok {
		return nil, nil
	}
	offset := offsetFrame.Value.Uint64()
	vm.ConsumeGas(opcodes.Name(opcode), vm.memCost(opcodes.Name(opcode), offset, 32))
	if !vm.Running() {
		return []evmstate.Frame{offsetFrame, value}, nil
	}
	vm.Memory.Store(offset, 32, value.Value.Bytes())
	return []evmstate.Frame{offsetFrame, value}, nil
}

func opMstore8(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	offsetFrame, value, ok := vm.pop2("MSTORE8")
	if !ok {
		return nil, nil
	}
	offset := offsetFrame.Value.Uint64()
	vm.ConsumeGas(opcodes.Name(opcode), vm.memCost(opcodes.Name(opcode), offset, 1))
	if !vm.Running() {
		return []evmstate.Frame{offsetFrame, value}, nil
	}
	b := byte(value.Value.Uint64() & 0xff)
	vm.Memory.Store(offset, 1, []byte{b})
	return []evmstate.Frame{offsetFrame, value}, nil
}

func opMcopy(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	destFrame, srcFrame, sizeFrame, ok := vm.pop3("MCOPY")
	if !ok {
		return nil, nil
	}
	dest := destFrame.Value.Uint64()
	src := srcFrame.Value.Uint64()
	size := sizeFrame.Value.Uint64()

	hi := dest
	if src > hi {
		hi = src
	}
	expansion := vm.memCost(opcodes.Name(opcode), hi, size)
	words := wordsFor(size)
	var wordCost uint64
	if words > 0 {
		wordCost = 3*words - 3 // the 3 base units are already charged statically
	}
	vm.ConsumeGas(opcodes.Name(opcode), wordCost+expansion)
	if !vm.Running() {
		return []evmstate.Frame{destFrame, srcFrame, sizeFrame}, nil
	}

	data := vm.Memory.Read(src, size)
	vm.Memory.Store(dest, size, data)
	return []evmstate.Frame{destFrame, srcFrame, sizeFrame}, nil
}

func init() {
	register(opcodes.MLOAD, opMload)
	register(opcodes.MSTORE, opMstore)
	register(opcodes.MSTORE8, opMstore8)
	register(opcodes.MCOPY, opMcopy)
}
