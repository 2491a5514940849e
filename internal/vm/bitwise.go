package vm

import (
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/holiman/uint256"
)

func opAnd(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("AND")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int).And(a.Value, b.Value)
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opOr(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("OR")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int).Or(a.Value, b.Value)
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opXor(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("XOR")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int).Xor(a.Value, b.Value)
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opNot(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, ok := vm.pop1("NOT")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int).Not(a.Value)
	_ = vm.pushDerived(opcode, result, a)
	return []evmstate.Frame{a}, stackTop(vm)
}

func opByte(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	i, x, ok := vm.pop2("BYTE")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int).Set(x.Value)
	result.Byte(i.Value)
	_ = vm.pushDerived(opcode, result, i, x)
	return []evmstate.Frame{i, x}, stackTop(vm)
}

func opShl(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	shift, value, ok := vm.pop2("SHL")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int)
	if shift.Value.LtUint64(256) {
		result.Lsh(value.Value, uint(shift.Value.Uint64()))
	}
	_ = vm.pushDerived(opcode, result, shift, value)
	return []evmstate.Frame{shift, value}, stackTop(vm)
}

func opShr(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	shift, value, ok := vm.pop2("SHR")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int)
	if shift.Value.LtUint64(256) {
		result.Rsh(value.Value, uint(shift.Value.Uint64()))
	}
	_ = vm.pushDerived(opcode, result, shift, value)
	return []evmstate.Frame{shift, value}, stackTop(vm)
}

func opSar(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	shift, value, ok := vm.pop2("SAR")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int).SRsh(value.Value, clampShift(shift.Value))
	_ = vm.pushDerived(opcode, result, shift, value)
	return []evmstate.Frame{shift, value}, stackTop(vm)
}

// clampShift saturates a shift amount >= 256 down to 256, which SRsh treats
// as "shift out everything, preserving sign".
func clampShift(shift *uint256.Int) uint {
	if shift.LtUint64(256) {
		return uint(shift.Uint64())
	}
	return 256
}

func init() {
	register(opcodes.AND, opAnd)
	register(opcodes.OR, opOr)
	register(opcodes.XOR, opXor)
	register(opcodes.NOT, opNot)
	register(opcodes.BYTE, opByte)
	register(opcodes.SHL, opShl)
	register(opcodes.SHR, opShr)
	register(opcodes.SAR, opSar)
}
