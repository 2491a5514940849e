package vm

import (
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/holiman/uint256"
)

func boolResult(b bool) *uint256.Int {
	if b {
		return uint256.NewInt(1)
	}
	return uint256.NewInt(0)
}

func opLt(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("LT")
	if !ok {
		return nil, nil
	}
	result := boolResult(a.Value.Lt(b.Value))
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opGt(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("GT")
	if !ok {
		return nil, nil
	}
	result := boolResult(a.Value.Gt(b.Value))
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opSlt(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("SLT")
	if !ok {
		return nil, nil
	}
	result := boolResult(a.Value.Slt(b.Value))
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opSgt(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("SGT")
	if !ok {
		return nil, nil
	}
	result := boolResult(a.Value.Sgt(b.Value))
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opEq(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("EQ")
	if !ok {
		return nil, nil
	}
	result := boolResult(a.Value.Eq(b.Value))
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opIszero(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, ok := vm.pop1("ISZERO")
	if !ok {
		return nil, nil
	}
	result := boolResult(a.Value.IsZero())
	_ = vm.pushDerived(opcode, result, a)
	return []evmstate.Frame{a}, stackTop(vm)
}

func init() {
	register(opcodes.LT, opLt)
	register(opcodes.GT, opGt)
	register(opcodes.SLT, opSlt)
	register(opcodes.SGT, opSgt)
	register(opcodes.EQ, opEq)
	register(opcodes.ISZERO, opIszero)
}
