package vm

import (
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/holiman/uint256"
)

func (vm *VM) pop1(op string) (evmstate.Frame, bool) {
	f, err := vm.Stack.Pop()
	if err != nil {
		vm.Exit(StackUnderflow, nil)
		return evmstate.Frame{}, false
	}
	return f, true
}

func (vm *VM) pop2(op string) (evmstate.Frame, evmstate.Frame, bool) {
	a, ok := vm.pop1(op)
	if !ok {
		return evmstate.Frame{}, evmstate.Frame{}, false
	}
	b, ok := vm.pop1(op)
	if !ok {
		return evmstate.Frame{}, evmstate.Frame{}, false
	}
	return a, b, true
}

func (vm *VM) pop3(op string) (evmstate.Frame, evmstate.Frame, evmstate.Frame, bool) {
	a, b, ok := vm.pop2(op)
	if !ok {
		return evmstate.Frame{}, evmstate.Frame{}, evmstate.Frame{}, false
	}
	c, ok := vm.pop1(op)
	if !ok {
		return evmstate.Frame{}, evmstate.Frame{}, evmstate.Frame{}, false
	}
	return a, b, c, true
}

func opAdd(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("ADD")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int).Add(a.Value, b.Value)
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opMul(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("MUL")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int).Mul(a.Value, b.Value)
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opSub(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("SUB")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int).Sub(a.Value, b.Value)
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opDiv(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("DIV")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int)
	if !b.Value.IsZero() {
		result.Div(a.Value, b.Value)
	}
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opSdiv(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("SDIV")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int)
	if !b.Value.IsZero() {
		result.SDiv(a.Value, b.Value)
	}
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opMod(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("MOD")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int)
	if !b.Value.IsZero() {
		result.Mod(a.Value, b.Value)
	}
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opSmod(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, ok := vm.pop2("SMOD")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int)
	if !b.Value.IsZero() {
		result.SMod(a.Value, b.Value)
	}
	_ = vm.pushDerived(opcode, result, a, b)
	return []evmstate.Frame{a, b}, stackTop(vm)
}

func opAddmod(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, m, ok := vm.pop3("ADDMOD")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int)
	if !m.Value.IsZero() {
		result.AddMod(a.Value, b.Value, m.Value)
	}
	_ = vm.pushDerived(opcode, result, a, b, m)
	return []evmstate.Frame{a, b, m}, stackTop(vm)
}

func opMulmod(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, b, m, ok := vm.pop3("MULMOD")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int)
	if !m.Value.IsZero() {
		result.MulMod(a.Value, b.Value, m.Value)
	}
	_ = vm.pushDerived(opcode, result, a, b, m)
	return []evmstate.Frame{a, b, m}, stackTop(vm)
}

func opExp(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	a, exponent, ok := vm.pop2("EXP")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int).Exp(a.Value, exponent.Value)

	// static gas (10) is already charged by the jump table; only the
	// per-exponent-byte surcharge is added here.
	byteLen := (exponent.Value.BitLen() + 7) / 8
	vm.ConsumeGas(opcodes.Name(opcode), 50*uint64(byteLen))
	if !vm.Running() {
		return []evmstate.Frame{a, exponent}, nil
	}

	_ = vm.pushDerived(opcode, result, a, exponent)
	return []evmstate.Frame{a, exponent}, stackTop(vm)
}

func opSignextend(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	b, x, ok := vm.pop2("SIGNEXTEND")
	if !ok {
		return nil, nil
	}
	result := new(uint256.Int)
	if b.Value.LtUint64(32) {
		result.ExtendSign(x.Value, b.Value)
	} else {
		result.Set(x.Value)
	}
	_ = vm.pushDerived(opcode, result, b, x)
	return []evmstate.Frame{b, x}, stackTop(vm)
}

// stackTop returns the single frame currently on top of the stack, wrapped
// for use as an Instruction's "produced" list. It is used by every handler
// that pushes exactly one result.
func stackTop(vm *VM) []evmstate.Frame {
	if vm.Stack.Size() == 0 {
		return nil
	}
	top, _ := vm.Stack.Peek(0)
	return []evmstate.Frame{top}
}

func init() {
	register(opcodes.ADD, opAdd)
	register(opcodes.MUL, opMul)
	register(opcodes.SUB, opSub)
	register(opcodes.DIV, opDiv)
	register(opcodes.SDIV, opSdiv)
	register(opcodes.MOD, opMod)
	register(opcodes.SMOD, opSmod)
	register(opcodes.ADDMOD, opAddmod)
	register(opcodes.MULMOD, opMulmod)
	register(opcodes.EXP, opExp)
	register(opcodes.SIGNEXTEND, opSignextend)
}
