package vm

import (
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
)

// warmBaseline is the static gas already charged by the jump table for
// SLOAD/SSTORE (the warm-access price); handlers only need to charge the
// difference when the slot turns out to be cold.
const warmBaseline = 100

func opSload(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	keyFrame, ok := vm.pop1("SLOAD")
	if !ok {
		return nil, nil
	}
	cost := vm.Storage.AccessCost(*keyFrame.Value)
	if cost > warmBaseline {
		vm.ConsumeGas(opcodes.Name(opcode), cost-warmBaseline)
	}
	if !vm.Running() {
		return []evmstate.Frame{keyFrame}, nil
	}
	value := vm.Storage.Load(*keyFrame.Value)
	_ = vm.pushDerived(opcode, &value, keyFrame)
	return []evmstate.Frame{keyFrame}, stackTop(vm)
}

func opSstore(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	keyFrame, valueFrame, ok := vm.pop2("SSTORE")
	if !ok {
		return nil, nil
	}
	cost := vm.Storage.StorageCost(*keyFrame.Value, *valueFrame.Value)
	if cost > warmBaseline {
		vm.ConsumeGas(opcodes.Name(opcode), cost-warmBaseline)
	}
	if !vm.Running() {
		return []evmstate.Frame{keyFrame, valueFrame}, nil
	}
	vm.Storage.Store(*keyFrame.Value, *valueFrame.Value)
	return []evmstate.Frame{keyFrame, valueFrame}, nil
}

func opTload(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	keyFrame, ok := vm.pop1("TLOAD")
	if !ok {
		return nil, nil
	}
	value := vm.Storage.TLoad(*keyFrame.Value)
	_ = vm.pushDerived(opcode, &value, keyFrame)
	return []evmstate.Frame{keyFrame}, stackTop(vm)
}

func opTstore(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	keyFrame, valueFrame, ok := vm.pop2("TSTORE")
	if !ok {
		return nil, nil
	}
	vm.Storage.TStore(*keyFrame.Value, *valueFrame.Value)
	return []evmstate.Frame{keyFrame, valueFrame}, nil
}

func init() {
	register(opcodes.SLOAD, opSload)
	register(opcodes.SSTORE, opSstore)
	register(opcodes.TLOAD, opTload)
	register(opcodes.TSTORE, opTstore)
}
