package vm

import (
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
)

// handlerFunc executes one opcode's semantics: it pops its own operands,
// computes gas and results, mutates the VM, and reports what it consumed
// and produced so Step can build the Instruction record. A handler may call
// vm.Exit directly (e.g. on stack underflow, invalid jump, out of gas); it
// must still return so Step can finish bookkeeping. vm.PC has already been
// advanced past the current instruction by the time the handler runs, so
// JUMP/JUMPI/PUSHn handlers simply overwrite it with the value they want.
type handlerFunc func(vm *VM, opcode byte) (consumed, produced []evmstate.Frame)

type jumpTable [256]handlerFunc

var table jumpTable

func register(op byte, h handlerFunc) { table[op] = h }

// Step executes the instruction at vm.PC, returning the resulting State.
// It never returns a non-nil error for VM-level conditions (underflow,
// overflow, invalid jump, invalid opcode, out of gas) -- those are
// reported only via vm.ExitCode, per spec.md's error-handling design. A
// non-nil error indicates a genuine internal invariant violation.
func (vm *VM) Step() (*State, error) {
	if !vm.Running() {
		return vm.snapshot(Instruction{}), nil
	}

	if vm.PC >= uint64(len(vm.Bytecode)) {
		vm.Exit(HaltStop, nil)
		return vm.snapshot(Instruction{}), nil
	}

	pc := vm.PC
	opcode := vm.Bytecode[pc]
	info := opcodes.Lookup(opcode)

	if !info.Defined {
		vm.Exit(FatalInvalid, nil)
		return vm.snapshot(Instruction{PC: pc, Opcode: opcode}), nil
	}

	vm.ConsumeGas(opcodes.Name(opcode), info.MinGas)
	if !vm.Running() {
		return vm.snapshot(Instruction{PC: pc, Opcode: opcode}), nil
	}

	handler := table[opcode]
	if handler == nil {
		vm.Exit(FatalInvalid, nil)
		return vm.snapshot(Instruction{PC: pc, Opcode: opcode}), nil
	}

	vm.PC++ // default: next instruction. PUSH/JUMP/JUMPI overwrite this.

	consumed, produced := handler(vm, opcode)

	instr := Instruction{
		PC:               pc,
		Opcode:           opcode,
		Inputs:           frameInputValues(consumed),
		Outputs:          frameInputValues(produced),
		InputOperations:  frameInputOps(consumed),
		OutputOperations: frameInputOps(produced),
	}
	return vm.snapshot(instr), nil
}

func (vm *VM) snapshot(instr Instruction) *State {
	return &State{
		LastInstruction: instr,
		GasUsed:         vm.GasUsed,
		GasRemaining:    vm.GasRemaining,
		Stack:           vm.Stack,
		Memory:          vm.Memory,
		Storage:         vm.Storage,
		Events:          vm.Events,
	}
}
