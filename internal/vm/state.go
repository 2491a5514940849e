// Package vm implements the symbolic EVM interpreter: VM.Step executes one
// instruction over symbolic operand trees, enforcing gas semantics and
// emitting an Instruction record enriched with provenance.
package vm

import (
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/holiman/uint256"
)

// ExitCode mirrors spec.md's exit semantics: any non-Running value
// terminates the current symbolic path. VM-level failures are data, not
// exceptions: they show up here, never as a propagated error.
type ExitCode uint16

const (
	Running          ExitCode = 255
	Success          ExitCode = 0
	Revert           ExitCode = 1
	OutOfGas         ExitCode = 2
	StackUnderflow   ExitCode = 3
	StackOverflow    ExitCode = 4
	InvalidOpcode    ExitCode = 5
	FatalInvalid     ExitCode = 6
	InvalidJump      ExitCode = 790
	HaltStop         ExitCode = 10
)

// Log is one LOG0-LOG4 record.
type Log struct {
	Index  uint64
	Topics []uint256.Int
	Data   []byte
}

// Instruction records one executed opcode, enriched with the provenance
// trees of its inputs and outputs.
type Instruction struct {
	PC               uint64
	Opcode           byte
	Inputs           []uint256.Int
	Outputs          []uint256.Int
	InputOperations  []*opcodes.WrappedOp
	OutputOperations []*opcodes.WrappedOp
}

// State is the execution snapshot produced by every Step call.
type State struct {
	LastInstruction Instruction
	GasUsed         uint64
	GasRemaining    uint64
	Stack           *evmstate.Stack
	Memory          *evmstate.Memory
	Storage         *evmstate.Storage
	Events          []Log
}

// VM is the symbolic interpreter's mutable state for a single logical
// execution path. Forking (for JUMPI branches) clones a VM wholesale;
// operand trees are shared by reference so cloning is cheap.
type VM struct {
	Bytecode []byte
	PC       uint64

	GasRemaining uint64
	GasUsed      uint64

	Stack   *evmstate.Stack
	Memory  *evmstate.Memory
	Storage *evmstate.Storage

	Events     []Log
	ExitCode   ExitCode
	ReturnData []byte

	// Fault carries the typed evmstate error (GasError, MemoryError,
	// StackError) that produced a non-Running ExitCode, for diagnostics
	// only -- it never propagates as a Go error return, per the
	// fault-as-data discipline ExitCode already follows.
	Fault error

	AddressAccessSet map[uint256.Int]struct{}

	Calldata []byte
	Value    uint256.Int
	Caller   uint256.Int
	Origin   uint256.Int
}

// New constructs a VM ready to execute bytecode from PC 0 with the given
// starting gas and calldata.
func New(bytecode []byte, gasLimit uint64, calldata []byte) *VM {
	return &VM{
		Bytecode:         bytecode,
		GasRemaining:     gasLimit,
		Stack:            evmstate.NewStack(),
		Memory:           evmstate.NewMemory(),
		Storage:          evmstate.NewStorage(),
		ExitCode:         Running,
		AddressAccessSet: make(map[uint256.Int]struct{}),
		Calldata:         calldata,
	}
}

// Clone returns an independent VM suitable for forking symbolic execution
// at a JUMPI branch: stack, memory, storage, and the access set are all
// deep-enough-copied (operand trees stay shared by reference).
func (vm *VM) Clone() *VM {
	events := make([]Log, len(vm.Events))
	copy(events, vm.Events)

	access := make(map[uint256.Int]struct{}, len(vm.AddressAccessSet))
	for k := range vm.AddressAccessSet {
		access[k] = struct{}{}
	}

	return &VM{
		Bytecode:         vm.Bytecode,
		PC:               vm.PC,
		GasRemaining:     vm.GasRemaining,
		GasUsed:          vm.GasUsed,
		Stack:            vm.Stack.Clone(),
		Memory:           vm.Memory.Clone(),
		Storage:          vm.Storage.Clone(),
		Events:           events,
		ExitCode:         vm.ExitCode,
		ReturnData:       append([]byte(nil), vm.ReturnData...),
		AddressAccessSet: access,
		Calldata:         vm.Calldata,
		Value:            vm.Value,
		Caller:           vm.Caller,
		Origin:           vm.Origin,
		Fault:            vm.Fault,
	}
}

// Exit sets the exit code and return data, terminating the current path.
func (vm *VM) Exit(code ExitCode, returnData []byte) {
	vm.ExitCode = code
	vm.ReturnData = returnData
}

// Running reports whether the VM has not yet terminated.
func (vm *VM) Running() bool { return vm.ExitCode == Running }

// coldAccountAccessCost and warmAccountAccessCost are EIP-2929's access-list
// gas costs for touching an address outside the sender/recipient/precompile
// set: 2600 cold, 100 warm.
const (
	coldAccountAccessCost = 2600
	warmAccountAccessCost = 100
)

// addressAccessCost charges EIP-2929 warm/cold gas for touching addr
// (BALANCE, EXTCODESIZE, EXTCODECOPY, EXTCODEHASH, CALL-family), inserting
// it into the access set either way.
func (vm *VM) addressAccessCost(addr uint256.Int) uint64 {
	if _, ok := vm.AddressAccessSet[addr]; ok {
		return warmAccountAccessCost
	}
	vm.AddressAccessSet[addr] = struct{}{}
	return coldAccountAccessCost
}

// addressAccessSurcharge is the EXTRA gas owed on top of the warm baseline
// that BALANCE/EXTCODESIZE/EXTCODEHASH/EXTCODECOPY/the CALL family already
// charge statically: zero when warm, 2500 (2600 total) when cold.
func (vm *VM) addressAccessSurcharge(addr uint256.Int) uint64 {
	cost := vm.addressAccessCost(addr)
	if cost > warmAccountAccessCost {
		return cost - warmAccountAccessCost
	}
	return 0
}

// ConsumeGas charges cost against GasRemaining for the named opcode,
// terminating the path with OutOfGas if insufficient. It always advances
// GasUsed by the full cost (matching the Yellow Paper: a failed charge
// still consumes all remaining gas along that path). On failure it
// records the shortfall as an evmstate.GasError on vm.Fault -- diagnostic
// only, never returned as a Go error.
func (vm *VM) ConsumeGas(op string, cost uint64) {
	if cost > vm.GasRemaining {
		vm.Fault = evmstate.NewGasError(op, cost, vm.GasRemaining)
		vm.GasUsed += vm.GasRemaining
		vm.GasRemaining = 0
		vm.Exit(OutOfGas, nil)
		return
	}
	vm.GasRemaining -= cost
	vm.GasUsed += cost
}

// memCost charges the memory-expansion cost for accessing [offset, offset+size)
// under op, guarding the uint64 addition against overflow: an offset+size
// that wraps around is unpayable at any gas limit, so it terminates the path
// immediately as evmstate.MemoryError rather than silently charging for a
// wrapped, too-small region.
func (vm *VM) memCost(op string, offset, size uint64) uint64 {
	if size == 0 {
		return 0
	}
	if offset+size < offset {
		vm.Fault = evmstate.NewMemoryError(op, size, vm.Memory.Size(), int(offset))
		vm.Exit(OutOfGas, nil)
		return 0
	}
	return vm.Memory.ExpansionCost(offset, size)
}

// operandInput turns a stack frame into a WrappedOp input: the frame's own
// provenance tree if it has one, else a raw leaf of its concrete value.
func operandInput(f evmstate.Frame) opcodes.Input {
	if f.Op != nil {
		return opcodes.OpInput(f.Op)
	}
	return opcodes.RawInput(f.Value)
}

// pushDerived builds a WrappedOp from opcode+inputs and pushes (result, tree)
// onto the stack.
func (vm *VM) pushDerived(opcode byte, result *uint256.Int, inputs ...evmstate.Frame) error {
	ins := make([]opcodes.Input, len(inputs))
	for i, f := range inputs {
		ins[i] = operandInput(f)
	}
	return vm.Stack.Push(result, opcodes.New(opcode, ins))
}

func frameInputValues(frames []evmstate.Frame) []uint256.Int {
	out := make([]uint256.Int, len(frames))
	for i, f := range frames {
		out[i] = *f.Value
	}
	return out
}

func frameInputOps(frames []evmstate.Frame) []*opcodes.WrappedOp {
	out := make([]*opcodes.WrappedOp, len(frames))
	for i, f := range frames {
		out[i] = f.Op
	}
	return out
}
