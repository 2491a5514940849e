package vm

import (
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/holiman/uint256"
)

// pushKnown pushes a concrete environment value with no operand inputs: the
// resulting WrappedOp is a bare opcode leaf, letting downstream analysis
// recognize "this came from CALLER" etc. without tracking a fake input.
func (vm *VM) pushKnown(opcode byte, value *uint256.Int) {
	_ = vm.pushDerived(opcode, value)
}

// pushOpaque is used for environment reads this interpreter cannot resolve
// concretely (external account state, block metadata): it still pushes a
// symbolic zero value wrapped in the opcode, preserving provenance for the
// emitters even though the concrete value is unknown.
func (vm *VM) pushOpaque(opcode byte, inputs ...evmstate.Frame) {
	_ = vm.pushDerived(opcode, new(uint256.Int), inputs...)
}

func opAddress(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	vm.pushOpaque(opcode)
	return nil, stackTop(vm)
}

func opBalance(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	addr, ok := vm.pop1("BALANCE")
	if !ok {
		return nil, nil
	}
	cost := vm.addressAccessSurcharge(*addr.Value)
	vm.ConsumeGas(opcodes.Name(opcode), cost)
	if !vm.Running() {
		return []evmstate.Frame{addr}, nil
	}
	vm.pushOpaque(opcode, addr)
	return []evmstate.Frame{addr}, stackTop(vm)
}

func opOrigin(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	vm.pushKnown(opcode, &vm.Origin)
	return nil, stackTop(vm)
}

func opCaller(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	vm.pushKnown(opcode, &vm.Caller)
	return nil, stackTop(vm)
}

func opCallvalue(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	vm.pushKnown(opcode, &vm.Value)
	return nil, stackTop(vm)
}

func opCalldataload(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	offsetFrame, ok := vm.pop1("CALLDATALOAD")
	if !ok {
		return nil, nil
	}
	offset := offsetFrame.Value.Uint64()
	var buf [32]byte
	if offset < uint64(len(vm.Calldata)) {
		copy(buf[:], vm.Calldata[offset:])
	}
	result := new(uint256.Int).SetBytes(buf[:])
	_ = vm.pushDerived(opcode, result, offsetFrame)
	return []evmstate.Frame{offsetFrame}, stackTop(vm)
}

func opCalldatasize(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	size := new(uint256.Int).SetUint64(uint64(len(vm.Calldata)))
	vm.pushKnown(opcode, size)
	return nil, stackTop(vm)
}

func opCalldatacopy(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	destFrame, offsetFrame, sizeFrame, ok := vm.pop3("CALLDATACOPY")
	if !ok {
		return nil, nil
	}
	dest := destFrame.Value.Uint64()
	offset := offsetFrame.Value.Uint64()
	size := sizeFrame.Value.Uint64()

	vm.ConsumeGas(opcodes.Name(opcode), 3*wordsFor(size)+vm.memCost(opcodes.Name(opcode), dest, size))
	if !vm.Running() {
		return []evmstate.Frame{destFrame, offsetFrame, sizeFrame}, nil
	}

	data := sliceWithZeroPad(vm.Calldata, offset, size)
	vm.Memory.Store(dest, size, data)
	return []evmstate.Frame{destFrame, offsetFrame, sizeFrame}, nil
}

func opCodesize(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	size := new(uint256.Int).SetUint64(uint64(len(vm.Bytecode)))
	vm.pushKnown(opcode, size)
	return nil, stackTop(vm)
}

func opCodecopy(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	destFrame, offsetFrame, sizeFrame, ok := vm.pop3("CODECOPY")
	if !ok {
		return nil, nil
	}
	dest := destFrame.Value.Uint64()
	offset := offsetFrame.Value.Uint64()
	size := sizeFrame.Value.Uint64()

	vm.ConsumeGas(opcodes.Name(opcode), 3*wordsFor(size)+vm.memCost(opcodes.Name(opcode), dest, size))
	if !vm.Running() {
		return []evmstate.Frame{destFrame, offsetFrame, sizeFrame}, nil
	}

	data := sliceWithZeroPad(vm.Bytecode, offset, size)
	vm.Memory.Store(dest, size, data)
	return []evmstate.Frame{destFrame, offsetFrame, sizeFrame}, nil
}

func opGasprice(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	vm.pushOpaque(opcode)
	return nil, stackTop(vm)
}

func opExtcodesize(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	addr, ok := vm.pop1("EXTCODESIZE")
	if !ok {
		return nil, nil
	}
	vm.ConsumeGas(opcodes.Name(opcode), vm.addressAccessSurcharge(*addr.Value))
	if !vm.Running() {
		return []evmstate.Frame{addr}, nil
	}
	vm.pushOpaque(opcode, addr)
	return []evmstate.Frame{addr}, stackTop(vm)
}

func opExtcodecopy(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	addr, destFrame, offsetFrame, sizeFrame := evmstate.Frame{}, evmstate.Frame{}, evmstate.Frame{}, evmstate.Frame{}
	var ok bool
	if addr, ok = vm.pop1("EXTCODECOPY"); !ok {
		return nil, nil
	}
	if destFrame, offsetFrame, ok = vm.pop2("EXTCODECOPY"); !ok {
		return []evmstate.Frame{addr}, nil
	}
	if sizeFrame, ok = vm.pop1("EXTCODECOPY"); !ok {
		return []evmstate.Frame{addr, destFrame, offsetFrame}, nil
	}

	dest := destFrame.Value.Uint64()
	size := sizeFrame.Value.Uint64()

	accessCost := vm.addressAccessSurcharge(*addr.Value)
	vm.ConsumeGas(opcodes.Name(opcode), accessCost+3*wordsFor(size)+vm.memCost(opcodes.Name(opcode), dest, size))
	if !vm.Running() {
		return []evmstate.Frame{addr, destFrame, offsetFrame, sizeFrame}, nil
	}

	// external code bytes are not modeled; the copied region reads as zero.
	vm.Memory.Store(dest, size, make([]byte, size))
	return []evmstate.Frame{addr, destFrame, offsetFrame, sizeFrame}, nil
}

func opReturndatasize(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	size := new(uint256.Int).SetUint64(uint64(len(vm.ReturnData)))
	vm.pushKnown(opcode, size)
	return nil, stackTop(vm)
}

func opReturndatacopy(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	destFrame, offsetFrame, sizeFrame, ok := vm.pop3("RETURNDATACOPY")
	if !ok {
		return nil, nil
	}
	dest := destFrame.Value.Uint64()
	offset := offsetFrame.Value.Uint64()
	size := sizeFrame.Value.Uint64()

	vm.ConsumeGas(opcodes.Name(opcode), 3*wordsFor(size)+vm.memCost(opcodes.Name(opcode), dest, size))
	if !vm.Running() {
		return []evmstate.Frame{destFrame, offsetFrame, sizeFrame}, nil
	}

	data := sliceWithZeroPad(vm.ReturnData, offset, size)
	vm.Memory.Store(dest, size, data)
	return []evmstate.Frame{destFrame, offsetFrame, sizeFrame}, nil
}

func opExtcodehash(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	addr, ok := vm.pop1("EXTCODEHASH")
	if !ok {
		return nil, nil
	}
	vm.ConsumeGas(opcodes.Name(opcode), vm.addressAccessSurcharge(*addr.Value))
	if !vm.Running() {
		return []evmstate.Frame{addr}, nil
	}
	vm.pushOpaque(opcode, addr)
	return []evmstate.Frame{addr}, stackTop(vm)
}

// sliceWithZeroPad returns size bytes starting at offset within src,
// zero-filling any portion that runs past the end (or starts past the end).
func sliceWithZeroPad(src []byte, offset, size uint64) []byte {
	out := make([]byte, size)
	if offset >= uint64(len(src)) {
		return out
	}
	end := offset + size
	if end > uint64(len(src)) {
		end = uint64(len(src))
	}
	copy(out, src[offset:end])
	return out
}

func init() {
	register(opcodes.ADDRESS, opAddress)
	register(opcodes.BALANCE, opBalance)
	register(opcodes.ORIGIN, opOrigin)
	register(opcodes.CALLER, opCaller)
	register(opcodes.CALLVALUE, opCallvalue)
	register(opcodes.CALLDATALOAD, opCalldataload)
	register(opcodes.CALLDATASIZE, opCalldatasize)
	register(opcodes.CALLDATACOPY, opCalldatacopy)
	register(opcodes.CODESIZE, opCodesize)
	register(opcodes.CODECOPY, opCodecopy)
	register(opcodes.GASPRICE, opGasprice)
	register(opcodes.EXTCODESIZE, opExtcodesize)
	register(opcodes.EXTCODECOPY, opExtcodecopy)
	register(opcodes.RETURNDATASIZE, opReturndatasize)
	register(opcodes.RETURNDATACOPY, opReturndatacopy)
	register(opcodes.EXTCODEHASH, opExtcodehash)
}
