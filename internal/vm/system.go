package vm

import (
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/holiman/uint256"
)

// valueCallStipend is the extra gas EIP banked CALL/CALLCODE charge when a
// nonzero value accompanies the call (2300 of which is refunded to the
// callee as the "call stipend"; the net 9000 is what the caller pays).
const valueCallStipend = 9000

// createResult pushes an opaque value in place of the real deployed-contract
// address for CREATE/CREATE2: this interpreter never executes the child
// init code, so the address is unknowable and is represented as an opaque
// value carrying its own provenance instead of a fabricated concrete one.
func (vm *VM) createResult(opcode byte, inputs ...evmstate.Frame) {
	vm.pushOpaque(opcode, inputs...)
}

func opCreate(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	value, offsetFrame, sizeFrame, ok := vm.pop3("CREATE")
	if !ok {
		return nil, nil
	}
	offset := offsetFrame.Value.Uint64()
	size := sizeFrame.Value.Uint64()
	vm.ConsumeGas(opcodes.Name(opcode), vm.memCost(opcodes.Name(opcode), offset, size))
	if !vm.Running() {
		return []evmstate.Frame{value, offsetFrame, sizeFrame}, nil
	}
	vm.createResult(opcode, value, offsetFrame, sizeFrame)
	return []evmstate.Frame{value, offsetFrame, sizeFrame}, stackTop(vm)
}

func opCreate2(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	value, offsetFrame, sizeFrame, ok := vm.pop3("CREATE2")
	if !ok {
		return nil, nil
	}
	salt, ok := vm.pop1("CREATE2")
	if !ok {
		return []evmstate.Frame{value, offsetFrame, sizeFrame}, nil
	}
	offset := offsetFrame.Value.Uint64()
	size := sizeFrame.Value.Uint64()
	wordCost := 6 * wordsFor(size) // keccak256 over the init code for address derivation
	vm.ConsumeGas(opcodes.Name(opcode), wordCost+vm.memCost(opcodes.Name(opcode), offset, size))
	if !vm.Running() {
		return []evmstate.Frame{value, offsetFrame, sizeFrame, salt}, nil
	}
	vm.createResult(opcode, value, offsetFrame, sizeFrame, salt)
	return []evmstate.Frame{value, offsetFrame, sizeFrame, salt}, stackTop(vm)
}

// callLike runs the shared mechanics of CALL/CALLCODE/DELEGATECALL/STATICCALL:
// this interpreter never actually executes the callee, so it charges the
// access/transfer/expansion gas, zeroes the return-data buffer to an unknown
// size, and pushes a symbolic success flag carrying the call's own
// provenance (opcode + inputs).
func (vm *VM) callLike(opcode byte, hasValue bool, gas, addr evmstate.Frame, value *evmstate.Frame, argsOffset, argsSize, retOffset, retSize evmstate.Frame) {
	accessCost := vm.addressAccessSurcharge(*addr.Value)

	if hint, isPrecompile := opcodes.Precompile(byte(addr.Value.Uint64())); isPrecompile && addr.Value.IsUint64() && addr.Value.Uint64() <= 10 {
		accessCost = hint.MinGas
	}

	argOff := argsOffset.Value.Uint64()
	argSz := argsSize.Value.Uint64()
	retOff := retOffset.Value.Uint64()
	retSz := retSize.Value.Uint64()

	expansion := vm.memCost(opcodes.Name(opcode), argOff, argSz) + vm.memCost(opcodes.Name(opcode), retOff, retSz)

	cost := accessCost + expansion
	if hasValue && value != nil && !value.Value.IsZero() {
		cost += valueCallStipend
	}
	vm.ConsumeGas(opcodes.Name(opcode), cost)
	if !vm.Running() {
		return
	}

	inputs := []evmstate.Frame{gas, addr}
	if value != nil {
		inputs = append(inputs, *value)
	}
	inputs = append(inputs, argsOffset, argsSize, retOffset, retSize)

	result := new(uint256.Int).SetUint64(1) // optimistic success; unresolved without executing the callee
	_ = vm.pushDerived(opcode, result, inputs...)
	vm.ReturnData = nil
}

func opCall(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	gas, addr, ok := vm.pop2("CALL")
	if !ok {
		return nil, nil
	}
	value, ok := vm.pop1("CALL")
	if !ok {
		return []evmstate.Frame{gas, addr}, nil
	}
	argsOffset, argsSize, ok := vm.pop2("CALL")
	if !ok {
		return []evmstate.Frame{gas, addr, value}, nil
	}
	retOffset, retSize, ok := vm.pop2("CALL")
	if !ok {
		return []evmstate.Frame{gas, addr, value, argsOffset, argsSize}, nil
	}
	consumed := []evmstate.Frame{gas, addr, value, argsOffset, argsSize, retOffset, retSize}
	vm.callLike(opcode, true, gas, addr, &value, argsOffset, argsSize, retOffset, retSize)
	return consumed, stackTop(vm)
}

func opCallcode(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	gas, addr, ok := vm.pop2("CALLCODE")
	if !ok {
		return nil, nil
	}
	value, ok := vm.pop1("CALLCODE")
	if !ok {
		return []evmstate.Frame{gas, addr}, nil
	}
	argsOffset, argsSize, ok := vm.pop2("CALLCODE")
	if !ok {
		return []evmstate.Frame{gas, addr, value}, nil
	}
	retOffset, retSize, ok := vm.pop2("CALLCODE")
	if !ok {
		return []evmstate.Frame{gas, addr, value, argsOffset, argsSize}, nil
	}
	consumed := []evmstate.Frame{gas, addr, value, argsOffset, argsSize, retOffset, retSize}
	vm.callLike(opcode, true, gas, addr, &value, argsOffset, argsSize, retOffset, retSize)
	return consumed, stackTop(vm)
}

func opDelegatecall(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	gas, addr, ok := vm.pop2("DELEGATECALL")
	if !ok {
		return nil, nil
	}
	argsOffset, argsSize, ok := vm.pop2("DELEGATECALL")
	if !ok {
		return []evmstate.Frame{gas, addr}, nil
	}
	retOffset, retSize, ok := vm.pop2("DELEGATECALL")
	if !ok {
		return []evmstate.Frame{gas, addr, argsOffset, argsSize}, nil
	}
	consumed := []evmstate.Frame{gas, addr, argsOffset, argsSize, retOffset, retSize}
	vm.callLike(opcode, false, gas, addr, nil, argsOffset, argsSize, retOffset, retSize)
	return consumed, stackTop(vm)
}

func opStaticcall(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	gas, addr, ok := vm.pop2("STATICCALL")
	if !ok {
		return nil, nil
	}
	argsOffset, argsSize, ok := vm.pop2("STATICCALL")
	if !ok {
		return []evmstate.Frame{gas, addr}, nil
	}
	retOffset, retSize, ok := vm.pop2("STATICCALL")
	if !ok {
		return []evmstate.Frame{gas, addr, argsOffset, argsSize}, nil
	}
	consumed := []evmstate.Frame{gas, addr, argsOffset, argsSize, retOffset, retSize}
	vm.callLike(opcode, false, gas, addr, nil, argsOffset, argsSize, retOffset, retSize)
	return consumed, stackTop(vm)
}

func opReturn(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	offsetFrame, sizeFrame, ok := vm.pop2("RETURN")
	if !ok {
		return nil, nil
	}
	offset := offsetFrame.Value.Uint64()
	size := sizeFrame.Value.Uint64()
	vm.ConsumeGas(opcodes.Name(opcode), vm.memCost(opcodes.Name(opcode), offset, size))
	if !vm.Running() {
		return []evmstate.Frame{offsetFrame, sizeFrame}, nil
	}
	data := vm.Memory.Read(offset, size)
	vm.Exit(Success, data)
	return []evmstate.Frame{offsetFrame, sizeFrame}, nil
}

func opRevert(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	offsetFrame, sizeFrame, ok := vm.pop2("REVERT")
	if !ok {
		return nil, nil
	}
	offset := offsetFrame.Value.Uint64()
	size := sizeFrame.Value.Uint64()
	vm.ConsumeGas(opcodes.Name(opcode), vm.memCost(opcodes.Name(opcode), offset, size))
	if !vm.Running() {
		return []evmstate.Frame{offsetFrame, sizeFrame}, nil
	}
	data := vm.Memory.Read(offset, size)
	vm.Exit(Revert, data)
	return []evmstate.Frame{offsetFrame, sizeFrame}, nil
}

func opSelfdestruct(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	beneficiary, ok := vm.pop1("SELFDESTRUCT")
	if !ok {
		return nil, nil
	}
	// unlike BALANCE/EXTCODE*/CALL, SELFDESTRUCT's static 5000 gas carries no
	// warm-access baseline, so a cold beneficiary owes the full 2600.
	if vm.addressAccessCost(*beneficiary.Value) == coldAccountAccessCost {
		vm.ConsumeGas(opcodes.Name(opcode), coldAccountAccessCost)
	}
	if !vm.Running() {
		return []evmstate.Frame{beneficiary}, nil
	}
	vm.Exit(Success, nil)
	return []evmstate.Frame{beneficiary}, nil
}

func init() {
	register(opcodes.CREATE, opCreate)
	register(opcodes.CREATE2, opCreate2)
	register(opcodes.CALL, opCall)
	register(opcodes.CALLCODE, opCallcode)
	register(opcodes.DELEGATECALL, opDelegatecall)
	register(opcodes.STATICCALL, opStaticcall)
	register(opcodes.RETURN, opReturn)
	register(opcodes.REVERT, opRevert)
	register(opcodes.SELFDESTRUCT, opSelfdestruct)
}
