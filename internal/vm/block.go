package vm

import (
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
)

// block-context opcodes read values this interpreter has no chain to
// consult, so each pushes an opaque symbolic leaf tagged with its own
// opcode -- downstream passes recognize "this is block.timestamp" etc. from
// the WrappedOp tree without needing a concrete number.

func opBlockhash(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	blockNumber, ok := vm.pop1("BLOCKHASH")
	if !ok {
		return nil, nil
	}
	vm.pushOpaque(opcode, blockNumber)
	return []evmstate.Frame{blockNumber}, stackTop(vm)
}

func opBlobhash(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	index, ok := vm.pop1("BLOBHASH")
	if !ok {
		return nil, nil
	}
	vm.pushOpaque(opcode, index)
	return []evmstate.Frame{index}, stackTop(vm)
}

func opaqueNullary(opcode byte) handlerFunc {
	return func(vm *VM, op byte) (c, p []evmstate.Frame) {
		vm.pushOpaque(op)
		return nil, stackTop(vm)
	}
}

func init() {
	register(opcodes.BLOCKHASH, opBlockhash)
	register(opcodes.COINBASE, opaqueNullary(opcodes.COINBASE))
	register(opcodes.TIMESTAMP, opaqueNullary(opcodes.TIMESTAMP))
	register(opcodes.NUMBER, opaqueNullary(opcodes.NUMBER))
	register(opcodes.PREVRANDAO, opaqueNullary(opcodes.PREVRANDAO))
	register(opcodes.GASLIMIT, opaqueNullary(opcodes.GASLIMIT))
	register(opcodes.CHAINID, opaqueNullary(opcodes.CHAINID))
	register(opcodes.SELFBALANCE, opaqueNullary(opcodes.SELFBALANCE))
	register(opcodes.BASEFEE, opaqueNullary(opcodes.BASEFEE))
	register(opcodes.BLOBHASH, opBlobhash)
	register(opcodes.BLOBBASEFEE, opaqueNullary(opcodes.BLOBBASEFEE))
}
