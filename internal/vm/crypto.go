package vm

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/holiman/uint256"
)

// opSha3 implements the SHA3 (Keccak256) opcode. Static gas of 30 is already
// charged by the jump table; this handler adds the per-word hashing cost
// plus memory expansion.
func opSha3(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	offsetFrame, sizeFrame, ok := vm.pop2("SHA3")
	if !ok {
		return nil, nil
	}
	offset := offsetFrame.Value.Uint64()
	size := sizeFrame.Value.Uint64()

	expansion := vm.memCost(opcodes.Name(opcode), offset, size)
	vm.ConsumeGas(opcodes.Name(opcode), 6*wordsFor(size)+expansion)
	if !vm.Running() {
		return []evmstate.Frame{offsetFrame, sizeFrame}, nil
	}

	data := vm.Memory.Read(offset, size)
	digest := crypto.Keccak256(data)
	result := new(uint256.Int).SetBytes(digest)
	_ = vm.pushDerived(opcode, result, offsetFrame, sizeFrame)
	return []evmstate.Frame{offsetFrame, sizeFrame}, stackTop(vm)
}

func init() {
	register(opcodes.SHA3, opSha3)
}
