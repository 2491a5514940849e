package evmstate

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// WordHash renders a 256-bit EVM word as the common.Hash geth itself uses
// for anything word-sized: storage slot keys, topic values, block/tx
// hashes. Display-only -- internal storage keys stay uint256.Int so map
// lookups don't pay a conversion on every access.
func WordHash(v uint256.Int) common.Hash {
	b := v.Bytes32()
	return common.BytesToHash(b[:])
}

// AddressValue extracts the low 20 bytes of a stack word as the
// common.Address it represents, per the EVM convention every
// address-producing opcode (ADDRESS, CALLER, ORIGIN, COINBASE, ...)
// already follows: the address occupies the low-order bytes of the word.
func AddressValue(v uint256.Int) common.Address {
	b := v.Bytes32()
	return common.BytesToAddress(b[12:])
}
