package evmstate

import "github.com/holiman/uint256"

const (
	coldSloadGas   = 2100
	warmSloadGas   = 100
	sstoreSetGas   = 20000
	sstoreClearGas = 2900
)

// Storage models persistent and transient contract storage plus the
// per-execution access set used for warm/cold gas accounting.
type Storage struct {
	persistent map[uint256.Int]uint256.Int
	transient  map[uint256.Int]uint256.Int
	accessed   map[uint256.Int]struct{}
}

// NewStorage returns empty storage with a fresh (cold) access set.
func NewStorage() *Storage {
	return &Storage{
		persistent: make(map[uint256.Int]uint256.Int),
		transient:  make(map[uint256.Int]uint256.Int),
		accessed:   make(map[uint256.Int]struct{}),
	}
}

// Load reads a persistent storage slot, returning zero for unset slots.
func (s *Storage) Load(key uint256.Int) uint256.Int {
	return s.persistent[key]
}

// Store writes a persistent storage slot.
func (s *Storage) Store(key, value uint256.Int) {
	s.persistent[key] = value
}

// TLoad reads a transient storage slot.
func (s *Storage) TLoad(key uint256.Int) uint256.Int {
	return s.transient[key]
}

// TStore writes a transient storage slot. TLOAD/TSTORE never touch the
// access set and never cost memory expansion.
func (s *Storage) TStore(key, value uint256.Int) {
	s.transient[key] = value
}

// ClearTransient empties transient storage, as happens between top-level
// calls.
func (s *Storage) ClearTransient() {
	s.transient = make(map[uint256.Int]uint256.Int)
}

// AccessCost returns 100 if key was already touched this execution, else
// 2100, inserting key into the access set either way.
func (s *Storage) AccessCost(key uint256.Int) uint64 {
	if _, ok := s.accessed[key]; ok {
		return warmSloadGas
	}
	s.accessed[key] = struct{}{}
	return coldSloadGas
}

// StorageCost returns the SSTORE gas for writing value to key: the base
// write cost (20000 for nonzero, 2900 for zero) plus the warm/cold access
// cost.
func (s *Storage) StorageCost(key, value uint256.Int) uint64 {
	base := uint64(sstoreClearGas)
	if !value.IsZero() {
		base = sstoreSetGas
	}
	return base + s.AccessCost(key)
}

// Clone returns an independent copy for forking symbolic execution. The
// access set is cloned too, matching the spec's "per-VM, cloned on fork."
func (s *Storage) Clone() *Storage {
	clone := &Storage{
		persistent: make(map[uint256.Int]uint256.Int, len(s.persistent)),
		transient:  make(map[uint256.Int]uint256.Int, len(s.transient)),
		accessed:   make(map[uint256.Int]struct{}, len(s.accessed)),
	}
	for k, v := range s.persistent {
		clone.persistent[k] = v
	}
	for k, v := range s.transient {
		clone.transient[k] = v
	}
	for k := range s.accessed {
		clone.accessed[k] = struct{}{}
	}
	return clone
}
