package opcodes

import (
	"strings"
	"sync/atomic"

	"github.com/holiman/uint256"
)

// Input is one argument to a WrappedOp: either a raw constant leaf or a
// pointer to the WrappedOp that produced it. Op is a pointer rather than a
// value so DUP/SWAP/clone share the subtree instead of copying it; Go's GC
// gives us the reference-counted-handle behaviour the design notes ask for
// without any manual bookkeeping.
type Input struct {
	Raw *uint256.Int
	Op  *WrappedOp
}

// RawInput builds a leaf Input from a concrete value.
func RawInput(v *uint256.Int) Input { return Input{Raw: v} }

// OpInput builds an Input that references another opcode's provenance.
func OpInput(op *WrappedOp) Input { return Input{Op: op} }

// Depth returns 0 for a raw leaf, or the depth of the wrapped op.
func (in Input) Depth() uint32 {
	if in.Op == nil {
		return 0
	}
	return in.Op.Depth()
}

func (in Input) String() string {
	if in.Op == nil {
		if in.Raw == nil {
			return "0"
		}
		return in.Raw.Hex()
	}
	return in.Op.String()
}

func (in Input) equal(other Input) bool {
	if (in.Op == nil) != (other.Op == nil) {
		return false
	}
	if in.Op != nil {
		return in.Op.Equal(other.Op)
	}
	switch {
	case in.Raw == nil && other.Raw == nil:
		return true
	case in.Raw == nil || other.Raw == nil:
		return false
	default:
		return in.Raw.Eq(other.Raw)
	}
}

// WrappedOp is a node in the operand provenance tree: the opcode that
// produced a value, and the (shared) trees of its inputs. It is immutable
// after construction; New is the only constructor. Depth is memoised on
// first read and the memoisation is invisible to Equal and String.
type WrappedOp struct {
	Opcode byte
	Inputs []Input

	cachedDepth atomic.Int32 // 0 = unset, else depth+1
}

// New constructs a WrappedOp. Cloning the result (copying the pointer) is
// O(1); callers needing a detached copy should use Clone, which resets the
// depth memoisation but shares the input subtrees.
func New(opcode byte, inputs []Input) *WrappedOp {
	return &WrappedOp{Opcode: opcode, Inputs: inputs}
}

// Clone returns a shallow copy with a fresh (unset) depth cache. Input
// subtrees are shared, not copied.
func (w *WrappedOp) Clone() *WrappedOp {
	if w == nil {
		return nil
	}
	inputs := make([]Input, len(w.Inputs))
	copy(inputs, w.Inputs)
	return &WrappedOp{Opcode: w.Opcode, Inputs: inputs}
}

// Depth returns 1 for a leaf-only node, else 1+max(child depth). The value
// is computed once and cached; repeated calls are O(1).
func (w *WrappedOp) Depth() uint32 {
	if w == nil {
		return 0
	}
	if cached := w.cachedDepth.Load(); cached != 0 {
		return uint32(cached - 1)
	}
	var max uint32
	for _, in := range w.Inputs {
		if d := in.Depth(); d > max {
			max = d
		}
	}
	depth := max + 1
	w.cachedDepth.CompareAndSwap(0, int32(depth)+1)
	return depth
}

// Equal performs full structural equality, ignoring the memoised depth.
func (w *WrappedOp) Equal(other *WrappedOp) bool {
	if w == other {
		return true
	}
	if w == nil || other == nil {
		return false
	}
	if w.Opcode != other.Opcode || len(w.Inputs) != len(other.Inputs) {
		return false
	}
	for i := range w.Inputs {
		if !w.Inputs[i].equal(other.Inputs[i]) {
			return false
		}
	}
	return true
}

// String renders "OPCODENAME(input1, input2, ...)", matching the
// stringification the loop-detection heuristics compare against.
func (w *WrappedOp) String() string {
	if w == nil {
		return "0"
	}
	var b strings.Builder
	b.WriteString(Name(w.Opcode))
	b.WriteByte('(')
	for i, in := range w.Inputs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(in.String())
	}
	b.WriteByte(')')
	return b.String()
}
