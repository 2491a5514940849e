package opcodes

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestWrappedOpDepthLeaf(t *testing.T) {
	leaf := New(PUSH1, []Input{RawInput(uint256.NewInt(1))})
	if d := leaf.Depth(); d != 1 {
		t.Errorf("Depth() = %d, want 1", d)
	}
	// repeated calls must be stable (memoisation is only a perf detail)
	if d := leaf.Depth(); d != 1 {
		t.Errorf("Depth() on second call = %d, want 1", d)
	}
}

func TestWrappedOpDepthNested(t *testing.T) {
	a := New(PUSH1, []Input{RawInput(uint256.NewInt(1))})
	b := New(PUSH1, []Input{RawInput(uint256.NewInt(2))})
	add := New(ADD, []Input{OpInput(a), OpInput(b)})
	mul := New(MUL, []Input{OpInput(add), RawInput(uint256.NewInt(3))})

	if d := mul.Depth(); d != 3 {
		t.Errorf("Depth() = %d, want 3", d)
	}
}

func TestWrappedOpEqualityIgnoresDepthCache(t *testing.T) {
	a := New(ADD, []Input{RawInput(uint256.NewInt(1)), RawInput(uint256.NewInt(2))})
	b := New(ADD, []Input{RawInput(uint256.NewInt(1)), RawInput(uint256.NewInt(2))})

	// force a's depth to be memoised before comparing
	_ = a.Depth()

	if !a.Equal(b) {
		t.Errorf("Equal() = false, want true")
	}
	if !b.Equal(a) {
		t.Errorf("Equal() should be symmetric")
	}

	c := New(ADD, []Input{RawInput(uint256.NewInt(1)), RawInput(uint256.NewInt(3))})
	if a.Equal(c) {
		t.Errorf("Equal() = true for differing inputs, want false")
	}
}

func TestWrappedOpCloneSharesInputs(t *testing.T) {
	leaf := New(PUSH1, []Input{RawInput(uint256.NewInt(9))})
	dup := New(DUP1, []Input{OpInput(leaf)})
	clone := dup.Clone()

	if !dup.Equal(clone) {
		t.Errorf("clone should be structurally equal to original")
	}
	if clone.Inputs[0].Op != leaf {
		t.Errorf("clone should share the input subtree by reference")
	}
}

func TestWrappedOpString(t *testing.T) {
	leaf := New(PUSH1, []Input{RawInput(uint256.NewInt(1))})
	add := New(ADD, []Input{OpInput(leaf), RawInput(uint256.NewInt(2))})

	want := "ADD(PUSH1(0x1), 0x2)"
	if got := add.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func BenchmarkWrappedOpDepth(b *testing.B) {
	leaf := New(PUSH1, []Input{RawInput(uint256.NewInt(1))})
	op := leaf
	for i := 0; i < 8; i++ {
		op = New(ADD, []Input{OpInput(op), OpInput(op)})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		op.Depth()
	}
}
