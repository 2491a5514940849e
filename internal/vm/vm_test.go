package vm

import (
	"testing"

	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
)

func run(t *testing.T, code []byte, gas uint64) *VM {
	t.Helper()
	m := New(code, gas, nil)
	for m.Running() {
		if _, err := m.Step(); err != nil {
			t.Fatalf("Step returned error: %v", err)
		}
	}
	return m
}

func TestPushMstoreReturn(t *testing.T) {
	// PUSH1 0x42 PUSH1 0x00 MSTORE PUSH1 0x20 PUSH1 0x00 RETURN
	code := []byte{
		opcodes.PUSH1, 0x42,
		opcodes.PUSH1, 0x00,
		opcodes.MSTORE,
		opcodes.PUSH1, 0x20,
		opcodes.PUSH1, 0x00,
		opcodes.RETURN,
	}
	m := run(t, code, 100000)
	if m.ExitCode != Success {
		t.Fatalf("exit code = %v, want Success", m.ExitCode)
	}
	if len(m.ReturnData) != 32 {
		t.Fatalf("return data length = %d, want 32", len(m.ReturnData))
	}
	if m.ReturnData[31] != 0x42 {
		t.Fatalf("return data low byte = %x, want 0x42", m.ReturnData[31])
	}
	if m.GasUsed+m.GasRemaining != 100000 {
		t.Errorf("gas invariant violated: used=%d remaining=%d", m.GasUsed, m.GasRemaining)
	}
}

func TestExpGasChargesPerByteOfExponent(t *testing.T) {
	// PUSH1 0x02 PUSH1 0x0a EXP -- 10**2 (the top of the stack is the base);
	// exponent 2 fits in one byte: 10 + 50*1
	code := []byte{
		opcodes.PUSH1, 0x02,
		opcodes.PUSH1, 0x0a,
		opcodes.EXP,
	}
	m := New(code, 100000, nil)
	for m.Running() {
		m.Step()
	}
	// 2 PUSH1 (3 each) + EXP static(10) + EXP dynamic(50*1=50) = 6+10+50=66
	want := uint64(3 + 3 + 10 + 50)
	if m.GasUsed != want {
		t.Errorf("gas used = %d, want %d", m.GasUsed, want)
	}
}

func TestJumpToNonJumpdestIsInvalid(t *testing.T) {
	code := []byte{
		opcodes.PUSH1, 0x05,
		opcodes.JUMP,
		opcodes.STOP,
		opcodes.STOP,
		opcodes.ADD, // byte 5: not a JUMPDEST
	}
	m := run(t, code, 100000)
	if m.ExitCode != InvalidJump {
		t.Errorf("exit code = %v, want InvalidJump", m.ExitCode)
	}
}

func TestJumpToValidDestination(t *testing.T) {
	code := []byte{
		opcodes.PUSH1, 0x04,
		opcodes.JUMP,
		opcodes.INVALID_OP,
		opcodes.JUMPDEST, // byte 4
		opcodes.STOP,
	}
	m := run(t, code, 100000)
	if m.ExitCode != Success {
		t.Errorf("exit code = %v, want Success", m.ExitCode)
	}
}

func TestJumpIntoPushImmediateIsInvalid(t *testing.T) {
	// the byte at offset 2 equals JUMPDEST's opcode but it's a PUSH2 immediate.
	code := []byte{
		opcodes.PUSH2, 0x00, opcodes.JUMPDEST,
		opcodes.PUSH1, 0x02,
		opcodes.JUMP,
	}
	m := run(t, code, 100000)
	if m.ExitCode != InvalidJump {
		t.Errorf("exit code = %v, want InvalidJump", m.ExitCode)
	}
}

func TestStackUnderflow(t *testing.T) {
	code := []byte{opcodes.ADD}
	m := run(t, code, 100000)
	if m.ExitCode != StackUnderflow {
		t.Errorf("exit code = %v, want StackUnderflow", m.ExitCode)
	}
}

func TestOutOfGas(t *testing.T) {
	code := []byte{opcodes.PUSH1, 0x01, opcodes.PUSH1, 0x01, opcodes.ADD}
	m := run(t, code, 5) // enough for one PUSH1, not the rest
	if m.ExitCode != OutOfGas {
		t.Errorf("exit code = %v, want OutOfGas", m.ExitCode)
	}
	if m.GasRemaining != 0 {
		t.Errorf("gas remaining = %d, want 0", m.GasRemaining)
	}
}

func TestSstoreWarmColdGas(t *testing.T) {
	// SSTORE the same key twice: first cold (20000+2100), then warm (20000+100).
	code := []byte{
		opcodes.PUSH1, 0x01, opcodes.PUSH1, 0x00, opcodes.SSTORE,
		opcodes.PUSH1, 0x02, opcodes.PUSH1, 0x00, opcodes.SSTORE,
	}
	m := run(t, code, 1000000)
	if m.ExitCode != HaltStop {
		t.Fatalf("exit code = %v, want HaltStop", m.ExitCode)
	}
	pushCost := uint64(4 * 3)
	sstoreCost := uint64(20000+2100) + uint64(20000+100)
	if m.GasUsed != pushCost+sstoreCost {
		t.Errorf("gas used = %d, want %d", m.GasUsed, pushCost+sstoreCost)
	}
}

func TestLogRecordsEvent(t *testing.T) {
	// MSTORE a word, then LOG1 that word with one topic.
	code := []byte{
		opcodes.PUSH1, 0x42, opcodes.PUSH1, 0x00, opcodes.MSTORE,
		opcodes.PUSH1, 0xaa, // topic
		opcodes.PUSH1, 0x20, opcodes.PUSH1, 0x00, // size, offset
		opcodes.LOG1,
	}
	m := run(t, code, 1000000)
	if m.ExitCode != HaltStop {
		t.Fatalf("exit code = %v, want HaltStop", m.ExitCode)
	}
	if len(m.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(m.Events))
	}
	ev := m.Events[0]
	if len(ev.Topics) != 1 || ev.Topics[0].Uint64() != 0xaa {
		t.Errorf("unexpected topics: %v", ev.Topics)
	}
	if len(ev.Data) != 32 || ev.Data[31] != 0x42 {
		t.Errorf("unexpected log data: %x", ev.Data)
	}
}

func TestStackTooDeepEventuallyOverflows(t *testing.T) {
	code := make([]byte, 0, 1030*2)
	for i := 0; i < 1030; i++ {
		code = append(code, opcodes.PUSH1, 0x01)
	}
	m := run(t, code, 100000000)
	if m.ExitCode != StackOverflow {
		t.Errorf("exit code = %v, want StackOverflow", m.ExitCode)
	}
}

func TestOutOfGasRecordsGasFault(t *testing.T) {
	code := []byte{opcodes.PUSH1, 0x01, opcodes.PUSH1, 0x01, opcodes.ADD}
	m := run(t, code, 5)
	gasErr, ok := m.Fault.(*evmstate.GasError)
	if !ok {
		t.Fatalf("Fault = %T, want *evmstate.GasError", m.Fault)
	}
	// 5 gas pays for the first PUSH1 (3); the second PUSH1 runs out.
	if gasErr.Op != "PUSH1" {
		t.Errorf("Fault.Op = %q, want PUSH1", gasErr.Op)
	}
}

func TestMstoreOverflowingOffsetRecordsMemoryFault(t *testing.T) {
	// push the value, then an offset of 0xff..ff (8 bytes): offset+32
	// overflows uint64, which must fault rather than wrap to a tiny,
	// cheaply-payable region.
	code := []byte{opcodes.PUSH1, 0x01, opcodes.PUSH1 + 7} // PUSH8
	code = append(code, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
	code = append(code, opcodes.MSTORE)
	m := run(t, code, 1000000)
	if m.ExitCode != OutOfGas {
		t.Fatalf("exit code = %v, want OutOfGas", m.ExitCode)
	}
	if _, ok := m.Fault.(*evmstate.MemoryError); !ok {
		t.Fatalf("Fault = %T, want *evmstate.MemoryError", m.Fault)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	code := []byte{opcodes.PUSH1, 0x01, opcodes.PUSH1, 0x02}
	m := New(code, 100000, nil)
	m.Step()
	clone := m.Clone()
	m.Step()
	if clone.Stack.Size() != 1 {
		t.Fatalf("clone stack size = %d, want 1", clone.Stack.Size())
	}
	if m.Stack.Size() != 2 {
		t.Fatalf("original stack size = %d, want 2", m.Stack.Size())
	}
}
