package vm

import (
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/holiman/uint256"
)

// opLog implements LOG0..LOG4. Static gas of 375*(topics+1) is already
// charged by the jump table; this handler adds the per-byte and expansion
// costs, then records the event.
func opLog(vm *VM, opcode byte) (c, p []evmstate.Frame) {
	n := opcodes.LogTopics(opcode)
	offsetFrame, sizeFrame, ok := vm.pop2("LOG")
	if !ok {
		return nil, nil
	}
	consumed := []evmstate.Frame{offsetFrame, sizeFrame}

	topicFrames, err := vm.Stack.PopN(n)
	if err != nil {
		vm.Exit(StackUnderflow, nil)
		return consumed, nil
	}
	consumed = append(consumed, topicFrames...)

	offset := offsetFrame.Value.Uint64()
	size := sizeFrame.Value.Uint64()

	vm.ConsumeGas(opcodes.Name(opcode), 8*size+vm.memCost(opcodes.Name(opcode), offset, size))
	if !vm.Running() {
		return consumed, nil
	}

	topics := make([]uint256.Int, n)
	for i, f := range topicFrames {
		topics[i] = *f.Value
	}
	data := vm.Memory.Read(offset, size)

	vm.Events = append(vm.Events, Log{
		Index:  uint64(len(vm.Events)),
		Topics: topics,
		Data:   data,
	})
	return consumed, nil
}

func init() {
	for op := byte(opcodes.LOG0); op <= opcodes.LOG0+4; op++ {
		register(op, opLog)
	}
}
