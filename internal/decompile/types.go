// Package decompile orchestrates the full pipeline -- selector discovery,
// symbolic exploration, IR lowering and optimization, signature
// resolution -- into one AnalyzedFunction per discovered entry point.
package decompile

import (
	"fmt"

	"github.com/go-evm/decomp/internal/ir"
	"github.com/go-evm/decomp/internal/resolver"
	"github.com/go-evm/decomp/internal/trace"
	"github.com/holiman/uint256"
)

// CalldataFrame is one discovered function argument slot: its byte-mask
// width (narrowed by an AND the argument's value passes through, if any)
// and the ordered list of type heuristics that fired against it, e.g.
// "bool", "address", "bytes", accumulated as exploration proceeds.
type CalldataFrame struct {
	Slot         int
	ByteMaskSize int
	Heuristics   []string
}

// AnalyzedFunction is the per-selector result of running the pipeline: the
// discovered entry point, its inferred signature shape, its recovered and
// optimized IR, and any bookkeeping notices worth surfacing to a reader.
type AnalyzedFunction struct {
	Selector [4]byte
	EntryPC  uint64
	Fallback bool

	Arguments map[int]*CalldataFrame

	// MemorySlots records every distinct offset the function's body writes
	// to, in first-write order -- a coarse map of the function's working
	// memory layout, not a full points-to analysis.
	MemorySlots []uint64

	ReturnType ir.SolidityType

	// Events and Errors hold topic0/selector values observed in LOG and
	// REVERT-with-reason-data instructions respectively, keyed for
	// membership testing and deduplication across repeated visits.
	Events map[uint256.Int]struct{}
	Errors map[[4]byte]struct{}

	Pure    bool
	View    bool
	Payable bool

	Notices []string

	Trace    *trace.VMTrace
	Function ir.Function

	Resolved   *resolver.Candidate
	ResolvedOK bool
}

func newAnalyzedFunction(sel [4]byte, entryPC uint64, fallback bool) *AnalyzedFunction {
	return &AnalyzedFunction{
		Selector:  sel,
		EntryPC:   entryPC,
		Fallback:  fallback,
		Arguments: make(map[int]*CalldataFrame),
		Events:    make(map[uint256.Int]struct{}),
		Errors:    make(map[[4]byte]struct{}),
		Pure:      true,
		View:      true,
		Payable:   true,
	}
}

func (af *AnalyzedFunction) notice(format string, args ...any) {
	af.Notices = append(af.Notices, fmt.Sprintf(format, args...))
}

func (af *AnalyzedFunction) argument(slot int) *CalldataFrame {
	cf, ok := af.Arguments[slot]
	if !ok {
		cf = &CalldataFrame{Slot: slot}
		af.Arguments[slot] = cf
	}
	return cf
}

func (cf *CalldataFrame) addHeuristic(label string) {
	for _, h := range cf.Heuristics {
		if h == label {
			return
		}
	}
	cf.Heuristics = append(cf.Heuristics, label)
}
