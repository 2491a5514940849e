// Package trace drives the symbolic interpreter through all reachable
// branches of a function, forking at conditional jumps and applying
// loop-detection heuristics to keep exploration finite.
package trace

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/go-evm/decomp/internal/config"
	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/go-evm/decomp/internal/vm"
)

// VMTrace is one node of the exploration tree: the straight-line run of
// operations from a fork point (or the function entry) up to its next
// branch or terminal instruction, plus the children produced by any
// JUMPI fork.
type VMTrace struct {
	EntryPC    uint64
	GasUsed    uint64
	Operations []*vm.State
	Children   []*VMTrace
	// TerminalReason records why this node stopped growing: "terminated"
	// or "timeout". Empty for an internal (forked) node. A loop-cutoff does
	// not end a node: the path continues down the fall-through side.
	TerminalReason string
}

// Handler receives every State as it's produced, in execution order. The
// decompiler wires this to update an AnalyzedFunction's heuristics and
// emit IR lines; a nil handler is valid and simply means "don't observe".
type Handler func(state *vm.State)

// stackSignature is a cheap, comparable summary of a stack used for the
// loop-detection heuristics: one string per frame.
type stackSignature []string

func signatureOf(s *evmstate.Stack) stackSignature {
	frames := s.Frames()
	sig := make(stackSignature, len(frames))
	for i, f := range frames {
		if f.Op != nil {
			sig[i] = f.Op.String()
		} else {
			sig[i] = f.Value.Hex()
		}
	}
	return sig
}

// explorer carries the state shared across one top-level Explore call:
// the historical stacks seen at each PC, the tunables, the handler, and
// the deadline.
type explorer struct {
	tunables   config.Tunables
	handler    Handler
	deadline   time.Time
	historical map[uint64][]stackSignature
}

// Explore runs the exploration driver starting from vm0's current PC,
// forking at every JUMPI unless a loop-detection heuristic fires. ctx
// cancellation truncates the current path early, same as the wall-clock
// timeout.
func Explore(ctx context.Context, vm0 *vm.VM, tunables config.Tunables, handler Handler) *VMTrace {
	e := &explorer{
		tunables:   tunables,
		handler:    handler,
		deadline:   time.Now().Add(tunables.PerFunctionTimeout),
		historical: make(map[uint64][]stackSignature),
	}
	return e.run(ctx, vm0)
}

func (e *explorer) run(ctx context.Context, m *vm.VM) *VMTrace {
	node := &VMTrace{EntryPC: m.PC}

	for {
		select {
		case <-ctx.Done():
			log.Warn("exploration truncated: context cancelled", "entryPC", node.EntryPC, "pc", m.PC)
			node.TerminalReason = "timeout"
			return node
		default:
		}
		if time.Now().After(e.deadline) {
			log.Warn("exploration truncated: per-function timeout exceeded", "entryPC", node.EntryPC, "pc", m.PC, "budget", e.tunables.PerFunctionTimeout)
			node.TerminalReason = "timeout"
			return node
		}

		pc := m.PC
		opcode := byte(0)
		if pc < uint64(len(m.Bytecode)) {
			opcode = m.Bytecode[pc]
		}

		isJumpi := m.Running() && opcode == opcodes.JUMPI
		var condFrame, destFrame evmstate.Frame
		var haveCond bool
		if isJumpi {
			// peek (don't pop) so Step still sees a normal stack to consume.
			if f, err := m.Stack.Peek(0); err == nil {
				destFrame = f
			}
			if f, err := m.Stack.Peek(1); err == nil {
				condFrame = f
				haveCond = true
			}
		}

		state, err := m.Step()
		if err != nil {
			node.TerminalReason = "terminated"
			return node
		}
		node.Operations = append(node.Operations, state)
		node.GasUsed = state.GasUsed
		if e.handler != nil {
			e.handler(state)
		}

		if !isJumpi {
			if !m.Running() {
				node.TerminalReason = "terminated"
				return node
			}
			continue
		}

		// A JUMPI was just executed. m's PC already reflects whichever side
		// (if any) the concrete interpreter took; here we decide whether to
		// ALSO explore the other side by forking from a snapshot taken
		// before Step ran -- but since Step already mutated m in place, we
		// reconstruct both continuations from the pre-step destination and
		// fall-through PCs captured above.
		if !m.Running() {
			// invalid jump destination: nothing more to explore on this path.
			node.TerminalReason = "terminated"
			return node
		}

		fallthroughPC := pc + 1
		takenPC := destFrame.Value.Uint64()

		hist := e.historical[pc]
		suspectLoop := haveCond && e.isSuspectedLoop(m.Stack, condFrame, hist)
		e.historical[pc] = append(hist, signatureOf(m.Stack))

		if suspectLoop {
			log.Warn("loop-cutoff heuristic fired: forcing fall-through", "pc", pc, "visits", len(hist))
			// follow only the side the concrete VM already took if that's
			// the fall-through; otherwise force fall-through by rewinding.
			if m.PC == takenPC {
				m.PC = fallthroughPC
			}
			continue
		}

		if !m.ValidJumpDest(takenPC) {
			// the destination is never a legal jump target; only the
			// fall-through side is reachable.
			if m.PC != fallthroughPC {
				m.PC = fallthroughPC
			}
			continue
		}

		// Fork: explore the fall-through from a clone, and continue this
		// VM down the taken side (or vice versa; the concrete VM already
		// landed on one side after Step, so clone for the other).
		var takenVM, notTakenVM *vm.VM
		if m.PC == takenPC {
			takenVM = m
			notTakenVM = m.Clone()
			notTakenVM.PC = fallthroughPC
		} else {
			notTakenVM = m
			takenVM = m.Clone()
			takenVM.PC = takenPC
		}

		takenChild := e.run(ctx, takenVM)
		notTakenChild := e.run(ctx, notTakenVM)
		node.Children = append(node.Children, takenChild, notTakenChild)
		return node
	}
}

// isSuspectedLoop evaluates the heuristics named in the exploration
// driver's design: any single heuristic firing aborts the fork.
func (e *explorer) isSuspectedLoop(stack *evmstate.Stack, cond evmstate.Frame, hist []stackSignature) bool {
	t := e.tunables

	if stack.Size() > t.MaxStackSize {
		return true
	}

	frames := stack.Frames()
	if stackRepetitionCount(frames) > t.MaxStackRepetition {
		return true
	}

	for _, f := range frames {
		if f.Op != nil && f.Op.Depth() > t.MaxOperandDepth {
			return true
		}
	}

	condStr := ""
	if cond.Op != nil {
		condStr = cond.Op.String()
	} else {
		condStr = cond.Value.Hex()
	}

	if len(hist) > 0 {
		diff := stackDiff(signatureOf(stack), hist[len(hist)-1])
		for _, d := range diff {
			if d != "" && strings.Contains(condStr, d) {
				return true
			}
		}
		if conditionReferencesMutatedSlot(condStr, diff) {
			return true
		}
	}

	if len(hist) >= t.MinHistoricalStacks {
		if approximateHistoricalEquivalence(signatureOf(stack), hist, t.ApproxDivisor) {
			return true
		}
	}

	return false
}

// stackRepetitionCount returns the size of the largest group of frames
// sharing the same stringified provenance.
func stackRepetitionCount(frames []evmstate.Frame) int {
	counts := make(map[string]int, len(frames))
	best := 0
	for _, f := range frames {
		key := f.Value.Hex()
		if f.Op != nil {
			key = f.Op.String()
		}
		counts[key]++
		if counts[key] > best {
			best = counts[key]
		}
	}
	return best
}

// stackDiff returns the frames present in current but not in historical,
// by position-independent string comparison, approximating "what changed".
func stackDiff(current, historical stackSignature) []string {
	histSet := make(map[string]struct{}, len(historical))
	for _, h := range historical {
		histSet[h] = struct{}{}
	}
	var diff []string
	for _, c := range current {
		if _, ok := histSet[c]; !ok {
			diff = append(diff, c)
		}
	}
	return diff
}

// conditionReferencesMutatedSlot reports whether the condition's string
// form mentions a memory/storage accessor (SLOAD, MLOAD) whose argument
// also appears among the diffed frames, i.e. the branch depends on a slot
// the loop body itself writes.
func conditionReferencesMutatedSlot(condStr string, diff []string) bool {
	if !strings.Contains(condStr, "SLOAD") && !strings.Contains(condStr, "MLOAD") {
		return false
	}
	for _, d := range diff {
		if d == "" {
			continue
		}
		if strings.Contains(condStr, d) && (strings.Contains(d, "SSTORE") || strings.Contains(d, "MSTORE")) {
			return true
		}
	}
	return false
}

// approximateHistoricalEquivalence implements the "approximate historical
// equivalence" heuristic: with enough historical visits to this PC, if the
// current stack's pairwise difference from every recent historical stack
// is small and they share a leading (topmost) value, treat this as a loop
// back-edge rather than genuinely new state.
func approximateHistoricalEquivalence(current stackSignature, hist []stackSignature, divisor int) bool {
	bound := int(math.Ceil(float64(len(current)) / float64(divisor)))
	if bound < 1 {
		bound = 1
	}
	for _, h := range hist {
		if len(current) == 0 || len(h) == 0 || current[len(current)-1] != h[len(h)-1] {
			return false
		}
		if symmetricDiffSize(current, h) > bound {
			return false
		}
	}
	return true
}

func symmetricDiffSize(a, b stackSignature) int {
	bSet := make(map[string]int, len(b))
	for _, v := range b {
		bSet[v]++
	}
	diff := 0
	for _, v := range a {
		if bSet[v] > 0 {
			bSet[v]--
		} else {
			diff++
		}
	}
	for _, remaining := range bSet {
		diff += remaining
	}
	return diff
}

// String renders a compact human-readable summary of the trace tree, one
// line per node, indented by depth.
func (t *VMTrace) String() string {
	var b strings.Builder
	t.write(&b, 0)
	return b.String()
}

func (t *VMTrace) write(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%sentry=%d ops=%d gas=%d", indent, t.EntryPC, len(t.Operations), t.GasUsed)
	if t.TerminalReason != "" {
		fmt.Fprintf(b, " (%s)", t.TerminalReason)
	}
	b.WriteByte('\n')
	for _, c := range t.Children {
		c.write(b, depth+1)
	}
}
