package decompile

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/go-evm/decomp/internal/config"
	"github.com/go-evm/decomp/internal/ir"
	"github.com/go-evm/decomp/internal/ir/passes"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/go-evm/decomp/internal/resolver"
	"github.com/go-evm/decomp/internal/selectors"
	"github.com/go-evm/decomp/internal/trace"
	"github.com/go-evm/decomp/internal/vm"
	"golang.org/x/sync/errgroup"
)

// Options configures a Decompile run.
type Options struct {
	Tunables config.Tunables
	GasLimit uint64
	// Resolver is optional; when nil, functions keep their fallback naming
	// (Unresolved_<selector>, argN parameters).
	Resolver resolver.Source
	// MaxSteps bounds the synthetic dispatcher simulation used during
	// selector discovery; zero uses selectors.DefaultMaxSteps.
	MaxSteps int
}

// calldataSize is the total length of the synthetic calldata fed to
// exploration: the 4-byte selector followed by 32 zero-filled 32-byte
// argument slots, so reads of the first 32 argument slots stay inside the
// buffer rather than relying on the interpreter's zero-extension.
const calldataSize = 4 + 32*32

// Decompile runs the full pipeline over bytecode: selector discovery,
// symbolic exploration of each discovered entry point, CFG/IR lowering and
// optimization, and (if opts.Resolver is set) signature resolution. Each
// discovered function is analyzed by its own goroutine from a fixed-size
// pool, matching the one-VM-per-worker concurrency model.
func Decompile(ctx context.Context, bytecode []byte, opts Options) ([]*AnalyzedFunction, error) {
	if opts.Tunables == (config.Tunables{}) {
		opts.Tunables = config.Default()
	}
	if opts.GasLimit == 0 {
		opts.GasLimit = 30_000_000
	}

	start := time.Now()
	discovered := selectors.Discover(bytecode, opts.GasLimit, opts.MaxSteps)
	log.Info("decompile run starting", "bytecodeLen", len(bytecode), "selectors", len(discovered))
	results := make([]*AnalyzedFunction, len(discovered))

	workers := opts.Tunables.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, fn := range discovered {
		i, fn := i, fn
		g.Go(func() error {
			results[i] = analyzeFunction(gctx, bytecode, fn, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("decompile run failed", "elapsed", time.Since(start), "err", err)
		return nil, err
	}
	log.Info("decompile run finished", "elapsed", time.Since(start), "functions", len(results))
	return results, nil
}

// analyzeFunction explores fn's body from a fresh VM, accumulates the
// modifier/event/error/argument heuristics as it goes, lowers the
// resulting trace tree to IR, runs the optimization pipeline, and
// attempts signature resolution.
func analyzeFunction(ctx context.Context, bytecode []byte, fn selectors.Function, opts Options) *AnalyzedFunction {
	af := newAnalyzedFunction(fn.Selector, fn.EntryPC, fn.Fallback)

	calldata := make([]byte, calldataSize)
	copy(calldata, fn.Selector[:])

	m := vm.New(bytecode, opts.GasLimit, calldata)
	m.PC = fn.EntryPC

	handler := func(state *vm.State) {
		modifierHeuristic(af, state)
		eventHeuristic(af, state)
		errorHeuristic(af, state)
		argumentHeuristic(af, state)
		recordMemorySlot(af, state)
	}

	af.Trace = trace.Explore(ctx, m, opts.Tunables, handler)
	af.Function = buildIR(af)
	af.Function.Returns = make([]ir.SolidityType, returnArity(af.Function))

	resolveSignature(af, opts.Resolver)
	af.Function.Selector = &af.Selector
	af.Function.Fallback = af.Fallback
	af.Function.Pure = af.Pure
	af.Function.View = af.View
	af.Function.Payable = af.Payable
	af.Function.Name = af.displayName()
	af.Function.Params = af.inferredParams()
	af.Function.Visibility = ir.External

	// Params must be in place before the pipeline runs so InferTypes can
	// narrow them from the casts the bitmask-to-cast pass surfaces.
	af.Function = passes.Run(af.Function)

	if len(af.Function.Returns) > 0 {
		af.ReturnType = af.Function.Returns[0]
	}

	if af.Fallback {
		af.notice("fallback function: no selector matched the calldata dispatcher")
	}

	return af
}

// recordMemorySlot tracks the first time each memory-write offset is seen.
func recordMemorySlot(af *AnalyzedFunction, state *vm.State) {
	instr := state.LastInstruction
	var offset uint64
	switch instr.Opcode {
	case opcodes.MSTORE, opcodes.MSTORE8:
		if len(instr.Inputs) == 0 {
			return
		}
		offset = instr.Inputs[0].Uint64()
	default:
		return
	}
	for _, existing := range af.MemorySlots {
		if existing == offset {
			return
		}
	}
	af.MemorySlots = append(af.MemorySlots, offset)
}

// buildIR walks af.Trace in pre-order the same way cfg.Build does,
// producing one ir.Block per distinct entry PC, deduplicated identically
// so the block set used for emission matches the block set shown in any
// accompanying CFG diagram.
func buildIR(af *AnalyzedFunction) ir.Function {
	var blocks []*ir.Block
	seen := make(map[uint64]bool)

	var walk func(node *trace.VMTrace)
	walk = func(node *trace.VMTrace) {
		entryPC := af.EntryPC
		if len(node.Operations) > 0 {
			entryPC = node.Operations[0].LastInstruction.PC
		}
		if !seen[entryPC] {
			seen[entryPC] = true
			blocks = append(blocks, ir.LowerBlock(ir.Label(entryPC), node.Operations))
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	if af.Trace != nil {
		walk(af.Trace)
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Label < blocks[j].Label })
	return ir.Function{Blocks: blocks}
}

// returnArity reports the widest return-value count among the function's
// ReturnTerm terminators, used to size af.Function.Returns before
// InferTypes fills in a default type per slot.
func returnArity(f ir.Function) int {
	widest := 0
	for _, b := range f.Blocks {
		if b == nil {
			continue
		}
		if t, ok := b.Terminator.(ir.ReturnTerm); ok && len(t.Values) > widest {
			widest = len(t.Values)
		}
	}
	return widest
}

// resolveSignature asks src for candidates and ranks them against af's
// accumulated argument heuristics, keeping the top-ranked candidate whenever
// the source returns any; no minimum score applies.
func resolveSignature(af *AnalyzedFunction, src resolver.Source) {
	if src == nil || af.Fallback {
		return
	}
	candidates, err := src.Lookup(context.Background(), af.Selector)
	if err != nil || len(candidates) == 0 {
		return
	}
	h := resolver.Heuristics{ArgCount: len(af.Arguments)}
	for i := 0; i < len(af.Arguments); i++ {
		if cf, ok := af.Arguments[i]; ok && len(cf.Heuristics) > 0 {
			h.PerArg = append(h.PerArg, cf.Heuristics[0])
		} else {
			h.PerArg = append(h.PerArg, "")
		}
	}
	best, ok := resolver.Best(candidates, h)
	if !ok {
		return
	}
	af.Resolved = &best
	af.ResolvedOK = true
}

// displayName is the function's emitted name: "fallback" for the fallback
// function, otherwise the resolved candidate's name if one matched,
// otherwise the Unresolved_<selector> name.
func (af *AnalyzedFunction) displayName() string {
	if af.Fallback {
		return "fallback"
	}
	if af.ResolvedOK && af.Resolved != nil {
		return af.Resolved.Name
	}
	return resolver.Unresolved(af.Selector)
}

// inferredParams builds the function's parameter list in slot order, using
// the resolved candidate's declared types when available and falling back
// to the accumulated heuristic's best guess otherwise.
func (af *AnalyzedFunction) inferredParams() []ir.Param {
	slots := make([]int, 0, len(af.Arguments))
	for slot := range af.Arguments {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	params := make([]ir.Param, 0, len(slots))
	for _, slot := range slots {
		name := resolver.ArgName(slot)
		typ := ir.Uint256
		if af.ResolvedOK && af.Resolved != nil && slot < len(af.Resolved.Inputs) {
			typ = parseSolidityType(af.Resolved.Inputs[slot])
		} else if cf := af.Arguments[slot]; len(cf.Heuristics) > 0 {
			typ = heuristicType(cf.Heuristics[0])
		}
		params = append(params, ir.Param{Name: name, Type: typ})
	}
	return params
}

func heuristicType(label string) ir.SolidityType {
	switch label {
	case "bool":
		return ir.SolidityType{Kind: ir.KindBool}
	case "address":
		return ir.SolidityType{Kind: ir.KindAddress}
	case "bytes", "bytesN":
		return ir.SolidityType{Kind: ir.KindBytesDynamic}
	default:
		return ir.Uint256
	}
}

func parseSolidityType(name string) ir.SolidityType {
	switch name {
	case "address":
		return ir.SolidityType{Kind: ir.KindAddress}
	case "bool":
		return ir.SolidityType{Kind: ir.KindBool}
	case "bytes":
		return ir.SolidityType{Kind: ir.KindBytesDynamic}
	case "string":
		return ir.SolidityType{Kind: ir.KindString}
	default:
		return ir.Uint256
	}
}
