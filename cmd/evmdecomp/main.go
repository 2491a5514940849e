// Command evmdecomp is a thin CLI shell around the analysis packages:
// disassembly, CFG rendering, decompilation to Solidity/Yul, and raw trace
// inspection. It does not fetch bytecode itself -- see BytecodeSource.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-evm/decomp/internal/cfg"
	"github.com/go-evm/decomp/internal/config"
	"github.com/go-evm/decomp/internal/decompile"
	"github.com/go-evm/decomp/internal/disasm"
	"github.com/go-evm/decomp/internal/emit"
	"github.com/go-evm/decomp/internal/ir"
	"github.com/go-evm/decomp/internal/resolver"
	"github.com/go-evm/decomp/internal/trace"
	"github.com/go-evm/decomp/internal/vm"
	"github.com/urfave/cli/v2"
)

// version is stamped into the emitters' banner comment.
const version = "0.1.0"

// BytecodeSource resolves a bytecode argument -- a hex literal, a file path,
// or (left to the caller to implement) a contract address fetched over
// JSON-RPC -- into raw bytes. The CLI itself only implements the hex/file
// cases; an RPC-backed implementation is the embedder's responsibility.
type BytecodeSource interface {
	Fetch(ctx context.Context, target string) ([]byte, error)
}

// localSource resolves "0x"-prefixed or bare hex literals, and otherwise
// reads target as a file whose contents are hex-decoded. It never touches
// the network: a "0x..." target is always decoded as bytecode, never
// treated as an address to fetch.
type localSource struct{}

func (localSource) Fetch(_ context.Context, target string) ([]byte, error) {
	if strings.HasPrefix(target, "0x") || strings.HasPrefix(target, "0X") {
		return hex.DecodeString(target[2:])
	}
	if looksLikeHex(target) {
		return hex.DecodeString(target)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("evmdecomp: %q is neither hex bytecode nor a readable file: %w", target, err)
	}
	return hex.DecodeString(strings.TrimSpace(string(data)))
}

func looksLikeHex(s string) bool {
	if len(s) == 0 || len(s)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func main() {
	if err := newApp(localSource{}).Run(os.Args); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "evmdecomp: %v\n", err)
		if errors.Is(err, errInvalidInput) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errInvalidInput = errors.New("invalid input")

func newApp(src BytecodeSource) *cli.App {
	app := cli.NewApp()
	app.Name = "evmdecomp"
	app.Version = version
	app.Usage = "symbolic EVM bytecode analysis: disassemble, decompile, graph, inspect"

	var (
		outputPath    string
		timeout       time.Duration
		skipResolving bool
		colorEdges    bool
		decimalPC     bool
		resolverURL   string
		workers       int
	)
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write result to `FILE` instead of stdout", Destination: &outputPath},
		&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "per-function exploration timeout", Destination: &timeout},
		&cli.BoolFlag{Name: "skip-resolving", Usage: "do not contact a signature resolver", Destination: &skipResolving},
		&cli.BoolFlag{Name: "color-edges", Usage: "colorize DOT edges by kind (cfg only)", Destination: &colorEdges},
		&cli.BoolFlag{Name: "decimal-counter", Usage: "print program counters in decimal instead of hex", Destination: &decimalPC},
		&cli.StringFlag{Name: "resolver-url", Value: resolver.DefaultFourByteBaseURL, Usage: "signature directory base URL", Destination: &resolverURL},
		&cli.IntFlag{Name: "workers", Usage: "worker pool size (0 = GOMAXPROCS)", Destination: &workers},
	}

	load := func(c *cli.Context) ([]byte, error) {
		if c.NArg() != 1 {
			return nil, fmt.Errorf("%w: expected exactly one BYTECODE argument", errInvalidInput)
		}
		code, err := src.Fetch(c.Context, c.Args().First())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidInput, err)
		}
		if len(code) == 0 {
			return nil, fmt.Errorf("%w: empty bytecode", errInvalidInput)
		}
		return code, nil
	}

	writeOut := func(c *cli.Context, body string) error {
		if outputPath == "" {
			_, err := io.WriteString(c.App.Writer, body)
			return err
		}
		return os.WriteFile(outputPath, []byte(body), 0o644)
	}

	tunables := func() config.Tunables {
		t := config.Default()
		t.PerFunctionTimeout = timeout
		t.Workers = workers
		return t
	}

	app.Commands = []*cli.Command{
		{
			Name:      "disassemble",
			Usage:     "print every instruction in BYTECODE",
			ArgsUsage: "BYTECODE",
			Action: func(c *cli.Context) error {
				code, err := load(c)
				if err != nil {
					return err
				}
				instrs := disasm.Disassemble(code)
				lines := disasm.FormatAll(instrs, decimalPC)
				return writeOut(c, strings.Join(lines, "\n")+"\n")
			},
		},
		{
			Name:      "cfg",
			Usage:     "render BYTECODE's control-flow graph as DOT",
			ArgsUsage: "BYTECODE",
			Action: func(c *cli.Context) error {
				code, err := load(c)
				if err != nil {
					return err
				}
				m := vm.New(code, 30_000_000, nil)
				root := trace.Explore(c.Context, m, tunables(), nil)
				graph := cfg.Build(root)
				return writeOut(c, graph.DOT(colorEdges))
			},
		},
		{
			Name:      "decompile",
			Usage:     "recover Solidity source for BYTECODE",
			ArgsUsage: "BYTECODE",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "yul", Usage: "emit Yul instead of Solidity"},
			},
			Action: func(c *cli.Context) error {
				code, err := load(c)
				if err != nil {
					return err
				}
				results, err := runDecompile(c, code, resolverURL, skipResolving, tunables())
				if err != nil {
					return err
				}
				irFuncs := collectIR(results)
				if c.Bool("yul") {
					return writeOut(c, emit.Yul(version, irFuncs))
				}
				return writeOut(c, emit.Solidity(version, irFuncs))
			},
		},
		{
			Name:      "decode",
			Usage:     "print discovered function selectors and inferred signatures",
			ArgsUsage: "BYTECODE",
			Action: func(c *cli.Context) error {
				code, err := load(c)
				if err != nil {
					return err
				}
				results, err := runDecompile(c, code, resolverURL, skipResolving, tunables())
				if err != nil {
					return err
				}
				var b strings.Builder
				for _, af := range results {
					fmt.Fprintf(&b, "%x %s\n", af.Selector, af.Function.Name)
				}
				return writeOut(c, b.String())
			},
		},
		{
			Name:      "dump",
			Usage:     "dump the raw exploration trace tree for BYTECODE",
			ArgsUsage: "BYTECODE",
			Action: func(c *cli.Context) error {
				code, err := load(c)
				if err != nil {
					return err
				}
				m := vm.New(code, 30_000_000, nil)
				root := trace.Explore(c.Context, m, tunables(), nil)
				var b strings.Builder
				dumpTrace(&b, root, 0, decimalPC)
				return writeOut(c, b.String())
			},
		},
		{
			Name:      "inspect",
			Usage:     "summarize pure/view/payable flags and notices per function",
			ArgsUsage: "BYTECODE",
			Action: func(c *cli.Context) error {
				code, err := load(c)
				if err != nil {
					return err
				}
				results, err := runDecompile(c, code, resolverURL, skipResolving, tunables())
				if err != nil {
					return err
				}
				var b strings.Builder
				for _, af := range results {
					fmt.Fprintf(&b, "%s  pure=%v view=%v payable=%v args=%d\n",
						af.Function.Name, af.Pure, af.View, af.Payable, len(af.Arguments))
					for _, n := range af.Notices {
						fmt.Fprintf(&b, "  note: %s\n", n)
					}
				}
				return writeOut(c, b.String())
			},
		},
	}

	return app
}

func runDecompile(c *cli.Context, code []byte, resolverURL string, skip bool, tunables config.Tunables) ([]*decompile.AnalyzedFunction, error) {
	var src resolver.Source
	if !skip {
		cached, err := resolver.NewCached(resolver.NewFourByteDirectory(resolverURL), resolver.DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		src = cached
	}
	return decompile.Decompile(c.Context, code, decompile.Options{
		Tunables: tunables,
		Resolver: src,
	})
}

func collectIR(results []*decompile.AnalyzedFunction) []ir.Function {
	out := make([]ir.Function, len(results))
	for i, af := range results {
		out[i] = af.Function
	}
	return out
}

func dumpTrace(b *strings.Builder, node *trace.VMTrace, depth int, decimal bool) {
	if node == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	entry := disasm.FormatPC(node.EntryPC, decimal)
	reason := node.TerminalReason
	if reason == "" {
		reason = "fork"
	}
	fmt.Fprintf(b, "%sentry=%s ops=%d gas=%d (%s)\n", indent, entry, len(node.Operations), node.GasUsed, reason)
	for _, child := range node.Children {
		dumpTrace(b, child, depth+1, decimal)
	}
}
