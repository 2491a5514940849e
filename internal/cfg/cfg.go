// Package cfg builds a control-flow graph from a trace tree, and renders it
// as Graphviz DOT.
package cfg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-evm/decomp/internal/evmstate"
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/go-evm/decomp/internal/trace"
	"github.com/go-evm/decomp/internal/vm"
)

// Node is one basic block: its text is the concatenation of each executed
// instruction's rendered assembly line. Node identity is the PC of the
// block's first instruction.
type Node struct {
	ID      int
	EntryPC uint64
	Text    string
}

// Edge connects two blocks. Label is "true"/"false" for either side of a
// JUMPI, or "" for an unconditional continuation.
type Edge struct {
	From, To int
	Label    string
}

// Graph is a directed multigraph of basic blocks.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// builder carries the per-run dedup state: PC-to-node-id and the set of
// edges already inserted. It is local to one Build call, never a package
// global, so concurrent builds for different functions never interfere.
type builder struct {
	graph     *Graph
	nodeByPC  map[uint64]int
	edgesSeen map[string]bool
}

// Build walks a trace tree in pre-order, producing one node per distinct
// block entry PC and one edge per distinct (parent, child, label) triple.
func Build(root *trace.VMTrace) *Graph {
	b := &builder{
		graph:     &Graph{},
		nodeByPC:  make(map[uint64]int),
		edgesSeen: make(map[string]bool),
	}
	b.walk(root, -1, "")
	return b.graph
}

func (b *builder) walk(node *trace.VMTrace, parent int, label string) {
	entryPC := uint64(0)
	if len(node.Operations) > 0 {
		entryPC = node.Operations[0].LastInstruction.PC
	}

	nodeID, exists := b.nodeByPC[entryPC]
	if !exists {
		nodeID = len(b.graph.Nodes)
		b.graph.Nodes = append(b.graph.Nodes, Node{
			ID:      nodeID,
			EntryPC: entryPC,
			Text:    renderBlock(node),
		})
		b.nodeByPC[entryPC] = nodeID
	}

	if parent >= 0 {
		key := fmt.Sprintf("%d->%d:%s", parent, nodeID, label)
		if !b.edgesSeen[key] {
			b.graph.Edges = append(b.graph.Edges, Edge{From: parent, To: nodeID, Label: label})
			b.edgesSeen[key] = true
		}
	}

	lastOpcode := byte(0)
	if n := len(node.Operations); n > 0 {
		lastOpcode = node.Operations[n-1].LastInstruction.Opcode
	}

	for _, child := range node.Children {
		childLabel := ""
		if lastOpcode == opcodes.JUMPI {
			childLabel = "false"
			if len(child.Operations) > 0 && child.Operations[0].LastInstruction.Opcode == opcodes.JUMPDEST {
				childLabel = "true"
			}
		}
		b.walk(child, nodeID, childLabel)
	}
}

// renderBlock concatenates the rendered assembly line of each operation in
// a trace node into the node's display text.
func renderBlock(node *trace.VMTrace) string {
	var b strings.Builder
	for _, state := range node.Operations {
		b.WriteString(renderLine(state.LastInstruction))
		b.WriteByte('\n')
	}
	return b.String()
}

// addressOpcodes are the opcodes whose single output word is an address,
// rendered with its canonical common.Address hex form rather than a raw
// 32-byte word.
var addressOpcodes = map[byte]bool{
	opcodes.ADDRESS:  true,
	opcodes.CALLER:   true,
	opcodes.ORIGIN:   true,
	opcodes.COINBASE: true,
}

func renderLine(instr vm.Instruction) string {
	name := opcodes.Name(instr.Opcode)
	line := fmt.Sprintf("%06x %s", instr.PC, name)
	switch {
	case strings.Contains(name, "PUSH") && len(instr.Outputs) > 0:
		line += " " + instr.Outputs[0].Hex()
	case addressOpcodes[instr.Opcode] && len(instr.Outputs) > 0:
		line += " " + evmstate.AddressValue(instr.Outputs[0]).Hex()
	case (instr.Opcode == opcodes.SLOAD || instr.Opcode == opcodes.SSTORE) && len(instr.Inputs) > 0:
		line += " slot=" + evmstate.WordHash(instr.Inputs[0]).Hex()
	}
	return line
}

// DOT renders the graph as a Graphviz digraph. When colorEdges is true,
// "true"/"false"-labelled edges are coloured green/red.
func (g *Graph) DOT(colorEdges bool) string {
	var b strings.Builder
	b.WriteString("digraph cfg {\n")
	b.WriteString("  node [shape=box,style=rounded,fontname=Helvetica];\n")
	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "  N%d [label=%s];\n", n.ID, quote(n.Text))
	}
	for _, e := range g.Edges {
		attrs := ""
		switch {
		case e.Label != "" && colorEdges:
			color := "red"
			if e.Label == "true" {
				color = "green"
			}
			attrs = fmt.Sprintf(" [label=%s,color=%s]", quote(e.Label), color)
		case e.Label != "":
			attrs = fmt.Sprintf(" [label=%s]", quote(e.Label))
		}
		fmt.Fprintf(&b, "  N%d -> N%d%s;\n", e.From, e.To, attrs)
	}
	b.WriteString("}\n")
	return b.String()
}

func quote(s string) string {
	return strconv.Quote(s)
}
