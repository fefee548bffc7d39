// Package flow builds intraprocedural control flow graphs from decoded
// method bodies. Blocks are maximal straight-line instruction runs keyed by
// their entry offset; edges carry the reason control may transfer, including
// exceptional transfers derived from the method's handler table.
package flow

import (
	"fmt"
	"sort"

	"github.com/classflow/go-classflow/bytecode"
	"github.com/classflow/go-classflow/classfile"
)

// EdgeKind classifies how control reaches an edge's destination.
type EdgeKind int

const (
	// EdgeFallthrough is sequential execution into the next block.
	EdgeFallthrough EdgeKind = iota
	// EdgeBranchTaken is a jump, an unconditional goto or the taken side of
	// a conditional branch.
	EdgeBranchTaken
	// EdgeBranchNotTaken is the untaken side of a conditional branch.
	EdgeBranchNotTaken
	// EdgeSwitchCase is one matched case of a switch; the edge records the
	// matched value.
	EdgeSwitchCase
	// EdgeSwitchDefault is the default case of a switch.
	EdgeSwitchDefault
	// EdgeException is a transfer to an exception handler; the edge records
	// the caught type, nil meaning any throwable.
	EdgeException
)

var edgeKindNames = [...]string{
	EdgeFallthrough:    "fallthrough",
	EdgeBranchTaken:    "branch",
	EdgeBranchNotTaken: "branch-not-taken",
	EdgeSwitchCase:     "case",
	EdgeSwitchDefault:  "default",
	EdgeException:      "exception",
}

func (k EdgeKind) String() string {
	if int(k) < len(edgeKindNames) {
		return edgeKindNames[k]
	}
	return fmt.Sprintf("edgeKind(%d)", int(k))
}

// Edge is a directed transfer between two blocks, identified by their entry
// offsets.
type Edge struct {
	From bytecode.PC
	To   bytecode.PC
	Kind EdgeKind

	// CaseValue is the matched value when Kind is EdgeSwitchCase.
	CaseValue int32
	// CatchType is the handled class when Kind is EdgeException, nil for a
	// catch-all handler.
	CatchType *classfile.ClassRef
}

func (e Edge) String() string {
	switch e.Kind {
	case EdgeSwitchCase:
		return fmt.Sprintf("%d -%s(%d)-> %d", e.From, e.Kind, e.CaseValue, e.To)
	case EdgeException:
		caught := "any"
		if e.CatchType != nil {
			caught = e.CatchType.BinaryName
		}
		return fmt.Sprintf("%d -%s(%s)-> %d", e.From, e.Kind, caught, e.To)
	}
	return fmt.Sprintf("%d -%s-> %d", e.From, e.Kind, e.To)
}

// Block is a basic block: a run of instructions entered only at the first
// and left only after the last. End is the offset one past the block's final
// instruction.
type Block struct {
	Start bytecode.PC
	End   bytecode.PC

	Instructions []bytecode.Instruction
	Out          []Edge
	In           []Edge
}

// Last returns the block's final instruction.
func (b *Block) Last() *bytecode.Instruction {
	return &b.Instructions[len(b.Instructions)-1]
}

func (b *Block) String() string { return fmt.Sprintf("block@%d..%d", b.Start, b.End) }

// Graph is a method's control flow graph. Blocks are ordered by entry
// offset; the first block is always the method entry at offset 0.
type Graph struct {
	Blocks []*Block

	byStart map[bytecode.PC]int
}

// Entry returns the block at offset 0.
func (g *Graph) Entry() *Block { return g.Blocks[0] }

// Block returns the block whose entry offset is pc, or nil.
func (g *Graph) Block(pc bytecode.PC) *Block {
	if i, ok := g.byStart[pc]; ok {
		return g.Blocks[i]
	}
	return nil
}

// BlockAt returns the block whose range [Start, End) contains pc, or nil.
func (g *Graph) BlockAt(pc bytecode.PC) *Block {
	i := sort.Search(len(g.Blocks), func(i int) bool { return g.Blocks[i].End > pc })
	if i < len(g.Blocks) && g.Blocks[i].Start <= pc {
		return g.Blocks[i]
	}
	return nil
}

// Edges returns every edge in the graph in source block order.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, b := range g.Blocks {
		edges = append(edges, b.Out...)
	}
	return edges
}

// InvalidControlFlowError reports a branch target or exception handler range
// that does not resolve to a valid instruction boundary.
type InvalidControlFlowError struct {
	PC     bytecode.PC
	Reason string
}

func (e *InvalidControlFlowError) Error() string {
	return fmt.Sprintf("invalid control flow at pc %d: %s", e.PC, e.Reason)
}
