package flow

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/classflow/go-classflow/bytecode"
	"github.com/classflow/go-classflow/classfile"
)

// Build constructs the control flow graph of a decoded method body. The
// instruction list must be non-empty; methods without a Code attribute have
// no graph.
func Build(code *classfile.Code) (*Graph, error) {
	return build(code.Instructions, code.Exceptions, bytecode.PC(len(code.Bytes)))
}

// BuildMethod builds the graph of m's body, or returns nil for abstract and
// native methods.
func BuildMethod(m *classfile.Method) (*Graph, error) {
	code := m.Code()
	if code == nil {
		return nil, nil
	}
	g, err := Build(code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}
	return g, nil
}

// builder carries the shared indexing state of one graph construction.
type builder struct {
	instructions []bytecode.Instruction
	codeEnd      bytecode.PC

	// instrIndex maps each instruction's offset to its position, which is
	// what makes "is this a valid target" a single lookup.
	instrIndex map[bytecode.PC]int
}

func build(instructions []bytecode.Instruction, handlers []classfile.ExceptionTableEntry, codeEnd bytecode.PC) (*Graph, error) {
	if len(instructions) == 0 {
		return nil, &InvalidControlFlowError{PC: 0, Reason: "empty instruction list"}
	}
	b := &builder{
		instructions: instructions,
		codeEnd:      codeEnd,
		instrIndex:   make(map[bytecode.PC]int, len(instructions)),
	}
	for i := range instructions {
		b.instrIndex[instructions[i].PC] = i
	}
	if err := b.checkHandlers(handlers); err != nil {
		return nil, err
	}
	leaders, err := b.collectLeaders(handlers)
	if err != nil {
		return nil, err
	}
	g := b.partition(leaders)
	if err := b.connect(g); err != nil {
		return nil, err
	}
	b.overlayExceptions(g, handlers)
	for _, blk := range g.Blocks {
		for _, e := range blk.Out {
			to := g.Block(e.To)
			to.In = append(to.In, e)
		}
	}
	return g, nil
}

// next returns the offset of the instruction following index i, which is the
// code end for the last instruction.
func (b *builder) next(i int) bytecode.PC {
	if i+1 < len(b.instructions) {
		return b.instructions[i+1].PC
	}
	return b.codeEnd
}

// checkTarget verifies that pc is the offset of a decoded instruction.
func (b *builder) checkTarget(from, pc bytecode.PC, what string) error {
	if _, ok := b.instrIndex[pc]; !ok {
		return &InvalidControlFlowError{PC: from, Reason: fmt.Sprintf("%s %d is not an instruction offset", what, pc)}
	}
	return nil
}

func (b *builder) checkHandlers(handlers []classfile.ExceptionTableEntry) error {
	for _, h := range handlers {
		if h.Start > h.End {
			return &InvalidControlFlowError{PC: h.Start, Reason: fmt.Sprintf("exception range [%d, %d) is inverted", h.Start, h.End)}
		}
		if err := b.checkTarget(h.Start, h.Handler, "exception handler"); err != nil {
			return err
		}
		if h.Start == h.End {
			// An empty range protects nothing; its bounds never partition a
			// block.
			continue
		}
		if err := b.checkTarget(h.Start, h.Start, "exception range start"); err != nil {
			return err
		}
		if h.End != b.codeEnd {
			if err := b.checkTarget(h.Start, h.End, "exception range end"); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectLeaders finds every block entry: the method entry, all branch and
// switch targets, every offset following a terminator, and all exception
// handler entries.
func (b *builder) collectLeaders(handlers []classfile.ExceptionTableEntry) (mapset.Set[bytecode.PC], error) {
	leaders := mapset.NewThreadUnsafeSet[bytecode.PC]()
	leaders.Add(b.instructions[0].PC)
	for i := range b.instructions {
		in := &b.instructions[i]
		for _, t := range b.targetsOf(in) {
			if err := b.checkTarget(in.PC, t, "branch target"); err != nil {
				return nil, err
			}
			leaders.Add(t)
		}
		if endsBlock(in.Op) {
			if next := b.next(i); next < b.codeEnd {
				leaders.Add(next)
			}
		}
	}
	for _, h := range handlers {
		leaders.Add(h.Handler)
	}
	return leaders, nil
}

// endsBlock reports whether no straight-line run may continue past the
// opcode: terminators plus the two-successor instructions.
func endsBlock(op bytecode.Opcode) bool {
	return op.IsTerminator() || op.IsConditionalBranch() || op.IsSubroutineJump()
}

// targetsOf returns every explicit jump target of an instruction.
func (b *builder) targetsOf(in *bytecode.Instruction) []bytecode.PC {
	op := in.Op
	switch {
	case op.IsConditionalBranch(), op.IsUnconditionalJump(), op.IsSubroutineJump():
		return []bytecode.PC{in.Target}
	case op.IsSwitch():
		targets := make([]bytecode.PC, 0, len(in.Targets)+1)
		targets = append(targets, in.Targets...)
		return append(targets, in.Default)
	}
	return nil
}

// partition splits the instruction list into blocks at the leader offsets.
func (b *builder) partition(leaders mapset.Set[bytecode.PC]) *Graph {
	starts := leaders.ToSlice()
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	g := &Graph{byStart: make(map[bytecode.PC]int, len(starts))}
	for i, start := range starts {
		end := b.codeEnd
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		lo := b.instrIndex[start]
		hi := len(b.instructions)
		if i+1 < len(starts) {
			hi = b.instrIndex[starts[i+1]]
		}
		g.byStart[start] = len(g.Blocks)
		g.Blocks = append(g.Blocks, &Block{
			Start:        start,
			End:          end,
			Instructions: b.instructions[lo:hi],
		})
	}
	return g
}

// connect derives each block's non-exceptional out-edges from its final
// instruction.
func (b *builder) connect(g *Graph) error {
	for _, blk := range g.Blocks {
		last := blk.Last()
		op := last.Op
		switch {
		case op.IsConditionalBranch():
			blk.Out = append(blk.Out, Edge{From: blk.Start, To: last.Target, Kind: EdgeBranchTaken})
			if err := b.fallInto(blk, EdgeBranchNotTaken); err != nil {
				return err
			}
		case op.IsUnconditionalJump():
			blk.Out = append(blk.Out, Edge{From: blk.Start, To: last.Target, Kind: EdgeBranchTaken})
		case op.IsSubroutineJump():
			// jsr pushes the return address and jumps; the matching ret is a
			// sink, so the post-call path is modeled as a direct successor.
			blk.Out = append(blk.Out, Edge{From: blk.Start, To: last.Target, Kind: EdgeBranchTaken})
			if err := b.fallInto(blk, EdgeFallthrough); err != nil {
				return err
			}
		case op.IsSwitch():
			for i, t := range last.Targets {
				blk.Out = append(blk.Out, Edge{From: blk.Start, To: t, Kind: EdgeSwitchCase, CaseValue: last.CaseValue(i)})
			}
			blk.Out = append(blk.Out, Edge{From: blk.Start, To: last.Default, Kind: EdgeSwitchDefault})
		case op.IsReturn(), op == bytecode.AThrow, op == bytecode.Ret:
			// No intraprocedural successors.
		default:
			if err := b.fallInto(blk, EdgeFallthrough); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) fallInto(blk *Block, kind EdgeKind) error {
	if blk.End >= b.codeEnd {
		return &InvalidControlFlowError{PC: blk.Last().PC, Reason: "execution falls off the end of the code"}
	}
	blk.Out = append(blk.Out, Edge{From: blk.Start, To: blk.End, Kind: kind})
	return nil
}

// overlayExceptions adds an edge to each handler from every block whose
// range intersects the handler's protected range.
func (b *builder) overlayExceptions(g *Graph, handlers []classfile.ExceptionTableEntry) {
	for _, h := range handlers {
		for _, blk := range g.Blocks {
			if blk.Start < h.End && h.Start < blk.End {
				blk.Out = append(blk.Out, Edge{From: blk.Start, To: h.Handler, Kind: EdgeException, CatchType: h.CatchType})
			}
		}
	}
}
