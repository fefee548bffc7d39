package flow

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// DOT renders the graph in Graphviz dot syntax. Each block node shows its
// offset range and first and last mnemonics; edge labels carry the edge
// kind, case values and caught types.
func DOT(g *Graph, title string) []byte {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	fmt.Fprintln(w, "digraph CFG {")
	fmt.Fprintln(w, "  rankdir=TB;")
	fmt.Fprintln(w, "  node [shape=box, fontname=\"monospace\"];")
	if title != "" {
		fmt.Fprintf(w, "  labelloc=\"t\";\n  label=\"%s\";\n", escapeDOT(title))
	}
	for _, blk := range g.Blocks {
		first := blk.Instructions[0].Op.String()
		last := blk.Last().Op.String()
		label := fmt.Sprintf("[%d,%d) insns=%d\\nfirst:%s\\nlast:%s",
			blk.Start, blk.End, len(blk.Instructions), first, last)
		fmt.Fprintf(w, "  n%d [label=\"%s\"];\n", blk.Start, escapeDOT(label))
	}
	for _, blk := range g.Blocks {
		for _, e := range blk.Out {
			fmt.Fprintf(w, "  n%d -> n%d [label=\"%s\"%s];\n", e.From, e.To, escapeDOT(edgeLabel(e)), edgeStyle(e))
		}
	}
	fmt.Fprintln(w, "}")
	w.Flush()
	return buf.Bytes()
}

func edgeLabel(e Edge) string {
	switch e.Kind {
	case EdgeSwitchCase:
		return fmt.Sprintf("case %d", e.CaseValue)
	case EdgeException:
		if e.CatchType != nil {
			return "catch " + e.CatchType.BinaryName
		}
		return "catch any"
	}
	return e.Kind.String()
}

func edgeStyle(e Edge) string {
	if e.Kind == EdgeException {
		return ", style=dashed"
	}
	return ""
}

func escapeDOT(s string) string {
	// Keep backslash sequences (like \n) intact so Graphviz can interpret
	// them; only escape double-quotes and literal newlines.
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
