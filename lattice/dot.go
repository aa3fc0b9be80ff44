package lattice

import (
	"fmt"
	"strconv"
	"strings"
)

// Dot renders the lattice as a Graphviz digraph: one vertex per node, one edge
// per connectable pair labelled with its cost. Best path vertices and edges
// are drawn bold once Search has run.
func (l *Lattice) Dot() string {
	onPath := make([]bool, len(l.nodes))
	for _, i := range l.path {
		onPath[i] = true
	}

	var b strings.Builder
	b.WriteString("digraph lattice {\n\trankdir=LR;\n\tsplines=polyline;\n\tnodesep=.05;\n\n")
	for i := range l.nodes {
		n := &l.nodes[i]
		var label, shape string
		switch n.kind {
		case bos:
			label, shape = "BOS", "doublecircle"
		case eos:
			label, shape = "EOS\n"+total(n), "doublecircle"
		default:
			label = fmt.Sprintf("%s\n%v\n%d (%s)", l.Surface(*n), n.ID, n.Cost, total(n))
			shape = "box"
			if !n.Known() {
				shape = "ellipse"
			}
		}
		fmt.Fprintf(&b, "\tn%d [label=%s shape=%s", i, strconv.Quote(label), shape)
		if onPath[i] {
			b.WriteString(" penwidth=3")
		}
		b.WriteString("];\n")
	}
	b.WriteString("\n")
	for pos := range l.starts {
		for _, li := range l.ends[pos] {
			left := &l.nodes[li]
			for _, ri := range l.starts[pos] {
				right := &l.nodes[ri]
				cost := int(l.matrix.Cost(left.RightID, right.LeftID)) + int(right.Cost)
				fmt.Fprintf(&b, "\tn%d -> n%d [label=\"%d\"", li, ri, cost)
				if onPath[ri] && right.Prev == li {
					b.WriteString(" penwidth=3")
				}
				b.WriteString("];\n")
			}
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func total(n *Node) string {
	if n.Total == unreached {
		return "-"
	}
	return strconv.FormatInt(n.Total, 10)
}
