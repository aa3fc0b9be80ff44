/*
Package lattice builds the word lattice of a sentence and finds its minimum
cost segmentation.

Nodes live in one slice; per-position index lists record which nodes start and
end at each rune offset. Edges are implicit: a node ending at offset i connects
to every node starting at i, with cost

	matrix[left.RightID][right.LeftID] + right.Cost

A Lattice belongs to the call that built it and is not safe for concurrent use.
*/
package lattice

import (
	"math"
	"unicode/utf8"

	"goya/dictionary"
	"goya/model"
)

type kind uint8

const (
	word kind = iota
	bos
	eos
)

const unreached = math.MaxInt64

// Node is one candidate word. Start and End are rune offsets, End exclusive.
type Node struct {
	ID      model.WordID
	Start   int
	End     int
	LeftID  int16
	RightID int16
	Cost    int16

	// Total is the minimum cost of reaching the end of this node from BOS,
	// set by Search. Prev is the index of the best predecessor or -1.
	Total int64
	Prev  int32

	kind kind
}

// Known reports whether the node is a dictionary word.
func (n *Node) Known() bool { return n.kind == word && n.ID.Known() }

// IsBOS reports whether n is the sentence start sentinel.
func (n *Node) IsBOS() bool { return n.kind == bos }

// IsEOS reports whether n is the sentence end sentinel.
func (n *Node) IsEOS() bool { return n.kind == eos }

// Lattice is the graph of candidate words over a text.
type Lattice struct {
	text    string
	offsets []int // byte offset of every rune position, len = runes+1
	nodes   []Node
	starts  [][]int32
	ends    [][]int32
	matrix  *dictionary.Matrix
	path    []int32
}

// Build enumerates every dictionary word and unknown-word candidate of text.
// Invalid UTF-8 bytes count as one position each.
func Build(d *dictionary.Dictionary, text string) *Lattice {
	runes := []rune(text)
	n := len(runes)
	l := &Lattice{
		text:    text,
		offsets: make([]int, 0, n+1),
		starts:  make([][]int32, n+1),
		ends:    make([][]int32, n+1),
		matrix:  d.Matrix,
	}
	// byte offset -> rune position, -1 inside a multi-byte rune
	pos := make([]int32, len(text)+1)
	for i := range pos {
		pos[i] = -1
	}
	for i := 0; i < len(text); {
		pos[i] = int32(len(l.offsets))
		l.offsets = append(l.offsets, i)
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	pos[len(text)] = int32(n)
	l.offsets = append(l.offsets, len(text))

	l.add(Node{kind: bos})
	var unk []dictionary.Candidate
	for start := 0; start < n; start++ {
		hasKnown := false
		base := l.offsets[start]
		d.Index.PrefixSearch(text[base:], func(size int, ids []model.WordID) {
			end := pos[base+size]
			if end < 0 {
				return
			}
			for _, id := range ids {
				e, ok := d.Vocabulary.Entry(id)
				if !ok {
					continue
				}
				hasKnown = true
				l.add(Node{ID: id, Start: start, End: int(end), LeftID: e.LeftID, RightID: e.RightID, Cost: e.Cost})
			}
		})
		unk = d.Unknown.Candidates(unk[:0], runes, start, hasKnown)
		for _, c := range unk {
			l.add(Node{ID: c.ID, Start: start, End: c.End, LeftID: c.Entry.LeftID, RightID: c.Entry.RightID, Cost: c.Entry.Cost})
		}
	}
	l.add(Node{Start: n, End: n, kind: eos})
	return l
}

func (l *Lattice) add(nd Node) {
	nd.Total = unreached
	nd.Prev = -1
	i := int32(len(l.nodes))
	l.nodes = append(l.nodes, nd)
	if nd.kind != bos {
		l.starts[nd.Start] = append(l.starts[nd.Start], i)
	}
	if nd.kind != eos {
		l.ends[nd.End] = append(l.ends[nd.End], i)
	}
}

// Parse builds the lattice of text and searches it.
func Parse(d *dictionary.Dictionary, text string) (*Lattice, error) {
	l := Build(d, text)
	if err := l.Search(); err != nil {
		return nil, err
	}
	return l, nil
}

// Text returns the input text.
func (l *Lattice) Text() string { return l.text }

// Len returns the number of rune positions of the text.
func (l *Lattice) Len() int { return len(l.offsets) - 1 }

// NumNodes returns the node count, BOS and EOS included.
func (l *Lattice) NumNodes() int { return len(l.nodes) }

// NumEdges returns the number of connectable node pairs.
func (l *Lattice) NumEdges() int {
	n := 0
	for i := range l.starts {
		n += len(l.ends[i]) * len(l.starts[i])
	}
	return n
}

// Node returns the i-th node.
func (l *Lattice) Node(i int) Node { return l.nodes[i] }

// StartingAt returns the nodes starting at rune offset i.
func (l *Lattice) StartingAt(i int) []Node { return l.collect(l.starts[i]) }

// EndingAt returns the nodes ending at rune offset i.
func (l *Lattice) EndingAt(i int) []Node { return l.collect(l.ends[i]) }

func (l *Lattice) collect(idx []int32) []Node {
	out := make([]Node, len(idx))
	for j, i := range idx {
		out[j] = l.nodes[i]
	}
	return out
}

// Surface returns the text covered by n.
func (l *Lattice) Surface(n Node) string {
	return l.text[l.offsets[n.Start]:l.offsets[n.End]]
}

func (l *Lattice) eos() *Node { return &l.nodes[len(l.nodes)-1] }
