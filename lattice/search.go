package lattice

import (
	"fmt"

	"goya/model"
)

// Search runs the forward pass and records the best path. Among predecessors
// with equal cost the winner is, in order: a known word over an unknown one,
// the lower word id, the earlier start. The outcome therefore depends only on
// the dictionary contents, not on the order candidates were enumerated in.
func (l *Lattice) Search() error {
	for i := range l.nodes {
		l.nodes[i].Total = unreached
		l.nodes[i].Prev = -1
	}
	l.nodes[0].Total = 0
	l.path = nil

	for pos := range l.starts {
		for _, ri := range l.starts[pos] {
			right := &l.nodes[ri]
			best := int32(-1)
			var bestCost int64
			for _, li := range l.ends[pos] {
				left := &l.nodes[li]
				if left.Total == unreached {
					continue
				}
				c := left.Total + int64(l.matrix.Cost(left.RightID, right.LeftID))
				if best < 0 || c < bestCost || (c == bestCost && l.before(li, best)) {
					best, bestCost = li, c
				}
			}
			if best >= 0 {
				right.Prev = best
				right.Total = bestCost + int64(right.Cost)
			}
		}
	}

	end := l.eos()
	if end.Prev < 0 {
		return fmt.Errorf("%w: %d positions, %d nodes", model.ErrNoPath, l.Len(), len(l.nodes))
	}
	var rev []int32
	for i := int32(len(l.nodes) - 1); i >= 0; i = l.nodes[i].Prev {
		rev = append(rev, i)
	}
	l.path = make([]int32, len(rev))
	for i, v := range rev {
		l.path[len(rev)-1-i] = v
	}
	return nil
}

// before reports whether node a wins a cost tie against node b.
func (l *Lattice) before(a, b int32) bool {
	na, nb := &l.nodes[a], &l.nodes[b]
	if na.ID.Known() != nb.ID.Known() {
		return na.ID.Known()
	}
	if na.ID != nb.ID {
		if na.ID.Known() {
			return na.ID < nb.ID
		}
		return na.ID.UnknownIndex() < nb.ID.UnknownIndex()
	}
	return na.Start < nb.Start
}

// Searched reports whether a best path is available.
func (l *Lattice) Searched() bool { return l.path != nil }

// Path returns the best path from BOS to EOS, or nil before Search.
func (l *Lattice) Path() []Node {
	if l.path == nil {
		return nil
	}
	return l.collect(l.path)
}

// TotalCost returns the cost of the best path.
func (l *Lattice) TotalCost() int64 {
	if l.path == nil {
		return 0
	}
	return l.eos().Total
}
