package dictionary

import "goya/model"

// Entry is the cost information of one dictionary word. Surfaces are owned by
// the index; features live in the separate feature store.
type Entry struct {
	LeftID  int16
	RightID int16
	Cost    int16
}

// Vocabulary is indexed by known word id.
type Vocabulary []Entry

// Entry returns the entry of a known word id.
func (v Vocabulary) Entry(id model.WordID) (Entry, bool) {
	if !id.Known() || int(id) >= len(v) {
		return Entry{}, false
	}
	return v[id], true
}

// Matrix holds the connection cost between the right context id of a word and
// the left context id of the word that follows it.
type Matrix struct {
	rights int
	lefts  int
	costs  []int16 // row major by right id
}

// NewMatrix returns a zero matrix of rights x lefts.
func NewMatrix(rights, lefts int) *Matrix {
	return &Matrix{rights: rights, lefts: lefts, costs: make([]int16, rights*lefts)}
}

// Size returns the number of right and left context ids.
func (m *Matrix) Size() (rights, lefts int) { return m.rights, m.lefts }

// Set stores the cost of a right id followed by a left id.
func (m *Matrix) Set(right, left int, cost int16) {
	m.costs[right*m.lefts+left] = cost
}

// Cost returns the connection cost. Ids are validated at load time, so this
// does no range checking of its own beyond the slice bound.
func (m *Matrix) Cost(right, left int16) int16 {
	return m.costs[int(right)*m.lefts+int(left)]
}

func (m *Matrix) contains(right, left int16) bool {
	return right >= 0 && left >= 0 && int(right) < m.rights && int(left) < m.lefts
}
