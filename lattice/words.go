package lattice

import "goya/model"

// Word is a node of the best path.
type Word struct {
	ID      model.WordID `json:"word_id"`
	Surface string       `json:"surface"`
	Start   int          `json:"start"`
	End     int          `json:"end"`
	Known   bool         `json:"is_known"`
	LeftID  int16        `json:"left_context_id"`
	RightID int16        `json:"right_context_id"`
	Cost    int16        `json:"cost"`
}

// BestWords returns the words of the best path in text order, sentinels
// excluded. The words partition the text.
func (l *Lattice) BestWords() []Word {
	if len(l.path) < 2 {
		return nil
	}
	out := make([]Word, 0, len(l.path)-2)
	for _, i := range l.path[1 : len(l.path)-1] {
		n := &l.nodes[i]
		out = append(out, Word{
			ID:      n.ID,
			Surface: l.Surface(*n),
			Start:   n.Start,
			End:     n.End,
			Known:   n.Known(),
			LeftID:  n.LeftID,
			RightID: n.RightID,
			Cost:    n.Cost,
		})
	}
	return out
}

// Wakachi returns the surfaces of BestWords.
func (l *Lattice) Wakachi() []string {
	words := l.BestWords()
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Surface
	}
	return out
}

// IDs returns the word ids of BestWords, for feature lookup.
func (l *Lattice) IDs() []model.WordID {
	words := l.BestWords()
	out := make([]model.WordID, len(words))
	for i, w := range words {
		out[i] = w.ID
	}
	return out
}
