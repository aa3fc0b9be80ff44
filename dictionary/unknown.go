package dictionary

import (
	"fmt"

	"goya/model"
)

// Candidate is a synthetic unknown word starting at the position passed to
// Candidates. End is a rune offset, exclusive.
type Candidate struct {
	End   int
	ID    model.WordID
	Entry Entry
}

// UnknownModel turns runs of classified characters into unknown words. Entry k
// has id model.UnknownWordID(k).
type UnknownModel struct {
	Classes *CharClassifier
	entries []Entry
	classOf []int
	byClass [][]model.WordID
}

// NewUnknownModel returns a model without entries.
func NewUnknownModel(classes *CharClassifier) *UnknownModel {
	return &UnknownModel{
		Classes: classes,
		byClass: make([][]model.WordID, len(classes.Classes())),
	}
}

// Add registers an unknown entry for the named class.
func (u *UnknownModel) Add(class string, e Entry) (model.WordID, error) {
	cls, ok := u.Classes.Lookup(class)
	if !ok {
		return 0, fmt.Errorf("unknown entry for undefined class %s", class)
	}
	return u.add(cls.ID, e), nil
}

func (u *UnknownModel) add(class int, e Entry) model.WordID {
	id := model.UnknownWordID(len(u.entries))
	u.entries = append(u.entries, e)
	u.classOf = append(u.classOf, class)
	u.byClass[class] = append(u.byClass[class], id)
	return id
}

// Len returns the number of unknown entries.
func (u *UnknownModel) Len() int { return len(u.entries) }

// Entry returns the entry of an unknown word id.
func (u *UnknownModel) Entry(id model.WordID) (Entry, bool) {
	if id.Known() || id.UnknownIndex() >= len(u.entries) {
		return Entry{}, false
	}
	return u.entries[id.UnknownIndex()], true
}

// ClassOf returns the class an unknown word id was registered for.
func (u *UnknownModel) ClassOf(id model.WordID) (*CharClass, bool) {
	if id.Known() || id.UnknownIndex() >= len(u.entries) {
		return nil, false
	}
	return &u.Classes.classes[u.classOf[id.UnknownIndex()]], true
}

func (u *UnknownModel) idsFor(cls *CharClass) []model.WordID {
	if ids := u.byClass[cls.ID]; len(ids) > 0 {
		return ids
	}
	return u.byClass[u.Classes.def]
}

// Candidates appends the unknown words starting at text[start]. Nothing is
// produced when a known word starts there, unless the class is invoked
// unconditionally. Otherwise at least one span is produced for every entry of
// the class (or of DEFAULT when the class has none).
func (u *UnknownModel) Candidates(dst []Candidate, text []rune, start int, hasKnown bool) []Candidate {
	if start >= len(text) {
		return dst
	}
	cls := u.Classes.Classify(text[start])
	if hasKnown && !cls.Invoke {
		return dst
	}
	ids := u.idsFor(cls)

	limit := len(text) - start
	if cls.Group {
		n := cls.Length
		if n == 0 {
			n = MaxGroupLength
		}
		limit = min(limit, n)
	} else {
		limit = min(limit, max(cls.Length, 1))
	}
	run := 1
	for run < limit && u.Classes.Continues(text[start+run], cls.ID) {
		run++
	}

	emit := func(n int) {
		for _, id := range ids {
			dst = append(dst, Candidate{End: start + n, ID: id, Entry: u.entries[id.UnknownIndex()]})
		}
	}
	if cls.Group {
		emit(run)
		return dst
	}
	for n := 1; n <= run; n++ {
		emit(n)
	}
	return dst
}
