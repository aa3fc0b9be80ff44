package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// WordID identifies a dictionary entry. Known words are indexes into the
// vocabulary and the feature table; unknown-word entries synthesized from
// character classes use negative ids, entry k being -(k+1).
type WordID int32

// UnknownWordID returns the id of the k-th unknown-word entry.
func UnknownWordID(k int) WordID { return WordID(-(k + 1)) }

// Known reports whether the id refers to a vocabulary entry.
func (id WordID) Known() bool { return id >= 0 }

// UnknownIndex returns k for an id built by UnknownWordID.
func (id WordID) UnknownIndex() int { return int(-id) - 1 }

func (id WordID) String() string {
	if id.Known() {
		return strconv.Itoa(int(id))
	}
	return "unk:" + strconv.Itoa(id.UnknownIndex())
}

// ParseWordID reads the forms String produces: a decimal id, or "unk:k" for
// the k-th unknown-word entry. Plain negative ids are accepted as well.
func ParseWordID(s string) (WordID, error) {
	if k, ok := strings.CutPrefix(s, "unk:"); ok {
		n, err := strconv.ParseInt(k, 10, 32)
		if err != nil || n < 0 || n >= math.MaxInt32 {
			return 0, fmt.Errorf("invalid unknown word id %q", s)
		}
		return UnknownWordID(int(n)), nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid word id %q", s)
	}
	return WordID(n), nil
}

// Token represents a token / morpheme produced by the tokenizer.
type Token struct {
	Text           string   `json:"text"`
	Lemma          string   `json:"lemma,omitempty"`
	POS            string   `json:"pos,omitempty"`
	Start          int      `json:"start"`
	End            int      `json:"end"`
	Reading        string   `json:"reading,omitempty"`
	Pronunciation  string   `json:"pronunciation,omitempty"`
	WordID         WordID   `json:"word_id"`
	Known          bool     `json:"is_known"`
	LeftID         int16    `json:"left_context_id"`
	RightID        int16    `json:"right_context_id"`
	Cost           int16    `json:"cost"`
	InflectionType string   `json:"inflection_type,omitempty"`
	InflectionForm string   `json:"inflection_form,omitempty"`
	Features       []string `json:"features,omitempty"`

	// Set on a verb merged with the auxiliaries that follow it.
	Conjugation      []string `json:"conjugation,omitempty"`
	ConjugationLabel string   `json:"conjugation_label,omitempty"`
	Auxiliaries      []Token  `json:"auxiliaries,omitempty"`
}

// FeatureRecord is the linguistic feature tuple of one word. The number of
// fields is fixed per feature store; missing fields are empty strings.
type FeatureRecord struct {
	WordID WordID   `json:"word_id"`
	Fields []string `json:"fields"`
}

// Field returns the i-th field or "" when the record is shorter.
func (r FeatureRecord) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}
