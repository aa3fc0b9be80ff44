// Package ingest turns raw input into sentences ready for analysis.
package ingest

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmpty is returned for input that is only white space.
var ErrEmpty = errors.New("empty sentence")

// Sentence represents an ingested Japanese sentence and metadata.
type Sentence struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// New wraps text in a Sentence with a fresh id. The text is kept as given,
// surrounding white space included.
func New(text string) (Sentence, error) {
	if strings.TrimSpace(text) == "" {
		return Sentence{}, ErrEmpty
	}
	return Sentence{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func terminator(r rune) bool {
	switch r {
	case '。', '！', '？', '!', '?', '\n':
		return true
	}
	return false
}

// Split cuts text after every sentence terminator (。！？!? or a newline) and
// returns the non-blank pieces, trimmed, as sentences. Terminators stay with the
// sentence they end; closing brackets right after one stay too.
func Split(text string) []Sentence {
	var out []Sentence
	emit := func(s string) {
		if sent, err := New(strings.TrimSpace(s)); err == nil {
			out = append(out, sent)
		}
	}
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !terminator(runes[i]) {
			continue
		}
		for i+1 < len(runes) && strings.ContainsRune("」』）)", runes[i+1]) {
			i++
		}
		emit(string(runes[start : i+1]))
		start = i + 1
	}
	emit(string(runes[start:]))
	return out
}
