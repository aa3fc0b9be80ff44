// Package tokenize turns best-path words and their feature records into
// tokens, and streams them for pipelines.
package tokenize

import (
	"context"
	"strings"

	"goya/lattice"
	"goya/model"
)

type Token = model.Token

// Layout names the feature fields a dictionary family stores where. A
// negative index means the family has no such field.
type Layout struct {
	Name           string
	POS            int // number of leading part-of-speech fields
	InflectionType int
	InflectionForm int
	Lemma          int
	Reading        int
	Pronunciation  int
}

// IPADIC is the layout of IPADIC records:
// pos1..pos4, inflection type, inflection form, base form, reading, pronunciation.
var IPADIC = Layout{Name: "ipadic", POS: 4, InflectionType: 4, InflectionForm: 5, Lemma: 6, Reading: 7, Pronunciation: 8}

// UniDic is the layout of UniDic records:
// pos1..pos4, cType, cForm, lForm, lemma, orth, pron, ...
var UniDic = Layout{Name: "unidic", POS: 4, InflectionType: 4, InflectionForm: 5, Lemma: 7, Reading: 6, Pronunciation: 9}

// LayoutFor returns UniDic for "uni" and IPADIC for everything else.
func LayoutFor(source string) Layout {
	if source == "uni" {
		return UniDic
	}
	return IPADIC
}

func field(rec *model.FeatureRecord, i int) string {
	if rec == nil || i < 0 {
		return ""
	}
	f := rec.Field(i)
	if f == "*" {
		return ""
	}
	return f
}

// Convert builds one token per word. recs is aligned with words; a nil record
// leaves the linguistic fields empty and the lemma equal to the surface.
func (l Layout) Convert(words []lattice.Word, recs []*model.FeatureRecord) []Token {
	out := make([]Token, 0, len(words))
	for i, w := range words {
		var rec *model.FeatureRecord
		if i < len(recs) {
			rec = recs[i]
		}
		var pos []string
		for j := 0; j < l.POS; j++ {
			if f := field(rec, j); f != "" {
				pos = append(pos, f)
			}
		}
		lemma := field(rec, l.Lemma)
		if lemma == "" {
			lemma = w.Surface
		}
		t := Token{
			Text:           w.Surface,
			Lemma:          lemma,
			POS:            strings.Join(pos, ","),
			Start:          w.Start,
			End:            w.End,
			Reading:        field(rec, l.Reading),
			Pronunciation:  field(rec, l.Pronunciation),
			WordID:         w.ID,
			Known:          w.Known,
			LeftID:         w.LeftID,
			RightID:        w.RightID,
			Cost:           w.Cost,
			InflectionType: field(rec, l.InflectionType),
			InflectionForm: field(rec, l.InflectionForm),
		}
		if rec != nil {
			t.Features = rec.Fields
		}
		out = append(out, t)
	}
	return out
}

// Clone deep-copies tokens so callers may modify the result.
func Clone(tokens []Token) []Token {
	if tokens == nil {
		return nil
	}
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		t.Features = append([]string(nil), t.Features...)
		t.Conjugation = append([]string(nil), t.Conjugation...)
		t.Auxiliaries = Clone(t.Auxiliaries)
		out[i] = t
	}
	return out
}

// MergeVerbAuxiliaries scans tokens and merges verb+auxiliary sequences into a single token.
func MergeVerbAuxiliaries(tokens []Token) []Token {
	var out []Token
	i := 0
	for i < len(tokens) {
		tk := tokens[i]
		if !strings.HasPrefix(tk.POS, "動詞") {
			out = append(out, tk)
			i++
			continue
		}
		j := i + 1
		for j < len(tokens) && isAuxiliary(tokens[j].POS) {
			j++
		}
		auxs := tokens[i+1 : j]
		if len(auxs) == 0 {
			out = append(out, tk)
			i++
			continue
		}
		merged := tk
		conjugation := make([]string, 0, len(auxs))
		for _, aux := range auxs {
			merged.Text += aux.Text
			merged.Reading += aux.Reading
			merged.Pronunciation += aux.Pronunciation
			conjugation = append(conjugation, aux.Lemma)
		}
		merged.End = auxs[len(auxs)-1].End
		merged.Conjugation = conjugation
		merged.ConjugationLabel = conjugationLabel(conjugation)
		merged.Auxiliaries = append([]Token(nil), auxs...)
		out = append(out, merged)
		i = j
	}
	return out
}

func isAuxiliary(pos string) bool {
	return strings.HasPrefix(pos, "助動詞") ||
		strings.HasPrefix(pos, "動詞,非自立") ||
		strings.HasPrefix(pos, "動詞,接尾")
}

// conjugationLabel maps auxiliary lemma sequences to a human-readable conjugation label.
func conjugationLabel(auxs []string) string {
	switch strings.Join(auxs, "+") {
	case "ます":
		return "polite"
	case "た":
		return "past"
	case "ます+た":
		return "polite past"
	case "ない":
		return "negative"
	case "たい":
		return "desiderative"
	}
	return ""
}

// Stream sends tokens on a channel until they run out or ctx is done. The
// error channel receives ctx.Err() on cancellation; both channels are closed
// when the goroutine exits.
func Stream(ctx context.Context, tokens []Token) (<-chan Token, <-chan error) {
	out := make(chan Token, 8)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		for _, tk := range tokens {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case out <- tk:
			}
		}
	}()
	return out, errs
}
