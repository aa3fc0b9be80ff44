// Package analyze derives a light clause structure from a tokenized sentence.
package analyze

import (
	"context"
	"fmt"
	"strings"

	"goya/ingest"
	"goya/model"
)

// Analysis summarizes one tokenized sentence.
type Analysis struct {
	SentenceID   string   `json:"sentence_id"`
	TokenCount   int      `json:"token_count"`
	UnknownCount int      `json:"unknown_count"`
	WordCost     int64    `json:"word_cost"`
	Issues       []string `json:"issues,omitempty"`
	Clauses      []Clause `json:"clauses"`
}

// ClauseRole holds token indices by grammatical role.
type ClauseRole struct {
	Subject     []int `json:"subject,omitempty"`
	Object      []int `json:"object,omitempty"`
	IndirectObj []int `json:"indirect_object,omitempty"`
	Verb        *int  `json:"verb,omitempty"`
	Auxiliaries []int `json:"auxiliaries,omitempty"`
}

type ClauseType string

const (
	MainClause        ClauseType = "main"
	SubordinateClause ClauseType = "subordinate"
	QuotedClause      ClauseType = "quoted"
)

// Clause is the token range [Start, End) between boundary marks.
type Clause struct {
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Tokens     []int      `json:"tokens"`
	Roles      ClauseRole `json:"roles"`
	Type       ClauseType `json:"type"`
	Connective string     `json:"connective,omitempty"`
}

var connectives = map[string]bool{
	"が": true, "ので": true, "から": true, "けど": true, "そして": true, "と": true, "て": true, "ば": true,
}

// case particle -> role it marks on the nouns before it
var caseRoles = map[string]string{
	"は": "subject",
	"が": "subject",
	"を": "object",
	"に": "indirect",
}

// Analyze splits tokens into clauses at 。 and 、 and assigns roles inside
// each clause from the part-of-speech fields.
func Analyze(ctx context.Context, sentence ingest.Sentence, tokens []model.Token) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	a := Analysis{SentenceID: sentence.ID, TokenCount: len(tokens)}
	for _, t := range tokens {
		a.WordCost += int64(t.Cost)
		if !t.Known {
			a.UnknownCount++
			a.Issues = append(a.Issues, fmt.Sprintf("unknown word %q at %d", t.Text, t.Start))
		}
	}

	start := 0
	for i, t := range tokens {
		if t.Text != "。" && t.Text != "、" {
			continue
		}
		a.Clauses = append(a.Clauses, clause(tokens, start, i))
		start = i + 1
	}
	if start < len(tokens) {
		a.Clauses = append(a.Clauses, clause(tokens, start, len(tokens)))
	}
	return a, nil
}

func clause(tokens []model.Token, start, end int) Clause {
	c := Clause{Start: start, End: end, Type: MainClause, Tokens: make([]int, 0, end-start)}
	for j := start; j < end; j++ {
		c.Tokens = append(c.Tokens, j)
	}
	if end > start {
		last := tokens[end-1]
		switch {
		case last.Text == "と" && end-2 >= start && strings.HasSuffix(tokens[end-2].Text, "」"):
			c.Type = QuotedClause
			c.Connective = last.Text
		case (connectives[last.Text] && strings.HasPrefix(last.POS, "助詞")) || last.Text == "そして":
			c.Type = SubordinateClause
			c.Connective = last.Text
		}
	}

	var nouns []int
	for j := start; j < end; j++ {
		t := tokens[j]
		switch {
		case strings.HasPrefix(t.POS, "名詞"):
			nouns = append(nouns, j)
			continue
		case strings.HasPrefix(t.POS, "助詞"):
			switch caseRoles[t.Text] {
			case "subject":
				c.Roles.Subject = append(c.Roles.Subject, nouns...)
			case "object":
				c.Roles.Object = append(c.Roles.Object, nouns...)
			case "indirect":
				c.Roles.IndirectObj = append(c.Roles.IndirectObj, nouns...)
			}
		case strings.HasPrefix(t.POS, "動詞"):
			if c.Roles.Verb == nil || !strings.HasPrefix(t.POS, "動詞,非自立") {
				v := j
				c.Roles.Verb = &v
			}
		case strings.HasPrefix(t.POS, "助動詞"):
			c.Roles.Auxiliaries = append(c.Roles.Auxiliaries, j)
		}
		nouns = nouns[:0]
	}
	return c
}
