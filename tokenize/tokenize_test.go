package tokenize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goya/lattice"
	"goya/model"
)

func TestConvertIPADIC(t *testing.T) {
	words := []lattice.Word{
		{ID: 6, Surface: "東京", Start: 0, End: 2, Known: true, LeftID: 1, RightID: 1, Cost: 800},
		{ID: model.UnknownWordID(6), Surface: "ABC", Start: 2, End: 5},
	}
	recs := []*model.FeatureRecord{
		{WordID: 6, Fields: []string{"名詞", "固有名詞", "地域", "一般", "*", "*", "東京", "トウキョウ", "トーキョー"}},
		nil,
	}
	toks := IPADIC.Convert(words, recs)
	require.Len(t, toks, 2)

	tk := toks[0]
	assert.Equal(t, "東京", tk.Text)
	assert.Equal(t, "名詞,固有名詞,地域,一般", tk.POS)
	assert.Equal(t, "東京", tk.Lemma)
	assert.Equal(t, "トウキョウ", tk.Reading)
	assert.Equal(t, "トーキョー", tk.Pronunciation)
	assert.Empty(t, tk.InflectionType)
	assert.Empty(t, tk.InflectionForm)
	assert.True(t, tk.Known)
	assert.Equal(t, model.WordID(6), tk.WordID)
	assert.Equal(t, int16(800), tk.Cost)
	assert.Len(t, tk.Features, 9)

	unk := toks[1]
	assert.Equal(t, "ABC", unk.Lemma)
	assert.Empty(t, unk.POS)
	assert.Nil(t, unk.Features)
	assert.Equal(t, 2, unk.Start)
	assert.Equal(t, 5, unk.End)
	assert.False(t, unk.Known)
}

func TestLayoutFor(t *testing.T) {
	assert.Equal(t, UniDic, LayoutFor("uni"))
	assert.Equal(t, IPADIC, LayoutFor("ipa"))
	assert.Equal(t, IPADIC, LayoutFor("artifacts"))
}

func verbPhrase() []Token {
	return []Token{
		{Text: "寿司", POS: "名詞,一般", Lemma: "寿司", Start: 0, End: 2},
		{Text: "を", POS: "助詞,格助詞,一般", Lemma: "を", Start: 2, End: 3},
		{Text: "食べ", POS: "動詞,自立", Lemma: "食べる", Reading: "タベ", Start: 3, End: 5},
		{Text: "まし", POS: "助動詞", Lemma: "ます", Reading: "マシ", Start: 5, End: 7},
		{Text: "た", POS: "助動詞", Lemma: "た", Reading: "タ", Start: 7, End: 8},
		{Text: "。", POS: "記号,句点", Lemma: "。", Start: 8, End: 9},
	}
}

func TestMergeVerbAuxiliaries(t *testing.T) {
	out := MergeVerbAuxiliaries(verbPhrase())
	require.Len(t, out, 4)

	v := out[2]
	assert.Equal(t, "食べました", v.Text)
	assert.Equal(t, "タベマシタ", v.Reading)
	assert.Equal(t, "食べる", v.Lemma)
	assert.Equal(t, 3, v.Start)
	assert.Equal(t, 8, v.End)
	assert.Equal(t, []string{"ます", "た"}, v.Conjugation)
	assert.Equal(t, "polite past", v.ConjugationLabel)
	assert.Len(t, v.Auxiliaries, 2)
	assert.Equal(t, "。", out[3].Text)
}

func TestMergeLeavesLoneVerb(t *testing.T) {
	in := []Token{{Text: "走る", POS: "動詞,自立", Lemma: "走る"}}
	out := MergeVerbAuxiliaries(in)
	assert.Equal(t, in, out)
	assert.Empty(t, out[0].ConjugationLabel)
}

func TestClone(t *testing.T) {
	merged := MergeVerbAuxiliaries(verbPhrase())
	merged[2].Features = []string{"動詞"}
	c := Clone(merged)
	require.Equal(t, merged, c)

	c[2].Features[0] = "x"
	c[2].Conjugation[0] = "x"
	c[2].Auxiliaries[0].Text = "x"
	assert.Equal(t, "動詞", merged[2].Features[0])
	assert.Equal(t, "ます", merged[2].Conjugation[0])
	assert.Equal(t, "まし", merged[2].Auxiliaries[0].Text)
	assert.Nil(t, Clone(nil))
}

func TestStream(t *testing.T) {
	toks := verbPhrase()
	out, errs := Stream(context.Background(), toks)
	var got []Token
	for tk := range out {
		got = append(got, tk)
	}
	assert.Equal(t, toks, got)
	assert.NoError(t, <-errs)
}

func TestStreamCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	toks := make([]Token, 100)
	out, errs := Stream(ctx, toks)
	n := 0
	for range out {
		n++
	}
	assert.Less(t, n, len(toks))
	assert.ErrorIs(t, <-errs, context.Canceled)
}
