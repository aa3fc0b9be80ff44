package dictionary_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goya/dictionary"
	"goya/internal/testdict"
	"goya/model"
)

func TestClassify(t *testing.T) {
	d := testdict.Compile(t).Dictionary
	cc := d.Classes()

	for r, want := range map[rune]string{
		'a': "ALPHA",
		'Z': "ALPHA",
		'7': "NUMERIC",
		'ー': "KATAKANA",
		'ア': "KATAKANA",
		'ひ': "HIRAGANA",
		'漢': "KANJI",
		'一': "KANJINUMERIC",
		'☃': dictionary.DefaultClass,
		' ': "SPACE",
	} {
		assert.Equal(t, want, cc.Classify(r).Name, "class of %q", r)
	}
}

func TestCompatibleClasses(t *testing.T) {
	cc := testdict.Compile(t).Dictionary.Classes()
	hira, _ := cc.Lookup("HIRAGANA")
	kata, _ := cc.Lookup("KATAKANA")
	kanji, _ := cc.Lookup("KANJI")

	assert.True(t, cc.Continues('ー', hira.ID))
	assert.True(t, cc.Continues('ー', kata.ID))
	assert.False(t, cc.Continues('ー', kanji.ID))
	assert.True(t, cc.Continues('一', kanji.ID))
	assert.False(t, cc.Continues('漢', hira.ID))
}

func TestClassifierLaterRangesWin(t *testing.T) {
	b := dictionary.NewClassifierBuilder()
	for _, name := range []string{dictionary.DefaultClass, "A", "B"} {
		_, err := b.AddClass(name, false, true, 0)
		require.NoError(t, err)
	}
	require.NoError(t, b.AddRange('a', 'z', "A"))
	require.NoError(t, b.AddRange('m', 'p', "B"))
	require.Error(t, b.AddRange('z', 'a', "A"))
	require.Error(t, b.AddRange('a', 'b', "C"))
	cc, err := b.Build()
	require.NoError(t, err)

	got := ""
	for _, r := range "almpqz{" {
		got += cc.Classify(r).Name + " "
	}
	assert.Equal(t, "A A B B A A DEFAULT ", got)
}

func TestBuildRequiresDefault(t *testing.T) {
	b := dictionary.NewClassifierBuilder()
	_, err := b.AddClass("KANJI", false, false, 2)
	require.NoError(t, err)
	_, err = b.Build()
	assert.Error(t, err)
}

func runes(s string) []rune { return []rune(s) }

func TestCandidatesGroup(t *testing.T) {
	d := testdict.Compile(t).Dictionary
	got := d.Unknown.Candidates(nil, runes("ABC123"), 0, false)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].End)
	cls, ok := d.Unknown.ClassOf(got[0].ID)
	require.True(t, ok)
	assert.Equal(t, "ALPHA", cls.Name)
	assert.False(t, got[0].ID.Known())

	got = d.Unknown.Candidates(nil, runes("ABC123"), 3, false)
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].End)
}

func TestCandidatesLength(t *testing.T) {
	d := testdict.Compile(t).Dictionary
	// KANJI does not group, spans of one and two characters, two entries each
	got := d.Unknown.Candidates(nil, runes("漢字体"), 0, false)
	require.Len(t, got, 4)
	ends := []int{got[0].End, got[1].End, got[2].End, got[3].End}
	assert.Equal(t, []int{1, 1, 2, 2}, ends)
	assert.NotEqual(t, got[0].ID, got[1].ID)

	got = d.Unknown.Candidates(nil, runes("漢"), 0, false)
	assert.Len(t, got, 2)
}

func TestCandidatesSkippedWhenKnown(t *testing.T) {
	d := testdict.Compile(t).Dictionary
	assert.Empty(t, d.Unknown.Candidates(nil, runes("ひらがな"), 0, true))
	assert.NotEmpty(t, d.Unknown.Candidates(nil, runes("ひらがな"), 0, false))
	// KATAKANA is always invoked
	assert.NotEmpty(t, d.Unknown.Candidates(nil, runes("カタカナ"), 0, true))
	assert.Empty(t, d.Unknown.Candidates(nil, runes("カ"), 1, false))
}

func TestCandidatesFallBackToDefault(t *testing.T) {
	d := testdict.Compile(t).Dictionary
	got := d.Unknown.Candidates(nil, runes("一二三"), 0, false)
	require.Len(t, got, 1)
	// 三 is plain KANJI and does not continue a KANJINUMERIC run
	assert.Equal(t, 2, got[0].End)
	assert.Equal(t, model.UnknownWordID(0), got[0].ID)
}

func TestCandidatesHyphenContinuesHiragana(t *testing.T) {
	d := testdict.Compile(t).Dictionary
	got := d.Unknown.Candidates(nil, runes("らーめん"), 0, false)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].End)
}

func groupModel(t *testing.T, length int) *dictionary.UnknownModel {
	t.Helper()
	b := dictionary.NewClassifierBuilder()
	_, err := b.AddClass(dictionary.DefaultClass, false, true, length)
	require.NoError(t, err)
	cc, err := b.Build()
	require.NoError(t, err)
	u := dictionary.NewUnknownModel(cc)
	_, err = u.Add(dictionary.DefaultClass, dictionary.Entry{Cost: 100})
	require.NoError(t, err)
	_, err = u.Add("NOPE", dictionary.Entry{})
	require.Error(t, err)
	return u
}

func TestGroupRunIsCapped(t *testing.T) {
	text := runes(strings.Repeat("x", 3000))

	got := groupModel(t, 0).Candidates(nil, text, 0, false)
	require.Len(t, got, 1)
	assert.Equal(t, dictionary.MaxGroupLength, got[0].End)

	got = groupModel(t, 3).Candidates(nil, text, 10, false)
	require.Len(t, got, 1)
	assert.Equal(t, 13, got[0].End)
}

func TestEntry(t *testing.T) {
	d := testdict.Compile(t).Dictionary

	e, ok := d.Entry(testdict.Sumomo)
	require.True(t, ok)
	assert.Equal(t, dictionary.Entry{LeftID: 1, RightID: 1, Cost: 1000}, e)

	e, ok = d.Entry(model.UnknownWordID(0))
	require.True(t, ok)
	assert.Equal(t, int16(20000), e.Cost)

	_, ok = d.Entry(model.WordID(len(d.Vocabulary)))
	assert.False(t, ok)
	_, ok = d.Entry(model.UnknownWordID(d.Unknown.Len()))
	assert.False(t, ok)
}

func TestMatrix(t *testing.T) {
	d := testdict.Compile(t).Dictionary
	rights, lefts := d.Matrix.Size()
	assert.Equal(t, 6, rights)
	assert.Equal(t, 6, lefts)
	assert.Equal(t, int16(-500), d.Matrix.Cost(1, 2))
	assert.Equal(t, int16(-300), d.Matrix.Cost(2, 1))
	assert.Equal(t, int16(0), d.Matrix.Cost(5, 5))
}

func TestWriteRead(t *testing.T) {
	d := testdict.Compile(t).Dictionary
	var buf bytes.Buffer
	n, err := d.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	got, err := dictionary.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, d.Vocabulary, got.Vocabulary)
	assert.Equal(t, d.Matrix, got.Matrix)
	assert.Equal(t, d.Classes().Classes(), got.Classes().Classes())
	for _, r := range "aー☃一漢ひ" {
		assert.Equal(t, d.Classes().Classify(r).Name, got.Classes().Classify(r).Name)
	}
	text := runes("一二カタカナ漢字")
	for i := range text {
		assert.Equal(t,
			d.Unknown.Candidates(nil, text, i, false),
			got.Unknown.Candidates(nil, text, i, false), "candidates at %d", i)
	}
}

func TestReadMalformed(t *testing.T) {
	var buf bytes.Buffer
	_, err := testdict.Compile(t).Dictionary.WriteTo(&buf)
	require.NoError(t, err)
	good := buf.Bytes()

	for name, data := range map[string][]byte{
		"empty":     nil,
		"magic":     append([]byte("GOYADA\x00\x01"), good[8:]...),
		"truncated": good[:len(good)/2],
		"trailing":  append(append([]byte{}, good...), 1),
	} {
		_, err := dictionary.Read(bytes.NewReader(data))
		assert.ErrorIs(t, err, model.ErrDictionaryLoad, name)
	}
}

func TestSaveLoad(t *testing.T) {
	c := testdict.Compile(t)
	for _, compress := range []bool{false, true} {
		dir := t.TempDir()
		require.NoError(t, dictionary.Save(dir, c.Trie, c.Dictionary, compress))

		d, err := dictionary.Load(context.Background(), dictionary.Dir(dir))
		require.NoError(t, err)
		assert.Equal(t, c.Dictionary.Vocabulary, d.Vocabulary)

		var ids []model.WordID
		d.Index.PrefixSearch("すもも", func(n int, found []model.WordID) {
			ids = append(ids, found...)
		})
		assert.Equal(t, []model.WordID{testdict.Su, testdict.Sumomo}, ids)
	}
}

func TestLoadMissingArtifacts(t *testing.T) {
	_, err := dictionary.Load(context.Background(), dictionary.Dir(t.TempDir()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDictionaryLoad))
	assert.Equal(t, model.CodeLoad, model.Classify(err))
}

func TestValidate(t *testing.T) {
	d := testdict.Compile(t).Dictionary
	require.NoError(t, d.Validate())

	broken := *d
	broken.Vocabulary = append(dictionary.Vocabulary{{LeftID: 9, RightID: 1}}, d.Vocabulary...)
	assert.ErrorIs(t, broken.Validate(), model.ErrDictionaryLoad)

	broken = *d
	broken.Vocabulary = d.Vocabulary[:3]
	assert.ErrorIs(t, broken.Validate(), model.ErrDictionaryLoad, "trie ids past the vocabulary")

	broken = *d
	broken.Matrix = dictionary.NewMatrix(2, 2)
	assert.ErrorIs(t, broken.Validate(), model.ErrDictionaryLoad)
}
