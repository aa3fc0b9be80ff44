package ingest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s, err := New("すもももももももものうち")
	require.NoError(t, err)
	assert.Equal(t, "すもももももももものうち", s.Text)
	_, err = uuid.Parse(s.ID)
	assert.NoError(t, err)
	assert.False(t, s.CreatedAt.IsZero())

	other, err := New("すもも")
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, other.ID)

	_, err = New(" \t ")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestNewKeepsSurroundingSpace(t *testing.T) {
	s, err := New(" すもも　")
	require.NoError(t, err)
	assert.Equal(t, " すもも　", s.Text)
}

func TestSplit(t *testing.T) {
	var texts []string
	for _, s := range Split("今日は晴れ。「行こう！」と言った\n\nどこへ？ 東京") {
		texts = append(texts, s.Text)
	}
	assert.Equal(t, []string{"今日は晴れ。", "「行こう！」", "と言った", "どこへ？", "東京"}, texts)
	assert.Empty(t, Split("  \n "))
}
