package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWordID(t *testing.T) {
	for in, want := range map[string]WordID{
		"0":     0,
		"42":    42,
		"unk:0": -1,
		"unk:6": -7,
		"-2":    -2,
	} {
		got, err := ParseWordID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "abc", "unk:", "unk:-1", "unk:x", "99999999999"} {
		_, err := ParseWordID(in)
		assert.Error(t, err, in)
	}
}

func TestParseWordIDRoundTripsString(t *testing.T) {
	for _, id := range []WordID{0, 13, UnknownWordID(0), UnknownWordID(8)} {
		got, err := ParseWordID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}
