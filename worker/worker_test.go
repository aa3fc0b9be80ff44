package worker

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goya/analyzer"
	"goya/ingest"
	"goya/internal/testdict"
	"goya/logger"
	"goya/model"
)

type splitter struct {
	calls    atomic.Int32
	segments atomic.Int32
	block    chan struct{}
}

// Segment splits like Tokenize but marks its tokens.
func (s *splitter) Segment(ctx context.Context, text string) ([]model.Token, error) {
	s.segments.Add(1)
	var out []model.Token
	for _, f := range strings.Fields(text) {
		out = append(out, model.Token{Text: f, Lemma: "segment"})
	}
	return out, nil
}

func (s *splitter) Tokenize(ctx context.Context, text string) ([]model.Token, error) {
	s.calls.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if text == "fail" {
		return nil, model.ErrNoPath
	}
	var out []model.Token
	for _, f := range strings.Fields(text) {
		out = append(out, model.Token{Text: f})
	}
	return out, nil
}

func sentence(t *testing.T, text string) ingest.Sentence {
	t.Helper()
	s, err := ingest.New(text)
	require.NoError(t, err)
	return s
}

func TestDo(t *testing.T) {
	p := New(&splitter{}, Config{Workers: 2, Queue: 4}, logger.Discard())
	defer p.Close()

	res := p.Do(context.Background(), sentence(t, "a b c"))
	require.NoError(t, res.Err)
	assert.Len(t, res.Tokens, 3)
	assert.Equal(t, "a b c", res.Sentence.Text)

	res = p.Do(context.Background(), sentence(t, "fail"))
	assert.ErrorIs(t, res.Err, model.ErrNoPath)
}

func TestAllKeepsOrder(t *testing.T) {
	p := New(&splitter{}, Config{Workers: 4, Queue: 2}, logger.Discard())
	defer p.Close()

	var in []ingest.Sentence
	for _, text := range []string{"one", "two words", "three more words", "fail", "x"} {
		in = append(in, sentence(t, text))
	}
	out := p.All(context.Background(), in)
	require.Len(t, out, len(in))
	for i, res := range out {
		assert.Equal(t, in[i].ID, res.Sentence.ID)
	}
	assert.Len(t, out[2].Tokens, 3)
	assert.Error(t, out[3].Err)
}

func TestClose(t *testing.T) {
	tk := &splitter{}
	p := New(tk, Config{Workers: 1, Queue: 8}, logger.Discard())
	var replies []<-chan Result
	for i := 0; i < 5; i++ {
		r, err := p.Submit(context.Background(), sentence(t, "queued"))
		require.NoError(t, err)
		replies = append(replies, r)
	}
	p.Close()
	p.Close()

	// queued work drains before Close returns
	for _, r := range replies {
		res := <-r
		assert.NoError(t, res.Err)
	}
	assert.Equal(t, int32(5), tk.calls.Load())

	_, err := p.Submit(context.Background(), sentence(t, "late"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDoCancelled(t *testing.T) {
	tk := &splitter{block: make(chan struct{})}
	p := New(tk, Config{Workers: 1}, logger.Discard())
	defer func() {
		close(tk.block)
		p.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := p.Do(ctx, sentence(t, "slow"))
	assert.True(t, errors.Is(res.Err, context.DeadlineExceeded))
}

func TestWithAnalyzer(t *testing.T) {
	a, err := analyzer.New()
	require.NoError(t, err)
	c := testdict.Compile(t)
	a.Use(c.Dictionary, c.Features)

	p := New(a, Config{Workers: 3, Queue: 3}, logger.Discard())
	defer p.Close()

	out := p.All(context.Background(), ingest.Split("すもももももももものうち。東京都にすもも"))
	require.Len(t, out, 2)
	require.NoError(t, out[0].Err)
	require.NoError(t, out[1].Err)
	assert.Equal(t, "すもも", out[0].Tokens[0].Text)
	assert.Equal(t, "東京", out[1].Tokens[0].Text)
}

func TestSegmentMode(t *testing.T) {
	sp := &splitter{}
	p := New(sp, Config{Workers: 2, Queue: 2, Segment: true}, logger.Discard())
	defer p.Close()

	res := p.Do(context.Background(), sentence(t, "a b"))
	require.NoError(t, res.Err)
	require.Len(t, res.Tokens, 2)
	assert.Equal(t, "segment", res.Tokens[0].Lemma)
	assert.Equal(t, int32(1), sp.segments.Load())
	assert.Equal(t, int32(0), sp.calls.Load())
}
