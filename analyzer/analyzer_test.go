package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goya/artifact"
	"goya/dictionary"
	"goya/featuredb"
	"goya/features"
	"goya/internal/testdict"
	"goya/model"
)

var (
	_ FeatureLookup = (*features.Store)(nil)
	_ FeatureLookup = (*featuredb.Store)(nil)
)

func ready(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	a, err := New(opts...)
	require.NoError(t, err)
	c := testdict.Compile(t)
	a.Use(c.Dictionary, c.Features)
	return a
}

func TestNotReady(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, a.Ready())
	_, err = a.Parse("すもも")
	assert.ErrorIs(t, err, model.ErrNotReady)
	_, err = a.Features(ctx, []model.WordID{0})
	assert.ErrorIs(t, err, model.ErrNotReady)
	_, err = a.Tokenize(ctx, "すもも")
	assert.ErrorIs(t, err, model.ErrNotReady)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.parses.WithLabelValues("not_ready")))
	assert.Equal(t, 0.0, testutil.ToFloat64(a.metrics.ready))
}

func TestParse(t *testing.T) {
	a := ready(t)
	l, err := a.Parse("すもももももももものうち")
	require.NoError(t, err)
	assert.Equal(t, []string{"すもも", "も", "もも", "も", "もも", "の", "うち"}, l.Wakachi())
	assert.Equal(t, int64(3100), l.TotalCost())

	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.parses.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.ready))
}

func TestTokenize(t *testing.T) {
	a := ready(t)
	toks, err := a.Tokenize(context.Background(), "すもももももももものうち")
	require.NoError(t, err)
	require.Len(t, toks, 7)

	assert.Equal(t, "すもも", toks[0].Text)
	assert.Equal(t, "名詞,一般", toks[0].POS)
	assert.Equal(t, "スモモ", toks[0].Reading)
	assert.Equal(t, testdict.Sumomo, toks[0].WordID)
	assert.Equal(t, "助詞,係助詞", toks[1].POS)
	assert.Equal(t, "うち", toks[6].Lemma)
	assert.Equal(t, 12, toks[6].End)
}

func TestTokenizeUnknown(t *testing.T) {
	a := ready(t)
	toks, err := a.Tokenize(context.Background(), "ABC")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.False(t, toks[0].Known)
	assert.Equal(t, "ABC", toks[0].Text)
	assert.Equal(t, "ABC", toks[0].Lemma)
	assert.Equal(t, "名詞,固有名詞,組織", toks[0].POS)
}

func TestTokenizeEmpty(t *testing.T) {
	a := ready(t)
	toks, err := a.Tokenize(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, toks)
}

func TestTokenCache(t *testing.T) {
	a := ready(t, WithCacheSize(8))
	ctx := context.Background()

	first, err := a.Tokenize(ctx, "東京にすもも")
	require.NoError(t, err)
	want := first[0].Text
	first[0].Text = "changed"

	second, err := a.Tokenize(ctx, "東京にすもも")
	require.NoError(t, err)
	assert.Equal(t, want, second[0].Text)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.cacheMisses))
	// only the miss parsed
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.parses.WithLabelValues("ok")))
}

func TestTokenCacheIgnoresReplacedDictionary(t *testing.T) {
	a := ready(t, WithCacheSize(8))
	ctx := context.Background()
	old := a.Dictionary()

	c := testdict.Compile(t)
	a.Use(c.Dictionary, c.Features)
	// a Tokenize that started before Use finishes afterwards
	a.cache.Add(cacheKey{dict: old, text: "すもも"}, []model.Token{{Text: "stale"}})

	toks, err := a.Tokenize(ctx, "すもも")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, "すもも", toks[0].Text)
	assert.Equal(t, 0.0, testutil.ToFloat64(a.metrics.cacheHits))
}

func TestSegmentSkipsFeatures(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	ctx := context.Background()
	_, err = a.Segment(ctx, "すもも")
	assert.ErrorIs(t, err, model.ErrNotReady)

	c := testdict.Compile(t)
	loads := 0
	a.Install(c.Dictionary, func(context.Context) (FeatureLookup, error) {
		loads++
		return nil, errors.New("no features here")
	})

	toks, err := a.Segment(ctx, "すもももももももものうち")
	require.NoError(t, err)
	require.Len(t, toks, 7)
	assert.Equal(t, "すもも", toks[0].Text)
	assert.Equal(t, testdict.Sumomo, toks[0].WordID)
	assert.Empty(t, toks[0].Features)
	assert.Equal(t, 0, loads)

	_, err = a.Tokenize(ctx, "すもも")
	assert.ErrorContains(t, err, "no features here")
	assert.Equal(t, 1, loads)
}

func TestFeatures(t *testing.T) {
	a := ready(t)
	recs, err := a.Features(context.Background(), []model.WordID{testdict.Tokyo, model.UnknownWordID(0)})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.NotNil(t, recs[0])
	assert.Equal(t, "東京", recs[0].Field(6))
	assert.Nil(t, recs[1])
}

func TestLoadArtifacts(t *testing.T) {
	c := testdict.Compile(t)
	dir := t.TempDir()
	require.NoError(t, dictionary.Save(dir, c.Trie, c.Dictionary, true))
	require.NoError(t, artifact.Write(dir, artifact.FeaturesFile, true, c.Features))

	a, err := New()
	require.NoError(t, err)
	require.NoError(t, a.Load(context.Background(), dictionary.Dir(dir)))
	assert.True(t, a.Ready())

	toks, err := a.Tokenize(context.Background(), "東京都にすもも")
	require.NoError(t, err)
	var surfaces []string
	for _, tk := range toks {
		surfaces = append(surfaces, tk.Text)
	}
	assert.Equal(t, []string{"東京", "都", "に", "すもも"}, surfaces)
	assert.Equal(t, "トウキョウ", toks[0].Reading)
}

func TestLoadMissing(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	err = a.Load(context.Background(), dictionary.Dir(t.TempDir()))
	assert.ErrorIs(t, err, model.ErrDictionaryLoad)
	assert.False(t, a.Ready())
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.loads.WithLabelValues("load")))
}

// Features are opened on first use; a failed open is retried.
func TestDeferredFeatures(t *testing.T) {
	c := testdict.Compile(t)
	a, err := New()
	require.NoError(t, err)

	calls := 0
	boom := errors.New("boom")
	a.Install(c.Dictionary, func(context.Context) (FeatureLookup, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return c.Features, nil
	})
	ctx := context.Background()

	l, err := a.Parse("すもも")
	require.NoError(t, err)
	assert.Equal(t, 0, calls)

	_, err = a.Features(ctx, l.IDs())
	assert.ErrorIs(t, err, boom)
	recs, err := a.Features(ctx, l.IDs())
	require.NoError(t, err)
	assert.NotNil(t, recs[0])
	_, err = a.Features(ctx, l.IDs())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestNoFeatureStore(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	a.Install(testdict.Compile(t).Dictionary, nil)
	_, err = a.Tokenize(context.Background(), "すもも")
	assert.ErrorIs(t, err, model.ErrDictionaryLoad)
}

func TestSQLiteFeatures(t *testing.T) {
	c := testdict.Compile(t)
	path := filepath.Join(t.TempDir(), "features.db")
	ctx := context.Background()
	require.NoError(t, featuredb.Export(ctx, path, c.Features))

	a, err := New()
	require.NoError(t, err)
	a.Install(c.Dictionary, func(ctx context.Context) (FeatureLookup, error) {
		return featuredb.Open(ctx, featuredb.Config{Path: path})
	})
	t.Cleanup(func() { a.Close() })

	toks, err := a.Tokenize(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, "名詞,固有名詞,組織", toks[0].POS)
	toks, err = a.Tokenize(ctx, "すもも")
	require.NoError(t, err)
	assert.Equal(t, "スモモ", toks[0].Reading)
}

func TestLoadFeaturesFrom(t *testing.T) {
	c := testdict.Compile(t)
	dir := t.TempDir()
	require.NoError(t, artifact.Write(dir, artifact.FeaturesFile, false, c.Features))

	a, err := New()
	require.NoError(t, err)
	a.Install(c.Dictionary, nil)
	a.LoadFeaturesFrom(os.DirFS(dir))

	recs, err := a.Features(context.Background(), []model.WordID{testdict.No})
	require.NoError(t, err)
	assert.Equal(t, "の", recs[0].Field(6))
}

func TestConcurrentTokenize(t *testing.T) {
	a := ready(t, WithCacheSize(2))
	texts := []string{"すもももももももものうち", "東京都にすもも", "ねこ", "ABC 123"}
	want := make([][]string, len(texts))
	for i, s := range texts {
		l, err := a.Parse(s)
		require.NoError(t, err)
		want[i] = l.Wakachi()
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				k := (g + i) % len(texts)
				toks, err := a.Tokenize(context.Background(), texts[k])
				if err != nil {
					errs <- err
					return
				}
				if len(toks) != len(want[k]) {
					errs <- errors.New("segmentation changed under concurrency: " + texts[k])
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(WithRegisterer(reg))
	require.NoError(t, err)
	_, err = New(WithRegisterer(reg))
	assert.Error(t, err)
}
