// Package analyzer is the entry point for segmentation requests. It owns the
// loaded dictionary and feature store, reports readiness, and caches
// tokenization results.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"

	"goya/dictionary"
	"goya/features"
	"goya/lattice"
	"goya/model"
	"goya/tokenize"
)

// Segmenter parses text into a searched lattice.
type Segmenter interface {
	Parse(text string) (*lattice.Lattice, error)
}

// FeatureLookup resolves feature records by word id. Features returns one
// entry per id, nil where no record exists.
type FeatureLookup interface {
	Features(ctx context.Context, ids []model.WordID) ([]*model.FeatureRecord, error)
	UnknownFeatures(ctx context.Context, id model.WordID) (model.FeatureRecord, bool)
}

var _ Segmenter = (*Analyzer)(nil)

// FeatureLoader opens a feature store on first use.
type FeatureLoader func(ctx context.Context) (FeatureLookup, error)

// Analyzer serves Parse, Segment, Features and Tokenize against one dictionary. All
// methods are safe for concurrent use. Until a dictionary is installed they
// fail with model.ErrNotReady.
type Analyzer struct {
	log     *slog.Logger
	metrics *metrics
	layout  tokenize.Layout
	cache   *lru.Cache[cacheKey, []model.Token]

	dict atomic.Pointer[dictionary.Dictionary]

	featMu   sync.Mutex
	loader   FeatureLoader
	features atomic.Pointer[FeatureLookup]
}

// cacheKey ties cached tokens to the dictionary that produced them, so a
// Tokenize finishing after Install cannot serve old results.
type cacheKey struct {
	dict *dictionary.Dictionary
	text string
}

// Option configures New.
type Option func(*options)

type options struct {
	log       *slog.Logger
	reg       prometheus.Registerer
	cacheSize int
	layout    tokenize.Layout
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.log = l } }

// WithRegisterer registers the metrics with reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option { return func(o *options) { o.reg = reg } }

// WithCacheSize keeps the tokens of the n most recent texts. Zero disables
// the cache.
func WithCacheSize(n int) Option { return func(o *options) { o.cacheSize = n } }

// WithLayout sets the feature layout used by Tokenize. The default is IPADIC.
func WithLayout(l tokenize.Layout) Option { return func(o *options) { o.layout = l } }

// New returns an analyzer with no dictionary.
func New(opts ...Option) (*Analyzer, error) {
	o := options{layout: tokenize.IPADIC}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.reg == nil {
		o.reg = prometheus.NewRegistry()
	}
	m, err := newMetrics(o.reg)
	if err != nil {
		return nil, err
	}
	a := &Analyzer{log: o.log, metrics: m, layout: o.layout}
	if o.cacheSize > 0 {
		a.cache, err = lru.New[cacheKey, []model.Token](o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create token cache: %w", err)
		}
	}
	return a, nil
}

// Ready reports whether a dictionary is installed.
func (a *Analyzer) Ready() bool { return a.dict.Load() != nil }

// Dictionary returns the installed dictionary or nil.
func (a *Analyzer) Dictionary() *dictionary.Dictionary { return a.dict.Load() }

// Load reads compiled artifacts. The segmentation tables are loaded now; the
// feature table in the same file system is opened on the first feature
// request.
func (a *Analyzer) Load(ctx context.Context, arts dictionary.Artifacts) error {
	start := time.Now()
	d, err := dictionary.Load(ctx, arts)
	if err != nil {
		a.metrics.loads.WithLabelValues(string(model.Classify(err))).Inc()
		a.log.Error("dictionary load failed", "error", err, "code", model.Classify(err))
		return err
	}
	fsys := arts.FS
	a.Install(d, func(context.Context) (FeatureLookup, error) {
		return features.Load(fsys)
	})
	a.log.Info("dictionary loaded",
		"words", len(d.Vocabulary),
		"unknown_entries", d.Unknown.Len(),
		"classes", len(d.Classes().Classes()),
		"took", time.Since(start))
	return nil
}

// LoadFeaturesFrom replaces the deferred feature loader with one reading
// features.bin from fsys.
func (a *Analyzer) LoadFeaturesFrom(fsys fs.FS) {
	a.SetFeatureLoader(func(context.Context) (FeatureLookup, error) {
		return features.Load(fsys)
	})
}

// Install makes d the active dictionary. load, when non-nil, supplies the
// feature store on first use.
func (a *Analyzer) Install(d *dictionary.Dictionary, load FeatureLoader) {
	a.SetFeatureLoader(load)
	a.dict.Store(d)
	if a.cache != nil {
		a.cache.Purge()
	}
	a.metrics.loads.WithLabelValues("ok").Inc()
	a.metrics.ready.Set(1)
}

// Use installs a dictionary together with an already open feature store.
func (a *Analyzer) Use(d *dictionary.Dictionary, fl FeatureLookup) {
	a.Install(d, func(context.Context) (FeatureLookup, error) { return fl, nil })
}

// SetFeatureLoader drops any open feature store and defers to load.
func (a *Analyzer) SetFeatureLoader(load FeatureLoader) {
	a.featMu.Lock()
	defer a.featMu.Unlock()
	if old := a.features.Swap(nil); old != nil {
		_ = closeLookup(*old)
	}
	a.loader = load
}

func closeLookup(fl FeatureLookup) error {
	if c, ok := fl.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Close releases the feature store.
func (a *Analyzer) Close() error {
	a.featMu.Lock()
	defer a.featMu.Unlock()
	if old := a.features.Swap(nil); old != nil {
		return closeLookup(*old)
	}
	return nil
}

// featureLookup returns the feature store, loading it if needed. A failed
// load is retried on the next call.
func (a *Analyzer) featureLookup(ctx context.Context) (FeatureLookup, error) {
	if fl := a.features.Load(); fl != nil {
		return *fl, nil
	}
	a.featMu.Lock()
	defer a.featMu.Unlock()
	if fl := a.features.Load(); fl != nil {
		return *fl, nil
	}
	if a.loader == nil {
		return nil, &model.LoadError{Artifact: features.Artifact, Err: errors.New("no feature store configured")}
	}
	start := time.Now()
	fl, err := a.loader(ctx)
	if err != nil {
		a.log.Error("feature store load failed", "error", err, "code", model.Classify(err))
		return nil, err
	}
	a.features.Store(&fl)
	a.log.Info("feature store loaded", "took", time.Since(start))
	return fl, nil
}

// Parse builds and searches the lattice of text.
func (a *Analyzer) Parse(text string) (*lattice.Lattice, error) {
	return a.parse(a.dict.Load(), text)
}

func (a *Analyzer) parse(d *dictionary.Dictionary, text string) (*lattice.Lattice, error) {
	if d == nil {
		a.metrics.parses.WithLabelValues(string(model.CodeNotReady)).Inc()
		return nil, model.ErrNotReady
	}
	start := time.Now()
	l := lattice.Build(d, text)
	err := l.Search()
	a.metrics.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		code := model.Classify(err)
		a.metrics.parses.WithLabelValues(string(code)).Inc()
		a.log.Error("parse failed", "error", err, "code", code, "runes", l.Len(), "nodes", l.NumNodes())
		return nil, err
	}
	a.metrics.parses.WithLabelValues("ok").Inc()
	a.metrics.nodes.Observe(float64(l.NumNodes()))
	a.log.Debug("parsed", "runes", l.Len(), "nodes", l.NumNodes(), "cost", l.TotalCost())
	return l, nil
}

// Features resolves a batch of known word ids. Ids without a record get nil.
func (a *Analyzer) Features(ctx context.Context, ids []model.WordID) ([]*model.FeatureRecord, error) {
	if !a.Ready() {
		return nil, model.ErrNotReady
	}
	fl, err := a.featureLookup(ctx)
	if err != nil {
		return nil, err
	}
	return fl.Features(ctx, ids)
}

// UnknownFeatures returns the feature template of an unknown-word entry.
func (a *Analyzer) UnknownFeatures(ctx context.Context, id model.WordID) (model.FeatureRecord, error) {
	if !a.Ready() {
		return model.FeatureRecord{}, model.ErrNotReady
	}
	fl, err := a.featureLookup(ctx)
	if err != nil {
		return model.FeatureRecord{}, err
	}
	rec, ok := fl.UnknownFeatures(ctx, id)
	if !ok {
		return model.FeatureRecord{}, fmt.Errorf("features of %v: %w", id, model.ErrUnknownWordID)
	}
	return rec, nil
}

// Tokenize parses text and attaches features to the best path. Unknown words
// get the template of their unknown-word entry. The result belongs to the
// caller.
func (a *Analyzer) Tokenize(ctx context.Context, text string) ([]model.Token, error) {
	d := a.dict.Load()
	if d == nil {
		return nil, model.ErrNotReady
	}
	key := cacheKey{dict: d, text: text}
	if a.cache != nil {
		if toks, ok := a.cache.Get(key); ok {
			a.metrics.cacheHits.Inc()
			return tokenize.Clone(toks), nil
		}
		a.metrics.cacheMisses.Inc()
	}
	l, err := a.parse(d, text)
	if err != nil {
		return nil, err
	}
	words := l.BestWords()
	recs, err := a.records(ctx, words)
	if err != nil {
		return nil, err
	}
	toks := a.layout.Convert(words, recs)
	if a.cache != nil && a.dict.Load() == d {
		a.cache.Add(key, tokenize.Clone(toks))
	}
	return toks, nil
}

// Segment parses text and returns the best path as tokens without features.
// It never opens the feature store; Lemma is the surface form.
func (a *Analyzer) Segment(ctx context.Context, text string) ([]model.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l, err := a.Parse(text)
	if err != nil {
		return nil, err
	}
	return a.layout.Convert(l.BestWords(), nil), nil
}

func (a *Analyzer) records(ctx context.Context, words []lattice.Word) ([]*model.FeatureRecord, error) {
	fl, err := a.featureLookup(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]model.WordID, len(words))
	for i, w := range words {
		ids[i] = w.ID
	}
	recs, err := fl.Features(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve features: %w", err)
	}
	for i, id := range ids {
		if id.Known() || recs[i] != nil {
			continue
		}
		if rec, ok := fl.UnknownFeatures(ctx, id); ok {
			recs[i] = &rec
		}
	}
	return recs, nil
}
