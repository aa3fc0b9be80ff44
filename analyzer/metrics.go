package analyzer

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	parses      *prometheus.CounterVec
	loads       *prometheus.CounterVec
	duration    prometheus.Histogram
	nodes       prometheus.Histogram
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	ready       prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (m *metrics, err error) {
	// promauto panics on duplicate registration
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("register metrics: %v", r)
		}
	}()
	f := promauto.With(reg)
	return &metrics{
		parses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goya",
			Name:      "parses_total",
			Help:      "Parse calls by result (ok or error code)",
		}, []string{"result"}),
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goya",
			Name:      "dictionary_loads_total",
			Help:      "Dictionary installs by result (ok or error code)",
		}, []string{"result"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "goya",
			Name:      "parse_duration_seconds",
			Help:      "Time to build and search one lattice",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 16), // 10µs to ~330ms
		}),
		nodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "goya",
			Name:      "lattice_nodes",
			Help:      "Nodes per parsed lattice",
			Buckets:   prometheus.ExponentialBuckets(4, 2, 14),
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "goya",
			Name:      "token_cache_hits_total",
			Help:      "Tokenize calls served from the cache",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "goya",
			Name:      "token_cache_misses_total",
			Help:      "Tokenize calls that had to parse",
		}),
		ready: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "goya",
			Name:      "ready",
			Help:      "1 once a dictionary is installed",
		}),
	}, nil
}
