// Package worker runs tokenization requests on a fixed pool of goroutines
// sharing one analyzer.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"goya/ingest"
	"goya/model"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker pool closed")

// Tokenizer is the read-only analysis the workers call.
type Tokenizer interface {
	Tokenize(ctx context.Context, text string) ([]model.Token, error)
	Segment(ctx context.Context, text string) ([]model.Token, error)
}

// Config sizes the pool. With Segment set the workers only segment and the
// tokens carry no features.
type Config struct {
	Workers int
	Queue   int
	Segment bool
}

// Result is the response to one request.
type Result struct {
	Sentence ingest.Sentence `json:"sentence"`
	Tokens   []model.Token   `json:"tokens"`
	Err      error           `json:"-"`
	Took     time.Duration   `json:"took"`
}

type job struct {
	ctx   context.Context
	s     ingest.Sentence
	reply chan Result
}

// Pool dispatches requests to its workers.
type Pool struct {
	t       Tokenizer
	log     *slog.Logger
	segment bool

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

// New starts cfg.Workers goroutines (at least one) reading a queue of
// cfg.Queue requests.
func New(t Tokenizer, cfg Config, log *slog.Logger) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Queue < 0 {
		cfg.Queue = 0
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Pool{t: t, log: log, segment: cfg.Segment, jobs: make(chan job, cfg.Queue)}
	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	return p
}

func (p *Pool) run(n int) {
	defer p.wg.Done()
	log := p.log.With("worker", n)
	log.Debug("worker started")
	for j := range p.jobs {
		res := Result{Sentence: j.s}
		if err := j.ctx.Err(); err != nil {
			res.Err = err
			j.reply <- res
			continue
		}
		start := time.Now()
		if p.segment {
			res.Tokens, res.Err = p.t.Segment(j.ctx, j.s.Text)
		} else {
			res.Tokens, res.Err = p.t.Tokenize(j.ctx, j.s.Text)
		}
		res.Took = time.Since(start)
		if res.Err != nil {
			log.Warn("tokenize failed", "id", j.s.ID, "error", res.Err, "code", model.Classify(res.Err))
		} else {
			log.Debug("tokenized", "id", j.s.ID, "tokens", len(res.Tokens), "took", res.Took)
		}
		j.reply <- res
	}
	log.Debug("worker stopped")
}

// Submit queues s and returns the channel its result will arrive on. It
// blocks while the queue is full.
func (p *Pool) Submit(ctx context.Context, s ingest.Sentence) (<-chan Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}
	reply := make(chan Result, 1)
	select {
	case p.jobs <- job{ctx: ctx, s: s, reply: reply}:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do submits s and waits for its result.
func (p *Pool) Do(ctx context.Context, s ingest.Sentence) Result {
	reply, err := p.Submit(ctx, s)
	if err != nil {
		return Result{Sentence: s, Err: err}
	}
	select {
	case res := <-reply:
		return res
	case <-ctx.Done():
		return Result{Sentence: s, Err: ctx.Err()}
	}
}

// All submits every sentence and returns the results in input order.
func (p *Pool) All(ctx context.Context, sentences []ingest.Sentence) []Result {
	replies := make([]<-chan Result, len(sentences))
	out := make([]Result, len(sentences))
	for i, s := range sentences {
		reply, err := p.Submit(ctx, s)
		if err != nil {
			out[i] = Result{Sentence: s, Err: err}
			continue
		}
		replies[i] = reply
	}
	for i, reply := range replies {
		if reply == nil {
			continue
		}
		select {
		case out[i] = <-reply:
		case <-ctx.Done():
			out[i] = Result{Sentence: sentences[i], Err: ctx.Err()}
		}
	}
	return out
}

// Close stops accepting requests, lets the workers drain the queue and waits
// for them to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
