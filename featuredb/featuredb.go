// Package featuredb keeps feature records in SQLite and reads them per id on
// demand, with a ristretto cache in front. It suits processes that only
// resolve features for a few words and should not load the whole table.
package featuredb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"
	_ "modernc.org/sqlite"

	"goya/features"
	"goya/model"
)

const (
	defaultNumCounters = 1e5
	defaultMaxCost     = 32 << 20
	defaultBufferItems = 64

	// sqlite limits the number of host parameters per statement
	maxBatch = 500
)

const schema = `
CREATE TABLE IF NOT EXISTS features (
	word_id INTEGER PRIMARY KEY,
	fields  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Config configures Open.
type Config struct {
	Path string

	// Ristretto configuration
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

// Store reads feature records from SQLite.
type Store struct {
	db    *sql.DB
	cache *ristretto.Cache
	width int

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats is a snapshot of cache effectiveness.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Export writes every record of src, unknown-word templates included, into a
// new database at path. An existing file is replaced.
func Export(ctx context.Context, path string, src *features.Store) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO features (word_id, fields) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	err = src.Records(func(rec model.FeatureRecord) error {
		data, err := json.Marshal(rec.Fields)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, int64(rec.WordID), string(data))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert features: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('width', ?)`,
		strconv.Itoa(src.Width())); err != nil {
		return err
	}
	return tx.Commit()
}

// Open opens a database written by Export.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.NumCounters == 0 {
		cfg.NumCounters = int64(defaultNumCounters)
	}
	if cfg.MaxCost == 0 {
		cfg.MaxCost = defaultMaxCost
	}
	if cfg.BufferItems == 0 {
		cfg.BufferItems = defaultBufferItems
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, &model.LoadError{Artifact: "features.sqlite", Err: err}
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, &model.LoadError{Artifact: "features.sqlite", Err: err}
	}
	s := &Store{db: db}

	var width string
	if err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'width'`).Scan(&width); err != nil {
		db.Close()
		return nil, model.Malformed("features.sqlite", "read width: %v", err)
	}
	if s.width, err = strconv.Atoi(width); err != nil {
		db.Close()
		return nil, model.Malformed("features.sqlite", "width %q: %v", width, err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize Ristretto cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Width returns the number of fields of every record.
func (s *Store) Width() int { return s.width }

// Stats returns cache hit and miss counts.
func (s *Store) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

// Close releases the cache and the database.
func (s *Store) Close() error {
	s.cache.Close()
	return s.db.Close()
}

func cost(fields []string) int64 {
	c := int64(64)
	for _, f := range fields {
		c += int64(len(f)) + 16
	}
	return c
}

func (s *Store) cached(id model.WordID) ([]string, bool) {
	v, ok := s.cache.Get(int64(id))
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return v.([]string), true
}

// Get returns the record of a known word.
func (s *Store) Get(ctx context.Context, id model.WordID) (model.FeatureRecord, error) {
	if !id.Known() {
		return model.FeatureRecord{}, fmt.Errorf("features of %v: %w", id, model.ErrUnknownWordID)
	}
	recs, err := s.Features(ctx, []model.WordID{id})
	if err != nil {
		return model.FeatureRecord{}, err
	}
	if recs[0] == nil {
		return model.FeatureRecord{}, fmt.Errorf("features of %v: %w", id, model.ErrUnknownWordID)
	}
	return *recs[0], nil
}

// Features resolves a batch of known word ids. Ids without a record, unknown
// words included, get a nil entry.
func (s *Store) Features(ctx context.Context, ids []model.WordID) ([]*model.FeatureRecord, error) {
	out := make([]*model.FeatureRecord, len(ids))
	var missing []model.WordID
	for i, id := range ids {
		if !id.Known() {
			continue
		}
		if f, ok := s.cached(id); ok {
			out[i] = &model.FeatureRecord{WordID: id, Fields: f}
			continue
		}
		missing = append(missing, id)
	}
	found := make(map[model.WordID][]string, len(missing))
	for len(missing) > 0 {
		n := min(len(missing), maxBatch)
		if err := s.query(ctx, missing[:n], found); err != nil {
			return nil, err
		}
		missing = missing[n:]
	}
	for i, id := range ids {
		if f, ok := found[id]; ok && out[i] == nil {
			out[i] = &model.FeatureRecord{WordID: id, Fields: f}
		}
	}
	return out, nil
}

// UnknownFeatures returns the template of an unknown-word entry.
func (s *Store) UnknownFeatures(ctx context.Context, id model.WordID) (model.FeatureRecord, bool) {
	if id.Known() {
		return model.FeatureRecord{}, false
	}
	if f, ok := s.cached(id); ok {
		return model.FeatureRecord{WordID: id, Fields: f}, true
	}
	found := make(map[model.WordID][]string, 1)
	if err := s.query(ctx, []model.WordID{id}, found); err != nil {
		return model.FeatureRecord{}, false
	}
	f, ok := found[id]
	return model.FeatureRecord{WordID: id, Fields: f}, ok
}

func (s *Store) query(ctx context.Context, ids []model.WordID, into map[model.WordID][]string) error {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	q := `SELECT word_id, fields FROM features WHERE word_id IN (?` +
		strings.Repeat(", ?", len(ids)-1) + `)`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   int64
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return err
		}
		var fields []string
		if err := json.Unmarshal([]byte(data), &fields); err != nil {
			return fmt.Errorf("word %d: %w", id, err)
		}
		into[model.WordID(id)] = fields
		s.cache.Set(id, fields, cost(fields))
	}
	return rows.Err()
}
