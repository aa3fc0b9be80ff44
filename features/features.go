// Package features stores the linguistic feature records of dictionary words.
// It is loaded separately from the segmentation tables so that callers who only
// segment never pay for it.
package features

import (
	"context"
	"fmt"
	"io"
	"io/fs"

	"goya/artifact"
	"goya/model"
)

// Artifact is the name used in load errors.
const Artifact = "features"

// Store holds one fixed-width record per known word and one template per
// unknown-word entry. Returned field slices are shared and must not be
// modified.
type Store struct {
	width   int
	known   [][]string
	unknown [][]string
}

// NewStore pads every record to the widest one.
func NewStore(known, unknown [][]string) *Store {
	width := 0
	for _, recs := range [][][]string{known, unknown} {
		for _, r := range recs {
			width = max(width, len(r))
		}
	}
	s := &Store{width: width}
	s.known = pad(known, width)
	s.unknown = pad(unknown, width)
	return s
}

func pad(recs [][]string, width int) [][]string {
	out := make([][]string, len(recs))
	for i, r := range recs {
		if len(r) == width {
			out[i] = r
			continue
		}
		p := make([]string, width)
		copy(p, r)
		out[i] = p
	}
	return out
}

// Width returns the number of fields of every record.
func (s *Store) Width() int { return s.width }

// Len returns the number of known-word records.
func (s *Store) Len() int { return len(s.known) }

// Get returns the record of a known word. Unknown-word ids and ids past the
// table fail with model.ErrUnknownWordID.
func (s *Store) Get(id model.WordID) (model.FeatureRecord, error) {
	if !id.Known() || int(id) >= len(s.known) {
		return model.FeatureRecord{}, fmt.Errorf("features of %v: %w", id, model.ErrUnknownWordID)
	}
	return model.FeatureRecord{WordID: id, Fields: s.known[id]}, nil
}

// Lookup resolves a batch. Ids without a record get a nil entry instead of
// failing the batch.
func (s *Store) Lookup(ids []model.WordID) []*model.FeatureRecord {
	out := make([]*model.FeatureRecord, len(ids))
	for i, id := range ids {
		if rec, err := s.Get(id); err == nil {
			out[i] = &rec
		}
	}
	return out
}

// Unknown returns the feature template of an unknown-word entry.
func (s *Store) Unknown(id model.WordID) (model.FeatureRecord, bool) {
	if id.Known() || id.UnknownIndex() >= len(s.unknown) {
		return model.FeatureRecord{}, false
	}
	return model.FeatureRecord{WordID: id, Fields: s.unknown[id.UnknownIndex()]}, true
}

// Features implements the analyzer's lookup capability.
func (s *Store) Features(_ context.Context, ids []model.WordID) ([]*model.FeatureRecord, error) {
	return s.Lookup(ids), nil
}

// UnknownFeatures implements the analyzer's lookup capability.
func (s *Store) UnknownFeatures(_ context.Context, id model.WordID) (model.FeatureRecord, bool) {
	return s.Unknown(id)
}

// Records calls fn for every known record, then for every unknown template.
func (s *Store) Records(fn func(rec model.FeatureRecord) error) error {
	for i, f := range s.known {
		if err := fn(model.FeatureRecord{WordID: model.WordID(i), Fields: f}); err != nil {
			return err
		}
	}
	for k, f := range s.unknown {
		if err := fn(model.FeatureRecord{WordID: model.UnknownWordID(k), Fields: f}); err != nil {
			return err
		}
	}
	return nil
}

// Load reads features.bin from fsys.
func Load(fsys fs.FS) (*Store, error) {
	rc, err := artifact.Open(fsys, artifact.FeaturesFile)
	if err != nil {
		return nil, &model.LoadError{Artifact: Artifact, Err: err}
	}
	defer rc.Close()
	return Read(rc)
}

var magic = [8]byte{'G', 'O', 'Y', 'A', 'F', 'E', 'A', 1}

// WriteTo serializes the store with every distinct field stored once
// (big endian):
//
//	[8]byte magic
//	uint32 width
//	uint32 n, n x string       field pool
//	uint32 k, k*width x uint32 known records as pool indexes
//	uint32 u, u*width x uint32 unknown templates
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	index := make(map[string]uint32)
	var pool []string
	intern := func(f string) uint32 {
		i, ok := index[f]
		if !ok {
			i = uint32(len(pool))
			index[f] = i
			pool = append(pool, f)
		}
		return i
	}
	refs := func(recs [][]string) []uint32 {
		out := make([]uint32, 0, len(recs)*s.width)
		for _, r := range recs {
			for _, f := range r {
				out = append(out, intern(f))
			}
		}
		return out
	}
	known, unknown := refs(s.known), refs(s.unknown)

	e := artifact.NewEncoder(w)
	e.Magic(magic)
	e.Len(s.width)
	e.Len(len(pool))
	for _, f := range pool {
		e.String(f)
	}
	for _, part := range []struct {
		n    int
		refs []uint32
	}{{len(s.known), known}, {len(s.unknown), unknown}} {
		e.Len(part.n)
		for _, r := range part.refs {
			e.Uint32(r)
		}
	}
	return e.Close()
}

// Read deserializes a store written by WriteTo.
func Read(r io.Reader) (*Store, error) {
	dec, err := artifact.NewDecoder(r)
	if err != nil {
		return nil, &model.LoadError{Artifact: Artifact, Err: err}
	}
	dec.Magic(magic)
	s := &Store{width: dec.Len(0)}
	pool := make([]string, dec.Len(4))
	for i := range pool {
		pool[i] = dec.String()
	}
	records := func() [][]string {
		n := dec.Len(4 * s.width)
		if s.width == 0 {
			n = min(n, dec.Remaining())
		}
		recs := make([][]string, n)
		for i := range recs {
			rec := make([]string, s.width)
			for j := range rec {
				ref := dec.Uint32()
				if int(ref) >= len(pool) {
					dec.Fail("record %d field %d: pool index %d of %d", i, j, ref, len(pool))
					return nil
				}
				rec[j] = pool[ref]
			}
			recs[i] = rec
		}
		return recs
	}
	s.known = records()
	s.unknown = records()
	if err := dec.Err(); err != nil {
		return nil, model.Malformed(Artifact, "%v", err)
	}
	return s, nil
}
