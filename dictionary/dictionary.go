// Package dictionary holds the read-only tables a lattice is built from: the
// prefix index, word costs, connection matrix and unknown-word rules.
package dictionary

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sync/errgroup"

	"goya/artifact"
	"goya/model"
	"goya/trie"
)

// Index finds every dictionary surface that is a prefix of s. n is the byte
// length of the prefix; fn may be called several times with the same n.
type Index interface {
	PrefixSearch(s string, fn func(n int, ids []model.WordID))
}

var _ Index = (*trie.Trie)(nil)

// Dictionary is immutable once loaded and safe for concurrent use.
type Dictionary struct {
	Index      Index
	Vocabulary Vocabulary
	Matrix     *Matrix
	Unknown    *UnknownModel
}

// Entry returns the entry of a known or unknown word id.
func (d *Dictionary) Entry(id model.WordID) (Entry, bool) {
	if id.Known() {
		return d.Vocabulary.Entry(id)
	}
	return d.Unknown.Entry(id)
}

// Classes returns the character classifier of the unknown-word model.
func (d *Dictionary) Classes() *CharClassifier { return d.Unknown.Classes }

// Validate checks every context id against the matrix and that unknown words
// can always be produced. It runs once at load so lookups need no checks.
func (d *Dictionary) Validate() error {
	if d.Index == nil || d.Matrix == nil || d.Unknown == nil {
		return model.Malformed(Artifact, "incomplete dictionary")
	}
	if !d.Matrix.contains(0, 0) {
		return model.Malformed(Artifact, "matrix has no entry for the sentence boundary")
	}
	for i, e := range d.Vocabulary {
		if !d.Matrix.contains(e.RightID, e.LeftID) {
			return model.Malformed(Artifact, "word %d: context ids (%d,%d) outside matrix", i, e.LeftID, e.RightID)
		}
	}
	for k, e := range d.Unknown.entries {
		if !d.Matrix.contains(e.RightID, e.LeftID) {
			return model.Malformed(Artifact, "unknown entry %d: context ids (%d,%d) outside matrix", k, e.LeftID, e.RightID)
		}
	}
	if len(d.Unknown.byClass[d.Unknown.Classes.def]) == 0 {
		return model.Malformed(Artifact, "no unknown-word entry for class %s", DefaultClass)
	}
	if t, ok := d.Index.(interface{ MaxID() model.WordID }); ok {
		if top := t.MaxID(); int(top) >= len(d.Vocabulary) {
			return model.Malformed(trie.Artifact, "word id %d past vocabulary of %d", top, len(d.Vocabulary))
		}
	}
	return nil
}

// Artifacts locates the serialized tables.
type Artifacts struct {
	FS fs.FS
}

// Dir returns Artifacts reading from a directory.
func Dir(dir string) Artifacts { return Artifacts{FS: os.DirFS(dir)} }

// Load reads the trie and the dictionary tables concurrently and validates
// them. Every failure matches model.ErrDictionaryLoad.
func Load(ctx context.Context, a Artifacts) (*Dictionary, error) {
	var (
		idx *trie.Trie
		d   *Dictionary
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rc, err := artifact.Open(a.FS, artifact.TrieFile)
		if err != nil {
			return &model.LoadError{Artifact: trie.Artifact, Err: err}
		}
		defer rc.Close()
		idx, err = trie.Read(rc)
		return err
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rc, err := artifact.Open(a.FS, artifact.DictionaryFile)
		if err != nil {
			return &model.LoadError{Artifact: Artifact, Err: err}
		}
		defer rc.Close()
		d, err = Read(rc)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	d.Index = idx
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Save writes the trie and the dictionary tables into dir.
func Save(dir string, idx *trie.Trie, d *Dictionary, compress bool) error {
	if err := artifact.Write(dir, artifact.TrieFile, compress, idx); err != nil {
		return fmt.Errorf("write trie: %w", err)
	}
	if err := artifact.Write(dir, artifact.DictionaryFile, compress, d); err != nil {
		return fmt.Errorf("write dictionary: %w", err)
	}
	return nil
}
