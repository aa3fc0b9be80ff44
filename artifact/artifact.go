// Package artifact holds the file layout shared by the serialized dictionary
// tables: file names, zstd framing and a bounds-checked big-endian codec.
package artifact

import (
	"bufio"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// File names of the three independently loadable tables.
const (
	TrieFile       = "da.bin"
	DictionaryFile = "dict.bin"
	FeaturesFile   = "features.bin"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// Open opens name in fsys and transparently decompresses zstd frames.
func Open(fsys fs.FS, name string) (io.ReadCloser, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	return Wrap(f)
}

// Wrap returns a reader over rc that decompresses its content when it starts
// with a zstd frame. Closing the result closes rc.
func Wrap(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)
	head, _ := br.Peek(len(zstdMagic))
	if !bytes.Equal(head, zstdMagic) {
		return readCloser{Reader: br, close: rc.Close}, nil
	}
	dec, err := zstd.NewReader(br)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return readCloser{Reader: dec, close: func() error {
		dec.Close()
		return rc.Close()
	}}, nil
}

// File is a table being written. Close publishes it, Abort discards it.
type File struct {
	w       io.Writer
	f       *os.File
	bw      *bufio.Writer
	enc     *zstd.Encoder
	tmp     string
	final   string
	settled bool
}

func (f *File) Write(p []byte) (int, error) { return f.w.Write(p) }

// Close flushes the table and renames it into place.
func (f *File) Close() error {
	if f.settled {
		return nil
	}
	f.settled = true
	var err error
	if f.enc != nil {
		err = f.enc.Close()
	}
	if err == nil {
		err = f.bw.Flush()
	}
	if cerr := f.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.tmp)
		return err
	}
	return os.Rename(f.tmp, f.final)
}

// Abort removes the partial table. It is a no-op after Close.
func (f *File) Abort() {
	if f.settled {
		return
	}
	f.settled = true
	if f.enc != nil {
		f.enc.Close()
	}
	f.f.Close()
	_ = os.Remove(f.tmp)
}

// Create starts dir/name, optionally zstd compressed. Content goes to a
// temporary file until Close, so readers never see a partial table.
func Create(dir, name string, compress bool) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	final := filepath.Join(dir, name)
	f, err := os.Create(final + ".tmp")
	if err != nil {
		return nil, err
	}
	out := &File{f: f, bw: bufio.NewWriter(f), tmp: final + ".tmp", final: final}
	out.w = out.bw
	if compress {
		out.enc, err = zstd.NewWriter(out.bw, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			out.Abort()
			return nil, err
		}
		out.w = out.enc
	}
	return out, nil
}

// Write creates dir/name and fills it from src.
func Write(dir, name string, compress bool, src io.WriterTo) error {
	f, err := Create(dir, name, compress)
	if err != nil {
		return err
	}
	if _, err := src.WriteTo(f); err != nil {
		f.Abort()
		return err
	}
	return f.Close()
}
