package trie

import (
	"bufio"
	"encoding/binary"
	"io"
	"unicode/utf8"

	"goya/model"
)

// Artifact is the name used in load errors.
const Artifact = "da"

var magic = [8]byte{'G', 'O', 'Y', 'A', 'D', 'A', 0, 1}

// format (big endian):
//
//	[8]byte magic
//	uint32  alphabet length A
//	uint32  cell count C
//	uint32  key count K
//	uint32  id count N
//	A x int32 runes, strictly ascending
//	C x int32 base
//	C x int32 check
//	K+1 x int32 posting offsets
//	N x int32 word ids
const headerLen = 8 + 4*4

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo serializes the trie. It implements io.WriterTo.
func (t *Trie) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	header := []uint32{
		uint32(len(t.alphabet)),
		uint32(len(t.base)),
		uint32(t.NumKeys()),
		uint32(len(t.ids)),
	}
	ids := make([]int32, len(t.ids))
	for i, id := range t.ids {
		ids[i] = int32(id)
	}
	runes := make([]int32, len(t.alphabet))
	for i, r := range t.alphabet {
		runes[i] = int32(r)
	}
	for _, v := range []any{magic, header, runes, t.base, t.check, t.offsets, ids} {
		if err := binary.Write(bw, binary.BigEndian, v); err != nil {
			return cw.n, err
		}
	}
	if err := bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// Read deserializes a trie written by WriteTo. Any size or offset violation is
// reported as a *model.LoadError.
func Read(r io.Reader) (*Trie, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &model.LoadError{Artifact: Artifact, Err: err}
	}
	if len(data) < headerLen {
		return nil, model.Malformed(Artifact, "truncated header: %d bytes", len(data))
	}
	if [8]byte(data[:8]) != magic {
		return nil, model.Malformed(Artifact, "bad magic %q", data[:8])
	}
	be := binary.BigEndian
	a := uint64(be.Uint32(data[8:]))
	c := uint64(be.Uint32(data[12:]))
	k := uint64(be.Uint32(data[16:]))
	n := uint64(be.Uint32(data[20:]))
	want := uint64(headerLen) + 4*(a+2*c+k+1+n)
	if uint64(len(data)) != want {
		return nil, model.Malformed(Artifact, "size %d does not match header (want %d)", len(data), want)
	}
	if c == 0 {
		return nil, model.Malformed(Artifact, "no root cell")
	}

	p := data[headerLen:]
	next := func(count uint64) []int32 {
		out := make([]int32, count)
		for i := range out {
			out[i] = int32(be.Uint32(p[4*i:]))
		}
		p = p[4*count:]
		return out
	}
	runes := next(a)
	base := next(c)
	check := next(c)
	offsets := next(k + 1)
	ids := next(n)

	t := &Trie{
		alphabet: make([]rune, a),
		base:     base,
		check:    check,
		offsets:  offsets,
		ids:      make([]model.WordID, n),
	}
	for i, r := range runes {
		if !utf8.ValidRune(r) || (i > 0 && r <= runes[i-1]) {
			return nil, model.Malformed(Artifact, "alphabet not ascending at %d", i)
		}
		t.alphabet[i] = r
	}
	for i, id := range ids {
		t.ids[i] = model.WordID(id)
	}

	if t.offsets[0] != 0 || uint64(t.offsets[k]) != n {
		return nil, model.Malformed(Artifact, "posting offsets do not span %d ids", n)
	}
	for i := uint64(1); i <= k; i++ {
		if t.offsets[i] < t.offsets[i-1] {
			return nil, model.Malformed(Artifact, "posting offsets decrease at %d", i)
		}
	}
	for i := range t.base {
		if ch := t.check[i]; ch != free && (ch < 0 || uint64(ch) >= c) {
			return nil, model.Malformed(Artifact, "check[%d]=%d out of range", i, ch)
		}
		if b := t.base[i]; b < 0 && uint64(-b-1) >= k {
			return nil, model.Malformed(Artifact, "leaf %d points past %d keys", i, k)
		}
	}
	t.buildCodes()
	return t, nil
}
