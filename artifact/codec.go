package artifact

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

var be = binary.BigEndian

// Encoder writes big-endian values and remembers the first error.
type Encoder struct {
	w   *bufio.Writer
	n   int64
	err error
	buf [8]byte
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(p)
	e.n += int64(n)
	e.err = err
}

func (e *Encoder) Magic(m [8]byte) { e.write(m[:]) }

func (e *Encoder) Uint8(v uint8) { e.write([]byte{v}) }

func (e *Encoder) Uint16(v uint16) {
	be.PutUint16(e.buf[:2], v)
	e.write(e.buf[:2])
}

func (e *Encoder) Int16(v int16) { e.Uint16(uint16(v)) }

func (e *Encoder) Uint32(v uint32) {
	be.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *Encoder) Int32(v int32) { e.Uint32(uint32(v)) }

func (e *Encoder) Uint64(v uint64) {
	be.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

// Len writes a slice length, failing for lengths that do not fit a uint32.
func (e *Encoder) Len(n int) {
	if n < 0 || n > math.MaxUint32 {
		if e.err == nil {
			e.err = fmt.Errorf("length %d out of range", n)
		}
		return
	}
	e.Uint32(uint32(n))
}

// String writes a uint32 length followed by the bytes of s.
func (e *Encoder) String(s string) {
	e.Len(len(s))
	if e.err == nil {
		_, e.err = e.w.WriteString(s)
		e.n += int64(len(s))
	}
}

// Close flushes buffered output and returns the bytes written and first error.
func (e *Encoder) Close() (int64, error) {
	if e.err == nil {
		e.err = e.w.Flush()
	}
	return e.n, e.err
}

// Decoder reads big-endian values from an in-memory table. Reads past the end
// set a sticky error and return zero values, so callers check Err once.
type Decoder struct {
	data []byte
	off  int
	err  error
}

// NewDecoder reads all of r into memory.
func NewDecoder(r io.Reader) (*Decoder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &Decoder{data: data}, nil
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.data)-d.off < n {
		d.err = fmt.Errorf("need %d bytes at offset %d, have %d", n, d.off, len(d.data)-d.off)
		return nil
	}
	p := d.data[d.off : d.off+n]
	d.off += n
	return p
}

// Magic consumes 8 bytes and fails unless they equal m.
func (d *Decoder) Magic(m [8]byte) {
	p := d.take(8)
	if p != nil && [8]byte(p) != m {
		d.err = fmt.Errorf("bad magic %q", p)
	}
}

func (d *Decoder) Uint8() uint8 {
	if p := d.take(1); p != nil {
		return p[0]
	}
	return 0
}

func (d *Decoder) Uint16() uint16 {
	if p := d.take(2); p != nil {
		return be.Uint16(p)
	}
	return 0
}

func (d *Decoder) Int16() int16 { return int16(d.Uint16()) }

func (d *Decoder) Uint32() uint32 {
	if p := d.take(4); p != nil {
		return be.Uint32(p)
	}
	return 0
}

func (d *Decoder) Int32() int32 { return int32(d.Uint32()) }

func (d *Decoder) Uint64() uint64 {
	if p := d.take(8); p != nil {
		return be.Uint64(p)
	}
	return 0
}

// Len reads a length and checks that at least n*unit bytes remain, so a corrupt
// length cannot trigger a huge allocation.
func (d *Decoder) Len(unit int) int {
	n := int(d.Uint32())
	if d.err == nil && unit > 0 && n > (len(d.data)-d.off)/unit {
		d.err = fmt.Errorf("length %d x %d bytes exceeds remaining %d", n, unit, len(d.data)-d.off)
	}
	if d.err != nil {
		return 0
	}
	return n
}

// String reads a string written by Encoder.String.
func (d *Decoder) String() string {
	n := d.Len(1)
	return string(d.take(n))
}

// Fail records err unless an error is already set.
func (d *Decoder) Fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf(format, args...)
	}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.data) - d.off }

// Failed reports whether a read has failed so far.
func (d *Decoder) Failed() bool { return d.err != nil }

// Err returns the first error. Trailing bytes are reported as an error too.
func (d *Decoder) Err() error {
	if d.err == nil && d.off != len(d.data) {
		return fmt.Errorf("%d trailing bytes", len(d.data)-d.off)
	}
	return d.err
}
