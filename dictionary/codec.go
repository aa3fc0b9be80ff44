package dictionary

import (
	"io"

	"goya/artifact"
	"goya/model"
)

// Artifact is the name used in load errors.
const Artifact = "dict"

var magic = [8]byte{'G', 'O', 'Y', 'A', 'D', 'I', 'C', 1}

const (
	flagInvoke = 1 << iota
	flagGroup
)

// WriteTo serializes everything but the index (big endian):
//
//	[8]byte magic
//	vocabulary: uint32 n, n x (int16 left, int16 right, int16 cost)
//	matrix:     uint32 rights, uint32 lefts, rights*lefts x int16
//	classes:    uint32 n, n x (string name, uint8 flags, uint32 length)
//	ranges:     uint32 n, n x (int32 lo, int32 hi, uint8 class, uint64 compat)
//	uint8 default class
//	unknown:    uint32 n, n x (uint8 class, int16 left, int16 right, int16 cost)
func (d *Dictionary) WriteTo(w io.Writer) (int64, error) {
	e := artifact.NewEncoder(w)
	e.Magic(magic)

	e.Len(len(d.Vocabulary))
	for _, v := range d.Vocabulary {
		writeEntry(e, v)
	}

	e.Len(d.Matrix.rights)
	e.Len(d.Matrix.lefts)
	for _, c := range d.Matrix.costs {
		e.Int16(c)
	}

	cc := d.Unknown.Classes
	e.Len(len(cc.classes))
	for _, c := range cc.classes {
		e.String(c.Name)
		var flags uint8
		if c.Invoke {
			flags |= flagInvoke
		}
		if c.Group {
			flags |= flagGroup
		}
		e.Uint8(flags)
		e.Len(c.Length)
	}
	e.Len(len(cc.ranges))
	for _, r := range cc.ranges {
		e.Int32(r.lo)
		e.Int32(r.hi)
		e.Uint8(uint8(r.class))
		e.Uint64(r.compat)
	}
	e.Uint8(uint8(cc.def))

	e.Len(len(d.Unknown.entries))
	for k, v := range d.Unknown.entries {
		e.Uint8(uint8(d.Unknown.classOf[k]))
		writeEntry(e, v)
	}
	return e.Close()
}

func writeEntry(e *artifact.Encoder, v Entry) {
	e.Int16(v.LeftID)
	e.Int16(v.RightID)
	e.Int16(v.Cost)
}

func readEntry(d *artifact.Decoder) Entry {
	return Entry{LeftID: d.Int16(), RightID: d.Int16(), Cost: d.Int16()}
}

// Read deserializes tables written by WriteTo. The returned Dictionary has no
// Index and has not been validated.
func Read(r io.Reader) (*Dictionary, error) {
	dec, err := artifact.NewDecoder(r)
	if err != nil {
		return nil, &model.LoadError{Artifact: Artifact, Err: err}
	}
	dec.Magic(magic)

	vocab := make(Vocabulary, dec.Len(6))
	for i := range vocab {
		vocab[i] = readEntry(dec)
	}

	rights := dec.Len(0)
	lefts := dec.Len(0)
	if rights > 0 && lefts > dec.Remaining()/2/rights {
		dec.Fail("matrix %dx%d exceeds table size", rights, lefts)
		rights, lefts = 0, 0
	}
	m := NewMatrix(rights, lefts)
	for i := range m.costs {
		m.costs[i] = dec.Int16()
	}

	cc := &CharClassifier{classes: make([]CharClass, dec.Len(9))}
	if len(cc.classes) > MaxClasses {
		dec.Fail("%d character classes", len(cc.classes))
		cc.classes = nil
	}
	for i := range cc.classes {
		name := dec.String()
		flags := dec.Uint8()
		cc.classes[i] = CharClass{
			ID:     i,
			Name:   name,
			Invoke: flags&flagInvoke != 0,
			Group:  flags&flagGroup != 0,
			Length: int(dec.Uint32()),
		}
	}
	cc.ranges = make([]charRange, dec.Len(17))
	for i := range cc.ranges {
		rg := charRange{lo: dec.Int32(), hi: dec.Int32(), class: int(dec.Uint8()), compat: dec.Uint64()}
		switch {
		case rg.lo > rg.hi || (i > 0 && rg.lo <= cc.ranges[i-1].hi):
			dec.Fail("character range %d out of order", i)
		case rg.class >= len(cc.classes) || rg.compat>>uint(len(cc.classes)) != 0:
			dec.Fail("character range %d names an undefined class", i)
		}
		cc.ranges[i] = rg
	}
	cc.def = int(dec.Uint8())
	if cc.def >= len(cc.classes) {
		dec.Fail("default class %d undefined", cc.def)
	}

	n := dec.Len(7)
	if dec.Failed() {
		return nil, model.Malformed(Artifact, "%v", dec.Err())
	}
	unk := NewUnknownModel(cc)
	for k := 0; k < n; k++ {
		class := int(dec.Uint8())
		e := readEntry(dec)
		if class >= len(cc.classes) {
			dec.Fail("unknown entry %d names an undefined class", k)
			break
		}
		unk.add(class, e)
	}
	if err := dec.Err(); err != nil {
		return nil, model.Malformed(Artifact, "%v", err)
	}
	return &Dictionary{Vocabulary: vocab, Matrix: m, Unknown: unk}, nil
}
