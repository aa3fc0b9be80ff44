// Package kagomedict serves the dictionaries bundled with kagome-dict (IPADIC
// and UniDic) through the goya dictionary and feature tables, so they can be
// used without compiling a source tree first.
package kagomedict

import (
	"fmt"
	"sync"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome-dict/uni"

	"goya/dictionary"
	"goya/features"
	"goya/model"
)

// Names of the bundled dictionaries.
const (
	IPAName = "ipa"
	UNIName = "uni"
)

// Source is a converted kagome dictionary.
type Source struct {
	Name       string
	Dictionary *dictionary.Dictionary
	Features   *features.Store
}

type loaded struct {
	once sync.Once
	src  *Source
	err  error
}

var bundled = map[string]*loaded{
	IPAName: {},
	UNIName: {},
}

// Open converts a bundled dictionary by name. The conversion runs once per
// process; later calls share the result.
func Open(name string) (*Source, error) {
	l, ok := bundled[name]
	if !ok {
		return nil, fmt.Errorf("no bundled dictionary %q (want %s or %s)", name, IPAName, UNIName)
	}
	l.once.Do(func() {
		var d *dict.Dict
		switch name {
		case IPAName:
			d = ipa.Dict()
		case UNIName:
			d = uni.Dict()
		}
		l.src, l.err = Convert(name, d)
	})
	return l.src, l.err
}

// IPA returns the bundled IPADIC.
func IPA() (*Source, error) { return Open(IPAName) }

// UNI returns the bundled UniDic.
func UNI() (*Source, error) { return Open(UNIName) }

// Convert maps a kagome dictionary onto goya tables. The prefix index is shared
// with d, not copied.
func Convert(name string, d *dict.Dict) (*Source, error) {
	if d == nil {
		return nil, &model.LoadError{Artifact: name, Err: fmt.Errorf("nil dictionary")}
	}
	vocab := make(dictionary.Vocabulary, len(d.Morphs))
	for i, m := range d.Morphs {
		vocab[i] = dictionary.Entry{LeftID: m.LeftID, RightID: m.RightID, Cost: m.Weight}
	}

	rows, cols := int(d.Connection.Row), int(d.Connection.Col)
	if rows*cols != len(d.Connection.Vec) {
		return nil, model.Malformed(name, "connection table %dx%d has %d cells", rows, cols, len(d.Connection.Vec))
	}
	// kagome stores the table column-major; At does the indexing.
	matrix := dictionary.NewMatrix(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			matrix.Set(r, c, d.Connection.At(r, c))
		}
	}

	classes, err := charClasses(d)
	if err != nil {
		return nil, &model.LoadError{Artifact: name, Err: err}
	}
	unk, err := unknownModel(d, classes)
	if err != nil {
		return nil, &model.LoadError{Artifact: name, Err: err}
	}

	out := &dictionary.Dictionary{
		Index:      index{idx: d.Index},
		Vocabulary: vocab,
		Matrix:     matrix,
		Unknown:    unk,
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &Source{Name: name, Dictionary: out, Features: featureStore(d)}, nil
}

func charClasses(d *dict.Dict) (*dictionary.CharClassifier, error) {
	if len(d.InvokeList) < len(d.CharClass) || len(d.GroupList) < len(d.CharClass) {
		return nil, fmt.Errorf("%d classes but %d invoke and %d group flags",
			len(d.CharClass), len(d.InvokeList), len(d.GroupList))
	}
	b := dictionary.NewClassifierBuilder()
	for i, name := range d.CharClass {
		if _, err := b.AddClass(name, d.InvokeList[i], d.GroupList[i], 0); err != nil {
			return nil, err
		}
	}
	// the category table is dense; turn it into runs
	cat := d.CharCategory
	for lo := 0; lo < len(cat); {
		hi := lo
		for hi+1 < len(cat) && cat[hi+1] == cat[lo] {
			hi++
		}
		c := int(cat[lo])
		if c >= len(d.CharClass) {
			return nil, fmt.Errorf("code point %#x has undefined category %d", lo, c)
		}
		if err := b.AddRange(rune(lo), rune(hi), d.CharClass[c]); err != nil {
			return nil, err
		}
		lo = hi + 1
	}
	return b.Build()
}

func unknownModel(d *dict.Dict, classes *dictionary.CharClassifier) (*dictionary.UnknownModel, error) {
	owner := make([]string, len(d.UnkDict.Morphs))
	for i, name := range d.CharClass {
		first, ok := d.UnkDict.Index[int32(i)]
		if !ok {
			continue
		}
		dup := d.UnkDict.IndexDup[int32(i)]
		for k := first; k <= first+dup; k++ {
			if k < 0 || int(k) >= len(owner) {
				return nil, fmt.Errorf("class %s: unknown entry %d out of range", name, k)
			}
			owner[k] = name
		}
	}
	u := dictionary.NewUnknownModel(classes)
	for k, m := range d.UnkDict.Morphs {
		if owner[k] == "" {
			return nil, fmt.Errorf("unknown entry %d belongs to no class", k)
		}
		if _, err := u.Add(owner[k], dictionary.Entry{LeftID: m.LeftID, RightID: m.RightID, Cost: m.Weight}); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func featureStore(d *dict.Dict) *features.Store {
	known := make([][]string, len(d.Morphs))
	for i := range known {
		var rec []string
		if i < len(d.POSTable.POSs) {
			for _, p := range d.POSTable.POSs[i] {
				if int(p) < len(d.POSTable.NameList) {
					rec = append(rec, d.POSTable.NameList[p])
				}
			}
		}
		if i < len(d.Contents) {
			rec = append(rec, d.Contents[i]...)
		}
		known[i] = rec
	}
	unknown := make([][]string, len(d.UnkDict.Morphs))
	for k := range unknown {
		if k < len(d.UnkDict.Contents) {
			unknown[k] = d.UnkDict.Contents[k]
		}
	}
	return features.NewStore(known, unknown)
}

// index answers prefix searches with kagome's own double array.
type index struct {
	idx dict.IndexTable
}

func (x index) PrefixSearch(s string, fn func(n int, ids []model.WordID)) {
	var buf [1]model.WordID
	x.idx.CommonPrefixSearchCallback(s, func(id, l int) {
		buf[0] = model.WordID(id)
		fn(l, buf[:])
	})
}
