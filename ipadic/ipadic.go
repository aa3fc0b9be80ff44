// Package ipadic compiles a MeCab IPADIC source directory (*.csv, matrix.def,
// char.def, unk.def) into the trie, dictionary and feature tables.
package ipadic

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"goya/dictionary"
	"goya/features"
	"goya/model"
	"goya/trie"
)

// DefaultEncoding is the encoding IPADIC is distributed in.
const DefaultEncoding = "euc-jp"

// Options controls Compile.
type Options struct {
	// Encoding of the source files, any WHATWG label ("euc-jp", "utf-8", "shift_jis").
	Encoding string
}

// Compiled is the result of Compile. Dictionary.Index is Trie.
type Compiled struct {
	Trie       *trie.Trie
	Dictionary *dictionary.Dictionary
	Features   *features.Store
}

type compiler struct {
	fsys    fs.FS
	decode  func(io.Reader) io.Reader
	strings map[string]string
}

// Compile reads an IPADIC source tree. Word ids follow the order of the csv
// files (sorted by name) and of the rows inside them.
func Compile(fsys fs.FS, opts Options) (*Compiled, error) {
	name := opts.Encoding
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("source encoding %q: %w", name, err)
	}
	c := &compiler{
		fsys:    fsys,
		decode:  func(r io.Reader) io.Reader { return transform.NewReader(r, enc.NewDecoder()) },
		strings: make(map[string]string),
	}

	classes, err := c.charDef("char.def")
	if err != nil {
		return nil, err
	}
	matrix, err := c.matrixDef("matrix.def")
	if err != nil {
		return nil, err
	}

	files, err := fs.Glob(fsys, "*.csv")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no *.csv lexicon files")
	}
	tb := trie.NewBuilder()
	var (
		vocab dictionary.Vocabulary
		known [][]string
	)
	for _, f := range files {
		err := c.rows(f, func(rec []string) error {
			e, err := entry(rec)
			if err != nil {
				return err
			}
			id := model.WordID(len(vocab))
			if err := tb.Add(strings.Clone(rec[0]), id); err != nil {
				return err
			}
			vocab = append(vocab, e)
			known = append(known, c.fields(rec[4:]))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	unk := dictionary.NewUnknownModel(classes)
	var templates [][]string
	err = c.rows("unk.def", func(rec []string) error {
		e, err := entry(rec)
		if err != nil {
			return err
		}
		if _, err := unk.Add(rec[0], e); err != nil {
			return err
		}
		templates = append(templates, c.fields(rec[4:]))
		return nil
	})
	if err != nil {
		return nil, err
	}

	t := tb.Build()
	d := &dictionary.Dictionary{Index: t, Vocabulary: vocab, Matrix: matrix, Unknown: unk}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &Compiled{Trie: t, Dictionary: d, Features: features.NewStore(known, templates)}, nil
}

func (c *compiler) open(name string) (io.Reader, func() error, error) {
	f, err := c.fsys.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return c.decode(bufio.NewReader(f)), f.Close, nil
}

func (c *compiler) fields(src []string) []string {
	out := make([]string, len(src))
	for i, s := range src {
		v, ok := c.strings[s]
		if !ok {
			v = strings.Clone(s)
			c.strings[s] = v
		}
		out[i] = v
	}
	return out
}

// rows calls fn for every record of a csv file: surface or class, left id,
// right id, cost, features.
func (c *compiler) rows(name string, fn func(rec []string) error) error {
	r, closeFn, err := c.open(name)
	if err != nil {
		return err
	}
	defer closeFn()
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < 4 {
			return fmt.Errorf("%s:%d: %d columns, want at least 4", name, line, len(rec))
		}
		if err := fn(rec); err != nil {
			return fmt.Errorf("%s:%d: %w", name, line, err)
		}
	}
}

func entry(rec []string) (dictionary.Entry, error) {
	var v [3]int16
	for i := range v {
		n, err := strconv.ParseInt(strings.TrimSpace(rec[i+1]), 10, 16)
		if err != nil {
			return dictionary.Entry{}, err
		}
		v[i] = int16(n)
	}
	return dictionary.Entry{LeftID: v[0], RightID: v[1], Cost: v[2]}, nil
}

// lines calls fn with the whitespace separated fields of every non-empty line,
// comments removed.
func (c *compiler) lines(name string, fn func(line int, fields []string) error) error {
	r, closeFn, err := c.open(name)
	if err != nil {
		return err
	}
	defer closeFn()
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if err := fn(n, fields); err != nil {
			return fmt.Errorf("%s:%d: %w", name, n, err)
		}
	}
	return sc.Err()
}

func (c *compiler) matrixDef(name string) (*dictionary.Matrix, error) {
	var m *dictionary.Matrix
	err := c.lines(name, func(_ int, f []string) error {
		nums := make([]int, len(f))
		for i, s := range f {
			n, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			nums[i] = n
		}
		if m == nil {
			if len(nums) != 2 || nums[0] <= 0 || nums[1] <= 0 {
				return fmt.Errorf("bad matrix header %v", f)
			}
			m = dictionary.NewMatrix(nums[0], nums[1])
			return nil
		}
		rights, lefts := m.Size()
		if len(nums) != 3 || nums[0] < 0 || nums[0] >= rights || nums[1] < 0 || nums[1] >= lefts {
			return fmt.Errorf("bad matrix cell %v", f)
		}
		if nums[2] < -32768 || nums[2] > 32767 {
			return fmt.Errorf("cost %d overflows int16", nums[2])
		}
		m.Set(nums[0], nums[1], int16(nums[2]))
		return nil
	})
	if err == nil && m == nil {
		err = fmt.Errorf("%s: empty", name)
	}
	return m, err
}

type rangeLine struct {
	line   int
	lo, hi rune
	class  string
	compat []string
}

// charDef reads class definitions ("NAME invoke group length") and code point
// ranges ("0xAAAA[..0xBBBB] CLASS [COMPAT...]").
func (c *compiler) charDef(name string) (*dictionary.CharClassifier, error) {
	b := dictionary.NewClassifierBuilder()
	var ranges []rangeLine
	err := c.lines(name, func(line int, f []string) error {
		if strings.HasPrefix(f[0], "0x") {
			if len(f) < 2 {
				return fmt.Errorf("range %s has no class", f[0])
			}
			lo, hi, err := codeRange(f[0])
			if err != nil {
				return err
			}
			ranges = append(ranges, rangeLine{line: line, lo: lo, hi: hi, class: f[1], compat: f[2:]})
			return nil
		}
		if len(f) < 4 {
			return fmt.Errorf("class %s: want invoke, group and length", f[0])
		}
		var flags [3]int
		for i := range flags {
			n, err := strconv.Atoi(f[i+1])
			if err != nil {
				return err
			}
			flags[i] = n
		}
		_, err := b.AddClass(f[0], flags[0] != 0, flags[1] != 0, flags[2])
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, r := range ranges {
		if err := b.AddRange(r.lo, r.hi, r.class, r.compat...); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, r.line, err)
		}
	}
	return b.Build()
}

func codeRange(s string) (rune, rune, error) {
	loS, hiS, found := strings.Cut(s, "..")
	lo, err := strconv.ParseInt(loS, 0, 32)
	if err != nil {
		return 0, 0, err
	}
	hi := lo
	if found {
		if hi, err = strconv.ParseInt(hiS, 0, 32); err != nil {
			return 0, 0, err
		}
	}
	return rune(lo), rune(hi), nil
}
