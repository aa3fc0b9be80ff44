package trie

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"goya/model"
)

// Builder collects (key, id) pairs. Adding the same key twice registers a
// homonym; ids of one key are stored in ascending order.
type Builder struct {
	entries map[string][]model.WordID
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[string][]model.WordID)}
}

// Add registers id under key. Empty keys and invalid UTF-8 are rejected.
func (b *Builder) Add(key string, id model.WordID) error {
	if key == "" {
		return errors.New("trie: empty key")
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("trie: key %q is not valid UTF-8", key)
	}
	b.entries[key] = append(b.entries[key], id)
	return nil
}

// Len returns the number of distinct keys added so far.
func (b *Builder) Len() int { return len(b.entries) }

// Build compiles the collected keys into a double array.
func (b *Builder) Build() *Trie {
	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	// byte order of UTF-8 strings is code point order
	sort.Strings(keys)

	t := &Trie{offsets: make([]int32, 1, len(keys)+1)}
	seen := make(map[rune]struct{})
	for _, k := range keys {
		ids := append([]model.WordID(nil), b.entries[k]...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		t.ids = append(t.ids, ids...)
		t.offsets = append(t.offsets, int32(len(t.ids)))
		for _, r := range k {
			seen[r] = struct{}{}
		}
	}
	for r := range seen {
		t.alphabet = append(t.alphabet, r)
	}
	sort.Slice(t.alphabet, func(i, j int) bool { return t.alphabet[i] < t.alphabet[j] })
	t.buildCodes()

	coded := make([][]int32, len(keys))
	for i, k := range keys {
		coded[i] = make([]int32, 0, len(k))
		for _, r := range k {
			coded[i] = append(coded[i], t.codes[r])
		}
	}

	db := &doubleArrayBuilder{keys: coded, nextCheckPos: 1}
	db.grow(1)
	db.check[rootNode] = rootNode
	if len(coded) > 0 {
		db.insert(rootNode, db.fetch(0, len(coded), 0), 0)
	} else {
		db.base[rootNode] = 1
	}
	t.base = db.base
	t.check = db.check
	return t
}

type sibling struct {
	code        int32
	left, right int // keys[left:right] continue with code at this depth
}

type doubleArrayBuilder struct {
	keys         [][]int32
	base         []int32
	check        []int32
	used         []bool
	nextCheckPos int32
}

func (b *doubleArrayBuilder) grow(n int32) {
	for int32(len(b.check)) < n {
		b.base = append(b.base, 0)
		b.check = append(b.check, free)
		b.used = append(b.used, false)
	}
}

// fetch groups keys[left:right] by their code at depth. A key ending exactly at
// depth yields the terminator code 0, which sorts first.
func (b *doubleArrayBuilder) fetch(left, right, depth int) []sibling {
	var out []sibling
	for i := left; i < right; i++ {
		key := b.keys[i]
		var code int32
		if depth < len(key) {
			code = key[depth]
		}
		if n := len(out); n > 0 && out[n-1].code == code {
			out[n-1].right = i + 1
			continue
		}
		out = append(out, sibling{code: code, left: i, right: i + 1})
	}
	return out
}

func (b *doubleArrayBuilder) insert(s int32, siblings []sibling, depth int) {
	begin := b.findBase(siblings)
	b.base[s] = begin
	for _, sib := range siblings {
		b.check[begin+sib.code] = s
	}
	for _, sib := range siblings {
		t := begin + sib.code
		if sib.code == 0 {
			b.base[t] = -int32(sib.left) - 1
			continue
		}
		b.insert(t, b.fetch(sib.left, sib.right, depth+1), depth+1)
	}
}

// findBase returns the smallest unused base placing every sibling on a free cell.
func (b *doubleArrayBuilder) findBase(siblings []sibling) int32 {
	first := siblings[0].code
	last := siblings[len(siblings)-1].code
	pos := max(first+1, b.nextCheckPos) - 1
	nonzero := 0
	firstFree := true
	for {
		pos++
		b.grow(pos + 1)
		if b.check[pos] != free {
			nonzero++
			continue
		}
		if firstFree {
			b.nextCheckPos = pos
			firstFree = false
		}
		begin := pos - first
		if begin < 1 {
			continue
		}
		b.grow(begin + last + 1)
		if b.used[begin] {
			continue
		}
		ok := true
		for _, sib := range siblings[1:] {
			if b.check[begin+sib.code] != free {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		// skip over densely packed regions on the next search
		if float64(nonzero)/float64(pos-b.nextCheckPos+1) >= 0.95 {
			b.nextCheckPos = pos
		}
		b.used[begin] = true
		return begin
	}
}
