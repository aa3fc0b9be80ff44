/*
Package trie implements a double-array trie mapping surface forms to word ids.

A key is a sequence of runes; every rune of the dictionary alphabet gets a code
starting at 1 and code 0 terminates a key. The terminal cell of a key stores,
negated, the index of its posting list, so homonyms (several word ids sharing a
surface form) are answered by a single lookup.

The read path (PrefixSearch, Lookup, Exact) never allocates: it walks base and
check arrays and hands out sub-slices of the posting table.
*/
package trie

import (
	"unicode/utf8"

	"goya/model"
)

const (
	rootNode = 0
	free     = -1
)

// Match is one key found by Lookup: the byte length of the matched prefix and
// the word ids registered under it.
type Match struct {
	Len int
	IDs []model.WordID
}

// Trie is an immutable double-array trie. It is safe for concurrent reads.
type Trie struct {
	alphabet []rune
	codes    map[rune]int32
	base     []int32
	check    []int32
	offsets  []int32 // posting list k is ids[offsets[k]:offsets[k+1]]
	ids      []model.WordID
}

// NumKeys returns the number of distinct keys.
func (t *Trie) NumKeys() int { return len(t.offsets) - 1 }

// NumIDs returns the number of word ids over all keys.
func (t *Trie) NumIDs() int { return len(t.ids) }

// NumCells returns the size of the base/check arrays.
func (t *Trie) NumCells() int { return len(t.base) }

func (t *Trie) code(r rune) (int32, bool) {
	c, ok := t.codes[r]
	return c, ok
}

// transition follows the edge labelled code from node s.
func (t *Trie) transition(s, code int32) (int32, bool) {
	b := t.base[s]
	if b <= 0 {
		return 0, false
	}
	next := b + code
	if next < 0 || int(next) >= len(t.check) || t.check[next] != s {
		return 0, false
	}
	return next, true
}

// postings returns the word ids of the key ending at node s, if any.
func (t *Trie) postings(s int32) ([]model.WordID, bool) {
	leaf, ok := t.transition(s, 0)
	if !ok || t.base[leaf] >= 0 {
		return nil, false
	}
	v := -t.base[leaf] - 1
	return t.ids[t.offsets[v]:t.offsets[v+1]], true
}

// PrefixSearch calls fn for every key that is a prefix of s, shortest first.
// n is the byte length of the prefix. The ids slice must not be modified.
func (t *Trie) PrefixSearch(s string, fn func(n int, ids []model.WordID)) {
	node := int32(rootNode)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return
		}
		code, ok := t.code(r)
		if !ok {
			return
		}
		if node, ok = t.transition(node, code); !ok {
			return
		}
		i += size
		if ids, ok := t.postings(node); ok {
			fn(i, ids)
		}
	}
}

// Lookup appends every prefix match of s to dst and returns the extended slice.
func (t *Trie) Lookup(dst []Match, s string) []Match {
	t.PrefixSearch(s, func(n int, ids []model.WordID) {
		dst = append(dst, Match{Len: n, IDs: ids})
	})
	return dst
}

// Exact returns the word ids registered for key.
func (t *Trie) Exact(key string) ([]model.WordID, bool) {
	if key == "" || !utf8.ValidString(key) {
		return nil, false
	}
	node := int32(rootNode)
	for _, r := range key {
		code, ok := t.code(r)
		if !ok {
			return nil, false
		}
		if node, ok = t.transition(node, code); !ok {
			return nil, false
		}
	}
	return t.postings(node)
}

func (t *Trie) buildCodes() {
	t.codes = make(map[rune]int32, len(t.alphabet))
	for i, r := range t.alphabet {
		t.codes[r] = int32(i + 1)
	}
}

// MaxID returns the largest word id stored, or -1 for an empty trie.
func (t *Trie) MaxID() model.WordID {
	max := model.WordID(-1)
	for _, id := range t.ids {
		if id > max {
			max = id
		}
	}
	return max
}
