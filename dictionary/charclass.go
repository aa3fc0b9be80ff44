package dictionary

import (
	"fmt"
	"slices"
	"sort"
)

const (
	// DefaultClass is the class of characters not covered by any range.
	DefaultClass = "DEFAULT"
	// MaxGroupLength caps a grouped unknown word whose class sets no length.
	MaxGroupLength = 1024
	// MaxClasses is the number of classes a compat bitmask can hold.
	MaxClasses = 64
)

// CharClass is a character category with its unknown-word rules.
//
// Invoke makes unknown words start here even when a known word does. Group
// makes the whole run of compatible characters a single unknown word. Length is
// the span limit: the longest group (0 means MaxGroupLength), or the longest
// of the 1..Length spans of a non-grouping class.
type CharClass struct {
	ID     int
	Name   string
	Invoke bool
	Group  bool
	Length int
}

// charRange maps lo..hi (inclusive) to a class plus the extra classes whose
// runs the characters may continue.
type charRange struct {
	lo, hi rune
	class  int
	compat uint64
}

// CharClassifier assigns every rune a CharClass.
type CharClassifier struct {
	classes []CharClass
	ranges  []charRange // sorted, disjoint
	def     int
}

// Classify returns the class of r.
func (c *CharClassifier) Classify(r rune) *CharClass {
	if rg, ok := c.find(r); ok {
		return &c.classes[rg.class]
	}
	return &c.classes[c.def]
}

// Continues reports whether r may extend a run of the given class.
func (c *CharClassifier) Continues(r rune, class int) bool {
	rg, ok := c.find(r)
	if !ok {
		return class == c.def
	}
	return rg.class == class || rg.compat&(1<<uint(class)) != 0
}

func (c *CharClassifier) find(r rune) (charRange, bool) {
	i := sort.Search(len(c.ranges), func(i int) bool { return c.ranges[i].hi >= r })
	if i < len(c.ranges) && c.ranges[i].lo <= r {
		return c.ranges[i], true
	}
	return charRange{}, false
}

// Classes returns all classes ordered by id.
func (c *CharClassifier) Classes() []CharClass { return c.classes }

// Default returns the DEFAULT class.
func (c *CharClassifier) Default() *CharClass { return &c.classes[c.def] }

// Lookup finds a class by name.
func (c *CharClassifier) Lookup(name string) (*CharClass, bool) {
	for i := range c.classes {
		if c.classes[i].Name == name {
			return &c.classes[i], true
		}
	}
	return nil, false
}

// ClassifierBuilder collects class definitions and range lines. Later range
// lines override earlier ones where they overlap.
type ClassifierBuilder struct {
	classes []CharClass
	byName  map[string]int
	lines   []charRange
}

// NewClassifierBuilder returns an empty builder.
func NewClassifierBuilder() *ClassifierBuilder {
	return &ClassifierBuilder{byName: make(map[string]int)}
}

// AddClass defines a class and returns its id.
func (b *ClassifierBuilder) AddClass(name string, invoke, group bool, length int) (int, error) {
	if _, dup := b.byName[name]; dup {
		return 0, fmt.Errorf("class %s defined twice", name)
	}
	if len(b.classes) == MaxClasses {
		return 0, fmt.Errorf("more than %d character classes", MaxClasses)
	}
	if length < 0 {
		return 0, fmt.Errorf("class %s: negative length %d", name, length)
	}
	id := len(b.classes)
	b.classes = append(b.classes, CharClass{ID: id, Name: name, Invoke: invoke, Group: group, Length: length})
	b.byName[name] = id
	return id, nil
}

// AddRange assigns lo..hi to class; compat names classes the characters may
// also continue.
func (b *ClassifierBuilder) AddRange(lo, hi rune, class string, compat ...string) error {
	if lo > hi {
		return fmt.Errorf("range %#x..%#x is reversed", lo, hi)
	}
	id, ok := b.byName[class]
	if !ok {
		return fmt.Errorf("range %#x..%#x: undefined class %s", lo, hi, class)
	}
	var mask uint64
	for _, name := range compat {
		cid, ok := b.byName[name]
		if !ok {
			return fmt.Errorf("range %#x..%#x: undefined class %s", lo, hi, name)
		}
		mask |= 1 << uint(cid)
	}
	b.lines = append(b.lines, charRange{lo: lo, hi: hi, class: id, compat: mask})
	return nil
}

// Build resolves overlapping lines into disjoint ranges. DEFAULT must exist.
func (b *ClassifierBuilder) Build() (*CharClassifier, error) {
	def, ok := b.byName[DefaultClass]
	if !ok {
		return nil, fmt.Errorf("class %s is not defined", DefaultClass)
	}
	var ranges []charRange
	for _, l := range b.lines {
		ranges = paint(ranges, l)
	}
	merged := ranges[:0]
	for _, r := range ranges {
		if n := len(merged); n > 0 && merged[n-1].hi == r.lo-1 &&
			merged[n-1].class == r.class && merged[n-1].compat == r.compat {
			merged[n-1].hi = r.hi
			continue
		}
		merged = append(merged, r)
	}
	return &CharClassifier{classes: b.classes, ranges: merged, def: def}, nil
}

// paint overlays r on the sorted disjoint ranges, trimming what it covers.
func paint(ranges []charRange, r charRange) []charRange {
	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].hi >= r.lo })
	j := sort.Search(len(ranges), func(j int) bool { return ranges[j].lo > r.hi })
	repl := make([]charRange, 0, 3)
	if i < j && ranges[i].lo < r.lo {
		head := ranges[i]
		head.hi = r.lo - 1
		repl = append(repl, head)
	}
	repl = append(repl, r)
	if i < j && ranges[j-1].hi > r.hi {
		tail := ranges[j-1]
		tail.lo = r.hi + 1
		repl = append(repl, tail)
	}
	return slices.Replace(ranges, i, j, repl...)
}
