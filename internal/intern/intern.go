// Package intern implements the compilation's string interner: spec.md
// §4.2's "put(StringView) -> index", an open-addressed map from
// byte-equal strings to dense, insertion-stable indices. The AST uses it
// to canonicalize identifiers; the writer uses the same table to build
// the module-level NOT_PYTHON_STRING_CONSTANTS table.
package intern

import "github.com/cespare/xxhash/v2"

const loadFactorPercent = 50

// Interner deduplicates strings and hands back a stable dense index.
// Grounded on google-gapid/gapil/semantic/symbols.go's Symbols table
// (dedup-by-key over a slice), adapted from a sorted-slice binary search
// to an open-addressed hash table since spec.md requires O(1)-amortized
// Put/Get rather than Find's O(log n) plus a deferred sort.
type Interner struct {
	strings []string       // dense, insertion order: index is the interned value
	lookup  []int32        // open-addressed table of indices into strings, -1 = empty
	count   int
}

// New returns an empty Interner.
func New() *Interner {
	in := &Interner{}
	in.lookup = newLookup(16)
	return in
}

func newLookup(n int) []int32 {
	l := make([]int32, n)
	for i := range l {
		l[i] = -1
	}
	return l
}

// Put interns s, returning its stable dense index. Byte-equal strings
// (on any call, before or after growth) always return the same index —
// spec.md's "Interner idempotence" testable property.
func (in *Interner) Put(s string) int {
	if idx, ok := in.find(s); ok {
		return idx
	}
	if (in.count+1)*100 > len(in.lookup)*loadFactorPercent {
		in.grow()
	}
	idx := len(in.strings)
	in.strings = append(in.strings, s)
	in.count++
	in.insert(s, idx)
	return idx
}

// Get returns the string at a previously returned index.
func (in *Interner) Get(index int) string { return in.strings[index] }

// Len returns how many distinct strings have been interned.
func (in *Interner) Len() int { return len(in.strings) }

// All returns the interned strings in insertion order — the order the
// writer emits NOT_PYTHON_STRING_CONSTANTS in.
func (in *Interner) All() []string { return in.strings }

func (in *Interner) find(s string) (int, bool) {
	h := xxhash.Sum64String(s)
	n := len(in.lookup)
	probe := int(h % uint64(n))
	for i := 0; i < n; i++ {
		slot := in.lookup[probe]
		if slot < 0 {
			return 0, false
		}
		if in.strings[slot] == s {
			return int(slot), true
		}
		probe = (probe + 1) % n
	}
	return 0, false
}

func (in *Interner) insert(s string, idx int) {
	h := xxhash.Sum64String(s)
	n := len(in.lookup)
	probe := int(h % uint64(n))
	for {
		if in.lookup[probe] < 0 {
			in.lookup[probe] = int32(idx)
			return
		}
		probe = (probe + 1) % n
	}
}

func (in *Interner) grow() {
	in.lookup = newLookup(len(in.lookup) * 2)
	for i, s := range in.strings {
		in.insert(s, i)
	}
}
