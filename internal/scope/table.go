package scope

import "github.com/cespare/xxhash/v2"

// lookupElementsRatio mirrors original_source/src/hashmap.c's
// LOOKUP_CAPACITY_ELEMENTS_CAPACITY_RATIO: the lookup array is always
// twice the element capacity.
const lookupElementsRatio = 2

// loadFactorPercent is the grow threshold spec.md §4.3 names: "grows if
// load > 50%".
const loadFactorPercent = 50

// Table is spec.md §3/§4.3's SymbolTable: an insertion-ordered,
// open-addressed hashmap keyed by identifier. Grounded line-for-line on
// original_source/src/hashmap.c's layout math and linear-probe
// get/put/finalize, with google-gapid/gapil/semantic/symbols.go's
// "Symbols" giving the Go-idiomatic method names (Put/Get instead of
// Add/Find).
//
// A Table is either growable (Put allowed) or Finalized (Put forbidden,
// Get still works) — never both, per spec.md invariant 3.
type Table struct {
	elements  []Symbol
	lookup    []int32 // -1 sentinel; index into elements
	finalized bool
}

// NewTable returns an empty, growable Table.
func NewTable() *Table {
	t := &Table{}
	t.lookup = newLookupTable(8 * lookupElementsRatio)
	return t
}

func newLookupTable(n int) []int32 {
	l := make([]int32, n)
	for i := range l {
		l[i] = -1
	}
	return l
}

// Put inserts sym keyed by its Identifier(). If an identifier is already
// present, the put is a silent no-op — spec.md's "first-insertion wins".
// Panics if the table has been Finalized.
func (t *Table) Put(sym Symbol) {
	if t.finalized {
		panic("scope: Put on a finalized SymbolTable")
	}
	if (len(t.elements)+1)*100 > len(t.lookup)*loadFactorPercent {
		t.grow()
	}
	key := sym.Identifier()
	if t.lookupInsert(key, int32(len(t.elements))) {
		t.elements = append(t.elements, sym)
	}
}

// lookupInsert returns true iff key was not already present (and thus a
// new slot was reserved for elemIndex).
func (t *Table) lookupInsert(key string, elemIndex int32) bool {
	probe := t.probeStart(key)
	init := probe
	for {
		if t.lookup[probe] < 0 {
			t.lookup[probe] = elemIndex
			return true
		}
		if t.elements[t.lookup[probe]].Identifier() == key {
			return false
		}
		probe = t.next(probe)
		if probe == init {
			panic("scope: symbol table linear probe looped")
		}
	}
}

func (t *Table) probeStart(key string) int {
	h := xxhash.Sum64String(key)
	return int(h % uint64(len(t.lookup)))
}

func (t *Table) next(probe int) int {
	if probe == len(t.lookup)-1 {
		return 0
	}
	return probe + 1
}

func (t *Table) grow() {
	oldElements := t.elements
	newLookupCap := len(t.lookup) * 2
	t.lookup = newLookupTable(newLookupCap)
	for i, e := range oldElements {
		t.lookupInsert(e.Identifier(), int32(i))
	}
}

// Get returns the Symbol for identifier and true, or the zero Symbol and
// false if absent. Unlike the original C (which aborts the process on a
// miss), Get reports failure to the caller so spec.md's NameError can
// carry a source position — the arena-interior-pointer hazard the
// original documents ("pointers invalidated by subsequent puts") is
// avoided entirely since Get returns a value, not a pointer, per
// spec.md §9's guidance.
func (t *Table) Get(identifier string) (Symbol, bool) {
	probe := t.probeStart(identifier)
	init := probe
	for {
		idx := t.lookup[probe]
		if idx < 0 {
			return Symbol{}, false
		}
		if t.elements[idx].Identifier() == identifier {
			return t.elements[idx], true
		}
		probe = t.next(probe)
		if probe == init {
			return Symbol{}, false
		}
	}
}

// Finalize seals the table: copies its logical contents so further
// growth never happens and forbids further Put calls. Spec.md models
// this as a copy from dynamic to static arena memory; in Go there is no
// separate region to copy into, so Finalize's externally observable
// contract (no more Put, Get still works) is what's preserved.
func (t *Table) Finalize() {
	if t.finalized {
		return
	}
	frozen := make([]Symbol, len(t.elements))
	copy(frozen, t.elements)
	t.elements = frozen
	t.finalized = true
}

// Finalized reports whether Put is now forbidden.
func (t *Table) Finalized() bool { return t.finalized }

// Len returns the number of distinct identifiers stored.
func (t *Table) Len() int { return len(t.elements) }

// Visit calls fn for each symbol in insertion order.
func (t *Table) Visit(fn func(Symbol)) {
	for _, e := range t.elements {
		fn(e)
	}
}
