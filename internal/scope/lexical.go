package scope

// Kind enumerates the five lexical-scope kinds spec.md §3 names.
type Kind int

const (
	TopLevel Kind = iota
	Func
	Class
	ClosureParent
	ClosureChild
)

// Lexical is spec.md §3's LexicalScope: a kind, its own symbol table, and
// (for Func/ClosureParent/ClosureChild scopes) a back-reference to the
// enclosing FunctionDef for return-type lookup.
type Lexical struct {
	Kind      Kind
	Table     *Table
	Enclosing *FunctionDef // nil for TopLevel/Class
	parent    *Lexical     // every scope but TopLevel has exactly one parent
}

// NewLexical constructs a scope of the given kind with a fresh, growable
// symbol table.
func NewLexical(kind Kind, parent *Lexical, enclosing *FunctionDef) *Lexical {
	if kind != TopLevel && parent == nil {
		panic("scope: non-top-level scope must have a parent")
	}
	return &Lexical{Kind: kind, Table: NewTable(), Enclosing: enclosing, parent: parent}
}

// Parent returns the enclosing Lexical scope, or nil for TopLevel.
func (l *Lexical) Parent() *Lexical { return l.parent }

// Stack is a stack of lexical scopes, innermost last. Spec.md §4.3:
// get_from_scopes walks top-down, stopping at the first match; a
// Closure variable bound in an ancestor ClosureParent is still visible
// from a ClosureChild descendant.
type Stack struct {
	scopes []*Lexical
}

// NewStack returns a Stack seeded with the top-level scope.
func NewStack(top *Lexical) *Stack { return &Stack{scopes: []*Lexical{top}} }

// Push enters a new scope.
func (s *Stack) Push(l *Lexical) { s.scopes = append(s.scopes, l) }

// Pop leaves the innermost scope.
func (s *Stack) Pop() *Lexical {
	n := len(s.scopes)
	top := s.scopes[n-1]
	s.scopes = s.scopes[:n-1]
	return top
}

// Top returns the innermost scope without popping it.
func (s *Stack) Top() *Lexical { return s.scopes[len(s.scopes)-1] }

// ScopeAt returns the scope at stack index i (0 == outermost/TopLevel),
// for callers (internal/lower's closure-capture detection) that need to
// walk the stack noting which kind of scope a match was found in rather
// than just the first match.
func (s *Stack) ScopeAt(i int) *Lexical { return s.scopes[i] }

// Depth returns the number of scopes currently on the stack.
func (s *Stack) Depth() int { return len(s.scopes) }

// Get walks the stack top-down (innermost first) and returns the first
// binding found for identifier — spec.md's get_from_scopes. A binding in
// an outer Func scope is shadowed by one in an inner Func scope for the
// same identifier, matching spec.md's testable scope-resolution property.
func (s *Stack) Get(identifier string) (Symbol, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if sym, ok := s.scopes[i].Table.Get(identifier); ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// EnclosingFunction returns the nearest Func/ClosureParent/ClosureChild
// scope's FunctionDef, used to resolve an enclosing function's declared
// return type while lowering a `return` statement.
func (s *Stack) EnclosingFunction() *FunctionDef {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if s.scopes[i].Enclosing != nil {
			return s.scopes[i].Enclosing
		}
	}
	return nil
}
