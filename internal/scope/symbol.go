package scope

import "github.com/npylang/npyc/internal/ast"

// VariableKind tags how a Variable was introduced, spec.md §3.
type VariableKind int

const (
	Regular VariableKind = iota
	Argument
	Closure
	SemiScoped
)

// Variable is spec.md §3's Variable record.
type Variable struct {
	Identifier string
	Kind       VariableKind
	Type       TypeInfo // may be Untyped until first assignment

	CompiledName string // unique mangled name the writer emits

	ClosureOffset int // only meaningful when Kind == Closure

	DirectlyInScope bool // only meaningful when Kind == SemiScoped
}

// FunctionDef is spec.md §3's FunctionDef.
type FunctionDef struct {
	Name      string
	NSIdent   string
	Sig       Signature
	Scope     *Lexical
	Body      ast.Block
	SelfParam string
	SelfType  TypeInfo

	// CompiledName is the mangled C function name the writer emits for
	// this definition's body (spec.md §4.6's "<uid>" suffix).
	CompiledName string
	// ClosureSize is the byte size of this function's captured-variable
	// block.
	ClosureSize int // filled in after body lowering, spec.md §4.6
}

// ClassDef is spec.md §3's ClassDef. The object-model method table lives
// in package object (which needs FunctionDef/TypeInfo from here but must
// not be imported back by this package); ClassDef exposes Methods as a
// plain map that package object reads without a cycle.
type ClassDef struct {
	Name    string
	NSIdent string
	Scope   *Lexical
	Sig     Signature // synthesized from annotated members, in declaration order
	NBytes  int       // sum of sizeof(member types); filled in by lowering

	// Methods holds every method defined in the class body, keyed by
	// name, including object-model dunders.
	Methods map[string]*FunctionDef

	// FmtStr/FmtStrIndex hold the lazily-populated default __str__
	// representation built from the member signature (spec.md §3).
	FmtStr      string
	FmtStrIndex int
	FmtStrSet   bool
}

// MemberType returns the declared type of a member, and whether it
// exists.
func (c *ClassDef) MemberType(name string) (TypeInfo, bool) {
	for i, p := range c.Sig.Params {
		if p == name {
			return c.Sig.Types[i], true
		}
	}
	return TypeInfo{}, false
}

// SymbolKind tags a Symbol's concrete payload, spec.md §3.
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymGlobal
	SymFunction
	SymClass
	SymMember
)

// Symbol is spec.md §3's tagged Symbol sum.
type Symbol struct {
	Kind SymbolKind

	Var    *Variable    // SymVariable, SymGlobal
	Func   *FunctionDef // SymFunction
	Class  *ClassDef    // SymClass
	Member TypeInfo     // SymMember
	MemberName string
}

// Identifier extracts the name used to key this Symbol in a SymbolTable.
func (s Symbol) Identifier() string {
	switch s.Kind {
	case SymVariable, SymGlobal:
		return s.Var.Identifier
	case SymFunction:
		return s.Func.Name
	case SymClass:
		return s.Class.Name
	case SymMember:
		return s.MemberName
	default:
		return ""
	}
}
