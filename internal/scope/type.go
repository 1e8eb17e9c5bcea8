// Package scope implements spec.md §3's data model for types and
// lexical structure in one package — TypeInfo, Signature, Variable,
// Symbol, SymbolTable, LexicalScope, ClassDef, and FunctionDef — because
// the model is genuinely cyclic (a SymbolTable's Symbol can be a Class
// whose ClassDef owns a LexicalScope whose SymbolTable holds further
// Symbols) exactly as google-gapid/gapil/semantic keeps Type, Function,
// Class, and the symbol space in one package for the same reason.
package scope

import "github.com/npylang/npyc/internal/ast"

// Tag enumerates TypeInfo's primitive kinds, spec.md §3.
type Tag int

const (
	Untyped Tag = iota
	None
	Int
	Unsigned
	Float
	Bool
	String
	Byte
	Pointer
	CStr
	List
	Dict
	Tuple
	DictItems
	Iter
	Slice
	Object
	Function
	Context
	Exception
)

func (t Tag) String() string {
	switch t {
	case Untyped:
		return "untyped"
	case None:
		return "None"
	case Int:
		return "int"
	case Unsigned:
		return "unsigned"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case String:
		return "str"
	case Byte:
		return "byte"
	case Pointer:
		return "pointer"
	case CStr:
		return "cstr"
	case List:
		return "list"
	case Dict:
		return "dict"
	case Tuple:
		return "tuple"
	case DictItems:
		return "dict_items"
	case Iter:
		return "iter"
	case Slice:
		return "slice"
	case Object:
		return "object"
	case Function:
		return "function"
	case Context:
		return "context"
	case Exception:
		return "exception"
	default:
		return "?"
	}
}

// TypeInfo is spec.md §3's tagged sum over the fixed list of primitives,
// with composite variants (List, Dict, Tuple, Iter, DictItems) carrying
// an Inner sequence, Object carrying a back-reference to its ClassDef,
// and Function carrying a back-reference to its Signature.
type TypeInfo struct {
	Tag   Tag
	Inner []TypeInfo // List/Dict/Tuple/Iter/DictItems
	Class *ClassDef  // Object
	Sig   *Signature // Function
}

// T is a convenience constructor for a bare (non-composite) TypeInfo.
func T(tag Tag) TypeInfo { return TypeInfo{Tag: tag} }

// Composite builds a composite TypeInfo (List/Dict/Tuple/Iter/DictItems).
func Composite(tag Tag, inner ...TypeInfo) TypeInfo {
	return TypeInfo{Tag: tag, Inner: inner}
}

// ObjectOf builds an Object TypeInfo bound to a class.
func ObjectOf(c *ClassDef) TypeInfo { return TypeInfo{Tag: Object, Class: c} }

// FunctionOf builds a Function TypeInfo bound to a signature.
func FunctionOf(s *Signature) TypeInfo { return TypeInfo{Tag: Function, Sig: s} }

// IsNumber reports whether t is Int, Unsigned, or Float.
func (t TypeInfo) IsNumber() bool {
	return t.Tag == Int || t.Tag == Unsigned || t.Tag == Float
}

// Equal implements spec.md's compare_types: outer tag equality plus,
// for composites, element-wise Inner equality, and for Object, identical
// ClassDef (class identity, not structural equality).
func (t TypeInfo) Equal(o TypeInfo) bool {
	if t.Tag != o.Tag {
		return false
	}
	switch t.Tag {
	case List, Dict, Tuple, Iter, DictItems:
		if len(t.Inner) != len(o.Inner) {
			return false
		}
		for i := range t.Inner {
			if !t.Inner[i].Equal(o.Inner[i]) {
				return false
			}
		}
		return true
	case Object:
		return t.Class == o.Class
	default:
		return true
	}
}

func (t TypeInfo) String() string {
	switch t.Tag {
	case List, Iter:
		if len(t.Inner) == 1 {
			return t.Tag.String() + "[" + t.Inner[0].String() + "]"
		}
	case Dict, DictItems:
		if len(t.Inner) == 2 {
			return t.Tag.String() + "[" + t.Inner[0].String() + "," + t.Inner[1].String() + "]"
		}
	case Object:
		if t.Class != nil {
			return t.Class.Name
		}
	}
	return t.Tag.String()
}

// Signature is spec.md §3's Signature: positional+kwarg parameter names
// (absent when synthesized from a bare type hint, in which case only
// positional arguments are accepted), parallel Types, trailing Defaults,
// and a ReturnType.
type Signature struct {
	Params      []string // may be nil: type-hint-only signature
	Types       []TypeInfo
	Defaults    []ast.Expression // applied to the trailing len(Defaults) params
	ReturnType  TypeInfo
}

// NamedOnly reports whether this signature has parameter names (and thus
// accepts kwargs) versus being a bare type-hint signature (positional
// only, arity must match exactly).
func (s *Signature) NamedOnly() bool { return s.Params != nil }

// DefaultStartIndex returns the index of the first parameter with a
// default value ("trailing slots" per spec.md §3).
func (s *Signature) DefaultStartIndex() int { return len(s.Types) - len(s.Defaults) }
