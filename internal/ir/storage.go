// Package ir implements spec.md §4.7's Instruction IR: the tagged-union
// tree of control-flow, assignment, operation, call, and class/function
// definition nodes the lowering engine emits and the writer consumes.
//
// Grounded on google-gapid/gapil/compiler's statement/expression-lowering
// split (statements.go, expressions.go — one function per construct,
// narrow per-kind structs) for the Go idiom; spec.md's own §4.7 table is
// transcribed directly into the Go types below.
package ir

import "github.com/npylang/npyc/internal/scope"

// MaxSequenceDepth is spec.md §5's sequence-stack nesting bound.
const MaxSequenceDepth = 128

// StorageKind tags the concrete shape of a StorageIdent/StorageHint.
type StorageKind int

const (
	// StorageNone is the zero value: no destination supplied (a null
	// hint asking renderExpression to synthesize one, or a discarded
	// Operation statement's absent result).
	StorageNone StorageKind = iota
	StorageCStr
	StorageVar
	StorageIntLiteral
	StorageFloatLiteral
	StorageStringLiteralIndex
	// StorageClosureCapture references a Closure-kind Variable captured
	// from an enclosing ClosureParent scope. Var.ClosureOffset is filled
	// in only after the capturing function's body is fully lowered, so
	// this StorageIdent carries the *scope.Variable itself rather than a
	// baked-in offset string; the writer reads CompiledName/ClosureOffset
	// once lowering has finished and every offset is final.
	StorageClosureCapture
)

// StorageIdent is spec.md §4.6's "output address of a rendered
// subexpression": a name, literal, or variable reference, together with
// its resolved TypeInfo and a Reference flag requesting address-of in
// the emitted C.
type StorageIdent struct {
	Kind StorageKind

	CStrName  string          // StorageCStr: synthesized unique identifier
	Var       *scope.Variable // StorageVar
	IntValue  int64           // StorageIntLiteral
	FloatValue float64        // StorageFloatLiteral
	StringIdx int             // StorageStringLiteralIndex: interner index

	Type      scope.TypeInfo
	Reference bool // request address-of in the emitted C
}

// StorageHint is the same shape as StorageIdent; callers supply either a
// concrete destination or the zero value (Kind == StorageNone) to ask
// renderExpression to synthesize a fresh name.
type StorageHint = StorageIdent

// IsNull reports whether this hint asks the caller to synthesize a
// fresh destination (spec.md: "a null hint ⇒ lowering invents a fresh
// unique identifier" and the emitted instruction becomes DeclAssign
// rather than Assign).
func (s StorageHint) IsNull() bool { return s.Kind == StorageNone }

func CStr(name string, t scope.TypeInfo) StorageIdent {
	return StorageIdent{Kind: StorageCStr, CStrName: name, Type: t}
}

func VarIdent(v *scope.Variable) StorageIdent {
	return StorageIdent{Kind: StorageVar, Var: v, Type: v.Type}
}

func IntLiteral(v int64) StorageIdent {
	return StorageIdent{Kind: StorageIntLiteral, IntValue: v, Type: scope.T(scope.Int)}
}

func FloatLiteral(v float64) StorageIdent {
	return StorageIdent{Kind: StorageFloatLiteral, FloatValue: v, Type: scope.T(scope.Float)}
}

func StringLiteral(idx int) StorageIdent {
	return StorageIdent{Kind: StorageStringLiteralIndex, StringIdx: idx, Type: scope.T(scope.String)}
}
