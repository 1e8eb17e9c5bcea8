// Package types implements spec.md §4.4's type checker: a pure function
// over two operand TypeInfo values and an Operator, returning the
// operation's result TypeInfo (scope.Untyped on any unresolvable
// combination).
//
// Grounded line-for-line on original_source/src/type_checker.c's
// resolve_* family (resolve_plus, resolve_minus, resolve_multiply, ...),
// translated from a cascade of C switch statements into Go's exhaustive
// switch idiom per spec.md §9's "replace default: unreachable with an
// exhaustive match" guidance.
package types

import "github.com/npylang/npyc/internal/scope"

// Operator is the closed set of binary/unary operators the checker
// resolves. Object-dispatch operators are not members of this set — when
// either operand is scope.Object, internal/object takes over before
// Resolve is ever called (spec.md §4.4's "deferred to object-model
// machinery").
type Operator string

const (
	Add      Operator = "+"
	Sub      Operator = "-"
	Mul      Operator = "*"
	Div      Operator = "/"
	Mod      Operator = "%"
	FloorDiv Operator = "//"
	Pow      Operator = "**"
	Eq       Operator = "=="
	Ne       Operator = "!="
	Gt       Operator = ">"
	Lt       Operator = "<"
	Ge       Operator = ">="
	Le       Operator = "<="
	BitAnd   Operator = "&"
	BitOr    Operator = "|"
	BitXor   Operator = "^"
	LShift   Operator = "<<"
	RShift   Operator = ">>"
	In       Operator = "in"
	Is       Operator = "is"
	And      Operator = "and"
	Or       Operator = "or"

	Neg    Operator = "u-"
	Invert Operator = "u~"
	Not    Operator = "u!"
)

// Symmetric lists the binary operators spec.md §8 property 3 requires to
// be commutative over non-Object operands: resolve(l,r,op) == resolve(r,l,op).
var Symmetric = map[Operator]bool{Add: true, Mul: true, Eq: true, Ne: true}

func typeInfo(tag scope.Tag) scope.TypeInfo { return scope.T(tag) }

func isNumber(t scope.TypeInfo) bool { return t.IsNumber() }

// Resolve implements resolve_operation_type: the two-operand resolution
// function at the heart of spec.md §4.4. An Untyped operand on either
// side is fatal upstream (invariant 1); Resolve itself just propagates
// Untyped so the caller can attach a source position to the diagnostic.
func Resolve(left, right scope.TypeInfo, op Operator) scope.TypeInfo {
	if left.Tag == scope.Untyped || right.Tag == scope.Untyped {
		return typeInfo(scope.Untyped)
	}
	switch op {
	case Add:
		return resolvePlus(left, right)
	case Sub:
		return resolveMinus(left, right)
	case Mul:
		return resolveMultiply(left, right)
	case Div:
		return resolveDivide(left, right)
	case Mod:
		return resolveModulo(left, right)
	case Pow:
		return resolvePower(left, right)
	case FloorDiv:
		return resolveFloorDiv(left, right)
	case Eq, Ne:
		return resolveEqual(left, right)
	case Gt, Lt, Ge, Le:
		return resolveComparison(left, right)
	case BitAnd, BitOr, BitXor, LShift, RShift:
		return resolveBitwise(left, right)
	case In:
		return resolveMembership(left, right)
	case Is:
		return resolveIdentity(left, right)
	case And, Or:
		return typeInfo(scope.Bool)
	default:
		return typeInfo(scope.Untyped)
	}
}

// ResolveUnary implements resolve_negative / resolve_bitwise_not / the
// logical-not case.
func ResolveUnary(operand scope.TypeInfo, op Operator) scope.TypeInfo {
	if operand.Tag == scope.Untyped {
		return typeInfo(scope.Untyped)
	}
	switch op {
	case Neg:
		if !isNumber(operand) {
			return typeInfo(scope.Untyped)
		}
		return operand
	case Invert:
		if operand.Tag != scope.Int {
			return typeInfo(scope.Untyped)
		}
		return operand
	case Not:
		return typeInfo(scope.Bool)
	default:
		return typeInfo(scope.Untyped)
	}
}

func resolvePlus(left, right scope.TypeInfo) scope.TypeInfo {
	switch left.Tag {
	case scope.Int:
		switch right.Tag {
		case scope.Int:
			return typeInfo(scope.Int)
		case scope.Float:
			return typeInfo(scope.Float)
		default:
			return typeInfo(scope.Untyped)
		}
	case scope.Float:
		if isNumber(right) {
			return left
		}
		return typeInfo(scope.Untyped)
	case scope.Unsigned:
		if right.Tag == scope.Float {
			return right
		}
		return typeInfo(scope.Untyped)
	case scope.String:
		if right.Tag == scope.String {
			return typeInfo(scope.String)
		}
		return typeInfo(scope.Untyped)
	case scope.List:
		if left.Equal(right) {
			return left
		}
		return typeInfo(scope.Untyped)
	default:
		return typeInfo(scope.Untyped)
	}
}

func resolveMinus(left, right scope.TypeInfo) scope.TypeInfo {
	switch left.Tag {
	case scope.Int:
		switch right.Tag {
		case scope.Int:
			return typeInfo(scope.Int)
		case scope.Float:
			return typeInfo(scope.Float)
		default:
			return typeInfo(scope.Untyped)
		}
	case scope.Float:
		if isNumber(right) {
			return left
		}
		return typeInfo(scope.Untyped)
	default:
		return typeInfo(scope.Untyped)
	}
}

func resolveMultiply(left, right scope.TypeInfo) scope.TypeInfo {
	switch left.Tag {
	case scope.Int:
		switch right.Tag {
		case scope.Int:
			return typeInfo(scope.Int)
		case scope.Float:
			return typeInfo(scope.Float)
		case scope.String, scope.List:
			return right
		default:
			return typeInfo(scope.Untyped)
		}
	case scope.Float:
		if isNumber(right) {
			return left
		}
		return typeInfo(scope.Untyped)
	case scope.Unsigned:
		if right.Tag == scope.Float {
			return right
		}
		return typeInfo(scope.Untyped)
	case scope.String, scope.List:
		if right.Tag == scope.Int {
			return left
		}
		return typeInfo(scope.Untyped)
	default:
		return typeInfo(scope.Untyped)
	}
}

func resolveDivide(left, right scope.TypeInfo) scope.TypeInfo {
	switch left.Tag {
	case scope.Int:
		if isNumber(right) {
			return typeInfo(scope.Float)
		}
		return typeInfo(scope.Untyped)
	case scope.Float:
		if isNumber(right) {
			return left
		}
		return typeInfo(scope.Untyped)
	default:
		return typeInfo(scope.Untyped)
	}
}

// resolveModulo leaves a String LHS untyped: the original marks this
// "TODO: format string" and spec.md §9 directs treating it as
// unsupported until explicitly specified (see DESIGN.md's Open Question
// decision).
func resolveModulo(left, right scope.TypeInfo) scope.TypeInfo {
	switch left.Tag {
	case scope.Int:
		if right.Tag == scope.Int {
			return left
		}
		return typeInfo(scope.Untyped)
	case scope.Float:
		if right.Tag == scope.Int {
			return left
		}
		return typeInfo(scope.Untyped)
	default:
		return typeInfo(scope.Untyped)
	}
}

func resolvePower(left, right scope.TypeInfo) scope.TypeInfo {
	if !(isNumber(left) && isNumber(right)) {
		return typeInfo(scope.Untyped)
	}
	if left.Tag == scope.Float || right.Tag == scope.Float {
		return typeInfo(scope.Float)
	}
	return typeInfo(scope.Int)
}

func resolveFloorDiv(left, right scope.TypeInfo) scope.TypeInfo {
	if !(isNumber(left) && isNumber(right)) {
		return typeInfo(scope.Untyped)
	}
	return typeInfo(scope.Int)
}

func resolveEqual(left, right scope.TypeInfo) scope.TypeInfo {
	if isNumber(left) && isNumber(right) {
		return typeInfo(scope.Bool)
	}
	if left.Equal(right) {
		return typeInfo(scope.Bool)
	}
	return typeInfo(scope.Untyped)
}

func resolveComparison(left, right scope.TypeInfo) scope.TypeInfo {
	if isNumber(left) && isNumber(right) {
		return typeInfo(scope.Bool)
	}
	if left.Tag == scope.String && right.Tag == scope.String {
		return typeInfo(scope.Bool)
	}
	return typeInfo(scope.Untyped)
}

func resolveBitwise(left, right scope.TypeInfo) scope.TypeInfo {
	if left.Tag == scope.Int && right.Tag == scope.Int {
		return right
	}
	return typeInfo(scope.Untyped)
}

func resolveMembership(left, right scope.TypeInfo) scope.TypeInfo {
	switch right.Tag {
	case scope.String:
		if left.Tag == scope.String {
			return typeInfo(scope.Bool)
		}
		return typeInfo(scope.Untyped)
	case scope.List, scope.Dict:
		if len(right.Inner) > 0 && left.Equal(right.Inner[0]) {
			return typeInfo(scope.Bool)
		}
		return typeInfo(scope.Untyped)
	default:
		return typeInfo(scope.Untyped)
	}
}

func resolveIdentity(left, right scope.TypeInfo) scope.TypeInfo {
	switch left.Tag {
	case scope.List, scope.Dict, scope.Object, scope.Bool:
		if left.Equal(right) {
			return typeInfo(scope.Bool)
		}
		return typeInfo(scope.Untyped)
	default:
		return typeInfo(scope.Untyped)
	}
}

// ResolveNumberLiteral classifies a leaf-token operand, spec.md §4.4's
// "Operand resolution for leaf tokens". Numeric literals classify as Int
// unless they contain '.' or 'f', then Float.
func ResolveNumberLiteral(lexeme string) scope.TypeInfo {
	for _, c := range lexeme {
		if c == '.' || c == 'f' {
			return typeInfo(scope.Float)
		}
	}
	return typeInfo(scope.Int)
}
