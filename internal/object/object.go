// Package object implements spec.md §4.5's object model: the fixed
// enumeration of special method slots recognized on user-defined
// classes, the identifier-to-slot lookup, the compound-assignment
// operator-to-slot map, and operator/call dispatch
// (FindOpFunction/FindUnaryFunction/FindCallFunction).
//
// Grounded on original_source/src/object_model.c's
// source_string_to_object_model (an OM_SWITCH_FINISH character-by-
// character cascade enumerating every recognized dunder) and
// op_assignment_to_object_model (the compound-assignment table);
// translated per spec.md §9's redesign flag into a sorted-slice binary
// search built once at package init, instead of a hand-rolled switch.
package object

import (
	"sort"
	"strings"

	"github.com/npylang/npyc/internal/scope"
	"github.com/npylang/npyc/internal/types"
)

// Slot identifies one object-model method slot.
type Slot int

const (
	NotInObjectModel Slot = iota
	Add
	RAdd
	IAdd
	Sub
	RSub
	ISub
	Mul
	RMul
	IMul
	TrueDiv
	RTrueDiv
	ITrueDiv
	Mod
	RMod
	IMod
	FloorDiv
	RFloorDiv
	IFloorDiv
	Pow
	RPow
	IPow
	And
	RAnd
	IAnd
	Or
	ROr
	IOr
	Xor
	RXor
	IXor
	LShift
	RLShift
	ILShift
	RShift
	RRShift
	IRShift
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	Neg
	Abs
	Invert
	Int
	Float
	Bool
	Str
	Repr
	Len
	Hash
	Contains
	GetItem
	SetItem
	DelItem
	Iter
	Next
	Call
	Init
	Enter
	Exit
	Round
	Floor
	Ceil
	Trunc
	DivMod
)

type slotEntry struct {
	name string
	slot Slot
}

// slotTable is the sorted-by-name table Lookup binary-searches — built
// once (see init below), never re-sorted at call time, matching
// spec.md §9's "compile-time perfect-hash or sorted-key table".
var slotTable []slotEntry

func init() {
	raw := map[string]Slot{
		"__add__": Add, "__radd__": RAdd, "__iadd__": IAdd,
		"__sub__": Sub, "__rsub__": RSub, "__isub__": ISub,
		"__mul__": Mul, "__rmul__": RMul, "__imul__": IMul,
		"__truediv__": TrueDiv, "__rtruediv__": RTrueDiv, "__itruediv__": ITrueDiv,
		"__mod__": Mod, "__rmod__": RMod, "__imod__": IMod,
		"__floordiv__": FloorDiv, "__rfloordiv__": RFloorDiv, "__ifloordiv__": IFloorDiv,
		"__pow__": Pow, "__rpow__": RPow, "__ipow__": IPow,
		"__and__": And, "__rand__": RAnd, "__iand__": IAnd,
		"__or__": Or, "__ror__": ROr, "__ior__": IOr,
		"__xor__": Xor, "__rxor__": RXor, "__ixor__": IXor,
		"__lshift__": LShift, "__rlshift__": RLShift, "__ilshift__": ILShift,
		"__rshift__": RShift, "__rrshift__": RRShift, "__irshift__": IRShift,
		"__eq__": Eq, "__ne__": Ne, "__lt__": Lt, "__le__": Le, "__gt__": Gt, "__ge__": Ge,
		"__neg__": Neg, "__abs__": Abs, "__invert__": Invert,
		"__int__": Int, "__float__": Float, "__bool__": Bool,
		"__str__": Str, "__repr__": Repr, "__len__": Len, "__hash__": Hash,
		"__contains__": Contains, "__getitem__": GetItem, "__setitem__": SetItem, "__delitem__": DelItem,
		"__iter__": Iter, "__next__": Next, "__call__": Call, "__init__": Init,
		"__enter__": Enter, "__exit__": Exit,
		"__round__": Round, "__floor__": Floor, "__ceil__": Ceil, "__trunc__": Trunc,
		"__divmod__": DivMod,
	}
	slotTable = make([]slotEntry, 0, len(raw))
	for name, slot := range raw {
		slotTable = append(slotTable, slotEntry{name: name, slot: slot})
	}
	sort.Slice(slotTable, func(i, j int) bool { return slotTable[i].name < slotTable[j].name })
}

// Lookup maps a method name to its Slot, or NotInObjectModel if name is
// not a recognized dunder.
func Lookup(name string) Slot {
	if !strings.HasPrefix(name, "__") || len(name) < 6 {
		return NotInObjectModel
	}
	i := sort.Search(len(slotTable), func(i int) bool { return slotTable[i].name >= name })
	if i < len(slotTable) && slotTable[i].name == name {
		return slotTable[i].slot
	}
	return NotInObjectModel
}

// reflected maps a primary slot to its reflected counterpart, used by
// FindOpFunction when the left operand has no primary implementation.
var reflected = map[Slot]Slot{
	Add: RAdd, Sub: RSub, Mul: RMul, TrueDiv: RTrueDiv, Mod: RMod,
	FloorDiv: RFloorDiv, Pow: RPow, And: RAnd, Or: ROr, Xor: RXor,
	LShift: RLShift, RShift: RRShift,
}

// opAssignment mirrors op_assignment_to_object_model: compound-assignment
// operator spelling to its in-place slot.
var opAssignment = map[string]Slot{
	"+=": IAdd, "-=": ISub, "*=": IMul, "/=": ITrueDiv, "%=": IMod,
	"//=": IFloorDiv, "**=": IPow, "&=": IAnd, "|=": IOr, "^=": IXor,
	">>=": IRShift, "<<=": ILShift,
}

// OpAssignmentSlot implements op_assignment_to_object_model.
func OpAssignmentSlot(op string) Slot {
	if s, ok := opAssignment[op]; ok {
		return s
	}
	return NotInObjectModel
}

// binarySlot maps a types.Operator spelling to its primary object-model
// slot, used by FindOpFunction to know which slot to try first.
var binarySlot = map[types.Operator]Slot{
	types.Add: Add, types.Sub: Sub, types.Mul: Mul, types.Div: TrueDiv,
	types.Mod: Mod, types.FloorDiv: FloorDiv, types.Pow: Pow,
	types.BitAnd: And, types.BitOr: Or, types.BitXor: Xor,
	types.LShift: LShift, types.RShift: RShift,
	types.Eq: Eq, types.Ne: Ne, types.Lt: Lt, types.Le: Le, types.Gt: Gt, types.Ge: Ge,
}

// FindOpFunction implements spec.md §4.5's
// find_object_op_function(left, right, op) -> (FunctionDef, is_rop, is_unary):
// it tries the primary slot on left; if absent and the operator has a
// reflected form, it tries the reflected slot on right.
func FindOpFunction(left, right scope.TypeInfo, op types.Operator) (fn *scope.FunctionDef, isReflected bool, ok bool) {
	slot, known := binarySlot[op]
	if !known {
		return nil, false, false
	}
	if left.Tag == scope.Object && left.Class != nil {
		if fn, ok := methodFor(left.Class, slot); ok {
			return fn, false, true
		}
	}
	if rslot, hasReflected := reflected[slot]; hasReflected {
		if right.Tag == scope.Object && right.Class != nil {
			if fn, ok := methodFor(right.Class, rslot); ok {
				return fn, true, true
			}
		}
	}
	return nil, false, false
}

// FindInPlaceFunction resolves a compound-assignment operator against the
// target's class, per spec.md §4.6's op-assignment dispatch.
func FindInPlaceFunction(target scope.TypeInfo, op string) (*scope.FunctionDef, bool) {
	if target.Tag != scope.Object || target.Class == nil {
		return nil, false
	}
	slot := OpAssignmentSlot(op)
	if slot == NotInObjectModel {
		return nil, false
	}
	return methodFor(target.Class, slot)
}

// FindUnaryFunction resolves a unary operator (-, ~) against an object's
// class.
func FindUnaryFunction(operand scope.TypeInfo, op types.Operator) (*scope.FunctionDef, bool) {
	if operand.Tag != scope.Object || operand.Class == nil {
		return nil, false
	}
	var slot Slot
	switch op {
	case types.Neg:
		slot = Neg
	case types.Invert:
		slot = Invert
	default:
		return nil, false
	}
	return methodFor(operand.Class, slot)
}

func methodFor(c *scope.ClassDef, slot Slot) (*scope.FunctionDef, bool) {
	name := NameOf(slot)
	if name == "" {
		return nil, false
	}
	fn, ok := c.Methods[name]
	return fn, ok
}

// NameOf returns the canonical dunder spelling for slot, the inverse of
// Lookup, used when synthesizing a diagnostic or a writer-facing call
// name.
func NameOf(slot Slot) string {
	for _, e := range slotTable {
		if e.slot == slot {
			return e.name
		}
	}
	return ""
}
