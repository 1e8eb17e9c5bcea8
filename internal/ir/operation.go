package ir

import "github.com/npylang/npyc/internal/scope"

// OperationKind tags OperationInst's eight variants, spec.md §4.7.
type OperationKind int

const (
	OpIntrinsic OperationKind = iota
	OpFunctionCall
	OpCCall
	OpCCall1
	OpGetAttr
	OpSetAttr
	OpCopy
	OpDeref
)

// OperationInst is spec.md §4.7's OperationInst: the right-hand side of
// an Assignment/DeclAssignment, or the whole of a statement-level
// Operation that discards its result.
type OperationInst struct {
	Kind OperationKind
	Type scope.TypeInfo // the operation's resolved result type

	// OpIntrinsic: a direct-C-operator binary/unary op, e.g. int + int.
	IntrinsicOp string
	Left        StorageIdent
	Right       StorageIdent
	HasRight    bool // false for unary intrinsics

	// OpFunctionCall: a call through an NpFunction (addr+ctx).
	Function StorageIdent
	Args     []StorageIdent

	// OpCCall / OpCCall1: a direct runtime call by name.
	CCallName string
	CCallArgs []StorageIdent // OpCCall
	CCallArg  StorageIdent   // OpCCall1

	// OpGetAttr / OpSetAttr
	Object StorageIdent
	Attr   string
	Value  StorageIdent // OpSetAttr only

	// OpCopy
	Src StorageIdent

	// OpDeref
	Ref         StorageIdent
	PointeeType scope.TypeInfo
}

func Intrinsic(op string, left, right StorageIdent, result scope.TypeInfo) OperationInst {
	return OperationInst{Kind: OpIntrinsic, IntrinsicOp: op, Left: left, Right: right, HasRight: true, Type: result}
}

func IntrinsicUnary(op string, operand StorageIdent, result scope.TypeInfo) OperationInst {
	return OperationInst{Kind: OpIntrinsic, IntrinsicOp: op, Left: operand, HasRight: false, Type: result}
}

func FunctionCall(fn StorageIdent, args []StorageIdent, result scope.TypeInfo) OperationInst {
	return OperationInst{Kind: OpFunctionCall, Function: fn, Args: args, Type: result}
}

func CCall(name string, args []StorageIdent, result scope.TypeInfo) OperationInst {
	return OperationInst{Kind: OpCCall, CCallName: name, CCallArgs: args, Type: result}
}

func CCall1(name string, arg StorageIdent, result scope.TypeInfo) OperationInst {
	return OperationInst{Kind: OpCCall1, CCallName: name, CCallArg: arg, Type: result}
}

func GetAttr(object StorageIdent, attr string, result scope.TypeInfo) OperationInst {
	return OperationInst{Kind: OpGetAttr, Object: object, Attr: attr, Type: result}
}

func SetAttr(object StorageIdent, attr string, value StorageIdent) OperationInst {
	return OperationInst{Kind: OpSetAttr, Object: object, Attr: attr, Value: value, Type: value.Type}
}

func Copy(src StorageIdent) OperationInst {
	return OperationInst{Kind: OpCopy, Src: src, Type: src.Type}
}

func Deref(ref StorageIdent, pointee scope.TypeInfo) OperationInst {
	return OperationInst{Kind: OpDeref, Ref: ref, PointeeType: pointee, Type: pointee}
}
