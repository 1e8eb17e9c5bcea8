package ir

import "github.com/npylang/npyc/internal/scope"

// InstructionKind tags Instruction's seventeen variants, spec.md §4.7's
// table.
type InstructionKind int

const (
	InstNoOp InstructionKind = iota
	InstDeclareVariable
	InstAssignment
	InstDeclAssignment
	InstOperation
	InstReturn
	InstIf
	InstElse
	InstGoto
	InstLabel
	InstBreak
	InstContinue
	InstLoop
	InstDefineFunction
	InstDefineClass
	InstIterNext
	InstInitClosure
)

// Instruction is one node of the linear IR sequence the lowering engine
// emits and the writer walks. Every field not relevant to Kind is the
// zero value; this mirrors spec.md §4.7's tagged union directly rather
// than modeling each kind as a distinct Go type, since the writer's
// dispatch is a single exhaustive switch over Kind (see internal/writer).
type Instruction struct {
	Kind InstructionKind

	// InstDeclareVariable
	Decl *scope.Variable

	// InstAssignment / InstDeclAssignment: Target receives Value's result.
	Target StorageIdent
	Value  OperationInst

	// InstOperation: a discarded-result OperationInst (e.g. a bare call
	// statement).
	Op OperationInst

	// InstReturn
	HasReturnValue    bool
	ReturnValue       StorageIdent
	ShouldFreeClosure bool // true when returning out of a ClosureParent scope

	// InstIf / InstElse: Cond gates Then; Else holds Else-if present.
	Cond InstructionSequence // condition-evaluating instructions, last one produces BoolHint
	BoolHint StorageIdent
	Then     InstructionSequence
	Else     InstructionSequence
	HasElse  bool

	// InstGoto / InstLabel
	Label string

	// InstLoop: condition re-evaluated each iteration (While) or
	// unconditional with an internal break (For, desugared by lowering).
	LoopCond     InstructionSequence
	LoopBoolHint StorageIdent
	LoopBody     InstructionSequence

	// InstDefineFunction
	Func *scope.FunctionDef
	FuncBody InstructionSequence

	// InstDefineClass
	Class *scope.ClassDef

	// InstIterNext: advances an iterator StorageIdent, writing into
	// Target, and sets the Bool StorageIdent HasNext to whether a value
	// was produced; lowering emits the If on HasNext that breaks out of
	// the loop right after it.
	Iter    StorageIdent
	HasNext StorageIdent

	// InstInitClosure: allocate and populate a closure object's captured
	// slots ahead of a nested DefineFunction.
	ClosureFunc *scope.FunctionDef
	Captures    []StorageIdent
}

// InstructionSequence is spec.md §5's growable per-scope instruction
// list; the lowering engine's sequence stack pushes/pops these.
type InstructionSequence struct {
	Items []Instruction
}

func (s *InstructionSequence) Append(i Instruction) {
	s.Items = append(s.Items, i)
}

func (s *InstructionSequence) Len() int { return len(s.Items) }

func NoOp() Instruction { return Instruction{Kind: InstNoOp} }

func DeclareVariable(v *scope.Variable) Instruction {
	return Instruction{Kind: InstDeclareVariable, Decl: v}
}

func Assignment(target StorageIdent, value OperationInst) Instruction {
	return Instruction{Kind: InstAssignment, Target: target, Value: value}
}

func DeclAssignment(target StorageIdent, value OperationInst) Instruction {
	return Instruction{Kind: InstDeclAssignment, Target: target, Value: value}
}

func Operation(op OperationInst) Instruction {
	return Instruction{Kind: InstOperation, Op: op}
}

func Return() Instruction {
	return Instruction{Kind: InstReturn}
}

func ReturnValue(v StorageIdent) Instruction {
	return Instruction{Kind: InstReturn, HasReturnValue: true, ReturnValue: v}
}

func If(cond InstructionSequence, boolHint StorageIdent, then InstructionSequence) Instruction {
	return Instruction{Kind: InstIf, Cond: cond, BoolHint: boolHint, Then: then}
}

func IfElse(cond InstructionSequence, boolHint StorageIdent, then, els InstructionSequence) Instruction {
	return Instruction{Kind: InstIf, Cond: cond, BoolHint: boolHint, Then: then, Else: els, HasElse: true}
}

func Goto(label string) Instruction { return Instruction{Kind: InstGoto, Label: label} }
func Label(label string) Instruction { return Instruction{Kind: InstLabel, Label: label} }
func Break() Instruction             { return Instruction{Kind: InstBreak} }
func Continue() Instruction          { return Instruction{Kind: InstContinue} }

func Loop(cond InstructionSequence, boolHint StorageIdent, body InstructionSequence) Instruction {
	return Instruction{Kind: InstLoop, LoopCond: cond, LoopBoolHint: boolHint, LoopBody: body}
}

func DefineFunction(fn *scope.FunctionDef, body InstructionSequence) Instruction {
	return Instruction{Kind: InstDefineFunction, Func: fn, FuncBody: body}
}

func DefineClass(c *scope.ClassDef) Instruction {
	return Instruction{Kind: InstDefineClass, Class: c}
}

func IterNext(iter StorageIdent, target StorageIdent, hasNext StorageIdent) Instruction {
	return Instruction{Kind: InstIterNext, Iter: iter, Target: target, HasNext: hasNext}
}

func InitClosure(fn *scope.FunctionDef, captures []StorageIdent) Instruction {
	return Instruction{Kind: InstInitClosure, ClosureFunc: fn, Captures: captures}
}
