package lower

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npylang/npyc/internal/ir"
	"github.com/npylang/npyc/internal/parser"
	"github.com/npylang/npyc/internal/runtime"
	"github.com/npylang/npyc/internal/scope"
)

// flattenSeq walks every nested InstructionSequence (If/Loop/Function
// bodies) and returns one flat, depth-first instruction list, so a test
// can assert on an instruction buried inside a Then/LoopBody without
// hand-walking the tree itself.
func flattenSeq(seq ir.InstructionSequence) []ir.Instruction {
	var out []ir.Instruction
	for _, inst := range seq.Items {
		out = append(out, inst)
		out = append(out, flattenSeq(inst.Cond)...)
		out = append(out, flattenSeq(inst.Then)...)
		if inst.HasElse {
			out = append(out, flattenSeq(inst.Else)...)
		}
		out = append(out, flattenSeq(inst.LoopCond)...)
		out = append(out, flattenSeq(inst.LoopBody)...)
		out = append(out, flattenSeq(inst.FuncBody)...)
	}
	return out
}

func compileSrc(t *testing.T, src string) *ir.Compiled {
	t.Helper()
	b, err := parser.Parse("t.npy", []byte(src))
	require.NoError(t, err)
	compiled, err := Lower(b)
	require.NoError(t, err)
	return compiled
}

// S1: "a: int = 1 + 2" lowers to a DeclareVariable for a (Int-typed)
// followed by an Assignment of the Intrinsic(+, 1, 2), with no string
// constants (spec.md §8 scenario S1: "DeclareVariable a: Int in
// declarations, Assignment a ← Intrinsic(+, 1, 2) in init").
func TestS1IntAnnotationWithArithmeticInitializer(t *testing.T) {
	compiled := compileSrc(t, "a: int = 1 + 2\n")
	require.Len(t, compiled.Seq.Items, 2)
	decl, assign := compiled.Seq.Items[0], compiled.Seq.Items[1]
	assert.Equal(t, ir.InstDeclareVariable, decl.Kind)
	assert.Equal(t, scope.Int, decl.Decl.Type.Tag)
	assert.Equal(t, ir.InstAssignment, assign.Kind)
	assert.Equal(t, ir.OpIntrinsic, assign.Value.Kind)
	assert.Equal(t, 0, compiled.Strings.Len())
}

// S2: print("x", 1) interns exactly one string and converts the int
// literal via np_int_to_str.
func TestS2PrintMixedArgsInternsOneString(t *testing.T) {
	compiled := compileSrc(t, `print("x", 1)` + "\n")
	require.Equal(t, 1, compiled.Strings.Len())
	assert.Equal(t, "x", compiled.Strings.Get(0))
	require.NotEmpty(t, compiled.Seq.Items)
	last := compiled.Seq.Items[len(compiled.Seq.Items)-1]
	found := false
	for _, it := range compiled.Seq.Items {
		if it.Kind == ir.InstOperation && it.Op.Kind == ir.OpCCall {
			found = true
		}
	}
	assert.True(t, found || last.Kind == ir.InstOperation, "expected a CCall print operation")
}

// S4: def f(n: int) -> int: return n*n emits one DefineFunction named f
// whose body ends in a Return (of the temp n*n was stored into).
func TestS4FunctionDefinitionLowersReturnOfSquare(t *testing.T) {
	compiled := compileSrc(t, "def f(n: int) -> int:\n    return n*n\n")
	var fnInst *ir.Instruction
	for i := range compiled.Seq.Items {
		if compiled.Seq.Items[i].Kind == ir.InstDefineFunction {
			fnInst = &compiled.Seq.Items[i]
		}
	}
	require.NotNil(t, fnInst)
	assert.Equal(t, "f", fnInst.Func.Name)
	require.NotEmpty(t, fnInst.FuncBody.Items)
	ret := fnInst.FuncBody.Items[len(fnInst.FuncBody.Items)-1]
	assert.Equal(t, ir.InstReturn, ret.Kind)
}

// S5: a class with two int members and c.x + c.y lowers GetAttr/GetAttr
// feeding an Intrinsic + producing Int.
func TestS5ClassMemberAccessAndSum(t *testing.T) {
	src := "class C:\n    x: int\n    y: int\nc = C(1, 2)\nprint(c.x + c.y)\n"
	compiled := compileSrc(t, src)
	var classInst *ir.Instruction
	for i := range compiled.Seq.Items {
		if compiled.Seq.Items[i].Kind == ir.InstDefineClass {
			classInst = &compiled.Seq.Items[i]
		}
	}
	require.NotNil(t, classInst)
	assert.Equal(t, "C", classInst.Class.Name)
}

// S6: try/except around a dict lookup saves and restores current_excepts
// around the try, falls through to finally on the happy path instead of
// dereferencing a null exception, and gives each except block its own
// mask so a KeyError cannot also satisfy a sibling `except ValueError`.
func TestS6TryExceptDictLookup(t *testing.T) {
	src := "d: dict[str, int] = {}\nk: str = \"a\"\ntry:\n    x: int = d[k]\nexcept KeyError:\n    pass\nexcept ValueError:\n    pass\n"
	compiled := compileSrc(t, src)
	all := flattenSeq(compiled.Seq)

	// current_excepts is saved into a fresh temp before the bitmask is
	// overwritten, and that temp is copied back at the very end.
	var saveIdx, restoreIdx = -1, -1
	var savedTemp ir.StorageIdent
	for i, inst := range all {
		if inst.Kind == ir.InstDeclAssignment && inst.Value.Kind == ir.OpCopy &&
			inst.Value.Src.Kind == ir.StorageCStr && inst.Value.Src.CStrName == runtime.GlobalCurrentExcepts {
			saveIdx = i
			savedTemp = inst.Target
		}
	}
	require.NotEqual(t, -1, saveIdx, "expected a DeclAssignment saving the old current_excepts")

	// the new bitmask assignment ORs every except block's class together
	// and is written to current_excepts itself.
	var setIdx = -1
	for i, inst := range all {
		if inst.Kind == ir.InstAssignment && inst.Target.Kind == ir.StorageCStr &&
			inst.Target.CStrName == runtime.GlobalCurrentExcepts && inst.Value.Kind == ir.OpCopy {
			mask := inst.Value.Src.CStrName
			if strings.Contains(mask, runtime.ExcKeyError) && strings.Contains(mask, runtime.ExcValueError) {
				setIdx = i
			}
		}
	}
	require.NotEqual(t, -1, setIdx, "expected current_excepts set to the OR of every except class")
	assert.Greater(t, setIdx, saveIdx, "bitmask must be set after the old value is saved")

	// the happy path falls through to a finally label instead of into
	// the except dispatcher: an If on a negated global_exception whose
	// body gotos some label L, and a matching Label(L) later on.
	var guardGoto string
	for _, inst := range all {
		if inst.Kind == ir.InstIf && inst.BoolHint.Kind == ir.StorageCStr &&
			inst.BoolHint.CStrName != runtime.GlobalException {
			for _, sub := range inst.Then.Items {
				if sub.Kind == ir.InstGoto {
					guardGoto = sub.Label
				}
			}
		}
	}
	require.NotEmpty(t, guardGoto, "expected an if(!global_exception) goto finally guard")
	var finallyLabelIdx = -1
	for i, inst := range all {
		if inst.Kind == ir.InstLabel && inst.Label == guardGoto {
			finallyLabelIdx = i
		}
	}
	require.NotEqual(t, -1, finallyLabelIdx, "expected a Label matching the no-exception guard's goto")

	// each except block tests only its own classes: the KeyError handler's
	// mask must not also satisfy ValueError and vice versa, and each
	// handler gotos the finally label after running.
	var keyCond, valueCond string
	var sawHandlerGotoFinally int
	for _, inst := range all {
		if inst.Kind == ir.InstIf && inst.BoolHint.Kind == ir.StorageCStr {
			mask := inst.BoolHint.CStrName
			hasKey := strings.Contains(mask, runtime.ExcKeyError)
			hasValue := strings.Contains(mask, runtime.ExcValueError)
			if hasKey && !hasValue {
				keyCond = mask
				for _, sub := range inst.Then.Items {
					if sub.Kind == ir.InstGoto && sub.Label == guardGoto {
						sawHandlerGotoFinally++
					}
				}
			}
			if hasValue && !hasKey {
				valueCond = mask
				for _, sub := range inst.Then.Items {
					if sub.Kind == ir.InstGoto && sub.Label == guardGoto {
						sawHandlerGotoFinally++
					}
				}
			}
		}
	}
	assert.NotEmpty(t, keyCond, "expected a KeyError-only handler mask")
	assert.NotEmpty(t, valueCond, "expected a ValueError-only handler mask")
	assert.Equal(t, 2, sawHandlerGotoFinally, "expected both handlers to goto finally after running")

	// current_excepts is restored from the saved temp after finally.
	for i, inst := range all {
		if i <= finallyLabelIdx {
			continue
		}
		if inst.Kind == ir.InstAssignment && inst.Target.Kind == ir.StorageCStr &&
			inst.Target.CStrName == runtime.GlobalCurrentExcepts && inst.Value.Kind == ir.OpCopy &&
			inst.Value.Src.Kind == savedTemp.Kind && inst.Value.Src.CStrName == savedTemp.CStrName {
			restoreIdx = i
		}
	}
	require.NotEqual(t, -1, restoreIdx, "expected current_excepts restored from the saved temp after finally")
}

func TestForLoopOverListLiteralLowersIterNext(t *testing.T) {
	compiled := compileSrc(t, "for x in [1, 2, 3]:\n    print(x)\n")
	var loop *ir.Instruction
	for i := range compiled.Seq.Items {
		if compiled.Seq.Items[i].Kind == ir.InstLoop {
			loop = &compiled.Seq.Items[i]
		}
	}
	require.NotNil(t, loop)
	foundIterNext := false
	for _, it := range loop.LoopBody.Items {
		if it.Kind == ir.InstIterNext {
			foundIterNext = true
		}
	}
	assert.True(t, foundIterNext)
}

func TestUntypedResultIsFatalTypeError(t *testing.T) {
	b, err := parser.Parse("t.npy", []byte("a: int = \"x\" % 1\n"))
	require.NoError(t, err)
	_, err = Lower(b)
	assert.Error(t, err)
}

func TestSequenceStackBalancedAfterWhileLoop(t *testing.T) {
	b, err := parser.Parse("t.npy", []byte("while True:\n    break\n"))
	require.NoError(t, err)
	c := New(b)
	_, err = c.Lower(b)
	require.NoError(t, err)
	assert.Equal(t, 0, c.seq.Depth())
}

func TestObjectAddDispatchesToDunderMethod(t *testing.T) {
	src := "class V:\n    x: int\n    def __add__(self, other: V) -> int:\n        return self.x\nv1 = V(1)\nv2 = V(2)\nprint(v1 + v2)\n"
	compiled := compileSrc(t, src)
	assert.NotEmpty(t, compiled.Seq.Items)
	foundCall := false
	for _, inst := range flattenSeq(compiled.Seq) {
		if inst.Kind == ir.InstDeclAssignment && inst.Value.Kind == ir.OpFunctionCall {
			foundCall = true
		}
	}
	assert.True(t, foundCall, "expected v1 + v2 to lower to a call of V.__add__")
}

// A bare-literal or bare-identifier initializer/assignment (no binary
// operation at all) must still emit an instruction copying the value
// into the declared variable, not just a declaration with nothing ever
// assigned into it.
func TestBareLiteralAssignmentEmitsAssignment(t *testing.T) {
	compiled := compileSrc(t, "a: int = 1\n")
	require.Len(t, compiled.Seq.Items, 2)
	assert.Equal(t, ir.InstDeclareVariable, compiled.Seq.Items[0].Kind)
	assert.Equal(t, ir.InstAssignment, compiled.Seq.Items[1].Kind)
	assert.Equal(t, ir.OpCopy, compiled.Seq.Items[1].Value.Kind)
}

func TestBareIdentifierAssignmentCopiesVariable(t *testing.T) {
	compiled := compileSrc(t, "a: int = 1\nb: int = a\n")
	require.Len(t, compiled.Seq.Items, 4)
	last := compiled.Seq.Items[3]
	assert.Equal(t, ir.InstAssignment, last.Kind)
	assert.Equal(t, ir.OpCopy, last.Value.Kind)
}

func TestBareListLiteralAssignmentTargetsDeclaredVariableDirectly(t *testing.T) {
	compiled := compileSrc(t, "a: list[int] = [1, 2, 3]\n")
	// DeclareVariable(a), then list_init + 3 appends writing straight
	// into "a" with no separate synthesized-then-copied temp.
	require.Len(t, compiled.Seq.Items, 5)
	assert.Equal(t, ir.InstDeclareVariable, compiled.Seq.Items[0].Kind)
	assert.Equal(t, ir.InstAssignment, compiled.Seq.Items[1].Kind)
	for _, inst := range compiled.Seq.Items {
		assert.NotEqual(t, ir.InstDeclAssignment, inst.Kind, "list literal should build directly into the declared variable, not a synthesized temp")
	}
}

func TestReassignmentWithIncompatibleTypeIsError(t *testing.T) {
	b, err := parser.Parse("t.npy", []byte("a: int = 1\na = \"x\"\n"))
	require.NoError(t, err)
	_, err = Lower(b)
	assert.Error(t, err)
}
