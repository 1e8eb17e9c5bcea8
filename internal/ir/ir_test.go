package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npylang/npyc/internal/scope"
)

func TestStorageIdentConstructorsSetType(t *testing.T) {
	assert.Equal(t, scope.Int, IntLiteral(3).Type.Tag)
	assert.Equal(t, scope.Float, FloatLiteral(3.5).Type.Tag)
	assert.Equal(t, scope.String, StringLiteral(0).Type.Tag)
	assert.True(t, StorageIdent{}.IsNull())
	assert.False(t, IntLiteral(0).IsNull())
}

func TestSequenceStackPushEmitPop(t *testing.T) {
	s := NewSequenceStack()
	s.Push()
	s.Emit(NoOp())
	s.Emit(Break())
	seq := s.Pop()
	require.Len(t, seq.Items, 2)
	assert.Equal(t, InstNoOp, seq.Items[0].Kind)
	assert.Equal(t, InstBreak, seq.Items[1].Kind)
	assert.Equal(t, 0, s.Depth())
}

func TestSequenceStackNestingTracksParentSeparately(t *testing.T) {
	s := NewSequenceStack()
	s.Push()
	s.Emit(Continue())
	s.Push()
	s.Emit(Break())
	inner := s.Pop()
	s.Emit(NoOp())
	outer := s.Pop()

	require.Len(t, inner.Items, 1)
	assert.Equal(t, InstBreak, inner.Items[0].Kind)
	require.Len(t, outer.Items, 2)
	assert.Equal(t, InstContinue, outer.Items[0].Kind)
	assert.Equal(t, InstNoOp, outer.Items[1].Kind)
}

func TestSequenceStackPanicsPastMaxDepth(t *testing.T) {
	s := NewSequenceStack()
	for i := 0; i < MaxSequenceDepth; i++ {
		s.Push()
	}
	assert.Panics(t, func() { s.Push() })
}

func TestRequirementsMergeIsUnion(t *testing.T) {
	var r Requirements
	r.Merge(Requirements{Math: true})
	r.Merge(Requirements{Strings: true})
	assert.True(t, r.Math)
	assert.True(t, r.Strings)
	assert.False(t, r.Exceptions)
}

func TestOperationConstructors(t *testing.T) {
	left := IntLiteral(1)
	right := IntLiteral(2)
	add := Intrinsic("+", left, right, scope.T(scope.Int))
	assert.Equal(t, OpIntrinsic, add.Kind)
	assert.True(t, add.HasRight)

	neg := IntrinsicUnary("u-", left, scope.T(scope.Int))
	assert.False(t, neg.HasRight)

	call := CCall1("np_int_to_str", left, scope.T(scope.String))
	assert.Equal(t, OpCCall1, call.Kind)
	assert.Equal(t, "np_int_to_str", call.CCallName)
}

func TestInstructionConstructors(t *testing.T) {
	v := &scope.Variable{}
	decl := DeclareVariable(v)
	assert.Equal(t, InstDeclareVariable, decl.Kind)

	ret := ReturnValue(IntLiteral(1))
	assert.True(t, ret.HasReturnValue)

	assign := Assignment(VarIdent(v), Copy(IntLiteral(1)))
	assert.Equal(t, InstAssignment, assign.Kind)
}
