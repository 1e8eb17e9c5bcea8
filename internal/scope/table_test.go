package scope

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variableSymbol(name string, t TypeInfo) Symbol {
	return Symbol{Kind: SymVariable, Var: &Variable{Identifier: name, Type: t}}
}

func TestFirstInsertionWins(t *testing.T) {
	tbl := NewTable()
	tbl.Put(variableSymbol("x", T(Int)))
	tbl.Put(variableSymbol("x", T(String))) // dropped: x already bound

	got, ok := tbl.Get("x")
	require.True(t, ok)
	assert.Equal(t, Int, got.Var.Type.Tag)
}

func TestFirstInsertionWinsAfterGrowthAndFinalize(t *testing.T) {
	tbl := NewTable()
	tbl.Put(variableSymbol("first", T(Int)))
	for i := 0; i < 200; i++ {
		tbl.Put(variableSymbol(fmt.Sprintf("pad_%d", i), T(Unsigned)))
	}
	tbl.Put(variableSymbol("first", T(String))) // still dropped post-growth

	got, ok := tbl.Get("first")
	require.True(t, ok)
	assert.Equal(t, Int, got.Var.Type.Tag)

	tbl.Finalize()
	got, ok = tbl.Get("first")
	require.True(t, ok)
	assert.Equal(t, Int, got.Var.Type.Tag)
}

func TestPutAfterFinalizePanics(t *testing.T) {
	tbl := NewTable()
	tbl.Put(variableSymbol("x", T(Int)))
	tbl.Finalize()
	assert.Panics(t, func() {
		tbl.Put(variableSymbol("y", T(Int)))
	})
}

func TestGetMissReturnsFalse(t *testing.T) {
	tbl := NewTable()
	_, ok := tbl.Get("nope")
	assert.False(t, ok)
}

func TestScopeResolutionShallowestBindingWins(t *testing.T) {
	top := NewLexical(TopLevel, nil, nil)
	top.Table.Put(variableSymbol("x", T(Int)))

	stack := NewStack(top)
	fn := NewLexical(Func, top, nil)
	fn.Table.Put(variableSymbol("x", T(String)))
	stack.Push(fn)

	got, ok := stack.Get("x")
	require.True(t, ok)
	assert.Equal(t, String, got.Var.Type.Tag, "function scope binding must shadow top-level")

	stack.Pop()
	got, ok = stack.Get("x")
	require.True(t, ok)
	assert.Equal(t, Int, got.Var.Type.Tag, "top-level binding visible once function scope is popped")
}

func TestClosureChildSeesClosureParentBinding(t *testing.T) {
	top := NewLexical(TopLevel, nil, nil)
	stack := NewStack(top)

	parent := NewLexical(ClosureParent, top, nil)
	parent.Table.Put(Symbol{Kind: SymVariable, Var: &Variable{Identifier: "captured", Kind: Closure, Type: T(Int)}})
	stack.Push(parent)

	child := NewLexical(ClosureChild, parent, nil)
	stack.Push(child)

	got, ok := stack.Get("captured")
	require.True(t, ok)
	assert.Equal(t, Closure, got.Var.Kind)
}
