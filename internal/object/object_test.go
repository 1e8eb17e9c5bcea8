package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npylang/npyc/internal/scope"
	"github.com/npylang/npyc/internal/types"
)

func classWithMethods(methods ...string) *scope.ClassDef {
	c := &scope.ClassDef{Name: "Foo", Methods: map[string]*scope.FunctionDef{}}
	for _, m := range methods {
		c.Methods[m] = &scope.FunctionDef{Name: m}
	}
	return c
}

func TestLookupKnownAndUnknownDunders(t *testing.T) {
	assert.Equal(t, Add, Lookup("__add__"))
	assert.Equal(t, RAdd, Lookup("__radd__"))
	assert.Equal(t, Str, Lookup("__str__"))
	assert.Equal(t, NotInObjectModel, Lookup("__nope__"))
	assert.Equal(t, NotInObjectModel, Lookup("not_a_dunder"))
}

func TestFindOpFunctionPrimarySlotOnLeft(t *testing.T) {
	c := classWithMethods("__add__")
	left := scope.ObjectOf(c)
	right := scope.ObjectOf(c)

	fn, isR, ok := FindOpFunction(left, right, types.Add)
	require.True(t, ok)
	assert.False(t, isR)
	assert.Equal(t, "__add__", fn.Name)
}

func TestFindOpFunctionFallsBackToReflectedOnRight(t *testing.T) {
	c := classWithMethods("__radd__")
	left := scope.T(scope.Int)
	right := scope.ObjectOf(c)

	fn, isR, ok := FindOpFunction(left, right, types.Add)
	require.True(t, ok)
	assert.True(t, isR)
	assert.Equal(t, "__radd__", fn.Name)
}

func TestFindOpFunctionMissingIsNotFound(t *testing.T) {
	c := classWithMethods("__add__")
	left := scope.T(scope.Int)
	right := scope.ObjectOf(c) // only __add__, no __radd__

	_, _, ok := FindOpFunction(left, right, types.Add)
	assert.False(t, ok)
}

func TestOpAssignmentSlot(t *testing.T) {
	assert.Equal(t, IAdd, OpAssignmentSlot("+="))
	assert.Equal(t, IFloorDiv, OpAssignmentSlot("//="))
	assert.Equal(t, NotInObjectModel, OpAssignmentSlot("??="))
}
