package types

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/npylang/npyc/internal/scope"
)

func TestSymmetricOperatorsAgreeBothOrders(t *testing.T) {
	cases := []struct {
		l, r scope.TypeInfo
		op   Operator
	}{
		{scope.T(scope.Int), scope.T(scope.Float), Add},
		{scope.T(scope.Int), scope.T(scope.Int), Mul},
		{scope.T(scope.String), scope.T(scope.String), Eq},
		{scope.T(scope.Int), scope.T(scope.Bool), Ne},
	}
	for _, c := range cases {
		fwd := Resolve(c.l, c.r, c.op)
		rev := Resolve(c.r, c.l, c.op)
		assert.Truef(t, fwd.Equal(rev), "expected %s(%s,%s) == %s(%s,%s)", c.op, c.l, c.r, c.op, c.r, c.l)
	}
}

func TestDivisionWithStringOperandIsUntypedInEitherOrder(t *testing.T) {
	// "/" is defined only between numbers, so int / string and
	// string / int both resolve to Untyped.
	left := Resolve(scope.T(scope.Int), scope.T(scope.String), Div)
	right := Resolve(scope.T(scope.String), scope.T(scope.Int), Div)
	assert.Equal(t, scope.Untyped, left.Tag)
	assert.Equal(t, scope.Untyped, right.Tag)
}

func TestIntPlusFloatIsFloat(t *testing.T) {
	got := Resolve(scope.T(scope.Int), scope.T(scope.Float), Add)
	assert.Equal(t, scope.Float, got.Tag)
}

func TestStringPlusStringIsString(t *testing.T) {
	got := Resolve(scope.T(scope.String), scope.T(scope.String), Add)
	assert.Equal(t, scope.String, got.Tag)
}

func TestListPlusListRequiresMatchingContentType(t *testing.T) {
	intList := scope.Composite(scope.List, scope.T(scope.Int))
	strList := scope.Composite(scope.List, scope.T(scope.String))
	match := Resolve(intList, intList, Add)
	mismatch := Resolve(intList, strList, Add)
	assert.Equal(t, scope.List, match.Tag)
	assert.Equal(t, scope.Untyped, mismatch.Tag)
}

func TestDivisionAlwaysProducesFloat(t *testing.T) {
	got := Resolve(scope.T(scope.Int), scope.T(scope.Int), Div)
	assert.Equal(t, scope.Float, got.Tag)
}

func TestFloorDivAlwaysProducesInt(t *testing.T) {
	got := Resolve(scope.T(scope.Float), scope.T(scope.Float), FloorDiv)
	assert.Equal(t, scope.Int, got.Tag)
}

func TestStringModuloIsUntyped(t *testing.T) {
	got := Resolve(scope.T(scope.String), scope.T(scope.Int), Mod)
	assert.Equal(t, scope.Untyped, got.Tag)
}

func TestUntypedOperandIsAlwaysFatalPropagation(t *testing.T) {
	got := Resolve(scope.T(scope.Untyped), scope.T(scope.Int), Add)
	assert.Equal(t, scope.Untyped, got.Tag)
}

func TestMembershipAndIdentity(t *testing.T) {
	strInStr := Resolve(scope.T(scope.String), scope.T(scope.String), In)
	assert.Equal(t, scope.Bool, strInStr.Tag)

	intList := scope.Composite(scope.List, scope.T(scope.Int))
	inList := Resolve(scope.T(scope.Int), intList, In)
	assert.Equal(t, scope.Bool, inList.Tag)

	isList := Resolve(intList, intList, Is)
	assert.Equal(t, scope.Bool, isList.Tag)
}

func TestResolveNumberLiteral(t *testing.T) {
	assert.Equal(t, scope.Int, ResolveNumberLiteral("42").Tag)
	assert.Equal(t, scope.Float, ResolveNumberLiteral("3.14").Tag)
	assert.Equal(t, scope.Float, ResolveNumberLiteral("1f").Tag)
}
