package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupKeyword(t *testing.T) {
	assert.Equal(t, Def, LookupKeyword("def"))
	assert.Equal(t, NotAKeyword, LookupKeyword("definitely"))
	assert.Equal(t, NotAKeyword, LookupKeyword("x"))
}

func TestFromStringRoundTrips(t *testing.T) {
	for spelling, op := range operators {
		assert.Equal(t, op, FromString(spelling))
		assert.Equal(t, spelling, op.String())
	}
}

func TestIsAssignmentOp(t *testing.T) {
	assert.True(t, IsAssignment(PlusAssignment))
	assert.True(t, IsAssignment(Assignment))
	assert.False(t, IsAssignment(Plus))
	assert.False(t, IsAssignment(Equal))
}

func TestPrecedenceOrdering(t *testing.T) {
	assert.Greater(t, Precedence(Pow), Precedence(Mult))
	assert.Greater(t, Precedence(Mult), Precedence(Plus))
	assert.Greater(t, Precedence(Plus), Precedence(Equal))
	assert.Equal(t, uint(0), Precedence(Assignment))
}

func TestKeywordPrecedenceOrdering(t *testing.T) {
	assert.Less(t, KeywordPrecedence(Or), KeywordPrecedence(And))
	assert.Less(t, KeywordPrecedence(And), KeywordPrecedence(Not))
	assert.Equal(t, KeywordPrecedence(In), KeywordPrecedence(Is))
}
