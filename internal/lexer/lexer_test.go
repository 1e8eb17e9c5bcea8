package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npylang/npyc/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestSimpleAssignmentLine(t *testing.T) {
	toks, err := Tokenize("t.npy", []byte("x: int = 1\n"))
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.Identifier, token.Colon, token.Identifier, token.KindOperator,
		token.Number, token.Newline, token.EOF,
	}, kinds(toks))
}

func TestIndentAndDedentAroundIfBlock(t *testing.T) {
	src := "if x:\n    y = 1\nz = 2\n"
	toks, err := Tokenize("t.npy", []byte(src))
	require.NoError(t, err)
	k := kinds(toks)
	require.Contains(t, k, token.BlockBegin)
	require.Contains(t, k, token.BlockEnd)

	beginIdx := indexOf(k, token.BlockBegin)
	endIdx := indexOf(k, token.BlockEnd)
	assert.Less(t, beginIdx, endIdx)
}

func indexOf(k []token.Kind, target token.Kind) int {
	for i, v := range k {
		if v == target {
			return i
		}
	}
	return -1
}

func TestNestedParensSuppressNewlines(t *testing.T) {
	toks, err := Tokenize("t.npy", []byte("f(1,\n2)\n"))
	require.NoError(t, err)
	k := kinds(toks)
	newlines := 0
	for _, v := range k {
		if v == token.Newline {
			newlines++
		}
	}
	assert.Equal(t, 1, newlines)
}

func TestStringLiteralWithEscapes(t *testing.T) {
	toks, err := Tokenize("t.npy", []byte(`"a\nb"` + "\n"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(toks), 2)
	assert.Equal(t, token.String, toks[0].Kind)
	assert.Equal(t, "a\nb", toks[0].Text)
}

func TestMismatchedDedentIsSyntaxError(t *testing.T) {
	src := "if x:\n    y = 1\n  z = 2\n"
	_, err := Tokenize("t.npy", []byte(src))
	assert.Error(t, err)
}

func TestKeywordVsIdentifier(t *testing.T) {
	toks, err := Tokenize("t.npy", []byte("return returning\n"))
	require.NoError(t, err)
	assert.Equal(t, token.KindKeyword, toks[0].Kind)
	assert.Equal(t, token.Identifier, toks[1].Kind)
}

func TestCompoundOperatorsScanAsOneToken(t *testing.T) {
	toks, err := Tokenize("t.npy", []byte("x //= 2\n"))
	require.NoError(t, err)
	require.Equal(t, token.KindOperator, toks[1].Kind)
	assert.Equal(t, token.FloorDivAssignment, toks[1].Operator)
}
