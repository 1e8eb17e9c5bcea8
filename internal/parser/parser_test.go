package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npylang/npyc/internal/ast"
)

func TestParseSimpleAnnotationAssignment(t *testing.T) {
	b, err := Parse("t.npy", []byte("x: int = 1\n"))
	require.NoError(t, err)
	require.Len(t, b.Statements, 1)
	ann, ok := b.Statements[0].(*ast.Annotation)
	require.True(t, ok)
	assert.Equal(t, "x", ann.Name)
	assert.Equal(t, "int", ann.Type.Name)
	assert.True(t, ann.HasInit)
}

func TestParseIfElifElse(t *testing.T) {
	src := "if x:\n    y = 1\nelif z:\n    y = 2\nelse:\n    y = 3\n"
	b, err := Parse("t.npy", []byte(src))
	require.NoError(t, err)
	require.Len(t, b.Statements, 1)
	ifs, ok := b.Statements[0].(*ast.If)
	require.True(t, ok)
	require.Len(t, ifs.Elifs, 1)
	assert.True(t, ifs.HasElse)
}

func TestParseFunctionWithDefaultAndReturnType(t *testing.T) {
	src := "def add(a: int, b: int = 1) -> int:\n    return a + b\n"
	b, err := Parse("t.npy", []byte(src))
	require.NoError(t, err)
	require.Len(t, b.Statements, 1)
	fn, ok := b.Statements[0].(*ast.Function)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.True(t, fn.Params[1].HasDefault)
	assert.True(t, fn.HasReturn)
	assert.Equal(t, "int", fn.ReturnType.Name)
}

func TestParseClassWithMembersAndMethod(t *testing.T) {
	src := "class Point:\n    x: int\n    y: int\n    def dist(self) -> int:\n        return self.x\n"
	b, err := Parse("t.npy", []byte(src))
	require.NoError(t, err)
	cls, ok := b.Statements[0].(*ast.Class)
	require.True(t, ok)
	assert.Equal(t, "Point", cls.Name)
	require.Len(t, cls.Members, 2)
	require.Len(t, cls.Methods, 1)
	assert.Equal(t, "self", cls.Methods[0].SelfParam)
}

func TestParseCallAndGetAttrChain(t *testing.T) {
	b, err := Parse("t.npy", []byte("f(x, y=1).z\n"))
	require.NoError(t, err)
	expr := b.Statements[0].(*ast.Expr)
	require.NotEmpty(t, expr.Value.Operations)
	last := expr.Value.Operations[len(expr.Value.Operations)-1]
	assert.Equal(t, ast.OpGetAttr, last.Kind)
	assert.Equal(t, "z", last.Attr)
}

func TestParseForLoop(t *testing.T) {
	src := "for k, v in items:\n    pass\n"
	b, err := Parse("t.npy", []byte(src))
	require.NoError(t, err)
	f, ok := b.Statements[0].(*ast.For)
	require.True(t, ok)
	assert.Equal(t, []string{"k", "v"}, f.Targets.Names)
}

func TestParseWhileBreakContinue(t *testing.T) {
	src := "while True:\n    break\n"
	b, err := Parse("t.npy", []byte(src))
	require.NoError(t, err)
	w, ok := b.Statements[0].(*ast.While)
	require.True(t, ok)
	require.Len(t, w.Body.Statements, 1)
	_, ok = w.Body.Statements[0].(*ast.Break)
	assert.True(t, ok)
}

func TestParseTryExcept(t *testing.T) {
	src := "try:\n    x = 1\nexcept ValueError:\n    x = 2\n"
	b, err := Parse("t.npy", []byte(src))
	require.NoError(t, err)
	tr, ok := b.Statements[0].(*ast.Try)
	require.True(t, ok)
	require.Len(t, tr.Excepts, 1)
	assert.Equal(t, []string{"ValueError"}, tr.Excepts[0].Classes)
}

func TestParseCompoundAssignment(t *testing.T) {
	b, err := Parse("t.npy", []byte("x += 1\n"))
	require.NoError(t, err)
	assign, ok := b.Statements[0].(*ast.Assignment)
	require.True(t, ok)
	assert.Equal(t, ast.AssignOp, assign.Kind)
	assert.Equal(t, "+=", assign.Operator)
}

func TestOperatorPrecedenceShapesOperationOrder(t *testing.T) {
	b, err := Parse("t.npy", []byte("x = 1 + 2 * 3\n"))
	require.NoError(t, err)
	assign := b.Statements[0].(*ast.Assignment)
	ops := assign.Value.Operations
	require.Len(t, ops, 2)
	assert.Equal(t, "*", ops[0].Operator)
	assert.Equal(t, "+", ops[1].Operator)
}

func TestBoolAndNoneLiterals(t *testing.T) {
	b, err := Parse("t.npy", []byte("x = True\ny = None\n"))
	require.NoError(t, err)
	a1 := b.Statements[0].(*ast.Assignment)
	require.Len(t, a1.Value.Operands, 1)
	assert.Equal(t, ast.OperandBool, a1.Value.Operands[0].Kind)
	assert.True(t, a1.Value.Operands[0].Bool)

	a2 := b.Statements[1].(*ast.Assignment)
	assert.Equal(t, ast.OperandNone, a2.Value.Operands[0].Kind)
}
