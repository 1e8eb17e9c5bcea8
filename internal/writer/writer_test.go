package writer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npylang/npyc/internal/lower"
	"github.com/npylang/npyc/internal/parser"
)

func writeSrc(t *testing.T, src string) string {
	t.Helper()
	b, err := parser.Parse("t.npy", []byte(src))
	require.NoError(t, err)
	compiled, err := lower.Lower(b)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, *compiled))
	return buf.String()
}

func TestWriteIncludesRuntimeHeaderAlways(t *testing.T) {
	out := writeSrc(t, "a: int = 1\n")
	assert.Contains(t, out, `#include "runtime.h"`)
	assert.NotContains(t, out, "<math.h>")
}

func TestWriteIncludesMathHeaderOnlyWhenRequired(t *testing.T) {
	out := writeSrc(t, "a: float = 2.0 ** 3.0\n")
	assert.Contains(t, out, "<math.h>")
}

func TestWriteHoistsModuleLevelDeclarationOutOfInit(t *testing.T) {
	out := writeSrc(t, "a: int = 1\n")
	initIdx := strings.Index(out, "INIT MODULE FUNCTION COMPILER SECTION")
	declsIdx := strings.Index(out, "DECLARATIONS COMPILER SECTION")
	require.True(t, declsIdx >= 0 && initIdx >= 0)
	assert.True(t, declsIdx < initIdx)
	// the "NpInt <name>;" declaration belongs in the decls section, not
	// repeated as a redeclaration inside init_module's body.
	declsSection := out[declsIdx:initIdx]
	assert.Contains(t, declsSection, "NpInt ")
}

func TestWriteBareLiteralAssignmentActuallyAssigns(t *testing.T) {
	out := writeSrc(t, "a: int = 1\n")
	assert.Contains(t, out, "= 1;")
}

func TestWriteStringConstantTableContainsInternedLiteral(t *testing.T) {
	out := writeSrc(t, `print("hello")`+"\n")
	assert.Contains(t, out, "hello")
}

func TestWriteFunctionDefinitionEmitsCFunction(t *testing.T) {
	out := writeSrc(t, "def f(n: int) -> int:\n    return n*n\n")
	assert.Contains(t, out, "FUNCTION DEFINITIONS COMPILER SECTION")
	assert.Contains(t, out, "return")
}

func TestWriteMainCallsInitModule(t *testing.T) {
	out := writeSrc(t, "a: int = 1\n")
	assert.Contains(t, out, "int main(void) {")
	assert.Contains(t, out, "init_module();")
}

func TestWriteClassDefinitionEmitsStructAndConstructorUse(t *testing.T) {
	src := "class C:\n    x: int\n    y: int\nc = C(1, 2)\nprint(c.x + c.y)\n"
	out := writeSrc(t, src)
	assert.Contains(t, out, "TYPEDEFS COMPILER SECTION")
	assert.Contains(t, out, "typedef struct {")
	assert.Contains(t, out, "np_alloc(")
}

func TestWriteForLoopEmitsIterNextAndBreak(t *testing.T) {
	out := writeSrc(t, "for x in [1, 2, 3]:\n    print(x)\n")
	assert.Contains(t, out, "next_data")
	assert.Contains(t, out, "break;")
}
