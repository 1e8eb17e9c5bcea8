package ir

import "github.com/npylang/npyc/internal/intern"

// Requirements tracks which optional runtime/C-library facilities the
// lowered program actually exercises, so the writer only emits the
// #include/link directives a given program needs (spec.md §6).
type Requirements struct {
	Math      bool // pow/floor/ceil needs <math.h> and -lm
	Strings   bool // string concatenation/formatting touches np_str_*
	Exceptions bool // any raise/assert/except lowers to the exception path
}

func (r *Requirements) Merge(o Requirements) {
	r.Math = r.Math || o.Math
	r.Strings = r.Strings || o.Strings
	r.Exceptions = r.Exceptions || o.Exceptions
}

// Compiled is the lowering engine's complete output: the top-level
// instruction sequence, the accumulated string-literal interner, and
// the Requirements the writer needs to pick includes and link flags.
type Compiled struct {
	Strings *intern.Interner
	Seq     InstructionSequence
	Req     Requirements
}

func NewCompiled() *Compiled {
	return &Compiled{Strings: intern.New()}
}
