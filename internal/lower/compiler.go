// Package lower implements spec.md §4.6's lowering engine: the
// AST-to-Instruction-IR pass that drives the whole compiler core
// (spec.md §2 estimates it at 45% of the system). One Compiler value
// walks a parser.Bundle's statements and expressions, consulting
// internal/types for operator resolution and internal/object for
// operator/call dispatch on user classes, and emits internal/ir
// Instructions into a internal/ir.SequenceStack.
//
// Grounded on google-gapid/gapil/compiler/compiler.go's "C" struct (one
// value carrying every piece of compiler state — no package-level
// globals, matching spec.md §9's "Global mutable state" note) and its
// statements.go/expressions.go split; the actual per-statement and
// per-expression lowering RULES are original_source/src/compiler.c's,
// transcribed into the Go types internal/ir and internal/ast define.
package lower

import (
	"fmt"

	"github.com/npylang/npyc/internal/arena"
	"github.com/npylang/npyc/internal/ast"
	"github.com/npylang/npyc/internal/diag"
	"github.com/npylang/npyc/internal/intern"
	"github.com/npylang/npyc/internal/ir"
	"github.com/npylang/npyc/internal/parser"
	"github.com/npylang/npyc/internal/scope"
)

// Compiler is spec.md §4.6's lowering-engine state, held as one value
// per compilation (never shared across goroutines — spec.md §5's
// single-threaded model).
type Compiler struct {
	arena   *arena.Arena
	files   *diag.FileIndex
	scopes  *scope.Stack
	strings *intern.Interner
	seq     *ir.SequenceStack

	synth int // monotonic counter for synthesized identifiers

	loopAfterLabels []string // "current-loop after-label", one per nesting level
	exceptsLabels   []string // "current-excepts goto-label", one per nesting level

	req ir.Requirements

	curStmt diag.Pos
	curOp   diag.Pos
}

// New constructs a Compiler over a freshly parsed Bundle.
func New(b *parser.Bundle) *Compiler {
	return &Compiler{
		arena:   b.Arena,
		files:   b.Files,
		scopes:  scope.NewStack(b.Top),
		strings: intern.New(),
		seq:     ir.NewSequenceStack(),
	}
}

// Lower drives the whole pipeline: walks every top-level statement of
// b, returning the ir.Compiled bundle internal/writer consumes.
func Lower(b *parser.Bundle) (*ir.Compiled, error) {
	return New(b).Lower(b)
}

// Lower runs this Compiler over b's top-level statements. Kept as a
// method (in addition to the package-level Lower) so callers that need
// the Compiler afterward — e.g. cmd/npyc's --debug-arena stats dump —
// can hold onto it.
func (c *Compiler) Lower(b *parser.Bundle) (*ir.Compiled, error) {
	c.seq.Push()
	for _, stmt := range b.Statements {
		if err := c.lowerStatement(stmt); err != nil {
			return nil, err
		}
	}
	top := c.seq.Pop()
	if c.seq.Depth() != 0 {
		return nil, fmt.Errorf("lower: sequence stack not balanced at end of compilation (depth=%d)", c.seq.Depth())
	}
	return &ir.Compiled{Strings: c.strings, Seq: top, Req: c.req}, nil
}

// Arena returns the arena this Compiler lowers against, so a caller can
// report allocation stats after Lower returns.
func (c *Compiler) Arena() *arena.Arena { return c.arena }

// withSequence implements spec.md §9's scope-guard replacement for the
// source's push_new/pop macro: push a fresh sequence, run fn, and pop it
// back out unconditionally (even on error), returning the popped
// sequence to the caller to attach onto the enclosing Instruction.
func (c *Compiler) withSequence(fn func() error) (ir.InstructionSequence, error) {
	c.seq.Push()
	err := fn()
	return c.seq.Pop(), err
}

// emit appends one instruction to the current top sequence.
func (c *Compiler) emit(i ir.Instruction) { c.seq.Emit(i) }

// synthName returns a fresh, unique C identifier for a compiler-invented
// temporary, e.g. "__t3".
func (c *Compiler) synthName() string {
	c.synth++
	return fmt.Sprintf("__t%d", c.synth)
}

// synthLabel returns a fresh, unique label name for Goto/Label pairs.
func (c *Compiler) synthLabel(prefix string) string {
	c.synth++
	return fmt.Sprintf("%s_%d", prefix, c.synth)
}

// synthStorage allocates a fresh synthesized StorageIdent of type t, the
// "null hint ⇒ invent a fresh unique identifier" case spec.md §4.6 names.
func (c *Compiler) synthStorage(t scope.TypeInfo) ir.StorageIdent {
	return ir.CStr(c.synthName(), t)
}

func (c *Compiler) pushLoop(afterLabel string) { c.loopAfterLabels = append(c.loopAfterLabels, afterLabel) }
func (c *Compiler) popLoop() {
	c.loopAfterLabels = c.loopAfterLabels[:len(c.loopAfterLabels)-1]
}
func (c *Compiler) currentLoopAfterLabel() string {
	if len(c.loopAfterLabels) == 0 {
		return ""
	}
	return c.loopAfterLabels[len(c.loopAfterLabels)-1]
}

func (c *Compiler) pushExcepts(label string) { c.exceptsLabels = append(c.exceptsLabels, label) }
func (c *Compiler) popExcepts() {
	c.exceptsLabels = c.exceptsLabels[:len(c.exceptsLabels)-1]
}
func (c *Compiler) currentExceptsLabel() string {
	if len(c.exceptsLabels) == 0 {
		return ""
	}
	return c.exceptsLabels[len(c.exceptsLabels)-1]
}

// internString interns s and returns a StringLiteral StorageIdent for it.
func (c *Compiler) internString(s string) ir.StorageIdent {
	return ir.StringLiteral(c.strings.Put(s))
}

func (c *Compiler) typeError(pos diag.Pos, format string, args ...interface{}) error {
	return diag.New(diag.KindType, pos, nil, format, args...)
}

func (c *Compiler) nameError(pos diag.Pos, format string, args ...interface{}) error {
	return diag.New(diag.KindName, pos, nil, format, args...)
}

func (c *Compiler) unspecified(pos diag.Pos, format string, args ...interface{}) error {
	return diag.New(diag.KindUnspecified, pos, nil, format, args...)
}

// requireTyped implements spec.md §8 property 4 ("Untyped is fatal"):
// any path that would store Untyped into a DeclareVariable or an
// instruction's result type aborts with a located TypeError.
func (c *Compiler) requireTyped(pos diag.Pos, t scope.TypeInfo, what string) error {
	if t.Tag == scope.Untyped {
		return c.typeError(pos, "%s has unresolvable (untyped) result", what)
	}
	return nil
}
