// Package diag implements source-position tracking and the compiler's
// single diagnostic path: every error the pipeline can raise is a *Error
// with a Kind, a Pos, and a message, printed with color-coded source
// context and followed by exit(1). There is no recoverable error path,
// per the language's compilation model.
package diag

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// Kind distinguishes the externally-visible error classes.
type Kind int

const (
	// KindSyntax is raised by the parser surface (and by a handful of
	// lowering-time constructs the parser accepts but the lowering
	// engine rejects, e.g. a 2+ it-identifier unpack outside DictItems).
	KindSyntax Kind = iota
	// KindType is an operator resolving to Untyped, arity/kwarg
	// mismatch, calling a non-callable, or re-assigning a variable with
	// an incompatible type.
	KindType
	// KindName is an identifier absent from every enclosing scope, or an
	// unknown member/builtin method name.
	KindName
	// KindUnspecified covers parser-recognized but unlowerable features:
	// tuples, slices, comprehensions, dict.get/popitem, general with,
	// imports, except-as bindings.
	KindUnspecified
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "SyntaxError"
	case KindType:
		return "TypeError"
	case KindName:
		return "NameError"
	case KindUnspecified:
		return "Unspecified"
	default:
		return "Error"
	}
}

// Pos is a source location: 1-based line and column.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Error is the single diagnostic type produced anywhere in the pipeline.
type Error struct {
	Kind Kind
	Pos  Pos
	Msg  string
	Sub  []Pos // secondary positions (e.g. the operation within a statement)
	Err  error // wrapped cause, if any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a diagnostic at pos, optionally wrapping cause.
func New(kind Kind, pos Pos, cause error, format string, args ...interface{}) *Error {
	e := &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
	if cause != nil {
		e.Err = errors.WithStack(cause)
	}
	return e
}

// FileIndex holds a single source file's text, split into lines for
// diagnostic context. Spec.md's CLI/file-I/O boundary: the lexer and
// parser are handed a *FileIndex instead of reading the file themselves.
type FileIndex struct {
	Name  string
	lines []string
}

// NewFileIndex reads all of r into memory and indexes it by line.
func NewFileIndex(name string, r io.Reader) (*FileIndex, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	fi := &FileIndex{Name: name}
	for sc.Scan() {
		fi.lines = append(fi.lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	return fi, nil
}

// Line returns the 1-based source line, or "" if out of range.
func (f *FileIndex) Line(n int) string {
	if n < 1 || n > len(f.lines) {
		return ""
	}
	return f.lines[n-1]
}

// Report writes a color-coded label plus source-line context for err to w.
func Report(w io.Writer, files *FileIndex, err *Error) {
	label := color.New(color.FgRed, color.Bold).Sprintf("%s:", err.Kind)
	fmt.Fprintf(w, "%s %s\n", label, err.Msg)
	fmt.Fprintf(w, "  %s %s\n", color.New(color.Faint).Sprint("-->"), err.Pos)
	if files != nil {
		line := files.Line(err.Pos.Line)
		if line != "" {
			fmt.Fprintf(w, "   %s\n", line)
			if err.Pos.Column > 0 && err.Pos.Column <= len(line)+1 {
				fmt.Fprintf(w, "   %s%s\n", strings.Repeat(" ", err.Pos.Column-1),
					color.New(color.FgYellow, color.Bold).Sprint("^"))
			}
		}
	}
}

// Fatal prints err (via Report) to stderr and exits the process with code 1.
// There is no recoverable error path in the compiler core: the pipeline
// returns its *Error to cmd/npyc, which reports it with Report and exits
// with code 1 itself rather than calling Fatal.
func Fatal(files *FileIndex, err *Error) {
	Report(os.Stderr, files, err)
	os.Exit(1)
}
