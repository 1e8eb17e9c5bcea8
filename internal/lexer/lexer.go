// Package lexer implements a hand-written, indentation-aware scanner
// over a source file's bytes, producing internal/token.Tokens.
//
// Grounded on original_source/src/lexer.c's next_token (single-char
// token dispatch, alpha/numeric/operator run scanning) and
// lexer_types.h's indent bookkeeping; the original's fixed
// MAX_INDENTS stack becomes a Go slice, and the original's per-call
// fgetc/ungetc streaming becomes an index into an in-memory byte
// slice, matching gapid/gapil/parser's scanner texture of operating
// over a fully-read source buffer rather than streaming I/O.
package lexer

import (
	"strings"

	"github.com/npylang/npyc/internal/diag"
	"github.com/npylang/npyc/internal/token"
)

const maxIndents = 128

type Lexer struct {
	file string
	src  []byte
	pos  int
	line int
	col  int

	indents    []int
	atLineHead bool
	pending    []token.Token // INDENT/DEDENT tokens queued ahead of the next real token
	parenDepth int           // inside (), [], {}: newlines don't end a logical line
}

func New(file string, src []byte) *Lexer {
	return &Lexer{
		file:       file,
		src:        src,
		line:       1,
		col:        1,
		indents:    []int{0},
		atLineHead: true,
	}
}

func (l *Lexer) pos_() diag.Pos { return diag.Pos{File: l.file, Line: l.line, Column: l.col} }

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekByteAt(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isNumeric(c byte) bool { return c >= '0' && c <= '9' }

const operatorChars = "-!+*/|&=<>^~%"

func isOperatorChar(c byte) bool { return strings.IndexByte(operatorChars, c) >= 0 }

// Next returns the next token in the stream, handling indentation
// bookkeeping transparently: callers see a flat stream of tokens
// including synthesized BlockBegin/BlockEnd/Newline tokens.
func (l *Lexer) Next() (token.Token, error) {
	if len(l.pending) > 0 {
		t := l.pending[0]
		l.pending = l.pending[1:]
		return t, nil
	}

	if l.atLineHead && l.parenDepth == 0 {
		tok, err := l.scanIndentation()
		if err != nil {
			return token.Token{}, err
		}
		if tok.Kind != token.Invalid {
			l.pending = append(l.pending, tok)
			return l.Next()
		}
	}

	l.skipBlankAndComment()

	if l.pos >= len(l.src) {
		return token.Token{Pos: l.pos_(), Kind: token.EOF}, nil
	}

	start := l.pos_()
	c := l.peekByte()

	if c == '\n' {
		l.advance()
		l.atLineHead = true
		if l.parenDepth > 0 {
			return l.Next()
		}
		return token.Token{Pos: start, Kind: token.Newline}, nil
	}

	switch c {
	case '(':
		l.advance()
		l.parenDepth++
		return token.Token{Pos: start, Kind: token.OpenParens}, nil
	case ')':
		l.advance()
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		return token.Token{Pos: start, Kind: token.CloseParens}, nil
	case '[':
		l.advance()
		l.parenDepth++
		return token.Token{Pos: start, Kind: token.OpenSquare}, nil
	case ']':
		l.advance()
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		return token.Token{Pos: start, Kind: token.CloseSquare}, nil
	case '{':
		l.advance()
		l.parenDepth++
		return token.Token{Pos: start, Kind: token.OpenCurly}, nil
	case '}':
		l.advance()
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		return token.Token{Pos: start, Kind: token.CloseCurly}, nil
	case ':':
		l.advance()
		return token.Token{Pos: start, Kind: token.Colon}, nil
	case ',':
		l.advance()
		return token.Token{Pos: start, Kind: token.Comma}, nil
	case '.':
		if isAlpha(l.peekByteAt(1)) || isNumeric(l.peekByteAt(1)) {
			l.advance()
			return token.Token{Pos: start, Kind: token.Dot}, nil
		}
	case '"', '\'':
		return l.scanString(start, c)
	}

	switch {
	case isAlpha(c):
		return l.scanIdentifier(start), nil
	case isNumeric(c):
		return l.scanNumber(start), nil
	case isOperatorChar(c):
		return l.scanOperator(start), nil
	}

	return token.Token{}, diag.New(diag.KindSyntax, start, nil, "unexpected character %q", c)
}

func (l *Lexer) skipBlankAndComment() {
	for l.pos < len(l.src) {
		c := l.peekByte()
		if c == ' ' || c == '\t' || c == '\r' {
			l.advance()
			continue
		}
		if c == '#' {
			for l.pos < len(l.src) && l.peekByte() != '\n' {
				l.advance()
			}
			continue
		}
		break
	}
}

// scanIndentation consumes leading whitespace on a fresh logical line
// and compares its width against the indent stack, returning at most
// one BlockBegin/BlockEnd token per call (Next loops to drain a run of
// dedents via l.pending).
func (l *Lexer) scanIndentation() (token.Token, error) {
	start := l.pos
	width := 0
	for l.pos < len(l.src) {
		c := l.peekByte()
		if c == ' ' {
			width++
			l.advance()
		} else if c == '\t' {
			width += 8 - (width % 8)
			l.advance()
		} else {
			break
		}
	}
	// a blank or comment-only line carries no indentation meaning
	if l.pos >= len(l.src) || l.peekByte() == '\n' || l.peekByte() == '#' {
		l.atLineHead = false
		return token.Token{Kind: token.Invalid}, nil
	}
	l.atLineHead = false

	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		if len(l.indents) >= maxIndents {
			return token.Token{}, diag.New(diag.KindSyntax, l.pos_(), nil, "indentation nested too deeply")
		}
		l.indents = append(l.indents, width)
		return token.Token{Pos: l.pos_(), Kind: token.BlockBegin}, nil
	case width < top:
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			l.pending = append(l.pending, token.Token{Pos: l.pos_(), Kind: token.BlockEnd})
		}
		if l.indents[len(l.indents)-1] != width {
			return token.Token{}, diag.New(diag.KindSyntax, l.pos_(), nil, "indentation does not match any outer level")
		}
		_ = start
		t := l.pending[0]
		l.pending = l.pending[1:]
		return t, nil
	default:
		return token.Token{Kind: token.Invalid}, nil
	}
}

func (l *Lexer) scanIdentifier(start diag.Pos) token.Token {
	b := l.pos
	for l.pos < len(l.src) && (isAlpha(l.peekByte()) || isNumeric(l.peekByte())) {
		l.advance()
	}
	text := string(l.src[b:l.pos])
	if kw := token.LookupKeyword(text); kw != token.NotAKeyword {
		return token.Token{Pos: start, Kind: token.KindKeyword, Keyword: kw, Text: text}
	}
	return token.Token{Pos: start, Kind: token.Identifier, Text: text}
}

func (l *Lexer) scanNumber(start diag.Pos) token.Token {
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.peekByte()
		if isNumeric(c) || c == '.' {
			sb.WriteByte(c)
			l.advance()
		} else if c == '_' {
			l.advance() // digit-group separator, dropped
		} else if c == 'f' || c == 'F' {
			sb.WriteByte(c)
			l.advance()
			break
		} else {
			break
		}
	}
	return token.Token{Pos: start, Kind: token.Number, Text: sb.String()}
}

func (l *Lexer) scanOperator(start diag.Pos) token.Token {
	b := l.pos
	for l.pos < len(l.src) && isOperatorChar(l.peekByte()) {
		l.advance()
	}
	text := string(l.src[b:l.pos])
	return token.Token{Pos: start, Kind: token.KindOperator, Operator: token.FromString(text), Text: text}
}

func (l *Lexer) scanString(start diag.Pos, quote byte) (token.Token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token.Token{}, diag.New(diag.KindSyntax, start, nil, "unterminated string literal")
		}
		c := l.peekByte()
		if c == quote {
			l.advance()
			break
		}
		if c == '\\' {
			l.advance()
			if l.pos >= len(l.src) {
				return token.Token{}, diag.New(diag.KindSyntax, start, nil, "unterminated string literal")
			}
			sb.WriteByte(unescape(l.advance()))
			continue
		}
		sb.WriteByte(l.advance())
	}
	return token.Token{Pos: start, Kind: token.String, Text: sb.String()}, nil
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return c
	}
}

// Tokenize drains the whole stream, including a final run of BlockEnd
// tokens and a trailing EOF — used by the parser's lookahead buffer
// and by --dump-tokens.
func Tokenize(file string, src []byte) ([]token.Token, error) {
	l := New(file, src)
	var out []token.Token
	for {
		t, err := l.Next()
		if err != nil {
			return nil, err
		}
		if t.Kind == token.EOF {
			for i := 1; i < len(l.indents); i++ {
				out = append(out, token.Token{Pos: t.Pos, Kind: token.BlockEnd})
			}
			out = append(out, t)
			break
		}
		out = append(out, t)
	}
	return out, nil
}
