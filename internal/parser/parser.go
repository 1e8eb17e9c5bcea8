// Package parser implements a recursive-descent parser over
// internal/token's stream, producing internal/ast statements and
// building the lexical scope tree concurrently (spec.md §6's "Lexer"
// contract hands the lowering engine an already-resolved scope).
//
// Grounded on google-gapid/gapil/parser/parser.go's cursor-over-tokens
// shape (expect/peek helpers, one parse function per grammar
// production) combined with original_source/src/compiler.c's statement
// grammar for what each construct actually accepts.
package parser

import (
	"bytes"

	"github.com/npylang/npyc/internal/arena"
	"github.com/npylang/npyc/internal/ast"
	"github.com/npylang/npyc/internal/diag"
	"github.com/npylang/npyc/internal/lexer"
	"github.com/npylang/npyc/internal/scope"
	"github.com/npylang/npyc/internal/token"
)

// Bundle is the exact deliverable spec.md §6 describes the parser
// handing to the lowering engine.
type Bundle struct {
	Arena      *arena.Arena
	Top        *scope.Lexical
	Files      *diag.FileIndex
	Statements []ast.Statement
}

type parser struct {
	file    string
	toks    []token.Token
	pos     int
	scopes  *scope.Stack
	arena   *arena.Arena
}

// Parse tokenizes and parses one source file, returning a Bundle ready
// for internal/lower.
func Parse(file string, src []byte) (*Bundle, error) {
	toks, err := lexer.Tokenize(file, src)
	if err != nil {
		return nil, err
	}
	top := scope.NewLexical(scope.TopLevel, nil, nil)
	p := &parser{
		file:   file,
		toks:   toks,
		scopes: scope.NewStack(top),
		arena:  arena.New(),
	}
	stmts, err := p.parseBlockStatements(true)
	if err != nil {
		return nil, err
	}
	fi, err := diag.NewFileIndex(file, bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	return &Bundle{Arena: p.arena, Top: top, Files: fi, Statements: stmts}, nil
}

func (p *parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekN(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[i]
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *parser) atKeyword(kw token.Keyword) bool {
	t := p.cur()
	return t.Kind == token.KindKeyword && t.Keyword == kw
}

func (p *parser) expect(k token.Kind) (token.Token, error) {
	if !p.at(k) {
		return token.Token{}, p.syntaxError("expected %v, got %v", k, p.cur())
	}
	return p.advance(), nil
}

func (p *parser) expectKeyword(kw token.Keyword) error {
	if !p.atKeyword(kw) {
		return p.syntaxError("expected keyword, got %v", p.cur())
	}
	p.advance()
	return nil
}

func (p *parser) syntaxError(format string, args ...interface{}) error {
	return diag.New(diag.KindSyntax, p.cur().Pos, nil, format, args...)
}

// skipNewlines consumes any run of blank logical-line Newline tokens
// (e.g. between statements or before a dedent).
func (p *parser) skipNewlines() {
	for p.at(token.Newline) {
		p.advance()
	}
}

func (p *parser) parseBlockStatements(topLevel bool) ([]ast.Statement, error) {
	var out []ast.Statement
	for {
		p.skipNewlines()
		if p.at(token.EOF) {
			break
		}
		if !topLevel && p.at(token.BlockEnd) {
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

// parseSuite parses a ":" followed by an indented block, pushing no
// new scope of its own (callers that introduce scope — Function,
// Class — push/pop around the call).
func (p *parser) parseSuite() (ast.Block, error) {
	if _, err := p.expect(token.Colon); err != nil {
		return ast.Block{}, err
	}
	if err := p.skipToNewline(); err != nil {
		return ast.Block{}, err
	}
	if _, err := p.expect(token.BlockBegin); err != nil {
		return ast.Block{}, err
	}
	stmts, err := p.parseBlockStatements(false)
	if err != nil {
		return ast.Block{}, err
	}
	if _, err := p.expect(token.BlockEnd); err != nil {
		return ast.Block{}, err
	}
	return ast.Block{Statements: stmts}, nil
}

func (p *parser) skipToNewline() error {
	if p.at(token.Newline) {
		p.advance()
		return nil
	}
	if p.at(token.EOF) || p.at(token.BlockBegin) {
		return nil
	}
	return p.syntaxError("expected end of line, got %v", p.cur())
}

func (p *parser) parseStatement() (ast.Statement, error) {
	t := p.cur()
	if t.Kind == token.KindKeyword {
		switch t.Keyword {
		case token.If:
			return p.parseIf()
		case token.While:
			return p.parseWhile()
		case token.For:
			return p.parseFor()
		case token.Try:
			return p.parseTry()
		case token.Assert:
			return p.parseAssert()
		case token.Return:
			return p.parseReturn()
		case token.Break:
			p.advance()
			if err := p.skipToNewline(); err != nil {
				return nil, err
			}
			return &ast.Break{}, nil
		case token.Continue:
			p.advance()
			if err := p.skipToNewline(); err != nil {
				return nil, err
			}
			return &ast.Continue{}, nil
		case token.Pass:
			p.advance()
			if err := p.skipToNewline(); err != nil {
				return nil, err
			}
			return &ast.NoOp{}, nil
		case token.Def:
			return p.parseFunction("")
		case token.Class:
			return p.parseClass()
		}
	}
	return p.parseSimpleStatement()
}
