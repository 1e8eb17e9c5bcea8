package parser

import (
	"github.com/npylang/npyc/internal/ast"
	"github.com/npylang/npyc/internal/diag"
	"github.com/npylang/npyc/internal/token"
)

// exprBuilder accumulates an Expression's flat operand/operation arrays
// while the precedence-climbing parser below walks the token stream.
// Every parse* helper returns a ref — an encoded OperandRef/OpRef index
// into whichever array the result landed in — instead of a pointer,
// mirroring ast.Expression's own flat representation (spec.md §3). A
// sub-expression that must stand alone (a nested-parens operand, a list/
// call/tuple element) gets its own fresh exprBuilder so its ref encoding
// stays relative to its own arrays.
type exprBuilder struct {
	operands   []ast.Operand
	operations []ast.Operation
}

func (b *exprBuilder) addOperand(o ast.Operand) int {
	b.operands = append(b.operands, o)
	return ast.OperandRef(len(b.operands) - 1)
}

func (b *exprBuilder) addOp(o ast.Operation) int {
	b.operations = append(b.operations, o)
	return ast.OpRef(len(b.operations) - 1)
}

// addNested splices a standalone sub-expression (already fully parsed
// into its own builder via parseSubExpression) into this builder as an
// OperandNested operand, returning its ref. Used for call arguments,
// subscript indices, and parenthesized expressions — anywhere a
// complete Expression, not a single operand, must be addressable from
// this builder's flat arrays.
func (b *exprBuilder) addNested(e ast.Expression) int {
	return b.addOperand(ast.Operand{Kind: ast.OperandNested, Nested: &e})
}

// build returns the accumulated Expression. Its implied result is the
// last Operation if any were emitted, else Operands[0] — both
// internal/lower and the writer rely on this convention, which is
// always satisfied because every parse* helper below appends its final
// production last.
func (b *exprBuilder) build() ast.Expression {
	return ast.Expression{Operands: b.operands, Operations: b.operations}
}

// parseExpression parses one full expression into its own exprBuilder.
func (p *parser) parseExpression() (ast.Expression, error) {
	pos := p.cur().Pos
	b := &exprBuilder{}
	if _, err := p.parseBinary(b, 0); err != nil {
		return ast.Expression{}, err
	}
	e := b.build()
	e.Pos = pos
	return e, nil
}

// parseSubExpression parses one expression into a fresh builder, for
// use anywhere a sub-expression must remain independently addressable
// (list/tuple/dict elements, call arguments, nested-parens operands).
func (p *parser) parseSubExpression() (ast.Expression, error) {
	pos := p.cur().Pos
	b := &exprBuilder{}
	if _, err := p.parseBinary(b, 0); err != nil {
		return ast.Expression{}, err
	}
	e := b.build()
	e.Pos = pos
	return e, nil
}

// parseBinary implements precedence climbing over both punctuation
// operators (internal/token.Operator, via the numeric table) and the
// keyword-spelled operators (and/or/in/is), which original_source
// assigns precedences alongside the punctuation table.
func (p *parser) parseBinary(b *exprBuilder, minPrec uint) (int, error) {
	left, err := p.parseUnary(b)
	if err != nil {
		return 0, err
	}
	for {
		opText, prec, isKeyword, kw, ok := p.peekBinaryOp()
		if !ok || prec < minPrec {
			return left, nil
		}
		opPos := p.cur().Pos
		p.advance()
		if isKeyword && kw == token.Is && opText == "is not" {
			p.advance() // consume "not"
		}
		right, err := p.parseBinary(b, prec+1)
		if err != nil {
			return 0, err
		}
		idx := b.addOp(ast.Operation{Kind: ast.OpBinary, Operator: opText, Left: left, Right: right})
		b.operations[ast.RefIndex(idx)].Pos = opPos
		left = idx
	}
}

// peekBinaryOp reports the current token's binary-operator spelling and
// precedence, if it is one. "not in" is not recognized: a "not" after a
// left operand is not a binary operator, so it ends the expression.
func (p *parser) peekBinaryOp() (text string, prec uint, isKeyword bool, kw token.Keyword, ok bool) {
	t := p.cur()
	if t.Kind == token.KindOperator {
		if pr := token.Precedence(t.Operator); pr > 0 {
			return t.Text, pr, false, 0, true
		}
		return "", 0, false, 0, false
	}
	if t.Kind == token.KindKeyword {
		switch t.Keyword {
		case token.And:
			return "and", token.KeywordPrecedence(token.And), true, token.And, true
		case token.Or:
			return "or", token.KeywordPrecedence(token.Or), true, token.Or, true
		case token.In:
			return "in", token.KeywordPrecedence(token.In), true, token.In, true
		case token.Is:
			text := "is"
			if p.peekN(1).Kind == token.KindKeyword && p.peekN(1).Keyword == token.Not {
				text = "is not"
			}
			return text, token.KeywordPrecedence(token.Is), true, token.Is, true
		}
	}
	return "", 0, false, 0, false
}

func (p *parser) parseUnary(b *exprBuilder) (int, error) {
	t := p.cur()
	if t.Kind == token.KindOperator && (t.Operator == token.Minus || t.Operator == token.BitwiseNot) {
		pos := t.Pos
		p.advance()
		operand, err := p.parseUnary(b)
		if err != nil {
			return 0, err
		}
		spelling := "u-"
		if t.Operator == token.BitwiseNot {
			spelling = "u~"
		}
		idx := b.addOp(ast.Operation{Kind: ast.OpUnary, Operator: spelling, Left: operand})
		b.operations[ast.RefIndex(idx)].Pos = pos
		return idx, nil
	}
	if t.Kind == token.KindKeyword && t.Keyword == token.Not {
		pos := t.Pos
		p.advance()
		// "not" in operand position is always the unary boolean
		// negation; there is no "not in" operator.
		operand, err := p.parseUnary(b)
		if err != nil {
			return 0, err
		}
		idx := b.addOp(ast.Operation{Kind: ast.OpUnary, Operator: "u!", Left: operand})
		b.operations[ast.RefIndex(idx)].Pos = pos
		return idx, nil
	}
	return p.parsePostfix(b)
}

// parsePostfix parses a primary then any run of ".attr", "(args)", or
// "[index]" suffixes, spec.md's highest-precedence operator tier.
func (p *parser) parsePostfix(b *exprBuilder) (int, error) {
	left, err := p.parsePrimary(b)
	if err != nil {
		return 0, err
	}
	for {
		switch p.cur().Kind {
		case token.Dot:
			pos := p.cur().Pos
			p.advance()
			name, err := p.expect(token.Identifier)
			if err != nil {
				return 0, err
			}
			idx := b.addOp(ast.Operation{Kind: ast.OpGetAttr, Left: left, Attr: name.Text})
			b.operations[ast.RefIndex(idx)].Pos = pos
			left = idx
		case token.OpenParens:
			pos := p.cur().Pos
			p.advance()
			args, names, err := p.parseCallArgs(b)
			if err != nil {
				return 0, err
			}
			idx := b.addOp(ast.Operation{Kind: ast.OpCall, Left: left, Args: args, ArgNames: names})
			b.operations[ast.RefIndex(idx)].Pos = pos
			left = idx
		case token.OpenSquare:
			pos := p.cur().Pos
			p.advance()
			index, err := p.parseSubExpression()
			if err != nil {
				return 0, err
			}
			if _, err := p.expect(token.CloseSquare); err != nil {
				return 0, err
			}
			ref := b.addNested(index)
			idx := b.addOp(ast.Operation{Kind: ast.OpGetItem, Left: left, Right: ref})
			b.operations[ast.RefIndex(idx)].Pos = pos
			left = idx
		default:
			return left, nil
		}
	}
}

func (p *parser) parseCallArgs(b *exprBuilder) ([]int, []string, error) {
	var args []int
	var names []string
	first := true
	for !p.at(token.CloseParens) {
		if !first {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, nil, err
			}
			if p.at(token.CloseParens) {
				break
			}
		}
		first = false
		name := ""
		if p.at(token.Identifier) && p.peekN(1).Kind == token.KindOperator && p.peekN(1).Operator == token.Assignment {
			name = p.advance().Text
			p.advance() // "="
		}
		e, err := p.parseSubExpression()
		if err != nil {
			return nil, nil, err
		}
		args = append(args, b.addNested(e))
		names = append(names, name)
	}
	if _, err := p.expect(token.CloseParens); err != nil {
		return nil, nil, err
	}
	return args, names, nil
}

func (p *parser) parsePrimary(b *exprBuilder) (int, error) {
	t := p.cur()
	pos := t.Pos
	switch t.Kind {
	case token.Number:
		p.advance()
		return b.addOperand(posOperand(pos, ast.Operand{Kind: ast.OperandNumber, Number: t.Text})), nil
	case token.String:
		p.advance()
		return b.addOperand(posOperand(pos, ast.Operand{Kind: ast.OperandString, String: t.Text})), nil
	case token.Identifier:
		p.advance()
		return b.addOperand(posOperand(pos, ast.Operand{Kind: ast.OperandName, Name: t.Text})), nil
	case token.OpenParens:
		p.advance()
		return p.parseParenOrTuple(b, pos)
	case token.OpenSquare:
		p.advance()
		return p.parseListOrComprehension(b, pos)
	case token.OpenCurly:
		p.advance()
		return p.parseDict(b, pos)
	case token.KindKeyword:
		switch t.Keyword {
		case token.True:
			p.advance()
			return b.addOperand(posOperand(pos, ast.Operand{Kind: ast.OperandBool, Bool: true})), nil
		case token.False:
			p.advance()
			return b.addOperand(posOperand(pos, ast.Operand{Kind: ast.OperandBool, Bool: false})), nil
		case token.NoneKw:
			p.advance()
			return b.addOperand(posOperand(pos, ast.Operand{Kind: ast.OperandNone})), nil
		}
	}
	return 0, p.syntaxError("expected expression, got %v", t)
}

// posOperand stamps pos onto o via the promoted Pos field (Operand
// embeds an unexported base struct, so the field can't be named in a
// keyed literal from outside package ast, but the promoted field itself
// is assignable).
func posOperand(pos diag.Pos, o ast.Operand) ast.Operand {
	o.Pos = pos
	return o
}

func (p *parser) parseParenOrTuple(b *exprBuilder, pos diag.Pos) (int, error) {
	if p.at(token.CloseParens) {
		p.advance()
		return b.addOperand(posOperand(pos, ast.Operand{Kind: ast.OperandTuple})), nil
	}
	first, err := p.parseSubExpression()
	if err != nil {
		return 0, err
	}
	if p.at(token.Comma) {
		elems := []ast.Expression{first}
		for p.at(token.Comma) {
			p.advance()
			if p.at(token.CloseParens) {
				break
			}
			e, err := p.parseSubExpression()
			if err != nil {
				return 0, err
			}
			elems = append(elems, e)
		}
		if _, err := p.expect(token.CloseParens); err != nil {
			return 0, err
		}
		return b.addOperand(posOperand(pos, ast.Operand{Kind: ast.OperandTuple, Elements: elems})), nil
	}
	if _, err := p.expect(token.CloseParens); err != nil {
		return 0, err
	}
	return b.addOperand(posOperand(pos, ast.Operand{Kind: ast.OperandNested, Nested: &first})), nil
}

func (p *parser) parseListOrComprehension(b *exprBuilder, pos diag.Pos) (int, error) {
	if p.at(token.CloseSquare) {
		p.advance()
		return b.addOperand(posOperand(pos, ast.Operand{Kind: ast.OperandList})), nil
	}
	first, err := p.parseSubExpression()
	if err != nil {
		return 0, err
	}

	if p.atKeyword(token.For) {
		p.advance()
		names, err := p.parseTargetNames()
		if err != nil {
			return 0, err
		}
		if err := p.expectKeyword(token.In); err != nil {
			return 0, err
		}
		iterable, err := p.parseSubExpression()
		if err != nil {
			return 0, err
		}
		if _, err := p.expect(token.CloseSquare); err != nil {
			return 0, err
		}
		return b.addOperand(posOperand(pos, ast.Operand{
			Kind:     ast.OperandComprehension,
			Elements: []ast.Expression{first, iterable},
			Names:    names,
		})), nil
	}

	elems := []ast.Expression{first}
	for p.at(token.Comma) {
		p.advance()
		if p.at(token.CloseSquare) {
			break
		}
		e, err := p.parseSubExpression()
		if err != nil {
			return 0, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(token.CloseSquare); err != nil {
		return 0, err
	}
	return b.addOperand(posOperand(pos, ast.Operand{Kind: ast.OperandList, Elements: elems})), nil
}

func (p *parser) parseDict(b *exprBuilder, pos diag.Pos) (int, error) {
	if p.at(token.CloseCurly) {
		p.advance()
		return b.addOperand(posOperand(pos, ast.Operand{Kind: ast.OperandDict})), nil
	}
	var keys, vals []ast.Expression
	for {
		k, err := p.parseSubExpression()
		if err != nil {
			return 0, err
		}
		keys = append(keys, k)
		if _, err := p.expect(token.Colon); err != nil {
			return 0, err
		}
		v, err := p.parseSubExpression()
		if err != nil {
			return 0, err
		}
		vals = append(vals, v)
		if p.at(token.Comma) {
			p.advance()
			if p.at(token.CloseCurly) {
				break
			}
			continue
		}
		break
	}
	if _, err := p.expect(token.CloseCurly); err != nil {
		return 0, err
	}
	return b.addOperand(posOperand(pos, ast.Operand{Kind: ast.OperandDict, Keys: keys, Elements: vals})), nil
}
