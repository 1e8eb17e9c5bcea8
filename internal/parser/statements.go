package parser

import (
	"github.com/npylang/npyc/internal/ast"
	"github.com/npylang/npyc/internal/scope"
	"github.com/npylang/npyc/internal/token"
)

func (p *parser) parseIf() (ast.Statement, error) {
	pos := p.cur().Pos
	p.advance() // if
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	stmt := &ast.If{Condition: cond, Body: body}
	stmt.Pos = pos
	for p.atKeyword(token.Elif) {
		epos := p.cur().Pos
		p.advance()
		econd, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ebody, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		stmt.Elifs = append(stmt.Elifs, ast.ElifBranch{Pos: epos, Condition: econd, Body: ebody})
	}
	if p.atKeyword(token.Else) {
		p.advance()
		ebody, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		stmt.HasElse = true
		stmt.Else = ebody
	}
	return stmt, nil
}

func (p *parser) parseWhile() (ast.Statement, error) {
	pos := p.cur().Pos
	p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	s := &ast.While{Condition: cond, Body: body}
	s.Pos = pos
	return s, nil
}

func (p *parser) parseFor() (ast.Statement, error) {
	pos := p.cur().Pos
	p.advance() // for
	namesPos := p.cur().Pos
	names, err := p.parseTargetNames()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword(token.In); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	// The it-identifier(s) are not Put here: spec.md's "Semi-scoped
	// variable" is introduced fresh by internal/lower on each loop entry
	// (a new mangled name per entry), not a single parse-time binding.
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	s := &ast.For{
		Targets:  ast.ForTargets{Names: names, Pos: namesPos},
		Iterable: iterable,
		Body:     body,
	}
	s.Pos = pos
	return s, nil
}

func (p *parser) parseTargetNames() ([]string, error) {
	name, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	names := []string{name.Text}
	for p.at(token.Comma) {
		p.advance()
		n, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		names = append(names, n.Text)
	}
	return names, nil
}

func (p *parser) parseTry() (ast.Statement, error) {
	pos := p.cur().Pos
	p.advance() // try
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	s := &ast.Try{Body: body}
	s.Pos = pos
	for p.atKeyword(token.Except) {
		epos := p.cur().Pos
		p.advance()
		var classes []string
		if !p.at(token.Colon) {
			c, err := p.expect(token.Identifier)
			if err != nil {
				return nil, err
			}
			classes = append(classes, c.Text)
			for p.at(token.Comma) {
				p.advance()
				c, err := p.expect(token.Identifier)
				if err != nil {
					return nil, err
				}
				classes = append(classes, c.Text)
			}
		}
		clause := ast.ExceptClause{Pos: epos, Classes: classes}
		if p.atKeyword(token.As) {
			p.advance()
			name, err := p.expect(token.Identifier)
			if err != nil {
				return nil, err
			}
			clause.HasAs = true
			clause.AsName = name.Text
		}
		ebody, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		clause.Body = ebody
		s.Excepts = append(s.Excepts, clause)
	}
	if p.atKeyword(token.Finally) {
		p.advance()
		fbody, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		s.HasFinal = true
		s.Finally = fbody
	}
	return s, nil
}

func (p *parser) parseAssert() (ast.Statement, error) {
	pos := p.cur().Pos
	p.advance()
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.skipToNewline(); err != nil {
		return nil, err
	}
	s := &ast.Assert{Value: val}
	s.Pos = pos
	return s, nil
}

func (p *parser) parseReturn() (ast.Statement, error) {
	pos := p.cur().Pos
	p.advance()
	s := &ast.Return{}
	s.Pos = pos
	if p.at(token.Newline) || p.at(token.EOF) || p.at(token.BlockEnd) {
		if err := p.skipToNewline(); err != nil {
			return nil, err
		}
		return s, nil
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.skipToNewline(); err != nil {
		return nil, err
	}
	s.HasValue = true
	s.Value = val
	return s, nil
}

func (p *parser) parseTypeExpr() (ast.TypeExpr, error) {
	pos := p.cur().Pos
	name, err := p.expect(token.Identifier)
	if err != nil {
		return ast.TypeExpr{}, err
	}
	te := ast.TypeExpr{Pos: pos, Name: name.Text, Valid: true}
	if p.at(token.OpenSquare) {
		p.advance()
		for {
			inner, err := p.parseTypeExpr()
			if err != nil {
				return ast.TypeExpr{}, err
			}
			te.Params = append(te.Params, inner)
			if p.at(token.Comma) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(token.CloseSquare); err != nil {
			return ast.TypeExpr{}, err
		}
	}
	return te, nil
}

func (p *parser) parseFunction(selfParam string) (ast.Statement, error) {
	pos := p.cur().Pos
	p.advance() // def
	name, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.OpenParens); err != nil {
		return nil, err
	}
	fn := &ast.Function{Name: name.Text}
	fn.Pos = pos

	enclosing := &scope.FunctionDef{Name: name.Text}
	enclosingScope := p.scopes.Top()
	enclosingScope.Table.Put(scope.Symbol{Kind: scope.SymFunction, Func: enclosing})

	fnScope := scope.NewLexical(scope.Func, enclosingScope, enclosing)
	enclosing.Scope = fnScope
	p.scopes.Push(fnScope)
	// Left growable on purpose: nothing finalizes function scopes, since
	// plain assignments to new names (not just annotations) Put into this
	// table during parsing, and internal/lower Puts into it too (a
	// method's self binding, for-loop variables).
	defer p.scopes.Pop()

	first := true
	for !p.at(token.CloseParens) {
		if !first {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
			if p.at(token.CloseParens) {
				break
			}
		}
		first = false
		pname, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		param := ast.Param{Name: pname.Text}
		if len(fn.Params) == 0 && selfParam != "" && pname.Text == selfParam {
			fn.SelfParam = selfParam
		} else {
			if p.at(token.Colon) {
				p.advance()
				t, err := p.parseTypeExpr()
				if err != nil {
					return nil, err
				}
				param.Type = t
			}
			if p.at(token.KindOperator) && p.cur().Operator == token.Assignment {
				p.advance()
				def, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				param.HasDefault = true
				param.Default = def
			}
			fn.Params = append(fn.Params, param)
			v := &scope.Variable{Identifier: pname.Text, Kind: scope.Argument}
			fnScope.Table.Put(scope.Symbol{Kind: scope.SymVariable, Var: v})
		}
	}
	if _, err := p.expect(token.CloseParens); err != nil {
		return nil, err
	}
	if p.at(token.KindOperator) && p.cur().Text == "->" {
		p.advance()
		t, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		fn.ReturnType = t
		fn.HasReturn = true
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	enclosing.Body = body
	enclosing.SelfParam = fn.SelfParam
	return fn, nil
}

func (p *parser) parseClass() (ast.Statement, error) {
	pos := p.cur().Pos
	p.advance() // class
	name, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	cls := &ast.Class{Name: name.Text}
	cls.Pos = pos

	classDef := &scope.ClassDef{Name: name.Text, Methods: map[string]*scope.FunctionDef{}}
	enclosingScope := p.scopes.Top()
	enclosingScope.Table.Put(scope.Symbol{Kind: scope.SymClass, Class: classDef})

	classScope := scope.NewLexical(scope.Class, enclosingScope, nil)
	classDef.Scope = classScope
	p.scopes.Push(classScope)
	defer p.scopes.Pop()

	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	if err := p.skipToNewline(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.BlockBegin); err != nil {
		return nil, err
	}
	for !p.at(token.BlockEnd) {
		p.skipNewlines()
		if p.at(token.BlockEnd) {
			break
		}
		if p.atKeyword(token.Def) {
			fnStmt, err := p.parseFunction("self")
			if err != nil {
				return nil, err
			}
			fn := fnStmt.(*ast.Function)
			cls.Methods = append(cls.Methods, fn)
			if sym, ok := classScope.Table.Get(fn.Name); ok && sym.Kind == scope.SymFunction {
				classDef.Methods[fn.Name] = sym.Func
			}
			continue
		}
		if p.at(token.Identifier) && p.peekN(1).Kind == token.Colon {
			mname := p.advance()
			p.advance() // colon
			mtype, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			if err := p.skipToNewline(); err != nil {
				return nil, err
			}
			cls.Members = append(cls.Members, ast.Member{Name: mname.Text, Type: mtype})
			continue
		}
		return nil, p.syntaxError("expected method or member declaration in class body, got %v", p.cur())
	}
	if _, err := p.expect(token.BlockEnd); err != nil {
		return nil, err
	}
	return cls, nil
}
