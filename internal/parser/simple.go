package parser

import (
	"github.com/npylang/npyc/internal/ast"
	"github.com/npylang/npyc/internal/scope"
	"github.com/npylang/npyc/internal/token"
)

// parseSimpleStatement handles the statement kinds that don't start
// with a distinguishing keyword: bare annotation ("x: int"), bare
// annotation with initializer ("x: int = 1"), assignment/compound
// assignment, and expression statements (bare calls).
func (p *parser) parseSimpleStatement() (ast.Statement, error) {
	pos := p.cur().Pos

	if p.at(token.Identifier) && p.peekN(1).Kind == token.Colon {
		name := p.advance()
		p.advance() // colon
		typ, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		ann := &ast.Annotation{Name: name.Text, Type: typ}
		ann.Pos = pos
		if p.at(token.KindOperator) && p.cur().Operator == token.Assignment {
			p.advance()
			init, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			ann.HasInit = true
			ann.Init = init
		}
		if err := p.skipToNewline(); err != nil {
			return nil, err
		}
		v := &scope.Variable{Identifier: name.Text, Kind: scope.Regular}
		p.scopes.Top().Table.Put(scope.Symbol{Kind: scope.SymVariable, Var: v})
		return ann, nil
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.at(token.KindOperator) && token.IsAssignment(p.cur().Operator) {
		op := p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.skipToNewline(); err != nil {
			return nil, err
		}
		kind := ast.AssignPlain
		opText := ""
		if op.Operator != token.Assignment {
			kind = ast.AssignOp
			opText = op.Text
		}
		if kind == ast.AssignPlain {
			p.declareAssignmentTarget(expr)
		}
		s := &ast.Assignment{Target: expr, Kind: kind, Operator: opText, Value: value}
		s.Pos = pos
		return s, nil
	}

	if err := p.skipToNewline(); err != nil {
		return nil, err
	}
	s := &ast.Expr{Value: expr}
	s.Pos = pos
	return s, nil
}

// declareAssignmentTarget registers a bare-identifier plain-assignment
// target as a Regular Variable in the current scope, the way a `def`'s
// first pass over its body would find every name assigned anywhere in
// the function and treat it as local. Annotations already do this
// explicitly (see above); a plain "x = ..." with no prior annotation
// is the only other statement shape that introduces a new binding.
// Complex targets (attribute/subscript) name no new identifier here.
func (p *parser) declareAssignmentTarget(target ast.Expression) {
	if len(target.Operations) != 0 || len(target.Operands) != 1 {
		return
	}
	op := target.Operands[0]
	if op.Kind != ast.OperandName {
		return
	}
	tbl := p.scopes.Top().Table
	if _, ok := tbl.Get(op.Name); ok {
		return
	}
	tbl.Put(scope.Symbol{
		Kind: scope.SymVariable,
		Var:  &scope.Variable{Identifier: op.Name, Kind: scope.Regular},
	})
}
