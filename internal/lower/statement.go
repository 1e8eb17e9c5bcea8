package lower

import (
	"github.com/npylang/npyc/internal/ast"
	"github.com/npylang/npyc/internal/diag"
	"github.com/npylang/npyc/internal/ir"
	"github.com/npylang/npyc/internal/object"
	"github.com/npylang/npyc/internal/runtime"
	"github.com/npylang/npyc/internal/scope"
	"github.com/npylang/npyc/internal/types"
)

// lowerStatement dispatches on the statement's concrete Go type, spec.md
// §4.6's "Statement lowering" table.
func (c *Compiler) lowerStatement(stmt ast.Statement) error {
	c.curStmt = stmt.Position()
	switch s := stmt.(type) {
	case *ast.Annotation:
		return c.lowerAnnotation(s)
	case *ast.Assignment:
		return c.lowerAssignment(s)
	case *ast.Expr:
		_, err := c.renderExpression(&s.Value, ir.StorageHint{})
		return err
	case *ast.If:
		return c.lowerIf(s)
	case *ast.While:
		return c.lowerWhile(s)
	case *ast.For:
		return c.lowerFor(s)
	case *ast.Try:
		return c.lowerTry(s)
	case *ast.Assert:
		return c.lowerAssert(s)
	case *ast.Return:
		return c.lowerReturn(s)
	case *ast.Break:
		c.emit(ir.Break())
		return nil
	case *ast.Continue:
		c.emit(ir.Goto(c.currentLoopAfterLabel()))
		return nil
	case *ast.Function:
		return c.lowerFunctionStatement(s)
	case *ast.Class:
		return c.lowerClassStatement(s)
	case *ast.NoOp, *ast.Eof:
		return nil
	default:
		return c.typeError(stmt.Position(), "unhandled statement kind")
	}
}

func (c *Compiler) lowerBlock(b ast.Block) error {
	for _, stmt := range b.Statements {
		if err := c.lowerStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

// lowerAnnotation: ignored inside a class body (members are declared by
// class lowering); otherwise, if it carries an initializer, render it
// into the declared Variable.
func (c *Compiler) lowerAnnotation(s *ast.Annotation) error {
	if c.scopes.Top().Kind == scope.Class {
		return nil
	}
	v, err := c.resolveDeclaredVariable(s.Name, s.Type, s.Position())
	if err != nil {
		return err
	}
	if !s.HasInit {
		return nil
	}
	if _, err = c.renderExpression(&s.Init, ir.VarIdent(v)); err != nil {
		return err
	}
	return c.fixVariableType(v, ir.VarIdent(v).Type, s.Position())
}

// resolveDeclaredVariable looks up the Variable a name already bound in
// scope (the parser Put one for every annotation/plain-assignment
// target) and assigns it a mangled CompiledName the first time it's
// seen by lowering.
func (c *Compiler) resolveDeclaredVariable(name string, typeExpr ast.TypeExpr, pos diag.Pos) (*scope.Variable, error) {
	sym, ok := c.scopes.Get(name)
	if !ok || sym.Kind != scope.SymVariable && sym.Kind != scope.SymGlobal {
		return nil, c.nameError(pos, "undefined name %q", name)
	}
	v := sym.Var
	if v.CompiledName == "" {
		v.CompiledName = c.mangleVariable(name)
	}
	if typeExpr.Valid && v.Type.Tag == scope.Untyped {
		t, err := c.resolveTypeExpr(typeExpr, pos)
		if err != nil {
			return nil, err
		}
		v.Type = t
		c.emit(ir.DeclareVariable(v))
	}
	return v, nil
}

func (c *Compiler) mangleVariable(name string) string {
	c.synth++
	return name + "_" + itoa(c.synth)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// resolveTypeExpr resolves a syntactic TypeExpr against the scope stack
// (class names) into a concrete scope.TypeInfo.
func (c *Compiler) resolveTypeExpr(t ast.TypeExpr, pos diag.Pos) (scope.TypeInfo, error) {
	switch t.Name {
	case "int":
		return scope.T(scope.Int), nil
	case "unsigned":
		return scope.T(scope.Unsigned), nil
	case "float":
		return scope.T(scope.Float), nil
	case "bool":
		return scope.T(scope.Bool), nil
	case "str":
		return scope.T(scope.String), nil
	case "byte":
		return scope.T(scope.Byte), nil
	case "None":
		return scope.T(scope.None), nil
	case "list":
		if len(t.Params) != 1 {
			return scope.TypeInfo{}, c.typeError(pos, "list[] needs exactly one type parameter")
		}
		inner, err := c.resolveTypeExpr(t.Params[0], pos)
		if err != nil {
			return scope.TypeInfo{}, err
		}
		return scope.Composite(scope.List, inner), nil
	case "dict":
		if len(t.Params) != 2 {
			return scope.TypeInfo{}, c.typeError(pos, "dict[] needs exactly two type parameters")
		}
		k, err := c.resolveTypeExpr(t.Params[0], pos)
		if err != nil {
			return scope.TypeInfo{}, err
		}
		v, err := c.resolveTypeExpr(t.Params[1], pos)
		if err != nil {
			return scope.TypeInfo{}, err
		}
		return scope.Composite(scope.Dict, k, v), nil
	default:
		sym, ok := c.scopes.Get(t.Name)
		if !ok || sym.Kind != scope.SymClass {
			return scope.TypeInfo{}, c.nameError(pos, "unknown type %q", t.Name)
		}
		return scope.ObjectOf(sym.Class), nil
	}
}

// fixVariableType implements spec.md invariant 5: every Variable
// assigned more than once must carry a compatible type on every
// assignment; the first assignment fixes it.
func (c *Compiler) fixVariableType(v *scope.Variable, newType scope.TypeInfo, pos diag.Pos) error {
	if err := c.requireTyped(pos, newType, "assignment"); err != nil {
		return err
	}
	if v.Type.Tag == scope.Untyped {
		v.Type = newType
		return nil
	}
	if !v.Type.Equal(newType) {
		return c.typeError(pos, "cannot assign %s to variable of type %s", newType, v.Type)
	}
	return nil
}

// lowerAssignment implements spec.md §4.6's three assignment cases.
func (c *Compiler) lowerAssignment(s *ast.Assignment) error {
	if simpleName, ok := simpleIdentifierTarget(&s.Target); ok {
		return c.lowerSimpleAssignment(s, simpleName)
	}
	if s.Kind == ast.AssignOp {
		return c.lowerComplexOpAssignment(s)
	}
	return c.lowerComplexAssignment(s)
}

func simpleIdentifierTarget(e *ast.Expression) (string, bool) {
	if len(e.Operations) != 0 || len(e.Operands) != 1 {
		return "", false
	}
	if e.Operands[0].Kind != ast.OperandName {
		return "", false
	}
	return e.Operands[0].Name, true
}

// lowerSimpleAssignment: plain "x = v" or compound "x += v" to a bare
// identifier target.
func (c *Compiler) lowerSimpleAssignment(s *ast.Assignment, name string) error {
	sym, ok := c.scopes.Get(name)
	if !ok {
		return c.nameError(s.Position(), "undefined name %q", name)
	}
	v := sym.Var
	if v.CompiledName == "" {
		v.CompiledName = c.mangleVariable(name)
	}

	if s.Kind == ast.AssignPlain {
		firstAssignment := v.Type.Tag == scope.Untyped
		dest := ir.VarIdent(v)
		result, err := c.renderExpression(&s.Value, dest)
		if err != nil {
			return err
		}
		if firstAssignment {
			c.emit(ir.DeclareVariable(v))
		}
		return c.fixVariableType(v, result.Type, s.Position())
	}

	// Compound assignment: dispatch to the object's in-place method if
	// the variable is an Object, else emit an intrinsic with the
	// variable itself as destination.
	if v.Type.Tag == scope.Object {
		if fn, ok := object.FindInPlaceFunction(v.Type, s.Operator); ok {
			rhs, err := c.renderExpression(&s.Value, ir.StorageHint{})
			if err != nil {
				return err
			}
			callee := ir.StorageIdent{Kind: ir.StorageCStr, CStrName: fn.NSIdent, Type: scope.FunctionOf(&fn.Sig)}
			c.emit(ir.Assignment(ir.VarIdent(v), ir.FunctionCall(callee, []ir.StorageIdent{ir.VarIdent(v), rhs}, fn.Sig.ReturnType)))
			return nil
		}
		return c.typeError(s.Position(), "class %s has no %s", v.Type.Class.Name, s.Operator)
	}
	rhs, err := c.renderExpression(&s.Value, ir.StorageHint{})
	if err != nil {
		return err
	}
	baseOp := s.Operator[:len(s.Operator)-1]
	result := types.Resolve(v.Type, rhs.Type, types.Operator(baseOp))
	if err := c.requireTyped(s.Position(), result, "compound assignment "+s.Operator); err != nil {
		return err
	}
	inst := c.intrinsicOrRuntimeCall(baseOp, ir.VarIdent(v), rhs, result)
	c.emit(ir.Assignment(ir.VarIdent(v), inst))
	return nil
}

// lowerComplexAssignment handles a plain "=" assignment whose target has
// operations: get_item (runtime set_item call) or get_attr on an Object
// (SetAttr with member-type checking).
func (c *Compiler) lowerComplexAssignment(s *ast.Assignment) error {
	last := &s.Target.Operations[len(s.Target.Operations)-1]
	switch last.Kind {
	case ast.OpGetItem:
		return c.lowerSetItem(s, last)
	case ast.OpGetAttr:
		return c.lowerSetAttr(s, last)
	default:
		return c.typeError(s.Position(), "invalid assignment target")
	}
}

func (c *Compiler) lowerSetItem(s *ast.Assignment, last *ast.Operation) error {
	r := newRendered()
	obj, err := c.renderRef(&s.Target, r, last.Left, ir.StorageHint{})
	if err != nil {
		return err
	}
	key, err := c.renderRef(&s.Target, r, last.Right, ir.StorageHint{})
	if err != nil {
		return err
	}
	switch obj.Type.Tag {
	case scope.List, scope.Dict:
	default:
		return c.typeError(s.Position(), "type %s does not support item assignment", obj.Type)
	}
	val, err := c.renderExpression(&s.Value, ir.StorageHint{})
	if err != nil {
		return err
	}
	switch obj.Type.Tag {
	case scope.List:
		c.emit(ir.Operation(ir.CCall(runtime.ListSetItem, []ir.StorageIdent{obj, key, val}, scope.T(scope.None))))
	case scope.Dict:
		c.emit(ir.Operation(ir.CCall(runtime.DictSetItem, []ir.StorageIdent{obj, key, val}, scope.T(scope.None))))
	}
	return nil
}

func (c *Compiler) lowerSetAttr(s *ast.Assignment, last *ast.Operation) error {
	r := newRendered()
	obj, err := c.renderRef(&s.Target, r, last.Left, ir.StorageHint{})
	if err != nil {
		return err
	}
	if obj.Type.Tag != scope.Object {
		return c.typeError(s.Position(), "setattr on a non-object")
	}
	memberType, ok := obj.Type.Class.MemberType(last.Attr)
	if !ok {
		return c.nameError(s.Position(), "class %s has no member %q", obj.Type.Class.Name, last.Attr)
	}
	val, err := c.renderExpression(&s.Value, ir.StorageHint{Type: memberType})
	if err != nil {
		return err
	}
	if !val.Type.Equal(memberType) {
		return c.typeError(s.Position(), "cannot assign %s to member %s of type %s", val.Type, last.Attr, memberType)
	}
	c.emit(ir.Operation(ir.SetAttr(obj, last.Attr, val)))
	return nil
}

// lowerComplexOpAssignment: op-assignment on a complex target is a
// read-modify-write: render all but the last operation to get the
// container/object, evaluate the current value, combine, store back.
func (c *Compiler) lowerComplexOpAssignment(s *ast.Assignment) error {
	last := &s.Target.Operations[len(s.Target.Operations)-1]
	switch last.Kind {
	case ast.OpGetItem:
		r := newRendered()
		obj, err := c.renderRef(&s.Target, r, last.Left, ir.StorageHint{})
		if err != nil {
			return err
		}
		key, err := c.renderRef(&s.Target, r, last.Right, ir.StorageHint{})
		if err != nil {
			return err
		}
		var cur ir.StorageIdent
		switch obj.Type.Tag {
		case scope.List:
			cur, err = c.store(ir.CCall(runtime.ListGetItem, []ir.StorageIdent{obj, key}, obj.Type.Inner[0]), ir.StorageHint{})
		case scope.Dict:
			cur, err = c.store(ir.CCall(runtime.DictGetItem, []ir.StorageIdent{obj, key}, obj.Type.Inner[1]), ir.StorageHint{})
		default:
			return c.typeError(s.Position(), "type %s does not support item assignment", obj.Type)
		}
		if err != nil {
			return err
		}
		rhs, err := c.renderExpression(&s.Value, ir.StorageHint{})
		if err != nil {
			return err
		}
		baseOp := s.Operator[:len(s.Operator)-1]
		result := types.Resolve(cur.Type, rhs.Type, types.Operator(baseOp))
		if err := c.requireTyped(s.Position(), result, "compound assignment "+s.Operator); err != nil {
			return err
		}
		combined, err := c.store(c.intrinsicOrRuntimeCall(baseOp, cur, rhs, result), ir.StorageHint{})
		if err != nil {
			return err
		}
		switch obj.Type.Tag {
		case scope.List:
			c.emit(ir.Operation(ir.CCall(runtime.ListSetItem, []ir.StorageIdent{obj, key, combined}, scope.T(scope.None))))
		case scope.Dict:
			c.emit(ir.Operation(ir.CCall(runtime.DictSetItem, []ir.StorageIdent{obj, key, combined}, scope.T(scope.None))))
		}
		return nil
	case ast.OpGetAttr:
		r := newRendered()
		obj, err := c.renderRef(&s.Target, r, last.Left, ir.StorageHint{})
		if err != nil {
			return err
		}
		if obj.Type.Tag != scope.Object {
			return c.typeError(s.Position(), "setattr on a non-object")
		}
		memberType, ok := obj.Type.Class.MemberType(last.Attr)
		if !ok {
			return c.nameError(s.Position(), "class %s has no member %q", obj.Type.Class.Name, last.Attr)
		}
		cur, err := c.store(ir.GetAttr(obj, last.Attr, memberType), ir.StorageHint{})
		if err != nil {
			return err
		}
		rhs, err := c.renderExpression(&s.Value, ir.StorageHint{})
		if err != nil {
			return err
		}
		baseOp := s.Operator[:len(s.Operator)-1]
		result := types.Resolve(cur.Type, rhs.Type, types.Operator(baseOp))
		if err := c.requireTyped(s.Position(), result, "compound assignment "+s.Operator); err != nil {
			return err
		}
		combined, err := c.store(c.intrinsicOrRuntimeCall(baseOp, cur, rhs, result), ir.StorageHint{})
		if err != nil {
			return err
		}
		c.emit(ir.Operation(ir.SetAttr(obj, last.Attr, combined)))
		return nil
	default:
		return c.typeError(s.Position(), "invalid compound-assignment target")
	}
}

// lowerReturn renders the value with the enclosing function's declared
// return type as hint; the should-free-closure flag is true iff the
// current scope is a ClosureParent.
func (c *Compiler) lowerReturn(s *ast.Return) error {
	fn := c.scopes.EnclosingFunction()
	shouldFreeClosure := c.scopes.Top().Kind == scope.ClosureParent
	if !s.HasValue {
		c.emit(closureAwareReturn(nil, shouldFreeClosure))
		return nil
	}
	var hint ir.StorageHint
	if fn != nil {
		hint = ir.StorageHint{Type: fn.Sig.ReturnType}
	}
	v, err := c.renderExpression(&s.Value, hint)
	if err != nil {
		return err
	}
	c.emit(closureAwareReturn(&v, shouldFreeClosure))
	return nil
}

func closureAwareReturn(v *ir.StorageIdent, freeClosure bool) ir.Instruction {
	if v == nil {
		i := ir.Return()
		i.ShouldFreeClosure = freeClosure
		return i
	}
	i := ir.ReturnValue(*v)
	i.ShouldFreeClosure = freeClosure
	return i
}

// lowerIf emits one If per branch: the condition plus then-body, with a
// chained Else carrying elif/else per spec.md §4.6.
func (c *Compiler) lowerIf(s *ast.If) error {
	elseSeq, err := c.lowerElseChain(s.Elifs, s.HasElse, s.Else)
	if err != nil {
		return err
	}
	cond, condSeq, err := c.lowerCondition(&s.Condition)
	if err != nil {
		return err
	}
	body, err := c.withSeq(func() error { return c.lowerBlock(s.Body) })
	if err != nil {
		return err
	}
	if elseSeq == nil {
		c.emit(ir.If(condSeq, cond, body))
	} else {
		c.emit(ir.IfElse(condSeq, cond, body, *elseSeq))
	}
	return nil
}

// lowerElseChain builds the Else-branch InstructionSequence out of a
// chain of elifs followed by an optional else, recursively nesting each
// elif as an If inside the prior branch's Else.
func (c *Compiler) lowerElseChain(elifs []ast.ElifBranch, hasElse bool, elseBlock ast.Block) (*ir.InstructionSequence, error) {
	if len(elifs) == 0 {
		if !hasElse {
			return nil, nil
		}
		seq, err := c.withSeq(func() error { return c.lowerBlock(elseBlock) })
		if err != nil {
			return nil, err
		}
		return &seq, nil
	}
	head := elifs[0]
	rest, err := c.lowerElseChain(elifs[1:], hasElse, elseBlock)
	if err != nil {
		return nil, err
	}
	seq, err := c.withSeq(func() error {
		cond, condSeq, err := c.lowerCondition(&head.Condition)
		if err != nil {
			return err
		}
		body, err := c.withSeq(func() error { return c.lowerBlock(head.Body) })
		if err != nil {
			return err
		}
		if rest == nil {
			c.emit(ir.If(condSeq, cond, body))
		} else {
			c.emit(ir.IfElse(condSeq, cond, body, *rest))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &seq, nil
}

// lowerCondition renders a boolean condition expression into its own
// instruction sequence, returning the final StorageIdent the writer
// branches on.
func (c *Compiler) lowerCondition(cond *ast.Expression) (ir.StorageIdent, ir.InstructionSequence, error) {
	var result ir.StorageIdent
	seq, err := c.withSeq(func() error {
		v, err := c.renderExpression(cond, ir.StorageHint{})
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, seq, err
}

// withSeq is a convenience wrapper over withSequence for callers that
// don't need the error from fn threaded separately.
func (c *Compiler) withSeq(fn func() error) (ir.InstructionSequence, error) {
	return c.withSequence(fn)
}

// lowerWhile emits a Loop carrying the condition's instruction sequence
// and the Bool it produces; the writer tests that Bool as the C while
// condition and re-runs the sequence at the end of each iteration.
func (c *Compiler) lowerWhile(s *ast.While) error {
	afterLabel := c.synthLabel("while_after")
	c.pushLoop(afterLabel)
	defer c.popLoop()

	cond, condSeq, err := c.lowerCondition(&s.Condition)
	if err != nil {
		return err
	}
	body, err := c.withSeq(func() error {
		if err := c.lowerBlock(s.Body); err != nil {
			return err
		}
		c.emit(ir.Label(afterLabel))
		return nil
	})
	if err != nil {
		return err
	}
	c.emit(ir.Loop(condSeq, cond, body))
	return nil
}

// lowerFor desugars list/dict/iter iteration into init/before/body/after
// sub-sequences per spec.md §4.6, then emits one Loop.
func (c *Compiler) lowerFor(s *ast.For) error {
	iterable, err := c.renderExpression(&s.Iterable, ir.StorageHint{})
	if err != nil {
		return err
	}

	var iterExpr ir.StorageIdent
	var elemType scope.TypeInfo
	switch iterable.Type.Tag {
	case scope.List:
		elemType = iterable.Type.Inner[0]
		iterExpr, err = c.store(ir.CCall(runtime.ListIter, []ir.StorageIdent{iterable}, scope.Composite(scope.Iter, elemType)), ir.StorageHint{})
	case scope.Dict:
		if len(s.Targets.Names) == 2 {
			elemType = scope.Composite(scope.DictItems, iterable.Type.Inner[0], iterable.Type.Inner[1])
		} else {
			elemType = iterable.Type.Inner[0]
		}
		iterExpr, err = c.store(ir.CCall(runtime.DictKeys, []ir.StorageIdent{iterable}, scope.Composite(scope.Iter, elemType)), ir.StorageHint{})
	case scope.Iter:
		elemType = iterable.Type.Inner[0]
		iterExpr, err = c.store(ir.Copy(iterable), ir.StorageHint{})
	default:
		return c.typeError(s.Position(), "type %s is not iterable", iterable.Type)
	}
	if err != nil {
		return err
	}

	if len(s.Targets.Names) > 1 && elemType.Tag != scope.DictItems {
		return c.syntaxErrorFor(s.Targets.Pos, "unpacking two it-identifiers requires a DictItems iterable")
	}

	afterLabel := c.synthLabel("for_after")
	c.pushLoop(afterLabel)
	defer c.popLoop()

	vars := make([]*scope.Variable, len(s.Targets.Names))
	for i, name := range s.Targets.Names {
		vt := elemType
		if elemType.Tag == scope.DictItems {
			vt = elemType.Inner[i]
		}
		v := &scope.Variable{Identifier: name, Kind: scope.SemiScoped, Type: vt, DirectlyInScope: true, CompiledName: c.mangleVariable(name)}
		c.scopes.Top().Table.Put(scope.Symbol{Kind: scope.SymVariable, Var: v})
		vars[i] = v
	}

	before, err := c.withSeq(func() error {
		target := ir.VarIdent(vars[0])
		if len(vars) > 1 {
			target = ir.StorageIdent{Kind: ir.StorageCStr, CStrName: vars[0].CompiledName + "_item", Type: elemType}
		}
		hasNext := c.synthStorage(scope.T(scope.Bool))
		c.emit(ir.IterNext(iterExpr, target, hasNext))
		for _, v := range vars {
			c.emit(ir.DeclareVariable(v))
		}
		if len(vars) > 1 {
			c.emit(ir.Assignment(ir.VarIdent(vars[0]), ir.GetAttr(target, "key", vars[0].Type)))
			c.emit(ir.Assignment(ir.VarIdent(vars[1]), ir.GetAttr(target, "value", vars[1].Type)))
		}
		ifBody, err := c.withSeq(func() error { c.emit(ir.Break()); return nil })
		if err != nil {
			return err
		}
		notHasNext, err := c.store(ir.IntrinsicUnary("!", hasNext, scope.T(scope.Bool)), ir.StorageHint{})
		if err != nil {
			return err
		}
		c.emit(ir.If(ir.InstructionSequence{}, notHasNext, ifBody))
		return nil
	})
	if err != nil {
		return err
	}

	body, err := c.withSeq(func() error {
		if err := c.lowerBlock(s.Body); err != nil {
			return err
		}
		c.emit(ir.Label(afterLabel))
		return nil
	})
	if err != nil {
		return err
	}

	full := ir.InstructionSequence{}
	full.Items = append(full.Items, before.Items...)
	full.Items = append(full.Items, body.Items...)
	c.emit(ir.Loop(ir.InstructionSequence{}, ir.StorageIdent{}, full))
	return nil
}

func (c *Compiler) syntaxErrorFor(pos diag.Pos, format string, args ...interface{}) error {
	return diag.New(diag.KindSyntax, pos, nil, format, args...)
}

// lowerTry implements spec.md §4.6's bitmask-based try/except/finally:
// save the old current_excepts bitmask, set a new one (OR of every
// except block's classes), check global_exception after each try-body
// statement, fall through to finally when none was raised, dispatch to
// the first matching except block (each testing only its own classes
// and jumping straight to finally once it has run), then restore the
// old bitmask after finally. Grounded on
// original_source/src/compiler.c's compile_try (save/restore at
// compiler.c:4016-4077,4230-4245; the negated fallthrough guard at
// :4085-4108; the per-block mask + post-handler goto at :4198-4220).
func (c *Compiler) lowerTry(s *ast.Try) error {
	finallyLabel := c.synthLabel("finally")
	exceptsLabel := c.synthLabel("excepts")
	c.pushExcepts(exceptsLabel)

	blockBits := make([][]string, len(s.Excepts))
	var allBits []string
	for i, ex := range s.Excepts {
		for _, cls := range ex.Classes {
			bit, ok := exceptionBit(cls)
			if !ok {
				return c.nameError(s.Position(), "unknown exception class %q", cls)
			}
			blockBits[i] = append(blockBits[i], bit)
			allBits = append(allBits, bit)
		}
		if ex.HasAs {
			return c.unspecified(s.Position(), "except %s as %s: is not lowerable", ex.Classes, ex.AsName)
		}
	}
	c.req.Exceptions = true

	unsignedT := scope.T(scope.Unsigned)
	currentExcepts := ir.CStr(runtime.GlobalCurrentExcepts, unsignedT)
	exc := ir.StorageIdent{Kind: ir.StorageCStr, CStrName: runtime.GlobalException, Type: scope.T(scope.Exception)}

	var oldExcepts ir.StorageIdent
	setup, err := c.withSeq(func() error {
		oldExcepts = c.synthStorage(unsignedT)
		c.emit(ir.DeclAssignment(oldExcepts, ir.Copy(currentExcepts)))
		c.emit(ir.Assignment(currentExcepts, ir.Copy(ir.CStr(bitmaskLiteral(allBits), unsignedT))))
		return nil
	})
	if err != nil {
		return err
	}

	tryBody, err := c.withSeq(func() error {
		for _, stmt := range s.Body.Statements {
			if err := c.lowerStatement(stmt); err != nil {
				return err
			}
			checkBody, err := c.withSeq(func() error { c.emit(ir.Goto(exceptsLabel)); return nil })
			if err != nil {
				return err
			}
			c.emit(ir.If(ir.InstructionSequence{}, exc, checkBody))
		}
		noExcBody, err := c.withSeq(func() error { c.emit(ir.Goto(finallyLabel)); return nil })
		if err != nil {
			return err
		}
		notExc, err := c.store(ir.IntrinsicUnary("!", exc, scope.T(scope.Bool)), ir.StorageHint{})
		if err != nil {
			return err
		}
		c.emit(ir.If(ir.InstructionSequence{}, notExc, noExcBody))
		return nil
	})
	c.popExcepts()
	if err != nil {
		return err
	}

	dispatcher, err := c.withSeq(func() error {
		c.emit(ir.Label(exceptsLabel))
		excVal, err := c.store(ir.CCall(runtime.GetException, nil, scope.T(scope.Exception)), ir.StorageHint{})
		if err != nil {
			return err
		}
		for i, ex := range s.Excepts {
			handler, err := c.withSeq(func() error {
				if err := c.lowerBlock(ex.Body); err != nil {
					return err
				}
				c.emit(ir.Goto(finallyLabel))
				return nil
			})
			if err != nil {
				return err
			}
			cond := ir.StorageIdent{Kind: ir.StorageCStr, CStrName: exceptionMaskTest(excVal.CStrName, blockBits[i]), Type: scope.T(scope.Bool)}
			c.emit(ir.If(ir.InstructionSequence{}, cond, handler))
		}
		return nil
	})
	if err != nil {
		return err
	}

	finallyBody, err := c.withSeq(func() error {
		c.emit(ir.Label(finallyLabel))
		if s.HasFinal {
			if err := c.lowerBlock(s.Finally); err != nil {
				return err
			}
		}
		c.emit(ir.Assignment(currentExcepts, ir.Copy(oldExcepts)))
		return nil
	})
	if err != nil {
		return err
	}

	full := ir.InstructionSequence{}
	full.Items = append(full.Items, setup.Items...)
	full.Items = append(full.Items, tryBody.Items...)
	full.Items = append(full.Items, dispatcher.Items...)
	full.Items = append(full.Items, finallyBody.Items...)
	for _, i := range full.Items {
		c.emit(i)
	}
	return nil
}

// bitmaskLiteral renders a set of exception-bit C constant names as one
// OR'd C expression, "0" for an empty set.
func bitmaskLiteral(bits []string) string {
	if len(bits) == 0 {
		return "0"
	}
	out := bits[0]
	for _, b := range bits[1:] {
		out += " | " + b
	}
	return out
}

func exceptionMaskTest(excName string, bits []string) string {
	out := excName + ".type & ("
	for i, b := range bits {
		if i > 0 {
			out += " | "
		}
		out += b
	}
	out += ")"
	return out
}

func exceptionBit(class string) (string, bool) {
	switch class {
	case "MemoryError":
		return runtime.ExcMemoryError, true
	case "IndexError":
		return runtime.ExcIndexError, true
	case "KeyError":
		return runtime.ExcKeyError, true
	case "ValueError":
		return runtime.ExcValueError, true
	case "AssertionError":
		return runtime.ExcAssertionError, true
	default:
		return "", false
	}
}

// lowerAssert: if the value is falsy, emit a runtime assertion_error(line) call.
func (c *Compiler) lowerAssert(s *ast.Assert) error {
	c.req.Exceptions = true
	var cond, notCond ir.StorageIdent
	condSeq, err := c.withSeq(func() error {
		v, err := c.renderExpression(&s.Value, ir.StorageHint{})
		if err != nil {
			return err
		}
		cond = v
		notCond, err = c.store(ir.IntrinsicUnary("!", cond, scope.T(scope.Bool)), ir.StorageHint{})
		return err
	})
	if err != nil {
		return err
	}
	body, err := c.withSeq(func() error {
		lineArg := ir.IntLiteral(int64(s.Position().Line))
		c.emit(ir.Operation(ir.CCall1(runtime.AssertionError, lineArg, scope.T(scope.None))))
		return nil
	})
	if err != nil {
		return err
	}
	c.emit(ir.If(condSeq, notCond, body))
	return nil
}
