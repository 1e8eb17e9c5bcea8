package lower

import (
	"github.com/npylang/npyc/internal/ast"
	"github.com/npylang/npyc/internal/diag"
	"github.com/npylang/npyc/internal/ir"
	"github.com/npylang/npyc/internal/runtime"
	"github.com/npylang/npyc/internal/scope"
)

// renderCall implements spec.md §4.6's "Callables" section: a free
// function lowers to a function-pointer call, a class identifier
// lowers to alloc(+init), a builtin-method get-attr on a list/dict
// lowers to the matching runtime call, and `print` is special-cased.
func (c *Compiler) renderCall(expr *ast.Expression, r *rendered, op *ast.Operation, hint ir.StorageHint) (ir.StorageIdent, error) {
	if name, ok := bareCalleeName(expr, op); ok {
		if name == "print" {
			return c.renderPrint(expr, op)
		}
		if sym, ok := c.scopes.Get(name); ok && sym.Kind == scope.SymClass {
			return c.renderConstructorCall(expr, op, sym.Class, hint)
		}
	}

	if calleeOp, ok := calleeOperation(expr, op); ok && calleeOp.Kind == ast.OpGetAttr {
		objRef := calleeOp.Left
		obj, err := c.renderRef(expr, r, objRef, ir.StorageHint{})
		if err != nil {
			return ir.StorageIdent{}, err
		}
		switch obj.Type.Tag {
		case scope.List:
			return c.renderListMethodCall(expr, op, obj, calleeOp.Attr, hint)
		case scope.Dict:
			return c.renderDictMethodCall(expr, op, obj, calleeOp.Attr, hint)
		case scope.Object:
			return c.renderBoundMethodCall(expr, r, op, obj, calleeOp, hint)
		}
	}

	callee, err := c.renderRef(expr, r, op.Left, ir.StorageHint{})
	if err != nil {
		return ir.StorageIdent{}, err
	}
	if callee.Type.Tag != scope.Function {
		return ir.StorageIdent{}, c.typeError(op.Position(), "value is not callable")
	}
	args, err := c.marshalArgs(expr, op, callee.Type.Sig)
	if err != nil {
		return ir.StorageIdent{}, err
	}
	return c.store(ir.FunctionCall(callee, args, callee.Type.Sig.ReturnType), hint)
}

// bareCalleeName reports the identifier name of op's callee when it is
// a bare OperandName (not an attribute/subscript chain) — used to
// recognize `print(...)` and `ClassName(...)`.
func bareCalleeName(expr *ast.Expression, op *ast.Operation) (string, bool) {
	if !ast.IsOperandRef(op.Left) {
		return "", false
	}
	operand := expr.Operands[ast.RefIndex(op.Left)]
	if operand.Kind != ast.OperandName {
		return "", false
	}
	return operand.Name, true
}

// calleeOperation reports the Operation op's callee resolves to, when
// it is itself a prior operation result (e.g. "lst.append" before the
// call parens).
func calleeOperation(expr *ast.Expression, op *ast.Operation) (*ast.Operation, bool) {
	if !ast.IsOpRef(op.Left) {
		return nil, false
	}
	return &expr.Operations[ast.RefIndex(op.Left)], true
}

func (c *Compiler) argExpr(expr *ast.Expression, ref int) *ast.Expression {
	return expr.Operands[ast.RefIndex(ref)].Nested
}

// marshalArgs implements spec.md §4.6's argument marshalling: positional
// pass, then kwargs by name, then defaults for unfilled trailing slots —
// only for a named signature. A type-hint-only signature accepts exactly
// as many positionals as it has params.
func (c *Compiler) marshalArgs(expr *ast.Expression, op *ast.Operation, sig *scope.Signature) ([]ir.StorageIdent, error) {
	if !sig.NamedOnly() {
		if len(op.Args) != len(sig.Types) {
			return nil, c.typeError(op.Position(), "expected %d positional arguments, got %d", len(sig.Types), len(op.Args))
		}
		out := make([]ir.StorageIdent, len(op.Args))
		for i, ref := range op.Args {
			v, err := c.renderExpression(c.argExpr(expr, ref), ir.StorageHint{})
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	n := len(sig.Params)
	out := make([]ir.StorageIdent, n)
	filled := make([]bool, n)

	positional := 0
	for i, ref := range op.Args {
		if op.ArgNames[i] != "" {
			continue
		}
		if positional >= n {
			return nil, c.typeError(op.Position(), "too many positional arguments")
		}
		v, err := c.renderExpression(c.argExpr(expr, ref), ir.StorageHint{})
		if err != nil {
			return nil, err
		}
		out[positional] = v
		filled[positional] = true
		positional++
	}
	for i, ref := range op.Args {
		name := op.ArgNames[i]
		if name == "" {
			continue
		}
		slot := indexOf(sig.Params, name)
		if slot < 0 {
			return nil, c.typeError(op.Position(), "unknown keyword argument %q", name)
		}
		v, err := c.renderExpression(c.argExpr(expr, ref), ir.StorageHint{})
		if err != nil {
			return nil, err
		}
		out[slot] = v
		filled[slot] = true
	}
	start := sig.DefaultStartIndex()
	for i := 0; i < n; i++ {
		if filled[i] {
			continue
		}
		if i < start {
			return nil, c.typeError(op.Position(), "missing required argument %q", sig.Params[i])
		}
		defExpr := &sig.Defaults[i-start]
		v, err := c.renderExpression(defExpr, ir.StorageHint{Type: sig.Types[i]})
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func (c *Compiler) renderListMethodCall(expr *ast.Expression, op *ast.Operation, obj ir.StorageIdent, method string, hint ir.StorageHint) (ir.StorageIdent, error) {
	name, ok := builtinListMethods[method]
	if !ok {
		return ir.StorageIdent{}, c.nameError(op.Position(), "unknown list method %q", method)
	}
	args := []ir.StorageIdent{obj}
	for _, ref := range op.Args {
		v, err := c.renderExpression(c.argExpr(expr, ref), ir.StorageHint{})
		if err != nil {
			return ir.StorageIdent{}, err
		}
		args = append(args, v)
	}
	return c.store(ir.CCall(name, args, scope.T(scope.None)), hint)
}

func (c *Compiler) renderDictMethodCall(expr *ast.Expression, op *ast.Operation, obj ir.StorageIdent, method string, hint ir.StorageHint) (ir.StorageIdent, error) {
	switch method {
	case "keys":
		return c.store(ir.CCall(runtime.DictKeys, []ir.StorageIdent{obj}, scope.Composite(scope.Iter, obj.Type.Inner[0])), hint)
	case "get", "popitem":
		return ir.StorageIdent{}, c.unspecified(op.Position(), "dict.%s is not lowerable", method)
	default:
		return ir.StorageIdent{}, c.nameError(op.Position(), "unknown dict method %q", method)
	}
}

func (c *Compiler) renderBoundMethodCall(expr *ast.Expression, r *rendered, op *ast.Operation, obj ir.StorageIdent, getAttr *ast.Operation, hint ir.StorageHint) (ir.StorageIdent, error) {
	fn, ok := obj.Type.Class.Methods[getAttr.Attr]
	if !ok {
		return ir.StorageIdent{}, c.nameError(op.Position(), "class %s has no method %q", obj.Type.Class.Name, getAttr.Attr)
	}
	args, err := c.marshalArgs(expr, op, &fn.Sig)
	if err != nil {
		return ir.StorageIdent{}, err
	}
	callee := ir.StorageIdent{Kind: ir.StorageCStr, CStrName: fn.NSIdent, Type: scope.FunctionOf(&fn.Sig)}
	full := append([]ir.StorageIdent{obj}, args...)
	return c.store(ir.FunctionCall(callee, full, fn.Sig.ReturnType), hint)
}

// renderConstructorCall implements spec.md §4.6's class-as-callable
// lowering: alloc(sizeof(class)), then either set_attr per positional
// arg (no __init__) or alloc + apply-defaults + bound __init__ call.
func (c *Compiler) renderConstructorCall(expr *ast.Expression, op *ast.Operation, class *scope.ClassDef, hint ir.StorageHint) (ir.StorageIdent, error) {
	objType := scope.ObjectOf(class)
	dest := c.synthStorage(objType)
	sizeArg := ir.StorageIdent{Kind: ir.StorageCStr, CStrName: "sizeof(" + class.NSIdent + ")", Type: scope.T(scope.Int)}
	c.emit(ir.DeclAssignment(dest, ir.CCall(runtime.Alloc, []ir.StorageIdent{sizeArg}, objType)))

	if initFn, ok := class.Methods["__init__"]; ok {
		args, err := c.marshalArgs(expr, op, &initFn.Sig)
		if err != nil {
			return ir.StorageIdent{}, err
		}
		callee := ir.StorageIdent{Kind: ir.StorageCStr, CStrName: initFn.NSIdent, Type: scope.FunctionOf(&initFn.Sig)}
		full := append([]ir.StorageIdent{dest}, args...)
		c.emit(ir.Operation(ir.FunctionCall(callee, full, scope.T(scope.None))))
		return c.finishStore(dest, hint)
	}

	if len(op.Args) != len(class.Sig.Params) {
		return ir.StorageIdent{}, c.typeError(op.Position(), "%s expects %d member values, got %d", class.Name, len(class.Sig.Params), len(op.Args))
	}
	for i, ref := range op.Args {
		v, err := c.renderExpression(c.argExpr(expr, ref), ir.StorageHint{Type: class.Sig.Types[i]})
		if err != nil {
			return ir.StorageIdent{}, err
		}
		c.emit(ir.Operation(ir.SetAttr(dest, class.Sig.Params[i], v)))
	}
	return c.finishStore(dest, hint)
}

// finishStore copies a synthesized value into hint when one was
// supplied (constructor calls already emitted their own DeclAssign for
// dest, so a concrete hint still needs its own assignment).
func (c *Compiler) finishStore(v ir.StorageIdent, hint ir.StorageHint) (ir.StorageIdent, error) {
	if hint.IsNull() {
		return v, nil
	}
	c.emit(ir.Assignment(hint, ir.Copy(v)))
	out := hint
	out.Type = v.Type
	return out, nil
}

// renderPrint implements spec.md §4.6's print special-case: every
// argument is converted to a string (via __str__, a runtime
// int/float/bool converter, or passed through directly if already a
// string), then emitted as one CCall(np_print, [argc, ...strs]).
func (c *Compiler) renderPrint(expr *ast.Expression, op *ast.Operation) (ir.StorageIdent, error) {
	c.req.Strings = true
	args := []ir.StorageIdent{ir.IntLiteral(int64(len(op.Args)))}
	for _, ref := range op.Args {
		v, err := c.renderExpression(c.argExpr(expr, ref), ir.StorageHint{})
		if err != nil {
			return ir.StorageIdent{}, err
		}
		s, err := c.stringify(v, op.Position())
		if err != nil {
			return ir.StorageIdent{}, err
		}
		args = append(args, s)
	}
	c.emit(ir.Operation(ir.CCall(runtime.Print, args, scope.T(scope.None))))
	return ir.StorageIdent{}, nil
}

// stringify converts v to a String StorageIdent, routing through the
// class's __str__ method, a runtime numeric-to-string converter, or the
// class's default formatted representation.
func (c *Compiler) stringify(v ir.StorageIdent, pos diag.Pos) (ir.StorageIdent, error) {
	switch v.Type.Tag {
	case scope.String:
		return v, nil
	case scope.Int, scope.Unsigned:
		return c.store(ir.CCall1(runtime.IntToStr, v, scope.T(scope.String)), ir.StorageHint{})
	case scope.Float:
		return c.store(ir.CCall1(runtime.FloatToStr, v, scope.T(scope.String)), ir.StorageHint{})
	case scope.Bool:
		return c.store(ir.CCall1(runtime.BoolToStr, v, scope.T(scope.String)), ir.StorageHint{})
	case scope.Object:
		if fn, ok := v.Type.Class.Methods["__str__"]; ok {
			callee := ir.StorageIdent{Kind: ir.StorageCStr, CStrName: fn.NSIdent, Type: scope.FunctionOf(&fn.Sig)}
			return c.store(ir.FunctionCall(callee, []ir.StorageIdent{v}, scope.T(scope.String)), ir.StorageHint{})
		}
		return c.classDefaultFormat(v)
	default:
		return ir.StorageIdent{}, c.typeError(pos, "no string conversion for type %s", v.Type)
	}
}

// classDefaultFormat lazily builds and interns a class's default
// __str__ representation ("ClassName(member=...)") from its member
// signature, spec.md §3's ClassDef.FmtStr.
func (c *Compiler) classDefaultFormat(v ir.StorageIdent) (ir.StorageIdent, error) {
	class := v.Type.Class
	if !class.FmtStrSet {
		fmtstr := class.Name + "("
		for i, p := range class.Sig.Params {
			if i > 0 {
				fmtstr += ", "
			}
			fmtstr += p + "=%s"
		}
		fmtstr += ")"
		class.FmtStr = fmtstr
		class.FmtStrIndex = c.strings.Put(fmtstr)
		class.FmtStrSet = true
	}
	fmtIdent := ir.StringLiteral(class.FmtStrIndex)
	args := []ir.StorageIdent{fmtIdent}
	for _, p := range class.Sig.Params {
		memberType, _ := class.MemberType(p)
		member := c.synthStorage(memberType)
		c.emit(ir.DeclAssignment(member, ir.GetAttr(v, p, memberType)))
		s, err := c.stringify(member, diag.Pos{})
		if err != nil {
			return ir.StorageIdent{}, err
		}
		args = append(args, s)
	}
	return c.store(ir.CCall(runtime.StrFmt, args, scope.T(scope.String)), ir.StorageHint{})
}
