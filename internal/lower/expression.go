package lower

import (
	"strconv"

	"github.com/npylang/npyc/internal/ast"
	"github.com/npylang/npyc/internal/ir"
	"github.com/npylang/npyc/internal/object"
	"github.com/npylang/npyc/internal/runtime"
	"github.com/npylang/npyc/internal/scope"
	"github.com/npylang/npyc/internal/types"
)

// rendered remembers, within one call to renderExpression, the
// StorageIdent a given operand/operation index has already produced —
// spec.md §4.6's "a per-operand record of previously-rendered
// sub-results so shared subexpressions within one expression collapse
// to one store".
type rendered struct {
	operands   map[int]ir.StorageIdent
	operations map[int]ir.StorageIdent
}

func newRendered() *rendered {
	return &rendered{operands: map[int]ir.StorageIdent{}, operations: map[int]ir.StorageIdent{}}
}

// renderExpression implements spec.md §4.6's render_expression(hint,
// expr) -> StorageIdent. hint.IsNull() asks for a synthesized
// destination (emits DeclAssign); a concrete hint emits Assign.
func (c *Compiler) renderExpression(expr *ast.Expression, hint ir.StorageHint) (ir.StorageIdent, error) {
	r := newRendered()
	if len(expr.Operations) == 0 {
		if len(expr.Operands) == 0 {
			return ir.StorageIdent{}, nil
		}
		return c.renderOperandRef(expr, r, ast.OperandRef(0), hint)
	}
	last := len(expr.Operations) - 1
	return c.renderOpRef(expr, r, ast.OpRef(last), hint)
}

// renderRef dispatches a ref (operand or operation index encoding, see
// ast.OperandRef/OpRef) to the appropriate renderer, memoizing results
// in r so a repeated ref within one expression renders once.
func (c *Compiler) renderRef(expr *ast.Expression, r *rendered, ref int, hint ir.StorageHint) (ir.StorageIdent, error) {
	if ast.IsOperandRef(ref) {
		return c.renderOperandRef(expr, r, ref, hint)
	}
	return c.renderOpRef(expr, r, ref, hint)
}

func (c *Compiler) renderOperandRef(expr *ast.Expression, r *rendered, ref int, hint ir.StorageHint) (ir.StorageIdent, error) {
	idx := ast.RefIndex(ref)
	v, ok := r.operands[idx]
	if !ok {
		var err error
		v, err = c.renderOperand(&expr.Operands[idx], hint)
		if err != nil {
			return ir.StorageIdent{}, err
		}
		r.operands[idx] = v
	}
	return c.applyHint(v, hint)
}

// applyHint implements the "a concrete hint ⇒ Assign" half of spec.md
// §4.6's StorageHint contract for bare-operand expressions (a plain
// identifier, literal, or parenthesized sub-expression used directly as
// a statement's value): renderOperand returns the operand's natural
// StorageIdent with no destination of its own, so when the caller
// supplied a concrete hint this copies the value into it. A no-op when
// the operand already targets hint's storage (list/dict literals and
// nested expressions render straight into a non-null hint themselves).
func (c *Compiler) applyHint(v ir.StorageIdent, hint ir.StorageHint) (ir.StorageIdent, error) {
	if hint.IsNull() || sameStorage(v, hint) {
		return v, nil
	}
	if err := c.requireTyped(c.curOp, v.Type, "expression"); err != nil {
		return ir.StorageIdent{}, err
	}
	c.emit(ir.Assignment(hint, ir.Copy(v)))
	out := hint
	out.Type = v.Type
	return out, nil
}

// sameStorage reports whether two StorageIdents name the same
// destination (so applyHint can skip an unnecessary self-copy).
func sameStorage(a, b ir.StorageIdent) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ir.StorageVar:
		return a.Var == b.Var
	case ir.StorageCStr:
		return a.CStrName == b.CStrName
	default:
		return false
	}
}

func (c *Compiler) renderOpRef(expr *ast.Expression, r *rendered, ref int, hint ir.StorageHint) (ir.StorageIdent, error) {
	idx := ast.RefIndex(ref)
	if v, ok := r.operations[idx]; ok {
		return v, nil
	}
	op := &expr.Operations[idx]
	c.curOp = op.Position()
	v, err := c.renderOperation(expr, r, op, hint)
	if err != nil {
		return ir.StorageIdent{}, err
	}
	r.operations[idx] = v
	return v, nil
}

// renderOperand implements spec.md §4.4's "Operand resolution for leaf
// tokens" for the cases render_expression needs directly; composite
// literals (list/dict) and nested sub-expressions recurse.
func (c *Compiler) renderOperand(o *ast.Operand, hint ir.StorageHint) (ir.StorageIdent, error) {
	switch o.Kind {
	case ast.OperandNumber:
		t := types.ResolveNumberLiteral(o.Number)
		if t.Tag == scope.Float {
			f, _ := strconv.ParseFloat(stripFloatSuffix(o.Number), 64)
			return ir.FloatLiteral(f), nil
		}
		n, _ := strconv.ParseInt(o.Number, 10, 64)
		return ir.IntLiteral(n), nil
	case ast.OperandString:
		return c.internString(o.String), nil
	case ast.OperandBool:
		return ir.StorageIdent{Kind: ir.StorageIntLiteral, IntValue: boolToInt(o.Bool), Type: scope.T(scope.Bool)}, nil
	case ast.OperandNone:
		return ir.StorageIdent{Kind: ir.StorageCStr, CStrName: "NULL", Type: scope.T(scope.None)}, nil
	case ast.OperandName:
		return c.renderName(o)
	case ast.OperandNested:
		return c.renderExpression(o.Nested, hint)
	case ast.OperandList:
		return c.renderListLiteral(o, hint)
	case ast.OperandDict:
		return c.renderDictLiteral(o, hint)
	case ast.OperandTuple:
		return ir.StorageIdent{}, c.unspecified(o.Position(), "tuple literals are not lowerable")
	case ast.OperandSlice:
		return ir.StorageIdent{}, c.unspecified(o.Position(), "slice expressions are not lowerable")
	case ast.OperandComprehension:
		return ir.StorageIdent{}, c.unspecified(o.Position(), "comprehensions are not lowerable")
	default:
		return ir.StorageIdent{}, c.typeError(o.Position(), "unexpected bare operand kind")
	}
}

func stripFloatSuffix(lexeme string) string {
	if len(lexeme) > 0 && (lexeme[len(lexeme)-1] == 'f' || lexeme[len(lexeme)-1] == 'F') {
		return lexeme[:len(lexeme)-1]
	}
	return lexeme
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// renderName resolves an identifier against the scope stack. If it is
// unbound, that's a NameError (spec.md invariant 2): every identifier
// referenced in lowered code must resolve to exactly one Symbol.
//
// The walk also detects closures: if the match is found in a
// ClosureParent scope after the walk has already passed through an
// inner ClosureChild scope, the binding is a captured variable rather
// than a directly addressable local (spec.md §4's "a variable read from
// inside a nested function body that isn't a param/local of that body
// is a capture").
func (c *Compiler) renderName(o *ast.Operand) (ir.StorageIdent, error) {
	crossedChild := false
	for i := c.scopes.Depth() - 1; i >= 0; i-- {
		s := c.scopes.ScopeAt(i)
		sym, ok := s.Table.Get(o.Name)
		if !ok {
			if s.Kind == scope.ClosureChild {
				crossedChild = true
			}
			continue
		}
		if crossedChild && s.Kind == scope.ClosureParent && sym.Kind == scope.SymVariable {
			return c.renderCapturedName(sym.Var), nil
		}
		return c.renderResolvedSymbol(sym, o)
	}
	return ir.StorageIdent{}, c.nameError(o.Position(), "undefined name %q", o.Name)
}

func (c *Compiler) renderResolvedSymbol(sym scope.Symbol, o *ast.Operand) (ir.StorageIdent, error) {
	switch sym.Kind {
	case scope.SymVariable, scope.SymGlobal:
		return ir.VarIdent(sym.Var), nil
	case scope.SymFunction:
		return ir.StorageIdent{Kind: ir.StorageCStr, CStrName: sym.Func.NSIdent, Type: scope.FunctionOf(&sym.Func.Sig)}, nil
	case scope.SymClass:
		return ir.StorageIdent{Kind: ir.StorageCStr, CStrName: sym.Class.NSIdent, Type: scope.ObjectOf(sym.Class)}, nil
	default:
		return ir.StorageIdent{}, c.nameError(o.Position(), "%q does not name a value", o.Name)
	}
}

// renderCapturedName marks v as captured (spec.md §3's Closure
// VariableKind) the first time it's referenced from within a nested
// function body; its ClosureOffset is assigned later, in a post-order
// pass over the capturing function's body (see lowerFunctionStatement).
func (c *Compiler) renderCapturedName(v *scope.Variable) ir.StorageIdent {
	v.Kind = scope.Closure
	return ir.StorageIdent{Kind: ir.StorageClosureCapture, Var: v, Type: v.Type}
}

// literalDest picks the destination a list/dict literal builds directly
// into: hint itself when the caller supplied one (emitting a plain
// Assignment for the init call, since hint's declaration already
// belongs to the caller), or a freshly synthesized, freshly declared
// temp otherwise.
func (c *Compiler) literalDest(hint ir.StorageHint) (ir.StorageIdent, func(ir.StorageIdent, ir.OperationInst) ir.Instruction) {
	if !hint.IsNull() {
		return hint, ir.Assignment
	}
	return c.synthStorage(scope.TypeInfo{}), ir.DeclAssignment
}

func (c *Compiler) renderListLiteral(o *ast.Operand, hint ir.StorageHint) (ir.StorageIdent, error) {
	dest, declare := c.literalDest(hint)
	var elemType scope.TypeInfo
	c.emit(declare(dest, ir.CCall(runtime.ListInit, nil, scope.TypeInfo{})))
	for i := range o.Elements {
		el, err := c.renderExpression(&o.Elements[i], ir.StorageHint{})
		if err != nil {
			return ir.StorageIdent{}, err
		}
		if i == 0 {
			elemType = el.Type
		} else if !elemType.Equal(el.Type) {
			return ir.StorageIdent{}, c.typeError(o.Position(), "list elements must share one type")
		}
		c.emit(ir.Operation(ir.CCall(runtime.ListAppend, []ir.StorageIdent{dest, el}, scope.TypeInfo{})))
	}
	dest.Type = scope.Composite(scope.List, elemType)
	return dest, nil
}

func (c *Compiler) renderDictLiteral(o *ast.Operand, hint ir.StorageHint) (ir.StorageIdent, error) {
	dest, declare := c.literalDest(hint)
	var keyType, valType scope.TypeInfo
	c.emit(declare(dest, ir.CCall(runtime.DictInit, nil, scope.TypeInfo{})))
	for i := range o.Keys {
		k, err := c.renderExpression(&o.Keys[i], ir.StorageHint{})
		if err != nil {
			return ir.StorageIdent{}, err
		}
		v, err := c.renderExpression(&o.Elements[i], ir.StorageHint{})
		if err != nil {
			return ir.StorageIdent{}, err
		}
		if i == 0 {
			keyType, valType = k.Type, v.Type
		}
		c.emit(ir.Operation(ir.CCall(runtime.DictSetItem, []ir.StorageIdent{dest, k, v}, scope.TypeInfo{})))
	}
	dest.Type = scope.Composite(scope.Dict, keyType, valType)
	return dest, nil
}

// renderOperation dispatches on the Operation's kind: binary, unary,
// get-attr, get-item, or call.
func (c *Compiler) renderOperation(expr *ast.Expression, r *rendered, op *ast.Operation, hint ir.StorageHint) (ir.StorageIdent, error) {
	switch op.Kind {
	case ast.OpBinary:
		return c.renderBinary(expr, r, op, hint)
	case ast.OpUnary:
		return c.renderUnary(expr, r, op, hint)
	case ast.OpGetAttr:
		return c.renderGetAttr(expr, r, op, hint)
	case ast.OpGetItem:
		return c.renderGetItem(expr, r, op, hint)
	case ast.OpCall:
		return c.renderCall(expr, r, op, hint)
	default:
		return ir.StorageIdent{}, c.typeError(op.Position(), "unknown operation kind")
	}
}

func (c *Compiler) renderBinary(expr *ast.Expression, r *rendered, op *ast.Operation, hint ir.StorageHint) (ir.StorageIdent, error) {
	left, err := c.renderRef(expr, r, op.Left, ir.StorageHint{})
	if err != nil {
		return ir.StorageIdent{}, err
	}
	right, err := c.renderRef(expr, r, op.Right, ir.StorageHint{})
	if err != nil {
		return ir.StorageIdent{}, err
	}

	if left.Type.Tag == scope.Object || right.Type.Tag == scope.Object {
		return c.renderObjectBinary(op, left, right, hint)
	}

	operator := types.Operator(op.Operator)
	result := types.Resolve(left.Type, right.Type, operator)
	if err := c.requireTyped(op.Position(), result, "operator "+op.Operator); err != nil {
		return ir.StorageIdent{}, err
	}

	inst := c.intrinsicOrRuntimeCall(op.Operator, left, right, result)
	return c.store(inst, hint)
}

// intrinsicOrRuntimeCall implements spec.md §4.6's "a handful of
// operators route to specific runtime C functions rather than C
// operators"; everything else becomes a direct-operator Intrinsic.
func (c *Compiler) intrinsicOrRuntimeCall(opText string, left, right ir.StorageIdent, result scope.TypeInfo) ir.OperationInst {
	if left.Type.Tag == scope.String {
		switch opText {
		case "+":
			c.req.Strings = true
			return ir.CCall(runtime.StrAdd, []ir.StorageIdent{left, right}, result)
		case "==":
			return ir.CCall(runtime.StrEq, []ir.StorageIdent{left, right}, result)
		case "!=":
			return ir.CCall(runtime.StrNe, []ir.StorageIdent{left, right}, result)
		case "<":
			return ir.CCall(runtime.StrLt, []ir.StorageIdent{left, right}, result)
		case "<=":
			return ir.CCall(runtime.StrLe, []ir.StorageIdent{left, right}, result)
		case ">":
			return ir.CCall(runtime.StrGt, []ir.StorageIdent{left, right}, result)
		case ">=":
			return ir.CCall(runtime.StrGe, []ir.StorageIdent{left, right}, result)
		case "in":
			return ir.CCall(runtime.StrContains, []ir.StorageIdent{right, left}, result)
		}
	}
	if left.Type.Tag == scope.List {
		switch opText {
		case "+":
			return ir.CCall(runtime.ListAdd, []ir.StorageIdent{left, right}, result)
		}
	}
	if opText == "**" {
		c.req.Math = true
		return ir.CCall(runtime.Pow, []ir.StorageIdent{left, right}, result)
	}
	if opText == "%" && left.Type.Tag == scope.Float {
		c.req.Math = true
		return ir.CCall(runtime.FloatMod, []ir.StorageIdent{left, right}, result)
	}
	return ir.Intrinsic(opText, left, right, result)
}

// renderObjectBinary implements spec.md §4.5's dispatch: defer to the
// object model, binding self through the resolved side.
func (c *Compiler) renderObjectBinary(op *ast.Operation, left, right ir.StorageIdent, hint ir.StorageHint) (ir.StorageIdent, error) {
	fn, isReflected, ok := object.FindOpFunction(left.Type, right.Type, types.Operator(op.Operator))
	if !ok {
		return ir.StorageIdent{}, c.typeError(op.Position(), "operator %s is not defined between %s and %s", op.Operator, left.Type, right.Type)
	}
	self, arg := left, right
	if isReflected {
		self, arg = right, left
	}
	callee := ir.StorageIdent{Kind: ir.StorageCStr, CStrName: fn.NSIdent, Type: scope.FunctionOf(&fn.Sig)}
	inst := ir.FunctionCall(callee, []ir.StorageIdent{self, arg}, fn.Sig.ReturnType)
	return c.store(inst, hint)
}

func (c *Compiler) renderUnary(expr *ast.Expression, r *rendered, op *ast.Operation, hint ir.StorageHint) (ir.StorageIdent, error) {
	operand, err := c.renderRef(expr, r, op.Left, ir.StorageHint{})
	if err != nil {
		return ir.StorageIdent{}, err
	}
	operator := types.Operator(op.Operator)
	if operand.Type.Tag == scope.Object {
		fn, ok := object.FindUnaryFunction(operand.Type, operator)
		if !ok {
			return ir.StorageIdent{}, c.typeError(op.Position(), "unary operator %s is not defined on %s", op.Operator, operand.Type)
		}
		callee := ir.StorageIdent{Kind: ir.StorageCStr, CStrName: fn.NSIdent, Type: scope.FunctionOf(&fn.Sig)}
		return c.store(ir.FunctionCall(callee, []ir.StorageIdent{operand}, fn.Sig.ReturnType), hint)
	}
	result := types.ResolveUnary(operand.Type, operator)
	if err := c.requireTyped(op.Position(), result, "unary operator "+op.Operator); err != nil {
		return ir.StorageIdent{}, err
	}
	return c.store(ir.IntrinsicUnary(op.Operator, operand, result), hint)
}

// store emits the right instruction kind for an OperationInst given a
// hint: DeclAssign on a null hint (synthesizing a destination), Assign
// on a concrete one, per spec.md §4.6.
func (c *Compiler) store(op ir.OperationInst, hint ir.StorageHint) (ir.StorageIdent, error) {
	if err := c.requireTyped(c.curOp, op.Type, "expression"); err != nil {
		return ir.StorageIdent{}, err
	}
	if hint.IsNull() {
		dest := c.synthStorage(op.Type)
		c.emit(ir.DeclAssignment(dest, op))
		return dest, nil
	}
	c.emit(ir.Assignment(hint, op))
	out := hint
	out.Type = op.Type
	return out, nil
}

// builtinListMethods / builtinDictMethods are the fixed dispatch table
// spec.md §4.6 names: ".method_name followed by a call lowers to the
// corresponding runtime call".
var builtinListMethods = map[string]string{
	"append": runtime.ListAppend,
}

var builtinDictMethods = map[string]string{}

func (c *Compiler) renderGetAttr(expr *ast.Expression, r *rendered, op *ast.Operation, hint ir.StorageHint) (ir.StorageIdent, error) {
	obj, err := c.renderRef(expr, r, op.Left, ir.StorageHint{})
	if err != nil {
		return ir.StorageIdent{}, err
	}
	switch obj.Type.Tag {
	case scope.Object:
		return c.renderObjectGetAttr(op, obj, hint)
	case scope.List, scope.Dict:
		return ir.StorageIdent{}, c.typeError(op.Position(), "bare method reference %q on a container is not callable directly", op.Attr)
	default:
		return ir.StorageIdent{}, c.nameError(op.Position(), "unknown attribute %q", op.Attr)
	}
}

func (c *Compiler) renderObjectGetAttr(op *ast.Operation, obj ir.StorageIdent, hint ir.StorageHint) (ir.StorageIdent, error) {
	class := obj.Type.Class
	if fn, ok := class.Methods[op.Attr]; ok {
		callee := ir.StorageIdent{Kind: ir.StorageCStr, CStrName: fn.NSIdent, Type: scope.FunctionOf(&fn.Sig)}
		return c.store(ir.GetAttr(obj, op.Attr, callee.Type), hint)
	}
	memberType, ok := class.MemberType(op.Attr)
	if !ok {
		return ir.StorageIdent{}, c.nameError(op.Position(), "class %s has no member %q", class.Name, op.Attr)
	}
	return c.store(ir.GetAttr(obj, op.Attr, memberType), hint)
}

func (c *Compiler) renderGetItem(expr *ast.Expression, r *rendered, op *ast.Operation, hint ir.StorageHint) (ir.StorageIdent, error) {
	obj, err := c.renderRef(expr, r, op.Left, ir.StorageHint{})
	if err != nil {
		return ir.StorageIdent{}, err
	}
	key, err := c.renderRef(expr, r, op.Right, ir.StorageHint{})
	if err != nil {
		return ir.StorageIdent{}, err
	}
	switch obj.Type.Tag {
	case scope.List:
		if key.Type.Tag != scope.Int {
			return ir.StorageIdent{}, c.typeError(op.Position(), "list index must be int")
		}
		elem := obj.Type.Inner[0]
		return c.store(ir.CCall(runtime.ListGetItem, []ir.StorageIdent{obj, key}, elem), hint)
	case scope.Dict:
		if len(obj.Type.Inner) < 2 || !key.Type.Equal(obj.Type.Inner[0]) {
			return ir.StorageIdent{}, c.typeError(op.Position(), "dict key type mismatch")
		}
		val := obj.Type.Inner[1]
		return c.store(ir.CCall(runtime.DictGetItem, []ir.StorageIdent{obj, key}, val), hint)
	case scope.Object:
		fn, ok := obj.Type.Class.Methods["__getitem__"]
		if !ok {
			return ir.StorageIdent{}, c.typeError(op.Position(), "class %s has no __getitem__", obj.Type.Class.Name)
		}
		callee := ir.StorageIdent{Kind: ir.StorageCStr, CStrName: fn.NSIdent, Type: scope.FunctionOf(&fn.Sig)}
		return c.store(ir.FunctionCall(callee, []ir.StorageIdent{obj, key}, fn.Sig.ReturnType), hint)
	default:
		return ir.StorageIdent{}, c.typeError(op.Position(), "type %s is not subscriptable", obj.Type)
	}
}
