package lower

import (
	"github.com/npylang/npyc/internal/ast"
	"github.com/npylang/npyc/internal/ir"
	"github.com/npylang/npyc/internal/scope"
)

// lowerFunctionStatement implements spec.md §4.6's Function lowering: a
// module-level def becomes a plain DefineFunction; a def nested inside
// another function's body becomes a closure, promoting the enclosing
// scope to ClosureParent and this function's own scope to ClosureChild.
// Class methods never reach here — parseClass consumes them directly
// into scope.ClassDef.Methods (see lowerClassStatement).
func (c *Compiler) lowerFunctionStatement(s *ast.Function) error {
	sym, ok := c.scopes.Top().Table.Get(s.Name)
	if !ok || sym.Kind != scope.SymFunction {
		return c.nameError(s.Position(), "undefined function %q", s.Name)
	}
	fn := sym.Func
	if err := c.buildSignature(fn, s.Params, s.ReturnType, s.HasReturn); err != nil {
		return err
	}
	fn.NSIdent = c.mangleFunction(s.Name)

	isNested := c.scopes.Top().Kind != scope.TopLevel
	var parentScope *scope.Lexical
	if isNested {
		parentScope = c.scopes.Top()
		parentScope.Kind = scope.ClosureParent
		fn.Scope.Kind = scope.ClosureChild
	}

	c.scopes.Push(fn.Scope)
	body, err := c.withSeq(func() error {
		c.bindParams(fn)
		return c.lowerBlock(s.Body)
	})
	c.scopes.Pop()
	if err != nil {
		return err
	}
	if !endsInReturn(body) {
		body.Items = append(body.Items, closureAwareReturn(nil, isNested))
	}

	if isNested {
		assignClosureOffsets(fn)
		captures := collectCaptures(fn)
		c.emit(ir.InitClosure(fn, captures))
	}

	c.emit(ir.DefineFunction(fn, body))
	return nil
}

func endsInReturn(seq ir.InstructionSequence) bool {
	if len(seq.Items) == 0 {
		return false
	}
	return seq.Items[len(seq.Items)-1].Kind == ir.InstReturn
}

// buildSignature resolves a def's parameter/return type annotations into
// fn.Sig, validating that every parameter (besides an already-consumed
// self) carries an explicit type and that defaults only trail.
func (c *Compiler) buildSignature(fn *scope.FunctionDef, params []ast.Param, retType ast.TypeExpr, hasReturn bool) error {
	sig := scope.Signature{}
	seenDefault := false
	for _, p := range params {
		if !p.Type.Valid {
			return c.typeError(p.Type.Pos, "parameter %q is missing a type annotation", p.Name)
		}
		t, err := c.resolveTypeExpr(p.Type, p.Type.Pos)
		if err != nil {
			return err
		}
		sig.Params = append(sig.Params, p.Name)
		sig.Types = append(sig.Types, t)
		if p.HasDefault {
			seenDefault = true
			sig.Defaults = append(sig.Defaults, p.Default)
		} else if seenDefault {
			return c.typeError(p.Type.Pos, "non-default parameter %q follows a default parameter", p.Name)
		}
	}
	if hasReturn {
		rt, err := c.resolveTypeExpr(retType, retType.Pos)
		if err != nil {
			return err
		}
		sig.ReturnType = rt
	} else {
		sig.ReturnType = scope.T(scope.None)
	}
	fn.Sig = sig
	return nil
}

// bindParams assigns each parameter Variable (Put during parsing with
// Kind == Argument) its resolved type and a stable CompiledName — the
// parameter's own source name, since C doesn't need parameter mangling
// the way locals do to dodge shadowing across nested scopes.
func (c *Compiler) bindParams(fn *scope.FunctionDef) {
	for i, name := range fn.Sig.Params {
		sym, ok := fn.Scope.Table.Get(name)
		if !ok || sym.Kind != scope.SymVariable {
			continue
		}
		sym.Var.Type = fn.Sig.Types[i]
		sym.Var.CompiledName = name
	}
	if fn.SelfParam != "" {
		// The parser never Puts "self" into the method's own scope (it's
		// consumed into Function.SelfParam instead, see parseFunction), so
		// it's declared here, the first time a method's body is lowered.
		v := &scope.Variable{Identifier: fn.SelfParam, Kind: scope.Argument, Type: fn.SelfType, CompiledName: fn.SelfParam}
		fn.Scope.Table.Put(scope.Symbol{Kind: scope.SymVariable, Var: v})
	}
}

func (c *Compiler) mangleFunction(name string) string {
	c.synth++
	return "np_fn_" + name + "_" + itoa(c.synth)
}

// assignClosureOffsets implements spec.md §3's "per-variable byte
// offsets assigned post-order after body lowering": every Variable of
// the capturing scope marked Closure during the nested body's lowering
// gets a packed byte offset, in table insertion order.
func assignClosureOffsets(fn *scope.FunctionDef) {
	offset := 0
	fn.Scope.Parent().Table.Visit(func(sym scope.Symbol) {
		if sym.Kind != scope.SymVariable || sym.Var.Kind != scope.Closure {
			return
		}
		sym.Var.ClosureOffset = offset
		offset += sizeOf(sym.Var.Type)
	})
	fn.ClosureSize = offset
}

// collectCaptures gathers the captured variables (in offset order) as
// the StorageIdents InitClosure copies from the enclosing function's
// locals into the freshly allocated closure object.
func collectCaptures(fn *scope.FunctionDef) []ir.StorageIdent {
	var out []ir.StorageIdent
	fn.Scope.Parent().Table.Visit(func(sym scope.Symbol) {
		if sym.Kind != scope.SymVariable || sym.Var.Kind != scope.Closure {
			return
		}
		out = append(out, ir.VarIdent(sym.Var))
	})
	return out
}

// sizeOf approximates C sizeof() for the fixed runtime ABI's scalar and
// handle types (spec.md §6: every non-scalar value is a pointer-sized
// runtime handle).
func sizeOf(t scope.TypeInfo) int {
	switch t.Tag {
	case scope.Bool, scope.Byte:
		return 1
	case scope.Int, scope.Unsigned, scope.Float:
		return 8
	default:
		return 8 // pointer-sized handle: String/List/Dict/Object/Function/Iter
	}
}

// lowerClassStatement implements spec.md §4.6's Class lowering: resolve
// each member's declared type into the class's synthesized Signature,
// compute NBytes, then lower every method body (each becomes its own
// DefineFunction, with `self` bound to the class's Object type).
func (c *Compiler) lowerClassStatement(s *ast.Class) error {
	sym, ok := c.scopes.Top().Table.Get(s.Name)
	if !ok || sym.Kind != scope.SymClass {
		return c.nameError(s.Position(), "undefined class %q", s.Name)
	}
	class := sym.Class
	class.NSIdent = c.mangleClass(s.Name)

	sig := scope.Signature{}
	nbytes := 0
	for _, m := range s.Members {
		t, err := c.resolveTypeExpr(m.Type, m.Type.Pos)
		if err != nil {
			return err
		}
		sig.Params = append(sig.Params, m.Name)
		sig.Types = append(sig.Types, t)
		nbytes += sizeOf(t)
	}
	class.Sig = sig
	class.NBytes = nbytes

	selfType := scope.ObjectOf(class)
	for _, m := range s.Methods {
		if err := c.lowerMethod(class, selfType, m); err != nil {
			return err
		}
	}
	c.emit(ir.DefineClass(class))
	return nil
}

func (c *Compiler) mangleClass(name string) string {
	c.synth++
	return "Np_" + name + "_" + itoa(c.synth)
}

// lowerMethod lowers one class method: its scope.FunctionDef was already
// Put into the class's Lexical scope by the parser (parseFunction called
// with selfParam == "self"); lowering it is identical to a free function
// except `self`'s type is bound to the class being defined.
func (c *Compiler) lowerMethod(class *scope.ClassDef, selfType scope.TypeInfo, m *ast.Function) error {
	fn := class.Methods[m.Name]
	fn.SelfType = selfType
	fn.NSIdent = class.NSIdent + "_" + m.Name

	if err := c.buildSignature(fn, m.Params, m.ReturnType, m.HasReturn); err != nil {
		return err
	}

	c.scopes.Push(fn.Scope)
	body, err := c.withSeq(func() error {
		c.bindParams(fn)
		return c.lowerBlock(m.Body)
	})
	c.scopes.Pop()
	if err != nil {
		return err
	}
	if !endsInReturn(body) {
		body.Items = append(body.Items, closureAwareReturn(nil, false))
	}
	c.emit(ir.DefineFunction(fn, body))
	return nil
}
