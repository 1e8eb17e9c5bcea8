// Package debug implements cmd/npyc's --dump-* flags: one text dump per
// pipeline stage, printed to an io.Writer instead of original_source's
// separate debug_tokenization.c/debug_lexical_scopes.c/
// debug_instructions.c mains.
//
// Grounded on those three files' print_token/print_statement/
// print_instruction texture (one line per node, type name followed by
// its notable fields) adapted to walk this package's Go AST/Instruction
// types instead of the original's flat Token/Statement arrays.
package debug

import (
	"fmt"
	"io"
	"strings"

	"github.com/npylang/npyc/internal/ast"
	"github.com/npylang/npyc/internal/ir"
	"github.com/npylang/npyc/internal/scope"
	"github.com/npylang/npyc/internal/token"
)

// Tokens prints one line per token, "line:col kind[: text]".
func Tokens(w io.Writer, toks []token.Token) {
	for _, t := range toks {
		fmt.Fprintf(w, "%d:%d\t%s\n", t.Pos.Line, t.Pos.Column, t)
	}
}

// AST prints one indented line per statement, recursing into nested
// blocks the way debug_statements.c walks a FOR_LOOP's body.
func AST(w io.Writer, stmts []ast.Statement) {
	for _, s := range stmts {
		printStatement(w, s, 0)
	}
}

func indent(w io.Writer, depth int) {
	fmt.Fprint(w, strings.Repeat("  ", depth))
}

func printStatement(w io.Writer, s ast.Statement, depth int) {
	indent(w, depth)
	switch n := s.(type) {
	case *ast.Assignment:
		fmt.Fprintf(w, "Assignment(op=%q)\n", n.Operator)
	case *ast.Annotation:
		fmt.Fprintf(w, "Annotation(%s: %s)\n", n.Name, n.Type.Name)
	case *ast.Expr:
		fmt.Fprintln(w, "Expr")
	case *ast.If:
		fmt.Fprintln(w, "If")
		printBlock(w, n.Body, depth+1)
		for _, e := range n.Elifs {
			indent(w, depth)
			fmt.Fprintln(w, "Elif")
			printBlock(w, e.Body, depth+1)
		}
		if n.HasElse {
			indent(w, depth)
			fmt.Fprintln(w, "Else")
			printBlock(w, n.Else, depth+1)
		}
	case *ast.While:
		fmt.Fprintln(w, "While")
		printBlock(w, n.Body, depth+1)
	case *ast.For:
		fmt.Fprintf(w, "For(%s)\n", strings.Join(n.Targets.Names, ", "))
		printBlock(w, n.Body, depth+1)
	case *ast.Try:
		fmt.Fprintln(w, "Try")
		printBlock(w, n.Body, depth+1)
		for _, ex := range n.Excepts {
			indent(w, depth)
			fmt.Fprintf(w, "Except(%s)\n", strings.Join(ex.Classes, ", "))
			printBlock(w, ex.Body, depth+1)
		}
		if n.HasFinal {
			indent(w, depth)
			fmt.Fprintln(w, "Finally")
			printBlock(w, n.Finally, depth+1)
		}
	case *ast.Assert:
		fmt.Fprintln(w, "Assert")
	case *ast.Return:
		fmt.Fprintf(w, "Return(hasValue=%v)\n", n.HasValue)
	case *ast.Break:
		fmt.Fprintln(w, "Break")
	case *ast.Continue:
		fmt.Fprintln(w, "Continue")
	case *ast.NoOp:
		fmt.Fprintln(w, "Pass")
	case *ast.Function:
		fmt.Fprintf(w, "Function(%s, self=%q)\n", n.Name, n.SelfParam)
		printBlock(w, n.Body, depth+1)
	case *ast.Class:
		fmt.Fprintf(w, "Class(%s, members=%d, methods=%d)\n", n.Name, len(n.Members), len(n.Methods))
		for _, m := range n.Methods {
			printStatement(w, m, depth+1)
		}
	default:
		fmt.Fprintf(w, "%T\n", n)
	}
}

func printBlock(w io.Writer, b ast.Block, depth int) {
	for _, s := range b.Statements {
		printStatement(w, s, depth)
	}
}

// Scopes prints the lexical scope tree rooted at top, recursing into
// every function/class scope reachable from a symbol, mirroring
// debug_lexical_scopes.c's walk of the resolved scope chain.
func Scopes(w io.Writer, top *scope.Lexical) {
	printScope(w, top, 0)
}

func printScope(w io.Writer, l *scope.Lexical, depth int) {
	indent(w, depth)
	fmt.Fprintf(w, "scope(kind=%d)\n", l.Kind)
	l.Table.Visit(func(sym scope.Symbol) {
		indent(w, depth+1)
		switch sym.Kind {
		case scope.SymVariable, scope.SymGlobal:
			fmt.Fprintf(w, "var %s : %s\n", sym.Var.Identifier, sym.Var.Type)
		case scope.SymFunction:
			fmt.Fprintf(w, "def %s\n", sym.Func.Name)
			if sym.Func.Scope != nil {
				printScope(w, sym.Func.Scope, depth+2)
			}
		case scope.SymClass:
			fmt.Fprintf(w, "class %s\n", sym.Class.Name)
			for _, m := range sym.Class.Methods {
				indent(w, depth+2)
				fmt.Fprintf(w, "def %s\n", m.Name)
				if m.Scope != nil {
					printScope(w, m.Scope, depth+3)
				}
			}
		case scope.SymMember:
			fmt.Fprintf(w, "member %s : %s\n", sym.MemberName, sym.Member)
		}
	})
}

// IR prints one indented line per Instruction, recursing into nested
// sequences (If/Loop/DefineFunction bodies), mirroring
// debug_instructions.c's print_instruction switch.
func IR(w io.Writer, seq ir.InstructionSequence) {
	printSeq(w, seq, 0)
}

func printSeq(w io.Writer, seq ir.InstructionSequence, depth int) {
	for _, inst := range seq.Items {
		printInst(w, inst, depth)
	}
}

func printInst(w io.Writer, inst ir.Instruction, depth int) {
	indent(w, depth)
	switch inst.Kind {
	case ir.InstNoOp:
		fmt.Fprintln(w, "NoOp")
	case ir.InstDeclareVariable:
		fmt.Fprintf(w, "DeclareVariable(%s : %s)\n", inst.Decl.CompiledName, inst.Decl.Type)
	case ir.InstAssignment:
		fmt.Fprintln(w, "Assignment")
	case ir.InstDeclAssignment:
		fmt.Fprintln(w, "DeclAssignment")
	case ir.InstOperation:
		fmt.Fprintln(w, "Operation")
	case ir.InstReturn:
		fmt.Fprintf(w, "Return(hasValue=%v)\n", inst.HasReturnValue)
	case ir.InstIf:
		fmt.Fprintf(w, "If(hasElse=%v)\n", inst.HasElse)
		printSeq(w, inst.Then, depth+1)
		if inst.HasElse {
			indent(w, depth)
			fmt.Fprintln(w, "Else")
			printSeq(w, inst.Else, depth+1)
		}
	case ir.InstGoto:
		fmt.Fprintf(w, "Goto(%s)\n", inst.Label)
	case ir.InstLabel:
		fmt.Fprintf(w, "Label(%s)\n", inst.Label)
	case ir.InstBreak:
		fmt.Fprintln(w, "Break")
	case ir.InstContinue:
		fmt.Fprintln(w, "Continue")
	case ir.InstLoop:
		fmt.Fprintln(w, "Loop")
		printSeq(w, inst.LoopBody, depth+1)
	case ir.InstDefineFunction:
		fmt.Fprintf(w, "DefineFunction(%s)\n", inst.Func.NSIdent)
		printSeq(w, inst.FuncBody, depth+1)
	case ir.InstDefineClass:
		fmt.Fprintf(w, "DefineClass(%s)\n", inst.Class.NSIdent)
	case ir.InstIterNext:
		fmt.Fprintln(w, "IterNext")
	case ir.InstInitClosure:
		fmt.Fprintf(w, "InitClosure(%s, captures=%d)\n", inst.ClosureFunc.NSIdent, len(inst.Captures))
	default:
		fmt.Fprintf(w, "Instruction(kind=%d)\n", inst.Kind)
	}
}
