// Command npyc is the compiler's front end: it reads one source file,
// drives the lexer/parser/lowering-engine/writer pipeline, shells out to
// cc to produce a binary, and optionally runs it.
//
// Grounded on original_source/src/npc.c's flow (lex -> compile -> write C
// -> invoke cc -> optionally run the result) and its default-output-name
// derivation; the flag surface is SPEC_FULL.md §10's. Built with
// github.com/spf13/cobra rather than npc.c's hand-rolled argv scan, per
// this project's "never fall back to stdlib where a pack library fits"
// rule for CLI front ends.
package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/npylang/npyc/internal/debug"
	"github.com/npylang/npyc/internal/diag"
	"github.com/npylang/npyc/internal/ir"
	"github.com/npylang/npyc/internal/lexer"
	"github.com/npylang/npyc/internal/lower"
	"github.com/npylang/npyc/internal/parser"
	"github.com/npylang/npyc/internal/runtime"
	"github.com/npylang/npyc/internal/writer"
)

var (
	outPath     string
	run         bool
	dumpTokens  bool
	dumpAST     bool
	dumpScopes  bool
	dumpIR      bool
	dumpC       bool
	debugArena  bool
)

func main() {
	root := &cobra.Command{
		Use:           "npyc <input.npy>",
		Short:         "npyc compiles a source file to a native binary via C",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return compile(args[0])
		},
	}
	root.Flags().StringVarP(&outPath, "out", "o", "", "output binary path (default: input basename)")
	root.Flags().BoolVarP(&run, "run", "r", false, "run the compiled binary after building it")
	root.Flags().BoolVar(&dumpTokens, "dump-tokens", false, "print the token stream and exit")
	root.Flags().BoolVar(&dumpAST, "dump-ast", false, "print the parsed statement tree and exit")
	root.Flags().BoolVar(&dumpScopes, "dump-scopes", false, "print the resolved lexical scope tree and exit")
	root.Flags().BoolVar(&dumpIR, "dump-ir", false, "print the lowered instruction sequence and exit")
	root.Flags().BoolVar(&dumpC, "dump-c", false, "print the generated C source and exit")
	root.Flags().BoolVar(&debugArena, "debug-arena", false, "print arena allocation stats (human-readable byte counts) to stderr after lowering")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// defaultOutfile strips a trailing extension and directory component,
// matching original_source's default_outfile: "path/foo.npy" -> "foo".
func defaultOutfile(target string) string {
	base := filepath.Base(target)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

func compile(target string) error {
	src, err := os.ReadFile(target)
	if err != nil {
		return err
	}

	if dumpTokens {
		toks, err := lexer.Tokenize(target, src)
		if err != nil {
			return reportAndFail(target, src, err)
		}
		debug.Tokens(os.Stdout, toks)
		return nil
	}

	bundle, err := parser.Parse(target, src)
	if err != nil {
		return reportAndFail(target, src, err)
	}

	if dumpAST {
		debug.AST(os.Stdout, bundle.Statements)
		return nil
	}
	if dumpScopes {
		debug.Scopes(os.Stdout, bundle.Top)
		return nil
	}

	lowerer := lower.New(bundle)
	compiled, err := lowerer.Lower(bundle)
	if err != nil {
		return reportAndFail(target, src, err)
	}

	if debugArena {
		stats := lowerer.Arena().Stats()
		fmt.Fprintf(os.Stderr, "arena: %d allocations, %s\n",
			stats.NumAllocations, humanize.Bytes(uint64(stats.NumBytesAllocated)))
	}

	if dumpIR {
		debug.IR(os.Stdout, compiled.Seq)
		return nil
	}

	var cbuf bytes.Buffer
	if err := writer.Write(&cbuf, *compiled); err != nil {
		return err
	}

	if dumpC {
		os.Stdout.Write(cbuf.Bytes())
		return nil
	}

	out := outPath
	if out == "" {
		out = defaultOutfile(target)
	}

	buildDir, err := os.MkdirTemp("", "npyc-build-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(buildDir)

	cPath := filepath.Join(buildDir, "intermediate.c")
	if err := os.WriteFile(cPath, cbuf.Bytes(), 0o644); err != nil {
		return err
	}
	hPath := filepath.Join(buildDir, "runtime.h")
	if err := os.WriteFile(hPath, []byte(runtime.Header), 0o644); err != nil {
		return err
	}
	rtcPath := filepath.Join(buildDir, "runtime.c")
	if err := os.WriteFile(rtcPath, []byte(runtime.Source), 0o644); err != nil {
		return err
	}

	if err := compileToBinary(compiled.Req, buildDir, cPath, rtcPath, out); err != nil {
		return err
	}

	if run {
		return runBinary(out)
	}
	return nil
}

func compileToBinary(req ir.Requirements, buildDir, cPath, rtcPath, out string) error {
	args := []string{"-o", out, cPath, rtcPath, "-I" + buildDir}
	if req.Math {
		args = append(args, "-lm")
	}
	cc := exec.Command("cc", args...)
	cc.Stdout = os.Stdout
	cc.Stderr = os.Stderr
	return cc.Run()
}

func runBinary(path string) error {
	if !strings.HasPrefix(path, "/") {
		path = "./" + path
	}
	bin := exec.Command(path)
	bin.Stdin = os.Stdin
	bin.Stdout = os.Stdout
	bin.Stderr = os.Stderr
	return bin.Run()
}

func reportAndFail(target string, src []byte, err error) error {
	if diagErr, ok := err.(*diag.Error); ok {
		fi, ferr := diag.NewFileIndex(target, bytes.NewReader(src))
		if ferr == nil {
			diag.Report(os.Stderr, fi, diagErr)
			os.Exit(1)
		}
	}
	return err
}
