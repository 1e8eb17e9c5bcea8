package runtime

import _ "embed"

// Source and Header are the runtime.c/runtime.h pair every generated C
// program is compiled alongside; cmd/npyc writes them into its temporary
// build directory, beside the generated C, before invoking cc, the same way the original toolchain shipped
// not_python.c/not_python.h next to generated.c.
var (
	//go:embed runtime.c
	Source string

	//go:embed runtime.h
	Header string
)
