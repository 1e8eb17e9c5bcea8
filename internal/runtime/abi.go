// Package runtime captures spec.md §6's fixed runtime C ABI as Go
// constants: the struct/type names and function names the lowering
// engine and writer both reference by name, plus (see embed.go) the
// embedded runtime.c/runtime.h pair shipped alongside generated output.
//
// Grounded on original_source/src/runtime.h's NpInt/NpFloat/NpString/
// NpList/NpDict/NpIter/NpFunction/NpContext declarations and
// original_source/src/runtime.c's exported function names; kept as a
// flat constant table (google-gapid/gapil/compiler/plugins' pattern of
// naming external ABI symbols as Go string constants rather than
// hand-formatting them at each call site) so internal/lower and
// internal/writer never disagree on a spelling.
package runtime

// Type names the writer emits in declarations and casts.
const (
	TypeInt      = "NpInt"
	TypeFloat    = "NpFloat"
	TypeBool     = "NpBool"
	TypeString   = "NpString"
	TypeList     = "NpList"
	TypeDict     = "NpDict"
	TypeIter     = "NpIter"
	TypeFunction = "NpFunction"
	TypeContext  = "NpContext"
	TypeByte     = "NpByte"
	TypeException = "NpException"
)

// Module-level exception-state globals (spec.md §6).
const (
	GlobalException    = "global_exception"
	GlobalCurrentExcepts = "current_excepts"
)

// Exception class bits (spec.md §6's "Recognized exception classes").
const (
	ExcMemoryError   = "NP_EXC_MEMORY_ERROR"
	ExcIndexError    = "NP_EXC_INDEX_ERROR"
	ExcKeyError      = "NP_EXC_KEY_ERROR"
	ExcValueError    = "NP_EXC_VALUE_ERROR"
	ExcAssertionError = "NP_EXC_ASSERTION_ERROR"
)

// Runtime function names the lowering engine routes specific operators
// and builtins through instead of a direct C operator (spec.md §4.6:
// "a handful of operators route to specific runtime C functions").
const (
	StrAdd      = "np_str_add"
	StrEq       = "np_str_eq"
	StrNe       = "np_str_ne"
	StrLt       = "np_str_lt"
	StrLe       = "np_str_le"
	StrGt       = "np_str_gt"
	StrGe       = "np_str_ge"
	StrFmt      = "np_str_fmt"
	StrContains = "np_str_contains"

	ListAdd      = "np_list_add"
	ListAppend   = "np_list_append"
	ListInit     = "np_list_init"
	ListIter     = "np_list_iter"
	ListGetItem  = "np_list_get_item"
	ListSetItem  = "np_list_set_item"
	ListLen      = "np_list_len"
	ListContains = "np_list_contains"

	DictInit     = "np_dict_init"
	DictSetItem  = "np_dict_set_item"
	DictGetItem  = "np_dict_get_item"
	DictKeys     = "np_dict_keys"
	DictContains = "np_dict_contains"
	DictLen      = "np_dict_len"

	IterNext = "np_iter_next"

	IntToStr   = "np_int_to_str"
	FloatToStr = "np_float_to_str"
	BoolToStr  = "np_bool_to_str"

	FloatMod = "fmod"
	Pow      = "pow"

	GetException   = "get_exception"
	AssertionError = "assertion_error"
	Alloc          = "np_alloc"
	Print          = "np_print"
)
