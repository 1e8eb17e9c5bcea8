// Package token defines the lexical token vocabulary the lexer produces
// and the parser consumes: keyword and operator enumerations, the
// Token type itself, and a small precedence table the parser's
// expression climbing uses.
//
// Grounded on original_source/src/lexer_types.h's Keyword/Operator/
// TokenType enums and original_source/src/operators.c's precedence
// table; the original's fixed-capacity ShortStr/TokenStream are dropped
// in favor of Go strings and slices (spec.md §3's arena-vs-GC tradeoff
// does not apply to the front end, which is short-lived per spec §15).
package token

import "github.com/npylang/npyc/internal/diag"

// Keyword enumerates the language's reserved words.
type Keyword int

const (
	NotAKeyword Keyword = iota
	And
	As
	Assert
	Break
	Class
	Continue
	Def
	Del
	Elif
	Else
	Except
	Finally
	For
	From
	Global
	If
	Import
	In
	Is
	Lambda
	Nonlocal
	Not
	Or
	Pass
	Raise
	Return
	Try
	While
	With
	Yield
	// True/False/None are not in original_source's KW_* enum (there they
	// are plain TOK_NAME identifiers special-cased by the type checker);
	// the parser here recognizes them as keywords directly since it must
	// build OperandBool/OperandNone operands without a later resolution
	// pass.
	True
	False
	NoneKw
)

var keywords = map[string]Keyword{
	"and": And, "as": As, "assert": Assert, "break": Break, "class": Class,
	"continue": Continue, "def": Def, "del": Del, "elif": Elif, "else": Else,
	"except": Except, "finally": Finally, "for": For, "from": From,
	"global": Global, "if": If, "import": Import, "in": In, "is": Is,
	"lambda": Lambda, "nonlocal": Nonlocal, "not": Not, "or": Or, "pass": Pass,
	"raise": Raise, "return": Return, "try": Try, "while": While, "with": With,
	"yield": Yield, "True": True, "False": False, "None": NoneKw,
}

// LookupKeyword implements is_keyword: it returns NotAKeyword for any
// identifier that isn't reserved.
func LookupKeyword(word string) Keyword {
	if kw, ok := keywords[word]; ok {
		return kw
	}
	return NotAKeyword
}

// Operator enumerates the language's punctuation operators, spanning
// arithmetic, comparison, bitwise, and compound-assignment spellings.
type Operator int

const (
	NotAnOperator Operator = iota
	Plus
	Minus
	Mult
	Div
	Mod
	Pow
	FloorDiv
	Assignment
	PlusAssignment
	MinusAssignment
	MultAssignment
	DivAssignment
	ModAssignment
	FloorDivAssignment
	PowAssignment
	AndAssignment
	OrAssignment
	XorAssignment
	RShiftAssignment
	LShiftAssignment
	Equal
	NotEqual
	Greater
	Less
	GreaterEqual
	LessEqual
	BitwiseAnd
	BitwiseOr
	BitwiseXor
	BitwiseNot
	LShift
	RShift
)

var operators = map[string]Operator{
	"+": Plus, "-": Minus, "*": Mult, "/": Div, "%": Mod, "**": Pow, "//": FloorDiv,
	"=": Assignment, "+=": PlusAssignment, "-=": MinusAssignment, "*=": MultAssignment,
	"/=": DivAssignment, "%=": ModAssignment, "//=": FloorDivAssignment, "**=": PowAssignment,
	"&=": AndAssignment, "|=": OrAssignment, "^=": XorAssignment,
	">>=": RShiftAssignment, "<<=": LShiftAssignment,
	"==": Equal, "!=": NotEqual, ">": Greater, "<": Less, ">=": GreaterEqual, "<=": LessEqual,
	"&": BitwiseAnd, "|": BitwiseOr, "^": BitwiseXor, "~": BitwiseNot,
	"<<": LShift, ">>": RShift,
}

// FromString implements op_from_cstr: it returns NotAnOperator for any
// spelling that isn't a recognized operator.
func FromString(s string) Operator {
	if op, ok := operators[s]; ok {
		return op
	}
	return NotAnOperator
}

// IsAssignment reports whether op is a plain or compound assignment
// spelling, mirroring IS_ASSIGNMENT_OP.
func IsAssignment(op Operator) bool {
	switch op {
	case Assignment, PlusAssignment, MinusAssignment, MultAssignment, DivAssignment,
		ModAssignment, FloorDivAssignment, PowAssignment, AndAssignment, OrAssignment,
		XorAssignment, RShiftAssignment, LShiftAssignment:
		return true
	default:
		return false
	}
}

// String returns an operator's canonical spelling, the inverse of
// FromString; used when the parser hands an operator spelling down to
// the type checker as a types.Operator string.
func (op Operator) String() string {
	for s, o := range operators {
		if o == op {
			return s
		}
	}
	return ""
}

// Kind enumerates the structural token categories, mirroring TokenType.
type Kind int

const (
	Invalid Kind = iota
	KindKeyword
	Comma
	Colon
	String
	Number
	KindOperator
	Newline
	BlockBegin
	BlockEnd
	OpenParens
	CloseParens
	OpenSquare
	CloseSquare
	OpenCurly
	CloseCurly
	Identifier
	Dot
	EOF
)

// Token is one lexical unit, carrying its source position and, for the
// kinds that need one, a text or sub-enum payload.
type Token struct {
	Pos      diag.Pos
	Kind     Kind
	Text     string   // Identifier, String, Number: literal text/lexeme
	Keyword  Keyword  // KindKeyword
	Operator Operator // KindOperator
}

func (t Token) String() string {
	switch t.Kind {
	case KindKeyword:
		return "keyword"
	case KindOperator:
		return t.Operator.String()
	case Identifier, String, Number:
		return t.Text
	default:
		return kindNames[t.Kind]
	}
}

var kindNames = map[Kind]string{
	Invalid: "<invalid>", Comma: ",", Colon: ":", Newline: "<newline>",
	BlockBegin: "<indent>", BlockEnd: "<dedent>", OpenParens: "(", CloseParens: ")",
	OpenSquare: "[", CloseSquare: "]", OpenCurly: "{", CloseCurly: "}", Dot: ".", EOF: "<eof>",
}
