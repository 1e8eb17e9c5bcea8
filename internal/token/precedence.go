package token

// Precedence implements original_source/src/generated.c's
// PRECEDENCE_TABLE, extended with the two keyword-spelled operators
// (logical and/or, in, is) the parser needs identical climbing
// behavior for. Assignment operators sit at precedence 0: the parser
// never climbs through them, it only recognizes an assignment as a
// whole statement.
const MaxPrecedence = 16

func Precedence(op Operator) uint {
	switch op {
	case Plus, Minus:
		return 11
	case Mult, Div, Mod, FloorDiv:
		return 12
	case Pow:
		return 14
	case Equal, NotEqual, Greater, Less, GreaterEqual, LessEqual:
		return 6
	case BitwiseAnd:
		return 9
	case BitwiseOr:
		return 7
	case BitwiseXor:
		return 8
	case LShift, RShift:
		return 10
	case BitwiseNot:
		return 13
	default:
		return 0
	}
}

// KeywordPrecedence gives the climbing precedence for the keyword-
// spelled operators (and/or/not/in/is), which the lexer tokenizes as
// TOK_KEYWORD rather than TOK_OPERATOR.
func KeywordPrecedence(kw Keyword) uint {
	switch kw {
	case And:
		return 4
	case Or:
		return 3
	case Not:
		return 5
	case In, Is:
		return 6
	default:
		return 0
	}
}

const (
	PrecedenceCall    = 16
	PrecedenceGetItem = 16
	PrecedenceGetAttr = 16
	PrecedenceNegate  = 13
)
