package lexer

import "fmt"

// TokenType — вид токена.
type TokenType int

const (
	EOF TokenType = iota
	Illegal

	Symbol
	Number
	String

	// Операторы
	Plus
	Minus
	Multiply
	Divide
	Exponent
	Assign
	Equals
	NotEquals
	Greater
	Less
	GreaterEquals
	LessEquals
	And
	Or
	Not

	// Пунктуация
	OpenParen
	CloseParen
	Comma
	Dot
	Colon
	Semicolon
	OpenBracket
	CloseBracket
	Arrow

	// Ключевые слова
	Workflow
	Return
	True
	False
)

var tokenNames = map[TokenType]string{
	EOF:           "EOF",
	Illegal:       "ILLEGAL",
	Symbol:        "SYMBOL",
	Number:        "NUMBER",
	String:        "STRING",
	Plus:          "+",
	Minus:         "-",
	Multiply:      "*",
	Divide:        "/",
	Exponent:      "^",
	Assign:        "=",
	Equals:        "==",
	NotEquals:     "!=",
	Greater:       ">",
	Less:          "<",
	GreaterEquals: ">=",
	LessEquals:    "<=",
	And:           "and",
	Or:            "or",
	Not:           "not",
	OpenParen:     "(",
	CloseParen:    ")",
	Comma:         ",",
	Dot:           ".",
	Colon:         ":",
	Semicolon:     ";",
	OpenBracket:   "[",
	CloseBracket:  "]",
	Arrow:         "->",
	Workflow:      "workflow",
	Return:        "return",
	True:          "true",
	False:         "false",
}

// String возвращает имя вида токена.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var keywords = map[string]TokenType{
	"workflow": Workflow,
	"return":   Return,
	"and":      And,
	"or":       Or,
	"not":      Not,
	"true":     True,
	"false":    False,
}

// Token — лексема исходного текста.
type Token struct {
	Type   TokenType
	Value  string // текст токена; для строк — без кавычек, с раскрытыми escape
	Line   int    // 1-based
	Column int    // 1-based
	Offset int    // смещение в байтах от начала текста
}

// String форматирует токен для сообщений об ошибках.
func (t Token) String() string {
	switch t.Type {
	case EOF:
		return fmt.Sprintf("end of input at %d:%d", t.Line, t.Column)
	case String:
		return fmt.Sprintf("%q at %d:%d", t.Value, t.Line, t.Column)
	default:
		return fmt.Sprintf("'%s' at %d:%d", t.Value, t.Line, t.Column)
	}
}

// SyntaxError — ошибка разбора исходного текста.
type SyntaxError struct {
	Token   Token
	Message string
}

// Error реализует интерфейс error.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Token.Line, e.Token.Column, e.Message)
}
