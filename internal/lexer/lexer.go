package lexer

import (
	"fmt"
	"strings"
)

// Lexer разбивает исходный текст на токены за один проход.
type Lexer struct {
	src    string
	start  int // начало текущего токена
	cur    int // текущая позиция
	line   int
	col    int
	tokens []Token
	spaced bool // перед текущим токеном были пробелы

	startLine int
	startCol  int
}

// New создаёт лексер.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// Tokenize разбивает текст на токены. Последний токен — EOF.
func Tokenize(src string) ([]Token, error) {
	return New(src).Scan()
}

// Scan разбирает весь текст.
func (l *Lexer) Scan() ([]Token, error) {
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == EOF {
			return l.tokens, nil
		}
	}
}

func (l *Lexer) atEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.cur]
}

func (l *Lexer) peekN(n int) byte {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) emit(tt TokenType, val string) Token {
	tok := Token{
		Type:   tt,
		Value:  val,
		Line:   l.startLine,
		Column: l.startCol,
		Offset: l.start,
	}
	l.tokens = append(l.tokens, tok)
	return tok
}

func (l *Lexer) errorf(format string, args ...any) error {
	return &SyntaxError{
		Token:   Token{Type: Illegal, Value: l.src[l.start:l.cur], Line: l.startLine, Column: l.startCol, Offset: l.start},
		Message: fmt.Sprintf(format, args...),
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }

// skipSpace пропускает пробелы и комментарии '#' до конца строки.
func (l *Lexer) skipSpace() {
	l.spaced = false
	for !l.atEnd() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.spaced = true
			l.advance()
		case '#':
			l.spaced = true
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

// next разбирает один токен, выбирая ветку по классу символа.
func (l *Lexer) next() (Token, error) {
	l.skipSpace()
	l.start = l.cur
	l.startLine = l.line
	l.startCol = l.col

	if l.atEnd() {
		return l.emit(EOF, ""), nil
	}

	ch := l.peek()
	switch {
	case isDigit(ch):
		return l.scanNumber()
	case ch == '.' && isDigit(l.peekN(1)) && !l.afterOperand():
		return l.scanNumber()
	case isAlpha(ch):
		return l.scanWord(), nil
	case ch == '"' || ch == '\'':
		return l.scanString()
	}

	l.advance()
	switch ch {
	case '(':
		return l.emit(OpenParen, "("), nil
	case ')':
		return l.emit(CloseParen, ")"), nil
	case '[':
		return l.emit(OpenBracket, "["), nil
	case ']':
		return l.emit(CloseBracket, "]"), nil
	case ',':
		return l.emit(Comma, ","), nil
	case '.':
		return l.emit(Dot, "."), nil
	case ':':
		return l.emit(Colon, ":"), nil
	case ';':
		return l.emit(Semicolon, ";"), nil
	case '+':
		return l.emit(Plus, "+"), nil
	case '*':
		return l.emit(Multiply, "*"), nil
	case '/':
		return l.emit(Divide, "/"), nil
	case '^':
		return l.emit(Exponent, "^"), nil
	case '-':
		if l.peek() == '>' {
			l.advance()
			return l.emit(Arrow, "->"), nil
		}
		return l.emit(Minus, "-"), nil
	case '=':
		return l.twoChar('=', Equals, Assign), nil
	case '!':
		return l.twoChar('=', NotEquals, Not), nil
	case '>':
		return l.twoChar('=', GreaterEquals, Greater), nil
	case '<':
		return l.twoChar('=', LessEquals, Less), nil
	}

	return Token{}, l.errorf("unexpected character %q", ch)
}

// twoChar выбирает двухсимвольный оператор, если следующий символ second.
func (l *Lexer) twoChar(second byte, long, short TokenType) Token {
	if l.peek() == second {
		l.advance()
		return l.emit(long, l.src[l.start:l.cur])
	}
	return l.emit(short, l.src[l.start:l.cur])
}

// afterOperand сообщает, может ли предыдущий токен быть левым операндом.
// После операнда '.' — доступ к атрибуту, а не начало числа.
func (l *Lexer) afterOperand() bool {
	if len(l.tokens) == 0 || l.spaced {
		return false
	}
	prev := l.tokens[len(l.tokens)-1]
	switch prev.Type {
	case Symbol, Number, String, CloseParen, CloseBracket:
		return true
	}
	return false
}

func (l *Lexer) scanWord() Token {
	for !l.atEnd() && (isAlpha(l.peek()) || isDigit(l.peek())) {
		l.advance()
	}
	word := l.src[l.start:l.cur]
	if kw, ok := keywords[word]; ok {
		return l.emit(kw, word)
	}
	return l.emit(Symbol, word)
}

// scanNumber разбирает целое или вещественное число: 1, 1.5, .5, 1., 1e-3.
// Если за 'e' не следуют цифры, 'e' остаётся следующему токену.
func (l *Lexer) scanNumber() (Token, error) {
	for isDigit(l.peek()) {
		l.advance()
	}

	if l.peek() == '.' && !isAlpha(l.peekN(1)) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	if c := l.peek(); c == 'e' || c == 'E' {
		saveCur, saveLine, saveCol := l.cur, l.line, l.col
		l.advance()
		if c := l.peek(); c == '+' || c == '-' {
			l.advance()
		}
		if isDigit(l.peek()) {
			for isDigit(l.peek()) {
				l.advance()
			}
		} else {
			l.cur, l.line, l.col = saveCur, saveLine, saveCol
		}
	}

	lex := l.src[l.start:l.cur]
	if lex == "." {
		return Token{}, l.errorf("malformed number")
	}
	return l.emit(Number, lex), nil
}

// scanString разбирает строку в одинарных или двойных кавычках.
func (l *Lexer) scanString() (Token, error) {
	quote := l.advance()

	var b strings.Builder
	for !l.atEnd() {
		ch := l.advance()
		if ch == quote {
			return l.emit(String, b.String()), nil
		}
		if ch != '\\' {
			b.WriteByte(ch)
			continue
		}
		if l.atEnd() {
			break
		}
		switch esc := l.advance(); esc {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '\'', '"':
			b.WriteByte(esc)
		default:
			return Token{}, l.errorf("unknown escape sequence \\%c", esc)
		}
	}
	return Token{}, l.errorf("unterminated string")
}
