// Package parser строит синтаксическое дерево из токенов методом
// рекурсивного спуска с уровнями приоритета операторов.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shaiso/Kira/internal/ast"
	"github.com/shaiso/Kira/internal/lexer"
)

// Уровни приоритета, от низшего к высшему:
//
//	or → and → == != → > < >= <= → + - → * / → унарные - not ! → ^ → первичные
//
// Возведение в степень правоассоциативно, правый операнд может быть унарным: 2^-2.

// Parse разбирает последовательность токенов в программу.
// При ошибке частичное дерево не возвращается.
func Parse(tokens []lexer.Token) (*ast.Program, error) {
	p := &parser{tokens: tokens}
	prog, err := p.program()
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// ParseString разбивает текст на токены и разбирает его.
func ParseString(src string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

type parser struct {
	tokens []lexer.Token
	pos    int
}

func (p *parser) current() lexer.Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	if n := len(p.tokens); n > 0 && p.tokens[n-1].Type == lexer.EOF {
		return p.tokens[n-1]
	}
	return lexer.Token{Type: lexer.EOF}
}

func (p *parser) peekType(n int) lexer.TokenType {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n].Type
	}
	return lexer.EOF
}

func (p *parser) check(types ...lexer.TokenType) bool {
	cur := p.current().Type
	for _, t := range types {
		if cur == t {
			return true
		}
	}
	return false
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) match(tt lexer.TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(tt lexer.TokenType, what string) (lexer.Token, error) {
	if p.check(tt) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errorf("expected %s, got %s", what, p.current())
}

func (p *parser) errorf(format string, args ...any) error {
	return &lexer.SyntaxError{Token: p.current(), Message: fmt.Sprintf(format, args...)}
}

func (p *parser) program() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.check(lexer.EOF) {
		if p.match(lexer.Semicolon) {
			continue
		}

		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

func (p *parser) statement() (ast.Stmt, error) {
	if p.match(lexer.Workflow) {
		return p.workflow()
	}

	// Присваивание: SYMBOL '=' ...
	if p.check(lexer.Symbol) && p.peekType(1) == lexer.Assign {
		return p.assignment()
	}

	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.match(lexer.Semicolon)
	return &ast.ExpressionStmt{Expr: expr}, nil
}

func (p *parser) assignment() (*ast.Assignment, error) {
	target, err := p.expect(lexer.Symbol, "variable name")
	if err != nil {
		return nil, err
	}
	assign, err := p.expect(lexer.Assign, "'='")
	if err != nil {
		return nil, err
	}
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.match(lexer.Semicolon)
	return &ast.Assignment{Token: assign, Target: target.Value, Value: value}, nil
}

// workflow разбирает объявление после ключевого слова:
//
//	name(inputs) [-> outputs] : (target = expr [;])* return syms [;]
func (p *parser) workflow() (*ast.Workflow, error) {
	nameTok, err := p.expect(lexer.Symbol, "workflow name")
	if err != nil {
		return nil, err
	}
	wf := &ast.Workflow{Token: nameTok, Name: nameTok.Value}

	if _, err := p.expect(lexer.OpenParen, "'('"); err != nil {
		return nil, err
	}
	if !p.check(lexer.CloseParen) {
		if wf.Inputs, err = p.symbolList("input name"); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.CloseParen, "')'"); err != nil {
		return nil, err
	}

	explicitOutputs := p.match(lexer.Arrow)
	if explicitOutputs {
		if wf.Outputs, err = p.symbolList("output name"); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.Colon, "':'"); err != nil {
		return nil, err
	}

	for !p.check(lexer.EOF) {
		if p.match(lexer.Return) {
			if wf.Returns, err = p.symbolList("return symbol"); err != nil {
				return nil, err
			}
			p.match(lexer.Semicolon)
			if !explicitOutputs {
				wf.Outputs = append([]string(nil), wf.Returns...)
			}
			return wf, nil
		}

		if !p.check(lexer.Symbol) || p.peekType(1) != lexer.Assign {
			return nil, p.errorf("expected assignment or return in workflow %s, got %s", wf.Name, p.current())
		}
		stmt, err := p.assignment()
		if err != nil {
			return nil, err
		}
		wf.Body = append(wf.Body, stmt)
	}

	return nil, p.errorf("missing return in workflow %s", wf.Name)
}

func (p *parser) symbolList(what string) ([]string, error) {
	var names []string
	for {
		tok, err := p.expect(lexer.Symbol, what)
		if err != nil {
			return nil, err
		}
		names = append(names, tok.Value)
		if !p.match(lexer.Comma) {
			return names, nil
		}
	}
}

func (p *parser) expression() (ast.Expr, error) {
	return p.logicOr()
}

// binary разбирает левоассоциативную цепочку операторов одного уровня.
func (p *parser) binary(next func() (ast.Expr, error), ops ...lexer.TokenType) (ast.Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.check(ops...) {
		op := p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.Call{Token: op, Func: op.Type.String(), Args: []ast.Expr{left, right}}
	}
	return left, nil
}

func (p *parser) logicOr() (ast.Expr, error) {
	return p.binary(p.logicAnd, lexer.Or)
}

func (p *parser) logicAnd() (ast.Expr, error) {
	return p.binary(p.equality, lexer.And)
}

func (p *parser) equality() (ast.Expr, error) {
	return p.binary(p.comparison, lexer.Equals, lexer.NotEquals)
}

func (p *parser) comparison() (ast.Expr, error) {
	return p.binary(p.additive, lexer.Greater, lexer.Less, lexer.GreaterEquals, lexer.LessEquals)
}

func (p *parser) additive() (ast.Expr, error) {
	return p.binary(p.multiplicative, lexer.Plus, lexer.Minus)
}

func (p *parser) multiplicative() (ast.Expr, error) {
	return p.binary(p.unary, lexer.Multiply, lexer.Divide)
}

// unary: '-' и 'not' ('!') правоассоциативны, поэтому --x допустимо.
func (p *parser) unary() (ast.Expr, error) {
	if !p.check(lexer.Minus, lexer.Not) {
		return p.exponent()
	}

	op := p.advance()
	operand, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &ast.Call{Token: op, Func: "unary_" + op.Type.String(), Args: []ast.Expr{operand}}, nil
}

func (p *parser) exponent() (ast.Expr, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if !p.check(lexer.Exponent) {
		return base, nil
	}

	op := p.advance()
	power, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &ast.Call{Token: op, Func: "^", Args: []ast.Expr{base, power}}, nil
}

func (p *parser) primary() (ast.Expr, error) {
	tok := p.current()

	var (
		expr ast.Expr
		err  error
	)
	switch tok.Type {
	case lexer.OpenParen:
		p.advance()
		if expr, err = p.expression(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.CloseParen, "')'"); err != nil {
			return nil, err
		}

	case lexer.OpenBracket:
		p.advance()
		args, err := p.arguments(lexer.CloseBracket, "']'")
		if err != nil {
			return nil, err
		}
		expr = &ast.Call{Token: tok, Func: "array", Args: args}

	case lexer.Symbol:
		p.advance()
		if !p.match(lexer.OpenParen) {
			expr = &ast.Symbol{Token: tok, Name: tok.Value}
			break
		}
		args, err := p.arguments(lexer.CloseParen, "')'")
		if err != nil {
			return nil, err
		}
		expr = &ast.Call{Token: tok, Func: tok.Value, Args: args}

	case lexer.String:
		p.advance()
		expr = &ast.Literal{Token: tok, Value: tok.Value}

	case lexer.Number:
		p.advance()
		v, err := parseNumber(tok)
		if err != nil {
			return nil, err
		}
		expr = &ast.Literal{Token: tok, Value: v}

	case lexer.True, lexer.False:
		p.advance()
		expr = &ast.Literal{Token: tok, Value: tok.Type == lexer.True}

	default:
		return nil, p.errorf("unexpected token %s", tok)
	}

	return p.trailers(expr)
}

// arguments разбирает список выражений через запятую до закрывающего токена.
func (p *parser) arguments(closing lexer.TokenType, what string) ([]ast.Expr, error) {
	var args []ast.Expr
	if !p.check(closing) {
		for {
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(lexer.Comma) {
				break
			}
		}
	}
	if _, err := p.expect(closing, what); err != nil {
		return nil, err
	}
	return args, nil
}

// trailers превращает x.name в getattr(x, "name").
func (p *parser) trailers(expr ast.Expr) (ast.Expr, error) {
	for p.match(lexer.Dot) {
		prop, err := p.expect(lexer.Symbol, "property name")
		if err != nil {
			return nil, err
		}
		expr = &ast.Call{
			Token: prop,
			Func:  "getattr",
			Args:  []ast.Expr{expr, &ast.Literal{Token: prop, Value: prop.Value}},
		}
	}
	return expr, nil
}

// parseNumber: вещественное, если в записи есть точка или экспонента.
func parseNumber(tok lexer.Token) (any, error) {
	if strings.ContainsAny(tok.Value, ".eE") {
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, &lexer.SyntaxError{Token: tok, Message: fmt.Sprintf("invalid number %q", tok.Value)}
		}
		return f, nil
	}

	n, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		return nil, &lexer.SyntaxError{Token: tok, Message: fmt.Sprintf("integer out of range %q", tok.Value)}
	}
	return n, nil
}
