// Package ast описывает синтаксическое дерево языка Kira.
package ast

import "github.com/shaiso/Kira/internal/lexer"

// Node — узел синтаксического дерева.
type Node interface {
	// Pos возвращает токен, с которого начинается узел.
	Pos() lexer.Token
}

// Expr — выражение.
type Expr interface {
	Node
	exprNode()
}

// Stmt — оператор.
type Stmt interface {
	Node
	stmtNode()
}

// Literal — число, строка или логическое значение.
// Value хранит int64, float64, string или bool.
type Literal struct {
	Token lexer.Token
	Value any
}

// Symbol — обращение к имени.
type Symbol struct {
	Token lexer.Token
	Name  string
}

// Call — вызов узла. Операторы разбираются в вызовы ("+", "unary_-", "getattr").
type Call struct {
	Token lexer.Token
	Func  string
	Args  []Expr
}

// Assignment — name = expr.
type Assignment struct {
	Token  lexer.Token // токен '='
	Target string
	Value  Expr
}

// ExpressionStmt — выражение как оператор.
type ExpressionStmt struct {
	Expr Expr
}

// Workflow — объявление workflow.
type Workflow struct {
	Token   lexer.Token // токен имени
	Name    string
	Inputs  []string
	Outputs []string
	Returns []string
	Body    []Stmt
}

// Program — корень дерева.
type Program struct {
	Statements []Stmt
}

func (n *Literal) Pos() lexer.Token        { return n.Token }
func (n *Symbol) Pos() lexer.Token         { return n.Token }
func (n *Call) Pos() lexer.Token           { return n.Token }
func (n *Assignment) Pos() lexer.Token     { return n.Token }
func (n *ExpressionStmt) Pos() lexer.Token { return n.Expr.Pos() }
func (n *Workflow) Pos() lexer.Token       { return n.Token }

// Pos возвращает позицию первого оператора.
func (n *Program) Pos() lexer.Token {
	if len(n.Statements) == 0 {
		return lexer.Token{Type: lexer.EOF, Line: 1, Column: 1}
	}
	return n.Statements[0].Pos()
}

func (*Literal) exprNode() {}
func (*Symbol) exprNode()  {}
func (*Call) exprNode()    {}

func (*Assignment) stmtNode()     {}
func (*ExpressionStmt) stmtNode() {}
func (*Workflow) stmtNode()       {}
