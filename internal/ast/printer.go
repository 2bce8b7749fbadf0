package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint печатает дерево с отступами по глубине.
func Fprint(w io.Writer, n Node) error {
	p := &printer{w: w}
	p.node(n, 0)
	return p.err
}

// Sprint возвращает дерево как строку.
func Sprint(n Node) string {
	var b strings.Builder
	_ = Fprint(&b, n)
	return b.String()
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	prefix := ""
	if depth > 0 {
		prefix = strings.Repeat("   ", depth-1) + "|--"
	}
	_, p.err = fmt.Fprintf(p.w, prefix+format+"\n", args...)
}

func (p *printer) node(n Node, depth int) {
	switch n := n.(type) {
	case *Program:
		p.line(depth, "Program")
		for _, s := range n.Statements {
			p.node(s, depth+1)
		}
	case *Workflow:
		p.line(depth, "Workflow %s(%s) -> %s, returns %s", n.Name,
			strings.Join(n.Inputs, ", "), strings.Join(n.Outputs, ", "), strings.Join(n.Returns, ", "))
		for _, s := range n.Body {
			p.node(s, depth+1)
		}
	case *Assignment:
		p.line(depth, "Assignment %s", n.Target)
		p.node(n.Value, depth+1)
	case *ExpressionStmt:
		p.line(depth, "ExpressionStmt")
		p.node(n.Expr, depth+1)
	case *Call:
		p.line(depth, "Call %s", n.Func)
		for _, a := range n.Args {
			p.node(a, depth+1)
		}
	case *Symbol:
		p.line(depth, "Symbol %s", n.Name)
	case *Literal:
		p.line(depth, "Literal %s", formatLiteral(n.Value))
	default:
		p.line(depth, "%T", n)
	}
}

// binaryOps — вызовы, которые форматируются как инфиксные операторы.
var binaryOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "^": true,
	"==": true, "!=": true, ">": true, "<": true, ">=": true, "<=": true,
	"and": true, "or": true,
}

// Format восстанавливает исходный текст узла.
// Вложенные операторы заключаются в скобки.
func Format(n Node) string {
	switch n := n.(type) {
	case *Program:
		parts := make([]string, len(n.Statements))
		for i, s := range n.Statements {
			parts[i] = Format(s)
		}
		return strings.Join(parts, "\n")
	case *Workflow:
		var b strings.Builder
		fmt.Fprintf(&b, "workflow %s(%s) -> %s:\n", n.Name, strings.Join(n.Inputs, ", "), strings.Join(n.Outputs, ", "))
		for _, s := range n.Body {
			b.WriteString("    ")
			b.WriteString(Format(s))
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "    return %s;", strings.Join(n.Returns, ", "))
		return b.String()
	case *Assignment:
		return n.Target + " = " + Format(n.Value) + ";"
	case *ExpressionStmt:
		return Format(n.Expr) + ";"
	case *Call:
		return formatCall(n)
	case *Symbol:
		return n.Name
	case *Literal:
		if s, ok := n.Value.(string); ok {
			return strconv.Quote(s)
		}
		return formatLiteral(n.Value)
	}
	return ""
}

func formatCall(c *Call) string {
	switch {
	case binaryOps[c.Func] && len(c.Args) == 2:
		return "(" + Format(c.Args[0]) + " " + c.Func + " " + Format(c.Args[1]) + ")"
	case c.Func == "unary_-" && len(c.Args) == 1:
		return "(-" + Format(c.Args[0]) + ")"
	case c.Func == "unary_not" && len(c.Args) == 1:
		return "(not " + Format(c.Args[0]) + ")"
	case c.Func == "getattr" && len(c.Args) == 2:
		if lit, ok := c.Args[1].(*Literal); ok {
			if name, ok := lit.Value.(string); ok {
				return Format(c.Args[0]) + "." + name
			}
		}
	}

	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = Format(a)
	}
	return c.Func + "(" + strings.Join(args, ", ") + ")"
}

func formatLiteral(v any) string {
	switch v := v.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case bool:
		return strconv.FormatBool(v)
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprint(v)
	}
}
