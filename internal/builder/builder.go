// Package builder превращает синтаксическое дерево в исполняемую программу.
//
// Литералы становятся константами, символы — ссылками, вызовы —
// экземплярами узлов. Присваивание даёт экземпляру имя цели;
// безымянные промежуточные значения получают стабильные имена
// lit_XXXXXXXX и call_XXXXXXXX (см. HashName).
package builder

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/shaiso/Kira/internal/ast"
	"github.com/shaiso/Kira/internal/engine"
	"github.com/shaiso/Kira/internal/lexer"
	"github.com/shaiso/Kira/internal/node"
	"github.com/shaiso/Kira/internal/parser"
	"github.com/shaiso/Kira/internal/value"
)

// Ошибки построения.
var (
	// ErrDuplicateName — повторяющееся имя входа или цели в workflow.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrReturnArity — return возвращает больше значений, чем объявлено выходов.
	ErrReturnArity = errors.New("return count exceeds declared outputs")

	// ErrUnsupportedNode — узел дерева, который нельзя построить.
	ErrUnsupportedNode = errors.New("unsupported syntax node")
)

// identityNode — узел, в который превращается присваивание символа: y = x.
const identityNode = "identity"

const hashLimit = 100_000_000

// HashName возвращает стабильное имя для безымянного значения.
// Имя зависит от вида, текста и позиции токена.
func HashName(kind string, tok lexer.Token) string {
	h := xxhash.New()
	_, _ = h.WriteString(kind)
	_, _ = h.WriteString("|" + tok.Type.String() + "|" + tok.Value + "|")
	_, _ = fmt.Fprintf(h, "%d", tok.Offset)
	return fmt.Sprintf("%s_%08d", kind, h.Sum64()%hashLimit)
}

// Option настраивает Builder.
type Option func(*Builder)

// WithScope задаёт контекст, в котором имена вызовов разрешаются при
// построении. Найденный узел связывается с экземпляром сразу; остальные
// имена разрешаются при вычислении.
func WithScope(ctx *engine.Context) Option {
	return func(b *Builder) { b.scope = ctx }
}

// WithStrategy задаёт порядок вычисления тел workflow.
func WithStrategy(s node.Strategy) Option {
	return func(b *Builder) { b.strategy = s }
}

// Builder строит программы из дерева.
type Builder struct {
	scope    *engine.Context
	strategy node.Strategy
}

// New создаёт Builder.
func New(opts ...Option) *Builder {
	b := &Builder{strategy: node.Topological}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build строит программу из дерева.
func Build(prog *ast.Program, opts ...Option) (*node.Program, error) {
	return New(opts...).Build(prog)
}

// BuildWorkflow строит отдельный workflow.
func BuildWorkflow(wf *ast.Workflow, opts ...Option) (*node.Workflow, error) {
	return New(opts...).Workflow(wf)
}

// Compile разбирает и строит исходный текст.
func Compile(src string, opts ...Option) (*node.Program, error) {
	prog, err := parser.ParseString(src)
	if err != nil {
		return nil, err
	}
	return Build(prog, opts...)
}

// Build строит программу из дерева.
func (b *Builder) Build(prog *ast.Program) (*node.Program, error) {
	stmts := make([]node.Expr, 0, len(prog.Statements))
	for _, s := range prog.Statements {
		expr, err := b.statement(s)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, expr)
	}
	return node.NewProgram(stmts...), nil
}

func (b *Builder) statement(s ast.Stmt) (node.Expr, error) {
	switch s := s.(type) {
	case *ast.Assignment:
		return b.expression(s.Value, s.Target)
	case *ast.ExpressionStmt:
		return b.expression(s.Expr, "")
	case *ast.Workflow:
		wf, err := b.Workflow(s)
		if err != nil {
			return nil, err
		}
		return wf, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedNode, s)
}

// Workflow строит workflow. Выходы связываются с return по позиции.
func (b *Builder) Workflow(wf *ast.Workflow) (*node.Workflow, error) {
	if err := unique(wf.Name, "input", wf.Inputs); err != nil {
		return nil, err
	}
	if len(wf.Returns) > len(wf.Outputs) {
		return nil, fmt.Errorf("%w: workflow %s returns %d values, declares %d outputs",
			ErrReturnArity, wf.Name, len(wf.Returns), len(wf.Outputs))
	}

	body := make([]node.Binding, 0, len(wf.Body))
	targets := make([]string, 0, len(wf.Body))
	for _, s := range wf.Body {
		expr, err := b.statement(s)
		if err != nil {
			return nil, err
		}
		binding, ok := expr.(node.Binding)
		if !ok {
			return nil, fmt.Errorf("%w: %T in workflow %s", ErrUnsupportedNode, s, wf.Name)
		}
		body = append(body, binding)
		targets = append(targets, binding.Name())
	}
	if err := unique(wf.Name, "target", targets); err != nil {
		return nil, err
	}

	return node.NewWorkflow(wf.Name, value.Ports(wf.Inputs...), value.Ports(wf.Outputs...),
		node.WithBody(body...),
		node.WithReturns(wf.Returns...),
		node.WithStrategy(b.strategy),
	), nil
}

func unique(workflow, what string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return fmt.Errorf("%w: %s %q in workflow %s", ErrDuplicateName, what, n, workflow)
		}
		seen[n] = true
	}
	return nil
}

// expression строит выражение. Непустой target — имя цели присваивания.
func (b *Builder) expression(e ast.Expr, target string) (node.Expr, error) {
	switch e := e.(type) {
	case *ast.Literal:
		lit, err := value.NewLiteral(e.Value)
		if err != nil {
			return nil, &lexer.SyntaxError{Token: e.Token, Message: err.Error()}
		}
		name := target
		if name == "" {
			name = HashName("lit", e.Token)
		}
		return node.NewConstant(name, lit), nil

	case *ast.Symbol:
		sym := node.NewSymbol(e.Name)
		if target == "" {
			return sym, nil
		}
		return b.instance(target, identityNode, []node.Expr{sym}), nil

	case *ast.Call:
		args := make([]node.Expr, len(e.Args))
		for i, a := range e.Args {
			arg, err := b.expression(a, "")
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		name := target
		if name == "" {
			name = HashName("call", e.Token)
		}
		return b.instance(name, e.Func, args), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedNode, e)
}

func (b *Builder) instance(name, fn string, args []node.Expr) *node.Instance {
	if b.scope != nil {
		if obj, ok := b.scope.Lookup(fn); ok {
			if n, ok := obj.(node.Node); ok {
				return node.NewInstance(name, n, args...)
			}
		}
	}
	return node.NewDeferredInstance(name, fn, args...)
}
