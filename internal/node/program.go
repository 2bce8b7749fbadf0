package node

import (
	"github.com/shaiso/Kira/internal/engine"
	"github.com/shaiso/Kira/internal/value"
)

// Program — последовательность операторов верхнего уровня.
type Program struct {
	Statements []Expr
}

// NewProgram создаёт программу.
func NewProgram(stmts ...Expr) *Program {
	return &Program{Statements: stmts}
}

// Name реализует value.Object.
func (p *Program) Name() string { return "Program" }

// Type — программа не является данными.
func (p *Program) Type() value.TypeInfo { return value.NoType() }

// Eval выполняет операторы по порядку и возвращает результат последнего.
// Для пустой программы возвращает nil.
func (p *Program) Eval(ctx *engine.Context) *value.Data {
	var last *value.Data
	for _, stmt := range p.Statements {
		last = stmt.Eval(ctx)
	}
	return last
}

// Run выполняет операторы по порядку и возвращает все результаты.
func (p *Program) Run(ctx *engine.Context) []*value.Data {
	results := make([]*value.Data, 0, len(p.Statements))
	for _, stmt := range p.Statements {
		results = append(results, stmt.Eval(ctx))
	}
	return results
}

// Workflows возвращает workflow, объявленные в программе.
func (p *Program) Workflows() []*Workflow {
	var out []*Workflow
	for _, stmt := range p.Statements {
		if w, ok := stmt.(*Workflow); ok {
			out = append(out, w)
		}
	}
	return out
}

// Workflow возвращает workflow по имени.
func (p *Program) Workflow(name string) (*Workflow, bool) {
	for _, w := range p.Workflows() {
		if w.Name() == name {
			return w, true
		}
	}
	return nil, false
}
