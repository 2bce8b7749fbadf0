package node

import (
	"fmt"

	"github.com/shaiso/Kira/internal/engine"
	"github.com/shaiso/Kira/internal/value"
)

// Expr — выражение, вычисляемое в контексте.
type Expr interface {
	// Eval вычисляет выражение; отказ возвращается как ячейка-отказ.
	Eval(ctx *engine.Context) *value.Data

	// References возвращает имена, которые выражение читает из контекста.
	References() []string
}

// Binding — именованный оператор тела workflow или программы.
type Binding interface {
	Expr
	Name() string
}

// Symbol — обращение к объекту контекста по имени.
type Symbol struct {
	name string
}

// NewSymbol создаёт символ.
func NewSymbol(name string) Symbol { return Symbol{name: name} }

func (s Symbol) Name() string         { return s.name }
func (s Symbol) Type() value.TypeInfo { return value.NoType() }
func (s Symbol) References() []string { return []string{s.name} }

// Eval разрешает имя и приводит объект к ячейке данных.
func (s Symbol) Eval(ctx *engine.Context) *value.Data {
	return AsData(s.name, ctx.Resolve(s.name))
}

// Constant — ячейка данных, заданная при построении (литерал).
type Constant struct {
	data *value.Data
}

// NewConstant создаёт константу с именем name.
func NewConstant(name string, v value.Value) Constant {
	return Constant{data: value.Success(name, v)}
}

func (c Constant) Name() string         { return c.data.Name() }
func (c Constant) Type() value.TypeInfo { return c.data.Type() }
func (c Constant) References() []string { return nil }
func (c Constant) Data() *value.Data    { return c.data }

// Eval регистрирует константу в контексте и возвращает её.
func (c Constant) Eval(ctx *engine.Context) *value.Data {
	ctx.Register(c.data)
	return c.data
}

// AsData приводит объект контекста к ячейке данных.
func AsData(name string, obj value.Object) *value.Data {
	switch o := obj.(type) {
	case *value.Data:
		return o
	case *value.Result:
		return value.Success(name, o)
	case value.Exception:
		return value.Failure(name, o)
	case value.Value:
		return value.Success(name, o)
	case nil:
		return value.Failure(name, value.NewGenericException(
			fmt.Sprintf("Object '%s' not found in context", name)))
	default:
		return value.Failure(name, value.NewGenericException(
			fmt.Sprintf("Object '%s' is not a value", name)))
	}
}
