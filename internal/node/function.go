package node

import (
	"fmt"
	"reflect"

	"github.com/shaiso/Kira/internal/engine"
	"github.com/shaiso/Kira/internal/value"
)

var (
	valueType      = reflect.TypeOf((*value.Value)(nil)).Elem()
	valueSliceType = reflect.TypeOf([]value.Value(nil))
	contextType    = reflect.TypeOf((*engine.Context)(nil))
)

// Function — листовой узел поверх Go-функции.
//
// Функция принимает ровно по одному value.Value на каждый объявленный вход
// (опционально первым параметром *engine.Context) и возвращает
// []value.Value или value.Value.
type Function struct {
	name    string
	inputs  []value.Port
	outputs []value.Port

	fn      reflect.Value
	withCtx bool
	single  bool
}

// NewFunction создаёт узел-функцию.
//
// Число параметров fn проверяется при создании: несовпадение с числом
// входов возвращает ErrArityMismatch.
func NewFunction(name string, inputs, outputs []value.Port, fn any) (*Function, error) {
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, fmt.Errorf("%w: %s: expected func, got %T", ErrBadSignature, name, fn)
	}

	t := rv.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w: %s: variadic functions are not supported", ErrBadSignature, name)
	}

	f := &Function{
		name:    name,
		inputs:  append([]value.Port(nil), inputs...),
		outputs: append([]value.Port(nil), outputs...),
		fn:      rv,
	}

	offset := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		f.withCtx = true
		offset = 1
	}

	if t.NumIn()-offset != len(inputs) {
		return nil, fmt.Errorf("%w: %s takes %d values, declared %d inputs",
			ErrArityMismatch, name, t.NumIn()-offset, len(inputs))
	}
	for i := offset; i < t.NumIn(); i++ {
		if t.In(i) != valueType {
			return nil, fmt.Errorf("%w: %s: parameter %d is %s, want value.Value", ErrBadSignature, name, i, t.In(i))
		}
	}

	if t.NumOut() != 1 {
		return nil, fmt.Errorf("%w: %s must return exactly one result", ErrBadSignature, name)
	}
	switch t.Out(0) {
	case valueSliceType:
	case valueType:
		f.single = true
	default:
		return nil, fmt.Errorf("%w: %s returns %s", ErrBadSignature, name, t.Out(0))
	}

	return f, nil
}

// MustFunction — как NewFunction, но паникует при ошибке.
func MustFunction(name string, inputs, outputs []value.Port, fn any) *Function {
	f, err := NewFunction(name, inputs, outputs, fn)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Function) Name() string            { return f.name }
func (f *Function) Type() value.TypeInfo    { return value.NodeType() }
func (f *Function) Inputs() []value.Port    { return append([]value.Port(nil), f.inputs...) }
func (f *Function) Outputs() []value.Port   { return append([]value.Port(nil), f.outputs...) }
func (f *Function) String() string          { return "function " + Signature(f) }
func (f *Function) WithName(n string) *Function {
	c := *f
	c.name = n
	return &c
}

// Call вызывает функцию.
// Паника внутри функции превращается в ErrorValue на всех выходах.
func (f *Function) Call(ctx *engine.Context, inputs []*value.Data) (out []value.Value) {
	defer func() {
		if r := recover(); r != nil {
			out = make([]value.Value, len(f.outputs))
			for i := range out {
				out[i] = value.Errorf("panic in %s: %v", f.name, r)
			}
		}
	}()

	args := make([]reflect.Value, 0, len(inputs)+1)
	if f.withCtx {
		args = append(args, reflect.ValueOf(ctx))
	}
	for _, in := range inputs {
		var v value.Value
		if in != nil {
			v = in.Value()
		}
		rv := reflect.New(valueType).Elem()
		if v != nil {
			rv.Set(reflect.ValueOf(v))
		}
		args = append(args, rv)
	}

	res := f.fn.Call(args)[0]
	if f.single {
		if res.IsNil() {
			return []value.Value{nil}
		}
		return []value.Value{res.Interface().(value.Value)}
	}
	if res.IsNil() {
		return nil
	}
	return res.Interface().([]value.Value)
}

// Variadic — узел с переменным числом входов.
// Экземпляр получает узел нужной арности через WithArity.
type Variadic interface {
	Node
	WithArity(n int) Node
}

// VarFunction — функция с любым числом однотипных входов arg0, arg1, ...
type VarFunction struct {
	name    string
	input   value.TypeInfo
	outputs []value.Port
	arity   int
	fn      func(args []value.Value) []value.Value
}

// NewVarFunction создаёт узел с переменным числом входов типа input.
// Без WithArity узел не принимает входов.
func NewVarFunction(name string, input value.TypeInfo, outputs []value.Port, fn func(args []value.Value) []value.Value) *VarFunction {
	return &VarFunction{
		name:    name,
		input:   input,
		outputs: append([]value.Port(nil), outputs...),
		fn:      fn,
	}
}

func (f *VarFunction) Name() string          { return f.name }
func (f *VarFunction) Type() value.TypeInfo  { return value.NodeType() }
func (f *VarFunction) Outputs() []value.Port { return append([]value.Port(nil), f.outputs...) }
func (f *VarFunction) String() string        { return "function " + f.name + "(...)" }

// Inputs возвращает порты arg0..argN-1 для текущей арности.
func (f *VarFunction) Inputs() []value.Port {
	ports := make([]value.Port, f.arity)
	for i := range ports {
		ports[i] = value.Port{Name: fmt.Sprintf("arg%d", i), Type: f.input}
	}
	return ports
}

// WithArity возвращает копию узла с n входами.
func (f *VarFunction) WithArity(n int) Node {
	c := *f
	c.arity = n
	return &c
}

// Call вызывает функцию. Паника превращается в ErrorValue на всех выходах.
func (f *VarFunction) Call(_ *engine.Context, inputs []*value.Data) (out []value.Value) {
	defer func() {
		if r := recover(); r != nil {
			out = make([]value.Value, len(f.outputs))
			for i := range out {
				out[i] = value.Errorf("panic in %s: %v", f.name, r)
			}
		}
	}()

	args := make([]value.Value, len(inputs))
	for i, in := range inputs {
		if in != nil {
			args[i] = in.Value()
		}
	}
	return f.fn(args)
}
