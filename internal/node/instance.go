package node

import (
	"fmt"
	"sync"

	"github.com/shaiso/Kira/internal/engine"
	"github.com/shaiso/Kira/internal/value"
)

// Instance — применение узла к фиксированному списку выражений.
//
// Узел задаётся сразу (NewInstance) или по имени (NewDeferredInstance).
// Отложенное имя разрешается в контексте при первом вычислении и
// кешируется; проверка числа аргументов выполняется в этот момент.
// Это позволяет ссылаться на workflow, объявленные ниже по тексту.
type Instance struct {
	name       string
	target     Node
	targetName string
	args       []Expr

	mu       sync.Mutex
	resolved Node
}

// NewInstance создаёт экземпляр с известным узлом.
func NewInstance(name string, target Node, args ...Expr) *Instance {
	return &Instance{
		name:       name,
		target:     target,
		targetName: target.Name(),
		args:       args,
	}
}

// NewDeferredInstance создаёт экземпляр, узел которого ищется по имени.
func NewDeferredInstance(name, targetName string, args ...Expr) *Instance {
	return &Instance{
		name:       name,
		targetName: targetName,
		args:       args,
	}
}

// Name возвращает имя экземпляра.
func (i *Instance) Name() string { return i.name }

// Type — экземпляр не является данными.
func (i *Instance) Type() value.TypeInfo { return value.NoType() }

// TargetName возвращает имя узла.
func (i *Instance) TargetName() string { return i.targetName }

// Args возвращает выражения аргументов.
func (i *Instance) Args() []Expr { return append([]Expr(nil), i.args...) }

// References возвращает имена, читаемые аргументами.
func (i *Instance) References() []string {
	var refs []string
	for _, a := range i.args {
		refs = append(refs, a.References()...)
	}
	return refs
}

// Target возвращает узел без поиска в контексте (nil для неразрешённого).
func (i *Instance) Target() Node {
	if i.target != nil {
		return i.target
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.resolved
}

// Resolve возвращает узел экземпляра.
//
// Для отложенного имени ищет его в контексте; при неудаче возвращает
// ячейку-отказ с FailedDependency. Кешируется только успешный результат.
func (i *Instance) Resolve(ctx *engine.Context) (Node, *value.Data) {
	if i.target != nil {
		n := i.fit(i.target)
		if fail := i.checkArity(n); fail != nil {
			return nil, fail
		}
		return n, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.resolved != nil {
		return i.resolved, nil
	}

	obj := ctx.Resolve(i.targetName)
	n, ok := nodeOf(obj)
	if !ok {
		dep := AsData(i.targetName, obj)
		if dep.Present() {
			dep = value.Failure(i.targetName, value.NewGenericException(
				fmt.Sprintf("%s: '%s'", engine.ErrUnresolvedNode, i.targetName)))
		}
		return nil, value.Failure(i.name, &value.FailedDependency{Dependencies: []value.Object{dep}})
	}
	n = i.fit(n)
	if fail := i.checkArity(n); fail != nil {
		return nil, fail
	}

	i.resolved = n
	return n, nil
}

// fit подгоняет узел с переменным числом входов под число аргументов.
func (i *Instance) fit(n Node) Node {
	if v, ok := n.(Variadic); ok && len(i.args) > 0 {
		return v.WithArity(len(i.args))
	}
	return n
}

// checkArity допускает либо пустой список аргументов (входы по рёбрам),
// либо ровно по аргументу на каждый вход.
func (i *Instance) checkArity(n Node) *value.Data {
	want := len(n.Inputs())
	if len(i.args) == 0 || len(i.args) == want {
		return nil
	}
	return value.Failure(i.name, value.NewGenericException(fmt.Sprintf(
		"%s: node '%s' takes %d inputs, got %d arguments", engine.ErrArityMismatch, n.Name(), want, len(i.args))))
}

func nodeOf(obj value.Object) (Node, bool) {
	if n, ok := obj.(Node); ok {
		return n, true
	}
	if d, ok := obj.(*value.Data); ok && d.Present() {
		n, ok := d.Value().(Node)
		return n, ok
	}
	return nil, false
}

// Eval вычисляет экземпляр и регистрирует результат в ctx.
func (i *Instance) Eval(ctx *engine.Context) *value.Data {
	return i.EvalWith(ctx, nil)
}

// EvalWith вычисляет экземпляр; входы из bound имеют приоритет над аргументами.
//
// Аргументы вычисляются в дочернем контексте ctx. Результат с одним выходом
// регистрируется как ячейка с именем экземпляра, с несколькими — как
// ячейка, содержащая Result. В обоих случаях выходы доступны
// как "<экземпляр>.<выход>".
func (i *Instance) EvalWith(ctx *engine.Context, bound map[string]*value.Data) *value.Data {
	n, fail := i.Resolve(ctx)
	if fail != nil {
		ctx.Register(fail)
		return fail
	}

	local := ctx.Child()
	ports := n.Inputs()
	inputs := make(map[string]*value.Data, len(ports))
	for k, p := range ports {
		if d, ok := bound[p.Name]; ok {
			inputs[p.Name] = d
			continue
		}
		if k < len(i.args) {
			inputs[p.Name] = i.args[k].Eval(local)
		}
	}

	res := Invoke(local, n, inputs)

	var out *value.Data
	if cells := res.Cells(); len(cells) == 1 {
		out = cells[0].WithName(i.name)
		ctx.RegisterAs(i.name+"."+cells[0].Name(), cells[0])
	} else {
		out = value.Success(i.name, res.WithName(i.name))
	}
	ctx.Register(out)
	return out
}

// String форматирует экземпляр.
func (i *Instance) String() string {
	return fmt.Sprintf("%s = %s(%d args)", i.name, i.targetName, len(i.args))
}
