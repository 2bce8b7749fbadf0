package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/shaiso/Kira/internal/value"
)

// Context — область видимости имён.
//
// Контексты образуют цепочку: поиск идёт от локальной области к родителю.
// Верхний уровень программы получает корневой контекст, каждый вызов
// workflow создаёт дочерний. Локальные имена не видны родителю,
// имена родителя видны ребёнку (локальное имя перекрывает родительское).
//
// Контекст не синхронизирован: одно дерево контекстов — одно вычисление.
type Context struct {
	parent   *Context
	objects  map[string]value.Object
	observer Observer
	done     context.Context
}

// NewContext создаёт контекст с заданным родителем (nil — корневой).
func NewContext(parent *Context) *Context {
	return &Context{
		parent:  parent,
		objects: make(map[string]value.Object),
	}
}

// Child создаёт дочерний контекст.
func (c *Context) Child() *Context {
	return NewContext(c)
}

// Parent возвращает родительский контекст.
func (c *Context) Parent() *Context {
	return c.parent
}

// Depth возвращает глубину контекста (0 — корневой).
func (c *Context) Depth() int {
	depth := 0
	for p := c.parent; p != nil; p = p.parent {
		depth++
	}
	return depth
}

// Register добавляет объект под его именем.
//
// Для Result (или ячейки, содержащей Result) дополнительно регистрирует
// каждую ячейку под составным именем "<имя набора>.<имя ячейки>".
func (c *Context) Register(obj value.Object) *Context {
	if obj == nil {
		return c
	}
	name := obj.Name()
	c.objects[name] = obj

	var res *value.Result
	switch o := obj.(type) {
	case *value.Result:
		res = o
	case *value.Data:
		res, _ = o.Value().(*value.Result)
	}
	if res != nil {
		for _, cell := range res.Cells() {
			c.objects[name+"."+cell.Name()] = cell
		}
	}
	return c
}

// RegisterAs добавляет объект под явно заданным именем.
func (c *Context) RegisterAs(name string, obj value.Object) *Context {
	c.objects[name] = obj
	return c
}

// Lookup ищет объект по цепочке контекстов.
func (c *Context) Lookup(name string) (value.Object, bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if obj, ok := ctx.objects[name]; ok {
			return obj, true
		}
	}
	return nil, false
}

// LookupLocal ищет объект только в текущей области.
func (c *Context) LookupLocal(name string) (value.Object, bool) {
	obj, ok := c.objects[name]
	return obj, ok
}

// Resolve ищет объект по цепочке контекстов.
//
// Промах не прерывает вычисление: возвращается ячейка-отказ
// с GenericException.
func (c *Context) Resolve(name string) value.Object {
	if obj, ok := c.Lookup(name); ok {
		return obj
	}
	return value.Failure(name, value.NewGenericException(
		fmt.Sprintf("Object '%s' not found in context", name)))
}

// Names возвращает отсортированные локальные имена.
func (c *Context) Names() []string {
	names := make([]string, 0, len(c.objects))
	for name := range c.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len возвращает количество локальных объектов.
func (c *Context) Len() int {
	return len(c.objects)
}

// WithCancellation привязывает контекст отмены к области.
// Дочерние области видят его через Err.
func (c *Context) WithCancellation(ctx context.Context) *Context {
	c.done = ctx
	return c
}

// Err возвращает ошибку ближайшего привязанного контекста отмены
// или nil, если отмены нет.
func (c *Context) Err() error {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if ctx.done != nil {
			return ctx.done.Err()
		}
	}
	return nil
}
