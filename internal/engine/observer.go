package engine

import "time"

// InvocationEvent — сведения об одном вызове узла.
type InvocationEvent struct {
	Node        string
	Outputs     int
	Failures    int    // количество выходов без значения
	FailureKind string // код первой NodeException (MISSING_INPUTS и т.д.) или ""
	Duration    time.Duration
	Depth       int // глубина контекста вызова
}

// Observer получает события вызовов узлов.
// Вызывается синхронно в горутине вычисления.
type Observer interface {
	ObserveInvocation(ev InvocationEvent)
}

// ObserverFunc — адаптер функции к Observer.
type ObserverFunc func(ev InvocationEvent)

// ObserveInvocation реализует Observer.
func (f ObserverFunc) ObserveInvocation(ev InvocationEvent) { f(ev) }

// MultiObserver рассылает события нескольким наблюдателям.
type MultiObserver []Observer

// ObserveInvocation реализует Observer.
func (m MultiObserver) ObserveInvocation(ev InvocationEvent) {
	for _, o := range m {
		if o != nil {
			o.ObserveInvocation(ev)
		}
	}
}

// WithObserver устанавливает наблюдателя на контекст.
// Дочерние контексты находят его через Observer.
func (c *Context) WithObserver(o Observer) *Context {
	c.observer = o
	return c
}

// Observer возвращает ближайшего наблюдателя по цепочке или nil.
func (c *Context) Observer() Observer {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if ctx.observer != nil {
			return ctx.observer
		}
	}
	return nil
}
