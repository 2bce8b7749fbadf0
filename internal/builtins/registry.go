package builtins

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/Kira/internal/engine"
	"github.com/shaiso/Kira/internal/node"
)

// ErrFunctionNotFound — функция не найдена в реестре.
var ErrFunctionNotFound = errors.New("function not found")

// Registry — реестр узлов-функций по имени.
// Потокобезопасен.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]node.Node
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[string]node.Node),
	}
}

// Default создаёт реестр со всеми стандартными функциями.
func Default() *Registry {
	r := NewRegistry()

	for _, n := range operators() {
		r.Register(n)
	}
	for _, n := range collections() {
		r.Register(n)
	}
	for _, n := range conversions() {
		r.Register(n)
	}

	return r
}

// Register регистрирует узел под его именем.
// Узел с тем же именем перезаписывается.
func (r *Registry) Register(n node.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[n.Name()] = n
}

// Get возвращает узел по имени.
// Возвращает ErrFunctionNotFound, если узел не найден.
func (r *Registry) Get(name string) (node.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.nodes[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	return n, nil
}

// Has проверяет, зарегистрирован ли узел.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.nodes[name]
	return exists
}

// Names возвращает отсортированный список имён.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.nodes))
	for name := range r.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count возвращает количество зарегистрированных узлов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Unregister удаляет узел из реестра.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, name)
}

// Install регистрирует все узлы в контексте в порядке имён.
func (r *Registry) Install(ctx *engine.Context) *engine.Context {
	for _, name := range r.Names() {
		n, err := r.Get(name)
		if err != nil {
			continue
		}
		ctx.Register(n)
	}
	return ctx
}
