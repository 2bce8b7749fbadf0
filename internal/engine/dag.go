package engine

import (
	"container/heap"
	"fmt"
	"strings"
)

// Node — экземпляр workflow как вершина графа.
type Node struct {
	ID string

	// Index — позиция в объявлении workflow.
	Index int

	// InDegree — число различных зависимостей.
	InDegree int

	DependsOn  []*Node
	Dependents []*Node
}

// Dependency — ребро графа: To читает результат From.
type Dependency struct {
	From string
	To   string
}

// DAG — граф зависимостей экземпляров workflow.
//
// Order заполняет BuildDAG: каждый узел стоит после всех своих
// зависимостей, а из одновременно готовых узлов первым идёт объявленный
// раньше. Поэтому порядок зависит только от объявления и рёбер.
type DAG struct {
	Nodes     map[string]*Node
	RootNodes []*Node
	Order     []*Node

	declared []*Node
}

// NewDAG создаёт пустой граф.
func NewDAG() *DAG {
	return &DAG{Nodes: make(map[string]*Node)}
}

// BuildDAG строит граф и упорядочивает его.
// Цикл даёт ошибку, оборачивающую ErrCyclicDependency.
func BuildDAG(ids []string, deps []Dependency) (*DAG, error) {
	dag := NewDAG()
	for _, id := range ids {
		if err := dag.AddNode(id); err != nil {
			return nil, err
		}
	}
	for _, dep := range deps {
		if err := dag.AddDependency(dep.From, dep.To); err != nil {
			return nil, err
		}
	}

	order, err := dag.sort()
	if err != nil {
		return nil, err
	}
	dag.Order = order
	return dag, nil
}

// AddNode регистрирует узел в порядке объявления.
func (d *DAG) AddNode(id string) error {
	if id == "" {
		return NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
	}
	if _, ok := d.Nodes[id]; ok {
		return NewValidationError(id, "id", "duplicate node ID: "+id, ErrDuplicateNodeID)
	}

	n := &Node{ID: id, Index: len(d.declared)}
	d.Nodes[id] = n
	d.declared = append(d.declared, n)
	return nil
}

// AddDependency добавляет ребро from → to. Повторное ребро игнорируется,
// петля from == to сохраняется и всплывает при сортировке как цикл.
func (d *DAG) AddDependency(from, to string) error {
	src, ok := d.Nodes[from]
	if !ok {
		return NewValidationError(to, "depends_on",
			fmt.Sprintf("depends on unknown node: %s", from), ErrMissingDependency)
	}
	dst, ok := d.Nodes[to]
	if !ok {
		return NewValidationError(from, "dependents",
			fmt.Sprintf("unknown dependent node: %s", to), ErrMissingDependency)
	}

	for _, n := range dst.DependsOn {
		if n == src {
			return nil
		}
	}
	src.Dependents = append(src.Dependents, dst)
	dst.DependsOn = append(dst.DependsOn, src)
	dst.InDegree++
	return nil
}

// sort — алгоритм Кана с очередью по Index.
func (d *DAG) sort() ([]*Node, error) {
	pending := make(map[*Node]int, len(d.declared))
	ready := &readyQueue{}
	d.RootNodes = d.RootNodes[:0]

	for _, n := range d.declared {
		pending[n] = n.InDegree
		if n.InDegree == 0 {
			d.RootNodes = append(d.RootNodes, n)
			heap.Push(ready, n)
		}
	}

	order := make([]*Node, 0, len(d.declared))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(*Node)
		order = append(order, n)
		for _, next := range n.Dependents {
			pending[next]--
			if pending[next] == 0 {
				heap.Push(ready, next)
			}
		}
	}

	if len(order) < len(d.declared) {
		var stuck []string
		for _, n := range d.declared {
			if pending[n] > 0 {
				stuck = append(stuck, n.ID)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrCyclicDependency, strings.Join(stuck, ", "))
	}
	return order, nil
}

// GetNode возвращает узел или nil.
func (d *DAG) GetNode(id string) *Node {
	return d.Nodes[id]
}

// Size — число узлов.
func (d *DAG) Size() int {
	return len(d.Nodes)
}

// OrderIDs возвращает ID в порядке Order.
func (d *DAG) OrderIDs() []string {
	ids := make([]string, 0, len(d.Order))
	for _, n := range d.Order {
		ids = append(ids, n.ID)
	}
	return ids
}

// readyQueue — min-heap готовых узлов по Index.
type readyQueue []*Node

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i].Index < q[j].Index }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)        { *q = append(*q, x.(*Node)) }

func (q *readyQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]
	return n
}
