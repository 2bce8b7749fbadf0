package node

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shaiso/Kira/internal/engine"
	"github.com/shaiso/Kira/internal/value"
)

// Strategy — порядок вычисления тела workflow.
type Strategy int

const (
	// Topological — порядок по зависимостям (рёбра и ссылки аргументов).
	Topological Strategy = iota

	// Sequential — порядок объявления; предполагается, что тело уже упорядочено.
	Sequential
)

// Edge — ребро данных workflow.
// Пустой FromNode или ToNode означает границу workflow (вход или выход).
type Edge struct {
	FromNode string
	FromPort string
	ToNode   string
	ToPort   string
}

// String форматирует ребро.
func (e Edge) String() string {
	return endpoint(e.FromNode, e.FromPort) + " -> " + endpoint(e.ToNode, e.ToPort)
}

func endpoint(node, port string) string {
	if node == "" {
		return port
	}
	return node + "." + port
}

// Workflow — составной узел: набор операторов и рёбер между ними.
type Workflow struct {
	name     string
	inputs   []value.Port
	outputs  []value.Port
	body     []Binding
	edges    []Edge
	returns  []string
	strategy Strategy

	planOnce sync.Once
	plan     *plan
	planErr  error
}

// plan — структура, вычисляемая один раз для workflow.
type plan struct {
	order    []Binding
	bound    map[string]map[string]string // экземпляр → порт → ключ контекста
	outputs  map[string]string            // выход → ключ контекста
	bindings map[string]Binding
}

// WorkflowOption настраивает Workflow.
type WorkflowOption func(*Workflow)

// WithBody задаёт операторы тела (экземпляры и константы).
func WithBody(body ...Binding) WorkflowOption {
	return func(w *Workflow) { w.body = append(w.body, body...) }
}

// WithInstances задаёт экземпляры тела.
func WithInstances(instances ...*Instance) WorkflowOption {
	return func(w *Workflow) {
		for _, inst := range instances {
			w.body = append(w.body, inst)
		}
	}
}

// WithEdges задаёт рёбра данных.
func WithEdges(edges ...Edge) WorkflowOption {
	return func(w *Workflow) { w.edges = append(w.edges, edges...) }
}

// WithReturns связывает выходы по позиции с именами в контексте тела.
func WithReturns(keys ...string) WorkflowOption {
	return func(w *Workflow) { w.returns = append(w.returns, keys...) }
}

// WithStrategy задаёт порядок вычисления тела.
func WithStrategy(s Strategy) WorkflowOption {
	return func(w *Workflow) { w.strategy = s }
}

// NewWorkflow создаёт workflow.
func NewWorkflow(name string, inputs, outputs []value.Port, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		name:    name,
		inputs:  append([]value.Port(nil), inputs...),
		outputs: append([]value.Port(nil), outputs...),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) Name() string          { return w.name }
func (w *Workflow) Type() value.TypeInfo  { return value.NodeType() }
func (w *Workflow) Inputs() []value.Port  { return append([]value.Port(nil), w.inputs...) }
func (w *Workflow) Outputs() []value.Port { return append([]value.Port(nil), w.outputs...) }
func (w *Workflow) Body() []Binding       { return append([]Binding(nil), w.body...) }
func (w *Workflow) Edges() []Edge         { return append([]Edge(nil), w.edges...) }
func (w *Workflow) Returns() []string     { return append([]string(nil), w.returns...) }
func (w *Workflow) Strategy() Strategy    { return w.strategy }

// Signature форматирует объявление: workflow add(a, b) -> sum.
func (w *Workflow) Signature() string {
	return "workflow " + Signature(w)
}

// String реализует value.Value.
func (w *Workflow) String() string { return w.Signature() }

// References — workflow как оператор программы ничего не читает.
func (w *Workflow) References() []string { return nil }

// Eval регистрирует workflow в контексте как оператор программы.
func (w *Workflow) Eval(ctx *engine.Context) *value.Data {
	ctx.Register(w)
	return value.Success(w.name, w)
}

// Call выполняет тело workflow в дочернем контексте вызывающего.
func (w *Workflow) Call(ctx *engine.Context, inputs []*value.Data) []value.Value {
	p, err := w.buildPlan()
	if err != nil {
		return w.failAll(planFailure(err))
	}

	if ctx == nil {
		ctx = engine.NewContext(nil)
	}
	local := ctx.Child()

	// 1. Входы регистрируются под именами портов
	for i, port := range w.inputs {
		if i < len(inputs) && inputs[i] != nil {
			local.Register(inputs[i].WithName(port.Name))
		}
	}

	// 2. Порты рёбер проверяются на разрешённых узлах
	if err := w.validateEdges(local, p); err != nil {
		return w.failAll(&value.NodeException{Node: w.name, Kind: value.InvalidEdge, Msg: err.Error()})
	}

	// 3. Тело
	for _, b := range p.order {
		inst, ok := b.(*Instance)
		if !ok {
			b.Eval(local)
			continue
		}
		var bound map[string]*value.Data
		if keys := p.bound[inst.Name()]; len(keys) > 0 {
			bound = make(map[string]*value.Data, len(keys))
			for port, key := range keys {
				bound[port] = resolveKey(local, key)
			}
		}
		inst.EvalWith(local, bound)
	}

	// 4. Выходы
	results := make([]value.Value, len(w.outputs))
	for i, out := range w.outputs {
		key, ok := p.outputs[out.Name]
		if !ok {
			results[i] = value.Errorf(msgNotConnected, out.Name)
			continue
		}
		d := resolveKey(local, key)
		if d.Present() {
			results[i] = d.Value()
		} else {
			results[i] = value.ErrorValue{Err: d.Err()}
		}
	}
	return results
}

func (w *Workflow) failAll(exc value.Exception) []value.Value {
	out := make([]value.Value, len(w.outputs))
	for i := range out {
		out[i] = value.ErrorValue{Err: exc}
	}
	return out
}

func planFailure(err error) value.Exception {
	switch {
	case errors.Is(err, engine.ErrCyclicDependency):
		return value.NewGenericException(msgCycle)
	case errors.Is(err, engine.ErrInvalidEdge):
		return &value.NodeException{Kind: value.InvalidEdge, Msg: err.Error()}
	default:
		return value.NewGenericException(err.Error())
	}
}

// Validate проверяет структуру workflow без вычисления.
// Возвращает *engine.ValidationError для неверных рёбер и
// ошибку с engine.ErrCyclicDependency для циклов.
func (w *Workflow) Validate() error {
	_, err := w.buildPlan()
	return err
}

func (w *Workflow) buildPlan() (*plan, error) {
	w.planOnce.Do(func() {
		w.plan, w.planErr = w.computePlan()
	})
	return w.plan, w.planErr
}

func (w *Workflow) computePlan() (*plan, error) {
	p := &plan{
		bound:    make(map[string]map[string]string),
		outputs:  make(map[string]string),
		bindings: make(map[string]Binding, len(w.body)),
	}

	ids := make([]string, 0, len(w.body))
	for _, b := range w.body {
		if _, dup := p.bindings[b.Name()]; dup {
			return nil, engine.NewValidationError(b.Name(), "name",
				fmt.Sprintf("duplicate binding %q in workflow %s", b.Name(), w.name), engine.ErrDuplicateNodeID)
		}
		p.bindings[b.Name()] = b
		ids = append(ids, b.Name())
	}

	inputNames := make(map[string]bool, len(w.inputs))
	for _, in := range w.inputs {
		inputNames[in.Name] = true
	}
	outputNames := make(map[string]bool, len(w.outputs))
	for _, out := range w.outputs {
		outputNames[out.Name] = true
	}

	var deps []engine.Dependency

	// Рёбра: ключи контекста и зависимости
	for _, e := range w.edges {
		var key string
		if e.FromNode == "" {
			if !inputNames[e.FromPort] {
				return nil, invalidEdge(w.name, e, "unknown workflow input "+e.FromPort)
			}
			key = e.FromPort
		} else {
			if _, ok := p.bindings[e.FromNode].(*Instance); !ok {
				return nil, invalidEdge(w.name, e, "unknown instance "+e.FromNode)
			}
			key = e.FromNode + "." + e.FromPort
		}

		if e.ToNode == "" {
			if !outputNames[e.ToPort] {
				return nil, invalidEdge(w.name, e, "unknown workflow output "+e.ToPort)
			}
			p.outputs[e.ToPort] = key
			continue
		}

		if _, ok := p.bindings[e.ToNode].(*Instance); !ok {
			return nil, invalidEdge(w.name, e, "unknown instance "+e.ToNode)
		}
		if p.bound[e.ToNode] == nil {
			p.bound[e.ToNode] = make(map[string]string)
		}
		p.bound[e.ToNode][e.ToPort] = key
		if e.FromNode != "" {
			deps = append(deps, engine.Dependency{From: e.FromNode, To: e.ToNode})
		}
	}

	// Выходы без ребра связываются с return по позиции
	for i, out := range w.outputs {
		if _, ok := p.outputs[out.Name]; ok {
			continue
		}
		if i < len(w.returns) && w.returns[i] != "" {
			p.outputs[out.Name] = w.returns[i]
		}
	}

	if w.strategy == Sequential {
		p.order = append([]Binding(nil), w.body...)
		return p, nil
	}

	// Ссылки аргументов на другие операторы тела
	for _, b := range w.body {
		for _, ref := range b.References() {
			dep := bindingOf(ref, p.bindings)
			if dep == "" || dep == b.Name() {
				continue
			}
			deps = append(deps, engine.Dependency{From: dep, To: b.Name()})
		}
	}

	dag, err := engine.BuildDAG(ids, deps)
	if err != nil {
		return nil, err
	}
	p.order = make([]Binding, 0, len(dag.Order))
	for _, n := range dag.Order {
		p.order = append(p.order, p.bindings[n.ID])
	}
	return p, nil
}

// bindingOf находит оператор тела, к которому относится имя
// ("x" или "x.port").
func bindingOf(ref string, bindings map[string]Binding) string {
	if _, ok := bindings[ref]; ok {
		return ref
	}
	if i := strings.IndexByte(ref, '.'); i > 0 {
		if _, ok := bindings[ref[:i]]; ok {
			return ref[:i]
		}
	}
	return ""
}

// resolveKey разрешает ключ контекста. Если "x.port" не найден, а сам
// оператор x завершился отказом, возвращается его отказ.
func resolveKey(ctx *engine.Context, key string) *value.Data {
	if obj, ok := ctx.Lookup(key); ok {
		return AsData(key, obj)
	}
	if i := strings.IndexByte(key, '.'); i > 0 {
		if obj, ok := ctx.Lookup(key[:i]); ok {
			if d := AsData(key, obj); !d.Present() {
				return d.WithName(key)
			}
		}
	}
	return AsData(key, ctx.Resolve(key))
}

func invalidEdge(workflow string, e Edge, msg string) error {
	return engine.NewValidationError(workflow, "edges",
		fmt.Sprintf("edge %s: %s", e, msg), engine.ErrInvalidEdge)
}

// validateEdges проверяет порты рёбер на узлах, разрешённых в ctx.
// Экземпляры, которые не разрешаются, пропускаются: их отказ
// проявится при вычислении как FailedDependency.
func (w *Workflow) validateEdges(ctx *engine.Context, p *plan) error {
	for _, e := range w.edges {
		if e.FromNode != "" {
			inst := p.bindings[e.FromNode].(*Instance)
			if n, fail := inst.Resolve(ctx); fail == nil && !hasPort(n.Outputs(), e.FromPort) {
				return invalidEdge(w.name, e, fmt.Sprintf("node %s has no output %s", n.Name(), e.FromPort))
			}
		}
		if e.ToNode != "" {
			inst := p.bindings[e.ToNode].(*Instance)
			if n, fail := inst.Resolve(ctx); fail == nil && !hasPort(n.Inputs(), e.ToPort) {
				return invalidEdge(w.name, e, fmt.Sprintf("node %s has no input %s", n.Name(), e.ToPort))
			}
		}
	}
	return nil
}

func hasPort(ports []value.Port, name string) bool {
	for _, p := range ports {
		if p.Name == name {
			return true
		}
	}
	return false
}
