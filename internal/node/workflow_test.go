package node

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shaiso/Kira/internal/engine"
	"github.com/shaiso/Kira/internal/value"
)

// rootWithAdd создаёт корневой контекст с узлом add.
func rootWithAdd(t *testing.T) *engine.Context {
	t.Helper()
	ctx := engine.NewContext(nil)
	ctx.Register(newAdd(t))
	return ctx
}

func TestWorkflow_ArgumentReferences(t *testing.T) {
	// workflow add3(a, b, c) -> total: s = add(a, b); total = add(s, c); return total;
	wf := NewWorkflow("add3", intPorts("a", "b", "c"), intPorts("total"),
		WithInstances(
			// Объявлены в обратном порядке: порядок задают зависимости
			NewDeferredInstance("total", "add", NewSymbol("s"), NewSymbol("c")),
			NewDeferredInstance("s", "add", NewSymbol("a"), NewSymbol("b")),
		),
		WithReturns("total"),
	)

	res := Invoke(rootWithAdd(t), wf, map[string]*value.Data{
		"a": value.Success("a", value.Int(1)),
		"b": value.Success("b", value.Int(2)),
		"c": value.Success("c", value.Int(3)),
	})

	total := res.Get("total")
	if !total.IsSuccess() || total.Value().String() != "6" {
		t.Fatalf("expected total=6, got %v", total)
	}
}

func TestWorkflow_Edges(t *testing.T) {
	add := newAdd(t)
	wf := NewWorkflow("pipe", intPorts("x", "y"), intPorts("out"),
		WithInstances(NewInstance("first", add), NewInstance("second", add)),
		WithEdges(
			Edge{FromPort: "x", ToNode: "first", ToPort: "a"},
			Edge{FromPort: "y", ToNode: "first", ToPort: "b"},
			Edge{FromNode: "first", FromPort: "sum", ToNode: "second", ToPort: "a"},
			Edge{FromPort: "y", ToNode: "second", ToPort: "b"},
			Edge{FromNode: "second", FromPort: "sum", ToPort: "out"},
		),
	)

	if err := wf.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	res := Invoke(engine.NewContext(nil), wf, map[string]*value.Data{
		"x": value.Success("x", value.Int(10)),
		"y": value.Success("y", value.Int(5)),
	})

	if got := res.Get("out"); !got.IsSuccess() || got.Value().String() != "20" {
		t.Fatalf("expected out=20, got %v", got)
	}
}

func TestWorkflow_CycleReplicatedToEveryOutput(t *testing.T) {
	add := newAdd(t)
	wf := NewWorkflow("loop", intPorts("x"), intPorts("p", "q"),
		WithInstances(NewInstance("a", add), NewInstance("b", add)),
		WithEdges(
			Edge{FromNode: "a", FromPort: "sum", ToNode: "b", ToPort: "a"},
			Edge{FromNode: "b", FromPort: "sum", ToNode: "a", ToPort: "a"},
			Edge{FromPort: "x", ToNode: "a", ToPort: "b"},
			Edge{FromPort: "x", ToNode: "b", ToPort: "b"},
			Edge{FromNode: "a", FromPort: "sum", ToPort: "p"},
			Edge{FromNode: "b", FromPort: "sum", ToPort: "q"},
		),
	)

	if err := wf.Validate(); !errors.Is(err, engine.ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}

	res := Invoke(engine.NewContext(nil), wf, map[string]*value.Data{"x": value.Success("x", value.Int(1))})
	for _, cell := range res.Cells() {
		var ne *value.NodeException
		if !errors.As(cell.Err(), &ne) || ne.Kind != value.FailedOutput {
			t.Fatalf("%s: expected FailedOutput, got %v", cell.Name(), cell.Err())
		}
		if !strings.Contains(ne.Cause.Message(), "cycle") {
			t.Errorf("%s: expected cycle message, got %q", cell.Name(), ne.Cause.Message())
		}
	}
}

func TestWorkflow_OutputNotConnected(t *testing.T) {
	wf := NewWorkflow("half", intPorts("a", "b"), intPorts("sum", "other"),
		WithInstances(NewDeferredInstance("sum", "add", NewSymbol("a"), NewSymbol("b"))),
		WithReturns("sum"),
	)

	res := Invoke(rootWithAdd(t), wf, map[string]*value.Data{
		"a": value.Success("a", value.Int(1)),
		"b": value.Success("b", value.Int(1)),
	})

	if !res.Get("sum").IsSuccess() {
		t.Errorf("connected output must succeed, got %v", res.Get("sum"))
	}

	other := res.Get("other")
	var ne *value.NodeException
	if !errors.As(other.Err(), &ne) {
		t.Fatalf("expected NodeException, got %v", other.Err())
	}
	if ne.Cause.Message() != "Output other is not connected." {
		t.Errorf("unexpected message: %s", ne.Cause.Message())
	}
}

func TestWorkflow_InvalidEdge(t *testing.T) {
	add := newAdd(t)
	tests := []struct {
		name string
		edge Edge
	}{
		{"unknown instance", Edge{FromNode: "ghost", FromPort: "sum", ToPort: "out"}},
		{"unknown input", Edge{FromPort: "nope", ToNode: "s", ToPort: "a"}},
		{"unknown output", Edge{FromNode: "s", FromPort: "sum", ToPort: "nope"}},
		{"unknown node port", Edge{FromNode: "s", FromPort: "total", ToPort: "out"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := NewWorkflow("w", intPorts("x"), intPorts("out"),
				WithInstances(NewInstance("s", add)),
				WithEdges(tt.edge),
			)

			res := Invoke(engine.NewContext(nil), wf, map[string]*value.Data{"x": value.Success("x", value.Int(1))})

			var ne *value.NodeException
			if !errors.As(res.Get("out").Err(), &ne) {
				t.Fatalf("expected NodeException, got %v", res.Get("out").Err())
			}
			var inner *value.NodeException
			if !errors.As(ne.Cause, &inner) || inner.Kind != value.InvalidEdge {
				t.Errorf("expected InvalidEdge cause, got %v", ne.Cause)
			}
		})
	}
}

func TestWorkflow_ChildContextDoesNotLeak(t *testing.T) {
	root := rootWithAdd(t)
	root.Register(value.Success("bias", value.Int(100)))

	wf := NewWorkflow("biased", intPorts("a"), intPorts("out"),
		WithInstances(NewDeferredInstance("out", "add", NewSymbol("a"), NewSymbol("bias"))),
		WithReturns("out"),
	)

	res := Invoke(root, wf, map[string]*value.Data{"a": value.Success("a", value.Int(1))})
	if got := res.Get("out"); got.Value().String() != "101" {
		t.Errorf("expected caller names visible inside workflow, got %v", got)
	}

	if _, ok := root.Lookup("out"); ok {
		t.Error("workflow-local names must not leak to the caller")
	}
	if _, ok := root.Lookup("a"); ok {
		t.Error("workflow inputs must not leak to the caller")
	}
}

func TestWorkflow_FailedDependency(t *testing.T) {
	wf := NewWorkflow("w", intPorts("a"), intPorts("out"),
		WithInstances(NewDeferredInstance("out", "missing_fn", NewSymbol("a"))),
		WithReturns("out"),
	)

	res := Invoke(engine.NewContext(nil), wf, map[string]*value.Data{"a": value.Success("a", value.Int(1))})

	var ne *value.NodeException
	if !errors.As(res.Get("out").Err(), &ne) {
		t.Fatalf("expected NodeException, got %v", res.Get("out").Err())
	}
	var dep *value.FailedDependency
	if !errors.As(ne.Cause, &dep) {
		t.Fatalf("expected FailedDependency cause, got %T", ne.Cause)
	}
	if len(dep.Dependencies) != 1 || dep.Dependencies[0].Name() != "missing_fn" {
		t.Errorf("unexpected dependencies: %v", dep.Dependencies)
	}
}

func TestWorkflow_SequentialStrategy(t *testing.T) {
	var order []string
	trace := func(name string) *Function {
		return MustFunction(name, nil, value.Ports("x"), func() value.Value {
			order = append(order, name)
			return value.Int(0)
		})
	}

	wf := NewWorkflow("seq", nil, nil,
		WithInstances(NewInstance("c", trace("c")), NewInstance("a", trace("a")), NewInstance("b", trace("b"))),
		WithStrategy(Sequential),
	)
	Invoke(engine.NewContext(nil), wf, nil)

	if diff := cmp.Diff([]string{"c", "a", "b"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestInstance_MultiOutputRegistersMembers(t *testing.T) {
	divmod := MustFunction("divmod", intPorts("a", "b"), intPorts("q", "r"), func(a, b value.Value) []value.Value {
		x, _ := a.(value.Literal).AsInt()
		y, _ := b.(value.Literal).AsInt()
		return []value.Value{value.Int(x / y), value.Int(x % y)}
	})

	ctx := engine.NewContext(nil)
	inst := NewInstance("dm", divmod, NewConstant("lit_a", value.Int(7)), NewConstant("lit_b", value.Int(2)))
	out := inst.Eval(ctx)

	res, ok := out.Value().(*value.Result)
	if !ok {
		t.Fatalf("expected Result value, got %T", out.Value())
	}
	if res.Name() != "dm" {
		t.Errorf("expected result named dm, got %s", res.Name())
	}

	for key, want := range map[string]string{"dm.q": "3", "dm.r": "1"} {
		obj, ok := ctx.LookupLocal(key)
		if !ok {
			t.Fatalf("expected %s registered", key)
		}
		if got := obj.(*value.Data).Value().String(); got != want {
			t.Errorf("%s = %s, want %s", key, got, want)
		}
	}
}

func TestInstance_DeferredArityCheckedOnResolve(t *testing.T) {
	ctx := rootWithAdd(t)
	inst := NewDeferredInstance("x", "add", NewSymbol("a"))

	out := inst.Eval(ctx)
	if !out.IsFailure() {
		t.Fatal("expected arity failure")
	}
	if !strings.Contains(out.Err().Message(), "takes 2 inputs, got 1") {
		t.Errorf("unexpected message: %s", out.Err().Message())
	}
}

func TestInstance_DeferredTargetIsNotNode(t *testing.T) {
	ctx := engine.NewContext(nil)
	ctx.Register(value.Success("add", value.Int(1)))

	out := NewDeferredInstance("x", "add").Eval(ctx)
	var fd *value.FailedDependency
	if !errors.As(out.Err(), &fd) || len(fd.Dependencies) != 1 {
		t.Fatalf("expected FailedDependency, got %v", out.Err())
	}
	dep, ok := fd.Dependencies[0].(*value.Data)
	if !ok || !strings.Contains(dep.Err().Message(), engine.ErrUnresolvedNode.Error()+": 'add'") {
		t.Errorf("unexpected dependency: %v", fd.Dependencies[0])
	}
}

func TestInstance_DeferredForwardReference(t *testing.T) {
	ctx := engine.NewContext(nil)
	ctx.Register(value.Success("a", value.Int(1)))
	ctx.Register(value.Success("b", value.Int(2)))

	inst := NewDeferredInstance("r", "add", NewSymbol("a"), NewSymbol("b"))

	// Узел ещё не объявлен
	if out := inst.Eval(ctx); !out.IsFailure() {
		t.Fatal("expected failure before the node is defined")
	}

	ctx.Register(newAdd(t))
	if out := inst.Eval(ctx); !out.IsSuccess() || out.Value().String() != "3" {
		t.Fatalf("expected 3 after definition, got %v", out)
	}
	if inst.Target() == nil {
		t.Error("resolved node must be cached")
	}
}

func TestWorkflow_Signature(t *testing.T) {
	wf := NewWorkflow("add", value.Ports("a", "b"), value.Ports("sum"))
	if wf.Signature() != "workflow add(a, b) -> sum" {
		t.Errorf("unexpected signature: %s", wf.Signature())
	}
}

func TestProgram_EvalReturnsLast(t *testing.T) {
	ctx := rootWithAdd(t)
	prog := NewProgram(
		NewConstant("a", value.Int(4)),
		NewConstant("b", value.Int(5)),
		NewDeferredInstance("c", "add", NewSymbol("a"), NewSymbol("b")),
	)

	last := prog.Eval(ctx)
	if last.Name() != "c" || last.Value().String() != "9" {
		t.Errorf("expected c=9, got %v", last)
	}

	if len(prog.Run(engine.NewContext(ctx))) != 3 {
		t.Error("Run must return every statement result")
	}
}
