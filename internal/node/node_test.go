package node

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shaiso/Kira/internal/engine"
	"github.com/shaiso/Kira/internal/value"
)

// intPorts — порты с типом Literal(integer).
func intPorts(names ...string) []value.Port {
	ports := value.Ports(names...)
	for i := range ports {
		ports[i].Type = value.LiteralType(value.KindInteger)
	}
	return ports
}

func newAdd(t *testing.T) *Function {
	t.Helper()
	f, err := NewFunction("add", intPorts("a", "b"), intPorts("sum"), func(a, b value.Value) value.Value {
		x, _ := a.(value.Literal).AsInt()
		y, _ := b.(value.Literal).AsInt()
		return value.Int(x + y)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f
}

func nodeException(t *testing.T, d *value.Data) *value.NodeException {
	t.Helper()
	var ne *value.NodeException
	if !errors.As(d.Err(), &ne) {
		t.Fatalf("expected NodeException on %s, got %v", d.Name(), d.Err())
	}
	return ne
}

func TestInvoke_Success(t *testing.T) {
	res := Invoke(engine.NewContext(nil), newAdd(t), map[string]*value.Data{
		"a":     value.Success("a", value.Int(2)),
		"b":     value.Success("b", value.Int(3)),
		"extra": value.Success("extra", value.Str("ignored")),
	})

	sum := res.Get("sum")
	if !sum.IsSuccess() {
		t.Fatalf("expected success, got %v", sum)
	}
	if sum.Value().String() != "5" {
		t.Errorf("expected 5, got %s", sum.Value())
	}
}

func TestInvoke_MissingInputs(t *testing.T) {
	tests := []struct {
		name   string
		inputs map[string]*value.Data
		want   []string
	}{
		{"absent", map[string]*value.Data{"b": value.Success("b", value.Int(3))}, []string{"a"}},
		{"failure cell", map[string]*value.Data{
			"a": value.Failure("a", value.NewGenericException("x")),
			"b": value.Success("b", value.Int(3)),
		}, []string{"a"}},
		{"all", nil, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Invoke(engine.NewContext(nil), newAdd(t), tt.inputs)
			ne := nodeException(t, res.Get("sum"))
			if ne.Kind != value.MissingInputs {
				t.Errorf("expected MissingInputs, got %s", ne.Kind)
			}
			if diff := cmp.Diff(tt.want, ne.Missing); diff != "" {
				t.Errorf("missing mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInvoke_WrongInputTypesSkipsCall(t *testing.T) {
	called := false
	f := MustFunction("f", intPorts("a"), value.Ports("x", "y"), func(a value.Value) []value.Value {
		called = true
		return []value.Value{a, a}
	})

	res := Invoke(engine.NewContext(nil), f, map[string]*value.Data{
		"a": value.Success("a", value.Str("nope")),
	})

	if called {
		t.Error("call must not run when input types are wrong")
	}
	for _, cell := range res.Cells() {
		ne := nodeException(t, cell)
		if ne.Kind != value.WrongInputTypes {
			t.Errorf("%s: expected WrongInputTypes, got %s", cell.Name(), ne.Kind)
		}
		if len(ne.Checks) != 1 || ne.Checks[0].Port != "a" {
			t.Errorf("unexpected checks: %+v", ne.Checks)
		}
	}
}

func TestInvoke_OutputArity(t *testing.T) {
	tests := []struct {
		name string
		out  []value.Value
		want value.NodeExceptionKind
	}{
		{"too few", []value.Value{value.Int(1)}, value.MissingOutputs},
		{"too many", []value.Value{value.Int(1), value.Int(2), value.Int(3)}, value.TooManyOutputs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.out
			f := MustFunction("f", nil, value.Ports("x", "y"), func() []value.Value { return out })
			res := Invoke(engine.NewContext(nil), f, nil)

			if res.Len() != 2 {
				t.Fatalf("expected 2 cells, got %d", res.Len())
			}
			for _, cell := range res.Cells() {
				if ne := nodeException(t, cell); ne.Kind != tt.want {
					t.Errorf("%s: expected %s, got %s", cell.Name(), tt.want, ne.Kind)
				}
			}
		})
	}
}

func TestInvoke_PerSlotOutputChecks(t *testing.T) {
	outputs := []value.Port{
		{Name: "ok", Type: value.AnyType()},
		{Name: "failed", Type: value.AnyType()},
		{Name: "typed", Type: value.LiteralType(value.KindString)},
	}
	f := MustFunction("split", nil, outputs, func() []value.Value {
		return []value.Value{value.Int(1), value.Errorf("division by zero"), value.Int(2)}
	})

	res := Invoke(engine.NewContext(nil), f, nil)

	if !res.Get("ok").IsSuccess() {
		t.Errorf("sibling output must stay successful, got %v", res.Get("ok"))
	}

	failed := nodeException(t, res.Get("failed"))
	if failed.Kind != value.FailedOutput {
		t.Errorf("expected FailedOutput, got %s", failed.Kind)
	}
	if failed.Cause == nil || failed.Cause.Message() != "division by zero" {
		t.Errorf("expected wrapped cause, got %v", failed.Cause)
	}

	if typed := nodeException(t, res.Get("typed")); typed.Kind != value.WrongOutputTypes {
		t.Errorf("expected WrongOutputTypes, got %s", typed.Kind)
	}
}

func TestInvoke_Observer(t *testing.T) {
	var events []engine.InvocationEvent
	ctx := engine.NewContext(nil).WithObserver(engine.ObserverFunc(func(ev engine.InvocationEvent) {
		events = append(events, ev)
	}))

	Invoke(ctx, newAdd(t), nil)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Node != "add" || ev.Failures != 1 || ev.FailureKind != "MISSING_INPUTS" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestInvoke_CancelledSkipsCall(t *testing.T) {
	called := false
	f := MustFunction("f", nil, value.Ports("x", "y"), func() []value.Value {
		called = true
		return []value.Value{value.Int(1), value.Int(2)}
	})

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := Invoke(engine.NewContext(nil).WithCancellation(cctx).Child(), f, nil)

	if called {
		t.Error("function must not run after cancellation")
	}
	for _, name := range []string{"x", "y"} {
		d := res.Get(name)
		if d.IsSuccess() || !strings.Contains(d.Err().Error(), "evaluation cancelled") {
			t.Errorf("%s: expected cancellation failure, got %v", name, d)
		}
	}
}

func TestNewFunction_Signature(t *testing.T) {
	tests := []struct {
		name string
		fn   any
		want error
	}{
		{"arity", func(a value.Value) value.Value { return a }, ErrArityMismatch},
		{"not a func", 42, ErrBadSignature},
		{"concrete param", func(a, b value.Literal) value.Value { return a }, ErrBadSignature},
		{"two results", func(a, b value.Value) (value.Value, error) { return a, nil }, ErrBadSignature},
		{"variadic", func(a ...value.Value) value.Value { return nil }, ErrBadSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFunction("f", value.Ports("a", "b"), value.Ports("x"), tt.fn)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMustFunction_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on arity mismatch")
		}
	}()
	MustFunction("f", value.Ports("a", "b"), value.Ports("x"), func(a value.Value) value.Value { return a })
}

func TestFunction_WithContext(t *testing.T) {
	f := MustFunction("names", value.Ports("a"), value.Ports("n"), func(ctx *engine.Context, a value.Value) value.Value {
		return value.Int(int64(ctx.Depth()))
	})

	ctx := engine.NewContext(nil).Child()
	res := Invoke(ctx, f, map[string]*value.Data{"a": value.Success("a", value.Int(0))})

	if got := res.Get("n").Value().String(); got != "1" {
		t.Errorf("expected depth 1, got %s", got)
	}
}

func TestFunction_PanicBecomesErrorValue(t *testing.T) {
	f := MustFunction("boom", nil, value.Ports("x"), func() value.Value {
		panic("kaboom")
	})

	res := Invoke(engine.NewContext(nil), f, nil)
	ne := nodeException(t, res.Get("x"))
	if ne.Kind != value.FailedOutput {
		t.Errorf("expected FailedOutput, got %s", ne.Kind)
	}
}

func TestSymbolAndConstant(t *testing.T) {
	ctx := engine.NewContext(nil)

	c := NewConstant("k", value.Int(7))
	c.Eval(ctx)

	if got := NewSymbol("k").Eval(ctx); !got.IsSuccess() || got.Value().String() != "7" {
		t.Errorf("expected k=7, got %v", got)
	}

	missing := NewSymbol("nope").Eval(ctx)
	if !missing.IsFailure() {
		t.Error("expected failure for unknown symbol")
	}

	if NewSymbol("k").Type().Match(value.Int(1)) {
		t.Error("symbol type must never match")
	}
}
