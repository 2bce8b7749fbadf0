package builder

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shaiso/Kira/internal/ast"
	"github.com/shaiso/Kira/internal/builtins"
	"github.com/shaiso/Kira/internal/engine"
	"github.com/shaiso/Kira/internal/lexer"
	"github.com/shaiso/Kira/internal/node"
	"github.com/shaiso/Kira/internal/value"
)

const addSource = `
workflow add(a, b) -> sum:
    s = a + b;
    return s;
`

func rootContext() *engine.Context {
	return builtins.Default().Install(engine.NewContext(nil))
}

func mustCompile(t *testing.T, src string, opts ...Option) *node.Program {
	t.Helper()
	prog, err := Compile(src, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return prog
}

func mustWorkflow(t *testing.T, prog *node.Program, name string) *node.Workflow {
	t.Helper()
	wf, ok := prog.Workflow(name)
	if !ok {
		t.Fatalf("workflow %s not found", name)
	}
	return wf
}

func TestCompile_AddWorkflow(t *testing.T) {
	prog := mustCompile(t, addSource)
	wf := mustWorkflow(t, prog, "add")

	if wf.Signature() != "workflow add(a, b) -> sum" {
		t.Errorf("unexpected signature: %s", wf.Signature())
	}

	ctx := rootContext()
	prog.Eval(ctx)

	res := node.Invoke(ctx, wf, map[string]*value.Data{
		"a": value.Success("a", value.Int(2)),
		"b": value.Success("b", value.Int(3)),
	})
	if sum := res.Get("sum"); !sum.IsSuccess() || sum.Value().String() != "5" {
		t.Fatalf("expected sum=5, got %v", sum)
	}
}

func TestCompile_MissingInput(t *testing.T) {
	prog := mustCompile(t, addSource)
	wf := mustWorkflow(t, prog, "add")

	res := node.Invoke(rootContext(), wf, map[string]*value.Data{
		"b": value.Success("b", value.Int(3)),
	})

	var ne *value.NodeException
	if !errors.As(res.Get("sum").Err(), &ne) {
		t.Fatalf("expected NodeException, got %v", res.Get("sum"))
	}
	if ne.Kind.Code() != "MISSING_INPUTS" {
		t.Errorf("expected MISSING_INPUTS, got %s", ne.Kind.Code())
	}
	if diff := cmp.Diff([]string{"a"}, ne.Missing); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_ProgramCallsWorkflow(t *testing.T) {
	prog := mustCompile(t, addSource+"r = add(2, 3) * 2\n")
	last := prog.Eval(rootContext())

	if last.Name() != "r" || last.Value().String() != "10" {
		t.Errorf("expected r=10, got %v", last)
	}
}

func TestCompile_ForwardReference(t *testing.T) {
	prog := mustCompile(t, "workflow twice(x) -> y: y = double(x); return y;\n"+
		"workflow double(v) -> w: w = v * 2; return w;\n"+
		"twice(4)")

	if got := prog.Eval(rootContext()); got.Value().String() != "8" {
		t.Errorf("expected 8, got %v", got)
	}
}

func TestCompile_CyclicWorkflow(t *testing.T) {
	prog := mustCompile(t, `
workflow loop(x) -> p, q:
    a = b + x
    b = a + x
    return a, b
`)
	wf := mustWorkflow(t, prog, "loop")

	if err := wf.Validate(); !errors.Is(err, engine.ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}

	res := node.Invoke(rootContext(), wf, map[string]*value.Data{"x": value.Success("x", value.Int(1))})
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

func TestCompile_MultiOutputMembers(t *testing.T) {
	prog := mustCompile(t, `
workflow divmod(a, b) -> q, r:
    q = int(a / b)
    r = a - q * b
    return q, r
d = divmod(7, 2)
d.r
`)
	ctx := rootContext()
	results := prog.Run(ctx)

	if got := results[len(results)-1]; got.Value().String() != "1" {
		t.Errorf("expected d.r=1, got %v", got)
	}
	if obj, ok := ctx.Lookup("d.q"); !ok || obj.(*value.Data).Value().String() != "3" {
		t.Errorf("expected d.q=3 registered, got %v", obj)
	}
}

func TestBuild_Names(t *testing.T) {
	prog := mustCompile(t, "x = 1\ny = x\nz = add(x, 2)\n3\nf(y)")

	hashed := regexp.MustCompile(`^(lit|call)_\d{8}$`)
	var names []string
	for _, s := range prog.Statements {
		names = append(names, s.(node.Binding).Name())
	}

	if diff := cmp.Diff([]string{"x", "y", "z"}, names[:3]); diff != "" {
		t.Errorf("named statements mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(names[3], "lit_") || !hashed.MatchString(names[3]) {
		t.Errorf("expected hashed literal name, got %s", names[3])
	}
	if !strings.HasPrefix(names[4], "call_") || !hashed.MatchString(names[4]) {
		t.Errorf("expected hashed call name, got %s", names[4])
	}

	if inst := prog.Statements[1].(*node.Instance); inst.TargetName() != "identity" {
		t.Errorf("symbol assignment must use identity, got %s", inst.TargetName())
	}
}

func TestHashName_Stable(t *testing.T) {
	tok := lexer.Token{Type: lexer.Number, Value: "3", Line: 1, Column: 5, Offset: 4}

	if HashName("lit", tok) != HashName("lit", tok) {
		t.Error("hash must be stable")
	}

	moved := tok
	moved.Offset = 10
	if HashName("lit", tok) == HashName("lit", moved) {
		t.Error("same text at another offset must get another name")
	}
	if HashName("lit", tok)[4:] == HashName("call", tok)[5:] {
		t.Error("kind must take part in the hash")
	}
}

func TestBuild_WithScopeBindsEagerly(t *testing.T) {
	ctx := rootContext()
	prog := mustCompile(t, "s = 1 + 2\nu = unknown(1)", WithScope(ctx))

	eager := prog.Statements[0].(*node.Instance)
	if eager.Target() == nil || eager.Target().Name() != "+" {
		t.Errorf("expected + bound at build time, got %v", eager.Target())
	}

	deferred := prog.Statements[1].(*node.Instance)
	if deferred.Target() != nil {
		t.Error("unknown name must stay deferred")
	}
}

func TestBuildWorkflow_Errors(t *testing.T) {
	tests := []struct {
		name string
		wf   *ast.Workflow
		want error
	}{
		{"duplicate input", &ast.Workflow{Name: "w", Inputs: []string{"a", "a"}}, ErrDuplicateName},
		{"too many returns", &ast.Workflow{Name: "w", Outputs: []string{"x"}, Returns: []string{"a", "b"}}, ErrReturnArity},
		{"duplicate target", &ast.Workflow{Name: "w", Body: []ast.Stmt{
			&ast.Assignment{Target: "a", Value: &ast.Literal{Value: int64(1)}},
			&ast.Assignment{Target: "a", Value: &ast.Literal{Value: int64(2)}},
		}}, ErrDuplicateName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildWorkflow(tt.wf); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := Compile("workflow w(a) -> b: b = a")
	var se *lexer.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
}

func TestCompile_UnconnectedOutput(t *testing.T) {
	prog := mustCompile(t, "workflow w(a) -> x, y: x = a; return x;")
	wf := mustWorkflow(t, prog, "w")

	res := node.Invoke(rootContext(), wf, map[string]*value.Data{"a": value.Success("a", value.Int(1))})
	if !res.Get("x").IsSuccess() {
		t.Errorf("x must succeed, got %v", res.Get("x"))
	}

	var ne *value.NodeException
	if !errors.As(res.Get("y").Err(), &ne) || ne.Cause.Message() != "Output y is not connected." {
		t.Errorf("expected not connected failure, got %v", res.Get("y").Err())
	}
}
