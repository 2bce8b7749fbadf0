package node

import (
	"errors"
	"strings"
	"time"

	"github.com/shaiso/Kira/internal/engine"
	"github.com/shaiso/Kira/internal/value"
)

// Node — вызываемая единица с объявленными типизированными портами.
//
// Call — единственная точка расширения; вызывать узлы следует через Invoke,
// который выполняет валидацию входов и выходов.
type Node interface {
	value.Object
	value.Callable

	// Call преобразует проверенные входы в выходные значения.
	// Может вернуть value.ErrorValue для отдельных выходов.
	Call(ctx *engine.Context, inputs []*value.Data) []value.Value
}

// Invoke вызывает узел с поэтапной валидацией.
//
// Этапы выполняются строго по порядку, первый неудачный прерывает вызов:
//  1. все входы присутствуют — иначе MissingInputs на всех выходах;
//  2. типы входов совпадают — иначе WrongInputTypes на всех выходах;
//  3. вызов Call;
//  4. число выходов совпадает — иначе MissingOutputs/TooManyOutputs на всех выходах;
//  5. проверка каждого выхода отдельно: FailedOutput или WrongOutputTypes
//     только для своего слота.
//
// Лишние имена во inputs игнорируются.
func Invoke(ctx *engine.Context, n Node, inputs map[string]*value.Data) *value.Result {
	start := time.Now()
	res := invoke(ctx, n, inputs)
	report(ctx, n, res, time.Since(start))
	return res
}

func invoke(ctx *engine.Context, n Node, inputs map[string]*value.Data) *value.Result {
	inPorts := n.Inputs()
	outPorts := n.Outputs()

	if err := ctx.Err(); err != nil {
		return failAll(n, outPorts, value.NewGenericException("evaluation cancelled: "+err.Error()))
	}

	// 1. Наличие входов
	var missing []string
	for _, p := range inPorts {
		if d, ok := inputs[p.Name]; !ok || !d.Present() {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return failAll(n, outPorts, &value.NodeException{
			Node:    n.Name(),
			Kind:    value.MissingInputs,
			Msg:     strings.Join(missing, ", "),
			Missing: missing,
		})
	}

	// 2. Типы входов
	ordered := make([]*value.Data, len(inPorts))
	var failed []value.TypeCheck
	for i, p := range inPorts {
		d := inputs[p.Name]
		ordered[i] = d
		if !p.Type.Match(d.Value()) {
			failed = append(failed, value.TypeCheck{Port: p.Name, Value: d.Value(), Expected: p.Type})
		}
	}
	if len(failed) > 0 {
		return failAll(n, outPorts, &value.NodeException{
			Node:   n.Name(),
			Kind:   value.WrongInputTypes,
			Msg:    describeChecks(failed),
			Checks: failed,
		})
	}

	// 3. Вызов
	outputs := n.Call(ctx, ordered)

	// 4. Число выходов
	switch {
	case len(outputs) < len(outPorts):
		names := value.PortNames(outPorts[len(outputs):])
		return failAll(n, outPorts, &value.NodeException{
			Node:    n.Name(),
			Kind:    value.MissingOutputs,
			Msg:     strings.Join(names, ", "),
			Missing: names,
		})
	case len(outputs) > len(outPorts):
		return failAll(n, outPorts, &value.NodeException{
			Node: n.Name(),
			Kind: value.TooManyOutputs,
		})
	}

	// 5. Каждый выход отдельно
	cells := make([]*value.Data, len(outPorts))
	for i, p := range outPorts {
		cells[i] = checkOutput(n, p, outputs[i])
	}
	return value.NewResult(n.Name(), cells...)
}

func checkOutput(n Node, p value.Port, v value.Value) *value.Data {
	if ev, ok := v.(value.ErrorValue); ok {
		exc := &value.NodeException{Node: n.Name(), Kind: value.FailedOutput, Cause: ev.Err}
		if ev.Err != nil {
			exc.Msg = ev.Err.Message()
		}
		return value.Failure(p.Name, exc)
	}
	if v == nil || !p.Type.Match(v) {
		check := value.TypeCheck{Port: p.Name, Value: v, Expected: p.Type}
		return value.Failure(p.Name, &value.NodeException{
			Node:   n.Name(),
			Kind:   value.WrongOutputTypes,
			Msg:    check.String(),
			Checks: []value.TypeCheck{check},
		})
	}
	return value.Success(p.Name, v)
}

func failAll(n Node, ports []value.Port, exc value.Exception) *value.Result {
	cells := make([]*value.Data, len(ports))
	for i, p := range ports {
		cells[i] = value.Failure(p.Name, exc)
	}
	return value.NewResult(n.Name(), cells...)
}

func describeChecks(checks []value.TypeCheck) string {
	parts := make([]string, len(checks))
	for i, c := range checks {
		parts[i] = c.String()
	}
	return strings.Join(parts, "; ")
}

// report отправляет событие вызова наблюдателю контекста.
func report(ctx *engine.Context, n Node, res *value.Result, elapsed time.Duration) {
	if ctx == nil {
		return
	}
	obs := ctx.Observer()
	if obs == nil {
		return
	}

	ev := engine.InvocationEvent{
		Node:     n.Name(),
		Outputs:  res.Len(),
		Duration: elapsed,
		Depth:    ctx.Depth(),
	}
	for _, c := range res.Cells() {
		if c.Present() {
			continue
		}
		ev.Failures++
		if ev.FailureKind == "" {
			var ne *value.NodeException
			if errors.As(c.Err(), &ne) {
				ev.FailureKind = ne.Kind.Code()
			} else {
				ev.FailureKind = c.Err().Name()
			}
		}
	}
	obs.ObserveInvocation(ev)
}

// Signature форматирует порты узла: name(a, b) -> x, y.
func Signature(n Node) string {
	return n.Name() + "(" + strings.Join(value.PortNames(n.Inputs()), ", ") + ") -> " +
		strings.Join(value.PortNames(n.Outputs()), ", ")
}
