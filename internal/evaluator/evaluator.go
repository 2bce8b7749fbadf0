package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/shaiso/Kira/internal/builder"
	"github.com/shaiso/Kira/internal/builtins"
	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/engine"
	"github.com/shaiso/Kira/internal/node"
	"github.com/shaiso/Kira/internal/telemetry"
	"github.com/shaiso/Kira/internal/value"
)

// Request — что вычислить.
type Request struct {
	// Source — исходный текст программы.
	Source string

	// Workflow — имя workflow для вызова.
	// Пустое — результаты всех операторов программы.
	Workflow string

	// Inputs — входы workflow в виде JSON-значений.
	Inputs map[string]any
}

// Outcome — итог вычисления.
type Outcome struct {
	Status   domain.EvaluationStatus
	Outputs  []domain.OutputView
	Error    string
	Duration time.Duration
}

// Evaluator вычисляет программы. Безопасен для конкурентного использования:
// каждое вычисление получает собственное дерево контекстов.
type Evaluator struct {
	registry *builtins.Registry
	strategy node.Strategy
	logger   *slog.Logger
}

// Option настраивает Evaluator.
type Option func(*Evaluator)

// WithRegistry задаёт реестр стандартных функций.
func WithRegistry(r *builtins.Registry) Option {
	return func(e *Evaluator) { e.registry = r }
}

// WithStrategy задаёт порядок выполнения тел workflow.
func WithStrategy(s node.Strategy) Option {
	return func(e *Evaluator) { e.strategy = s }
}

// WithLogger задаёт логгер для событий вызова узлов.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// New создаёт Evaluator со стандартными функциями.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		registry: builtins.Default(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run компилирует и вычисляет программу.
//
// Ошибка компиляции, отменённый контекст или неизвестный workflow дают
// FAILED без выходов. Иначе статус SUCCEEDED, если у каждого выхода есть
// значение.
//
// Отмена ctx во время вычисления проверяется перед каждым вызовом узла:
// оставшиеся узлы отказывают с "evaluation cancelled".
func (e *Evaluator) Run(ctx context.Context, req Request) *Outcome {
	start := time.Now()
	out := e.run(ctx, req)
	out.Duration = time.Since(start)

	telemetry.Evaluations.WithLabelValues(out.Status.String()).Inc()
	telemetry.EvaluationDuration.Observe(out.Duration.Seconds())

	e.logger.Debug("evaluation finished",
		"workflow", req.Workflow,
		"status", out.Status,
		"outputs", len(out.Outputs),
		"duration", out.Duration,
	)
	return out
}

func (e *Evaluator) run(ctx context.Context, req Request) *Outcome {
	if err := ctx.Err(); err != nil {
		return failed(fmt.Errorf("evaluation cancelled: %w", err))
	}

	prog, err := builder.Compile(req.Source, builder.WithStrategy(e.strategy))
	if err != nil {
		return failed(err)
	}

	root := e.registry.Install(engine.NewContext(nil)).WithCancellation(ctx)
	root.WithObserver(engine.MultiObserver{
		telemetry.LogObserver(e.logger),
		telemetry.MetricsObserver(),
	})

	results := prog.Run(root)

	if req.Workflow == "" {
		return summarize(renderAll(results))
	}

	if err := ctx.Err(); err != nil {
		return failed(fmt.Errorf("evaluation cancelled: %w", err))
	}

	wf, ok := prog.Workflow(req.Workflow)
	if !ok {
		return failed(fmt.Errorf("%w: %s", ErrWorkflowNotFound, req.Workflow))
	}

	inputs, err := Inputs(req.Inputs)
	if err != nil {
		return failed(err)
	}

	res := node.Invoke(root, wf, inputs)
	return summarize(renderAll(res.Cells()))
}

// Inputs приводит JSON-значения к ячейкам данных.
//
// Целые числа из JSON (float64 без дробной части) становятся integer,
// массивы — Array однородных литералов, null пропускается.
func Inputs(raw map[string]any) (map[string]*value.Data, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	cells := make(map[string]*value.Data, len(raw))
	for _, name := range names {
		v, err := toValue(raw[name])
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", name, err)
		}
		if v != nil {
			cells[name] = value.Success(name, v)
		}
	}
	return cells, nil
}

func toValue(raw any) (value.Value, error) {
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		items := make([]value.Literal, 0, len(x))
		for _, item := range x {
			lit, err := toLiteral(item)
			if err != nil {
				return nil, err
			}
			items = append(items, lit)
		}
		arr, err := value.ArrayOf(items...)
		if err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return toLiteral(x)
	}
}

func toLiteral(raw any) (value.Literal, error) {
	if f, ok := raw.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return value.Int(int64(f)), nil
	}
	lit, err := value.NewLiteral(raw)
	if err != nil {
		return value.Literal{}, fmt.Errorf("%w: %T", ErrUnsupportedInput, raw)
	}
	return lit, nil
}

func failed(err error) *Outcome {
	return &Outcome{Status: domain.EvaluationStatusFailed, Error: err.Error()}
}

// summarize выводит статус из выходов: первый отказ становится ошибкой.
func summarize(outputs []domain.OutputView) *Outcome {
	out := &Outcome{Status: domain.EvaluationStatusSucceeded, Outputs: outputs}
	for _, o := range outputs {
		if o.Value == nil && o.Error != "" {
			out.Status = domain.EvaluationStatusFailed
			out.Error = o.Name + ": " + o.Error
			break
		}
	}
	return out
}
