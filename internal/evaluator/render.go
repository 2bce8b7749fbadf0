package evaluator

import (
	"errors"
	"time"

	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/node"
	"github.com/shaiso/Kira/internal/value"
)

// Render переводит ячейку данных в OutputView.
func Render(d *value.Data) domain.OutputView {
	view := domain.OutputView{
		Name: d.Name(),
		Type: d.Type().String(),
	}
	if d.Present() {
		view.Value = renderValue(d.Value())
	}
	if exc := d.Err(); exc != nil {
		view.Error = exc.Message()
		view.Code = exceptionCode(exc)
	}
	return view
}

func renderAll(cells []*value.Data) []domain.OutputView {
	views := make([]domain.OutputView, 0, len(cells))
	for _, d := range cells {
		if d != nil {
			views = append(views, Render(d))
		}
	}
	return views
}

// exceptionCode — код NodeException или имя исключения.
func exceptionCode(exc value.Exception) string {
	var ne *value.NodeException
	if errors.As(exc, &ne) {
		return ne.Kind.Code()
	}
	return exc.Name()
}

func renderValue(v value.Value) any {
	switch x := v.(type) {
	case value.Literal:
		return renderLiteral(x)
	case *value.Array:
		items := x.Items()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = renderLiteral(item)
		}
		return out
	case *value.Table:
		rows := x.Rows()
		out := make([][]any, len(rows))
		for i, row := range rows {
			out[i] = make([]any, len(row))
			for j, cell := range row {
				out[i][j] = renderLiteral(cell)
			}
		}
		return map[string]any{"columns": x.Columns(), "rows": out}
	case *value.Result:
		return renderAll(x.Cells())
	case interface{ Signature() string }:
		return x.Signature()
	case node.Node:
		return node.Signature(x)
	}
	return v.String()
}

func renderLiteral(l value.Literal) any {
	t, ok := l.AsTime()
	if !ok {
		return l.Interface()
	}
	if l.Kind() == value.KindDate {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}
