package value

import (
	"fmt"
	"strings"
)

// Result — именованный упорядоченный набор ячеек.
// Результат узла с несколькими выходами.
type Result struct {
	name  string
	cells []*Data
}

// NewResult создаёт набор. Пустое имя заменяется на "Result".
func NewResult(name string, cells ...*Data) *Result {
	if name == "" {
		name = "Result"
	}
	return &Result{name: name, cells: append([]*Data(nil), cells...)}
}

// Name реализует Object.
func (r *Result) Name() string { return r.name }

// Get возвращает ячейку по имени.
// Для отсутствующего имени возвращает отказ с MissingResult.
func (r *Result) Get(name string) *Data {
	for _, c := range r.cells {
		if c.Name() == name {
			return c
		}
	}
	return Failure(name, &MissingResult{
		Missing: name,
		Msg:     fmt.Sprintf("Missing result '%s' in Result '%s'", name, r.name),
	})
}

// Cells возвращает ячейки в порядке добавления.
func (r *Result) Cells() []*Data { return append([]*Data(nil), r.cells...) }

// Names возвращает имена ячеек.
func (r *Result) Names() []string {
	names := make([]string, len(r.cells))
	for i, c := range r.cells {
		names[i] = c.Name()
	}
	return names
}

// Len возвращает количество ячеек.
func (r *Result) Len() int { return len(r.cells) }

// OK сообщает, что все ячейки содержат значения.
func (r *Result) OK() bool {
	for _, c := range r.cells {
		if !c.Present() {
			return false
		}
	}
	return true
}

// WithName возвращает копию набора с другим именем.
func (r *Result) WithName(name string) *Result {
	return &Result{name: name, cells: r.cells}
}

// Type описывает набор через типы его ячеек.
func (r *Result) Type() TypeInfo {
	fields := make(map[string]TypeInfo, len(r.cells))
	for _, c := range r.cells {
		fields[c.Name()] = c.Type()
	}
	return ResultType(fields)
}

// String форматирует набор.
func (r *Result) String() string {
	parts := make([]string, len(r.cells))
	for i, c := range r.cells {
		parts[i] = c.String()
	}
	return r.name + "{" + strings.Join(parts, "; ") + "}"
}
