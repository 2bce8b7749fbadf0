package value

import (
	"fmt"
	"strings"
)

// Table — двумерные именованные данные.
// Для движка содержимое непрозрачно; важны только тип и колонки.
type Table struct {
	columns []string
	rows    [][]Literal
}

// NewTable создаёт таблицу. Значения строк приводятся к литералам.
func NewTable(columns []string, rows [][]any) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c)
		}
		seen[c] = true
	}

	t := &Table{
		columns: append([]string(nil), columns...),
		rows:    make([][]Literal, 0, len(rows)),
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrRaggedTable, i, len(row), len(columns))
		}
		lits := make([]Literal, len(row))
		for j, v := range row {
			if lit, ok := v.(Literal); ok {
				lits[j] = lit
				continue
			}
			lit, err := NewLiteral(v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i, columns[j], err)
			}
			lits[j] = lit
		}
		t.rows = append(t.rows, lits)
	}
	return t, nil
}

// Type реализует Value.
func (t *Table) Type() TypeInfo { return TableType() }

// Columns возвращает имена колонок.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Rows возвращает строки таблицы.
func (t *Table) Rows() [][]Literal {
	out := make([][]Literal, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]Literal(nil), r...)
	}
	return out
}

// Len возвращает количество строк.
func (t *Table) Len() int { return len(t.rows) }

// Column возвращает колонку как массив.
// Вид элементов выводится из значений; для смешанных колонок — KindAny.
func (t *Table) Column(name string) (*Array, bool) {
	idx := -1
	for i, c := range t.columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	items := make([]Literal, len(t.rows))
	for i, r := range t.rows {
		items[i] = r[idx]
	}
	arr, err := ArrayOf(items...)
	if err != nil {
		arr = NewArray(KindAny, items)
	}
	return arr, true
}

// String возвращает краткое описание таблицы.
func (t *Table) String() string {
	return fmt.Sprintf("table[%s](%d rows)", strings.Join(t.columns, ", "), len(t.rows))
}

// Array — однородная одномерная последовательность литералов.
type Array struct {
	kind  LiteralKind
	items []Literal
}

// NewArray создаёт массив заданного вида без проверки элементов.
func NewArray(kind LiteralKind, items []Literal) *Array {
	return &Array{kind: kind, items: append([]Literal(nil), items...)}
}

// ArrayOf создаёт массив, выводя вид из элементов.
// Пустой массив имеет вид KindAny.
func ArrayOf(items ...Literal) (*Array, error) {
	kind := KindAny
	for i, it := range items {
		if i == 0 {
			kind = it.Kind()
			continue
		}
		if it.Kind() != kind {
			return nil, fmt.Errorf("%w: %s and %s", ErrMixedArray, kind, it.Kind())
		}
	}
	return NewArray(kind, items), nil
}

// Type реализует Value.
func (a *Array) Type() TypeInfo { return ArrayType(a.kind) }

// Kind возвращает вид элементов.
func (a *Array) Kind() LiteralKind { return a.kind }

// Items возвращает элементы.
func (a *Array) Items() []Literal { return append([]Literal(nil), a.items...) }

// Len возвращает длину массива.
func (a *Array) Len() int { return len(a.items) }

// String форматирует массив.
func (a *Array) String() string {
	parts := make([]string, len(a.items))
	for i, it := range a.items {
		parts[i] = it.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
