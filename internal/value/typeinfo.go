package value

import (
	"sort"
	"strings"
)

// TypeKind — вариант дескриптора типа.
type TypeKind int

const (
	TypeAny TypeKind = iota
	TypeLiteral
	TypeTable
	TypeArray
	TypeException
	TypeNode
	TypeResult
	TypeNone
)

var typeKindNames = map[TypeKind]string{
	TypeAny:       "Any",
	TypeLiteral:   "Literal",
	TypeTable:     "Table",
	TypeArray:     "Array",
	TypeException: "Exception",
	TypeNode:      "Node",
	TypeResult:    "Result",
	TypeNone:      "NoType",
}

// String возвращает имя варианта.
func (k TypeKind) String() string {
	if name, ok := typeKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Field — именованное поле дескриптора Result.
type Field struct {
	Name string
	Type TypeInfo
}

// TypeInfo — дескриптор типа.
//
// Закрытое объединение: набор вариантов фиксирован (TypeKind),
// проверка значения выполняется через switch в Match.
// Нулевое значение эквивалентно AnyType().
type TypeInfo struct {
	kind    TypeKind
	literal LiteralKind
	fields  []Field // отсортированы по имени; nil — без ограничений
}

// AnyType совпадает с любым значением.
func AnyType() TypeInfo { return TypeInfo{kind: TypeAny} }

// NoType не совпадает ни с чем.
// Используется для служебных узлов, которые нельзя трактовать как данные.
func NoType() TypeInfo { return TypeInfo{kind: TypeNone} }

// LiteralType — литерал заданного вида (KindAny — любой литерал).
func LiteralType(kind LiteralKind) TypeInfo {
	return TypeInfo{kind: TypeLiteral, literal: kind}
}

// TableType — таблица.
func TableType() TypeInfo { return TypeInfo{kind: TypeTable} }

// ArrayType — массив с элементами заданного вида.
func ArrayType(kind LiteralKind) TypeInfo {
	return TypeInfo{kind: TypeArray, literal: kind}
}

// ExceptionType — исключение-как-значение.
func ExceptionType() TypeInfo { return TypeInfo{kind: TypeException} }

// NodeType — вызываемый узел.
func NodeType() TypeInfo { return TypeInfo{kind: TypeNode} }

// ResultType — набор ячеек. Без полей совпадает с любым Result,
// с полями дополнительно требует наличия и совпадения каждого поля.
func ResultType(fields map[string]TypeInfo) TypeInfo {
	t := TypeInfo{kind: TypeResult}
	if len(fields) == 0 {
		return t
	}
	t.fields = make([]Field, 0, len(fields))
	for name, ft := range fields {
		t.fields = append(t.fields, Field{Name: name, Type: ft})
	}
	sort.Slice(t.fields, func(i, j int) bool { return t.fields[i].Name < t.fields[j].Name })
	return t
}

// Kind возвращает вариант дескриптора.
func (t TypeInfo) Kind() TypeKind { return t.kind }

// LiteralKind возвращает вид литерала для Literal и Array.
func (t TypeInfo) LiteralKind() LiteralKind { return t.literal }

// Fields возвращает поля дескриптора Result.
func (t TypeInfo) Fields() []Field {
	out := make([]Field, len(t.fields))
	copy(out, t.fields)
	return out
}

// Match проверяет, принадлежит ли значение типу.
//
// Проверка поверхностная: смотрит только на вид значения и объявленный
// подвид. Ячейка данных разворачивается до значения; ячейка без значения
// не совпадает ни с чем, кроме Any.
func (t TypeInfo) Match(v Value) bool {
	switch t.kind {
	case TypeAny:
		return true
	case TypeNone:
		return false
	}

	if d, ok := v.(*Data); ok {
		if d == nil || !d.Present() {
			return false
		}
		v = d.Value()
	}
	if v == nil {
		return false
	}

	switch t.kind {
	case TypeLiteral:
		lit, ok := v.(Literal)
		return ok && (t.literal == KindAny || lit.Kind() == t.literal)
	case TypeTable:
		_, ok := v.(*Table)
		return ok
	case TypeArray:
		arr, ok := v.(*Array)
		return ok && (t.literal == KindAny || arr.Kind() == t.literal)
	case TypeException:
		_, ok := v.(ErrorValue)
		return ok
	case TypeNode:
		_, ok := v.(Callable)
		return ok
	case TypeResult:
		res, ok := v.(*Result)
		if !ok {
			return false
		}
		for _, f := range t.fields {
			cell := res.Get(f.Name)
			if !cell.Present() || !f.Type.Match(cell.Value()) {
				return false
			}
		}
		return true
	}
	return false
}

// String возвращает стабильное текстовое представление.
func (t TypeInfo) String() string {
	switch t.kind {
	case TypeLiteral, TypeArray:
		return t.kind.String() + "(" + t.literal.String() + ")"
	case TypeResult:
		if len(t.fields) == 0 {
			return "Result"
		}
		parts := make([]string, len(t.fields))
		for i, f := range t.fields {
			parts[i] = f.Name + ": " + f.Type.String()
		}
		return "Result{" + strings.Join(parts, ", ") + "}"
	default:
		return t.kind.String()
	}
}

// Equal сравнивает дескрипторы по текстовому представлению.
func (t TypeInfo) Equal(other TypeInfo) bool {
	return t.String() == other.String()
}
