package value

import (
	"fmt"
	"strconv"
	"time"
)

// LiteralKind — вид скалярного литерала.
type LiteralKind int

const (
	// KindAny — любой вид (wildcard в дескрипторах).
	KindAny LiteralKind = iota
	KindInteger
	KindNumber
	KindString
	KindBoolean
	KindDate
	KindDateTime
)

var literalKindNames = []string{"any", "integer", "number", "string", "boolean", "date", "datetime"}

// String возвращает имя вида.
func (k LiteralKind) String() string {
	if int(k) >= 0 && int(k) < len(literalKindNames) {
		return literalKindNames[k]
	}
	return "unknown"
}

// ParseLiteralKind разбирает имя вида.
func ParseLiteralKind(s string) (LiteralKind, bool) {
	for i, name := range literalKindNames {
		if name == s {
			return LiteralKind(i), true
		}
	}
	return KindAny, false
}

const dateLayout = "2006-01-02"

// Literal — скалярное значение.
//
// Хранит int64, float64, string, bool или time.Time.
// Литерал вида KindAny может содержать произвольное значение.
type Literal struct {
	kind LiteralKind
	v    any
}

// NewLiteral создаёт литерал с выводом вида из значения.
func NewLiteral(v any) (Literal, error) {
	norm, kind, ok := normalize(v)
	if !ok {
		return Literal{}, fmt.Errorf("%w: %T", ErrUnsupportedLiteral, v)
	}
	return Literal{kind: kind, v: norm}, nil
}

// NewTypedLiteral создаёт литерал объявленного вида.
// Возвращает ErrLiteralKind, если значение не подходит.
func NewTypedLiteral(v any, kind LiteralKind) (Literal, error) {
	if kind == KindAny {
		return Literal{kind: KindAny, v: v}, nil
	}

	norm, inferred, ok := normalize(v)
	if !ok {
		return Literal{}, fmt.Errorf("%w: %T", ErrUnsupportedLiteral, v)
	}

	if inferred == KindDateTime && kind == KindDate {
		t := norm.(time.Time)
		if !isMidnight(t) {
			return Literal{}, fmt.Errorf("%w: %v is not a date", ErrLiteralKind, t)
		}
		return Literal{kind: KindDate, v: t}, nil
	}
	if inferred != kind {
		return Literal{}, fmt.Errorf("%w: %v is %s, declared %s", ErrLiteralKind, v, inferred, kind)
	}
	return Literal{kind: kind, v: norm}, nil
}

// MustLiteral — как NewLiteral, но паникует при ошибке.
func MustLiteral(v any) Literal {
	lit, err := NewLiteral(v)
	if err != nil {
		panic(err)
	}
	return lit
}

// Int создаёт целочисленный литерал.
func Int(v int64) Literal { return Literal{kind: KindInteger, v: v} }

// Float создаёт вещественный литерал.
func Float(v float64) Literal { return Literal{kind: KindNumber, v: v} }

// Str создаёт строковый литерал.
func Str(v string) Literal { return Literal{kind: KindString, v: v} }

// Bool создаёт логический литерал.
func Bool(v bool) Literal { return Literal{kind: KindBoolean, v: v} }

// Date создаёт литерал-дату (UTC, полночь).
func Date(year int, month time.Month, day int) Literal {
	return Literal{kind: KindDate, v: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateTime создаёт литерал даты и времени.
func DateTime(t time.Time) Literal { return Literal{kind: KindDateTime, v: t} }

func normalize(v any) (any, LiteralKind, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), KindInteger, true
	case int8:
		return int64(x), KindInteger, true
	case int16:
		return int64(x), KindInteger, true
	case int32:
		return int64(x), KindInteger, true
	case int64:
		return x, KindInteger, true
	case uint:
		return int64(x), KindInteger, true
	case uint8:
		return int64(x), KindInteger, true
	case uint16:
		return int64(x), KindInteger, true
	case uint32:
		return int64(x), KindInteger, true
	case float32:
		return float64(x), KindNumber, true
	case float64:
		return x, KindNumber, true
	case string:
		return x, KindString, true
	case bool:
		return x, KindBoolean, true
	case time.Time:
		return x, KindDateTime, true
	}
	return nil, KindAny, false
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

// Kind возвращает вид литерала.
func (l Literal) Kind() LiteralKind { return l.kind }

// Interface возвращает хранимое значение.
func (l Literal) Interface() any { return l.v }

// Type реализует Value.
func (l Literal) Type() TypeInfo { return LiteralType(l.kind) }

// AsInt возвращает целое значение.
func (l Literal) AsInt() (int64, bool) {
	v, ok := l.v.(int64)
	return v, ok
}

// AsFloat возвращает числовое значение (целые приводятся к float64).
func (l Literal) AsFloat() (float64, bool) {
	switch v := l.v.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// AsString возвращает строковое значение.
func (l Literal) AsString() (string, bool) {
	v, ok := l.v.(string)
	return v, ok
}

// AsBool возвращает логическое значение.
func (l Literal) AsBool() (bool, bool) {
	v, ok := l.v.(bool)
	return v, ok
}

// AsTime возвращает значение даты или времени.
func (l Literal) AsTime() (time.Time, bool) {
	v, ok := l.v.(time.Time)
	return v, ok
}

// IsNumeric сообщает, является ли литерал числом.
func (l Literal) IsNumeric() bool {
	return l.kind == KindInteger || l.kind == KindNumber
}

// Equal сравнивает литералы по виду и значению.
func (l Literal) Equal(other Literal) bool {
	if l.kind != other.kind {
		return false
	}
	if a, ok := l.v.(time.Time); ok {
		b, ok := other.v.(time.Time)
		return ok && a.Equal(b)
	}
	return l.v == other.v
}

// String форматирует значение для вывода.
func (l Literal) String() string {
	switch v := l.v.(type) {
	case nil:
		return "null"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if l.kind == KindDate {
			return v.Format(dateLayout)
		}
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
