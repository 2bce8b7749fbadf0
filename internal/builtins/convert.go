package builtins

import (
	"strconv"
	"strings"

	"github.com/shaiso/Kira/internal/node"
	"github.com/shaiso/Kira/internal/value"
)

func conversions() []node.Node {
	return []node.Node{
		node.MustFunction("identity", value.Ports("value"), value.Ports("value"), func(v value.Value) value.Value {
			return v
		}),
		node.MustFunction("getattr",
			[]value.Port{{Name: "object", Type: value.AnyType()}, {Name: "name", Type: value.LiteralType(value.KindString)}},
			value.Ports("value"),
			func(obj, name value.Value) value.Value {
				n, _ := name.(value.Literal).AsString()
				return getattr(obj, n)
			}),
		unary("str", value.AnyType(), func(v value.Value) value.Value { return value.Str(v.String()) }),
		unary("int", value.LiteralType(value.KindAny), toInt),
		unary("float", value.LiteralType(value.KindAny), toFloat),
	}
}

// getattr возвращает ячейку Result, колонку таблицы или имена портов узла.
func getattr(obj value.Value, name string) value.Value {
	switch x := obj.(type) {
	case *value.Result:
		cell := x.Get(name)
		if !cell.Present() {
			return value.ErrorValue{Err: cell.Err()}
		}
		return cell.Value()
	case *value.Table:
		return column(x, name)
	case value.Callable:
		switch name {
		case "inputs":
			return portNames(x.Inputs())
		case "outputs":
			return portNames(x.Outputs())
		}
	}
	return value.Errorf("%s has no attribute '%s'", obj.Type(), name)
}

func portNames(ports []value.Port) *value.Array {
	items := make([]value.Literal, len(ports))
	for i, p := range ports {
		items[i] = value.Str(p.Name)
	}
	return value.NewArray(value.KindString, items)
}

func toInt(v value.Value) value.Value {
	l := v.(value.Literal)
	switch l.Kind() {
	case value.KindInteger:
		return l
	case value.KindNumber:
		f, _ := l.AsFloat()
		return value.Int(int64(f))
	case value.KindBoolean:
		if b, _ := l.AsBool(); b {
			return value.Int(1)
		}
		return value.Int(0)
	case value.KindString:
		s, _ := l.AsString()
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return value.Errorf("invalid literal for int(): '%s'", s)
		}
		return value.Int(n)
	}
	return value.Errorf("cannot convert %s to int", l.Type())
}

func toFloat(v value.Value) value.Value {
	l := v.(value.Literal)
	if f, ok := l.AsFloat(); ok {
		return value.Float(f)
	}
	if s, ok := l.AsString(); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return value.Errorf("could not convert string to float: '%s'", s)
		}
		return value.Float(f)
	}
	return value.Errorf("cannot convert %s to float", l.Type())
}
