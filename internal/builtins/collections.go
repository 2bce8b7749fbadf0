package builtins

import (
	"unicode/utf8"

	"github.com/shaiso/Kira/internal/node"
	"github.com/shaiso/Kira/internal/value"
)

func collections() []node.Node {
	tableIn := value.Port{Name: "table", Type: value.TableType()}

	return []node.Node{
		unary("len", value.AnyType(), length),
		unary("sum", value.ArrayType(value.KindAny), sum),
		unary("mean", value.ArrayType(value.KindAny), mean),
		node.NewVarFunction("array", value.LiteralType(value.KindAny), resultOut, func(args []value.Value) []value.Value {
			return []value.Value{array(args)}
		}),
		node.MustFunction("column",
			[]value.Port{tableIn, {Name: "name", Type: value.LiteralType(value.KindString)}},
			resultOut,
			func(t, name value.Value) value.Value {
				n, _ := name.(value.Literal).AsString()
				return column(t.(*value.Table), n)
			}),
		node.MustFunction("rows", []value.Port{tableIn}, resultOut, func(t value.Value) value.Value {
			return value.Int(int64(t.(*value.Table).Len()))
		}),
	}
}

func length(v value.Value) value.Value {
	switch x := v.(type) {
	case *value.Array:
		return value.Int(int64(x.Len()))
	case *value.Table:
		return value.Int(int64(x.Len()))
	case *value.Result:
		return value.Int(int64(x.Len()))
	case value.Literal:
		if s, ok := x.AsString(); ok {
			return value.Int(int64(utf8.RuneCountInString(s)))
		}
	}
	return value.Errorf("object of type %s has no len()", v.Type())
}

// sum складывает числовой массив; пустой массив даёт 0.
func sum(v value.Value) value.Value {
	arr := v.(*value.Array)
	var (
		ints   int64
		floats float64
		isInt  = true
	)
	for _, it := range arr.Items() {
		if !it.IsNumeric() {
			return value.Errorf("sum of non-numeric array %s", arr.Type())
		}
		if i, ok := it.AsInt(); ok && isInt {
			if ints, ok = addInt(ints, i); !ok {
				return overflow("sum")
			}
			continue
		}
		if isInt {
			floats = float64(ints)
			isInt = false
		}
		f, _ := it.AsFloat()
		floats += f
	}
	if isInt {
		return value.Int(ints)
	}
	return value.Float(floats)
}

func mean(v value.Value) value.Value {
	arr := v.(*value.Array)
	if arr.Len() == 0 {
		return value.Errorf("mean of empty array")
	}
	total := sum(arr)
	lit, ok := total.(value.Literal)
	if !ok {
		return total
	}
	f, _ := lit.AsFloat()
	return value.Float(f / float64(arr.Len()))
}

func array(args []value.Value) value.Value {
	items := make([]value.Literal, len(args))
	for i, a := range args {
		items[i] = a.(value.Literal)
	}
	arr, err := value.ArrayOf(items...)
	if err != nil {
		return value.Errorf("%v", err)
	}
	return arr
}

func column(t *value.Table, name string) value.Value {
	col, ok := t.Column(name)
	if !ok {
		return value.Errorf("column '%s' not found", name)
	}
	return col
}
