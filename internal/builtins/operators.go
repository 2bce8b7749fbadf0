package builtins

import (
	"math"
	"strings"

	"github.com/shaiso/Kira/internal/node"
	"github.com/shaiso/Kira/internal/value"
)

var (
	anyIn  = value.Ports("a", "b")
	boolIn = []value.Port{
		{Name: "a", Type: value.LiteralType(value.KindBoolean)},
		{Name: "b", Type: value.LiteralType(value.KindBoolean)},
	}
	resultOut = value.Ports("result")
)

func binary(name string, inputs []value.Port, fn func(a, b value.Value) value.Value) node.Node {
	return node.MustFunction(name, inputs, resultOut, fn)
}

func unary(name string, input value.TypeInfo, fn func(a value.Value) value.Value) node.Node {
	return node.MustFunction(name, []value.Port{{Name: "a", Type: input}}, resultOut, fn)
}

func operators() []node.Node {
	return []node.Node{
		binary("+", anyIn, add),
		binary("-", anyIn, arith("-", subInt, func(x, y float64) float64 { return x - y })),
		binary("*", anyIn, arith("*", mulInt, func(x, y float64) float64 { return x * y })),
		binary("/", anyIn, divide),
		binary("^", anyIn, power),

		binary("==", anyIn, func(a, b value.Value) value.Value { return value.Bool(equal(a, b)) }),
		binary("!=", anyIn, func(a, b value.Value) value.Value { return value.Bool(!equal(a, b)) }),
		binary(">", anyIn, ordered(">", func(c int) bool { return c > 0 })),
		binary("<", anyIn, ordered("<", func(c int) bool { return c < 0 })),
		binary(">=", anyIn, ordered(">=", func(c int) bool { return c >= 0 })),
		binary("<=", anyIn, ordered("<=", func(c int) bool { return c <= 0 })),

		binary("and", boolIn, func(a, b value.Value) value.Value { return value.Bool(truth(a) && truth(b)) }),
		binary("or", boolIn, func(a, b value.Value) value.Value { return value.Bool(truth(a) || truth(b)) }),

		unary("unary_-", value.AnyType(), negate),
		unary("unary_not", value.LiteralType(value.KindBoolean), func(a value.Value) value.Value {
			return value.Bool(!truth(a))
		}),
	}
}

// numbers возвращает операнды как числовые литералы.
func numbers(a, b value.Value) (value.Literal, value.Literal, bool) {
	x, okX := a.(value.Literal)
	y, okY := b.(value.Literal)
	if !okX || !okY || !x.IsNumeric() || !y.IsNumeric() {
		return value.Literal{}, value.Literal{}, false
	}
	return x, y, true
}

func unsupported(op string, a, b value.Value) value.Value {
	return value.Errorf("unsupported operand types for %s: %s and %s", op, a.Type(), b.Type())
}

func bothInts(x, y value.Literal) (int64, int64, bool) {
	i, okX := x.AsInt()
	j, okY := y.AsInt()
	return i, j, okX && okY
}

// arith — операция, сохраняющая целый тип для целых операндов.
// Переполнение int64 даёт ошибку-значение, а не усечённый результат.
func arith(op string, ints func(x, y int64) (int64, bool), floats func(x, y float64) float64) func(a, b value.Value) value.Value {
	return func(a, b value.Value) value.Value {
		x, y, ok := numbers(a, b)
		if !ok {
			return unsupported(op, a, b)
		}
		if i, j, ok := bothInts(x, y); ok {
			r, ok := ints(i, j)
			if !ok {
				return overflow(op)
			}
			return value.Int(r)
		}
		fx, _ := x.AsFloat()
		fy, _ := y.AsFloat()
		return value.Float(floats(fx, fy))
	}
}

var addNumbers = arith("+", addInt, func(x, y float64) float64 { return x + y })

func overflow(op string) value.Value {
	return value.Errorf("integer overflow in %s", op)
}

// addInt, subInt и mulInt возвращают false при переполнении int64.
func addInt(x, y int64) (int64, bool) {
	r := x + y
	return r, (r > x) == (y > 0)
}

func subInt(x, y int64) (int64, bool) {
	r := x - y
	return r, (r < x) == (y > 0)
}

func mulInt(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	if (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return 0, false
	}
	r := x * y
	return r, r/y == x
}

// powInt возводит в неотрицательную степень возведением в квадрат:
// O(log n) умножений, каждое с проверкой переполнения.
func powInt(base, exp int64) (int64, bool) {
	r := int64(1)
	for exp > 0 {
		var ok bool
		if exp&1 == 1 {
			if r, ok = mulInt(r, base); !ok {
				return 0, false
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, ok = mulInt(base, base); !ok {
				return 0, false
			}
		}
	}
	return r, true
}

// add складывает числа или склеивает строки.
func add(a, b value.Value) value.Value {
	if x, ok := a.(value.Literal); ok {
		if y, ok := b.(value.Literal); ok {
			xs, okX := x.AsString()
			ys, okY := y.AsString()
			if okX && okY {
				return value.Str(xs + ys)
			}
		}
	}
	return addNumbers(a, b)
}

// divide всегда возвращает вещественное число.
func divide(a, b value.Value) value.Value {
	x, y, ok := numbers(a, b)
	if !ok {
		return unsupported("/", a, b)
	}
	fx, _ := x.AsFloat()
	fy, _ := y.AsFloat()
	if fy == 0 {
		return value.Errorf("division by zero")
	}
	return value.Float(fx / fy)
}

// power: целое в неотрицательной целой степени остаётся целым.
func power(a, b value.Value) value.Value {
	x, y, ok := numbers(a, b)
	if !ok {
		return unsupported("^", a, b)
	}
	if i, j, ok := bothInts(x, y); ok && j >= 0 {
		r, ok := powInt(i, j)
		if !ok {
			return overflow("^")
		}
		return value.Int(r)
	}
	fx, _ := x.AsFloat()
	fy, _ := y.AsFloat()
	if fx == 0 && fy < 0 {
		return value.Errorf("division by zero")
	}
	r := math.Pow(fx, fy)
	if math.IsNaN(r) {
		return value.Errorf("%s ^ %s is not a real number", x, y)
	}
	return value.Float(r)
}

func negate(a value.Value) value.Value {
	x, ok := a.(value.Literal)
	if !ok || !x.IsNumeric() {
		return value.Errorf("unsupported operand type for unary -: %s", a.Type())
	}
	if i, ok := x.AsInt(); ok {
		if i == math.MinInt64 {
			return overflow("unary -")
		}
		return value.Int(-i)
	}
	f, _ := x.AsFloat()
	return value.Float(-f)
}

func truth(v value.Value) bool {
	if l, ok := v.(value.Literal); ok {
		b, _ := l.AsBool()
		return b
	}
	return false
}

// equal сравнивает значения; целые и вещественные сравниваются как числа.
func equal(a, b value.Value) bool {
	x, okX := a.(value.Literal)
	y, okY := b.(value.Literal)
	if okX && okY {
		if x.IsNumeric() && y.IsNumeric() {
			fx, _ := x.AsFloat()
			fy, _ := y.AsFloat()
			return fx == fy
		}
		return x.Equal(y)
	}
	return a.Type().Equal(b.Type()) && a.String() == b.String()
}

// compare возвращает -1, 0 или 1 для сравнимых литералов.
func compare(a, b value.Value) (int, bool) {
	x, okX := a.(value.Literal)
	y, okY := b.(value.Literal)
	if !okX || !okY {
		return 0, false
	}

	switch {
	case x.IsNumeric() && y.IsNumeric():
		fx, _ := x.AsFloat()
		fy, _ := y.AsFloat()
		switch {
		case fx < fy:
			return -1, true
		case fx > fy:
			return 1, true
		}
		return 0, true
	case x.Kind() == value.KindString && y.Kind() == value.KindString:
		xs, _ := x.AsString()
		ys, _ := y.AsString()
		return strings.Compare(xs, ys), true
	}

	tx, okX := x.AsTime()
	ty, okY := y.AsTime()
	if !okX || !okY {
		return 0, false
	}
	return tx.Compare(ty), true
}

func ordered(op string, test func(c int) bool) func(a, b value.Value) value.Value {
	return func(a, b value.Value) value.Value {
		c, ok := compare(a, b)
		if !ok {
			return value.Errorf("cannot compare %s and %s with %s", a.Type(), b.Type(), op)
		}
		return value.Bool(test(c))
	}
}
