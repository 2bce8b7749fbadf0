// Package builtins содержит стандартные функции языка Kira.
//
// # Обзор
//
// Парсер превращает операторы в вызовы узлов с фиксированными именами:
// "+", "-", "*", "/", "^", сравнения, "and", "or", "unary_-", "unary_not",
// "getattr" для x.name и "array" для [a, b]. Чтобы программа выполнилась,
// эти узлы должны быть в контексте:
//
//	ctx := engine.NewContext(nil)
//	builtins.Default().Install(ctx)
//
// # Registry
//
// Registry хранит узлы по имени и потокобезопасен:
//
//	r := builtins.Default()
//	n, err := r.Get("+")
//	if errors.Is(err, builtins.ErrFunctionNotFound) {
//	    // неизвестная функция
//	}
//
// # Ошибки значений
//
// Функции не паникуют на неподходящих значениях: они возвращают
// value.ErrorValue, и Invoke помечает выход как FAILED_OUTPUT.
// Деление на ноль — "division by zero".
//
// # Файлы пакета
//
//   - registry.go    — Registry и Default
//   - operators.go   — арифметика, сравнения, логика
//   - collections.go — len, sum, mean, array, column, rows
//   - convert.go     — identity, getattr, str, int, float
package builtins
