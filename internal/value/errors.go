package value

import "errors"

// Ошибки конструирования значений.
var (
	// ErrEmptyData — ячейка без значения и без ошибки.
	ErrEmptyData = errors.New("data cell requires a value or an error")

	// ErrLiteralKind — объявленный тип литерала не совпадает со значением.
	ErrLiteralKind = errors.New("literal value does not match declared kind")

	// ErrUnsupportedLiteral — значение нельзя представить литералом.
	ErrUnsupportedLiteral = errors.New("unsupported literal value")

	// ErrMixedArray — элементы массива разных типов.
	ErrMixedArray = errors.New("array items have mixed kinds")

	// ErrRaggedTable — строка таблицы не совпадает по длине с заголовком.
	ErrRaggedTable = errors.New("table row length does not match columns")

	// ErrDuplicateColumn — повторяющееся имя колонки.
	ErrDuplicateColumn = errors.New("duplicate table column")
)
