// Package value содержит объектную модель движка Kira.
//
// Включает:
//   - typeinfo.go  — дескрипторы типов (предикаты Match)
//   - object.go    — базовые интерфейсы Object, Value и порты узлов
//   - literal.go   — скалярные литералы
//   - table.go     — таблицы и массивы
//   - data.go      — ячейки данных (значение, ошибка или оба)
//   - result.go    — именованные наборы ячеек
//   - exception.go — таксономия исключений-как-значений
//
// Ячейки данных и исключения неизменяемы после создания.
// Ошибки выполнения не прерывают вычисление, а передаются как данные.
package value
