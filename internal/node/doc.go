// Package node содержит вычислимые узлы Kira.
//
// Включает:
//   - node.go     — контракт Node и конвейер валидации Invoke
//   - function.go — листовые узлы поверх Go-функций
//   - expr.go     — выражения: символы и константы
//   - instance.go — экземпляр узла с аргументами (ленивое разрешение)
//   - workflow.go — составной узел: экземпляры, рёбра, топологический порядок
//   - program.go  — последовательность операторов верхнего уровня
//
// Узлы строятся один раз и переиспользуются; изменяемое состояние
// вычисления хранится только в engine.Context.
package node
