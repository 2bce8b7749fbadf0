// Package engine содержит механизмы вычисления графов Kira.
//
// Включает:
//   - context.go  — иерархический контекст имён (цепочка областей видимости)
//   - observer.go — наблюдение за вызовами узлов (логи, метрики)
//   - dag.go      — построение DAG и топологическая сортировка (алгоритм Кана)
//
// Engine не знает о конкретных узлах: он хранит объекты по именам
// и определяет порядок выполнения по зависимостям.
package engine
