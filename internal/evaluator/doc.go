// Package evaluator выполняет программы Kira от имени хоста.
//
// Evaluator компилирует исходный текст, вычисляет программу в корневом
// контексте со стандартными функциями и переводит результаты в
// domain.OutputView. Service — долгоживущий процесс kira-worker:
// получает evaluation из очереди evaluations.pending (или polling по БД),
// вычисляет, сохраняет и публикует evaluation.completed.
package evaluator
