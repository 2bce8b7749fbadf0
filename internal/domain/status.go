package domain

// EvaluationStatus — статус вычисления.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
type EvaluationStatus string

const (
	// EvaluationStatusPending — вычисление создано и ждёт воркера.
	EvaluationStatusPending EvaluationStatus = "PENDING"

	// EvaluationStatusRunning — вычисление выполняется.
	EvaluationStatusRunning EvaluationStatus = "RUNNING"

	// EvaluationStatusSucceeded — все выходы вычислены без отказов.
	EvaluationStatusSucceeded EvaluationStatus = "SUCCEEDED"

	// EvaluationStatusFailed — ошибка компиляции или отказ хотя бы одного выхода.
	EvaluationStatusFailed EvaluationStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s EvaluationStatus) IsTerminal() bool {
	switch s {
	case EvaluationStatusSucceeded, EvaluationStatusFailed:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление статуса.
func (s EvaluationStatus) String() string {
	return string(s)
}

// ParseEvaluationStatus парсит строку в EvaluationStatus.
// Неизвестная строка даёт false.
func ParseEvaluationStatus(s string) (EvaluationStatus, bool) {
	switch st := EvaluationStatus(s); st {
	case EvaluationStatusPending, EvaluationStatusRunning, EvaluationStatusSucceeded, EvaluationStatusFailed:
		return st, true
	}
	return "", false
}
