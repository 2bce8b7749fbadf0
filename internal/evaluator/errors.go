package evaluator

import "errors"

// Ошибки вычислителя.
var (
	// ErrEvaluationNotFound — evaluation не найдено в БД.
	ErrEvaluationNotFound = errors.New("evaluation not found")

	// ErrNotPending — evaluation не в статусе PENDING (уже взято другим worker).
	ErrNotPending = errors.New("evaluation is not in PENDING status")

	// ErrWorkflowNotFound — в программе нет workflow с таким именем.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrUnsupportedInput — JSON-значение нельзя привести к литералу.
	ErrUnsupportedInput = errors.New("unsupported input value")
)
