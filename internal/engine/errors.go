package engine

import "errors"

// Ошибки построения графа.
var (
	// ErrEmptyNodeID — узел без ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrMissingDependency — ребро ссылается на несуществующий узел.
	ErrMissingDependency = errors.New("edge references unknown node")

	// ErrCyclicDependency — обнаружен цикл в зависимостях.
	ErrCyclicDependency = errors.New("cyclic dependency detected")
)

// Ошибки валидации workflow.
var (
	// ErrInvalidEdge — ребро ссылается на неизвестный порт или экземпляр.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrUnresolvedNode — имя экземпляра не разрешается в узел.
	ErrUnresolvedNode = errors.New("instance target is not a node")

	// ErrArityMismatch — число аргументов не совпадает с числом входов узла.
	ErrArityMismatch = errors.New("argument count does not match node inputs")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	NodeID  string // ID узла или экземпляра, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(nodeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
