package domain

import (
	"time"

	"github.com/google/uuid"
)

// Evaluation — одно вычисление версии script.
//
// Evaluation создаётся когда:
// - Пользователь запускает script через API/CLI
// - Scheduler создаёт вычисление по расписанию
type Evaluation struct {
	// ID — уникальный идентификатор вычисления.
	ID uuid.UUID `json:"id"`

	// ScriptID — ссылка на script.
	ScriptID uuid.UUID `json:"script_id"`

	// Version — версия script, которая вычисляется.
	Version int `json:"version"`

	// Workflow — имя workflow для вызова.
	// Пустое — результат программы (последний оператор).
	Workflow string `json:"workflow,omitempty"`

	// Inputs — входы workflow (JSON значения приводятся к литералам).
	Inputs map[string]any `json:"inputs,omitempty"`

	// Status — текущий статус.
	Status EvaluationStatus `json:"status"`

	// Outputs — выходы вычисления в порядке объявления.
	Outputs []OutputView `json:"outputs,omitempty"`

	// Error — текст ошибки для FAILED.
	Error string `json:"error,omitempty"`

	// IdempotencyKey — ключ для предотвращения дубликатов.
	// Для вычислений по расписанию: "{schedule_id}_{next_due_unix}".
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// StartedAt — время перехода в RUNNING.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// OutputView — выход вычисления в виде, пригодном для JSON.
type OutputView struct {
	// Name — имя выхода или оператора.
	Name string `json:"name"`

	// Type — описание типа значения, например "Literal(integer)".
	Type string `json:"type"`

	// Value — значение; nil для отказа.
	Value any `json:"value,omitempty"`

	// Error — сообщение исключения.
	Error string `json:"error,omitempty"`

	// Code — код NodeException (MISSING_INPUTS, FAILED_OUTPUT, ...).
	Code string `json:"code,omitempty"`
}

// OK возвращает true, если выход вычислен.
func (o OutputView) OK() bool {
	return o.Error == ""
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если вычисление ещё не завершено.
func (e *Evaluation) Duration() time.Duration {
	if e.StartedAt == nil || e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(*e.StartedAt)
}

// IsFinished возвращает true, если вычисление завершено.
func (e *Evaluation) IsFinished() bool {
	return e.Status.IsTerminal()
}

// MarkRunning переводит вычисление в статус RUNNING.
func (e *Evaluation) MarkRunning() {
	now := time.Now()
	e.Status = EvaluationStatusRunning
	e.StartedAt = &now
}

// MarkSucceeded переводит вычисление в статус SUCCEEDED.
func (e *Evaluation) MarkSucceeded(outputs []OutputView) {
	now := time.Now()
	e.Status = EvaluationStatusSucceeded
	e.Outputs = outputs
	e.FinishedAt = &now
}

// MarkFailed переводит вычисление в статус FAILED.
// outputs может быть nil, если программа не скомпилировалась.
func (e *Evaluation) MarkFailed(outputs []OutputView, err string) {
	now := time.Now()
	e.Status = EvaluationStatusFailed
	e.Outputs = outputs
	e.Error = err
	e.FinishedAt = &now
}
