package mq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeEvaluationPending   MessageType = "evaluation.pending"
	MessageTypeEvaluationCompleted MessageType = "evaluation.completed"
)

// Message — JSON-конверт, общий для всех очередей. ID дублируется
// в AMQP MessageId.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(t MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// EvaluationPendingPayload — evaluation создано и ждёт воркера.
type EvaluationPendingPayload struct {
	EvaluationID uuid.UUID `json:"evaluation_id"`
}

// EvaluationCompletedPayload — evaluation завершено.
type EvaluationCompletedPayload struct {
	EvaluationID uuid.UUID `json:"evaluation_id"`
	ScriptID     uuid.UUID `json:"script_id"`
	Status       string    `json:"status"` // SUCCEEDED или FAILED
	Error        string    `json:"error,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
}

// ParsePayload декодирует Payload полученного сообщения в T.
// После разбора конверта Payload хранится как map[string]any,
// поэтому он перекодируется через JSON.
func ParsePayload[T any](msg *Message) (T, error) {
	var out T
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return out, fmt.Errorf("re-encode %s payload: %w", msg.Type, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", msg.Type, err)
	}
	return out, nil
}
