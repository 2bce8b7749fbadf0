package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConfirmed — брокер отказался принять сообщение (basic.nack).
var ErrNotConfirmed = errors.New("message not confirmed by broker")

// Publisher публикует сообщения и ждёт подтверждения брокера.
//
// Успешный возврат означает, что сообщение принято брокером. Вызывающий
// может опираться на это: evaluation, для которого публикация не удалась,
// заберёт polling воркера.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Publish отправляет msg и ждёт confirm в пределах ctx.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         string(msg.Type),
		Timestamp:    msg.Timestamp,
		Body:         body,
	}

	err = p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx,
			string(exchange), string(routingKey), false, false, publishing)
		if err != nil {
			return err
		}
		if confirm == nil {
			// Канал не в режиме confirm
			return nil
		}

		acked, err := confirm.WaitContext(ctx)
		if err != nil {
			return err
		}
		if !acked {
			return ErrNotConfirmed
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s/%s: %w", msg.Type, exchange, routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", msg.ID,
		"type", msg.Type,
	)
	return nil
}

// PublishEvaluationPending ставит evaluation в очередь kira-worker.
func (p *Publisher) PublishEvaluationPending(ctx context.Context, evaluationID uuid.UUID) error {
	msg := NewMessage(MessageTypeEvaluationPending, EvaluationPendingPayload{EvaluationID: evaluationID})
	return p.Publish(ctx, ExchangeEvaluations, RoutingKeyPending, msg)
}

// PublishEvaluationCompleted сообщает о завершённом evaluation.
func (p *Publisher) PublishEvaluationCompleted(ctx context.Context, payload EvaluationCompletedPayload) error {
	msg := NewMessage(MessageTypeEvaluationCompleted, payload)
	return p.Publish(ctx, ExchangeEvaluations, RoutingKeyCompleted, msg)
}
