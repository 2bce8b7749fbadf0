package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeEvaluations Exchange = "kira.evaluations"
	ExchangeDLQ         Exchange = "kira.dlq"
)

// Queues — имена очередей.
const (
	QueueEvaluationsPending   Queue = "evaluations.pending"
	QueueEvaluationsCompleted Queue = "evaluations.completed"
	QueueDLQEvaluations       Queue = "dlq.evaluations"
)

// Routing keys.
const (
	RoutingKeyPending     RoutingKey = "pending"
	RoutingKeyCompleted   RoutingKey = "completed"
	RoutingKeyDLQEvaluate RoutingKey = "evaluations"
)

// binding связывает очередь с обменником.
type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
	args       amqp.Table
}

// bindings описывает всю топологию.
func bindings() []binding {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQEvaluate),
	}
	return []binding{
		// evaluations.pending — с DLQ: повторно упавшее сообщение уходит в dlq.evaluations
		{QueueEvaluationsPending, RoutingKeyPending, ExchangeEvaluations, dlqArgs},
		{QueueEvaluationsCompleted, RoutingKeyCompleted, ExchangeEvaluations, nil},
		{QueueDLQEvaluations, RoutingKeyDLQEvaluate, ExchangeDLQ, nil},
	}
}

// SetupTopology объявляет обменники, очереди и привязки.
// Операция идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range []Exchange{ExchangeEvaluations, ExchangeDLQ} {
			err := ch.ExchangeDeclare(
				string(ex), // name
				"direct",   // type
				true,       // durable
				false,      // auto-deleted
				false,      // internal
				false,      // no-wait
				nil,        // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		for _, b := range bindings() {
			_, err := ch.QueueDeclare(
				string(b.queue), // name
				true,            // durable
				false,           // delete when unused
				false,           // exclusive
				false,           // no-wait
				b.args,          // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}

			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}
		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Kira RabbitMQ Topology:

    kira.evaluations (direct)
    ├── evaluations.pending [routing: pending]
    │       Consumer: kira-worker
    │       DLQ: dlq.evaluations
    └── evaluations.completed [routing: completed]
            Consumer: subscribers (CLI watch, integrations)

    kira.dlq (direct)
    └── dlq.evaluations [routing: evaluations]
            Manual processing
`
}
