package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// resubscribeDelay — пауза перед повторной подпиской, если канал закрылся,
// а соединение осталось живым.
const resubscribeDelay = 5 * time.Second

// Handler обрабатывает сообщение.
// Ошибка означает nack: при первой доставке сообщение возвращается в очередь,
// при повторной уходит в DLQ.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — доставленное сообщение.
type Delivery struct {
	// Message — распарсенный конверт.
	Message Message

	// Raw — исходная AMQP доставка.
	Raw amqp.Delivery
}

// Consumer читает очередь на собственном канале и переподписывается
// после разрыва соединения.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int
	tag      string

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	Queue   Queue
	Handler Handler

	// Prefetch — сколько неподтверждённых сообщений держит канал (default: 1).
	Prefetch int
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
		tag:      fmt.Sprintf("kira-%s-%s", cfg.Queue, uuid.NewString()[:8]),
	}
}

// Start читает очередь до отмены ctx или Stop. Возвращает ошибку контекста
// или ErrClosed, если соединение закрыто.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	defer cancel()

	for {
		// Канал уведомления берём до попытки, чтобы не пропустить reconnect
		reconnected := c.conn.Reconnected()

		err := c.session(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrClosed):
			return err
		}
		c.logger.Warn("consumer interrupted, resubscribing", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reconnected:
		case <-time.After(resubscribeDelay):
		}
	}
}

// session открывает канал, подписывается и обрабатывает доставки,
// пока канал не закроется.
func (c *Consumer) session(ctx context.Context) error {
	ch, err := c.conn.OpenChannel()
	if err != nil {
		return err
	}
	defer func() {
		if !ch.IsClosed() {
			_ = ch.Close()
		}
	}()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	// auto-ack выключен: подтверждение после обработки
	deliveries, err := ch.Consume(string(c.queue), c.tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("consumer started", "tag", c.tag)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handle(ctx, raw)
		}
	}
}

// handle разбирает доставку, вызывает обработчик и подтверждает результат.
func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("malformed message, dead-lettering", "error", err, "body", string(raw.Body))
		if err := raw.Nack(false, false); err != nil {
			c.logger.Warn("nack failed", "error", err)
		}
		return
	}

	log := c.logger.With("message_id", msg.ID, "type", msg.Type)
	log.Debug("received message")

	err := c.handler(ctx, &Delivery{Message: msg, Raw: raw})

	ack, requeue := settle(err, raw.Redelivered)
	if ack {
		if err := raw.Ack(false); err != nil {
			log.Warn("ack failed", "error", err)
		}
		return
	}

	log.Error("handler failed", "requeue", requeue, "error", err)
	if err := raw.Nack(false, requeue); err != nil {
		log.Warn("nack failed", "error", err)
	}
}

// settle решает судьбу доставки: успех подтверждается, первая неудача
// возвращается в очередь, повторная уходит в DLQ.
func settle(handlerErr error, redelivered bool) (ack, requeue bool) {
	if handlerErr == nil {
		return true, false
	}
	return false, !redelivered
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}
