package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNoChannel — канал ещё не открыт или соединение потеряно.
var ErrNoChannel = errors.New("no channel available")

// ErrClosed — соединение закрыто вызовом Close.
var ErrClosed = errors.New("connection closed")

// Границы задержки между попытками переподключения.
const (
	minReconnectDelay = time.Second
	maxReconnectDelay = 30 * time.Second
)

// Connection — AMQP соединение с переподключением.
//
// Публикации и объявление топологии идут через общий канал в режиме
// publisher confirms и сериализуются. Каждый Consumer открывает свой
// канал через OpenChannel: prefetch задаётся на канал.
type Connection struct {
	url    string
	logger *slog.Logger

	mu          sync.RWMutex
	conn        *amqp.Connection
	control     *amqp.Channel
	reconnected chan struct{}
	closed      bool

	// controlMu сериализует работу с control: confirms приходят по порядку
	controlMu sync.Mutex

	done chan struct{}
}

// NewConnection подключается к RabbitMQ и следит за соединением
// до вызова Close.
func NewConnection(url string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Connection{
		url:         url,
		logger:      logger.With("component", "mq"),
		reconnected: make(chan struct{}),
		done:        make(chan struct{}),
	}

	conn, control, err := c.dial()
	if err != nil {
		return nil, err
	}
	c.conn, c.control = conn, control
	c.logger.Info("connected to RabbitMQ")

	go c.watch(conn)
	return c, nil
}

// dial открывает соединение и управляющий канал в режиме confirm.
func (c *Connection) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	return conn, ch, nil
}

// watch ждёт разрыва conn и переподключается, пока соединение не закрыто.
func (c *Connection) watch(conn *amqp.Connection) {
	for {
		lost := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.done:
			return
		case err := <-lost:
			if err != nil {
				c.logger.Warn("connection lost", "error", err)
			}
		}

		next, ok := c.redial()
		if !ok {
			return
		}
		conn = next
	}
}

// redial подключается заново с растущей задержкой.
// false означает, что соединение закрыли во время ожидания.
func (c *Connection) redial() (*amqp.Connection, bool) {
	delay := minReconnectDelay
	for {
		c.logger.Info("reconnecting to RabbitMQ", "delay", delay)

		select {
		case <-c.done:
			return nil, false
		case <-time.After(delay):
		}

		conn, control, err := c.dial()
		if err != nil {
			c.logger.Warn("reconnect failed", "error", err)
			delay = backoff(delay)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return nil, false
		}
		c.conn, c.control = conn, control
		// Будим всех ожидающих и готовим канал для следующего разрыва
		close(c.reconnected)
		c.reconnected = make(chan struct{})
		c.mu.Unlock()

		c.logger.Info("reconnected to RabbitMQ")
		return conn, true
	}
}

// backoff удваивает задержку, не превышая maxReconnectDelay.
func backoff(delay time.Duration) time.Duration {
	return min(delay*2, maxReconnectDelay)
}

// Reconnected возвращает канал, который закроется при следующем
// успешном переподключении. Канал нужно получить до попытки, исход
// которой он должен дождаться.
func (c *Connection) Reconnected() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnected
}

// OpenChannel открывает отдельный канал на текущем соединении.
// Закрыть канал должен вызывающий.
func (c *Connection) OpenChannel() (*amqp.Channel, error) {
	c.mu.RLock()
	conn, closed := c.conn, c.closed
	c.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if conn == nil || conn.IsClosed() {
		return nil, ErrNoChannel
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

// WithChannel выполняет fn на управляющем канале. Вызовы сериализуются.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.controlMu.Lock()
	defer c.controlMu.Unlock()

	c.mu.RLock()
	ch, closed := c.control, c.closed
	c.mu.RUnlock()

	if closed {
		return ErrClosed
	}
	if ch == nil || ch.IsClosed() {
		return ErrNoChannel
	}
	return fn(ch)
}

// IsConnected сообщает, открыто ли соединение.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.conn != nil && !c.conn.IsClosed()
}

// Close закрывает соединение и останавливает переподключение.
// Повторный вызов ничего не делает.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)

	var errs []error
	if c.control != nil && !c.control.IsClosed() {
		if err := c.control.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	c.logger.Info("connection closed")
	return nil
}
