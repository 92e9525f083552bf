package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// Rabbit implements [Broker] on a RabbitMQ connection. The connection is
// dialed lazily and re-dialed after loss. Every operation declares the queue
// it touches with the same transient flags, so a message published before any
// consumer connected is held by the broker until one arrives.
type Rabbit struct {
	url    string
	logger *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewRabbit returns a broker for the given AMQP URL. No connection is made
// until the first operation. A nil logger falls back to [slog.Default].
func NewRabbit(url string, logger *slog.Logger) *Rabbit {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rabbit{
		url:    url,
		logger: logger,
	}
}

func (r *Rabbit) connection() (*amqp.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil && !r.conn.IsClosed() {
		return r.conn, nil
	}

	conn, err := amqp.Dial(r.url)
	if err != nil {
		return nil, fmt.Errorf("broker: dial: %w", err)
	}
	r.conn = conn
	return conn, nil
}

// declareQueue creates the queue if it does not exist yet. Transient,
// deleted once the last consumer disconnects; reply queues disappear with
// their client. Publish, Consume, and Declare all use these flags, so
// redeclaration never conflicts.
func declareQueue(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, false, true, false, false, nil); err != nil {
		return fmt.Errorf("broker: declare %q: %w", queue, err)
	}
	return nil
}

// Declare ensures the named queue exists.
func (r *Rabbit) Declare(_ context.Context, queue string) error {
	conn, err := r.connection()
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("broker: channel: %w", err)
	}
	defer ch.Close()

	return declareQueue(ch, queue)
}

// Publish declares the named queue and enqueues msg on it through the default
// exchange.
func (r *Rabbit) Publish(ctx context.Context, queue string, msg Message) error {
	conn, err := r.connection()
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("broker: channel: %w", err)
	}
	defer ch.Close()

	if err := declareQueue(ch, queue); err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: msg.CorrelationID,
		ReplyTo:       msg.ReplyTo,
		Body:          msg.Body,
	})
	if err != nil {
		return fmt.Errorf("broker: publish: %w", err)
	}
	return nil
}

// Consume processes the named queue until ctx is cancelled. Connection loss
// is logged and retried with exponential backoff; it never ends the loop.
func (r *Rabbit) Consume(ctx context.Context, queue string, handler Handler) error {
	delay := reconnectBaseDelay
	for {
		start := time.Now()
		err := r.consumeOnce(ctx, queue, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(start) > reconnectMaxDelay {
			delay = reconnectBaseDelay
		}

		r.logger.Warn("broker: consume disconnected, reconnecting",
			"queue", queue, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

func (r *Rabbit) consumeOnce(ctx context.Context, queue string, handler Handler) error {
	conn, err := r.connection()
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("broker: channel: %w", err)
	}
	defer ch.Close()

	if err := declareQueue(ch, queue); err != nil {
		return err
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("broker: consume %q: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("broker: delivery channel closed")
			}
			r.dispatch(ctx, ch, d, handler)
		}
	}
}

// dispatch runs the handler for one delivery. The message is acknowledged
// only after the handler returns; handler failure drops it without requeue.
func (r *Rabbit) dispatch(ctx context.Context, ch *amqp.Channel, d amqp.Delivery, handler Handler) {
	reply, err := handler(ctx, Message{
		Body:          d.Body,
		CorrelationID: d.CorrelationId,
		ReplyTo:       d.ReplyTo,
	})
	if err != nil {
		r.logger.Error("broker: handler failed, dropping message",
			"correlation_id", d.CorrelationId, "error", err)
		_ = d.Nack(false, false)
		return
	}

	if reply != nil && d.ReplyTo != "" {
		err := ch.PublishWithContext(ctx, "", d.ReplyTo, false, false, amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: d.CorrelationId,
			Body:          reply,
		})
		if err != nil {
			r.logger.Error("broker: reply publish failed",
				"reply_to", d.ReplyTo, "error", err)
		}
	}

	_ = d.Ack(false)
}

// Ping reports whether the broker connection can be established.
func (r *Rabbit) Ping(context.Context) bool {
	_, err := r.connection()
	return err == nil
}

// Close shuts the underlying connection. Safe to call more than once.
func (r *Rabbit) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return nil
	}
	return r.conn.Close()
}
