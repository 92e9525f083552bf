package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

const memoryQueueDepth = 64

// Memory implements [Broker] in process. It backs the test suite and local
// dev runs; queue depth is bounded and a publish to a full queue fails
// instead of blocking the caller.
type Memory struct {
	logger *slog.Logger

	mu     sync.Mutex
	queues map[string]chan Message
}

// NewMemory returns an empty in-process broker. A nil logger falls back to
// [slog.Default].
func NewMemory(logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		logger: logger,
		queues: make(map[string]chan Message),
	}
}

func (m *Memory) queue(name string) chan Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[name]
	if !ok {
		q = make(chan Message, memoryQueueDepth)
		m.queues[name] = q
	}
	return q
}

// Declare ensures the named queue exists.
func (m *Memory) Declare(_ context.Context, queue string) error {
	m.queue(queue)
	return nil
}

// Publish enqueues msg on the named queue, creating it if needed.
func (m *Memory) Publish(_ context.Context, queue string, msg Message) error {
	select {
	case m.queue(queue) <- msg:
		return nil
	default:
		return fmt.Errorf("broker: queue %q full", queue)
	}
}

// Consume processes the named queue with handler until ctx is cancelled.
func (m *Memory) Consume(ctx context.Context, queue string, handler Handler) error {
	q := m.queue(queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-q:
			reply, err := handler(ctx, msg)
			if err != nil {
				m.logger.Error("broker: handler failed, dropping message",
					"correlation_id", msg.CorrelationID, "error", err)
				continue
			}
			if reply != nil && msg.ReplyTo != "" {
				if err := m.Publish(ctx, msg.ReplyTo, Message{
					Body:          reply,
					CorrelationID: msg.CorrelationID,
				}); err != nil {
					m.logger.Error("broker: reply publish failed",
						"reply_to", msg.ReplyTo, "error", err)
				}
			}
		}
	}
}

// Ping always reports true.
func (m *Memory) Ping(context.Context) bool {
	return true
}

// Close is a no-op for the in-process broker.
func (m *Memory) Close() error {
	return nil
}
