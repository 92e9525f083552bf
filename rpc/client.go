package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/authgate-io/authgate/broker"
)

// ErrTimeout is returned by Call when no matching reply arrives within the
// configured timeout.
var ErrTimeout = errors.New("rpc: call timed out")

// Client issues requests over the broker and resolves replies by correlation
// id. Each client owns a private reply queue; many calls may be outstanding
// concurrently, each tracked independently. Replies with an unknown
// correlation id are logged and dropped.
type Client struct {
	broker     broker.Broker
	queue      string
	replyQueue string
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]chan []byte

	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewClient starts a client against the named request queue. The reply queue
// is declared before NewClient returns, so a request published immediately
// afterwards already has a routable reply address even if the consumer
// goroutine has not run yet. The reply-queue consumer runs until Close. A nil
// logger falls back to [slog.Default].
func NewClient(b broker.Broker, queue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		broker:     b,
		queue:      queue,
		replyQueue: "rpc.reply." + uuid.NewString(),
		logger:     logger,
		pending:    make(map[string]chan []byte),
		stopped:    make(chan struct{}),
	}

	if err := b.Declare(context.Background(), c.replyQueue); err != nil {
		return nil, fmt.Errorf("rpc: declare reply queue: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go func() {
		defer close(c.stopped)
		_ = b.Consume(ctx, c.replyQueue, c.onReply)
	}()

	return c, nil
}

// onReply resolves the pending call matching the reply's correlation id.
func (c *Client) onReply(_ context.Context, msg broker.Message) ([]byte, error) {
	c.mu.Lock()
	ch, ok := c.pending[msg.CorrelationID]
	if ok {
		delete(c.pending, msg.CorrelationID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("rpc: dropping unmatched reply", "correlation_id", msg.CorrelationID)
		return nil, nil
	}

	ch <- msg.Body
	return nil, nil
}

// Call publishes payload with a fresh correlation id and suspends the caller
// until the matching reply arrives or timeout elapses. On timeout it fails
// with [ErrTimeout] and discards the pending call.
func (c *Client) Call(ctx context.Context, payload []byte, timeout time.Duration) ([]byte, error) {
	correlationID := uuid.NewString()
	replyCh := make(chan []byte, 1)

	c.mu.Lock()
	c.pending[correlationID] = replyCh
	c.mu.Unlock()

	err := c.broker.Publish(ctx, c.queue, broker.Message{
		Body:          payload,
		CorrelationID: correlationID,
		ReplyTo:       c.replyQueue,
	})
	if err != nil {
		c.discard(correlationID)
		return nil, fmt.Errorf("rpc: publish request: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case body := <-replyCh:
		return body, nil
	case <-timer.C:
		c.discard(correlationID)
		return nil, ErrTimeout
	case <-ctx.Done():
		c.discard(correlationID)
		return nil, ctx.Err()
	}
}

func (c *Client) discard(correlationID string) {
	c.mu.Lock()
	delete(c.pending, correlationID)
	c.mu.Unlock()
}

// Close stops the reply consumer and waits for it to exit.
func (c *Client) Close() {
	c.cancel()
	<-c.stopped
}
