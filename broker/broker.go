// Package broker defines the publish/consume port the RPC layer runs on,
// with a RabbitMQ implementation and an in-process implementation for tests.
//
// Delivery semantics: the underlying broker delivers at least once. A message
// is acknowledged only after its handler returns; a failed handler drops the
// message after logging — there is no automatic requeue, so handlers must be
// idempotent against the broker's own redelivery policy. When a consumed
// message names a reply-to queue and the handler produces a reply body, the
// reply is published there under the original correlation id.
package broker

import "context"

// Message is the transport envelope. Correlation and reply routing are
// carried here at the transport level, never inside the body.
type Message struct {
	Body          []byte
	CorrelationID string
	ReplyTo       string
}

// Handler processes one consumed message and optionally returns a reply
// body. A nil reply with a nil error acknowledges without replying. A non-nil
// error drops the message after logging.
type Handler func(ctx context.Context, msg Message) ([]byte, error)

// Broker is the message-broker port.
type Broker interface {
	// Declare ensures the named queue exists. Publish and Consume declare
	// on their own; callers use Declare when a queue must exist ahead of
	// either, such as a reply queue that must be routable before the
	// request naming it goes out.
	Declare(ctx context.Context, queue string) error
	// Publish declares the named queue and enqueues msg on it, so a
	// message published before any consumer connected is held by the
	// broker rather than dropped.
	Publish(ctx context.Context, queue string, msg Message) error
	// Consume processes the named queue with handler until ctx is
	// cancelled. Connection loss triggers reconnect with backoff, not an
	// error return; the only non-nil return is ctx.Err() after cancel.
	Consume(ctx context.Context, queue string, handler Handler) error
	// Ping reports whether the broker is reachable.
	Ping(ctx context.Context) bool
	// Close releases the underlying connection.
	Close() error
}
