package authgate

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

type notification struct {
	phone string
	text  string
}

// notifyDispatcher delivers SMS notifications from a background worker.
// Enqueue never blocks the caller and never reports delivery outcome; send
// errors are logged and a full buffer drops the notification and counts it.
type notifyDispatcher struct {
	notifier  Notifier
	logger    *slog.Logger
	metrics   *Metrics
	ch        chan notification
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newNotifyDispatcher(notifier Notifier, logger *slog.Logger, bufferSize int, metrics *Metrics) *notifyDispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}

	d := &notifyDispatcher{
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		ch:       make(chan notification, bufferSize),
		done:     make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *notifyDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.ch:
			d.send(n)
		case <-d.done:
			for {
				select {
				case n := <-d.ch:
					d.send(n)
				default:
					return
				}
			}
		}
	}
}

func (d *notifyDispatcher) send(n notification) {
	if err := d.notifier.Send(context.Background(), n.phone, n.text); err != nil {
		d.logger.Error("notification send failed", "phone", n.phone, "error", err)
	}
}

// Enqueue schedules a notification and returns immediately.
func (d *notifyDispatcher) Enqueue(n notification) {
	if d == nil || d.closed.Load() {
		return
	}

	select {
	case d.ch <- n:
	case <-d.done:
	default:
		d.dropped.Add(1)
		d.metrics.Inc(MetricNotificationDropped)
	}
}

// Close stops the worker after draining buffered notifications.
func (d *notifyDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many notifications were discarded on a full buffer.
func (d *notifyDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
