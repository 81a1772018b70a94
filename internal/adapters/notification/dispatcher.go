package notification

import (
	"context"
	"sync"
	"time"

	"github.com/tasklog/core/internal/infrastructure/logger"
	"github.com/tasklog/core/internal/infrastructure/metrics"
	"github.com/tasklog/core/internal/ports"
)

const deliveryTimeout = 30 * time.Second

type envelope struct {
	recipients []string
	subject    string
	message    string
}

// Dispatcher delivers notifications on a background worker. Notify never
// blocks: when the queue is full the notification is dropped.
type Dispatcher struct {
	next   ports.Notifier
	logger *logger.Logger
	queue  chan envelope

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts a dispatcher with a bounded queue in front of next
func NewDispatcher(next ports.Notifier, queueSize int, log *logger.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 100
	}

	d := &Dispatcher{
		next:   next,
		logger: log.WithComponent("dispatcher"),
		queue:  make(chan envelope, queueSize),
		done:   make(chan struct{}),
	}
	go d.run()

	return d
}

// Notify enqueues the notification. It returns nil even when dropping.
func (d *Dispatcher) Notify(_ context.Context, recipients []string, subject, message string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.Notifications.WithLabelValues("dropped").Inc()
		d.logger.Warnw("Notification dropped, dispatcher closed", "subject", subject)
		return nil
	}

	select {
	case d.queue <- envelope{recipients: recipients, subject: subject, message: message}:
	default:
		metrics.Notifications.WithLabelValues("dropped").Inc()
		d.logger.Warnw("Notification dropped, queue full", "subject", subject, "recipients", recipients)
	}

	return nil
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for env := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		err := d.next.Notify(ctx, env.recipients, env.subject, env.message)
		cancel()

		if err != nil {
			metrics.Notifications.WithLabelValues("failed").Inc()
			d.logger.WithError(err).Errorw("Notification delivery failed", "subject", env.subject)
			continue
		}
		metrics.Notifications.WithLabelValues("sent").Inc()
	}
}

// Close stops accepting notifications and waits for the queue to drain or
// for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
