package correlation

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/skillstorm/reimbursement/service/messaging"
)

// Reply is the envelope every asynchronous response travels in: the payload
// plus the correlation token of the request it answers.
type Reply[T any] struct {
	CorrelationID string `json:"correlationId"`
	Payload       T      `json:"payload"`
}

// Dispatcher is the single ingress point for asynchronous replies. It drains
// every reply queue it is given, regardless of which logical response channel
// a message arrived on, and completes the matching registry waiter. Replies
// whose token is no longer registered are dropped.
type Dispatcher[T any] struct {
	registry *Registry[T]
	queues   []messaging.Queue[Reply[T]]
	logger   *logrus.Entry
}

// NewDispatcher creates a dispatcher feeding registry from the given reply
// queues.
func NewDispatcher[T any](registry *Registry[T], queues ...messaging.Queue[Reply[T]]) *Dispatcher[T] {
	return &Dispatcher[T]{
		registry: registry,
		queues:   queues,
		logger:   logrus.WithField("component", "reply-dispatcher"),
	}
}

// Start launches one consume loop per reply queue. Loops exit when ctx is
// cancelled.
func (d *Dispatcher[T]) Start(ctx context.Context) {
	for _, queue := range d.queues {
		go d.consume(ctx, queue)
	}
}

func (d *Dispatcher[T]) consume(ctx context.Context, queue messaging.Queue[Reply[T]]) {
	for {
		message, err := queue.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			d.logger.WithError(err).Warn("failed to consume reply")
			continue
		}
		if message == nil {
			continue
		}
		reply := message.T()
		if !d.registry.Complete(reply.CorrelationID, reply.Payload) {
			// Expired or already-resolved waiter; expected, drop quietly.
			d.logger.WithField("correlationId", reply.CorrelationID).Debug("dropping stale reply")
		}
		if err := message.Ack(); err != nil {
			d.logger.WithError(err).Warn("failed to ack reply")
		}
	}
}
