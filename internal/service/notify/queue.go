// Package notify delivers status notices to the order service off the
// request path. A single worker keeps notices for one delivery in order.
package notify

import (
	"context"
	"time"

	"delivery-tracking/internal/gateway/platform"
	"delivery-tracking/internal/logx"
)

type sender interface {
	NotifyDeliveryStatus(ctx context.Context, n platform.StatusNotice) error
}

type counter interface {
	Inc()
}

// Queue is a bounded notice queue drained by Run.
type Queue struct {
	ch      chan platform.StatusNotice
	sender  sender
	timeout time.Duration
	dropped counter
	logger  logx.Logger
}

// NewQueue creates a Queue holding up to size pending notices.
func NewQueue(s sender, size int, timeout time.Duration, dropped counter, logger logx.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Queue{
		ch:      make(chan platform.StatusNotice, size),
		sender:  s,
		timeout: timeout,
		dropped: dropped,
		logger:  logger,
	}
}

// Enqueue never blocks. When the queue is full the notice is dropped.
func (q *Queue) Enqueue(n platform.StatusNotice) {
	select {
	case q.ch <- n:
	default:
		if q.dropped != nil {
			q.dropped.Inc()
		}
		q.logger.Warn("status notice dropped",
			logx.DeliveryID(n.DeliveryID),
			logx.String("status", string(n.Status)),
		)
	}
}

// Len returns the number of pending notices.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Run sends notices until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	q.logger.Info("status notifier started")
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("status notifier stopped", logx.Int("pending", len(q.ch)))
			return nil
		case n := <-q.ch:
			q.send(ctx, n)
		}
	}
}

func (q *Queue) send(ctx context.Context, n platform.StatusNotice) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	if err := q.sender.NotifyDeliveryStatus(ctx, n); err != nil {
		q.logger.Error("status notice failed",
			logx.DeliveryID(n.DeliveryID),
			logx.OrderID(n.OrderID),
			logx.String("status", string(n.Status)),
			logx.Err(err),
		)
		return
	}
	q.logger.Debug("status notice sent",
		logx.DeliveryID(n.DeliveryID),
		logx.String("status", string(n.Status)),
	)
}
