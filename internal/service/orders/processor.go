// Package orders turns order-service events into delivery operations.
package orders

import (
	"context"
	"errors"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/logx"
	"delivery-tracking/internal/service/delivery"
)

// Processor processes order events.
type Processor struct {
	delivery DeliveryPort
	logger   logx.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(deliverySvc DeliveryPort, logger logx.Logger) *Processor {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Processor{
		delivery: deliverySvc,
		logger:   logger,
	}
}

// Handle processes a single Event. Only errors worth retrying are returned:
// outcomes that redelivery cannot change are logged and swallowed.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	switch e.Kind() {
	case KindReady:
		return p.onReady(ctx, e)
	case KindCanceled:
		return p.onCanceled(ctx, e)
	}
	p.logger.Debug("order event ignored",
		logx.OrderID(e.OrderID),
		logx.String("status", e.Status),
	)
	return nil
}

func (p *Processor) onReady(ctx context.Context, e Event) error {
	d, err := p.delivery.Create(ctx, delivery.System, e.OrderID)
	if err != nil {
		return p.settle("create delivery", e, err)
	}
	p.logger.Info("order ready for delivery",
		logx.OrderID(e.OrderID),
		logx.DeliveryID(d.ID),
	)
	return nil
}

func (p *Processor) onCanceled(ctx context.Context, e Event) error {
	d, err := p.delivery.CancelByOrder(ctx, e.OrderID)
	if err != nil {
		return p.settle("cancel delivery", e, err)
	}
	p.logger.Info("order canceled",
		logx.OrderID(e.OrderID),
		logx.DeliveryID(d.ID),
	)
	return nil
}

func (p *Processor) settle(op string, e Event, err error) error {
	if retryable(err) {
		return err
	}
	p.logger.Warn(op+" skipped",
		logx.OrderID(e.OrderID),
		logx.String("status", e.Status),
		logx.String("code", apperr.Code(err)),
		logx.Err(err),
	)
	return nil
}

// retryable reports whether redelivery may succeed. Storage conflicts are
// lock contention and are retried.
func retryable(err error) bool {
	switch {
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrAlreadyAssigned),
		errors.Is(err, apperr.ErrUnauthorized):
		return false
	}
	return true
}
