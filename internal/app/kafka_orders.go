package app

import (
	"context"
	"time"

	"delivery-tracking/internal/service/orders"
	"delivery-tracking/internal/transport/kafka"
)

const orderEventTimeout = 10 * time.Second

// ordersHandler bounds each order event so a stuck platform call cannot
// stall the partition forever.
func ordersHandler(p *orders.Processor) kafka.HandleFunc {
	return func(ctx context.Context, event orders.Event) error {
		ctx, cancel := context.WithTimeout(ctx, orderEventTimeout)
		defer cancel()
		return p.Handle(ctx, event)
	}
}
