package kafka

import (
	"strings"
	"time"

	"delivery-tracking/internal/service/orders"
)

// EventDTO is an order event as published on the orders topic. Older
// producers stamp events with created_at instead of occurred_at.
type EventDTO struct {
	OrderID    string     `json:"order_id"`
	Status     string     `json:"status"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// ToDomain normalizes the wire event: ids and statuses are trimmed and
// statuses lowercased.
func ToDomain(dto EventDTO) orders.Event {
	ev := orders.Event{
		OrderID: strings.TrimSpace(dto.OrderID),
		Status:  strings.ToLower(strings.TrimSpace(dto.Status)),
	}
	switch {
	case dto.OccurredAt != nil:
		ev.OccurredAt = dto.OccurredAt.UTC()
	case dto.CreatedAt != nil:
		ev.OccurredAt = dto.CreatedAt.UTC()
	}
	return ev
}
