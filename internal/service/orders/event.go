package orders

import (
	"strings"
	"time"
)

// Event is one order lifecycle change as seen by the delivery side.
type Event struct {
	OrderID    string
	Status     string
	OccurredAt time.Time
}

// Kind groups order statuses by the delivery operation they trigger.
type Kind int

const (
	KindIgnored Kind = iota
	KindReady
	KindCanceled
)

// Kind classifies the event status. Orders reach fulfillment once
// confirmed; "created" is accepted for order services that do not emit a
// separate confirmation.
func (e Event) Kind() Kind {
	switch strings.ToLower(strings.TrimSpace(e.Status)) {
	case "created", "confirmed", "ready":
		return KindReady
	case "canceled", "cancelled", "deleted":
		return KindCanceled
	default:
		return KindIgnored
	}
}
