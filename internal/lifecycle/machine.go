// Package lifecycle holds the delivery state machine:
//
//	pending -> driver_assigned -> picked_up -> on_the_way -> delivered
//
// with cancelled reachable from pending, driver_assigned and picked_up.
// Functions here mutate a Delivery in place and never touch storage; callers
// run them inside an atomic read-modify-write on the record.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
)

var sequence = map[domain.Status]domain.Status{
	domain.StatusPending:        domain.StatusDriverAssigned,
	domain.StatusDriverAssigned: domain.StatusPickedUp,
	domain.StatusPickedUp:       domain.StatusOnTheWay,
	domain.StatusOnTheWay:       domain.StatusDelivered,
}

var cancellable = map[domain.Status]bool{
	domain.StatusPending:        true,
	domain.StatusDriverAssigned: true,
	domain.StatusPickedUp:       true,
}

var rank = map[domain.Status]int{
	domain.StatusPending:        0,
	domain.StatusDriverAssigned: 1,
	domain.StatusPickedUp:       2,
	domain.StatusOnTheWay:       3,
	domain.StatusDelivered:      4,
	domain.StatusCancelled:      4,
}

// Initial is the state of every new delivery.
const Initial = domain.StatusPending

// Next returns the state following s in the main sequence.
func Next(s domain.Status) (domain.Status, bool) {
	n, ok := sequence[s]
	return n, ok
}

// Rank orders statuses along the graph; observed ranks never decrease.
func Rank(s domain.Status) int {
	if r, ok := rank[s]; ok {
		return r
	}
	return -1
}

// ParseStatus normalizes and validates a client-supplied status.
func ParseStatus(raw string) (domain.Status, error) {
	s := domain.Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("status %q: %w", raw, apperr.ErrValidation)
	}
	return s, nil
}

// CanAdvance reports whether advance(from -> to) is allowed. Assignment is not
// an advance: it needs a courier and goes through Assign.
func CanAdvance(from, to domain.Status) bool {
	if to == domain.StatusCancelled {
		return cancellable[from]
	}
	if to == domain.StatusDriverAssigned {
		return false
	}
	next, ok := sequence[from]
	return ok && next == to
}

// Assign binds courierID to d and moves it to driver_assigned.
func Assign(d *domain.Delivery, courierID string, now time.Time) error {
	courierID = strings.TrimSpace(courierID)
	if courierID == "" {
		return fmt.Errorf("courier id: %w", apperr.ErrValidation)
	}
	if d.Assigned || d.CourierID != "" {
		return fmt.Errorf("delivery %s: %w", d.ID, apperr.ErrAlreadyAssigned)
	}
	if d.Status != domain.StatusPending {
		return fmt.Errorf("assign from %s: %w", d.Status, apperr.ErrInvalidTransition)
	}
	d.CourierID = courierID
	d.Assigned = true
	d.Status = domain.StatusDriverAssigned
	d.UpdatedAt = now
	return nil
}

// Advance moves d to target when the graph allows it.
func Advance(d *domain.Delivery, target domain.Status, now time.Time) error {
	if !target.Valid() {
		return fmt.Errorf("status %q: %w", target, apperr.ErrValidation)
	}
	if !CanAdvance(d.Status, target) {
		return fmt.Errorf("%s -> %s: %w", d.Status, target, apperr.ErrInvalidTransition)
	}
	d.Status = target
	d.UpdatedAt = now
	return nil
}

// Consistent checks the assignment invariant. A cancelled delivery keeps its
// courier binding, if any, for audit.
func Consistent(d *domain.Delivery) bool {
	if !d.Status.Valid() {
		return false
	}
	if d.Assigned != (d.CourierID != "") {
		return false
	}
	if d.Status == domain.StatusCancelled {
		return true
	}
	return d.Assigned == d.Status.AtOrPastAssignment()
}
