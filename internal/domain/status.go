package domain

// Status is a delivery lifecycle state.
type Status string

// List of delivery statuses in lifecycle order.
const (
	StatusPending        Status = "pending"
	StatusDriverAssigned Status = "driver_assigned"
	StatusPickedUp       Status = "picked_up"
	StatusOnTheWay       Status = "on_the_way"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

var allowedStatuses = [...]Status{
	StatusPending, StatusDriverAssigned, StatusPickedUp, StatusOnTheWay, StatusDelivered, StatusCancelled,
}

// Valid checks if the Status is one of the defined states.
func (s Status) Valid() bool {
	for _, v := range allowedStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// AtOrPastAssignment reports whether a courier must be bound in state s.
func (s Status) AtOrPastAssignment() bool {
	switch s {
	case StatusDriverAssigned, StatusPickedUp, StatusOnTheWay, StatusDelivered:
		return true
	default:
		return false
	}
}
