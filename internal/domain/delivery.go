package domain

import "time"

// Delivery is the tracked fulfillment unit for one order.
type Delivery struct {
	ID                string
	OrderID           string
	RestaurantID      string
	RestaurantOwnerID string
	CourierID         string
	Pickup            Point
	Drop              Point
	CurrentLocation   *Point
	Status            Status
	Assigned          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Clone returns a deep copy so callers never share CurrentLocation with the store.
func (d *Delivery) Clone() *Delivery {
	if d == nil {
		return nil
	}
	cp := *d
	if d.CurrentLocation != nil {
		loc := *d.CurrentLocation
		cp.CurrentLocation = &loc
	}
	return &cp
}

// BoundTo reports whether courierID is the courier assigned to this delivery.
func (d *Delivery) BoundTo(courierID string) bool {
	return d.Assigned && courierID != "" && d.CourierID == courierID
}

// VisibleTo reports whether the identity may observe this delivery:
// administrators, the restaurant owner and the assigned courier.
func (d *Delivery) VisibleTo(id Identity) bool {
	if id.IsAdmin {
		return true
	}
	if id.UserID == "" {
		return false
	}
	return id.UserID == d.RestaurantOwnerID || d.BoundTo(id.UserID)
}

// NewDelivery carries the data needed to create a delivery record.
type NewDelivery struct {
	ID                string
	OrderID           string
	RestaurantID      string
	RestaurantOwnerID string
	Pickup            Point
	Drop              Point
	CreatedAt         time.Time
}

// Candidate is a courier eligible for assignment to a delivery.
type Candidate struct {
	CourierID      string    `json:"courierId"`
	DistanceMeters float64   `json:"distanceMeters"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
