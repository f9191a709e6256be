package domain

import "time"

// EventType names a broadcast event.
type EventType string

// List of broadcast events.
const (
	EventNewDeliveryAvailable     EventType = "newDeliveryAvailable"
	EventDriverAssigned           EventType = "driverAssigned"
	EventStatusUpdate             EventType = "statusUpdate"
	EventLocationUpdate           EventType = "locationUpdate"
	EventDriverAvailabilityUpdate EventType = "driverAvailabilityUpdate"
	EventDriverStatusUpdate       EventType = "driverStatusUpdate"
)

// Event is addressed to a delivery room, or to every connection when Room is empty.
type Event struct {
	Type    EventType
	Room    string
	Payload any
	At      time.Time
}

// Global reports whether the event goes to every connection.
func (e Event) Global() bool {
	return e.Room == ""
}

// NewDeliveryPayload is carried by newDeliveryAvailable.
type NewDeliveryPayload struct {
	DeliveryID   string `json:"deliveryId"`
	OrderID      string `json:"orderId"`
	RestaurantID string `json:"restaurantId"`
	Pickup       Point  `json:"pickupLocation"`
	Drop         Point  `json:"dropLocation"`
}

// DriverAssignedPayload is carried by driverAssigned.
type DriverAssignedPayload struct {
	DeliveryID string `json:"deliveryId"`
	CourierID  string `json:"courierId"`
	Status     Status `json:"status"`
}

// StatusPayload is carried by statusUpdate.
type StatusPayload struct {
	DeliveryID string `json:"deliveryId"`
	Status     Status `json:"status"`
}

// LocationPayload is carried by locationUpdate.
type LocationPayload struct {
	DeliveryID string `json:"deliveryId"`
	CourierID  string `json:"courierId"`
	Location   Point  `json:"location"`
}

// AvailabilityPayload is carried by driverAvailabilityUpdate.
type AvailabilityPayload struct {
	CourierID      string `json:"courierId"`
	IsAvailable    bool   `json:"isAvailable"`
	AvailableCount int    `json:"availableCount"`
}

// Courier work states reported by driverStatusUpdate.
const (
	CourierBusy = "busy"
	CourierIdle = "idle"
)

// DriverStatusPayload is carried by driverStatusUpdate.
type DriverStatusPayload struct {
	CourierID  string `json:"courierId"`
	Status     string `json:"status"`
	DeliveryID string `json:"deliveryId,omitempty"`
}
