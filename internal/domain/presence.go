package domain

import "time"

// Presence is the ephemeral record of a courier's live connection.
type Presence struct {
	CourierID    string
	ConnectionID string
	IsAvailable  bool
	Position     *Point
	UpdatedAt    time.Time
}
