package realtime

import (
	"encoding/json"
	"time"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
)

// Inbound event types.
const (
	TypeAuthenticate         = "authenticate"
	TypeJoinRoom             = "joinRoom"
	TypeLeaveRoom            = "leaveRoom"
	TypeAnnounceAvailability = "announceAvailability"
	TypePushLocation         = "pushLocation"
	TypePushStatus           = "pushStatus"

	typeAck = "ack"
)

// Inbound is a client request frame.
type Inbound struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorBody is the typed error carried by a failed ack.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Ack answers exactly one Inbound frame.
type Ack struct {
	Type  string     `json:"type"`
	ID    string     `json:"id"`
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

// Broadcast is an outbound event frame.
type Broadcast struct {
	Type    domain.EventType `json:"type"`
	Room    string           `json:"room"`
	Payload any              `json:"payload"`
	TS      time.Time        `json:"ts"`
}

func okAck(id string, data any) Ack {
	return Ack{Type: typeAck, ID: id, OK: true, Data: data}
}

func errAck(id string, err error) Ack {
	return Ack{Type: typeAck, ID: id, Error: &ErrorBody{Code: apperr.Code(err), Message: apperr.Message(err)}}
}

func encodeBroadcast(evt domain.Event) ([]byte, error) {
	ts := evt.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return json.Marshal(Broadcast{Type: evt.Type, Room: evt.Room, Payload: evt.Payload, TS: ts.UTC()})
}

// payloads

type authenticatePayload struct {
	Token string `json:"token"`
}

type roomPayload struct {
	DeliveryID string `json:"deliveryId"`
}

type availabilityPayload struct {
	IsAvailable bool          `json:"isAvailable"`
	Location    *domain.Point `json:"location"`
}

type locationPayload struct {
	DeliveryID string        `json:"deliveryId"`
	Location   *domain.Point `json:"location"`
}

type statusPayload struct {
	DeliveryID string `json:"deliveryId"`
	Status     string `json:"status"`
}

type identityView struct {
	UserID  string      `json:"userId"`
	Role    domain.Role `json:"role"`
	IsAdmin bool        `json:"isAdmin"`
}
