package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// MessageType names an inbound intent or an outbound event.
type MessageType string

const (
	// Inbound intents
	IntentJoin                MessageType = "join"
	IntentRegisterVehicleType MessageType = "registerRiderVehicleType"
	IntentJoinRideRoom        MessageType = "joinRideRoom"
	IntentLeaveRideRoom       MessageType = "leaveRideRoom"
	IntentChatMessage         MessageType = "chatMessage"
	IntentRiderAccepted       MessageType = "riderAccepted"
	IntentRiderRejected       MessageType = "riderRejected"
	IntentRiderLocation       MessageType = "riderLocation"
	IntentPing                MessageType = "ping"

	// Outbound events
	EventChatMessage         = "chatMessage"
	EventRideAccepted        = "rideAccepted"
	EventRideRejected        = "rideRejected"
	EventRiderLocationUpdate = "riderLocationUpdate"
	EventPong                = "pong"
)

// Message is a frame received from a client.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Envelope is a frame delivered to clients.
type Envelope struct {
	Type      string          `json:"type"`
	Room      string          `json:"room,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ID is a user, ride or vehicle identifier. Clients send these either as
// JSON strings or as bare numbers; numbers keep their literal text.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("%w: identifier must be a string or a number", ErrInvalidMessage)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// ChatMessage is exchanged between the participants of a ride.
type ChatMessage struct {
	RideID     ID        `json:"rideId"`
	FromUserID ID        `json:"fromUserId"`
	Text       string    `json:"text"`
	At         time.Time `json:"at"`
}

// LocationUpdate carries a rider position. Coords are relayed untouched.
type LocationUpdate struct {
	RideID ID              `json:"rideId"`
	Coords json.RawMessage `json:"coords,omitempty"`
}

// Ride is a ride object as produced by the ride lifecycle handlers. The
// relay only looks at id and riderId; the rest of the object is forwarded
// verbatim.
type Ride struct {
	ID      ID
	RiderID ID
	raw     json.RawMessage
}

// ParseRide extracts the ride and rider identifiers from a raw ride object.
func ParseRide(data json.RawMessage) (Ride, error) {
	var head struct {
		ID      ID `json:"id"`
		RiderID ID `json:"riderId"`
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Ride{}, fmt.Errorf("%w: empty ride", ErrInvalidMessage)
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Ride{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return Ride{ID: head.ID, RiderID: head.RiderID, raw: data}, nil
}

func (r Ride) MarshalJSON() ([]byte, error) {
	if len(r.raw) == 0 {
		return json.Marshal(map[string]ID{"riderId": r.RiderID})
	}
	return r.raw, nil
}

func decode(data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}
