package dto

import "encoding/json"

// EmitRequest is sent by backend services that push an event to a room.
// An empty Room broadcasts to every connection.
type EmitRequest struct {
	Event string          `json:"event" binding:"required"`
	Room  string          `json:"room"`
	Data  json.RawMessage `json:"data"`
}

type EmitResponse struct {
	Event     string `json:"event"`
	Room      string `json:"room,omitempty"`
	Delivered int    `json:"delivered"`
}
