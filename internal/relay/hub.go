package relay

import (
	"fmt"
	"log"
)

// Hub wires connection lifecycle and client intents to the registry, the
// room directory and the dispatcher.
type Hub struct {
	registry   *Registry
	rooms      *Directory
	dispatcher *Dispatcher
	sendBuffer int
}

// NewHub creates a hub whose clients buffer up to sendBuffer outbound
// frames. Non-positive values use the default.
func NewHub(sendBuffer int) *Hub {
	registry := NewRegistry()
	rooms := NewDirectory()
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &Hub{
		registry:   registry,
		rooms:      rooms,
		dispatcher: NewDispatcher(registry, rooms),
		sendBuffer: sendBuffer,
	}
}

func (h *Hub) Registry() *Registry     { return h.registry }
func (h *Hub) Rooms() *Directory       { return h.rooms }
func (h *Hub) Dispatcher() *Dispatcher { return h.dispatcher }

// Connect registers a new client.
func (h *Hub) Connect(c *Client) {
	h.registry.Add(c)
}

// Disconnect removes c from every room it joined and forgets it. Calling it
// more than once is harmless.
func (h *Hub) Disconnect(c *Client) {
	c.close()
	h.rooms.LeaveAll(c)

	if _, ok := h.registry.Remove(c.ID); ok {
		log.Printf("[hub] Client disconnected: %s", c.ID)
	}
}

// Shutdown closes every connection. Each client's pumps then exit and
// disconnect it.
func (h *Hub) Shutdown() {
	for _, c := range h.registry.All() {
		c.close()
	}
	log.Println("[hub] Shutting down")
}

// HandleIntent applies one inbound frame. The returned error is only for
// logging; nothing is reported back to the sender.
func (h *Hub) HandleIntent(c *Client, msg *Message) error {
	switch msg.Type {
	case IntentJoin:
		var userID ID
		if err := decode(msg.Data, &userID); err != nil {
			return err
		}
		if userID == "" {
			return fmt.Errorf("%w: join needs a user id", ErrInvalidMessage)
		}
		return h.rooms.Join(c, UserRoom(userID))

	case IntentRegisterVehicleType:
		var vehicleType ID
		if err := decode(msg.Data, &vehicleType); err != nil {
			return err
		}
		return h.rooms.Join(c, VehicleRoom(vehicleType))

	case IntentJoinRideRoom:
		var rideID ID
		if err := decode(msg.Data, &rideID); err != nil {
			return err
		}
		room, ok := RideRoom(rideID)
		if !ok {
			return nil
		}
		return h.rooms.Join(c, room)

	case IntentLeaveRideRoom:
		var rideID ID
		if err := decode(msg.Data, &rideID); err != nil {
			return err
		}
		if room, ok := RideRoom(rideID); ok {
			h.rooms.Leave(c, room)
		}
		return nil

	case IntentChatMessage:
		var chat ChatMessage
		if err := decode(msg.Data, &chat); err != nil {
			return err
		}
		_, err := h.dispatcher.ChatMessage(chat)
		return err

	case IntentRiderAccepted, IntentRiderRejected:
		ride, err := ParseRide(msg.Data)
		if err != nil {
			return err
		}
		if msg.Type == IntentRiderAccepted {
			_, err = h.dispatcher.RideAccepted(ride)
		} else {
			_, err = h.dispatcher.RideRejected(ride)
		}
		return err

	case IntentRiderLocation:
		var update LocationUpdate
		if err := decode(msg.Data, &update); err != nil {
			return err
		}
		_, err := h.dispatcher.RiderLocation(update)
		return err

	case IntentPing:
		frame, err := h.dispatcher.encode(EventPong, "", nil)
		if err != nil {
			return err
		}
		c.Deliver(frame)
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownIntent, msg.Type)
	}
}
