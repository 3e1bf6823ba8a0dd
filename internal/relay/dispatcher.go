package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// Emitter is the handle given to anything that needs to push events to
// clients without owning a connection.
type Emitter interface {
	// Emit delivers payload under event to every member of roomID. An empty
	// roomID broadcasts to every connected client.
	Emit(event, roomID string, payload any) (int, error)
	Broadcast(event string, payload any) (int, error)
}

// Fanout forwards locally originated frames to other relay instances.
type Fanout interface {
	Publish(ctx context.Context, roomID string, frame []byte) error
}

const (
	defaultFanoutBuffer  = 1024
	defaultFanoutTimeout = 500 * time.Millisecond
)

type outboundFrame struct {
	room  string
	frame []byte
}

// Dispatcher resolves events to rooms and fans them out to the members.
type Dispatcher struct {
	registry *Registry
	rooms    *Directory
	outbox   chan outboundFrame
	now      func() time.Time
}

func NewDispatcher(registry *Registry, rooms *Directory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		rooms:    rooms,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// StartFanout attaches cluster fan-out. Emitted frames are queued on a
// bounded outbox and published to f by a single goroutine until ctx is done,
// so a slow or unreachable peer never holds up the sender. Each publish is
// bounded by timeout. Call it before the dispatcher is shared with other
// goroutines.
func (d *Dispatcher) StartFanout(ctx context.Context, f Fanout, buffer int, timeout time.Duration) {
	if buffer <= 0 {
		buffer = defaultFanoutBuffer
	}
	if timeout <= 0 {
		timeout = defaultFanoutTimeout
	}
	d.outbox = make(chan outboundFrame, buffer)
	go d.forward(ctx, f, timeout)
}

func (d *Dispatcher) forward(ctx context.Context, f Fanout, timeout time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-d.outbox:
			pubCtx, cancel := context.WithTimeout(ctx, timeout)
			if err := f.Publish(pubCtx, out.room, out.frame); err != nil {
				log.Printf("[dispatch] Fan-out to room %q failed: %v", out.room, err)
			}
			cancel()
		}
	}
}

func (d *Dispatcher) Emit(event, roomID string, payload any) (int, error) {
	if event == "" {
		return 0, ErrEmptyEvent
	}

	frame, err := d.encode(event, roomID, payload)
	if err != nil {
		return 0, err
	}

	n := d.DeliverLocal(roomID, frame)

	if d.outbox != nil {
		select {
		case d.outbox <- outboundFrame{room: roomID, frame: frame}:
		default:
			log.Printf("[dispatch] Fan-out queue full, %s not published", event)
		}
	}

	return n, nil
}

func (d *Dispatcher) Broadcast(event string, payload any) (int, error) {
	return d.Emit(event, "", payload)
}

// DeliverLocal writes an encoded frame to this instance's members of
// roomID, or to every local client when roomID is empty. The member list is
// snapshotted first so no lock is held while queueing.
func (d *Dispatcher) DeliverLocal(roomID string, frame []byte) int {
	var targets []*Client
	if roomID == "" {
		targets = d.registry.All()
	} else {
		targets = d.rooms.Members(roomID)
	}

	delivered := 0
	for _, c := range targets {
		if c.Deliver(frame) {
			delivered++
			continue
		}
		log.Printf("[dispatch] Client %s queue full or closed, frame dropped", c.ID)
	}
	return delivered
}

// ChatMessage relays msg to the ride room with a server timestamp. Messages
// without a ride or text are dropped.
func (d *Dispatcher) ChatMessage(msg ChatMessage) (int, error) {
	room, ok := RideRoom(msg.RideID)
	if !ok || msg.Text == "" {
		log.Printf("[dispatch] Dropping chatMessage from %q: rideId and text are required", msg.FromUserID)
		return 0, fmt.Errorf("%w: chatMessage needs rideId and text", ErrInvalidMessage)
	}

	msg.At = d.now()
	return d.Emit(EventChatMessage, room, msg)
}

// RideAccepted notifies the rider that a driver took the ride.
func (d *Dispatcher) RideAccepted(ride Ride) (int, error) {
	return d.rideDecision(EventRideAccepted, ride)
}

// RideRejected notifies the rider that the ride was declined.
func (d *Dispatcher) RideRejected(ride Ride) (int, error) {
	return d.rideDecision(EventRideRejected, ride)
}

func (d *Dispatcher) rideDecision(event string, ride Ride) (int, error) {
	if ride.RiderID == "" {
		log.Printf("[dispatch] Dropping %s: %v", event, ErrMissingRiderID)
		return 0, ErrMissingRiderID
	}
	return d.Emit(event, UserRoom(ride.RiderID), ride)
}

// RiderLocation is broadcast to every connected client, not only the ride
// room.
func (d *Dispatcher) RiderLocation(update LocationUpdate) (int, error) {
	return d.Broadcast(EventRiderLocationUpdate, update)
}

func (d *Dispatcher) encode(event, roomID string, payload any) ([]byte, error) {
	env := Envelope{
		Type:      event,
		Room:      roomID,
		Timestamp: d.now(),
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", event, err)
		}
		env.Data = data
	}

	return json.Marshal(env)
}
