package relay

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Location and chat frames are small; 64KB leaves room for ride objects.
	maxMessageSize = 64 * 1024

	defaultSendBuffer = 256
)

// Client is a single live socket connection.
type Client struct {
	ID   string
	Conn *websocket.Conn

	hub  *Hub
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once

	mu    sync.RWMutex
	rooms map[string]struct{}
}

// NewClient wraps conn. The client is not reachable until Hub.Connect.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	size := defaultSendBuffer
	if hub != nil && hub.sendBuffer > 0 {
		size = hub.sendBuffer
	}
	return &Client{
		ID:    uuid.NewString(),
		Conn:  conn,
		hub:   hub,
		send:  make(chan []byte, size),
		done:  make(chan struct{}),
		rooms: make(map[string]struct{}),
	}
}

// ReadPump decodes inbound frames and hands them to the hub. It returns
// when the connection fails, after which the client is disconnected.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[hub] Client %s read error: %v", c.ID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[hub] Client %s sent a malformed frame: %v", c.ID, err)
			continue
		}

		if err := c.hub.HandleIntent(c, &msg); err != nil {
			log.Printf("[hub] Client %s intent %q dropped: %v", c.ID, msg.Type, err)
		}
	}
}

// WritePump drains the send queue to the socket and keeps the peer alive
// with pings. It is the only goroutine writing to Conn.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Deliver queues frame without blocking. It reports false when the client
// is closed or its queue is full; the frame is then lost for this client.
func (c *Client) Deliver(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Rooms returns the rooms the client currently belongs to.
func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

func (c *Client) isInRoom(roomID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.rooms[roomID]
	return ok
}

func (c *Client) addRoom(roomID string) {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) removeRoom(roomID string) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
