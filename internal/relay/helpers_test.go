package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func connectTestClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	c := NewClient(hub, nil)
	hub.Connect(c)
	return c
}

func send(t *testing.T, hub *Hub, c *Client, intent MessageType, data string) error {
	t.Helper()
	msg := &Message{Type: intent}
	if data != "" {
		msg.Data = json.RawMessage(data)
	}
	return hub.HandleIntent(c, msg)
}

func nextFrame(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case data := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return env
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("client %s received nothing", c.ID)
	}
	return Envelope{}
}

func requireNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("client %s unexpectedly received %s", c.ID, data)
	default:
	}
}
