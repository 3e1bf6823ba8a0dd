// Package bridge relays frames between relay instances over Redis pub/sub,
// so a client connected to one instance receives events emitted on another.
package bridge

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis/v8"
)

const DefaultChannel = "relay:events"

// Deliverer writes a frame to the members connected to this instance.
type Deliverer interface {
	DeliverLocal(roomID string, frame []byte) int
}

type envelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room,omitempty"`
	Frame  json.RawMessage `json:"frame"`
}

type RedisBridge struct {
	rdb        *redis.Client
	channel    string
	instanceID string
	local      Deliverer
}

func NewRedisBridge(rdb *redis.Client, instanceID string, local Deliverer) *RedisBridge {
	return &RedisBridge{
		rdb:        rdb,
		channel:    DefaultChannel,
		instanceID: instanceID,
		local:      local,
	}
}

// Publish announces a locally emitted frame to the other instances.
func (b *RedisBridge) Publish(ctx context.Context, roomID string, frame []byte) error {
	data, err := json.Marshal(envelope{
		Origin: b.instanceID,
		Room:   roomID,
		Frame:  frame,
	})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, data).Err()
}

// Run consumes frames from other instances until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	log.Printf("[bridge] Subscribed to %s as %s", b.channel, b.instanceID)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle(msg.Payload)
		}
	}
}

func (b *RedisBridge) handle(payload string) int {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		log.Printf("[bridge] Ignoring malformed frame: %v", err)
		return 0
	}

	// Our own frames were already delivered locally.
	if env.Origin == b.instanceID || len(env.Frame) == 0 {
		return 0
	}
	return b.local.DeliverLocal(env.Room, env.Frame)
}
