package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFanout struct {
	mu    sync.Mutex
	rooms []string
	err   error
}

func (f *recordingFanout) Publish(_ context.Context, roomID string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = append(f.rooms, roomID)
	return f.err
}

func (f *recordingFanout) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.rooms...)
}

// stalledFanout never answers until released, like a Redis that accepts the
// connection and then goes quiet.
type stalledFanout struct {
	release chan struct{}
	calls   atomic.Int32
}

func (f *stalledFanout) Publish(ctx context.Context, _ string, _ []byte) error {
	f.calls.Add(1)
	select {
	case <-f.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func fixedClock(hub *Hub, at time.Time) {
	hub.dispatcher.now = func() time.Time { return at }
}

func TestChatMessageReachesRideRoomOnly(t *testing.T) {
	hub := NewHub(0)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(hub, at)

	a := connectTestClient(t, hub)
	b := connectTestClient(t, hub)
	outsider := connectTestClient(t, hub)

	require.NoError(t, send(t, hub, a, IntentJoinRideRoom, `"42"`))
	require.NoError(t, send(t, hub, b, IntentChatMessage, `{"rideId":"42","fromUserId":"u1","text":"hi"}`))

	env := nextFrame(t, a)
	assert.Equal(t, EventChatMessage, env.Type)
	assert.Equal(t, "ride:42", env.Room)

	var got ChatMessage
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, ChatMessage{RideID: "42", FromUserID: "u1", Text: "hi", At: at}, got)

	requireNoFrame(t, b)
	requireNoFrame(t, outsider)
}

func TestChatMessageWithoutTextOrRideIsDropped(t *testing.T) {
	hub := NewHub(0)
	a := connectTestClient(t, hub)
	require.NoError(t, send(t, hub, a, IntentJoinRideRoom, `"42"`))

	for _, payload := range []string{
		`{"rideId":"42","fromUserId":"u1","text":""}`,
		`{"rideId":"","fromUserId":"u1","text":"hi"}`,
		`{"fromUserId":"u1","text":"hi"}`,
	} {
		err := send(t, hub, a, IntentChatMessage, payload)
		assert.ErrorIs(t, err, ErrInvalidMessage, payload)
	}

	requireNoFrame(t, a)
}

func TestRideAcceptedTargetsRiderUserRoom(t *testing.T) {
	hub := NewHub(0)

	rider := connectTestClient(t, hub)
	rideWatcher := connectTestClient(t, hub)

	require.NoError(t, send(t, hub, rider, IntentJoin, `"r1"`))
	require.NoError(t, send(t, hub, rideWatcher, IntentJoinRideRoom, `"7"`))

	driver := connectTestClient(t, hub)
	require.NoError(t, send(t, hub, driver, IntentRiderAccepted, `{"id":"7","riderId":"r1","driverId":"d1"}`))

	env := nextFrame(t, rider)
	assert.Equal(t, EventRideAccepted, env.Type)
	assert.Equal(t, "r1", env.Room)
	assert.JSONEq(t, `{"id":"7","riderId":"r1","driverId":"d1"}`, string(env.Data))

	requireNoFrame(t, rideWatcher)
	requireNoFrame(t, driver)
}

func TestRideRejectedTargetsRiderUserRoom(t *testing.T) {
	hub := NewHub(0)
	rider := connectTestClient(t, hub)
	require.NoError(t, send(t, hub, rider, IntentJoin, `17`))

	n, err := hub.Dispatcher().RideRejected(Ride{RiderID: "17"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	env := nextFrame(t, rider)
	assert.Equal(t, EventRideRejected, env.Type)
	assert.JSONEq(t, `{"riderId":"17"}`, string(env.Data))
}

func TestRideDecisionWithoutRiderIsDropped(t *testing.T) {
	hub := NewHub(0)
	c := connectTestClient(t, hub)
	require.NoError(t, send(t, hub, c, IntentJoin, `"r1"`))

	err := send(t, hub, c, IntentRiderAccepted, `{"id":"7"}`)
	assert.ErrorIs(t, err, ErrMissingRiderID)

	err = send(t, hub, c, IntentRiderRejected, `{"id":"7","riderId":null}`)
	assert.ErrorIs(t, err, ErrMissingRiderID)

	requireNoFrame(t, c)
}

func TestRiderLocationIsGlobal(t *testing.T) {
	hub := NewHub(0)

	inRide := connectTestClient(t, hub)
	nowhere := connectTestClient(t, hub)
	require.NoError(t, send(t, hub, inRide, IntentJoinRideRoom, `"42"`))

	require.NoError(t, send(t, hub, inRide, IntentRiderLocation, `{"rideId":"42","coords":{"lat":12.9,"lng":77.6}}`))

	for _, c := range []*Client{inRide, nowhere} {
		env := nextFrame(t, c)
		assert.Equal(t, EventRiderLocationUpdate, env.Type)
		assert.Empty(t, env.Room)
		assert.JSONEq(t, `{"rideId":"42","coords":{"lat":12.9,"lng":77.6}}`, string(env.Data))
	}
}

func TestEmitIntoArbitraryRoom(t *testing.T) {
	hub := NewHub(0)
	driver := connectTestClient(t, hub)
	require.NoError(t, send(t, hub, driver, IntentRegisterVehicleType, `"Car"`))

	n, err := hub.Dispatcher().Emit("newRideRequest", "vehicle:car", map[string]string{"rideId": "5"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	env := nextFrame(t, driver)
	assert.Equal(t, "newRideRequest", env.Type)
	assert.JSONEq(t, `{"rideId":"5"}`, string(env.Data))

	n, err = hub.Dispatcher().Emit("newRideRequest", "vehicle:bike", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = hub.Dispatcher().Emit("", "vehicle:car", nil)
	assert.ErrorIs(t, err, ErrEmptyEvent)
}

func TestFullQueueDropsOnlyThatClient(t *testing.T) {
	hub := NewHub(1)
	slow := connectTestClient(t, hub)
	fast := connectTestClient(t, hub)

	n, err := hub.Dispatcher().Broadcast("tick", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	nextFrame(t, fast)

	n, err = hub.Dispatcher().Broadcast("tick", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	env := nextFrame(t, fast)
	assert.JSONEq(t, `2`, string(env.Data))

	env = nextFrame(t, slow)
	assert.JSONEq(t, `1`, string(env.Data))
	requireNoFrame(t, slow)
}

func TestEmitPublishesToFanout(t *testing.T) {
	hub := NewHub(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fanout := &recordingFanout{err: errors.New("redis down")}
	hub.Dispatcher().StartFanout(ctx, fanout, 0, 0)

	c := connectTestClient(t, hub)
	require.NoError(t, send(t, hub, c, IntentJoin, `"u1"`))

	n, err := hub.Dispatcher().Emit("walletCredited", "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = hub.Dispatcher().Broadcast("maintenance", nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(fanout.published()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"u1", ""}, fanout.published())
}

func TestDeliverLocalDoesNotPublish(t *testing.T) {
	hub := NewHub(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fanout := &recordingFanout{}
	hub.Dispatcher().StartFanout(ctx, fanout, 0, 0)
	c := connectTestClient(t, hub)

	n := hub.Dispatcher().DeliverLocal("", []byte(`{"type":"remote"}`))
	assert.Equal(t, 1, n)
	assert.Equal(t, "remote", nextFrame(t, c).Type)
	assert.Empty(t, fanout.published())
}

func TestStalledFanoutDoesNotBlockSender(t *testing.T) {
	hub := NewHub(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fanout := &stalledFanout{release: make(chan struct{})}
	hub.Dispatcher().StartFanout(ctx, fanout, 1, time.Minute)

	sender := connectTestClient(t, hub)
	watcher := connectTestClient(t, hub)

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, send(t, hub, sender, IntentRiderLocation, `{"rideId":"42","coords":[1,2]}`))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	for i := 0; i < 5; i++ {
		assert.Equal(t, EventRiderLocationUpdate, nextFrame(t, watcher).Type)
	}

	assert.Eventually(t, func() bool {
		return fanout.calls.Load() >= 1
	}, time.Second, 10*time.Millisecond)

	// at most one frame in flight and one queued, the rest were dropped
	close(fanout.release)
	assert.Never(t, func() bool {
		return fanout.calls.Load() > 2
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestFanoutPublishIsBoundedByTimeout(t *testing.T) {
	hub := NewHub(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fanout := &stalledFanout{release: make(chan struct{})}
	hub.Dispatcher().StartFanout(ctx, fanout, 8, 20*time.Millisecond)

	for i := 0; i < 3; i++ {
		_, err := hub.Dispatcher().Broadcast("tick", i)
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return fanout.calls.Load() == 3
	}, time.Second, 10*time.Millisecond)
}
