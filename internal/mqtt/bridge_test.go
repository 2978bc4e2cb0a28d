package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apophisnow/icemaker/internal/models"
)

type fakeSource struct {
	mu     sync.Mutex
	snap   models.Snapshot
	events chan models.Event
	subs   int
}

func newFakeSource(snap models.Snapshot) *fakeSource {
	return &fakeSource{snap: snap, events: make(chan models.Event, 16)}
}

func (s *fakeSource) Snapshot(ctx context.Context) models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *fakeSource) Subscribe(buf int) (<-chan models.Event, func()) {
	s.mu.Lock()
	s.subs++
	s.mu.Unlock()
	return s.events, func() {
		s.mu.Lock()
		s.subs--
		s.mu.Unlock()
	}
}

func (s *fakeSource) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs
}

type fakeCommander struct {
	mu   sync.Mutex
	cmds []string
	err  error
}

func (c *fakeCommander) Execute(ctx context.Context, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cmds = append(c.cmds, cmd)
	return c.err
}

func (c *fakeCommander) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.cmds...)
}

func runBridge(t *testing.T, b *Bridge) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	return func() {
		stop()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("bridge did not stop")
		}
	}
}

func TestBridge_PublishesSnapshotThenEvents(t *testing.T) {
	pub := NewFakePublisher()
	src := newFakeSource(models.Snapshot{Status: models.Status{
		State:          models.StateStandby,
		PreviousState:  models.StateOff,
		StateEnteredAt: at,
		CycleCount:     7,
	}})
	stop := runBridge(t, NewBridge(pub, "kitchen/ice", src, &fakeCommander{}, nil))

	require.Eventually(t, func() bool { return len(pub.OnTopic("kitchen/ice/state")) == 1 }, time.Second, 5*time.Millisecond)
	first := pub.OnTopic("kitchen/ice/state")[0]
	assert.True(t, first.Retained)
	var p StatePayload
	require.NoError(t, json.Unmarshal(first.Payload, &p))
	assert.Equal(t, "STANDBY", p.State)
	assert.Equal(t, int64(7), p.CycleCount)

	src.events <- models.Event{Type: models.EventRelayChanged, At: at, Relay: &models.RelayChange{Relay: models.RelayLED, On: true}}
	src.events <- models.Event{Type: models.EventFaultRaised, At: at, Fault: &models.Fault{Kind: models.FaultSensor, Message: "plate probe missing", State: models.StateIce}}

	require.Eventually(t, func() bool { return len(pub.OnTopic("kitchen/ice/fault")) == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, pub.OnTopic("kitchen/ice/relay/led"), 1)

	stop()
	assert.Equal(t, 0, src.subscribers())
}

func TestBridge_PublishErrorsDoNotStopTheBridge(t *testing.T) {
	pub := NewFakePublisher()
	pub.PublishError = errors.New("not connected")
	src := newFakeSource(models.Snapshot{})
	stop := runBridge(t, NewBridge(pub, "", src, &fakeCommander{}, nil))

	src.events <- models.Event{Type: models.EventTemperatureSampled, At: at, Reading: &models.SensorReading{PlateTemp: 30}}
	require.Eventually(t, func() bool { return len(src.events) == 0 }, time.Second, 5*time.Millisecond)

	pub.mu.Lock()
	pub.PublishError = nil
	pub.mu.Unlock()
	src.events <- models.Event{Type: models.EventTemperatureSampled, At: at, Reading: &models.SensorReading{PlateTemp: 29}}
	require.Eventually(t, func() bool {
		msgs := pub.OnTopic("icemaker/temperature")
		if len(msgs) == 0 {
			return false
		}
		var p TemperaturePayload
		return json.Unmarshal(msgs[len(msgs)-1].Payload, &p) == nil && p.PlateF == 29
	}, time.Second, 5*time.Millisecond)
	stop()
}

func TestBridge_Commands(t *testing.T) {
	pub := NewFakePublisher()
	cmds := &fakeCommander{}
	stop := runBridge(t, NewBridge(pub, "icemaker", newFakeSource(models.Snapshot{}), cmds, nil))
	defer stop()

	require.Eventually(t, func() bool { return pub.Deliver("icemaker/command", []byte("start")) }, time.Second, 5*time.Millisecond)
	pub.Deliver("icemaker/command", []byte(`{"command":"emergency-stop"}`))
	pub.Deliver("icemaker/command", []byte("enter_diagnostic"))
	pub.Deliver("icemaker/command", []byte("self_destruct"))

	assert.Equal(t, []string{"start", "emergency_stop"}, cmds.received())
}

func TestBridge_ExecuteReportsRejections(t *testing.T) {
	cmds := &fakeCommander{err: models.ErrInvalidCommand}
	b := NewBridge(NewFakePublisher(), "", newFakeSource(models.Snapshot{}), cmds, nil)

	assert.ErrorIs(t, b.execute(context.Background(), []byte("stop")), models.ErrInvalidCommand)
	assert.ErrorIs(t, b.execute(context.Background(), []byte("set_relay")), ErrCommandNotBridged)
	assert.Equal(t, []string{"stop"}, cmds.received())
}
