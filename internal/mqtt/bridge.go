package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/models"
)

const (
	bridgeBuffer   = 128
	commandTimeout = 5 * time.Second
)

// ErrCommandNotBridged rejects commands the broker may not issue.
var ErrCommandNotBridged = errors.New("command not accepted over mqtt")

// bridgedCommands are the operator commands accepted on <prefix>/command.
// Diagnostic relay control stays on the local API.
var bridgedCommands = map[string]bool{
	"start":          true,
	"stop":           true,
	"emergency_stop": true,
	"shutdown":       true,
}

// Source is the controller view the bridge follows.
type Source interface {
	Snapshot(ctx context.Context) models.Snapshot
	Subscribe(buf int) (<-chan models.Event, func())
}

// Commander executes operator commands by name.
type Commander interface {
	Execute(ctx context.Context, cmd string) error
}

// Bridge publishes controller events and forwards broker commands.
type Bridge struct {
	pub    Publisher
	prefix string
	source Source
	cmds   Commander
	log    *logger.Logger
}

func NewBridge(pub Publisher, prefix string, source Source, cmds Commander, log *logger.Logger) *Bridge {
	if log == nil {
		log = logger.Nop()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Bridge{pub: pub, prefix: prefix, source: source, cmds: cmds, log: log}
}

// Run publishes the current state (retained), then every controller event
// until ctx ends. It fails only if the command subscription cannot be made.
func (b *Bridge) Run(ctx context.Context) error {
	events, unsubscribe := b.source.Subscribe(bridgeBuffer)
	defer unsubscribe()

	if err := b.pub.Subscribe(Topic(b.prefix, TopicCommand), func(_ string, payload []byte) {
		b.handleCommand(ctx, payload)
	}); err != nil {
		return fmt.Errorf("subscribe command topic: %w", err)
	}

	b.publishSnapshot(ctx)
	b.log.Infow("mqtt_bridge_started", "prefix", b.prefix)

	for {
		select {
		case <-ctx.Done():
			b.log.Infow("mqtt_bridge_stopped")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			b.publishEvent(ctx, ev)
		}
	}
}

func (b *Bridge) publishSnapshot(ctx context.Context) {
	snap := b.source.Snapshot(ctx)
	ev := models.Event{
		Type:  models.EventStateChanged,
		At:    snap.Status.StateEnteredAt,
		State: &models.StateChange{From: snap.Status.PreviousState, To: snap.Status.State},
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.publish(ev, snap.Status.CycleCount)
}

func (b *Bridge) publishEvent(ctx context.Context, ev models.Event) {
	var cycles int64
	if ev.Type == models.EventStateChanged {
		cycles = b.source.Snapshot(ctx).Status.CycleCount
	}
	b.publish(ev, cycles)
}

func (b *Bridge) publish(ev models.Event, cycles int64) {
	msg, ok, err := FormatEvent(b.prefix, ev, cycles)
	if err != nil {
		b.log.Warnw("mqtt_format_failed", "event", ev.Type, "err", err)
		return
	}
	if !ok {
		return
	}
	if err := b.pub.Publish(msg.Topic, msg.Payload, msg.Retained); err != nil {
		b.log.Warnw("mqtt_publish_failed", "topic", msg.Topic, "err", err)
	}
}

func (b *Bridge) handleCommand(ctx context.Context, payload []byte) {
	if err := b.execute(ctx, payload); err != nil {
		b.log.Warnw("mqtt_command_rejected", "payload", string(payload), "err", err)
	}
}

func (b *Bridge) execute(ctx context.Context, payload []byte) error {
	cmd := ParseCommand(payload)
	if !bridgedCommands[cmd] {
		return fmt.Errorf("%w: %q", ErrCommandNotBridged, cmd)
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := b.cmds.Execute(ctx, cmd); err != nil {
		return err
	}
	b.log.Infow("mqtt_command_accepted", "command", cmd)
	return nil
}
