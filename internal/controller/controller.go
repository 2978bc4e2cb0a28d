// Package controller sequences the ice-making cycle. A Controller owns the
// FSM state, the cycle configuration, and the counters; Tick and every command
// are serialized by one mutex.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apophisnow/icemaker/internal/hal"
	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/models"
)

// CycleStore persists the lifetime cycle counter.
type CycleStore interface {
	LoadCycleCount(ctx context.Context) (int64, error)
	SaveCycleCount(ctx context.Context, n int64) error
}

// Controller is the process FSM.
type Controller struct {
	mu     sync.Mutex
	hal    hal.HAL
	store  CycleStore
	log    *logger.Logger
	now    func() time.Time
	events *Broadcaster

	cfg               models.CycleConfig
	state             models.State
	prev              models.State
	enteredAt         time.Time
	cycleCount        int64
	sessionCount      int64
	shutdownRequested bool
	lastFault         string
	harvestStartedAt  time.Time
	lastReading       *models.SensorReading
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source used for phase timers.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithConfig sets the initial cycle configuration.
func WithConfig(cfg models.CycleConfig) Option {
	return func(c *Controller) { c.cfg = cfg }
}

// WithBroadcaster shares an event broadcaster.
func WithBroadcaster(b *Broadcaster) Option {
	return func(c *Controller) { c.events = b }
}

// New builds a controller in OFF. If h keeps its own time (the simulated
// HAL) and no clock option is given, phases are timed in simulated time.
func New(h hal.HAL, store CycleStore, log *logger.Logger, opts ...Option) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	c := &Controller{
		hal:   h,
		store: store,
		log:   log,
		now:   time.Now,
		cfg:   models.DefaultCycleConfig(),
		state: models.StateOff,
	}
	if clk, ok := h.(hal.Clock); ok {
		c.now = clk.Now
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.events == nil {
		c.events = NewBroadcaster()
	}
	c.enteredAt = c.now()
	return c
}

// LoadCounters reads the lifetime cycle count from the store.
func (c *Controller) LoadCounters(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	n, err := c.store.LoadCycleCount(ctx)
	if err != nil {
		return fmt.Errorf("load cycle count: %w", err)
	}
	c.mu.Lock()
	c.cycleCount = n
	c.mu.Unlock()
	return nil
}

// Tick reads the sensors, evaluates the current state, and drives the relays.
// It returns the resulting snapshot.
func (c *Controller) Tick(ctx context.Context) models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	reading, err := c.hal.ReadSensors()
	now := c.now()
	if err != nil {
		if c.state.Kind() != models.KindDiagnostic && c.state.Kind() != models.KindError {
			c.fault(now, err)
		}
		return c.snapshot(now)
	}
	c.lastReading = &reading
	c.publish(models.Event{Type: models.EventTemperatureSampled, At: now, Reading: &reading})

	if c.state.Kind() == models.KindDiagnostic {
		return c.snapshot(now)
	}

	if err := c.evaluate(ctx, now, reading); err != nil {
		c.fault(now, err)
		return c.snapshot(now)
	}
	if err := c.applyRelays(c.desiredRelays(c.state, now), now); err != nil {
		c.fault(now, err)
	}
	return c.snapshot(now)
}

// evaluate runs the transition rules of the current state: completion first,
// then the phase timeout.
func (c *Controller) evaluate(ctx context.Context, now time.Time, r models.SensorReading) error {
	elapsed := now.Sub(c.enteredAt)

	switch c.state.Kind() {
	case models.KindShutdown:
		c.shutdownRequested = false
		return c.enter(models.StateOff, now, "shutdown complete")

	case models.KindPowerOn:
		p := c.cfg.Priming
		// Priming.Total() <= PowerOnTimeout() is a config invariant, so
		// priming always finishes inside the power-on window.
		if !p.Enabled || elapsed >= p.Total() {
			return c.enter(models.StateStandby, now, "priming complete")
		}

	case models.KindStandby:
		if t := c.cfg.StandbyTimeout(); t > 0 && elapsed >= t {
			c.enteredAt = now
			c.log.Debugw("standby_heartbeat", "timeout_s", c.cfg.StandbyTimeoutSeconds)
		}

	case models.KindChill:
		mode, _ := c.state.ChillMode()
		phase := c.cfg.ChillPhase(mode)
		if r.PlateTemp <= phase.TargetTemp {
			if mode == models.Prechill {
				return c.enter(models.StateIce, now, "prechill target reached")
			}
			return c.finishRechill(now)
		}
		if elapsed > phase.Timeout() {
			return c.timeout(elapsed, phase.Timeout())
		}

	case models.KindIce:
		if r.PlateTemp <= c.cfg.Ice.TargetTemp {
			return c.enter(models.StateHeat, now, "ice target reached")
		}
		if elapsed > c.cfg.Ice.Timeout() {
			return c.timeout(elapsed, c.cfg.Ice.Timeout())
		}

	case models.KindHeat:
		if r.PlateTemp >= c.cfg.Harvest.TargetTemp {
			if c.harvestStartedAt.IsZero() {
				c.harvestStartedAt = now
				c.log.Infow("harvest_started", "plate_temp_f", r.PlateTemp)
			}
			if now.Sub(c.harvestStartedAt) >= c.cfg.HarvestFill() {
				return c.completeHarvest(ctx, now)
			}
		} else {
			c.harvestStartedAt = time.Time{}
		}
		if elapsed > c.cfg.Harvest.Timeout() {
			return c.timeout(elapsed, c.cfg.Harvest.Timeout())
		}

	case models.KindIdle:
		full, err := c.hal.ReadBinFull(c.cfg.BinFullThreshold)
		if err != nil {
			return err
		}
		if !full {
			return c.enter(models.Chill(models.Prechill), now, "bin has room")
		}
	}
	return nil
}

func (c *Controller) finishRechill(now time.Time) error {
	if c.shutdownRequested {
		return c.enter(models.StateShutdown, now, "shutdown requested")
	}
	full, err := c.hal.ReadBinFull(c.cfg.BinFullThreshold)
	if err != nil {
		return err
	}
	if full {
		return c.enter(models.StateIdle, now, "bin full")
	}
	return c.enter(models.Chill(models.Prechill), now, "next cycle")
}

func (c *Controller) completeHarvest(ctx context.Context, now time.Time) error {
	// the cutter and hot gas drop with the transition's relay set, before counters move
	if err := c.enter(models.Chill(models.Rechill), now, "harvest complete"); err != nil {
		return err
	}
	c.cycleCount++
	c.sessionCount++
	c.log.Infow("cycle_completed", "cycle_count", c.cycleCount, "session_cycle_count", c.sessionCount)
	if c.store != nil {
		if err := c.store.SaveCycleCount(ctx, c.cycleCount); err != nil {
			c.log.Errorw("save_cycle_count_failed", "cycle_count", c.cycleCount, "error", err)
		}
	}
	return nil
}

func (c *Controller) timeout(elapsed, limit time.Duration) error {
	return fmt.Errorf("%w: %s ran %s (limit %s)", models.ErrPhaseTimeout, c.state, elapsed.Round(time.Second), limit)
}

// enter applies the relay set of next and then makes it current.
func (c *Controller) enter(next models.State, now time.Time, reason string) error {
	if next.Kind() != models.KindHeat {
		c.harvestStartedAt = time.Time{}
	}
	saved := c.enteredAt
	c.enteredAt = now
	if err := c.applyRelays(c.desiredRelays(next, now), now); err != nil {
		c.enteredAt = saved
		return err
	}
	c.transition(next, now, reason)
	return nil
}

// transition records the state change. Relays must already match next.
func (c *Controller) transition(next models.State, now time.Time, reason string) {
	from := c.state
	c.prev = from
	c.state = next
	c.enteredAt = now
	c.log.Infow("state_changed", "from", from.String(), "to", next.String(), "reason", reason)
	c.publish(models.Event{
		Type:  models.EventStateChanged,
		At:    now,
		State: &models.StateChange{From: from, To: next, Reason: reason},
	})
}

// fault forces ERROR with every relay released. The state that failed is kept
// as the previous state.
func (c *Controller) fault(now time.Time, err error) {
	kind := models.FaultKind(err)
	from := c.state
	c.lastFault = fmt.Sprintf("%s: %v", kind, err)
	c.harvestStartedAt = time.Time{}
	c.allOff(now)

	c.log.Errorw("fault_raised", "kind", kind, "state", from.String(), "error", err)
	c.publish(models.Event{
		Type:  models.EventFaultRaised,
		At:    now,
		Fault: &models.Fault{Kind: kind, Message: err.Error(), State: from},
	})
	if from.Kind() != models.KindError {
		c.transition(models.StateError, now, kind)
	}
}

// applyRelays drives the outputs to target, releasing before energizing so
// the heat/cool pair never overlaps.
func (c *Controller) applyRelays(target models.RelayBank, now time.Time) error {
	current := c.hal.RelayStates()
	changed := current.Diff(target)
	for _, pass := range []bool{false, true} {
		for _, name := range changed {
			if target.Get(name) != pass {
				continue
			}
			if err := c.hal.SetRelay(name, pass); err != nil {
				return err
			}
			c.publish(models.Event{
				Type:  models.EventRelayChanged,
				At:    now,
				Relay: &models.RelayChange{Relay: name, On: pass},
			})
		}
	}
	return nil
}

// allOff releases every energized relay, continuing past failures.
func (c *Controller) allOff(now time.Time) {
	current := c.hal.RelayStates()
	for _, name := range models.AllRelays {
		if !current.Get(name) {
			continue
		}
		if err := c.hal.SetRelay(name, false); err != nil {
			c.log.Errorw("relay_release_failed", "relay", name, "error", err)
			continue
		}
		c.publish(models.Event{
			Type:  models.EventRelayChanged,
			At:    now,
			Relay: &models.RelayChange{Relay: name, On: false},
		})
	}
}

func (c *Controller) publish(ev models.Event) {
	c.events.Publish(ev)
}

// Subscribe registers an observer for controller events. Delivery never
// blocks the controller; a full buffer drops events.
func (c *Controller) Subscribe(buf int) (<-chan models.Event, func()) {
	return c.events.Subscribe(buf)
}

// Snapshot returns a copy of the current status, relays, and latest reading.
func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(c.now())
}

func (c *Controller) snapshot(now time.Time) models.Snapshot {
	st := models.Status{
		State:             c.state,
		PreviousState:     c.prev,
		StateEnteredAt:    c.enteredAt,
		TimeInStateSec:    now.Sub(c.enteredAt).Seconds(),
		CycleCount:        c.cycleCount,
		SessionCycleCount: c.sessionCount,
		ShutdownRequested: c.shutdownRequested,
		LastFault:         c.lastFault,
	}
	if st.TimeInStateSec < 0 {
		st.TimeInStateSec = 0
	}
	if t, ok := c.cfg.TargetFor(c.state); ok {
		st.TargetTemp = &t
	}
	snap := models.Snapshot{Status: st, Relays: c.hal.RelayStates()}
	if c.lastReading != nil {
		r := *c.lastReading
		snap.Reading = &r
	}
	return snap
}

// Record is the persistable form of the current state.
func (c *Controller) Record() models.StateRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.StateRecord{
		ID:                1,
		State:             c.state,
		PreviousState:     c.prev,
		CycleCount:        c.cycleCount,
		ShutdownRequested: c.shutdownRequested,
		LastFault:         c.lastFault,
		UpdatedAt:         c.now().UTC(),
	}
}

// Restore resumes from a persisted record. Rest states come back as they
// were; a cycle interrupted mid-way restarts at prechill. Phase timers start
// from now.
func (c *Controller) Restore(rec models.StateRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if rec.CycleCount > c.cycleCount {
		c.cycleCount = rec.CycleCount
	}
	c.lastFault = rec.LastFault

	var next models.State
	switch {
	case rec.State.InCycle():
		next = models.Chill(models.Prechill)
		c.shutdownRequested = rec.ShutdownRequested
	case rec.State.Kind() == models.KindStandby, rec.State.Kind() == models.KindIdle,
		rec.State.Kind() == models.KindError:
		next = rec.State
	default:
		next = models.StateOff
	}
	if next.Kind() != models.KindError {
		c.lastFault = ""
	}
	if next == c.state {
		c.enteredAt = now
	} else if err := c.enter(next, now, "restored from "+rec.State.String()); err != nil {
		c.fault(now, err)
		return err
	}
	// ERROR keeps the phase that faulted, not the boot state.
	if next.Kind() == models.KindError {
		c.prev = rec.PreviousState
	}
	return nil
}

// Config returns a copy of the active configuration.
func (c *Controller) Config() models.CycleConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// State returns the current state.
func (c *Controller) State() models.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Events exposes the broadcaster, mainly for metrics on dropped deliveries.
func (c *Controller) Events() *Broadcaster { return c.events }
