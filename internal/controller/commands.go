package controller

import (
	"fmt"
	"time"

	"github.com/apophisnow/icemaker/internal/models"
)

// Command names, as used by the API and the MQTT bridge.
const (
	CmdStart           = "start"
	CmdStop            = "stop"
	CmdEmergencyStop   = "emergency_stop"
	CmdShutdown        = "shutdown"
	CmdEnterDiagnostic = "enter_diagnostic"
	CmdExitDiagnostic  = "exit_diagnostic"
	CmdSetRelay        = "set_relay"
)

func invalid(cmd string, s models.State) error {
	return fmt.Errorf("%w: %s not allowed in %s", models.ErrInvalidCommand, cmd, s)
}

// Start begins operation. From OFF it primes (or goes straight to standby);
// from STANDBY or IDLE it starts a cycle at prechill.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	switch c.state.Kind() {
	case models.KindOff:
		if c.cfg.Priming.Enabled {
			return c.command(models.StatePowerOn, now, CmdStart)
		}
		return c.command(models.StateStandby, now, CmdStart)
	case models.KindStandby, models.KindIdle:
		return c.command(models.Chill(models.Prechill), now, CmdStart)
	}
	return invalid(CmdStart, c.state)
}

// Stop abandons an active phase, or leaves IDLE, and lands in STANDBY with
// every relay off. In STANDBY it does nothing.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state.InCycle(), c.state.Kind() == models.KindIdle:
		c.shutdownRequested = false
		return c.command(models.StateStandby, c.now(), CmdStop)
	case c.state.Kind() == models.KindStandby:
		return nil
	}
	return invalid(CmdStop, c.state)
}

// EmergencyStop releases every relay and lands in OFF from any state. It
// clears the last fault, a pending shutdown, and the harvest timer. Relay
// write failures are logged, never returned.
func (c *Controller) EmergencyStop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.allOff(now)
	c.lastFault = ""
	c.shutdownRequested = false
	c.harvestStartedAt = time.Time{}
	c.log.Warnw("emergency_stop", "state", c.state.String())
	if c.state.Kind() != models.KindOff {
		c.transition(models.StateOff, now, CmdEmergencyStop)
	}
}

// EnterDiagnostic hands relay control to the caller. Only valid from OFF.
func (c *Controller) EnterDiagnostic() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Kind() != models.KindOff {
		return invalid(CmdEnterDiagnostic, c.state)
	}
	return c.command(models.StateDiagnostic, c.now(), CmdEnterDiagnostic)
}

// ExitDiagnostic releases every relay and returns to OFF.
func (c *Controller) ExitDiagnostic() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Kind() != models.KindDiagnostic {
		return invalid(CmdExitDiagnostic, c.state)
	}
	return c.command(models.StateOff, c.now(), CmdExitDiagnostic)
}

// SetRelay switches one relay directly. Only valid in DIAGNOSTIC. A request
// that would heat and cool at once is a hardware conflict and forces ERROR.
func (c *Controller) SetRelay(name models.RelayName, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Kind() != models.KindDiagnostic {
		return invalid(CmdSetRelay, c.state)
	}
	if _, err := models.ParseRelayName(string(name)); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidCommand, err)
	}
	now := c.now()
	if c.hal.RelayStates().Get(name) == on {
		return nil
	}
	if err := c.hal.SetRelay(name, on); err != nil {
		c.fault(now, err)
		return err
	}
	c.log.Infow("relay_set", "relay", name, "on", on)
	c.publish(models.Event{
		Type:  models.EventRelayChanged,
		At:    now,
		Relay: &models.RelayChange{Relay: name, On: on},
	})
	return nil
}

// RequestShutdown stops the machine gracefully. At rest it enters SHUTDOWN
// at once; during a cycle it lets the cycle finish through rechill first.
func (c *Controller) RequestShutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state.Kind() {
	case models.KindStandby, models.KindIdle, models.KindError, models.KindOff:
		c.lastFault = ""
		return c.command(models.StateShutdown, c.now(), CmdShutdown)
	case models.KindPowerOn, models.KindChill, models.KindIce, models.KindHeat:
		if !c.shutdownRequested {
			c.shutdownRequested = true
			c.log.Infow("shutdown_requested", "state", c.state.String())
		}
		return nil
	case models.KindShutdown:
		return nil
	}
	return invalid(CmdShutdown, c.state)
}

// command performs a commanded transition. A relay failure while entering
// the new state forces ERROR and is returned.
func (c *Controller) command(next models.State, now time.Time, cmd string) error {
	if err := c.enter(next, now, cmd); err != nil {
		c.fault(now, err)
		return err
	}
	return nil
}

// UpdateConfig validates and applies a partial update keyed by dotted field
// names. Nothing is applied unless every field is valid.
func (c *Controller) UpdateConfig(update map[string]any) (models.CycleConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := models.ApplyConfigUpdate(c.cfg, update)
	if err != nil {
		return c.cfg, err
	}
	c.cfg = next
	c.log.Infow("config_updated", "fields", len(update))
	return c.cfg, nil
}

// ResetConfig restores factory defaults.
func (c *Controller) ResetConfig() models.CycleConfig {
	c.mu.Lock()
	defer c.mu.Unlock()

	sim := c.cfg.SimulatorEnabled
	c.cfg = models.DefaultCycleConfig()
	c.cfg.SimulatorEnabled = sim
	c.log.Infow("config_reset")
	return c.cfg
}
