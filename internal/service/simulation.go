package service

import (
	"context"

	"github.com/apophisnow/icemaker/internal/hal"
	"github.com/apophisnow/icemaker/internal/logger"
)

type SimulationService struct {
	sim hal.SimulationControl
	log *logger.Logger
}

// NewSimulationService wraps the simulated HAL. A nil sim makes every
// control call fail with ErrSimulatorUnavailable.
func NewSimulationService(sim hal.SimulationControl, log *logger.Logger) *SimulationService {
	return &SimulationService{sim: sim, log: log}
}

// Status reports Enabled=false on real hardware instead of failing.
func (s *SimulationService) Status(ctx context.Context) (SimulationStatus, error) {
	if s.sim == nil {
		return SimulationStatus{Enabled: false, Speed: 1}, nil
	}
	return s.status(), nil
}

// SetSpeed sets the wall-to-model time multiplier. Out-of-range values are
// clamped; the applied value is returned.
func (s *SimulationService) SetSpeed(ctx context.Context, multiplier float64) (SimulationStatus, error) {
	if s.sim == nil {
		return SimulationStatus{}, ErrSimulatorUnavailable
	}
	applied := s.sim.SetSpeed(multiplier)
	s.log.Infow("simulator_speed_set", "requested", multiplier, "applied", applied)
	return s.status(), nil
}

// Reset returns the thermal model to its initial conditions. The controller
// keeps its state and reacts on the next tick.
func (s *SimulationService) Reset(ctx context.Context) (SimulationStatus, error) {
	if s.sim == nil {
		return SimulationStatus{}, ErrSimulatorUnavailable
	}
	s.sim.Reset()
	s.log.Infow("simulator_reset")
	return s.status(), nil
}

func (s *SimulationService) status() SimulationStatus {
	st := s.sim.SimState()
	return SimulationStatus{Enabled: true, Speed: s.sim.Speed(), Model: &st}
}
