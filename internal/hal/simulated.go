package hal

import (
	"sync"
	"time"

	"github.com/apophisnow/icemaker/internal/models"
	"github.com/apophisnow/icemaker/internal/simulator"
)

// Speed multiplier bounds.
const (
	MinSpeed     = 0.1
	MaxSpeed     = 1000.0
	DefaultSpeed = 1.0
)

// Simulated backs the HAL with the thermal simulator. Every call first
// advances the model by the wall-clock time since the previous call, scaled
// by the speed multiplier.
type Simulated struct {
	mu    sync.Mutex
	sim   *simulator.Simulator
	wall  func() time.Time
	last  time.Time
	speed float64
	epoch time.Time
}

// SimulatedOption configures a Simulated HAL.
type SimulatedOption func(*Simulated)

// WithWallClock replaces time.Now as the source of elapsed time.
func WithWallClock(now func() time.Time) SimulatedOption {
	return func(s *Simulated) { s.wall = now }
}

// WithSpeed sets the initial speed multiplier.
func WithSpeed(multiplier float64) SimulatedOption {
	return func(s *Simulated) { s.speed = clampSpeed(multiplier) }
}

// WithEpoch sets the simulated time origin reported by Now.
func WithEpoch(t time.Time) SimulatedOption {
	return func(s *Simulated) { s.epoch = t }
}

// NewSimulated wraps sim. A nil sim gets a default one.
func NewSimulated(sim *simulator.Simulator, opts ...SimulatedOption) *Simulated {
	if sim == nil {
		sim = simulator.New()
	}
	s := &Simulated{
		sim:   sim,
		wall:  time.Now,
		speed: DefaultSpeed,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.last = s.wall()
	if s.epoch.IsZero() {
		s.epoch = s.last.UTC()
	}
	return s
}

// advance must be called with mu held.
func (s *Simulated) advance() {
	now := s.wall()
	dt := now.Sub(s.last).Seconds()
	s.last = now
	if dt > 0 {
		s.sim.Advance(dt * s.speed)
	}
}

// now must be called with mu held.
func (s *Simulated) now() time.Time {
	return s.epoch.Add(time.Duration(s.sim.SimulatedSeconds() * float64(time.Second)))
}

func (s *Simulated) SetRelay(name models.RelayName, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advance()
	next, err := checkConflict(s.sim.Relays(), name, on)
	if err != nil {
		return err
	}
	s.sim.SetRelays(next)
	return nil
}

func (s *Simulated) RelayStates() models.RelayBank {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Relays()
}

func (s *Simulated) ReadSensors() (models.SensorReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advance()
	water := s.sim.WaterTemp()
	secs := s.sim.SimulatedSeconds()
	return models.SensorReading{
		PlateTemp:        s.sim.PlateTemp(),
		BinTemp:          s.sim.BinTemp(),
		WaterTemp:        &water,
		TakenAt:          s.now(),
		SimulatedSeconds: &secs,
	}, nil
}

func (s *Simulated) ReadBinFull(threshold float64) (bool, error) {
	r, err := s.ReadSensors()
	if err != nil {
		return false, err
	}
	return binFull(r, threshold), nil
}

// Now is simulated time: the epoch plus integrated simulated seconds.
func (s *Simulated) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

// SetSpeed clamps multiplier to [MinSpeed, MaxSpeed] and returns the value
// applied. Time already elapsed is integrated at the old speed.
func (s *Simulated) SetSpeed(multiplier float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advance()
	s.speed = clampSpeed(multiplier)
	return s.speed
}

func (s *Simulated) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Reset restores the simulator's initial conditions. Simulated time keeps
// running forward so phase timers never see the clock go backwards.
func (s *Simulated) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch = s.now()
	s.sim.Reset()
	s.last = s.wall()
}

// ResetTo is Reset with explicit initial conditions.
func (s *Simulated) ResetTo(init simulator.Initial) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch = s.now()
	s.sim.ResetTo(init)
	s.last = s.wall()
}

// SimState returns the model state after bringing it up to date.
func (s *Simulated) SimState() simulator.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advance()
	return s.sim.State()
}

// Close de-energizes every relay.
func (s *Simulated) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sim.SetRelays(models.RelayBank{})
	return nil
}

func clampSpeed(m float64) float64 {
	switch {
	case m != m || m < MinSpeed:
		return MinSpeed
	case m > MaxSpeed:
		return MaxSpeed
	}
	return m
}
