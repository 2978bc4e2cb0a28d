package models

import "time"

// PhaseConfig is the target and timeout of one temperature-seeking phase.
type PhaseConfig struct {
	TargetTemp     float64 `json:"target_temp_f"`
	TimeoutSeconds int     `json:"timeout_s"`
}

func (p PhaseConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// PrimingConfig drives the POWER_ON water priming sequence.
type PrimingConfig struct {
	Enabled      bool `json:"enabled"`
	FlushSeconds int  `json:"flush_s"`
	PumpSeconds  int  `json:"pump_s"`
	FillSeconds  int  `json:"fill_s"`
}

// Total is the full length of the priming sequence.
func (p PrimingConfig) Total() time.Duration {
	return time.Duration(p.FlushSeconds+p.PumpSeconds+p.FillSeconds) * time.Second
}

// CycleConfig holds every runtime-tunable parameter of the ice cycle.
// Temperatures are °F, durations are seconds.
type CycleConfig struct {
	Prechill              PhaseConfig   `json:"prechill"`
	Ice                   PhaseConfig   `json:"ice"`
	Harvest               PhaseConfig   `json:"harvest"`
	Rechill               PhaseConfig   `json:"rechill"`
	HarvestFillSeconds    int           `json:"harvest_fill_s"`
	BinFullThreshold      float64       `json:"bin_full_threshold_f"`
	StandbyTimeoutSeconds int           `json:"standby_timeout_s"`
	PowerOnTimeoutSeconds int           `json:"power_on_timeout_s"`
	Priming               PrimingConfig `json:"priming"`
	PollIntervalSeconds   float64       `json:"poll_interval_s"`
	SimulatorEnabled      bool          `json:"simulator_enabled"`
}

// DefaultCycleConfig returns the factory defaults.
func DefaultCycleConfig() CycleConfig {
	return CycleConfig{
		Prechill:              PhaseConfig{TargetTemp: 32, TimeoutSeconds: 120},
		Ice:                   PhaseConfig{TargetTemp: -2, TimeoutSeconds: 1500},
		Harvest:               PhaseConfig{TargetTemp: 38, TimeoutSeconds: 240},
		Rechill:               PhaseConfig{TargetTemp: 35, TimeoutSeconds: 300},
		HarvestFillSeconds:    18,
		BinFullThreshold:      35,
		StandbyTimeoutSeconds: 1800,
		PowerOnTimeoutSeconds: 120,
		Priming: PrimingConfig{
			Enabled:      false,
			FlushSeconds: 30,
			PumpSeconds:  15,
			FillSeconds:  30,
		},
		PollIntervalSeconds: 5,
		SimulatorEnabled:    false,
	}
}

func (c CycleConfig) HarvestFill() time.Duration {
	return time.Duration(c.HarvestFillSeconds) * time.Second
}

func (c CycleConfig) StandbyTimeout() time.Duration {
	return time.Duration(c.StandbyTimeoutSeconds) * time.Second
}

func (c CycleConfig) PowerOnTimeout() time.Duration {
	return time.Duration(c.PowerOnTimeoutSeconds) * time.Second
}

func (c CycleConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds * float64(time.Second))
}

// ChillPhase returns the phase settings for a chill mode.
func (c CycleConfig) ChillPhase(mode ChillMode) PhaseConfig {
	if mode == Rechill {
		return c.Rechill
	}
	return c.Prechill
}

// TargetFor derives the temperature target of a state; ok is false outside
// temperature-seeking phases.
func (c CycleConfig) TargetFor(s State) (float64, bool) {
	switch s.Kind() {
	case KindChill:
		mode, _ := s.ChillMode()
		return c.ChillPhase(mode).TargetTemp, true
	case KindIce:
		return c.Ice.TargetTemp, true
	case KindHeat:
		return c.Harvest.TargetTemp, true
	}
	return 0, false
}
