package service

import (
	"time"

	"github.com/apophisnow/icemaker/internal/simulator"
)

// LogFilter selects journal entries.
type LogFilter struct {
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // "", "STATE_CHANGE", "FAULT", "COMMAND", "CONFIG"
	Limit int       // newest N; zero means DefaultLogLimit
}

// SimulationStatus is the simulator view returned by the API.
type SimulationStatus struct {
	Enabled bool             `json:"enabled"`
	Speed   float64          `json:"speed_multiplier"`
	Model   *simulator.State `json:"model,omitempty"`
}
