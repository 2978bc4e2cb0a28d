package models

import "time"

// Status is the controller status as seen by readers. It is always a copy.
type Status struct {
	State             State     `json:"state"`
	PreviousState     State     `json:"previous_state"`
	StateEnteredAt    time.Time `json:"state_entered_at"`
	TimeInStateSec    float64   `json:"time_in_state_s"`
	CycleCount        int64     `json:"cycle_count"`
	SessionCycleCount int64     `json:"session_cycle_count"`
	TargetTemp        *float64  `json:"target_temp_f"`
	ShutdownRequested bool      `json:"shutdown_requested"`
	LastFault         string    `json:"last_fault,omitempty"`
}

// Snapshot bundles status, relays, and the latest reading.
type Snapshot struct {
	Status  Status         `json:"status"`
	Relays  RelayBank      `json:"relays"`
	Reading *SensorReading `json:"reading,omitempty"`
}

// StateRecord is the persisted form of the controller state, used to resume
// after a restart.
type StateRecord struct {
	ID                int       `json:"id"`
	State             State     `json:"state"`
	PreviousState     State     `json:"previous_state"`
	CycleCount        int64     `json:"cycle_count"`
	ShutdownRequested bool      `json:"shutdown_requested"`
	LastFault         string    `json:"last_fault,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}
