package models

import "time"

// EventType names a controller notification.
type EventType string

const (
	EventStateChanged       EventType = "STATE_CHANGED"
	EventTemperatureSampled EventType = "TEMPERATURE_SAMPLED"
	EventRelayChanged       EventType = "RELAY_CHANGED"
	EventFaultRaised        EventType = "FAULT_RAISED"
)

// Event is pushed to observers. Exactly one payload field is set, matching Type.
type Event struct {
	Type    EventType      `json:"type"`
	At      time.Time      `json:"at"`
	State   *StateChange   `json:"state,omitempty"`
	Reading *SensorReading `json:"reading,omitempty"`
	Relay   *RelayChange   `json:"relay,omitempty"`
	Fault   *Fault         `json:"fault,omitempty"`
}

type StateChange struct {
	From   State  `json:"from"`
	To     State  `json:"to"`
	Reason string `json:"reason"`
}

type RelayChange struct {
	Relay RelayName `json:"relay"`
	On    bool      `json:"on"`
}

type Fault struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	State   State  `json:"state"`
}

// Journal entry types.
const (
	LogStateChange = "STATE_CHANGE"
	LogFault       = "FAULT"
	LogCommand     = "COMMAND"
	LogConfig      = "CONFIG"
)

// IsLogType reports whether t names a journal entry type. Empty matches all.
func IsLogType(t string) bool {
	switch t {
	case "", LogStateChange, LogFault, LogCommand, LogConfig:
		return true
	}
	return false
}

// LogEvent is a single journal entry.
type LogEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // STATE_CHANGE | FAULT | COMMAND | CONFIG
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
