package models

import (
	"fmt"
	"strings"
)

// StateKind is the top-level FSM state tag.
type StateKind string

const (
	KindOff        StateKind = "OFF"
	KindPowerOn    StateKind = "POWER_ON"
	KindStandby    StateKind = "STANDBY"
	KindChill      StateKind = "CHILL"
	KindIce        StateKind = "ICE"
	KindHeat       StateKind = "HEAT"
	KindIdle       StateKind = "IDLE"
	KindError      StateKind = "ERROR"
	KindShutdown   StateKind = "SHUTDOWN"
	KindDiagnostic StateKind = "DIAGNOSTIC"
)

// ChillMode is only meaningful as the payload of a CHILL state.
type ChillMode string

const (
	Prechill ChillMode = "PRECHILL"
	Rechill  ChillMode = "RECHILL"
)

// State is the current FSM state. The chill mode is carried by the value itself,
// so a non-CHILL state can never hold one.
type State struct {
	kind StateKind
	mode ChillMode
}

var (
	StateOff        = State{kind: KindOff}
	StatePowerOn    = State{kind: KindPowerOn}
	StateStandby    = State{kind: KindStandby}
	StateIce        = State{kind: KindIce}
	StateHeat       = State{kind: KindHeat}
	StateIdle       = State{kind: KindIdle}
	StateError      = State{kind: KindError}
	StateShutdown   = State{kind: KindShutdown}
	StateDiagnostic = State{kind: KindDiagnostic}
)

// Chill returns the CHILL state carrying the given mode.
func Chill(mode ChillMode) State {
	return State{kind: KindChill, mode: mode}
}

func (s State) Kind() StateKind { return s.kind }

// ChillMode reports the chill sub-mode; ok is false outside CHILL.
func (s State) ChillMode() (ChillMode, bool) {
	if s.kind != KindChill {
		return "", false
	}
	return s.mode, true
}

func (s State) IsZero() bool { return s.kind == "" }

// InCycle reports whether the state is part of an active ice-making cycle.
func (s State) InCycle() bool {
	switch s.kind {
	case KindPowerOn, KindChill, KindIce, KindHeat:
		return true
	}
	return false
}

func (s State) String() string {
	if s.kind == KindChill {
		return string(s.kind) + ":" + string(s.mode)
	}
	return string(s.kind)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts an empty value as the zero State.
func (s *State) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = State{}
		return nil
	}
	parsed, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState is the inverse of State.String. A bare "CHILL" parses as prechill.
func ParseState(s string) (State, error) {
	kind, mode, _ := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), ":")
	switch StateKind(kind) {
	case KindChill:
		switch ChillMode(mode) {
		case "", Prechill:
			return Chill(Prechill), nil
		case Rechill:
			return Chill(Rechill), nil
		}
		return State{}, fmt.Errorf("unknown chill mode %q", mode)
	case KindOff, KindPowerOn, KindStandby, KindIce, KindHeat, KindIdle,
		KindError, KindShutdown, KindDiagnostic:
		if mode != "" {
			return State{}, fmt.Errorf("state %s takes no mode", kind)
		}
		return State{kind: StateKind(kind)}, nil
	}
	return State{}, fmt.Errorf("unknown state %q", s)
}
