package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by the controller, the HAL, and the API layer.
var (
	ErrSensorFault      = errors.New("sensor fault")
	ErrPhaseTimeout     = errors.New("phase timeout")
	ErrInvalidCommand   = errors.New("invalid command")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrHardwareConflict = errors.New("hardware conflict")
)

// Fault kind names as they appear in events and API responses.
const (
	FaultSensor           = "SENSOR_FAULT"
	FaultPhaseTimeout     = "PHASE_TIMEOUT"
	FaultInvalidCommand   = "INVALID_COMMAND"
	FaultInvalidConfig    = "INVALID_CONFIG"
	FaultHardwareConflict = "HARDWARE_CONFLICT"
	FaultHardware         = "HARDWARE_ERROR"
)

// FaultKind classifies err against the taxonomy. Errors outside it are
// reported as hardware errors (relay write failures and the like).
func FaultKind(err error) string {
	switch {
	case errors.Is(err, ErrSensorFault):
		return FaultSensor
	case errors.Is(err, ErrPhaseTimeout):
		return FaultPhaseTimeout
	case errors.Is(err, ErrInvalidCommand):
		return FaultInvalidCommand
	case errors.Is(err, ErrInvalidConfig):
		return FaultInvalidConfig
	case errors.Is(err, ErrHardwareConflict):
		return FaultHardwareConflict
	}
	return FaultHardware
}

// FieldError describes one rejected config field.
type FieldError struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// ValidationError is returned when a config update is rejected. It unwraps to
// ErrInvalidConfig.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Key, f.Reason))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }
