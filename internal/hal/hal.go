// Package hal defines the hardware contract the controller drives and its two
// implementations: Real (GPIO relays and one-wire probes) and Simulated (the
// thermal model).
package hal

import (
	"fmt"
	"math"
	"time"

	"github.com/apophisnow/icemaker/internal/models"
	"github.com/apophisnow/icemaker/internal/simulator"
)

// HAL is the capability contract shared by every hardware variant.
type HAL interface {
	// SetRelay energizes or releases one relay. Turning on a relay that would
	// heat and cool the plate at once fails with models.ErrHardwareConflict and
	// changes nothing.
	SetRelay(name models.RelayName, on bool) error

	// RelayStates returns a copy of the last commanded relay states.
	RelayStates() models.RelayBank

	// ReadSensors samples every probe. Missing or garbled probes fail with an
	// error wrapping models.ErrSensorFault.
	ReadSensors() (models.SensorReading, error)

	// ReadBinFull reports whether the bin probe is at or above threshold.
	ReadBinFull(threshold float64) (bool, error)

	// Close releases the hardware. Relays are left off.
	Close() error
}

// SimulationControl is the extra surface of the simulated variant.
type SimulationControl interface {
	SetSpeed(multiplier float64) float64
	Speed() float64
	Reset()
	ResetTo(init simulator.Initial)
	SimState() simulator.State
}

// Clock is implemented by variants that keep their own time base. The
// controller times its phases with it when present.
type Clock interface {
	Now() time.Time
}

// DS18B20 measuring range, and its power-on reset value (85 °C).
const (
	MinPlausibleF = -67.0
	MaxPlausibleF = 257.0
	PowerOnResetF = 185.0
)

// checkConflict refuses a change that would leave the compressors and the hot
// gas solenoid energized together.
func checkConflict(current models.RelayBank, name models.RelayName, on bool) (models.RelayBank, error) {
	next, err := current.With(name, on)
	if err != nil {
		return current, fmt.Errorf("%w: %v", models.ErrInvalidCommand, err)
	}
	if next.Conflict() {
		return current, fmt.Errorf("%w: %s on while %s", models.ErrHardwareConflict, name, conflictPeer(name))
	}
	return next, nil
}

func conflictPeer(name models.RelayName) string {
	if name == models.RelayHotGasSolenoid {
		return "a compressor is running"
	}
	return "the hot gas solenoid is open"
}

// checkPlausible rejects values a DS18B20 cannot legitimately report.
func checkPlausible(probe string, f float64) error {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return fmt.Errorf("%w: %s probe returned %v", models.ErrSensorFault, probe, f)
	case f < MinPlausibleF || f > MaxPlausibleF:
		return fmt.Errorf("%w: %s probe out of range: %.1f°F", models.ErrSensorFault, probe, f)
	case f == PowerOnResetF:
		return fmt.Errorf("%w: %s probe returned power-on reset value", models.ErrSensorFault, probe)
	}
	return nil
}

// binFull applies the bin threshold to a reading.
func binFull(r models.SensorReading, threshold float64) bool {
	return r.BinTemp >= threshold
}
