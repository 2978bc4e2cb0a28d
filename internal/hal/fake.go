package hal

import (
	"sync"
	"time"

	"github.com/apophisnow/icemaker/internal/models"
)

// Fake is a scripted HAL for tests. Readings are taken from Reading unless
// ReadError is set; relay writes are recorded in Writes.
type Fake struct {
	mu sync.Mutex

	Reading   models.SensorReading
	ReadError error

	// WriteError, if set, is returned by SetRelay for every relay.
	WriteError error
	Writes     []RelayWrite

	relays models.RelayBank
	Closed bool
}

// RelayWrite is one accepted SetRelay call.
type RelayWrite struct {
	Relay models.RelayName
	On    bool
}

// NewFake returns a Fake reading the given plate and bin temperatures.
func NewFake(plateF, binF float64) *Fake {
	return &Fake{Reading: models.SensorReading{PlateTemp: plateF, BinTemp: binF}}
}

// SetTemps changes the scripted reading.
func (f *Fake) SetTemps(plateF, binF float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reading.PlateTemp = plateF
	f.Reading.BinTemp = binF
}

// SetReadError makes reads fail with err until cleared with nil.
func (f *Fake) SetReadError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadError = err
}

func (f *Fake) SetWriteError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteError = err
}

func (f *Fake) SetRelay(name models.RelayName, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, err := checkConflict(f.relays, name, on)
	if err != nil {
		return err
	}
	if f.WriteError != nil {
		return f.WriteError
	}
	f.relays = next
	f.Writes = append(f.Writes, RelayWrite{Relay: name, On: on})
	return nil
}

func (f *Fake) RelayStates() models.RelayBank {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.relays
}

// ForceRelays overwrites relay state without any checks.
func (f *Fake) ForceRelays(b models.RelayBank) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relays = b
}

func (f *Fake) ReadSensors() (models.SensorReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return models.SensorReading{}, f.ReadError
	}
	r := f.Reading
	if r.TakenAt.IsZero() {
		r.TakenAt = time.Now().UTC()
	}
	return r, nil
}

func (f *Fake) ReadBinFull(threshold float64) (bool, error) {
	r, err := f.ReadSensors()
	if err != nil {
		return false, err
	}
	return binFull(r, threshold), nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relays = models.RelayBank{}
	f.Closed = true
	return nil
}

// WriteCount returns the number of accepted relay writes.
func (f *Fake) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Writes)
}
