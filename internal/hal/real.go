package hal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apophisnow/icemaker/internal/models"
)

// OutputDriver writes logical relay states to digital outputs. Polarity
// (active-low boards) is the driver's concern.
type OutputDriver interface {
	Write(pin int, on bool) error
	Close() error
}

// ProbeReader reads one temperature probe, in °F, by its bus address.
type ProbeReader interface {
	ReadF(id string) (float64, error)
}

// Pins maps relays to BCM GPIO lines.
type Pins map[models.RelayName]int

// DefaultPins is the wiring of the reference board.
func DefaultPins() Pins {
	return Pins{
		models.RelayWaterValve:        12,
		models.RelayHotGasSolenoid:    5,
		models.RelayRecirculatingPump: 6,
		models.RelayCompressor1:       24,
		models.RelayCompressor2:       25,
		models.RelayCondenserFan:      23,
		models.RelayLED:               22,
		models.RelayIceCutter:         27,
	}
}

// Lines returns the pin numbers in relay order.
func (p Pins) Lines() []int {
	out := make([]int, 0, len(p))
	for _, r := range models.AllRelays {
		if pin, ok := p[r]; ok {
			out = append(out, pin)
		}
	}
	return out
}

func (p Pins) validate() error {
	seen := make(map[int]models.RelayName, len(p))
	for _, r := range models.AllRelays {
		pin, ok := p[r]
		if !ok {
			return fmt.Errorf("no pin for relay %s", r)
		}
		if other, dup := seen[pin]; dup {
			return fmt.Errorf("pin %d assigned to both %s and %s", pin, other, r)
		}
		seen[pin] = r
	}
	return nil
}

// Probes holds the one-wire addresses of the temperature probes. Water is
// optional.
type Probes struct {
	Plate string
	Bin   string
	Water string
}

// DefaultProbes are the DS18B20 serials of the reference machine.
func DefaultProbes() Probes {
	return Probes{
		Plate: "092101487373",
		Bin:   "3c01f0956abd",
	}
}

// Real drives physical relays and probes.
type Real struct {
	mu     sync.Mutex
	out    OutputDriver
	probes ProbeReader
	pins   Pins
	ids    Probes
	relays models.RelayBank
	now    func() time.Time
}

// NewReal validates the wiring and drives every output off.
func NewReal(out OutputDriver, probes ProbeReader, pins Pins, ids Probes) (*Real, error) {
	if out == nil || probes == nil {
		return nil, errors.New("hal: output driver and probe reader are required")
	}
	if err := pins.validate(); err != nil {
		return nil, fmt.Errorf("hal: %w", err)
	}
	if ids.Plate == "" || ids.Bin == "" {
		return nil, errors.New("hal: plate and bin probe ids are required")
	}
	r := &Real{out: out, probes: probes, pins: pins, ids: ids, now: time.Now}
	for _, name := range models.AllRelays {
		if err := out.Write(pins[name], false); err != nil {
			return nil, fmt.Errorf("hal: init relay %s: %w", name, err)
		}
	}
	return r, nil
}

func (r *Real) SetRelay(name models.RelayName, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := checkConflict(r.relays, name, on)
	if err != nil {
		return err
	}
	pin := r.pins[name]
	if err := r.out.Write(pin, on); err != nil {
		return fmt.Errorf("write relay %s (pin %d): %w", name, pin, err)
	}
	r.relays = next
	return nil
}

func (r *Real) RelayStates() models.RelayBank {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.relays
}

func (r *Real) ReadSensors() (models.SensorReading, error) {
	plate, err := r.read("plate", r.ids.Plate)
	if err != nil {
		return models.SensorReading{}, err
	}
	bin, err := r.read("bin", r.ids.Bin)
	if err != nil {
		return models.SensorReading{}, err
	}
	reading := models.SensorReading{PlateTemp: plate, BinTemp: bin, TakenAt: r.now().UTC()}
	if r.ids.Water != "" {
		water, err := r.read("water", r.ids.Water)
		if err != nil {
			return models.SensorReading{}, err
		}
		reading.WaterTemp = &water
	}
	return reading, nil
}

func (r *Real) read(probe, id string) (float64, error) {
	f, err := r.probes.ReadF(id)
	if err != nil {
		if errors.Is(err, models.ErrSensorFault) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %s probe %s: %v", models.ErrSensorFault, probe, id, err)
	}
	if err := checkPlausible(probe, f); err != nil {
		return 0, err
	}
	return f, nil
}

func (r *Real) ReadBinFull(threshold float64) (bool, error) {
	bin, err := r.read("bin", r.ids.Bin)
	if err != nil {
		return false, err
	}
	return bin >= threshold, nil
}

// Close turns every relay off, then releases the driver.
func (r *Real) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, name := range models.AllRelays {
		if err := r.out.Write(r.pins[name], false); err != nil {
			errs = append(errs, fmt.Errorf("release relay %s: %w", name, err))
		}
	}
	r.relays = models.RelayBank{}
	if err := r.out.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
