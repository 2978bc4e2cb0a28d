package models

import "fmt"

// RelayName identifies one of the eight relay outputs.
type RelayName string

const (
	RelayWaterValve        RelayName = "water_valve"
	RelayHotGasSolenoid    RelayName = "hot_gas_solenoid"
	RelayRecirculatingPump RelayName = "recirculating_pump"
	RelayCompressor1       RelayName = "compressor_1"
	RelayCompressor2       RelayName = "compressor_2"
	RelayCondenserFan      RelayName = "condenser_fan"
	RelayLED               RelayName = "led"
	RelayIceCutter         RelayName = "ice_cutter"
)

// AllRelays lists every relay in a stable order.
var AllRelays = []RelayName{
	RelayWaterValve,
	RelayHotGasSolenoid,
	RelayRecirculatingPump,
	RelayCompressor1,
	RelayCompressor2,
	RelayCondenserFan,
	RelayLED,
	RelayIceCutter,
}

// ParseRelayName validates a relay name.
func ParseRelayName(s string) (RelayName, error) {
	for _, r := range AllRelays {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown relay %q", s)
}

// RelayBank is the on/off state of all relays. It is a plain value, so copies are
// independent snapshots.
type RelayBank struct {
	WaterValve        bool `json:"water_valve"`
	HotGasSolenoid    bool `json:"hot_gas_solenoid"`
	RecirculatingPump bool `json:"recirculating_pump"`
	Compressor1       bool `json:"compressor_1"`
	Compressor2       bool `json:"compressor_2"`
	CondenserFan      bool `json:"condenser_fan"`
	LED               bool `json:"led"`
	IceCutter         bool `json:"ice_cutter"`
}

func (b *RelayBank) field(name RelayName) *bool {
	switch name {
	case RelayWaterValve:
		return &b.WaterValve
	case RelayHotGasSolenoid:
		return &b.HotGasSolenoid
	case RelayRecirculatingPump:
		return &b.RecirculatingPump
	case RelayCompressor1:
		return &b.Compressor1
	case RelayCompressor2:
		return &b.Compressor2
	case RelayCondenserFan:
		return &b.CondenserFan
	case RelayLED:
		return &b.LED
	case RelayIceCutter:
		return &b.IceCutter
	}
	return nil
}

// Get returns the state of a relay; unknown names read as off.
func (b RelayBank) Get(name RelayName) bool {
	if f := b.field(name); f != nil {
		return *f
	}
	return false
}

// Set changes one relay in place.
func (b *RelayBank) Set(name RelayName, on bool) error {
	f := b.field(name)
	if f == nil {
		return fmt.Errorf("unknown relay %q", name)
	}
	*f = on
	return nil
}

// With returns a copy with one relay changed.
func (b RelayBank) With(name RelayName, on bool) (RelayBank, error) {
	err := b.Set(name, on)
	return b, err
}

// Conflict reports the forbidden heat+cool combination.
func (b RelayBank) Conflict() bool {
	return b.HotGasSolenoid && (b.Compressor1 || b.Compressor2)
}

// AnyOn reports whether at least one relay is energized.
func (b RelayBank) AnyOn() bool {
	return b != RelayBank{}
}

// Diff lists relays whose state differs in other, in AllRelays order.
func (b RelayBank) Diff(other RelayBank) []RelayName {
	var out []RelayName
	for _, r := range AllRelays {
		if b.Get(r) != other.Get(r) {
			out = append(out, r)
		}
	}
	return out
}

// Map renders the bank keyed by relay name.
func (b RelayBank) Map() map[RelayName]bool {
	out := make(map[RelayName]bool, len(AllRelays))
	for _, r := range AllRelays {
		out[r] = b.Get(r)
	}
	return out
}
