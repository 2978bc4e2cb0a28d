package simulator

import (
	"math"

	"github.com/apophisnow/icemaker/internal/models"
)

// Simulator integrates a lumped-capacitance model of the evaporator plate, the
// water reservoir, and the ice bin. It is deterministic and not safe for
// concurrent use; callers serialize access.
type Simulator struct {
	plateF float64
	waterF float64
	binF   float64
	waterL float64

	plateIceKg    float64
	harvestMeltKg float64
	binIceKg      float64
	binOffsetF    float64

	relays     models.RelayBank
	prevHotGas bool

	simSeconds  float64
	accumulated float64
	discarded   float64

	initial Initial
}

// State is a read-only view of the model.
type State struct {
	PlateF           float64          `json:"plate_f"`
	WaterF           float64          `json:"water_f"`
	BinF             float64          `json:"bin_f"`
	WaterLiters      float64          `json:"water_liters"`
	IceThicknessMM   float64          `json:"ice_thickness_mm"`
	PlateIceKg       float64          `json:"plate_ice_kg"`
	BinIceKg         float64          `json:"bin_ice_kg"`
	BinFillPercent   float64          `json:"bin_fill_percent"`
	SimulatedSeconds float64          `json:"simulated_seconds"`
	DiscardedSeconds float64          `json:"discarded_seconds"`
	Relays           models.RelayBank `json:"relays"`
}

// New returns a simulator at DefaultInitial.
func New() *Simulator {
	return NewWith(DefaultInitial())
}

// NewWith returns a simulator at the given starting conditions. Reset returns
// to the same conditions.
func NewWith(init Initial) *Simulator {
	s := &Simulator{initial: init}
	s.ResetTo(init)
	return s
}

// Reset restores the starting conditions the simulator was built with and
// de-energizes every relay.
func (s *Simulator) Reset() {
	s.ResetTo(s.initial)
}

// ResetTo restores explicit starting conditions.
func (s *Simulator) ResetTo(init Initial) {
	s.plateF = clampTemp(init.PlateF)
	s.waterF = clampTemp(init.WaterF)
	s.binF = clampTemp(init.BinF)
	s.waterL = math.Max(0, math.Min(init.WaterLiters, reservoirMaxL))
	s.binIceKg = math.Max(0, math.Min(init.BinIceKg, binCapacityKg))
	s.plateIceKg = 0
	s.harvestMeltKg = 0
	s.binOffsetF = 0
	s.relays = models.RelayBank{}
	s.prevHotGas = false
	s.simSeconds = 0
	s.accumulated = 0
	s.discarded = 0
}

// SetRelays replaces the actuation vector used by following steps.
func (s *Simulator) SetRelays(b models.RelayBank) {
	s.relays = b
}

func (s *Simulator) Relays() models.RelayBank { return s.relays }

// Advance integrates the given number of simulated seconds in fixed steps.
// Fractions of a step carry over to the next call. At most MaxTicksPerAdvance
// steps run per call; any whole steps beyond that are discarded. Returns the
// number of steps run.
func (s *Simulator) Advance(seconds float64) int {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	s.accumulated += seconds
	steps := 0
	for s.accumulated >= TickSeconds && steps < MaxTicksPerAdvance {
		s.Step()
		s.accumulated -= TickSeconds
		steps++
	}
	if s.accumulated >= TickSeconds {
		excess := math.Floor(s.accumulated/TickSeconds) * TickSeconds
		s.discarded += excess
		s.accumulated -= excess
	}
	return steps
}

// Step runs one fixed integration step.
func (s *Simulator) Step() {
	const dt = TickSeconds
	r := s.relays

	compressors := 0
	if r.Compressor1 {
		compressors++
	}
	if r.Compressor2 {
		compressors++
	}
	cooling := compressors > 0

	if r.WaterValve {
		s.addWater(inletFlowLps*dt, InletWaterF)
	}

	if cooling {
		ua := compressorUA * float64(compressors)
		if !r.CondenserFan {
			ua *= fanOffEfficiency
		}
		s.heatPlate(-heatFlow(ua, s.plateF, RefrigerantF, dt))
	}

	if r.HotGasSolenoid {
		s.harvestStep(dt)
	}

	if r.RecirculatingPump {
		s.recirculate(cooling, dt)
	}

	if s.prevHotGas && !r.HotGasSolenoid && s.plateIceKg > 0 {
		s.dropIce()
	}
	s.prevHotGas = r.HotGasSolenoid

	s.ambientStep(dt)

	if r.RecirculatingPump && cooling {
		s.binOffsetF = math.Min(binOffsetMaxF, s.binOffsetF+binOffsetRatePerSec*dt)
	} else {
		s.binOffsetF -= s.binOffsetF * binOffsetDecay * dt
	}

	s.plateF = clampTemp(s.plateF)
	s.waterF = clampTemp(s.waterF)
	s.binF = clampTemp(s.binF)
	s.simSeconds += dt
}

// harvestStep heats the plate with hot gas. Once the plate is above freezing
// part of the heat melts the ice film, and the slab drops when enough has
// melted.
func (s *Simulator) harvestStep(dt float64) {
	q := heatFlow(hotGasUA, HotGasF, s.plateF, dt)
	if s.plateIceKg <= 0 || s.plateF < FreezingF || q <= 0 {
		s.heatPlate(q)
		return
	}
	melt := math.Min(q*iceMeltShare/iceLatentHeat, s.plateIceKg)
	s.plateIceKg -= melt
	s.harvestMeltKg += melt
	s.addWater(melt, FreezingF)
	s.heatPlate(q - melt*iceLatentHeat)

	if s.harvestMeltKg >= iceReleaseShare*(s.plateIceKg+s.harvestMeltKg) {
		s.dropIce()
	}
}

// recirculate exchanges heat between water and plate, forming ice when the
// plate is below freezing and the water has reached it.
func (s *Simulator) recirculate(cooling bool, dt float64) {
	if s.waterL < minWaterL {
		return
	}
	thickness := s.iceThicknessM()
	switch {
	case thickness >= maxIceThicknessM:
		// slab complete, water sheets off the ice
	case cooling && s.plateF < FreezingF && s.waterF <= FreezingF+freezeWaterMargin:
		eff := math.Max(thickness, minIceThicknessM)
		q := iceConductivity * contactAreaM2 / eff * toKelvin(FreezingF-s.plateF) * dt
		// latent heat released may warm the plate up to freezing, no further
		q = math.Min(q, plateHeatCapacity*toKelvin(FreezingF-s.plateF))
		formed := q / iceLatentHeat
		room := maxIceThicknessM*iceDensity*contactAreaM2 - s.plateIceKg
		formed = math.Min(formed, math.Min(room, s.waterL-minWaterL))
		if formed <= 0 {
			return
		}
		s.plateIceKg += formed
		s.waterL -= formed
		s.waterF = FreezingF
		s.heatPlate(formed * iceLatentHeat)
	default:
		q := heatFlow(s.waterPlateUA(), s.waterF, s.plateF, dt)
		s.heatWater(-q)
		s.heatPlate(q)
	}

	q := heatFlow(binWaterUA, s.waterF, s.binF, dt)
	s.heatWater(-q)
	s.heatBin(q)
}

func (s *Simulator) ambientStep(dt float64) {
	s.heatPlate(heatFlow(plateAmbientUA, AmbientF, s.plateF, dt))
	s.heatWater(heatFlow(waterAmbientUA, AmbientF, s.waterF, dt))
	s.heatBin(heatFlow(binAmbientUA, AmbientF, s.binF, dt))

	if s.binIceKg > 0 {
		q := heatFlow(binIceUA*s.binFill(), s.binF, FreezingF, dt)
		if q > 0 {
			s.heatBin(-q)
			s.binIceKg = math.Max(0, s.binIceKg-q/iceLatentHeat)
		}
	}
}

// waterPlateUA is the water film in series with any ice already on the plate.
func (s *Simulator) waterPlateUA() float64 {
	r := 1/waterPlateH + s.iceThicknessM()/iceConductivity
	return contactAreaM2 / r
}

func (s *Simulator) dropIce() {
	s.binIceKg = math.Min(binCapacityKg, s.binIceKg+s.plateIceKg)
	s.plateIceKg = 0
	s.harvestMeltKg = 0
}

func (s *Simulator) addWater(liters, tempF float64) {
	if liters <= 0 {
		return
	}
	total := s.waterL + liters
	s.waterF = (s.waterF*s.waterL + tempF*liters) / total
	s.waterL = math.Min(total, reservoirMaxL)
}

func (s *Simulator) heatPlate(joules float64) {
	s.plateF += fromKelvin(joules / plateHeatCapacity)
}

func (s *Simulator) heatWater(joules float64) {
	if s.waterL < minWaterL {
		return
	}
	s.waterF += fromKelvin(joules / (s.waterL * waterSpecificHeat))
}

func (s *Simulator) heatBin(joules float64) {
	s.binF += fromKelvin(joules / binHeatCapacity)
}

func (s *Simulator) iceThicknessM() float64 {
	return s.plateIceKg / (iceDensity * contactAreaM2)
}

func (s *Simulator) binFill() float64 {
	return math.Min(1, s.binIceKg/binCapacityKg)
}

// PlateTemp, WaterTemp, and BinTemp are what the probes would read.
func (s *Simulator) PlateTemp() float64 { return s.plateF }

func (s *Simulator) WaterTemp() float64 { return s.waterF }

func (s *Simulator) BinTemp() float64 { return clampTemp(s.binF - s.binOffsetF) }

func (s *Simulator) SimulatedSeconds() float64 { return s.simSeconds }

// State returns a copy of the model state.
func (s *Simulator) State() State {
	return State{
		PlateF:           s.plateF,
		WaterF:           s.waterF,
		BinF:             s.BinTemp(),
		WaterLiters:      s.waterL,
		IceThicknessMM:   s.iceThicknessM() * 1000,
		PlateIceKg:       s.plateIceKg,
		BinIceKg:         s.binIceKg,
		BinFillPercent:   s.binFill() * 100,
		SimulatedSeconds: s.simSeconds,
		DiscardedSeconds: s.discarded,
		Relays:           s.relays,
	}
}

// heatFlow is Q = UA·ΔT·dt in joules, positive when heat flows from the
// first temperature to the second.
func heatFlow(ua, fromF, toF, dt float64) float64 {
	return ua * toKelvin(fromF-toF) * dt
}

func toKelvin(deltaF float64) float64 { return deltaF * 5 / 9 }

func fromKelvin(deltaK float64) float64 { return deltaK * 9 / 5 }

func clampTemp(f float64) float64 {
	if math.IsNaN(f) {
		return AmbientF
	}
	return math.Max(MinTempF, math.Min(MaxTempF, f))
}
