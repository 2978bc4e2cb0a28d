package simulator

// ----------- Integration -----------
const (
	TickSeconds        = 1.0  // fixed simulated step
	MaxTicksPerAdvance = 3600 // steps per Advance call; excess time is discarded
	MinTempF           = -40.0
	MaxTempF           = 120.0
)

// ----------- Environment (°F) -----------
const (
	AmbientF     = 70.0
	InletWaterF  = 65.0
	RefrigerantF = -20.0 // evaporator saturation temperature
	HotGasF      = 140.0
	FreezingF    = 32.0
)

// ----------- Heat transfer (W/K, i.e. h·A) -----------
const (
	compressorUA      = 10.0 // per running compressor
	fanOffEfficiency  = 0.8  // compressor UA multiplier without condenser airflow
	hotGasUA          = 8.0
	waterPlateH       = 800.0 // W/(m²·K), film coefficient of recirculated water
	contactAreaM2     = 0.08
	iceConductivity   = 2.2 // W/(m·K)
	plateAmbientUA    = 0.24
	waterAmbientUA    = 0.2
	binAmbientUA      = 0.3
	binWaterUA        = 0.5  // pump on, meltwater return into the bin
	binIceUA          = 3.0  // scaled by bin fill fraction
	iceMeltShare      = 0.7  // share of hot gas heat spent melting the ice film
	iceReleaseShare   = 0.05 // melted share of the slab that frees it from the plate
	freezeWaterMargin = 0.5  // water must be within this of freezing before ice forms
)

// ----------- Thermal masses and materials -----------
const (
	plateHeatCapacity = 0.5 * 897.0 // J/K, 0.5 kg aluminium
	waterSpecificHeat = 4186.0      // J/(kg·K), 1 L = 1 kg
	binHeatCapacity   = 40000.0     // J/K, insulated bin with its contents
	iceLatentHeat     = 334000.0    // J/kg
	iceDensity        = 917.0       // kg/m³
	maxIceThicknessM  = 0.008
	minIceThicknessM  = 0.0001 // nucleation layer
	inletFlowLps      = 0.05
	reservoirMaxL     = 1.5
	minWaterL         = 0.05
	binCapacityKg     = 10.0
)

// ----------- Bin probe offset while ice is being made -----------
const (
	binOffsetRatePerSec = 0.002 // °F per second of ice making
	binOffsetMaxF       = 4.0
	binOffsetDecay      = 1.0 / 3600 // fraction lost per second otherwise
)

// Initial is the set of starting conditions applied by Reset.
type Initial struct {
	PlateF      float64 `json:"plate_f"`
	WaterF      float64 `json:"water_f"`
	BinF        float64 `json:"bin_f"`
	WaterLiters float64 `json:"water_liters"`
	BinIceKg    float64 `json:"bin_ice_kg"`
}

// DefaultInitial is a machine at room temperature with a filled reservoir and
// an empty bin whose probe sits just above freezing.
func DefaultInitial() Initial {
	return Initial{
		PlateF:      AmbientF,
		WaterF:      InletWaterF,
		BinF:        33.0,
		WaterLiters: 1.0,
		BinIceKg:    0,
	}
}
