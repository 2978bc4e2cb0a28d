package models

import "time"

// SensorReading holds one sample of every probe, in °F.
type SensorReading struct {
	PlateTemp float64   `json:"plate_temp_f"`
	BinTemp   float64   `json:"bin_temp_f"`
	WaterTemp *float64  `json:"water_temp_f,omitempty"`
	TakenAt   time.Time `json:"taken_at"`
	// SimulatedSeconds is set only by the simulated HAL.
	SimulatedSeconds *float64 `json:"simulated_seconds,omitempty"`
}

// FahrenheitToCelsius is used by presentation layers only.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}
