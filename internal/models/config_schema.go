package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// FieldType is the value type of a config field.
type FieldType string

const (
	FieldFloat FieldType = "float"
	FieldInt   FieldType = "int"
	FieldBool  FieldType = "bool"
)

// ConfigField describes one updatable CycleConfig field. Numeric bounds are inclusive.
type ConfigField struct {
	Key         string    `json:"key"`
	Type        FieldType `json:"type"`
	Category    string    `json:"category"`
	Unit        string    `json:"unit,omitempty"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	Default     any       `json:"default"`
	ReadOnly    bool      `json:"read_only,omitempty"`
	Description string    `json:"description"`

	float   func(*CycleConfig) *float64
	integer func(*CycleConfig) *int
	boolean func(*CycleConfig) *bool
}

func floatField(key, category, unit string, min, max float64, desc string, ptr func(*CycleConfig) *float64) ConfigField {
	return ConfigField{Key: key, Type: FieldFloat, Category: category, Unit: unit, Min: min, Max: max, Description: desc, float: ptr}
}

func intField(key, category string, min, max float64, desc string, ptr func(*CycleConfig) *int) ConfigField {
	return ConfigField{Key: key, Type: FieldInt, Category: category, Unit: "s", Min: min, Max: max, Description: desc, integer: ptr}
}

func boolField(key, category, desc string, ptr func(*CycleConfig) *bool) ConfigField {
	return ConfigField{Key: key, Type: FieldBool, Category: category, Min: 0, Max: 1, Description: desc, boolean: ptr}
}

var configSchema = buildSchema()

func buildSchema() []ConfigField {
	fields := []ConfigField{
		floatField("prechill.target_temp_f", "chill", "°F", -20, 50, "Plate temperature that ends prechill",
			func(c *CycleConfig) *float64 { return &c.Prechill.TargetTemp }),
		intField("prechill.timeout_s", "chill", 30, 3600, "Maximum prechill duration",
			func(c *CycleConfig) *int { return &c.Prechill.TimeoutSeconds }),
		floatField("ice.target_temp_f", "ice", "°F", -30, 32, "Plate temperature that ends ice making",
			func(c *CycleConfig) *float64 { return &c.Ice.TargetTemp }),
		intField("ice.timeout_s", "ice", 60, 7200, "Maximum ice making duration",
			func(c *CycleConfig) *int { return &c.Ice.TimeoutSeconds }),
		floatField("harvest.target_temp_f", "harvest", "°F", 32, 80, "Plate temperature that releases the ice",
			func(c *CycleConfig) *float64 { return &c.Harvest.TargetTemp }),
		intField("harvest.timeout_s", "harvest", 30, 1800, "Maximum harvest duration",
			func(c *CycleConfig) *int { return &c.Harvest.TimeoutSeconds }),
		intField("harvest_fill_s", "harvest", 0, 300, "Cutter and refill time once the harvest temperature is held",
			func(c *CycleConfig) *int { return &c.HarvestFillSeconds }),
		floatField("rechill.target_temp_f", "rechill", "°F", -20, 50, "Plate temperature that ends rechill",
			func(c *CycleConfig) *float64 { return &c.Rechill.TargetTemp }),
		intField("rechill.timeout_s", "rechill", 30, 3600, "Maximum rechill duration",
			func(c *CycleConfig) *int { return &c.Rechill.TimeoutSeconds }),
		floatField("bin_full_threshold_f", "idle", "°F", 20, 70, "Bin temperature at or above which the bin counts as full",
			func(c *CycleConfig) *float64 { return &c.BinFullThreshold }),
		intField("standby_timeout_s", "standby", 0, 86400, "Standby heartbeat period, 0 disables it",
			func(c *CycleConfig) *int { return &c.StandbyTimeoutSeconds }),
		intField("power_on_timeout_s", "priming", 30, 3600, "Maximum priming duration",
			func(c *CycleConfig) *int { return &c.PowerOnTimeoutSeconds }),
		boolField("priming.enabled", "priming", "Run the water priming sequence on start",
			func(c *CycleConfig) *bool { return &c.Priming.Enabled }),
		intField("priming.flush_s", "priming", 0, 600, "Water valve flush time",
			func(c *CycleConfig) *int { return &c.Priming.FlushSeconds }),
		intField("priming.pump_s", "priming", 0, 600, "Recirculating pump prime time",
			func(c *CycleConfig) *int { return &c.Priming.PumpSeconds }),
		intField("priming.fill_s", "priming", 0, 600, "Reservoir fill time",
			func(c *CycleConfig) *int { return &c.Priming.FillSeconds }),
		floatField("poll_interval_s", "system", "s", 0.1, 60, "Controller tick period",
			func(c *CycleConfig) *float64 { return &c.PollIntervalSeconds }),
		boolField("simulator_enabled", "system", "Simulated hardware in use, fixed at startup",
			func(c *CycleConfig) *bool { return &c.SimulatorEnabled }),
	}
	defaults := DefaultCycleConfig()
	for i := range fields {
		fields[i].Default = fields[i].get(&defaults)
		if fields[i].Key == "simulator_enabled" {
			fields[i].ReadOnly = true
		}
	}
	return fields
}

// ConfigSchema returns a copy of the field registry.
func ConfigSchema() []ConfigField {
	out := make([]ConfigField, len(configSchema))
	copy(out, configSchema)
	return out
}

// LookupConfigField finds a field by its dotted key.
func LookupConfigField(key string) (ConfigField, bool) {
	for _, f := range configSchema {
		if f.Key == key {
			return f, true
		}
	}
	return ConfigField{}, false
}

func (f ConfigField) get(c *CycleConfig) any {
	switch f.Type {
	case FieldFloat:
		return *f.float(c)
	case FieldInt:
		return *f.integer(c)
	default:
		return *f.boolean(c)
	}
}

// Value reads the field from cfg.
func (f ConfigField) Value(cfg CycleConfig) any {
	return f.get(&cfg)
}

// assign coerces v to the field type, checks the bounds, and stores it.
func (f ConfigField) assign(c *CycleConfig, v any) error {
	switch f.Type {
	case FieldBool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		*f.boolean(c) = b
		return nil
	case FieldInt:
		n, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("expected integer, got %T", v)
		}
		if n != math.Trunc(n) {
			return fmt.Errorf("expected integer, got %v", n)
		}
		if err := f.checkRange(n); err != nil {
			return err
		}
		*f.integer(c) = int(n)
		return nil
	default:
		n, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("expected number, got %T", v)
		}
		if err := f.checkRange(n); err != nil {
			return err
		}
		*f.float(c) = n
		return nil
	}
}

func (f ConfigField) checkRange(n float64) error {
	if math.IsNaN(n) || n < f.Min || n > f.Max {
		return fmt.Errorf("%v out of range [%v, %v]", n, f.Min, f.Max)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// ApplyConfigUpdate validates every key of update against the schema and
// returns cfg with all of them applied. On any error nothing is applied and
// the error is a *ValidationError naming each rejected field.
func ApplyConfigUpdate(cfg CycleConfig, update map[string]any) (CycleConfig, error) {
	next := cfg
	var errs []FieldError

	keys := make([]string, 0, len(update))
	for k := range update {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f, ok := LookupConfigField(k)
		if !ok {
			errs = append(errs, FieldError{Key: k, Reason: "unknown field"})
			continue
		}
		if f.ReadOnly {
			if f.Value(next) != update[k] {
				errs = append(errs, FieldError{Key: k, Reason: "read-only"})
			}
			continue
		}
		if err := f.assign(&next, update[k]); err != nil {
			errs = append(errs, FieldError{Key: k, Reason: err.Error()})
		}
	}
	if len(errs) == 0 {
		errs = crossFieldErrors(next)
	}
	if len(errs) > 0 {
		return cfg, &ValidationError{Fields: errs}
	}
	return next, nil
}

// Validate checks a complete config against the schema bounds and the
// cross-field rules.
func (c CycleConfig) Validate() error {
	var errs []FieldError
	for _, f := range configSchema {
		if f.Type == FieldBool {
			continue
		}
		n, _ := toFloat(f.Value(c))
		if err := f.checkRange(n); err != nil {
			errs = append(errs, FieldError{Key: f.Key, Reason: err.Error()})
		}
	}
	if len(errs) == 0 {
		errs = crossFieldErrors(c)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func crossFieldErrors(c CycleConfig) []FieldError {
	var errs []FieldError
	if c.Priming.Total() > c.PowerOnTimeout() {
		errs = append(errs, FieldError{
			Key:    "power_on_timeout_s",
			Reason: fmt.Sprintf("priming sequence (%s) exceeds power-on timeout (%s)", c.Priming.Total(), c.PowerOnTimeout()),
		})
	}
	if c.Harvest.TargetTemp <= c.Ice.TargetTemp {
		errs = append(errs, FieldError{
			Key:    "harvest.target_temp_f",
			Reason: "must be above ice.target_temp_f",
		})
	}
	return errs
}

// FlattenUpdate turns nested objects into dotted keys, so both
// {"prechill":{"timeout_s":90}} and {"prechill.timeout_s":90} are accepted.
func FlattenUpdate(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	flattenInto(out, "", in)
	return out
}

func flattenInto(out map[string]any, prefix string, in map[string]any) {
	for k, v := range in {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(out, key, nested)
			continue
		}
		out[key] = v
	}
}
