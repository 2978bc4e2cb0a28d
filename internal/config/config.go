// Package config loads the application settings from configs/config.yml,
// an optional .env file, and ICEMAKER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/apophisnow/icemaker/internal/hal"
	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/models"
)

// EnvPrefix namespaces environment overrides: db.path is ICEMAKER_DB_PATH.
const EnvPrefix = "ICEMAKER"

// HAL modes.
const (
	ModeSimulated = "simulated"
	ModeReal      = "real"
)

// AppConfig is the typed view of the loaded configuration.
type AppConfig struct {
	Port      string          `mapstructure:"port"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	HAL       HALConfig       `mapstructure:"hal"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`

	// Cycle is the factory defaults with the cycle.* keys applied.
	Cycle models.CycleConfig `mapstructure:"-"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`

	// RetentionDays bounds the journal. Zero keeps every entry.
	RetentionDays int `mapstructure:"retention_days"`
}

// Retention is RetentionDays as a duration.
func (d DBConfig) Retention() time.Duration {
	return time.Duration(d.RetentionDays) * 24 * time.Hour
}

type HALConfig struct {
	Mode      string         `mapstructure:"mode"`
	GPIOChip  string         `mapstructure:"gpio_chip"`
	ActiveLow bool           `mapstructure:"active_low"`
	Pins      map[string]int `mapstructure:"pins"`
	Sensors   SensorsConfig  `mapstructure:"sensors"`
	W1Dir     string         `mapstructure:"w1_dir"`
}

// SensorsConfig holds DS18B20 serials, without the family prefix.
type SensorsConfig struct {
	Plate string `mapstructure:"plate"`
	Bin   string `mapstructure:"bin"`
	Water string `mapstructure:"water"`
}

type SimulatorConfig struct {
	Speed float64 `mapstructure:"speed"`
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Prefix   string `mapstructure:"prefix"`
	QoS      int    `mapstructure:"qos"`
	// EmbeddedBroker starts an in-process broker on EmbeddedAddr.
	EmbeddedBroker bool   `mapstructure:"embedded_broker"`
	EmbeddedAddr   string `mapstructure:"embedded_addr"`
}

// Simulated reports whether the simulated HAL is selected.
func (c *AppConfig) Simulated() bool {
	return c.HAL.Mode == ModeSimulated
}

// PinMap converts the relay wiring to the HAL form.
func (h HALConfig) PinMap() (hal.Pins, error) {
	pins := make(hal.Pins, len(h.Pins))
	for name, pin := range h.Pins {
		relay, err := models.ParseRelayName(strings.ToLower(name))
		if err != nil {
			return nil, fmt.Errorf("hal.pins: %w", err)
		}
		pins[relay] = pin
	}
	return pins, nil
}

func (h HALConfig) Probes() hal.Probes {
	return hal.Probes{Plate: h.Sensors.Plate, Bin: h.Sensors.Bin, Water: h.Sensors.Water}
}

// Load reads config.yml from configDir. A missing file is not an error: every
// key has a default. envFiles are loaded into the environment first; with
// none given, ./.env is used if present. Variables already set win.
func Load(configDir string, envFiles ...string) (*AppConfig, error) {
	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cycle, err := cycleConfig(v)
	if err != nil {
		return nil, err
	}
	cfg.Cycle = cycle
	cfg.Cycle.SimulatorEnabled = cfg.Simulated()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "icemaker.db")
	v.SetDefault("db.retention_days", 90)

	v.SetDefault("hal.mode", ModeSimulated)
	v.SetDefault("hal.gpio_chip", "gpiochip0")
	v.SetDefault("hal.active_low", true)
	for relay, pin := range hal.DefaultPins() {
		v.SetDefault("hal.pins."+string(relay), pin)
	}
	probes := hal.DefaultProbes()
	v.SetDefault("hal.sensors.plate", probes.Plate)
	v.SetDefault("hal.sensors.bin", probes.Bin)
	v.SetDefault("hal.sensors.water", probes.Water)
	v.SetDefault("hal.w1_dir", hal.DefaultW1Dir)

	v.SetDefault("simulator.speed", hal.DefaultSpeed)

	defaults := models.DefaultCycleConfig()
	for _, f := range models.ConfigSchema() {
		if f.ReadOnly {
			continue
		}
		v.SetDefault("cycle."+f.Key, f.Value(defaults))
	}

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "icemaker")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.prefix", "icemaker")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.embedded_broker", false)
	v.SetDefault("mqtt.embedded_addr", ":1883")
}

// cycleConfig applies the cycle.* keys to the factory defaults, with the same
// bounds and cross-field checks as a runtime update.
func cycleConfig(v *viper.Viper) (models.CycleConfig, error) {
	update := make(map[string]any)
	for _, f := range models.ConfigSchema() {
		if f.ReadOnly {
			continue
		}
		key := "cycle." + f.Key
		switch f.Type {
		case models.FieldFloat:
			update[f.Key] = v.GetFloat64(key)
		case models.FieldInt:
			update[f.Key] = v.GetInt(key)
		case models.FieldBool:
			update[f.Key] = v.GetBool(key)
		}
	}
	cfg, err := models.ApplyConfigUpdate(models.DefaultCycleConfig(), update)
	if err != nil {
		return cfg, fmt.Errorf("cycle: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	c.Log.Level = level

	switch c.HAL.Mode {
	case ModeSimulated, ModeReal:
	default:
		return fmt.Errorf("hal.mode: want %q or %q, got %q", ModeSimulated, ModeReal, c.HAL.Mode)
	}
	if c.DB.RetentionDays < 0 {
		return fmt.Errorf("db.retention_days must not be negative, got %d", c.DB.RetentionDays)
	}
	if c.Simulator.Speed <= 0 {
		return fmt.Errorf("simulator.speed must be positive, got %v", c.Simulator.Speed)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if _, err := c.HAL.PinMap(); err != nil {
		return err
	}
	return nil
}
