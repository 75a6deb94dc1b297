package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial" toml:"serial"`
	Control  ControlConfig  `yaml:"control" toml:"control"`
	PI       PIConfig       `yaml:"pi" toml:"pi"`
	Optics   OpticsConfig   `yaml:"optics" toml:"optics"`
	Dilution DilutionConfig `yaml:"dilution" toml:"dilution"`
	Stirring StirringConfig `yaml:"stirring" toml:"stirring"`
	Sensors  SensorsConfig  `yaml:"sensors" toml:"sensors"`
	Trend    TrendConfig    `yaml:"trend" toml:"trend"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Mock     MockConfig     `yaml:"mock" toml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port" toml:"port"`
	BaudRate int    `yaml:"baud_rate" toml:"baud_rate"`
}

// ControlConfig contains control loop pacing and the temperature setpoint.
type ControlConfig struct {
	TickPeriod        time.Duration `yaml:"tick_period" toml:"tick_period"`
	IdlePeriod        time.Duration `yaml:"idle_period" toml:"idle_period"`
	TargetTemperature float64       `yaml:"target_temperature" toml:"target_temperature"` // °C
}

// PIConfig contains the heater PI controller gains and output range.
type PIConfig struct {
	Kp         float64 `yaml:"kp" toml:"kp"`
	Ki         float64 `yaml:"ki" toml:"ki"`
	Min        float64 `yaml:"min" toml:"min"`
	Max        float64 `yaml:"max" toml:"max"`
	AntiWindup bool    `yaml:"anti_windup" toml:"anti_windup"`
}

// OpticsConfig contains the OD calibration constant.
type OpticsConfig struct {
	K float64 `yaml:"k" toml:"k"`
}

// DilutionConfig contains the pump decision threshold.
type DilutionConfig struct {
	ODThreshold float64 `yaml:"od_threshold" toml:"od_threshold"`
}

// StirringConfig contains the stirring duty cycle, one entry per phase in order.
type StirringConfig struct {
	Phases []PhaseConfig `yaml:"phases" toml:"phases"`
}

// PhaseConfig describes one stirring phase.
type PhaseConfig struct {
	Duration time.Duration `yaml:"duration" toml:"duration"`
	Power    float64       `yaml:"power" toml:"power"` // signed percent
}

// SensorsConfig contains normalization parameters for raw sensor readings.
type SensorsConfig struct {
	DialVRef       float64       `yaml:"dial_vref" toml:"dial_vref"`
	DialOffset     float64       `yaml:"dial_offset" toml:"dial_offset"` // dead zone at the bottom of the pot (V)
	DialSpan       float64       `yaml:"dial_span" toml:"dial_span"`     // usable voltage span of the pot (V)
	TemperatureMin float64       `yaml:"temperature_min" toml:"temperature_min"`
	TemperatureMax float64       `yaml:"temperature_max" toml:"temperature_max"`
	StaleAfter     time.Duration `yaml:"stale_after" toml:"stale_after"`
}

// TrendConfig contains the in-memory history shown by the panel.
type TrendConfig struct {
	Window    time.Duration `yaml:"window" toml:"window"`
	MaxPoints int           `yaml:"max_points" toml:"max_points"` // plotted points after downsampling
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
}

// MockConfig contains simulated reactor parameters.
type MockConfig struct {
	AmbientTemperature float64       `yaml:"ambient_temperature" toml:"ambient_temperature"` // °C
	HeaterGain         float64       `yaml:"heater_gain" toml:"heater_gain"`                 // °C above ambient at 100% heater
	ThermalTimeConst   time.Duration `yaml:"thermal_time_constant" toml:"thermal_time_constant"`
	BlankIntensity     uint16        `yaml:"blank_intensity" toml:"blank_intensity"` // light code with a clear culture
	Attenuation        float64       `yaml:"attenuation" toml:"attenuation"`         // OD per decade of transmitted light
	InitialOD          float64       `yaml:"initial_od" toml:"initial_od"`
	MaxOD              float64       `yaml:"max_od" toml:"max_od"`
	GrowthRate         float64       `yaml:"growth_rate" toml:"growth_rate"`     // per hour
	DilutionRate       float64       `yaml:"dilution_rate" toml:"dilution_rate"` // per hour at 100% pump
	DialCode           uint16        `yaml:"dial_code" toml:"dial_code"`
	NoiseLevel         float64       `yaml:"noise_level" toml:"noise_level"` // light code amplitude
	SampleRate         time.Duration `yaml:"sample_rate" toml:"sample_rate"`
	TimeScale          float64       `yaml:"time_scale" toml:"time_scale"` // simulated seconds per real second
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Control: ControlConfig{
			TickPeriod:        200 * time.Millisecond,
			IdlePeriod:        200 * time.Millisecond,
			TargetTemperature: 37,
		},
		PI: PIConfig{
			Kp:  10,
			Ki:  0.1,
			Min: 0,
			Max: 100,
		},
		Optics: OpticsConfig{
			K: 2.28,
		},
		Dilution: DilutionConfig{
			ODThreshold: 0.5,
		},
		Stirring: StirringConfig{
			Phases: DefaultPhases(),
		},
		Sensors: SensorsConfig{
			DialVRef:       3.3,
			DialOffset:     0.23,
			DialSpan:       3.07,
			TemperatureMin: -55,
			TemperatureMax: 125,
			StaleAfter:     2 * time.Second,
		},
		Trend: TrendConfig{
			Window:    10 * time.Minute,
			MaxPoints: 600,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Mock: MockConfig{
			AmbientTemperature: 22,
			HeaterGain:         25,
			ThermalTimeConst:   120 * time.Second,
			BlankIntensity:     48000,
			Attenuation:        2.28,
			InitialOD:          0.05,
			MaxOD:              1.5,
			GrowthRate:         0.7,
			DilutionRate:       2.0,
			DialCode:           40000,
			NoiseLevel:         40,
			SampleRate:         100 * time.Millisecond,
			TimeScale:          1,
		},
	}
}

// DefaultPhases returns the reverse/pause/forward/pause stirring cycle.
func DefaultPhases() []PhaseConfig {
	return []PhaseConfig{
		{Duration: 5 * time.Second, Power: -100},
		{Duration: 3 * time.Second, Power: 0},
		{Duration: 5 * time.Second, Power: 100},
		{Duration: 3 * time.Second, Power: 0},
	}
}

// Load loads configuration from a YAML or TOML file (chosen by extension). If the file
// doesn't exist or fields are missing, it uses default values. The file is decoded over
// Default(), so an explicit 0 is kept for target_temperature and od_threshold.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isTOML(filename) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML or TOML file (chosen by extension).
func (c *Config) Save(filename string) error {
	var (
		data []byte
		err  error
	)
	if isTOML(filename) {
		var sb strings.Builder
		err = toml.NewEncoder(&sb).Encode(c)
		data = []byte(sb.String())
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Control.TickPeriod <= 0 {
		return fmt.Errorf("invalid tick period: %v", c.Control.TickPeriod)
	}
	if c.Control.IdlePeriod <= 0 {
		return fmt.Errorf("invalid idle period: %v", c.Control.IdlePeriod)
	}
	if c.PI.Kp == 0 && c.PI.Ki == 0 {
		return fmt.Errorf("invalid pi gains: kp and ki are both 0")
	}
	if c.PI.Min > c.PI.Max {
		return fmt.Errorf("invalid pi output range: min %v > max %v", c.PI.Min, c.PI.Max)
	}
	if c.Optics.K <= 0 {
		return fmt.Errorf("invalid optics k: %v", c.Optics.K)
	}
	for i, p := range c.Stirring.Phases {
		if p.Duration <= 0 {
			return fmt.Errorf("invalid stirring phase %d: duration must be positive", i)
		}
		if p.Power < -100 || p.Power > 100 {
			return fmt.Errorf("invalid stirring phase %d: power %v outside [-100, 100]", i, p.Power)
		}
	}
	if c.Sensors.DialSpan <= 0 {
		return fmt.Errorf("invalid dial span: %v", c.Sensors.DialSpan)
	}
	if c.Sensors.TemperatureMin >= c.Sensors.TemperatureMax {
		return fmt.Errorf("invalid temperature range: [%v, %v]", c.Sensors.TemperatureMin, c.Sensors.TemperatureMax)
	}
	return nil
}

func isTOML(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".toml")
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Control.TickPeriod == 0 {
		c.Control.TickPeriod = def.Control.TickPeriod
	}
	if c.Control.IdlePeriod == 0 {
		c.Control.IdlePeriod = def.Control.IdlePeriod
	}

	// A zero gain is a legitimate setting, so only fill gains when the whole section is absent.
	if c.PI == (PIConfig{}) {
		c.PI = def.PI
	}
	if c.PI.Max == 0 && c.PI.Min == 0 {
		c.PI.Max = def.PI.Max
	}

	if c.Optics.K == 0 {
		c.Optics.K = def.Optics.K
	}

	if len(c.Stirring.Phases) == 0 {
		c.Stirring.Phases = def.Stirring.Phases
	}

	if c.Sensors.DialVRef == 0 {
		c.Sensors.DialVRef = def.Sensors.DialVRef
	}
	if c.Sensors.DialSpan == 0 {
		c.Sensors.DialSpan = def.Sensors.DialSpan
	}
	if c.Sensors.TemperatureMin == 0 && c.Sensors.TemperatureMax == 0 {
		c.Sensors.TemperatureMin = def.Sensors.TemperatureMin
		c.Sensors.TemperatureMax = def.Sensors.TemperatureMax
	}
	if c.Sensors.StaleAfter == 0 {
		c.Sensors.StaleAfter = def.Sensors.StaleAfter
	}

	if c.Trend.Window == 0 {
		c.Trend.Window = def.Trend.Window
	}
	if c.Trend.MaxPoints == 0 {
		c.Trend.MaxPoints = def.Trend.MaxPoints
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}

	if c.Mock.ThermalTimeConst == 0 {
		c.Mock.ThermalTimeConst = def.Mock.ThermalTimeConst
	}
	if c.Mock.BlankIntensity == 0 {
		c.Mock.BlankIntensity = def.Mock.BlankIntensity
	}
	if c.Mock.Attenuation == 0 {
		c.Mock.Attenuation = def.Mock.Attenuation
	}
	if c.Mock.MaxOD == 0 {
		c.Mock.MaxOD = def.Mock.MaxOD
	}
	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.TimeScale == 0 {
		c.Mock.TimeScale = def.Mock.TimeScale
	}
}
