package sensor

import (
	"errors"
	"fmt"
	"math"

	"github.com/itohio/gobioreactor/pkg/config"
	"github.com/itohio/gobioreactor/pkg/device"
)

// ErrSensorFault is returned when a reading is unavailable or outside its physical range.
var ErrSensorFault = errors.New("sensor fault")

// Adapter converts raw device readings into engineering units.
type Adapter struct {
	dev device.Sensors
	cfg config.SensorsConfig
}

// NewAdapter creates an adapter over the device sensors.
func NewAdapter(dev device.Sensors, cfg config.SensorsConfig) *Adapter {
	return &Adapter{dev: dev, cfg: cfg}
}

// ReadTemperature returns the culture temperature in °C.
func (a *Adapter) ReadTemperature() (float64, error) {
	t, err := a.dev.ReadTemperature()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read temperature: %w", ErrSensorFault, err)
	}
	if math.IsNaN(t) || t < a.cfg.TemperatureMin || t > a.cfg.TemperatureMax {
		return 0, fmt.Errorf("%w: temperature %v outside [%v, %v]", ErrSensorFault, t, a.cfg.TemperatureMin, a.cfg.TemperatureMax)
	}
	return t, nil
}

// ReadLightIntensity returns the raw transmitted light code. Larger is brighter.
func (a *Adapter) ReadLightIntensity() (uint16, error) {
	v, err := a.dev.ReadLight()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read light: %w", ErrSensorFault, err)
	}
	return v, nil
}

// ReadDialFraction returns the pump dial position in [0, 1].
func (a *Adapter) ReadDialFraction() (float64, error) {
	code, err := a.dev.ReadDial()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read dial: %w", ErrSensorFault, err)
	}
	return dialFraction(codeToVoltage(code, a.cfg.DialVRef), a.cfg.DialOffset, a.cfg.DialSpan), nil
}

// codeToVoltage converts a 16-bit ADC code to volts.
func codeToVoltage(code uint16, vref float64) float64 {
	return float64(code) / math.MaxUint16 * vref
}

// dialFraction maps the pot voltage to [0, 1], ignoring the dead zone below offset.
func dialFraction(v, offset, span float64) float64 {
	if span <= 0 {
		return 0
	}
	f := math.Max(0, v-offset) / span
	return math.Min(f, 1)
}
