package sensor

import (
	"errors"
	"math"
	"testing"

	"github.com/itohio/gobioreactor/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawSensors struct {
	temp    float64
	light   uint16
	dial    uint16
	tempErr error
	ioErr   error
}

func (r *rawSensors) ReadTemperature() (float64, error) {
	if r.tempErr != nil {
		return 0, r.tempErr
	}
	return r.temp, r.ioErr
}
func (r *rawSensors) ReadLight() (uint16, error) { return r.light, r.ioErr }
func (r *rawSensors) ReadDial() (uint16, error)  { return r.dial, r.ioErr }

func TestCodeToVoltage(t *testing.T) {
	tests := []struct {
		name string
		code uint16
		vref float64
		want float64
	}{
		{name: "zero", code: 0, vref: 3.3, want: 0},
		{name: "full scale", code: 65535, vref: 3.3, want: 3.3},
		{name: "half scale", code: 32768, vref: 3.3, want: 1.65},
		{name: "different vref", code: 32768, vref: 5.0, want: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, codeToVoltage(tt.code, tt.vref), 0.001)
		})
	}
}

func TestDialFraction(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want float64
	}{
		{name: "dead zone", v: 0.1, want: 0},
		{name: "at offset", v: 0.23, want: 0},
		{name: "mid travel", v: 0.23 + 3.07/2, want: 0.5},
		{name: "full travel", v: 3.3, want: 1},
		{name: "above span clamps", v: 3.6, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, dialFraction(tt.v, 0.23, 3.07), 1e-9)
		})
	}

	assert.Zero(t, dialFraction(1, 0, 0))
}

func TestAdapter_ReadTemperature(t *testing.T) {
	cfg := config.Default().Sensors

	tests := []struct {
		name    string
		raw     *rawSensors
		want    float64
		wantErr bool
	}{
		{name: "valid", raw: &rawSensors{temp: 36.5}, want: 36.5},
		{name: "lowest probe value", raw: &rawSensors{temp: -55}, want: -55},
		{name: "above range", raw: &rawSensors{temp: 125.5}, wantErr: true},
		{name: "below range", raw: &rawSensors{temp: -80}, wantErr: true},
		{name: "nan", raw: &rawSensors{temp: math.NaN()}, wantErr: true},
		{name: "device error", raw: &rawSensors{tempErr: errors.New("crc mismatch")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewAdapter(tt.raw, cfg).ReadTemperature()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSensorFault)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdapter_ReadLightAndDial(t *testing.T) {
	a := NewAdapter(&rawSensors{light: 800, dial: 65535}, config.Default().Sensors)

	light, err := a.ReadLightIntensity()
	require.NoError(t, err)
	assert.Equal(t, uint16(800), light)

	dial, err := a.ReadDialFraction()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dial, 1e-9)
}

func TestAdapter_DeviceErrors(t *testing.T) {
	cause := errors.New("no fresh sample")
	a := NewAdapter(&rawSensors{ioErr: cause}, config.Default().Sensors)

	_, err := a.ReadLightIntensity()
	assert.ErrorIs(t, err, ErrSensorFault)
	assert.ErrorIs(t, err, cause)

	_, err = a.ReadDialFraction()
	assert.ErrorIs(t, err, ErrSensorFault)
	assert.ErrorIs(t, err, cause)
}
