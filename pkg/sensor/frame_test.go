package sensor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	temp              float64
	light             uint16
	dial              float64
	tempErr, lightErr error
	dialErr           error
	calls             map[Input]int
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{calls: map[Input]int{}}
}

func (s *scriptedSource) ReadTemperature() (float64, error) {
	s.calls[Temperature]++
	return s.temp, s.tempErr
}

func (s *scriptedSource) ReadLightIntensity() (uint16, error) {
	s.calls[Light]++
	return s.light, s.lightErr
}

func (s *scriptedSource) ReadDialFraction() (float64, error) {
	s.calls[Dial]++
	return s.dial, s.dialErr
}

func TestReader_ReadsEachInputOnce(t *testing.T) {
	src := newScriptedSource()
	src.temp, src.light, src.dial = 30, 800, 0.6

	r := NewReader(src)
	now := time.Unix(100, 0)
	f, errs := r.ReadFrame(now)

	assert.Empty(t, errs)
	assert.Equal(t, now, f.Time)
	assert.Equal(t, 30.0, f.TemperatureC)
	assert.Equal(t, uint16(800), f.LightIntensityRaw)
	assert.Equal(t, 0.6, f.DialFraction)
	assert.True(t, f.TemperatureValid && f.LightValid && f.DialValid)
	assert.False(t, f.TemperatureHeld || f.LightHeld || f.DialHeld)
	assert.Equal(t, map[Input]int{Temperature: 1, Light: 1, Dial: 1}, src.calls)
}

func TestReader_HoldsLastKnownValue(t *testing.T) {
	src := newScriptedSource()
	src.temp, src.light, src.dial = 30, 800, 0.6

	r := NewReader(src)
	_, errs := r.ReadFrame(time.Unix(1, 0))
	require.Empty(t, errs)

	src.temp = 99
	src.tempErr = errors.New("probe not responding")
	src.light = 700

	f, errs := r.ReadFrame(time.Unix(2, 0))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrSensorFault)

	var fault *Fault
	require.ErrorAs(t, errs[0], &fault)
	assert.Equal(t, Temperature, fault.Input)
	assert.Contains(t, fault.Error(), "temperature")

	assert.Equal(t, 30.0, f.TemperatureC)
	assert.True(t, f.TemperatureValid)
	assert.True(t, f.TemperatureHeld)
	// Successful reads always use the current value
	assert.Equal(t, uint16(700), f.LightIntensityRaw)
	assert.False(t, f.LightHeld)

	// Held value survives several faulty ticks
	f, _ = r.ReadFrame(time.Unix(3, 0))
	assert.Equal(t, 30.0, f.TemperatureC)

	src.tempErr = nil
	src.temp = 31
	f, errs = r.ReadFrame(time.Unix(4, 0))
	assert.Empty(t, errs)
	assert.Equal(t, 31.0, f.TemperatureC)
	assert.False(t, f.TemperatureHeld)
	assert.Equal(t, f, r.Last())
}

func TestReader_FaultBeforeFirstReading(t *testing.T) {
	src := newScriptedSource()
	src.tempErr = errors.New("no fresh sample")
	src.lightErr = errors.New("no fresh sample")
	src.dialErr = errors.New("no fresh sample")

	f, errs := NewReader(src).ReadFrame(time.Unix(1, 0))
	assert.Len(t, errs, 3)
	assert.False(t, f.TemperatureValid)
	assert.False(t, f.LightValid)
	assert.False(t, f.DialValid)
	assert.False(t, f.TemperatureHeld)
}

func TestReader_ResetDropsHeldValues(t *testing.T) {
	src := newScriptedSource()
	src.temp, src.light, src.dial = 20, 900, 0.4
	r := NewReader(src)

	_, errs := r.ReadFrame(time.Unix(1, 0))
	require.Empty(t, errs)

	r.Reset()
	assert.Equal(t, Frame{}, r.Last())

	src.tempErr = errors.New("no fresh sample")
	src.dialErr = errors.New("no fresh sample")
	f, errs := r.ReadFrame(time.Unix(2, 0))
	assert.Len(t, errs, 2)
	assert.False(t, f.TemperatureValid)
	assert.False(t, f.TemperatureHeld)
	assert.Zero(t, f.TemperatureC)
	assert.False(t, f.DialValid)
	assert.True(t, f.LightValid)
	assert.False(t, f.LightHeld)
}

func TestInput_String(t *testing.T) {
	assert.Equal(t, "temperature", Temperature.String())
	assert.Equal(t, "light", Light.String())
	assert.Equal(t, "dial", Dial.String())
	assert.Equal(t, "unknown", Input(5).String())
}
