package device

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_Clamped(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want float64
	}{
		{name: "heater in range", cmd: HeaterPower(42), want: 42},
		{name: "heater above max", cmd: HeaterPower(250), want: 100},
		{name: "heater below min", cmd: HeaterPower(-3), want: 0},
		{name: "stir reverse", cmd: StirPower(-100), want: -100},
		{name: "stir below min", cmd: StirPower(-140), want: -100},
		{name: "pump above max", cmd: PumpPower(100.5), want: 100},
		{name: "nan", cmd: PumpPower(math.NaN()), want: 0},
		{name: "infinity", cmd: HeaterPower(math.Inf(1)), want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cmd.Clamped()
			assert.Equal(t, tt.cmd.Target, got.Target)
			assert.Equal(t, tt.want, got.Value)
		})
	}
}

func TestOff(t *testing.T) {
	cmds := Off()
	require.Len(t, cmds, 3)
	for _, c := range cmds {
		assert.Zero(t, c.Value)
	}
	assert.Equal(t, []Target{Heater, Stir, Pump}, []Target{cmds[0].Target, cmds[1].Target, cmds[2].Target})
}

type recordingActuators struct {
	heater, stir, pump float64
	err                error
}

func (r *recordingActuators) SetHeaterPower(p float64) error { r.heater = p; return r.err }
func (r *recordingActuators) SetStirPower(p float64) error   { r.stir = p; return r.err }
func (r *recordingActuators) SetPumpPower(p float64) error   { r.pump = p; return r.err }

func TestCommand_Apply(t *testing.T) {
	a := &recordingActuators{}

	require.NoError(t, HeaterPower(12).Apply(a))
	require.NoError(t, StirPower(-100).Apply(a))
	require.NoError(t, PumpPower(60).Apply(a))

	assert.Equal(t, 12.0, a.heater)
	assert.Equal(t, -100.0, a.stir)
	assert.Equal(t, 60.0, a.pump)
}

func TestCommand_ApplyError(t *testing.T) {
	cause := errors.New("bus error")
	a := &recordingActuators{err: cause}

	err := PumpPower(10).Apply(a)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "pump")

	err = Command{Target: Target(9), Value: 1}.Apply(a)
	assert.ErrorIs(t, err, ErrActuatorFault)
}

func TestTarget_String(t *testing.T) {
	assert.Equal(t, "heater", Heater.String())
	assert.Equal(t, "stir", Stir.String())
	assert.Equal(t, "pump", Pump.String())
	assert.Equal(t, "target(7)", Target(7).String())
}
