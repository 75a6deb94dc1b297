package control

import (
	"time"

	"github.com/itohio/gobioreactor/pkg/optics"
	"github.com/itohio/gobioreactor/pkg/sensor"
	"github.com/itohio/gobioreactor/pkg/stirring"
)

// State is the controller state carried between ticks.
type State struct {
	Powered             bool
	StirringPhaseStart  time.Time
	PILastTick          time.Time
	IntegralAccumulator float64
	BaselineIntensity   float64 // 0 until a usable blank reading was captured
}

// Status describes the outcome of one tick.
type Status struct {
	Time    time.Time
	Powered bool
	RunID   string

	Frame   sensor.Frame
	OD      optics.Density
	ODValid bool
	Phase   stirring.Phase

	// Commanded powers after clamping
	Heater float64
	Stir   float64
	Pump   float64

	Lines  [2]string
	Faults int // faults raised during this tick
}

// Pumping reports whether the pump was commanded on.
func (s Status) Pumping() bool {
	return s.Pump > 0
}
