package device

import "errors"

var (
	// ErrNotConnected is returned by reads and writes on a closed device.
	ErrNotConnected = errors.New("not connected")
	// ErrActuatorFault is returned when an actuator write is rejected.
	ErrActuatorFault = errors.New("actuator fault")
	// ErrNoSample is returned when no reading has arrived yet or the last one is stale.
	ErrNoSample = errors.New("no fresh sample")
)

// Sensors exposes raw sensor readings. Calls are synchronous and may block briefly.
type Sensors interface {
	ReadTemperature() (float64, error) // probe temperature in °C
	ReadLight() (uint16, error)        // 16-bit phototransistor ADC code, larger = brighter
	ReadDial() (uint16, error)         // 16-bit pump-speed dial ADC code
}

// Actuators accepts power commands. Each call is idempotent and takes effect immediately.
type Actuators interface {
	SetHeaterPower(percent float64) error // 0..100
	SetStirPower(percent float64) error   // -100..100, negative is reverse
	SetPumpPower(percent float64) error   // 0..100
}

// Display renders a small fixed set of text rows.
type Display interface {
	Clear()
	DrawLine(text string, row int)
	Present() error
}

// Power delivers power button presses.
type Power interface {
	OnPowerToggle(fn func())
}

// Device defines the interface for bioreactor hardware (real or simulated).
type Device interface {
	Sensors
	Actuators
	Power
	Connect() error
	Close() error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
