package sensor

import (
	"time"
)

// Input identifies one of the sensor inputs read every tick.
type Input int

const (
	Temperature Input = iota
	Light
	Dial
)

// Inputs lists every input in read order.
var Inputs = []Input{Temperature, Light, Dial}

func (i Input) String() string {
	switch i {
	case Temperature:
		return "temperature"
	case Light:
		return "light"
	case Dial:
		return "dial"
	default:
		return "unknown"
	}
}

// Source is the normalized sensor collaborator.
type Source interface {
	ReadTemperature() (float64, error)
	ReadLightIntensity() (uint16, error)
	ReadDialFraction() (float64, error)
}

// Ensure Adapter implements Source.
var _ Source = (*Adapter)(nil)

// Frame holds the readings used by a single control tick.
type Frame struct {
	Time              time.Time
	TemperatureC      float64
	LightIntensityRaw uint16
	DialFraction      float64

	// Valid reports whether the input has a value at all, current or held.
	TemperatureValid bool
	LightValid       bool
	DialValid        bool

	// Held reports that the value was carried over from an earlier tick after a fault.
	TemperatureHeld bool
	LightHeld       bool
	DialHeld        bool
}

// Fault is a failed read of one input.
type Fault struct {
	Input Input
	Err   error
}

func (f *Fault) Error() string {
	return f.Input.String() + ": " + f.Err.Error()
}

// Unwrap exposes both ErrSensorFault and the underlying cause.
func (f *Fault) Unwrap() []error {
	return []error{ErrSensorFault, f.Err}
}

// Reader reads each input exactly once per tick and holds the last good value on faults.
type Reader struct {
	src  Source
	last Frame
}

// NewReader creates a frame reader over the source.
func NewReader(src Source) *Reader {
	return &Reader{src: src}
}

// ReadFrame reads all inputs. Returned errors are *Fault values, one per failed input.
// A failed input keeps its last good value and is marked held.
func (r *Reader) ReadFrame(now time.Time) (Frame, []error) {
	var errs []error
	f := Frame{Time: now}

	if t, err := r.src.ReadTemperature(); err != nil {
		errs = append(errs, &Fault{Input: Temperature, Err: err})
		f.TemperatureC = r.last.TemperatureC
		f.TemperatureValid = r.last.TemperatureValid
		f.TemperatureHeld = r.last.TemperatureValid
	} else {
		f.TemperatureC = t
		f.TemperatureValid = true
	}

	if l, err := r.src.ReadLightIntensity(); err != nil {
		errs = append(errs, &Fault{Input: Light, Err: err})
		f.LightIntensityRaw = r.last.LightIntensityRaw
		f.LightValid = r.last.LightValid
		f.LightHeld = r.last.LightValid
	} else {
		f.LightIntensityRaw = l
		f.LightValid = true
	}

	if d, err := r.src.ReadDialFraction(); err != nil {
		errs = append(errs, &Fault{Input: Dial, Err: err})
		f.DialFraction = r.last.DialFraction
		f.DialValid = r.last.DialValid
		f.DialHeld = r.last.DialValid
	} else {
		f.DialFraction = d
		f.DialValid = true
	}

	r.last = f
	return f, errs
}

// Reset forgets the held values, so the next faulted input has no value at all.
func (r *Reader) Reset() {
	r.last = Frame{}
}

// Last returns the most recent frame.
func (r *Reader) Last() Frame {
	return r.last
}
