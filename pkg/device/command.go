package device

import "fmt"

// Target identifies an actuator.
type Target int

const (
	Heater Target = iota
	Stir
	Pump
)

func (t Target) String() string {
	switch t {
	case Heater:
		return "heater"
	case Stir:
		return "stir"
	case Pump:
		return "pump"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// Range returns the accepted power range for the actuator.
func (t Target) Range() (min, max float64) {
	if t == Stir {
		return -100, 100
	}
	return 0, 100
}

// Command is a single actuator write.
type Command struct {
	Target Target
	Value  float64
}

// HeaterPower returns a heater command.
func HeaterPower(percent float64) Command { return Command{Target: Heater, Value: percent} }

// StirPower returns a stirring command.
func StirPower(percent float64) Command { return Command{Target: Stir, Value: percent} }

// PumpPower returns a pump command.
func PumpPower(percent float64) Command { return Command{Target: Pump, Value: percent} }

// Off returns zero-power commands for every actuator.
func Off() []Command {
	return []Command{HeaterPower(0), StirPower(0), PumpPower(0)}
}

// Clamped returns the command with its value limited to the actuator range.
// NaN is mapped to zero.
func (c Command) Clamped() Command {
	min, max := c.Target.Range()
	v := c.Value
	switch {
	case v != v:
		v = 0
	case v < min:
		v = min
	case v > max:
		v = max
	}
	return Command{Target: c.Target, Value: v}
}

// Apply writes the command to the actuators.
func (c Command) Apply(a Actuators) error {
	var err error
	switch c.Target {
	case Heater:
		err = a.SetHeaterPower(c.Value)
	case Stir:
		err = a.SetStirPower(c.Value)
	case Pump:
		err = a.SetPumpPower(c.Value)
	default:
		return fmt.Errorf("%w: unknown target %v", ErrActuatorFault, c.Target)
	}
	if err != nil {
		return fmt.Errorf("failed to set %s power to %.2f: %w", c.Target, c.Value, err)
	}
	return nil
}

// checkRange rejects values outside the actuator range.
func checkRange(t Target, v float64) error {
	min, max := t.Range()
	if v != v || v < min || v > max {
		return fmt.Errorf("%w: %s power %v outside [%v, %v]", ErrActuatorFault, t, v, min, max)
	}
	return nil
}
