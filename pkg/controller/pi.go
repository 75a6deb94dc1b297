package controller

import (
	"time"

	"github.com/itohio/gobioreactor/pkg/config"
)

// PI is a time-weighted proportional-integral controller with a clamped output.
// It is not safe for concurrent use.
type PI struct {
	config.PIConfig
	integral float64
	lastTick time.Time
}

func NewPI(cfg *config.PIConfig) *PI {
	return &PI{PIConfig: *cfg}
}

// Step advances the controller to now and returns the clamped output.
// The first step after Reset integrates nothing. A clock that went backwards counts as dt = 0.
func (c *PI) Step(target, current float64, now time.Time) float64 {
	err := target - current

	dt := 0.0
	if !c.lastTick.IsZero() {
		dt = max(now.Sub(c.lastTick).Seconds(), 0)
	}
	c.lastTick = now

	if dt > 0 {
		c.integral += err * dt
	}
	raw := c.Kp*err + c.Ki*c.integral
	output := c.clamp(raw)

	// Conditional integration: drop this step's contribution while pushing further into saturation
	if c.AntiWindup && dt > 0 && output != raw && (raw > c.Max) == (err > 0) {
		c.integral -= err * dt
	}

	return output
}

func (c *PI) clamp(v float64) float64 {
	if v < c.Min {
		return c.Min
	} else if v > c.Max {
		return c.Max
	}
	return v
}

// Reset zeroes the integral and forgets the last tick.
func (c *PI) Reset() {
	c.integral = 0
	c.lastTick = time.Time{}
}

func (c *PI) Integral() float64 {
	return c.integral
}

func (c *PI) LastTick() time.Time {
	return c.lastTick
}
