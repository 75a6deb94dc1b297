package dilution

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPumpPower(t *testing.T) {
	tests := []struct {
		name string
		od   float64
		dial float64
		want float64
	}{
		{name: "below threshold", od: 0.4, dial: 0.6, want: 0},
		{name: "above threshold", od: 0.6, dial: 0.6, want: 60},
		{name: "at threshold is off", od: 0.5, dial: 1, want: 0},
		{name: "dial at zero", od: 2, dial: 0, want: 0},
		{name: "dial full", od: 2, dial: 1, want: 100},
		{name: "dial above range", od: 2, dial: 1.2, want: 100},
		{name: "dial below range", od: 2, dial: -0.3, want: 0},
		{name: "negative od", od: -0.7, dial: 1, want: 0},
		{name: "nan od", od: math.NaN(), dial: 1, want: 0},
	}

	p := NewPolicy(DefaultThreshold)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, p.PumpPower(tt.od, tt.dial), 1e-9)
		})
	}
}

func TestPumpPower_CustomThreshold(t *testing.T) {
	p := NewPolicy(1.0)
	assert.Zero(t, p.PumpPower(0.9, 0.5))
	assert.Equal(t, 50.0, p.PumpPower(1.1, 0.5))
}
