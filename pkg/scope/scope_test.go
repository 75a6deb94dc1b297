package scope

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValueRange(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		lo, hi float64
	}{
		{name: "empty uses default", values: nil, lo: 32, hi: 42},
		{name: "margin", values: []float64{30, 40}, lo: 29, hi: 41},
		{name: "flat", values: []float64{0.5, 0.5}, lo: 0.4, hi: 0.6},
		{name: "skips NaN", values: []float64{math.NaN(), 30, 40, math.Inf(1)}, lo: 29, hi: 41},
		{name: "only NaN", values: []float64{math.NaN()}, lo: 32, hi: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := valueRange(tt.values, 32, 42)
			assert.InDelta(t, tt.lo, lo, 1e-9)
			assert.InDelta(t, tt.hi, hi, 1e-9)
		})
	}
}

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1.5m"},
		{2 * time.Hour, "2h"},
		{90 * time.Minute, "1h30m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatOffset(tt.d))
		})
	}
}

func TestPlotMapping(t *testing.T) {
	start := time.Unix(1000, 0)
	p := plot{x: 10, y: 20, w: 100, h: 50, xMin: start, xMax: start.Add(10 * time.Second)}

	assert.Equal(t, float32(10), p.xAt(start))
	assert.Equal(t, float32(60), p.xAt(start.Add(5*time.Second)))
	assert.Equal(t, float32(70), p.yAt(0, 0, 1))
	assert.Equal(t, float32(20), p.yAt(1, 0, 1))

	empty := plot{x: 10, xMin: start, xMax: start}
	assert.Equal(t, float32(10), empty.xAt(start.Add(time.Second)))
}
