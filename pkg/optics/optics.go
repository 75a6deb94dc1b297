package optics

import (
	"errors"
	"fmt"
	"math"
)

// DefaultK is the empirical calibration constant of the phototransistor cell.
const DefaultK = 2.28

// ErrInvalidSample is returned when an intensity cannot produce a finite OD.
var ErrInvalidSample = errors.New("invalid sample")

// Density is an optical density. Larger means a denser culture.
type Density float64

// Estimator converts transmitted light into optical density relative to a blank reading.
type Estimator struct {
	K float64
}

func NewEstimator(k float64) *Estimator {
	if k <= 0 {
		k = DefaultK
	}
	return &Estimator{K: k}
}

// Estimate returns -K*log10(current/baseline).
func (e *Estimator) Estimate(baseline, current float64) (Density, error) {
	if !valid(baseline) {
		return 0, fmt.Errorf("%w: baseline intensity %v", ErrInvalidSample, baseline)
	}
	if !valid(current) {
		return 0, fmt.Errorf("%w: intensity %v", ErrInvalidSample, current)
	}
	od := -e.K * math.Log10(current/baseline)
	if od == 0 {
		// avoid -0 on a clear culture
		od = 0
	}
	return Density(od), nil
}

func valid(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
