package dilution

// DefaultThreshold is the OD above which the pump runs.
const DefaultThreshold = 0.5

// Policy decides the pump power. The dial sets the speed, the policy only switches it on.
type Policy struct {
	Threshold float64
}

func NewPolicy(threshold float64) *Policy {
	return &Policy{Threshold: threshold}
}

// PumpPower returns dial*100 when od exceeds the threshold, otherwise 0.
// dial is clamped to [0, 1].
func (p *Policy) PumpPower(od, dial float64) float64 {
	if !(od > p.Threshold) {
		return 0
	}
	return min(max(dial, 0), 1) * 100
}
