package stirring

import (
	"fmt"
	"time"

	"github.com/itohio/gobioreactor/pkg/config"
)

// Phase is a position in the stirring cycle.
type Phase int

const (
	Reverse Phase = iota
	Pause1
	Forward
	Pause2
)

func (p Phase) String() string {
	switch p {
	case Reverse:
		return "reverse"
	case Pause1, Pause2:
		return "pause"
	case Forward:
		return "forward"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type step struct {
	end   time.Duration // cumulative from the cycle start
	power float64
}

// Sequencer drives the stirrer through a fixed duty cycle. Its only state is the
// start time of the current cycle.
type Sequencer struct {
	steps      []step
	phaseStart time.Time
}

// New creates a sequencer from the configured phases. An empty list uses config.DefaultPhases.
// Phases past Pause2 are numbered on.
func New(phases []config.PhaseConfig) *Sequencer {
	if len(phases) == 0 {
		phases = config.DefaultPhases()
	}

	s := &Sequencer{steps: make([]step, 0, len(phases))}
	var end time.Duration
	for _, p := range phases {
		end += p.Duration
		s.steps = append(s.steps, step{end: end, power: p.Power})
	}
	return s
}

// Period returns the length of one full cycle.
func (s *Sequencer) Period() time.Duration {
	return s.steps[len(s.steps)-1].end
}

// PhaseAt returns the phase and signed power for a time since the cycle start.
// Elapsed times past the period wrap around.
func (s *Sequencer) PhaseAt(elapsed time.Duration) (Phase, float64) {
	if elapsed < 0 {
		elapsed = 0
	}
	elapsed %= s.Period()
	for i, st := range s.steps {
		if elapsed < st.end {
			return Phase(i), st.power
		}
	}
	return Reverse, s.steps[0].power
}

// Step returns the phase for now. Once a full period has elapsed the cycle restarts at now.
func (s *Sequencer) Step(now time.Time) (Phase, float64) {
	elapsed := now.Sub(s.phaseStart)
	if elapsed >= s.Period() {
		s.phaseStart = now
		elapsed = 0
	}
	return s.PhaseAt(elapsed)
}

// Reset restarts the cycle at now.
func (s *Sequencer) Reset(now time.Time) {
	s.phaseStart = now
}

func (s *Sequencer) PhaseStart() time.Time {
	return s.phaseStart
}
