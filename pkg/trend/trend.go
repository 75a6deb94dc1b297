package trend

import (
	"math"
	"sync"
	"time"

	"github.com/itohio/gobioreactor/pkg/control"
)

var _ History = (*Window)(nil)

// Point is one running tick as kept in the history.
type Point struct {
	Time             time.Time
	Temperature      float64
	TemperatureValid bool
	OD               float64
	ODValid          bool
	Heater           float64
	Stir             float64
	Pump             float64
}

// FromStatus converts a loop status to a point.
func FromStatus(s control.Status) Point {
	return Point{
		Time:             s.Time,
		Temperature:      s.Frame.TemperatureC,
		TemperatureValid: s.Frame.TemperatureValid,
		OD:               float64(s.OD),
		ODValid:          s.ODValid,
		Heater:           s.Heater,
		Stir:             s.Stir,
		Pump:             s.Pump,
	}
}

// Episode is a contiguous run of ticks with the pump on.
type Episode struct {
	StartIndex int // index in the points buffer
	EndIndex   int // updated while the pump keeps running
	StartTime  time.Time
	EndTime    time.Time
	PeakPump   float64 // highest commanded pump power
}

func (e Episode) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// History keeps a time window of loop statuses for display.
type History interface {
	ProcessStatuses(input <-chan control.Status)
	Points() []Point                                                    // oldest first
	Rates() []float64                                                   // OD change per hour, n-1 rates for n points
	Episodes() []Episode                                                // dilution episodes within the window
	OnUpdate(func(points []Point, rates []float64, episodes []Episode)) // register callback for updates
}

// Window implements History.
//
// Rates correspond exactly to point pairs: rates[i] = (points[i+1].OD - points[i].OD) / dt.
// A rate is NaN when either OD is missing. Points leave the buffer by timestamp, not count.
type Window struct {
	window time.Duration

	mu       sync.RWMutex
	points   []Point
	rates    []float64
	episodes []Episode
	runID    string
	shutdown bool // set when the input channel closes, prevents further callbacks

	cbMu      sync.RWMutex
	callbacks []func(points []Point, rates []float64, episodes []Episode)
}

// New creates an empty history covering the given window.
func New(window time.Duration) *Window {
	return &Window{
		window:   window,
		points:   make([]Point, 0),
		rates:    make([]float64, 0),
		episodes: make([]Episode, 0),
	}
}

// ProcessStatuses consumes statuses until the channel closes.
func (w *Window) ProcessStatuses(input <-chan control.Status) {
	for s := range input {
		w.Add(s)
	}
	w.mu.Lock()
	w.shutdown = true
	w.mu.Unlock()
}

// Add appends a running status. Idle statuses are ignored and a new run clears the history.
func (w *Window) Add(s control.Status) {
	if !s.Powered {
		return
	}

	w.mu.Lock()
	if s.RunID != w.runID {
		w.runID = s.RunID
		w.points = w.points[:0]
		w.rates = w.rates[:0]
		w.episodes = w.episodes[:0]
	}
	w.addPoint(FromStatus(s))
	notify := !w.shutdown
	w.mu.Unlock()

	if notify {
		w.notifyCallbacks()
	}
}

// addPoint appends p, trims the window and updates rates and episodes. Caller holds mu.
func (w *Window) addPoint(p Point) {
	w.points = append(w.points, p)

	cutoff := p.Time.Add(-w.window)
	cut := 0
	for i, pt := range w.points {
		if pt.Time.After(cutoff) {
			cut = i
			break
		}
	}
	if cut > 0 {
		w.points = w.points[cut:]
		if cut <= len(w.rates) {
			w.rates = w.rates[cut:]
		} else {
			w.rates = w.rates[:0]
		}

		kept := w.episodes[:0]
		for _, e := range w.episodes {
			e.StartIndex -= cut
			e.EndIndex -= cut
			if e.EndIndex < 0 {
				continue
			}
			if e.StartIndex < 0 {
				e.StartIndex = 0
				e.StartTime = w.points[0].Time
			}
			kept = append(kept, e)
		}
		w.episodes = kept
	}

	last := len(w.points) - 1
	if last >= 1 {
		prev := w.points[last-1]
		dt := p.Time.Sub(prev.Time).Hours()
		rate := math.NaN()
		if dt > 0 && p.ODValid && prev.ODValid {
			rate = (p.OD - prev.OD) / dt
		}
		w.rates = append(w.rates, rate)
		if len(w.rates) > last {
			w.rates = w.rates[len(w.rates)-last:]
		}
	}

	w.updateEpisodes()
}

// updateEpisodes extends the open episode or starts a new one. Caller holds mu.
func (w *Window) updateEpisodes() {
	last := len(w.points) - 1
	p := w.points[last]
	if p.Pump <= 0 {
		return
	}

	if n := len(w.episodes); n > 0 && w.episodes[n-1].EndIndex == last-1 {
		e := &w.episodes[n-1]
		e.EndIndex = last
		e.EndTime = p.Time
		e.PeakPump = max(e.PeakPump, p.Pump)
		return
	}

	w.episodes = append(w.episodes, Episode{
		StartIndex: last,
		EndIndex:   last,
		StartTime:  p.Time,
		EndTime:    p.Time,
		PeakPump:   p.Pump,
	})
}

// Points returns a copy of the points buffer.
func (w *Window) Points() []Point {
	w.mu.RLock()
	defer w.mu.RUnlock()

	result := make([]Point, len(w.points))
	copy(result, w.points)
	return result
}

// Rates returns a copy of the OD rates buffer.
func (w *Window) Rates() []float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	result := make([]float64, len(w.rates))
	copy(result, w.rates)
	return result
}

// Episodes returns a copy of the dilution episodes.
func (w *Window) Episodes() []Episode {
	w.mu.RLock()
	defer w.mu.RUnlock()

	result := make([]Episode, len(w.episodes))
	copy(result, w.episodes)
	return result
}

// OnUpdate registers a callback invoked after every added point.
// The callback should copy what it needs and return quickly.
func (w *Window) OnUpdate(callback func(points []Point, rates []float64, episodes []Episode)) {
	w.cbMu.Lock()
	defer w.cbMu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// ResetShutdown allows callbacks again after ProcessStatuses returned.
func (w *Window) ResetShutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shutdown = false
}

// notifyCallbacks copies the buffers under the read lock and calls back without locks.
func (w *Window) notifyCallbacks() {
	w.mu.RLock()
	points := make([]Point, len(w.points))
	copy(points, w.points)
	rates := make([]float64, len(w.rates))
	copy(rates, w.rates)
	episodes := make([]Episode, len(w.episodes))
	copy(episodes, w.episodes)
	w.mu.RUnlock()

	w.cbMu.RLock()
	callbacks := make([]func(points []Point, rates []float64, episodes []Episode), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(points, rates, episodes)
		}
	}
}
