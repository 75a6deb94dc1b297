package scope

import (
	"image/color"
	"math"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gobioreactor/pkg/config"
	"github.com/itohio/gobioreactor/pkg/trend"
)

// ScopeWidget is a custom Fyne widget that plots culture temperature and OD over time.
type ScopeWidget struct {
	widget.BaseWidget

	target   time.Duration
	setpoint float64

	// Data (protected by mu)
	mu       sync.RWMutex
	points   []trend.Point
	rates    []float64
	episodes []trend.Episode

	// Auto-scaling
	tempMin, tempMax float64
	odMin, odMax     float64
	xMin, xMax       time.Time

	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	maxPoints := cfg.Trend.MaxPoints
	if maxPoints <= 0 {
		maxPoints = 600
	}

	s := &ScopeWidget{
		target:           cfg.Trend.Window,
		setpoint:         cfg.Control.TargetTemperature,
		points:           make([]trend.Point, 0, maxPoints),
		rates:            make([]float64, 0, maxPoints),
		maxDisplayPoints: maxPoints,
	}
	s.ExtendBaseWidget(s)
	s.updateAutoScale()
	s.Refresh()
	return s
}

// UpdateData replaces the plotted history.
// Call it from the trend callback using fyne.Do().
func (s *ScopeWidget) UpdateData(points []trend.Point, rates []float64, episodes []trend.Episode) {
	s.mu.Lock()
	s.points = trend.DownsamplePoints(s.points, points, s.maxDisplayPoints)
	s.rates = trend.DownsampleRates(s.rates, rates, s.maxDisplayPoints)
	s.episodes = episodes
	s.updateAutoScale()
	s.mu.Unlock()

	s.Refresh()
}

// LatestRate returns the most recent finite OD rate per hour.
func (s *ScopeWidget) LatestRate() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.rates) - 1; i >= 0; i-- {
		if !math.IsNaN(s.rates[i]) {
			return s.rates[i], true
		}
	}
	return 0, false
}

// updateAutoScale calculates axis ranges. Caller holds mu.
func (s *ScopeWidget) updateAutoScale() {
	temps := make([]float64, 0, len(s.points)+1)
	ods := make([]float64, 0, len(s.points))
	for _, p := range s.points {
		if p.TemperatureValid {
			temps = append(temps, p.Temperature)
		}
		if p.ODValid {
			ods = append(ods, p.OD)
		}
	}
	if len(temps) > 0 {
		temps = append(temps, s.setpoint)
	}

	s.tempMin, s.tempMax = valueRange(temps, s.setpoint-5, s.setpoint+5)
	s.odMin, s.odMax = valueRange(ods, 0, 1)

	if len(s.points) == 0 {
		s.xMin = time.Now()
		s.xMax = s.xMin.Add(s.target)
		return
	}
	s.xMin = s.points[0].Time
	s.xMax = s.points[len(s.points)-1].Time
	if s.xMax.Sub(s.xMin) < s.target {
		s.xMax = s.xMin.Add(s.target)
	}
}

// valueRange returns the span of the finite values with a 10% margin,
// or [defMin, defMax] when there are none.
func valueRange(values []float64, defMin, defMax float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo > hi {
		return defMin, defMax
	}

	span := hi - lo
	if span == 0 {
		span = 1
	}
	margin := span * 0.1
	return lo - margin, hi + margin
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
