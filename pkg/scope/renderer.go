package scope

import (
	"image/color"
	"math"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/dustin/go-humanize"

	"github.com/itohio/gobioreactor/pkg/trend"
)

var (
	gridColor     = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor    = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	tempColor     = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	odColor       = color.RGBA{R: 100, G: 200, B: 255, A: 255}
	setpointColor = color.RGBA{R: 120, G: 80, B: 40, A: 255}
	episodeColor  = color.RGBA{R: 0, G: 100, B: 200, A: 80}
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	grid    *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

// plot is the drawing area and its axes.
type plot struct {
	x, y, w, h       float32
	xMin, xMax       time.Time
	tempMin, tempMax float64
	odMin, odMax     float64
}

func (p plot) xAt(t time.Time) float32 {
	span := p.xMax.Sub(p.xMin).Seconds()
	if span <= 0 {
		return p.x
	}
	return p.x + float32(t.Sub(p.xMin).Seconds()/span)*p.w
}

func (p plot) yAt(v, lo, hi float64) float32 {
	return p.y + p.h - float32((v-lo)/(hi-lo))*p.h
}

func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 240)
}

func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds all canvas objects from the current data.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	points := r.scope.points
	episodes := r.scope.episodes
	setpoint := r.scope.setpoint
	p := plot{
		xMin: r.scope.xMin, xMax: r.scope.xMax,
		tempMin: r.scope.tempMin, tempMax: r.scope.tempMax,
		odMin: r.scope.odMin, odMax: r.scope.odMax,
	}
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	const (
		marginLeft   = float32(55)
		marginRight  = float32(55)
		marginTop    = float32(20)
		marginBottom = float32(30)
	)
	p.x, p.y = marginLeft, marginTop
	p.w = size.Width - marginLeft - marginRight
	p.h = size.Height - marginTop - marginBottom

	r.objects = []fyne.CanvasObject{r.grid}

	r.drawEpisodes(p, episodes)
	r.drawGrid(p)
	r.drawSetpoint(p, setpoint)
	r.drawTrace(p, points, tempColor, 1.5, func(pt trend.Point) (float64, bool) {
		return pt.Temperature, pt.TemperatureValid
	}, p.tempMin, p.tempMax)
	r.drawTrace(p, points, odColor, 2.5, func(pt trend.Point) (float64, bool) {
		return pt.OD, pt.ODValid
	}, p.odMin, p.odMax)

	canvas.Refresh(r.scope)
}

// drawGrid draws the grid with temperature labels on the left and OD labels on the right.
func (r *scopeRenderer) drawGrid(p plot) {
	const hLines = 6
	for i := range hLines + 1 {
		y := p.y + float32(i)*p.h/hLines
		r.line(gridColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))

		temp := p.tempMax - float64(i)*(p.tempMax-p.tempMin)/hLines
		r.text(humanize.FtoaWithDigits(temp, 1)+"C", tempColor, fyne.TextAlignTrailing, fyne.NewPos(p.x-5, y-6))

		od := p.odMax - float64(i)*(p.odMax-p.odMin)/hLines
		r.text(humanize.FtoaWithDigits(od, 2), odColor, fyne.TextAlignLeading, fyne.NewPos(p.x+p.w+5, y-6))
	}

	const vLines = 10
	span := p.xMax.Sub(p.xMin)
	for i := range vLines + 1 {
		x := p.x + float32(i)*p.w/vLines
		r.line(gridColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h))

		offset := span * time.Duration(i) / vLines
		r.text(formatOffset(offset), labelColor, fyne.TextAlignCenter, fyne.NewPos(x-20, p.y+p.h+5))
	}
}

func (r *scopeRenderer) drawSetpoint(p plot, setpoint float64) {
	if setpoint < p.tempMin || setpoint > p.tempMax {
		return
	}
	y := p.yAt(setpoint, p.tempMin, p.tempMax)
	r.line(setpointColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))
}

// drawTrace draws one series, breaking the line where values are missing.
func (r *scopeRenderer) drawTrace(p plot, points []trend.Point, c color.Color, width float32, value func(trend.Point) (float64, bool), lo, hi float64) {
	var (
		prev    fyne.Position
		hasPrev bool
	)
	for _, pt := range points {
		v, ok := value(pt)
		if !ok {
			hasPrev = false
			continue
		}
		pos := fyne.NewPos(p.xAt(pt.Time), p.yAt(v, lo, hi))
		if hasPrev {
			r.line(c, width, prev, pos)
		}
		prev, hasPrev = pos, true
	}
}

// drawEpisodes shades pump-on intervals and labels them with the peak pump power.
func (r *scopeRenderer) drawEpisodes(p plot, episodes []trend.Episode) {
	for _, e := range episodes {
		x0 := max(p.xAt(e.StartTime), p.x)
		x1 := min(p.xAt(e.EndTime), p.x+p.w)
		if x1 < x0 {
			continue
		}

		rect := canvas.NewRectangle(episodeColor)
		rect.Move(fyne.NewPos(x0, p.y))
		rect.Resize(fyne.NewSize(max(x1-x0, 1), p.h))
		r.objects = append(r.objects, rect)

		label := "P " + humanize.FtoaWithDigits(e.PeakPump, 0) + "%"
		r.text(label, odColor, fyne.TextAlignCenter, fyne.NewPos((x0+x1)/2-20, p.y+2))
	}
}

func (r *scopeRenderer) line(c color.Color, width float32, from, to fyne.Position) {
	l := canvas.NewLine(c)
	l.Position1 = from
	l.Position2 = to
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

func (r *scopeRenderer) text(s string, c color.Color, align fyne.TextAlign, pos fyne.Position) {
	t := canvas.NewText(s, c)
	t.TextSize = 10
	t.Alignment = align
	t.Move(pos)
	r.objects = append(r.objects, t)
}

func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *scopeRenderer) Destroy() {}

// formatOffset renders a time offset as "45s", "3m" or "1h30m".
func formatOffset(d time.Duration) string {
	switch {
	case d < time.Minute:
		return humanize.FtoaWithDigits(d.Seconds(), 1) + "s"
	case d < time.Hour:
		return humanize.FtoaWithDigits(d.Minutes(), 1) + "m"
	default:
		h := math.Floor(d.Hours())
		m := math.Round(d.Minutes() - h*60)
		if m == 0 {
			return humanize.FtoaWithDigits(h, 0) + "h"
		}
		return humanize.FtoaWithDigits(h, 0) + "h" + humanize.FtoaWithDigits(m, 0) + "m"
	}
}
