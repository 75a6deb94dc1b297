package main

import (
	"context"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/itohio/gobioreactor/pkg/config"
	"github.com/itohio/gobioreactor/pkg/control"
	"github.com/itohio/gobioreactor/pkg/device"
	"github.com/itohio/gobioreactor/pkg/display"
	"github.com/itohio/gobioreactor/pkg/metrics"
	"github.com/itohio/gobioreactor/pkg/scope"
	"github.com/itohio/gobioreactor/pkg/trend"
)

// Scope redraws are throttled to ~10 FPS; the loop ticks at 5 Hz by default.
const scopeUpdateInterval = 100 * time.Millisecond

// panel is the status window. It doubles as the loop's text display.
type panel struct {
	display.Buffer

	window   fyne.Window
	lines    [display.Rows]*canvas.Text
	powerBtn *widget.Button
	faults   *widget.Label
	rate     *widget.Label
	scope    *scope.ScopeWidget
	metrics  *metrics.Metrics
	toggle   func()

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

func newPanel(cfg *config.Config, window fyne.Window) *panel {
	p := &panel{
		window: window,
		faults: widget.NewLabel("Faults: 0"),
		rate:   widget.NewLabel("Growth: --"),
		scope:  scope.New(cfg),
	}

	for i := range p.lines {
		t := canvas.NewText("", theme.Color(theme.ColorNameForeground))
		t.TextSize = 28
		t.TextStyle = fyne.TextStyle{Monospace: true}
		p.lines[i] = t
	}

	p.powerBtn = widget.NewButtonWithIcon("Power", theme.MediaPlayIcon(), func() {
		if p.toggle != nil {
			p.toggle()
		}
	})

	return p
}

// content lays out the screen lines and power button on top of the scope.
func (p *panel) content() fyne.CanvasObject {
	screen := container.NewVBox(p.lines[0], p.lines[1])
	toolbar := container.NewBorder(
		nil,
		nil,
		p.powerBtn,
		container.NewHBox(p.rate, p.faults),
		nil,
	)
	return container.NewBorder(
		container.NewVBox(toolbar, screen),
		nil,
		nil,
		nil,
		p.scope,
	)
}

// Present shows the drawn lines in the window.
func (p *panel) Present() error {
	if err := p.Buffer.Present(); err != nil {
		return err
	}
	lines := p.Lines()
	fyne.Do(func() {
		for i, t := range p.lines {
			if t.Text != lines[i] {
				t.Text = lines[i]
				t.Refresh()
			}
		}
	})
	return nil
}

// onStatus mirrors the run state and fault count. Called from the loop goroutine.
func (p *panel) onStatus(s control.Status) {
	faults := "Faults: " + humanize.Comma(int64(p.metrics.FaultCount()))
	fyne.Do(func() {
		updatePowerButton(p.powerBtn, s.Powered)
		if p.faults.Text != faults {
			p.faults.SetText(faults)
		}
	})
}

// onTrend pushes the history into the scope. Called from the history goroutine.
func (p *panel) onTrend(points []trend.Point, rates []float64, episodes []trend.Episode) {
	p.updateMu.Lock()
	now := time.Now()
	if now.Sub(p.lastUpdateTime) < scopeUpdateInterval {
		p.updateMu.Unlock()
		return
	}
	p.lastUpdateTime = now
	p.updateMu.Unlock()

	fyne.Do(func() {
		p.scope.UpdateData(points, rates, episodes)
		if rate, ok := p.scope.LatestRate(); ok {
			p.rate.SetText("Growth: " + humanize.FtoaWithDigits(rate, 3) + " OD/h")
		} else {
			p.rate.SetText("Growth: --")
		}
	})
}

// updatePowerButton shows the run state on the power button.
func updatePowerButton(btn *widget.Button, powered bool) {
	importance := widget.MediumImportance
	icon := theme.MediaPlayIcon()
	if powered {
		importance = widget.HighImportance
		icon = theme.MediaStopIcon()
	}
	if btn.Importance == importance {
		return
	}
	btn.Importance = importance
	btn.SetIcon(icon)
}

func runPanel(ctx context.Context, cfg *config.Config, dev device.Device, opts runOptions, log zerolog.Logger) error {
	application := app.NewWithID("com.itohio.gobioreactor")

	window := application.NewWindow("Bioreactor")
	window.Resize(fyne.NewSize(1000, 700))
	window.CenterOnScreen()

	p := newPanel(cfg, window)
	r := newReactor(cfg, dev, p, log)
	p.metrics = r.metrics
	p.toggle = r.loop.RequestToggle
	r.loop.OnStatus(p.onStatus)
	r.history.OnUpdate(p.onTrend)

	window.SetContent(p.content())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	toggleOnSignal(ctx, r.loop, log)
	if opts.powerOn {
		r.loop.RequestToggle()
	}

	done := make(chan error, 1)
	go func() {
		done <- r.run(ctx)
		// Interrupted or timed out: close the window too.
		fyne.Do(application.Quit)
	}()

	window.ShowAndRun()
	cancel()
	return <-done
}
