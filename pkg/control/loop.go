package control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/itohio/gobioreactor/pkg/config"
	"github.com/itohio/gobioreactor/pkg/controller"
	"github.com/itohio/gobioreactor/pkg/device"
	"github.com/itohio/gobioreactor/pkg/dilution"
	"github.com/itohio/gobioreactor/pkg/metrics"
	"github.com/itohio/gobioreactor/pkg/optics"
	"github.com/itohio/gobioreactor/pkg/sensor"
	"github.com/itohio/gobioreactor/pkg/stirring"
)

// Standby screen shown while idle.
const (
	StandbyTitle = "rEvolver"
	StandbyText  = "Standby"
)

// Hardware groups the collaborators owned by the loop.
type Hardware struct {
	Sensors   sensor.Source
	Actuators device.Actuators
	Display   device.Display
}

// Loop is the control loop orchestrator. Tick and Run must be called from a single
// goroutine; RequestToggle, State, Powered and OnStatus are safe from any goroutine.
type Loop struct {
	cfg     config.ControlConfig
	hw      Hardware
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time

	reader    *sensor.Reader
	pi        *controller.PI
	stirrer   *stirring.Sequencer
	estimator *optics.Estimator
	policy    *dilution.Policy

	toggle atomic.Bool

	mu            sync.RWMutex
	powered       bool
	baseline      float64
	baselineValid bool
	od            optics.Density
	odValid       bool
	runID         string
	runStart      time.Time
	runTicks      int64
	faulted       map[string]bool

	obsMu     sync.RWMutex
	observers []func(Status)
}

// New creates a loop in the Idle state. A nil metrics creates a private set.
func New(cfg *config.Config, hw Hardware, m *metrics.Metrics, log zerolog.Logger) *Loop {
	if m == nil {
		m = metrics.New()
	}

	return &Loop{
		cfg:       cfg.Control,
		hw:        hw,
		metrics:   m,
		log:       log.With().Str("component", "control").Logger(),
		now:       time.Now,
		reader:    sensor.NewReader(hw.Sensors),
		pi:        controller.NewPI(&cfg.PI),
		stirrer:   stirring.New(cfg.Stirring.Phases),
		estimator: optics.NewEstimator(cfg.Optics.K),
		policy:    dilution.NewPolicy(cfg.Dilution.ODThreshold),
		faulted:   make(map[string]bool),
	}
}

// RequestToggle flips the pending power request. It only touches an atomic flag,
// so it is safe to call from button callbacks and signal handlers.
// Two requests between ticks cancel out.
func (l *Loop) RequestToggle() {
	for {
		old := l.toggle.Load()
		if l.toggle.CompareAndSwap(old, !old) {
			return
		}
	}
}

// OnStatus registers a callback invoked with the status of every tick.
func (l *Loop) OnStatus(fn func(Status)) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	l.observers = append(l.observers, fn)
}

// Powered returns whether the loop is running.
func (l *Loop) Powered() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.powered
}

// State returns a snapshot of the controller state.
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return State{
		Powered:             l.powered,
		StirringPhaseStart:  l.stirrer.PhaseStart(),
		PILastTick:          l.pi.LastTick(),
		IntegralAccumulator: l.pi.Integral(),
		BaselineIntensity:   l.baseline,
	}
}

// Run ticks until ctx is done, then commands every actuator to zero.
// Each tick is followed by a fixed sleep; processing time is not compensated.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().Dur("tick", l.cfg.TickPeriod).Dur("idle", l.cfg.IdlePeriod).Msg("control loop started")

	l.mu.Lock()
	if !l.powered {
		l.standby()
	}
	l.mu.Unlock()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		case <-timer.C:
		}

		status := l.Tick(l.now())

		period := l.cfg.IdlePeriod
		if status.Powered {
			period = l.cfg.TickPeriod
		}
		timer.Reset(period)
	}
}

// Tick performs one control cycle at now.
func (l *Loop) Tick(now time.Time) Status {
	l.mu.Lock()
	if l.toggle.Swap(false) {
		if l.powered {
			l.powerOff(now)
		} else {
			l.powerOn(now)
		}
	}

	var status Status
	if l.powered {
		status = l.step(now)
	} else {
		status = Status{Time: now}
	}
	l.mu.Unlock()

	l.obsMu.RLock()
	observers := make([]func(Status), len(l.observers))
	copy(observers, l.observers)
	l.obsMu.RUnlock()

	for _, fn := range observers {
		if fn != nil {
			fn(status)
		}
	}
	return status
}

// powerOn handles the Idle to Running edge. Caller holds mu.
func (l *Loop) powerOn(now time.Time) {
	l.pi.Reset()
	l.reader.Reset()
	l.stirrer.Reset(now)
	l.od, l.odValid = 0, false
	l.runID = xid.New().String()
	l.runStart = now
	l.runTicks = 0
	l.powered = true

	l.captureBaseline()
	l.zeroActuators()
	l.metrics.SetPowered(true)

	l.log.Info().
		Str("run", l.runID).
		Float64("baseline", l.baseline).
		Bool("baseline_valid", l.baselineValid).
		Msg("powered on")
}

// powerOff handles the Running to Idle edge. Caller holds mu.
func (l *Loop) powerOff(now time.Time) {
	l.powered = false
	l.standby()

	l.log.Info().
		Str("run", l.runID).
		Str("ran", strings.TrimSpace(humanize.RelTime(l.runStart, now, "", ""))).
		Str("ticks", humanize.Comma(l.runTicks)).
		Msg("powered off")
}

// standby zeroes the actuators and shows the standby screen. Caller holds mu.
func (l *Loop) standby() {
	l.zeroActuators()
	l.metrics.SetPowered(false)

	l.hw.Display.Clear()
	l.hw.Display.DrawLine(StandbyTitle, 0)
	l.hw.Display.DrawLine(StandbyText, 1)
	if err := l.hw.Display.Present(); err != nil {
		l.fault(metrics.KindDisplay, "present", err)
	}
}

// captureBaseline takes a fresh blank reading. Caller holds mu.
func (l *Loop) captureBaseline() {
	l.baseline, l.baselineValid = 0, false

	light, err := l.hw.Sensors.ReadLightIntensity()
	if err != nil {
		l.fault(metrics.KindSensor, "baseline", err)
		return
	}
	l.setBaseline(light)
}

func (l *Loop) setBaseline(light uint16) {
	if light == 0 {
		l.fault(metrics.KindInvalidSample, "baseline", fmt.Errorf("%w: baseline intensity 0", optics.ErrInvalidSample))
		return
	}
	l.baseline, l.baselineValid = float64(light), true
	l.clearFault(metrics.KindSensor, "baseline")
	l.clearFault(metrics.KindInvalidSample, "baseline")
}

// step runs one powered tick. Caller holds mu.
func (l *Loop) step(now time.Time) Status {
	started := time.Now()
	status := Status{Time: now, Powered: true, RunID: l.runID}

	frame, errs := l.reader.ReadFrame(now)
	status.Frame = frame
	status.Faults += l.noteSensorFaults(errs)

	heater := 0.0
	if frame.TemperatureValid {
		heater = l.pi.Step(l.cfg.TargetTemperature, frame.TemperatureC, now)
	}

	phase, stir := l.stirrer.Step(now)
	status.Phase = phase

	// A missing blank is retried with the first fresh light reading
	if !l.baselineValid && frame.LightValid && !frame.LightHeld {
		l.setBaseline(frame.LightIntensityRaw)
	}

	if l.baselineValid && frame.LightValid {
		od, err := l.estimator.Estimate(l.baseline, float64(frame.LightIntensityRaw))
		if err != nil {
			status.Faults++
			l.fault(metrics.KindInvalidSample, "od", err)
		} else {
			l.od, l.odValid = od, true
			l.clearFault(metrics.KindInvalidSample, "od")
		}
	}
	status.OD, status.ODValid = l.od, l.odValid

	pump := 0.0
	if l.odValid && frame.DialValid {
		pump = l.policy.PumpPower(float64(l.od), frame.DialFraction)
	}

	cmds := []device.Command{
		device.HeaterPower(heater).Clamped(),
		device.StirPower(stir).Clamped(),
		device.PumpPower(pump).Clamped(),
	}
	status.Heater, status.Stir, status.Pump = cmds[0].Value, cmds[1].Value, cmds[2].Value
	for _, cmd := range cmds {
		if err := cmd.Apply(l.hw.Actuators); err != nil {
			status.Faults++
			l.fault(metrics.KindActuator, cmd.Target.String(), err)
		} else {
			l.clearFault(metrics.KindActuator, cmd.Target.String())
		}
	}

	status.Lines = l.render(frame)

	l.runTicks++
	l.metrics.RecordTick(metrics.Tick{
		Temperature: frame.TemperatureC,
		OD:          float64(l.od),
		Heater:      status.Heater,
		Stir:        status.Stir,
		Pump:        status.Pump,
		Duration:    time.Since(started),
	})
	return status
}

// render draws the OD and temperature rows. Caller holds mu.
func (l *Loop) render(frame sensor.Frame) [2]string {
	lines := [2]string{"OD: --", "Temp: --"}
	if l.odValid {
		lines[0] = fmt.Sprintf("OD: %.2f", float64(l.od))
	}
	if frame.TemperatureValid {
		lines[1] = fmt.Sprintf("Temp: %.1fC", frame.TemperatureC)
	}

	l.hw.Display.Clear()
	for row, text := range lines {
		l.hw.Display.DrawLine(text, row)
	}
	if err := l.hw.Display.Present(); err != nil {
		l.fault(metrics.KindDisplay, "present", err)
	} else {
		l.clearFault(metrics.KindDisplay, "present")
	}
	return lines
}

// noteSensorFaults records faults and recoveries per input. Caller holds mu.
func (l *Loop) noteSensorFaults(errs []error) int {
	failed := make(map[sensor.Input]error, len(errs))
	for _, err := range errs {
		var f *sensor.Fault
		if errors.As(err, &f) {
			failed[f.Input] = f.Err
		}
	}

	for _, in := range sensor.Inputs {
		if err, ok := failed[in]; ok {
			l.fault(metrics.KindSensor, in.String(), err)
		} else {
			l.clearFault(metrics.KindSensor, in.String())
		}
	}
	return len(errs)
}

// zeroActuators commands every actuator off. Caller holds mu.
func (l *Loop) zeroActuators() {
	for _, cmd := range device.Off() {
		if err := cmd.Apply(l.hw.Actuators); err != nil {
			l.fault(metrics.KindActuator, cmd.Target.String(), err)
		}
	}
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.zeroActuators()
	if l.powered {
		l.powered = false
		l.metrics.SetPowered(false)
	}
	l.log.Info().Msg("control loop stopped, actuators off")
}

// fault counts every occurrence but only logs the first of a streak.
func (l *Loop) fault(kind, source string, err error) {
	l.metrics.RecordFault(kind, source)

	key := kind + "/" + source
	if l.faulted[key] {
		return
	}
	l.faulted[key] = true
	l.log.Warn().Err(err).Str("kind", kind).Str("source", source).Msg("fault")
}

func (l *Loop) clearFault(kind, source string) {
	key := kind + "/" + source
	if !l.faulted[key] {
		return
	}
	delete(l.faulted, key)
	l.log.Info().Str("kind", kind).Str("source", source).Msg("recovered")
}
