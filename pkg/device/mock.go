package device

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/itohio/gobioreactor/pkg/config"
)

// Mock simulates a bioreactor for testing and development: a heated vessel with
// first-order thermal lag and a growing culture diluted by the pump.
type Mock struct {
	cfg *config.MockConfig

	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	done      chan struct{}

	// Actuator states
	heater float64
	stir   float64
	pump   float64

	// Simulation state
	elapsed     float64 // simulated seconds since Connect
	temperature float64 // °C
	od          float64
	dial        uint16
	probeFault  bool

	cbMu      sync.RWMutex
	callbacks []func()
}

// NewMock creates a new simulated reactor.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}

	return &Mock{
		cfg:         cfg,
		temperature: cfg.AmbientTemperature,
		od:          cfg.InitialOD,
		dial:        cfg.DialCode,
	}
}

// Connect starts the simulation.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.elapsed = 0
	m.temperature = m.cfg.AmbientTemperature
	m.od = m.cfg.InitialOD
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.done = make(chan struct{})

	go m.simulate(m.ctx, m.done)

	return nil
}

// Close stops the simulation.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}

	m.cancel()
	m.connected = false
	done := m.done
	m.mu.Unlock()

	<-done
	return nil
}

// IsConnected returns whether the simulation is running.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// OnPowerToggle registers a callback invoked by PressPowerButton.
func (m *Mock) OnPowerToggle(fn func()) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// PressPowerButton simulates a press of the power button.
func (m *Mock) PressPowerButton() {
	m.cbMu.RLock()
	callbacks := make([]func(), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb()
		}
	}
}

// SetProbeFault makes temperature reads fail until cleared.
func (m *Mock) SetProbeFault(fault bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeFault = fault
}

// SetDial sets the simulated pump dial ADC code.
func (m *Mock) SetDial(code uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dial = code
}

// OD returns the simulated culture density.
func (m *Mock) OD() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.od
}

// Outputs returns the last commanded heater, stir and pump powers.
func (m *Mock) Outputs() (heater, stir, pump float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.heater, m.stir, m.pump
}

// ReadTemperature returns the simulated vessel temperature.
func (m *Mock) ReadTemperature() (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return 0, ErrNotConnected
	}
	if m.probeFault {
		return 0, fmt.Errorf("temperature probe not responding")
	}
	return m.temperature, nil
}

// ReadLight returns the simulated transmitted light code.
func (m *Mock) ReadLight() (uint16, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return 0, ErrNotConnected
	}
	return m.lightCode(), nil
}

// ReadDial returns the simulated dial code.
func (m *Mock) ReadDial() (uint16, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return 0, ErrNotConnected
	}
	return m.dial, nil
}

// SetHeaterPower sets the simulated heater power.
func (m *Mock) SetHeaterPower(percent float64) error {
	return m.set(Heater, &m.heater, percent)
}

// SetStirPower sets the simulated stirring power.
func (m *Mock) SetStirPower(percent float64) error {
	return m.set(Stir, &m.stir, percent)
}

// SetPumpPower sets the simulated pump power.
func (m *Mock) SetPumpPower(percent float64) error {
	return m.set(Pump, &m.pump, percent)
}

func (m *Mock) set(t Target, dst *float64, percent float64) error {
	if err := checkRange(t, percent); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("%w: %w", ErrActuatorFault, ErrNotConnected)
	}
	*dst = percent
	return nil
}

// simulate advances the model on every sample tick.
func (m *Mock) simulate(ctx context.Context, done chan struct{}) {
	defer close(done)

	rate := m.cfg.SampleRate
	if rate <= 0 {
		rate = 100 * time.Millisecond
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	dt := rate.Seconds() * m.cfg.TimeScale
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			m.advance(dt)
			m.mu.Unlock()
		}
	}
}

// advance integrates the model by dt simulated seconds. Caller holds mu.
func (m *Mock) advance(dt float64) {
	if dt <= 0 {
		return
	}
	m.elapsed += dt

	// Thermal response: exponential approach to the steady state set by the heater
	tau := m.cfg.ThermalTimeConst.Seconds()
	steady := m.cfg.AmbientTemperature + m.heater/100*m.cfg.HeaterGain
	if tau > 0 {
		m.temperature += (steady - m.temperature) * (1 - math.Exp(-dt/tau))
	} else {
		m.temperature = steady
	}

	// Logistic growth minus washout by the pump
	growth := m.cfg.GrowthRate / 3600 * m.od * (1 - m.od/m.cfg.MaxOD)
	washout := m.cfg.DilutionRate / 3600 * m.pump / 100 * m.od
	m.od += (growth - washout) * dt
	if m.od < 0 {
		m.od = 0
	}
}

// lightCode converts the current OD to a transmitted light ADC code. Caller holds mu.
func (m *Mock) lightCode() uint16 {
	transmitted := float64(m.cfg.BlankIntensity) * math.Pow(10, -m.od/m.cfg.Attenuation)

	noise := (math.Sin(m.elapsed*1.3) + math.Cos(m.elapsed*0.7)) * m.cfg.NoiseLevel * 0.5
	v := transmitted + noise
	if v < 0 {
		v = 0
	} else if v > math.MaxUint16 {
		v = math.MaxUint16
	}
	return uint16(v)
}
