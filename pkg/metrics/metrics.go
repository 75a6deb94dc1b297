package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "bioreactor"

// Fault kinds.
const (
	KindSensor        = "sensor"
	KindInvalidSample = "invalid_sample"
	KindActuator      = "actuator"
	KindDisplay       = "display"
)

// Tick is the telemetry of one running control tick.
type Tick struct {
	Temperature float64
	OD          float64
	Heater      float64
	Stir        float64
	Pump        float64
	Duration    time.Duration
}

// Metrics holds the loop collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	faults       *prometheus.CounterVec
	ticks        prometheus.Counter
	powerOns     prometheus.Counter
	powered      prometheus.Gauge
	temperature  prometheus.Gauge
	od           prometheus.Gauge
	actuators    *prometheus.GaugeVec
	tickDuration prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "control",
				Name:      "faults_total",
				Help:      "Faults observed by the control loop.",
			},
			[]string{"kind", "source"},
		),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "control",
			Name:      "ticks_total",
			Help:      "Running control ticks.",
		}),
		powerOns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "control",
			Name:      "power_on_total",
			Help:      "Idle to running transitions.",
		}),
		powered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "control",
			Name:      "powered",
			Help:      "1 while the loop is running.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "culture",
			Name:      "temperature_celsius",
			Help:      "Culture temperature.",
		}),
		od: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "culture",
			Name:      "optical_density",
			Help:      "Estimated optical density.",
		}),
		actuators: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "actuator",
				Name:      "power_percent",
				Help:      "Commanded actuator power.",
			},
			[]string{"target"},
		),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "control",
			Name:      "tick_duration_seconds",
			Help:      "Time spent in a running tick.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25},
		}),
	}

	m.registry.MustRegister(m.faults, m.ticks, m.powerOns, m.powered, m.temperature, m.od, m.actuators, m.tickDuration)
	return m
}

// Registry exposes the collectors for scraping or inspection.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordFault(kind, source string) {
	m.faults.WithLabelValues(kind, source).Inc()
}

func (m *Metrics) RecordTick(t Tick) {
	m.ticks.Inc()
	m.temperature.Set(t.Temperature)
	m.od.Set(t.OD)
	m.actuators.WithLabelValues("heater").Set(t.Heater)
	m.actuators.WithLabelValues("stir").Set(t.Stir)
	m.actuators.WithLabelValues("pump").Set(t.Pump)
	m.tickDuration.Observe(t.Duration.Seconds())
}

func (m *Metrics) SetPowered(on bool) {
	if on {
		m.powerOns.Inc()
		m.powered.Set(1)
		return
	}
	m.powered.Set(0)
	m.actuators.WithLabelValues("heater").Set(0)
	m.actuators.WithLabelValues("stir").Set(0)
	m.actuators.WithLabelValues("pump").Set(0)
}

// Faults returns fault totals by kind.
func (m *Metrics) Faults() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	totals := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != namespace+"_control_faults_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			totals[labelValue(metric, "kind")] += metric.GetCounter().GetValue()
		}
	}
	return totals, nil
}

// FaultCount returns the total number of faults.
func (m *Metrics) FaultCount() float64 {
	totals, err := m.Faults()
	if err != nil {
		return 0
	}
	var sum float64
	for _, v := range totals {
		sum += v
	}
	return sum
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
