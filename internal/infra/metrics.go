package infra

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Window outcomes recorded by WindowsTotal.
const (
	OutcomeAccepted = "accepted"
	OutcomeRetried  = "retried"
	OutcomeFailed   = "failed"
	OutcomeEmpty    = "empty"
)

// Metrics is a per-run prometheus registry. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	StageDuration *prometheus.HistogramVec
	WindowsTotal  *prometheus.CounterVec
	Swings        prometheus.Gauge
	Levels        *prometheus.GaugeVec
	MemoHits      prometheus.Counter
}

// NewMetrics creates and registers the run metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "levelrecon_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"stage"},
		),
		WindowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levelrecon_windows_total",
				Help: "Lookback windows evaluated",
			},
			[]string{"outcome"}, // outcome: accepted|retried|failed|empty
		),
		Swings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "levelrecon_swings",
			Help: "Swing points detected in the accepted window",
		}),
		Levels: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "levelrecon_levels",
				Help: "Levels reported by type",
			},
			[]string{"type"},
		),
		MemoHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "levelrecon_memo_hits_total",
			Help: "Window analyses served from the memo",
		}),
	}
	m.Registry.MustRegister(m.StageDuration, m.WindowsTotal, m.Swings, m.Levels, m.MemoHits)
	return m
}

// ObserveStage records the time elapsed since start for stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Stage starts a timer; call the returned func when the stage ends.
func (m *Metrics) Stage(stage string) func() {
	start := time.Now()
	return func() { m.ObserveStage(stage, start) }
}

// Window counts one lookback window outcome.
func (m *Metrics) Window(outcome string) {
	if m == nil {
		return
	}
	m.WindowsTotal.WithLabelValues(outcome).Inc()
}

// SetSwings records the accepted swing count.
func (m *Metrics) SetSwings(n int) {
	if m == nil {
		return
	}
	m.Swings.Set(float64(n))
}

// SetLevels records the final level count per type.
func (m *Metrics) SetLevels(counts map[string]int) {
	if m == nil {
		return
	}
	for typ, n := range counts {
		m.Levels.WithLabelValues(typ).Set(float64(n))
	}
}

// MemoHit counts one memoized analysis.
func (m *Metrics) MemoHit() {
	if m == nil {
		return
	}
	m.MemoHits.Inc()
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
