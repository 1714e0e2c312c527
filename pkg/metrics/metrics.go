// Package metrics provides Prometheus instrumentation for the question
// answering session. A nil or disabled *Manager is a valid no-op recorder.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the registry and every collector docqa exports.
type Manager struct {
	registry *prometheus.Registry
	enabled  bool

	turns         *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	candidates    *prometheus.CounterVec
	historyTurns  prometheus.Gauge
}

// Config holds metrics configuration.
type Config struct {
	Enabled         bool
	DurationBuckets []float64
}

// DefaultConfig returns default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		DurationBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}
}

// NewManager creates a new metrics manager.
func NewManager(cfg Config) *Manager {
	if !cfg.Enabled {
		return &Manager{enabled: false}
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = DefaultConfig().DurationBuckets
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Manager{
		registry: registry,
		enabled:  true,
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docqa_turns_total",
				Help: "Conversation turns by outcome",
			},
			[]string{"outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docqa_stage_duration_seconds",
				Help:    "Duration of each turn stage in seconds",
				Buckets: cfg.DurationBuckets,
			},
			[]string{"stage"},
		),
		candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docqa_candidates_total",
				Help: "Retrieved candidates by relevance decision",
			},
			[]string{"decision"},
		),
		historyTurns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docqa_history_turns",
				Help: "Turns currently held in the conversation history, system turn included",
			},
		),
	}

	registry.MustRegister(m.turns, m.stageDuration, m.candidates, m.historyTurns)
	return m
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Manager) Handler() http.Handler {
	if !m.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, nil when disabled.
func (m *Manager) Registry() *prometheus.Registry {
	if !m.Enabled() {
		return nil
	}
	return m.registry
}

func (m *Manager) Enabled() bool {
	return m != nil && m.enabled
}

// RecordTurn counts a finished turn; outcome is "ok" or the failing stage.
func (m *Manager) RecordTurn(outcome string) {
	if !m.Enabled() {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long one stage of a turn took.
func (m *Manager) ObserveStage(stage string, d time.Duration) {
	if !m.Enabled() {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordCandidates counts kept and discarded candidates of one filter pass.
func (m *Manager) RecordCandidates(kept, discarded int) {
	if !m.Enabled() {
		return
	}
	m.candidates.WithLabelValues("kept").Add(float64(kept))
	m.candidates.WithLabelValues("discarded").Add(float64(discarded))
}

// SetHistoryTurns reports the current history length.
func (m *Manager) SetHistoryTurns(n int) {
	if !m.Enabled() {
		return
	}
	m.historyTurns.Set(float64(n))
}
