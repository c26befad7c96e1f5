// Package metrics holds the Prometheus collectors for exam sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors the session layer reports to.
type Metrics struct {
	SessionsStarted  *prometheus.CounterVec
	SessionsFinished *prometheus.CounterVec
	PersistFailures  prometheus.Counter
	CheckpointSaves  *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	ScoringDuration  prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coduxa",
			Name:      "sessions_started_total",
			Help:      "Exam sessions started, by origin (new or resumed).",
		}, []string{"origin"}),
		SessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coduxa",
			Name:      "sessions_finished_total",
			Help:      "Exam sessions that reached a terminal state.",
		}, []string{"status", "passed"}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coduxa",
			Name:      "result_persist_failures_total",
			Help:      "Scored results that could not be written to the database.",
		}),
		CheckpointSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coduxa",
			Name:      "checkpoint_saves_total",
			Help:      "Session checkpoint writes, by outcome.",
		}, []string{"outcome"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coduxa",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}),
		ScoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coduxa",
			Name:      "scoring_duration_seconds",
			Help:      "Time spent scoring a submission, including code execution.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.SessionsStarted,
		m.SessionsFinished,
		m.PersistFailures,
		m.CheckpointSaves,
		m.ActiveSessions,
		m.ScoringDuration,
	)
	return m
}

// Outcome label values for CheckpointSaves.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Nop returns collectors registered nowhere, for tests and tools.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
