// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/gesture_lock/internal/gyro"
	"github.com/relabs-tech/gesture_lock/internal/lock"
)

// Metrics counts transitions and decisions on its own registry.
type Metrics struct {
	reg         *prometheus.Registry
	decisions   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	scores      *prometheus.HistogramVec
	state       *prometheus.GaugeVec
}

// NewMetrics registers the lock collectors plus the Go runtime ones.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gesture_lock",
			Name:      "decisions_total",
			Help:      "Unlock decisions by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gesture_lock",
			Name:      "transitions_total",
			Help:      "State machine transitions.",
		}, []string{"from", "to"}),
		scores: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gesture_lock",
			Name:      "axis_score",
			Help:      "Per-axis DTW score of each attempt.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 12),
		}, []string{"axis"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gesture_lock",
			Name:      "state",
			Help:      "1 for the current state, 0 otherwise.",
		}, []string{"state"}),
	}
	m.reg.MustRegister(
		m.decisions,
		m.transitions,
		m.scores,
		m.state,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, s := range []lock.State{lock.Idle, lock.RecordKey, lock.EnterKey, lock.Process, lock.Retry} {
		m.state.WithLabelValues(s.String()).Set(0)
	}
	m.state.WithLabelValues(lock.Idle.String()).Set(1)
	return m
}

func (m *Metrics) OnTransition(from, to lock.State) {
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
	m.state.WithLabelValues(from.String()).Set(0)
	m.state.WithLabelValues(to.String()).Set(1)
}

func (m *Metrics) OnDecision(d lock.Decision) {
	switch {
	case d.Error != "":
		m.decisions.WithLabelValues("error").Inc()
		return
	case d.Unlocked:
		m.decisions.WithLabelValues("unlocked").Inc()
	default:
		m.decisions.WithLabelValues("denied").Inc()
	}
	for _, axis := range gyro.Axes {
		m.scores.WithLabelValues(axis.String()).Observe(d.Thresholds.Get(axis))
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
