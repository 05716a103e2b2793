// ABOUTME: Prometheus instrumentation for commands, deliveries and active jobs
// ABOUTME: A nil *Metrics is valid and records nothing

// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "phrasebot"

// Command outcome labels.
const (
	OutcomeOK           = "ok"
	OutcomeInvalidInput = "invalid_input"
	OutcomeFailed       = "failed"
)

// Metrics groups the collectors. Each instance owns its registry so tests can
// build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	commandsTotal     *prometheus.CounterVec
	phrasesDelivered  prometheus.Counter
	deliveryFailures  prometheus.Counter
	activeJobs        prometheus.Gauge
	persistenceErrors *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled, by command and outcome",
		},
		[]string{"command", "outcome"},
	)
	m.phrasesDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "phrases_delivered_total",
		Help:      "Phrases successfully handed to the delivery channel",
	})
	m.deliveryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_failures_total",
		Help:      "Ticks whose phrase was dropped because delivery failed",
	})
	m.activeJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_jobs",
		Help:      "Conversations with a running delivery job",
	})
	m.persistenceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "State load/save failures, by operation",
		},
		[]string{"op"},
	)

	m.registry.MustRegister(
		m.commandsTotal,
		m.phrasesDelivered,
		m.deliveryFailures,
		m.activeJobs,
		m.persistenceErrors,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CommandHandled counts one handled command.
func (m *Metrics) CommandHandled(command, outcome string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command, outcome).Inc()
}

// PhraseDelivered counts one delivered phrase.
func (m *Metrics) PhraseDelivered() {
	if m == nil {
		return
	}
	m.phrasesDelivered.Inc()
}

// DeliveryFailed counts one dropped phrase.
func (m *Metrics) DeliveryFailed() {
	if m == nil {
		return
	}
	m.deliveryFailures.Inc()
}

// SetActiveJobs records the number of running jobs.
func (m *Metrics) SetActiveJobs(n int) {
	if m == nil {
		return
	}
	m.activeJobs.Set(float64(n))
}

// PersistenceFailed counts one failed load or save.
func (m *Metrics) PersistenceFailed(op string) {
	if m == nil {
		return
	}
	m.persistenceErrors.WithLabelValues(op).Inc()
}
