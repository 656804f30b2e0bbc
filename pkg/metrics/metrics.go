// Package metrics define los colectores Prometheus del servicio.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ledger métricas del libro de movimientos y del pipeline de alertas.
type Ledger struct {
	mutations  *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	rejections *prometheus.CounterVec
	retries    *prometheus.CounterVec
	alerts     *prometheus.CounterVec
	deliveries *prometheus.CounterVec
}

// NewLedger crea y registra los colectores en reg (prometheus.DefaultRegisterer en producción).
func NewLedger(reg prometheus.Registerer) *Ledger {
	m := &Ledger{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_mutations_total",
				Help: "Mutaciones del libro de movimientos por operación y resultado",
			},
			[]string{"op", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_mutation_duration_seconds",
				Help:    "Duración de las mutaciones, lock y reintentos incluidos",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_invariant_rejections_total",
				Help: "Mutaciones rechazadas por regla de stock",
			},
			[]string{"op", "rule"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_retries_total",
				Help: "Reintentos por conflicto de concurrencia",
			},
			[]string{"op"},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_alerts_raised_total",
				Help: "Alertas de stock crítico emitidas",
			},
			[]string{"op"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_alert_deliveries_total",
				Help: "Resultado de la entrega de alertas por sink",
			},
			[]string{"sink", "outcome"},
		),
	}
	reg.MustRegister(m.mutations, m.latency, m.rejections, m.retries, m.alerts, m.deliveries)
	return m
}

func (m *Ledger) ObserveMutation(op, outcome string, elapsed time.Duration) {
	m.mutations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Ledger) IncRejection(op, rule string) { m.rejections.WithLabelValues(op, rule).Inc() }
func (m *Ledger) IncRetry(op string)           { m.retries.WithLabelValues(op).Inc() }
func (m *Ledger) IncAlert(op string)           { m.alerts.WithLabelValues(op).Inc() }

// ObserveDelivery implementa alert.DeliveryObserver.
func (m *Ledger) ObserveDelivery(sink, outcome string) {
	m.deliveries.WithLabelValues(sink, outcome).Inc()
}

// HTTP métricas de requests.
type HTTP struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewHTTP crea y registra los colectores HTTP.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	m := &HTTP{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total de requests HTTP",
			},
			[]string{"method", "route", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Latencia de requests HTTP",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(m.requests, m.latency)
	return m
}

// Observe registra un request terminado.
func (m *HTTP) Observe(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
