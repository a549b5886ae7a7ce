// Package metrics собирает метрики Prometheus сервиса маркетплейса.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics хранит коллекторы сервиса в собственном реестре.
type Metrics struct {
	registry *prometheus.Registry

	actions       *prometheus.CounterVec
	stepsFailed   *prometheus.CounterVec
	compensations prometheus.Counter
	reconciled    prometheus.Counter
	requests      *prometheus.HistogramVec
}

// New создаёт и регистрирует коллекторы.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_actions_total",
			Help: "Processed marketplace actions by result code.",
		}, []string{"action", "result"}),
		stepsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_checkout_steps_failed_total",
			Help: "Non-critical checkout steps that failed and were skipped.",
		}, []string{"step"}),
		compensations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_checkout_compensations_total",
			Help: "Checkouts rolled back by compensating actions.",
		}),
		reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_reconciled_total",
			Help: "Orders repaired by the background reconciler.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketplace_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	m.registry.MustRegister(
		m.actions,
		m.stepsFailed,
		m.compensations,
		m.reconciled,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ActionHandled учитывает обработанное действие. result: код ошибки или "ok".
func (m *Metrics) ActionHandled(action, result string) {
	m.actions.WithLabelValues(action, result).Inc()
}

// CheckoutStepFailed учитывает пропущенный некритичный шаг оформления.
func (m *Metrics) CheckoutStepFailed(step string) {
	m.stepsFailed.WithLabelValues(step).Inc()
}

// CheckoutCompensated учитывает откат оформления.
func (m *Metrics) CheckoutCompensated() {
	m.compensations.Inc()
}

// PointsReconciled учитывает заказы, исправленные сверкой.
func (m *Metrics) PointsReconciled(n int) {
	m.reconciled.Add(float64(n))
}

// ObserveRequest учитывает длительность HTTP-запроса.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}
