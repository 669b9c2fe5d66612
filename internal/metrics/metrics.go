// Package metrics — счётчики Prometheus для выпуска nonce и внутренних редиректов.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics держит собственный реестр, чтобы несколько экземпляров (тесты) не конфликтовали.
type Metrics struct {
	registry          *prometheus.Registry
	NonceOutcomes     *prometheus.CounterVec
	InternalRedirects *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		NonceOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cspnonce",
			Name:      "nonce_total",
			Help:      "CSP nonce decisions per request attempt, by outcome.",
		}, []string{"outcome"}),
		InternalRedirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cspnonce",
			Name:      "internal_redirects_total",
			Help:      "Internal re-dispatches of client requests, by reason.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(
		m.NonceOutcomes,
		m.InternalRedirects,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Nonce учитывает исход политики ("minted", "reused", ...).
func (m *Metrics) Nonce(outcome string) {
	m.NonceOutcomes.WithLabelValues(outcome).Inc()
}

// Redirect учитывает внутренний редирект по причине.
func (m *Metrics) Redirect(reason string) {
	m.InternalRedirects.WithLabelValues(reason).Inc()
}

// Handler отдаёт метрики в формате экспозиции Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
