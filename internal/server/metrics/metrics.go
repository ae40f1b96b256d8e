// Package metrics wires Prometheus instrumentation for the auth service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	LoginAttempts *prometheus.CounterVec
	TokensIssued  *prometheus.CounterVec
	ResetRequests *prometheus.CounterVec
}

// New creates a registry with process/go collectors plus the service counters.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authguard_login_attempts_total",
			Help: "Login attempts partitioned by result.",
		}, []string{"result"}),
		TokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authguard_tokens_issued_total",
			Help: "Issued token pairs partitioned by flow (login, refresh).",
		}, []string{"flow"}),
		ResetRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authguard_reset_requests_total",
			Help: "Password reset code requests partitioned by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.LoginAttempts, m.TokensIssued, m.ResetRequests)
	return m
}

// Handler returns the /metrics exposition handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
