// Package metrics expone contadores Prometheus del motor de acceso y del ciclo de vida.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/Prospectos-api/internal/application/ports"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

var _ ports.Metrics = (*Metrics)(nil)

// Metrics colectores registrados en un Registry propio.
type Metrics struct {
	AccessDecisionsTotal *prometheus.CounterVec
	TransitionsTotal     *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New crea y registra los colectores.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		AccessDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospectos_access_decisions_total",
				Help: "Decisiones del guard de acceso por estado",
			},
			[]string{"state", "from_cache"},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospectos_lead_transitions_total",
				Help: "Solicitudes de cambio de estado de prospectos por destino y resultado",
			},
			[]string{"to", "outcome", "forced"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospectos_http_requests_total",
				Help: "Peticiones HTTP atendidas",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prospectos_http_request_duration_seconds",
				Help:    "Duración de las peticiones HTTP en segundos",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	registry.MustRegister(
		m.AccessDecisionsTotal,
		m.TransitionsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

func (m *Metrics) ObserveDecision(state entity.GuardState, fromCache bool) {
	m.AccessDecisionsTotal.WithLabelValues(string(state), strconv.FormatBool(fromCache)).Inc()
}

func (m *Metrics) ObserveTransition(to entity.LeadStatus, outcome string, forced bool) {
	m.TransitionsTotal.WithLabelValues(string(to), outcome, strconv.FormatBool(forced)).Inc()
}

// ObserveHTTP registra una petición. route es la plantilla de ruta, no la URL concreta.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
