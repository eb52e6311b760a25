// Package metrics exposes Prometheus collectors for the HTTP layer, the
// availability engine and the reservation writer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "site_reservation"

// Metrics groups every collector.  All methods are safe on a nil *Metrics
// so services can run without instrumentation in tests.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	availability  *prometheus.HistogramVec
	slotsReturned *prometheus.HistogramVec
	reservations  *prometheus.CounterVec
	registrations *prometheus.CounterVec
	events        *prometheus.CounterVec
}

// New registers the collectors on reg.  Passing a fresh
// prometheus.NewRegistry() keeps tests isolated.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		availability: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "availability_compute_seconds",
			Help:      "Time spent loading bookings and generating slots.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"mode"}),
		slotsReturned: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "availability_slots_returned",
			Help:      "Number of slots returned per availability query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}, []string{"mode"}),
		reservations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_writes_total",
			Help:      "Reservation create/delete attempts by outcome.",
		}, []string{"op", "outcome"}),
		registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "course_registrations_total",
			Help:      "Course registration attempts by outcome.",
		}, []string{"outcome"}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_events_total",
			Help:      "Reservation events published or consumed.",
		}, []string{"direction", "type", "result"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveAvailability records one generator run.
func (m *Metrics) ObserveAvailability(mode string, took time.Duration, slots int) {
	if m == nil {
		return
	}
	m.availability.WithLabelValues(mode).Observe(took.Seconds())
	m.slotsReturned.WithLabelValues(mode).Observe(float64(slots))
}

// ReservationOutcome counts a create or delete attempt.
func (m *Metrics) ReservationOutcome(op, outcome string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(op, outcome).Inc()
}

// RegistrationOutcome counts a course registration attempt.
func (m *Metrics) RegistrationOutcome(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

// EventOutcome counts a published or consumed reservation event.
func (m *Metrics) EventOutcome(direction, eventType, result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(direction, eventType, result).Inc()
}

// Middleware records request counts and latency keyed by the matched
// route template rather than the raw path.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
