// Package metrics collects and exposes Prometheus metrics for the booking service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector is what services and middleware record into.
type MetricsCollector interface {
	RecordBooking(operation, outcome string)
	RecordPartialFailure(operation, step string)
	RecordCalendarDegradation(operation string)
	RecordNotificationPublish(ok bool)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

type Collector struct {
	bookings          *prometheus.CounterVec
	partialFailures   *prometheus.CounterVec
	calendarDegraded  *prometheus.CounterVec
	notificationsSent *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	requestLatency    prometheus.Histogram
}

// NewCollector builds a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookings_operations_total",
			Help: "Booking orchestrator operations by outcome",
		}, []string{"operation", "outcome"}),
		partialFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookings_partial_failures_total",
			Help: "Multi-entity writes that failed after committing earlier steps",
		}, []string{"operation", "step"}),
		calendarDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookings_calendar_degraded_total",
			Help: "External calendar calls answered with a fallback after an auth failure",
		}, []string{"operation"}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookings_notification_publish_total",
			Help: "Notification fan-out publishes by result",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookings_http_status_total",
			Help: "HTTP responses by status code",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookings_http_request_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.bookings,
		c.partialFailures,
		c.calendarDegraded,
		c.notificationsSent,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

func (c *Collector) RecordBooking(operation, outcome string) {
	c.bookings.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) RecordPartialFailure(operation, step string) {
	c.partialFailures.WithLabelValues(operation, step).Inc()
}

func (c *Collector) RecordCalendarDegradation(operation string) {
	c.calendarDegraded.WithLabelValues(operation).Inc()
}

func (c *Collector) RecordNotificationPublish(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.notificationsSent.WithLabelValues(result).Inc()
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Nop discards everything. Used where no registry is wired, mostly tests.
type Nop struct{}

func (Nop) RecordBooking(string, string)        {}
func (Nop) RecordPartialFailure(string, string) {}
func (Nop) RecordCalendarDegradation(string)    {}
func (Nop) RecordNotificationPublish(bool)      {}
func (Nop) RecordHTTPStatus(int)                {}
func (Nop) RecordRequestLatency(time.Duration)  {}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
