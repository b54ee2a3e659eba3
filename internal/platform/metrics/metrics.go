// Package metrics exposes Prometheus instrumentation for the twin API:
// request counters and latencies, timeline append outcomes, and upstream
// provider call results.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twin_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "twin_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route"})

	eventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twin_events_appended_total",
		Help: "Timeline events appended by event type",
	}, []string{"event_type"})

	eventAppendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twin_event_append_failures_total",
		Help: "Timeline append failures by event type, including partial writer failures",
	}, []string{"event_type"})

	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twin_upstream_requests_total",
		Help: "External provider calls by service and outcome",
	}, []string{"service", "outcome"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "twin_upstream_request_duration_seconds",
		Help:    "External provider call latency by service",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	}, []string{"service"})
)

// EventAppended records a successful timeline append.
func EventAppended(eventType string) {
	eventsAppended.WithLabelValues(eventType).Inc()
}

// EventAppendFailed records a failed timeline append.
func EventAppendFailed(eventType string) {
	eventAppendFailures.WithLabelValues(eventType).Inc()
}

// ObserveUpstream records one external provider call.
func ObserveUpstream(service string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	upstreamRequests.WithLabelValues(service, outcome).Inc()
	upstreamLatency.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

// Middleware instruments every request with count and latency, labeled by the
// matched route pattern so cardinality stays bounded.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			httpRequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the Prometheus text exposition endpoint.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
