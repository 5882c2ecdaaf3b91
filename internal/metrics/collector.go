// Package metrics exposes gateway counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the gateway's Prometheus metrics.
type Collector struct {
	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	rateLimited      prometheus.Counter
	authRejections   *prometheus.CounterVec
	telemetryDropped prometheus.Counter
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Authenticated requests by endpoint, status code and cache outcome.",
		}, []string{"endpoint", "status", "cache"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Latency of authenticated requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_auth_rejections_total",
			Help: "Requests rejected during authentication, by reason.",
		}, []string{"reason"}),
		telemetryDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_telemetry_dropped_total",
			Help: "Request events dropped because the telemetry queue was full.",
		}),
	}

	reg.MustRegister(c.requests, c.duration, c.rateLimited, c.authRejections, c.telemetryDropped)

	return c
}

// ObserveRequest records a served request.
func (c *Collector) ObserveRequest(endpoint string, status int, cacheHit bool, latency time.Duration) {
	cacheLabel := "miss"
	if cacheHit {
		cacheLabel = "hit"
	}

	c.requests.WithLabelValues(endpoint, strconv.Itoa(status), cacheLabel).Inc()
	c.duration.WithLabelValues(endpoint).Observe(latency.Seconds())
}

// RateLimited counts a throttled request.
func (c *Collector) RateLimited() {
	c.rateLimited.Inc()
}

// AuthRejected counts an authentication rejection.
func (c *Collector) AuthRejected(reason string) {
	c.authRejections.WithLabelValues(reason).Inc()
}

// TelemetryDropped counts a dropped request event.
func (c *Collector) TelemetryDropped() {
	c.telemetryDropped.Inc()
}

// Requests exposes the request counter for inspection.
func (c *Collector) Requests() *prometheus.CounterVec {
	return c.requests
}

// RateLimitedCounter exposes the rate limit counter for inspection.
func (c *Collector) RateLimitedCounter() prometheus.Counter {
	return c.rateLimited
}

// AuthRejections exposes the rejection counter for inspection.
func (c *Collector) AuthRejections() *prometheus.CounterVec {
	return c.authRejections
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
