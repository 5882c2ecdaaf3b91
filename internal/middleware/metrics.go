package middleware

import "time"

// Metrics receives gateway counters. *metrics.Collector implements it.
type Metrics interface {
	ObserveRequest(endpoint string, status int, cacheHit bool, latency time.Duration)
	RateLimited()
	AuthRejected(reason string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveRequest(string, int, bool, time.Duration) {}
func (NopMetrics) RateLimited()                                    {}
func (NopMetrics) AuthRejected(string)                             {}
