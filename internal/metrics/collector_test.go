package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serroba/sports-gateway/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Run("counts requests by endpoint status and cache outcome", func(t *testing.T) {
		c := metrics.NewCollector()

		c.ObserveRequest("list-leagues", 200, true, 5*time.Millisecond)
		c.ObserveRequest("list-leagues", 200, true, 7*time.Millisecond)
		c.ObserveRequest("list-leagues", 200, false, 90*time.Millisecond)
		c.ObserveRequest("get-team", 404, false, time.Millisecond)

		assert.InDelta(t, 2, testutil.ToFloat64(c.Requests().WithLabelValues("list-leagues", "200", "hit")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(c.Requests().WithLabelValues("list-leagues", "200", "miss")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(c.Requests().WithLabelValues("get-team", "404", "miss")), 0)
	})

	t.Run("counts rejections", func(t *testing.T) {
		c := metrics.NewCollector()

		c.RateLimited()
		c.RateLimited()
		c.AuthRejected("quota_exhausted")

		assert.InDelta(t, 2, testutil.ToFloat64(c.RateLimitedCounter()), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(c.AuthRejections().WithLabelValues("quota_exhausted")), 0)
		assert.InDelta(t, 0, testutil.ToFloat64(c.AuthRejections().WithLabelValues("invalid_credential")), 0)
	})

	t.Run("serves the exposition format", func(t *testing.T) {
		c := metrics.NewCollector()
		c.TelemetryDropped()

		w := httptest.NewRecorder()
		c.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

		body, err := io.ReadAll(w.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "gateway_telemetry_dropped_total 1")
		assert.Contains(t, string(body), "go_goroutines")
	})
}
