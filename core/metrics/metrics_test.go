package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveUpdate("message", "ok", time.Millisecond)
	m.Delivery(true)
	m.Cleanup(1, 1)
	m.SetSessions(3)
	m.SendFailure("send.text", "timeout")
}

func TestCounters(t *testing.T) {
	m := New()
	m.Delivery(true)
	m.Delivery(true)
	m.Delivery(false)
	m.Cleanup(3, 1)
	m.ObserveUpdate("callback", "ok", 10*time.Millisecond)
	m.SendFailure("delete.input", "http_4xx")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.broadcastDelivered.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.broadcastDelivered.WithLabelValues("fail")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cleanupDeletes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cleanupDeletes.WithLabelValues("ignored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.updates.WithLabelValues("callback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sendFailures.WithLabelValues("delete.input", "http_4xx")))
}

func TestRouter(t *testing.T) {
	m := New()
	m.SetSessions(2)

	healthy := true
	h := Router(m, pingFunc(func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("db down")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "schoolbot_sessions 2")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
