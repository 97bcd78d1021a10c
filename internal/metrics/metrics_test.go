package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveEngine(t *testing.T) {
	m := New(nil)
	m.ObserveEngine("audit-methods", "search", time.Now(), nil)
	m.ObserveEngine("audit-methods", "search", time.Now(), errors.New("boom"))
	m.ObserveEngine("audit-methods", "search", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EngineRequestsTotal.WithLabelValues("audit-methods", "search", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EngineRequestsTotal.WithLabelValues("audit-methods", "search", "error")))
}

func TestObserveIngest_IgnoresEmptyBatches(t *testing.T) {
	m := New(nil)
	m.ObserveIngest("method", "indexed", 0)
	m.ObserveIngest("method", "indexed", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.IngestRecordsTotal.WithLabelValues("method", "indexed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEngine("i", "search", time.Now(), nil)
		m.ObserveIngest("request", "failed", 1)
		m.ObserveHTTP("GET", "/x", 200)
	})
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.ObserveHTTP("GET", "/api/audit/methods/search", 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `auditlens_http_requests_total{method="GET",route="/api/audit/methods/search",status="200"} 1`)
}
