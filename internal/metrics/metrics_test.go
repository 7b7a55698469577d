package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCountsOutcomes(t *testing.T) {
	m := New()
	m.Observe(context.Background(), "get", true, time.Millisecond)
	m.Observe(context.Background(), "get", false, time.Millisecond)
	m.Observe(context.Background(), "get", false, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("get", OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("get", OutcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.opDuration))
}

func TestSetRecordCount(t *testing.T) {
	m := New()
	m.SetRecordCount(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.records))
	m.SetRecordCount(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.records))
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	m := New()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	h := m.Middleware(func(r *http.Request) string {
		if strings.HasPrefix(r.URL.Path, "/minerals/") {
			return "/minerals/{id}"
		}
		return "unmatched"
	}, next)

	for _, path := range []string{"/minerals/1", "/minerals/2", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/minerals/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "unmatched", "404")))
}

func TestHandlerExposesSeries(t *testing.T) {
	m := New()
	m.SetRecordCount(2)
	m.Observe(context.Background(), "list", true, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "mineralcatalog_records 2")
	assert.Contains(t, body, `mineralcatalog_operations_total{operation="list",outcome="success"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestNewUsesIsolatedRegistries(t *testing.T) {
	a, b := New(), New()
	a.SetRecordCount(3)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.records))
}

func TestStatusWriterKeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := NewStatusWriter(rec)
	assert.Equal(t, http.StatusOK, sw.Status())
	sw.WriteHeader(http.StatusAccepted)
	sw.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusAccepted, sw.Status())
	sw.Flush()
	assert.True(t, rec.Flushed)
}
