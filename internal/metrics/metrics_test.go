package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveRefresh(120*time.Millisecond, nil)
	m.ObserveRefresh(2*time.Second, errors.New("boom"))
	m.ObserveRequest("issuers", nil)
	m.ObserveRequest("issuers", nil)
	m.ObserveRequest("events", errors.New("timeout"))
	m.SetPanelRecords("scores", 50)
	m.StaleDiscarded()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshCycles.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshCycles.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.apiRequests.WithLabelValues("issuers", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRequests.WithLabelValues("events", "error")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.panelRecords.WithLabelValues("scores")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleDiscarded))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRefresh(time.Second, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `creditintel_refresh_cycles_total{outcome="ok"} 1`))
	assert.Contains(t, body, "creditintel_refresh_duration_seconds_bucket")
}
