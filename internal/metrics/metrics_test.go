package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("/health", "GET", "200"))
	ObserveRequest("/health", "GET", http.StatusOK, 3*time.Millisecond)
	ObserveRequest("/health", "GET", http.StatusOK, 4*time.Millisecond)
	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("/health", "GET", "200"))
	assert.Equal(t, before+2, after)
}

func TestSetActive(t *testing.T) {
	SetActive(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(ActiveFast))
	SetActive(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(ActiveFast))
}

func TestObserveDayCache(t *testing.T) {
	hits := testutil.ToFloat64(DayCacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(DayCacheLookups.WithLabelValues("miss"))
	ObserveDayCache(true)
	ObserveDayCache(false)
	ObserveDayCache(false)
	assert.Equal(t, hits+1, testutil.ToFloat64(DayCacheLookups.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(DayCacheLookups.WithLabelValues("miss")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	FastsStarted.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "fastline_fasts_started_total")
	assert.Contains(t, string(body), "fastline_active_fast")
}
