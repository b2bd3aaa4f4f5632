package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveJob(t *testing.T) {
	before := testutil.ToFloat64(JobRuns.WithLabelValues("sync_room_status", "failure"))
	ObserveJob("sync_room_status", errors.New("boom"), time.Second)
	after := testutil.ToFloat64(JobRuns.WithLabelValues("sync_room_status", "failure"))
	assert.Equal(t, before+1, after)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	ObserveRequest("GET", "/api/v1/bookings", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `maisha_http_requests_total{method="GET",route="/api/v1/bookings",status="200"}`)
}
