package service

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/plan", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/plan", http.StatusOK, 40*time.Millisecond)
	m.ObservePlan(2*time.Millisecond, []string{"DEADLINE_PASSED", "EXCEEDS_DAILY_CAPACITY"})
	m.RecordCacheOperation(true, time.Millisecond)

	snapshot := m.Snapshot()
	assert.Equal(t, uint64(2), snapshot.RequestsTotal)
	assert.InDelta(t, 30.0, snapshot.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(1), snapshot.PlansGenerated)
	assert.InDelta(t, 2.0, snapshot.AveragePlanDurationMs, 0.001)
	assert.Equal(t, uint64(2), snapshot.UnscheduledTasks)
	assert.Equal(t, 1.0, snapshot.CacheHitRatio)
	assert.Positive(t, snapshot.Goroutines)
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObservePlan(time.Millisecond, []string{"EXCEEDS_DAILY_CAPACITY"})
	m.RecordEnrollmentDecision("allowed")
	m.RecordWarmup(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `planner_unscheduled_tasks_total{reason="EXCEEDS_DAILY_CAPACITY"} 1`)
	assert.Contains(t, text, `planner_enrollment_decisions_total{outcome="allowed"} 1`)
	assert.Contains(t, text, `planner_warmup_jobs_total{result="failure"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObservePlan(time.Millisecond, nil)
	assert.Equal(t, uint64(0), m.Snapshot().RequestsTotal)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
