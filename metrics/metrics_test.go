package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.RecordAnalysis("success")
	m.RecordAnalysis("success")
	m.RecordAnalysis("failed")
	m.RecordTrackerError("get_repository", "transport")
	m.RecordRepair("suggested_labels")
	m.ObserveLLMDuration(750 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `issuesense_analyses_total{status="success"} 2`)
	assert.Contains(t, body, `issuesense_analyses_total{status="failed"} 1`)
	assert.Contains(t, body, `issuesense_tracker_errors_total{kind="transport",op="get_repository"} 1`)
	assert.Contains(t, body, `issuesense_validation_repairs_total{field="suggested_labels"} 1`)
	assert.Contains(t, body, "issuesense_llm_request_seconds_count 1")
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	// Uninstrumented components call through a nil receiver.
	m.RecordAnalysis("success")
	m.RecordTrackerError("op", "kind")
	m.RecordRepair("field")
	m.ObserveLLMDuration(time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
