package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.FileCacheLookup(true)
	m.FileCacheLookup(false)
	m.FileCacheLookup(false)
	m.AIRequest("groq", "ok")
	m.QuizCompleted("good")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fileCache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fileCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aiRequests.WithLabelValues("groq", "ok")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "examprep_quizzes_completed_total")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FileCacheLookup(true)
		m.CourseCacheLookup(false)
		m.BranchFailed("file")
		m.AIRequest("gemini", "error")
		m.QuizCompleted("perfect")
	})
}
