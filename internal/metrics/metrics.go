// Package metrics exposes Prometheus counters for the aggregation pipeline
// and the AI backends.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	reg *prometheus.Registry

	fileCache   *prometheus.CounterVec
	courseCache *prometheus.CounterVec
	branchFails *prometheus.CounterVec
	aiRequests  *prometheus.CounterVec
	quizzes     *prometheus.CounterVec
}

// New creates a registry with process and Go runtime collectors plus the
// examprep counters.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		fileCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "examprep",
			Name:      "file_cache_lookups_total",
			Help:      "File-text cache lookups by result.",
		}, []string{"result"}),
		courseCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "examprep",
			Name:      "course_cache_lookups_total",
			Help:      "Course-content cache lookups by result.",
		}, []string{"result"}),
		branchFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "examprep",
			Name:      "aggregation_failures_total",
			Help:      "Failed aggregation branches by kind.",
		}, []string{"branch"}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "examprep",
			Name:      "ai_requests_total",
			Help:      "AI generation calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		quizzes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "examprep",
			Name:      "quizzes_completed_total",
			Help:      "Completed quizzes by feedback tier.",
		}, []string{"tier"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.fileCache, m.courseCache, m.branchFails, m.aiRequests, m.quizzes,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func (m *Metrics) FileCacheLookup(hit bool) {
	if m == nil {
		return
	}
	m.fileCache.WithLabelValues(hitLabel(hit)).Inc()
}

func (m *Metrics) CourseCacheLookup(hit bool) {
	if m == nil {
		return
	}
	m.courseCache.WithLabelValues(hitLabel(hit)).Inc()
}

// BranchFailed counts one failed aggregation branch ("metadata" or "file").
func (m *Metrics) BranchFailed(branch string) {
	if m == nil {
		return
	}
	m.branchFails.WithLabelValues(branch).Inc()
}

// AIRequest counts one provider call; outcome is "ok" or "error".
func (m *Metrics) AIRequest(provider, outcome string) {
	if m == nil {
		return
	}
	m.aiRequests.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) QuizCompleted(tier string) {
	if m == nil {
		return
	}
	m.quizzes.WithLabelValues(tier).Inc()
}
