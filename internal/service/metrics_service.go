package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

// Transition metric results.
const (
	TransitionResultOK       = "ok"
	TransitionResultRejected = "rejected"
	TransitionResultConflict = "conflict"
	TransitionResultError    = "error"
)

// MetricsService encapsulates Prometheus instrumentation for the workflow API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	comments        *prometheus.CounterVec
	aiTasks         *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "syllabus_transitions_total",
		Help: "Lifecycle transition attempts by action and result",
	}, []string{"action", "result"})

	comments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "review_comments_total",
		Help: "Review comments appended by kind",
	}, []string{"kind"})

	aiTasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_tasks_total",
		Help: "AI task state changes by kind and status",
	}, []string{"kind", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, transitions, comments, aiTasks, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		transitions:     transitions,
		comments:        comments,
		aiTasks:         aiTasks,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordTransition counts a lifecycle transition attempt.
func (m *MetricsService) RecordTransition(action models.SyllabusAction, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(action), result).Inc()
}

// RecordComment counts an appended review comment.
func (m *MetricsService) RecordComment(kind models.CommentKind) {
	if m == nil {
		return
	}
	m.comments.WithLabelValues(string(kind)).Inc()
}

// RecordAITask counts an AI task reaching a status.
func (m *MetricsService) RecordAITask(kind models.AITaskKind, status models.AITaskStatus) {
	if m == nil {
		return
	}
	m.aiTasks.WithLabelValues(string(kind), string(status)).Inc()
}
