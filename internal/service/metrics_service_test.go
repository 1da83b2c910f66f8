package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordTransition(models.ActionApprove, TransitionResultOK)
	m.RecordTransition(models.ActionApprove, TransitionResultOK)
	m.RecordTransition(models.ActionReject, TransitionResultRejected)
	m.RecordComment(models.CommentKindCollaboratorNote)
	m.RecordAITask(models.AITaskKindSummarize, models.AITaskStatusSuccess)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/syllabi", http.StatusOK, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `syllabus_transitions_total{action="approve",result="ok"} 2`))
	assert.True(t, strings.Contains(body, `syllabus_transitions_total{action="reject",result="rejected"} 1`))
	assert.True(t, strings.Contains(body, `review_comments_total{kind="COLLABORATOR_NOTE"} 1`))
	assert.True(t, strings.Contains(body, `ai_tasks_total{kind="SUMMARIZE",status="SUCCESS"} 1`))
	assert.True(t, strings.Contains(body, `http_requests_total{method="GET",path="/api/v1/syllabi",status="200"} 1`))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordTransition(models.ActionSubmit, TransitionResultOK)
	m.RecordComment(models.CommentKindCollaboratorNote)
	m.RecordAITask(models.AITaskKindCLOPLOCheck, models.AITaskStatusQueued)
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
