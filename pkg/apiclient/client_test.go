package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
	"github.com/noah-isme/smd-syllabus-api/pkg/taskpoll"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, body interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestTransitionSendsBearerAndDecodesData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/syllabi/syl-1/transitions", r.URL.Path)
		var req dto.TransitionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, models.ActionReject, req.Action)
		assert.Equal(t, "missing CLOs", req.Reason)
		writeEnvelope(t, w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{"id": "syl-1", "status": "REJECTED", "version": 1},
		})
	}))
	defer server.Close()

	client := New(server.URL+"/api/v1/", "tok")
	doc, err := client.Transition(context.Background(), "syl-1", dto.TransitionRequest{Action: models.ActionReject, Reason: "missing CLOs"})
	require.NoError(t, err)
	assert.Equal(t, models.SyllabusStatusRejected, doc.Status)
}

func TestErrorEnvelopeBecomesTypedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusConflict, map[string]interface{}{
			"error": map[string]interface{}{"code": "INVALID_TRANSITION", "message": "approve not allowed from DRAFT", "status": 409},
		})
	}))
	defer server.Close()

	_, err := New(server.URL, "").Transition(context.Background(), "syl-1", dto.TransitionRequest{Action: models.ActionApprove})
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	assert.Equal(t, "approve not allowed from DRAFT", err.Error())
}

func TestNonEnvelopeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL, "").ListComments(context.Background(), "syl-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
}

func TestFetchStatusDrivesPoller(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/tasks/task-1/status", r.URL.Path)
		calls++
		writeEnvelope(t, w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{"taskId": "task-1", "status": "SUCCESS", "progress": 100, "result": map[string]bool{"compliant": true}},
		})
	}))
	defer server.Close()

	client := New(server.URL, "tok")
	resp, err := client.FetchStatus(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, taskpoll.StatusSuccess, resp.Status)
	assert.JSONEq(t, `{"compliant":true}`, string(resp.Result))

	poller := taskpoll.New(client, taskpoll.Config{})
	poller.Watch("task-1")
	outcome, err := poller.Wait(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"compliant":true}`, string(outcome.Result))
	assert.Equal(t, 2, calls)
}
