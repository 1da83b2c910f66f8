package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
	"github.com/noah-isme/smd-syllabus-api/pkg/jobs"
)

type aiTaskStoreStub struct {
	tasks   map[string]models.AITask
	saves   []models.AITaskStatus
	ttl     time.Duration
	saveErr error
}

func newAITaskStoreStub() *aiTaskStoreStub {
	return &aiTaskStoreStub{tasks: make(map[string]models.AITask)}
}

func (s *aiTaskStoreStub) Get(ctx context.Context, taskID string) (*models.AITask, error) {
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	return &task, nil
}

func (s *aiTaskStoreStub) Save(ctx context.Context, task *models.AITask, ttl time.Duration) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.tasks[task.TaskID] = *task
	s.saves = append(s.saves, task.Status)
	s.ttl = ttl
	return nil
}

type dispatcherStub struct {
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type analyzerFunc func(ctx context.Context, kind models.AITaskKind, params models.AITaskParams) (json.RawMessage, error)

func (f analyzerFunc) Analyze(ctx context.Context, kind models.AITaskKind, params models.AITaskParams) (json.RawMessage, error) {
	return f(ctx, kind, params)
}

func newAITasks(enabled bool) (*AITaskService, *aiTaskStoreStub, *dispatcherStub) {
	store := newAITaskStoreStub()
	queue := &dispatcherStub{}
	svc := NewAITaskService(store, queue, nil, NewMetricsService(), nil, AITaskConfig{Enabled: enabled, TaskTTL: time.Hour})
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "task-1" }
	return svc, store, queue
}

func TestStartJobQueuesTask(t *testing.T) {
	svc, store, queue := newAITasks(true)

	resp, err := svc.StartJob(context.Background(), owner, dto.StartAITaskRequest{
		Kind:   models.AITaskKindCLOPLOCheck,
		Params: models.AITaskParams{SyllabusID: " syl-1 ", CurriculumID: "cur-1", SubjectID: "ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, models.AITaskStatusQueued, resp.Status)

	stored := store.tasks["task-1"]
	assert.Equal(t, "syl-1", stored.Params.SyllabusID)
	assert.Equal(t, "cur-1", stored.Params.CurriculumID)
	assert.Empty(t, stored.Params.SubjectID)
	assert.Equal(t, owner.UserID, stored.CreatedBy)
	assert.Equal(t, time.Hour, store.ttl)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, jobs.Job{ID: "task-1", Type: AITaskJobType}, queue.jobs[0])
}

func TestStartJobValidatesParamsPerKind(t *testing.T) {
	svc, store, _ := newAITasks(true)

	cases := []dto.StartAITaskRequest{
		{Kind: models.AITaskKindSummarize},
		{Kind: models.AITaskKindCLOPLOCheck, Params: models.AITaskParams{CurriculumID: "cur-1"}},
		{Kind: models.AITaskKindVersionCompare, Params: models.AITaskParams{OldVersionID: "v1", NewVersionID: "v2"}},
		{Kind: models.AITaskKindVersionCompare, Params: models.AITaskParams{OldVersionID: "v1", NewVersionID: "v1", SubjectID: "s"}},
		{Kind: "TRANSLATE", Params: models.AITaskParams{SyllabusID: "syl-1"}},
	}
	for _, req := range cases {
		_, err := svc.StartJob(context.Background(), owner, req)
		require.ErrorIs(t, err, appErrors.ErrValidation, "kind %s", req.Kind)
	}
	assert.Empty(t, store.tasks)

	_, err := svc.StartJob(context.Background(), student, dto.StartAITaskRequest{
		Kind:   models.AITaskKindVersionCompare,
		Params: models.AITaskParams{OldVersionID: "v1", NewVersionID: "v2", SubjectID: "s"},
	})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.StartJob(context.Background(), owner, dto.StartAITaskRequest{
		Kind:   models.AITaskKindVersionCompare,
		Params: models.AITaskParams{OldVersionID: "v1", NewVersionID: "v2", SubjectID: "s", SyllabusID: "dropped"},
	})
	require.NoError(t, err)
	assert.Empty(t, store.tasks["task-1"].Params.SyllabusID)
}

func TestStartJobDisabled(t *testing.T) {
	svc, _, queue := newAITasks(false)
	_, err := svc.StartJob(context.Background(), owner, dto.StartAITaskRequest{Kind: models.AITaskKindSummarize, Params: models.AITaskParams{SyllabusID: "syl-1"}})
	require.ErrorIs(t, err, appErrors.ErrInvalidState)
	assert.Empty(t, queue.jobs)
}

func TestStartJobMarksFailedWhenQueueRejects(t *testing.T) {
	svc, store, queue := newAITasks(true)
	queue.err = errors.New("queue stopped")

	_, err := svc.StartJob(context.Background(), owner, dto.StartAITaskRequest{Kind: models.AITaskKindSummarize, Params: models.AITaskParams{SyllabusID: "syl-1"}})
	require.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, models.AITaskStatusFailed, store.tasks["task-1"].Status)
	assert.Equal(t, []models.AITaskStatus{models.AITaskStatusQueued, models.AITaskStatusFailed}, store.saves)
}

func TestGetStatus(t *testing.T) {
	svc, store, _ := newAITasks(true)
	store.tasks["task-1"] = models.AITask{
		TaskID:    "task-1",
		Status:    models.AITaskStatusSuccess,
		Progress:  100,
		Result:    json.RawMessage(`{"score":0.8}`),
		CreatedBy: owner.UserID,
	}

	resp, err := svc.GetStatus(context.Background(), owner, "task-1")
	require.NoError(t, err)
	assert.Equal(t, models.AITaskStatusSuccess, resp.Status)
	assert.JSONEq(t, `{"score":0.8}`, string(resp.Result))

	resp, err = svc.GetStatus(context.Background(), admin, "task-1")
	require.NoError(t, err)
	assert.Equal(t, models.AITaskStatusSuccess, resp.Status)

	resp, err = svc.GetStatus(context.Background(), otherLect, "task-1")
	require.NoError(t, err)
	assert.Equal(t, models.AITaskStatusNotFound, resp.Status)
	assert.Nil(t, resp.Result)

	resp, err = svc.GetStatus(context.Background(), owner, "expired")
	require.NoError(t, err)
	assert.Equal(t, models.AITaskStatusNotFound, resp.Status)
	assert.Equal(t, "expired", resp.TaskID)
}

func TestWorkerHandleSuccess(t *testing.T) {
	store := newAITaskStoreStub()
	store.tasks["task-1"] = models.AITask{TaskID: "task-1", Kind: models.AITaskKindSummarize, Status: models.AITaskStatusQueued, Params: models.AITaskParams{SyllabusID: "syl-1"}}
	var seen models.AITaskStatus
	analyzer := analyzerFunc(func(ctx context.Context, kind models.AITaskKind, params models.AITaskParams) (json.RawMessage, error) {
		seen = store.tasks["task-1"].Status
		assert.Equal(t, "syl-1", params.SyllabusID)
		return json.RawMessage(`{"summary":"ok"}`), nil
	})
	worker := NewAITaskWorker(store, analyzer, NewMetricsService(), nil, time.Hour)

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "task-1", Type: AITaskJobType}))
	assert.Equal(t, models.AITaskStatusProcessing, seen)
	task := store.tasks["task-1"]
	assert.Equal(t, models.AITaskStatusSuccess, task.Status)
	assert.Equal(t, 100, task.Progress)
	assert.JSONEq(t, `{"summary":"ok"}`, string(task.Result))
}

func TestWorkerHandleFailureIsPermanentAndTerminal(t *testing.T) {
	store := newAITaskStoreStub()
	store.tasks["task-1"] = models.AITask{TaskID: "task-1", Kind: models.AITaskKindCLOPLOCheck, Status: models.AITaskStatusQueued}
	calls := 0
	analyzer := analyzerFunc(func(ctx context.Context, kind models.AITaskKind, params models.AITaskParams) (json.RawMessage, error) {
		calls++
		return nil, errors.New("model unavailable")
	})
	worker := NewAITaskWorker(store, analyzer, nil, nil, time.Hour)

	err := worker.Handle(context.Background(), jobs.Job{ID: "task-1"})
	require.Error(t, err)
	assert.True(t, jobs.IsPermanent(err))
	assert.Equal(t, models.AITaskStatusFailed, store.tasks["task-1"].Status)
	assert.Equal(t, "model unavailable", store.tasks["task-1"].Error)

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "task-1"}))
	assert.Equal(t, 1, calls, "terminal tasks are never re-run")
	assert.Equal(t, models.AITaskStatusFailed, store.tasks["task-1"].Status)
}

func TestWorkerHandleExpiredTask(t *testing.T) {
	worker := NewAITaskWorker(newAITaskStoreStub(), analyzerFunc(func(ctx context.Context, kind models.AITaskKind, params models.AITaskParams) (json.RawMessage, error) {
		t.Fatal("analyzer must not run")
		return nil, nil
	}), nil, nil, 0)
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "gone"}))
}

func TestHTTPAnalyzer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, analyzePath, r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		var req analyzeRequest
		require.NoError(t, json.Unmarshal(body, &req))
		if req.AnalysisType == models.AITaskKindSummarize {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("overloaded"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"kind":"` + string(req.AnalysisType) + `","syllabus":"` + req.Params.SyllabusID + `"}`))
	}))
	defer server.Close()

	analyzer := NewHTTPAnalyzer(server.URL, time.Second)
	result, err := analyzer.Analyze(context.Background(), models.AITaskKindCLOPLOCheck, models.AITaskParams{SyllabusID: "syl-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"CLO_PLO_CHECK","syllabus":"syl-1"}`, string(result))

	_, err = analyzer.Analyze(context.Background(), models.AITaskKindSummarize, models.AITaskParams{SyllabusID: "syl-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}
