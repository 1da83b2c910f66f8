package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
	"github.com/noah-isme/smd-syllabus-api/pkg/jobs"
)

// AITaskJobType is the jobs.Job type used for analysis work.
const AITaskJobType = "ai_task"

type aiTaskStore interface {
	Get(ctx context.Context, taskID string) (*models.AITask, error)
	Save(ctx context.Context, task *models.AITask, ttl time.Duration) error
}

type taskDispatcher interface {
	Enqueue(job jobs.Job) error
}

// Analyzer runs one analysis and returns its opaque JSON result.
type Analyzer interface {
	Analyze(ctx context.Context, kind models.AITaskKind, params models.AITaskParams) (json.RawMessage, error)
}

// AITaskConfig governs task storage.
type AITaskConfig struct {
	Enabled bool
	TaskTTL time.Duration
}

// AITaskService implements the start-job / get-status half of the polling protocol.
type AITaskService struct {
	store     aiTaskStore
	queue     taskDispatcher
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       AITaskConfig
	now       func() time.Time
	newID     func() string
}

// NewAITaskService constructs the AI task service.
func NewAITaskService(store aiTaskStore, queue taskDispatcher, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg AITaskConfig) *AITaskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TaskTTL <= 0 {
		cfg.TaskTTL = 24 * time.Hour
	}
	return &AITaskService{
		store:     store,
		queue:     queue,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// StartJob validates the request, stores a QUEUED task and hands it to the worker queue.
func (s *AITaskService) StartJob(ctx context.Context, actor models.Identity, req dto.StartAITaskRequest) (*dto.AITaskAcceptedResponse, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "AI tasks are disabled")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid AI task payload")
	}
	if actor.Role == models.RoleStudent && req.Kind != models.AITaskKindSummarize {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only request summaries")
	}
	params, err := normaliseAIParams(req.Kind, req.Params)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.AITask{
		TaskID:    s.newID(),
		Kind:      req.Kind,
		Status:    models.AITaskStatusQueued,
		Params:    params,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, task, s.cfg.TaskTTL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store AI task")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: task.TaskID, Type: AITaskJobType}); err != nil {
		task.Status = models.AITaskStatusFailed
		task.Progress = 100
		task.Error = "failed to enqueue task"
		task.UpdatedAt = s.now()
		if saveErr := s.store.Save(ctx, task, s.cfg.TaskTTL); saveErr != nil {
			s.logger.Warn("failed to mark AI task failed", zap.String("task_id", task.TaskID), zap.Error(saveErr))
		}
		s.metrics.RecordAITask(task.Kind, task.Status)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue AI task")
	}

	s.metrics.RecordAITask(task.Kind, task.Status)
	s.logger.Info("ai task queued",
		zap.String("task_id", task.TaskID),
		zap.String("kind", string(task.Kind)),
		zap.String("actor_id", actor.UserID),
	)
	return &dto.AITaskAcceptedResponse{TaskID: task.TaskID, Kind: task.Kind, Status: task.Status}, nil
}

// GetStatus reports task progress. Unknown or expired tasks come back as NOT_FOUND rather than an error.
func (s *AITaskService) GetStatus(ctx context.Context, actor models.Identity, taskID string) (*dto.AITaskStatusResponse, error) {
	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return &dto.AITaskStatusResponse{TaskID: taskID, Status: models.AITaskStatusNotFound}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load AI task")
	}
	if task.CreatedBy != actor.UserID && actor.Role != models.RoleAdmin {
		return &dto.AITaskStatusResponse{TaskID: taskID, Status: models.AITaskStatusNotFound}, nil
	}
	return &dto.AITaskStatusResponse{
		TaskID:   task.TaskID,
		Status:   task.Status,
		Progress: task.Progress,
		Result:   task.Result,
		Error:    task.Error,
	}, nil
}

func normaliseAIParams(kind models.AITaskKind, params models.AITaskParams) (models.AITaskParams, error) {
	params.SyllabusID = strings.TrimSpace(params.SyllabusID)
	params.CurriculumID = strings.TrimSpace(params.CurriculumID)
	params.OldVersionID = strings.TrimSpace(params.OldVersionID)
	params.NewVersionID = strings.TrimSpace(params.NewVersionID)
	params.SubjectID = strings.TrimSpace(params.SubjectID)

	switch kind {
	case models.AITaskKindCLOPLOCheck, models.AITaskKindSummarize:
		if params.SyllabusID == "" {
			return params, appErrors.Clone(appErrors.ErrValidation, "syllabusId is required")
		}
		params.OldVersionID, params.NewVersionID, params.SubjectID = "", "", ""
		if kind == models.AITaskKindSummarize {
			params.CurriculumID = ""
		}
	case models.AITaskKindVersionCompare:
		if params.OldVersionID == "" || params.NewVersionID == "" || params.SubjectID == "" {
			return params, appErrors.Clone(appErrors.ErrValidation, "oldVersionId, newVersionId and subjectId are required")
		}
		if params.OldVersionID == params.NewVersionID {
			return params, appErrors.Clone(appErrors.ErrValidation, "cannot compare a version with itself")
		}
		params.SyllabusID, params.CurriculumID = "", ""
	default:
		return params, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported task kind %q", kind))
	}
	return params, nil
}

// AITaskWorker executes queued analysis jobs.
type AITaskWorker struct {
	store    aiTaskStore
	analyzer Analyzer
	metrics  *MetricsService
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewAITaskWorker constructs the worker used as the jobs.Handler of the AI queue.
func NewAITaskWorker(store aiTaskStore, analyzer Analyzer, metrics *MetricsService, logger *zap.Logger, ttl time.Duration) *AITaskWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AITaskWorker{
		store:    store,
		analyzer: analyzer,
		metrics:  metrics,
		logger:   logger,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes a single task. Analyzer failures are terminal and returned as permanent errors.
func (w *AITaskWorker) Handle(ctx context.Context, job jobs.Job) error {
	task, err := w.store.Get(ctx, job.ID)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			w.logger.Warn("ai task expired before processing", zap.String("task_id", job.ID))
			return nil
		}
		return fmt.Errorf("load ai task %s: %w", job.ID, err)
	}
	if task.Status.Terminal() {
		return nil
	}

	task.Status = models.AITaskStatusProcessing
	task.Progress = 10
	task.UpdatedAt = w.now()
	if err := w.store.Save(ctx, task, w.ttl); err != nil {
		return fmt.Errorf("mark ai task %s processing: %w", task.TaskID, err)
	}
	w.logger.Debug("ai task processing", zap.String("task_id", task.TaskID), zap.Int("attempt", job.Attempt))

	result, analyzeErr := w.analyzer.Analyze(ctx, task.Kind, task.Params)
	if analyzeErr != nil {
		task.Status = models.AITaskStatusFailed
		task.Error = analyzeErr.Error()
	} else {
		task.Status = models.AITaskStatusSuccess
		task.Result = result
	}
	task.Progress = 100
	task.UpdatedAt = w.now()
	if err := w.store.Save(ctx, task, w.ttl); err != nil {
		return fmt.Errorf("store ai task %s result: %w", task.TaskID, err)
	}
	w.metrics.RecordAITask(task.Kind, task.Status)

	if analyzeErr != nil {
		w.logger.Warn("ai task failed", zap.String("task_id", task.TaskID), zap.String("kind", string(task.Kind)), zap.Error(analyzeErr))
		return jobs.Permanent(analyzeErr)
	}
	w.logger.Info("ai task succeeded", zap.String("task_id", task.TaskID), zap.String("kind", string(task.Kind)))
	return nil
}
