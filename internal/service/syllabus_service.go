package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	"github.com/noah-isme/smd-syllabus-api/internal/repository"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
)

type syllabusStore interface {
	Create(ctx context.Context, syllabus *models.Syllabus) error
	GetByID(ctx context.Context, id string) (*models.Syllabus, error)
	List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, int, error)
	UpdateContent(ctx context.Context, id string, content types.JSONText, now time.Time) error
	ApplyTransition(ctx context.Context, params repository.TransitionParams) (*models.Syllabus, error)
}

type revisionReader interface {
	ListBySyllabus(ctx context.Context, syllabusID string) ([]models.RevisionSession, error)
	GetActive(ctx context.Context, syllabusID string) (*models.RevisionSession, error)
}

type historyReader interface {
	ListBySyllabus(ctx context.Context, syllabusID string) ([]models.ApprovalHistory, error)
}

// SyllabusService is the lifecycle engine: it owns the status of syllabus documents and
// executes every transition through the transition table.
type SyllabusService struct {
	repo      syllabusStore
	revisions revisionReader
	history   historyReader
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// SyllabusOption customises the service.
type SyllabusOption func(*SyllabusService)

// WithSyllabusClock overrides the clock used for timestamps and effective date checks.
func WithSyllabusClock(now func() time.Time) SyllabusOption {
	return func(s *SyllabusService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSyllabusMetrics attaches Prometheus counters.
func WithSyllabusMetrics(metrics *MetricsService) SyllabusOption {
	return func(s *SyllabusService) {
		s.metrics = metrics
	}
}

// NewSyllabusService constructs the lifecycle engine.
func NewSyllabusService(repo syllabusStore, revisions revisionReader, history historyReader, validate *validator.Validate, logger *zap.Logger, opts ...SyllabusOption) *SyllabusService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SyllabusService{
		repo:      repo,
		revisions: revisions,
		history:   history,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateDraft creates a new DRAFT owned by the calling lecturer.
func (s *SyllabusService) CreateDraft(ctx context.Context, actor models.Identity, req dto.CreateSyllabusRequest) (*models.Syllabus, error) {
	if actor.Role != models.RoleLecturer {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only lecturers may draft syllabi")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid syllabus payload")
	}
	content, err := normaliseContent(req.Content, false)
	if err != nil {
		return nil, err
	}

	now := s.now()
	syllabus := &models.Syllabus{
		SubjectID:         req.SubjectID,
		AcademicTermID:    req.AcademicTermID,
		Status:            models.SyllabusStatusDraft,
		Version:           1,
		OwnerID:           actor.UserID,
		Content:           content,
		PreviousVersionID: req.PreviousVersionID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, syllabus); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a syllabus already exists for this subject and academic term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create syllabus")
	}
	s.logger.Info("syllabus drafted",
		zap.String("syllabus_id", syllabus.ID),
		zap.String("owner_id", actor.UserID),
		zap.String("subject_id", syllabus.SubjectID),
	)
	return syllabus, nil
}

// Get returns a syllabus visible to the caller. Students only see published documents.
func (s *SyllabusService) Get(ctx context.Context, actor models.Identity, id string) (*models.Syllabus, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleStudent && doc.Status != models.SyllabusStatusPublished {
		return nil, appErrors.ErrNotFound
	}
	return doc, nil
}

// List returns syllabi matching the query.
func (s *SyllabusService) List(ctx context.Context, actor models.Identity, query dto.SyllabusQuery) ([]models.Syllabus, *models.Pagination, error) {
	for _, status := range query.Status {
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter "+string(status))
		}
	}
	filter := models.SyllabusFilter{
		Status:         query.Status,
		OwnerID:        query.OwnerID,
		SubjectID:      query.SubjectID,
		AcademicTermID: query.AcademicTermID,
		Page:           query.Page,
		PageSize:       query.PageSize,
	}
	if actor.Role == models.RoleStudent {
		filter.Status = []models.SyllabusStatus{models.SyllabusStatusPublished}
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 20
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list syllabi")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// UpdateContent replaces the content blob. Only the owner may edit, and only in editable states.
func (s *SyllabusService) UpdateContent(ctx context.Context, actor models.Identity, id string, req dto.UpdateContentRequest) (*models.Syllabus, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleLecturer || doc.OwnerID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning lecturer may edit this syllabus")
	}
	if !doc.Status.Editable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "syllabus content cannot be edited while "+string(doc.Status))
	}
	content, err := normaliseContent(req.Content, true)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repo.UpdateContent(ctx, id, content, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "syllabus changed since it was read; refresh and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update syllabus content")
	}
	doc.Content = content
	doc.UpdatedAt = now
	return doc, nil
}

// Transition validates and executes a lifecycle action. Failures are never retried here;
// a Conflict means another writer moved the document and the caller must refresh.
func (s *SyllabusService) Transition(ctx context.Context, actor models.Identity, id string, req dto.TransitionRequest) (*models.Syllabus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	params, err := planTransition(doc, actor, req, s.now())
	if err != nil {
		s.metrics.RecordTransition(req.Action, TransitionResultRejected)
		s.logger.Info("syllabus transition refused",
			zap.String("syllabus_id", id),
			zap.String("action", string(req.Action)),
			zap.String("status", string(doc.Status)),
			zap.String("actor_id", actor.UserID),
			zap.String("actor_role", string(actor.Role)),
			zap.Error(err),
		)
		return nil, err
	}

	updated, err := s.repo.ApplyTransition(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsUniqueViolation(err) {
			s.metrics.RecordTransition(req.Action, TransitionResultConflict)
			s.logger.Warn("syllabus transition conflict",
				zap.String("syllabus_id", id),
				zap.String("action", string(req.Action)),
				zap.String("expected_status", string(doc.Status)),
				zap.Error(err),
			)
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status,
				"syllabus was changed by someone else; refresh before retrying")
		}
		s.metrics.RecordTransition(req.Action, TransitionResultError)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}

	s.metrics.RecordTransition(req.Action, TransitionResultOK)
	if params.Comment != nil {
		s.metrics.RecordComment(params.Comment.Kind)
	}
	s.logger.Info("syllabus transition applied",
		zap.String("syllabus_id", id),
		zap.String("action", string(req.Action)),
		zap.String("from", string(params.FromStatus)),
		zap.String("to", string(params.ToStatus)),
		zap.String("actor_id", actor.UserID),
		zap.Int("version", updated.Version),
	)
	return updated, nil
}

// History returns the approval history of a syllabus.
func (s *SyllabusService) History(ctx context.Context, actor models.Identity, id string) ([]models.ApprovalHistory, error) {
	if err := s.requireStaff(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.history.ListBySyllabus(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval history")
	}
	return entries, nil
}

// RevisionSessions returns every revision session of a syllabus.
func (s *SyllabusService) RevisionSessions(ctx context.Context, actor models.Identity, id string) ([]models.RevisionSession, error) {
	if err := s.requireStaff(ctx, actor, id); err != nil {
		return nil, err
	}
	sessions, err := s.revisions.ListBySyllabus(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revision sessions")
	}
	return sessions, nil
}

// ActiveRevision returns the open revision session of a syllabus.
func (s *SyllabusService) ActiveRevision(ctx context.Context, actor models.Identity, id string) (*models.RevisionSession, error) {
	if err := s.requireStaff(ctx, actor, id); err != nil {
		return nil, err
	}
	session, err := s.revisions.GetActive(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active revision session")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revision session")
	}
	return session, nil
}

func (s *SyllabusService) requireStaff(ctx context.Context, actor models.Identity, id string) error {
	if actor.Role == models.RoleStudent || !actor.Role.Valid() {
		return appErrors.ErrForbidden
	}
	_, err := s.load(ctx, id)
	return err
}

func (s *SyllabusService) load(ctx context.Context, id string) (*models.Syllabus, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load syllabus")
	}
	return doc, nil
}

func normaliseContent(raw json.RawMessage, required bool) (types.JSONText, error) {
	if len(raw) == 0 || string(raw) == "null" {
		if required {
			return nil, appErrors.Clone(appErrors.ErrValidation, "content is required")
		}
		return types.JSONText(`{}`), nil
	}
	if !json.Valid(raw) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content must be valid JSON")
	}
	return types.JSONText(raw), nil
}
