package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
)

type syllabusReader interface {
	GetByID(ctx context.Context, id string) (*models.Syllabus, error)
}

type collaborationStore interface {
	Assign(ctx context.Context, syllabusID string, collaboratorIDs []string, assignedBy string, at time.Time) (int, error)
	ListActiveForUser(ctx context.Context, userID string) ([]models.CollaborationQueueItem, error)
	ListBySyllabus(ctx context.Context, syllabusID string) ([]models.CollaborationAssignment, error)
	IsCollaborator(ctx context.Context, syllabusID, userID string) (bool, error)
	Remove(ctx context.Context, syllabusID, userID string) error
}

type commentStore interface {
	Create(ctx context.Context, comment *models.ReviewComment) error
	GetByID(ctx context.Context, id string) (*models.ReviewComment, error)
	ListBySyllabus(ctx context.Context, syllabusID string) ([]models.ReviewComment, error)
	Delete(ctx context.Context, id string) error
}

// stageApprovers maps pending states to the role allowed to comment during that stage.
var stageApprovers = map[models.SyllabusStatus]models.UserRole{
	models.SyllabusStatusPendingHOD:         models.RoleHOD,
	models.SyllabusStatusPendingHODRevision: models.RoleHOD,
	models.SyllabusStatusPendingAA:          models.RoleAA,
	models.SyllabusStatusPendingPrincipal:   models.RolePrincipal,
}

// CollaborationService manages reviewer assignments and review-only comment threads.
type CollaborationService struct {
	syllabi   syllabusReader
	assign    collaborationStore
	comments  commentStore
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewCollaborationService constructs the collaboration subsystem.
func NewCollaborationService(syllabi syllabusReader, assign collaborationStore, comments commentStore, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *CollaborationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollaborationService{
		syllabi:   syllabi,
		assign:    assign,
		comments:  comments,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Assign grants read/comment access on a draft. Re-assigning an existing collaborator is a no-op.
func (s *CollaborationService) Assign(ctx context.Context, actor models.Identity, syllabusID string, req dto.AssignCollaboratorsRequest) (*dto.AssignCollaboratorsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid collaborator payload")
	}
	doc, err := s.loadSyllabus(ctx, syllabusID)
	if err != nil {
		return nil, err
	}
	if !canManageCollaborators(doc, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the HOD or the owning lecturer may assign collaborators")
	}
	if doc.Status != models.SyllabusStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "collaborators can only be assigned while the syllabus is a draft")
	}

	ids := dedupeIDs(req.CollaboratorIDs)
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one collaborator is required")
	}
	for _, id := range ids {
		if id == doc.OwnerID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "the owner cannot be assigned as a collaborator")
		}
	}

	created, err := s.assign.Assign(ctx, doc.ID, ids, actor.UserID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign collaborators")
	}
	s.logger.Info("collaborators assigned",
		zap.String("syllabus_id", doc.ID),
		zap.Strings("collaborator_ids", ids),
		zap.Int("created", created),
		zap.String("assigned_by", actor.UserID),
	)
	return &dto.AssignCollaboratorsResponse{SyllabusVersionID: doc.ID, CollaboratorIDs: ids, Created: created}, nil
}

// ListForUser returns the user's active review queue. Only drafts are included.
func (s *CollaborationService) ListForUser(ctx context.Context, actor models.Identity, userID string) ([]models.CollaborationQueueItem, error) {
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && actor.Role != models.RoleHOD && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another user's assignments")
	}
	items, err := s.assign.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return items, nil
}

// ListCollaborators returns every assignment of a syllabus.
func (s *CollaborationService) ListCollaborators(ctx context.Context, actor models.Identity, syllabusID string) ([]models.CollaborationAssignment, error) {
	if actor.Role == models.RoleStudent {
		return nil, appErrors.ErrForbidden
	}
	if _, err := s.loadSyllabus(ctx, syllabusID); err != nil {
		return nil, err
	}
	assignments, err := s.assign.ListBySyllabus(ctx, syllabusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list collaborators")
	}
	return assignments, nil
}

// RemoveCollaborator revokes an assignment while the document is still a draft.
func (s *CollaborationService) RemoveCollaborator(ctx context.Context, actor models.Identity, syllabusID, userID string) error {
	doc, err := s.loadSyllabus(ctx, syllabusID)
	if err != nil {
		return err
	}
	if !canManageCollaborators(doc, actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the HOD or the owning lecturer may remove collaborators")
	}
	if doc.Status != models.SyllabusStatusDraft {
		return appErrors.Clone(appErrors.ErrInvalidState, "collaborators can only be changed while the syllabus is a draft")
	}
	if err := s.assign.Remove(ctx, syllabusID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "collaborator not assigned")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove collaborator")
	}
	s.logger.Info("collaborator removed", zap.String("syllabus_id", syllabusID), zap.String("collaborator_id", userID))
	return nil
}

// AddComment appends a review note. Allowed for the owner, an active collaborator, or the
// approver of the document's current pending stage.
func (s *CollaborationService) AddComment(ctx context.Context, actor models.Identity, syllabusID string, req dto.AddCommentRequest) (*models.ReviewComment, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	doc, err := s.loadSyllabus(ctx, syllabusID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.mayComment(ctx, doc, actor)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to comment on this syllabus")
	}

	var section *string
	if req.Section != nil {
		if trimmed := strings.TrimSpace(*req.Section); trimmed != "" {
			section = &trimmed
		}
	}
	comment := &models.ReviewComment{
		SyllabusID: doc.ID,
		AuthorID:   actor.UserID,
		AuthorRole: actor.Role,
		Section:    section,
		Content:    req.Content,
		Kind:       models.CommentKindCollaboratorNote,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add comment")
	}
	s.metrics.RecordComment(comment.Kind)
	s.logger.Info("review comment added",
		zap.String("syllabus_id", doc.ID),
		zap.String("comment_id", comment.ID),
		zap.String("author_id", actor.UserID),
	)
	return comment, nil
}

// ListComments returns the discussion timeline in store order (created_at, then insert sequence).
func (s *CollaborationService) ListComments(ctx context.Context, actor models.Identity, syllabusID string) ([]models.ReviewComment, error) {
	if actor.Role == models.RoleStudent {
		return nil, appErrors.ErrForbidden
	}
	if _, err := s.loadSyllabus(ctx, syllabusID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListBySyllabus(ctx, syllabusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

// DeleteComment removes a note. Only its author or an administrator may do so, and official
// rejection reasons are permanent.
func (s *CollaborationService) DeleteComment(ctx context.Context, actor models.Identity, commentID string) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}
	if comment.Kind == models.CommentKindOfficialRejectionReason {
		return appErrors.Clone(appErrors.ErrForbidden, "official rejection reasons cannot be deleted")
	}
	if comment.AuthorID != actor.UserID && actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author or an administrator may delete this comment")
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment")
	}
	s.logger.Info("review comment deleted", zap.String("comment_id", commentID), zap.String("actor_id", actor.UserID))
	return nil
}

func (s *CollaborationService) mayComment(ctx context.Context, doc *models.Syllabus, actor models.Identity) (bool, error) {
	if actor.Role == models.RoleLecturer && doc.OwnerID == actor.UserID {
		return true, nil
	}
	if role, ok := stageApprovers[doc.Status]; ok && role == actor.Role {
		return true, nil
	}
	if actor.Role != models.RoleLecturer || doc.Status != models.SyllabusStatusDraft {
		return false, nil
	}
	ok, err := s.assign.IsCollaborator(ctx, doc.ID, actor.UserID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check collaborator")
	}
	return ok, nil
}

func (s *CollaborationService) loadSyllabus(ctx context.Context, id string) (*models.Syllabus, error) {
	doc, err := s.syllabi.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load syllabus")
	}
	return doc, nil
}

func canManageCollaborators(doc *models.Syllabus, actor models.Identity) bool {
	if actor.Role == models.RoleHOD {
		return true
	}
	return actor.Role == models.RoleLecturer && doc.OwnerID == actor.UserID
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
