package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

const syllabusColumns = `id, subject_id, academic_term_id, status, version, owner_id, submitted_at,
       hod_approved_at, hod_approved_by, aa_approved_at, aa_approved_by,
       principal_approved_at, principal_approved_by, published_at, published_by,
       effective_date, content, previous_version_id, created_at, updated_at`

// ApprovalStage selects which approval columns a transition stamps.
type ApprovalStage string

const (
	StageNone      ApprovalStage = ""
	StageHOD       ApprovalStage = "HOD"
	StageAA        ApprovalStage = "AA"
	StagePrincipal ApprovalStage = "PRINCIPAL"
	StagePublish   ApprovalStage = "PUBLISH"
)

// CloseSessionParams closes the active revision session.
type CloseSessionParams struct {
	Summary string
}

// HODReviewParams records the HOD verdict on the most recently closed revision session.
type HODReviewParams struct {
	Decision models.HODDecision
}

// TransitionParams describes every write of one lifecycle transition.
type TransitionParams struct {
	SyllabusID    string
	FromStatus    models.SyllabusStatus
	ToStatus      models.SyllabusStatus
	Actor         models.Identity
	Now           time.Time
	SetSubmitted  bool
	Stage         ApprovalStage
	EffectiveDate *time.Time
	BumpVersion   bool
	Comment       *models.ReviewComment
	OpenSession   bool
	CloseSession  *CloseSessionParams
	HODReview     *HODReviewParams
	History       models.ApprovalHistory
}

// SyllabusRepository persists syllabus documents and applies lifecycle transitions.
type SyllabusRepository struct {
	db *sqlx.DB
}

// NewSyllabusRepository constructs the repository.
func NewSyllabusRepository(db *sqlx.DB) *SyllabusRepository {
	return &SyllabusRepository{db: db}
}

// Create inserts a new draft syllabus.
func (r *SyllabusRepository) Create(ctx context.Context, syllabus *models.Syllabus) error {
	if syllabus.ID == "" {
		syllabus.ID = uuid.NewString()
	}
	if syllabus.Status == "" {
		syllabus.Status = models.SyllabusStatusDraft
	}
	if syllabus.Version <= 0 {
		syllabus.Version = 1
	}
	if len(syllabus.Content) == 0 {
		syllabus.Content = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if syllabus.CreatedAt.IsZero() {
		syllabus.CreatedAt = now
	}
	syllabus.UpdatedAt = syllabus.CreatedAt

	const query = `INSERT INTO syllabi
	(id, subject_id, academic_term_id, status, version, owner_id, content, previous_version_id, created_at, updated_at)
	VALUES (:id, :subject_id, :academic_term_id, :status, :version, :owner_id, :content, :previous_version_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, syllabus); err != nil {
		return fmt.Errorf("create syllabus: %w", err)
	}
	return nil
}

// GetByID fetches a syllabus by identifier.
func (r *SyllabusRepository) GetByID(ctx context.Context, id string) (*models.Syllabus, error) {
	query := `SELECT ` + syllabusColumns + ` FROM syllabi WHERE id = $1`
	var syllabus models.Syllabus
	if err := r.db.GetContext(ctx, &syllabus, query, id); err != nil {
		return nil, err
	}
	return &syllabus, nil
}

// List returns syllabi matching the filter together with the total count.
func (r *SyllabusRepository) List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, int, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			statuses[i] = string(status)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	if filter.AcademicTermID != "" {
		args = append(args, filter.AcademicTermID)
		conditions = append(conditions, fmt.Sprintf("academic_term_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM syllabi"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count syllabi: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM syllabi%s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		syllabusColumns, where, size, (page-1)*size)

	var syllabi []models.Syllabus
	if err := r.db.SelectContext(ctx, &syllabi, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list syllabi: %w", err)
	}
	return syllabi, total, nil
}

// UpdateContent replaces the content blob while the document is in an editable state.
func (r *SyllabusRepository) UpdateContent(ctx context.Context, id string, content types.JSONText, now time.Time) error {
	const query = `UPDATE syllabi SET content = $1, updated_at = $2
	WHERE id = $3 AND status = ANY($4)`
	editable := make([]string, len(models.EditableStatuses))
	for i, status := range models.EditableStatuses {
		editable[i] = string(status)
	}
	result, err := r.db.ExecContext(ctx, query, content, now, id, pq.Array(editable))
	if err != nil {
		return fmt.Errorf("update syllabus content: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check syllabus content rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyTransition executes a lifecycle transition atomically. The status update is
// conditioned on FromStatus; sql.ErrNoRows signals that another writer moved the document.
func (r *SyllabusRepository) ApplyTransition(ctx context.Context, params TransitionParams) (*models.Syllabus, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := updateSyllabusStatus(ctx, tx, params); err != nil {
		return nil, err
	}
	if params.CloseSession != nil {
		if err := closeRevisionSession(ctx, tx, params.SyllabusID, params.Actor.UserID, params.CloseSession.Summary, params.Now); err != nil {
			return nil, err
		}
	}
	if params.HODReview != nil {
		if err := recordHODReview(ctx, tx, params.SyllabusID, params.Actor.UserID, params.HODReview.Decision, params.Now); err != nil {
			return nil, err
		}
	}
	if params.OpenSession {
		if err := openRevisionSession(ctx, tx, params.SyllabusID, params.Actor.UserID, params.Now); err != nil {
			return nil, err
		}
	}
	if params.Comment != nil {
		if err := insertComment(ctx, tx, params.Comment); err != nil {
			return nil, err
		}
	}
	history := params.History
	if err := insertHistory(ctx, tx, &history); err != nil {
		return nil, err
	}

	var updated models.Syllabus
	if err := tx.GetContext(ctx, &updated, `SELECT `+syllabusColumns+` FROM syllabi WHERE id = $1`, params.SyllabusID); err != nil {
		return nil, fmt.Errorf("reload syllabus: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return &updated, nil
}

func updateSyllabusStatus(ctx context.Context, tx *sqlx.Tx, params TransitionParams) error {
	setParts := []string{"status = :to_status", "updated_at = :now"}
	if params.SetSubmitted {
		setParts = append(setParts, "submitted_at = :now")
	}
	switch params.Stage {
	case StageHOD:
		setParts = append(setParts, "hod_approved_at = :now", "hod_approved_by = :actor_id")
	case StageAA:
		setParts = append(setParts, "aa_approved_at = :now", "aa_approved_by = :actor_id")
	case StagePrincipal:
		setParts = append(setParts, "principal_approved_at = :now", "principal_approved_by = :actor_id")
	case StagePublish:
		setParts = append(setParts, "published_at = :now", "published_by = :actor_id")
	}
	if params.EffectiveDate != nil {
		setParts = append(setParts, "effective_date = :effective_date")
	}
	if params.BumpVersion {
		setParts = append(setParts, "version = version + 1")
	}

	query := fmt.Sprintf("UPDATE syllabi SET %s WHERE id = :id AND status = :from_status", strings.Join(setParts, ", "))
	result, err := tx.NamedExecContext(ctx, query, map[string]interface{}{
		"id":             params.SyllabusID,
		"from_status":    params.FromStatus,
		"to_status":      params.ToStatus,
		"now":            params.Now,
		"actor_id":       params.Actor.UserID,
		"effective_date": params.EffectiveDate,
	})
	if err != nil {
		return fmt.Errorf("update syllabus status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check syllabus status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
