package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

// HistoryRepository reads the approval history of syllabi.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// ListBySyllabus returns transitions oldest first.
func (r *HistoryRepository) ListBySyllabus(ctx context.Context, syllabusID string) ([]models.ApprovalHistory, error) {
	const query = `SELECT id, syllabus_id, action, from_status, to_status, actor_id, actor_role, comment, created_at
	FROM syllabus_transitions WHERE syllabus_id = $1 ORDER BY created_at ASC, id ASC`
	var history []models.ApprovalHistory
	if err := r.db.SelectContext(ctx, &history, query, syllabusID); err != nil {
		return nil, fmt.Errorf("list syllabus transitions: %w", err)
	}
	return history, nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, entry *models.ApprovalHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO syllabus_transitions
	(id, syllabus_id, action, from_status, to_status, actor_id, actor_role, comment, created_at)
	VALUES (:id, :syllabus_id, :action, :from_status, :to_status, :actor_id, :actor_role, :comment, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert syllabus transition: %w", err)
	}
	return nil
}
