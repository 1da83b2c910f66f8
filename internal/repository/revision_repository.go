package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

const revisionColumns = `id, syllabus_id, session_number, opened_at, opened_by, summary, closed_at, closed_by,
       hod_decision, hod_reviewed_by, hod_reviewed_at`

// RevisionRepository reads revision sessions.
type RevisionRepository struct {
	db *sqlx.DB
}

// NewRevisionRepository constructs the repository.
func NewRevisionRepository(db *sqlx.DB) *RevisionRepository {
	return &RevisionRepository{db: db}
}

// ListBySyllabus returns every session of a syllabus ordered by session number.
func (r *RevisionRepository) ListBySyllabus(ctx context.Context, syllabusID string) ([]models.RevisionSession, error) {
	query := `SELECT ` + revisionColumns + ` FROM revision_sessions WHERE syllabus_id = $1 ORDER BY session_number ASC`
	var sessions []models.RevisionSession
	if err := r.db.SelectContext(ctx, &sessions, query, syllabusID); err != nil {
		return nil, fmt.Errorf("list revision sessions: %w", err)
	}
	return sessions, nil
}

// GetActive returns the open session of a syllabus or sql.ErrNoRows.
func (r *RevisionRepository) GetActive(ctx context.Context, syllabusID string) (*models.RevisionSession, error) {
	query := `SELECT ` + revisionColumns + ` FROM revision_sessions WHERE syllabus_id = $1 AND closed_at IS NULL`
	var session models.RevisionSession
	if err := r.db.GetContext(ctx, &session, query, syllabusID); err != nil {
		return nil, err
	}
	return &session, nil
}

func openRevisionSession(ctx context.Context, tx *sqlx.Tx, syllabusID, openedBy string, now time.Time) error {
	const query = `INSERT INTO revision_sessions (id, syllabus_id, session_number, opened_at, opened_by)
	SELECT $1, $2, COALESCE(MAX(session_number), 0) + 1, $3, $4 FROM revision_sessions WHERE syllabus_id = $2`
	if _, err := tx.ExecContext(ctx, query, uuid.NewString(), syllabusID, now, openedBy); err != nil {
		return fmt.Errorf("open revision session: %w", err)
	}
	return nil
}

func closeRevisionSession(ctx context.Context, tx *sqlx.Tx, syllabusID, closedBy, summary string, now time.Time) error {
	const query = `UPDATE revision_sessions SET summary = $1, closed_at = $2, closed_by = $3
	WHERE syllabus_id = $4 AND closed_at IS NULL`
	result, err := tx.ExecContext(ctx, query, summary, now, closedBy, syllabusID)
	if err != nil {
		return fmt.Errorf("close revision session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check revision session rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func recordHODReview(ctx context.Context, tx *sqlx.Tx, syllabusID, reviewer string, decision models.HODDecision, now time.Time) error {
	const query = `UPDATE revision_sessions SET hod_decision = $1, hod_reviewed_by = $2, hod_reviewed_at = $3
	WHERE id = (SELECT id FROM revision_sessions WHERE syllabus_id = $4 AND closed_at IS NOT NULL
	            ORDER BY session_number DESC LIMIT 1)`
	result, err := tx.ExecContext(ctx, query, decision, reviewer, now, syllabusID)
	if err != nil {
		return fmt.Errorf("record hod review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check hod review rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
