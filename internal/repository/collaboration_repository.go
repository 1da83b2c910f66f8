package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

// CollaborationRepository persists collaborator assignments.
type CollaborationRepository struct {
	db *sqlx.DB
}

// NewCollaborationRepository constructs the repository.
func NewCollaborationRepository(db *sqlx.DB) *CollaborationRepository {
	return &CollaborationRepository{db: db}
}

// Assign inserts assignments, skipping pairs that already exist. It returns the number of new rows.
func (r *CollaborationRepository) Assign(ctx context.Context, syllabusID string, collaboratorIDs []string, assignedBy string, at time.Time) (int, error) {
	if len(collaboratorIDs) == 0 {
		return 0, nil
	}
	values := make([]string, 0, len(collaboratorIDs))
	args := make([]interface{}, 0, len(collaboratorIDs)+3)
	args = append(args, syllabusID, assignedBy, at)
	for _, id := range collaboratorIDs {
		args = append(args, id)
		values = append(values, fmt.Sprintf("($1, $%d, $2, $3)", len(args)))
	}
	query := `INSERT INTO collaboration_assignments (syllabus_version_id, collaborator_id, assigned_by, assigned_at)
	VALUES ` + strings.Join(values, ", ") + `
	ON CONFLICT (syllabus_version_id, collaborator_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("assign collaborators: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check assignment rows: %w", err)
	}
	return int(rows), nil
}

// ListActiveForUser returns assignments whose target document is still a draft.
func (r *CollaborationRepository) ListActiveForUser(ctx context.Context, userID string) ([]models.CollaborationQueueItem, error) {
	const query = `SELECT ca.syllabus_version_id, ca.collaborator_id, ca.assigned_by, ca.assigned_at,
       s.subject_id, s.academic_term_id, s.owner_id, s.status, s.version
	FROM collaboration_assignments ca
	JOIN syllabi s ON s.id = ca.syllabus_version_id
	WHERE ca.collaborator_id = $1 AND s.status = $2
	ORDER BY ca.assigned_at DESC`
	var items []models.CollaborationQueueItem
	if err := r.db.SelectContext(ctx, &items, query, userID, models.SyllabusStatusDraft); err != nil {
		return nil, fmt.Errorf("list collaborator assignments: %w", err)
	}
	return items, nil
}

// ListBySyllabus returns every assignment of a document.
func (r *CollaborationRepository) ListBySyllabus(ctx context.Context, syllabusID string) ([]models.CollaborationAssignment, error) {
	const query = `SELECT syllabus_version_id, collaborator_id, assigned_by, assigned_at
	FROM collaboration_assignments WHERE syllabus_version_id = $1 ORDER BY assigned_at ASC`
	var assignments []models.CollaborationAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, syllabusID); err != nil {
		return nil, fmt.Errorf("list syllabus collaborators: %w", err)
	}
	return assignments, nil
}

// IsCollaborator reports whether the user is assigned to the document.
func (r *CollaborationRepository) IsCollaborator(ctx context.Context, syllabusID, userID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM collaboration_assignments WHERE syllabus_version_id = $1 AND collaborator_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, syllabusID, userID); err != nil {
		return false, fmt.Errorf("check collaborator: %w", err)
	}
	return exists, nil
}

// Remove deletes an assignment or returns sql.ErrNoRows.
func (r *CollaborationRepository) Remove(ctx context.Context, syllabusID, userID string) error {
	const query = `DELETE FROM collaboration_assignments WHERE syllabus_version_id = $1 AND collaborator_id = $2`
	result, err := r.db.ExecContext(ctx, query, syllabusID, userID)
	if err != nil {
		return fmt.Errorf("remove collaborator: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check collaborator rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
