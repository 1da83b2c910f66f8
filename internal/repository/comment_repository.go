package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

const commentColumns = `id, seq, syllabus_id, author_id, author_role, section, content, kind, created_at`

// CommentRepository persists review comments. created_at comes from the database clock at
// insert time and seq breaks ties, so reads follow insert order.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create appends a comment and fills the store-assigned seq and created_at.
func (r *CommentRepository) Create(ctx context.Context, comment *models.ReviewComment) error {
	return insertComment(ctx, r.db, comment)
}

// GetByID fetches a single comment.
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*models.ReviewComment, error) {
	query := `SELECT ` + commentColumns + ` FROM review_comments WHERE id = $1`
	var comment models.ReviewComment
	if err := r.db.GetContext(ctx, &comment, query, id); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListBySyllabus returns the discussion timeline in creation order.
func (r *CommentRepository) ListBySyllabus(ctx context.Context, syllabusID string) ([]models.ReviewComment, error) {
	query := `SELECT ` + commentColumns + ` FROM review_comments WHERE syllabus_id = $1 ORDER BY created_at ASC, seq ASC`
	var comments []models.ReviewComment
	if err := r.db.SelectContext(ctx, &comments, query, syllabusID); err != nil {
		return nil, fmt.Errorf("list review comments: %w", err)
	}
	return comments, nil
}

// Delete removes a non-official comment.
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM review_comments WHERE id = $1 AND kind <> $2`
	result, err := r.db.ExecContext(ctx, query, id, models.CommentKindOfficialRejectionReason)
	if err != nil {
		return fmt.Errorf("delete review comment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check review comment rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func insertComment(ctx context.Context, q sqlx.QueryerContext, comment *models.ReviewComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.Kind == "" {
		comment.Kind = models.CommentKindCollaboratorNote
	}
	const query = `INSERT INTO review_comments (id, syllabus_id, author_id, author_role, section, content, kind)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING seq, created_at`
	row := q.QueryRowxContext(ctx, query,
		comment.ID,
		comment.SyllabusID,
		comment.AuthorID,
		comment.AuthorRole,
		comment.Section,
		comment.Content,
		comment.Kind,
	)
	if err := row.Scan(&comment.Seq, &comment.CreatedAt); err != nil {
		return fmt.Errorf("insert review comment: %w", err)
	}
	return nil
}
