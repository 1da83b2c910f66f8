package repository

import (
	"context"
	"database/sql"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

var commentRowColumns = []string{"id", "seq", "syllabus_id", "author_id", "author_role", "section", "content", "kind", "created_at"}

func TestCommentRepositoryCreateUsesStoreTimestamp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCommentRepository(db)
	stamped := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO review_comments")).
		WithArgs(sqlmock.AnyArg(), "syl-1", "lect-2", "LECTURER", nil, "check CLO 3", "COLLABORATOR_NOTE").
		WillReturnRows(sqlmock.NewRows([]string{"seq", "created_at"}).AddRow(42, stamped))

	comment := &models.ReviewComment{SyllabusID: "syl-1", AuthorID: "lect-2", AuthorRole: models.RoleLecturer, Content: "check CLO 3"}
	require.NoError(t, repo.Create(context.Background(), comment))
	require.NotEmpty(t, comment.ID)
	require.Equal(t, int64(42), comment.Seq)
	require.True(t, comment.CreatedAt.Equal(stamped))
	require.Equal(t, models.CommentKindCollaboratorNote, comment.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewCommentsSchemaStampsAtInsertTime(t *testing.T) {
	raw, err := os.ReadFile("../../migrations/0001_syllabus_workflow.sql")
	require.NoError(t, err)

	schema := string(raw)
	start := strings.Index(schema, "CREATE TABLE IF NOT EXISTS review_comments")
	require.GreaterOrEqual(t, start, 0)
	table := schema[start:]
	table = table[:strings.Index(table, ");")]

	require.Contains(t, table, "created_at  TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()")
	require.NotContains(t, table, "DEFAULT now()")
}

func TestCommentRepositoryListOrdersByCreationThenSeq(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCommentRepository(db)
	at := time.Now()
	rows := sqlmock.NewRows(commentRowColumns).
		AddRow("c-1", 1, "syl-1", "hod-1", "HOD", nil, "first", "OFFICIAL_REJECTION_REASON", at).
		AddRow("c-2", 2, "syl-1", "lect-1", "LECTURER", "CLOs", "second", "COLLABORATOR_NOTE", at)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, seq ASC")).
		WithArgs("syl-1").
		WillReturnRows(rows)

	comments, err := repo.ListBySyllabus(context.Background(), "syl-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "c-1", comments[0].ID)
	require.Equal(t, "CLOs", *comments[1].Section)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepositoryDeleteKeepsOfficialReasons(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCommentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM review_comments WHERE id = $1 AND kind <> $2")).
		WithArgs("c-1", "OFFICIAL_REJECTION_REASON").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.Delete(context.Background(), "c-1"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
