package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

var revisionRowColumns = []string{"id", "syllabus_id", "session_number", "opened_at", "opened_by", "summary", "closed_at", "closed_by", "hod_decision", "hod_reviewed_by", "hod_reviewed_at"}

func TestRevisionRepositoryListAndActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRevisionRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM revision_sessions WHERE syllabus_id = $1 ORDER BY session_number ASC")).
		WithArgs("syl-1").
		WillReturnRows(sqlmock.NewRows(revisionRowColumns).
			AddRow("rs-1", "syl-1", 1, now, "lect-1", "y", now, "lect-1", "APPROVED", "hod-1", now).
			AddRow("rs-2", "syl-1", 2, now, "lect-1", nil, nil, nil, nil, nil, nil))

	sessions, err := repo.ListBySyllabus(context.Background(), "syl-1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.False(t, sessions[0].Active())
	require.Equal(t, models.HODDecisionApproved, *sessions[0].HODDecision)
	require.True(t, sessions[1].Active())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE syllabus_id = $1 AND closed_at IS NULL")).
		WithArgs("syl-1").
		WillReturnRows(sqlmock.NewRows(revisionRowColumns).
			AddRow("rs-2", "syl-1", 2, now, "lect-1", nil, nil, nil, nil, nil, nil))

	active, err := repo.GetActive(context.Background(), "syl-1")
	require.NoError(t, err)
	require.Equal(t, 2, active.SessionNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}
