package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
)

type assignmentStoreStub struct {
	syllabi     *syllabusStoreStub
	assignments []models.CollaborationAssignment
}

func (a *assignmentStoreStub) Assign(ctx context.Context, syllabusID string, collaboratorIDs []string, assignedBy string, at time.Time) (int, error) {
	created := 0
	for _, id := range collaboratorIDs {
		exists := false
		for _, existing := range a.assignments {
			if existing.SyllabusVersionID == syllabusID && existing.CollaboratorID == id {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		a.assignments = append(a.assignments, models.CollaborationAssignment{
			SyllabusVersionID: syllabusID,
			CollaboratorID:    id,
			AssignedBy:        assignedBy,
			AssignedAt:        at,
		})
		created++
	}
	return created, nil
}

func (a *assignmentStoreStub) ListActiveForUser(ctx context.Context, userID string) ([]models.CollaborationQueueItem, error) {
	items := make([]models.CollaborationQueueItem, 0)
	for _, assignment := range a.assignments {
		doc := a.syllabi.docs[assignment.SyllabusVersionID]
		if assignment.CollaboratorID != userID || doc == nil || doc.Status != models.SyllabusStatusDraft {
			continue
		}
		items = append(items, models.CollaborationQueueItem{CollaborationAssignment: assignment, Status: doc.Status, OwnerID: doc.OwnerID})
	}
	return items, nil
}

func (a *assignmentStoreStub) ListBySyllabus(ctx context.Context, syllabusID string) ([]models.CollaborationAssignment, error) {
	result := make([]models.CollaborationAssignment, 0)
	for _, assignment := range a.assignments {
		if assignment.SyllabusVersionID == syllabusID {
			result = append(result, assignment)
		}
	}
	return result, nil
}

func (a *assignmentStoreStub) IsCollaborator(ctx context.Context, syllabusID, userID string) (bool, error) {
	for _, assignment := range a.assignments {
		if assignment.SyllabusVersionID == syllabusID && assignment.CollaboratorID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (a *assignmentStoreStub) Remove(ctx context.Context, syllabusID, userID string) error {
	for i, assignment := range a.assignments {
		if assignment.SyllabusVersionID == syllabusID && assignment.CollaboratorID == userID {
			a.assignments = append(a.assignments[:i], a.assignments[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

// commentStoreStub assigns timestamps and sequence numbers the way the database does.
type commentStoreStub struct {
	comments []models.ReviewComment
	seq      int64
	clock    func() time.Time
}

func (c *commentStoreStub) Create(ctx context.Context, comment *models.ReviewComment) error {
	c.seq++
	comment.ID = fmt.Sprintf("c-%d", c.seq)
	comment.Seq = c.seq
	comment.CreatedAt = c.clock()
	c.comments = append(c.comments, *comment)
	return nil
}

func (c *commentStoreStub) GetByID(ctx context.Context, id string) (*models.ReviewComment, error) {
	for _, comment := range c.comments {
		if comment.ID == id {
			found := comment
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (c *commentStoreStub) ListBySyllabus(ctx context.Context, syllabusID string) ([]models.ReviewComment, error) {
	result := make([]models.ReviewComment, 0)
	for _, comment := range c.comments {
		if comment.SyllabusID == syllabusID {
			result = append(result, comment)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

func (c *commentStoreStub) Delete(ctx context.Context, id string) error {
	for i, comment := range c.comments {
		if comment.ID == id {
			c.comments = append(c.comments[:i], c.comments[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func newCollaboration(status models.SyllabusStatus) (*CollaborationService, *syllabusStoreStub, *assignmentStoreStub, *commentStoreStub) {
	syllabi := newSyllabusStoreStub(draftSyllabus(status))
	assignments := &assignmentStoreStub{syllabi: syllabi}
	comments := &commentStoreStub{clock: func() time.Time { return fixedNow }}
	svc := NewCollaborationService(syllabi, assignments, comments, nil, NewMetricsService(), nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, syllabi, assignments, comments
}

func TestAssignCollaboratorsIsIdempotent(t *testing.T) {
	svc, _, store, _ := newCollaboration(models.SyllabusStatusDraft)

	resp, err := svc.Assign(context.Background(), hod, "syl-1", dto.AssignCollaboratorsRequest{CollaboratorIDs: []string{"lect-2", "lect-3", "lect-2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Created)
	assert.Equal(t, []string{"lect-2", "lect-3"}, resp.CollaboratorIDs)

	resp, err = svc.Assign(context.Background(), owner, "syl-1", dto.AssignCollaboratorsRequest{CollaboratorIDs: []string{"lect-2"}})
	require.NoError(t, err)
	assert.Zero(t, resp.Created)
	assert.Len(t, store.assignments, 2)
}

func TestAssignCollaboratorsPermissions(t *testing.T) {
	svc, _, _, _ := newCollaboration(models.SyllabusStatusDraft)
	req := dto.AssignCollaboratorsRequest{CollaboratorIDs: []string{"lect-3"}}

	for _, actor := range []models.Identity{otherLect, aa, principal, admin, student} {
		_, err := svc.Assign(context.Background(), actor, "syl-1", req)
		require.ErrorIs(t, err, appErrors.ErrForbidden, "role %s", actor.Role)
	}

	_, err := svc.Assign(context.Background(), hod, "syl-1", dto.AssignCollaboratorsRequest{CollaboratorIDs: []string{owner.UserID}})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Assign(context.Background(), hod, "syl-1", dto.AssignCollaboratorsRequest{CollaboratorIDs: []string{"  "}})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Assign(context.Background(), hod, "missing", req)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAssignCollaboratorsOutsideDraftWindow(t *testing.T) {
	for _, status := range models.AllSyllabusStatuses {
		if status == models.SyllabusStatusDraft {
			continue
		}
		svc, _, store, _ := newCollaboration(status)
		_, err := svc.Assign(context.Background(), hod, "syl-1", dto.AssignCollaboratorsRequest{CollaboratorIDs: []string{"lect-2"}})
		require.ErrorIs(t, err, appErrors.ErrInvalidState, "status %s", status)
		assert.Empty(t, store.assignments)
	}
}

func TestListForUserDropsClosedReviewWindow(t *testing.T) {
	svc, syllabi, store, _ := newCollaboration(models.SyllabusStatusDraft)
	collaborator := models.Identity{UserID: "lect-2", Role: models.RoleLecturer}

	_, err := svc.Assign(context.Background(), hod, "syl-1", dto.AssignCollaboratorsRequest{CollaboratorIDs: []string{collaborator.UserID}})
	require.NoError(t, err)

	items, err := svc.ListForUser(context.Background(), collaborator, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "syl-1", items[0].SyllabusVersionID)

	syllabi.docs["syl-1"].Status = models.SyllabusStatusPendingHOD

	items, err = svc.ListForUser(context.Background(), collaborator, collaborator.UserID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Len(t, store.assignments, 1, "closed assignments are filtered, not deleted")

	_, err = svc.ListForUser(context.Background(), otherLect, "lect-9")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.ListForUser(context.Background(), hod, collaborator.UserID)
	require.NoError(t, err)
}

func TestAddCommentPermissions(t *testing.T) {
	collaborator := models.Identity{UserID: "lect-2", Role: models.RoleLecturer}
	stranger := models.Identity{UserID: "lect-9", Role: models.RoleLecturer}

	svc, syllabi, _, comments := newCollaboration(models.SyllabusStatusDraft)
	_, err := svc.Assign(context.Background(), hod, "syl-1", dto.AssignCollaboratorsRequest{CollaboratorIDs: []string{collaborator.UserID}})
	require.NoError(t, err)

	req := dto.AddCommentRequest{Content: "Consider merging CLO 2 and 3"}
	_, err = svc.AddComment(context.Background(), collaborator, "syl-1", req)
	require.NoError(t, err)
	_, err = svc.AddComment(context.Background(), owner, "syl-1", req)
	require.NoError(t, err)
	_, err = svc.AddComment(context.Background(), stranger, "syl-1", req)
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.AddComment(context.Background(), aa, "syl-1", req)
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	syllabi.docs["syl-1"].Status = models.SyllabusStatusPendingAA
	_, err = svc.AddComment(context.Background(), aa, "syl-1", req)
	require.NoError(t, err)
	_, err = svc.AddComment(context.Background(), hod, "syl-1", req)
	require.ErrorIs(t, err, appErrors.ErrForbidden, "HOD is not the approver of the AA stage")
	_, err = svc.AddComment(context.Background(), collaborator, "syl-1", req)
	require.ErrorIs(t, err, appErrors.ErrForbidden, "review window closed")

	syllabi.docs["syl-1"].Status = models.SyllabusStatusPendingHODRevision
	_, err = svc.AddComment(context.Background(), hod, "syl-1", req)
	require.NoError(t, err)

	_, err = svc.AddComment(context.Background(), owner, "syl-1", dto.AddCommentRequest{Content: "   "})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Len(t, comments.comments, 4)
	for _, comment := range comments.comments {
		assert.Equal(t, models.CommentKindCollaboratorNote, comment.Kind)
	}
}

func TestListCommentsPreservesStoreOrder(t *testing.T) {
	svc, _, _, comments := newCollaboration(models.SyllabusStatusDraft)
	base := fixedNow
	stamps := []time.Time{base, base, base.Add(time.Second)}
	i := 0
	comments.clock = func() time.Time {
		stamp := stamps[i]
		i++
		return stamp
	}

	section := "Assessment"
	for _, content := range []string{"first", "second", "third"} {
		_, err := svc.AddComment(context.Background(), owner, "syl-1", dto.AddCommentRequest{Content: content, Section: &section})
		require.NoError(t, err)
	}

	list, err := svc.ListComments(context.Background(), hod, "syl-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, "second", list[1].Content)
	assert.Equal(t, "third", list[2].Content)
	assert.Equal(t, "Assessment", *list[0].Section)

	_, err = svc.ListComments(context.Background(), student, "syl-1")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestDeleteComment(t *testing.T) {
	svc, _, _, comments := newCollaboration(models.SyllabusStatusDraft)
	note, err := svc.AddComment(context.Background(), owner, "syl-1", dto.AddCommentRequest{Content: "draft note"})
	require.NoError(t, err)
	comments.comments = append(comments.comments, models.ReviewComment{
		ID: "official", SyllabusID: "syl-1", AuthorID: hod.UserID, AuthorRole: models.RoleHOD,
		Kind: models.CommentKindOfficialRejectionReason, Content: "x",
	})

	require.ErrorIs(t, svc.DeleteComment(context.Background(), otherLect, note.ID), appErrors.ErrForbidden)
	require.ErrorIs(t, svc.DeleteComment(context.Background(), admin, "official"), appErrors.ErrForbidden)
	require.ErrorIs(t, svc.DeleteComment(context.Background(), hod, "official"), appErrors.ErrForbidden)
	require.NoError(t, svc.DeleteComment(context.Background(), owner, note.ID))
	require.ErrorIs(t, svc.DeleteComment(context.Background(), owner, note.ID), appErrors.ErrNotFound)
	assert.Len(t, comments.comments, 1)
}

func TestRemoveCollaborator(t *testing.T) {
	svc, syllabi, store, _ := newCollaboration(models.SyllabusStatusDraft)
	_, err := svc.Assign(context.Background(), owner, "syl-1", dto.AssignCollaboratorsRequest{CollaboratorIDs: []string{"lect-2"}})
	require.NoError(t, err)

	require.ErrorIs(t, svc.RemoveCollaborator(context.Background(), otherLect, "syl-1", "lect-2"), appErrors.ErrForbidden)
	require.ErrorIs(t, svc.RemoveCollaborator(context.Background(), hod, "syl-1", "lect-7"), appErrors.ErrNotFound)

	list, err := svc.ListCollaborators(context.Background(), hod, "syl-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	syllabi.docs["syl-1"].Status = models.SyllabusStatusPendingHOD
	require.ErrorIs(t, svc.RemoveCollaborator(context.Background(), hod, "syl-1", "lect-2"), appErrors.ErrInvalidState)

	syllabi.docs["syl-1"].Status = models.SyllabusStatusDraft
	require.NoError(t, svc.RemoveCollaborator(context.Background(), hod, "syl-1", "lect-2"))
	assert.Empty(t, store.assignments)
}
