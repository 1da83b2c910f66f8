package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
)

type collaborationServiceMock struct {
	assignReq   dto.AssignCollaboratorsRequest
	listUserID  string
	removed     [2]string
	comment     *models.ReviewComment
	err         error
}

func (m *collaborationServiceMock) Assign(ctx context.Context, actor models.Identity, syllabusID string, req dto.AssignCollaboratorsRequest) (*dto.AssignCollaboratorsResponse, error) {
	m.assignReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.AssignCollaboratorsResponse{SyllabusVersionID: syllabusID, CollaboratorIDs: req.CollaboratorIDs, Created: len(req.CollaboratorIDs)}, nil
}

func (m *collaborationServiceMock) ListForUser(ctx context.Context, actor models.Identity, userID string) ([]models.CollaborationQueueItem, error) {
	m.listUserID = userID
	return []models.CollaborationQueueItem{}, m.err
}

func (m *collaborationServiceMock) ListCollaborators(ctx context.Context, actor models.Identity, syllabusID string) ([]models.CollaborationAssignment, error) {
	return nil, m.err
}

func (m *collaborationServiceMock) RemoveCollaborator(ctx context.Context, actor models.Identity, syllabusID, userID string) error {
	m.removed = [2]string{syllabusID, userID}
	return m.err
}

func (m *collaborationServiceMock) AddComment(ctx context.Context, actor models.Identity, syllabusID string, req dto.AddCommentRequest) (*models.ReviewComment, error) {
	return m.comment, m.err
}

func (m *collaborationServiceMock) ListComments(ctx context.Context, actor models.Identity, syllabusID string) ([]models.ReviewComment, error) {
	return []models.ReviewComment{}, m.err
}

func (m *collaborationServiceMock) DeleteComment(ctx context.Context, actor models.Identity, commentID string) error {
	return m.err
}

func TestCollaborationHandlerAssign(t *testing.T) {
	mock := &collaborationServiceMock{}
	h := NewCollaborationHandler(mock)

	payload, _ := json.Marshal(dto.AssignCollaboratorsRequest{CollaboratorIDs: []string{"lect-2", "lect-3"}})
	c, w := newTestContext(http.MethodPost, "/syllabi/syl-1/collaborators", payload)
	c.Params = gin.Params{{Key: "id", Value: "syl-1"}}
	withClaims(c, "hod-1", models.RoleHOD)

	h.Assign(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"lect-2", "lect-3"}, mock.assignReq.CollaboratorIDs)
	assert.JSONEq(t, `{"syllabusVersionId":"syl-1","collaboratorIds":["lect-2","lect-3"],"created":2}`, string(decodeEnvelope(t, w).Data))
}

func TestCollaborationHandlerRemoveAndErrors(t *testing.T) {
	mock := &collaborationServiceMock{}
	h := NewCollaborationHandler(mock)

	c, w := newTestContext(http.MethodDelete, "/syllabi/syl-1/collaborators/lect-2", nil)
	c.Params = gin.Params{{Key: "id", Value: "syl-1"}, {Key: "userId", Value: "lect-2"}}
	withClaims(c, "lect-1", models.RoleLecturer)
	h.RemoveCollaborator(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, [2]string{"syl-1", "lect-2"}, mock.removed)

	mock.err = appErrors.Clone(appErrors.ErrForbidden, "official rejection reasons cannot be deleted")
	c, w = newTestContext(http.MethodDelete, "/comments/c-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "c-1"}}
	withClaims(c, "admin-1", models.RoleAdmin)
	h.DeleteComment(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCollaborationHandlerMyAssignments(t *testing.T) {
	mock := &collaborationServiceMock{}
	h := NewCollaborationHandler(mock)

	c, w := newTestContext(http.MethodGet, "/collaborations/me?userId=lect-7", nil)
	withClaims(c, "hod-1", models.RoleHOD)
	h.MyAssignments(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lect-7", mock.listUserID)
}

func TestCollaborationHandlerAddComment(t *testing.T) {
	mock := &collaborationServiceMock{comment: &models.ReviewComment{ID: "c-1", Kind: models.CommentKindCollaboratorNote, Content: "ok"}}
	h := NewCollaborationHandler(mock)

	c, w := newTestContext(http.MethodPost, "/syllabi/syl-1/comments", []byte(`{"content":"ok"}`))
	withClaims(c, "lect-2", models.RoleLecturer)
	h.AddComment(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"COLLABORATOR_NOTE"`)
}
