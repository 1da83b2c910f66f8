package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
	"github.com/noah-isme/smd-syllabus-api/pkg/response"
)

type collaborationService interface {
	Assign(ctx context.Context, actor models.Identity, syllabusID string, req dto.AssignCollaboratorsRequest) (*dto.AssignCollaboratorsResponse, error)
	ListForUser(ctx context.Context, actor models.Identity, userID string) ([]models.CollaborationQueueItem, error)
	ListCollaborators(ctx context.Context, actor models.Identity, syllabusID string) ([]models.CollaborationAssignment, error)
	RemoveCollaborator(ctx context.Context, actor models.Identity, syllabusID, userID string) error
	AddComment(ctx context.Context, actor models.Identity, syllabusID string, req dto.AddCommentRequest) (*models.ReviewComment, error)
	ListComments(ctx context.Context, actor models.Identity, syllabusID string) ([]models.ReviewComment, error)
	DeleteComment(ctx context.Context, actor models.Identity, commentID string) error
}

// CollaborationHandler exposes reviewer assignment and comment endpoints.
type CollaborationHandler struct {
	service collaborationService
}

// NewCollaborationHandler constructs the handler.
func NewCollaborationHandler(svc collaborationService) *CollaborationHandler {
	return &CollaborationHandler{service: svc}
}

// Assign godoc
// @Summary Assign collaborators to a draft
// @Tags Collaboration
// @Accept json
// @Produce json
// @Param id path string true "Syllabus ID"
// @Param payload body dto.AssignCollaboratorsRequest true "Collaborators"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /syllabi/{id}/collaborators [post]
func (h *CollaborationHandler) Assign(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AssignCollaboratorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	result, err := h.service.Assign(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListCollaborators godoc
// @Summary List collaborators of a syllabus
// @Tags Collaboration
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/collaborators [get]
func (h *CollaborationHandler) ListCollaborators(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	assignments, err := h.service.ListCollaborators(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// RemoveCollaborator godoc
// @Summary Remove a collaborator
// @Tags Collaboration
// @Param id path string true "Syllabus ID"
// @Param userId path string true "Collaborator ID"
// @Success 204
// @Router /syllabi/{id}/collaborators/{userId} [delete]
func (h *CollaborationHandler) RemoveCollaborator(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.RemoveCollaborator(c.Request.Context(), actor, c.Param("id"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MyAssignments godoc
// @Summary Active review assignments
// @Description HOD and ADMIN may pass userId to inspect another user's queue.
// @Tags Collaboration
// @Produce json
// @Param userId query string false "User ID"
// @Success 200 {object} response.Envelope
// @Router /collaborations/me [get]
func (h *CollaborationHandler) MyAssignments(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.ListForUser(c.Request.Context(), actor, c.Query("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// AddComment godoc
// @Summary Add a review comment
// @Tags Collaboration
// @Accept json
// @Produce json
// @Param id path string true "Syllabus ID"
// @Param payload body dto.AddCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /syllabi/{id}/comments [post]
func (h *CollaborationHandler) AddComment(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	comment, err := h.service.AddComment(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// ListComments godoc
// @Summary Discussion timeline
// @Tags Collaboration
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/comments [get]
func (h *CollaborationHandler) ListComments(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	comments, err := h.service.ListComments(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

// DeleteComment godoc
// @Summary Delete a review note
// @Tags Collaboration
// @Param id path string true "Comment ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /comments/{id} [delete]
func (h *CollaborationHandler) DeleteComment(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.DeleteComment(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
