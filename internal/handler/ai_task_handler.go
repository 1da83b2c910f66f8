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

type aiTaskService interface {
	StartJob(ctx context.Context, actor models.Identity, req dto.StartAITaskRequest) (*dto.AITaskAcceptedResponse, error)
	GetStatus(ctx context.Context, actor models.Identity, taskID string) (*dto.AITaskStatusResponse, error)
}

// AITaskHandler exposes the start-job / get-status API.
type AITaskHandler struct {
	service aiTaskService
}

// NewAITaskHandler constructs the handler.
func NewAITaskHandler(svc aiTaskService) *AITaskHandler {
	return &AITaskHandler{service: svc}
}

// Start godoc
// @Summary Start an AI analysis
// @Tags AI
// @Accept json
// @Produce json
// @Param payload body dto.StartAITaskRequest true "Task"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /ai/tasks [post]
func (h *AITaskHandler) Start(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.StartAITaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	accepted, err := h.service.StartJob(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, accepted)
}

// Status godoc
// @Summary AI task status
// @Description Unknown or expired tasks report status NOT_FOUND with HTTP 200.
// @Tags AI
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /ai/tasks/{id}/status [get]
func (h *AITaskHandler) Status(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.service.GetStatus(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
