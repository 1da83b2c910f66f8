package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/middleware"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	"github.com/noah-isme/smd-syllabus-api/internal/service"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
	"github.com/noah-isme/smd-syllabus-api/pkg/response"
)

type syllabusService interface {
	CreateDraft(ctx context.Context, actor models.Identity, req dto.CreateSyllabusRequest) (*models.Syllabus, error)
	Get(ctx context.Context, actor models.Identity, id string) (*models.Syllabus, error)
	List(ctx context.Context, actor models.Identity, query dto.SyllabusQuery) ([]models.Syllabus, *models.Pagination, error)
	UpdateContent(ctx context.Context, actor models.Identity, id string, req dto.UpdateContentRequest) (*models.Syllabus, error)
	Transition(ctx context.Context, actor models.Identity, id string, req dto.TransitionRequest) (*models.Syllabus, error)
	History(ctx context.Context, actor models.Identity, id string) ([]models.ApprovalHistory, error)
	RevisionSessions(ctx context.Context, actor models.Identity, id string) ([]models.RevisionSession, error)
	ActiveRevision(ctx context.Context, actor models.Identity, id string) (*models.RevisionSession, error)
}

// SyllabusHandler exposes the document lifecycle endpoints.
type SyllabusHandler struct {
	service syllabusService
}

// NewSyllabusHandler constructs the handler.
func NewSyllabusHandler(svc syllabusService) *SyllabusHandler {
	return &SyllabusHandler{service: svc}
}

// Create godoc
// @Summary Create a syllabus draft
// @Tags Syllabi
// @Accept json
// @Produce json
// @Param payload body dto.CreateSyllabusRequest true "Draft payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /syllabi [post]
func (h *SyllabusHandler) Create(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateSyllabusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	doc, err := h.service.CreateDraft(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List godoc
// @Summary List syllabi
// @Tags Syllabi
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param ownerId query string false "Owner"
// @Param subjectId query string false "Subject"
// @Param academicTermId query string false "Academic term"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /syllabi [get]
func (h *SyllabusHandler) List(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.SyllabusQuery{
		OwnerID:        c.Query("ownerId"),
		SubjectID:      c.Query("subjectId"),
		AcademicTermID: c.Query("academicTermId"),
	}
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			status := models.SyllabusStatus(strings.ToUpper(strings.TrimSpace(part)))
			if status == "" {
				continue
			}
			if !status.Valid() {
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(status)))
				return
			}
			query.Status = append(query.Status, status)
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("pageSize", "20")); err == nil {
		query.PageSize = size
	}

	docs, pagination, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, pagination)
}

// Get godoc
// @Summary Get a syllabus
// @Description meta.actions lists the transitions the caller may attempt.
// @Tags Syllabi
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /syllabi/{id} [get]
func (h *SyllabusHandler) Get(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondDocument(c, http.StatusOK, doc, actor)
}

// UpdateContent godoc
// @Summary Replace syllabus content
// @Tags Syllabi
// @Accept json
// @Produce json
// @Param id path string true "Syllabus ID"
// @Param payload body dto.UpdateContentRequest true "Content"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /syllabi/{id}/content [put]
func (h *SyllabusHandler) UpdateContent(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	doc, err := h.service.UpdateContent(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondDocument(c, http.StatusOK, doc, actor)
}

// Transition godoc
// @Summary Execute a lifecycle action
// @Tags Syllabi
// @Accept json
// @Produce json
// @Param id path string true "Syllabus ID"
// @Param payload body dto.TransitionRequest true "Action"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /syllabi/{id}/transitions [post]
func (h *SyllabusHandler) Transition(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	doc, err := h.service.Transition(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondDocument(c, http.StatusOK, doc, actor)
}

// History godoc
// @Summary Approval history
// @Tags Syllabi
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/history [get]
func (h *SyllabusHandler) History(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	history, err := h.service.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Revisions godoc
// @Summary Revision sessions
// @Tags Syllabi
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/revisions [get]
func (h *SyllabusHandler) Revisions(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	sessions, err := h.service.RevisionSessions(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// ActiveRevision godoc
// @Summary Open revision session
// @Tags Syllabi
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /syllabi/{id}/revisions/active [get]
func (h *SyllabusHandler) ActiveRevision(c *gin.Context) {
	actor, err := identityFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	session, err := h.service.ActiveRevision(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

func (h *SyllabusHandler) respondDocument(c *gin.Context, status int, doc *models.Syllabus, actor models.Identity) {
	middleware.SetMeta(c, "actions", service.AvailableActions(doc, actor))
	response.JSON(c, status, doc, nil, middleware.ExtractMeta(c))
}
