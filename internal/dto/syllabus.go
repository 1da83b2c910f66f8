package dto

import (
	"encoding/json"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

// CreateSyllabusRequest captures POST /syllabi payload.
type CreateSyllabusRequest struct {
	SubjectID         string          `json:"subjectId" validate:"required"`
	AcademicTermID    string          `json:"academicTermId" validate:"required"`
	Content           json.RawMessage `json:"content" swaggertype:"object"`
	PreviousVersionID *string         `json:"previousVersionId,omitempty"`
}

// UpdateContentRequest replaces the opaque syllabus content.
type UpdateContentRequest struct {
	Content json.RawMessage `json:"content" validate:"required" swaggertype:"object"`
}

// TransitionRequest asks the lifecycle engine to execute an action.
// Reason is required by reject, unpublish, request_revision and deactivate.
// EffectiveDate (YYYY-MM-DD) is required by publish and optional for republish.
// Summary is required by submit_revision. Both notes are capped at 5000 characters.
type TransitionRequest struct {
	Action        models.SyllabusAction `json:"action" validate:"required"`
	Reason        string                `json:"reason,omitempty"`
	EffectiveDate string                `json:"effectiveDate,omitempty"`
	Summary       string                `json:"summary,omitempty"`
}

// SyllabusQuery captures listing filters.
type SyllabusQuery struct {
	Status         []models.SyllabusStatus
	OwnerID        string
	SubjectID      string
	AcademicTermID string
	Page           int
	PageSize       int
}
