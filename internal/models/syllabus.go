package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SyllabusStatus enumerates the lifecycle states of a syllabus document.
type SyllabusStatus string

const (
	SyllabusStatusDraft                 SyllabusStatus = "DRAFT"
	SyllabusStatusPendingHOD            SyllabusStatus = "PENDING_HOD"
	SyllabusStatusPendingAA             SyllabusStatus = "PENDING_AA"
	SyllabusStatusPendingPrincipal      SyllabusStatus = "PENDING_PRINCIPAL"
	SyllabusStatusApproved              SyllabusStatus = "APPROVED"
	SyllabusStatusPublished             SyllabusStatus = "PUBLISHED"
	SyllabusStatusArchived              SyllabusStatus = "ARCHIVED"
	SyllabusStatusRejected              SyllabusStatus = "REJECTED"
	SyllabusStatusRevisionInProgress    SyllabusStatus = "REVISION_IN_PROGRESS"
	SyllabusStatusPendingHODRevision    SyllabusStatus = "PENDING_HOD_REVISION"
	SyllabusStatusPendingAdminRepublish SyllabusStatus = "PENDING_ADMIN_REPUBLISH"
	SyllabusStatusInactive              SyllabusStatus = "INACTIVE"
)

// AllSyllabusStatuses lists every lifecycle state.
var AllSyllabusStatuses = []SyllabusStatus{
	SyllabusStatusDraft,
	SyllabusStatusPendingHOD,
	SyllabusStatusPendingAA,
	SyllabusStatusPendingPrincipal,
	SyllabusStatusApproved,
	SyllabusStatusPublished,
	SyllabusStatusArchived,
	SyllabusStatusRejected,
	SyllabusStatusRevisionInProgress,
	SyllabusStatusPendingHODRevision,
	SyllabusStatusPendingAdminRepublish,
	SyllabusStatusInactive,
}

// EditableStatuses are the states in which the owner may change content.
var EditableStatuses = []SyllabusStatus{
	SyllabusStatusDraft,
	SyllabusStatusRejected,
	SyllabusStatusRevisionInProgress,
}

// Valid reports whether s is a known lifecycle state.
func (s SyllabusStatus) Valid() bool {
	for _, status := range AllSyllabusStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// Editable reports whether the owner may mutate content in this state.
func (s SyllabusStatus) Editable() bool {
	for _, status := range EditableStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// SyllabusAction names a lifecycle transition request.
type SyllabusAction string

const (
	ActionSubmit          SyllabusAction = "submit"
	ActionApprove         SyllabusAction = "approve"
	ActionReject          SyllabusAction = "reject"
	ActionPublish         SyllabusAction = "publish"
	ActionUnpublish       SyllabusAction = "unpublish"
	ActionStartRevision   SyllabusAction = "start_revision"
	ActionSubmitRevision  SyllabusAction = "submit_revision"
	ActionRequestRevision SyllabusAction = "request_revision"
	ActionRepublish       SyllabusAction = "republish"
	ActionDeactivate      SyllabusAction = "deactivate"
)

// AllSyllabusActions lists every action the lifecycle engine understands.
var AllSyllabusActions = []SyllabusAction{
	ActionSubmit,
	ActionApprove,
	ActionReject,
	ActionPublish,
	ActionUnpublish,
	ActionStartRevision,
	ActionSubmitRevision,
	ActionRequestRevision,
	ActionRepublish,
	ActionDeactivate,
}

// Valid reports whether a is a known action.
func (a SyllabusAction) Valid() bool {
	for _, action := range AllSyllabusActions {
		if action == a {
			return true
		}
	}
	return false
}

// Syllabus is one version of a course syllabus document.
type Syllabus struct {
	ID                  string         `db:"id" json:"id"`
	SubjectID           string         `db:"subject_id" json:"subjectId"`
	AcademicTermID      string         `db:"academic_term_id" json:"academicTermId"`
	Status              SyllabusStatus `db:"status" json:"status"`
	Version             int            `db:"version" json:"version"`
	OwnerID             string         `db:"owner_id" json:"ownerId"`
	SubmittedAt         *time.Time     `db:"submitted_at" json:"submittedAt,omitempty"`
	HODApprovedAt       *time.Time     `db:"hod_approved_at" json:"hodApprovedAt,omitempty"`
	HODApprovedBy       *string        `db:"hod_approved_by" json:"hodApprovedBy,omitempty"`
	AAApprovedAt        *time.Time     `db:"aa_approved_at" json:"aaApprovedAt,omitempty"`
	AAApprovedBy        *string        `db:"aa_approved_by" json:"aaApprovedBy,omitempty"`
	PrincipalApprovedAt *time.Time     `db:"principal_approved_at" json:"principalApprovedAt,omitempty"`
	PrincipalApprovedBy *string        `db:"principal_approved_by" json:"principalApprovedBy,omitempty"`
	PublishedAt         *time.Time     `db:"published_at" json:"publishedAt,omitempty"`
	PublishedBy         *string        `db:"published_by" json:"publishedBy,omitempty"`
	EffectiveDate       *time.Time     `db:"effective_date" json:"effectiveDate,omitempty"`
	Content             types.JSONText `db:"content" json:"content" swaggertype:"object"`
	PreviousVersionID   *string        `db:"previous_version_id" json:"previousVersionId,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updatedAt"`
}

// SyllabusFilter constrains listing queries.
type SyllabusFilter struct {
	Status         []SyllabusStatus
	OwnerID        string
	SubjectID      string
	AcademicTermID string
	Page           int
	PageSize       int
}
