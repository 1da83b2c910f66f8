package models

import "time"

// HODDecision records the department head's verdict on a submitted revision.
type HODDecision string

const (
	HODDecisionApproved HODDecision = "APPROVED"
	HODDecisionRejected HODDecision = "REJECTED"
)

// RevisionSession tracks one correction round of a rejected or feedback-flagged syllabus.
type RevisionSession struct {
	ID            string       `db:"id" json:"id"`
	SyllabusID    string       `db:"syllabus_id" json:"syllabusId"`
	SessionNumber int          `db:"session_number" json:"sessionNumber"`
	OpenedAt      time.Time    `db:"opened_at" json:"openedAt"`
	OpenedBy      string       `db:"opened_by" json:"openedBy"`
	Summary       *string      `db:"summary" json:"summary,omitempty"`
	ClosedAt      *time.Time   `db:"closed_at" json:"closedAt,omitempty"`
	ClosedBy      *string      `db:"closed_by" json:"closedBy,omitempty"`
	HODDecision   *HODDecision `db:"hod_decision" json:"hodDecision,omitempty"`
	HODReviewedBy *string      `db:"hod_reviewed_by" json:"hodReviewedBy,omitempty"`
	HODReviewedAt *time.Time   `db:"hod_reviewed_at" json:"hodReviewedAt,omitempty"`
}

// Active reports whether the session is still open.
func (s RevisionSession) Active() bool {
	return s.ClosedAt == nil
}
