package models

import "time"

// ApprovalHistory is the audit row written for every executed lifecycle transition.
type ApprovalHistory struct {
	ID         string         `db:"id" json:"id"`
	SyllabusID string         `db:"syllabus_id" json:"syllabusId"`
	Action     SyllabusAction `db:"action" json:"action"`
	FromStatus SyllabusStatus `db:"from_status" json:"fromStatus"`
	ToStatus   SyllabusStatus `db:"to_status" json:"toStatus"`
	ActorID    string         `db:"actor_id" json:"actorId"`
	ActorRole  UserRole       `db:"actor_role" json:"actorRole"`
	Comment    *string        `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}
