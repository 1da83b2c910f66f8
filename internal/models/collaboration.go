package models

import "time"

// CollaborationAssignment grants a lecturer read and comment access to a draft they do not own.
type CollaborationAssignment struct {
	SyllabusVersionID string    `db:"syllabus_version_id" json:"syllabusVersionId"`
	CollaboratorID    string    `db:"collaborator_id" json:"collaboratorId"`
	AssignedBy        string    `db:"assigned_by" json:"assignedBy"`
	AssignedAt        time.Time `db:"assigned_at" json:"assignedAt"`
}

// CollaborationQueueItem is an active assignment joined with its target document.
type CollaborationQueueItem struct {
	CollaborationAssignment
	SubjectID      string         `db:"subject_id" json:"subjectId"`
	AcademicTermID string         `db:"academic_term_id" json:"academicTermId"`
	OwnerID        string         `db:"owner_id" json:"ownerId"`
	Status         SyllabusStatus `db:"status" json:"status"`
	Version        int            `db:"version" json:"version"`
}
