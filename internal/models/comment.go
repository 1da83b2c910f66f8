package models

import "time"

// CommentKind distinguishes informal review notes from formal rejection reasons.
type CommentKind string

const (
	CommentKindCollaboratorNote        CommentKind = "COLLABORATOR_NOTE"
	CommentKindOfficialRejectionReason CommentKind = "OFFICIAL_REJECTION_REASON"
)

// ReviewComment is an append-only note in a syllabus discussion timeline.
type ReviewComment struct {
	ID         string      `db:"id" json:"id"`
	Seq        int64       `db:"seq" json:"-"`
	SyllabusID string      `db:"syllabus_id" json:"syllabusId"`
	AuthorID   string      `db:"author_id" json:"authorId"`
	AuthorRole UserRole    `db:"author_role" json:"authorRole"`
	Section    *string     `db:"section" json:"section,omitempty"`
	Content    string      `db:"content" json:"content"`
	Kind       CommentKind `db:"kind" json:"kind"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
}
