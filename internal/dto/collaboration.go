package dto

// AssignCollaboratorsRequest captures POST /syllabi/:id/collaborators payload.
type AssignCollaboratorsRequest struct {
	CollaboratorIDs []string `json:"collaboratorIds" validate:"required,min=1,dive,required"`
}

// AssignCollaboratorsResponse reports how many new assignments were created.
type AssignCollaboratorsResponse struct {
	SyllabusVersionID string   `json:"syllabusVersionId"`
	CollaboratorIDs   []string `json:"collaboratorIds"`
	Created           int      `json:"created"`
}

// AddCommentRequest captures POST /syllabi/:id/comments payload.
type AddCommentRequest struct {
	Content string  `json:"content" validate:"required,max=5000"`
	Section *string `json:"section,omitempty" validate:"omitempty,max=120"`
}
