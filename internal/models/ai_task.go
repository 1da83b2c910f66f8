package models

import (
	"encoding/json"
	"time"
)

// AITaskKind enumerates the AI-assisted analyses the platform can run.
type AITaskKind string

const (
	AITaskKindCLOPLOCheck    AITaskKind = "CLO_PLO_CHECK"
	AITaskKindVersionCompare AITaskKind = "VERSION_COMPARE"
	AITaskKindSummarize      AITaskKind = "SUMMARIZE"
)

// AITaskStatus captures the lifecycle of an asynchronous analysis job.
type AITaskStatus string

const (
	AITaskStatusQueued     AITaskStatus = "QUEUED"
	AITaskStatusProcessing AITaskStatus = "PROCESSING"
	AITaskStatusSuccess    AITaskStatus = "SUCCESS"
	AITaskStatusFailed     AITaskStatus = "FAILED"
	AITaskStatusNotFound   AITaskStatus = "NOT_FOUND"
)

// Terminal reports whether no further status change can happen.
func (s AITaskStatus) Terminal() bool {
	return s == AITaskStatusSuccess || s == AITaskStatusFailed || s == AITaskStatusNotFound
}

// AITaskParams carries the kind-specific inputs of a job.
type AITaskParams struct {
	SyllabusID   string `json:"syllabusId,omitempty"`
	CurriculumID string `json:"curriculumId,omitempty"`
	OldVersionID string `json:"oldVersionId,omitempty"`
	NewVersionID string `json:"newVersionId,omitempty"`
	SubjectID    string `json:"subjectId,omitempty"`
}

// AITask is the stored state of one analysis job.
type AITask struct {
	TaskID    string          `json:"taskId"`
	Kind      AITaskKind      `json:"kind"`
	Status    AITaskStatus    `json:"status"`
	Progress  int             `json:"progress"`
	Params    AITaskParams    `json:"params"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedBy string          `json:"createdBy"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
