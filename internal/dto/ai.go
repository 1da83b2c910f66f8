package dto

import (
	"encoding/json"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

// StartAITaskRequest captures POST /ai/tasks payload.
type StartAITaskRequest struct {
	Kind   models.AITaskKind   `json:"kind" validate:"required,oneof=CLO_PLO_CHECK VERSION_COMPARE SUMMARIZE"`
	Params models.AITaskParams `json:"params"`
}

// AITaskAcceptedResponse is returned after a job has been queued.
type AITaskAcceptedResponse struct {
	TaskID string              `json:"taskId"`
	Kind   models.AITaskKind   `json:"kind"`
	Status models.AITaskStatus `json:"status"`
}

// AITaskStatusResponse is the get-status contract consumed by task pollers.
type AITaskStatusResponse struct {
	TaskID   string              `json:"taskId"`
	Status   models.AITaskStatus `json:"status"`
	Progress int                 `json:"progress"`
	Result   json.RawMessage     `json:"result,omitempty" swaggertype:"object"`
	Error    string              `json:"error,omitempty"`
}
