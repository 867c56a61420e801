package dto

import (
	"time"

	"evidence-intel-be/internal/entity"

	"github.com/google/uuid"
)

type StartResearchResponse struct {
	JobId     uuid.UUID `json:"job_id"`
	SessionId uuid.UUID `json:"session_id"`
	Status    string    `json:"status"`
}

// ResearchJobResponse is a read-only snapshot of one job.
type ResearchJobResponse struct {
	Id           uuid.UUID          `json:"id"`
	SessionId    uuid.UUID          `json:"session_id"`
	TargetId     string             `json:"target_id"`
	Status       entity.JobStatus   `json:"status"`
	Progress     int                `json:"progress"`
	CurrentStage string             `json:"current_stage"`
	Stages       []*entity.JobStage `json:"stages"`
	Error        string             `json:"error,omitempty"`
	Result       map[string]string  `json:"result,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
}

func NewResearchJobResponse(j *entity.ResearchJob) *ResearchJobResponse {
	return &ResearchJobResponse{
		Id:           j.Id,
		SessionId:    j.SessionId,
		TargetId:     j.TargetId,
		Status:       j.Status,
		Progress:     j.Progress,
		CurrentStage: j.CurrentStage,
		Stages:       j.Stages,
		Error:        j.Error,
		Result:       j.Result,
		CreatedAt:    j.CreatedAt,
		CompletedAt:  j.CompletedAt,
	}
}

type CancelResearchResponse struct {
	JobId     uuid.UUID        `json:"job_id"`
	Status    entity.JobStatus `json:"status"`
	Cancelled bool             `json:"cancelled"` // false when the job was already terminal
	Message   string           `json:"message,omitempty"`
}
