package dto

import (
	"time"

	"evidence-intel-be/internal/entity"

	"github.com/google/uuid"
)

// ProgressEvent is emitted on the websocket stream whenever the session phase
// or job status changes, plus one terminal event at the end of the stream.
type ProgressEvent struct {
	SessionId     uuid.UUID                            `json:"session_id"`
	Phase         entity.Phase                         `json:"phase"`
	PhaseProgress map[entity.Phase]*entity.PhaseStatus `json:"phase_progress"`
	JobId         *uuid.UUID                           `json:"job_id,omitempty"`
	JobStatus     entity.JobStatus                     `json:"job_status,omitempty"`
	JobProgress   int                                  `json:"job_progress"`
	Stage         string                               `json:"stage,omitempty"`
	StageLabel    string                               `json:"stage_label,omitempty"`
	Terminal      bool                                 `json:"terminal"`
	Error         string                               `json:"error,omitempty"`
	Timestamp     time.Time                            `json:"timestamp"`
}

// ResearchProgressMessage is the watermill payload published by the research
// engine after every stage transition.
type ResearchProgressMessage struct {
	SessionId  uuid.UUID        `json:"session_id"`
	JobId      uuid.UUID        `json:"job_id"`
	Owner      string           `json:"owner,omitempty"`
	Product    string           `json:"product,omitempty"`
	Status     entity.JobStatus `json:"status"`
	Progress   int              `json:"progress"`
	Stage      string           `json:"stage"`
	StageLabel string           `json:"stage_label"`
	Terminal   bool             `json:"terminal"`
	Error      string           `json:"error,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
