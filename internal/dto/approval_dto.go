package dto

import (
	"evidence-intel-be/internal/entity"

	"github.com/google/uuid"
)

type UpdateApprovalRequest struct {
	SourceType string                 `json:"source_type" validate:"required"`
	SourceId   string                 `json:"source_id" validate:"required"`
	Status     string                 `json:"status" validate:"required,oneof=pending approved rejected"`
	Reason     string                 `json:"reason"`
	Actor      string                 `json:"actor"`
	Settings   map[string]interface{} `json:"settings"`
}

type UpdateApprovalResponse struct {
	SessionId uuid.UUID               `json:"session_id"`
	Approval  *entity.SourceApproval  `json:"approval"`
	Summary   *entity.ApprovalSummary `json:"summary"`
}

type InitializeApprovalsResponse struct {
	SessionId uuid.UUID               `json:"session_id"`
	Seeded    int                     `json:"seeded"`
	Summary   *entity.ApprovalSummary `json:"summary"`
}

type SubmitFeedbackRequest struct {
	Text              string `json:"text" validate:"required"`
	RequestReanalysis bool   `json:"request_reanalysis"`
	Actor             string `json:"actor"`
}

type SubmitFeedbackResponse struct {
	SessionId     uuid.UUID `json:"session_id"`
	FeedbackCount int       `json:"feedback_count"`
}

type FinalizeRequest struct {
	Actor string `json:"actor"`
}

type FinalizeResponse struct {
	SessionId  uuid.UUID               `json:"session_id"`
	CanProceed bool                    `json:"can_proceed"`
	Summary    *entity.ApprovalSummary `json:"summary"`
	Phase      entity.Phase            `json:"phase"`
}

type AuditResponse struct {
	SessionId uuid.UUID               `json:"session_id"`
	Entries   []entity.AuditEntry     `json:"entries"`
	Summary   *entity.ApprovalSummary `json:"summary"`
}
