package dto

import (
	"evidence-intel-be/internal/entity"

	"github.com/google/uuid"
)

// RunDiscoveryResponse always reports success with whatever partial data the
// fan-out produced; failures live in Errors and the per-source statuses.
type RunDiscoveryResponse struct {
	SessionId uuid.UUID              `json:"session_id"`
	Status    string                 `json:"status"` // completed | partial
	Progress  int                    `json:"progress"`
	Sources   []*entity.SourceResult `json:"sources"`
	Errors    []string               `json:"errors"`
	Phase     entity.Phase           `json:"phase"`
}

type GenerateRecommendationsResponse struct {
	SessionId       uuid.UUID                 `json:"session_id"`
	Recommendations *entity.RecommendationSet `json:"recommendations"`
	SeededApprovals int                       `json:"seeded_approvals"`
	Phase           entity.Phase              `json:"phase"`
}
