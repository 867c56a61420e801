package dto

import (
	"time"

	"evidence-intel-be/internal/entity"

	"github.com/google/uuid"
)

type StartSessionRequest struct {
	Name         string   `json:"name" validate:"required"`
	Indication   string   `json:"indication" validate:"required"`
	Technologies []string `json:"technologies"`
	ProtocolId   string   `json:"protocol_id"`
	StudyPhase   string   `json:"study_phase"`
}

type StartSessionResponse struct {
	Id           uuid.UUID    `json:"id"`
	CurrentPhase entity.Phase `json:"current_phase"`
}

// SessionResponse is the full steward-facing snapshot.
type SessionResponse struct {
	Id              uuid.UUID                            `json:"id"`
	Owner           string                               `json:"owner"`
	Product         entity.ProductDescriptor             `json:"product"`
	CurrentPhase    entity.Phase                         `json:"current_phase"`
	PhaseProgress   map[entity.Phase]*entity.PhaseStatus `json:"phase_progress"`
	Cancelled       bool                                 `json:"cancelled"`
	Discovery       *entity.DiscoveryResult              `json:"discovery,omitempty"`
	Recommendations *entity.RecommendationSet            `json:"recommendations,omitempty"`
	ResearchReports map[string]string                    `json:"research_reports,omitempty"`
	Brief           string                               `json:"brief,omitempty"`
	CreatedAt       time.Time                            `json:"created_at"`
	UpdatedAt       *time.Time                           `json:"updated_at,omitempty"`
}

// NewSessionResponse maps the entity onto the API snapshot.
func NewSessionResponse(s *entity.Session) *SessionResponse {
	return &SessionResponse{
		Id:              s.Id,
		Owner:           s.Owner,
		Product:         s.Product,
		CurrentPhase:    s.CurrentPhase,
		PhaseProgress:   s.PhaseProgress,
		Cancelled:       s.Cancelled,
		Discovery:       s.Discovery,
		Recommendations: s.Recommendations,
		ResearchReports: s.ResearchReports,
		Brief:           s.Brief,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

type CancelSessionResponse struct {
	Id        uuid.UUID `json:"id"`
	Cancelled bool      `json:"cancelled"`
}
