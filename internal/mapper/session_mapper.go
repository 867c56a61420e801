package mapper

import (
	"encoding/json"
	"time"

	"evidence-intel-be/internal/entity"
	"evidence-intel-be/internal/model"

	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToEntity(s *model.ProfileSession) *entity.Session {
	if s == nil {
		return nil
	}

	e := &entity.Session{
		Id:           s.Id,
		Owner:        s.Owner,
		CurrentPhase: entity.Phase(s.CurrentPhase),
		Cancelled:    s.Cancelled,
		Brief:        s.Brief,
		CreatedAt:    s.CreatedAt,
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		e.UpdatedAt = &t
	}

	// jsonb round trips; a corrupt column degrades to the zero value rather
	// than failing the whole load.
	unmarshalJSON(s.Product, &e.Product)
	unmarshalJSON(s.PhaseProgress, &e.PhaseProgress)
	unmarshalJSON(s.Discovery, &e.Discovery)
	unmarshalJSON(s.Recommendations, &e.Recommendations)
	unmarshalJSON(s.ResearchReports, &e.ResearchReports)
	unmarshalJSON(s.SourceApprovals, &e.SourceApprovals)
	unmarshalJSON(s.AuditLog, &e.AuditLog)
	unmarshalJSON(s.Feedback, &e.Feedback)

	if e.PhaseProgress == nil {
		e.PhaseProgress = make(map[entity.Phase]*entity.PhaseStatus)
	}
	if e.SourceApprovals == nil {
		e.SourceApprovals = make(map[string]*entity.SourceApproval)
	}
	if e.ResearchReports == nil {
		e.ResearchReports = make(map[string]string)
	}
	return e
}

func (m *SessionMapper) ToModel(e *entity.Session) *model.ProfileSession {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.ProfileSession{
		Id:              e.Id,
		Owner:           e.Owner,
		CurrentPhase:    string(e.CurrentPhase),
		Cancelled:       e.Cancelled,
		Product:         marshalJSON(e.Product),
		PhaseProgress:   marshalJSON(e.PhaseProgress),
		Discovery:       marshalJSON(e.Discovery),
		Recommendations: marshalJSON(e.Recommendations),
		ResearchReports: marshalJSON(e.ResearchReports),
		Brief:           e.Brief,
		SourceApprovals: marshalJSON(e.SourceApprovals),
		AuditLog:        marshalJSON(e.AuditLog),
		Feedback:        marshalJSON(e.Feedback),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       updatedAt,
	}
}

func (m *SessionMapper) ToEntities(sessions []*model.ProfileSession) []*entity.Session {
	entities := make([]*entity.Session, len(sessions))
	for i, s := range sessions {
		entities[i] = m.ToEntity(s)
	}
	return entities
}

func marshalJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func unmarshalJSON(data datatypes.JSON, target interface{}) {
	if len(data) == 0 {
		return
	}
	_ = json.Unmarshal(data, target)
}
