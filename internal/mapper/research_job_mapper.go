package mapper

import (
	"time"

	"evidence-intel-be/internal/entity"
	"evidence-intel-be/internal/model"
)

type ResearchJobMapper struct{}

func NewResearchJobMapper() *ResearchJobMapper {
	return &ResearchJobMapper{}
}

func (m *ResearchJobMapper) ToEntity(j *model.ResearchJob) *entity.ResearchJob {
	if j == nil {
		return nil
	}

	e := &entity.ResearchJob{
		Id:           j.Id,
		SessionId:    j.SessionId,
		TargetId:     j.TargetId,
		Status:       entity.JobStatus(j.Status),
		Progress:     j.Progress,
		CurrentStage: j.CurrentStage,
		Error:        j.Error,
		CreatedAt:    j.CreatedAt,
		CompletedAt:  j.CompletedAt,
	}
	if !j.UpdatedAt.IsZero() {
		t := j.UpdatedAt
		e.UpdatedAt = &t
	}

	unmarshalJSON(j.Stages, &e.Stages)
	unmarshalJSON(j.Result, &e.Result)
	if e.Result == nil {
		e.Result = make(map[string]string)
	}
	return e
}

func (m *ResearchJobMapper) ToModel(e *entity.ResearchJob) *model.ResearchJob {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.ResearchJob{
		Id:           e.Id,
		SessionId:    e.SessionId,
		TargetId:     e.TargetId,
		Status:       string(e.Status),
		Progress:     e.Progress,
		CurrentStage: e.CurrentStage,
		Stages:       marshalJSON(e.Stages),
		Error:        e.Error,
		Result:       marshalJSON(e.Result),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    updatedAt,
		CompletedAt:  e.CompletedAt,
	}
}

func (m *ResearchJobMapper) ToEntities(jobs []*model.ResearchJob) []*entity.ResearchJob {
	entities := make([]*entity.ResearchJob, len(jobs))
	for i, j := range jobs {
		entities[i] = m.ToEntity(j)
	}
	return entities
}
