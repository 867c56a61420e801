package entity

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a background research job.
type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobComplete JobStatus = "complete"
	JobFailed   JobStatus = "failed"
)

// StageStatus mirrors JobStatus at stage granularity.
type StageStatus string

const (
	StagePending  StageStatus = "pending"
	StageRunning  StageStatus = "running"
	StageComplete StageStatus = "complete"
	StageFailed   StageStatus = "failed"
)

// Pipeline stage names, in execution order. Each completed stage advances job
// progress by a fixed 20 percent; there is no intra-stage progress.
const (
	StageDataIngestion       = "data_ingestion"
	StageCompetitiveAnalysis = "competitive_analysis"
	StageStateOfArtSynthesis = "state_of_art_synthesis"
	StageRegulatoryAnalysis  = "regulatory_analysis"
	StageReportGeneration    = "report_generation"
)

// StageOrder drives the pipeline and the progress math.
var StageOrder = []string{
	StageDataIngestion,
	StageCompetitiveAnalysis,
	StageStateOfArtSynthesis,
	StageRegulatoryAnalysis,
	StageReportGeneration,
}

// StageLabels are the human-readable names shown in progress streams.
var StageLabels = map[string]string{
	StageDataIngestion:       "Ingesting discovery data",
	StageCompetitiveAnalysis: "Analyzing competitive landscape",
	StageStateOfArtSynthesis: "Synthesizing state of the art",
	StageRegulatoryAnalysis:  "Analyzing regulatory posture",
	StageReportGeneration:    "Generating final report",
}

// JobStage is one unit of work in the research pipeline. A stage-local failure
// is recorded here and the pipeline continues to the next stage.
type JobStage struct {
	Name        string      `json:"name"`
	Label       string      `json:"label"`
	Status      StageStatus `json:"status"`
	Progress    int         `json:"progress"`
	Error       string      `json:"error,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// ResearchJob is the persisted record of one background synthesis run.
type ResearchJob struct {
	Id           uuid.UUID
	SessionId    uuid.UUID
	TargetId     string // the product protocol id the synthesis targets
	Status       JobStatus
	Progress     int // 0..100, non-decreasing while running
	CurrentStage string
	Stages       []*JobStage
	Error        string
	Result       map[string]string // stage name -> produced report section
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	CompletedAt  *time.Time
}

// NewResearchJob allocates a job with every stage pending.
func NewResearchJob(sessionId uuid.UUID, targetId string) *ResearchJob {
	stages := make([]*JobStage, 0, len(StageOrder))
	for _, name := range StageOrder {
		stages = append(stages, &JobStage{
			Name:   name,
			Label:  StageLabels[name],
			Status: StagePending,
		})
	}
	return &ResearchJob{
		Id:           uuid.New(),
		SessionId:    sessionId,
		TargetId:     targetId,
		Status:       JobPending,
		CurrentStage: StageOrder[0],
		Stages:       stages,
		Result:       make(map[string]string),
		CreatedAt:    time.Now(),
	}
}

// Stage returns the stage with the given name, or nil.
func (j *ResearchJob) Stage(name string) *JobStage {
	for _, s := range j.Stages {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// IsTerminal reports whether the job can no longer change state.
func (j *ResearchJob) IsTerminal() bool {
	return j.Status == JobComplete || j.Status == JobFailed
}
