package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"evidence-intel-be/internal/dto"
	"evidence-intel-be/internal/entity"
	"evidence-intel-be/internal/pkg/logger"
	"evidence-intel-be/internal/pkg/serverutils"
	"evidence-intel-be/internal/repository/specification"
	"evidence-intel-be/internal/repository/unitofwork"
	"evidence-intel-be/pkg/synthesis"

	"github.com/google/uuid"
)

type IResearchService interface {
	Start(ctx context.Context, sessionId uuid.UUID) (*dto.StartResearchResponse, error)
	GetJob(ctx context.Context, jobId uuid.UUID) (*dto.ResearchJobResponse, error)
	GetLatestBySession(ctx context.Context, sessionId uuid.UUID) (*dto.ResearchJobResponse, error)
	Cancel(ctx context.Context, jobId uuid.UUID) (*dto.CancelResearchResponse, error)
}

// jobHandle is the in-process control block for a running pipeline. done is
// closed by the pipeline goroutine itself, so a canceller can await drain.
type jobHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type researchService struct {
	sessions   ISessionService
	uowFactory unitofwork.RepositoryFactory
	generator  synthesis.Generator
	publisher  IPublisherService
	logger     logger.ILogger
	jobs       sync.Map // job id -> *jobHandle
}

func NewResearchService(
	sessions ISessionService,
	uowFactory unitofwork.RepositoryFactory,
	generator synthesis.Generator,
	publisher IPublisherService,
	sysLogger logger.ILogger,
) IResearchService {
	return &researchService{
		sessions:   sessions,
		uowFactory: uowFactory,
		generator:  generator,
		publisher:  publisher,
		logger:     sysLogger,
	}
}

// Start validates the session, persists a pending job and launches the
// pipeline goroutine. It returns as soon as the job row exists; callers poll
// or subscribe for progress.
func (s *researchService) Start(ctx context.Context, sessionId uuid.UUID) (*dto.StartResearchResponse, error) {
	session, err := s.sessions.LoadSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFoundError("session", sessionId)
	}
	if session.Cancelled {
		return nil, serverutils.NewValidationError("session is cancelled")
	}
	if entity.PhaseIndex(session.CurrentPhase) < entity.PhaseIndex(entity.PhaseDeepResearch) {
		return nil, serverutils.NewValidationError("approvals must be finalized before research can start")
	}

	job := entity.NewResearchJob(sessionId, session.Product.ProtocolId)
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ResearchJobRepository().Create(ctx, job); err != nil {
		return nil, err
	}

	// The response is assembled before the pipeline goroutine launches: the
	// goroutine owns the job from that point on and no one else may read it.
	res := &dto.StartResearchResponse{
		JobId:     job.Id,
		SessionId: sessionId,
		Status:    string(job.Status),
	}

	// The pipeline outlives the request: its context derives from Background,
	// not from the HTTP request context.
	jobCtx, cancel := context.WithCancel(context.Background())
	handle := &jobHandle{cancel: cancel, done: make(chan struct{})}
	s.jobs.Store(job.Id, handle)

	go func() {
		defer func() {
			close(handle.done)
			s.jobs.Delete(job.Id)
			cancel()
		}()
		s.runPipeline(jobCtx, job, session)
	}()

	s.logger.Info("RESEARCH", "Research job started", map[string]interface{}{
		"job_id":     job.Id,
		"session_id": sessionId,
	})

	return res, nil
}

// runPipeline drives the five stages in order. Stage-local failures are
// recorded on the stage and the pipeline moves on; only a store-write failure
// or cancellation fails the whole job.
func (s *researchService) runPipeline(ctx context.Context, job *entity.ResearchJob, session *entity.Session) {
	job.Status = entity.JobRunning
	if err := s.persistJob(ctx, job, session); err != nil {
		s.failJob(ctx, job, session, "failed to persist job start: "+err.Error())
		return
	}

	digest := synthesis.Digest(session.Discovery)
	stageFns := map[string]func(ctx context.Context) (string, error){
		entity.StageDataIngestion: func(ctx context.Context) (string, error) {
			return digest, nil
		},
		entity.StageCompetitiveAnalysis: func(ctx context.Context) (string, error) {
			return s.generator.CompetitiveAnalysis(ctx, session, digest)
		},
		entity.StageStateOfArtSynthesis: func(ctx context.Context) (string, error) {
			return s.generator.StateOfArt(ctx, session, digest)
		},
		entity.StageRegulatoryAnalysis: func(ctx context.Context) (string, error) {
			return s.generator.RegulatoryAnalysis(ctx, session, digest)
		},
		entity.StageReportGeneration: func(ctx context.Context) (string, error) {
			return s.generator.IntelligenceBrief(ctx, session, job.Result)
		},
	}

	for i, name := range entity.StageOrder {
		if ctx.Err() != nil {
			s.failJob(ctx, job, session, "cancelled")
			return
		}

		stage := job.Stage(name)
		now := time.Now()
		stage.Status = entity.StageRunning
		stage.StartedAt = &now
		job.CurrentStage = name
		if err := s.persistJob(ctx, job, session); err != nil {
			s.failJob(ctx, job, session, "failed to persist stage start: "+err.Error())
			return
		}

		output, err := stageFns[name](ctx)
		if ctx.Err() != nil {
			s.failJob(ctx, job, session, "cancelled")
			return
		}
		if err != nil {
			// Stage-local failure: the remaining stages still run on whatever
			// material exists, mirroring the partial-tolerance of discovery.
			stage.Status = entity.StageFailed
			stage.Error = err.Error()
			s.logger.Warn("RESEARCH", "Pipeline stage failed", map[string]interface{}{
				"job_id": job.Id,
				"stage":  name,
				"error":  err.Error(),
			})
		} else {
			done := time.Now()
			stage.Status = entity.StageComplete
			stage.Progress = 100
			stage.CompletedAt = &done
			job.Result[name] = output
			// Progress only moves on stage completion: 20 points per stage.
			job.Progress += 100 / len(entity.StageOrder)
		}

		if i+1 < len(entity.StageOrder) {
			job.CurrentStage = entity.StageOrder[i+1]
		}
		if err := s.persistJob(ctx, job, session); err != nil {
			s.failJob(ctx, job, session, "failed to persist stage result: "+err.Error())
			return
		}
	}

	s.finishJob(ctx, job, session)
}

// finishJob writes the produced material back onto the session and marks the
// job terminal. The profile completes only when every stage completed.
func (s *researchService) finishJob(ctx context.Context, job *entity.ResearchJob, session *entity.Session) {
	allComplete := true
	for _, stage := range job.Stages {
		if stage.Status != entity.StageComplete {
			allComplete = false
			break
		}
	}

	for name, text := range job.Result {
		if name == entity.StageReportGeneration {
			session.Brief = text
			continue
		}
		session.ResearchReports[name] = text
	}
	session.SetPhaseProgress(entity.PhaseDeepResearch, job.Progress)
	if allComplete {
		session.SetPhaseProgress(entity.PhaseDeepResearch, 100)
		session.AdvanceTo(entity.PhaseComplete)
		session.SetPhaseProgress(entity.PhaseComplete, 100)
	}
	if err := s.sessions.PersistSession(ctx, session); err != nil {
		s.logger.Error("RESEARCH", "Failed to persist session after research", map[string]interface{}{
			"job_id": job.Id,
			"error":  err.Error(),
		})
	}

	now := time.Now()
	job.Status = entity.JobComplete
	job.CompletedAt = &now
	if !allComplete {
		job.Error = "one or more stages failed; brief assembled from partial material"
	}
	if err := s.persistJob(ctx, job, session); err != nil {
		s.logger.Error("RESEARCH", "Failed to persist finished job", map[string]interface{}{
			"job_id": job.Id,
			"error":  err.Error(),
		})
	}

	s.logger.Info("RESEARCH", "Research job finished", map[string]interface{}{
		"job_id":       job.Id,
		"session_id":   job.SessionId,
		"progress":     job.Progress,
		"all_complete": allComplete,
	})
}

func (s *researchService) failJob(ctx context.Context, job *entity.ResearchJob, session *entity.Session, reason string) {
	now := time.Now()
	job.Status = entity.JobFailed
	job.Error = reason
	job.CompletedAt = &now
	// Persist with a fresh context: the job context may already be cancelled.
	if err := s.persistJob(context.Background(), job, session); err != nil {
		s.logger.Error("RESEARCH", "Failed to persist failed job", map[string]interface{}{
			"job_id": job.Id,
			"error":  err.Error(),
		})
	}
}

// persistJob writes the job row and pushes one progress message.
func (s *researchService) persistJob(ctx context.Context, job *entity.ResearchJob, session *entity.Session) error {
	now := time.Now()
	job.UpdatedAt = &now
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ResearchJobRepository().Update(ctx, job); err != nil {
		return err
	}
	s.publishProgress(ctx, job, session)
	return nil
}

func (s *researchService) publishProgress(ctx context.Context, job *entity.ResearchJob, session *entity.Session) {
	if s.publisher == nil {
		return
	}
	msg := dto.ResearchProgressMessage{
		SessionId:  job.SessionId,
		JobId:      job.Id,
		Owner:      session.Owner,
		Product:    session.Product.Name,
		Status:     job.Status,
		Progress:   job.Progress,
		Stage:      job.CurrentStage,
		StageLabel: entity.StageLabels[job.CurrentStage],
		Terminal:   job.IsTerminal(),
		Error:      job.Error,
		OccurredAt: time.Now(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.logger.Warn("RESEARCH", "Failed to publish progress", map[string]interface{}{
			"job_id": job.Id,
			"error":  err.Error(),
		})
	}
}

func (s *researchService) GetJob(ctx context.Context, jobId uuid.UUID) (*dto.ResearchJobResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.ResearchJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, serverutils.NewNotFoundError("research job", jobId)
	}
	return dto.NewResearchJobResponse(job), nil
}

// GetLatestBySession returns the most recently created job for a session.
func (s *researchService) GetLatestBySession(ctx context.Context, sessionId uuid.UUID) (*dto.ResearchJobResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.ResearchJobRepository().FindOne(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: 1},
	)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, serverutils.NewNotFoundError("research job for session", sessionId)
	}
	return dto.NewResearchJobResponse(job), nil
}

// Cancel requests cooperative cancellation of a running pipeline and waits for
// its goroutine to drain. Cancelling a job that already finished is a no-op
// reported as Cancelled: false.
func (s *researchService) Cancel(ctx context.Context, jobId uuid.UUID) (*dto.CancelResearchResponse, error) {
	if v, ok := s.jobs.Load(jobId); ok {
		handle := v.(*jobHandle)
		handle.cancel()
		select {
		case <-handle.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.ResearchJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, serverutils.NewNotFoundError("research job", jobId)
	}

	if job.IsTerminal() && job.Error != "cancelled" {
		return &dto.CancelResearchResponse{
			JobId:     jobId,
			Status:    job.Status,
			Cancelled: false,
			Message:   "job already finished",
		}, nil
	}

	// A pipeline interrupted between persists may still read as running; the
	// store record is forced terminal either way.
	if !job.IsTerminal() {
		now := time.Now()
		job.Status = entity.JobFailed
		job.Error = "cancelled"
		job.CompletedAt = &now
		if err := uow.ResearchJobRepository().Update(ctx, job); err != nil {
			return nil, err
		}
	}

	s.logger.Info("RESEARCH", "Research job cancelled", map[string]interface{}{"job_id": jobId})
	return &dto.CancelResearchResponse{
		JobId:     jobId,
		Status:    job.Status,
		Cancelled: true,
	}, nil
}
