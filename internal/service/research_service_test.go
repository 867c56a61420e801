package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"evidence-intel-be/internal/dto"
	"evidence-intel-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type researchFixture struct {
	store     *fakeStore
	sessions  ISessionService
	generator *stubGenerator
	publisher *recordingPublisher
	research  IResearchService
	id        uuid.UUID
}

// newResearchFixture drives a session all the way to deep research so the job
// engine can start.
func newResearchFixture(t *testing.T) *researchFixture {
	t.Helper()
	store := newFakeStore()
	sessions := newTestSessionService(store)
	discovery := NewDiscoveryService(sessions, healthyCollectors(), nopLogger{})
	approvals := NewApprovalService(sessions, nil, nopLogger{})

	id := startTestSession(t, sessions)
	_, err := discovery.RunDiscovery(context.Background(), id)
	require.NoError(t, err)
	_, err = discovery.GenerateRecommendations(context.Background(), id)
	require.NoError(t, err)
	_, err = approvals.UpdateSourceApproval(context.Background(), id, &dto.UpdateApprovalRequest{
		SourceType: "literature", SourceId: "literature", Status: "approved",
	})
	require.NoError(t, err)
	fin, err := approvals.Finalize(context.Background(), id, &dto.FinalizeRequest{Actor: "steward@example.com"})
	require.NoError(t, err)
	require.True(t, fin.CanProceed)

	generator := &stubGenerator{fail: map[string]error{}}
	publisher := &recordingPublisher{}
	return &researchFixture{
		store:     store,
		sessions:  sessions,
		generator: generator,
		publisher: publisher,
		research:  NewResearchService(sessions, store, generator, publisher, nopLogger{}),
		id:        id,
	}
}

// awaitTerminal polls the store until the job reaches a terminal status.
func (f *researchFixture) awaitTerminal(t *testing.T, jobId uuid.UUID) *entity.ResearchJob {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("job never reached a terminal state")
			return nil
		case <-time.After(10 * time.Millisecond):
			job := f.store.job(jobId)
			if job != nil && job.IsTerminal() {
				return job
			}
		}
	}
}

func TestStartResearchRequiresFinalizedApprovals(t *testing.T) {
	store := newFakeStore()
	sessions := newTestSessionService(store)
	research := NewResearchService(sessions, store, &stubGenerator{}, nil, nopLogger{})
	id := startTestSession(t, sessions)

	_, err := research.Start(context.Background(), id)
	assert.Error(t, err)
}

func TestStartResearchReturnsBeforeThePipelineFinishes(t *testing.T) {
	f := newResearchFixture(t)
	f.generator.latency = 100 * time.Millisecond

	started := time.Now()
	resp, err := f.research.Start(context.Background(), f.id)
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 100*time.Millisecond, "Start must not block on the pipeline")

	job := f.store.job(resp.JobId)
	require.NotNil(t, job, "job row exists before any stage ran")

	f.awaitTerminal(t, resp.JobId)
}

func TestPipelineRunsAllStagesAndCompletesTheSession(t *testing.T) {
	f := newResearchFixture(t)

	resp, err := f.research.Start(context.Background(), f.id)
	require.NoError(t, err)
	job := f.awaitTerminal(t, resp.JobId)

	assert.Equal(t, entity.JobComplete, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Empty(t, job.Error)
	for _, stage := range job.Stages {
		assert.Equal(t, entity.StageComplete, stage.Status, stage.Name)
	}

	session := f.store.session(f.id)
	assert.Equal(t, entity.PhaseComplete, session.CurrentPhase)
	assert.True(t, session.PhaseProgress[entity.PhaseDeepResearch].Completed)
	assert.Equal(t, "section: "+entity.StageReportGeneration, session.Brief)
	assert.Contains(t, session.ResearchReports, entity.StageCompetitiveAnalysis)
	assert.NotContains(t, session.ResearchReports, entity.StageReportGeneration, "the brief is not a stage report")
}

func TestPipelineProgressAdvancesInFixedSteps(t *testing.T) {
	f := newResearchFixture(t)

	_, err := f.research.Start(context.Background(), f.id)
	require.NoError(t, err)

	// wait for the terminal progress message, not just the terminal row: the
	// final publish happens after the final store write
	var messages [][]byte
	deadline := time.After(5 * time.Second)
	for terminal := false; !terminal; {
		select {
		case <-deadline:
			t.Fatal("no terminal progress message arrived")
		case <-time.After(10 * time.Millisecond):
			messages = f.publisher.snapshot()
			for _, raw := range messages {
				var msg dto.ResearchProgressMessage
				require.NoError(t, json.Unmarshal(raw, &msg))
				if msg.Terminal {
					terminal = true
				}
			}
		}
	}

	seen := map[int]bool{}
	last := 0
	for _, raw := range messages {
		var msg dto.ResearchProgressMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.GreaterOrEqual(t, msg.Progress, last, "progress never decreases")
		last = msg.Progress
		seen[msg.Progress] = true
	}
	for _, want := range []int{0, 20, 40, 60, 80, 100} {
		assert.True(t, seen[want], "expected a progress message at %d", want)
	}
}

func TestStageFailureIsLocalAndTheBriefStillBuilds(t *testing.T) {
	f := newResearchFixture(t)
	f.generator.fail[entity.StageRegulatoryAnalysis] = errors.New("model overloaded")

	resp, err := f.research.Start(context.Background(), f.id)
	require.NoError(t, err)
	job := f.awaitTerminal(t, resp.JobId)

	assert.Equal(t, entity.JobComplete, job.Status)
	assert.Equal(t, 80, job.Progress)
	assert.NotEmpty(t, job.Error)

	failed := job.Stage(entity.StageRegulatoryAnalysis)
	assert.Equal(t, entity.StageFailed, failed.Status)
	assert.Equal(t, "model overloaded", failed.Error)
	// the report stage after the failure still ran
	assert.Equal(t, entity.StageComplete, job.Stage(entity.StageReportGeneration).Status)

	session := f.store.session(f.id)
	assert.NotEqual(t, entity.PhaseComplete, session.CurrentPhase, "partial research never completes the profile")
	assert.Equal(t, 80, session.PhaseProgress[entity.PhaseDeepResearch].Percent)
	assert.NotEmpty(t, session.Brief)
}

func TestCancelRunningJobStopsThePipeline(t *testing.T) {
	f := newResearchFixture(t)
	f.generator.latency = 200 * time.Millisecond

	resp, err := f.research.Start(context.Background(), f.id)
	require.NoError(t, err)

	// let the pipeline get past ingestion before cancelling
	time.Sleep(50 * time.Millisecond)
	cancelResp, err := f.research.Cancel(context.Background(), resp.JobId)
	require.NoError(t, err)
	assert.True(t, cancelResp.Cancelled)
	assert.Equal(t, entity.JobFailed, cancelResp.Status)

	job := f.store.job(resp.JobId)
	assert.Equal(t, entity.JobFailed, job.Status)
	assert.Equal(t, "cancelled", job.Error)
	assert.Less(t, job.Progress, 100)
}

func TestCancelFinishedJobIsANoOp(t *testing.T) {
	f := newResearchFixture(t)

	resp, err := f.research.Start(context.Background(), f.id)
	require.NoError(t, err)
	f.awaitTerminal(t, resp.JobId)

	cancelResp, err := f.research.Cancel(context.Background(), resp.JobId)
	require.NoError(t, err)
	assert.False(t, cancelResp.Cancelled)
	assert.Equal(t, entity.JobComplete, cancelResp.Status)
	assert.Equal(t, entity.JobComplete, f.store.job(resp.JobId).Status)
}

func TestGetLatestBySessionPicksTheNewestJob(t *testing.T) {
	f := newResearchFixture(t)

	first, err := f.research.Start(context.Background(), f.id)
	require.NoError(t, err)
	f.awaitTerminal(t, first.JobId)

	second, err := f.research.Start(context.Background(), f.id)
	require.NoError(t, err)
	f.awaitTerminal(t, second.JobId)

	latest, err := f.research.GetLatestBySession(context.Background(), f.id)
	require.NoError(t, err)
	assert.Equal(t, second.JobId, latest.Id)
}

func TestGetJobUnknownIdIsNotFound(t *testing.T) {
	f := newResearchFixture(t)
	_, err := f.research.GetJob(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestStartReportsThePendingSnapshot(t *testing.T) {
	f := newResearchFixture(t)
	f.generator.latency = 50 * time.Millisecond

	// The response is fixed before the pipeline goroutine takes over the job,
	// so it always reflects the persisted pending row.
	resp, err := f.research.Start(context.Background(), f.id)
	require.NoError(t, err)
	assert.Equal(t, string(entity.JobPending), resp.Status)

	f.awaitTerminal(t, resp.JobId)
}

func TestConcurrentReadersSeeConsistentSnapshotsDuringPipeline(t *testing.T) {
	f := newResearchFixture(t)
	f.generator.latency = 20 * time.Millisecond

	resp, err := f.research.Start(context.Background(), f.id)
	require.NoError(t, err)

	// Poller-style readers load and marshal the session the whole time the
	// pipeline writes research material back. Every load must hand out a
	// private copy, never the object the pipeline is mutating.
	stop := make(chan struct{})
	readErrs := make(chan error, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				session, err := f.sessions.LoadSession(context.Background(), f.id)
				if err != nil {
					readErrs <- err
					return
				}
				if _, err := json.Marshal(session); err != nil {
					readErrs <- err
					return
				}
			}
		}()
	}

	job := f.awaitTerminal(t, resp.JobId)
	close(stop)
	wg.Wait()
	close(readErrs)
	for err := range readErrs {
		t.Errorf("concurrent reader failed: %v", err)
	}

	assert.Equal(t, entity.JobComplete, job.Status)
	assert.Equal(t, entity.PhaseComplete, f.store.session(f.id).CurrentPhase)
}
