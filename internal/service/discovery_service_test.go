package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"evidence-intel-be/internal/dto"
	"evidence-intel-be/internal/entity"
	"evidence-intel-be/pkg/collector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDiscoveryService(store *fakeStore, collectors collector.Set) (ISessionService, IDiscoveryService) {
	sessions := newTestSessionService(store)
	return sessions, NewDiscoveryService(sessions, collectors, nopLogger{})
}

func TestRunDiscoveryAllSourcesHealthy(t *testing.T) {
	store := newFakeStore()
	sessions, discovery := newTestDiscoveryService(store, healthyCollectors())
	id := startTestSession(t, sessions)

	resp, err := discovery.RunDiscovery(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 100, resp.Progress)
	assert.Empty(t, resp.Errors)
	// study phase present on the test product, so phase intelligence ran too
	assert.Len(t, resp.Sources, 6)
	assert.Equal(t, entity.PhaseRecommendations, resp.Phase)

	// declaration order survives whatever order the goroutines finished in
	wantOrder := []entity.SourceType{
		entity.SourceLiterature, entity.SourceRegulatory, entity.SourceRegistry,
		entity.SourceCompetitive, entity.SourceTrials, entity.SourcePhaseIntel,
	}
	for i, want := range wantOrder {
		assert.Equal(t, want, resp.Sources[i].Source)
		assert.Equal(t, entity.SourceCompleted, resp.Sources[i].Status)
	}

	persisted := store.session(id)
	require.NotNil(t, persisted.Discovery)
	assert.True(t, persisted.PhaseProgress[entity.PhaseDiscovery].Completed)
}

func TestRunDiscoverySkipsPhaseIntelligenceWithoutStudyPhase(t *testing.T) {
	store := newFakeStore()
	sessions, discovery := newTestDiscoveryService(store, healthyCollectors())

	resp, err := sessions.Start(context.Background(), "steward@example.com", &dto.StartSessionRequest{
		Name:       "Apex Knee System",
		Indication: "total knee arthroplasty",
	})
	require.NoError(t, err)

	result, err := discovery.RunDiscovery(context.Background(), resp.Id)
	require.NoError(t, err)
	assert.Len(t, result.Sources, 5)
	for _, src := range result.Sources {
		assert.NotEqual(t, entity.SourcePhaseIntel, src.Source)
	}
}

func TestRunDiscoveryTimeoutIsolatedFromSiblings(t *testing.T) {
	collectors := healthyCollectors()
	collectors.Literature = &stubCollector{source: entity.SourceLiterature, err: context.DeadlineExceeded}

	store := newFakeStore()
	sessions, discovery := newTestDiscoveryService(store, collectors)
	id := startTestSession(t, sessions)

	resp, err := discovery.RunDiscovery(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "partial", resp.Status)
	assert.Less(t, resp.Progress, 100)

	lit := resp.Sources[0]
	assert.Equal(t, entity.SourceLiterature, lit.Source)
	assert.Equal(t, entity.SourceTimeout, lit.Status)

	// every sibling still reached completed with its data intact
	for _, src := range resp.Sources[1:] {
		assert.Equal(t, entity.SourceCompleted, src.Status)
	}
	require.Len(t, resp.Errors, 1)
	assert.True(t, strings.HasPrefix(resp.Errors[0], "literature:"))

	// incomplete discovery must not advance the phase
	assert.Equal(t, entity.PhaseDiscovery, store.session(id).CurrentPhase)
}

func TestRunDiscoveryFailureReportedInDeclarationOrder(t *testing.T) {
	collectors := healthyCollectors()
	collectors.Competitive = &stubCollector{source: entity.SourceCompetitive, err: errors.New("upstream 503")}
	collectors.Literature = &stubCollector{source: entity.SourceLiterature, err: errors.New("search index down")}

	store := newFakeStore()
	sessions, discovery := newTestDiscoveryService(store, collectors)
	id := startTestSession(t, sessions)

	resp, err := discovery.RunDiscovery(context.Background(), id)
	require.NoError(t, err)

	require.Len(t, resp.Errors, 2)
	assert.Equal(t, "literature: search index down", resp.Errors[0])
	assert.Equal(t, "competitive: upstream 503", resp.Errors[1])
}

func TestRunDiscoveryCancelledSessionShortCircuits(t *testing.T) {
	store := newFakeStore()
	sessions, discovery := newTestDiscoveryService(store, healthyCollectors())
	id := startTestSession(t, sessions)

	_, err := sessions.Cancel(context.Background(), id)
	require.NoError(t, err)

	_, err = discovery.RunDiscovery(context.Background(), id)
	assert.Error(t, err)
	assert.Nil(t, store.session(id).Discovery)
}

func TestGenerateRecommendationsRequiresDiscovery(t *testing.T) {
	store := newFakeStore()
	sessions, discovery := newTestDiscoveryService(store, healthyCollectors())
	id := startTestSession(t, sessions)

	_, err := discovery.GenerateRecommendations(context.Background(), id)
	assert.Error(t, err)
}

func TestGenerateRecommendationsSeedsApprovals(t *testing.T) {
	store := newFakeStore()
	sessions, discovery := newTestDiscoveryService(store, healthyCollectors())
	id := startTestSession(t, sessions)

	_, err := discovery.RunDiscovery(context.Background(), id)
	require.NoError(t, err)

	resp, err := discovery.GenerateRecommendations(context.Background(), id)
	require.NoError(t, err)

	set := resp.Recommendations
	require.NotNil(t, set)
	assert.NotNil(t, set.Overall)
	assert.Equal(t, len(set.Sources), resp.SeededApprovals)

	// protocol id on the product puts its own clinical study first
	assert.Equal(t, entity.SourceClinical, set.Sources[0].Type)
	assert.Equal(t, "NCT01234567", set.Sources[0].Id)

	persisted := store.session(id)
	assert.Equal(t, 50, persisted.PhaseProgress[entity.PhaseRecommendations].Percent)
	assert.False(t, persisted.PhaseProgress[entity.PhaseRecommendations].Completed)
	assert.Empty(t, persisted.AuditLog, "seeding writes no audit entries")

	// hip product: the shoulder-less registries still cover it, so every
	// registry with a hip indication seeds pending, the rest rejected
	for _, rec := range set.Sources {
		approval := persisted.SourceApprovals[entity.ApprovalKey(rec.Type, rec.Id)]
		require.NotNil(t, approval, "every recommendation seeds an approval")
		if rec.ExclusionReason != "" {
			assert.Equal(t, entity.ApprovalRejected, approval.Status)
			assert.Equal(t, rec.ExclusionReason, approval.Reason)
		} else {
			assert.Equal(t, entity.ApprovalPending, approval.Status)
		}
	}
}

func TestGenerateRecommendationsIsIdempotentForApprovals(t *testing.T) {
	store := newFakeStore()
	sessions, discovery := newTestDiscoveryService(store, healthyCollectors())
	id := startTestSession(t, sessions)

	_, err := discovery.RunDiscovery(context.Background(), id)
	require.NoError(t, err)

	first, err := discovery.GenerateRecommendations(context.Background(), id)
	require.NoError(t, err)
	assert.Greater(t, first.SeededApprovals, 0)

	// steward decides something, then recommendations regenerate
	session, err := sessions.LoadSession(context.Background(), id)
	require.NoError(t, err)
	key := entity.ApprovalKey(entity.SourceLiterature, "literature")
	session.SourceApprovals[key].Status = entity.ApprovalApproved
	require.NoError(t, sessions.PersistSession(context.Background(), session))

	second, err := discovery.GenerateRecommendations(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, second.SeededApprovals, "existing decisions never reseed")
	assert.Equal(t, entity.ApprovalApproved, store.session(id).SourceApprovals[key].Status)
}

func TestRunDiscoveryPartialSourceDegradesOverallStatus(t *testing.T) {
	store := newFakeStore()
	collectors := healthyCollectors()
	collectors.Literature = &stubCollector{
		source: entity.SourceLiterature,
		payload: &entity.SourcePayload{
			Items:   someItems("rct", 4),
			Partial: true,
			Notes:   []string{"publication result set truncated by upstream limit"},
		},
	}
	sessions, discovery := newTestDiscoveryService(store, collectors)
	id := startTestSession(t, sessions)

	resp, err := discovery.RunDiscovery(context.Background(), id)
	require.NoError(t, err)

	// A truncated source still delivered data, so the phase completes — but
	// the run as a whole must not claim a clean pass.
	assert.Equal(t, "partial", resp.Status)
	assert.Equal(t, 100, resp.Progress)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "truncated by upstream limit")

	var literature *entity.SourceResult
	for _, src := range resp.Sources {
		if src.Source == entity.SourceLiterature {
			literature = src
		}
	}
	require.NotNil(t, literature)
	assert.Equal(t, entity.SourcePartial, literature.Status)

	assert.Equal(t, "partial", store.session(id).Discovery.Status)
	assert.Equal(t, entity.PhaseRecommendations, store.session(id).CurrentPhase)
}
