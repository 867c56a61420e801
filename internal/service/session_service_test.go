package service

import (
	"context"
	"testing"

	"evidence-intel-be/internal/dto"
	"evidence-intel-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestSession(t *testing.T, svc ISessionService) uuid.UUID {
	t.Helper()
	resp, err := svc.Start(context.Background(), "steward@example.com", &dto.StartSessionRequest{
		Name:         "Apex Hip System",
		Indication:   "total hip arthroplasty",
		Technologies: []string{"ceramic-on-ceramic", "porous titanium"},
		ProtocolId:   "NCT01234567",
		StudyPhase:   "post_market",
	})
	require.NoError(t, err)
	return resp.Id
}

func TestStartCompletesContextCaptureAndAdvances(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(store)

	id := startTestSession(t, svc)

	persisted := store.session(id)
	require.NotNil(t, persisted)
	assert.Equal(t, entity.PhaseDiscovery, persisted.CurrentPhase)
	assert.True(t, persisted.PhaseProgress[entity.PhaseContextCapture].Completed)
	assert.Equal(t, 100, persisted.PhaseProgress[entity.PhaseContextCapture].Percent)
	assert.False(t, persisted.PhaseProgress[entity.PhaseDiscovery].Completed)
	assert.Equal(t, "steward@example.com", persisted.Owner)
}

func TestGetUnknownSessionIsNotFound(t *testing.T) {
	svc := newTestSessionService(newFakeStore())

	_, err := svc.Get(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestCancelAndResumeToggleOnlyTheFlag(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(store)
	id := startTestSession(t, svc)

	resp, err := svc.Cancel(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, resp.Cancelled)

	persisted := store.session(id)
	assert.True(t, persisted.Cancelled)
	assert.Equal(t, entity.PhaseDiscovery, persisted.CurrentPhase) // phase untouched

	resp, err = svc.Resume(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, resp.Cancelled)
	assert.False(t, store.session(id).Cancelled)
}

func TestCancelCompletedSessionIsRejected(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(store)
	id := startTestSession(t, svc)

	session, err := svc.LoadSession(context.Background(), id)
	require.NoError(t, err)
	session.AdvanceTo(entity.PhaseComplete)
	require.NoError(t, svc.PersistSession(context.Background(), session))

	_, err = svc.Cancel(context.Background(), id)
	assert.Error(t, err)
}

func TestPhaseNeverRegresses(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(store)
	id := startTestSession(t, svc)

	session, err := svc.LoadSession(context.Background(), id)
	require.NoError(t, err)
	session.AdvanceTo(entity.PhaseDeepResearch)
	session.AdvanceTo(entity.PhaseDiscovery) // must be ignored
	require.NoError(t, svc.PersistSession(context.Background(), session))

	assert.Equal(t, entity.PhaseDeepResearch, store.session(id).CurrentPhase)
}

func TestLoadSessionFallsBackToStore(t *testing.T) {
	store := newFakeStore()
	first := newTestSessionService(store)
	id := startTestSession(t, first)

	// A second service instance has a cold cache and must hit the store.
	second := newTestSessionService(store)
	session, err := second.LoadSession(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, id, session.Id)
}

func TestLoadSessionHandsOutPrivateCopies(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(store)
	id := startTestSession(t, svc)

	first, err := svc.LoadSession(context.Background(), id)
	require.NoError(t, err)

	// Mutations on a loaded session must stay invisible until persisted.
	first.AdvanceTo(entity.PhaseComplete)
	first.ResearchReports["competitive_analysis"] = "draft"
	first.Cancelled = true

	second, err := svc.LoadSession(context.Background(), id)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, entity.PhaseDiscovery, second.CurrentPhase)
	assert.Empty(t, second.ResearchReports)
	assert.False(t, second.Cancelled)
}

func TestStartPublishesSessionStartedEvent(t *testing.T) {
	bus := &recordingBus{}
	svc := newTestSessionServiceWithBus(newFakeStore(), bus)

	id := startTestSession(t, svc)

	require.Len(t, bus.events, 1)
	assert.Equal(t, "SESSION_STARTED", bus.events[0].EventType())
	payload := bus.events[0].Payload()
	assert.Equal(t, id.String(), payload["session_id"])
	assert.Equal(t, "steward@example.com", payload["owner"])
	assert.Equal(t, "Apex Hip System", payload["product"])
}
