package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"evidence-intel-be/internal/entity"
	"evidence-intel-be/internal/repository/contract"
	"evidence-intel-be/internal/repository/memory"
	"evidence-intel-be/internal/repository/specification"
	"evidence-intel-be/internal/repository/unitofwork"
	"evidence-intel-be/pkg/collector"
	"evidence-intel-be/pkg/events"
	"evidence-intel-be/pkg/synthesis"

	"github.com/google/uuid"
)

// nopLogger keeps test output quiet.
type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// fakeStore is an in-memory stand-in for the gorm unit of work. Rows are held
// as JSON snapshots so a read always reflects what was persisted, never a
// shared pointer some service kept mutating.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID][]byte
	jobs     map[uuid.UUID][]byte

	failSessionUpdate bool
	failJobUpdate     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uuid.UUID][]byte),
		jobs:     make(map[uuid.UUID][]byte),
	}
}

func (f *fakeStore) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f}
}

// session reads one persisted session snapshot back out.
func (f *fakeStore) session(id uuid.UUID) *entity.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.sessions[id]
	if !ok {
		return nil
	}
	var s entity.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func (f *fakeStore) job(id uuid.UUID) *entity.ResearchJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.jobs[id]
	if !ok {
		return nil
	}
	var j entity.ResearchJob
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil
	}
	return &j
}

func (f *fakeStore) rawSession(id uuid.UUID) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

type fakeUow struct {
	store *fakeStore
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) SessionRepository() contract.SessionRepository {
	return &fakeSessionRepo{store: u.store}
}

func (u *fakeUow) ResearchJobRepository() contract.ResearchJobRepository {
	return &fakeJobRepo{store: u.store}
}

type fakeSessionRepo struct {
	store *fakeStore
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.Session) error {
	return r.Update(ctx, session)
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *entity.Session) error {
	if r.store.failSessionUpdate {
		return errors.New("store unavailable")
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	r.store.mu.Lock()
	r.store.sessions[session.Id] = raw
	r.store.mu.Unlock()
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	delete(r.store.sessions, id)
	r.store.mu.Unlock()
	return nil
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error) {
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			return r.store.session(byId.ID), nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, error) {
	return nil, nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.sessions)), nil
}

type fakeJobRepo struct {
	store *fakeStore
}

func (r *fakeJobRepo) Create(ctx context.Context, job *entity.ResearchJob) error {
	return r.Update(ctx, job)
}

func (r *fakeJobRepo) Update(ctx context.Context, job *entity.ResearchJob) error {
	if r.store.failJobUpdate {
		return errors.New("store unavailable")
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	r.store.mu.Lock()
	r.store.jobs[job.Id] = raw
	r.store.mu.Unlock()
	return nil
}

func (r *fakeJobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	delete(r.store.jobs, id)
	r.store.mu.Unlock()
	return nil
}

func (r *fakeJobRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ResearchJob, error) {
	var bySession *specification.BySessionID
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			return r.store.job(s.ID), nil
		case specification.BySessionID:
			bySession = &s
		}
	}
	if bySession == nil {
		return nil, nil
	}
	jobs, _ := r.FindAll(ctx, specs...)
	var latest *entity.ResearchJob
	for _, j := range jobs {
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			latest = j
		}
	}
	return latest, nil
}

func (r *fakeJobRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ResearchJob, error) {
	var bySession *specification.BySessionID
	for _, spec := range specs {
		if s, ok := spec.(specification.BySessionID); ok {
			bySession = &s
		}
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*entity.ResearchJob, 0)
	for _, raw := range r.store.jobs {
		var j entity.ResearchJob
		if err := json.Unmarshal(raw, &j); err != nil {
			continue
		}
		if bySession != nil && j.SessionId != bySession.SessionID {
			continue
		}
		out = append(out, &j)
	}
	return out, nil
}

func (r *fakeJobRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	jobs, _ := r.FindAll(ctx, specs...)
	return int64(len(jobs)), nil
}

// stubCollector serves one configurable discovery category. A blockUntilCtx
// collector never returns until its deadline fires, simulating a hung
// collaborator.
type stubCollector struct {
	source        entity.SourceType
	payload       *entity.SourcePayload
	err           error
	blockUntilCtx bool
}

func (c *stubCollector) Source() entity.SourceType { return c.source }

func (c *stubCollector) Execute(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error) {
	if c.blockUntilCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return c.payload, c.err
}

type stubRegulatory struct{ stubCollector }

func (c *stubRegulatory) History(ctx context.Context, product entity.ProductDescriptor, phase string) (*entity.SourcePayload, error) {
	return c.Execute(ctx, product)
}

func (c *stubRegulatory) CompetitorHistory(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error) {
	return c.Execute(ctx, product)
}

type stubTrials struct{ stubCollector }

func (c *stubTrials) Competitors(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error) {
	return c.Execute(ctx, product)
}

func payloadOf(items ...entity.EvidenceItem) *entity.SourcePayload {
	return &entity.SourcePayload{Items: items}
}

func someItems(kind string, n int) []entity.EvidenceItem {
	items := make([]entity.EvidenceItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, entity.EvidenceItem{
			Id:          uuid.NewString(),
			Title:       "evidence " + kind,
			Kind:        kind,
			Year:        2023,
			Relevance:   0.8,
			HighQuality: i%2 == 0,
		})
	}
	return items
}

// healthyCollectors builds a Set where every category succeeds.
func healthyCollectors() collector.Set {
	return collector.Set{
		Literature:  &stubCollector{source: entity.SourceLiterature, payload: payloadOf(someItems("rct", 12)...)},
		Regulatory:  &stubRegulatory{stubCollector{source: entity.SourceRegulatory, payload: payloadOf(someItems("recall", 6)...)}},
		Registry:    collector.NewRegistryCollector(),
		Competitive: &stubCollector{source: entity.SourceCompetitive, payload: payloadOf(someItems("competitor", 4)...)},
		Trials:      &stubTrials{stubCollector{source: entity.SourceTrials, payload: payloadOf(someItems("trial", 5)...)}},
	}
}

// stubGenerator produces deterministic sections; per-stage errors are
// injectable.
type stubGenerator struct {
	mu      sync.Mutex
	fail    map[string]error
	calls   []string
	latency time.Duration
}

func (g *stubGenerator) section(ctx context.Context, name string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, name)
	err := g.fail[name]
	g.mu.Unlock()
	if g.latency > 0 {
		select {
		case <-time.After(g.latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return "section: " + name, nil
}

func (g *stubGenerator) CompetitiveAnalysis(ctx context.Context, session *entity.Session, digest string) (string, error) {
	return g.section(ctx, entity.StageCompetitiveAnalysis)
}

func (g *stubGenerator) StateOfArt(ctx context.Context, session *entity.Session, digest string) (string, error) {
	return g.section(ctx, entity.StageStateOfArtSynthesis)
}

func (g *stubGenerator) RegulatoryAnalysis(ctx context.Context, session *entity.Session, digest string) (string, error) {
	return g.section(ctx, entity.StageRegulatoryAnalysis)
}

func (g *stubGenerator) IntelligenceBrief(ctx context.Context, session *entity.Session, sections map[string]string) (string, error) {
	return g.section(ctx, entity.StageReportGeneration)
}

var _ synthesis.Generator = (*stubGenerator)(nil)

// recordingBus captures published events for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

// recordingPublisher captures watermill progress payloads.
type recordingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *recordingPublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	p.payloads = append(p.payloads, cp)
	return nil
}

func (p *recordingPublisher) snapshot() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.payloads))
	copy(out, p.payloads)
	return out
}

func newTestSessionService(store *fakeStore) ISessionService {
	return NewSessionService(store, memory.NewSessionCache(16, time.Hour), nil, nopLogger{})
}

func newTestSessionServiceWithBus(store *fakeStore, bus eventBus) ISessionService {
	return NewSessionService(store, memory.NewSessionCache(16, time.Hour), bus, nopLogger{})
}
