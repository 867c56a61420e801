package collector

import (
	"context"
	"net/http"
	"time"

	"evidence-intel-be/internal/entity"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Collector is the single contract every external knowledge source exposes to
// the discovery orchestrator. Retry/backoff behavior is internal to each
// implementation; the orchestrator only classifies the final outcome.
type Collector interface {
	Source() entity.SourceType
	Execute(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error)
}

// LiteratureCollector searches published clinical literature.
type LiteratureCollector interface {
	Collector
}

// RegulatoryCollector queries regulatory surveillance data (recalls, adverse
// events, clearances). History and CompetitorHistory serve the phase-aware
// discovery sub-tasks.
type RegulatoryCollector interface {
	Collector
	History(ctx context.Context, product entity.ProductDescriptor, studyPhase string) (*entity.SourcePayload, error)
	CompetitorHistory(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error)
}

// TrialsCollector queries clinical trial registries. Competitors serves the
// phase-aware competitor-trials sub-task.
type TrialsCollector interface {
	Collector
	Competitors(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error)
}

// CompetitiveCollector gathers competitive intelligence on similar products.
type CompetitiveCollector interface {
	Collector
}

// RegistryCollector serves implant-registry reference data. It is backed by
// static local data, so it is synchronous and never fails.
type RegistryCollector interface {
	Collector
	Registries(product entity.ProductDescriptor) []RegistryRef
}

// Set bundles every collaborator the discovery orchestrator fans out to.
type Set struct {
	Literature  LiteratureCollector
	Regulatory  RegulatoryCollector
	Registry    RegistryCollector
	Competitive CompetitiveCollector
	Trials      TrialsCollector
}

// httpClient is the shared base for the remote collectors: one rate limiter
// per external collaborator (calls to that collaborator serialize on it, not
// across collaborators) plus a short-TTL response cache.
type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	cache   *gocache.Cache
}

func newHTTPClient(baseURL, apiKey string, rps float64) httpClient {
	return httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		cache:   gocache.New(15*time.Minute, 10*time.Minute),
	}
}

func (h *httpClient) cached(key string) (*entity.SourcePayload, bool) {
	if v, found := h.cache.Get(key); found {
		return v.(*entity.SourcePayload), true
	}
	return nil, false
}

func (h *httpClient) remember(key string, payload *entity.SourcePayload) {
	h.cache.Set(key, payload, gocache.DefaultExpiration)
}
