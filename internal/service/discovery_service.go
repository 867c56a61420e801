package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"evidence-intel-be/internal/dto"
	"evidence-intel-be/internal/entity"
	"evidence-intel-be/internal/pkg/logger"
	"evidence-intel-be/internal/pkg/serverutils"
	"evidence-intel-be/pkg/collector"
	"evidence-intel-be/pkg/confidence"

	"github.com/google/uuid"
)

// maxConcurrentDiscovery bounds the discovery fan-out so the external
// collaborators never see more than this many concurrent calls from one run.
const maxConcurrentDiscovery = 4

// Per-category deadlines. A category that misses its deadline is classified
// timeout; the sibling tasks keep their own budgets.
const (
	literatureTimeout  = 30 * time.Second
	regulatoryTimeout  = 30 * time.Second
	trialsTimeout      = 30 * time.Second
	competitiveTimeout = 45 * time.Second
	phaseIntelTimeout  = 60 * time.Second
	phaseSubTimeout    = 30 * time.Second
)

type IDiscoveryService interface {
	RunDiscovery(ctx context.Context, sessionId uuid.UUID) (*dto.RunDiscoveryResponse, error)
	GenerateRecommendations(ctx context.Context, sessionId uuid.UUID) (*dto.GenerateRecommendationsResponse, error)
}

type discoveryService struct {
	sessions   ISessionService
	collectors collector.Set
	logger     logger.ILogger
}

func NewDiscoveryService(
	sessions ISessionService,
	collectors collector.Set,
	sysLogger logger.ILogger,
) IDiscoveryService {
	return &discoveryService{
		sessions:   sessions,
		collectors: collectors,
		logger:     sysLogger,
	}
}

// discoveryTask is one category of the fan-out. Declaration order is the order
// results and errors are reported in, regardless of completion order.
type discoveryTask struct {
	source  entity.SourceType
	timeout time.Duration
	run     func(ctx context.Context) (*entity.SourcePayload, error)
}

func (s *discoveryService) RunDiscovery(ctx context.Context, sessionId uuid.UUID) (*dto.RunDiscoveryResponse, error) {
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

	product := session.Product
	tasks := []discoveryTask{
		{entity.SourceLiterature, literatureTimeout, func(ctx context.Context) (*entity.SourcePayload, error) {
			return s.collectors.Literature.Execute(ctx, product)
		}},
		{entity.SourceRegulatory, regulatoryTimeout, func(ctx context.Context) (*entity.SourcePayload, error) {
			return s.collectors.Regulatory.Execute(ctx, product)
		}},
		{entity.SourceRegistry, 0, func(ctx context.Context) (*entity.SourcePayload, error) {
			return s.collectors.Registry.Execute(ctx, product)
		}},
		{entity.SourceCompetitive, competitiveTimeout, func(ctx context.Context) (*entity.SourcePayload, error) {
			return s.collectors.Competitive.Execute(ctx, product)
		}},
		{entity.SourceTrials, trialsTimeout, func(ctx context.Context) (*entity.SourcePayload, error) {
			return s.collectors.Trials.Execute(ctx, product)
		}},
	}
	if product.StudyPhase != "" {
		tasks = append(tasks, discoveryTask{entity.SourcePhaseIntel, phaseIntelTimeout, func(ctx context.Context) (*entity.SourcePayload, error) {
			return s.runPhaseIntelligence(ctx, product)
		}})
	}

	started := time.Now()
	results := s.fanOut(ctx, tasks)

	discovery := &entity.DiscoveryResult{
		Status:      "completed",
		Sources:     results,
		Errors:      make([]string, 0),
		CompletedAt: time.Now(),
	}
	completed := 0
	degraded := 0
	for _, r := range results {
		if r.Status == entity.SourceCompleted || r.Status == entity.SourcePartial {
			completed++
		}
		if r.Status != entity.SourceCompleted {
			degraded++
		}
		if r.Error != "" {
			discovery.Errors = append(discovery.Errors, fmt.Sprintf("%s: %s", r.Source, r.Error))
		}
	}
	// Overall status degrades to partial whenever any source degraded, even
	// ones that still delivered data. Progress is a separate axis: a partial
	// source produced material, so it counts toward phase completion.
	if degraded > 0 || len(discovery.Errors) > 0 {
		discovery.Status = "partial"
	}
	discovery.Progress = completed * 100 / len(results)

	session.Discovery = discovery
	session.SetPhaseProgress(entity.PhaseDiscovery, discovery.Progress)
	if discovery.Progress == 100 {
		session.AdvanceTo(entity.PhaseRecommendations)
	}
	if err := s.sessions.PersistSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("DISCOVERY", "Discovery run finished", map[string]interface{}{
		"session_id": sessionId,
		"status":     discovery.Status,
		"sources":    len(results),
		"errors":     len(discovery.Errors),
		"elapsed_ms": time.Since(started).Milliseconds(),
	})

	return &dto.RunDiscoveryResponse{
		SessionId: sessionId,
		Status:    discovery.Status,
		Progress:  discovery.Progress,
		Sources:   discovery.Sources,
		Errors:    discovery.Errors,
		Phase:     session.CurrentPhase,
	}, nil
}

// fanOut runs every task under the shared semaphore and blocks on a single
// join barrier. Results land in a slice indexed by declaration order so the
// aggregate is deterministic whatever the completion order was.
func (s *discoveryService) fanOut(ctx context.Context, tasks []discoveryTask) []*entity.SourceResult {
	results := make([]*entity.SourceResult, len(tasks))
	sem := make(chan struct{}, maxConcurrentDiscovery)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task discoveryTask) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.runTask(ctx, task)
		}(i, task)
	}
	wg.Wait()

	return results
}

// runTask executes one category under its own deadline and classifies the
// terminal outcome. A payload returned after the deadline fired is discarded:
// the category already counted as timeout.
func (s *discoveryService) runTask(ctx context.Context, task discoveryTask) *entity.SourceResult {
	taskCtx := ctx
	if task.timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, task.timeout)
		defer cancel()
	}

	started := time.Now()
	payload, err := task.run(taskCtx)
	result := &entity.SourceResult{
		Source:    task.source,
		ElapsedMs: time.Since(started).Milliseconds(),
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(taskCtx.Err(), context.DeadlineExceeded):
		result.Status = entity.SourceTimeout
		result.Error = fmt.Sprintf("deadline of %s exceeded", task.timeout)
	case err != nil:
		result.Status = entity.SourceFailed
		result.Error = err.Error()
	case payload != nil && payload.Partial:
		result.Status = entity.SourcePartial
		result.Items = payload.Items
		result.ItemsFound = len(payload.Items)
		if len(payload.Notes) > 0 {
			result.Error = payload.Notes[0]
		}
	default:
		result.Status = entity.SourceCompleted
		if payload != nil {
			result.Items = payload.Items
			result.ItemsFound = len(payload.Items)
		}
	}

	if result.Status != entity.SourceCompleted {
		s.logger.Warn("DISCOVERY", "Discovery task degraded", map[string]interface{}{
			"source": task.source,
			"status": result.Status,
			"error":  result.Error,
		})
	}
	return result
}

// runPhaseIntelligence is the nested fan-out for protocol-bearing products:
// four sub-queries against trials and regulatory surveillance. It only fails
// outright when every sub-query failed; otherwise the partial union is data.
func (s *discoveryService) runPhaseIntelligence(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error) {
	subs := []struct {
		name string
		run  func(ctx context.Context) (*entity.SourcePayload, error)
	}{
		{"own trials", func(ctx context.Context) (*entity.SourcePayload, error) {
			return s.collectors.Trials.Execute(ctx, product)
		}},
		{"regulatory history", func(ctx context.Context) (*entity.SourcePayload, error) {
			return s.collectors.Regulatory.History(ctx, product, product.StudyPhase)
		}},
		{"competitor trials", func(ctx context.Context) (*entity.SourcePayload, error) {
			return s.collectors.Trials.Competitors(ctx, product)
		}},
		{"competitor regulatory history", func(ctx context.Context) (*entity.SourcePayload, error) {
			return s.collectors.Regulatory.CompetitorHistory(ctx, product)
		}},
	}

	payloads := make([]*entity.SourcePayload, len(subs))
	errs := make([]error, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, run func(ctx context.Context) (*entity.SourcePayload, error)) {
			defer wg.Done()
			subCtx, cancel := context.WithTimeout(ctx, phaseSubTimeout)
			defer cancel()
			payloads[i], errs[i] = run(subCtx)
		}(i, sub.run)
	}
	wg.Wait()

	merged := &entity.SourcePayload{Items: make([]entity.EvidenceItem, 0)}
	failed := 0
	for i, p := range payloads {
		if errs[i] != nil {
			failed++
			merged.Notes = append(merged.Notes, fmt.Sprintf("%s: %v", subs[i].name, errs[i]))
			continue
		}
		if p != nil {
			merged.Items = append(merged.Items, p.Items...)
		}
	}
	if failed == len(subs) {
		return nil, fmt.Errorf("phase intelligence: all %d sub-queries failed: %v", len(subs), merged.Notes)
	}
	merged.Partial = failed > 0
	return merged, nil
}

// recency window and expected-count tuning per category.
const recentSinceYear = 2021

func (s *discoveryService) GenerateRecommendations(ctx context.Context, sessionId uuid.UUID) (*dto.GenerateRecommendationsResponse, error) {
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
	if session.Discovery == nil {
		return nil, serverutils.NewValidationError("discovery has not run for this session")
	}

	set := s.buildRecommendations(session)
	session.Recommendations = set

	// Recommendations stay half-done until the steward finalizes approvals;
	// generation alone never completes the phase.
	session.SetPhaseProgress(entity.PhaseRecommendations, 50)

	seeded := seedApprovals(session)
	if err := s.sessions.PersistSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("DISCOVERY", "Recommendations generated", map[string]interface{}{
		"session_id": sessionId,
		"sources":    len(set.Sources),
		"seeded":     seeded,
		"confidence": set.Overall.Level,
	})

	return &dto.GenerateRecommendationsResponse{
		SessionId:       sessionId,
		Recommendations: set,
		SeededApprovals: seeded,
		Phase:           session.CurrentPhase,
	}, nil
}

func (s *discoveryService) buildRecommendations(session *entity.Session) *entity.RecommendationSet {
	discovery := session.Discovery
	product := session.Product
	sources := make([]*entity.RecommendedSource, 0, 12)

	// The steward's own protocol always leads when one exists.
	if product.ProtocolId != "" {
		sources = append(sources, &entity.RecommendedSource{
			Type:      entity.SourceClinical,
			Id:        product.ProtocolId,
			Name:      fmt.Sprintf("Clinical study %s", product.ProtocolId),
			Rationale: "primary evidence from the product's own clinical protocol",
		})
	}

	litScore := scoreCategory(discovery, entity.SourceLiterature, 20, 100, 5)
	trialScore := scoreCategory(discovery, entity.SourceTrials, 3, 20, 3)
	registryScore := scoreCategory(discovery, entity.SourceRegistry, 2, 7, 4)
	regulatoryScore := scoreCategory(discovery, entity.SourceRegulatory, 5, 50, 3)

	// One recommendation per registry; out-of-indication registries are still
	// listed so the exclusion is visible, they just seed as rejected.
	for _, ref := range s.collectors.Registry.Registries(product) {
		rec := &entity.RecommendedSource{
			Type:       entity.SourceRegistry,
			Id:         ref.Id,
			Name:       ref.Name,
			Rationale:  fmt.Sprintf("%s registry, annual reports since %d", ref.Region, ref.Since),
			Confidence: registryScore,
		}
		rec.ExclusionReason = ref.ExclusionReason(product)
		sources = append(sources, rec)
	}

	if lit := discovery.SourceByType(entity.SourceLiterature); lit != nil {
		sources = append(sources, &entity.RecommendedSource{
			Type:       entity.SourceLiterature,
			Id:         "literature",
			Name:       "Published clinical literature",
			Rationale:  fmt.Sprintf("%d publications matched the product profile", lit.ItemsFound),
			Confidence: litScore,
			Items:      lit.Items,
		})
	}
	if trials := discovery.SourceByType(entity.SourceTrials); trials != nil {
		sources = append(sources, &entity.RecommendedSource{
			Type:       entity.SourceTrials,
			Id:         "trials",
			Name:       "Clinical trial registrations",
			Rationale:  fmt.Sprintf("%d trial records matched the product profile", trials.ItemsFound),
			Confidence: trialScore,
			Items:      trials.Items,
		})
	}
	if reg := discovery.SourceByType(entity.SourceRegulatory); reg != nil {
		sources = append(sources, &entity.RecommendedSource{
			Type:       entity.SourceRegulatory,
			Id:         "regulatory",
			Name:       "Regulatory surveillance data",
			Rationale:  fmt.Sprintf("%d surveillance records matched the product profile", reg.ItemsFound),
			Confidence: regulatoryScore,
			Items:      reg.Items,
		})
	}
	if phase := discovery.SourceByType(entity.SourcePhaseIntel); phase != nil {
		sources = append(sources, &entity.RecommendedSource{
			Type:       entity.SourcePhaseIntel,
			Id:         "phase_intelligence",
			Name:       fmt.Sprintf("Phase intelligence (%s)", product.StudyPhase),
			Rationale:  "protocol-phase benchmarks from comparable trials and regulatory histories",
			Confidence: scoreCategory(discovery, entity.SourcePhaseIntel, 5, 40, 4),
			Items:      phase.Items,
		})
	}

	return &entity.RecommendationSet{
		Sources:     sources,
		Overall:     confidence.Combine(litScore, trialScore, registryScore, regulatoryScore),
		GeneratedAt: time.Now(),
	}
}

// scoreCategory derives the confidence input for one discovery category. Nil
// when the category never ran; scoring missing data would fake a signal.
func scoreCategory(discovery *entity.DiscoveryResult, t entity.SourceType, minExpected, maxExpected, targetKinds int) *entity.Score {
	result := discovery.SourceByType(t)
	if result == nil {
		return nil
	}
	in := confidence.Input{
		Category:    t,
		MinExpected: minExpected,
		MaxExpected: maxExpected,
		TargetKinds: targetKinds,
	}
	in.FromItems(result.Items, recentSinceYear)
	return confidence.Score(in)
}
