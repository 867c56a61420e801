package service

import (
	"context"
	"time"

	"evidence-intel-be/internal/dto"
	"evidence-intel-be/internal/entity"
	"evidence-intel-be/internal/pkg/logger"
	"evidence-intel-be/internal/pkg/serverutils"
	"evidence-intel-be/pkg/events"

	"github.com/google/uuid"
)

// eventBus is the slice of the NATS publisher the approval flow needs. Nil is
// legal; publication is best-effort and never blocks the steward.
type eventBus interface {
	Publish(ctx context.Context, event events.Event) error
}

type IApprovalService interface {
	UpdateSourceApproval(ctx context.Context, sessionId uuid.UUID, req *dto.UpdateApprovalRequest) (*dto.UpdateApprovalResponse, error)
	InitializeFromRecommendations(ctx context.Context, sessionId uuid.UUID) (*dto.InitializeApprovalsResponse, error)
	SubmitFeedback(ctx context.Context, sessionId uuid.UUID, req *dto.SubmitFeedbackRequest) (*dto.SubmitFeedbackResponse, error)
	Finalize(ctx context.Context, sessionId uuid.UUID, req *dto.FinalizeRequest) (*dto.FinalizeResponse, error)
	GetAudit(ctx context.Context, sessionId uuid.UUID) (*dto.AuditResponse, error)
}

type approvalService struct {
	sessions ISessionService
	bus      eventBus
	logger   logger.ILogger
}

func NewApprovalService(
	sessions ISessionService,
	bus eventBus,
	sysLogger logger.ILogger,
) IApprovalService {
	return &approvalService{
		sessions: sessions,
		bus:      bus,
		logger:   sysLogger,
	}
}

// UpdateSourceApproval upserts one steward decision and appends exactly one
// audit entry. A rejection without a reason is refused before any state is
// touched, so a failed call leaves session bytes identical.
func (s *approvalService) UpdateSourceApproval(ctx context.Context, sessionId uuid.UUID, req *dto.UpdateApprovalRequest) (*dto.UpdateApprovalResponse, error) {
	status := entity.ApprovalStatus(req.Status)
	if status == entity.ApprovalRejected && req.Reason == "" {
		return nil, serverutils.NewValidationError("a rejection requires a reason")
	}

	session, err := s.sessions.LoadSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFoundError("session", sessionId)
	}

	sourceType := entity.SourceType(req.SourceType)
	key := entity.ApprovalKey(sourceType, req.SourceId)

	var previous entity.ApprovalStatus
	if existing := session.SourceApprovals[key]; existing != nil {
		previous = existing.Status
	}

	now := time.Now()
	approval := &entity.SourceApproval{
		SourceType: sourceType,
		SourceId:   req.SourceId,
		Status:     status,
		Reason:     req.Reason,
		DecidedAt:  &now,
		Actor:      req.Actor,
		Settings:   req.Settings,
	}
	session.SourceApprovals[key] = approval
	session.AuditLog = append(session.AuditLog, entity.AuditEntry{
		Timestamp:      now,
		SourceType:     sourceType,
		SourceId:       req.SourceId,
		Action:         string(status),
		Reason:         req.Reason,
		Actor:          req.Actor,
		PreviousStatus: previous,
	})

	if err := s.sessions.PersistSession(ctx, session); err != nil {
		return nil, err
	}

	return &dto.UpdateApprovalResponse{
		SessionId: sessionId,
		Approval:  approval,
		Summary:   entity.SummarizeApprovals(session.SourceApprovals),
	}, nil
}

// InitializeFromRecommendations seeds the approval map from the generated
// recommendation set. Idempotent: existing decisions are never overwritten and
// seeding writes no audit entries.
func (s *approvalService) InitializeFromRecommendations(ctx context.Context, sessionId uuid.UUID) (*dto.InitializeApprovalsResponse, error) {
	session, err := s.sessions.LoadSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFoundError("session", sessionId)
	}
	if session.Recommendations == nil {
		return nil, serverutils.NewValidationError("recommendations have not been generated for this session")
	}

	seeded := seedApprovals(session)
	if seeded > 0 {
		if err := s.sessions.PersistSession(ctx, session); err != nil {
			return nil, err
		}
	}

	return &dto.InitializeApprovalsResponse{
		SessionId: sessionId,
		Seeded:    seeded,
		Summary:   entity.SummarizeApprovals(session.SourceApprovals),
	}, nil
}

// SubmitFeedback appends steward feedback plus one audit entry. Feedback never
// changes approvals; re-analysis is the steward's call via the discovery
// endpoints.
func (s *approvalService) SubmitFeedback(ctx context.Context, sessionId uuid.UUID, req *dto.SubmitFeedbackRequest) (*dto.SubmitFeedbackResponse, error) {
	session, err := s.sessions.LoadSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFoundError("session", sessionId)
	}

	now := time.Now()
	session.Feedback = append(session.Feedback, entity.FeedbackEntry{
		Text:              req.Text,
		RequestReanalysis: req.RequestReanalysis,
		Actor:             req.Actor,
		SubmittedAt:       now,
	})
	session.AuditLog = append(session.AuditLog, entity.AuditEntry{
		Timestamp: now,
		Action:    "feedback",
		Reason:    req.Text,
		Actor:     req.Actor,
	})

	if err := s.sessions.PersistSession(ctx, session); err != nil {
		return nil, err
	}

	return &dto.SubmitFeedbackResponse{
		SessionId:     sessionId,
		FeedbackCount: len(session.Feedback),
	}, nil
}

// Finalize checks the approval gate. A failed gate is a normal response, not
// an error, and mutates nothing. A passed gate records the finalization in the
// audit trail, completes the recommendations phase and advances the session.
func (s *approvalService) Finalize(ctx context.Context, sessionId uuid.UUID, req *dto.FinalizeRequest) (*dto.FinalizeResponse, error) {
	session, err := s.sessions.LoadSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFoundError("session", sessionId)
	}

	summary := entity.SummarizeApprovals(session.SourceApprovals)
	if !summary.CanProceed {
		return &dto.FinalizeResponse{
			SessionId:  sessionId,
			CanProceed: false,
			Summary:    summary,
			Phase:      session.CurrentPhase,
		}, nil
	}

	session.AuditLog = append(session.AuditLog, entity.AuditEntry{
		Timestamp: time.Now(),
		Action:    "finalized",
		Actor:     req.Actor,
	})
	session.SetPhaseProgress(entity.PhaseRecommendations, 100)
	session.AdvanceTo(entity.PhaseDeepResearch)

	if err := s.sessions.PersistSession(ctx, session); err != nil {
		return nil, err
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, events.NewApprovalsFinalized(sessionId.String(), req.Actor, summary.Approved)); err != nil {
			s.logger.Warn("APPROVAL", "Failed to publish finalization event", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
		}
	}

	s.logger.Info("APPROVAL", "Approvals finalized", map[string]interface{}{
		"session_id": sessionId,
		"approved":   summary.Approved,
		"actor":      req.Actor,
	})

	return &dto.FinalizeResponse{
		SessionId:  sessionId,
		CanProceed: true,
		Summary:    summary,
		Phase:      session.CurrentPhase,
	}, nil
}

func (s *approvalService) GetAudit(ctx context.Context, sessionId uuid.UUID) (*dto.AuditResponse, error) {
	session, err := s.sessions.LoadSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFoundError("session", sessionId)
	}
	return &dto.AuditResponse{
		SessionId: sessionId,
		Entries:   session.AuditLog,
		Summary:   entity.SummarizeApprovals(session.SourceApprovals),
	}, nil
}

// seedApprovals fills the approval map from the recommendation set without
// overwriting existing decisions or writing audit entries. Excluded sources
// seed as rejected with the exclusion as the reason, everything else pending.
func seedApprovals(session *entity.Session) int {
	if session.Recommendations == nil {
		return 0
	}
	seeded := 0
	for _, rec := range session.Recommendations.Sources {
		key := entity.ApprovalKey(rec.Type, rec.Id)
		if _, exists := session.SourceApprovals[key]; exists {
			continue
		}
		approval := &entity.SourceApproval{
			SourceType: rec.Type,
			SourceId:   rec.Id,
			Status:     entity.ApprovalPending,
		}
		if rec.ExclusionReason != "" {
			approval.Status = entity.ApprovalRejected
			approval.Reason = rec.ExclusionReason
		}
		session.SourceApprovals[key] = approval
		seeded++
	}
	return seeded
}
