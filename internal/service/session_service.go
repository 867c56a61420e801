package service

import (
	"context"

	"evidence-intel-be/internal/dto"
	"evidence-intel-be/internal/entity"
	"evidence-intel-be/internal/pkg/logger"
	"evidence-intel-be/internal/pkg/serverutils"
	"evidence-intel-be/internal/repository/memory"
	"evidence-intel-be/internal/repository/specification"
	"evidence-intel-be/internal/repository/unitofwork"
	"evidence-intel-be/pkg/events"

	"github.com/google/uuid"
)

type ISessionService interface {
	Start(ctx context.Context, owner string, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error)
	Cancel(ctx context.Context, id uuid.UUID) (*dto.CancelSessionResponse, error)
	Resume(ctx context.Context, id uuid.UUID) (*dto.CancelSessionResponse, error)

	// LoadSession and PersistSession are shared by the sibling services so
	// every mutation goes through the same cache-fronted path.
	LoadSession(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	PersistSession(ctx context.Context, session *entity.Session) error
}

type sessionService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *memory.SessionCache
	bus        eventBus
	logger     logger.ILogger
}

func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	cache *memory.SessionCache,
	bus eventBus,
	sysLogger logger.ILogger,
) ISessionService {
	return &sessionService{
		uowFactory: uowFactory,
		cache:      cache,
		bus:        bus,
		logger:     sysLogger,
	}
}

func (s *sessionService) Start(ctx context.Context, owner string, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	session := entity.NewSession(owner, entity.ProductDescriptor{
		Name:         req.Name,
		Indication:   req.Indication,
		Technologies: req.Technologies,
		ProtocolId:   req.ProtocolId,
		StudyPhase:   req.StudyPhase,
	})

	// A validated descriptor is all context capture needs.
	session.SetPhaseProgress(entity.PhaseContextCapture, 100)
	session.AdvanceTo(entity.PhaseDiscovery)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.SessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}
	s.cache.Put(session)

	s.logger.Info("SESSION", "Profile session started", map[string]interface{}{
		"session_id": session.Id,
		"product":    req.Name,
		"owner":      owner,
	})

	if s.bus != nil {
		if err := s.bus.Publish(ctx, events.NewSessionStarted(session.Id.String(), owner, req.Name)); err != nil {
			s.logger.Warn("SESSION", "Failed to publish session started event", map[string]interface{}{
				"session_id": session.Id,
				"error":      err.Error(),
			})
		}
	}

	return &dto.StartSessionResponse{
		Id:           session.Id,
		CurrentPhase: session.CurrentPhase,
	}, nil
}

func (s *sessionService) Get(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFoundError("session", id)
	}
	return dto.NewSessionResponse(session), nil
}

// Cancel sets the out-of-band cancellation flag. Long-running operations
// short-circuit when it is set; nothing else about the session changes.
func (s *sessionService) Cancel(ctx context.Context, id uuid.UUID) (*dto.CancelSessionResponse, error) {
	session, err := s.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFoundError("session", id)
	}
	if session.IsTerminal() {
		return nil, serverutils.NewValidationError("cannot cancel a completed session")
	}

	session.Cancelled = true
	if err := s.PersistSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("SESSION", "Session cancelled", map[string]interface{}{"session_id": id})
	return &dto.CancelSessionResponse{Id: id, Cancelled: true}, nil
}

// Resume clears the cancellation flag without touching phase or progress.
func (s *sessionService) Resume(ctx context.Context, id uuid.UUID) (*dto.CancelSessionResponse, error) {
	session, err := s.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFoundError("session", id)
	}

	session.Cancelled = false
	if err := s.PersistSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("SESSION", "Session resumed", map[string]interface{}{"session_id": id})
	return &dto.CancelSessionResponse{Id: id, Cancelled: false}, nil
}

func (s *sessionService) LoadSession(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	if session, ok := s.cache.Get(id); ok {
		return session, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if session != nil {
		s.cache.Put(session)
	}
	return session, nil
}

func (s *sessionService) PersistSession(ctx context.Context, session *entity.Session) error {
	session.Touch()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		return err
	}
	s.cache.Put(session)
	return nil
}
