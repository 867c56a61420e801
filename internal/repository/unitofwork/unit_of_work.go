package unitofwork

import (
	"context"

	"evidence-intel-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	ResearchJobRepository() contract.ResearchJobRepository
}
