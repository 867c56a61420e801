package contract

import (
	"context"

	"evidence-intel-be/internal/entity"
	"evidence-intel-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ResearchJobRepository interface {
	Create(ctx context.Context, job *entity.ResearchJob) error
	Update(ctx context.Context, job *entity.ResearchJob) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ResearchJob, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ResearchJob, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
