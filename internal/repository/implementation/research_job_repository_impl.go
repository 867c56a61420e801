package implementation

import (
	"context"
	"errors"

	"evidence-intel-be/internal/entity"
	"evidence-intel-be/internal/mapper"
	"evidence-intel-be/internal/model"
	"evidence-intel-be/internal/repository/contract"
	"evidence-intel-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ResearchJobRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ResearchJobMapper
}

func NewResearchJobRepository(db *gorm.DB) contract.ResearchJobRepository {
	return &ResearchJobRepositoryImpl{
		db:     db,
		mapper: mapper.NewResearchJobMapper(),
	}
}

func (r *ResearchJobRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ResearchJobRepositoryImpl) Create(ctx context.Context, job *entity.ResearchJob) error {
	m := r.mapper.ToModel(job)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*job = *r.mapper.ToEntity(m)
	return nil
}

func (r *ResearchJobRepositoryImpl) Update(ctx context.Context, job *entity.ResearchJob) error {
	m := r.mapper.ToModel(job)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*job = *r.mapper.ToEntity(m)
	return nil
}

func (r *ResearchJobRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ResearchJob{}, id).Error
}

func (r *ResearchJobRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ResearchJob, error) {
	var m model.ResearchJob
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ResearchJobRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ResearchJob, error) {
	var models []*model.ResearchJob
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ResearchJobRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ResearchJob{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
