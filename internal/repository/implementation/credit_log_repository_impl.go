package implementation

import (
	"context"

	"genstudio-be/internal/entity"
	"genstudio-be/internal/mapper"
	"genstudio-be/internal/model"
	"genstudio-be/internal/repository/contract"
	"genstudio-be/internal/repository/specification"

	"gorm.io/gorm"
)

type CreditLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CreditLogMapper
}

func NewCreditLogRepository(db *gorm.DB) contract.CreditLogRepository {
	return &CreditLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewCreditLogMapper(),
	}
}

func (r *CreditLogRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CreditLogRepositoryImpl) Create(ctx context.Context, log *entity.CreditLog) error {
	m := r.mapper.ToModel(log)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*log = *r.mapper.ToEntity(m)
	return nil
}

func (r *CreditLogRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditLog, error) {
	var models []*model.CreditLog
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CreditLogRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.CreditLog{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CreditLogRepositoryImpl) SumAmount(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var sum int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.CreditLog{}), specs...)
	if err := query.Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}
