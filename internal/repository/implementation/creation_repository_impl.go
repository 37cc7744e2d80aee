package implementation

import (
	"context"
	"errors"

	"genstudio-be/internal/entity"
	"genstudio-be/internal/mapper"
	"genstudio-be/internal/model"
	"genstudio-be/internal/repository/contract"
	"genstudio-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// sessionChunkSize keeps IN (...) lists under driver parameter limits.
const sessionChunkSize = 500

type CreationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CreationMapper
}

func NewCreationRepository(db *gorm.DB) contract.CreationRepository {
	return &CreationRepositoryImpl{
		db:     db,
		mapper: mapper.NewCreationMapper(),
	}
}

func (r *CreationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CreationRepositoryImpl) Create(ctx context.Context, creation *entity.Creation) error {
	m := r.mapper.ToModel(creation)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*creation = *r.mapper.ToEntity(m)
	return nil
}

func (r *CreationRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Creation, error) {
	var m model.Creation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CreationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Creation, error) {
	var models []*model.Creation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CreationRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Creation{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CreationRepositoryImpl) UpdateClassification(ctx context.Context, id uuid.UUID, sessionID string, creationType entity.CreationType) error {
	return r.db.WithContext(ctx).
		Model(&model.Creation{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"session_id":    sessionID,
			"creation_type": string(creationType),
		}).Error
}

func (r *CreationRepositoryImpl) FindSessionIDsByType(ctx context.Context, creationType entity.CreationType) ([]string, error) {
	var sessionIDs []string
	err := r.db.WithContext(ctx).
		Model(&model.Creation{}).
		Where("creation_type = ? AND session_id <> ''", string(creationType)).
		Distinct().
		Pluck("session_id", &sessionIDs).Error
	if err != nil {
		return nil, err
	}
	return sessionIDs, nil
}

func (r *CreationRepositoryImpl) UpdateTypeForSessions(ctx context.Context, sessionIDs []string, from, to entity.CreationType) (int64, error) {
	var total int64
	for start := 0; start < len(sessionIDs); start += sessionChunkSize {
		end := start + sessionChunkSize
		if end > len(sessionIDs) {
			end = len(sessionIDs)
		}
		result := r.db.WithContext(ctx).
			Model(&model.Creation{}).
			Where("session_id IN ? AND creation_type = ?", sessionIDs[start:end], string(from)).
			UpdateColumn("creation_type", string(to))
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
	}
	return total, nil
}
