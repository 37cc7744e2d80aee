package mapper

import (
	"genstudio-be/internal/entity"
	"genstudio-be/internal/model"

	"github.com/google/uuid"
)

type CreditLogMapper struct{}

func NewCreditLogMapper() *CreditLogMapper {
	return &CreditLogMapper{}
}

func (m *CreditLogMapper) ToEntity(l *model.CreditLog) *entity.CreditLog {
	if l == nil {
		return nil
	}
	return &entity.CreditLog{
		Id:            l.Id,
		UserId:        l.UserId,
		Amount:        l.Amount,
		Reason:        l.Reason,
		TransactionId: l.TransactionId,
		CreatedAt:     l.CreatedAt,
	}
}

func (m *CreditLogMapper) ToModel(l *entity.CreditLog) *model.CreditLog {
	if l == nil {
		return nil
	}
	id := l.Id
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &model.CreditLog{
		Id:            id,
		UserId:        l.UserId,
		Amount:        l.Amount,
		Reason:        l.Reason,
		TransactionId: l.TransactionId,
		CreatedAt:     l.CreatedAt,
	}
}

func (m *CreditLogMapper) ToEntities(logs []*model.CreditLog) []*entity.CreditLog {
	entities := make([]*entity.CreditLog, len(logs))
	for i, l := range logs {
		entities[i] = m.ToEntity(l)
	}
	return entities
}
