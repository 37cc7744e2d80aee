package contract

import (
	"context"

	"genstudio-be/internal/entity"
	"genstudio-be/internal/repository/specification"
)

type CreditLogRepository interface {
	Create(ctx context.Context, log *entity.CreditLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditLog, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	SumAmount(ctx context.Context, specs ...specification.Specification) (int64, error)
}
