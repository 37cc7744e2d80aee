package unitofwork

import (
	"context"

	"genstudio-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	CreditLogRepository() contract.CreditLogRepository
	CreationRepository() contract.CreationRepository
}
