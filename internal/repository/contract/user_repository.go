package contract

import (
	"context"

	"genstudio-be/internal/entity"
	"genstudio-be/internal/repository/specification"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error)

	// DebitCredits subtracts amount only when the balance covers it.
	// Returns false when no row was updated (missing user or insufficient balance).
	DebitCredits(ctx context.Context, userID string, amount int) (bool, error)
	// CreditCredits adds amount unconditionally. Returns false when the user does not exist.
	CreditCredits(ctx context.Context, userID string, amount int) (bool, error)
	SetCredits(ctx context.Context, userID string, credits int) error
	GetBalance(ctx context.Context, userID string) (int, error)
}
