package billing

import (
	"context"

	"genstudio-be/internal/entity"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/internal/repository/specification"
	"genstudio-be/internal/repository/unitofwork"
	"genstudio-be/pkg/ledgerevents"
)

type Adjustment struct {
	UserID     string
	OldCredits int
	NewCredits int
	Amount     int
}

// Adjuster sets balances administratively. The ledger records the difference.
type Adjuster struct {
	uowFactory unitofwork.RepositoryFactory
	events     ledgerevents.Publisher
	logger     logger.ILogger
}

func NewAdjuster(uowFactory unitofwork.RepositoryFactory, events ledgerevents.Publisher, logger logger.ILogger) *Adjuster {
	return &Adjuster{
		uowFactory: uowFactory,
		events:     events,
		logger:     logger,
	}
}

func (a *Adjuster) SetCredits(ctx context.Context, userID string, credits int) (Adjustment, error) {
	uow := a.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return Adjustment{}, &BillingError{Op: "begin", Err: err}
	}
	defer uow.Rollback()

	// The lock holds concurrent debits and refunds until commit, so the
	// ledger difference is computed against the balance actually replaced.
	user, err := uow.UserRepository().FindOne(ctx, specification.ByUserKey{ID: userID}, specification.ForUpdate{})
	if err != nil {
		return Adjustment{}, &BillingError{Op: "find user", Err: err}
	}
	if user == nil {
		return Adjustment{}, ErrUserNotFound
	}

	adj := Adjustment{
		UserID:     userID,
		OldCredits: user.Credits,
		NewCredits: credits,
		Amount:     credits - user.Credits,
	}
	if adj.Amount == 0 {
		return adj, nil
	}

	if err := uow.UserRepository().SetCredits(ctx, userID, credits); err != nil {
		return Adjustment{}, &BillingError{Op: "set credits", Err: err}
	}
	err = uow.CreditLogRepository().Create(ctx, &entity.CreditLog{
		UserId: userID,
		Amount: adj.Amount,
		Reason: entity.ReasonAdminAdjustment,
	})
	if err != nil {
		return Adjustment{}, &BillingError{Op: "append ledger", Err: err}
	}

	if err := uow.Commit(); err != nil {
		return Adjustment{}, &BillingError{Op: "commit", Err: err}
	}

	a.logger.Info(logger.ModuleBilling, "Credits adjusted", map[string]interface{}{
		"user_id":     userID,
		"old_credits": adj.OldCredits,
		"new_credits": adj.NewCredits,
	})
	a.events.PublishCreditsAdjusted(ctx, userID, adj.OldCredits, adj.NewCredits)
	return adj, nil
}
