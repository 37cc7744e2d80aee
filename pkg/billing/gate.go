package billing

import (
	"context"
	"fmt"

	"genstudio-be/internal/entity"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/internal/repository/unitofwork"
	"genstudio-be/pkg/ledgerevents"
)

// Charge is the outcome of a successful authorization. Billed is false for the
// bypass identity, in which case nothing was debited and nothing may be refunded.
type Charge struct {
	UserID        string
	CorrelationID string
	Tier          string
	Cost          int
	Billed        bool
	BalanceAfter  int
}

type Gate struct {
	uowFactory   unitofwork.RepositoryFactory
	bypassUserID string
	events       ledgerevents.Publisher
	logger       logger.ILogger
}

func NewGate(uowFactory unitofwork.RepositoryFactory, bypassUserID string, events ledgerevents.Publisher, logger logger.ILogger) *Gate {
	return &Gate{
		uowFactory:   uowFactory,
		bypassUserID: bypassUserID,
		events:       events,
		logger:       logger,
	}
}

func (g *Gate) IsBypass(userID string) bool {
	return g.bypassUserID != "" && userID == g.bypassUserID
}

// Authorize debits the tier cost and appends the matching ledger entry in one
// transaction. The debit is conditional on the balance covering the cost, so
// concurrent requests cannot overdraw the account.
func (g *Gate) Authorize(ctx context.Context, userID, tier, correlationID string) (Charge, error) {
	if g.IsBypass(userID) {
		g.logger.Info(logger.ModuleBilling, "Billing bypassed", map[string]interface{}{
			"tx_id":   correlationID,
			"user_id": userID,
		})
		return Charge{UserID: userID, CorrelationID: correlationID, Tier: tier}, nil
	}

	cost := EstimateCost(tier)

	uow := g.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return Charge{}, &BillingError{Op: "begin", Err: err}
	}
	defer uow.Rollback()

	ok, err := uow.UserRepository().DebitCredits(ctx, userID, cost)
	if err != nil {
		return Charge{}, &BillingError{Op: "debit", Err: err}
	}
	if !ok {
		// Missing user reads as balance 0.
		balance, err := uow.UserRepository().GetBalance(ctx, userID)
		if err != nil {
			return Charge{}, &BillingError{Op: "read balance", Err: err}
		}
		g.logger.Warn(logger.ModuleBilling, "Insufficient credits", map[string]interface{}{
			"tx_id":   correlationID,
			"user_id": userID,
			"cost":    cost,
			"balance": balance,
		})
		return Charge{}, &InsufficientCreditsError{Cost: cost, Balance: balance}
	}

	err = uow.CreditLogRepository().Create(ctx, &entity.CreditLog{
		UserId:        userID,
		Amount:        -cost,
		Reason:        fmt.Sprintf("Generation %s [TxID: %s]", TierLabel(tier), correlationID),
		TransactionId: correlationID,
	})
	if err != nil {
		return Charge{}, &BillingError{Op: "append ledger", Err: err}
	}

	balanceAfter, err := uow.UserRepository().GetBalance(ctx, userID)
	if err != nil {
		return Charge{}, &BillingError{Op: "read balance", Err: err}
	}

	if err := uow.Commit(); err != nil {
		return Charge{}, &BillingError{Op: "commit", Err: err}
	}

	g.logger.Info(logger.ModuleBilling, "Credits debited", map[string]interface{}{
		"tx_id":         correlationID,
		"user_id":       userID,
		"cost":          cost,
		"tier":          TierLabel(tier),
		"balance_after": balanceAfter,
	})
	g.events.PublishCreditsDebited(ctx, userID, cost, correlationID, TierLabel(tier))

	return Charge{
		UserID:        userID,
		CorrelationID: correlationID,
		Tier:          tier,
		Cost:          cost,
		Billed:        true,
		BalanceAfter:  balanceAfter,
	}, nil
}
