package billing

import (
	"context"
	"fmt"

	"genstudio-be/internal/entity"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/internal/repository/unitofwork"
	"genstudio-be/pkg/ledgerevents"
)

// Refund causes written into ledger reasons.
const (
	CauseNetworkError  = "Network Error"
	CauseTaskFailed    = "Task Failed"
	CauseTaskCancelled = "Task Cancelled"
)

func CauseBackendFailure(statusCode int) string {
	return fmt.Sprintf("Backend Failure (%d)", statusCode)
}

type Refunder struct {
	uowFactory unitofwork.RepositoryFactory
	events     ledgerevents.Publisher
	logger     logger.ILogger
}

func NewRefunder(uowFactory unitofwork.RepositoryFactory, events ledgerevents.Publisher, logger logger.ILogger) *Refunder {
	return &Refunder{
		uowFactory: uowFactory,
		events:     events,
		logger:     logger,
	}
}

// Refund credits cost back and appends the matching ledger entry in one
// transaction. Callers guarantee it runs at most once per failed billed request.
func (r *Refunder) Refund(ctx context.Context, userID string, cost int, correlationID, cause string) error {
	if cost <= 0 {
		return nil
	}

	uow := r.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return &BillingError{Op: "begin", Err: err}
	}
	defer uow.Rollback()

	ok, err := uow.UserRepository().CreditCredits(ctx, userID, cost)
	if err != nil {
		return &BillingError{Op: "credit", Err: err}
	}
	if !ok {
		return &BillingError{Op: "credit", Err: ErrUserNotFound}
	}

	err = uow.CreditLogRepository().Create(ctx, &entity.CreditLog{
		UserId:        userID,
		Amount:        cost,
		Reason:        fmt.Sprintf("Refund: %s [TxID: %s]", cause, correlationID),
		TransactionId: correlationID,
	})
	if err != nil {
		return &BillingError{Op: "append ledger", Err: err}
	}

	if err := uow.Commit(); err != nil {
		return &BillingError{Op: "commit", Err: err}
	}

	r.logger.Info(logger.ModuleBilling, "Credits refunded", map[string]interface{}{
		"tx_id":   correlationID,
		"user_id": userID,
		"amount":  cost,
		"cause":   cause,
	})
	r.events.PublishCreditsRefunded(ctx, userID, cost, correlationID, cause)
	return nil
}

// RefundCharge is Refund for a Charge returned by the Gate. Unbilled charges are a no-op.
func (r *Refunder) RefundCharge(ctx context.Context, charge Charge, cause string) error {
	if !charge.Billed {
		return nil
	}
	return r.Refund(ctx, charge.UserID, charge.Cost, charge.CorrelationID, cause)
}
