package billing

import (
	"errors"
	"fmt"
)

var ErrUserNotFound = errors.New("user not found")

// InsufficientCreditsError rejects a request before dispatch. Nothing was debited.
type InsufficientCreditsError struct {
	Cost    int
	Balance int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: cost %d, balance %d", e.Cost, e.Balance)
}

// BillingError wraps a failed ledger transaction. The ledger is unchanged.
type BillingError struct {
	Op  string
	Err error
}

func (e *BillingError) Error() string {
	return fmt.Sprintf("billing %s failed: %v", e.Op, e.Err)
}

func (e *BillingError) Unwrap() error {
	return e.Err
}
