package entity

import (
	"time"

	"github.com/google/uuid"
)

const ReasonAdminAdjustment = "Admin Adjustment"

// CreditLog is one signed entry of the credit ledger. Negative amounts are debits.
type CreditLog struct {
	Id            uuid.UUID
	UserId        string
	Amount        int
	Reason        string
	TransactionId string
	CreatedAt     time.Time
}
