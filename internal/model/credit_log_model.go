package model

import (
	"time"

	"github.com/google/uuid"
)

// CreditLog is append-only. Every change to users.credits writes exactly one row
// in the same transaction.
type CreditLog struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId        string    `gorm:"type:varchar(64);not null;index"`
	Amount        int       `gorm:"not null"`
	Reason        string    `gorm:"type:text;not null"`
	TransactionId string    `gorm:"type:varchar(64);index"`
	CreatedAt     time.Time `gorm:"autoCreateTime;not null"`
}

func (CreditLog) TableName() string {
	return "credit_logs"
}
