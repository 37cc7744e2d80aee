package specification

import (
	"gorm.io/gorm"
)

// ByTransactionID matches every ledger entry written for one correlation id.
type ByTransactionID struct {
	TransactionID string
}

func (s ByTransactionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("transaction_id = ?", s.TransactionID)
}

// BySessionID matches creations grouped into one generation session.
type BySessionID struct {
	SessionID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}
