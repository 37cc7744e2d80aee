package specification

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ByUserKey matches the users table primary key. User ids are opaque strings
// issued by the identity provider, not uuids.
type ByUserKey struct {
	ID string
}

func (s ByUserKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// ForUpdate row-locks the selected rows until the surrounding transaction ends.
type ForUpdate struct{}

func (s ForUpdate) Apply(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// UserOwnedBy scopes ledger entries and creations to one user.
type UserOwnedBy struct {
	UserID string
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}
