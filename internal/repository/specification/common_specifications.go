package specification

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByID matches a uuid primary key (creations, credit_logs).
type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// sortable lists the columns callers may order by.
var sortable = map[string]struct{}{
	"id":         {},
	"user_id":    {},
	"created_at": {},
	"session_id": {},
	"amount":     {},
}

// OrderBy applies ordering. Unknown fields are ignored so a column name can
// never reach the query unchecked.
type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	if _, ok := sortable[s.Field]; !ok {
		return db
	}
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", s.Field, direction))
}

type Pagination struct {
	Limit  int
	Offset int
}

// Page converts a 1-based page number into a Pagination.
func Page(page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	return Pagination{Limit: limit, Offset: (page - 1) * limit}
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}
