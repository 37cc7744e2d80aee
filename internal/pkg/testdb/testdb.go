// Package testdb opens throwaway SQLite ledger stores for tests.
package testdb

import (
	"fmt"
	"testing"
	"time"

	"genstudio-be/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a migrated in-memory database private to t.
// A single connection keeps the in-memory database alive and serialises writers.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(model.All()...))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// SeedUser inserts a user with the given balance.
func SeedUser(t *testing.T, db *gorm.DB, id string, credits int) {
	t.Helper()
	require.NoError(t, db.Create(&model.User{
		Id:      id,
		Email:   id + "@example.com",
		Role:    "user",
		Credits: credits,
	}).Error)
}

// Balance reads users.credits directly.
func Balance(t *testing.T, db *gorm.DB, id string) int {
	t.Helper()
	var u model.User
	require.NoError(t, db.Where("id = ?", id).First(&u).Error)
	return u.Credits
}

// LedgerSum returns the sum of ledger amounts for the user.
func LedgerSum(t *testing.T, db *gorm.DB, id string) int {
	t.Helper()
	var sum int
	require.NoError(t, db.Model(&model.CreditLog{}).
		Where("user_id = ?", id).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error)
	return sum
}
