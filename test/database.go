// Package test holds the database harnesses shared by package tests.
package test

import (
	"fmt"
	"testing"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLite opens a private in-memory database and migrates models into it.
// A single connection keeps every query on the same memory database.
func NewSQLite(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(models...))

	return db
}
