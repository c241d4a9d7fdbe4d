// Package testutil builds throwaway stores for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"go-inventory-ledger/internal/model"
	"go-inventory-ledger/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database private to t. A single
// connection keeps every query on the same in-memory database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(gormlogger.Silent))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Clock returns a deterministic time source that advances one second per call.
func Clock(start time.Time) func() time.Time {
	current := start.UTC()
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

// SeedUser stores a user with the given role.
func SeedUser(t testing.TB, db *gorm.DB, username, role string) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		Role:         role,
		IsActive:     true,
		TokenVersion: "v1",
	}
	if err := u.SetPassword("password123"); err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedCategory stores a category.
func SeedCategory(t testing.TB, db *gorm.DB, name string) *model.Category {
	t.Helper()
	c := &model.Category{Name: name}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return c
}

// SeedItem stores an active item with the given stock and threshold.
func SeedItem(t testing.TB, db *gorm.DB, category *model.Category, sku string, quantity, minQuantity int) *model.Item {
	t.Helper()
	now := time.Now().UTC()
	item := &model.Item{
		Name:        "Item " + sku,
		SKU:         sku,
		CategoryID:  category.ID,
		Quantity:    quantity,
		MinQuantity: minQuantity,
		Price:       decimal.NewFromInt(5),
		Status:      model.ItemActive,
		LastUpdated: now,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}
