package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/homeroom/internal/database"
	"github.com/dukerupert/homeroom/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedHousehold creates an owner account and a household it owns.
func seedHousehold(t *testing.T, db *sql.DB) (*model.Account, *model.Household) {
	t.Helper()
	ctx := context.Background()
	owner, err := NewAccountStore(db).Create(ctx, "parent@example.com", "hash")
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	h, err := NewHouseholdStore(db).Create(ctx, "Rivera Homeschool", owner.ID)
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return owner, h
}
