package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/homeroom/internal/model"
)

func TestAccountCreate(t *testing.T) {
	as := NewAccountStore(setupTestDB(t))
	ctx := context.Background()

	a, err := as.Create(ctx, "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if a.ID == "" {
		t.Error("expected generated ID")
	}
	if a.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", a.Email, "alice@example.com")
	}

	got, err := as.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Errorf("get by email = %+v, want id %s", got, a.ID)
	}
}

func TestAccountCreateDuplicateEmail(t *testing.T) {
	as := NewAccountStore(setupTestDB(t))
	ctx := context.Background()

	if _, err := as.Create(ctx, "alice@example.com", "hash"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	_, err := as.Create(ctx, "alice@example.com", "other")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestAccountGetByIDNotFound(t *testing.T) {
	as := NewAccountStore(setupTestDB(t))

	a, err := as.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if a != nil {
		t.Error("expected nil for nonexistent account")
	}
}

func TestProfileCreateAndLookup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	a, err := NewAccountStore(db).Create(ctx, "kid@example.com", "hash")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	ps := NewProfileStore(db)
	p, err := ps.Create(ctx, model.AccountProfile{ID: a.ID, Name: "Kid", Email: a.Email, UserType: "student"})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if p.UserType != "student" {
		t.Errorf("user_type = %q, want %q", p.UserType, "student")
	}

	byEmail, err := ps.GetByEmail(ctx, "kid@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail == nil || byEmail.ID != a.ID {
		t.Errorf("get by email = %+v, want id %s", byEmail, a.ID)
	}

	none, err := ps.GetByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if none != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestProfileGetByEmailIgnoresCase(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	a, err := NewAccountStore(db).Create(ctx, "kid@example.com", "hash")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	ps := NewProfileStore(db)
	if _, err := ps.Create(ctx, model.AccountProfile{ID: a.ID, Name: "Kid", Email: "Kid@Example.com", UserType: "student"}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	got, err := ps.GetByEmail(ctx, " KID@example.COM ")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Errorf("get by email = %+v, want id %s", got, a.ID)
	}
}

func TestProfileCreateRequiresAccount(t *testing.T) {
	ps := NewProfileStore(setupTestDB(t))

	_, err := ps.Create(context.Background(), model.AccountProfile{ID: "ghost", Email: "g@example.com", UserType: "parent"})
	if err == nil {
		t.Fatal("expected foreign key error for profile without account")
	}
}
