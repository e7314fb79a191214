package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/homeroom/internal/model"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(s scanner) (*model.AccountProfile, error) {
	var p model.AccountProfile
	if err := s.Scan(&p.ID, &p.Name, &p.Email, &p.UserType, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

const profileCols = `id, name, email, user_type, created_at, updated_at`

// Create inserts a profile for an existing account. The profile shares the
// account's ID.
func (s *ProfileStore) Create(ctx context.Context, p model.AccountProfile) (*model.AccountProfile, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account_profiles (id, name, email, user_type) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Email, p.UserType,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return s.GetByID(ctx, p.ID)
}

func (s *ProfileStore) GetByID(ctx context.Context, id string) (*model.AccountProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileCols+` FROM account_profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// GetByEmail returns the oldest profile registered with the email, ignoring
// case.
func (s *ProfileStore) GetByEmail(ctx context.Context, email string) (*model.AccountProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileCols+` FROM account_profiles WHERE lower(email) = lower(?) ORDER BY created_at ASC LIMIT 1`,
		strings.TrimSpace(email),
	)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by email: %w", err)
	}
	return p, nil
}
