package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/homeroom/internal/model"
	"github.com/google/uuid"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(s scanner) (*model.Household, error) {
	var h model.Household
	if err := s.Scan(&h.ID, &h.Name, &h.PrimaryAccountID, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func scanHouseholdMember(s scanner) (*model.HouseholdMember, error) {
	var m model.HouseholdMember
	if err := s.Scan(&m.ID, &m.HouseholdID, &m.UserID, &m.MemberType, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

const householdCols = `id, name, primary_account_id, created_at, updated_at`
const householdMemberCols = `id, household_id, user_id, member_type, created_at`

// Create inserts a household owned by primaryAccountID and records the owner
// as its first parent member.
func (s *HouseholdStore) Create(ctx context.Context, name, primaryAccountID string) (*model.Household, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO households (id, name, primary_account_id) VALUES (?, ?, ?)`,
		id, name, primaryAccountID,
	); err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO household_members (household_id, user_id, member_type) VALUES (?, ?, ?)`,
		id, primaryAccountID, model.MemberTypeParent,
	); err != nil {
		return nil, fmt.Errorf("insert owner member: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit household: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *HouseholdStore) GetByID(ctx context.Context, id string) (*model.Household, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

// AddMemberFromInvitation is the insert_household_member_from_invitation
// function: it joins userID to the household with the invited member type.
// Re-joining a household the user already belongs to keeps the existing row.
func (s *HouseholdStore) AddMemberFromInvitation(ctx context.Context, userID, householdID, memberType string) (*model.HouseholdMember, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM households WHERE id = ?`, householdID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check household: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("household %s: %w", householdID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO household_members (household_id, user_id, member_type) VALUES (?, ?, ?)
		 ON CONFLICT (household_id, user_id) DO NOTHING`,
		householdID, userID, memberType,
	); err != nil {
		return nil, fmt.Errorf("insert household member: %w", err)
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+householdMemberCols+` FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	)
	m, err := scanHouseholdMember(row)
	if err != nil {
		return nil, fmt.Errorf("read household member: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit household member: %w", err)
	}
	return m, nil
}

func (s *HouseholdStore) GetMember(ctx context.Context, householdID, userID string) (*model.HouseholdMember, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+householdMemberCols+` FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	)
	m, err := scanHouseholdMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *HouseholdStore) ListMembers(ctx context.Context, householdID string) ([]model.HouseholdMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+householdMemberCols+` FROM household_members WHERE household_id = ? ORDER BY created_at ASC, id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.HouseholdMember
	for rows.Next() {
		m, err := scanHouseholdMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *HouseholdStore) ListHouseholdsForUser(ctx context.Context, userID string) ([]model.Household, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.id, h.name, h.primary_account_id, h.created_at, h.updated_at
		 FROM households h
		 JOIN household_members hm ON h.id = hm.household_id
		 WHERE hm.user_id = ?
		 ORDER BY h.name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list households for user: %w", err)
	}
	defer rows.Close()

	var households []model.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, *h)
	}
	return households, rows.Err()
}
