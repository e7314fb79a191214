package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/dukerupert/homeroom/internal/model"
	"github.com/google/uuid"
)

type InvitationStore struct {
	db *sql.DB
}

func NewInvitationStore(db *sql.DB) *InvitationStore {
	return &InvitationStore{db: db}
}

func scanInvitation(s scanner, extra ...any) (*model.HouseholdInvitation, error) {
	var inv model.HouseholdInvitation
	var acceptedAt sql.NullTime
	dest := []any{
		&inv.ID, &inv.InvitationToken, &inv.HouseholdID, &inv.InviteeEmail, &inv.InviteeName,
		&inv.MemberType, &inv.Status, &acceptedAt, &inv.CreatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if acceptedAt.Valid {
		inv.AcceptedAt = &acceptedAt.Time
	}
	return &inv, nil
}

const invitationCols = `i.id, i.invitation_token, i.household_id, i.invitee_email, i.invitee_name,
	i.member_type, i.status, i.accepted_at, i.created_at`

// generateToken returns 32 random bytes encoded as unpadded base64url.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create stores a pending invitation. A token is generated when inv has none.
func (s *InvitationStore) Create(ctx context.Context, inv model.HouseholdInvitation) (*model.HouseholdInvitation, error) {
	if !model.ValidMemberType(inv.MemberType) {
		return nil, fmt.Errorf("invalid member type %q", inv.MemberType)
	}
	if inv.InvitationToken == "" {
		token, err := generateToken()
		if err != nil {
			return nil, err
		}
		inv.InvitationToken = token
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO household_invitations (id, invitation_token, household_id, invitee_email, invitee_name, member_type)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.InvitationToken, inv.HouseholdID, inv.InviteeEmail, inv.InviteeName, inv.MemberType,
	)
	if err != nil {
		return nil, fmt.Errorf("insert invitation: %w", err)
	}
	return s.GetByToken(ctx, inv.InvitationToken)
}

// GetByToken returns the invitation regardless of status.
func (s *InvitationStore) GetByToken(ctx context.Context, token string) (*model.HouseholdInvitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationCols+` FROM household_invitations i WHERE i.invitation_token = ?`,
		token,
	)
	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

// GetPendingByToken returns the pending invitation for token joined with its
// household, or nil when no pending invitation carries the token.
func (s *InvitationStore) GetPendingByToken(ctx context.Context, token string) (*model.PendingInvitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationCols+`, h.name, h.primary_account_id
		 FROM household_invitations i
		 JOIN households h ON h.id = i.household_id
		 WHERE i.invitation_token = ? AND i.status = 'pending'`,
		token,
	)
	var p model.PendingInvitation
	inv, err := scanInvitation(row, &p.HouseholdName, &p.PrimaryAccountID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending invitation: %w", err)
	}
	p.HouseholdInvitation = *inv
	return &p, nil
}

// MarkAccepted sets the invitation's status to accepted.
func (s *InvitationStore) MarkAccepted(ctx context.Context, token string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE household_invitations SET status = 'accepted', accepted_at = ? WHERE invitation_token = ?`,
		at.UTC(), token,
	)
	if err != nil {
		return fmt.Errorf("mark invitation accepted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("invitation: %w", ErrNotFound)
	}
	return nil
}
