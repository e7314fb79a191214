package model

import "time"

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
)

type HouseholdInvitation struct {
	ID              string     `json:"id"`
	InvitationToken string     `json:"-"`
	HouseholdID     string     `json:"household_id"`
	InviteeEmail    string     `json:"invitee_email"`
	InviteeName     string     `json:"invitee_name"`
	MemberType      string     `json:"member_type"`
	Status          string     `json:"status"`
	AcceptedAt      *time.Time `json:"accepted_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PendingInvitation is a pending invitation joined with its household.
type PendingInvitation struct {
	HouseholdInvitation
	HouseholdName    string `json:"household_name"`
	PrimaryAccountID string `json:"-"`
}
