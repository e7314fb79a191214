package model

import "time"

type Household struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	PrimaryAccountID string    `json:"primary_account_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type HouseholdMember struct {
	ID          int64     `json:"id"`
	HouseholdID string    `json:"household_id"`
	UserID      string    `json:"user_id"`
	MemberType  string    `json:"member_type"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	MemberTypeStudent  = "student"
	MemberTypeParent   = "parent"
	MemberTypeGuardian = "guardian"
)

// ValidMemberType reports whether t is a role an invitation may grant.
func ValidMemberType(t string) bool {
	switch t {
	case MemberTypeStudent, MemberTypeParent, MemberTypeGuardian:
		return true
	}
	return false
}
