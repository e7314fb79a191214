// Package invitation accepts household invitations: it verifies a token,
// resolves the invitee's account, links or creates their student record, and
// marks the invitation accepted.
package invitation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/homeroom/internal/model"
)

var (
	// ErrInvitationNotFound covers unknown tokens and tokens that were
	// already accepted alike.
	ErrInvitationNotFound  = errors.New("invitation not found or has expired")
	ErrNoAuthenticatedUser = errors.New("no authenticated user found")
)

type InvitationRepository interface {
	GetPendingByToken(ctx context.Context, token string) (*model.PendingInvitation, error)
	MarkAccepted(ctx context.Context, token string, at time.Time) error
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*model.AccountProfile, error)
	GetByEmail(ctx context.Context, email string) (*model.AccountProfile, error)
	Create(ctx context.Context, p model.AccountProfile) (*model.AccountProfile, error)
}

type StudentRepository interface {
	FindUnlinkedByEmail(ctx context.Context, parentID, email string) (*model.Student, error)
	FindUnlinkedByName(ctx context.Context, parentID, name string) (*model.Student, error)
	Create(ctx context.Context, st model.Student) (*model.Student, error)
	LinkAccount(ctx context.Context, studentID, userID string) error
}

// MemberLinker joins an account to a household.
type MemberLinker interface {
	AddMemberFromInvitation(ctx context.Context, userID, householdID, memberType string) (*model.HouseholdMember, error)
}

// Authenticator creates authentication identities. IdentityID returns ""
// when no identity exists for email.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (string, error)
	IdentityID(ctx context.Context, email string) (string, error)
}

// ValidationError is a user-correctable problem with a submission. It is
// raised before any repository call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// LinkingWarning records a student-linking step that failed without
// failing the acceptance.
type LinkingWarning struct {
	Op        string
	StudentID string
	Err       error
}

func (w *LinkingWarning) Error() string {
	if w.StudentID != "" {
		return fmt.Sprintf("%s %s: %v", w.Op, w.StudentID, w.Err)
	}
	return fmt.Sprintf("%s: %v", w.Op, w.Err)
}

func (w *LinkingWarning) Unwrap() error { return w.Err }
