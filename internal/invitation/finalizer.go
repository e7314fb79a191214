package invitation

import (
	"context"
	"fmt"
	"time"
)

const (
	RedirectHome  = "/"
	RedirectLogin = "/login"
)

type Finalizer struct {
	invitations InvitationRepository
	now         func() time.Time
}

func NewFinalizer(invitations InvitationRepository, now func() time.Time) *Finalizer {
	if now == nil {
		now = time.Now
	}
	return &Finalizer{invitations: invitations, now: now}
}

// Finalize marks the invitation accepted and returns where to send the user:
// back into the app for an existing account, or to sign in with the new one.
func (f *Finalizer) Finalize(ctx context.Context, token string, existingAccount bool) (string, error) {
	if err := f.invitations.MarkAccepted(ctx, token, f.now().UTC()); err != nil {
		return "", fmt.Errorf("mark invitation accepted: %w", err)
	}
	if existingAccount {
		return RedirectHome, nil
	}
	return RedirectLogin, nil
}
