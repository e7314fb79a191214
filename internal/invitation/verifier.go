package invitation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/homeroom/internal/model"
)

// Verification is everything the acceptance page needs after loading a token.
type Verification struct {
	Invitation         model.PendingInvitation
	HasExistingAccount bool
	ExistingProfile    *model.AccountProfile
	PrefillName        string

	// Candidate is an unclaimed student record the parent created ahead of
	// time, found by the lookup named in CandidateMatch.
	Candidate      *model.Student
	CandidateMatch string
}

func (v *Verification) IsStudent() bool {
	return v.Invitation.MemberType == model.MemberTypeStudent
}

type Verifier struct {
	invitations InvitationRepository
	profiles    ProfileRepository
	students    StudentRepository
	lookups     []StudentLookup
	logger      *slog.Logger
}

func NewVerifier(invitations InvitationRepository, profiles ProfileRepository, students StudentRepository, logger *slog.Logger) *Verifier {
	return &Verifier{
		invitations: invitations,
		profiles:    profiles,
		students:    students,
		lookups:     DefaultStudentLookups(),
		logger:      logger,
	}
}

// WithLookups replaces the student lookup order.
func (vf *Verifier) WithLookups(lookups ...StudentLookup) *Verifier {
	vf.lookups = lookups
	return vf
}

// Verify loads the pending invitation for token. Only the invitation lookup
// can fail; the account and student lookups degrade to "nothing found".
func (vf *Verifier) Verify(ctx context.Context, token string) (*Verification, error) {
	if token == "" {
		return nil, ErrInvitationNotFound
	}

	inv, err := vf.invitations.GetPendingByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if inv == nil {
		return nil, ErrInvitationNotFound
	}

	v := &Verification{
		Invitation:  *inv,
		PrefillName: inv.InviteeName,
	}

	profile, err := vf.profiles.GetByEmail(ctx, inv.InviteeEmail)
	if err != nil {
		vf.logger.Warn("existing account lookup failed",
			"household_id", inv.HouseholdID,
			"error", err,
		)
	} else if profile != nil {
		v.HasExistingAccount = true
		v.ExistingProfile = profile
		v.PrefillName = profile.Name
	}

	if v.IsStudent() {
		v.Candidate, v.CandidateMatch = findStudent(ctx, vf.lookups, vf.students, &v.Invitation, vf.logger)
	}

	vf.logger.Debug("invitation verified",
		"household_id", inv.HouseholdID,
		"member_type", inv.MemberType,
		"existing_account", v.HasExistingAccount,
		"student_candidate", v.CandidateMatch,
	)
	return v, nil
}
