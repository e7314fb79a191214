package invitation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/homeroom/internal/model"
)

type Deps struct {
	Invitations InvitationRepository
	Profiles    ProfileRepository
	Students    StudentRepository
	Members     MemberLinker
	Auth        Authenticator
	Now         func() time.Time
}

// Service runs the acceptance steps strictly in sequence:
// verify, resolve the account, link the student, finalize.
type Service struct {
	verifier  *Verifier
	resolver  *Resolver
	linker    *Linker
	finalizer *Finalizer
	logger    *slog.Logger
}

func NewService(d Deps, logger *slog.Logger) *Service {
	return &Service{
		verifier:  NewVerifier(d.Invitations, d.Profiles, d.Students, logger),
		resolver:  NewResolver(d.Auth, d.Profiles, d.Members, logger),
		linker:    NewLinker(d.Students, logger),
		finalizer: NewFinalizer(d.Invitations, d.Now),
		logger:    logger,
	}
}

func (s *Service) Verify(ctx context.Context, token string) (*Verification, error) {
	return s.verifier.Verify(ctx, token)
}

// Outcome is a completed acceptance.
type Outcome struct {
	UserID      string
	NewAccount  bool
	Member      *model.HouseholdMember
	Student     LinkOutcome
	Redirect    string
	DisplayName string
}

// Accept completes a verified invitation. Validation failures return a
// *ValidationError before any write. Student-linking failures are reported in
// Outcome.Student.Warning and never abort the acceptance.
func (s *Service) Accept(ctx context.Context, v *Verification, sub Submission, sess *model.Session) (*Outcome, error) {
	res, err := s.resolver.Resolve(ctx, v, sub, sess)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(sub.Name)
	if name == "" {
		name = v.PrefillName
	}

	link := s.linker.Link(ctx, v, res, name)

	redirect, err := s.finalizer.Finalize(ctx, v.Invitation.InvitationToken, !res.NewAccount)
	if err != nil {
		return nil, err
	}

	s.logger.Info("invitation accepted",
		"household_id", v.Invitation.HouseholdID,
		"user_id", res.UserID,
		"member_type", v.Invitation.MemberType,
		"new_account", res.NewAccount,
		"student_link", string(link.Action),
		"student_link_failed", link.Warning != nil,
	)

	return &Outcome{
		UserID:      res.UserID,
		NewAccount:  res.NewAccount,
		Member:      res.Member,
		Student:     link,
		Redirect:    redirect,
		DisplayName: name,
	}, nil
}
