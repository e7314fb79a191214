package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/homeroom/internal/model"
	"github.com/dukerupert/homeroom/internal/store"
	"github.com/go-playground/validator/v10"
)

const MinPasswordLength = 6

// Submission is the acceptance form. Passwords are ignored when the invitee
// already has an account.
type Submission struct {
	Name            string `json:"name" validate:"required"`
	Password        string `json:"password" validate:"password"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) >= MinPasswordLength
	})
	if err != nil {
		panic(err)
	}
	return v
}

// fieldChecks lists the struct fields in the order their failures are
// reported, each with its message.
var fieldChecks = []struct {
	field   string
	form    string
	message string
}{
	{"Name", "name", "Name is required"},
	{"ConfirmPassword", "confirm_password", "Passwords do not match"},
	{"Password", "password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)},
}

// ValidateNewAccount checks a new-account submission without touching any
// repository.
func ValidateNewAccount(sub Submission) error {
	sub.Name = strings.TrimSpace(sub.Name)

	err := validate.Struct(sub)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate submission: %w", err)
	}

	failed := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		failed[fe.StructField()] = true
	}
	for _, c := range fieldChecks {
		if failed[c.field] {
			return &ValidationError{Field: c.form, Message: c.message}
		}
	}
	return &ValidationError{Field: verrs[0].Field(), Message: verrs[0].Error()}
}

// Resolution identifies the account that accepts the invitation.
type Resolution struct {
	UserID         string
	NewAccount     bool
	ProfileCreated bool
	Member         *model.HouseholdMember
}

type Resolver struct {
	auth     Authenticator
	profiles ProfileRepository
	members  MemberLinker
	logger   *slog.Logger
}

func NewResolver(auth Authenticator, profiles ProfileRepository, members MemberLinker, logger *slog.Logger) *Resolver {
	return &Resolver{auth: auth, profiles: profiles, members: members, logger: logger}
}

// Resolve creates a new account or adopts the signed-in one, then joins it to
// the household. sess is the caller's current session, nil when signed out.
func (r *Resolver) Resolve(ctx context.Context, v *Verification, sub Submission, sess *model.Session) (*Resolution, error) {
	var res *Resolution
	var err error
	if v.HasExistingAccount {
		res, err = r.adoptSession(v, sess)
	} else {
		res, err = r.createAccount(ctx, v, sub, sess)
	}
	if err != nil {
		return nil, err
	}

	inv := v.Invitation
	member, err := r.members.AddMemberFromInvitation(ctx, res.UserID, inv.HouseholdID, inv.MemberType)
	if err != nil {
		return nil, fmt.Errorf("link household member: %w", err)
	}
	res.Member = member
	return res, nil
}

func (r *Resolver) adoptSession(v *Verification, sess *model.Session) (*Resolution, error) {
	if sess == nil || sess.AccountID == "" {
		return nil, ErrNoAuthenticatedUser
	}
	if v.ExistingProfile != nil && v.ExistingProfile.ID != sess.AccountID {
		r.logger.Warn("invitation accepted by a different account than the invitee",
			"household_id", v.Invitation.HouseholdID,
			"invitee_account", v.ExistingProfile.ID,
			"session_account", sess.AccountID,
		)
	}
	return &Resolution{UserID: sess.AccountID}, nil
}

func (r *Resolver) createAccount(ctx context.Context, v *Verification, sub Submission, sess *model.Session) (*Resolution, error) {
	if err := ValidateNewAccount(sub); err != nil {
		return nil, err
	}
	inv := v.Invitation

	res := &Resolution{NewAccount: true}
	userID, err := r.auth.SignUp(ctx, inv.InviteeEmail, sub.Password)
	if errors.Is(err, store.ErrEmailTaken) {
		userID, err = r.resumeSignUp(ctx, inv.InviteeEmail, sess)
		res.NewAccount = false
	}
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	res.UserID = userID

	// Identity and profile creation are separate writes, so a retried
	// submission may find the profile already there.
	existing, err := r.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check profile: %w", err)
	}
	if existing == nil {
		_, err := r.profiles.Create(ctx, model.AccountProfile{
			ID:       userID,
			Name:     strings.TrimSpace(sub.Name),
			Email:    inv.InviteeEmail,
			UserType: inv.MemberType,
		})
		if err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		res.ProfileCreated = true
	}
	return res, nil
}

// resumeSignUp handles an earlier attempt that created the identity but not
// the profile. The invitee can finish only while signed in as that identity.
func (r *Resolver) resumeSignUp(ctx context.Context, email string, sess *model.Session) (string, error) {
	if sess == nil || sess.AccountID == "" {
		return "", store.ErrEmailTaken
	}
	id, err := r.auth.IdentityID(ctx, email)
	if err != nil {
		return "", fmt.Errorf("look up identity: %w", err)
	}
	if id != sess.AccountID {
		return "", store.ErrEmailTaken
	}
	r.logger.Info("resuming sign-up for existing identity", "account_id", id)
	return id, nil
}
