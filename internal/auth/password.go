package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/homeroom/internal/model"
	"github.com/dukerupert/homeroom/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// PasswordAuthenticator issues and checks email/password identities.
type PasswordAuthenticator struct {
	accounts *store.AccountStore
	cost     int
}

func NewPasswordAuthenticator(accounts *store.AccountStore) *PasswordAuthenticator {
	return &PasswordAuthenticator{accounts: accounts, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (a *PasswordAuthenticator) WithCost(cost int) *PasswordAuthenticator {
	a.cost = cost
	return a
}

// SignUp creates an identity for email and returns its ID. An email that
// already has an identity yields store.ErrEmailTaken.
func (a *PasswordAuthenticator) SignUp(ctx context.Context, email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	acct, err := a.accounts.Create(ctx, normalizeEmail(email), string(hash))
	if err != nil {
		return "", err
	}
	return acct.ID, nil
}

// IdentityID returns the account ID registered for email, or "" when there
// is none.
func (a *PasswordAuthenticator) IdentityID(ctx context.Context, email string) (string, error) {
	acct, err := a.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", nil
	}
	return acct.ID, nil
}

// SignIn returns the account whose credentials match.
func (a *PasswordAuthenticator) SignIn(ctx context.Context, email, password string) (*model.Account, error) {
	acct, err := a.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acct, nil
}

// normalizeEmail is applied on both sign-up and sign-in so identities are
// keyed by the lower-cased address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
