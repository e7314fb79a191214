package invitation

import (
	"context"
	"errors"

	"github.com/dukerupert/homeroom/internal/model"
	"github.com/dukerupert/homeroom/internal/store"
)

type State string

const (
	StateLoading            State = "loading"
	StateVerified           State = "verified"
	StateAwaitingSubmission State = "awaiting_submission"
	StateSubmitting         State = "submitting"
	StateCompleted          State = "completed"
	StateError              State = "error"
)

// Flow drives one acceptance page through its states. Nothing is persisted
// between requests; a reload starts a new Flow at StateLoading.
type Flow struct {
	svc   *Service
	token string

	State        State
	Verification *Verification
	Outcome      *Outcome

	// Err and ErrorMessage are set in StateError. FieldError is set when a
	// submission failed validation and the form is shown again.
	Err          error
	ErrorMessage string
	FieldError   *ValidationError

	history []State
}

func NewFlow(svc *Service, token string) *Flow {
	f := &Flow{svc: svc, token: token}
	f.enter(StateLoading)
	return f
}

func (f *Flow) enter(s State) {
	f.State = s
	f.history = append(f.history, s)
}

// History lists every state the flow has entered, in order.
func (f *Flow) History() []State {
	return append([]State(nil), f.history...)
}

// Load verifies the token.
func (f *Flow) Load(ctx context.Context) State {
	if f.State != StateLoading {
		return f.State
	}
	v, err := f.svc.Verify(ctx, f.token)
	if err != nil {
		f.fail(err)
		return f.State
	}
	f.Verification = v
	f.enter(StateVerified)
	f.enter(StateAwaitingSubmission)
	return f.State
}

// Submit accepts the invitation with the form contents. sess is the
// caller's session, nil when signed out.
func (f *Flow) Submit(ctx context.Context, sub Submission, sess *model.Session) State {
	if f.State != StateAwaitingSubmission {
		return f.State
	}
	f.FieldError = nil
	f.enter(StateSubmitting)

	out, err := f.svc.Accept(ctx, f.Verification, sub, sess)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		f.FieldError = verr
		f.enter(StateAwaitingSubmission)
	case err != nil:
		f.fail(err)
	default:
		f.Outcome = out
		f.enter(StateCompleted)
	}
	return f.State
}

func (f *Flow) fail(err error) {
	f.Err = err
	f.ErrorMessage = UserMessage(err)
	f.enter(StateError)
}

// UserMessage maps an acceptance error to the single message shown to the
// user.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvitationNotFound):
		return "This invitation is invalid or has already been used."
	case errors.Is(err, ErrNoAuthenticatedUser):
		return "No authenticated user found. Please sign in and open the invitation again."
	case errors.Is(err, store.ErrEmailTaken):
		return "An account with this email already exists. Sign in to accept the invitation."
	default:
		return "Failed to accept invitation. Please try again."
	}
}
