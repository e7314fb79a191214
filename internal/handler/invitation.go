package handler

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dukerupert/homeroom/internal/auth"
	"github.com/dukerupert/homeroom/internal/invitation"
	"github.com/dukerupert/homeroom/internal/store"
	"github.com/dukerupert/homeroom/internal/websocket"
)

// JoinNotifier emails a household's primary account about a new member.
type JoinNotifier interface {
	Configured() bool
	SendMemberJoined(ctx context.Context, toEmail, householdName, memberName, memberType string) error
}

type InvitationHandler struct {
	svc       *invitation.Service
	profiles  *store.ProfileStore
	hub       *websocket.Hub
	notifier  JoinNotifier
	templates *template.Template
	logger    *slog.Logger
}

func NewInvitationHandler(svc *invitation.Service, profiles *store.ProfileStore, hub *websocket.Hub, notifier JoinNotifier, tmpl *template.Template, logger *slog.Logger) *InvitationHandler {
	return &InvitationHandler{
		svc:       svc,
		profiles:  profiles,
		hub:       hub,
		notifier:  notifier,
		templates: tmpl,
		logger:    logger,
	}
}

// errorStatus maps a fatal acceptance error to an HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, invitation.ErrInvitationNotFound):
		return http.StatusNotFound
	case errors.Is(err, invitation.ErrNoAuthenticatedUser):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type invitePage struct {
	Token    string
	Flow     *invitation.Flow
	Name     string
	SignedIn bool
	LoginURL string

	// NeedsSignIn is set when acceptance failed for lack of a session.
	NeedsSignIn bool
}

func (h *InvitationHandler) page(r *http.Request, flow *invitation.Flow, token string) invitePage {
	p := invitePage{
		Token:    token,
		Flow:     flow,
		SignedIn: auth.AccountID(r.Context()) != "",
		LoginURL: "/login?next=" + url.QueryEscape("/invite/"+token),
	}
	if flow.Verification != nil {
		p.Name = flow.Verification.PrefillName
	}
	p.NeedsSignIn = errors.Is(flow.Err, invitation.ErrNoAuthenticatedUser)
	return p
}

// Page renders the acceptance page for GET /invite/{token}.
func (h *InvitationHandler) Page(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	flow := invitation.NewFlow(h.svc, token)

	status := http.StatusOK
	if flow.Load(r.Context()) == invitation.StateError {
		status = errorStatus(flow.Err)
	}
	render(w, h.templates, h.logger, status, "invite.html", h.page(r, flow, token))
}

// Submit handles the acceptance form posted to /invite/{token}.
func (h *InvitationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	flow := invitation.NewFlow(h.svc, token)
	if flow.Load(r.Context()) == invitation.StateError {
		render(w, h.templates, h.logger, errorStatus(flow.Err), "invite.html", h.page(r, flow, token))
		return
	}

	sub := invitation.Submission{
		Name:            r.FormValue("name"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	}

	switch flow.Submit(r.Context(), sub, auth.Session(r.Context())) {
	case invitation.StateCompleted:
		h.notify(r.Context(), flow.Verification, flow.Outcome)
		http.Redirect(w, r, flow.Outcome.Redirect, http.StatusSeeOther)
	case invitation.StateAwaitingSubmission:
		p := h.page(r, flow, token)
		p.Name = sub.Name
		render(w, h.templates, h.logger, http.StatusUnprocessableEntity, "invite.html", p)
	default:
		h.logFailure(flow)
		render(w, h.templates, h.logger, errorStatus(flow.Err), "invite.html", h.page(r, flow, token))
	}
}

type invitationResponse struct {
	HouseholdName      string `json:"household_name"`
	InviteeEmail       string `json:"invitee_email"`
	InviteeName        string `json:"invitee_name"`
	MemberType         string `json:"member_type"`
	HasExistingAccount bool   `json:"has_existing_account"`
	PrefillName        string `json:"prefill_name"`
	SignedIn           bool   `json:"signed_in"`
}

// Get returns the verified invitation as JSON.
func (h *InvitationHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Verify(r.Context(), r.PathValue("token"))
	if err != nil {
		if !errors.Is(err, invitation.ErrInvitationNotFound) {
			h.logger.Error("verify invitation", "error", err)
		}
		writeJSON(w, errorStatus(err), map[string]string{"error": invitation.UserMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, invitationResponse{
		HouseholdName:      v.Invitation.HouseholdName,
		InviteeEmail:       v.Invitation.InviteeEmail,
		InviteeName:        v.Invitation.InviteeName,
		MemberType:         v.Invitation.MemberType,
		HasExistingAccount: v.HasExistingAccount,
		PrefillName:        v.PrefillName,
		SignedIn:           auth.AccountID(r.Context()) != "",
	})
}

type acceptResponse struct {
	UserID       string `json:"user_id"`
	NewAccount   bool   `json:"new_account"`
	Redirect     string `json:"redirect"`
	StudentLink  string `json:"student_link"`
	StudentID    string `json:"student_id,omitempty"`
	StudentError string `json:"student_link_error,omitempty"`
}

// Accept runs the acceptance flow for a JSON submission.
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var sub invitation.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	flow := invitation.NewFlow(h.svc, r.PathValue("token"))
	if flow.Load(r.Context()) == invitation.StateError {
		writeJSON(w, errorStatus(flow.Err), map[string]string{"error": flow.ErrorMessage})
		return
	}

	switch flow.Submit(r.Context(), sub, auth.Session(r.Context())) {
	case invitation.StateCompleted:
		h.notify(r.Context(), flow.Verification, flow.Outcome)
		out := flow.Outcome
		resp := acceptResponse{
			UserID:      out.UserID,
			NewAccount:  out.NewAccount,
			Redirect:    out.Redirect,
			StudentLink: string(out.Student.Action),
			StudentID:   out.Student.StudentID,
		}
		if out.Student.Warning != nil {
			resp.StudentError = "Your account was created but linking to the student record failed. The household's parent can fix this later."
		}
		writeJSON(w, http.StatusOK, resp)
	case invitation.StateAwaitingSubmission:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": flow.FieldError.Message,
			"field": flow.FieldError.Field,
		})
	default:
		h.logFailure(flow)
		writeJSON(w, errorStatus(flow.Err), map[string]string{"error": flow.ErrorMessage})
	}
}

func (h *InvitationHandler) logFailure(flow *invitation.Flow) {
	switch {
	case errors.Is(flow.Err, invitation.ErrInvitationNotFound), errors.Is(flow.Err, invitation.ErrNoAuthenticatedUser):
		h.logger.Info("invitation not accepted", "reason", flow.Err)
	default:
		h.logger.Error("accept invitation", "error", flow.Err)
	}
}

// notify announces a completed acceptance. Failures are logged and never
// reach the invitee.
func (h *InvitationHandler) notify(ctx context.Context, v *invitation.Verification, out *invitation.Outcome) {
	inv := v.Invitation
	if h.hub != nil {
		h.hub.Broadcast(websocket.MemberJoined(inv.HouseholdID, out.UserID, out.DisplayName, inv.MemberType))
	}

	if h.notifier == nil || !h.notifier.Configured() {
		return
	}
	owner, err := h.profiles.GetByID(ctx, inv.PrimaryAccountID)
	if err != nil {
		h.logger.Error("load household owner", "household_id", inv.HouseholdID, "error", err)
		return
	}
	if owner == nil || owner.Email == "" {
		return
	}
	if err := h.notifier.SendMemberJoined(ctx, owner.Email, inv.HouseholdName, out.DisplayName, inv.MemberType); err != nil {
		h.logger.Error("send member joined email", "household_id", inv.HouseholdID, "error", err)
	}
}
