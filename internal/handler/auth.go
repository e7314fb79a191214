package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/homeroom/internal/auth"
	"github.com/dukerupert/homeroom/internal/model"
	"github.com/dukerupert/homeroom/internal/store"
)

const sessionCookieName = "homeroom_session"

type AuthHandler struct {
	authn          *auth.PasswordAuthenticator
	sessionStore   *store.SessionStore
	householdStore *store.HouseholdStore
	sessionTTL     time.Duration
	secureCookies  bool
	templates      *template.Template
	logger         *slog.Logger
}

func NewAuthHandler(
	authn *auth.PasswordAuthenticator,
	ss *store.SessionStore,
	hs *store.HouseholdStore,
	sessionTTL time.Duration,
	secureCookies bool,
	tmpl *template.Template,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authn:          authn,
		sessionStore:   ss,
		householdStore: hs,
		sessionTTL:     sessionTTL,
		secureCookies:  secureCookies,
		templates:      tmpl,
		logger:         logger,
	}
}

// safeNext only allows same-site absolute paths as post-login targets.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\") {
		return next
	}
	return "/"
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	render(w, h.templates, h.logger, http.StatusOK, "login.html", map[string]any{
		"Next": safeNext(r.URL.Query().Get("next")),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	emailAddr := strings.TrimSpace(r.FormValue("email"))
	next := safeNext(r.FormValue("next"))

	acct, err := h.authn.SignIn(r.Context(), emailAddr, r.FormValue("password"))
	if err != nil {
		status := http.StatusUnauthorized
		msg := "Invalid email or password."
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Error("sign in", "error", err)
			status = http.StatusInternalServerError
			msg = "Sign in failed. Please try again."
		}
		render(w, h.templates, h.logger, status, "login.html", map[string]any{
			"Error": msg,
			"Email": emailAddr,
			"Next":  next,
		})
		return
	}

	sess, err := h.sessionStore.Create(r.Context(), acct.ID, h.sessionTTL)
	if err != nil {
		h.logger.Error("create session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies || r.TLS != nil,
	})
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := auth.Session(r.Context()); sess != nil {
		if err := h.sessionStore.Delete(r.Context(), sess.ID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Home lists the signed-in account's households.
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	households, err := h.householdStore.ListHouseholdsForUser(r.Context(), auth.AccountID(r.Context()))
	if err != nil {
		h.logger.Error("list households", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	render(w, h.templates, h.logger, http.StatusOK, "home.html", map[string]any{
		"Households": households,
	})
}

// Households is the JSON form of Home.
func (h *AuthHandler) Households(w http.ResponseWriter, r *http.Request) {
	households, err := h.householdStore.ListHouseholdsForUser(r.Context(), auth.AccountID(r.Context()))
	if err != nil {
		h.logger.Error("list households", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list households"})
		return
	}
	if households == nil {
		households = []model.Household{}
	}
	writeJSON(w, http.StatusOK, households)
}
