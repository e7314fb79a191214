package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/homeroom/internal/auth"
	"github.com/dukerupert/homeroom/internal/email"
	"github.com/dukerupert/homeroom/internal/handler"
	"github.com/dukerupert/homeroom/internal/invitation"
	"github.com/dukerupert/homeroom/internal/middleware"
	"github.com/dukerupert/homeroom/internal/store"
	ws "github.com/dukerupert/homeroom/internal/websocket"
)

const (
	postLimit  = 10
	postWindow = time.Minute
)

type Config struct {
	SessionTTL    time.Duration
	SecureCookies bool
	EmailClient   *email.Client

	// PasswordCost overrides the bcrypt cost; zero keeps the default.
	PasswordCost int
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	invitationH    *handler.InvitationHandler
	authH          *handler.AuthHandler
	sessionStore   *store.SessionStore
	householdStore *store.HouseholdStore
	rateLimiter    *middleware.RateLimiter
	logger         *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	accountStore := store.NewAccountStore(db)
	profileStore := store.NewProfileStore(db)
	householdStore := store.NewHouseholdStore(db)
	invitationStore := store.NewInvitationStore(db)
	studentStore := store.NewStudentStore(db)
	sessionStore := store.NewSessionStore(db)

	authn := auth.NewPasswordAuthenticator(accountStore)
	if cfg.PasswordCost > 0 {
		authn = authn.WithCost(cfg.PasswordCost)
	}

	svc := invitation.NewService(invitation.Deps{
		Invitations: invitationStore,
		Profiles:    profileStore,
		Students:    studentStore,
		Members:     householdStore,
		Auth:        authn,
	}, logger.With("component", "invitation"))

	tmpl := handler.Templates()

	// A nil *email.Client must not become a non-nil interface.
	var notifier handler.JoinNotifier
	if cfg.EmailClient != nil {
		notifier = cfg.EmailClient
	}

	return &Server{
		db:             db,
		hub:            hub,
		invitationH:    handler.NewInvitationHandler(svc, profileStore, hub, notifier, tmpl, logger.With("component", "invitation_handler")),
		authH:          handler.NewAuthHandler(authn, sessionStore, householdStore, cfg.SessionTTL, cfg.SecureCookies, tmpl, logger.With("component", "auth")),
		sessionStore:   sessionStore,
		householdStore: householdStore,
		rateLimiter:    middleware.NewRateLimiter(),
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	limit := middleware.RateLimit(s.rateLimiter, middleware.ByIPAndPath, postLimit, postWindow, s.logger.With("component", "ratelimit"))

	// Public routes; the session is optional.
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /login", s.authH.LoginPage)
	mux.Handle("POST /login", limit(http.HandlerFunc(s.authH.Login)))
	mux.HandleFunc("POST /logout", s.authH.Logout)

	mux.HandleFunc("GET /invite/{token}", s.invitationH.Page)
	mux.Handle("POST /invite/{token}", limit(http.HandlerFunc(s.invitationH.Submit)))
	mux.HandleFunc("GET /api/invitations/{token}", s.invitationH.Get)
	mux.Handle("POST /api/invitations/{token}/accept", limit(http.HandlerFunc(s.invitationH.Accept)))

	// Signed-in routes
	mux.Handle("GET /{$}", middleware.RequireAuth(http.HandlerFunc(s.authH.Home)))
	mux.Handle("GET /api/households", middleware.RequireAuth(http.HandlerFunc(s.authH.Households)))
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.householdStore, s.logger.With("component", "websocket")))

	loadSession := middleware.LoadSession(s.sessionStore, s.logger.With("component", "session"))
	return middleware.RequestLogger(s.logger.With("component", "http"))(loadSession(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
