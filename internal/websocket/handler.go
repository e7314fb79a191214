package websocket

import (
	"context"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
	"github.com/dukerupert/homeroom/internal/auth"
	"github.com/dukerupert/homeroom/internal/model"
)

// MembershipChecker reports whether an account belongs to a household.
type MembershipChecker interface {
	GetMember(ctx context.Context, householdID, userID string) (*model.HouseholdMember, error)
}

// HandleWebSocket upgrades a signed-in member's connection and subscribes it
// to the household named by the household_id query parameter.
func HandleWebSocket(hub *Hub, members MembershipChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := auth.AccountID(r.Context())
		if accountID == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		householdID := r.URL.Query().Get("household_id")
		if householdID == "" {
			http.Error(w, "household_id is required", http.StatusBadRequest)
			return
		}

		member, err := members.GetMember(r.Context(), householdID, accountID)
		if err != nil {
			logger.Error("check household membership", "household_id", householdID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if member == nil {
			http.Error(w, "not a member of this household", http.StatusForbidden)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, householdID, accountID)
		client.Run(r.Context())
	}
}
