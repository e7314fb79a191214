package invitation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/homeroom/internal/model"
)

// StudentLookup is one way of finding a parent's unclaimed student record
// for an invitation. Lookups run in order and the first hit wins.
type StudentLookup struct {
	Name string
	Find func(ctx context.Context, students StudentRepository, inv *model.PendingInvitation) (*model.Student, error)
}

var (
	LookupByEmail = StudentLookup{
		Name: "email",
		Find: func(ctx context.Context, students StudentRepository, inv *model.PendingInvitation) (*model.Student, error) {
			if inv.InviteeEmail == "" {
				return nil, nil
			}
			return students.FindUnlinkedByEmail(ctx, inv.PrimaryAccountID, inv.InviteeEmail)
		},
	}

	LookupByName = StudentLookup{
		Name: "name",
		Find: func(ctx context.Context, students StudentRepository, inv *model.PendingInvitation) (*model.Student, error) {
			name := strings.TrimSpace(inv.InviteeName)
			if name == "" {
				return nil, nil
			}
			return students.FindUnlinkedByName(ctx, inv.PrimaryAccountID, name)
		},
	}
)

// DefaultStudentLookups matches by email before falling back to name.
func DefaultStudentLookups() []StudentLookup {
	return []StudentLookup{LookupByEmail, LookupByName}
}

// findStudent returns the first candidate and the name of the lookup that
// found it. Lookup errors are logged and the next lookup runs.
func findStudent(ctx context.Context, lookups []StudentLookup, students StudentRepository, inv *model.PendingInvitation, logger *slog.Logger) (*model.Student, string) {
	for _, l := range lookups {
		st, err := l.Find(ctx, students, inv)
		if err != nil {
			logger.Warn("student lookup failed",
				"lookup", l.Name,
				"household_id", inv.HouseholdID,
				"error", err,
			)
			continue
		}
		if st != nil {
			return st, l.Name
		}
	}
	return nil, ""
}
