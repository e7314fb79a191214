package invitation

import (
	"context"
	"log/slog"

	"github.com/dukerupert/homeroom/internal/model"
)

type LinkAction string

const (
	LinkSkipped LinkAction = "skipped"
	LinkClaimed LinkAction = "linked"
	LinkCreated LinkAction = "created"
	LinkFailed  LinkAction = "failed"
)

// LinkOutcome reports what the linker did. LinkFailed always carries a
// Warning: the acceptance still proceeds and the student record needs manual
// follow-up. StudentID is the record involved, if any.
type LinkOutcome struct {
	Action    LinkAction
	StudentID string
	Warning   *LinkingWarning
}

type Linker struct {
	students StudentRepository
	logger   *slog.Logger
}

func NewLinker(students StudentRepository, logger *slog.Logger) *Linker {
	return &Linker{students: students, logger: logger}
}

// Link attaches the student invitee's account to a student record, claiming
// the verifier's candidate when there is one and creating a record otherwise.
// Non-student invitations are skipped.
func (l *Linker) Link(ctx context.Context, v *Verification, res *Resolution, studentName string) LinkOutcome {
	if !v.IsStudent() {
		return LinkOutcome{Action: LinkSkipped}
	}
	inv := v.Invitation

	if v.Candidate != nil {
		out := LinkOutcome{Action: LinkClaimed, StudentID: v.Candidate.ID}
		if err := l.students.LinkAccount(ctx, v.Candidate.ID, res.UserID); err != nil {
			out.Action = LinkFailed
			out.Warning = &LinkingWarning{Op: "link_student_account", StudentID: v.Candidate.ID, Err: err}
			l.logger.Error("link student account", "student_id", v.Candidate.ID, "user_id", res.UserID, "error", err)
		}
		return out
	}

	userID := res.UserID
	st, err := l.students.Create(ctx, model.Student{
		ParentID:     inv.PrimaryAccountID,
		UserID:       &userID,
		StudentName:  studentName,
		StudentEmail: inv.InviteeEmail,
	})
	if err != nil {
		l.logger.Error("create student record", "household_id", inv.HouseholdID, "user_id", userID, "error", err)
		return LinkOutcome{
			Action:  LinkFailed,
			Warning: &LinkingWarning{Op: "create_student", Err: err},
		}
	}
	return LinkOutcome{Action: LinkCreated, StudentID: st.ID}
}
