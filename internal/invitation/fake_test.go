package invitation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/homeroom/internal/model"
	"github.com/dukerupert/homeroom/internal/store"
)

// fakeBackend is an in-memory stand-in for every repository the flow uses.
// Each call is recorded so tests can assert which writes happened.
type fakeBackend struct {
	invitations map[string]*model.PendingInvitation
	profiles    map[string]*model.AccountProfile
	students    map[string]*model.Student
	accounts    map[string]string // email -> id
	members     []model.HouseholdMember

	calls []string
	seq   int

	profileLookupErr error
	emailLookupErr   error
	signUpErr        error
	memberErr        error
	linkErr          error
	studentCreateErr error
	markErr          error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		invitations: map[string]*model.PendingInvitation{},
		profiles:    map[string]*model.AccountProfile{},
		students:    map[string]*model.Student{},
		accounts:    map[string]string{},
	}
}

func (f *fakeBackend) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeBackend) called(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeBackend) GetPendingByToken(_ context.Context, token string) (*model.PendingInvitation, error) {
	f.record("get_invitation %s", token)
	inv, ok := f.invitations[token]
	if !ok || inv.Status != model.InvitationPending {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeBackend) MarkAccepted(_ context.Context, token string, at time.Time) error {
	f.record("mark_accepted %s", token)
	if f.markErr != nil {
		return f.markErr
	}
	inv, ok := f.invitations[token]
	if !ok {
		return store.ErrNotFound
	}
	inv.Status = model.InvitationAccepted
	inv.AcceptedAt = &at
	return nil
}

func (f *fakeBackend) GetByID(_ context.Context, id string) (*model.AccountProfile, error) {
	f.record("get_profile %s", id)
	return f.profiles[id], nil
}

func (f *fakeBackend) GetByEmail(_ context.Context, email string) (*model.AccountProfile, error) {
	f.record("get_profile_by_email %s", email)
	if f.profileLookupErr != nil {
		return nil, f.profileLookupErr
	}
	for _, p := range f.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeBackend) Create(_ context.Context, p model.AccountProfile) (*model.AccountProfile, error) {
	f.record("create_profile %s", p.ID)
	f.profiles[p.ID] = &p
	return &p, nil
}

func (f *fakeBackend) SignUp(_ context.Context, email, _ string) (string, error) {
	f.record("sign_up %s", email)
	if f.signUpErr != nil {
		return "", f.signUpErr
	}
	if _, ok := f.accounts[email]; ok {
		return "", store.ErrEmailTaken
	}
	f.seq++
	id := fmt.Sprintf("user-%d", f.seq)
	f.accounts[email] = id
	return id, nil
}

func (f *fakeBackend) IdentityID(_ context.Context, email string) (string, error) {
	f.record("identity_id %s", email)
	return f.accounts[email], nil
}

func (f *fakeBackend) AddMemberFromInvitation(_ context.Context, userID, householdID, memberType string) (*model.HouseholdMember, error) {
	f.record("add_member %s %s %s", userID, householdID, memberType)
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	m := model.HouseholdMember{ID: int64(len(f.members) + 1), HouseholdID: householdID, UserID: userID, MemberType: memberType}
	f.members = append(f.members, m)
	return &m, nil
}

type fakeStudents struct{ *fakeBackend }

func (f fakeStudents) FindUnlinkedByEmail(_ context.Context, parentID, email string) (*model.Student, error) {
	f.record("find_student_by_email %s", email)
	if f.emailLookupErr != nil {
		return nil, f.emailLookupErr
	}
	for _, st := range f.students {
		if st.ParentID == parentID && !st.Linked() && st.StudentEmail == email {
			return st, nil
		}
	}
	return nil, nil
}

func (f fakeStudents) FindUnlinkedByName(_ context.Context, parentID, name string) (*model.Student, error) {
	f.record("find_student_by_name %s", name)
	for _, st := range f.students {
		if st.ParentID == parentID && !st.Linked() && strings.EqualFold(st.StudentName, name) {
			return st, nil
		}
	}
	return nil, nil
}

func (f fakeStudents) Create(_ context.Context, st model.Student) (*model.Student, error) {
	f.record("create_student %s", st.StudentEmail)
	if f.studentCreateErr != nil {
		return nil, f.studentCreateErr
	}
	f.seq++
	st.ID = fmt.Sprintf("student-%d", f.seq)
	f.students[st.ID] = &st
	return &st, nil
}

func (f fakeStudents) LinkAccount(_ context.Context, studentID, userID string) error {
	f.record("link_student %s %s", studentID, userID)
	if f.linkErr != nil {
		return f.linkErr
	}
	st, ok := f.students[studentID]
	if !ok || st.Linked() {
		return store.ErrNotFound
	}
	st.UserID = &userID
	return nil
}

var errBoom = errors.New("boom")

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(f *fakeBackend) *Service {
	return NewService(Deps{
		Invitations: f,
		Profiles:    f,
		Students:    fakeStudents{f},
		Members:     f,
		Auth:        f,
		Now:         func() time.Time { return fixedNow },
	}, discardLogger())
}

// addInvitation registers a pending invitation in household "h1", whose
// primary account is "parent-1".
func (f *fakeBackend) addInvitation(token, email, name, memberType string) {
	f.invitations[token] = &model.PendingInvitation{
		HouseholdInvitation: model.HouseholdInvitation{
			ID:              "inv-" + token,
			InvitationToken: token,
			HouseholdID:     "h1",
			InviteeEmail:    email,
			InviteeName:     name,
			MemberType:      memberType,
			Status:          model.InvitationPending,
		},
		HouseholdName:    "Rivera Homeschool",
		PrimaryAccountID: "parent-1",
	}
}

func (f *fakeBackend) addStudent(id, name, email string) {
	f.students[id] = &model.Student{ID: id, ParentID: "parent-1", StudentName: name, StudentEmail: email}
}
