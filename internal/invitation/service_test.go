package invitation

import (
	"context"
	"testing"

	"github.com/dukerupert/homeroom/internal/model"
	"github.com/dukerupert/homeroom/internal/store"
	"github.com/stretchr/testify/require"
)

func verified(t *testing.T, svc *Service, token string) *Verification {
	t.Helper()
	v, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	return v
}

func TestAcceptValidationIssuesNoCalls(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		sub   Submission
		field string
	}{
		{"missing name", Submission{Name: "  ", Password: "secret1", ConfirmPassword: "secret1"}, "name"},
		{"mismatched passwords", Submission{Name: "Kid", Password: "secret1", ConfirmPassword: "secret2"}, "confirm_password"},
		{"short password", Submission{Name: "Kid", Password: "abc", ConfirmPassword: "abc"}, "password"},
		{"mismatch reported before length", Submission{Name: "Kid", Password: "abc", ConfirmPassword: "abd"}, "confirm_password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeBackend()
			f.addInvitation("abc123", "kid@example.com", "Kid", model.MemberTypeStudent)
			svc := newTestService(f)
			v := verified(t, svc, "abc123")
			before := len(f.calls)

			_, err := svc.Accept(context.Background(), v, tc.sub, nil)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.field, verr.Field)
			require.Len(t, f.calls, before, "validation must not reach the backend")
		})
	}
}

func TestAcceptExampleScenarioClaimsPlaceholder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFakeBackend()
	f.addInvitation("abc123", "kid@example.com", "Kid", model.MemberTypeStudent)
	f.addStudent("s1", "Kid", "kid@example.com")
	svc := newTestService(f)
	v := verified(t, svc, "abc123")

	out, err := svc.Accept(ctx, v, Submission{Name: "Kid", Password: "secret1", ConfirmPassword: "secret1"}, nil)
	require.NoError(t, err)

	require.True(t, out.NewAccount)
	require.Equal(t, RedirectLogin, out.Redirect)
	require.Len(t, f.profiles, 1)
	require.Equal(t, model.MemberTypeStudent, f.profiles[out.UserID].UserType)
	require.Equal(t, 1, f.called("add_member "+out.UserID+" h1 student"))
	require.Equal(t, 1, f.called("link_student s1 "+out.UserID))
	require.Zero(t, f.called("create_student"))
	require.Equal(t, LinkClaimed, out.Student.Action)
	require.Nil(t, out.Student.Warning)
	require.Len(t, f.students, 1)
	require.Equal(t, out.UserID, *f.students["s1"].UserID)
	require.Equal(t, model.InvitationAccepted, f.invitations["abc123"].Status)
	require.Equal(t, fixedNow, *f.invitations["abc123"].AcceptedAt)
}

func TestAcceptNameMatchedPlaceholder(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	f.addInvitation("abc123", "kid@example.com", "Maya Rivera", model.MemberTypeStudent)
	f.addStudent("s2", "maya rivera", "")
	svc := newTestService(f)
	v := verified(t, svc, "abc123")

	out, err := svc.Accept(context.Background(), v, Submission{Name: "Maya", Password: "secret1", ConfirmPassword: "secret1"}, nil)
	require.NoError(t, err)
	require.Equal(t, "s2", out.Student.StudentID)
	require.Equal(t, out.UserID, *f.students["s2"].UserID)
	require.Len(t, f.students, 1)
}

func TestAcceptCreatesStudentWhenNoPlaceholder(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	f.addInvitation("abc123", "kid@example.com", "Kid", model.MemberTypeStudent)
	svc := newTestService(f)
	v := verified(t, svc, "abc123")

	out, err := svc.Accept(context.Background(), v, Submission{Name: "Maya", Password: "secret1", ConfirmPassword: "secret1"}, nil)
	require.NoError(t, err)
	require.Equal(t, LinkCreated, out.Student.Action)

	st := f.students[out.Student.StudentID]
	require.NotNil(t, st)
	require.Equal(t, "Maya", st.StudentName)
	require.Equal(t, "kid@example.com", st.StudentEmail)
	require.Equal(t, "parent-1", st.ParentID)
	require.Equal(t, out.UserID, *st.UserID)
}

func TestAcceptStudentLinkFailureIsSoft(t *testing.T) {
	t.Parallel()

	t.Run("link rpc fails", func(t *testing.T) {
		f := newFakeBackend()
		f.addInvitation("abc123", "kid@example.com", "Kid", model.MemberTypeStudent)
		f.addStudent("s1", "Kid", "kid@example.com")
		f.linkErr = errBoom
		svc := newTestService(f)
		v := verified(t, svc, "abc123")

		out, err := svc.Accept(context.Background(), v, Submission{Name: "Kid", Password: "secret1", ConfirmPassword: "secret1"}, nil)
		require.NoError(t, err)
		require.Equal(t, LinkFailed, out.Student.Action)
		require.Equal(t, "s1", out.Student.StudentID)
		require.NotNil(t, out.Student.Warning)
		require.ErrorIs(t, out.Student.Warning, errBoom)
		require.Equal(t, model.InvitationAccepted, f.invitations["abc123"].Status)
	})

	t.Run("student insert fails", func(t *testing.T) {
		f := newFakeBackend()
		f.addInvitation("abc123", "kid@example.com", "Kid", model.MemberTypeStudent)
		f.studentCreateErr = errBoom
		svc := newTestService(f)
		v := verified(t, svc, "abc123")

		out, err := svc.Accept(context.Background(), v, Submission{Name: "Kid", Password: "secret1", ConfirmPassword: "secret1"}, nil)
		require.NoError(t, err)
		require.Equal(t, LinkFailed, out.Student.Action)
		require.Empty(t, out.Student.StudentID)
		require.NotNil(t, out.Student.Warning)
		require.Equal(t, "create_student", out.Student.Warning.Op)
		require.Equal(t, model.InvitationAccepted, f.invitations["abc123"].Status)
	})
}

func TestAcceptFinalizeFailureLeavesInvitationPending(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	f.addInvitation("abc123", "mom@example.com", "Ana", model.MemberTypeParent)
	f.markErr = errBoom
	svc := newTestService(f)
	v := verified(t, svc, "abc123")

	_, err := svc.Accept(context.Background(), v, Submission{Name: "Ana", Password: "secret1", ConfirmPassword: "secret1"}, nil)
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, model.InvitationPending, f.invitations["abc123"].Status)
}

func TestAcceptMemberLinkFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	f.addInvitation("abc123", "mom@example.com", "Ana", model.MemberTypeParent)
	f.memberErr = errBoom
	svc := newTestService(f)
	v := verified(t, svc, "abc123")

	_, err := svc.Accept(context.Background(), v, Submission{Name: "Ana", Password: "secret1", ConfirmPassword: "secret1"}, nil)
	require.ErrorIs(t, err, errBoom)
	require.Zero(t, f.called("mark_accepted"))
	require.Equal(t, model.InvitationPending, f.invitations["abc123"].Status)
}

func TestAcceptSignUpFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	f.addInvitation("abc123", "mom@example.com", "Ana", model.MemberTypeParent)
	f.signUpErr = store.ErrEmailTaken
	svc := newTestService(f)
	v := verified(t, svc, "abc123")

	_, err := svc.Accept(context.Background(), v, Submission{Name: "Ana", Password: "secret1", ConfirmPassword: "secret1"}, nil)
	require.ErrorIs(t, err, store.ErrEmailTaken)
	require.Zero(t, f.called("create_profile"))
	require.Zero(t, f.called("add_member"))
}

func TestAcceptResumesInterruptedSignUp(t *testing.T) {
	t.Parallel()

	t.Run("creates the missing profile for the signed-in identity", func(t *testing.T) {
		f := newFakeBackend()
		f.addInvitation("abc123", "mom@example.com", "Ana", model.MemberTypeParent)
		// An earlier attempt created the identity and then failed before
		// writing the profile.
		f.accounts["mom@example.com"] = "acct-1"
		svc := newTestService(f)
		v := verified(t, svc, "abc123")
		require.False(t, v.HasExistingAccount)

		sub := Submission{Name: "Ana", Password: "secret1", ConfirmPassword: "secret1"}
		_, err := svc.Accept(context.Background(), v, sub, nil)
		require.ErrorIs(t, err, store.ErrEmailTaken, "signed out retry cannot claim the identity")

		out, err := svc.Accept(context.Background(), v, sub, &model.Session{AccountID: "acct-1"})
		require.NoError(t, err)
		require.Equal(t, "acct-1", out.UserID)
		require.False(t, out.NewAccount)
		require.Equal(t, RedirectHome, out.Redirect)
		require.Equal(t, 1, f.called("create_profile acct-1"))
		require.Equal(t, "mom@example.com", f.profiles["acct-1"].Email)
		require.Equal(t, 1, f.called("add_member acct-1 h1 parent"))
		require.Equal(t, model.InvitationAccepted, f.invitations["abc123"].Status)
	})

	t.Run("skips the profile when the identity already has one", func(t *testing.T) {
		f := newFakeBackend()
		f.addInvitation("abc123", "mom@example.com", "Ana", model.MemberTypeParent)
		// The profile was written under a different email, so the invitee
		// is still treated as new.
		f.accounts["mom@example.com"] = "acct-1"
		f.profiles["acct-1"] = &model.AccountProfile{ID: "acct-1", Name: "Ana", Email: "old@example.com"}
		svc := newTestService(f)
		v := verified(t, svc, "abc123")
		require.False(t, v.HasExistingAccount)

		out, err := svc.Accept(context.Background(), v, Submission{Name: "Ana", Password: "secret1", ConfirmPassword: "secret1"}, &model.Session{AccountID: "acct-1"})
		require.NoError(t, err)
		require.Equal(t, "acct-1", out.UserID)
		require.Zero(t, f.called("create_profile"))
	})

	t.Run("rejects a session for another identity", func(t *testing.T) {
		f := newFakeBackend()
		f.addInvitation("abc123", "mom@example.com", "Ana", model.MemberTypeParent)
		f.accounts["mom@example.com"] = "acct-1"
		svc := newTestService(f)
		v := verified(t, svc, "abc123")

		_, err := svc.Accept(context.Background(), v, Submission{Name: "Ana", Password: "secret1", ConfirmPassword: "secret1"}, &model.Session{AccountID: "acct-2"})
		require.ErrorIs(t, err, store.ErrEmailTaken)
		require.Zero(t, f.called("create_profile"))
		require.Zero(t, f.called("add_member"))
	})
}

func TestAcceptExistingAccount(t *testing.T) {
	t.Parallel()

	t.Run("requires a session", func(t *testing.T) {
		f := newFakeBackend()
		f.addInvitation("abc123", "mom@example.com", "Ana", model.MemberTypeParent)
		f.profiles["acct-9"] = &model.AccountProfile{ID: "acct-9", Name: "Ana", Email: "mom@example.com"}
		svc := newTestService(f)
		v := verified(t, svc, "abc123")

		_, err := svc.Accept(context.Background(), v, Submission{}, nil)
		require.ErrorIs(t, err, ErrNoAuthenticatedUser)
		require.Zero(t, f.called("add_member"))
		require.Equal(t, model.InvitationPending, f.invitations["abc123"].Status)
	})

	t.Run("links the signed-in account and returns home", func(t *testing.T) {
		f := newFakeBackend()
		f.addInvitation("abc123", "kid@example.com", "Kid", model.MemberTypeStudent)
		f.profiles["acct-9"] = &model.AccountProfile{ID: "acct-9", Name: "Maya", Email: "kid@example.com"}
		svc := newTestService(f)
		v := verified(t, svc, "abc123")

		out, err := svc.Accept(context.Background(), v, Submission{}, &model.Session{AccountID: "acct-9"})
		require.NoError(t, err)
		require.False(t, out.NewAccount)
		require.Equal(t, "acct-9", out.UserID)
		require.Equal(t, RedirectHome, out.Redirect)
		require.Zero(t, f.called("sign_up"))
		require.Zero(t, f.called("create_profile"))
		require.Equal(t, 1, f.called("add_member acct-9 h1 student"))

		st := f.students[out.Student.StudentID]
		require.Equal(t, "Maya", st.StudentName, "student name falls back to the profile name")
	})
}

func TestAcceptTwiceIsNotFound(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	f.addInvitation("abc123", "mom@example.com", "Ana", model.MemberTypeParent)
	svc := newTestService(f)
	v := verified(t, svc, "abc123")

	_, err := svc.Accept(context.Background(), v, Submission{Name: "Ana", Password: "secret1", ConfirmPassword: "secret1"}, nil)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), "abc123")
	require.ErrorIs(t, err, ErrInvitationNotFound)
}
