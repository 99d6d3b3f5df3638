package services

import (
	"context"
	"testing"
	"time"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"
	"github.com/PriyalGandhi19/taskmanager/internal/config"
	"github.com/PriyalGandhi19/taskmanager/internal/core/domain"
	"github.com/stretchr/testify/require"
)

type userFixture struct {
	users    *fakeUserRepo
	tokens   *fakeOneTimeTokenRepo
	audit    *fakeAuditRepo
	activity *fakeActivityRepo
	attach   *fakeAttachmentRepo
	store    *fakeStore
	mailer   *fakeMailer
	svc      *UserService
}

func newUserFixture() *userFixture {
	cfg := &config.Config{
		Token: config.TokenConfig{VerifyEmailMins: 60, SetPasswordMins: 60, PasswordResetMins: 15},
	}

	f := &userFixture{
		users:    newFakeUserRepo(),
		tokens:   newFakeOneTimeTokenRepo(),
		audit:    &fakeAuditRepo{},
		activity: &fakeActivityRepo{},
		attach:   newFakeAttachmentRepo(),
		store:    newFakeStore(),
		mailer:   &fakeMailer{},
	}
	f.svc = NewUserService(f.users, f.tokens, f.audit, f.activity, f.attach, f.store, f.mailer, cfg)
	return f
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("new account starts unverified with a pending password", func(t *testing.T) {
		f := newUserFixture()

		resp, err := f.svc.CreateUser(ctx, 1, &CreateUserInput{Email: "new@example.com", Role: domain.RoleA})
		require.NoError(t, err)
		require.Equal(t, "new@example.com", resp.Email)
		require.Equal(t, domain.RoleA, resp.Role)
		require.True(t, resp.IsActive)
		require.False(t, resp.EmailVerified)
		require.True(t, resp.MustSetPassword)

		_, unused := f.tokens.countByKind(resp.ID, models.TokenKindVerifyEmail)
		require.Equal(t, 1, unused)

		// welcome mail with the temp password, then the verification link
		require.Eventually(t, func() bool {
			return len(f.mailer.byKind("welcome")) == 1 && len(f.mailer.byKind("verification")) == 1
		}, time.Second, 10*time.Millisecond)
		require.NotEmpty(t, f.mailer.byKind("welcome")[0].token)

		entries, _, err := f.audit.List(ctx, models.AuditCreateUser, "user", 0, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.EqualValues(t, 1, entries[0].ActorID)
	})

	t.Run("admin role cannot be created through the API", func(t *testing.T) {
		f := newUserFixture()

		_, err := f.svc.CreateUser(ctx, 1, &CreateUserInput{Email: "boss@example.com", Role: domain.RoleAdmin})
		require.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("unknown role", func(t *testing.T) {
		f := newUserFixture()

		_, err := f.svc.CreateUser(ctx, 1, &CreateUserInput{Email: "x@example.com", Role: "C"})
		require.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("email is stored trimmed and lowercased", func(t *testing.T) {
		f := newUserFixture()

		resp, err := f.svc.CreateUser(ctx, 1, &CreateUserInput{Email: "  Mixed@Example.COM ", Role: domain.RoleB})
		require.NoError(t, err)
		require.Equal(t, "mixed@example.com", resp.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newUserFixture()

		_, err := f.svc.CreateUser(ctx, 1, &CreateUserInput{Email: "dup@example.com", Role: domain.RoleA})
		require.NoError(t, err)

		_, err = f.svc.CreateUser(ctx, 1, &CreateUserInput{Email: "dup@example.com", Role: domain.RoleB})
		require.ErrorIs(t, err, ErrEmailTaken)

		// casing differences are the same address
		_, err = f.svc.CreateUser(ctx, 1, &CreateUserInput{Email: "DUP@example.com", Role: domain.RoleB})
		require.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()

	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := f.svc.CreateUser(ctx, 1, &CreateUserInput{Email: email, Role: domain.RoleA})
		require.NoError(t, err)
	}

	users, total, err := f.svc.ListUsers(ctx, 0, 20)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, users, 2)
}

func TestSendDocument(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*userFixture, uint, uint) {
		f := newUserFixture()
		resp, err := f.svc.CreateUser(ctx, 1, &CreateUserInput{Email: "recipient@example.com", Role: domain.RoleA})
		require.NoError(t, err)

		attachment := &models.TaskAttachment{
			TaskID:       1,
			OriginalName: "report.pdf",
			StorageName:  "stored-report.pdf",
			SizeBytes:    42,
			UploadedBy:   1,
		}
		require.NoError(t, f.attach.Create(ctx, attachment))
		return f, resp.ID, attachment.ID
	}

	t.Run("document goes out with its original name", func(t *testing.T) {
		f, userID, attachmentID := setup(t)

		err := f.svc.SendDocument(ctx, &SendDocumentInput{UserID: userID, AttachmentID: attachmentID})
		require.NoError(t, err)

		sent := f.mailer.byKind("document")
		require.Len(t, sent, 1)
		require.Equal(t, "recipient@example.com", sent[0].to)
		require.Equal(t, "report.pdf", sent[0].token)
	})

	t.Run("unknown user", func(t *testing.T) {
		f, _, attachmentID := setup(t)

		err := f.svc.SendDocument(ctx, &SendDocumentInput{UserID: 999, AttachmentID: attachmentID})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown attachment", func(t *testing.T) {
		f, userID, _ := setup(t)

		err := f.svc.SendDocument(ctx, &SendDocumentInput{UserID: userID, AttachmentID: 999})
		require.ErrorIs(t, err, domain.ErrAttachmentNotFound)
	})

	t.Run("mail failure surfaces as a server error", func(t *testing.T) {
		f, userID, attachmentID := setup(t)
		f.mailer.setFail(true)

		err := f.svc.SendDocument(ctx, &SendDocumentInput{UserID: userID, AttachmentID: attachmentID})
		require.ErrorIs(t, err, domain.ErrInternalServer)
	})
}
