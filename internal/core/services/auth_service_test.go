package services

import (
	"context"
	"testing"
	"time"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"
	"github.com/PriyalGandhi19/taskmanager/internal/config"
	"github.com/PriyalGandhi19/taskmanager/internal/core/domain"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/jwt"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/password"
	"github.com/stretchr/testify/require"
)

var testClient = ClientInfo{IP: "127.0.0.1", UserAgent: "go-test"}

func actorClaimsForTest(userID uint, email string) *jwt.Claims {
	return &jwt.Claims{UserID: userID, Email: email}
}

type authFixture struct {
	users    *fakeUserRepo
	refresh  *fakeRefreshRepo
	tokens   *fakeOneTimeTokenRepo
	activity *fakeActivityRepo
	mailer   *fakeMailer
	svc      *AuthService
}

func newAuthFixture() *authFixture {
	cfg := &config.Config{
		JWT:   config.JWTConfig{Secret: "test-secret", AccessTokenMins: 15, RefreshTokenDays: 7},
		Token: config.TokenConfig{VerifyEmailMins: 60, SetPasswordMins: 60, PasswordResetMins: 15},
	}

	f := &authFixture{
		users:    newFakeUserRepo(),
		refresh:  newFakeRefreshRepo(),
		tokens:   newFakeOneTimeTokenRepo(),
		activity: &fakeActivityRepo{},
		mailer:   &fakeMailer{},
	}
	f.svc = NewAuthService(f.users, f.refresh, f.tokens, f.activity, f.mailer, fakeGoogleVerifier{}, cfg)
	return f
}

func (f *authFixture) addUser(t *testing.T, email, plain string, mutate func(*models.User)) *models.User {
	t.Helper()

	hash, err := password.Hash(plain)
	require.NoError(t, err)

	u := &models.User{
		Email:         email,
		PasswordHash:  hash,
		Role:          domain.RoleA,
		IsActive:      true,
		EmailVerified: true,
	}
	if mutate != nil {
		mutate(u)
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *authFixture) addOneTimeToken(t *testing.T, userID uint, kind string, ttl time.Duration) string {
	t.Helper()

	plain, err := password.NewOpaqueToken(32)
	require.NoError(t, err)

	record := &models.OneTimeToken{
		UserID:    userID,
		Kind:      kind,
		TokenHash: password.HashToken(plain),
		ExpiresAt: time.Now().Add(ttl),
	}
	require.NoError(t, f.tokens.Replace(context.Background(), record))
	return plain
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success issues tokens and records the login", func(t *testing.T) {
		f := newAuthFixture()
		user := f.addUser(t, "a@example.com", "secret-pass", nil)

		resp, err := f.svc.Login(ctx, &LoginInput{Email: "a@example.com", Password: "secret-pass"}, testClient)
		require.NoError(t, err)
		require.Equal(t, user.ID, resp.User.ID)
		require.NotEmpty(t, resp.AccessToken)
		require.NotEmpty(t, resp.RefreshToken)

		// refresh token is persisted as a digest, never plaintext
		stored, err := f.refresh.GetByTokenHash(ctx, password.HashToken(resp.RefreshToken))
		require.NoError(t, err)
		require.Equal(t, user.ID, stored.UserID)

		logins := f.activity.byEvent(domain.EventLogin)
		require.Len(t, logins, 1)
		require.NotNil(t, logins[0].UserID)
		require.Equal(t, user.ID, *logins[0].UserID)
		require.True(t, logins[0].Success)
	})

	t.Run("email is matched after trimming and lowercasing", func(t *testing.T) {
		f := newAuthFixture()
		user := f.addUser(t, "a@example.com", "secret-pass", nil)

		resp, err := f.svc.Login(ctx, &LoginInput{Email: "  A@Example.COM  ", Password: "secret-pass"}, testClient)
		require.NoError(t, err)
		require.Equal(t, user.ID, resp.User.ID)
	})

	t.Run("unknown email fails generically with no trail", func(t *testing.T) {
		f := newAuthFixture()

		_, err := f.svc.Login(ctx, &LoginInput{Email: "ghost@example.com", Password: "whatever"}, testClient)
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
		require.Empty(t, f.activity.byEvent(domain.EventFailedLogin))
	})

	t.Run("inactive account fails generically even when unverified", func(t *testing.T) {
		f := newAuthFixture()
		f.addUser(t, "off@example.com", "secret-pass", func(u *models.User) {
			u.IsActive = false
			u.EmailVerified = false
		})

		_, err := f.svc.Login(ctx, &LoginInput{Email: "off@example.com", Password: "secret-pass"}, testClient)
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
		require.Empty(t, f.activity.byEvent(domain.EventFailedLogin))
	})

	t.Run("unverified email is reported before the password check", func(t *testing.T) {
		f := newAuthFixture()
		f.addUser(t, "new@example.com", "secret-pass", func(u *models.User) {
			u.EmailVerified = false
		})

		_, err := f.svc.Login(ctx, &LoginInput{Email: "new@example.com", Password: "totally-wrong"}, testClient)
		require.ErrorIs(t, err, domain.ErrEmailNotVerified)
		require.Empty(t, f.activity.byEvent(domain.EventFailedLogin))
	})

	t.Run("pending first password is reported before the password check", func(t *testing.T) {
		f := newAuthFixture()
		f.addUser(t, "pending@example.com", "secret-pass", func(u *models.User) {
			u.MustSetPassword = true
		})

		_, err := f.svc.Login(ctx, &LoginInput{Email: "pending@example.com", Password: "secret-pass"}, testClient)
		require.ErrorIs(t, err, domain.ErrMustSetPassword)
		require.Empty(t, f.activity.byEvent(domain.EventFailedLogin))
	})

	t.Run("wrong password records a FAILED_LOGIN without a user link", func(t *testing.T) {
		f := newAuthFixture()
		f.addUser(t, "a@example.com", "secret-pass", nil)

		_, err := f.svc.Login(ctx, &LoginInput{Email: "a@example.com", Password: "wrong"}, testClient)
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)

		failed := f.activity.byEvent(domain.EventFailedLogin)
		require.Len(t, failed, 1)
		require.Nil(t, failed[0].UserID)
		require.Equal(t, "a@example.com", failed[0].Email)
		require.False(t, failed[0].Success)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token yields a new access token only", func(t *testing.T) {
		f := newAuthFixture()
		f.addUser(t, "a@example.com", "secret-pass", nil)

		login, err := f.svc.Login(ctx, &LoginInput{Email: "a@example.com", Password: "secret-pass"}, testClient)
		require.NoError(t, err)

		resp, err := f.svc.Refresh(ctx, login.RefreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, resp.AccessToken)

		// the stored refresh token is untouched, no rotation
		require.Equal(t, 1, f.refresh.count())
		stored, err := f.refresh.GetByTokenHash(ctx, password.HashToken(login.RefreshToken))
		require.NoError(t, err)
		require.False(t, stored.IsRevoked())
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newAuthFixture()

		_, err := f.svc.Refresh(ctx, "never-issued")
		require.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	})

	t.Run("revoked token", func(t *testing.T) {
		f := newAuthFixture()
		f.addUser(t, "a@example.com", "secret-pass", nil)

		login, err := f.svc.Login(ctx, &LoginInput{Email: "a@example.com", Password: "secret-pass"}, testClient)
		require.NoError(t, err)
		require.NoError(t, f.svc.Logout(ctx, login.RefreshToken, nil, testClient))

		_, err = f.svc.Refresh(ctx, login.RefreshToken)
		require.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newAuthFixture()
		f.addUser(t, "a@example.com", "secret-pass", nil)

		login, err := f.svc.Login(ctx, &LoginInput{Email: "a@example.com", Password: "secret-pass"}, testClient)
		require.NoError(t, err)

		f.svc.now = func() time.Time { return time.Now().AddDate(0, 0, 8) }

		_, err = f.svc.Refresh(ctx, login.RefreshToken)
		require.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	})

	t.Run("deactivated user", func(t *testing.T) {
		f := newAuthFixture()
		user := f.addUser(t, "a@example.com", "secret-pass", nil)

		login, err := f.svc.Login(ctx, &LoginInput{Email: "a@example.com", Password: "secret-pass"}, testClient)
		require.NoError(t, err)

		user.IsActive = false
		require.NoError(t, f.users.Update(ctx, user))

		_, err = f.svc.Refresh(ctx, login.RefreshToken)
		require.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes the token and repeats are no-ops", func(t *testing.T) {
		f := newAuthFixture()
		f.addUser(t, "a@example.com", "secret-pass", nil)

		login, err := f.svc.Login(ctx, &LoginInput{Email: "a@example.com", Password: "secret-pass"}, testClient)
		require.NoError(t, err)

		require.NoError(t, f.svc.Logout(ctx, login.RefreshToken, nil, testClient))
		require.NoError(t, f.svc.Logout(ctx, login.RefreshToken, nil, testClient))

		_, err = f.svc.Refresh(ctx, login.RefreshToken)
		require.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	})

	t.Run("unknown token still succeeds", func(t *testing.T) {
		f := newAuthFixture()
		require.NoError(t, f.svc.Logout(ctx, "never-issued", nil, testClient))
	})

	t.Run("known actor leaves a LOGOUT trail entry", func(t *testing.T) {
		f := newAuthFixture()
		user := f.addUser(t, "a@example.com", "secret-pass", nil)

		login, err := f.svc.Login(ctx, &LoginInput{Email: "a@example.com", Password: "secret-pass"}, testClient)
		require.NoError(t, err)

		claims := actorClaimsForTest(user.ID, user.Email)
		require.NoError(t, f.svc.Logout(ctx, login.RefreshToken, claims, testClient))

		logouts := f.activity.byEvent(domain.EventLogout)
		require.Len(t, logouts, 1)
		require.Equal(t, user.ID, *logouts[0].UserID)
	})
}

func TestLogoutAll(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	user := f.addUser(t, "a@example.com", "secret-pass", nil)

	first, err := f.svc.Login(ctx, &LoginInput{Email: "a@example.com", Password: "secret-pass"}, testClient)
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, &LoginInput{Email: "a@example.com", Password: "secret-pass"}, testClient)
	require.NoError(t, err)

	require.NoError(t, f.svc.LogoutAll(ctx, user.ID))

	_, err = f.svc.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	_, err = f.svc.Refresh(ctx, second.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("known account gets a reset token and mail", func(t *testing.T) {
		f := newAuthFixture()
		user := f.addUser(t, "a@example.com", "secret-pass", nil)

		require.NoError(t, f.svc.ForgotPassword(ctx, "a@example.com"))

		_, unused := f.tokens.countByKind(user.ID, models.TokenKindPasswordReset)
		require.Equal(t, 1, unused)

		require.Eventually(t, func() bool {
			return len(f.mailer.byKind("password_reset")) == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("unknown account succeeds silently", func(t *testing.T) {
		f := newAuthFixture()

		require.NoError(t, f.svc.ForgotPassword(ctx, "ghost@example.com"))
		require.Empty(t, f.mailer.byKind("password_reset"))
	})

	t.Run("inactive account succeeds silently", func(t *testing.T) {
		f := newAuthFixture()
		user := f.addUser(t, "off@example.com", "secret-pass", func(u *models.User) {
			u.IsActive = false
		})

		require.NoError(t, f.svc.ForgotPassword(ctx, "off@example.com"))

		total, _ := f.tokens.countByKind(user.ID, models.TokenKindPasswordReset)
		require.Zero(t, total)
	})

	t.Run("repeat requests keep a single live token", func(t *testing.T) {
		f := newAuthFixture()
		user := f.addUser(t, "a@example.com", "secret-pass", nil)

		require.NoError(t, f.svc.ForgotPassword(ctx, "a@example.com"))
		require.NoError(t, f.svc.ForgotPassword(ctx, "a@example.com"))

		total, unused := f.tokens.countByKind(user.ID, models.TokenKindPasswordReset)
		require.Equal(t, 2, total)
		require.Equal(t, 1, unused)
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token sets the new password once", func(t *testing.T) {
		f := newAuthFixture()
		user := f.addUser(t, "a@example.com", "old-password", nil)
		token := f.addOneTimeToken(t, user.ID, models.TokenKindPasswordReset, 15*time.Minute)

		require.NoError(t, f.svc.ResetPassword(ctx, token, "New-password7"))

		_, err := f.svc.Login(ctx, &LoginInput{Email: "a@example.com", Password: "New-password7"}, testClient)
		require.NoError(t, err)
		_, err = f.svc.Login(ctx, &LoginInput{Email: "a@example.com", Password: "old-password"}, testClient)
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)

		// the token is consumed
		require.ErrorIs(t, f.svc.ResetPassword(ctx, token, "Another-pass7"), domain.ErrInvalidOrExpiredToken)
	})

	t.Run("reset leaves the first-password flag alone", func(t *testing.T) {
		f := newAuthFixture()
		user := f.addUser(t, "a@example.com", "old-password", nil)
		token := f.addOneTimeToken(t, user.ID, models.TokenKindPasswordReset, 15*time.Minute)

		require.NoError(t, f.svc.ResetPassword(ctx, token, "New-password7"))

		updated, err := f.users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, updated.MustSetPassword)
	})

	t.Run("weak password is rejected before the token is touched", func(t *testing.T) {
		f := newAuthFixture()
		user := f.addUser(t, "a@example.com", "old-password", nil)
		token := f.addOneTimeToken(t, user.ID, models.TokenKindPasswordReset, 15*time.Minute)

		require.ErrorIs(t, f.svc.ResetPassword(ctx, token, "short"), password.ErrPasswordTooShort)
		require.ErrorIs(t, f.svc.ResetPassword(ctx, token, "no-upper-case-7"), password.ErrWeakPassword)

		// still usable afterwards
		require.NoError(t, f.svc.ResetPassword(ctx, token, "New-password7"))
	})

	t.Run("expired token", func(t *testing.T) {
		f := newAuthFixture()
		user := f.addUser(t, "a@example.com", "old-password", nil)
		token := f.addOneTimeToken(t, user.ID, models.TokenKindPasswordReset, 15*time.Minute)

		f.svc.now = func() time.Time { return time.Now().Add(time.Hour) }

		require.ErrorIs(t, f.svc.ResetPassword(ctx, token, "New-password7"), domain.ErrInvalidOrExpiredToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		f := newAuthFixture()
		require.ErrorIs(t, f.svc.ResetPassword(ctx, "garbage", "New-password7"), domain.ErrInvalidOrExpiredToken)
	})
}

func TestVerifyEmailThenSetPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	user := f.addUser(t, "new@example.com", "temp-password", func(u *models.User) {
		u.EmailVerified = false
		u.MustSetPassword = true
	})
	verifyToken := f.addOneTimeToken(t, user.ID, models.TokenKindVerifyEmail, time.Hour)

	// verify flips the flags and issues a set-password token
	require.NoError(t, f.svc.VerifyEmail(ctx, verifyToken))

	verified, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, verified.EmailVerified)
	require.True(t, verified.MustSetPassword)

	require.ErrorIs(t, f.svc.VerifyEmail(ctx, verifyToken), domain.ErrInvalidOrExpiredToken)

	// login is still blocked until the password is chosen
	_, err = f.svc.Login(ctx, &LoginInput{Email: "new@example.com", Password: "temp-password"}, testClient)
	require.ErrorIs(t, err, domain.ErrMustSetPassword)

	// the set-password token is mailed out
	var setToken string
	require.Eventually(t, func() bool {
		sent := f.mailer.byKind("set_password")
		if len(sent) != 1 {
			return false
		}
		setToken = sent[0].token
		return true
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, f.svc.SetPassword(ctx, setToken, "Chosen-pass7"))

	resp, err := f.svc.Login(ctx, &LoginInput{Email: "new@example.com", Password: "Chosen-pass7"}, testClient)
	require.NoError(t, err)
	require.False(t, resp.User.MustSetPassword)

	// the set-password token is single use too
	require.ErrorIs(t, f.svc.SetPassword(ctx, setToken, "Another-pass7"), domain.ErrInvalidOrExpiredToken)
}

func TestGoogleLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email is provisioned active and verified", func(t *testing.T) {
		f := newAuthFixture()

		resp, err := f.svc.GoogleLogin(ctx, "google:fresh@example.com", testClient)
		require.NoError(t, err)
		require.Equal(t, "fresh@example.com", resp.User.Email)
		require.Equal(t, domain.RoleA, resp.User.Role)
		require.True(t, resp.User.IsActive)
		require.True(t, resp.User.EmailVerified)
		require.False(t, resp.User.MustSetPassword)
		require.NotEmpty(t, resp.RefreshToken)

		// the placeholder hash can never satisfy a password login
		stored, err := f.users.GetByEmail(ctx, "fresh@example.com")
		require.NoError(t, err)
		require.Equal(t, password.UnusablePassword, stored.PasswordHash)

		_, err = f.svc.Login(ctx, &LoginInput{Email: "fresh@example.com", Password: ""}, testClient)
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("existing account signs in unchanged", func(t *testing.T) {
		f := newAuthFixture()
		user := f.addUser(t, "a@example.com", "secret-pass", func(u *models.User) {
			u.Role = domain.RoleB
		})

		resp, err := f.svc.GoogleLogin(ctx, "google:a@example.com", testClient)
		require.NoError(t, err)
		require.Equal(t, user.ID, resp.User.ID)
		require.Equal(t, domain.RoleB, resp.User.Role)

		logins := f.activity.byEvent(domain.EventLogin)
		require.Len(t, logins, 1)
	})

	t.Run("inactive account is rejected generically", func(t *testing.T) {
		f := newAuthFixture()
		f.addUser(t, "off@example.com", "secret-pass", func(u *models.User) {
			u.IsActive = false
		})

		_, err := f.svc.GoogleLogin(ctx, "google:off@example.com", testClient)
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("bad id token", func(t *testing.T) {
		f := newAuthFixture()

		_, err := f.svc.GoogleLogin(ctx, "not-a-google-token", testClient)
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	user := f.addUser(t, "a@example.com", "secret-pass", nil)

	resp, err := f.svc.Me(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, resp.Email)

	_, err = f.svc.Me(ctx, 999)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
