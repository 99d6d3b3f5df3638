package jwt_test

import (
	"testing"

	"github.com/PriyalGandhi19/taskmanager/internal/pkg/jwt"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func TestGenerateAndValidateAccessToken(t *testing.T) {
	token, err := jwt.GenerateAccessToken(42, "ADMIN", "admin@example.com", testSecret, 15)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwt.ValidateAccessToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.UserID)
	require.Equal(t, "ADMIN", claims.Role)
	require.Equal(t, "admin@example.com", claims.Email)
	require.Equal(t, jwt.TokenKindAccess, claims.Kind)
}

func TestGenerateAccessTokenMissingSecret(t *testing.T) {
	_, err := jwt.GenerateAccessToken(1, "A", "a@example.com", "", 15)
	require.ErrorIs(t, err, jwt.ErrSecretMissing)
}

func TestValidateAccessToken(t *testing.T) {
	t.Run("expired token", func(t *testing.T) {
		token, err := jwt.GenerateAccessToken(1, "A", "a@example.com", testSecret, -1)
		require.NoError(t, err)

		_, err = jwt.ValidateAccessToken(token, testSecret)
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := jwt.GenerateAccessToken(1, "A", "a@example.com", testSecret, 15)
		require.NoError(t, err)

		_, err = jwt.ValidateAccessToken(token, "other-secret")
		require.ErrorIs(t, err, jwt.ErrTokenInvalid)
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := jwt.ValidateAccessToken("anything", "")
		require.ErrorIs(t, err, jwt.ErrSecretMissing)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := jwt.ValidateAccessToken("not.a.jwt", testSecret)
		require.ErrorIs(t, err, jwt.ErrTokenInvalid)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := jwt.ValidateAccessToken("", testSecret)
		require.ErrorIs(t, err, jwt.ErrTokenInvalid)
	})
}
