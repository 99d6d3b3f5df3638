package password

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Password policy errors. All wrap ErrWeakPassword so handlers can map
// the whole family with a single errors.Is check.
var (
	ErrWeakPassword = errors.New("password does not meet requirements")

	ErrPasswordTooShort = fmt.Errorf("%w: must be at least 8 characters", ErrWeakPassword)
	ErrPasswordTooLong  = fmt.Errorf("%w: must be at most 128 characters", ErrWeakPassword)
	ErrPasswordNoLower  = fmt.Errorf("%w: must contain a lowercase letter", ErrWeakPassword)
	ErrPasswordNoUpper  = fmt.Errorf("%w: must contain an uppercase letter", ErrWeakPassword)
	ErrPasswordNoDigit  = fmt.Errorf("%w: must contain a digit", ErrWeakPassword)
	ErrPasswordNoSymbol = fmt.Errorf("%w: must contain a symbol", ErrWeakPassword)
)

const (
	// DefaultCost is the default bcrypt cost
	DefaultCost = 12

	// UnusablePassword is stored for accounts provisioned via OAuth.
	// It is not a valid bcrypt hash, so Verify can never succeed against it.
	UnusablePassword = "!oauth-no-password"
)

// Hash hashes a password using bcrypt
func Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify compares a password with a hash
func Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// HashToken hashes a token using SHA256 (refresh tokens and one-time tokens
// are stored as digests only, so lookups are by digest equality)
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// NewOpaqueToken generates a cryptographically random url-safe secret of
// byteLen random bytes. 48 bytes for refresh tokens, 32 for one-time tokens.
func NewOpaqueToken(byteLen int) (string, error) {
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidatePassword checks the password against the full policy:
// 8-128 characters with at least one lowercase letter, one uppercase
// letter, one digit and one symbol
func ValidatePassword(password string) error {
	runes := []rune(password)
	if len(runes) < 8 {
		return ErrPasswordTooShort
	}
	if len(runes) > 128 {
		return ErrPasswordTooLong
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range runes {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r) && r != '_':
			hasSymbol = true
		}
	}

	switch {
	case !hasLower:
		return ErrPasswordNoLower
	case !hasUpper:
		return ErrPasswordNoUpper
	case !hasDigit:
		return ErrPasswordNoDigit
	case !hasSymbol:
		return ErrPasswordNoSymbol
	}
	return nil
}
