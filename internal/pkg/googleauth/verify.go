package googleauth

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"
)

// Verifier validates Google ID tokens against a configured OAuth client ID.
type Verifier struct {
	ClientID string
}

// Profile is the subset of ID token claims the auth service needs.
type Profile struct {
	Email string
}

// VerifyIDToken validates the token signature and audience and extracts the email
func (v Verifier) VerifyIDToken(ctx context.Context, idTok string) (*Profile, error) {
	if v.ClientID == "" {
		return nil, errors.New("google client id not configured")
	}

	payload, err := idtoken.Validate(ctx, idTok, v.ClientID)
	if err != nil {
		return nil, err
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, errors.New("email not present in id token")
	}

	return &Profile{Email: email}, nil
}
