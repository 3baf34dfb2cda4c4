// Package auth verifies the signed session tokens issued to platform users.
// It is the identity-lookup collaborator consumed by the route handler: given
// an inbound bearer token it returns the authenticated user identity, or
// ErrUnauthenticated.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"coachmotion-backend/internal/integrations/paramstore"
)

// ErrUnauthenticated is returned for any token that cannot be verified.
// The cause is deliberately not distinguished to callers.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// Identity is the verified subject of a session token.
type Identity struct {
	UserID   string `json:"userId"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

type tokenClaims struct {
	Identity
	ExpiresAt int64 `json:"exp"`
}

// Verifier checks HMAC-SHA256 signed session tokens. The signing secret is
// fetched from SSM on first use and cached for the process lifetime.
type Verifier struct {
	params     paramstore.Getter
	secretName string

	secretOnce sync.Once
	secret     []byte
	secretErr  error
}

// now is overridable in tests.
var now = time.Now

func NewVerifier(params paramstore.Getter, secretName string) (*Verifier, error) {
	if params == nil {
		return nil, errors.New("auth: paramstore getter must not be nil")
	}
	secretName = strings.TrimSpace(secretName)
	if secretName == "" {
		return nil, errors.New("auth: secret parameter name must not be empty")
	}
	return &Verifier{params: params, secretName: secretName}, nil
}

func (v *Verifier) resolveSecret(ctx context.Context) ([]byte, error) {
	v.secretOnce.Do(func() {
		tok, err := paramstore.GetSecretToken(ctx, v.params, v.secretName)
		if err != nil {
			v.secretErr = err
			return
		}
		v.secret = []byte(tok)
	})
	return v.secret, v.secretErr
}

// Verify parses and checks a session token of the form
// base64url(claimsJSON) + "." + base64url(hmac-sha256(claimsJSON)).
func (v *Verifier) Verify(ctx context.Context, token string) (Identity, error) {
	secret, err := v.resolveSecret(ctx)
	if err != nil {
		return Identity{}, err
	}

	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 2 {
		return Identity{}, ErrUnauthenticated
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return Identity{}, ErrUnauthenticated
	}

	var claims tokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Identity{}, ErrUnauthenticated
	}
	if claims.UserID == "" {
		return Identity{}, ErrUnauthenticated
	}
	if claims.ExpiresAt != 0 && now().Unix() >= claims.ExpiresAt {
		return Identity{}, ErrUnauthenticated
	}
	return claims.Identity, nil
}

// SignToken builds a token Verify accepts. Used by tests and by the local
// development tooling; production tokens are minted by the identity service.
func SignToken(secret []byte, id Identity, expiresAt time.Time) (string, error) {
	claims := tokenClaims{Identity: id}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = expiresAt.Unix()
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}
