package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized is returned when the bearer token is missing or wrong.
var ErrUnauthorized = errors.New("invalid admin token")

// Authorizer checks admin credentials against a single shared secret that
// is fixed when the Authorizer is built.
type Authorizer struct {
	secret []byte
}

// New returns an Authorizer for secret. An empty secret rejects every
// request, so deletes stay disabled until ADMIN_TOKEN is configured.
func New(secret string) *Authorizer {
	return &Authorizer{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (a *Authorizer) Enabled() bool {
	return len(a.secret) > 0
}

// CheckToken compares token with the secret in constant time.
func (a *Authorizer) CheckToken(token string) error {
	if !a.Enabled() || token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(token), a.secret) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// CheckRequest validates the "Authorization: Bearer <token>" header.
func (a *Authorizer) CheckRequest(r *http.Request) error {
	return a.CheckToken(BearerToken(r))
}

// BearerToken extracts the token from an Authorization header, or "" when
// the header is absent or uses another scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
