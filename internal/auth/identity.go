package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnauthenticated means the bearer token is missing, forged, expired or malformed.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrUpstreamUnavailable means the identity provider could not be reached.
	ErrUpstreamUnavailable = errors.New("auth: identity provider unavailable")
)

// Identity is a verified user identity. It is only produced by a Verifier.
type Identity struct {
	UserID    string
	ExpiresAt time.Time
}

// Valid reports whether the identity is usable at now.
func (i Identity) Valid(now time.Time) bool {
	if i.UserID == "" {
		return false
	}
	return i.ExpiresAt.IsZero() || now.Before(i.ExpiresAt)
}

// Verifier resolves a raw bearer token into a verified identity.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Identity, error)
}
