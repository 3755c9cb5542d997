package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"call-signaling/internal/auth"
	"call-signaling/internal/calls"
)

var (
	ErrForbidden           = errors.New("media: requester is not a participant")
	ErrSessionEnded        = errors.New("media: session has ended")
	ErrProviderUnavailable = errors.New("media: provider unavailable")
)

// DefaultCredentialTTL is the validity of a join credential from issuance.
const DefaultCredentialTTL = time.Hour

// SessionSource is the read side of the call registry needed here.
type SessionSource interface {
	Get(ctx context.Context, id string) (calls.Session, error)
}

// Gateway is the sole authorization checkpoint for media access. Issuance is
// a pure function of (identity, session, clock, ttl) and holds no state.
type Gateway struct {
	sessions SessionSource
	provider Provider
	ttl      time.Duration
	clock    func() time.Time
}

func NewGateway(sessions SessionSource, provider Provider, ttl time.Duration) *Gateway {
	if ttl <= 0 {
		ttl = DefaultCredentialTTL
	}
	return &Gateway{sessions: sessions, provider: provider, ttl: ttl, clock: time.Now}
}

// IssueJoinCredential checks, in order: a valid identity, an existing session,
// participation, and a non-ended status; then mints a publish+subscribe
// credential for room = session id.
func (g *Gateway) IssueJoinCredential(ctx context.Context, id auth.Identity, sessionID string) (Credential, error) {
	now := g.clock().UTC()
	if !id.Valid(now) {
		return Credential{}, auth.ErrUnauthenticated
	}
	if g.sessions == nil || g.provider == nil {
		return Credential{}, fmt.Errorf("%w: gateway not configured", ErrProviderUnavailable)
	}

	s, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		return Credential{}, err
	}
	if !s.IsParticipant(id.UserID) {
		return Credential{}, ErrForbidden
	}
	if s.IsEnded() {
		return Credential{}, ErrSessionEnded
	}

	// Both participants get identical capabilities; there are no roles.
	cred, err := g.provider.Mint(ctx, Grant{
		Identity:     id.UserID,
		Room:         s.ID,
		CanPublish:   true,
		CanSubscribe: true,
		IssuedAt:     now,
		ExpiresAt:    now.Add(g.ttl),
	})
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, g.provider.Name(), err)
	}
	return cred, nil
}
