package auth

import (
	"context"
	"errors"
	"fmt"
	"net"

	"call-signaling/internal/config"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier verifies bearer tokens against an OpenID Connect issuer using
// discovery and the issuer's published key set.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier performs discovery against cfg.OIDCIssuer.
func NewOIDCVerifier(ctx context.Context, cfg config.AuthConfig) (*OIDCVerifier, error) {
	if cfg.OIDCIssuer == "" {
		return nil, errors.New("AUTH_OIDC_ISSUER is required")
	}
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery failed: %w", err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{
			ClientID:          cfg.OIDCClientID,
			SkipClientIDCheck: cfg.OIDCClientID == "",
		}),
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (Identity, error) {
	if rawToken == "" {
		return Identity{}, ErrUnauthenticated
	}
	tok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Identity{}, classifyOIDCError(err)
	}
	if tok.Subject == "" {
		return Identity{}, fmt.Errorf("%w: subject missing", ErrUnauthenticated)
	}
	return Identity{UserID: tok.Subject, ExpiresAt: tok.Expiry}, nil
}

// classifyOIDCError separates key-set fetch failures from bad tokens.
func classifyOIDCError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
}
