package media

import (
	"context"
	"errors"
	"fmt"

	"call-signaling/internal/config"

	lkauth "github.com/livekit/protocol/auth"
)

const livekitProviderName = "livekit"

// LiveKitProvider mints LiveKit room access tokens with the protocol SDK.
type LiveKitProvider struct {
	url       string
	apiKey    string
	apiSecret string
}

func NewLiveKitProvider(cfg config.LiveKitConfig) (*LiveKitProvider, error) {
	if cfg.URL == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("LIVEKIT_URL, LIVEKIT_API_KEY and LIVEKIT_API_SECRET are required")
	}
	return &LiveKitProvider{
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
	}, nil
}

func (p *LiveKitProvider) Name() string { return livekitProviderName }

func (p *LiveKitProvider) ServerURL() string { return p.url }

// Mint signs a room-join token for g. The SDK stamps nbf/exp from the wall
// clock; the validity length is taken from the grant window.
func (p *LiveKitProvider) Mint(_ context.Context, g Grant) (Credential, error) {
	if g.Identity == "" || g.Room == "" {
		return Credential{}, errors.New("livekit: identity and room are required")
	}
	validFor := g.ExpiresAt.Sub(g.IssuedAt)
	if validFor <= 0 {
		return Credential{}, errors.New("livekit: expiry must follow issuance")
	}

	canPublish, canSubscribe := g.CanPublish, g.CanSubscribe
	at := lkauth.NewAccessToken(p.apiKey, p.apiSecret).
		SetIdentity(g.Identity).
		SetValidFor(validFor).
		AddGrant(&lkauth.VideoGrant{
			RoomJoin:     true,
			Room:         g.Room,
			CanPublish:   &canPublish,
			CanSubscribe: &canSubscribe,
		})

	token, err := at.ToJWT()
	if err != nil {
		return Credential{}, fmt.Errorf("livekit: sign token: %w", err)
	}
	return Credential{
		Token:        token,
		ServerURL:    p.url,
		Room:         g.Room,
		Identity:     g.Identity,
		CanPublish:   canPublish,
		CanSubscribe: canSubscribe,
		ExpiresAt:    g.ExpiresAt.UTC(),
	}, nil
}

// Parse verifies a token against this provider's key pair the way the media
// server does on join, and returns the room grant it carries.
func (p *LiveKitProvider) Parse(token string) (Grant, error) {
	v, err := lkauth.ParseAPIToken(token)
	if err != nil {
		return Grant{}, fmt.Errorf("livekit: parse token: %w", err)
	}
	if v.APIKey() != p.apiKey {
		return Grant{}, errors.New("livekit: token issued for another api key")
	}
	claims, err := v.Verify(p.apiSecret)
	if err != nil {
		return Grant{}, fmt.Errorf("livekit: verify token: %w", err)
	}
	if claims.Video == nil || !claims.Video.RoomJoin || claims.Video.Room == "" {
		return Grant{}, errors.New("livekit: token carries no room grant")
	}

	g := Grant{
		Identity: claims.Identity,
		Room:     claims.Video.Room,
	}
	if claims.Video.CanPublish != nil {
		g.CanPublish = *claims.Video.CanPublish
	}
	if claims.Video.CanSubscribe != nil {
		g.CanSubscribe = *claims.Video.CanSubscribe
	}
	return g, nil
}
