package media

import (
	"context"
	"time"
)

// Provider mints join credentials for the external real-time media layer.
//
// Rules:
// - No media SDK or transport calls outside provider adapters.
// - The transport trusts the credential blindly; authorization happens before Mint.
type Provider interface {
	Name() string
	ServerURL() string
	Mint(ctx context.Context, g Grant) (Credential, error)
}

// Grant is what a credential authorizes: one identity, one room, a capability set, a validity window.
type Grant struct {
	Identity     string
	Room         string
	CanPublish   bool
	CanSubscribe bool
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Credential is an ephemeral, never-persisted join credential.
type Credential struct {
	Token        string    `json:"token"`
	ServerURL    string    `json:"serverUrl"`
	Room         string    `json:"roomName"`
	Identity     string    `json:"identity"`
	CanPublish   bool      `json:"canPublish"`
	CanSubscribe bool      `json:"canSubscribe"`
	ExpiresAt    time.Time `json:"expiry"`
}
