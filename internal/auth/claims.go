package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the bearer token claims accepted from the identity provider.
// The subject carries the user id; Role and Email are informational only and
// never feed an authorization decision.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}
