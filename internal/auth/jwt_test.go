package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"call-signaling/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

func newTestVerifier(t *testing.T, now time.Time) *SecretVerifier {
	t.Helper()
	v, err := NewSecretVerifier(config.AuthConfig{
		JWTSecret:   "secret",
		JWTIssuer:   "issuer",
		JWTAudience: "authenticated",
	})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	v.clock = func() time.Time { return now }
	return v
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	v := newTestVerifier(t, now)

	tok, err := v.Issue(now, "user-1", 15*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "user-1" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if !id.ExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry: %s", id.ExpiresAt)
	}
	if !id.Valid(now) || id.Valid(now.Add(time.Hour)) {
		t.Fatalf("unexpected validity window")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	v := newTestVerifier(t, now)

	tok, err := v.Issue(now.Add(-2*time.Hour), "user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestVerifyRejectsForgedSignature(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	v := newTestVerifier(t, now)

	forger, _ := NewSecretVerifier(config.AuthConfig{JWTSecret: "other", JWTIssuer: "issuer", JWTAudience: "authenticated"})
	tok, err := forger.Issue(now, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	v := newTestVerifier(t, now)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "issuer",
		Audience:  jwt.ClaimStrings{"authenticated"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	v := newTestVerifier(t, now)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "issuer",
		Audience:  jwt.ClaimStrings{"authenticated"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestVerifyRejectsEmpty(t *testing.T) {
	v := newTestVerifier(t, time.Now())
	if _, err := v.Verify(context.Background(), ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
