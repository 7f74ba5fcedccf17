package token

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testIdentity = Identity{
	Issuer:   DefaultIssuer,
	Audience: DefaultAudience,
	Subject:  "team-123",
}

func testSecret(t *testing.T) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func TestDerive_Deterministic(t *testing.T) {
	secret := testSecret(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 500_000_000, time.UTC)

	tok1, err := Derive(secret, testIdentity, now)
	if err != nil {
		t.Fatalf("Derive error: %v", err)
	}
	tok2, err := Derive(secret, testIdentity, now)
	if err != nil {
		t.Fatalf("Derive error: %v", err)
	}
	if tok1 != tok2 {
		t.Fatalf("same inputs produced different tokens:\n%s\n%s", tok1, tok2)
	}
}

func TestDerive_Claims(t *testing.T) {
	secret := testSecret(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tok, err := Derive(secret, testIdentity, now)
	if err != nil {
		t.Fatalf("Derive error: %v", err)
	}

	key, _ := base64.StdEncoding.DecodeString(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now.Add(time.Second) }),
		jwt.WithIssuer(DefaultIssuer),
		jwt.WithAudience(DefaultAudience),
	)
	var claims jwt.RegisteredClaims
	if _, err := parser.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		t.Fatalf("parse derived token: %v", err)
	}

	if claims.Subject != "team-123" {
		t.Fatalf("subject: got %q want %q", claims.Subject, "team-123")
	}
	if !claims.IssuedAt.Time.Equal(now) {
		t.Fatalf("iat: got %v want %v", claims.IssuedAt.Time, now)
	}
	if !claims.NotBefore.Time.Equal(now) {
		t.Fatalf("nbf: got %v want %v", claims.NotBefore.Time, now)
	}
	if want := now.Add(Validity); !claims.ExpiresAt.Time.Equal(want) {
		t.Fatalf("exp: got %v want %v", claims.ExpiresAt.Time, want)
	}
}

func TestDerive_UnpaddedSecret(t *testing.T) {
	secret := base64.RawStdEncoding.EncodeToString([]byte("0123456789abcdef0123"))
	if _, err := Derive(secret, testIdentity, time.Now()); err != nil {
		t.Fatalf("unpadded secret rejected: %v", err)
	}
}

func TestDerive_InvalidSecret(t *testing.T) {
	_, err := Derive("not!!valid@@base64", testIdentity, time.Now())
	if !errors.Is(err, ErrInvalidSecret) {
		t.Fatalf("expected ErrInvalidSecret, got %v", err)
	}
}
