package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validity is the lifetime of every derived bearer token. The upstream
// contract fixes this at 5 minutes regardless of the signing key's age.
const Validity = 5 * time.Minute

const (
	DefaultIssuer   = "gemini-business"
	DefaultAudience = "gemini-business-api"
)

// ErrInvalidSecret reports a signing secret that cannot be decoded.
var ErrInvalidSecret = errors.New("invalid signing secret")

// Identity is the claim set baked into every derived token.
type Identity struct {
	Issuer   string
	Audience string
	Subject  string // account (team) id
}

// Derive builds an HS256-signed bearer token locally from a base64-encoded
// signing secret. No I/O: identical inputs at the same instant always yield
// a byte-identical token.
func Derive(secret string, identity Identity, now time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}

	iat := now.Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Issuer:    identity.Issuer,
		Subject:   identity.Subject,
		Audience:  jwt.ClaimStrings{identity.Audience},
		ExpiresAt: jwt.NewNumericDate(iat.Add(Validity)),
		NotBefore: jwt.NewNumericDate(iat),
		IssuedAt:  jwt.NewNumericDate(iat),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// decodeSecret accepts the padded form the auth endpoint returns, and the
// unpadded form some older sessions carry.
func decodeSecret(secret string) ([]byte, error) {
	if key, err := base64.StdEncoding.DecodeString(secret); err == nil {
		return key, nil
	}
	return base64.RawStdEncoding.DecodeString(secret)
}
