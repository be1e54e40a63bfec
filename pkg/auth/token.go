// Package auth verifies bearer tokens issued by the identity service.
// Token issuance lives outside this service; verification yields the
// caller's owner id and nothing more.
package auth

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	jwtlib.RegisteredClaims
}

// ParseOwner validates a token and extracts the owner id from its
// subject claim.
func ParseOwner(token, secret string) (uuid.UUID, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}))

	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return uuid.Nil, jwtlib.ErrTokenInvalidClaims
	}

	return uuid.Parse(claims.Subject)
}

// GenerateToken issues a signed token for an owner id. Used by tests
// and local tooling; production tokens come from the identity service.
func GenerateToken(owner uuid.UUID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   owner.String(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}
