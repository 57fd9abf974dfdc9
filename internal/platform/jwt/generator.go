// Package jwtmw issues and verifies the access tokens used by the HTTP API.
package jwtmw

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// EnvKeyJWTSecret is the environment variable holding the HMAC signing secret.
const EnvKeyJWTSecret = "JWT_SECRET"

// ErrInvalidToken is returned by Parse for any token that cannot be trusted.
var ErrInvalidToken = errors.New("invalid token")

// Principal is the identity carried by a verified access token.
type Principal struct {
	UserID    string
	Email     string
	SessionID string
}

// generator signs HS256 access tokens.
type generator struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewGenerator creates a new JWT generator with the provided secret and expiration duration.
func NewGenerator(secret string, expiration time.Duration) *generator {
	return &generator{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

// GenerateToken creates a signed JWT bound to the given session.
func (g *generator) GenerateToken(userID, email, sessionID string) (string, error) {
	now := g.now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"sid":   sessionID,
		"exp":   now.Add(g.expiration).Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Expiration reports the lifetime of the tokens this generator signs.
func (g *generator) Expiration() time.Duration {
	return g.expiration
}

// Parse verifies tokenStr against secret and extracts the principal.
// Only HMAC signatures are accepted.
func Parse(secret, tokenStr string) (*Principal, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	sid, _ := claims["sid"].(string)

	return &Principal{UserID: sub, Email: email, SessionID: sid}, nil
}
