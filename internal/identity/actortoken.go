// Package identity issues and verifies actor session tokens for the HTTP
// surface. The rest of the system only ever sees the opaque actor identifier
// the token carries; who authenticated the actor and how is out of scope.
package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ActorClaims are the JWT claims for a traceview session.
type ActorClaims struct {
	jwt.RegisteredClaims
	// Actor is the opaque identifier recorded against custody events.
	Actor string `json:"actor"`
	// Role is the participant role label, informational only.
	Role string `json:"role,omitempty"`
}

// ActorTokens issues and verifies HMAC-signed session tokens.
type ActorTokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewActorTokens creates a token issuer.
//
//	secret — HMAC key; must be non-empty.
//	issuer — the "iss" claim value; matches the daemon's base URL.
//	ttl    — token lifetime (default: 24 hours).
func NewActorTokens(secret []byte, issuer string, ttl time.Duration) (*ActorTokens, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("actor token secret must not be empty")
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &ActorTokens{secret: secret, issuer: issuer, ttl: ttl}, nil
}

// Issue creates a signed session token for an actor.
func (a *ActorTokens) Issue(actor, role string) (string, error) {
	now := time.Now().UTC()
	claims := ActorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   actor,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			ID:        uuid.New().String(),
		},
		Actor: actor,
		Role:  role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign actor token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, returning its claims.
func (a *ActorTokens) Verify(tokenStr string) (*ActorClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&ActorClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithIssuer(a.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("verify actor token: %w", err)
	}
	claims, ok := token.Claims.(*ActorClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("actor token claims invalid")
	}
	if claims.Actor == "" {
		return nil, fmt.Errorf("actor token missing actor claim")
	}
	return claims, nil
}
