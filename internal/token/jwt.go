// Package token issues and validates the service's bearer tokens.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Monir-Ruet/authentication/internal/config"
	"github.com/Monir-Ruet/authentication/internal/domain"
)

// SessionClaims is the exact claim set baked into a session token: email and
// subject. Authorization claims are resolved from the store at request time,
// never from the token.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs session tokens with a symmetric key.
type Issuer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewIssuer builds the issuer from static configuration. The lifetime comes
// from ACCESS_TOKEN_TTL (15 minutes by default).
func NewIssuer(cfg config.Config) *Issuer {
	return &Issuer{
		key:      []byte(cfg.JWTKey),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		ttl:      cfg.AccessTokenTTL,
		now:      time.Now,
	}
}

// Issue signs a bearer token for the given user.
func (i *Issuer) Issue(user *domain.User) (string, error) {
	if user == nil {
		return "", domain.ErrInvalidArgument
	}

	now := i.now()
	claims := SessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a bearer token string.
func (i *Issuer) Validate(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}
