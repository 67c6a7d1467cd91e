package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Monir-Ruet/authentication/internal/domain"
	"github.com/Monir-Ruet/authentication/internal/store"
)

// IdentityStore is the slice of the store the callback flow needs.
type IdentityStore interface {
	store.UserStore
	store.UserLoginStore
}

// Exchanger abstracts the provider client for tests.
type Exchanger interface {
	ExchangeCode(ctx context.Context, provider Provider, code string) (*TokenResponse, error)
	FetchProfile(ctx context.Context, provider Provider, accessToken string) (*Claims, error)
}

// TokenIssuer signs a local session token for a resolved user.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// Session is the outcome of a successful callback.
type Session struct {
	Token    string
	UserID   string
	Email    string
	Provider Provider
	// Created is true when this callback registered a brand-new account.
	Created bool
}

// Callback runs the authorization-code callback flow: exchange, profile
// fetch, claim normalization and account resolution.
type Callback struct {
	exchange Exchanger
	users    IdentityStore
	issuer   TokenIssuer
	logger   *zap.Logger
}

func NewCallback(exchange Exchanger, users IdentityStore, issuer TokenIssuer, logger *zap.Logger) *Callback {
	return &Callback{exchange: exchange, users: users, issuer: issuer, logger: logger}
}

// Handle validates the provider, exchanges the code and resolves the account.
// An existing (provider, key) login short-circuits to a session without
// touching the stored profile. A new identity requires an email that no other
// account holds; matching emails are rejected rather than auto-linked, since
// a spoofed provider email must not take over a local account.
func (c *Callback) Handle(ctx context.Context, providerName, code string) (*Session, error) {
	provider, err := ParseProvider(providerName)
	if err != nil {
		return nil, err
	}

	tokenResp, err := c.exchange.ExchangeCode(ctx, provider, code)
	if err != nil {
		return nil, err
	}
	if tokenResp == nil || tokenResp.AccessToken == "" {
		return nil, &FlowError{Status: http.StatusBadRequest, Code: "invalid_code",
			Message: "Invalid code to fetch access token from the provider."}
	}

	claims, err := c.exchange.FetchProfile(ctx, provider, tokenResp.AccessToken)
	if err != nil {
		return nil, err
	}

	existing, err := c.users.FindByLogin(ctx, string(provider), claims.ID)
	if err == nil {
		token, err := c.issuer.Issue(existing)
		if err != nil {
			return nil, fmt.Errorf("issue session token: %w", err)
		}
		c.logger.Info("external login resolved",
			zap.String("provider", string(provider)),
			zap.String("user_id", existing.ID))
		return &Session{Token: token, UserID: existing.ID, Email: existing.Email, Provider: provider}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return nil, &FlowError{Status: http.StatusBadRequest, Code: "missing_email",
			Message: "The provider profile carries no usable email address."}
	}
	normalized := strings.ToUpper(email)

	if _, err := c.users.FindByEmail(ctx, normalized); err == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmailTaken, email)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	user := &domain.User{
		ID:                 uuid.NewString(),
		UserName:           email,
		NormalizedUserName: normalized,
		Email:              email,
		NormalizedEmail:    normalized,
		SecurityStamp:      uuid.NewString(),
		ConcurrencyStamp:   uuid.NewString(),
		Picture:            claims.PictureURL,
		LockoutEnabled:     true,
	}

	// The existence check above and this create are not one transaction; the
	// unique index on normalized_email is the backstop for concurrent
	// callbacks racing on the same brand-new address.
	if err := c.users.Create(ctx, user); err != nil {
		if domain.IsConflict(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrEmailTaken, email)
		}
		return nil, err
	}

	if err := c.users.AddLogin(ctx, user, domain.Login{
		LoginProvider:       string(provider),
		ProviderKey:         claims.ID,
		ProviderDisplayName: string(provider),
	}); err != nil {
		return nil, err
	}
	if err := c.users.Update(ctx, user); err != nil {
		return nil, err
	}

	token, err := c.issuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	c.logger.Info("external account registered",
		zap.String("provider", string(provider)),
		zap.String("user_id", user.ID))

	return &Session{Token: token, UserID: user.ID, Email: user.Email, Provider: provider, Created: true}, nil
}
