// Package service implements the password-credential account flows:
// registration with email confirmation, login with lockout tracking, and
// password reset.
package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Monir-Ruet/authentication/internal/config"
	"github.com/Monir-Ruet/authentication/internal/domain"
	"github.com/Monir-Ruet/authentication/internal/mail"
	"github.com/Monir-Ruet/authentication/internal/store"
)

// Sentinel errors returned to the transport layer.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotConfirmed  = errors.New("email address not confirmed")
	ErrLockedOut          = errors.New("account temporarily locked")
	ErrInvalidToken       = errors.New("token invalid or expired")
)

const (
	// localProvider namespaces the tokens this service persists, keeping them
	// apart from external-login providers in the same table.
	localProvider = "local"

	confirmTokenName = "email_confirmation"
	resetTokenName   = "password_reset"

	confirmTokenTTL = 24 * time.Hour
	resetTokenTTL   = time.Hour

	maxAccessFailed = 5
	lockoutWindow   = 15 * time.Minute
)

// UserService drives the local-account flows.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginOutput, error)
	ConfirmEmail(ctx context.Context, userID, token string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, token, newPassword string) error
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	UserName string
	Email    string
	Password string
}

// LoginOutput carries the issued session token.
type LoginOutput struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
}

// TokenIssuer signs a session token for a user.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// AccountStore is the slice of store capabilities the service needs.
type AccountStore interface {
	store.UserStore
	store.UserTokenStore
}

type userService struct {
	users  AccountStore
	issuer TokenIssuer
	mailer mail.Mailer
	cfg    config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService wires the local-account service.
func NewUserService(users AccountStore, issuer TokenIssuer, mailer mail.Mailer, cfg config.Config, logger *zap.Logger) UserService {
	return &userService{
		users:  users,
		issuer: issuer,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidArgument)
	}
	userName := strings.TrimSpace(in.UserName)
	if userName == "" {
		userName = email
	}
	normalized := strings.ToUpper(email)

	if _, err := s.users.FindByEmail(ctx, normalized); err == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmailTaken, email)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:                 uuid.NewString(),
		UserName:           userName,
		NormalizedUserName: strings.ToUpper(userName),
		Email:              email,
		NormalizedEmail:    normalized,
		PasswordHash:       string(hash),
		SecurityStamp:      uuid.NewString(),
		ConcurrencyStamp:   uuid.NewString(),
		LockoutEnabled:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// The unique index on normalized_email closes the window between the
		// lookup above and this insert.
		if domain.IsConflict(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrEmailTaken, email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueOpaqueToken(ctx, user, confirmTokenName, confirmTokenTTL)
	if err != nil {
		return nil, err
	}

	confirmURL := fmt.Sprintf("%s/confirm-email?userId=%s&token=%s", s.cfg.ViewURL, user.ID, token)
	body := fmt.Sprintf("<p>Welcome! Please confirm your email address by <a href=%q>clicking here</a>.</p><p>The link expires in 24 hours.</p>", confirmURL)
	if err := s.mailer.Send(ctx, email, "Confirm your email", body); err != nil {
		s.logger.Error("confirmation mail failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("send confirmation mail: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("email", email))
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*LoginOutput, error) {
	normalized := strings.ToUpper(strings.TrimSpace(email))
	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if user.LockoutEnabled && user.LockoutEnd != nil && user.LockoutEnd.After(s.now()) {
		return nil, ErrLockedOut
	}
	if user.PasswordHash == "" {
		// External-login-only account.
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if ferr := s.recordFailedAccess(ctx, user); ferr != nil {
			s.logger.Error("record failed access", zap.String("user_id", user.ID), zap.Error(ferr))
		}
		return nil, ErrInvalidCredentials
	}

	if !user.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}

	if user.AccessFailedCount > 0 || user.LockoutEnd != nil {
		user.AccessFailedCount = 0
		user.LockoutEnd = nil
		if err := s.users.Update(ctx, user); err != nil {
			s.logger.Warn("reset failed-access count", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	accessToken, err := s.issuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("login succeeded", zap.String("user_id", user.ID))
	return &LoginOutput{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *userService) ConfirmEmail(ctx context.Context, userID, token string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("find user: %w", err)
	}

	if err := s.consumeOpaqueToken(ctx, user, confirmTokenName, token); err != nil {
		return err
	}

	user.EmailConfirmed = true
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}

	s.logger.Info("email confirmed", zap.String("user_id", user.ID))
	return nil
}

func (s *userService) ForgotPassword(ctx context.Context, email string) error {
	addr := strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.FindByEmail(ctx, strings.ToUpper(addr))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Do not reveal whether the address exists.
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	token, err := s.issueOpaqueToken(ctx, user, resetTokenName, resetTokenTTL)
	if err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password?email=%s&token=%s", s.cfg.ViewURL, addr, token)
	body := fmt.Sprintf("<p>To reset your password, <a href=%q>click here</a>.</p><p>The link expires in one hour. If you did not request this, ignore this mail.</p>", resetURL)
	if err := s.mailer.Send(ctx, user.Email, "Reset your password", body); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}

	s.logger.Info("password reset mail sent", zap.String("user_id", user.ID))
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", domain.ErrInvalidArgument)
	}
	normalized := strings.ToUpper(strings.TrimSpace(email))
	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("find user: %w", err)
	}

	if err := s.consumeOpaqueToken(ctx, user, resetTokenName, token); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	// Rotating the security stamp invalidates outstanding stamped artifacts.
	user.SecurityStamp = uuid.NewString()
	user.AccessFailedCount = 0
	user.LockoutEnd = nil

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.logger.Info("password reset", zap.String("user_id", user.ID))
	return nil
}

// issueOpaqueToken persists a random single-purpose token on the user. The
// expiry rides in the stored value since the token table is a plain
// (provider, name, value) triple.
func (s *userService) issueOpaqueToken(ctx context.Context, user *domain.User, name string, ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	expires := s.now().Add(ttl).Unix()

	stored := domain.Token{
		UserID:        user.ID,
		LoginProvider: localProvider,
		Name:          name,
		Value:         fmt.Sprintf("%s.%d", token, expires),
	}
	if err := s.users.SetToken(ctx, user, stored); err != nil {
		return "", fmt.Errorf("stage token: %w", err)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("persist token: %w", err)
	}
	return token, nil
}

// consumeOpaqueToken validates and removes a previously issued token.
func (s *userService) consumeOpaqueToken(ctx context.Context, user *domain.User, name, presented string) error {
	if strings.TrimSpace(presented) == "" {
		return ErrInvalidToken
	}

	tokens, err := s.users.GetTokens(ctx, user)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	var stored string
	for _, t := range tokens {
		if t.LoginProvider == localProvider && t.Name == name {
			stored = t.Value
			break
		}
	}
	if stored == "" {
		return ErrInvalidToken
	}

	value, expiresStr, ok := strings.Cut(stored, ".")
	if !ok {
		return ErrInvalidToken
	}
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil || s.now().After(time.Unix(expires, 0)) {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(value), []byte(presented)) != 1 {
		return ErrInvalidToken
	}

	// Update only rewrites non-empty collections, so the consumed token is
	// overwritten with an already-expired value rather than removed. Removing
	// the last token would leave the stored row intact and replayable.
	if err := s.users.SetToken(ctx, user, domain.Token{
		UserID:        user.ID,
		LoginProvider: localProvider,
		Name:          name,
		Value:         "consumed.0",
	}); err != nil {
		return fmt.Errorf("invalidate token: %w", err)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("persist token invalidation: %w", err)
	}
	return nil
}

// recordFailedAccess bumps the failed-login counter and engages the lockout
// window once the threshold is crossed.
func (s *userService) recordFailedAccess(ctx context.Context, user *domain.User) error {
	user.AccessFailedCount++
	if user.LockoutEnabled && user.AccessFailedCount >= maxAccessFailed {
		end := s.now().Add(lockoutWindow)
		user.LockoutEnd = &end
		user.AccessFailedCount = 0
	}
	return s.users.Update(ctx, user)
}
