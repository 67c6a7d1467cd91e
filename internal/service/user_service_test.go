package service_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Monir-Ruet/authentication/internal/config"
	"github.com/Monir-Ruet/authentication/internal/domain"
	"github.com/Monir-Ruet/authentication/internal/service"
)

var tokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

func newTestService(t *testing.T) (service.UserService, *memAccounts, *memMailer) {
	t.Helper()
	accounts := newMemAccounts()
	mailer := &memMailer{}
	cfg := config.Config{
		ViewURL:        "https://app.example.com",
		AccessTokenTTL: 15 * time.Minute,
	}
	svc := service.NewUserService(accounts, stubIssuer{}, mailer, cfg, zap.NewNop())
	return svc, accounts, mailer
}

func TestRegisterHashesPasswordAndMailsConfirmation(t *testing.T) {
	ctx := context.Background()
	svc, accounts, mailer := newTestService(t)

	user, err := svc.Register(ctx, service.RegisterInput{Email: " Jane@Example.com ", Password: "s3cret!pass"})
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", user.Email)
	require.Equal(t, "JANE@EXAMPLE.COM", user.NormalizedEmail)
	require.False(t, user.EmailConfirmed)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret!pass")))

	require.Len(t, mailer.sent, 1)
	require.Equal(t, "jane@example.com", mailer.sent[0].to)
	require.Contains(t, mailer.sent[0].body, "https://app.example.com/confirm-email")
	require.NotEmpty(t, extractToken(t, mailer.sent[0].body))
	require.Len(t, accounts.created, 1)
}

func TestRegisterDuplicateEmailIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Register(ctx, service.RegisterInput{Email: "jane@example.com", Password: "s3cret!pass"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, service.RegisterInput{Email: "JANE@example.com", Password: "other-pass"})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestConfirmEmailFlow(t *testing.T) {
	ctx := context.Background()
	svc, _, mailer := newTestService(t)

	user, err := svc.Register(ctx, service.RegisterInput{Email: "jane@example.com", Password: "s3cret!pass"})
	require.NoError(t, err)
	confirmToken := extractToken(t, mailer.sent[0].body)

	require.ErrorIs(t, svc.ConfirmEmail(ctx, user.ID, "bogus"), service.ErrInvalidToken)

	require.NoError(t, svc.ConfirmEmail(ctx, user.ID, confirmToken))
	require.True(t, user.EmailConfirmed)

	// The token is single use.
	require.ErrorIs(t, svc.ConfirmEmail(ctx, user.ID, confirmToken), service.ErrInvalidToken)
}

func TestLoginRequiresConfirmedEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, mailer := newTestService(t)

	user, err := svc.Register(ctx, service.RegisterInput{Email: "jane@example.com", Password: "s3cret!pass"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "jane@example.com", "s3cret!pass")
	require.ErrorIs(t, err, service.ErrEmailNotConfirmed)

	require.NoError(t, svc.ConfirmEmail(ctx, user.ID, extractToken(t, mailer.sent[0].body)))

	out, err := svc.Login(ctx, "jane@example.com", "s3cret!pass")
	require.NoError(t, err)
	require.Equal(t, "token-"+user.ID, out.AccessToken)
	require.Equal(t, "Bearer", out.TokenType)
	require.EqualValues(t, 900, out.ExpiresIn)
}

func TestLoginFailuresLockTheAccount(t *testing.T) {
	ctx := context.Background()
	svc, _, mailer := newTestService(t)

	user, err := svc.Register(ctx, service.RegisterInput{Email: "jane@example.com", Password: "s3cret!pass"})
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmEmail(ctx, user.ID, extractToken(t, mailer.sent[0].body)))

	for i := 0; i < 5; i++ {
		_, err = svc.Login(ctx, "jane@example.com", "wrong")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
	}
	require.NotNil(t, user.LockoutEnd)

	// The lockout window holds even with the right password.
	_, err = svc.Login(ctx, "jane@example.com", "s3cret!pass")
	require.ErrorIs(t, err, service.ErrLockedOut)
}

func TestLoginUnknownEmailIsInvalidCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	svc, _, mailer := newTestService(t)

	user, err := svc.Register(ctx, service.RegisterInput{Email: "jane@example.com", Password: "old-pass-123"})
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmEmail(ctx, user.ID, extractToken(t, mailer.sent[0].body)))

	require.NoError(t, svc.ForgotPassword(ctx, "jane@example.com"))
	require.Len(t, mailer.sent, 2)
	resetToken := extractToken(t, mailer.sent[1].body)

	oldStamp := user.SecurityStamp
	require.NoError(t, svc.ResetPassword(ctx, "jane@example.com", resetToken, "new-pass-456"))
	require.NotEqual(t, oldStamp, user.SecurityStamp)

	_, err = svc.Login(ctx, "jane@example.com", "old-pass-123")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "jane@example.com", "new-pass-456")
	require.NoError(t, err)

	// The reset token is single use.
	require.ErrorIs(t, svc.ResetPassword(ctx, "jane@example.com", resetToken, "third-pass"), service.ErrInvalidToken)
}

func TestForgotPasswordUnknownEmailStaysQuiet(t *testing.T) {
	svc, _, mailer := newTestService(t)
	require.NoError(t, svc.ForgotPassword(context.Background(), "nobody@example.com"))
	require.Empty(t, mailer.sent)
}

func extractToken(t *testing.T, body string) string {
	t.Helper()
	match := tokenPattern.FindStringSubmatch(body)
	require.Len(t, match, 2, "mail body must carry a token link")
	return match[1]
}

type stubIssuer struct{}

func (stubIssuer) Issue(user *domain.User) (string, error) {
	return "token-" + user.ID, nil
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type memMailer struct {
	sent []sentMail
}

func (m *memMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

// memAccounts keeps users in memory and shares pointers, so the service's
// mutations are immediately visible to later lookups like a same-request
// store would behave.
type memAccounts struct {
	byID    map[string]*domain.User
	created []*domain.User
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: make(map[string]*domain.User)}
}

func (m *memAccounts) Create(ctx context.Context, user *domain.User) error {
	m.byID[user.ID] = user
	m.created = append(m.created, user)
	return nil
}

func (m *memAccounts) Update(ctx context.Context, user *domain.User) error { return nil }

func (m *memAccounts) Delete(ctx context.Context, user *domain.User) error {
	delete(m.byID, user.ID)
	return nil
}

func (m *memAccounts) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	if user, ok := m.byID[userID]; ok {
		return user, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memAccounts) FindByName(ctx context.Context, normalizedUserName string) (*domain.User, error) {
	for _, user := range m.byID {
		if user.NormalizedUserName == normalizedUserName {
			return user, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAccounts) FindByEmail(ctx context.Context, normalizedEmail string) (*domain.User, error) {
	for _, user := range m.byID {
		if user.NormalizedEmail == normalizedEmail {
			return user, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAccounts) GetTokens(ctx context.Context, user *domain.User) ([]domain.Token, error) {
	if user.Tokens == nil {
		user.Tokens = make([]domain.Token, 0)
	}
	return user.Tokens, nil
}

func (m *memAccounts) SetToken(ctx context.Context, user *domain.User, token domain.Token) error {
	token.UserID = user.ID
	for i, existing := range user.Tokens {
		if existing.LoginProvider == token.LoginProvider && existing.Name == token.Name {
			user.Tokens[i] = token
			return nil
		}
	}
	user.Tokens = append(user.Tokens, token)
	return nil
}

func (m *memAccounts) RemoveToken(ctx context.Context, user *domain.User, loginProvider, name string) error {
	kept := user.Tokens[:0]
	for _, token := range user.Tokens {
		if token.LoginProvider == loginProvider && token.Name == name {
			continue
		}
		kept = append(kept, token)
	}
	user.Tokens = kept
	return nil
}
