package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Monir-Ruet/authentication/internal/domain"
	"github.com/Monir-Ruet/authentication/internal/store"
)

func TestUpdateRewritesOnlyLoadedCollections(t *testing.T) {
	ctx := context.Background()
	tx := &memoryWriteTx{}
	users := newTestUsers(&memoryProviders{}, &memoryUnitOfWork{tx: tx})

	user := &domain.User{
		ID:     "u1",
		Claims: []domain.Claim{{Type: "plan", Value: "pro"}},
		Logins: []domain.Login{},
		Tokens: []domain.Token{{UserID: "u1", LoginProvider: "local", Name: "t", Value: "v"}},
	}

	require.NoError(t, users.Update(ctx, user))
	require.True(t, tx.userUpdated)
	require.True(t, tx.claimsReplaced)
	require.False(t, tx.loginsReplaced, "empty collection must not be rewritten")
	require.False(t, tx.rolesReplaced, "unloaded collection must not be rewritten")
	require.True(t, tx.tokensReplaced)
	require.True(t, tx.committed)
	require.False(t, tx.rolledBack)
}

func TestUpdateStatementFailureKeepsOriginalError(t *testing.T) {
	ctx := context.Background()
	conflict := &domain.ConflictError{Op: "replace", Entity: "user_logins"}
	tx := &memoryWriteTx{replaceErr: conflict}
	users := newTestUsers(&memoryProviders{}, &memoryUnitOfWork{tx: tx})

	user := &domain.User{ID: "u1", Logins: []domain.Login{{LoginProvider: "google", ProviderKey: "k"}}}

	err := users.Update(ctx, user)
	require.True(t, domain.IsConflict(err))
	require.True(t, tx.rolledBack)
	require.False(t, tx.committed)
}

func TestUpdateCommitFailureVariants(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{ID: "u1"}

	tx := &memoryWriteTx{commitErr: errors.New("broken pipe")}
	users := newTestUsers(&memoryProviders{}, &memoryUnitOfWork{tx: tx})
	err := users.Update(ctx, user)
	require.ErrorIs(t, err, domain.ErrUpdateRolledBack)
	require.True(t, tx.rolledBack)

	tx = &memoryWriteTx{commitErr: errors.New("broken pipe"), rollbackErr: errors.New("also broken")}
	users = newTestUsers(&memoryProviders{}, &memoryUnitOfWork{tx: tx})
	err = users.Update(ctx, user)
	require.ErrorIs(t, err, domain.ErrUpdateRollbackFailed)
}

func TestGuardRejectsNilUserAndCancelledContext(t *testing.T) {
	users := newTestUsers(&memoryProviders{}, &memoryUnitOfWork{tx: &memoryWriteTx{}})

	err := users.Update(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err = users.Update(cancelled, &domain.User{ID: "u1"})
	require.ErrorIs(t, err, domain.ErrCancelled)
}

func TestClaimsLoadOnceAndCache(t *testing.T) {
	ctx := context.Background()
	providers := &memoryProviders{
		claims: []domain.Claim{{Type: "plan", Value: "free"}},
	}
	users := newTestUsers(providers, &memoryUnitOfWork{tx: &memoryWriteTx{}})
	user := &domain.User{ID: "u1"}

	first, err := users.GetClaims(ctx, user)
	require.NoError(t, err)
	second, err := users.GetClaims(ctx, user)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, providers.claimLoads, "second read must come from the cache")
}

func TestAddClaimReplacesSameType(t *testing.T) {
	ctx := context.Background()
	providers := &memoryProviders{claims: []domain.Claim{{Type: "plan", Value: "free"}}}
	users := newTestUsers(providers, &memoryUnitOfWork{tx: &memoryWriteTx{}})
	user := &domain.User{ID: "u1"}

	require.NoError(t, users.AddClaim(ctx, user, domain.Claim{Type: "plan", Value: "pro"}))
	claims, err := users.GetClaims(ctx, user)
	require.NoError(t, err)
	require.Equal(t, []domain.Claim{{Type: "plan", Value: "pro"}}, claims)
}

func TestRemoveClaimAbsentIsNoOp(t *testing.T) {
	ctx := context.Background()
	providers := &memoryProviders{claims: []domain.Claim{{Type: "plan", Value: "free"}}}
	users := newTestUsers(providers, &memoryUnitOfWork{tx: &memoryWriteTx{}})
	user := &domain.User{ID: "u1"}

	require.NoError(t, users.RemoveClaim(ctx, user, domain.Claim{Type: "plan", Value: "pro"}))
	claims, err := users.GetClaims(ctx, user)
	require.NoError(t, err)
	require.Len(t, claims, 1)

	require.NoError(t, users.RemoveClaim(ctx, user, domain.Claim{Type: "plan", Value: "free"}))
	claims, err = users.GetClaims(ctx, user)
	require.NoError(t, err)
	require.Empty(t, claims)
}

func TestAddLoginStampsUserID(t *testing.T) {
	ctx := context.Background()
	users := newTestUsers(&memoryProviders{}, &memoryUnitOfWork{tx: &memoryWriteTx{}})
	user := &domain.User{ID: "u1"}

	require.NoError(t, users.AddLogin(ctx, user, domain.Login{LoginProvider: "github", ProviderKey: "42"}))
	logins, err := users.GetLogins(ctx, user)
	require.NoError(t, err)
	require.Len(t, logins, 1)
	require.Equal(t, "u1", logins[0].UserID)
}

func TestAddToRoleDeduplicates(t *testing.T) {
	ctx := context.Background()
	users := newTestUsers(&memoryProviders{}, &memoryUnitOfWork{tx: &memoryWriteTx{}})
	user := &domain.User{ID: "u1"}

	role := domain.UserRole{RoleID: "r1", RoleName: "admin"}
	require.NoError(t, users.AddToRole(ctx, user, role))
	require.NoError(t, users.AddToRole(ctx, user, role))

	roles, err := users.GetRoles(ctx, user)
	require.NoError(t, err)
	require.Len(t, roles, 1)
}

func TestSetTokenReplacesByProviderAndName(t *testing.T) {
	ctx := context.Background()
	users := newTestUsers(&memoryProviders{}, &memoryUnitOfWork{tx: &memoryWriteTx{}})
	user := &domain.User{ID: "u1"}

	require.NoError(t, users.SetToken(ctx, user, domain.Token{LoginProvider: "local", Name: "reset", Value: "a"}))
	require.NoError(t, users.SetToken(ctx, user, domain.Token{LoginProvider: "local", Name: "reset", Value: "b"}))
	require.NoError(t, users.SetToken(ctx, user, domain.Token{LoginProvider: "local", Name: "confirm", Value: "c"}))

	tokens, err := users.GetTokens(ctx, user)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	for _, tok := range tokens {
		require.Equal(t, "u1", tok.UserID)
		if tok.Name == "reset" {
			require.Equal(t, "b", tok.Value)
		}
	}
}

func newTestUsers(p *memoryProviders, uow store.UserUnitOfWork) *store.Users {
	return store.NewUsers(
		&memoryUsers{},
		&memoryClaims{parent: p},
		&memoryLogins{parent: p},
		&memoryRoles{parent: p},
		&memoryTokens{parent: p},
		uow,
	)
}

// memoryProviders holds the per-table seed data shared by the fakes.
type memoryProviders struct {
	claims     []domain.Claim
	logins     []domain.Login
	roles      []domain.UserRole
	tokens     []domain.Token
	claimLoads int
}

type memoryUsers struct{}

func (m *memoryUsers) Create(ctx context.Context, user *domain.User) error { return nil }
func (m *memoryUsers) Delete(ctx context.Context, userID string) error     { return nil }

func (m *memoryUsers) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (m *memoryUsers) FindByName(ctx context.Context, name string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (m *memoryUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (m *memoryUsers) All(ctx context.Context) ([]domain.User, error) { return nil, nil }

type memoryClaims struct{ parent *memoryProviders }

func (m *memoryClaims) ByUser(ctx context.Context, userID string) ([]domain.Claim, error) {
	m.parent.claimLoads++
	out := make([]domain.Claim, len(m.parent.claims))
	copy(out, m.parent.claims)
	return out, nil
}

type memoryLogins struct{ parent *memoryProviders }

func (m *memoryLogins) ByUser(ctx context.Context, userID string) ([]domain.Login, error) {
	out := make([]domain.Login, len(m.parent.logins))
	copy(out, m.parent.logins)
	return out, nil
}

func (m *memoryLogins) FindUserByLogin(ctx context.Context, loginProvider, providerKey string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

type memoryRoles struct{ parent *memoryProviders }

func (m *memoryRoles) ByUser(ctx context.Context, userID string) ([]domain.UserRole, error) {
	out := make([]domain.UserRole, len(m.parent.roles))
	copy(out, m.parent.roles)
	return out, nil
}

type memoryTokens struct{ parent *memoryProviders }

func (m *memoryTokens) ByUser(ctx context.Context, userID string) ([]domain.Token, error) {
	out := make([]domain.Token, len(m.parent.tokens))
	copy(out, m.parent.tokens)
	return out, nil
}

type memoryUnitOfWork struct {
	tx       *memoryWriteTx
	beginErr error
}

func (m *memoryUnitOfWork) Begin(ctx context.Context) (store.UserWriteTx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return m.tx, nil
}

type memoryWriteTx struct {
	userUpdated    bool
	claimsReplaced bool
	loginsReplaced bool
	rolesReplaced  bool
	tokensReplaced bool
	committed      bool
	rolledBack     bool

	replaceErr  error
	commitErr   error
	rollbackErr error
}

func (t *memoryWriteTx) UpdateUser(ctx context.Context, user *domain.User) error {
	t.userUpdated = true
	return nil
}

func (t *memoryWriteTx) ReplaceClaims(ctx context.Context, userID string, claims []domain.Claim) error {
	if t.replaceErr != nil {
		return t.replaceErr
	}
	t.claimsReplaced = true
	return nil
}

func (t *memoryWriteTx) ReplaceLogins(ctx context.Context, userID string, logins []domain.Login) error {
	if t.replaceErr != nil {
		return t.replaceErr
	}
	t.loginsReplaced = true
	return nil
}

func (t *memoryWriteTx) ReplaceRoles(ctx context.Context, userID string, roles []domain.UserRole) error {
	if t.replaceErr != nil {
		return t.replaceErr
	}
	t.rolesReplaced = true
	return nil
}

func (t *memoryWriteTx) ReplaceTokens(ctx context.Context, userID string, tokens []domain.Token) error {
	if t.replaceErr != nil {
		return t.replaceErr
	}
	t.tokensReplaced = true
	return nil
}

func (t *memoryWriteTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *memoryWriteTx) Rollback(ctx context.Context) error {
	if t.rollbackErr != nil {
		return t.rollbackErr
	}
	t.rolledBack = true
	return nil
}
