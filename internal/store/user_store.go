package store

import (
	"context"
	"fmt"

	"github.com/Monir-Ruet/authentication/internal/database"
	"github.com/Monir-Ruet/authentication/internal/domain"
	"github.com/Monir-Ruet/authentication/internal/provider"
)

// Compile-time capability assertions.
var (
	_ UserStore      = (*Users)(nil)
	_ UserClaimStore = (*Users)(nil)
	_ UserLoginStore = (*Users)(nil)
	_ UserRoleStore  = (*Users)(nil)
	_ UserTokenStore = (*Users)(nil)
)

// Users implements every user-facing capability by composing the entity
// providers with the user unit of work.
type Users struct {
	users  UsersProvider
	claims UserClaimsProvider
	logins UserLoginsProvider
	roles  UserRolesProvider
	tokens UserTokensProvider
	uow    UserUnitOfWork
}

// NewUsers wires the store from explicit provider dependencies.
func NewUsers(users UsersProvider, claims UserClaimsProvider, logins UserLoginsProvider,
	roles UserRolesProvider, tokens UserTokensProvider, uow UserUnitOfWork) *Users {
	return &Users{users: users, claims: claims, logins: logins, roles: roles, tokens: tokens, uow: uow}
}

// NewPgxUsers wires the store over one schema-scoped database.
func NewPgxUsers(db *database.Database) *Users {
	return NewUsers(
		provider.NewUsers(db),
		provider.NewUserClaims(db),
		provider.NewUserLogins(db),
		provider.NewUserRoles(db),
		provider.NewUserTokens(db),
		NewUserUnitOfWork(db),
	)
}

func (s *Users) Create(ctx context.Context, user *domain.User) error {
	if err := guard(ctx, user); err != nil {
		return err
	}
	return s.users.Create(ctx, user)
}

// Update persists the user row and rewrites every loaded, non-empty child
// collection inside one transaction. A failed commit is rolled back; the two
// failure shapes are reported as distinct variants so callers can log them
// differently.
func (s *Users) Update(ctx context.Context, user *domain.User) error {
	if err := guard(ctx, user); err != nil {
		return err
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}

	if err := s.applyUpdate(ctx, tx, user); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w: %v (rollback: %v)", domain.ErrUpdateRollbackFailed, err, rbErr)
		}
		// The original failure stays unwrapped so conflict kinds survive.
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w: %v (rollback: %v)", domain.ErrUpdateRollbackFailed, err, rbErr)
		}
		return fmt.Errorf("%w: %v", domain.ErrUpdateRolledBack, err)
	}
	return nil
}

func (s *Users) applyUpdate(ctx context.Context, tx UserWriteTx, user *domain.User) error {
	if err := tx.UpdateUser(ctx, user); err != nil {
		return err
	}
	if len(user.Claims) > 0 {
		if err := tx.ReplaceClaims(ctx, user.ID, user.Claims); err != nil {
			return err
		}
	}
	if len(user.Logins) > 0 {
		if err := tx.ReplaceLogins(ctx, user.ID, user.Logins); err != nil {
			return err
		}
	}
	if len(user.Roles) > 0 {
		if err := tx.ReplaceRoles(ctx, user.ID, user.Roles); err != nil {
			return err
		}
	}
	if len(user.Tokens) > 0 {
		if err := tx.ReplaceTokens(ctx, user.ID, user.Tokens); err != nil {
			return err
		}
	}
	return nil
}

func (s *Users) Delete(ctx context.Context, user *domain.User) error {
	if err := guard(ctx, user); err != nil {
		return err
	}
	return s.users.Delete(ctx, user.ID)
}

func (s *Users) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	if err := guard(ctx, userID); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, userID)
}

func (s *Users) FindByName(ctx context.Context, normalizedUserName string) (*domain.User, error) {
	if err := guard(ctx, normalizedUserName); err != nil {
		return nil, err
	}
	return s.users.FindByName(ctx, normalizedUserName)
}

func (s *Users) FindByEmail(ctx context.Context, normalizedEmail string) (*domain.User, error) {
	if err := guard(ctx, normalizedEmail); err != nil {
		return nil, err
	}
	return s.users.FindByEmail(ctx, normalizedEmail)
}

// GetClaims loads the claim collection on first access and serves the cached
// slice afterwards. The cache belongs to this user value only.
func (s *Users) GetClaims(ctx context.Context, user *domain.User) ([]domain.Claim, error) {
	if err := guard(ctx, user); err != nil {
		return nil, err
	}
	if err := s.ensureClaims(ctx, user); err != nil {
		return nil, err
	}
	return user.Claims, nil
}

// AddClaim mutates the cached collection only; a claim of the same type
// replaces the previous value. Durable on the next Update.
func (s *Users) AddClaim(ctx context.Context, user *domain.User, claim domain.Claim) error {
	if err := guard(ctx, user); err != nil {
		return err
	}
	if err := s.ensureClaims(ctx, user); err != nil {
		return err
	}
	user.Claims = upsertClaim(user.Claims, claim)
	return nil
}

// RemoveClaim mutates the cached collection only; removing an absent claim is
// a no-op.
func (s *Users) RemoveClaim(ctx context.Context, user *domain.User, claim domain.Claim) error {
	if err := guard(ctx, user); err != nil {
		return err
	}
	if err := s.ensureClaims(ctx, user); err != nil {
		return err
	}
	user.Claims = removeClaim(user.Claims, claim)
	return nil
}

func (s *Users) GetLogins(ctx context.Context, user *domain.User) ([]domain.Login, error) {
	if err := guard(ctx, user); err != nil {
		return nil, err
	}
	if user.Logins == nil {
		logins, err := s.logins.ByUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		user.Logins = logins
	}
	return user.Logins, nil
}

func (s *Users) AddLogin(ctx context.Context, user *domain.User, login domain.Login) error {
	if err := guard(ctx, user); err != nil {
		return err
	}
	if _, err := s.GetLogins(ctx, user); err != nil {
		return err
	}
	login.UserID = user.ID
	user.Logins = append(user.Logins, login)
	return nil
}

func (s *Users) RemoveLogin(ctx context.Context, user *domain.User, loginProvider, providerKey string) error {
	if err := guard(ctx, user); err != nil {
		return err
	}
	if _, err := s.GetLogins(ctx, user); err != nil {
		return err
	}
	kept := user.Logins[:0]
	for _, login := range user.Logins {
		if login.LoginProvider == loginProvider && login.ProviderKey == providerKey {
			continue
		}
		kept = append(kept, login)
	}
	user.Logins = kept
	return nil
}

func (s *Users) FindByLogin(ctx context.Context, loginProvider, providerKey string) (*domain.User, error) {
	if err := guard(ctx, loginProvider); err != nil {
		return nil, err
	}
	return s.logins.FindUserByLogin(ctx, loginProvider, providerKey)
}

func (s *Users) GetRoles(ctx context.Context, user *domain.User) ([]domain.UserRole, error) {
	if err := guard(ctx, user); err != nil {
		return nil, err
	}
	if user.Roles == nil {
		roles, err := s.roles.ByUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		user.Roles = roles
	}
	return user.Roles, nil
}

func (s *Users) AddToRole(ctx context.Context, user *domain.User, role domain.UserRole) error {
	if err := guard(ctx, user); err != nil {
		return err
	}
	if _, err := s.GetRoles(ctx, user); err != nil {
		return err
	}
	for _, existing := range user.Roles {
		if existing.RoleID == role.RoleID {
			return nil
		}
	}
	role.UserID = user.ID
	user.Roles = append(user.Roles, role)
	return nil
}

func (s *Users) RemoveFromRole(ctx context.Context, user *domain.User, roleID string) error {
	if err := guard(ctx, user); err != nil {
		return err
	}
	if _, err := s.GetRoles(ctx, user); err != nil {
		return err
	}
	kept := user.Roles[:0]
	for _, membership := range user.Roles {
		if membership.RoleID == roleID {
			continue
		}
		kept = append(kept, membership)
	}
	user.Roles = kept
	return nil
}

func (s *Users) GetTokens(ctx context.Context, user *domain.User) ([]domain.Token, error) {
	if err := guard(ctx, user); err != nil {
		return nil, err
	}
	if user.Tokens == nil {
		tokens, err := s.tokens.ByUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		user.Tokens = tokens
	}
	return user.Tokens, nil
}

// SetToken replaces any token with the same (provider, name) pair.
func (s *Users) SetToken(ctx context.Context, user *domain.User, token domain.Token) error {
	if err := guard(ctx, user); err != nil {
		return err
	}
	if _, err := s.GetTokens(ctx, user); err != nil {
		return err
	}
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

func (s *Users) RemoveToken(ctx context.Context, user *domain.User, loginProvider, name string) error {
	if err := guard(ctx, user); err != nil {
		return err
	}
	if _, err := s.GetTokens(ctx, user); err != nil {
		return err
	}
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

func (s *Users) ensureClaims(ctx context.Context, user *domain.User) error {
	if user.Claims != nil {
		return nil
	}
	claims, err := s.claims.ByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	user.Claims = claims
	return nil
}

func upsertClaim(claims []domain.Claim, claim domain.Claim) []domain.Claim {
	for i, existing := range claims {
		if existing.Type == claim.Type {
			claims[i] = claim
			return claims
		}
	}
	return append(claims, claim)
}

func removeClaim(claims []domain.Claim, claim domain.Claim) []domain.Claim {
	kept := claims[:0]
	for _, existing := range claims {
		if existing.Type == claim.Type && existing.Value == claim.Value {
			continue
		}
		kept = append(kept, existing)
	}
	return kept
}
