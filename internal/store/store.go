// Package store adapts the entity providers to the capability interfaces the
// rest of the service consumes. Each consumer depends only on the capability
// it needs; the adapter composes the per-table providers behind them.
package store

import (
	"context"

	"github.com/Monir-Ruet/authentication/internal/domain"
)

// UserStore is the user lifecycle capability.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	FindByName(ctx context.Context, normalizedUserName string) (*domain.User, error)
	FindByEmail(ctx context.Context, normalizedEmail string) (*domain.User, error)
}

// UserClaimStore manages a user's claim collection. Add and Remove mutate the
// in-memory cache only; UserStore.Update makes them durable.
type UserClaimStore interface {
	GetClaims(ctx context.Context, user *domain.User) ([]domain.Claim, error)
	AddClaim(ctx context.Context, user *domain.User, claim domain.Claim) error
	RemoveClaim(ctx context.Context, user *domain.User, claim domain.Claim) error
}

// UserLoginStore manages external login linkage.
type UserLoginStore interface {
	GetLogins(ctx context.Context, user *domain.User) ([]domain.Login, error)
	AddLogin(ctx context.Context, user *domain.User, login domain.Login) error
	RemoveLogin(ctx context.Context, user *domain.User, loginProvider, providerKey string) error
	FindByLogin(ctx context.Context, loginProvider, providerKey string) (*domain.User, error)
}

// UserRoleStore manages role membership.
type UserRoleStore interface {
	GetRoles(ctx context.Context, user *domain.User) ([]domain.UserRole, error)
	AddToRole(ctx context.Context, user *domain.User, role domain.UserRole) error
	RemoveFromRole(ctx context.Context, user *domain.User, roleID string) error
}

// UserTokenStore manages opaque named tokens.
type UserTokenStore interface {
	GetTokens(ctx context.Context, user *domain.User) ([]domain.Token, error)
	SetToken(ctx context.Context, user *domain.User, token domain.Token) error
	RemoveToken(ctx context.Context, user *domain.User, loginProvider, name string) error
}

// RoleStore is the role lifecycle capability.
type RoleStore interface {
	Create(ctx context.Context, role *domain.Role) error
	Update(ctx context.Context, role *domain.Role) error
	Delete(ctx context.Context, role *domain.Role) error
	FindByID(ctx context.Context, roleID string) (*domain.Role, error)
	FindByName(ctx context.Context, normalizedName string) (*domain.Role, error)
	All(ctx context.Context) ([]domain.Role, error)
	SetName(role *domain.Role, name string) error
	SetNormalizedName(role *domain.Role, normalizedName string) error
}

// RoleClaimStore manages a role's claim collection with the same cache
// semantics as UserClaimStore.
type RoleClaimStore interface {
	GetClaims(ctx context.Context, role *domain.Role) ([]domain.Claim, error)
	AddClaim(ctx context.Context, role *domain.Role, claim domain.Claim) error
	RemoveClaim(ctx context.Context, role *domain.Role, claim domain.Claim) error
}

// Provider interfaces consumed by the adapter. The pgx implementations live
// in internal/provider; tests substitute in-memory fakes.

type UsersProvider interface {
	Create(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, userID string) error
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	FindByName(ctx context.Context, normalizedUserName string) (*domain.User, error)
	FindByEmail(ctx context.Context, normalizedEmail string) (*domain.User, error)
	All(ctx context.Context) ([]domain.User, error)
}

type UserClaimsProvider interface {
	ByUser(ctx context.Context, userID string) ([]domain.Claim, error)
}

type UserLoginsProvider interface {
	ByUser(ctx context.Context, userID string) ([]domain.Login, error)
	FindUserByLogin(ctx context.Context, loginProvider, providerKey string) (*domain.User, error)
}

type UserRolesProvider interface {
	ByUser(ctx context.Context, userID string) ([]domain.UserRole, error)
}

type UserTokensProvider interface {
	ByUser(ctx context.Context, userID string) ([]domain.Token, error)
}

type RolesProvider interface {
	Create(ctx context.Context, role *domain.Role) error
	Delete(ctx context.Context, roleID string) error
	FindByID(ctx context.Context, roleID string) (*domain.Role, error)
	FindByName(ctx context.Context, normalizedName string) (*domain.Role, error)
	All(ctx context.Context) ([]domain.Role, error)
}

type RoleClaimsProvider interface {
	ByRole(ctx context.Context, roleID string) ([]domain.Claim, error)
}

// guard enforces the shared method preconditions: arguments are validated and
// cancellation is observed before any I/O starts. In-flight I/O is never
// interrupted here.
func guard(ctx context.Context, identity any) error {
	switch v := identity.(type) {
	case *domain.User:
		if v == nil {
			return domain.ErrInvalidArgument
		}
	case *domain.Role:
		if v == nil {
			return domain.ErrInvalidArgument
		}
	case nil:
		return domain.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return domain.ErrCancelled
	}
	return nil
}
