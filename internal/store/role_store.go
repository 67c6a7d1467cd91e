package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Monir-Ruet/authentication/internal/database"
	"github.com/Monir-Ruet/authentication/internal/domain"
	"github.com/Monir-Ruet/authentication/internal/provider"
)

var (
	_ RoleStore      = (*Roles)(nil)
	_ RoleClaimStore = (*Roles)(nil)
)

// Roles implements the role capabilities over the role providers.
type Roles struct {
	roles  RolesProvider
	claims RoleClaimsProvider
	db     *database.Database
}

// NewRoles wires the store from explicit provider dependencies. db may be nil
// in tests; it is only needed for Update.
func NewRoles(roles RolesProvider, claims RoleClaimsProvider, db *database.Database) *Roles {
	return &Roles{roles: roles, claims: claims, db: db}
}

// NewPgxRoles wires the store over one schema-scoped database.
func NewPgxRoles(db *database.Database) *Roles {
	return NewRoles(provider.NewRoles(db), provider.NewRoleClaims(db), db)
}

func (s *Roles) Create(ctx context.Context, role *domain.Role) error {
	if err := guard(ctx, role); err != nil {
		return err
	}
	return s.roles.Create(ctx, role)
}

// Update writes the role row and, when the claim cache was touched, rewrites
// role_claims in the same transaction.
func (s *Roles) Update(ctx context.Context, role *domain.Role) error {
	if err := guard(ctx, role); err != nil {
		return err
	}

	conn, tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	rolesProvider := provider.NewRoles(s.db)
	claimsProvider := provider.NewRoleClaims(s.db)

	applyErr := rolesProvider.UpdateTx(ctx, tx, role)
	if applyErr == nil && len(role.Claims) > 0 {
		if applyErr = claimsProvider.DeleteAllTx(ctx, tx, role.ID); applyErr == nil {
			applyErr = claimsProvider.InsertAllTx(ctx, tx, role.ID, role.Claims)
		}
	}
	if applyErr != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w: %v (rollback: %v)", domain.ErrUpdateRollbackFailed, applyErr, rbErr)
		}
		return applyErr
	}

	if err := tx.Commit(ctx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w: %v (rollback: %v)", domain.ErrUpdateRollbackFailed, err, rbErr)
		}
		return fmt.Errorf("%w: %v", domain.ErrUpdateRolledBack, err)
	}
	return nil
}

func (s *Roles) Delete(ctx context.Context, role *domain.Role) error {
	if err := guard(ctx, role); err != nil {
		return err
	}
	return s.roles.Delete(ctx, role.ID)
}

// FindByID rejects identifiers that are not well-formed UUIDs before touching
// storage.
func (s *Roles) FindByID(ctx context.Context, roleID string) (*domain.Role, error) {
	if err := guard(ctx, roleID); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(roleID); err != nil {
		return nil, fmt.Errorf("%w: role id %q is not a valid uuid", domain.ErrInvalidArgument, roleID)
	}
	return s.roles.FindByID(ctx, roleID)
}

func (s *Roles) FindByName(ctx context.Context, normalizedName string) (*domain.Role, error) {
	if err := guard(ctx, normalizedName); err != nil {
		return nil, err
	}
	return s.roles.FindByName(ctx, normalizedName)
}

func (s *Roles) All(ctx context.Context) ([]domain.Role, error) {
	if err := guard(ctx, struct{}{}); err != nil {
		return nil, err
	}
	return s.roles.All(ctx)
}

func (s *Roles) SetName(role *domain.Role, name string) error {
	if role == nil || name == "" {
		return domain.ErrInvalidArgument
	}
	role.Name = name
	return nil
}

func (s *Roles) SetNormalizedName(role *domain.Role, normalizedName string) error {
	if role == nil || normalizedName == "" {
		return domain.ErrInvalidArgument
	}
	role.NormalizedName = normalizedName
	return nil
}

func (s *Roles) GetClaims(ctx context.Context, role *domain.Role) ([]domain.Claim, error) {
	if err := guard(ctx, role); err != nil {
		return nil, err
	}
	if err := s.ensureClaims(ctx, role); err != nil {
		return nil, err
	}
	return role.Claims, nil
}

func (s *Roles) AddClaim(ctx context.Context, role *domain.Role, claim domain.Claim) error {
	if err := guard(ctx, role); err != nil {
		return err
	}
	if err := s.ensureClaims(ctx, role); err != nil {
		return err
	}
	role.Claims = upsertClaim(role.Claims, claim)
	return nil
}

func (s *Roles) RemoveClaim(ctx context.Context, role *domain.Role, claim domain.Claim) error {
	if err := guard(ctx, role); err != nil {
		return err
	}
	if err := s.ensureClaims(ctx, role); err != nil {
		return err
	}
	role.Claims = removeClaim(role.Claims, claim)
	return nil
}

func (s *Roles) ensureClaims(ctx context.Context, role *domain.Role) error {
	if role.Claims != nil {
		return nil
	}
	claims, err := s.claims.ByRole(ctx, role.ID)
	if err != nil {
		return err
	}
	role.Claims = claims
	return nil
}
