package provider

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Monir-Ruet/authentication/internal/database"
	"github.com/Monir-Ruet/authentication/internal/domain"
)

// UserRoles reads and rewrites the user_roles membership table.
type UserRoles struct {
	db *database.Database
}

func NewUserRoles(db *database.Database) *UserRoles {
	return &UserRoles{db: db}
}

func (p *UserRoles) ByUser(ctx context.Context, userID string) ([]domain.UserRole, error) {
	command := fmt.Sprintf(
		`SELECT ur.user_id, r.id, r.name
		 FROM %s AS r
		 INNER JOIN %s AS ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1`,
		p.db.Table("roles"), p.db.Table("user_roles"))

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, command, userID)
	if err != nil {
		return nil, fmt.Errorf("select user roles: %w", err)
	}
	defer rows.Close()

	memberships := make([]domain.UserRole, 0)
	for rows.Next() {
		var membership domain.UserRole
		if err := rows.Scan(&membership.UserID, &membership.RoleID, &membership.RoleName); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		memberships = append(memberships, membership)
	}
	return memberships, rows.Err()
}

func (p *UserRoles) DeleteAllTx(ctx context.Context, tx pgx.Tx, userID string) error {
	command := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, p.db.Table("user_roles"))
	if _, err := tx.Exec(ctx, command, userID); err != nil {
		return fmt.Errorf("delete user roles: %w", err)
	}
	return nil
}

func (p *UserRoles) InsertAllTx(ctx context.Context, tx pgx.Tx, userID string, memberships []domain.UserRole) error {
	command := fmt.Sprintf(`INSERT INTO %s (user_id, role_id) VALUES ($1, $2)`, p.db.Table("user_roles"))
	for _, membership := range memberships {
		if _, err := tx.Exec(ctx, command, userID, membership.RoleID); err != nil {
			return fmt.Errorf("insert user role: %w", err)
		}
	}
	return nil
}
