package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Monir-Ruet/authentication/internal/database"
	"github.com/Monir-Ruet/authentication/internal/domain"
)

// Roles translates role CRUD into parameterized SQL.
type Roles struct {
	db *database.Database
}

func NewRoles(db *database.Database) *Roles {
	return &Roles{db: db}
}

func (p *Roles) Create(ctx context.Context, role *domain.Role) error {
	command := fmt.Sprintf(`INSERT INTO %s (id, name, normalized_name) VALUES ($1, $2, $3)`,
		p.db.Table("roles"))

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, command, role.ID, role.Name, role.NormalizedName)
	if err != nil {
		if isUniqueViolation(err) {
			return conflict("create", "role", err)
		}
		return fmt.Errorf("insert role: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return conflict("create", "role", nil)
	}
	return nil
}

func (p *Roles) UpdateTx(ctx context.Context, tx pgx.Tx, role *domain.Role) error {
	command := fmt.Sprintf(`UPDATE %s SET name = $1, normalized_name = $2 WHERE id = $3`,
		p.db.Table("roles"))

	if _, err := tx.Exec(ctx, command, role.Name, role.NormalizedName, role.ID); err != nil {
		if isUniqueViolation(err) {
			return conflict("update", "role", err)
		}
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

func (p *Roles) Delete(ctx context.Context, roleID string) error {
	command := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, p.db.Table("roles"))

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, command, roleID)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return conflict("delete", "role", nil)
	}
	return nil
}

func (p *Roles) FindByID(ctx context.Context, roleID string) (*domain.Role, error) {
	command := fmt.Sprintf(`SELECT id, name, normalized_name FROM %s WHERE id = $1`,
		p.db.Table("roles"))
	return p.queryOne(ctx, command, roleID)
}

func (p *Roles) FindByName(ctx context.Context, normalizedName string) (*domain.Role, error) {
	command := fmt.Sprintf(`SELECT id, name, normalized_name FROM %s WHERE normalized_name = $1`,
		p.db.Table("roles"))
	return p.queryOne(ctx, command, normalizedName)
}

func (p *Roles) All(ctx context.Context) ([]domain.Role, error) {
	command := fmt.Sprintf(`SELECT id, name, normalized_name FROM %s`, p.db.Table("roles"))

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("select roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.NormalizedName); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (p *Roles) queryOne(ctx context.Context, command string, arg any) (*domain.Role, error) {
	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	var role domain.Role
	if err := conn.QueryRow(ctx, command, arg).Scan(&role.ID, &role.Name, &role.NormalizedName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select role: %w", err)
	}
	return &role, nil
}
