package provider

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Monir-Ruet/authentication/internal/database"
	"github.com/Monir-Ruet/authentication/internal/domain"
)

// RoleClaims reads and rewrites the role_claims table.
type RoleClaims struct {
	db *database.Database
}

func NewRoleClaims(db *database.Database) *RoleClaims {
	return &RoleClaims{db: db}
}

func (p *RoleClaims) ByRole(ctx context.Context, roleID string) ([]domain.Claim, error) {
	command := fmt.Sprintf(`SELECT claim_type, claim_value FROM %s WHERE role_id = $1`,
		p.db.Table("role_claims"))

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, command, roleID)
	if err != nil {
		return nil, fmt.Errorf("select role claims: %w", err)
	}
	defer rows.Close()

	claims := make([]domain.Claim, 0)
	for rows.Next() {
		var claim domain.Claim
		if err := rows.Scan(&claim.Type, &claim.Value); err != nil {
			return nil, fmt.Errorf("scan role claim: %w", err)
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func (p *RoleClaims) DeleteAllTx(ctx context.Context, tx pgx.Tx, roleID string) error {
	command := fmt.Sprintf(`DELETE FROM %s WHERE role_id = $1`, p.db.Table("role_claims"))
	if _, err := tx.Exec(ctx, command, roleID); err != nil {
		return fmt.Errorf("delete role claims: %w", err)
	}
	return nil
}

func (p *RoleClaims) InsertAllTx(ctx context.Context, tx pgx.Tx, roleID string, claims []domain.Claim) error {
	command := fmt.Sprintf(`INSERT INTO %s (role_id, claim_type, claim_value) VALUES ($1, $2, $3)`,
		p.db.Table("role_claims"))
	for _, claim := range claims {
		if _, err := tx.Exec(ctx, command, roleID, claim.Type, claim.Value); err != nil {
			return fmt.Errorf("insert role claim: %w", err)
		}
	}
	return nil
}
