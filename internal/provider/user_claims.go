package provider

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Monir-Ruet/authentication/internal/database"
	"github.com/Monir-Ruet/authentication/internal/domain"
)

// UserClaims reads and rewrites the user_claims table.
type UserClaims struct {
	db *database.Database
}

func NewUserClaims(db *database.Database) *UserClaims {
	return &UserClaims{db: db}
}

func (p *UserClaims) ByUser(ctx context.Context, userID string) ([]domain.Claim, error) {
	command := fmt.Sprintf(`SELECT claim_type, claim_value FROM %s WHERE user_id = $1`,
		p.db.Table("user_claims"))

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, command, userID)
	if err != nil {
		return nil, fmt.Errorf("select user claims: %w", err)
	}
	defer rows.Close()

	claims := make([]domain.Claim, 0)
	for rows.Next() {
		var claim domain.Claim
		if err := rows.Scan(&claim.Type, &claim.Value); err != nil {
			return nil, fmt.Errorf("scan user claim: %w", err)
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func (p *UserClaims) DeleteAllTx(ctx context.Context, tx pgx.Tx, userID string) error {
	command := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, p.db.Table("user_claims"))
	if _, err := tx.Exec(ctx, command, userID); err != nil {
		return fmt.Errorf("delete user claims: %w", err)
	}
	return nil
}

func (p *UserClaims) InsertAllTx(ctx context.Context, tx pgx.Tx, userID string, claims []domain.Claim) error {
	command := fmt.Sprintf(`INSERT INTO %s (user_id, claim_type, claim_value) VALUES ($1, $2, $3)`,
		p.db.Table("user_claims"))
	for _, claim := range claims {
		if _, err := tx.Exec(ctx, command, userID, claim.Type, claim.Value); err != nil {
			return fmt.Errorf("insert user claim: %w", err)
		}
	}
	return nil
}
