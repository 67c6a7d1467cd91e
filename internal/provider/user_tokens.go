package provider

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Monir-Ruet/authentication/internal/database"
	"github.com/Monir-Ruet/authentication/internal/domain"
)

// UserTokens reads and rewrites the user_tokens table.
type UserTokens struct {
	db *database.Database
}

func NewUserTokens(db *database.Database) *UserTokens {
	return &UserTokens{db: db}
}

func (p *UserTokens) ByUser(ctx context.Context, userID string) ([]domain.Token, error) {
	command := fmt.Sprintf(
		`SELECT user_id, login_provider, name, value FROM %s WHERE user_id = $1`,
		p.db.Table("user_tokens"))

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, command, userID)
	if err != nil {
		return nil, fmt.Errorf("select user tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]domain.Token, 0)
	for rows.Next() {
		var token domain.Token
		if err := rows.Scan(&token.UserID, &token.LoginProvider, &token.Name, &token.Value); err != nil {
			return nil, fmt.Errorf("scan user token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (p *UserTokens) DeleteAllTx(ctx context.Context, tx pgx.Tx, userID string) error {
	command := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, p.db.Table("user_tokens"))
	if _, err := tx.Exec(ctx, command, userID); err != nil {
		return fmt.Errorf("delete user tokens: %w", err)
	}
	return nil
}

func (p *UserTokens) InsertAllTx(ctx context.Context, tx pgx.Tx, userID string, tokens []domain.Token) error {
	command := fmt.Sprintf(
		`INSERT INTO %s (user_id, login_provider, name, value) VALUES ($1, $2, $3, $4)`,
		p.db.Table("user_tokens"))
	for _, token := range tokens {
		if _, err := tx.Exec(ctx, command, userID, token.LoginProvider, token.Name, token.Value); err != nil {
			if isUniqueViolation(err) {
				return conflict("insert", "user token", err)
			}
			return fmt.Errorf("insert user token: %w", err)
		}
	}
	return nil
}
