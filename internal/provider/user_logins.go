package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Monir-Ruet/authentication/internal/database"
	"github.com/Monir-Ruet/authentication/internal/domain"
)

// UserLogins reads and rewrites the user_logins table.
type UserLogins struct {
	db *database.Database
}

func NewUserLogins(db *database.Database) *UserLogins {
	return &UserLogins{db: db}
}

func (p *UserLogins) ByUser(ctx context.Context, userID string) ([]domain.Login, error) {
	command := fmt.Sprintf(
		`SELECT login_provider, provider_key, provider_display_name, user_id FROM %s WHERE user_id = $1`,
		p.db.Table("user_logins"))

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, command, userID)
	if err != nil {
		return nil, fmt.Errorf("select user logins: %w", err)
	}
	defer rows.Close()

	logins := make([]domain.Login, 0)
	for rows.Next() {
		var login domain.Login
		if err := rows.Scan(&login.LoginProvider, &login.ProviderKey, &login.ProviderDisplayName, &login.UserID); err != nil {
			return nil, fmt.Errorf("scan user login: %w", err)
		}
		logins = append(logins, login)
	}
	return logins, rows.Err()
}

// FindUserByLogin resolves the (provider, key) pair to its owning user row.
func (p *UserLogins) FindUserByLogin(ctx context.Context, loginProvider, providerKey string) (*domain.User, error) {
	command := fmt.Sprintf(
		`SELECT user_id FROM %s WHERE login_provider = $1 AND provider_key = $2`,
		p.db.Table("user_logins"))

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	var userID string
	err = conn.QueryRow(ctx, command, loginProvider, providerKey).Scan(&userID)
	conn.Release()
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select login: %w", err)
	}

	return NewUsers(p.db).FindByID(ctx, userID)
}

func (p *UserLogins) DeleteAllTx(ctx context.Context, tx pgx.Tx, userID string) error {
	command := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, p.db.Table("user_logins"))
	if _, err := tx.Exec(ctx, command, userID); err != nil {
		return fmt.Errorf("delete user logins: %w", err)
	}
	return nil
}

func (p *UserLogins) InsertAllTx(ctx context.Context, tx pgx.Tx, userID string, logins []domain.Login) error {
	command := fmt.Sprintf(
		`INSERT INTO %s (login_provider, provider_key, provider_display_name, user_id) VALUES ($1, $2, $3, $4)`,
		p.db.Table("user_logins"))
	for _, login := range logins {
		if _, err := tx.Exec(ctx, command, login.LoginProvider, login.ProviderKey, login.ProviderDisplayName, userID); err != nil {
			if isUniqueViolation(err) {
				return conflict("insert", "user login", err)
			}
			return fmt.Errorf("insert user login: %w", err)
		}
	}
	return nil
}
