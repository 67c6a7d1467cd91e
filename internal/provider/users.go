package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Monir-Ruet/authentication/internal/database"
	"github.com/Monir-Ruet/authentication/internal/domain"
)

const userColumns = `id, user_name, normalized_user_name, email, normalized_email, email_confirmed,
	password_hash, security_stamp, concurrency_stamp, phone_number, phone_number_confirmed,
	two_factor_enabled, lockout_end, lockout_enabled, access_failed_count, picture`

// Users translates user CRUD into parameterized SQL.
type Users struct {
	db *database.Database
}

func NewUsers(db *database.Database) *Users {
	return &Users{db: db}
}

func (p *Users) Create(ctx context.Context, user *domain.User) error {
	command := fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		p.db.Table("users"), userColumns)

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, command,
		user.ID, user.UserName, user.NormalizedUserName, user.Email, user.NormalizedEmail,
		user.EmailConfirmed, nullable(user.PasswordHash), user.SecurityStamp, user.ConcurrencyStamp,
		user.PhoneNumber, user.PhoneNumberConfirmed, user.TwoFactorEnabled, user.LockoutEnd,
		user.LockoutEnabled, user.AccessFailedCount, user.Picture,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return conflict("create", "user", err)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return conflict("create", "user", nil)
	}
	return nil
}

// UpdateTx writes the user row inside the caller's transaction. The
// multi-table collection rewrite around it is owned by the store layer.
func (p *Users) UpdateTx(ctx context.Context, tx pgx.Tx, user *domain.User) error {
	command := fmt.Sprintf(`UPDATE %s SET
		user_name = $1, normalized_user_name = $2, email = $3, normalized_email = $4,
		email_confirmed = $5, password_hash = $6, security_stamp = $7, concurrency_stamp = $8,
		phone_number = $9, phone_number_confirmed = $10, two_factor_enabled = $11,
		lockout_end = $12, lockout_enabled = $13, access_failed_count = $14, picture = $15
		WHERE id = $16`, p.db.Table("users"))

	if _, err := tx.Exec(ctx, command,
		user.UserName, user.NormalizedUserName, user.Email, user.NormalizedEmail,
		user.EmailConfirmed, nullable(user.PasswordHash), user.SecurityStamp, user.ConcurrencyStamp,
		user.PhoneNumber, user.PhoneNumberConfirmed, user.TwoFactorEnabled, user.LockoutEnd,
		user.LockoutEnabled, user.AccessFailedCount, user.Picture, user.ID,
	); err != nil {
		if isUniqueViolation(err) {
			return conflict("update", "user", err)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (p *Users) Delete(ctx context.Context, userID string) error {
	command := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, p.db.Table("users"))

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, command, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return conflict("delete", "user", nil)
	}
	return nil
}

func (p *Users) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	command := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, userColumns, p.db.Table("users"))
	return p.queryOne(ctx, command, userID)
}

func (p *Users) FindByName(ctx context.Context, normalizedUserName string) (*domain.User, error) {
	command := fmt.Sprintf(`SELECT %s FROM %s WHERE normalized_user_name = $1`, userColumns, p.db.Table("users"))
	return p.queryOne(ctx, command, normalizedUserName)
}

func (p *Users) FindByEmail(ctx context.Context, normalizedEmail string) (*domain.User, error) {
	command := fmt.Sprintf(`SELECT %s FROM %s WHERE normalized_email = $1`, userColumns, p.db.Table("users"))
	return p.queryOne(ctx, command, normalizedEmail)
}

func (p *Users) All(ctx context.Context) ([]domain.User, error) {
	command := fmt.Sprintf(`SELECT %s FROM %s`, userColumns, p.db.Table("users"))

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (p *Users) queryOne(ctx context.Context, command string, arg any) (*domain.User, error) {
	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, command, arg)
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("select user: %w", err)
		}
		return nil, domain.ErrNotFound
	}
	return scanUser(rows)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user         domain.User
		passwordHash *string
	)
	if err := row.Scan(
		&user.ID, &user.UserName, &user.NormalizedUserName, &user.Email, &user.NormalizedEmail,
		&user.EmailConfirmed, &passwordHash, &user.SecurityStamp, &user.ConcurrencyStamp,
		&user.PhoneNumber, &user.PhoneNumberConfirmed, &user.TwoFactorEnabled, &user.LockoutEnd,
		&user.LockoutEnabled, &user.AccessFailedCount, &user.Picture,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	return &user, nil
}

// nullable maps an empty string to NULL; OAuth-only accounts carry no
// password hash.
func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
