package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Monir-Ruet/authentication/internal/database"
	"github.com/Monir-Ruet/authentication/internal/domain"
	"github.com/Monir-Ruet/authentication/internal/provider"
)

// UserUnitOfWork batches the multi-table writes of a full user update so they
// commit or roll back together.
type UserUnitOfWork interface {
	Begin(ctx context.Context) (UserWriteTx, error)
}

// UserWriteTx is one in-flight user update. Each Replace* rewrites a child
// table with delete-all-then-reinsert-all. Within this transaction a reader
// positioned between the two phases would see a transient empty state; under
// read committed, other transactions see either the old or the new rows
// depending on commit order, never the gap.
type UserWriteTx interface {
	UpdateUser(ctx context.Context, user *domain.User) error
	ReplaceClaims(ctx context.Context, userID string, claims []domain.Claim) error
	ReplaceLogins(ctx context.Context, userID string, logins []domain.Login) error
	ReplaceRoles(ctx context.Context, userID string, roles []domain.UserRole) error
	ReplaceTokens(ctx context.Context, userID string, tokens []domain.Token) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type pgxUnitOfWork struct {
	db     *database.Database
	users  *provider.Users
	claims *provider.UserClaims
	logins *provider.UserLogins
	roles  *provider.UserRoles
	tokens *provider.UserTokens
}

// NewUserUnitOfWork builds the pgx-backed unit of work over one schema-scoped
// database.
func NewUserUnitOfWork(db *database.Database) UserUnitOfWork {
	return &pgxUnitOfWork{
		db:     db,
		users:  provider.NewUsers(db),
		claims: provider.NewUserClaims(db),
		logins: provider.NewUserLogins(db),
		roles:  provider.NewUserRoles(db),
		tokens: provider.NewUserTokens(db),
	}
}

func (u *pgxUnitOfWork) Begin(ctx context.Context) (UserWriteTx, error) {
	conn, tx, err := u.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxWriteTx{parent: u, conn: conn, tx: tx}, nil
}

type pgxWriteTx struct {
	parent *pgxUnitOfWork
	conn   *pgxpool.Conn
	tx     pgx.Tx
}

func (t *pgxWriteTx) UpdateUser(ctx context.Context, user *domain.User) error {
	return t.parent.users.UpdateTx(ctx, t.tx, user)
}

func (t *pgxWriteTx) ReplaceClaims(ctx context.Context, userID string, claims []domain.Claim) error {
	if err := t.parent.claims.DeleteAllTx(ctx, t.tx, userID); err != nil {
		return err
	}
	return t.parent.claims.InsertAllTx(ctx, t.tx, userID, claims)
}

func (t *pgxWriteTx) ReplaceLogins(ctx context.Context, userID string, logins []domain.Login) error {
	if err := t.parent.logins.DeleteAllTx(ctx, t.tx, userID); err != nil {
		return err
	}
	return t.parent.logins.InsertAllTx(ctx, t.tx, userID, logins)
}

func (t *pgxWriteTx) ReplaceRoles(ctx context.Context, userID string, roles []domain.UserRole) error {
	if err := t.parent.roles.DeleteAllTx(ctx, t.tx, userID); err != nil {
		return err
	}
	return t.parent.roles.InsertAllTx(ctx, t.tx, userID, roles)
}

func (t *pgxWriteTx) ReplaceTokens(ctx context.Context, userID string, tokens []domain.Token) error {
	if err := t.parent.tokens.DeleteAllTx(ctx, t.tx, userID); err != nil {
		return err
	}
	return t.parent.tokens.InsertAllTx(ctx, t.tx, userID, tokens)
}

func (t *pgxWriteTx) Commit(ctx context.Context) error {
	defer t.conn.Release()
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit user update: %w", err)
	}
	return nil
}

func (t *pgxWriteTx) Rollback(ctx context.Context) error {
	defer t.conn.Release()
	if err := t.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("rollback user update: %w", err)
	}
	return nil
}
