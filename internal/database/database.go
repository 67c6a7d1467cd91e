package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Monir-Ruet/authentication/internal/domain"
)

// Database hands out schema-scoped connections from the underlying pool.
// Each entity operation acquires one connection, uses it and releases it;
// pooling itself is left entirely to pgxpool.
type Database struct {
	pool   *pgxpool.Pool
	schema string
}

// New wraps an existing pool. The schema name is sanitized here because it is
// the only identifier ever interpolated into SQL text; every data value goes
// through bound parameters.
func New(pool *pgxpool.Pool, schema string) *Database {
	return &Database{pool: pool, schema: sanitizeSchema(schema)}
}

// Connect opens a pool for the given URL and verifies connectivity.
func Connect(ctx context.Context, url, schema string) (*Database, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool, schema), nil
}

// Acquire checks a single connection out of the pool. Failures surface as
// domain.ErrConnection so callers can map them to a 5xx-equivalent.
func (d *Database) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	return conn, nil
}

// Begin opens a transaction on a dedicated connection. The caller owns both
// and must release the connection after the transaction finishes.
func (d *Database) Begin(ctx context.Context) (*pgxpool.Conn, pgx.Tx, error) {
	conn, err := d.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	return conn, tx, nil
}

// Schema returns the sanitized schema name.
func (d *Database) Schema() string { return d.schema }

// Table returns the schema-qualified name for a table.
func (d *Database) Table(name string) string {
	return d.schema + "." + name
}

// Close releases the underlying pool.
func (d *Database) Close() { d.pool.Close() }

func sanitizeSchema(schema string) string {
	replacer := strings.NewReplacer("[", "", "]", "", `"`, "", "'", "", "`", "")
	cleaned := strings.TrimSpace(replacer.Replace(schema))
	if cleaned == "" {
		return "identity"
	}
	return cleaned
}
