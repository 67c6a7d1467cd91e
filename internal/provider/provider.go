// Package provider contains the per-table data access units. Each operation
// acquires one pooled connection, runs parameterized SQL against the
// configured schema and releases the connection before returning. Only the
// sanitized schema name is ever interpolated into SQL text.
package provider

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Monir-Ruet/authentication/internal/domain"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func conflict(op, entity string, err error) error {
	return &domain.ConflictError{Op: op, Entity: entity, Err: err}
}
