/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package pgx registers error checkers for the jackc/pgx stdlib driver.
// Import it for its side effects to enable transaction retries and duplicate
// key detection when migrating Postgres databases via pgx.
package pgx

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	pg "github.com/jackc/pgx/v5/stdlib"

	"github.com/acronis/go-dagmigrate/sqlmigrate"
)

// ErrCode defines the type for Postgres error codes.
type ErrCode string

// Postgres error codes.
const (
	ErrCodeUniqueViolation      ErrCode = "23505"
	ErrCodeSerializationFailure ErrCode = "40001"
	ErrCodeDeadlockDetected     ErrCode = "40P01"
)

func init() {
	sqlmigrate.RegisterIsRetryableFunc(&pg.Driver{}, func(err error) bool {
		return CheckPostgresError(err, ErrCodeDeadlockDetected) ||
			CheckPostgresError(err, ErrCodeSerializationFailure) ||
			CheckInvalidCachedPlanError(err)
	})
	sqlmigrate.RegisterDuplicateKeyFunc(&pg.Driver{}, func(err error) bool {
		return CheckPostgresError(err, ErrCodeUniqueViolation)
	})
}

// CheckPostgresError checks if the passed error is a Postgres error with the specific code.
func CheckPostgresError(err error, errCode ErrCode) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == string(errCode)
	}
	return false
}

// CheckInvalidCachedPlanError checks if the passed error was caused by an
// invalidated cached plan. It happens when a prepared statement cached by pgx
// becomes invalid because the schema changed out from under it, and the query
// may be retried.
func CheckInvalidCachedPlanError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// See https://www.postgresql.org/docs/current/errcodes-appendix.html
	// 0A000 - feature_not_supported, 42P18 - indeterminate_datatype.
	return (pgErr.Code == "0A000" || pgErr.Code == "42P18") &&
		strings.Contains(pgErr.Message, "cached plan must not change result type")
}
