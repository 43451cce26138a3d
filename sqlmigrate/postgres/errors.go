/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package postgres registers error checkers for the lib/pq driver.
// Import it for its side effects to enable transaction retries and duplicate
// key detection when migrating Postgres databases via lib/pq.
package postgres

import (
	"errors"

	"github.com/lib/pq"

	"github.com/acronis/go-dagmigrate/sqlmigrate"
)

// ErrCode defines the type for Postgres error codes.
type ErrCode pq.ErrorCode

// Postgres error codes.
const (
	ErrCodeUniqueViolation      ErrCode = "23505"
	ErrCodeSerializationFailure ErrCode = "40001"
	ErrCodeDeadlockDetected     ErrCode = "40P01"
)

func init() {
	sqlmigrate.RegisterIsRetryableFunc(&pq.Driver{}, func(err error) bool {
		return CheckPostgresError(err, ErrCodeDeadlockDetected) ||
			CheckPostgresError(err, ErrCodeSerializationFailure)
	})
	sqlmigrate.RegisterDuplicateKeyFunc(&pq.Driver{}, func(err error) bool {
		return CheckPostgresError(err, ErrCodeUniqueViolation)
	})
}

// CheckPostgresError checks if the passed error is a Postgres error with the specific code.
func CheckPostgresError(err error, errCode ErrCode) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pq.ErrorCode(errCode)
	}
	return false
}
