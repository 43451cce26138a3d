/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package sqlite registers error checkers for the mattn/go-sqlite3 driver.
// Import it for its side effects to enable transaction retries and duplicate
// key detection when migrating SQLite databases.
package sqlite

import (
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/acronis/go-dagmigrate/sqlmigrate"
)

func init() {
	sqlmigrate.RegisterIsRetryableFunc(&sqlite3.SQLiteDriver{}, func(err error) bool {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) {
			return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
		}
		return false
	})
	sqlmigrate.RegisterDuplicateKeyFunc(&sqlite3.SQLiteDriver{}, CheckConstraintViolationError)
}

// CheckConstraintViolationError checks if the passed error is a SQLite unique
// or primary key constraint violation.
func CheckConstraintViolationError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
