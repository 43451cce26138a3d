/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqlmigrate

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/acronis/go-dagmigrate"
)

// Migration is the interface for migrations that the SQL adapter can execute.
// Migrations can provide SQL statements, Go functions, or both for up/down operations.
type Migration interface {
	dagmigrate.Migration

	// UpSQL returns SQL statements to execute when applying the migration.
	// Each statement will be executed in order within a transaction (unless disabled).
	UpSQL() []string

	// DownSQL returns SQL statements to execute when reverting the migration.
	// Each statement will be executed in order within a transaction (unless disabled).
	DownSQL() []string

	// UpFn returns a function to execute when applying the migration.
	// Called after UpSQL statements (if any).
	UpFn() func(tx *sql.Tx) error

	// DownFn returns a function to execute when reverting the migration.
	// Called after DownSQL statements (if any).
	DownFn() func(tx *sql.Tx) error
}

// TxDisabler is an optional interface that migrations can implement to disable
// transactional execution. Some database operations (like CREATE INDEX CONCURRENTLY
// in PostgreSQL) cannot run within a transaction.
type TxDisabler interface {
	DisableTx() bool
}

// SQLMigration is a basic implementation of Migration that can be embedded in
// custom migrations to reduce boilerplate.
type SQLMigration struct {
	*dagmigrate.BaseMigration
	upSQL   []string
	downSQL []string
	upFn    func(tx *sql.Tx) error
	downFn  func(tx *sql.Tx) error
	noTx    bool
}

// MigrationOption is a functional option for SQLMigration.
type MigrationOption func(*SQLMigration)

// WithUpFn sets a function to execute after the up SQL statements.
func WithUpFn(fn func(tx *sql.Tx) error) MigrationOption {
	return func(m *SQLMigration) {
		m.upFn = fn
	}
}

// WithDownFn sets a function to execute after the down SQL statements.
func WithDownFn(fn func(tx *sql.Tx) error) MigrationOption {
	return func(m *SQLMigration) {
		m.downFn = fn
	}
}

// WithDisabledTx makes the adapter execute the migration outside a transaction.
// Function steps are not supported in this mode, only SQL statements.
func WithDisabledTx() MigrationOption {
	return func(m *SQLMigration) {
		m.noTx = true
	}
}

// NewSQLMigration creates a new SQLMigration with the given identity,
// dependencies and up/down SQL statements.
func NewSQLMigration(
	id uuid.UUID, dependencies []uuid.UUID, description string, upSQL, downSQL []string, options ...MigrationOption,
) *SQLMigration {
	m := &SQLMigration{
		BaseMigration: dagmigrate.NewMigration(id, dependencies, description),
		upSQL:         upSQL,
		downSQL:       downSQL,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// UpSQL returns the up SQL statements.
func (m *SQLMigration) UpSQL() []string {
	return m.upSQL
}

// DownSQL returns the down SQL statements.
func (m *SQLMigration) DownSQL() []string {
	return m.downSQL
}

// UpFn returns the up function.
func (m *SQLMigration) UpFn() func(tx *sql.Tx) error {
	return m.upFn
}

// DownFn returns the down function.
func (m *SQLMigration) DownFn() func(tx *sql.Tx) error {
	return m.downFn
}

// DisableTx reports whether the migration must be executed outside a transaction.
// Implements TxDisabler interface.
func (m *SQLMigration) DisableTx() bool {
	return m.noTx
}
