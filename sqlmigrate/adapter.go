/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqlmigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/acronis/go-appkit/retry"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"     // SQL builder support for MySQL
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"  // SQL builder support for Postgres
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"   // SQL builder support for SQLite
	_ "github.com/doug-martin/goqu/v9/dialect/sqlserver" // SQL builder support for MSSQL
	"github.com/google/uuid"

	"github.com/acronis/go-dagmigrate"
)

// DefaultTableName is the default name for the migrations tracking table.
const DefaultTableName = "schema_migrations"

// ErrAlreadyApplied is returned (wrapped) when a migration record already
// exists in the tracking table at apply time. It usually means two migrator
// processes raced for the same database.
var ErrAlreadyApplied = errors.New("migration is already applied")

// Adapter executes migrations against a SQL database and tracks the applied
// set in a dedicated table. It implements dagmigrate.Adapter.
type Adapter struct {
	db          *sql.DB
	dialect     Dialect
	tableName   string
	retryPolicy retry.Policy
	qb          goqu.DialectWrapper
}

var _ dagmigrate.Adapter = (*Adapter)(nil)

// AdapterOption is a functional option for Adapter configuration.
type AdapterOption func(*Adapter)

// WithTableName sets a custom migrations table name.
func WithTableName(name string) AdapterOption {
	return func(a *Adapter) {
		a.tableName = name
	}
}

// WithTxRetryPolicy makes the adapter retry each migration transaction with
// the given policy when the error is retryable for the connection's driver.
func WithTxRetryPolicy(retryPolicy retry.Policy) AdapterOption {
	return func(a *Adapter) {
		a.retryPolicy = retryPolicy
	}
}

// NewAdapter creates a new Adapter for the passed database connection and dialect.
func NewAdapter(db *sql.DB, dialect Dialect, options ...AdapterOption) (*Adapter, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	qbDialect, err := queryBuilderDialect(dialect)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		db:        db,
		dialect:   dialect,
		tableName: DefaultTableName,
		qb:        goqu.Dialect(qbDialect),
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

func queryBuilderDialect(dialect Dialect) (string, error) {
	switch dialect {
	case DialectMySQL:
		return "mysql", nil
	case DialectSQLite:
		return "sqlite3", nil
	case DialectPostgres, DialectPgx:
		return "postgres", nil
	case DialectMSSQL:
		return "sqlserver", nil
	}
	return "", fmt.Errorf("unsupported dialect %q", dialect)
}

// Init creates the migrations tracking table if it doesn't exist.
func (a *Adapter) Init(ctx context.Context) error {
	createSQL, err := createTableSQL(a.dialect, a.tableName)
	if err != nil {
		return err
	}
	if _, err = a.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	return nil
}

func createTableSQL(dialect Dialect, tableName string) (string, error) {
	switch dialect {
	case DialectMySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id CHAR(36) NOT NULL PRIMARY KEY,
			applied_at DATETIME NOT NULL
		)`, tableName), nil

	case DialectPostgres, DialectPgx:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID NOT NULL PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)`, tableName), nil

	case DialectSQLite:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT NOT NULL PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`, tableName), nil

	case DialectMSSQL:
		// MSSQL doesn't support CREATE TABLE IF NOT EXISTS, use conditional check
		return fmt.Sprintf(`IF NOT EXISTS (SELECT * FROM sys.tables WHERE name = '%s')
			CREATE TABLE %s (
				id CHAR(36) NOT NULL PRIMARY KEY,
				applied_at DATETIME2 NOT NULL
			)`, tableName, tableName), nil

	default:
		return "", fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// AppliedMigrations returns the set of migration IDs recorded in the tracking table.
// Implements dagmigrate.Adapter interface.
func (a *Adapter) AppliedMigrations(ctx context.Context) (map[uuid.UUID]struct{}, error) {
	query, args, err := a.qb.From(a.tableName).Select("id").Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var idStr string
		if err = rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("scan migration row: %w", err)
		}
		id, parseErr := uuid.Parse(idStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse migration ID %q: %w", idStr, parseErr)
		}
		applied[id] = struct{}{}
	}
	return applied, rows.Err()
}

// ApplyMigration executes the migration's up steps and records it as applied.
// Steps and the record insert run in a single transaction unless the migration
// disables transactional execution.
// Implements dagmigrate.Adapter interface.
func (a *Adapter) ApplyMigration(ctx context.Context, migration dagmigrate.Migration) error {
	mig, err := asSQLMigration(migration)
	if err != nil {
		return err
	}
	if disablesTx(migration) {
		if mig.UpFn() != nil {
			return fmt.Errorf("migration %s: function steps require transactional execution", migration.ID())
		}
		if err = execStepsNoTx(ctx, a.db, mig.UpSQL()); err != nil {
			return err
		}
		return a.insertRecordNoTx(ctx, migration.ID())
	}
	return a.doInTx(ctx, func(tx *sql.Tx) error {
		if err := execSteps(ctx, tx, mig.UpSQL(), mig.UpFn()); err != nil {
			return err
		}
		return a.insertRecord(ctx, tx, migration.ID())
	})
}

// RevertMigration executes the migration's down steps and removes its record.
// Implements dagmigrate.Adapter interface.
func (a *Adapter) RevertMigration(ctx context.Context, migration dagmigrate.Migration) error {
	mig, err := asSQLMigration(migration)
	if err != nil {
		return err
	}
	if disablesTx(migration) {
		if mig.DownFn() != nil {
			return fmt.Errorf("migration %s: function steps require transactional execution", migration.ID())
		}
		if err = execStepsNoTx(ctx, a.db, mig.DownSQL()); err != nil {
			return err
		}
		return a.deleteRecordNoTx(ctx, migration.ID())
	}
	return a.doInTx(ctx, func(tx *sql.Tx) error {
		if err := execSteps(ctx, tx, mig.DownSQL(), mig.DownFn()); err != nil {
			return err
		}
		return a.deleteRecord(ctx, tx, migration.ID())
	})
}

func (a *Adapter) doInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if a.retryPolicy == nil {
		return DoInTx(ctx, a.db, fn)
	}
	return DoInTx(ctx, a.db, fn, WithRetryPolicy(a.retryPolicy))
}

func asSQLMigration(migration dagmigrate.Migration) (Migration, error) {
	mig, ok := migration.(Migration)
	if !ok {
		return nil, fmt.Errorf("migration %s does not provide SQL steps", migration.ID())
	}
	return mig, nil
}

func disablesTx(migration dagmigrate.Migration) bool {
	txDisabler, ok := migration.(TxDisabler)
	return ok && txDisabler.DisableTx()
}

func execSteps(ctx context.Context, tx *sql.Tx, statements []string, fn func(tx *sql.Tx) error) error {
	for i, stmt := range statements {
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement %d: %w", i+1, err)
		}
	}
	if fn != nil {
		if err := fn(tx); err != nil {
			return fmt.Errorf("execute function: %w", err)
		}
	}
	return nil
}

func execStepsNoTx(ctx context.Context, db *sql.DB, statements []string) error {
	for i, stmt := range statements {
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement %d: %w", i+1, err)
		}
	}
	return nil
}

func (a *Adapter) insertRecord(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	query, args, err := a.insertRecordSQL(id)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return a.wrapInsertRecordErr(id, err)
	}
	return nil
}

func (a *Adapter) insertRecordNoTx(ctx context.Context, id uuid.UUID) error {
	query, args, err := a.insertRecordSQL(id)
	if err != nil {
		return err
	}
	if _, err = a.db.ExecContext(ctx, query, args...); err != nil {
		return a.wrapInsertRecordErr(id, err)
	}
	return nil
}

func (a *Adapter) insertRecordSQL(id uuid.UUID) (string, []interface{}, error) {
	query, args, err := a.qb.Insert(a.tableName).
		Rows(goqu.Record{"id": id.String(), "applied_at": goqu.L("CURRENT_TIMESTAMP")}).
		Prepared(true).ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build query: %w", err)
	}
	return query, args, nil
}

func (a *Adapter) wrapInsertRecordErr(id uuid.UUID, err error) error {
	if IsDuplicateKeyError(a.db.Driver(), err) {
		return fmt.Errorf("record migration %s: %w", id, ErrAlreadyApplied)
	}
	return fmt.Errorf("insert migration record: %w", err)
}

func (a *Adapter) deleteRecord(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	query, args, err := a.deleteRecordSQL(id)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete migration record: %w", err)
	}
	return nil
}

func (a *Adapter) deleteRecordNoTx(ctx context.Context, id uuid.UUID) error {
	query, args, err := a.deleteRecordSQL(id)
	if err != nil {
		return err
	}
	if _, err = a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete migration record: %w", err)
	}
	return nil
}

func (a *Adapter) deleteRecordSQL(id uuid.UUID) (string, []interface{}, error) {
	query, args, err := a.qb.Delete(a.tableName).
		Where(goqu.Ex{"id": id.String()}).
		Prepared(true).ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build query: %w", err)
	}
	return query, args, nil
}
