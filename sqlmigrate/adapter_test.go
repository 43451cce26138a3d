/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqlmigrate_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-dagmigrate"
	"github.com/acronis/go-dagmigrate/adaptertest"
	"github.com/acronis/go-dagmigrate/sqlmigrate"
	_ "github.com/acronis/go-dagmigrate/sqlmigrate/sqlite"
)

var (
	usersMigrationID = uuid.MustParse("bc960dc8-0e4a-4182-a62a-8e776d1e2b30")
	postsMigrationID = uuid.MustParse("4885e8ab-dafa-4d76-a565-2dee8b04ef60")
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// The pool must not open a second connection, every in-memory SQLite connection is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db
}

func newTestAdapter(t *testing.T, options ...sqlmigrate.AdapterOption) (*sqlmigrate.Adapter, *sql.DB) {
	t.Helper()
	db := openTestDB(t)
	adapter, err := sqlmigrate.NewAdapter(db, sqlmigrate.DialectSQLite, options...)
	require.NoError(t, err)
	require.NoError(t, adapter.Init(context.Background()))
	return adapter, db
}

type sqliteFactory struct{}

func (sqliteFactory) NewAdapter(t *testing.T) dagmigrate.Adapter {
	adapter, _ := newTestAdapter(t)
	return adapter
}

func (sqliteFactory) NewMigration(id uuid.UUID, dependencies []uuid.UUID) dagmigrate.Migration {
	return sqlmigrate.NewSQLMigration(id, dependencies, "", nil, nil)
}

func TestAdapterConformance(t *testing.T) {
	adaptertest.Run(t, sqliteFactory{})
}

func TestNewAdapterValidation(t *testing.T) {
	_, err := sqlmigrate.NewAdapter(nil, sqlmigrate.DialectSQLite)
	require.EqualError(t, err, "db cannot be nil")

	db := openTestDB(t)
	_, err = sqlmigrate.NewAdapter(db, sqlmigrate.Dialect("unknown"))
	require.EqualError(t, err, `unsupported dialect "unknown"`)
}

func TestAdapter_BasicMigration(t *testing.T) {
	adapter, db := newTestAdapter(t)

	migrator, err := dagmigrate.New(adapter)
	require.NoError(t, err)
	require.NoError(t, migrator.RegisterMany(
		sqlmigrate.NewSQLMigration(
			usersMigrationID, nil, "create users table",
			[]string{"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)"},
			[]string{"DROP TABLE users"},
		),
		sqlmigrate.NewSQLMigration(
			postsMigrationID, []uuid.UUID{usersMigrationID}, "create posts table",
			[]string{"CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER, title TEXT)"},
			[]string{"DROP TABLE posts"},
		),
	))

	ctx := context.Background()

	require.NoError(t, migrator.Up(ctx))

	// Verify tables exist
	var tableName string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='users'").Scan(&tableName)
	require.NoError(t, err, "Table not created")
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='posts'").Scan(&tableName)
	require.NoError(t, err, "Table not created")

	applied, err := adapter.AppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 2)

	require.NoError(t, migrator.Down(ctx))

	// Verify tables no longer exist
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='users'").Scan(&tableName)
	assert.Equal(t, sql.ErrNoRows, err, "Expected table to be dropped")
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='posts'").Scan(&tableName)
	assert.Equal(t, sql.ErrNoRows, err, "Expected table to be dropped")
}

func TestAdapter_FunctionSteps(t *testing.T) {
	adapter, db := newTestAdapter(t)

	migration := sqlmigrate.NewSQLMigration(
		usersMigrationID, nil, "create users table with seed data",
		[]string{"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)"},
		[]string{"DROP TABLE users"},
		sqlmigrate.WithUpFn(func(tx *sql.Tx) error {
			_, err := tx.Exec("INSERT INTO users (name) VALUES ('admin')")
			return err
		}),
	)

	ctx := context.Background()
	require.NoError(t, adapter.ApplyMigration(ctx, migration))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestAdapter_FailedStepRollsBackRecord(t *testing.T) {
	adapter, db := newTestAdapter(t)

	migration := sqlmigrate.NewSQLMigration(
		usersMigrationID, nil, "broken migration",
		[]string{
			"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
			"THIS IS NOT VALID SQL",
		},
		nil,
	)

	ctx := context.Background()
	err := adapter.ApplyMigration(ctx, migration)
	require.Error(t, err)
	require.ErrorContains(t, err, "execute statement 2")

	// Neither the record nor the table must survive the failed transaction.
	applied, err := adapter.AppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
	var tableName string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='users'").Scan(&tableName)
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestAdapter_AlreadyApplied(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	migration := sqlmigrate.NewSQLMigration(
		usersMigrationID, nil, "create users table",
		[]string{"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)"},
		[]string{"DROP TABLE users"},
	)

	ctx := context.Background()
	require.NoError(t, adapter.ApplyMigration(ctx, migration))

	// A second apply of the same migration races on the record's primary key.
	noopMigration := sqlmigrate.NewSQLMigration(usersMigrationID, nil, "create users table", nil, nil)
	err := adapter.ApplyMigration(ctx, noopMigration)
	require.ErrorIs(t, err, sqlmigrate.ErrAlreadyApplied)
}

func TestAdapter_DisabledTx(t *testing.T) {
	adapter, db := newTestAdapter(t)
	ctx := context.Background()

	migration := sqlmigrate.NewSQLMigration(
		usersMigrationID, nil, "create users table",
		[]string{"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)"},
		[]string{"DROP TABLE users"},
		sqlmigrate.WithDisabledTx(),
	)
	require.NoError(t, adapter.ApplyMigration(ctx, migration))

	var tableName string
	require.NoError(t, db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='users'").Scan(&tableName))
	applied, err := adapter.AppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 1)

	require.NoError(t, adapter.RevertMigration(ctx, migration))
	applied, err = adapter.AppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	// Function steps cannot run outside a transaction.
	fnMigration := sqlmigrate.NewSQLMigration(
		postsMigrationID, nil, "seed data", nil, nil,
		sqlmigrate.WithUpFn(func(tx *sql.Tx) error { return nil }),
		sqlmigrate.WithDisabledTx(),
	)
	err = adapter.ApplyMigration(ctx, fnMigration)
	require.ErrorContains(t, err, "function steps require transactional execution")
}

func TestAdapter_RejectsNonSQLMigration(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	migration := dagmigrate.NewMigration(usersMigrationID, nil, "not a SQL migration")
	err := adapter.ApplyMigration(context.Background(), migration)
	require.ErrorContains(t, err, "does not provide SQL steps")
}

func TestAdapter_CustomTableName(t *testing.T) {
	adapter, db := newTestAdapter(t, sqlmigrate.WithTableName("custom_migrations"))
	ctx := context.Background()

	migration := sqlmigrate.NewSQLMigration(usersMigrationID, nil, "noop", nil, nil)
	require.NoError(t, adapter.ApplyMigration(ctx, migration))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM custom_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}
