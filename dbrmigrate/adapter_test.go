/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dbrmigrate_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/gocraft/dbr/v2"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-dagmigrate"
	"github.com/acronis/go-dagmigrate/adaptertest"
	"github.com/acronis/go-dagmigrate/dbrmigrate"
)

var (
	usersMigrationID = uuid.MustParse("bc960dc8-0e4a-4182-a62a-8e776d1e2b30")
	postsMigrationID = uuid.MustParse("4885e8ab-dafa-4d76-a565-2dee8b04ef60")
)

func openTestConn(t *testing.T) *dbr.Connection {
	t.Helper()
	conn, err := dbr.Open("sqlite3", ":memory:", nil)
	require.NoError(t, err)
	// The pool must not open a second connection, every in-memory SQLite connection is a separate database.
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { require.NoError(t, conn.Close()) })
	return conn
}

func newTestAdapter(t *testing.T) (*dbrmigrate.Adapter, *dbr.Connection) {
	t.Helper()
	conn := openTestConn(t)
	adapter, err := dbrmigrate.NewAdapter(conn)
	require.NoError(t, err)
	require.NoError(t, adapter.Init(context.Background()))
	return adapter, conn
}

type dbrFactory struct{}

func (dbrFactory) NewAdapter(t *testing.T) dagmigrate.Adapter {
	adapter, _ := newTestAdapter(t)
	return adapter
}

func (dbrFactory) NewMigration(id uuid.UUID, dependencies []uuid.UUID) dagmigrate.Migration {
	return dbrmigrate.NewMigration(id, dependencies, "", nil, nil)
}

func TestAdapterConformance(t *testing.T) {
	adaptertest.Run(t, dbrFactory{})
}

func TestNewAdapterValidation(t *testing.T) {
	_, err := dbrmigrate.NewAdapter(nil)
	require.EqualError(t, err, "conn cannot be nil")
}

func TestAdapter_BasicMigration(t *testing.T) {
	adapter, conn := newTestAdapter(t)
	ctx := context.Background()

	migrator, err := dagmigrate.New(adapter)
	require.NoError(t, err)
	require.NoError(t, migrator.RegisterMany(
		dbrmigrate.NewMigration(usersMigrationID, nil, "create users table",
			func(ctx context.Context, tx *dbr.Tx) error {
				_, err := tx.ExecContext(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
				return err
			},
			func(ctx context.Context, tx *dbr.Tx) error {
				_, err := tx.ExecContext(ctx, "DROP TABLE users")
				return err
			},
		),
		dbrmigrate.NewMigration(postsMigrationID, []uuid.UUID{usersMigrationID}, "seed users",
			func(ctx context.Context, tx *dbr.Tx) error {
				// Migrations can use the dbr query builder directly.
				_, err := tx.InsertInto("users").Pair("name", "admin").ExecContext(ctx)
				return err
			},
			func(ctx context.Context, tx *dbr.Tx) error {
				_, err := tx.DeleteFrom("users").Where(dbr.Eq("name", "admin")).ExecContext(ctx)
				return err
			},
		),
	))

	require.NoError(t, migrator.Up(ctx))

	sess := conn.NewSession(nil)
	var names []string
	_, err = sess.Select("name").From("users").LoadContext(ctx, &names)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, names)

	applied, err := adapter.AppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 2)

	require.NoError(t, migrator.Down(ctx))
	var tableName string
	err = conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='users'").Scan(&tableName)
	assert.Equal(t, sql.ErrNoRows, err, "Expected table to be dropped")
}

func TestAdapter_FailedStepRollsBackRecord(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	migration := dbrmigrate.NewMigration(usersMigrationID, nil, "broken migration",
		func(ctx context.Context, tx *dbr.Tx) error {
			_, err := tx.ExecContext(ctx, "THIS IS NOT VALID SQL")
			return err
		},
		nil,
	)
	require.Error(t, adapter.ApplyMigration(ctx, migration))

	applied, err := adapter.AppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestAdapter_RejectsForeignMigration(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	migration := dagmigrate.NewMigration(usersMigrationID, nil, "plain migration")
	err := adapter.ApplyMigration(context.Background(), migration)
	require.ErrorContains(t, err, "does not support dbr execution")
}
