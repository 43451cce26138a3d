/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dbrmigrate

import (
	"context"
	"fmt"
	"time"

	"github.com/gocraft/dbr/v2"
	dbrdialect "github.com/gocraft/dbr/v2/dialect"
	"github.com/google/uuid"

	"github.com/acronis/go-dagmigrate"
)

// DefaultTableName is the default name for the migrations tracking table.
const DefaultTableName = "schema_migrations"

// Migration is the interface for migrations that the dbr adapter can execute.
// Both operations run within a transaction that the adapter manages.
type Migration interface {
	dagmigrate.Migration

	// Up applies the migration.
	Up(ctx context.Context, tx *dbr.Tx) error

	// Down reverts the migration.
	Down(ctx context.Context, tx *dbr.Tx) error
}

// Adapter executes migrations against a database via the dbr query builder
// and tracks the applied set in a dedicated table.
// It implements dagmigrate.Adapter.
type Adapter struct {
	conn      *dbr.Connection
	tableName string
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

// NewAdapter creates a new Adapter for the passed dbr connection.
func NewAdapter(conn *dbr.Connection, options ...AdapterOption) (*Adapter, error) {
	if conn == nil {
		return nil, fmt.Errorf("conn cannot be nil")
	}
	a := &Adapter{
		conn:      conn,
		tableName: DefaultTableName,
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

// Init creates the migrations tracking table if it doesn't exist.
func (a *Adapter) Init(ctx context.Context) error {
	createSQL, err := a.createTableSQL()
	if err != nil {
		return err
	}
	if _, err = a.conn.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	return nil
}

func (a *Adapter) createTableSQL() (string, error) {
	switch a.conn.Dialect {
	case dbrdialect.MySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id CHAR(36) NOT NULL PRIMARY KEY,
			applied_at DATETIME NOT NULL
		)`, a.tableName), nil

	case dbrdialect.PostgreSQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID NOT NULL PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)`, a.tableName), nil

	case dbrdialect.SQLite3:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT NOT NULL PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`, a.tableName), nil

	case dbrdialect.MSSQL:
		return fmt.Sprintf(`IF NOT EXISTS (SELECT * FROM sys.tables WHERE name = '%s')
			CREATE TABLE %s (
				id CHAR(36) NOT NULL PRIMARY KEY,
				applied_at DATETIME2 NOT NULL
			)`, a.tableName, a.tableName), nil

	default:
		return "", fmt.Errorf("unsupported dialect")
	}
}

// AppliedMigrations returns the set of migration IDs recorded in the tracking table.
// Implements dagmigrate.Adapter interface.
func (a *Adapter) AppliedMigrations(ctx context.Context) (map[uuid.UUID]struct{}, error) {
	sess := a.conn.NewSession(nil)
	var ids []string
	if _, err := sess.Select("id").From(a.tableName).LoadContext(ctx, &ids); err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	applied := make(map[uuid.UUID]struct{}, len(ids))
	for _, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse migration ID %q: %w", idStr, err)
		}
		applied[id] = struct{}{}
	}
	return applied, nil
}

// ApplyMigration executes the migration's Up operation and records it as
// applied, in a single transaction.
// Implements dagmigrate.Adapter interface.
func (a *Adapter) ApplyMigration(ctx context.Context, migration dagmigrate.Migration) error {
	mig, err := asDbrMigration(migration)
	if err != nil {
		return err
	}
	return a.doInTx(ctx, func(tx *dbr.Tx) error {
		if err := mig.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.InsertInto(a.tableName).
			Pair("id", migration.ID().String()).
			Pair("applied_at", time.Now().UTC()).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("insert migration record: %w", err)
		}
		return nil
	})
}

// RevertMigration executes the migration's Down operation and removes its
// record, in a single transaction.
// Implements dagmigrate.Adapter interface.
func (a *Adapter) RevertMigration(ctx context.Context, migration dagmigrate.Migration) error {
	mig, err := asDbrMigration(migration)
	if err != nil {
		return err
	}
	return a.doInTx(ctx, func(tx *dbr.Tx) error {
		if err := mig.Down(ctx, tx); err != nil {
			return err
		}
		_, err := tx.DeleteFrom(a.tableName).
			Where(dbr.Eq("id", migration.ID().String())).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("delete migration record: %w", err)
		}
		return nil
	})
}

func (a *Adapter) doInTx(ctx context.Context, fn func(tx *dbr.Tx) error) error {
	sess := a.conn.NewSession(nil)
	tx, err := sess.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.RollbackUnlessCommitted()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func asDbrMigration(migration dagmigrate.Migration) (Migration, error) {
	mig, ok := migration.(Migration)
	if !ok {
		return nil, fmt.Errorf("migration %s does not support dbr execution", migration.ID())
	}
	return mig, nil
}

// BaseMigration is a basic implementation of Migration built from two functions.
type BaseMigration struct {
	*dagmigrate.BaseMigration
	up   func(ctx context.Context, tx *dbr.Tx) error
	down func(ctx context.Context, tx *dbr.Tx) error
}

// NewMigration creates a new BaseMigration with the given identity,
// dependencies and up/down functions.
func NewMigration(
	id uuid.UUID, dependencies []uuid.UUID, description string,
	up, down func(ctx context.Context, tx *dbr.Tx) error,
) *BaseMigration {
	return &BaseMigration{
		BaseMigration: dagmigrate.NewMigration(id, dependencies, description),
		up:            up,
		down:          down,
	}
}

// Up applies the migration.
func (m *BaseMigration) Up(ctx context.Context, tx *dbr.Tx) error {
	if m.up == nil {
		return nil
	}
	return m.up(ctx, tx)
}

// Down reverts the migration.
func (m *BaseMigration) Down(ctx context.Context, tx *dbr.Tx) error {
	if m.down == nil {
		return nil
	}
	return m.down(ctx, tx)
}
