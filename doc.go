/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package dagmigrate provides a database schema migration engine that supports
// directed acyclic graph (DAG) dependencies between migrations.
//
// Unlike linear migration runners, migrations are identified by UUIDs and declare
// an explicit set of dependencies instead of relying on a single global sequence.
// This allows out-of-order and multi-branch schema evolution (e.g. migrations
// contributed by independent plugins) while still guaranteeing a consistent,
// dependency-respecting execution order.
//
// The engine itself is storage-agnostic: it drives an Adapter that persists which
// migrations have been applied and executes the migration actions transactionally.
// Ready-to-use adapters for database/sql and gocraft/dbr live in the sqlmigrate
// and dbrmigrate subpackages. The adaptertest subpackage provides a generic
// conformance suite for third-party adapters.
//
// Basic usage:
//
//	adapter, err := sqlmigrate.NewAdapter(db, sqlmigrate.DialectPostgres)
//	if err != nil {
//	    return err
//	}
//	if err = adapter.Init(ctx); err != nil {
//	    return err
//	}
//
//	migrator, err := dagmigrate.New(adapter, dagmigrate.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := migrator.RegisterMany(migrations...); err != nil {
//	    return err
//	}
//	return migrator.Up(ctx)
//
// Up and Down accept an optional target: Up applies the target migration and
// everything it transitively depends on, Down reverts everything that depends on
// the target while keeping the target itself applied.
package dagmigrate
