/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dagmigrate

import (
	"github.com/google/uuid"
)

// Direction defines the direction of schema migrations.
type Direction string

// Migration directions.
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Migration describes the identity and dependence relations of a single schema
// change. Concrete adapters require additional behavior (SQL statements, a
// function executed within a transaction, etc.) for the actual application and
// reversion; the engine treats those actions as opaque.
type Migration interface {
	// ID returns the globally unique identifier of the migration. It is the join
	// key between the in-memory dependency graph and the applied-state records in
	// the backing store and must be stable across process runs.
	ID() uuid.UUID

	// Dependencies returns the IDs of all direct dependencies of this migration,
	// i.e. migrations that must be applied before it and stay applied while it is
	// applied. Order is irrelevant and duplicates are collapsed on registration.
	Dependencies() []uuid.UUID

	// Description returns a short human-readable description used in diagnostics.
	// It takes no part in identity or ordering.
	Description() string
}

// BaseMigration is a basic implementation of Migration that can be embedded in
// custom migrations to reduce boilerplate.
type BaseMigration struct {
	id           uuid.UUID
	dependencies []uuid.UUID
	description  string
}

// NewMigration creates a new BaseMigration with the given identity, dependencies,
// and description.
func NewMigration(id uuid.UUID, dependencies []uuid.UUID, description string) *BaseMigration {
	return &BaseMigration{
		id:           id,
		dependencies: dependencies,
		description:  description,
	}
}

// ID returns the migration identifier.
func (m *BaseMigration) ID() uuid.UUID {
	return m.id
}

// Dependencies returns the IDs of the migration's direct dependencies.
func (m *BaseMigration) Dependencies() []uuid.UUID {
	return m.dependencies
}

// Description returns the migration description.
func (m *BaseMigration) Description() string {
	return m.description
}
