/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dagmigrate

import (
	"fmt"

	"github.com/google/uuid"
)

// DuplicateIDError is returned when a migration with an already registered ID is
// registered again. Like all dependency-definition errors it indicates a bug in
// the migration set and is never worth retrying.
type DuplicateIDError struct {
	ID uuid.UUID
}

// Error implements the error interface.
func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate migration ID %s", e.ID)
}

// UnknownIDError is returned when a migration declares a dependency on an ID that
// has not been registered, or when an Up/Down target ID is unknown.
type UnknownIDError struct {
	ID uuid.UUID
}

// Error implements the error interface.
func (e *UnknownIDError) Error() string {
	return fmt.Sprintf("unknown migration ID %s", e.ID)
}

// CycleError is returned when inserting a dependency edge would make the graph
// cyclic. From is the dependency, To is the dependent. The offending edge is not
// applied and the graph keeps its prior valid state.
type CycleError struct {
	From uuid.UUID
	To   uuid.UUID
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic dependency caused by edge from migration ID %s to %s", e.From, e.To)
}

// MigrationError attributes an adapter failure during Up or Down to one specific
// migration and direction. Everything topologically before the failed migration
// in that run succeeded; nothing after it was attempted.
type MigrationError struct {
	ID          uuid.UUID
	Description string
	Direction   Direction
	Err         error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %s (%s) %s: %v", e.ID, e.Description, e.Direction, e.Err)
}

// Unwrap returns the underlying adapter error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}
