/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dagmigrate

import (
	"context"

	"github.com/google/uuid"
)

// Adapter adapts migration management to a stateful backend. Implementations
// persist which migration IDs have been applied and execute the migration
// actions; initialization of the adapter's own metadata (e.g. creating a
// bookkeeping table) is the adapter's responsibility and must happen before the
// Migrator is used.
type Adapter interface {
	// AppliedMigrations returns the set of IDs for migrations that have been
	// applied. It is called at the start of every Up/Down operation, may be called
	// multiple times, and must reflect all prior successful apply/revert actions
	// against the same backing store.
	AppliedMigrations(ctx context.Context) (map[uuid.UUID]struct{}, error)

	// ApplyMigration executes the migration's forward action and durably records
	// its ID as applied, as a single atomic unit: either both happen or neither
	// persists.
	ApplyMigration(ctx context.Context, migration Migration) error

	// RevertMigration executes the migration's backward action and durably removes
	// its ID from the applied set, atomically.
	RevertMigration(ctx context.Context, migration Migration) error
}
