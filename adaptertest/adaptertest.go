/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package adaptertest provides a generic conformance test suite that any
// dagmigrate.Adapter implementation should pass. Adapter packages run it from
// their own tests:
//
//	func TestAdapterConformance(t *testing.T) {
//	    adaptertest.Run(t, myFactory{})
//	}
package adaptertest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	dagmigrate "github.com/acronis/go-dagmigrate"
)

// Factory constructs adapters and compatible no-op migrations for the suite.
// NewAdapter must return an adapter with initialized, empty applied state;
// NewMigration must return a migration of the adapter's migration type whose
// apply and revert actions succeed without side effects.
type Factory interface {
	NewAdapter(t *testing.T) dagmigrate.Adapter
	NewMigration(id uuid.UUID, dependencies []uuid.UUID) dagmigrate.Migration
}

// Fixed identities used by all suite scenarios.
var (
	uuid1 = uuid.MustParse("bc960dc8-0e4a-4182-a62a-8e776d1e2b30")
	uuid2 = uuid.MustParse("4885e8ab-dafa-4d76-a565-2dee8b04ef60")
	uuid3 = uuid.MustParse("c5d07448-851f-45e8-8fa7-4823d5250609")
	uuid4 = uuid.MustParse("9433a432-386f-467e-a59f-a9fb7e249767")
	uuid5 = uuid.MustParse("0940acb1-0e2e-4b99-9d69-2302a9c74524")
)

// Run executes the full conformance suite against adapters built by the factory.
func Run(t *testing.T, factory Factory) {
	t.Run("SingleMigration", func(t *testing.T) { testSingleMigration(t, factory) })
	t.Run("MigrationChain", func(t *testing.T) { testMigrationChain(t, factory) })
	t.Run("MultiComponentDAG", func(t *testing.T) { testMultiComponentDAG(t, factory) })
	t.Run("BranchingDAG", func(t *testing.T) { testBranchingDAG(t, factory) })
	t.Run("RepeatedUpIsIdempotent", func(t *testing.T) { testRepeatedUp(t, factory) })
}

func newMigrator(t *testing.T, factory Factory) (*dagmigrate.Migrator, dagmigrate.Adapter) {
	adapter := factory.NewAdapter(t)
	migrator, err := dagmigrate.New(adapter)
	require.NoError(t, err)
	return migrator, adapter
}

func requireApplied(t *testing.T, adapter dagmigrate.Adapter, applied []uuid.UUID, notApplied []uuid.UUID) {
	t.Helper()
	set, err := adapter.AppliedMigrations(context.Background())
	require.NoError(t, err)
	for _, id := range applied {
		require.Contains(t, set, id, "migration %s must be applied", id)
	}
	for _, id := range notApplied {
		require.NotContains(t, set, id, "migration %s must not be applied", id)
	}
}

// testSingleMigration checks the application and reversion of a singleton migration.
func testSingleMigration(t *testing.T, factory Factory) {
	ctx := context.Background()
	migrator, adapter := newMigrator(t, factory)

	require.NoError(t, migrator.Register(factory.NewMigration(uuid1, nil)))

	require.NoError(t, migrator.Up(ctx))
	requireApplied(t, adapter, []uuid.UUID{uuid1}, nil)

	require.NoError(t, migrator.Down(ctx))
	requireApplied(t, adapter, nil, []uuid.UUID{uuid1})
}

// testMigrationChain checks the partial application and reversion of a chain of
// three dependent migrations.
func testMigrationChain(t *testing.T, factory Factory) {
	ctx := context.Background()
	migrator, adapter := newMigrator(t, factory)

	require.NoError(t, migrator.Register(factory.NewMigration(uuid1, nil)))
	require.NoError(t, migrator.Register(factory.NewMigration(uuid2, []uuid.UUID{uuid1})))
	require.NoError(t, migrator.Register(factory.NewMigration(uuid3, []uuid.UUID{uuid2})))

	require.NoError(t, migrator.Up(ctx, dagmigrate.WithTarget(uuid2)))
	requireApplied(t, adapter, []uuid.UUID{uuid1, uuid2}, []uuid.UUID{uuid3})

	require.NoError(t, migrator.Down(ctx, dagmigrate.WithTarget(uuid1)))
	requireApplied(t, adapter, []uuid.UUID{uuid1}, []uuid.UUID{uuid2, uuid3})
}

// testMultiComponentDAG checks that application and reversion of two disjoint
// DAG components are independent.
func testMultiComponentDAG(t *testing.T, factory Factory) {
	ctx := context.Background()
	migrator, adapter := newMigrator(t, factory)

	require.NoError(t, migrator.RegisterMany(
		factory.NewMigration(uuid1, nil),
		factory.NewMigration(uuid2, []uuid.UUID{uuid1}),
		factory.NewMigration(uuid3, nil),
		factory.NewMigration(uuid4, []uuid.UUID{uuid3}),
	))

	require.NoError(t, migrator.Up(ctx, dagmigrate.WithTarget(uuid2)))
	requireApplied(t, adapter, []uuid.UUID{uuid1, uuid2}, []uuid.UUID{uuid3, uuid4})

	require.NoError(t, migrator.Down(ctx, dagmigrate.WithTarget(uuid1)))
	requireApplied(t, adapter, []uuid.UUID{uuid1}, []uuid.UUID{uuid2, uuid3, uuid4})

	require.NoError(t, migrator.Up(ctx, dagmigrate.WithTarget(uuid3)))
	requireApplied(t, adapter, []uuid.UUID{uuid1, uuid3}, []uuid.UUID{uuid2, uuid4})

	require.NoError(t, migrator.Up(ctx))
	requireApplied(t, adapter, []uuid.UUID{uuid1, uuid2, uuid3, uuid4}, nil)

	require.NoError(t, migrator.Down(ctx))
	requireApplied(t, adapter, nil, []uuid.UUID{uuid1, uuid2, uuid3, uuid4})
}

// testBranchingDAG checks application and reversion on a branching DAG:
// 1 and 2 are roots, 3 depends on both, 4 and 5 both depend on 3.
func testBranchingDAG(t *testing.T, factory Factory) {
	ctx := context.Background()
	migrator, adapter := newMigrator(t, factory)

	require.NoError(t, migrator.RegisterMany(
		factory.NewMigration(uuid1, nil),
		factory.NewMigration(uuid2, nil),
		factory.NewMigration(uuid3, []uuid.UUID{uuid1, uuid2}),
		factory.NewMigration(uuid4, []uuid.UUID{uuid3}),
		factory.NewMigration(uuid5, []uuid.UUID{uuid3}),
	))

	require.NoError(t, migrator.Up(ctx, dagmigrate.WithTarget(uuid4)))
	requireApplied(t, adapter, []uuid.UUID{uuid1, uuid2, uuid3, uuid4}, []uuid.UUID{uuid5})

	// Reverting to migration 1 must also revert migration 5's whole subtree even
	// though 5 itself was never applied; it is skipped silently.
	require.NoError(t, migrator.Down(ctx, dagmigrate.WithTarget(uuid1)))
	requireApplied(t, adapter, []uuid.UUID{uuid1, uuid2}, []uuid.UUID{uuid3, uuid4, uuid5})
}

// testRepeatedUp checks that a second Up with no intervening Down leaves the
// applied set unchanged.
func testRepeatedUp(t *testing.T, factory Factory) {
	ctx := context.Background()
	migrator, adapter := newMigrator(t, factory)

	require.NoError(t, migrator.Register(factory.NewMigration(uuid1, nil)))
	require.NoError(t, migrator.Register(factory.NewMigration(uuid2, []uuid.UUID{uuid1})))

	require.NoError(t, migrator.Up(ctx))
	first, err := adapter.AppliedMigrations(context.Background())
	require.NoError(t, err)

	require.NoError(t, migrator.Up(ctx))
	second, err := adapter.AppliedMigrations(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
}
