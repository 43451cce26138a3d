/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dagmigrate

import (
	"context"
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/google/uuid"
)

// Migrator orchestrates registration and dependency-ordered execution of
// migrations against a single Adapter.
//
// Migrator is not safe for concurrent use. It assumes exactly one instance
// drives a given backing store at a time: the applied-state set is re-fetched
// from the adapter at the start of every Up/Down call but treated as stable for
// the duration of that call.
type Migrator struct {
	adapter Adapter
	graph   *depGraph
	logger  log.FieldLogger
	metrics MetricsCollector
}

// MigratorOption is a functional option for Migrator configuration.
type MigratorOption func(*Migrator)

// WithLogger sets a logger for reporting executed migrations.
// Logging is disabled by default.
func WithLogger(logger log.FieldLogger) MigratorOption {
	return func(m *Migrator) {
		m.logger = logger
	}
}

// WithMetricsCollector sets a collector of migration execution metrics.
// Metrics collection is disabled by default.
func WithMetricsCollector(collector MetricsCollector) MigratorOption {
	return func(m *Migrator) {
		m.metrics = collector
	}
}

// New creates a new Migrator that drives the given adapter.
func New(adapter Adapter, opts ...MigratorOption) (*Migrator, error) {
	if adapter == nil {
		return nil, fmt.Errorf("adapter cannot be nil")
	}

	m := &Migrator{
		adapter: adapter,
		graph:   newDepGraph(),
		logger:  log.NewDisabledLogger(),
		metrics: disabledMetrics{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Register adds a single migration to the dependency graph. It returns
// *DuplicateIDError if the migration's ID is already registered and
// *UnknownIDError if any declared dependency has not been registered yet.
// All dependencies are resolved before the graph is mutated, so a failed
// registration leaves the graph untouched. A migration that depends on its own
// ID fails with *UnknownIDError, as the ID is not visible to its own
// dependencies.
func (m *Migrator) Register(migration Migration) error {
	id := migration.ID()
	if _, ok := m.graph.lookup(id); ok {
		return &DuplicateIDError{ID: id}
	}

	deps := migration.Dependencies()
	depIdxs := make([]int, 0, len(deps))
	seen := make(map[uuid.UUID]struct{}, len(deps))
	for _, depID := range deps {
		if _, ok := seen[depID]; ok {
			continue
		}
		seen[depID] = struct{}{}
		depIdx, ok := m.graph.lookup(depID)
		if !ok {
			return &UnknownIDError{ID: depID}
		}
		depIdxs = append(depIdxs, depIdx)
	}

	idx := m.graph.addNode(migration)
	for _, depIdx := range depIdxs {
		// A freshly added node has no dependents, so these edges cannot close
		// a cycle.
		if err := m.graph.addEdge(depIdx, idx); err != nil {
			return err
		}
	}
	return nil
}

// RegisterMany registers a batch of migrations that may be given in any order
// with respect to their dependencies: all nodes are inserted first, edges are
// resolved after the full batch is known. The batch is all-or-nothing; on any
// error the graph is left exactly as it was before the call. Dependency cycles
// within the batch fail with *CycleError.
func (m *Migrator) RegisterMany(migrations ...Migration) error {
	g := m.graph.clone()

	idxs := make([]int, len(migrations))
	for i, migration := range migrations {
		id := migration.ID()
		if _, ok := g.lookup(id); ok {
			return &DuplicateIDError{ID: id}
		}
		idxs[i] = g.addNode(migration)
	}

	for i, migration := range migrations {
		seen := make(map[uuid.UUID]struct{}, len(migration.Dependencies()))
		for _, depID := range migration.Dependencies() {
			if _, ok := seen[depID]; ok {
				continue
			}
			seen[depID] = struct{}{}
			depIdx, ok := g.lookup(depID)
			if !ok {
				return &UnknownIDError{ID: depID}
			}
			if err := g.addEdge(depIdx, idxs[i]); err != nil {
				return err
			}
		}
	}

	m.graph = g
	return nil
}

// RunOption configures a single Up or Down operation.
type RunOption func(*runOptions)

type runOptions struct {
	target    uuid.UUID
	hasTarget bool
}

// WithTarget restricts the operation to the given migration. For Up, the target
// and everything it transitively depends on are applied. For Down, everything
// that depends on the target (directly or transitively) is reverted while the
// target itself stays applied.
func WithTarget(id uuid.UUID) RunOption {
	return func(o *runOptions) {
		o.target = id
		o.hasTarget = true
	}
}

// Up applies migrations as necessary so that the target migration (or, without a
// target, every registered migration) is applied together with all of its
// transitive dependencies. Already-applied migrations are skipped, which makes
// repeated calls idempotent. Execution follows the global topological order, so
// a migration is never applied before any of its in-target dependencies. On the
// first adapter failure the walk stops and a *MigrationError attributes the
// failure to the offending migration.
func (m *Migrator) Up(ctx context.Context, options ...RunOption) error {
	return m.run(ctx, DirectionUp, options)
}

// Down reverts migrations as necessary so that nothing dependent on the target
// migration stays applied; the target itself remains applied. Without a target,
// all applied migrations are reverted. Execution follows the global topological
// order in reverse; migrations that are not applied are skipped silently.
func (m *Migrator) Down(ctx context.Context, options ...RunOption) error {
	return m.run(ctx, DirectionDown, options)
}

func (m *Migrator) run(ctx context.Context, direction Direction, options []RunOption) error {
	var opts runOptions
	for _, opt := range options {
		opt(&opts)
	}

	targets, err := m.targetSet(direction, opts)
	if err != nil {
		return err
	}

	applied, err := m.adapter.AppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	order := m.graph.topoSort()
	if direction == DirectionDown {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}

	count := 0
	for _, idx := range order {
		if _, ok := targets[idx]; !ok {
			continue
		}
		migration := m.graph.nodes[idx].migration
		id := migration.ID()
		if _, isApplied := applied[id]; isApplied == (direction == DirectionUp) {
			continue
		}

		start := time.Now()
		if direction == DirectionUp {
			err = m.adapter.ApplyMigration(ctx, migration)
		} else {
			err = m.adapter.RevertMigration(ctx, migration)
		}
		elapsed := time.Since(start)
		if err != nil {
			m.metrics.ObserveMigration(direction, MigrationStatusError, elapsed)
			return &MigrationError{
				ID:          id,
				Description: migration.Description(),
				Direction:   direction,
				Err:         err,
			}
		}
		m.metrics.ObserveMigration(direction, MigrationStatusOK, elapsed)
		count++
		m.logger.Info(fmt.Sprintf("Executed migration %s (%s, %s)", id, migration.Description(), direction))
	}

	m.logger.Info(fmt.Sprintf("Executed %d migration(s) (%s)", count, direction))
	return nil
}

// targetSet resolves the set of graph indexes affected by the operation.
func (m *Migrator) targetSet(direction Direction, opts runOptions) (map[int]struct{}, error) {
	if opts.hasTarget {
		idx, ok := m.graph.lookup(opts.target)
		if !ok {
			return nil, &UnknownIDError{ID: opts.target}
		}
		if direction == DirectionUp {
			return m.graph.ancestors(idx), nil
		}
		targets := m.graph.descendants(idx)
		delete(targets, idx) // the target is the revert boundary and stays applied
		return targets, nil
	}
	if direction == DirectionUp {
		return m.graph.reachSet(m.graph.sinks(), true), nil
	}
	return m.graph.reachSet(m.graph.sources(), false), nil
}

// MigrationStatus pairs a registered migration with its current applied state.
type MigrationStatus struct {
	Migration Migration
	Applied   bool
}

// Status returns all registered migrations in topological order together with
// whether the backing store currently records them as applied.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := m.adapter.AppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("get applied migrations: %w", err)
	}

	order := m.graph.topoSort()
	statuses := make([]MigrationStatus, 0, len(order))
	for _, idx := range order {
		migration := m.graph.nodes[idx].migration
		_, isApplied := applied[migration.ID()]
		statuses = append(statuses, MigrationStatus{Migration: migration, Applied: isApplied})
	}
	return statuses, nil
}
