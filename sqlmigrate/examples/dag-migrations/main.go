/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Command dag-migrations applies SQL migrations from the embedded directory
// to the database described by a YAML config file.
//
// Usage:
//
//	dag-migrations -config config.yaml            # apply everything
//	dag-migrations -config config.yaml -target 7f0d2e23-3d27-4625-b5cd-7ea4aa3b9bb6
//	dag-migrations -config config.yaml -down      # revert everything
//	dag-migrations -config config.yaml -status    # print per-migration state
//
// Example config:
//
//	db:
//	  dialect: sqlite3
//	  sqlite3:
//	    path: example.db
package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	stdlog "log"
	"os"

	"github.com/acronis/go-appkit/config"
	"github.com/acronis/go-appkit/log"
	"github.com/google/uuid"

	"github.com/acronis/go-dagmigrate"
	"github.com/acronis/go-dagmigrate/sqlmigrate"
	_ "github.com/acronis/go-dagmigrate/sqlmigrate/mysql"
	_ "github.com/acronis/go-dagmigrate/sqlmigrate/pgx"
	_ "github.com/acronis/go-dagmigrate/sqlmigrate/postgres"
	_ "github.com/acronis/go-dagmigrate/sqlmigrate/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	down := flag.Bool("down", false, "revert migrations instead of applying them")
	target := flag.String("target", "", "migration ID to migrate towards (all if empty)")
	status := flag.Bool("status", false, "print the state of every migration and exit")
	flag.Parse()

	if err := run(*configPath, *down, *target, *status); err != nil {
		stdlog.Fatal(err)
	}
}

func run(configPath string, down bool, target string, status bool) error {
	cfg := sqlmigrate.NewDefaultConfig(nil)
	if err := config.NewDefaultLoader("").LoadFromFile(configPath, config.DataTypeYAML, cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerClose := log.NewLogger(&log.Config{Output: log.OutputStderr, Level: log.LevelInfo})
	defer loggerClose()

	promMetrics := dagmigrate.NewPrometheusMetrics()
	promMetrics.MustRegister()
	defer promMetrics.Unregister()

	dbConn, err := sqlmigrate.Open(cfg, true)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = dbConn.Close() }()

	ctx := context.Background()

	adapter, err := sqlmigrate.NewAdapter(dbConn, cfg.Dialect)
	if err != nil {
		return err
	}
	if err = adapter.Init(ctx); err != nil {
		return err
	}

	migrations, err := sqlmigrate.LoadEmbedFSMigrations(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	migrator, err := dagmigrate.New(adapter,
		dagmigrate.WithLogger(logger),
		dagmigrate.WithMetricsCollector(promMetrics),
	)
	if err != nil {
		return err
	}
	if err = migrator.RegisterMany(migrations...); err != nil {
		return fmt.Errorf("register migrations: %w", err)
	}

	if status {
		return printStatus(ctx, migrator)
	}

	var runOpts []dagmigrate.RunOption
	if target != "" {
		targetID, parseErr := uuid.Parse(target)
		if parseErr != nil {
			return fmt.Errorf("parse target ID: %w", parseErr)
		}
		runOpts = append(runOpts, dagmigrate.WithTarget(targetID))
	}

	if down {
		return migrator.Down(ctx, runOpts...)
	}
	return migrator.Up(ctx, runOpts...)
}

func printStatus(ctx context.Context, migrator *dagmigrate.Migrator) error {
	statuses, err := migrator.Status(ctx)
	if err != nil {
		return err
	}
	for _, st := range statuses {
		state := "pending"
		if st.Applied {
			state = "applied"
		}
		fmt.Fprintf(os.Stdout, "%s  %-7s  %s\n", st.Migration.ID(), state, st.Migration.Description())
	}
	return nil
}
