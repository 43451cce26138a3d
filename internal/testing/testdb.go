/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package testing provides helpers for tests that need a real database.
package testing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	postgresImage    = "postgres:16-alpine"
	postgresUser     = "postgres"
	postgresPassword = "password"
	postgresDatabase = "migrations_test"
)

// MustRunAndOpenTestDB starts a disposable PostgreSQL container and opens a
// connection to it with the passed driver ("postgres" or "pgx"). The driver
// package must be imported by the caller for its side effects.
// It panics on any startup error and returns a stop function that closes the
// connection and terminates the container.
func MustRunAndOpenTestDB(ctx context.Context, driverName string) (*sql.DB, func(ctx context.Context) error) {
	ctr, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase(postgresDatabase),
		tcpostgres.WithUsername(postgresUser),
		tcpostgres.WithPassword(postgresPassword),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		panic(fmt.Errorf("run postgres container: %w", err))
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate(ctx, ctr)
		panic(fmt.Errorf("get connection string: %w", err))
	}

	dbConn, err := sql.Open(driverName, dsn)
	if err != nil {
		terminate(ctx, ctr)
		panic(fmt.Errorf("open database: %w", err))
	}

	// The port may be mapped before the server accepts connections, ping until it does.
	pingBackOff := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 10), ctx)
	if err = backoff.Retry(func() error { return dbConn.PingContext(ctx) }, pingBackOff); err != nil {
		_ = dbConn.Close()
		terminate(ctx, ctr)
		panic(fmt.Errorf("ping database: %w", err))
	}

	stop := func(ctx context.Context) error {
		closeErr := dbConn.Close()
		if err := ctr.Terminate(ctx); err != nil {
			return err
		}
		return closeErr
	}
	return dbConn, stop
}

func terminate(ctx context.Context, ctr *tcpostgres.PostgresContainer) {
	termCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	_ = testcontainers.TerminateContainer(ctr, testcontainers.StopContext(termCtx))
}
