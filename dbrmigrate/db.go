/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dbrmigrate

import (
	"fmt"
	"time"

	"github.com/gocraft/dbr/v2"

	"github.com/acronis/go-dagmigrate/sqlmigrate"
)

// Open opens a new database connection pool based on the passed configuration
// and wraps it for using with the dbr query builder. All executed queries will
// be instrumented with the passed event receiver (may be nil).
// If ping is true, the connectivity is verified before returning.
func Open(cfg *sqlmigrate.Config, ping bool, eventReceiver dbr.EventReceiver) (*dbr.Connection, error) {
	driverName, dsn := cfg.DriverNameAndDSN()
	if driverName == "" {
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}

	conn, err := dbr.Open(driverName, dsn, eventReceiver)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime))

	if ping {
		if err = conn.Ping(); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
	}

	return conn, nil
}
