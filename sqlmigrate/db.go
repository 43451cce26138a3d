/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqlmigrate

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/acronis/go-appkit/retry"
)

// Open opens a new database connection pool based on the passed configuration.
// If ping is true, the connectivity is verified before returning.
func Open(cfg *Config, ping bool) (*sql.DB, error) {
	driverName, dsn := cfg.DriverNameAndDSN()
	if driverName == "" {
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}

	dbConn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime))

	if ping {
		if err = dbConn.Ping(); err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
	}

	return dbConn, nil
}

// TxOption is a functional option for DoInTx.
type TxOption func(*txOptions)

type txOptions struct {
	retryPolicy retry.Policy
}

// WithRetryPolicy makes DoInTx retry the whole transaction with the given
// policy when the error is recognized as retryable for the connection's driver.
func WithRetryPolicy(retryPolicy retry.Policy) TxOption {
	return func(o *txOptions) {
		o.retryPolicy = retryPolicy
	}
}

// DoInTx begins a new transaction, calls the passed function,
// and commits or rolls back depending on whether the function returns an error.
// If the function panics, the transaction is rolled back and the panic is re-raised.
func DoInTx(ctx context.Context, dbConn *sql.DB, fn func(tx *sql.Tx) error, options ...TxOption) error {
	var opts txOptions
	for _, opt := range options {
		opt(&opts)
	}
	if opts.retryPolicy == nil {
		return doInTx(ctx, dbConn, fn)
	}
	isRetryable := GetIsRetryable(dbConn.Driver())
	if isRetryable == nil {
		return doInTx(ctx, dbConn, fn)
	}
	return retry.DoWithRetry(ctx, opts.retryPolicy, func(err error) bool { return isRetryable(err) }, nil, func(ctx context.Context) error {
		return doInTx(ctx, dbConn, fn)
	})
}

func doInTx(ctx context.Context, dbConn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := dbConn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsRetryableFunc reports whether an error is transient for a particular SQL
// driver and the failed operation may be retried.
type IsRetryableFunc func(err error) bool

var (
	errCheckMu        sync.RWMutex
	isRetryableFuncs  = make(map[reflect.Type][]IsRetryableFunc)
	duplicateKeyFuncs = make(map[reflect.Type][]IsRetryableFunc)
)

// RegisterIsRetryableFunc registers a checker of retryable errors for the
// passed SQL driver. Driver subpackages (mysql, postgres, pgx, sqlite, mssql)
// call it from their init functions, so importing a subpackage is enough
// to make retries work for its driver.
func RegisterIsRetryableFunc(d driver.Driver, fn IsRetryableFunc) {
	errCheckMu.Lock()
	defer errCheckMu.Unlock()
	key := reflect.TypeOf(d)
	isRetryableFuncs[key] = append(isRetryableFuncs[key], fn)
}

// UnregisterAllIsRetryableFuncs removes all registered checkers of retryable
// errors for the passed SQL driver.
func UnregisterAllIsRetryableFuncs(d driver.Driver) {
	errCheckMu.Lock()
	defer errCheckMu.Unlock()
	delete(isRetryableFuncs, reflect.TypeOf(d))
}

// GetIsRetryable returns a checker of retryable errors for the passed SQL driver
// or nil if nothing was registered for it.
func GetIsRetryable(d driver.Driver) IsRetryableFunc {
	errCheckMu.RLock()
	fns := isRetryableFuncs[reflect.TypeOf(d)]
	errCheckMu.RUnlock()
	if len(fns) == 0 {
		return nil
	}
	return func(err error) bool {
		for _, fn := range fns {
			if fn(err) {
				return true
			}
		}
		return false
	}
}

// RegisterDuplicateKeyFunc registers a checker of unique constraint violation
// errors for the passed SQL driver.
func RegisterDuplicateKeyFunc(d driver.Driver, fn IsRetryableFunc) {
	errCheckMu.Lock()
	defer errCheckMu.Unlock()
	key := reflect.TypeOf(d)
	duplicateKeyFuncs[key] = append(duplicateKeyFuncs[key], fn)
}

// IsDuplicateKeyError reports whether the error is a unique constraint
// violation for the passed SQL driver. It returns false when no checker
// was registered for the driver.
func IsDuplicateKeyError(d driver.Driver, err error) bool {
	errCheckMu.RLock()
	fns := duplicateKeyFuncs[reflect.TypeOf(d)]
	errCheckMu.RUnlock()
	for _, fn := range fns {
		if fn(err) {
			return true
		}
	}
	return false
}
