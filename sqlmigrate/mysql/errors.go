/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package mysql registers error checkers for the go-sql-driver/mysql driver.
// Import it for its side effects to enable transaction retries and duplicate
// key detection when migrating MySQL databases.
package mysql

import (
	"errors"

	mysqldrv "github.com/go-sql-driver/mysql"

	"github.com/acronis/go-dagmigrate/sqlmigrate"
)

// ErrCode defines the type for MySQL error codes.
type ErrCode uint16

// MySQL error codes.
const (
	ErrLockWaitTimeout ErrCode = 1205
	ErrDeadlock        ErrCode = 1213
	ErrDupEntry        ErrCode = 1062
)

func init() {
	sqlmigrate.RegisterIsRetryableFunc(&mysqldrv.MySQLDriver{}, func(err error) bool {
		return CheckMySQLError(err, ErrDeadlock) || CheckMySQLError(err, ErrLockWaitTimeout)
	})
	sqlmigrate.RegisterDuplicateKeyFunc(&mysqldrv.MySQLDriver{}, func(err error) bool {
		return CheckMySQLError(err, ErrDupEntry)
	})
}

// CheckMySQLError checks if the passed error is a MySQL error with the specific code.
func CheckMySQLError(err error, errCode ErrCode) bool {
	var mySQLError *mysqldrv.MySQLError
	if errors.As(err, &mySQLError) {
		return mySQLError.Number == uint16(errCode)
	}
	return false
}
