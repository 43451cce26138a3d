/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package mssql registers error checkers for the microsoft/go-mssqldb driver.
// Import it for its side effects to enable transaction retries and duplicate
// key detection when migrating MSSQL databases.
package mssql

import (
	"errors"

	mssqldrv "github.com/microsoft/go-mssqldb"

	"github.com/acronis/go-dagmigrate/sqlmigrate"
)

// ErrCode defines the type for MSSQL error codes.
type ErrCode int32

// MSSQL error codes.
const (
	ErrDeadlockVictim   ErrCode = 1205
	ErrDupIndex         ErrCode = 2601
	ErrUniqueConstraint ErrCode = 2627
)

func init() {
	sqlmigrate.RegisterIsRetryableFunc(&mssqldrv.Driver{}, func(err error) bool {
		return CheckMSSQLError(err, ErrDeadlockVictim)
	})
	sqlmigrate.RegisterDuplicateKeyFunc(&mssqldrv.Driver{}, func(err error) bool {
		return CheckMSSQLError(err, ErrUniqueConstraint) || CheckMSSQLError(err, ErrDupIndex)
	})
}

// CheckMSSQLError checks if the passed error is an MSSQL error with the specific code.
func CheckMSSQLError(err error, errCode ErrCode) bool {
	var mssqlErr mssqldrv.Error
	if errors.As(err, &mssqlErr) {
		return mssqlErr.Number == int32(errCode)
	}
	return false
}
