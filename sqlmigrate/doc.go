/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package sqlmigrate provides a database/sql implementation of the
// dagmigrate.Adapter interface along with the supporting plumbing:
// configuration of the target database, DSN construction, transaction
// helpers with optional retries, and loading of SQL migrations from an
// embedded filesystem.
//
// Transient errors are recognized per driver. Import the matching driver
// subpackage (mysql, postgres, pgx, sqlite, mssql) for its side effects
// to enable retries and duplicate key detection for that driver:
//
//	import _ "github.com/acronis/go-dagmigrate/sqlmigrate/pgx"
package sqlmigrate
