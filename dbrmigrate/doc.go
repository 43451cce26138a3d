/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package dbrmigrate provides an implementation of the dagmigrate.Adapter
// interface on top of github.com/gocraft/dbr. Migrations receive a *dbr.Tx
// and can use the dbr query builder for their steps, while the connection's
// event receiver instruments every query the migrations run.
package dbrmigrate
