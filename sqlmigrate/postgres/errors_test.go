/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package postgres

import (
	"database/sql/driver"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-dagmigrate/sqlmigrate"
)

func TestPostgresIsRetryable(t *testing.T) {
	isRetryable := sqlmigrate.GetIsRetryable(&pq.Driver{})
	require.NotNil(t, isRetryable)

	for _, code := range []ErrCode{ErrCodeDeadlockDetected, ErrCodeSerializationFailure} {
		var err error
		err = &pq.Error{Code: pq.ErrorCode(code)}
		require.True(t, isRetryable(err))
		err = fmt.Errorf("wrapped error: %w", err)
		require.True(t, isRetryable(err))
	}

	require.False(t, isRetryable(driver.ErrBadConn))
}

func TestPostgresDuplicateKey(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &pq.Error{Code: pq.ErrorCode(ErrCodeUniqueViolation)})
	require.True(t, sqlmigrate.IsDuplicateKeyError(&pq.Driver{}, err))
	require.False(t, sqlmigrate.IsDuplicateKeyError(&pq.Driver{}, driver.ErrBadConn))
}
