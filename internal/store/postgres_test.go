// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package store

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanri/kanri/pkg/errutil"
)

func fastOptions(retries uint64, buf *bytes.Buffer) ConnectOptions {
	return ConnectOptions{
		MaxRetries: retries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
		Logger:     slog.New(slog.NewJSONHandler(buf, nil)),
	}
}

func TestPingWithRetry_SucceedsAfterFailures(t *testing.T) {
	var buf bytes.Buffer
	calls := 0
	ping := func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}

	err := pingWithRetry(context.Background(), ping, fastOptions(5, &buf))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, buf.String(), "database not reachable yet")
}

func TestPingWithRetry_GivesUp(t *testing.T) {
	var buf bytes.Buffer
	calls := 0
	ping := func(context.Context) error {
		calls++
		return errors.New("connection refused")
	}

	err := pingWithRetry(context.Background(), ping, fastOptions(2, &buf))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
	assert.Equal(t, 3, calls, "one attempt plus two retries")
}

func TestPingWithRetry_StopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	ping := func(context.Context) error {
		cancel()
		return errors.New("connection refused")
	}

	opts := fastOptions(100, &buf)
	opts.BaseDelay = time.Second
	opts.MaxDelay = 0

	err := pingWithRetry(ctx, ping, opts)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
}

func TestConnect_InvalidDSN(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://%zz", DefaultConnectOptions())
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@h:5432/db", "pgx5://u:p@h:5432/db"},
		{"postgresql://u:p@h/db?sslmode=disable", "pgx5://u:p@h/db?sslmode=disable"},
		{"pgx5://h/db", "pgx5://h/db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, migrateURL(tt.in))
	}
}
