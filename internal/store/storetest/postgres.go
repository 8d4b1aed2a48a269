// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

//go:build integration

// Package storetest starts a migrated PostgreSQL container for integration
// tests.
package storetest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/harborlight/harborlight/internal/store"
)

// Database is a running, fully migrated test database.
type Database struct {
	URL       string
	Pool      *pgxpool.Pool
	container *postgres.PostgresContainer
}

// StartPostgres runs a postgres:16-alpine container, applies every
// migration and opens a pool.
func StartPostgres(ctx context.Context) (*Database, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("harborlight_test"),
		postgres.WithUsername("harborlight"),
		postgres.WithPassword("harborlight"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, oops.With("operation", "start postgres container").Wrap(err)
	}

	db := &Database{container: container}
	db.URL, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		db.Close(ctx)
		return nil, oops.With("operation", "connection string").Wrap(err)
	}

	migrator, err := store.NewMigrator(db.URL)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}
	err = migrator.Up()
	_ = migrator.Close()
	if err != nil {
		db.Close(ctx)
		return nil, err
	}

	db.Pool, err = store.Open(ctx, store.PoolConfig{URL: db.URL, ConnectAttempts: 3})
	if err != nil {
		db.Close(ctx)
		return nil, err
	}
	return db, nil
}

// Truncate empties every credential and application table.
func (d *Database) Truncate(ctx context.Context) error {
	_, err := d.Pool.Exec(ctx, `TRUNCATE one_time_tokens, invite_codes, accounts, applications`)
	if err != nil {
		return oops.With("operation", "truncate").Wrap(err)
	}
	return nil
}

// Close releases the pool and terminates the container.
func (d *Database) Close(ctx context.Context) {
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.container != nil {
		_ = d.container.Terminate(ctx)
	}
}
