// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/harborlight/harborlight/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("harborlight_test"),
			postgres.WithUsername("harborlight"),
			postgres.WithPassword("harborlight"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		Expect(err).NotTo(HaveOccurred())
		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	It("applies, rolls back and reapplies every migration", func() {
		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		defer migrator.Close()

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())

		Expect(migrator.Up()).To(Succeed())
		all, err := store.Migrations()
		Expect(err).NotTo(HaveOccurred())
		latest := all[len(all)-1].Version

		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(latest))

		Expect(migrator.Steps(-1)).To(Succeed())
		_, pending, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(HaveLen(1))

		Expect(migrator.Down()).To(Succeed())
		Expect(migrator.Up()).To(Succeed())
	})

	It("opens a pool against the migrated database", func() {
		pool, err := store.Open(ctx, store.PoolConfig{URL: connStr, ConnectAttempts: 3})
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		var n int
		Expect(pool.QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&n)).To(Succeed())
		Expect(n).To(BeZero())
	})
})
