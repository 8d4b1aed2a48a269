// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back or inspect the PostgreSQL schema migrations.`,
	}
	cmd.AddCommand(
		newMigrateUpCmd(nil),
		newMigrateDownCmd(nil),
		newMigrateStatusCmd(nil),
		newMigrateForceCmd(nil),
	)
	return cmd
}

func newMigrateUpCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := deps.withDefaults()
			cfg, err := d.ConfigLoader(cmd.Flags())
			if err != nil {
				return err
			}
			if err := migrateUp(d, cfg.Database.URL.Value()); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	}
}

func newMigrateDownCmd(deps *Deps) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := deps.withDefaults()
			cfg, err := d.ConfigLoader(cmd.Flags())
			if err != nil {
				return err
			}
			return withMigrator(d, cfg.Database.URL.Value(), func(m Migrator) error {
				if all {
					if err := m.Down(); err != nil {
						return err
					}
					cmd.Println("All migrations rolled back")
					return nil
				}
				if err := m.Steps(-1); err != nil {
					return err
				}
				cmd.Println("Rolled back one migration")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration")
	return cmd
}

func newMigrateStatusCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := deps.withDefaults()
			cfg, err := d.ConfigLoader(cmd.Flags())
			if err != nil {
				return err
			}
			return withMigrator(d, cfg.Database.URL.Value(), func(m Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				applied, pending, err := m.Status()
				if err != nil {
					return err
				}

				state := "clean"
				if dirty {
					state = "dirty"
				}
				cmd.Printf("Schema version: %d (%s)\n", version, state)
				for _, mig := range applied {
					cmd.Printf("  [applied] %s\n", mig.Name)
				}
				for _, mig := range pending {
					cmd.Printf("  [pending] %s\n", mig.Name)
				}
				return nil
			})
		},
	}
}

func newMigrateForceCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Mark a schema version as applied and clear the dirty flag",
		Long: `Record <version> as the current schema version without running any
migration. Use it after repairing a database left dirty by a failed
migration; "migrate status" shows the version to force.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version < 0 {
				return oops.Code("INVALID_VERSION").
					With("version", args[0]).
					Errorf("version must be a non-negative integer")
			}
			d := deps.withDefaults()
			cfg, err := d.ConfigLoader(cmd.Flags())
			if err != nil {
				return err
			}
			return withMigrator(d, cfg.Database.URL.Value(), func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Schema version forced to %d\n", version)
				return nil
			})
		},
	}
}

func migrateUp(deps *Deps, databaseURL string) error {
	return withMigrator(deps, databaseURL, func(m Migrator) error {
		return m.Up()
	})
}

// withMigrator runs fn with a migrator that is closed afterwards.
func withMigrator(deps *Deps, databaseURL string, fn func(Migrator) error) (err error) {
	m, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if err := fn(m); err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}
	return nil
}
