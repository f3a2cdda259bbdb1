// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package main

import (
	"errors"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/hireline/hireline/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, revert and inspect the embedded database migrations.`,
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := getDatabaseURL(cmd)
			if err != nil {
				return err
			}
			if err := migrateUp(deps, url); err != nil {
				return err
			}
			cmd.Println("Migrations applied")
			return nil
		},
	}

	var confirmed bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert every migration (drops all identity data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("migrate down drops all data; pass --yes to confirm")
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("All migrations reverted")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&confirmed, "yes", false, "confirm dropping all data")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if dirty {
					cmd.Printf("Version %d (dirty)\n", v)
					return nil
				}
				cmd.Printf("Version %d\n", v)
				return nil
			})
		},
	}

	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long: `Mark VERSION as applied without running it. Use this to recover
from a failed migration that left the schema dirty.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Force(v); err != nil {
					return err
				}
				cmd.Printf("Forced version %d\n", v)
				return nil
			})
		},
	}

	pending := &cobra.Command{
		Use:   "pending",
		Short: "List migrations that up would apply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				versions, err := m.PendingMigrations()
				if err != nil {
					return err
				}
				if len(versions) == 0 {
					cmd.Println("No pending migrations")
					return nil
				}
				for _, v := range versions {
					name, err := store.MigrationName(v)
					if err != nil {
						return err
					}
					cmd.Println(name)
				}
				return nil
			})
		},
	}

	for _, sub := range []*cobra.Command{up, down, versionCmd, force, pending} {
		addLogFlags(sub)
		cmd.AddCommand(sub)
	}
	return cmd
}

// getDatabaseURL loads the configuration and returns the database URL.
func getDatabaseURL(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return "", err
	}
	return cfg.Database.URL, nil
}

func withMigrator(cmd *cobra.Command, deps *Deps, fn func(Migrator) error) (err error) {
	url, err := getDatabaseURL(cmd)
	if err != nil {
		return err
	}
	m, err := deps.MigratorFactory(url)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(m)
}

func migrateUp(deps *Deps, databaseURL string) (err error) {
	m, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return m.Up()
}

// parseForceVersion parses the force argument. Negative values are rejected.
func parseForceVersion(arg string) (int, error) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("version", arg).Wrap(err)
	}
	if v < 0 {
		return 0, oops.Code("INVALID_VERSION").With("version", arg).Errorf("version must be non-negative")
	}
	return v, nil
}
