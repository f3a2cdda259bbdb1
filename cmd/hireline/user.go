// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/hireline/hireline/internal/auth"
)

// NewUserCmd creates the user subcommand.
func NewUserCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer user accounts",
	}

	var email, fullName string
	createAdmin := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: `Create an administrator account with a local password. The password
is read from the first line of standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withServices(cmd, deps, func(ctx context.Context, svc *services) error {
				view, err := svc.registration.CreateAdmin(ctx, email, fullName, password)
				if err != nil {
					return err
				}
				cmd.Printf("Created admin %s (%s)\n", view.Email, view.ID)
				return nil
			})
		},
	}
	createAdmin.Flags().StringVar(&email, "email", "", "administrator email")
	createAdmin.Flags().StringVar(&fullName, "full-name", "", "administrator full name")
	_ = createAdmin.MarkFlagRequired("email")     //nolint:errcheck // flag exists
	_ = createAdmin.MarkFlagRequired("full-name") //nolint:errcheck // flag exists

	deactivate := &cobra.Command{
		Use:   "deactivate EMAIL",
		Short: "Block an account from signing in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setActive(cmd, deps, args[0], false)
		},
	}

	activate := &cobra.Command{
		Use:   "activate EMAIL",
		Short: "Allow a deactivated account to sign in again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setActive(cmd, deps, args[0], true)
		},
	}

	for _, sub := range []*cobra.Command{createAdmin, deactivate, activate} {
		addLogFlags(sub)
		cmd.AddCommand(sub)
	}
	return cmd
}

func setActive(cmd *cobra.Command, deps *Deps, rawEmail string, active bool) error {
	email, err := auth.NewEmail(rawEmail)
	if err != nil {
		return err
	}
	return withServices(cmd, deps, func(ctx context.Context, svc *services) error {
		user, err := svc.users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user.IsActive() == active {
			cmd.Printf("%s is already %s\n", email, activeLabel(active))
			return nil
		}
		next := user.Deactivate()
		if active {
			next = user.Activate()
		}
		if err := svc.users.Update(ctx, next); err != nil {
			return err
		}
		cmd.Printf("%s is now %s\n", email, activeLabel(active))
		return nil
	})
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "deactivated"
}

// readPassword returns the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", oops.Code("PASSWORD_REQUIRED").Errorf("password must be provided on standard input")
	}
	return password, nil
}

// withServices loads the server configuration, connects and runs fn with
// the wired services.
func withServices(cmd *cobra.Command, deps *Deps, fn func(context.Context, *services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireServe(); err != nil {
		return err
	}
	logger, err := setupLogging(cmd, cfg)
	if err != nil {
		return err
	}

	pool, err := deps.Connect(ctx, cfg.Database.URL, connectOptions(cfg, logger))
	if err != nil {
		return err
	}
	defer pool.Close()

	svc, err := buildServices(cfg, pool, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			logger.Warn("error closing redis client", "error", closeErr)
		}
	}()
	return fn(ctx, svc)
}
