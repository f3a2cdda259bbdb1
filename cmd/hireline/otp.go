// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hireline/hireline/internal/config"
)

// NewOTPCmd creates the otp subcommand.
func NewOTPCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "Maintain one-time code challenges",
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired challenges now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, deps, func(ctx context.Context, svc *services) error {
				n, err := svc.otp.PurgeExpired(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("Purged %d expired challenges\n", n)
				return nil
			})
		},
	}
	addLogFlags(purge)
	purge.Flags().String("otp-store", config.Default().OTP.Store, "one-time code store (postgres or redis)")
	cmd.AddCommand(purge)
	return cmd
}
