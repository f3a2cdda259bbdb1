// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hireline/hireline/internal/config"
	"github.com/hireline/hireline/internal/logging"
	"github.com/hireline/hireline/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Hireline CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "hireline",
		Short: "Hireline identity service",
		Long: `Hireline identity service: registration with one-time codes,
password and Google sign-in, session tokens and password recovery.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/hireline/config.yaml if present)")

	cmd.AddCommand(NewServeCmd(deps))
	cmd.AddCommand(NewMigrateCmd(deps))
	cmd.AddCommand(NewUserCmd(deps))
	cmd.AddCommand(NewOTPCmd(deps))

	return cmd
}

// loadConfig reads the configuration for cmd. Flags the user set on cmd
// override the file and the environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := configFile
	if path == "" {
		found, err := xdg.FindConfigFile()
		if err != nil {
			return config.Config{}, err
		}
		path = found
	}
	return config.Loader{Path: path, Flags: cmd.Flags()}.Load()
}

// setupLogging installs the process logger described by cfg.
func setupLogging(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	return logging.SetDefault(logging.Options{
		Service: "hireline",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})
}

// addLogFlags registers the logging overrides shared by every command.
func addLogFlags(cmd *cobra.Command) {
	defaults := config.Default()
	cmd.Flags().String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	cmd.Flags().String("log-format", defaults.Log.Format, "log format (json or text)")
}
