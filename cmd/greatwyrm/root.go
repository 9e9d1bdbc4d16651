// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Greatwyrm CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "greatwyrm",
		Short: "Greatwyrm - a multiplayer tabletop-game server",
		Long: `Greatwyrm hosts a website to play tabletop RPGs with your
friends. It manages user accounts and cookie-borne sessions backed by
a single SQLite database.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())

	return cmd
}
