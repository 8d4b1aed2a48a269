// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/harborlight/harborlight/internal/config"
)

// NewRootCmd creates the root command for the Harborlight CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harborlight",
		Short: "Harborlight - staff and applicant credentials",
		Long: `Harborlight manages staff accounts, invite-based registration,
password resets and applicant access codes behind a JSON API.`,
		SilenceUsage: true,
	}

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewInviteCmd())
	cmd.AddCommand(NewTokensCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("harborlight " + versionString())
		},
	}
}
