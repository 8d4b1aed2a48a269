// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/harborlight/harborlight/internal/auth"
	"github.com/harborlight/harborlight/internal/config"
)

// NewInviteCmd creates the invite command group.
func NewInviteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Manage staff invites",
	}
	cmd.AddCommand(newInviteCreateCmd(nil))
	return cmd
}

func newInviteCreateCmd(deps *Deps) *cobra.Command {
	var role, email string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an invite code",
		Long: `Create an invite code for the given role. With --email the invite is
bound to that address and sent to it. Use this to bootstrap the first admin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			return withBackend(cmd, deps, func(ctx context.Context, cfg *config.Config, logger *slog.Logger, b backend) error {
				mailer, err := newMailer(cfg, logger, nil)
				if err != nil {
					return err
				}
				sessions, err := auth.NewSessionIssuer([]byte(cfg.Auth.JWTSecret.Value()), cfg.Auth.SessionTTL)
				if err != nil {
					return err
				}
				links, err := auth.NewLinks(cfg.Site.BaseURL)
				if err != nil {
					return err
				}
				svc, err := auth.NewRegistrationService(b.accounts, b.invites, b.tx, auth.NewPBKDF2Hasher(), sessions, mailer, links)
				if err != nil {
					return err
				}
				return createInvite(ctx, cmd, svc, links, parsed, email)
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", auth.RoleViewer.String(), "role granted by the invite (viewer, editor, admin)")
	cmd.Flags().StringVar(&email, "email", "", "bind the invite to this address and email it")
	return cmd
}

func createInvite(ctx context.Context, cmd *cobra.Command, svc *auth.RegistrationService, links auth.Links, role auth.Role, email string) error {
	invite, err := svc.CreateInvite(ctx, nil, role, email)
	if err != nil {
		return err
	}
	cmd.Printf("Invite code: %s\n", invite.Code)
	cmd.Printf("Role:        %s\n", invite.Role)
	if invite.Email != nil {
		cmd.Printf("Email:       %s\n", *invite.Email)
	}
	cmd.Printf("Expires:     %s\n", invite.ExpiresAt.UTC().Format(time.RFC3339))
	cmd.Printf("Register at: %s\n", links.Register(invite.Code))
	return nil
}

// NewTokensCmd creates the tokens command group.
func NewTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Maintain one-time tokens",
	}
	cmd.AddCommand(newTokensPruneCmd(nil))
	return cmd
}

func newTokensPruneCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired one-time tokens",
		Long: `Delete reset tokens, access codes and applicant access tokens whose
expiry has passed. Safe to run from cron.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, deps, func(ctx context.Context, _ *config.Config, _ *slog.Logger, b backend) error {
				return pruneTokens(ctx, cmd, b.tokens, time.Now())
			})
		},
	}
}

func pruneTokens(ctx context.Context, cmd *cobra.Command, tokens auth.TokenRepository, now time.Time) error {
	n, err := tokens.DeleteExpired(ctx, now)
	if err != nil {
		return oops.Code("TOKEN_PRUNE_FAILED").Wrap(err)
	}
	cmd.Printf("Pruned %d expired tokens\n", n)
	return nil
}

// withBackend loads configuration, connects to PostgreSQL and runs fn with
// the repositories.
func withBackend(cmd *cobra.Command, deps *Deps, fn func(ctx context.Context, cfg *config.Config, logger *slog.Logger, b backend) error) error {
	d := deps.withDefaults()
	ctx := cmd.Context()

	cfg, err := d.ConfigLoader(cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	pool, err := d.PoolOpener(ctx, poolConfig(cfg))
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	return fn(ctx, cfg, logger, postgresBackend(pool))
}
