package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/iliyamo/manufacturer-api/internal/config"
	"github.com/iliyamo/manufacturer-api/internal/database"
	"github.com/iliyamo/manufacturer-api/internal/model"
	"github.com/iliyamo/manufacturer-api/internal/repository"
)

// userCmd is the trusted path for bootstrapping the first admin, which the
// HTTP API cannot do because granting admin already requires one.
func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user roles directly in the store",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "promote <email>",
		Short: "Grant the admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetRole(cmd, args[0], model.RoleAdmin)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "demote <email>",
		Short: "Revoke the admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetRole(cmd, args[0], "")
		},
	})
	return cmd
}

func runSetRole(cmd *cobra.Command, email, role string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := database.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close(context.Background()) }()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	if err := setRole(ctx, store, rdb, cfg, email, role); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s role set to %q\n", repository.NormalizeEmail(email), role)
	return nil
}

// setRole writes the role and drops any cached copy so running servers see
// the change immediately.
func setRole(ctx context.Context, store repository.Store, rdb *redis.Client, cfg config.Config, email, role string) error {
	users := repository.NewUserRepo(store)
	if _, err := users.SetRole(ctx, email, role); err != nil {
		return fmt.Errorf("set role for %s: %w", email, err)
	}
	roles := repository.NewRoleResolver(users, rdb, cfg.RoleCacheTTL)
	if err := roles.Invalidate(ctx, email); err != nil {
		return fmt.Errorf("invalidate cached role: %w", err)
	}
	return nil
}
