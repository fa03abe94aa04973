package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"gochangi/internal/models"
	"gochangi/pkg/logger"
)

func newCreateAdminCmd(configPath *string) *cobra.Command {
	var username, password, role string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}
			cfg, err := loadConfig(*configPath, "")
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)
			ctx := cmd.Context()

			infra, err := OpenInfra(ctx, cfg, log)
			if err != nil {
				return err
			}
			app := NewApp(cfg, infra, log)
			defer app.Close(context.Background())

			admin, err := app.Auth.CreateAdmin(ctx, username, password, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s admin %q (%s)\n", admin.Role, admin.Username, admin.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringVar(&role, "role", models.RoleAdmin, "admin role (main or admin)")
	return cmd
}

func newAutoClearCmd(configPath *string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "autoclear",
		Short: "Run the leaderboard auto-clear once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, "")
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)
			ctx := cmd.Context()

			infra, err := OpenInfra(ctx, cfg, log)
			if err != nil {
				return err
			}
			app := NewApp(cfg, infra, log)
			defer app.Close(context.Background())

			if force {
				entry, err := app.AutoClear.RunNow(ctx, "cli")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %d players\n", entry.DeletedCount)
				return nil
			}
			entry, err := app.AutoClear.RunDue(ctx)
			if err != nil {
				return err
			}
			if entry == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "auto-clear not due")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d players\n", entry.DeletedCount)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "clear now even if the schedule is not due")
	return cmd
}
