// Package cli exposes the gochangi commands.
package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"gochangi/internal/config"
)

const (
	defaultCollectionTTL   = 10 * time.Minute
	defaultLeaderboardTTL  = 30 * time.Second
	defaultSessionTTL      = 12 * time.Hour
	defaultTokenTTL        = 24 * time.Hour
	defaultShutdownTimeout = 15 * time.Second
	defaultTick            = time.Minute
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "gochangi",
		Short:        "Location-based trivia hunt backend",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&port, "port", "", "port to listen on (overrides config)")
	cmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to YAML config")
	cmd.AddCommand(newServeCmd(&configPath, &port))
	cmd.AddCommand(newCreateAdminCmd(&configPath))
	cmd.AddCommand(newAutoClearCmd(&configPath))
	return cmd
}

func loadConfig(path, portFlag string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}
	return cfg, nil
}
