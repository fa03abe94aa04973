package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gochangi/internal/config"
	"gochangi/internal/server"
	"gochangi/pkg/logger"
)

func newServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, leaderboard websocket and auto-clear scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, *port)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	infra, err := OpenInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	app := NewApp(cfg, infra, log)
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			log.Warn("close store", "err", err)
		}
	}()

	created, err := app.Auth.Bootstrap(ctx, cfg.Auth.Bootstrap.Username, cfg.Auth.Bootstrap.Password)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		log.Info("bootstrap admin created", "username", cfg.Auth.Bootstrap.Username)
	}

	srv := server.New(cfg, app.Handler)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", srv.Addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			config.TTLDuration(cfg.Server.ShutdownTimeout, defaultShutdownTimeout))
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		app.Hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return app.AutoClear.Run(gctx, config.TTLDuration(cfg.AutoClear.TickInterval, defaultTick))
	})

	return g.Wait()
}
