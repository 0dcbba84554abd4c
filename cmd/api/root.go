package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"skillswap/internal/app"
	"skillswap/internal/config"
	"skillswap/internal/observability"
)

const shutdownTimeout = 10 * time.Second

// NewRootCmd creates the root command for the skillswap CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "skillswap",
		Short:        "Skill exchange API server",
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrateFirst)
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", true, "apply pending migrations before serving")

	return cmd
}

func runServe(ctx context.Context, migrateFirst bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	rt, err := app.Build(ctx, cfg, app.Options{RunMigrations: migrateFirst})
	if err != nil {
		logger.Error("bootstrap_failed", map[string]any{"error": err.Error()})
		return err
	}
	defer rt.Close()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           rt.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server_start", map[string]any{"addr": server.Addr, "env": cfg.AppEnv})
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_failed", map[string]any{"error": err.Error()})
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_shutdown", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
