package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/kindgen"
	"github.com/lychee-technology/kindgen/factory"
	"github.com/lychee-technology/kindgen/internal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)
	rootCmd := &cobra.Command{
		Use:           "kindgen-server",
		Short:         "Serve the record lifecycle of every accepted kind over HTTP",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := kindgen.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			logger, err := internal.NewLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer logger.Sync()
			zap.ReplaceGlobals(logger)

			return serve(cmd.Context(), cfg)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (KINDGEN_* environment variables override it)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default server.port)")
	return rootCmd
}

func serve(ctx context.Context, cfg *kindgen.Config) error {
	var pool *pgxpool.Pool
	if cfg.Storage.Backend != kindgen.StorageBackendMemory {
		var err error
		pool, err = factory.NewPostgresPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	repo, err := factory.NewRecordRepository(ctx, cfg, pool)
	if err != nil {
		return err
	}
	svc, err := factory.NewRecordService(cfg, repo)
	if err != nil {
		return err
	}
	registry, err := factory.NewKindRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	metrics := newServerMetrics()
	internal.RegisterTelemetryEmitter(metrics.emit)
	defer internal.RegisterTelemetryEmitter(nil)

	var health healthFunc
	if pool != nil {
		health = func(ctx context.Context) error {
			return internal.PostgresHealthCheck(ctx, pool, 2*time.Second)
		}
	}

	router, err := newRouter(svc, registry, health, metrics.handler())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("starting server", "addr", srv.Addr, "backend", cfg.Storage.Backend, "kinds", len(registry.List()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.S().Infow("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
