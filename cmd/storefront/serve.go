package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/vango-dev/storefront/internal/config"
	"github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/server"
)

func serveCmd(configDir *string) *cobra.Command {
	var (
		addr     string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the storefront server",
		Long: `Start the HTTP API and websocket navigation server.

Configuration is read from storefront.json or storefront.yaml in the
--config directory, then from .env and STOREFRONT_* variables.

Examples:
  storefront serve
  storefront serve --addr=:9090
  storefront serve -c ./deploy --log-level=debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, *configDir, addr, logLevel)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, dir, addr, logLevel string) error {
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger := newLogger(cfg, os.Stderr)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}()

	cat, err := loadCatalog(ctx, cfg, store, logger)
	if err != nil {
		return err
	}

	if cfg.Metrics.Tracing {
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	srv := server.New(serverConfig(cfg, logger), cat, store)

	success(cmd, "Storefront listening on %s", cfg.Server.Addr)
	info(cmd, "Catalog: %d products", cat.Len())
	info(cmd, "Store:   %s", cfg.Store.Driver)
	if cfg.Metrics.Enabled {
		info(cmd, "Metrics: http://localhost%s/metrics", cfg.Server.Addr)
	}

	if err := srv.Run(ctx); err != nil {
		return errors.New(errors.CodeServerStartupFailed).Wrap(err)
	}
	return nil
}
