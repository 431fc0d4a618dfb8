package main

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vango-dev/storefront/internal/config"
	"github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/catalog"
	"github.com/vango-dev/storefront/pkg/kvstore"
	"github.com/vango-dev/storefront/pkg/server"
)

// newLogger builds the process logger from the log settings.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openStore connects the configured key-value backend. The returned close
// function is never nil.
func openStore(ctx context.Context, cfg *config.Config) (kvstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Driver {
	case config.DriverFile:
		f, err := kvstore.OpenFile(cfg.StorePath())
		if err != nil {
			return nil, noop, errors.New(errors.CodeStorageUnavailable).WithField("store.path").Wrap(err)
		}
		return f, noop, nil

	case config.DriverS3:
		client := kvstore.NewS3Client(kvstore.S3ClientOptions{
			Region:   cfg.Store.Region,
			Endpoint: cfg.Store.Endpoint,
		})
		return kvstore.NewS3(client, cfg.Store.Bucket, cfg.Store.Prefix), noop, nil

	case config.DriverRedis:
		r, err := kvstore.DialRedis(ctx, cfg.Store.RedisURL, cfg.Store.Prefix, cfg.Store.TTL.Std())
		if err != nil {
			return nil, noop, errors.New(errors.CodeStorageUnavailable).WithField("store.redisUrl").Wrap(err)
		}
		return r, r.Close, nil

	default:
		return kvstore.NewMemory(), noop, nil
	}
}

// loadCatalog reads the catalog from the store key or the catalog file.
// Without either the catalog is empty.
func loadCatalog(ctx context.Context, cfg *config.Config, store kvstore.Store, logger *slog.Logger) (*catalog.Memory, error) {
	var (
		cat *catalog.Memory
		err error
	)
	switch {
	case cfg.Catalog.StoreKey != "":
		cat, err = catalog.LoadFromStore(ctx, store, cfg.Catalog.StoreKey)
	case cfg.Catalog.Path != "":
		cat, err = catalog.LoadFile(cfg.CatalogPath())
	default:
		logger.Warn("no catalog configured; serving an empty catalog")
		cat, err = catalog.NewMemory(nil)
	}
	if err != nil {
		return nil, catalogError(err)
	}
	return cat, nil
}

// catalogError classifies a catalog load failure.
func catalogError(err error) *errors.Error {
	switch {
	case stderrors.Is(err, catalog.ErrMalformed):
		return errors.New(errors.CodeInvalidCatalog).Wrap(err)
	case stderrors.Is(err, catalog.ErrDuplicateID), stderrors.Is(err, catalog.ErrInvalidID):
		return errors.New(errors.CodeDuplicateProduct).Wrap(err)
	default:
		return errors.New(errors.CodeCatalogLoadFailed).Wrap(err)
	}
}

// serverConfig maps the file configuration onto the HTTP server settings.
func serverConfig(cfg *config.Config, logger *slog.Logger) *server.ServerConfig {
	sc := server.DefaultServerConfig()
	sc.Address = cfg.Server.Addr
	sc.ReadTimeout = cfg.Server.ReadTimeout.Std()
	sc.WriteTimeout = cfg.Server.WriteTimeout.Std()
	sc.ShutdownTimeout = cfg.Server.ShutdownTimeout.Std()
	sc.AllowedOrigins = cfg.Server.AllowedOrigins
	sc.PageSize = cfg.Shop.PageSize
	sc.MaxPageSize = config.MaxPageSize
	sc.Logger = logger
	sc.MetricsNamespace = cfg.Metrics.Namespace
	sc.Tracing = cfg.Metrics.Tracing

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		sc.Registry = reg
	}
	return sc
}
