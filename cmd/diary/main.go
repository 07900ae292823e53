package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"diary/internal/backend"
	"diary/internal/cache"
	"diary/internal/cli"
	apphttp "diary/internal/http"
	dlog "diary/internal/log"
	"diary/internal/services"
	"diary/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", dlog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(dlog.ComponentBackend).Logger).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", dlog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", dlog.FieldError, err)
		}
	}()

	// Read cache over the store, swept in the background
	cached := store.NewCached(res.Backend, cfg.CacheSize, cfg.CacheTTL, logger.WithComponent(dlog.ComponentCache).Logger)
	cacheManager := cache.NewManager(logger.WithComponent(dlog.ComponentCache).Logger)
	cached.Register(cacheManager)
	cacheManager.StartCleanup(cfg.CacheTTL)
	defer cacheManager.Stop()

	publisher := res.Publisher
	entries := services.NewEntryService(cached, cached, publisher, nil)
	taxonomy := services.NewTaxonomyService(cached, services.TaxonomyOptions{
		CascadeDeactivate: cfg.TaxonomyCascadeDeactivate,
	})
	reports := services.NewReportService(cached, cached)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               net.JoinHostPort("", cfg.Port),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}, apphttp.Deps{
		Entries:  entries,
		Taxonomy: taxonomy,
		Reports:  reports,
		Cache:    cached,
		Store:    res.Backend,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", dlog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting diary server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp_enabled", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		cli.RunCleanup(logger, 30*time.Second, func(shutdownCtx context.Context) {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server shutdown error", dlog.FieldError, err)
			}
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", dlog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
