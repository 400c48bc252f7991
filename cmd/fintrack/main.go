package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	// The store connects lazily; an unreachable store is reported here and
	// by /readyz but does not stop the server.
	if err := res.Store.Ping(ctx); err != nil {
		logger.Warn("Store not reachable at startup", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
	}

	summaries := cache.NewLRUCache[[]core.Transaction](8, cfg.SummaryTTL)
	cacheManager := cache.NewManager(logger.Logger)
	cacheManager.Register(summaries)
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	txs := services.NewTransactionService(res.Store, res.Publisher, summaries, logger)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Transactions:       txs,
		Budgets:            services.NewBudgetService(res.Store, txs),
		Categories:         services.NewCategoryService(res.Store),
		Store:              res.Store,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrack server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend, log.FieldOperation, log.OpStartup)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err, log.FieldOperation, log.OpShutdown)
	}
	logger.Info("Server stopped gracefully")
}
