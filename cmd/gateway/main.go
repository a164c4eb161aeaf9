package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cogneo-edge-router/internal/cache"
	"cogneo-edge-router/internal/config"
	"cogneo-edge-router/internal/handlers"
	"cogneo-edge-router/internal/httpserver"
	"cogneo-edge-router/internal/metrics"
	"cogneo-edge-router/internal/proxy"
	"cogneo-edge-router/internal/tenant"
	"cogneo-edge-router/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("edge router exited with error: %v", err)
	}
}

func run() error {
	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	// ----- Config -----
	cfg := config.Load()

	logger.Info("loaded config",
		zap.String("router", cfg.RouterName),
		zap.String("version", cfg.RouterVersion),
		zap.String("port", cfg.Port),
		zap.Bool("tenancy", cfg.TenancyEnable),
		zap.String("tenants_path", cfg.TenantsPath),
		zap.Bool("cache", cfg.CacheEnable),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("request_timeout", cfg.RequestTimeout),
		zap.Duration("upstream_timeout", cfg.UpstreamTimeout),
	)

	// ----- Tenant registry -----
	// A missing "default" entry is fatal here when tenancy is disabled.
	tenants, err := tenant.NewRegistry(cfg.TenantsPath, cfg.TenancyEnable, logger)
	if err != nil {
		logger.Error("tenant registry init failed", zap.Error(err))
		return err
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		if err := tenants.Watch(watchCtx); err != nil && err != context.Canceled {
			logger.Warn("tenants file watcher stopped", zap.Error(err))
		}
	}()

	// ----- Response cache -----
	var store cache.Store
	if cfg.CacheEnable {
		redisClient, err := cache.NewRedisClient(cfg.CacheURL, cfg.CacheTLSVerify)
		if err != nil {
			logger.Error("cache client init failed", zap.Error(err))
			return err
		}
		redisStore := cache.NewRedisStore(redisClient)

		// The cache is best-effort: an unreachable store at startup is
		// logged, not fatal, and every lookup degrades to a miss.
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisStore.Ping(pingCtx); err != nil {
			logger.Warn("cache store unreachable, running degraded", zap.Error(err))
		} else {
			logger.Info("cache store connected", zap.String("url", cfg.CacheURL))
		}
		cancel()

		store = cache.NewLoggingStore(redisStore)
	}
	cacheLayer := cache.NewLayer(store, cfg.CacheTTL)

	// ----- Upstream forwarder -----
	forwarder := proxy.NewForwarder(proxy.Config{
		UpstreamTimeout: cfg.UpstreamTimeout,
	}, logger)
	defer forwarder.Close()

	// ----- Gateway pipeline -----
	gw := handlers.NewGateway(tenants, cacheLayer, forwarder, cfg.TenancyEnable)

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, gw, httpserver.Options{
		RequestTimeout:   cfg.RequestTimeout,
		MaxBodyBytes:     cfg.MaxBodyBytes,
		CORSEnable:       cfg.CORSEnable,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		MetricsEnable:    cfg.MetricsEnable,
	})

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting edge router",
		zap.String("addr", srv.Addr),
		zap.Bool("tenancy", cfg.TenancyEnable),
		zap.Bool("cache", cacheLayer.Enabled()),
	)

	// Start server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received")
	stopWatch()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
