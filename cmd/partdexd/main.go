// Command partdexd serves the partdex catalog search API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/partdex/partdex/pkg/config"
	"github.com/partdex/partdex/pkg/httputil"
	"github.com/partdex/partdex/pkg/observability"
	"github.com/partdex/partdex/pkg/search"
	"github.com/partdex/partdex/pkg/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
		PrimaryURL:  cfg.Database.URL,
		ReplicaURLs: postgres.ParseReplicaURLs(cfg.Database.ReplicaURLs),
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to connect to record store")
		os.Exit(1)
	}
	defer cm.Close()

	service := search.NewSearchService(cm, search.Config{
		TitleSimilarity:   cfg.Search.TitleSimilarity,
		SKUSimilarity:     cfg.Search.SKUSimilarity,
		FacetCacheTTL:     cfg.Cache.TTL,
		FacetCacheEntries: cfg.Cache.MaxEntries,
	}).WithMetrics(metrics)

	if cfg.Cache.Backend == "redis" {
		redisCache, err := search.NewRedisFacetCache(
			cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL)
		if err != nil {
			logger.WithError(err).Error("failed to connect to redis cache")
			os.Exit(1)
		}
		defer redisCache.Close()
		service.WithCache(redisCache)
		logger.Info("using redis facet cache backend")
	}

	router := mux.NewRouter()
	search.NewHandlers(service).RegisterRoutes(router)

	middleware := httputil.Chain(
		httputil.RecoveryMiddleware(logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.MetricsMiddleware(metrics),
	)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      middleware(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := cm.HealthCheck(r.Context()); err != nil {
			httputil.WriteServiceUnavailable(w, err.Error())
			return
		}
		httputil.WriteSuccess(w, map[string]string{"status": "ok"})
	})
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	// Export connection pool gauges.
	poolTicker := time.NewTicker(15 * time.Second)
	defer poolTicker.Stop()
	go func() {
		for range poolTicker.C {
			stats := cm.Stats()
			metrics.DBConnectionsActive.Set(float64(stats.InUse))
			metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		}
	}()

	go func() {
		logger.Infof("health/metrics server listening on :%s", cfg.Server.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	go func() {
		logger.Infof("partdex search API listening on :%s", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("api server failed")
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("api server shutdown failed")
	}
	if err := healthServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("health server shutdown failed")
	}
}
