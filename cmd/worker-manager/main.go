// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"marketplace-matching/internal/common/camunda"
	"marketplace-matching/internal/common/config"
	"marketplace-matching/internal/common/database"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/common/observability"
	"marketplace-matching/internal/preferences"
	"marketplace-matching/internal/workers/matching/shared"
	"marketplace-matching/pkg/registry"

	rc "marketplace-matching/internal/workers/matching/rank-candidates"
	sc "marketplace-matching/internal/workers/matching/score-compatibility"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.Metrics.ServiceName)
	if err != nil {
		zapLog.Warn("opentelemetry meter provider unavailable", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	if err := pg.Migrate(ctx); err != nil {
		zapLog.Fatal("postgres migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	checks := map[string]func(context.Context) error{
		"zeebe":    zeebe.HealthCheck,
		"postgres": pg.Ping,
	}

	// --- Preferences store, optionally behind Redis ---
	var store preferences.Store = preferences.NewPostgresStore(pg.DB, log)
	if cfg.Preferences.CacheEnabled {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")

		ttl := time.Duration(cfg.Preferences.CacheTTL) * time.Second
		store = preferences.NewCachedStore(store, redis.Client, ttl, log)
		checks["redis"] = redis.Ping
	}

	// --- Activity registry & engines ---
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.String("path", cfg.Registry.Path), zap.Error(err))
	}

	engines, err := shared.NewEngineSetFromConfig(cfg, log)
	if err != nil {
		zapLog.Fatal("matching engine configuration invalid", zap.Error(err))
	}
	zapLog.Info("Matching engines ready", zap.Strings("categories", cfg.CategoryNames()))

	resolver := shared.NewPreferenceResolver(store, log)

	// --- Register workers ---
	workers := camunda.NewWorkers(zeebe.GetClient(), log)

	scoreValidator, err := reg.InputValidator(sc.TaskType)
	if err != nil {
		zapLog.Fatal("invalid input schema", zap.String("taskType", sc.TaskType), zap.Error(err))
	}
	workers.Start(sc.TaskType, config.GetWorkerConfig(cfg, sc.TaskType),
		sc.NewHandler(sc.LoadConfig(cfg), engines, resolver, scoreValidator, obs, log))

	rankValidator, err := reg.InputValidator(rc.TaskType)
	if err != nil {
		zapLog.Fatal("invalid input schema", zap.String("taskType", rc.TaskType), zap.Error(err))
	}
	workers.Start(rc.TaskType, config.GetWorkerConfig(cfg, rc.TaskType),
		rc.NewHandler(rc.LoadConfig(cfg), engines, resolver, rankValidator, obs, log))

	started := workers.TaskTypes()
	sort.Strings(started)
	zapLog.Info("Workers registered", zap.Strings("taskTypes", started))

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           newMux(checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func newMux(checks map[string]func(context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", readinessHandler(checks))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// readinessHandler reports 503 while any dependency check fails.
func readinessHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		status := "ready"
		if code != http.StatusOK {
			status = "not_ready"
		}
		writeStatus(w, code, map[string]interface{}{
			"status": status,
			"checks": results,
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

func writeStatus(w http.ResponseWriter, code int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
