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

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"qfusion/internal/common/camunda"
	"qfusion/internal/common/config"
	"qfusion/internal/common/database"
	"qfusion/internal/common/logger"
	"qfusion/internal/common/observability"
	"qfusion/internal/common/runlog"
	"qfusion/internal/httpapi"
	llmsummary "qfusion/internal/workers/ai-conversation/llm-summary"
	buildresponse "qfusion/internal/workers/infrastructure/build-response"
	fetchinsights "qfusion/internal/workers/insights/fetch-insights"
	summarizeentity "qfusion/internal/workers/insights/summarize-entity"
	translateparameters "qfusion/internal/workers/insights/translate-parameters"
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting qfusion",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)
	if cfg.APIs.Insights.APIKey == "" {
		zapLog.Warn("insights API key is not set; summary requests will fail")
	}
	if cfg.APIs.Completion.APIKey == "" {
		zapLog.Warn("completion API key is not set; summary requests will fail")
	}

	obs := observability.New(cfg.App.Name, prometheus.DefaultRegisterer)
	defer obs.Shutdown()

	checks := map[string]httpapi.HealthCheck{}

	// --- Run log: Redis when enabled, in-process otherwise ---
	var recorder runlog.Recorder = runlog.NewMemoryRecorder(cfg.Redis.RunLogSize)
	if cfg.Redis.Enabled {
		rdb := database.NewRedis(cfg.Redis)
		defer rdb.Close()

		err = retryWithBackoff(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return rdb.Ping(ctx)
		}, 5, time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		recorder = runlog.NewRedisRecorder(rdb, cfg.Redis.RunLogKey, cfg.Redis.RunLogSize)
		checks["redis"] = rdb.Ping
		zapLog.Info("Redis run log enabled", zap.String("key", cfg.Redis.RunLogKey))
	}

	translator := translateparameters.NewHandler(translateparameters.LoadConfig(), log)
	insights := fetchinsights.NewHandler(fetchinsights.LoadConfig(cfg.APIs.Insights), log)
	completer := llmsummary.NewHandler(llmsummary.LoadConfig(cfg.APIs.Completion), log)
	shaper := buildresponse.NewHandler(buildresponse.LoadConfig(), log)

	summary := summarizeentity.NewHandler(
		summarizeentity.LoadConfig(config.GetWorkerConfig(cfg, summarizeentity.TaskType)),
		summarizeentity.Dependencies{
			Translator:    translator,
			Insights:      insights,
			Completer:     completer,
			Shaper:        shaper,
			Recorder:      recorder,
			Observability: obs,
		},
		log,
	)

	// --- Zeebe worker ---
	var workers []*camunda.CamundaWorker
	if cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		checks["zeebe"] = zeebe.HealthCheck

		if wcfg := config.GetWorkerConfig(cfg, summarizeentity.TaskType); wcfg.Enabled {
			w := camunda.NewWorker(zeebe.GetClient(), summarizeentity.TaskType, wcfg.MaxJobsActive,
				config.GetDuration(wcfg.Timeout), summary, log)
			w.Start()
			workers = append(workers, w)
		} else {
			zapLog.Info("worker disabled", zap.String("taskType", summarizeentity.TaskType))
		}
	}

	// --- HTTP API ---
	r := mux.NewRouter()
	httpapi.New(httpapi.Options{
		Summary:    summary,
		Translator: translator,
		Insights:   insights,
		Recorder:   recorder,
		Checks:     checks,
		Logger:     log,
	}).RegisterRoutes(r)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	zapLog.Info("qfusion stopped gracefully")
}
