// Fabrica API — REST API for managing pipelines, runs and schedules.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rovesti/fabrica/internal/api"
	"github.com/rovesti/fabrica/internal/executor"
	"github.com/rovesti/fabrica/internal/models"
	"github.com/rovesti/fabrica/internal/mq"
	"github.com/rovesti/fabrica/internal/repo"
	"github.com/rovesti/fabrica/internal/runner"
	"github.com/rovesti/fabrica/internal/telemetry"
)

var startTime = time.Now()

func main() {
	_ = godotenv.Load()

	logger := telemetry.SetupLogger()
	logger.Info("starting fabrica-api")

	pool, err := repo.NewPool(context.Background())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	pipelineRepo := repo.NewPipelineRepo(pool)
	runRepo := repo.NewRunRepo(pool)
	resultRepo := repo.NewResultRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)

	// RabbitMQ is optional: without it the runner's polling fallback
	// picks up submitted runs, but running runs cannot be cancelled.
	var publisher *mq.Publisher
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, run events disabled", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(context.Background(), mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		publisher = mq.NewPublisher(mqConn, logger)
	}

	registry := models.DefaultRegistry()

	// The API-side coordinator only validates and prices configs.
	coordinator := runner.New(runner.Config{
		Executors: executor.DefaultRegistry(executor.GatewayConfig{}),
		Models:    registry,
		Logger:    logger,
	})

	handler := api.NewHandler(api.Config{
		Pipelines:   pipelineRepo,
		Runs:        runRepo,
		Results:     resultRepo,
		Schedules:   scheduleRepo,
		Publisher:   publisher,
		Models:      registry,
		Coordinator: coordinator,
		Logger:      logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
