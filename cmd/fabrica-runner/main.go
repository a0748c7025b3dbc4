// Fabrica Runner — executes submitted pipeline runs.
//
// The runner:
//   - consumes run.submitted events from RabbitMQ
//   - falls back to polling PENDING runs in the database
//   - executes steps through the generation gateway
//   - persists results and publishes run.completed events
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rovesti/fabrica/internal/executor"
	"github.com/rovesti/fabrica/internal/models"
	"github.com/rovesti/fabrica/internal/mq"
	"github.com/rovesti/fabrica/internal/repo"
	"github.com/rovesti/fabrica/internal/runner"
	"github.com/rovesti/fabrica/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	logger := telemetry.SetupLogger()
	logger.Info("starting fabrica-runner")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	runRepo := repo.NewRunRepo(pool)
	pipelineRepo := repo.NewPipelineRepo(pool)
	resultRepo := repo.NewResultRepo(pool)

	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		publisher = mq.NewPublisher(mqConn, logger)
	}

	maxFanOut := 0
	if v := os.Getenv("MAX_FAN_OUT"); v != "" {
		maxFanOut, _ = strconv.Atoi(v)
	}

	coordinator := runner.New(runner.Config{
		Executors: executor.DefaultRegistry(executor.GatewayConfig{
			BaseURL: os.Getenv("GATEWAY_URL"),
			APIKey:  os.Getenv("GATEWAY_API_KEY"),
		}),
		Models:    models.DefaultRegistry(),
		MaxFanOut: maxFanOut,
		Logger:    logger,
	})

	service := runner.NewService(runner.ServiceConfig{
		Runs:        runRepo,
		Pipelines:   pipelineRepo,
		Results:     resultRepo,
		Publisher:   publisher,
		Conn:        mqConn,
		Coordinator: coordinator,
		Logger:      logger,
	})

	if err := service.Start(ctx); err != nil {
		logger.Error("failed to start runner service", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("RUNNER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	service.Stop()
	logger.Info("fabrica-runner stopped")
}
