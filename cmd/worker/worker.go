package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"social-autopost-platform/internal/app"
	"social-autopost-platform/internal/config"
	"social-autopost-platform/internal/logger"
	"social-autopost-platform/internal/queue"
	"social-autopost-platform/internal/telemetry"
)

const serviceName = "social-autopost-worker"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg, "worker")

	if cfg.StoreDriver == "memory" {
		log.Fatal("The worker needs a shared store; STORE_DRIVER=memory runs the worker inside the API process")
	}

	shutdownTracer, err := telemetry.InitTracer(cfg, serviceName)
	if err != nil {
		log.Fatal("Failed to initialize tracer:", err)
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	store, err := app.OpenStore(cfg)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	defer store.Close()

	worker, err := app.NewWorker(context.Background(), cfg, store, metrics)
	if err != nil {
		log.Fatal("Failed to initialize worker:", err)
	}

	if err := worker.Start(); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
	logger.Info("Worker started",
		"concurrency", cfg.WorkerConcurrency,
		"queues", queue.Queues,
		"heartbeat_interval", cfg.HeartbeatInterval.String(),
		"redis", cfg.RedisURL,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	worker.Shutdown()
	logger.Info("Worker exited")
}
