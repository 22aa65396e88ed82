package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"social-autopost-platform/internal/ai"
	"social-autopost-platform/internal/app"
	"social-autopost-platform/internal/auth"
	"social-autopost-platform/internal/config"
	"social-autopost-platform/internal/logger"
	"social-autopost-platform/internal/queue"
	"social-autopost-platform/internal/telemetry"
	"social-autopost-platform/routes"
	"social-autopost-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg, "api")

	shutdownTracer, err := telemetry.InitTracer(cfg, routes.ServiceName)
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

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	var revocations = rdb
	if !cfg.TokenRevocation {
		revocations = nil
	}
	tokens, err := auth.NewTokenManager(cfg.AccessSecret, revocations)
	if err != nil {
		log.Fatal("Failed to initialize tokens:", err)
	}

	asynqClient := asynq.NewClient(config.AsynqRedisOpt(cfg))
	defer asynqClient.Close()
	dispatcher := queue.NewDispatcher(asynqClient, cfg.PublishSettleDelay, metrics)

	var model services.CaptionModel = ai.Unconfigured{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiClient(context.Background(), cfg, metrics)
		if err != nil {
			log.Fatal("Failed to initialize Gemini client:", err)
		}
		defer gemini.Close()
		model = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set; caption regeneration is unavailable")
	}

	// with the memory driver the job handlers must share this process's store
	if cfg.StoreDriver == "memory" {
		worker, err := app.NewWorker(context.Background(), cfg, store, metrics)
		if err != nil {
			log.Fatal("Failed to start embedded worker:", err)
		}
		if err := worker.Start(); err != nil {
			log.Fatal("Failed to start embedded worker:", err)
		}
		defer worker.Shutdown()
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	loc := cfg.Location()
	captions := services.NewCaptionService(store, model, metrics)
	router := routes.NewRouter(routes.Deps{
		Config:    cfg,
		Tokens:    tokens,
		Redis:     rdb,
		Metrics:   metrics,
		Posts:     services.NewPostService(store, dispatcher, captions, metrics),
		Campaigns: services.NewCampaignService(store, dispatcher, loc),
		Exports:   services.NewExportService(store, loc),
		Media:     services.NewMediaService(cfg.FileStorageDir, cfg.MaxUploadSize),
		Quota:     ai.NewDailyQuota(rdb, cfg.RegenerateDailyLimit, loc),
		Checks: map[string]routes.HealthCheck{
			"store": store.Ping,
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
