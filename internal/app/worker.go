package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"social-autopost-platform/internal/ai"
	"social-autopost-platform/internal/config"
	"social-autopost-platform/internal/instagram"
	"social-autopost-platform/internal/logger"
	"social-autopost-platform/internal/queue"
	"social-autopost-platform/internal/scheduler"
	"social-autopost-platform/internal/telemetry"
	"social-autopost-platform/services"
)

const heartbeatTag = "schedule-heartbeat"

// Worker runs the job handlers and the heartbeat trigger.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	client    *asynq.Client
	scheduler *scheduler.Scheduler
	gemini    *ai.GeminiClient
}

func NewWorker(ctx context.Context, cfg *config.Config, store services.Store, metrics *telemetry.Metrics) (*Worker, error) {
	gemini, err := ai.NewGeminiClient(ctx, cfg, metrics)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	redisOpt := config.AsynqRedisOpt(cfg)
	client := asynq.NewClient(redisOpt)
	dispatcher := queue.NewDispatcher(client, cfg.PublishSettleDelay, metrics)
	loc := cfg.Location()

	media := services.NewMediaService(cfg.FileStorageDir, cfg.MaxUploadSize)
	processor := queue.NewTaskProcessor(
		services.NewCampaignExpander(store, dispatcher, media, loc),
		services.NewCaptionService(store, gemini, metrics),
		services.NewPublishService(store, instagram.NewGraphClient(cfg, metrics),
			cfg.PublicBaseURL, cfg.MediaURLPrefix, cfg.PublishSettleDelay, metrics),
		services.NewHeartbeat(store, dispatcher, cfg.HeartbeatBatchSize, metrics),
	)

	mux := asynq.NewServeMux()
	processor.Register(mux)

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      queue.Queues,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			logger.Error("Task failed", "type", task.Type(), "retried", retried, "error", err)
		}),
		ShutdownTimeout: 30 * time.Second,
	})

	sched := scheduler.NewScheduler(loc)
	err = sched.ScheduleInterval(heartbeatTag, cfg.HeartbeatInterval, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return dispatcher.EnqueueHeartbeat(ctx, cfg.HeartbeatInterval)
	})
	if err != nil {
		client.Close()
		gemini.Close()
		return nil, fmt.Errorf("schedule heartbeat: %w", err)
	}

	return &Worker{server: server, mux: mux, client: client, scheduler: sched, gemini: gemini}, nil
}

// Start begins processing jobs and ticking the heartbeat without blocking.
func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.scheduler.Start()
	logger.Info("Worker started", "scheduled_jobs", w.scheduler.Tags())
	return nil
}

// Shutdown stops the heartbeat first so no new work is enqueued, then waits
// for in-flight jobs.
func (w *Worker) Shutdown() {
	w.scheduler.Stop()
	w.server.Shutdown()
	if err := w.client.Close(); err != nil {
		logger.Error("asynq client close failed", "error", err)
	}
	if err := w.gemini.Close(); err != nil {
		logger.Error("Gemini client close failed", "error", err)
	}
}
