package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/internal/logger"
	"social-autopost-platform/internal/telemetry"
	"social-autopost-platform/models"
)

// HeartbeatResult summarizes one tick.
type HeartbeatResult struct {
	Generating int `json:"generating"`
	Publishing int `json:"publishing"`
	Skipped    int `json:"skipped"`
}

// Heartbeat claims due posts and dispatches their next job. A post is only
// dispatched by the tick whose conditional claim succeeded.
type Heartbeat struct {
	store     PostStore
	queue     JobQueue
	batchSize int
	metrics   *telemetry.Metrics
	now       func() time.Time
}

func NewHeartbeat(store PostStore, queue JobQueue, batchSize int, metrics *telemetry.Metrics) *Heartbeat {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Heartbeat{
		store:     store,
		queue:     queue,
		batchSize: batchSize,
		metrics:   metrics,
		now:       time.Now,
	}
}

type heartbeatStage struct {
	from     models.PostStatus
	to       models.PostStatus
	dispatch func(ctx context.Context, id primitive.ObjectID) error
	counter  *int
}

// Tick runs one pass over due scheduled and approved posts.
func (h *Heartbeat) Tick(ctx context.Context) (HeartbeatResult, error) {
	var res HeartbeatResult
	now := h.now()

	stages := []heartbeatStage{
		{
			from: models.StatusScheduled,
			to:   models.StatusGenerating,
			dispatch: func(ctx context.Context, id primitive.ObjectID) error {
				return h.queue.EnqueueCaptionGeneration(ctx, id, true)
			},
			counter: &res.Generating,
		},
		{
			from:     models.StatusApproved,
			to:       models.StatusPublishing,
			dispatch: h.queue.EnqueuePublish,
			counter:  &res.Publishing,
		},
	}

	for _, st := range stages {
		if err := h.runStage(ctx, now, st, &res); err != nil {
			return res, err
		}
	}

	if res.Generating+res.Publishing+res.Skipped > 0 {
		logger.Info("Heartbeat tick", "generating", res.Generating, "publishing", res.Publishing, "skipped", res.Skipped)
	}
	return res, nil
}

func (h *Heartbeat) runStage(ctx context.Context, now time.Time, st heartbeatStage, res *HeartbeatResult) error {
	due, err := h.store.FindDuePosts(ctx, st.from, now, h.batchSize)
	if err != nil {
		return fmt.Errorf("find due %s posts: %w", st.from, err)
	}

	for _, post := range due {
		applied, err := h.store.TransitionPostStatus(ctx, post.ID, st.from, st.to)
		if err != nil {
			logger.Error("Heartbeat claim failed", "post_id", post.ID.Hex(), "from", st.from, "error", err)
			res.Skipped++
			continue
		}
		if !applied {
			logger.Debug("Post already claimed", "post_id", post.ID.Hex(), "from", st.from)
			res.Skipped++
			continue
		}
		h.metrics.RecordTransition(string(st.from), string(st.to))

		if err := st.dispatch(ctx, post.ID); err != nil {
			logger.Error("Dispatch failed, releasing claim", "post_id", post.ID.Hex(), "status", st.to, "error", err)
			if _, rerr := h.store.TransitionPostStatus(ctx, post.ID, st.to, st.from); rerr != nil {
				logger.Error("Failed to release claim", "post_id", post.ID.Hex(), "error", rerr)
			}
			res.Skipped++
			continue
		}
		*st.counter++
	}
	return nil
}
