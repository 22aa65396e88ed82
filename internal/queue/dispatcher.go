package queue

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/internal/logger"
	"social-autopost-platform/internal/telemetry"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher hands service jobs to asynq.
type Dispatcher struct {
	client      enqueuer
	settleDelay time.Duration
	metrics     *telemetry.Metrics
}

func NewDispatcher(client *asynq.Client, settleDelay time.Duration, metrics *telemetry.Metrics) *Dispatcher {
	return &Dispatcher{client: client, settleDelay: settleDelay, metrics: metrics}
}

func (d *Dispatcher) EnqueueCampaignExpansion(ctx context.Context, campaignID primitive.ObjectID) error {
	task, err := NewCampaignExpandTask(campaignID)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, task, "campaign_id", campaignID.Hex())
}

func (d *Dispatcher) EnqueueCaptionGeneration(ctx context.Context, postID primitive.ObjectID, claimed bool) error {
	task, err := NewCaptionGenerateTask(postID, claimed)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, task, "post_id", postID.Hex())
}

func (d *Dispatcher) EnqueuePublish(ctx context.Context, postID primitive.ObjectID) error {
	task, err := NewPostPublishTask(postID, d.settleDelay)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, task, "post_id", postID.Hex())
}

// EnqueueHeartbeat schedules one heartbeat tick. A tick that is already
// pending is not an error.
func (d *Dispatcher) EnqueueHeartbeat(ctx context.Context, interval time.Duration) error {
	_, err := d.client.EnqueueContext(ctx, NewHeartbeatTask(interval))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Debug("Heartbeat already pending")
		return nil
	}
	d.metrics.RecordJobDispatched(TaskScheduleHeartbeat, err == nil)
	return err
}

func (d *Dispatcher) enqueue(ctx context.Context, task *asynq.Task, idKey, id string) error {
	info, err := d.client.EnqueueContext(ctx, task)
	d.metrics.RecordJobDispatched(task.Type(), err == nil)
	if err != nil {
		logger.Error("Failed to enqueue task", "type", task.Type(), idKey, id, "error", err)
		return err
	}
	logger.Debug("Task enqueued", "type", task.Type(), "task_id", info.ID, "queue", info.Queue, idKey, id)
	return nil
}
