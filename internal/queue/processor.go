package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/internal/logger"
	"social-autopost-platform/models"
	"social-autopost-platform/services"
)

type campaignExpander interface {
	Expand(ctx context.Context, campaignID primitive.ObjectID) (int, error)
}

type captionGenerator interface {
	GenerateForPost(ctx context.Context, postID primitive.ObjectID, claimed bool) error
}

type postPublisher interface {
	PublishPost(ctx context.Context, postID primitive.ObjectID) error
}

type heartbeatRunner interface {
	Tick(ctx context.Context) (services.HeartbeatResult, error)
}

// Task handlers
type TaskProcessor struct {
	expander  campaignExpander
	captions  captionGenerator
	publisher postPublisher
	heartbeat heartbeatRunner
}

func NewTaskProcessor(expander campaignExpander, captions captionGenerator, publisher postPublisher, heartbeat heartbeatRunner) *TaskProcessor {
	return &TaskProcessor{
		expander:  expander,
		captions:  captions,
		publisher: publisher,
		heartbeat: heartbeat,
	}
}

// Register wires every handler into mux.
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskCampaignExpand, p.HandleCampaignExpand)
	mux.HandleFunc(TaskCaptionGenerate, p.HandleCaptionGenerate)
	mux.HandleFunc(TaskPostPublish, p.HandlePostPublish)
	mux.HandleFunc(TaskScheduleHeartbeat, p.HandleHeartbeat)
}

func (p *TaskProcessor) HandleCampaignExpand(ctx context.Context, t *asynq.Task) error {
	var payload CampaignExpandPayload
	id, err := decodeID(t, &payload, func() string { return payload.CampaignID })
	if err != nil {
		return err
	}

	n, err := p.expander.Expand(ctx, id)
	switch {
	case errors.Is(err, services.ErrCampaignAlreadyExpanded),
		errors.Is(err, services.ErrCampaignInactive),
		errors.Is(err, models.ErrNotFound):
		logger.Info("Campaign expansion skipped", "campaign_id", id.Hex(), "reason", err.Error())
		return nil
	case errors.Is(err, services.ErrValidation):
		return terminal(fmt.Errorf("expand campaign %s: %w", id.Hex(), err))
	case err != nil:
		return fmt.Errorf("expand campaign %s after %d posts: %w", id.Hex(), n, err)
	}
	return nil
}

func (p *TaskProcessor) HandleCaptionGenerate(ctx context.Context, t *asynq.Task) error {
	var payload CaptionGeneratePayload
	id, err := decodeID(t, &payload, func() string { return payload.PostID })
	if err != nil {
		return err
	}

	if err := p.captions.GenerateForPost(ctx, id, payload.Claimed); err != nil {
		return terminal(err)
	}
	return nil
}

func (p *TaskProcessor) HandlePostPublish(ctx context.Context, t *asynq.Task) error {
	var payload PostPublishPayload
	id, err := decodeID(t, &payload, func() string { return payload.PostID })
	if err != nil {
		return err
	}

	if err := p.publisher.PublishPost(ctx, id); err != nil {
		return terminal(err)
	}
	return nil
}

func (p *TaskProcessor) HandleHeartbeat(ctx context.Context, _ *asynq.Task) error {
	if _, err := p.heartbeat.Tick(ctx); err != nil {
		// the next tick scans again
		return terminal(err)
	}
	return nil
}

func decodeID(t *asynq.Task, payload interface{}, field func() string) (primitive.ObjectID, error) {
	if err := json.Unmarshal(t.Payload(), payload); err != nil {
		return primitive.NilObjectID, fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	id, err := primitive.ObjectIDFromHex(field())
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("bad id %q in %s payload: %w", field(), t.Type(), asynq.SkipRetry)
	}
	return id, nil
}

// terminal marks a job failure that must not be retried; the post already
// carries the outcome in its status.
func terminal(err error) error {
	return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
}
