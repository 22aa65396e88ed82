package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TaskCampaignExpand    = "campaign:expand"
	TaskCaptionGenerate   = "post:generate"
	TaskPostPublish       = "post:publish"
	TaskScheduleHeartbeat = "schedule:heartbeat"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues is the weighted queue set the worker serves.
var Queues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

type CampaignExpandPayload struct {
	CampaignID string `json:"campaign_id"`
}

type CaptionGeneratePayload struct {
	PostID string `json:"post_id"`
	// Claimed is set when the dispatcher already moved the post to generating.
	Claimed bool `json:"claimed"`
}

type PostPublishPayload struct {
	PostID string `json:"post_id"`
}

// Task creators

// NewCampaignExpandTask retries only help with failures before the
// expansion marker is claimed (loading the campaign, the claim itself).
// Once claimed, a rerun returns ErrCampaignAlreadyExpanded and a batch cut
// short keeps only the posts it created.
func NewCampaignExpandTask(campaignID primitive.ObjectID) (*asynq.Task, error) {
	payload, err := json.Marshal(CampaignExpandPayload{CampaignID: campaignID.Hex()})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskCampaignExpand,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue(QueueLow),
	), nil
}

func NewCaptionGenerateTask(postID primitive.ObjectID, claimed bool) (*asynq.Task, error) {
	payload, err := json.Marshal(CaptionGeneratePayload{PostID: postID.Hex(), Claimed: claimed})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskCaptionGenerate,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(2*time.Minute),
		asynq.Queue(QueueDefault),
	), nil
}

func NewPostPublishTask(postID primitive.ObjectID, settleDelay time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(PostPublishPayload{PostID: postID.Hex()})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskPostPublish,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(2*time.Minute+settleDelay),
		asynq.Queue(QueueCritical),
	), nil
}

// NewHeartbeatTask is unique for ttl so overlapping triggers collapse into
// one pending tick.
func NewHeartbeatTask(ttl time.Duration) *asynq.Task {
	return asynq.NewTask(
		TaskScheduleHeartbeat,
		nil,
		asynq.MaxRetry(0),
		asynq.Timeout(time.Minute),
		asynq.Queue(QueueDefault),
		asynq.Unique(ttl),
	)
}
