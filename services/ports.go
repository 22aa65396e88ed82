package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobQueue hands work to the background workers. Enqueue is fire-and-forget:
// a nil error only means the job was accepted.
type JobQueue interface {
	EnqueueCampaignExpansion(ctx context.Context, campaignID primitive.ObjectID) error
	// EnqueueCaptionGeneration dispatches caption generation. claimed is true
	// when the caller already moved the post to generating.
	EnqueueCaptionGeneration(ctx context.Context, postID primitive.ObjectID, claimed bool) error
	EnqueuePublish(ctx context.Context, postID primitive.ObjectID) error
}

// CaptionModel turns a prompt into caption text.
type CaptionModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PublishCredentials are a client's Instagram credentials.
type PublishCredentials struct {
	AccessToken string
	BusinessID  string
}

// MediaPublisher is the two-phase social publishing API.
type MediaPublisher interface {
	CreateContainer(ctx context.Context, creds PublishCredentials, imageURL, caption string) (string, error)
	PublishContainer(ctx context.Context, creds PublishCredentials, containerID string) (string, error)
}

// ImageStore copies stored images.
type ImageStore interface {
	Duplicate(ctx context.Context, relPath, folder string) (string, error)
}
