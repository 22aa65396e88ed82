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

// PublishService pushes approved posts to Instagram in two phases: a media
// container is created, allowed to settle, then published.
type PublishService struct {
	store         Store
	publisher     MediaPublisher
	publicBaseURL string
	mediaPrefix   string
	settleDelay   time.Duration
	metrics       *telemetry.Metrics
	sleep         func(ctx context.Context, d time.Duration) error
}

func NewPublishService(store Store, publisher MediaPublisher, publicBaseURL, mediaPrefix string, settleDelay time.Duration, metrics *telemetry.Metrics) *PublishService {
	return &PublishService{
		store:         store,
		publisher:     publisher,
		publicBaseURL: publicBaseURL,
		mediaPrefix:   mediaPrefix,
		settleDelay:   settleDelay,
		metrics:       metrics,
		sleep:         sleepContext,
	}
}

// ImageURL is the public URL the publishing API fetches a stored image from.
func (s *PublishService) ImageURL(relPath string) string {
	return s.publicBaseURL + s.mediaPrefix + relPath
}

// PublishPost publishes a post the heartbeat moved to publishing. Any other
// status means the job lost ownership and nothing is done. Failures are
// terminal: the post moves to error and the publish is not retried.
func (s *PublishService) PublishPost(ctx context.Context, postID primitive.ObjectID) error {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("load post: %w", err)
	}
	if post.Status != models.StatusPublishing {
		logger.Debug("Publish job no longer owns post", "post_id", postID.Hex(), "status", post.Status)
		return nil
	}

	start := time.Now()
	mediaID, err := s.publish(ctx, post)
	if err != nil {
		s.metrics.RecordPublish(time.Since(start).Seconds(), "error")
		s.finish(ctx, postID, models.StatusError)
		logger.Error("Publish failed", "post_id", postID.Hex(), "error", err)
		return err
	}
	s.metrics.RecordPublish(time.Since(start).Seconds(), "posted")
	s.finish(ctx, postID, models.StatusPosted)
	logger.Info("Post published", "post_id", postID.Hex(), "media_id", mediaID)
	return nil
}

func (s *PublishService) publish(ctx context.Context, post *models.Post) (string, error) {
	client, err := s.store.GetClient(ctx, post.ClientID)
	if err != nil {
		return "", fmt.Errorf("load client: %w", err)
	}

	image := post.Image
	if image == "" {
		if !client.HasLogo() {
			return "", ErrNoImageAvailable
		}
		logger.Warn("No post image, using client logo", "post_id", post.ID.Hex())
		image = client.Logo
	}

	creds := PublishCredentials{
		AccessToken: client.InstagramAccessToken,
		BusinessID:  client.InstagramBusinessID,
	}

	containerID, err := s.publisher.CreateContainer(ctx, creds, s.ImageURL(image), post.Caption())
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	logger.Debug("Media container created", "post_id", post.ID.Hex(), "container_id", containerID)

	if err := s.sleep(ctx, s.settleDelay); err != nil {
		return "", err
	}

	mediaID, err := s.publisher.PublishContainer(ctx, creds, containerID)
	if err != nil {
		return "", fmt.Errorf("publish container: %w", err)
	}
	return mediaID, nil
}

func (s *PublishService) finish(ctx context.Context, postID primitive.ObjectID, to models.PostStatus) {
	applied, err := s.store.TransitionPostStatus(context.WithoutCancel(ctx), postID, models.StatusPublishing, to)
	if err != nil {
		logger.Error("Failed to record publish outcome", "post_id", postID.Hex(), "status", to, "error", err)
		return
	}
	if applied {
		s.metrics.RecordTransition(string(models.StatusPublishing), string(to))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
