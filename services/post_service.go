package services

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/internal/logger"
	"social-autopost-platform/internal/telemetry"
	"social-autopost-platform/models"
)

// PostService implements the user facing post actions.
type PostService struct {
	store    Store
	queue    JobQueue
	captions *CaptionService
	metrics  *telemetry.Metrics
}

func NewPostService(store Store, queue JobQueue, captions *CaptionService, metrics *telemetry.Metrics) *PostService {
	return &PostService{store: store, queue: queue, captions: captions, metrics: metrics}
}

// CreatePost stores a manual post. Unless saved as a draft, caption
// generation is dispatched right away.
func (s *PostService) CreatePost(ctx context.Context, p Principal, req *models.CreatePostRequest) (*models.Post, error) {
	if p.ClientID.IsZero() {
		return nil, fmt.Errorf("%w: caller has no client profile", ErrForbidden)
	}
	if strings.TrimSpace(req.NewsUpdate) == "" {
		return nil, fmt.Errorf("%w: news_update is required", ErrValidation)
	}
	if req.Image == "" {
		return nil, ErrImageRequired
	}

	post := &models.Post{
		ClientID:         p.ClientID,
		NewsUpdate:       strings.TrimSpace(req.NewsUpdate),
		Image:            req.Image,
		ScheduledTime:    req.ScheduledTime,
		RequiresApproval: true,
		Status:           models.StatusScheduled,
	}
	if req.RequiresApproval != nil {
		post.RequiresApproval = *req.RequiresApproval
	}
	if req.SaveAsDraft {
		post.Status = models.StatusDraft
	}

	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	logger.Info("Post created", "post_id", post.ID.Hex(), "client_id", p.ClientID.Hex(), "status", post.Status)

	if post.Status == models.StatusScheduled {
		s.dispatchGeneration(ctx, post.ID)
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, p Principal, id primitive.ObjectID) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Authorize(post.ClientID); err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts returns the caller's posts ordered by scheduled time. Admins see
// every client.
func (s *PostService) ListPosts(ctx context.Context, p Principal, filter models.PostFilter) ([]models.Post, error) {
	if scope := p.Scope(); scope != nil {
		filter.ClientID = scope
	}
	return s.store.ListPosts(ctx, filter)
}

// SubmitDraft schedules a draft and dispatches its caption generation.
func (s *PostService) SubmitDraft(ctx context.Context, p Principal, id primitive.ObjectID) (*models.Post, error) {
	post, err := s.transition(ctx, p, id, models.StatusDraft, models.StatusScheduled)
	if err != nil {
		return nil, err
	}
	s.dispatchGeneration(ctx, id)
	return post, nil
}

func (s *PostService) Approve(ctx context.Context, p Principal, id primitive.ObjectID) (*models.Post, error) {
	return s.transition(ctx, p, id, models.StatusWaitingApproval, models.StatusApproved)
}

// Requeue re-drives a failed post through generation. Operators only.
func (s *PostService) Requeue(ctx context.Context, p Principal, id primitive.ObjectID) (*models.Post, error) {
	post, err := s.transition(ctx, p, id, models.StatusError, models.StatusScheduled)
	if err != nil {
		return nil, err
	}
	s.dispatchGeneration(ctx, id)
	return post, nil
}

func (s *PostService) RegenerateCaption(ctx context.Context, p Principal, id primitive.ObjectID) (*models.Post, error) {
	if _, err := s.GetPost(ctx, p, id); err != nil {
		return nil, err
	}
	return s.captions.Regenerate(ctx, id)
}

func (s *PostService) EditCaption(ctx context.Context, p Principal, id primitive.ObjectID, caption string) (*models.Post, error) {
	if _, err := s.GetPost(ctx, p, id); err != nil {
		return nil, err
	}
	return s.captions.EditCaption(ctx, id, caption)
}

func (s *PostService) DeletePost(ctx context.Context, p Principal, id primitive.ObjectID) error {
	if _, err := s.GetPost(ctx, p, id); err != nil {
		return err
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}
	logger.Info("Post deleted", "post_id", id.Hex())
	return nil
}

func (s *PostService) transition(ctx context.Context, p Principal, id primitive.ObjectID, from, to models.PostStatus) (*models.Post, error) {
	post, err := s.GetPost(ctx, p, id)
	if err != nil {
		return nil, err
	}

	actor := p.Actor()
	if !models.CanTransition(from, to, actor) {
		terr := &models.TransitionError{From: from, To: to, Actor: actor}
		if models.TransitionExists(from, to) {
			return nil, fmt.Errorf("%w: %v", ErrForbidden, terr)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, terr)
	}

	applied, err := s.store.TransitionPostStatus(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: post is %s, expected %s", ErrInvalidTransition, post.Status, from)
	}
	s.metrics.RecordTransition(string(from), string(to))
	logger.Info("Post status changed", "post_id", id.Hex(), "from", from, "to", to, "actor", actor)

	post.Status = to
	return post, nil
}

// dispatchGeneration is best effort: a post left in scheduled is picked up
// by the heartbeat once it is due.
func (s *PostService) dispatchGeneration(ctx context.Context, id primitive.ObjectID) {
	if err := s.queue.EnqueueCaptionGeneration(ctx, id, false); err != nil {
		logger.Warn("Failed to dispatch caption generation", "post_id", id.Hex(), "error", err)
	}
}
