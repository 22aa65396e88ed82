package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/internal/logger"
	"social-autopost-platform/internal/telemetry"
	"social-autopost-platform/models"
)

const captionPromptTemplate = `You are a senior Social Media Manager for %s.

COMPANY BIO:
%s

TOPIC/NEWS FOR THIS POST:
%s

TASK:
Write a high-engaging Instagram caption using the AIDA framework.
Include 3-5 emojis and end with 5 hashtags.

KEEP THESE GUIDELINES IN MIND:
1. Strong Opening Hook: The first sentence is crucial. Ask a question, state a surprising fact, create urgency/FOMO, or use provocative language.
2. Clarity and Conciseness: Get straight to the point. Use simple language, maybe bullet points, and keep paragraphs short (1-2 sentences).
3. Provide Value: Educate, inspire, entertain, or solve a problem.
4. Call to Action (CTA): Tell the audience exactly what to do next (Comment, Share, Link in Bio, Tag a friend).
5. Tone and Personality: Be authentic, conversational, and use emojis to convey emotion. Avoid sounding like a corporate bot.
6. Searchability: Use strategic hashtags.

STRICT OUTPUT RULES (DO NOT IGNORE):
1. Return ONLY the final caption text.
2. Do NOT add introductions like "Here is a caption" or "Sure!".
3. Do NOT add quotes "" around the text.
4. Start the response immediately with the hook/headline.`

var ErrEmptyCaption = errors.New("caption model returned no text")

// CaptionService generates and edits post captions.
type CaptionService struct {
	store   Store
	model   CaptionModel
	metrics *telemetry.Metrics
}

func NewCaptionService(store Store, model CaptionModel, metrics *telemetry.Metrics) *CaptionService {
	return &CaptionService{store: store, model: model, metrics: metrics}
}

// BuildCaptionPrompt renders the caption prompt for a client and news text.
func BuildCaptionPrompt(client *models.Client, newsUpdate string) string {
	return fmt.Sprintf(captionPromptTemplate, client.CompanyName, client.CompanyBio, newsUpdate)
}

// CleanCaption strips the preambles and quoting models tend to add.
func CleanCaption(text string) string {
	text = strings.ReplaceAll(text, "Here is a caption:", "")
	text = strings.TrimSpace(text)
	return strings.Trim(text, `"`)
}

// GenerateForPost produces the caption of a post and advances it to
// waiting_approval or approved. claimed reports whether the dispatcher
// already moved the post to generating; otherwise this call must win the
// scheduled -> generating claim itself. Posts someone else owns are left
// untouched and reported with a nil error.
func (s *CaptionService) GenerateForPost(ctx context.Context, postID primitive.ObjectID, claimed bool) error {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("load post: %w", err)
	}
	if post.Status == models.StatusDraft {
		logger.Debug("Skipping generation for draft", "post_id", postID.Hex())
		return nil
	}

	if claimed {
		if post.Status != models.StatusGenerating {
			logger.Debug("Generation job no longer owns post", "post_id", postID.Hex(), "status", post.Status)
			return nil
		}
	} else {
		applied, err := s.store.TransitionPostStatus(ctx, postID, models.StatusScheduled, models.StatusGenerating)
		if err != nil {
			return fmt.Errorf("claim post: %w", err)
		}
		if !applied {
			logger.Debug("Post claimed elsewhere", "post_id", postID.Hex(), "status", post.Status)
			return nil
		}
		s.metrics.RecordTransition(string(models.StatusScheduled), string(models.StatusGenerating))
	}

	caption, err := s.caption(ctx, post)
	if err != nil {
		s.fail(ctx, postID, err)
		return err
	}

	to := models.GeneratedStatus(post.RequiresApproval)
	applied, err := s.store.CompleteGeneration(ctx, postID, caption, to)
	if err != nil {
		return fmt.Errorf("store caption: %w", err)
	}
	if !applied {
		logger.Warn("Post left generating before caption was stored", "post_id", postID.Hex())
		return nil
	}
	s.metrics.RecordTransition(string(models.StatusGenerating), string(to))
	logger.Info("Caption generated", "post_id", postID.Hex(), "status", to)
	return nil
}

// Regenerate replaces the caption of a post, whatever its status, without
// changing the status.
func (s *CaptionService) Regenerate(ctx context.Context, postID primitive.ObjectID) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	caption, err := s.caption(ctx, post)
	if err != nil {
		logger.Error("Caption regeneration failed", "post_id", postID.Hex(), "error", err)
		return nil, err
	}
	if err := s.store.UpdatePostCaption(ctx, postID, caption); err != nil {
		return nil, err
	}
	post.GeneratedCaption = &caption
	return post, nil
}

// EditCaption stores a manually written caption. Status is unchanged.
func (s *CaptionService) EditCaption(ctx context.Context, postID primitive.ObjectID, caption string) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePostCaption(ctx, postID, caption); err != nil {
		return nil, err
	}
	post.GeneratedCaption = &caption
	return post, nil
}

func (s *CaptionService) caption(ctx context.Context, post *models.Post) (string, error) {
	client, err := s.store.GetClient(ctx, post.ClientID)
	if err != nil {
		return "", fmt.Errorf("load client: %w", err)
	}
	text, err := s.model.Generate(ctx, BuildCaptionPrompt(client, post.NewsUpdate))
	if err != nil {
		return "", fmt.Errorf("generate caption: %w", err)
	}
	caption := CleanCaption(text)
	if caption == "" {
		return "", ErrEmptyCaption
	}
	return caption, nil
}

func (s *CaptionService) fail(ctx context.Context, postID primitive.ObjectID, cause error) {
	logger.Error("Caption generation failed", "post_id", postID.Hex(), "error", cause)
	applied, err := s.store.TransitionPostStatus(context.WithoutCancel(ctx), postID, models.StatusGenerating, models.StatusError)
	if err != nil {
		logger.Error("Failed to mark post as error", "post_id", postID.Hex(), "error", err)
		return
	}
	if applied {
		s.metrics.RecordTransition(string(models.StatusGenerating), string(models.StatusError))
	}
}
