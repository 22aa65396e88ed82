package services

import (
	"context"
	"fmt"
	"time"

	"social-autopost-platform/internal/logger"
	"social-autopost-platform/models"
)

// inFlight are the statuses a crashed job can leave behind.
var inFlight = []models.PostStatus{models.StatusGenerating, models.StatusPublishing}

// FailStuckPosts moves posts that have sat in an in-flight status for longer
// than olderThan to error, where an operator can requeue them. Publishing
// posts are included because whether Instagram accepted them is unknown.
func FailStuckPosts(ctx context.Context, store PostStore, olderThan time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-olderThan)
	failed := 0

	for _, status := range inFlight {
		posts, err := store.ListPosts(ctx, models.PostFilter{Status: status})
		if err != nil {
			return failed, fmt.Errorf("list %s posts: %w", status, err)
		}
		for _, post := range posts {
			if post.UpdatedAt.After(cutoff) {
				continue
			}
			applied, err := store.TransitionPostStatus(ctx, post.ID, status, models.StatusError)
			if err != nil {
				return failed, fmt.Errorf("fail post %s: %w", post.ID.Hex(), err)
			}
			if applied {
				failed++
				logger.Warn("Stuck post moved to error", "post_id", post.ID.Hex(), "from", status, "since", post.UpdatedAt)
			}
		}
	}
	return failed, nil
}

// StatusCounts tallies every post by status.
func StatusCounts(ctx context.Context, store PostStore) (map[models.PostStatus]int, error) {
	posts, err := store.ListPosts(ctx, models.PostFilter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[models.PostStatus]int)
	for _, post := range posts {
		counts[post.Status]++
	}
	return counts, nil
}
