package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/internal/logger"
	"social-autopost-platform/models"
)

// Angles cycled through by brand-awareness campaigns.
var awarenessAngles = []string{
	"Values",
	"Unique Selling Point",
	"Customer Success",
	"Behind the Scenes",
	"Call to Action",
}

// CampaignExpander turns a campaign into its concrete scheduled posts.
type CampaignExpander struct {
	store  Store
	queue  JobQueue
	images ImageStore
	loc    *time.Location
	now    func() time.Time
	pick   func(n int) int
}

func NewCampaignExpander(store Store, queue JobQueue, images ImageStore, loc *time.Location) *CampaignExpander {
	if loc == nil {
		loc = time.UTC
	}
	return &CampaignExpander{
		store:  store,
		queue:  queue,
		images: images,
		loc:    loc,
		now:    time.Now,
		pick:   rand.IntN,
	}
}

// Expand creates one post per (day, slot) of the campaign and dispatches
// caption generation for each. It runs at most once per campaign. The first
// failure stops the expansion; posts created before it are kept.
func (e *CampaignExpander) Expand(ctx context.Context, campaignID primitive.ObjectID) (int, error) {
	campaign, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return 0, fmt.Errorf("load campaign: %w", err)
	}
	if !campaign.IsActive {
		logger.Info("Skipping expansion of inactive campaign", "campaign_id", campaignID.Hex())
		return 0, ErrCampaignInactive
	}
	if err := campaign.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	start, end, err := campaign.DateRange(e.loc)
	if err != nil {
		return 0, err
	}
	hour, minute, second, err := campaign.StartClock()
	if err != nil {
		return 0, err
	}

	claimed, err := e.store.ClaimCampaignExpansion(ctx, campaignID, e.now())
	if err != nil {
		return 0, fmt.Errorf("claim expansion: %w", err)
	}
	if !claimed {
		return 0, ErrCampaignAlreadyExpanded
	}

	pool, err := e.store.ListCampaignImages(ctx, campaignID)
	if err != nil {
		return 0, fmt.Errorf("load image pool: %w", err)
	}

	created := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		base := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, second, 0, e.loc)
		for i := 0; i < campaign.PostsPerDay; i++ {
			post := &models.Post{
				ClientID:         campaign.ClientID,
				CampaignID:       &campaign.ID,
				SlotKey:          day.Format(models.DateLayout) + "#" + strconv.Itoa(i),
				NewsUpdate:       SlotText(campaign, i),
				ScheduledTime:    base.Add(time.Duration(i*campaign.IntervalHours) * time.Hour),
				RequiresApproval: !campaign.AutoApprove,
				Status:           models.StatusScheduled,
			}

			if len(pool) > 0 {
				src := pool[e.pick(len(pool))].Image
				copied, err := e.images.Duplicate(ctx, src, FolderPostImages)
				if err != nil {
					return e.abort(campaignID, created, fmt.Errorf("copy image %s: %w", src, err))
				}
				post.Image = copied
			}

			if err := e.store.CreatePost(ctx, post); err != nil {
				if errors.Is(err, models.ErrDuplicate) {
					logger.Debug("Campaign slot already exists", "campaign_id", campaignID.Hex(), "slot", post.SlotKey)
					continue
				}
				return e.abort(campaignID, created, fmt.Errorf("create post for slot %s: %w", post.SlotKey, err))
			}
			created++

			if err := e.queue.EnqueueCaptionGeneration(ctx, post.ID, false); err != nil {
				return e.abort(campaignID, created, fmt.Errorf("dispatch generation for post %s: %w", post.ID.Hex(), err))
			}
		}
	}

	logger.Info("Campaign expanded", "campaign_id", campaignID.Hex(), "posts", created)
	return created, nil
}

func (e *CampaignExpander) abort(campaignID primitive.ObjectID, created int, err error) (int, error) {
	logger.Error("Campaign expansion aborted", "campaign_id", campaignID.Hex(), "created", created, "error", err)
	return created, err
}

// SlotText is the news text of the i-th post of a campaign day.
func SlotText(c *models.Campaign, i int) string {
	if c.Type == models.CampaignTypeBio {
		return fmt.Sprintf("General Awareness (%s)", awarenessAngles[i%len(awarenessAngles)])
	}
	return fmt.Sprintf("Series '%s' - Post %d: %s", c.Name, i+1, c.TopicPrompt)
}
