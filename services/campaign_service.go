package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/internal/logger"
	"social-autopost-platform/models"
)

// CampaignService manages campaigns and their image pools.
type CampaignService struct {
	store Store
	queue JobQueue
	loc   *time.Location
	now   func() time.Time
}

func NewCampaignService(store Store, queue JobQueue, loc *time.Location) *CampaignService {
	if loc == nil {
		loc = time.UTC
	}
	return &CampaignService{store: store, queue: queue, loc: loc, now: time.Now}
}

// CreateCampaign validates and stores a campaign with its pool images (paths
// already saved by the media store) and dispatches its expansion.
func (s *CampaignService) CreateCampaign(ctx context.Context, p Principal, req *models.CreateCampaignRequest, images []string) (*models.Campaign, error) {
	if p.ClientID.IsZero() {
		return nil, fmt.Errorf("%w: caller has no client profile", ErrForbidden)
	}
	campaign, err := req.ToCampaign(p.ClientID, s.now().In(s.loc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.store.CreateCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	for _, path := range images {
		img := &models.CampaignImage{CampaignID: campaign.ID, Image: path}
		if err := s.store.AddCampaignImage(ctx, img); err != nil {
			return nil, fmt.Errorf("store pool image: %w", err)
		}
	}

	if err := s.queue.EnqueueCampaignExpansion(ctx, campaign.ID); err != nil {
		return nil, fmt.Errorf("dispatch expansion: %w", err)
	}
	logger.Info("Campaign created", "campaign_id", campaign.ID.Hex(), "client_id", p.ClientID.Hex(), "images", len(images))
	return campaign, nil
}

func (s *CampaignService) GetCampaign(ctx context.Context, p Principal, id primitive.ObjectID) (*models.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Authorize(c.ClientID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) ListCampaigns(ctx context.Context, p Principal) ([]models.Campaign, error) {
	return s.store.ListCampaigns(ctx, p.Scope())
}

// Stop pauses a campaign: its posts are skipped by the heartbeat until it
// is restarted.
func (s *CampaignService) Stop(ctx context.Context, p Principal, id primitive.ObjectID) error {
	return s.setActive(ctx, p, id, false)
}

func (s *CampaignService) Restart(ctx context.Context, p Principal, id primitive.ObjectID) error {
	return s.setActive(ctx, p, id, true)
}

// Delete removes the campaign and its pool. Its posts survive with their own
// image copies and no campaign reference.
func (s *CampaignService) Delete(ctx context.Context, p Principal, id primitive.ObjectID) error {
	if _, err := s.GetCampaign(ctx, p, id); err != nil {
		return err
	}
	if err := s.store.DeleteCampaign(ctx, id); err != nil {
		return err
	}
	logger.Info("Campaign deleted", "campaign_id", id.Hex())
	return nil
}

func (s *CampaignService) setActive(ctx context.Context, p Principal, id primitive.ObjectID, active bool) error {
	if _, err := s.GetCampaign(ctx, p, id); err != nil {
		return err
	}
	if err := s.store.SetCampaignActive(ctx, id, active); err != nil {
		return err
	}
	logger.Info("Campaign state changed", "campaign_id", id.Hex(), "active", active)
	return nil
}
