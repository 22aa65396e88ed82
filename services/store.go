package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/models"
)

// ClientStore persists clients.
type ClientStore interface {
	CreateClient(ctx context.Context, client *models.Client) error
	GetClient(ctx context.Context, id primitive.ObjectID) (*models.Client, error)
	GetClientByUserID(ctx context.Context, userID string) (*models.Client, error)
}

// CampaignStore persists campaigns and their image pools.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, campaign *models.Campaign) error
	GetCampaign(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error)
	ListCampaigns(ctx context.Context, clientID *primitive.ObjectID) ([]models.Campaign, error)
	SetCampaignActive(ctx context.Context, id primitive.ObjectID, active bool) error
	// DeleteCampaign removes the campaign and its pool and detaches its posts.
	DeleteCampaign(ctx context.Context, id primitive.ObjectID) error
	// ClaimCampaignExpansion sets the expanded marker if it is unset and
	// reports whether this call set it.
	ClaimCampaignExpansion(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	AddCampaignImage(ctx context.Context, image *models.CampaignImage) error
	ListCampaignImages(ctx context.Context, campaignID primitive.ObjectID) ([]models.CampaignImage, error)
}

// PostStore persists posts. Status changes go through conditional writes
// only: a transition applies iff the stored status equals from.
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	ListPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, error)
	// FindDuePosts returns posts in status with scheduled_time <= now,
	// skipping posts of inactive campaigns.
	FindDuePosts(ctx context.Context, status models.PostStatus, now time.Time, limit int) ([]models.Post, error)
	TransitionPostStatus(ctx context.Context, id primitive.ObjectID, from, to models.PostStatus) (bool, error)
	// CompleteGeneration stores the caption and moves generating -> to in one write.
	CompleteGeneration(ctx context.Context, id primitive.ObjectID, caption string, to models.PostStatus) (bool, error)
	UpdatePostCaption(ctx context.Context, id primitive.ObjectID, caption string) error
	DeletePost(ctx context.Context, id primitive.ObjectID) error
}

// Store is everything the services need from persistence.
type Store interface {
	ClientStore
	CampaignStore
	PostStore
}
