package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is one schedulable unit of content. Campaign posts carry a SlotKey
// ("YYYY-MM-DD#i") so a campaign can never produce the same slot twice.
type Post struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ClientID         primitive.ObjectID  `bson:"client_id" json:"client_id"`
	CampaignID       *primitive.ObjectID `bson:"campaign_id" json:"campaign_id,omitempty"`
	SlotKey          string              `bson:"slot_key,omitempty" json:"slot_key,omitempty"`
	NewsUpdate       string              `bson:"news_update" json:"news_update"`
	Image            string              `bson:"image,omitempty" json:"image,omitempty"`
	ScheduledTime    time.Time           `bson:"scheduled_time" json:"scheduled_time"`
	RequiresApproval bool                `bson:"requires_approval" json:"requires_approval"`
	Status           PostStatus          `bson:"status" json:"status"`
	GeneratedCaption *string             `bson:"generated_caption" json:"generated_caption"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `bson:"updated_at" json:"updated_at"`
}

// Caption returns the generated caption or "".
func (p *Post) Caption() string {
	if p.GeneratedCaption == nil {
		return ""
	}
	return *p.GeneratedCaption
}

// CreatePostRequest is the payload for a single, manually created post.
// RequiresApproval defaults to true like the original form.
type CreatePostRequest struct {
	NewsUpdate       string    `json:"news_update" form:"news_update" binding:"required"`
	ScheduledTime    time.Time `json:"scheduled_time" form:"scheduled_time" binding:"required"`
	RequiresApproval *bool     `json:"requires_approval" form:"requires_approval"`
	SaveAsDraft      bool      `json:"save_as_draft" form:"save_as_draft"`
	Image            string    `json:"image" form:"-"`
}

// UpdateCaptionRequest is the manual caption edit payload.
type UpdateCaptionRequest struct {
	GeneratedCaption string `json:"generated_caption" form:"generated_caption"`
}

// PostFilter scopes post listings. A nil ClientID lists every client.
type PostFilter struct {
	ClientID   *primitive.ObjectID
	CampaignID *primitive.ObjectID
	Status     PostStatus
	From       time.Time
	To         time.Time
}
