package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Client is the business a set of posts is published for. Each client maps
// to exactly one login identity (UserID) and carries its own Instagram
// credentials.
type Client struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID               string             `bson:"user_id" json:"user_id"`
	CompanyName          string             `bson:"company_name" json:"company_name" binding:"required,min=2,max=100"`
	CompanyBio           string             `bson:"company_bio" json:"company_bio"`
	InstagramAccessToken string             `bson:"instagram_access_token" json:"-"`
	InstagramBusinessID  string             `bson:"instagram_business_id" json:"instagram_business_id"`
	Logo                 string             `bson:"logo,omitempty" json:"logo,omitempty"` // relative media path, fallback image
	CreatedAt            time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updated_at"`
}

// HasLogo reports whether the client has a fallback image.
func (c *Client) HasLogo() bool {
	return c != nil && c.Logo != ""
}
