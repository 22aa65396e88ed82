package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CampaignType string

const (
	CampaignTypeTopic CampaignType = "topic"
	CampaignTypeBio   CampaignType = "bio"
)

const (
	DateLayout      = "2006-01-02"
	clockLayout     = "15:04"
	clockLayoutSecs = "15:04:05"
)

// Campaign size limits. They keep every slot offset well inside
// time.Duration and bound the posts one expansion can create.
const (
	MaxPostsPerDay   = 24
	MaxIntervalHours = 24
	MaxCampaignDays  = 366
)

// ParseCampaignType accepts the stored values plus the "brand-awareness" alias.
func ParseCampaignType(s string) (CampaignType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "topic", "topic-series":
		return CampaignTypeTopic, nil
	case "bio", "brand-awareness", "brand_awareness":
		return CampaignTypeBio, nil
	}
	return "", fmt.Errorf("unknown campaign type %q", s)
}

// Campaign is a recurring content plan. StartDate and EndDate are calendar
// dates (inclusive); DailyStartTime is a wall clock time in the deployment
// time zone.
type Campaign struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID       primitive.ObjectID `bson:"client_id" json:"client_id"`
	Name           string             `bson:"name" json:"name"`
	Type           CampaignType       `bson:"type" json:"type"`
	TopicPrompt    string             `bson:"topic_prompt" json:"topic_prompt"`
	PostsPerDay    int                `bson:"posts_per_day" json:"posts_per_day"`
	StartDate      string             `bson:"start_date" json:"start_date"`
	EndDate        string             `bson:"end_date" json:"end_date"`
	DailyStartTime string             `bson:"daily_start_time" json:"daily_start_time"`
	IntervalHours  int                `bson:"interval_hours" json:"interval_hours"`
	AutoApprove    bool               `bson:"auto_approve" json:"auto_approve"`
	IsActive       bool               `bson:"is_active" json:"is_active"`
	ExpandedAt     *time.Time         `bson:"expanded_at,omitempty" json:"expanded_at,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// CampaignImage is one entry of a campaign's shared image pool.
type CampaignImage struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CampaignID primitive.ObjectID `bson:"campaign_id" json:"campaign_id"`
	Image      string             `bson:"image" json:"image"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// CreateCampaignRequest is the API payload for a new campaign. Defaults
// follow the original form: 3 posts per day, 09:00 start, 2h interval.
type CreateCampaignRequest struct {
	Name           string `json:"name" form:"name" binding:"required,min=1,max=100"`
	Type           string `json:"type" form:"type" binding:"required"`
	TopicPrompt    string `json:"topic_prompt" form:"topic_prompt"`
	PostsPerDay    *int   `json:"posts_per_day" form:"posts_per_day"`
	StartDate      string `json:"start_date" form:"start_date"`
	EndDate        string `json:"end_date" form:"end_date" binding:"required"`
	DailyStartTime string `json:"daily_start_time" form:"daily_start_time"`
	IntervalHours  *int   `json:"interval_hours" form:"interval_hours"`
	AutoApprove    bool   `json:"auto_approve" form:"auto_approve"`
}

// ToCampaign converts the request into a Campaign, applying defaults. today
// is used when StartDate is empty.
func (r *CreateCampaignRequest) ToCampaign(clientID primitive.ObjectID, today time.Time) (*Campaign, error) {
	ctype, err := ParseCampaignType(r.Type)
	if err != nil {
		return nil, err
	}
	c := &Campaign{
		ClientID:       clientID,
		Name:           strings.TrimSpace(r.Name),
		Type:           ctype,
		TopicPrompt:    strings.TrimSpace(r.TopicPrompt),
		PostsPerDay:    3,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		DailyStartTime: r.DailyStartTime,
		IntervalHours:  2,
		AutoApprove:    r.AutoApprove,
		IsActive:       true,
	}
	if r.PostsPerDay != nil {
		c.PostsPerDay = *r.PostsPerDay
	}
	if r.IntervalHours != nil {
		c.IntervalHours = *r.IntervalHours
	}
	if c.StartDate == "" {
		c.StartDate = today.Format(DateLayout)
	}
	if c.DailyStartTime == "" {
		c.DailyStartTime = "09:00"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the scheduling fields the expander depends on.
func (c *Campaign) Validate() error {
	if c.Name == "" {
		return errors.New("campaign name is required")
	}
	if c.Type != CampaignTypeTopic && c.Type != CampaignTypeBio {
		return fmt.Errorf("unknown campaign type %q", c.Type)
	}
	if c.Type == CampaignTypeTopic && c.TopicPrompt == "" {
		return errors.New("topic campaigns require a topic prompt")
	}
	if c.PostsPerDay < 1 || c.PostsPerDay > MaxPostsPerDay {
		return fmt.Errorf("posts_per_day must be between 1 and %d", MaxPostsPerDay)
	}
	if c.IntervalHours < 0 || c.IntervalHours > MaxIntervalHours {
		return fmt.Errorf("interval_hours must be between 0 and %d", MaxIntervalHours)
	}
	// Slots of one day must have distinct, increasing times.
	if c.PostsPerDay > 1 && c.IntervalHours == 0 {
		return errors.New("interval_hours must be at least 1 when posting more than once a day")
	}
	start, end, err := c.DateRange(time.UTC)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return errors.New("end_date must not be before start_date")
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > MaxCampaignDays {
		return fmt.Errorf("campaign may span at most %d days, got %d", MaxCampaignDays, days)
	}
	if _, _, _, err := c.StartClock(); err != nil {
		return err
	}
	return nil
}

// DateRange parses StartDate and EndDate as midnight in loc.
func (c *Campaign) DateRange(loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DateLayout, c.StartDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: %w", c.StartDate, err)
	}
	end, err := time.ParseInLocation(DateLayout, c.EndDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: %w", c.EndDate, err)
	}
	return start, end, nil
}

// StartClock returns the hour, minute and second of DailyStartTime.
func (c *Campaign) StartClock() (int, int, int, error) {
	t, err := time.Parse(clockLayout, c.DailyStartTime)
	if err != nil {
		t, err = time.Parse(clockLayoutSecs, c.DailyStartTime)
	}
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid daily_start_time %q", c.DailyStartTime)
	}
	return t.Hour(), t.Minute(), t.Second(), nil
}
