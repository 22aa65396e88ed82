package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func intPtr(v int) *int { return &v }

func TestParseCampaignType(t *testing.T) {
	for in, want := range map[string]CampaignType{
		"topic":           CampaignTypeTopic,
		"bio":             CampaignTypeBio,
		"brand-awareness": CampaignTypeBio,
		" Topic ":         CampaignTypeTopic,
	} {
		got, err := ParseCampaignType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseCampaignType("video")
	assert.Error(t, err)
}

func TestCreateCampaignRequest_Defaults(t *testing.T) {
	req := CreateCampaignRequest{Name: "Spring", Type: "bio", EndDate: "2024-03-10"}
	today := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	c, err := req.ToCampaign(primitive.NewObjectID(), today)
	require.NoError(t, err)
	assert.Equal(t, 3, c.PostsPerDay)
	assert.Equal(t, 2, c.IntervalHours)
	assert.Equal(t, "2024-03-01", c.StartDate)
	assert.Equal(t, "09:00", c.DailyStartTime)
	assert.True(t, c.IsActive)
	assert.False(t, c.AutoApprove)
}

func TestCampaignValidate(t *testing.T) {
	base := func() Campaign {
		return Campaign{
			Name: "Launch", Type: CampaignTypeTopic, TopicPrompt: "new store",
			PostsPerDay: 2, StartDate: "2024-01-01", EndDate: "2024-01-02",
			DailyStartTime: "09:00", IntervalHours: 3,
		}
	}

	c := base()
	require.NoError(t, c.Validate())

	c = base()
	c.EndDate = "2023-12-31"
	assert.Error(t, c.Validate())

	c = base()
	c.PostsPerDay = 0
	assert.Error(t, c.Validate())

	c = base()
	c.PostsPerDay = MaxPostsPerDay + 1
	assert.Error(t, c.Validate())

	c = base()
	c.IntervalHours = MaxIntervalHours + 1
	assert.Error(t, c.Validate())

	c = base()
	c.IntervalHours = 3000000
	c.EndDate = c.StartDate
	assert.Error(t, c.Validate())

	c = base()
	c.IntervalHours = -1
	assert.Error(t, c.Validate())

	c = base()
	c.IntervalHours = 0
	assert.Error(t, c.Validate(), "several posts a day need distinct times")

	c = base()
	c.PostsPerDay, c.IntervalHours = 1, 0
	require.NoError(t, c.Validate())

	c = base()
	c.PostsPerDay, c.IntervalHours = MaxPostsPerDay, MaxIntervalHours
	require.NoError(t, c.Validate())

	c = base()
	c.StartDate, c.EndDate = "2024-01-01", "2024-12-31"
	require.NoError(t, c.Validate(), "a full leap year fits")

	c = base()
	c.StartDate, c.EndDate = "2024-01-01", "2025-01-01"
	assert.Error(t, c.Validate())

	c = base()
	c.TopicPrompt = ""
	assert.Error(t, c.Validate())

	c = base()
	c.DailyStartTime = "9am"
	assert.Error(t, c.Validate())

	c = base()
	c.DailyStartTime = "09:30:15"
	require.NoError(t, c.Validate())
	h, m, s, err := c.StartClock()
	require.NoError(t, err)
	assert.Equal(t, []int{9, 30, 15}, []int{h, m, s})

	req := CreateCampaignRequest{Name: "x", Type: "topic", TopicPrompt: "p", EndDate: "2024-01-01", StartDate: "2024-01-01", PostsPerDay: intPtr(-1)}
	_, err = req.ToCampaign(primitive.NewObjectID(), time.Now())
	assert.Error(t, err)
}
