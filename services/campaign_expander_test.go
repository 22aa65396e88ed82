package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/internal/database"
	"social-autopost-platform/models"
)

func newExpanderFixture(t *testing.T, c *models.Campaign, pool ...string) (*CampaignExpander, *database.MemoryStore, *recordingQueue, *fakeImages) {
	t.Helper()
	store := database.NewMemoryStore()
	client := seedClient(t, store, "")
	c.ClientID = client.ID
	c.IsActive = true
	require.NoError(t, store.CreateCampaign(context.Background(), c))
	for _, img := range pool {
		require.NoError(t, store.AddCampaignImage(context.Background(), &models.CampaignImage{CampaignID: c.ID, Image: img}))
	}
	q := &recordingQueue{}
	images := &fakeImages{}
	return NewCampaignExpander(store, q, images, time.UTC), store, q, images
}

func topicCampaign() *models.Campaign {
	return &models.Campaign{
		Name:           "Launch",
		Type:           models.CampaignTypeTopic,
		TopicPrompt:    "new sourdough",
		PostsPerDay:    2,
		StartDate:      "2024-01-01",
		EndDate:        "2024-01-03",
		DailyStartTime: "09:00",
		IntervalHours:  3,
	}
}

func TestExpand_ProducesOnePostPerDaySlot(t *testing.T) {
	c := topicCampaign()
	exp, store, q, _ := newExpanderFixture(t, c)

	n, err := exp.Expand(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	posts, err := store.ListPosts(context.Background(), models.PostFilter{CampaignID: &c.ID})
	require.NoError(t, err)
	require.Len(t, posts, 6)

	var prev time.Time
	for _, p := range posts {
		assert.True(t, p.ScheduledTime.After(prev), "timestamps strictly increase")
		prev = p.ScheduledTime
		assert.Equal(t, models.StatusScheduled, p.Status)
		assert.True(t, p.RequiresApproval)
		assert.Empty(t, p.Image)
	}
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), posts[0].ScheduledTime)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), posts[1].ScheduledTime)
	assert.Equal(t, time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC), posts[5].ScheduledTime)
	assert.Equal(t, "Series 'Launch' - Post 2: new sourdough", posts[1].NewsUpdate)

	require.Len(t, q.generations, 6)
	for _, job := range q.generations {
		assert.False(t, job.Claimed)
	}
}

func TestExpand_SlotTimesFollowConfiguredZone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	c := topicCampaign()
	c.EndDate = c.StartDate
	exp, store, _, _ := newExpanderFixture(t, c)
	exp.loc = loc

	_, err = exp.Expand(context.Background(), c.ID)
	require.NoError(t, err)

	posts, _ := store.ListPosts(context.Background(), models.PostFilter{})
	require.Len(t, posts, 2)
	assert.True(t, posts[0].ScheduledTime.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, loc)))
}

func TestExpand_BrandAwarenessCyclesAngles(t *testing.T) {
	c := topicCampaign()
	c.Type = models.CampaignTypeBio
	c.PostsPerDay = 7
	c.IntervalHours = 1
	c.EndDate = c.StartDate
	exp, store, _, _ := newExpanderFixture(t, c)

	_, err := exp.Expand(context.Background(), c.ID)
	require.NoError(t, err)

	posts, _ := store.ListPosts(context.Background(), models.PostFilter{})
	require.Len(t, posts, 7)
	want := []string{"Values", "Unique Selling Point", "Customer Success", "Behind the Scenes", "Call to Action", "Values", "Unique Selling Point"}
	for i, p := range posts {
		assert.Equal(t, "General Awareness ("+want[i]+")", p.NewsUpdate)
	}
}

func TestExpand_RequiresApprovalCapturedAtExpansion(t *testing.T) {
	c := topicCampaign()
	c.AutoApprove = true
	exp, store, _, _ := newExpanderFixture(t, c)

	_, err := exp.Expand(context.Background(), c.ID)
	require.NoError(t, err)

	stored, err := store.GetCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	stored.AutoApprove = false
	require.NoError(t, store.CreateCampaign(context.Background(), stored))

	reloaded, err := store.GetCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	require.False(t, reloaded.AutoApprove)

	posts, _ := store.ListPosts(context.Background(), models.PostFilter{})
	require.Len(t, posts, 6)
	for _, p := range posts {
		assert.False(t, p.RequiresApproval)
	}
}

func TestExpand_RejectsOversizedCampaign(t *testing.T) {
	c := topicCampaign()
	c.EndDate = c.StartDate
	c.IntervalHours = 3000000
	exp, store, q, _ := newExpanderFixture(t, c)

	_, err := exp.Expand(context.Background(), c.ID)
	require.ErrorIs(t, err, ErrValidation)

	posts, _ := store.ListPosts(context.Background(), models.PostFilter{})
	assert.Empty(t, posts)
	assert.Empty(t, q.generations)
	stored, _ := store.GetCampaign(context.Background(), c.ID)
	assert.Nil(t, stored.ExpandedAt, "invalid campaign is not marked expanded")
}

func TestExpand_SlotTimesIncreaseWithinDay(t *testing.T) {
	c := topicCampaign()
	c.EndDate = c.StartDate
	c.PostsPerDay = models.MaxPostsPerDay
	c.IntervalHours = models.MaxIntervalHours
	exp, store, _, _ := newExpanderFixture(t, c)

	_, err := exp.Expand(context.Background(), c.ID)
	require.NoError(t, err)

	posts, _ := store.ListPosts(context.Background(), models.PostFilter{})
	require.Len(t, posts, models.MaxPostsPerDay)
	bySlot := make(map[string]time.Time, len(posts))
	for _, p := range posts {
		bySlot[p.SlotKey] = p.ScheduledTime
	}
	prev := bySlot["2024-01-01#0"]
	for i := 1; i < models.MaxPostsPerDay; i++ {
		cur := bySlot["2024-01-01#"+strconv.Itoa(i)]
		assert.True(t, cur.After(prev), "slot %d", i)
		prev = cur
	}
}

func TestExpand_CopiesRandomPoolImage(t *testing.T) {
	c := topicCampaign()
	c.EndDate = c.StartDate
	exp, store, _, images := newExpanderFixture(t, c, "campaign_pool/a.jpg", "campaign_pool/b.jpg")
	exp.pick = func(n int) int { return n - 1 }

	_, err := exp.Expand(context.Background(), c.ID)
	require.NoError(t, err)

	posts, _ := store.ListPosts(context.Background(), models.PostFilter{})
	require.Len(t, posts, 2)
	assert.Len(t, images.copies, 2)
	for _, p := range posts {
		assert.Contains(t, p.Image, FolderPostImages+"/")
		assert.NotEqual(t, "campaign_pool/a.jpg", p.Image)
	}
}

func TestExpand_RunsOncePerCampaign(t *testing.T) {
	c := topicCampaign()
	exp, store, q, _ := newExpanderFixture(t, c)

	_, err := exp.Expand(context.Background(), c.ID)
	require.NoError(t, err)
	_, err = exp.Expand(context.Background(), c.ID)
	assert.ErrorIs(t, err, ErrCampaignAlreadyExpanded)

	posts, _ := store.ListPosts(context.Background(), models.PostFilter{})
	assert.Len(t, posts, 6)
	assert.Len(t, q.generations, 6)
}

func TestExpand_AbortKeepsCreatedPosts(t *testing.T) {
	c := topicCampaign()
	exp, _, q, images := newExpanderFixture(t, c, "campaign_pool/a.jpg")
	images.err = errBoom

	n, err := exp.Expand(context.Background(), c.ID)
	require.ErrorIs(t, err, errBoom)
	assert.Zero(t, n)
	assert.Empty(t, q.generations)

	q2 := &recordingQueue{err: errBoom}
	c2 := topicCampaign()
	exp2, store2, _, _ := newExpanderFixture(t, c2)
	exp2.queue = q2
	n, err = exp2.Expand(context.Background(), c2.ID)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, n)
	posts, _ := store2.ListPosts(context.Background(), models.PostFilter{})
	assert.Len(t, posts, 1, "post created before the failure is kept")

	// the claim is already taken, so a rerun does not resume the batch
	exp2.queue = &recordingQueue{}
	_, err = exp2.Expand(context.Background(), c2.ID)
	assert.ErrorIs(t, err, ErrCampaignAlreadyExpanded)
	posts, _ = store2.ListPosts(context.Background(), models.PostFilter{})
	assert.Len(t, posts, 1)
}

func TestExpand_FailureBeforeClaimCanRetry(t *testing.T) {
	c := topicCampaign()
	c.EndDate = c.StartDate
	exp, store, q, _ := newExpanderFixture(t, c)
	flaky := &failingClaimStore{Store: store, failures: 1}
	exp.store = flaky

	_, err := exp.Expand(context.Background(), c.ID)
	require.ErrorIs(t, err, errBoom)

	n, err := exp.Expand(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, q.generations, 2)
}

func TestExpand_SkipsExistingSlots(t *testing.T) {
	c := topicCampaign()
	c.EndDate = c.StartDate
	exp, store, q, _ := newExpanderFixture(t, c)
	existing := &models.Post{ClientID: c.ClientID, CampaignID: &c.ID, SlotKey: "2024-01-01#0", Status: models.StatusScheduled}
	require.NoError(t, store.CreatePost(context.Background(), existing))

	n, err := exp.Expand(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, q.generations, 1)
}

func TestExpand_InactiveCampaign(t *testing.T) {
	c := topicCampaign()
	exp, store, _, _ := newExpanderFixture(t, c)
	require.NoError(t, store.SetCampaignActive(context.Background(), c.ID, false))

	_, err := exp.Expand(context.Background(), c.ID)
	assert.ErrorIs(t, err, ErrCampaignInactive)

	_, err = exp.Expand(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}
