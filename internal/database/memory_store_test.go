package database

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/models"
)

func TestMemoryStore_ConditionalTransition(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	post := &models.Post{Status: models.StatusScheduled, ScheduledTime: time.Now()}
	require.NoError(t, s.CreatePost(ctx, post))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.TransitionPostStatus(ctx, post.ID, models.StatusScheduled, models.StatusGenerating)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins)

	ok, err := s.TransitionPostStatus(ctx, primitive.NewObjectID(), models.StatusScheduled, models.StatusGenerating)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_CompleteGeneration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	post := &models.Post{Status: models.StatusScheduled}
	require.NoError(t, s.CreatePost(ctx, post))

	ok, err := s.CompleteGeneration(ctx, post.ID, "caption", models.StatusApproved)
	require.NoError(t, err)
	assert.False(t, ok, "only generating posts accept a caption")

	_, _ = s.TransitionPostStatus(ctx, post.ID, models.StatusScheduled, models.StatusGenerating)
	ok, err = s.CompleteGeneration(ctx, post.ID, "caption", models.StatusApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, "caption", got.Caption())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	caption := "original"
	post := &models.Post{Status: models.StatusDraft, GeneratedCaption: &caption}
	require.NoError(t, s.CreatePost(ctx, post))

	got, _ := s.GetPost(ctx, post.ID)
	*got.GeneratedCaption = "mutated"
	got.Status = models.StatusPosted

	again, _ := s.GetPost(ctx, post.ID)
	assert.Equal(t, "original", again.Caption())
	assert.Equal(t, models.StatusDraft, again.Status)
}

func TestMemoryStore_SlotUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	cid := primitive.NewObjectID()

	require.NoError(t, s.CreatePost(ctx, &models.Post{CampaignID: &cid, SlotKey: "2024-01-01#0"}))
	err := s.CreatePost(ctx, &models.Post{CampaignID: &cid, SlotKey: "2024-01-01#0"})
	assert.ErrorIs(t, err, models.ErrDuplicate)
	require.NoError(t, s.CreatePost(ctx, &models.Post{CampaignID: &cid, SlotKey: "2024-01-01#1"}))
	require.NoError(t, s.CreatePost(ctx, &models.Post{}))
	require.NoError(t, s.CreatePost(ctx, &models.Post{}))
}

func TestMemoryStore_ExpansionClaim(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := &models.Campaign{Name: "c", IsActive: true}
	require.NoError(t, s.CreateCampaign(ctx, c))

	ok, err := s.ClaimCampaignExpansion(ctx, c.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ClaimCampaignExpansion(ctx, c.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_FindDuePosts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	active := &models.Campaign{Name: "on", IsActive: true}
	paused := &models.Campaign{Name: "off"}
	require.NoError(t, s.CreateCampaign(ctx, active))
	require.NoError(t, s.CreateCampaign(ctx, paused))

	posts := []*models.Post{
		{Status: models.StatusScheduled, ScheduledTime: now.Add(-2 * time.Minute)},
		{Status: models.StatusScheduled, ScheduledTime: now.Add(-time.Minute), CampaignID: &active.ID, SlotKey: "a"},
		{Status: models.StatusScheduled, ScheduledTime: now.Add(-time.Minute), CampaignID: &paused.ID, SlotKey: "b"},
		{Status: models.StatusScheduled, ScheduledTime: now.Add(time.Minute)},
		{Status: models.StatusApproved, ScheduledTime: now.Add(-time.Minute)},
	}
	for _, p := range posts {
		require.NoError(t, s.CreatePost(ctx, p))
	}

	due, err := s.FindDuePosts(ctx, models.StatusScheduled, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, posts[0].ID, due[0].ID)
	assert.Equal(t, posts[1].ID, due[1].ID)

	due, err = s.FindDuePosts(ctx, models.StatusScheduled, now, 1)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestMemoryStore_DeleteCampaignDetachesPosts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := &models.Campaign{Name: "c", IsActive: true}
	require.NoError(t, s.CreateCampaign(ctx, c))
	require.NoError(t, s.AddCampaignImage(ctx, &models.CampaignImage{CampaignID: c.ID, Image: "campaign_pool/a.jpg"}))
	post := &models.Post{CampaignID: &c.ID, SlotKey: "2024-01-01#0", Image: "post_images/a.jpg"}
	require.NoError(t, s.CreatePost(ctx, post))

	require.NoError(t, s.DeleteCampaign(ctx, c.ID))
	assert.ErrorIs(t, s.DeleteCampaign(ctx, c.ID), models.ErrNotFound)

	imgs, _ := s.ListCampaignImages(ctx, c.ID)
	assert.Empty(t, imgs)
	got, _ := s.GetPost(ctx, post.ID)
	assert.Nil(t, got.CampaignID)
	assert.Empty(t, got.SlotKey)
	assert.Equal(t, "post_images/a.jpg", got.Image)
}

func TestMemoryStore_Clients(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := &models.Client{UserID: "u1", CompanyName: "Acme"}
	require.NoError(t, s.CreateClient(ctx, c))
	assert.ErrorIs(t, s.CreateClient(ctx, &models.Client{UserID: "u1"}), models.ErrDuplicate)

	got, err := s.GetClientByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	_, err = s.GetClient(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}
