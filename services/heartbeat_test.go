package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-autopost-platform/internal/database"
	"social-autopost-platform/models"
)

func TestHeartbeat_ClaimsDuePosts(t *testing.T) {
	store := database.NewMemoryStore()
	client := seedClient(t, store, "")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	due := seedPost(t, store, client.ID, models.StatusScheduled, now.Add(-time.Minute))
	future := seedPost(t, store, client.ID, models.StatusScheduled, now.Add(time.Hour))
	ready := seedPost(t, store, client.ID, models.StatusApproved, now)
	waiting := seedPost(t, store, client.ID, models.StatusWaitingApproval, now.Add(-time.Hour))

	q := &recordingQueue{}
	hb := NewHeartbeat(store, q, 10, nil)
	hb.now = func() time.Time { return now }

	res, err := hb.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, HeartbeatResult{Generating: 1, Publishing: 1}, res)

	assert.Equal(t, []generationJob{{PostID: due.ID, Claimed: true}}, q.generations)
	assert.Equal(t, ready.ID, q.publishes[0])
	assert.Equal(t, models.StatusGenerating, mustPost(t, store, due.ID).Status)
	assert.Equal(t, models.StatusPublishing, mustPost(t, store, ready.ID).Status)
	assert.Equal(t, models.StatusScheduled, mustPost(t, store, future.ID).Status)
	assert.Equal(t, models.StatusWaitingApproval, mustPost(t, store, waiting.ID).Status)
}

func TestHeartbeat_NeverDispatchesTwice(t *testing.T) {
	store := database.NewMemoryStore()
	client := seedClient(t, store, "")
	now := time.Now()
	for i := 0; i < 20; i++ {
		seedPost(t, store, client.ID, models.StatusScheduled, now.Add(-time.Minute))
	}

	q := &recordingQueue{}
	hb := NewHeartbeat(store, q, 100, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := hb.Tick(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	res, err := hb.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Generating)

	seen := map[string]int{}
	for _, job := range q.generations {
		seen[job.PostID.Hex()]++
	}
	assert.Len(t, seen, 20)
	for id, n := range seen {
		assert.Equalf(t, 1, n, "post %s dispatched more than once", id)
	}
}

func TestHeartbeat_ReleasesClaimWhenDispatchFails(t *testing.T) {
	store := database.NewMemoryStore()
	client := seedClient(t, store, "")
	post := seedPost(t, store, client.ID, models.StatusApproved, time.Now().Add(-time.Minute))

	hb := NewHeartbeat(store, &recordingQueue{err: errBoom}, 10, nil)
	res, err := hb.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, models.StatusApproved, mustPost(t, store, post.ID).Status)
}

func TestHeartbeat_SkipsInactiveCampaigns(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	client := seedClient(t, store, "")
	c := topicCampaign()
	c.ClientID = client.ID
	require.NoError(t, store.CreateCampaign(ctx, c))

	post := &models.Post{ClientID: client.ID, CampaignID: &c.ID, SlotKey: "2024-01-01#0", Status: models.StatusScheduled, ScheduledTime: time.Now().Add(-time.Minute)}
	require.NoError(t, store.CreatePost(ctx, post))

	q := &recordingQueue{}
	hb := NewHeartbeat(store, q, 10, nil)
	res, err := hb.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Generating)

	require.NoError(t, store.SetCampaignActive(ctx, c.ID, true))
	res, err = hb.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generating)
}

func TestHeartbeat_BatchLimit(t *testing.T) {
	store := database.NewMemoryStore()
	client := seedClient(t, store, "")
	for i := 0; i < 5; i++ {
		seedPost(t, store, client.ID, models.StatusScheduled, time.Now().Add(-time.Duration(i+1)*time.Minute))
	}
	hb := NewHeartbeat(store, &recordingQueue{}, 2, nil)

	res, err := hb.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Generating)
}
