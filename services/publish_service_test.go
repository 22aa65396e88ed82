package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-autopost-platform/internal/database"
	"social-autopost-platform/models"
)

func newPublishFixture(t *testing.T, logo string, pub *fakePublisher) (*PublishService, *database.MemoryStore, *models.Client) {
	t.Helper()
	store := database.NewMemoryStore()
	client := seedClient(t, store, logo)
	svc := NewPublishService(store, pub, "https://cdn.example.com", "/media/", 15*time.Second, nil)
	svc.sleep = func(context.Context, time.Duration) error { return nil }
	return svc, store, client
}

func publishingPost(t *testing.T, store *database.MemoryStore, client *models.Client, image string) *models.Post {
	t.Helper()
	caption := "Fresh bread"
	p := &models.Post{
		ClientID:         client.ID,
		NewsUpdate:       "news",
		Image:            image,
		Status:           models.StatusPublishing,
		GeneratedCaption: &caption,
		ScheduledTime:    time.Now(),
	}
	require.NoError(t, store.CreatePost(context.Background(), p))
	return p
}

func TestPublishPost_UsesPostImage(t *testing.T) {
	pub := &fakePublisher{containerID: "c1", mediaID: "m1"}
	svc, store, client := newPublishFixture(t, "client_logos/logo.png", pub)
	post := publishingPost(t, store, client, "post_images/a.jpg")

	require.NoError(t, svc.PublishPost(context.Background(), post.ID))

	assert.Equal(t, []string{"https://cdn.example.com/media/post_images/a.jpg"}, pub.creates)
	assert.Equal(t, []string{"c1"}, pub.published)
	assert.Equal(t, "Fresh bread", pub.captions[0])
	assert.Equal(t, PublishCredentials{AccessToken: client.InstagramAccessToken, BusinessID: "ig-123"}, pub.creds[0])
	assert.Equal(t, models.StatusPosted, mustPost(t, store, post.ID).Status)
}

func TestPublishPost_FallsBackToLogo(t *testing.T) {
	pub := &fakePublisher{containerID: "c1", mediaID: "m1"}
	svc, store, client := newPublishFixture(t, "client_logos/logo.png", pub)
	post := publishingPost(t, store, client, "")

	require.NoError(t, svc.PublishPost(context.Background(), post.ID))
	assert.Equal(t, []string{"https://cdn.example.com/media/client_logos/logo.png"}, pub.creates)
	assert.Equal(t, models.StatusPosted, mustPost(t, store, post.ID).Status)
}

func TestPublishPost_NoImageAvailable(t *testing.T) {
	pub := &fakePublisher{containerID: "c1", mediaID: "m1"}
	svc, store, client := newPublishFixture(t, "", pub)
	post := publishingPost(t, store, client, "")

	err := svc.PublishPost(context.Background(), post.ID)
	require.ErrorIs(t, err, ErrNoImageAvailable)
	assert.Empty(t, pub.creates)
	assert.Equal(t, models.StatusError, mustPost(t, store, post.ID).Status)
}

func TestPublishPost_PhaseFailures(t *testing.T) {
	t.Run("container", func(t *testing.T) {
		pub := &fakePublisher{createErr: errBoom}
		svc, store, client := newPublishFixture(t, "", pub)
		post := publishingPost(t, store, client, "post_images/a.jpg")

		require.ErrorIs(t, svc.PublishPost(context.Background(), post.ID), errBoom)
		assert.Empty(t, pub.published)
		assert.Equal(t, models.StatusError, mustPost(t, store, post.ID).Status)
	})

	t.Run("publish", func(t *testing.T) {
		pub := &fakePublisher{containerID: "c1", publishErr: errBoom}
		svc, store, client := newPublishFixture(t, "", pub)
		post := publishingPost(t, store, client, "post_images/a.jpg")

		require.ErrorIs(t, svc.PublishPost(context.Background(), post.ID), errBoom)
		assert.Len(t, pub.published, 1)
		assert.Equal(t, models.StatusError, mustPost(t, store, post.ID).Status)
	})
}

func TestPublishPost_WaitsForSettleDelay(t *testing.T) {
	pub := &fakePublisher{containerID: "c1", mediaID: "m1"}
	svc, store, client := newPublishFixture(t, "", pub)
	post := publishingPost(t, store, client, "post_images/a.jpg")

	var waited time.Duration
	svc.sleep = func(_ context.Context, d time.Duration) error {
		waited = d
		assert.Len(t, pub.creates, 1)
		assert.Empty(t, pub.published)
		return nil
	}
	require.NoError(t, svc.PublishPost(context.Background(), post.ID))
	assert.Equal(t, 15*time.Second, waited)
}

func TestPublishPost_CancelledDuringSettle(t *testing.T) {
	pub := &fakePublisher{containerID: "c1", mediaID: "m1"}
	svc, store, client := newPublishFixture(t, "", pub)
	svc.sleep = sleepContext
	post := publishingPost(t, store, client, "post_images/a.jpg")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, svc.PublishPost(ctx, post.ID), context.Canceled)
	assert.Empty(t, pub.published)
	assert.Equal(t, models.StatusError, mustPost(t, store, post.ID).Status)
}

func TestPublishPost_IgnoresPostsNotPublishing(t *testing.T) {
	pub := &fakePublisher{containerID: "c1", mediaID: "m1"}
	svc, store, client := newPublishFixture(t, "", pub)
	post := seedPost(t, store, client.ID, models.StatusApproved, time.Now())

	require.NoError(t, svc.PublishPost(context.Background(), post.ID))
	assert.Empty(t, pub.creates)
	assert.Equal(t, models.StatusApproved, mustPost(t, store, post.ID).Status)
}
