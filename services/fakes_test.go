package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/internal/database"
	"social-autopost-platform/models"
)

type generationJob struct {
	PostID  primitive.ObjectID
	Claimed bool
}

type recordingQueue struct {
	mu          sync.Mutex
	expansions  []primitive.ObjectID
	generations []generationJob
	publishes   []primitive.ObjectID
	err         error
}

func (q *recordingQueue) EnqueueCampaignExpansion(_ context.Context, id primitive.ObjectID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.expansions = append(q.expansions, id)
	return nil
}

func (q *recordingQueue) EnqueueCaptionGeneration(_ context.Context, id primitive.ObjectID, claimed bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.generations = append(q.generations, generationJob{PostID: id, Claimed: claimed})
	return nil
}

func (q *recordingQueue) EnqueuePublish(_ context.Context, id primitive.ObjectID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.publishes = append(q.publishes, id)
	return nil
}

type fakeModel struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (m *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	return m.reply, m.err
}

func (m *fakeModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

type fakePublisher struct {
	containerID string
	mediaID     string
	createErr   error
	publishErr  error

	creates   []string
	published []string
	creds     []PublishCredentials
	captions  []string
}

func (p *fakePublisher) CreateContainer(_ context.Context, creds PublishCredentials, imageURL, caption string) (string, error) {
	p.creates = append(p.creates, imageURL)
	p.creds = append(p.creds, creds)
	p.captions = append(p.captions, caption)
	return p.containerID, p.createErr
}

func (p *fakePublisher) PublishContainer(_ context.Context, _ PublishCredentials, containerID string) (string, error) {
	p.published = append(p.published, containerID)
	return p.mediaID, p.publishErr
}

type fakeImages struct {
	copies []string
	err    error
}

func (f *fakeImages) Duplicate(_ context.Context, relPath, folder string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.copies = append(f.copies, relPath)
	return folder + "/copy_" + relPath, nil
}

var errBoom = errors.New("boom")

// failingClaimStore fails the first n expansion claims.
type failingClaimStore struct {
	Store
	failures int
}

func (s *failingClaimStore) ClaimCampaignExpansion(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	if s.failures > 0 {
		s.failures--
		return false, errBoom
	}
	return s.Store.ClaimCampaignExpansion(ctx, id, at)
}

func seedClient(t *testing.T, store *database.MemoryStore, logo string) *models.Client {
	t.Helper()
	c := &models.Client{
		UserID:               primitive.NewObjectID().Hex(),
		CompanyName:          "Acme Bakery",
		CompanyBio:           "Fresh bread since 1990",
		InstagramAccessToken: "tok-" + primitive.NewObjectID().Hex(),
		InstagramBusinessID:  "ig-123",
		Logo:                 logo,
	}
	if err := store.CreateClient(context.Background(), c); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func seedPost(t *testing.T, store *database.MemoryStore, clientID primitive.ObjectID, status models.PostStatus, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		ClientID:         clientID,
		NewsUpdate:       "We opened a second shop",
		Image:            "post_images/a.jpg",
		ScheduledTime:    at,
		RequiresApproval: true,
		Status:           status,
	}
	if err := store.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

func mustPost(t *testing.T, store *database.MemoryStore, id primitive.ObjectID) *models.Post {
	t.Helper()
	p, err := store.GetPost(context.Background(), id)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	return p
}
