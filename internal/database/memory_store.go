package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/models"
)

// MemoryStore keeps every entity in process memory. It honours the same
// conditional-write semantics as MongoStore and backs STORE_DRIVER=memory
// and the test suites.
type MemoryStore struct {
	mu        sync.Mutex
	clients   map[primitive.ObjectID]models.Client
	campaigns map[primitive.ObjectID]models.Campaign
	images    map[primitive.ObjectID]models.CampaignImage
	posts     map[primitive.ObjectID]models.Post
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients:   make(map[primitive.ObjectID]models.Client),
		campaigns: make(map[primitive.ObjectID]models.Campaign),
		images:    make(map[primitive.ObjectID]models.CampaignImage),
		posts:     make(map[primitive.ObjectID]models.Post),
		now:       time.Now,
	}
}

func (s *MemoryStore) CreateClient(_ context.Context, client *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if client.UserID != "" && c.UserID == client.UserID {
			return models.ErrDuplicate
		}
	}
	if client.ID.IsZero() {
		client.ID = primitive.NewObjectID()
	}
	now := s.now()
	client.CreatedAt, client.UpdatedAt = now, now
	s.clients[client.ID] = *client
	return nil
}

func (s *MemoryStore) GetClient(_ context.Context, id primitive.ObjectID) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) GetClientByUserID(_ context.Context, userID string) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if c.UserID == userID {
			c := c
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *MemoryStore) CreateCampaign(_ context.Context, campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if campaign.ID.IsZero() {
		campaign.ID = primitive.NewObjectID()
	}
	now := s.now()
	campaign.CreatedAt, campaign.UpdatedAt = now, now
	s.campaigns[campaign.ID] = *campaign
	return nil
}

func (s *MemoryStore) GetCampaign(_ context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) ListCampaigns(_ context.Context, clientID *primitive.ObjectID) ([]models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Campaign{}
	for _, c := range s.campaigns {
		if clientID != nil && c.ClientID != *clientID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsActive != out[j].IsActive {
			return out[i].IsActive
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) SetCampaignActive(_ context.Context, id primitive.ObjectID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[id]
	if !ok {
		return models.ErrNotFound
	}
	c.IsActive = active
	c.UpdatedAt = s.now()
	s.campaigns[id] = c
	return nil
}

func (s *MemoryStore) DeleteCampaign(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.campaigns, id)
	for imgID, img := range s.images {
		if img.CampaignID == id {
			delete(s.images, imgID)
		}
	}
	for postID, p := range s.posts {
		if p.CampaignID != nil && *p.CampaignID == id {
			p.CampaignID = nil
			p.SlotKey = ""
			p.UpdatedAt = s.now()
			s.posts[postID] = p
		}
	}
	return nil
}

func (s *MemoryStore) ClaimCampaignExpansion(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[id]
	if !ok || c.ExpandedAt != nil {
		return false, nil
	}
	c.ExpandedAt = &at
	s.campaigns[id] = c
	return true, nil
}

func (s *MemoryStore) AddCampaignImage(_ context.Context, image *models.CampaignImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if image.ID.IsZero() {
		image.ID = primitive.NewObjectID()
	}
	image.CreatedAt = s.now()
	s.images[image.ID] = *image
	return nil
}

func (s *MemoryStore) ListCampaignImages(_ context.Context, campaignID primitive.ObjectID) ([]models.CampaignImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.CampaignImage{}
	for _, img := range s.images {
		if img.CampaignID == campaignID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (s *MemoryStore) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if post.CampaignID != nil && post.SlotKey != "" {
		for _, p := range s.posts {
			if p.CampaignID != nil && *p.CampaignID == *post.CampaignID && p.SlotKey == post.SlotKey {
				return models.ErrDuplicate
			}
		}
	}
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	now := s.now()
	post.CreatedAt, post.UpdatedAt = now, now
	s.posts[post.ID] = clonePost(*post)
	return nil
}

func (s *MemoryStore) GetPost(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	p = clonePost(p)
	return &p, nil
}

func (s *MemoryStore) ListPosts(_ context.Context, f models.PostFilter) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Post{}
	for _, p := range s.posts {
		if f.ClientID != nil && p.ClientID != *f.ClientID {
			continue
		}
		if f.CampaignID != nil && (p.CampaignID == nil || *p.CampaignID != *f.CampaignID) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && p.ScheduledTime.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && p.ScheduledTime.After(f.To) {
			continue
		}
		out = append(out, clonePost(p))
	}
	sortBySchedule(out)
	return out, nil
}

func (s *MemoryStore) FindDuePosts(_ context.Context, status models.PostStatus, now time.Time, limit int) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Post{}
	for _, p := range s.posts {
		if p.Status != status || p.ScheduledTime.After(now) {
			continue
		}
		if p.CampaignID != nil {
			if c, ok := s.campaigns[*p.CampaignID]; ok && !c.IsActive {
				continue
			}
		}
		out = append(out, clonePost(p))
	}
	sortBySchedule(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) TransitionPostStatus(_ context.Context, id primitive.ObjectID, from, to models.PostStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = s.now()
	s.posts[id] = p
	return true, nil
}

func (s *MemoryStore) CompleteGeneration(_ context.Context, id primitive.ObjectID, caption string, to models.PostStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok || p.Status != models.StatusGenerating {
		return false, nil
	}
	p.GeneratedCaption = &caption
	p.Status = to
	p.UpdatedAt = s.now()
	s.posts[id] = p
	return true, nil
}

func (s *MemoryStore) UpdatePostCaption(_ context.Context, id primitive.ObjectID, caption string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return models.ErrNotFound
	}
	p.GeneratedCaption = &caption
	p.UpdatedAt = s.now()
	s.posts[id] = p
	return nil
}

func (s *MemoryStore) DeletePost(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func clonePost(p models.Post) models.Post {
	if p.GeneratedCaption != nil {
		c := *p.GeneratedCaption
		p.GeneratedCaption = &c
	}
	if p.CampaignID != nil {
		id := *p.CampaignID
		p.CampaignID = &id
	}
	return p
}

func sortBySchedule(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].ScheduledTime.Equal(posts[j].ScheduledTime) {
			return posts[i].ID.Hex() < posts[j].ID.Hex()
		}
		return posts[i].ScheduledTime.Before(posts[j].ScheduledTime)
	})
}
