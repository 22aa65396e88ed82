package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"social-autopost-platform/models"
)

const (
	CollectionClients        = "clients"
	CollectionCampaigns      = "campaigns"
	CollectionCampaignImages = "campaign_images"
	CollectionPosts          = "posts"
)

// MongoStore is the MongoDB backed entity store.
type MongoStore struct {
	clients   *mongo.Collection
	campaigns *mongo.Collection
	images    *mongo.Collection
	posts     *mongo.Collection
	now       func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		clients:   db.Collection(CollectionClients),
		campaigns: db.Collection(CollectionCampaigns),
		images:    db.Collection(CollectionCampaignImages),
		posts:     db.Collection(CollectionPosts),
		now:       time.Now,
	}
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ErrNotFound
	}
	return err
}

// Clients

func (s *MongoStore) CreateClient(ctx context.Context, client *models.Client) error {
	now := s.now()
	if client.ID.IsZero() {
		client.ID = primitive.NewObjectID()
	}
	client.CreatedAt, client.UpdatedAt = now, now
	if _, err := s.clients.InsertOne(ctx, client); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicate
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (s *MongoStore) GetClient(ctx context.Context, id primitive.ObjectID) (*models.Client, error) {
	var client models.Client
	if err := s.clients.FindOne(ctx, bson.M{"_id": id}).Decode(&client); err != nil {
		return nil, notFound(err)
	}
	return &client, nil
}

func (s *MongoStore) GetClientByUserID(ctx context.Context, userID string) (*models.Client, error) {
	var client models.Client
	if err := s.clients.FindOne(ctx, bson.M{"user_id": userID}).Decode(&client); err != nil {
		return nil, notFound(err)
	}
	return &client, nil
}

// Campaigns

func (s *MongoStore) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	now := s.now()
	if campaign.ID.IsZero() {
		campaign.ID = primitive.NewObjectID()
	}
	campaign.CreatedAt, campaign.UpdatedAt = now, now
	if _, err := s.campaigns.InsertOne(ctx, campaign); err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (s *MongoStore) GetCampaign(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := s.campaigns.FindOne(ctx, bson.M{"_id": id}).Decode(&campaign); err != nil {
		return nil, notFound(err)
	}
	return &campaign, nil
}

func (s *MongoStore) ListCampaigns(ctx context.Context, clientID *primitive.ObjectID) ([]models.Campaign, error) {
	filter := bson.M{}
	if clientID != nil {
		filter["client_id"] = *clientID
	}
	opts := options.Find().SetSort(bson.D{{Key: "is_active", Value: -1}, {Key: "created_at", Value: -1}})
	cursor, err := s.campaigns.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	campaigns := []models.Campaign{}
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (s *MongoStore) SetCampaignActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := s.campaigns.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_active": active, "updated_at": s.now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteCampaign(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.campaigns.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	if _, err := s.images.DeleteMany(ctx, bson.M{"campaign_id": id}); err != nil {
		return fmt.Errorf("delete campaign images: %w", err)
	}
	// Detached posts drop their slot key too, otherwise the unique
	// (campaign_id, slot_key) index would collide on campaign_id=null.
	_, err = s.posts.UpdateMany(ctx, bson.M{"campaign_id": id}, bson.M{
		"$set":   bson.M{"campaign_id": nil, "updated_at": s.now()},
		"$unset": bson.M{"slot_key": ""},
	})
	if err != nil {
		return fmt.Errorf("detach campaign posts: %w", err)
	}
	return nil
}

func (s *MongoStore) ClaimCampaignExpansion(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := s.campaigns.UpdateOne(ctx,
		bson.M{"_id": id, "expanded_at": nil},
		bson.M{"$set": bson.M{"expanded_at": at, "updated_at": s.now()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *MongoStore) AddCampaignImage(ctx context.Context, image *models.CampaignImage) error {
	if image.ID.IsZero() {
		image.ID = primitive.NewObjectID()
	}
	image.CreatedAt = s.now()
	_, err := s.images.InsertOne(ctx, image)
	return err
}

func (s *MongoStore) ListCampaignImages(ctx context.Context, campaignID primitive.ObjectID) ([]models.CampaignImage, error) {
	cursor, err := s.images.Find(ctx, bson.M{"campaign_id": campaignID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	images := []models.CampaignImage{}
	if err := cursor.All(ctx, &images); err != nil {
		return nil, err
	}
	return images, nil
}

// Posts

func (s *MongoStore) CreatePost(ctx context.Context, post *models.Post) error {
	now := s.now()
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	post.CreatedAt, post.UpdatedAt = now, now
	if _, err := s.posts.InsertOne(ctx, post); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicate
		}
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *MongoStore) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (s *MongoStore) ListPosts(ctx context.Context, f models.PostFilter) ([]models.Post, error) {
	filter := bson.M{}
	if f.ClientID != nil {
		filter["client_id"] = *f.ClientID
	}
	if f.CampaignID != nil {
		filter["campaign_id"] = *f.CampaignID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	window := bson.M{}
	if !f.From.IsZero() {
		window["$gte"] = f.From
	}
	if !f.To.IsZero() {
		window["$lte"] = f.To
	}
	if len(window) > 0 {
		filter["scheduled_time"] = window
	}

	cursor, err := s.posts.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "scheduled_time", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *MongoStore) FindDuePosts(ctx context.Context, status models.PostStatus, now time.Time, limit int) ([]models.Post, error) {
	filter := bson.M{
		"status":         status,
		"scheduled_time": bson.M{"$lte": now},
	}

	inactive, err := s.campaigns.Distinct(ctx, "_id", bson.M{"is_active": false})
	if err != nil {
		return nil, fmt.Errorf("load inactive campaigns: %w", err)
	}
	if len(inactive) > 0 {
		filter["campaign_id"] = bson.M{"$nin": inactive}
	}

	opts := options.Find().SetSort(bson.D{{Key: "scheduled_time", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *MongoStore) TransitionPostStatus(ctx context.Context, id primitive.ObjectID, from, to models.PostStatus) (bool, error) {
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": s.now()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *MongoStore) CompleteGeneration(ctx context.Context, id primitive.ObjectID, caption string, to models.PostStatus) (bool, error) {
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusGenerating},
		bson.M{"$set": bson.M{"generated_caption": caption, "status": to, "updated_at": s.now()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *MongoStore) UpdatePostCaption(ctx context.Context, id primitive.ObjectID, caption string) error {
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"generated_caption": caption, "updated_at": s.now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
