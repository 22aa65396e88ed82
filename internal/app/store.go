package app

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"social-autopost-platform/internal/config"
	"social-autopost-platform/internal/database"
	"social-autopost-platform/internal/logger"
	"social-autopost-platform/services"
)

// Store is an opened entity store with its health probe and closer.
type Store struct {
	services.Store
	Ping  func(ctx context.Context) error
	Close func()
}

// OpenStore connects the driver named by STORE_DRIVER. The memory driver
// keeps state inside one process.
func OpenStore(cfg *config.Config) (*Store, error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("Using in-memory store; data is lost on exit")
		return &Store{
			Store: database.NewMemoryStore(),
			Ping:  func(context.Context) error { return nil },
			Close: func() {},
		}, nil
	}

	client, err := config.ConnectMongoDB(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to MongoDB", "db", cfg.DBName)

	return &Store{
		Store: database.NewMongoStore(client.Database(cfg.DBName)),
		Ping:  func(ctx context.Context) error { return client.Ping(ctx, nil) },
		Close: func() { disconnect(client) },
	}, nil
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Error("MongoDB disconnect failed", "error", err)
	}
}
