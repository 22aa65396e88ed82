package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"social-autopost-platform/internal/app"
	"social-autopost-platform/internal/auth"
	"social-autopost-platform/internal/config"
	"social-autopost-platform/internal/logger"
	"social-autopost-platform/models"
	"social-autopost-platform/services"
)

// seed creates (or finds) a client profile and prints a development access
// token for it. With -admin it prints an operator token instead.
func main() {
	userID := flag.String("user", "dev-user", "login identity the client belongs to")
	company := flag.String("company", "Demo Company", "company name")
	bio := flag.String("bio", "", "company bio used in captions")
	igToken := flag.String("ig-token", "", "Instagram Graph API access token")
	igBusiness := flag.String("ig-business", "", "Instagram business account id")
	logo := flag.String("logo", "", "stored logo path, relative to FILE_STORAGE_DIR")
	admin := flag.Bool("admin", false, "issue an operator token instead of creating a client")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg, "seed")

	var rdb *redis.Client
	if cfg.TokenRevocation {
		if rdb, err = config.NewRedisClient(cfg); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
	}
	tokens, err := auth.NewTokenManager(cfg.AccessSecret, rdb)
	if err != nil {
		log.Fatalf("Failed to initialize tokens: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *admin {
		token, exp, err := tokens.IssueAccessToken(ctx, *userID, "", services.RoleAdmin, *ttl)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Printf("Operator token for %s (expires %s):\n%s\n", *userID, exp.Format(time.RFC3339), token)
		return
	}

	store, err := app.OpenStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	client, err := store.GetClientByUserID(ctx, *userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		client = &models.Client{
			UserID:               *userID,
			CompanyName:          *company,
			CompanyBio:           *bio,
			InstagramAccessToken: *igToken,
			InstagramBusinessID:  *igBusiness,
			Logo:                 *logo,
		}
		if err := store.CreateClient(ctx, client); err != nil {
			log.Fatalf("Failed to create client: %v", err)
		}
		fmt.Printf("Created client %s (%s)\n", client.ID.Hex(), client.CompanyName)
	case err != nil:
		log.Fatalf("Failed to look up client: %v", err)
	default:
		fmt.Printf("Client already exists: %s (%s)\n", client.ID.Hex(), client.CompanyName)
	}

	token, exp, err := tokens.IssueAccessToken(ctx, client.UserID, client.ID.Hex(), services.RoleClient, *ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Printf("Access token (expires %s):\n%s\n", exp.Format(time.RFC3339), token)
}
