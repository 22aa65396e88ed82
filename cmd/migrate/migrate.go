package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"social-autopost-platform/internal/app"
	"social-autopost-platform/internal/config"
	"social-autopost-platform/internal/logger"
	"social-autopost-platform/models"
	"social-autopost-platform/services"
)

func usage() {
	fmt.Println("Usage: go run ./cmd/migrate <command> [flags]")
	fmt.Println("Commands:")
	fmt.Println("  indexes                     - Create or update the collection indexes")
	fmt.Println("  report                      - Print post counts per status")
	fmt.Println("  fail-stuck [-older-than d]  - Move posts stuck in generating/publishing to error")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := os.Args[1]

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg, "migrate")

	if cfg.StoreDriver != "mongo" {
		log.Fatalf("migrate only works against MongoDB (STORE_DRIVER=%s)", cfg.StoreDriver)
	}

	// opening the store ensures every index exists
	store, err := app.OpenStore(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "indexes":
		fmt.Println("Indexes are up to date")

	case "report":
		if err := report(ctx, store); err != nil {
			log.Fatalf("Report failed: %v", err)
		}

	case "fail-stuck":
		fs := flag.NewFlagSet("fail-stuck", flag.ExitOnError)
		olderThan := fs.Duration("older-than", 30*time.Minute, "minimum time a post has been in flight")
		fs.Parse(os.Args[2:])

		n, err := services.FailStuckPosts(ctx, store, *olderThan, time.Now())
		if err != nil {
			log.Fatalf("fail-stuck failed after %d posts: %v", n, err)
		}
		fmt.Printf("Moved %d stuck posts to error; requeue them from the admin API\n", n)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func report(ctx context.Context, store services.PostStore) error {
	counts, err := services.StatusCounts(ctx, store)
	if err != nil {
		return err
	}

	statuses := make([]models.PostStatus, 0, len(counts))
	total := 0
	for status, n := range counts {
		statuses = append(statuses, status)
		total += n
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })

	for _, status := range statuses {
		fmt.Printf("  %-18s %d\n", status.Label(), counts[status])
	}
	fmt.Printf("  %-18s %d\n", "Total", total)
	return nil
}
