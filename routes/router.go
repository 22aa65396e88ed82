package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"social-autopost-platform/internal/ai"
	"social-autopost-platform/internal/auth"
	"social-autopost-platform/internal/config"
	"social-autopost-platform/internal/telemetry"
	"social-autopost-platform/middleware"
	"social-autopost-platform/services"
)

const ServiceName = "social-autopost-api"

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// Deps is everything the HTTP surface needs.
type Deps struct {
	Config    *config.Config
	Tokens    *auth.TokenManager
	Redis     *redis.Client
	Metrics   *telemetry.Metrics
	Posts     *services.PostService
	Campaigns *services.CampaignService
	Exports   *services.ExportService
	Media     *services.MediaService
	Quota     *ai.DailyQuota
	Checks    map[string]HealthCheck
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLogger())
	if cfg.OTelEnabled {
		router.Use(middleware.TracingMiddleware(ServiceName))
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.MetricsMiddleware(d.Metrics))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RateLimitMiddleware(d.Redis, cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second))

	router.GET("/health", healthHandler(d.Checks))

	// the publishing API fetches post images from here
	router.Static(cfg.MediaURLPrefix, cfg.FileStorageDir)

	authMiddleware := middleware.NewAuthMiddleware(d.Tokens)
	roleMiddleware := middleware.NewRoleMiddleware()

	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	api.Use(roleMiddleware.ClientGuard())

	SetupPostRoutes(api, d.Posts, d.Exports, d.Media, d.Quota, cfg.MaxUploadSize, roleMiddleware)
	SetupCampaignRoutes(api, d.Campaigns, d.Media, cfg.MaxUploadSize)
	SetupSessionRoutes(api, d.Tokens)

	return router
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": results, "time": time.Now().UTC()})
	}
}
