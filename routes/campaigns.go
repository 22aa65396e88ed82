package routes

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/middleware"
	"social-autopost-platform/models"
	"social-autopost-platform/services"
	"social-autopost-platform/utils"
)

type campaignHandler struct {
	campaigns *services.CampaignService
	media     *services.MediaService
}

func SetupCampaignRoutes(api *gin.RouterGroup, campaigns *services.CampaignService, media *services.MediaService, maxUpload int64) {
	h := &campaignHandler{campaigns: campaigns, media: media}

	g := api.Group("/campaigns")
	g.GET("", h.list)
	// a pool upload may carry several images
	g.POST("", middleware.RequestSizeLimit(maxUpload*10), h.create)
	g.GET("/:id", h.get)
	g.POST("/:id/stop", h.stop)
	g.POST("/:id/restart", h.restart)
	g.DELETE("/:id", h.delete)
}

// create accepts JSON, or a multipart form whose "images" files become the
// campaign's image pool.
func (h *campaignHandler) create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ctx, cancel := utils.WithLongTimeout(c.Request.Context())
	defer cancel()

	var req models.CreateCampaignRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondWithBadRequest(c, "Invalid campaign payload", gin.H{"error": err.Error()})
		return
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		files = form.File["images"]
	}

	images := make([]string, 0, len(files))
	for _, file := range files {
		path, err := h.media.SaveUpload(ctx, file, services.FolderCampaignImages)
		if err != nil {
			respondError(c, err)
			return
		}
		images = append(images, path)
	}

	campaign, err := h.campaigns.CreateCampaign(ctx, p, &req, images)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"campaign": campaign, "images": len(images)})
}

func (h *campaignHandler) list(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	campaigns, err := h.campaigns.ListCampaigns(ctx, p)
	if err != nil {
		respondError(c, err)
		return
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns, "count": len(campaigns)})
}

func (h *campaignHandler) get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	campaign, err := h.campaigns.GetCampaign(ctx, p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

func (h *campaignHandler) stop(c *gin.Context) {
	h.toggle(c, h.campaigns.Stop, false)
}

func (h *campaignHandler) restart(c *gin.Context) {
	h.toggle(c, h.campaigns.Restart, true)
}

func (h *campaignHandler) toggle(c *gin.Context, action func(ctx context.Context, p services.Principal, id primitive.ObjectID) error, active bool) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	if err := action(ctx, p, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id.Hex(), "is_active": active})
}

func (h *campaignHandler) delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	if err := h.campaigns.Delete(ctx, p, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
