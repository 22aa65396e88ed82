package routes

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/internal/ai"
	"social-autopost-platform/middleware"
	"social-autopost-platform/models"
	"social-autopost-platform/services"
	"social-autopost-platform/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type postHandler struct {
	posts   *services.PostService
	exports *services.ExportService
	media   *services.MediaService
	quota   *ai.DailyQuota
}

func SetupPostRoutes(api *gin.RouterGroup, posts *services.PostService, exports *services.ExportService, media *services.MediaService, quota *ai.DailyQuota, maxUpload int64, roles *middleware.RoleMiddleware) {
	h := &postHandler{posts: posts, exports: exports, media: media, quota: quota}

	g := api.Group("/posts")
	g.GET("", h.list)
	g.POST("", middleware.RequestSizeLimit(maxUpload), h.create)
	g.GET("/export", h.export)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/submit", h.submit)
	g.POST("/:id/approve", h.approve)
	g.POST("/:id/regenerate", h.regenerate)
	g.PUT("/:id/caption", h.editCaption)
	g.POST("/:id/requeue", roles.AdminGuard(), h.requeue)
}

// create accepts a multipart form with an "image" file, or JSON naming an
// already stored image.
func (h *postHandler) create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ctx, cancel := utils.WithLongTimeout(c.Request.Context())
	defer cancel()

	var req models.CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondWithBadRequest(c, "Invalid post payload", gin.H{"error": err.Error()})
		return
	}

	if file, err := c.FormFile("image"); err == nil {
		path, err := h.media.SaveUpload(ctx, file, services.FolderPostImages)
		if err != nil {
			respondError(c, err)
			return
		}
		req.Image = path
	} else if req.Image != "" {
		if _, err := h.media.Path(req.Image); err != nil {
			respondError(c, err)
			return
		}
	}

	post, err := h.posts.CreatePost(ctx, p, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *postHandler) list(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	filter, ok := parsePostFilter(c)
	if !ok {
		return
	}
	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	posts, err := h.posts.ListPosts(ctx, p, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
}

func (h *postHandler) export(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	filter, ok := parsePostFilter(c)
	if !ok {
		return
	}
	ctx, cancel := utils.WithLongTimeout(c.Request.Context())
	defer cancel()

	f, err := h.exports.ExportCalendar(ctx, p, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("content_calendar_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		c.Error(err)
	}
}

func (h *postHandler) get(c *gin.Context) {
	h.withPost(c, h.posts.GetPost)
}

func (h *postHandler) submit(c *gin.Context) {
	h.withPost(c, h.posts.SubmitDraft)
}

func (h *postHandler) approve(c *gin.Context) {
	h.withPost(c, h.posts.Approve)
}

func (h *postHandler) requeue(c *gin.Context) {
	h.withPost(c, h.posts.Requeue)
}

// regenerate calls the model synchronously, so it draws on the caller's
// daily quota.
func (h *postHandler) regenerate(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	owner := p.UserID
	if !p.ClientID.IsZero() {
		owner = p.ClientID.Hex()
	}
	if err := h.quota.Consume(c.Request.Context(), owner); err != nil {
		respondError(c, err)
		return
	}
	h.withPost(c, h.posts.RegenerateCaption)
}

func (h *postHandler) editCaption(c *gin.Context) {
	var req models.UpdateCaptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "Invalid caption payload", gin.H{"error": err.Error()})
		return
	}
	caption := strings.TrimSpace(req.GeneratedCaption)
	if caption == "" {
		utils.RespondWithBadRequest(c, "generated_caption must not be empty", nil)
		return
	}
	h.withPost(c, func(ctx context.Context, p services.Principal, id primitive.ObjectID) (*models.Post, error) {
		return h.posts.EditCaption(ctx, p, id, caption)
	})
}

func (h *postHandler) delete(c *gin.Context) {
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

	if err := h.posts.DeletePost(ctx, p, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type postAction func(ctx context.Context, p services.Principal, id primitive.ObjectID) (*models.Post, error)

func (h *postHandler) withPost(c *gin.Context, action postAction) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.WithLongTimeout(c.Request.Context())
	defer cancel()

	post, err := action(ctx, p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// parsePostFilter reads status, campaign_id, from and to. Dates are
// RFC 3339 or YYYY-MM-DD.
func parsePostFilter(c *gin.Context) (models.PostFilter, bool) {
	var filter models.PostFilter

	if s := c.Query("status"); s != "" {
		status := models.PostStatus(s)
		if !status.Valid() {
			utils.RespondWithBadRequest(c, "Unknown status", gin.H{"status": s})
			return filter, false
		}
		filter.Status = status
	}
	if s := c.Query("campaign_id"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid campaign_id", gin.H{"value": s})
			return filter, false
		}
		filter.CampaignID = &id
	}
	for key, dst := range map[string]*time.Time{"from": &filter.From, "to": &filter.To} {
		s := c.Query(key)
		if s == "" {
			continue
		}
		t, err := parseQueryTime(s)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid "+key, gin.H{"value": s})
			return filter, false
		}
		*dst = t
	}
	return filter, true
}

func parseQueryTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(models.DateLayout, s)
}
