package post

import (
	"strings"

	"github.com/drawing-gallery/core/internal/middleware"
	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/modules/content/gallery"
	"github.com/drawing-gallery/core/internal/pkg/pagination"
	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// Handler handles post HTTP requests.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts post routes onto the given router group. Reads run in
// admin mode when the request carries a valid token.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	posts := rg.Group("/posts")

	posts.GET("", h.list)
	posts.GET("/:id", h.getByIdentifier)
	rg.GET("/categories/:id/posts", h.listByCategory)

	authed := posts.Group("", authMW)
	authed.POST("", h.create)
	authed.PUT("/:id", h.update)
	authed.PATCH("/:id", h.update)
	authed.PATCH("/:id/images", h.applyImageCommands)
	authed.DELETE("/:id", h.delete)
}

func listQueryFrom(c *gin.Context) ListQuery {
	p := pagination.FromContext(c)
	return ListQuery{
		Page:     p.Page,
		Limit:    p.Limit,
		Sort:     strings.TrimSpace(c.Query("sort")),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
}

// list GET /posts
func (h *Handler) list(c *gin.Context) {
	h.respondPage(c, listQueryFrom(c))
}

// listByCategory GET /categories/:id/posts
func (h *Handler) listByCategory(c *gin.Context) {
	q := listQueryFrom(c)
	q.Category = c.Param("id")
	if !models.ValidID(q.Category) {
		response.NotFoundMsg(c, "category not found")
		return
	}
	h.respondPage(c, q)
}

func (h *Handler) respondPage(c *gin.Context, q ListQuery) {
	page, err := h.svc.List(c.Request.Context(), q, middleware.IsAuthenticated(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]postResponse, len(page.Posts))
	for i := range page.Posts {
		items[i] = toResponse(&page.Posts[i])
	}
	response.Paged(c, items, page.Pagination)
}

// getByIdentifier GET /posts/:id accepts an id or a url_slug.
func (h *Handler) getByIdentifier(c *gin.Context) {
	ctx := c.Request.Context()
	identifier := c.Param("id")
	isAdmin := middleware.IsAuthenticated(c)

	var (
		p   *Post
		err error
	)
	if models.ValidID(identifier) {
		p, err = h.svc.GetByID(ctx, identifier, isAdmin)
	}
	if err == nil && p == nil {
		p, err = h.svc.GetBySlug(ctx, identifier, isAdmin)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	if p == nil {
		response.NotFoundMsg(c, "post not found")
		return
	}
	response.OK(c, toResponse(p))
}

// create POST /posts
func (h *Handler) create(c *gin.Context) {
	var dto CreatePostDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := dto.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	p, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toResponse(p))
}

// update PUT/PATCH /posts/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdatePostDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := dto.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toResponse(p))
}

// applyImageCommands PATCH /posts/:id/images
func (h *Handler) applyImageCommands(c *gin.Context) {
	var body struct {
		Commands []gallery.Command `json:"commands"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.ApplyImageCommands(c.Request.Context(), c.Param("id"), body.Commands)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toResponse(p))
}

// delete DELETE /posts/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
