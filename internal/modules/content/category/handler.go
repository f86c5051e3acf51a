package category

import (
	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	cats := rg.Group("/categories")
	cats.GET("", h.list)
	cats.GET("/:id", h.getByQuery)

	authed := cats.Group("", authMW)
	authed.POST("", h.create)
	authed.PUT("/:id", h.update)
	authed.PATCH("/:id", h.update)
	authed.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	cats, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]*Response, 0, len(cats))
	for i := range cats {
		out = append(out, ToResponse(&cats[i]))
	}
	response.OK(c, out)
}

// getByQuery accepts an id, a custom_url, or a retired custom_url.
func (h *Handler) getByQuery(c *gin.Context) {
	ctx := c.Request.Context()
	query := c.Param("id")

	var (
		cat *models.CategoryModel
		err error
	)
	if models.ValidID(query) {
		cat, err = h.svc.GetByID(ctx, query)
	}
	if err == nil && cat == nil {
		cat, err = h.svc.GetByCustomURL(ctx, query)
	}
	if err == nil && cat == nil {
		cat, err = h.svc.ResolveRetired(ctx, query)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	if cat == nil {
		response.NotFoundMsg(c, "category not found")
		return
	}
	response.OK(c, ToResponse(cat))
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateCategoryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := dto.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	cat, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ToResponse(cat))
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateCategoryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := dto.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	cat, err := h.svc.Update(c.Request.Context(), c.Param("id"), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ToResponse(cat))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
