package media

import (
	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/media", authMW)
	g.POST("", h.upload)
	g.DELETE("", h.delete)
}

// POST /media (multipart field "file")
func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer f.Close()

	up, err := h.svc.Upload(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, up)
}

// DELETE /media?key=...
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Query("key")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
