package backup

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/backups", authMW)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:filename", h.download)
	g.DELETE("/:filename", h.delete)
	g.POST("/:filename/restore", h.restoreFile)
	g.POST("/:filename/upload", h.upload)
	g.POST("/restore", h.restoreUpload)
}

// GET /backups
func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

// POST /backups
func (h *Handler) create(c *gin.Context) {
	item, err := h.svc.Create(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// GET /backups/:filename
func (h *Handler) download(c *gin.Context) {
	f, size, err := h.svc.Open(c.Param("filename"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, c.Param("filename")))
	c.DataFromReader(http.StatusOK, size, "application/zip", f, nil)
}

// DELETE /backups/:filename
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("filename")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// POST /backups/:filename/restore
func (h *Handler) restoreFile(c *gin.Context) {
	stats, err := h.svc.RestoreFile(c.Request.Context(), c.Param("filename"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// POST /backups/:filename/upload
func (h *Handler) upload(c *gin.Context) {
	key, err := h.svc.Upload(c.Request.Context(), c.Param("filename"))
	if errors.Is(err, ErrUploadDisabled) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"key": key})
}

// POST /backups/restore (multipart field "file")
func (h *Handler) restoreUpload(c *gin.Context) {
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

	stats, err := h.svc.Restore(c.Request.Context(), f, fh.Size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}
