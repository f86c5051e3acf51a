package slugtracker

import (
	"context"
	"errors"

	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service records retired slugs.
type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Track records that oldSlug of refType now belongs to targetID. A later
// retirement of the same slug overwrites the target.
func (s *Service) Track(ctx context.Context, oldSlug, refType, targetID string) error {
	if oldSlug == "" {
		return nil
	}
	entry := models.SlugHistoryModel{Slug: oldSlug, Type: refType, TargetID: targetID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"target_id"}),
	}).Create(&entry).Error
	return apperror.Storage("track slug", err)
}

// FindBySlug returns the target id for a retired slug, or "" when unknown.
func (s *Service) FindBySlug(ctx context.Context, slug, refType string) (string, error) {
	var entry models.SlugHistoryModel
	err := s.db.WithContext(ctx).Where("slug = ? AND type = ?", slug, refType).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperror.Storage("find slug history", err)
	}
	return entry.TargetID, nil
}

// DeleteByTargetID removes every entry pointing at targetID.
func (s *Service) DeleteByTargetID(ctx context.Context, targetID string) error {
	err := s.db.WithContext(ctx).Where("target_id = ?", targetID).Delete(&models.SlugHistoryModel{}).Error
	return apperror.Storage("delete slug history", err)
}

// Remove forgets one retired slug.
func (s *Service) Remove(ctx context.Context, slug, refType string) error {
	err := s.db.WithContext(ctx).Where("slug = ? AND type = ?", slug, refType).Delete(&models.SlugHistoryModel{}).Error
	return apperror.Storage("delete slug history", err)
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/slug-tracker")
	g.GET("/:type/:slug", h.lookup)
	g.DELETE("/:type/:slug", authMW, h.remove)
}

// GET /slug-tracker/:type/:slug
func (h *Handler) lookup(c *gin.Context) {
	refType := c.Param("type")
	slug := c.Param("slug")

	targetID, err := h.svc.FindBySlug(c.Request.Context(), slug, refType)
	if err != nil {
		response.Error(c, err)
		return
	}
	if targetID == "" {
		response.NotFound(c)
		return
	}
	response.OK(c, gin.H{"target_id": targetID, "type": refType, "slug": slug})
}

// DELETE /slug-tracker/:type/:slug
func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), c.Param("slug"), c.Param("type")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
