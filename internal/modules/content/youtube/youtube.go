// Package youtube stores the featured video shown on the home page.
package youtube

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service { return &Service{db: db, now: time.Now} }

// Get returns the stored video URL, or nil when none was ever set.
func (s *Service) Get(ctx context.Context) (*string, error) {
	var row models.YouTubeModel
	err := s.db.WithContext(ctx).Where("id = ?", models.YouTubeSingletonID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Storage("get youtube link", err)
	}
	if row.VideoURL == "" {
		return nil, nil
	}
	return &row.VideoURL, nil
}

// Set creates or replaces the single settings row.
func (s *Service) Set(ctx context.Context, videoURL string) error {
	row := models.YouTubeModel{ID: models.YouTubeSingletonID, VideoURL: videoURL, UpdatedAt: s.now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"video_url", "updated_at"}),
	}).Create(&row).Error
	return apperror.Storage("set youtube link", err)
}

// ValidateURL accepts links on youtube.com or youtu.be.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return apperror.Invalid("videoUrl", "video URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return apperror.Invalid("videoUrl", "invalid YouTube URL")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "youtu.be" && host != "youtube.com" && !strings.HasSuffix(host, ".youtube.com") {
		return apperror.Invalid("videoUrl", "invalid YouTube URL")
	}
	return nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/youtube")
	g.GET("", h.get)
	g.POST("", authMW, h.set)
	g.PUT("", authMW, h.set)
}

// GET /youtube
func (h *Handler) get(c *gin.Context) {
	videoURL, err := h.svc.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"videoUrl": videoURL})
}

// POST /youtube
func (h *Handler) set(c *gin.Context) {
	var body struct {
		VideoURL string `json:"videoUrl"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := ValidateURL(body.VideoURL); err != nil {
		response.Error(c, err)
		return
	}
	videoURL := strings.TrimSpace(body.VideoURL)
	if err := h.svc.Set(c.Request.Context(), videoURL); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"videoUrl": videoURL})
}
