package sitemap

import (
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Paths kept out of search engines.
var disallowed = []string{"/api/", "/admin/", "/temp/", "/signin/", "/signup/"}

type URL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

type Service struct {
	db      *gorm.DB
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(db *gorm.DB, baseURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, baseURL: strings.TrimRight(baseURL, "/"), logger: logger, now: time.Now}
}

// URLs lists the static pages followed by every published post, newest
// first.
func (s *Service) URLs(ctx context.Context) ([]URL, error) {
	urls := s.staticPages()

	var posts []models.PostModel
	err := s.db.WithContext(ctx).
		Select("url_slug", "created_at", "updated_at").
		Where("status = ? AND url_slug <> ''", models.StatusPublished).
		Order("created_at DESC, id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, apperror.Storage("list sitemap posts", err)
	}
	for _, p := range posts {
		mod := p.UpdatedAt
		if mod.IsZero() {
			mod = p.CreatedAt
		}
		urls = append(urls, URL{
			Loc:        s.baseURL + "/" + p.URLSlug,
			LastMod:    mod.UTC().Format(time.DateOnly),
			ChangeFreq: "monthly",
			Priority:   0.7,
		})
	}
	return urls, nil
}

// XML renders the sitemap. A database failure degrades to the static pages.
func (s *Service) XML(ctx context.Context) ([]byte, error) {
	urls, err := s.URLs(ctx)
	if err != nil {
		s.logger.Warn("sitemap falls back to static pages", zap.Error(err))
		urls = s.staticPages()
	}
	body, err := xml.MarshalIndent(urlSet{Xmlns: xmlns, URLs: urls}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func (s *Service) staticPages() []URL {
	today := s.now().UTC().Format(time.DateOnly)
	return []URL{
		{Loc: s.baseURL, LastMod: today, ChangeFreq: "weekly", Priority: 1.0},
		{Loc: s.baseURL + "/gallery", LastMod: today, ChangeFreq: "daily", Priority: 0.9},
		{Loc: s.baseURL + "/categories", LastMod: today, ChangeFreq: "weekly", Priority: 0.8},
		{Loc: s.baseURL + "/privacy", LastMod: today, ChangeFreq: "monthly", Priority: 0.3},
	}
}

// Robots renders robots.txt.
func (s *Service) Robots() string {
	var b strings.Builder
	b.WriteString("User-agent: *\nAllow: /\n")
	for _, p := range disallowed {
		b.WriteString("Disallow: " + p + "\n")
	}
	b.WriteString("\nSitemap: " + s.baseURL + "/sitemap.xml\n")
	return b.String()
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sitemap.xml", h.sitemap)
	rg.GET("/robots.txt", h.robots)
}

func (h *Handler) sitemap(c *gin.Context) {
	body, err := h.svc.XML(c.Request.Context())
	if err != nil {
		c.String(http.StatusInternalServerError, "error generating sitemap")
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}

func (h *Handler) robots(c *gin.Context) {
	c.String(http.StatusOK, h.svc.Robots())
}
