package feed

import (
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/drawing-gallery/core/internal/config"
	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const defaultLimit = 20

type Item struct {
	Title     string
	Link      string
	GUID      string
	Published time.Time
	Updated   time.Time
	Summary   string
	Image     string
}

// Service lists the newest published posts for RSS and Atom readers.
type Service struct {
	db    *gorm.DB
	site  config.SiteConfig
	limit int
	now   func() time.Time
}

func NewService(db *gorm.DB, site config.SiteConfig) *Service {
	site.BaseURL = strings.TrimRight(site.BaseURL, "/")
	return &Service{db: db, site: site, limit: defaultLimit, now: time.Now}
}

func (s *Service) Items(ctx context.Context) ([]Item, error) {
	var posts []models.PostModel
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusPublished).
		Order("created_at DESC, id DESC").
		Limit(s.limit).
		Find(&posts).Error
	if err != nil {
		return nil, apperror.Storage("list feed posts", err)
	}

	items := make([]Item, len(posts))
	for i, p := range posts {
		items[i] = Item{
			Title:     p.Title,
			Link:      s.site.BaseURL + "/" + p.URLSlug,
			GUID:      p.ID,
			Published: p.CreatedAt,
			Updated:   p.UpdatedAt,
			Summary:   p.Description,
			Image:     p.FeaturedImage,
		}
	}
	return items, nil
}

type rssEnclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	GUID        string        `xml:"guid"`
	PubDate     string        `xml:"pubDate"`
	Description string        `xml:"description,omitempty"`
	Enclosure   *rssEnclosure `xml:"enclosure,omitempty"`
}

type rssDoc struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel struct {
		Title         string    `xml:"title"`
		Link          string    `xml:"link"`
		Description   string    `xml:"description"`
		LastBuildDate string    `xml:"lastBuildDate"`
		Items         []rssItem `xml:"item"`
	} `xml:"channel"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
}

type atomEntry struct {
	Title     string   `xml:"title"`
	Link      atomLink `xml:"link"`
	ID        string   `xml:"id"`
	Published string   `xml:"published"`
	Updated   string   `xml:"updated"`
	Summary   string   `xml:"summary,omitempty"`
}

type atomDoc struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Title   string      `xml:"title"`
	Link    []atomLink  `xml:"link"`
	ID      string      `xml:"id"`
	Updated string      `xml:"updated"`
	Entries []atomEntry `xml:"entry"`
}

func (s *Service) RSS(items []Item) ([]byte, error) {
	var doc rssDoc
	doc.Version = "2.0"
	doc.Channel.Title = s.site.Name
	doc.Channel.Link = s.site.BaseURL
	doc.Channel.Description = s.site.Name
	doc.Channel.LastBuildDate = s.now().UTC().Format(time.RFC1123Z)
	for _, it := range items {
		entry := rssItem{
			Title:       it.Title,
			Link:        it.Link,
			GUID:        it.GUID,
			PubDate:     it.Published.UTC().Format(time.RFC1123Z),
			Description: it.Summary,
		}
		if it.Image != "" {
			entry.Enclosure = &rssEnclosure{URL: it.Image, Type: imageType(it.Image)}
		}
		doc.Channel.Items = append(doc.Channel.Items, entry)
	}
	return marshal(doc)
}

func (s *Service) Atom(items []Item) ([]byte, error) {
	doc := atomDoc{
		Title:   s.site.Name,
		Link:    []atomLink{{Href: s.site.BaseURL}, {Href: s.site.BaseURL + "/atom.xml", Rel: "self"}},
		ID:      s.site.BaseURL + "/",
		Updated: s.now().UTC().Format(time.RFC3339),
	}
	for _, it := range items {
		doc.Entries = append(doc.Entries, atomEntry{
			Title:     it.Title,
			Link:      atomLink{Href: it.Link},
			ID:        "urn:uuid:" + it.GUID,
			Published: it.Published.UTC().Format(time.RFC3339),
			Updated:   it.Updated.UTC().Format(time.RFC3339),
			Summary:   it.Summary,
		})
	}
	return marshal(doc)
}

func marshal(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func imageType(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".svg"):
		return "image/svg+xml"
	default:
		return "image/jpeg"
	}
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts /feed.xml (RSS) and /atom.xml.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/feed.xml", h.render("rss"))
	rg.GET("/atom.xml", h.render("atom"))
}

func (h *Handler) render(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := h.svc.Items(c.Request.Context())
		if err != nil {
			c.String(http.StatusInternalServerError, "error generating feed")
			return
		}
		var (
			body        []byte
			contentType string
		)
		if kind == "atom" {
			body, err = h.svc.Atom(items)
			contentType = "application/atom+xml; charset=utf-8"
		} else {
			body, err = h.svc.RSS(items)
			contentType = "application/rss+xml; charset=utf-8"
		}
		if err != nil {
			c.String(http.StatusInternalServerError, "error generating feed")
			return
		}
		c.Data(http.StatusOK, contentType, body)
	}
}
