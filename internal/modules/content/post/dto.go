package post

import (
	"strings"
	"time"

	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/modules/content/category"
	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"github.com/drawing-gallery/core/internal/pkg/slug"
)

// CreatePostDTO is the request body for creating a post.
type CreatePostDTO struct {
	Title          string                 `json:"title"`
	URLSlug        string                 `json:"url_slug"`
	Content        string                 `json:"content"`
	Description    string                 `json:"description"`
	CategoryID     *string                `json:"categoryId"`
	Author         string                 `json:"author"`
	Status         models.PostStatus      `json:"status"`
	FeaturedImage  string                 `json:"featuredImage"`
	DownloadLink   string                 `json:"download_link"`
	Download5File  string                 `json:"download_5_file"`
	Download10File string                 `json:"download_10_file"`
	Download15File string                 `json:"download_15_file"`
	Section1Images []models.Section1Image `json:"section1_images"`
	Section2Images []models.Section2Image `json:"section2_images"`
	Section2Title  string                 `json:"section2_title"`
	Tags           []string               `json:"tags"`
}

// Validate checks required fields, the status and an explicit url_slug.
func (d *CreatePostDTO) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return apperror.Invalid("title", "title is required")
	}
	if strings.TrimSpace(d.Content) == "" {
		return apperror.Invalid("content", "content is required")
	}
	if d.Status == "" {
		d.Status = models.StatusDraft
	}
	if err := validateStatus(d.Status); err != nil {
		return err
	}
	d.URLSlug = strings.TrimSpace(d.URLSlug)
	return validateURLSlug(d.URLSlug)
}

// UpdatePostDTO is the request body for updating a post (all fields optional).
type UpdatePostDTO struct {
	Title          *string                 `json:"title"`
	URLSlug        *string                 `json:"url_slug"`
	Content        *string                 `json:"content"`
	Description    *string                 `json:"description"`
	CategoryID     *string                 `json:"categoryId"`
	Author         *string                 `json:"author"`
	Status         *models.PostStatus      `json:"status"`
	FeaturedImage  *string                 `json:"featuredImage"`
	DownloadLink   *string                 `json:"download_link"`
	Download5File  *string                 `json:"download_5_file"`
	Download10File *string                 `json:"download_10_file"`
	Download15File *string                 `json:"download_15_file"`
	Section1Images *[]models.Section1Image `json:"section1_images"`
	Section2Images *[]models.Section2Image `json:"section2_images"`
	Section2Title  *string                 `json:"section2_title"`
	Tags           *[]string               `json:"tags"`
}

// Validate rejects blank required fields, unknown statuses and malformed slugs.
func (d *UpdatePostDTO) Validate() error {
	if d.Title != nil {
		title := strings.TrimSpace(*d.Title)
		if title == "" {
			return apperror.Invalid("title", "title cannot be empty")
		}
		d.Title = &title
	}
	if d.Content != nil && strings.TrimSpace(*d.Content) == "" {
		return apperror.Invalid("content", "content cannot be empty")
	}
	if d.Status != nil {
		if err := validateStatus(*d.Status); err != nil {
			return err
		}
	}
	if d.URLSlug != nil {
		s := strings.TrimSpace(*d.URLSlug)
		d.URLSlug = &s
		return validateURLSlug(s)
	}
	return nil
}

func validateStatus(s models.PostStatus) error {
	if !s.Valid() {
		return apperror.Invalid("status", "status must be %q or %q", models.StatusDraft, models.StatusPublished)
	}
	return nil
}

func validateURLSlug(s string) error {
	if s != "" && !slug.Valid(s) {
		return apperror.Invalid("url_slug", "url slug can only contain lowercase letters, numbers, and hyphens")
	}
	return nil
}

// cleanTags trims tags and drops blank ones, keeping order.
func cleanTags(tags []string) models.StringArray {
	if tags == nil {
		return nil
	}
	out := make(models.StringArray, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// categoryRef turns an empty id into no reference.
func categoryRef(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ListQuery holds the filters of the post listing. Page and Limit are
// normalised by the service.
type ListQuery struct {
	Page     int
	Limit    int
	Sort     string
	Category string
	Search   string
}

const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortAZ     = "a-z"
	SortZA     = "z-a"
)

// postResponse is the API response shape for a post.
type postResponse struct {
	ID             string                 `json:"id"`
	Title          string                 `json:"title"`
	URLSlug        string                 `json:"url_slug"`
	Content        string                 `json:"content"`
	Description    string                 `json:"description"`
	CategoryID     *string                `json:"categoryId"`
	Category       *category.Response     `json:"category"`
	Author         string                 `json:"author"`
	Status         models.PostStatus      `json:"status"`
	FeaturedImage  string                 `json:"featuredImage"`
	DownloadLink   string                 `json:"download_link"`
	Download5File  string                 `json:"download_5_file"`
	Download10File string                 `json:"download_10_file"`
	Download15File string                 `json:"download_15_file"`
	Section1Images []models.Section1Image `json:"section1_images"`
	Section2Images []models.Section2Image `json:"section2_images"`
	Section2Title  string                 `json:"section2_title"`
	Tags           []string               `json:"tags"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

func toResponse(p *Post) postResponse {
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	s1 := []models.Section1Image(p.Section1Images)
	if s1 == nil {
		s1 = []models.Section1Image{}
	}
	s2 := []models.Section2Image(p.Section2Images)
	if s2 == nil {
		s2 = []models.Section2Image{}
	}
	return postResponse{
		ID:             p.ID,
		Title:          p.Title,
		URLSlug:        p.URLSlug,
		Content:        p.Content,
		Description:    p.Description,
		CategoryID:     p.CategoryID,
		Category:       category.ToResponse(p.Category),
		Author:         p.Author,
		Status:         p.Status,
		FeaturedImage:  p.FeaturedImage,
		DownloadLink:   p.DownloadLink,
		Download5File:  p.Download5File,
		Download10File: p.Download10File,
		Download15File: p.Download15File,
		Section1Images: s1,
		Section2Images: s2,
		Section2Title:  p.Section2Title,
		Tags:           tags,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
