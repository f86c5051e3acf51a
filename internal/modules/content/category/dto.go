package category

import (
	"strings"
	"time"

	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"github.com/drawing-gallery/core/internal/pkg/markdown"
	"github.com/drawing-gallery/core/internal/pkg/slug"
)

// CreateCategoryDTO is the request body for creating a category.
type CreateCategoryDTO struct {
	Name             string `json:"name"`
	Thumbnail        string `json:"thumbnail"`
	ShortDescription string `json:"short_description"`
	LongDescription  string `json:"long_description"`
	CustomURL        string `json:"custom_url"`
	Keyword          string `json:"keyword"`
}

// Validate trims the name and checks the optional custom_url.
func (d *CreateCategoryDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return apperror.Invalid("name", "category name is required")
	}
	d.CustomURL = strings.TrimSpace(d.CustomURL)
	return validateCustomURL(d.CustomURL)
}

// UpdateCategoryDTO is the request body for updating a category (all fields optional).
type UpdateCategoryDTO struct {
	Name             *string `json:"name"`
	Thumbnail        *string `json:"thumbnail"`
	ShortDescription *string `json:"short_description"`
	LongDescription  *string `json:"long_description"`
	CustomURL        *string `json:"custom_url"`
	Keyword          *string `json:"keyword"`
}

// Validate rejects a blank name and a malformed custom_url.
func (d *UpdateCategoryDTO) Validate() error {
	if d.Name != nil {
		name := strings.TrimSpace(*d.Name)
		if name == "" {
			return apperror.Invalid("name", "category name cannot be empty")
		}
		d.Name = &name
	}
	if d.CustomURL != nil {
		u := strings.TrimSpace(*d.CustomURL)
		d.CustomURL = &u
		return validateCustomURL(u)
	}
	return nil
}

func validateCustomURL(u string) error {
	if u != "" && !slug.Valid(u) {
		return apperror.Invalid("custom_url", "custom URL can only contain lowercase letters, numbers, and hyphens")
	}
	return nil
}

// Response is the API shape of a category, with rendered descriptions.
type Response struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Thumbnail            string    `json:"thumbnail"`
	ShortDescription     string    `json:"short_description"`
	ShortDescriptionHTML string    `json:"short_description_html"`
	LongDescription      string    `json:"long_description"`
	LongDescriptionHTML  string    `json:"long_description_html"`
	CustomURL            string    `json:"custom_url"`
	Keyword              string    `json:"keyword"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// ToResponse converts a stored category. Nil stays nil.
func ToResponse(c *models.CategoryModel) *Response {
	if c == nil {
		return nil
	}
	return &Response{
		ID:                   c.ID,
		Name:                 c.Name,
		Thumbnail:            c.Thumbnail,
		ShortDescription:     c.ShortDescription,
		ShortDescriptionHTML: markdown.Render(c.ShortDescription),
		LongDescription:      c.LongDescription,
		LongDescriptionHTML:  markdown.Render(c.LongDescription),
		CustomURL:            c.CustomURL,
		Keyword:              c.Keyword,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}
