package models

import (
	"strings"

	"gorm.io/gorm"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "Draft"
	StatusPublished PostStatus = "Published"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// ImageKind tells the primary section-one image apart from the rest.
type ImageKind string

const (
	ImagePrimary   ImageKind = "primary"
	ImageSecondary ImageKind = "secondary"
)

// Section1Image is one entry of the first gallery section. Only secondary
// images carry an image and PDF link.
type Section1Image struct {
	Kind         ImageKind `json:"kind"`
	MainImageURL string    `json:"main_image_url"`
	Title        string    `json:"title"`
	ImageURL     string    `json:"imageUrl"`
	PDFURL       string    `json:"pdfUrl"`
	Priority     int       `json:"priority"`
}

// Section2Image is one entry of the second gallery section.
type Section2Image struct {
	ImageURL    string `json:"imageUrl"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

// TagSeparator joins tags in the search column. It never appears in a search term.
const TagSeparator = "\x1f"

// PostModel is a gallery post.
type PostModel struct {
	Base
	Title          string                   `json:"title"           gorm:"size:512;not null;index"`
	URLSlug        string                   `json:"url_slug"        gorm:"column:url_slug;size:255;uniqueIndex;not null"`
	Content        string                   `json:"content"`
	Description    string                   `json:"description"`
	CategoryID     *string                  `json:"categoryId"      gorm:"column:category_id;size:36;index"`
	Author         string                   `json:"author"`
	Status         PostStatus               `json:"status"          gorm:"size:16;not null;default:Draft;index"`
	FeaturedImage  string                   `json:"featuredImage"`
	DownloadLink   string                   `json:"download_link"`
	Download5File  string                   `json:"download_5_file"  gorm:"column:download_5_file"`
	Download10File string                   `json:"download_10_file" gorm:"column:download_10_file"`
	Download15File string                   `json:"download_15_file" gorm:"column:download_15_file"`
	Section1Images JSONList[Section1Image] `json:"section1_images" gorm:"column:section1_images"`
	Section2Images JSONList[Section2Image] `json:"section2_images" gorm:"column:section2_images"`
	Section2Title  string                   `json:"section2_title"`
	Tags           StringArray              `json:"tags"`
	TagSearch      string                   `json:"-"               gorm:"column:tag_search"`
}

func (PostModel) TableName() string { return "posts" }

func (p *PostModel) BeforeSave(tx *gorm.DB) error {
	p.TagSearch = JoinTags(p.Tags)
	return nil
}

// JoinTags builds the lowercase search column for tags.
func JoinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	cleaned := make([]string, len(tags))
	for i, t := range tags {
		cleaned[i] = strings.ToLower(strings.ReplaceAll(t, TagSeparator, ""))
	}
	return TagSeparator + strings.Join(cleaned, TagSeparator) + TagSeparator
}
