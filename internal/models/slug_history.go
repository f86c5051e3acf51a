package models

import "time"

// Slug owner types.
const (
	SlugTypePost     = "post"
	SlugTypeCategory = "category"
)

// SlugHistoryModel remembers a slug a post or category used to have so old
// links keep resolving.
type SlugHistoryModel struct {
	ID        uint      `json:"-"         gorm:"primaryKey"`
	Slug      string    `json:"slug"      gorm:"size:255;not null;uniqueIndex:idx_slug_type"`
	Type      string    `json:"type"      gorm:"size:16;not null;uniqueIndex:idx_slug_type"`
	TargetID  string    `json:"target_id" gorm:"size:36;not null;index"`
	CreatedAt time.Time `json:"createdAt"`
}

func (SlugHistoryModel) TableName() string { return "slug_histories" }
