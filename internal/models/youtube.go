package models

import "time"

// YouTubeSingletonID is the primary key of the only settings row.
const YouTubeSingletonID = 1

// YouTubeModel holds the featured video link shown on the home page.
type YouTubeModel struct {
	ID        uint      `json:"-"         gorm:"primaryKey;autoIncrement:false"`
	VideoURL  string    `json:"videoUrl"  gorm:"column:video_url"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (YouTubeModel) TableName() string { return "youtube" }
