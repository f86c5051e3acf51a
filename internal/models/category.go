package models

// CategoryModel groups posts on the public site. Posts reference it by id
// without a foreign key.
type CategoryModel struct {
	Base
	Name             string `json:"name"              gorm:"size:255;not null"`
	Thumbnail        string `json:"thumbnail"`
	ShortDescription string `json:"short_description"`
	LongDescription  string `json:"long_description"`
	CustomURL        string `json:"custom_url"        gorm:"size:255;uniqueIndex;not null"`
	Keyword          string `json:"keyword"`
}

func (CategoryModel) TableName() string { return "categories" }
