package backup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

const (
	archiveRoot     = "drawing-gallery"
	archiveDBDir    = archiveRoot + "/db"
	manifestFile    = archiveRoot + "/manifest.json"
	archiveFormat   = "drawing-gallery-bson"
	archiveVersion  = 1
	filenamePrefix  = "backup-"
	filenameLayout  = "2006-01-02T15-04-05"
	defaultKeep     = 7
	s3KeyTemplate   = "backups/{Y}/{m}/{filename}"
	collPosts       = "posts"
	collCategories  = "categories"
	collYouTube     = "youtube"
	collSlugHistory = "slug_histories"
)

type manifest struct {
	Format    string         `json:"format"`
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	Counts    map[string]int `json:"counts"`
}

// Item describes one archive in the backup directory.
type Item struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// RestoreStats counts the rows written per collection.
type RestoreStats struct {
	Categories   int `json:"categories"`
	Posts        int `json:"posts"`
	YouTube      int `json:"youtube"`
	SlugHistory  int `json:"slugHistory"`
	RenamedSlugs int `json:"renamedSlugs"`
}

// Documents use the field names of the original MongoDB collections so a
// mongodump of the legacy site restores with the same decoder.

type categoryDoc struct {
	ID               bson.RawValue `bson:"_id"`
	Name             string        `bson:"name"`
	Thumbnail        string        `bson:"thumbnail,omitempty"`
	ShortDescription string        `bson:"short_description,omitempty"`
	LongDescription  string        `bson:"long_description,omitempty"`
	CustomURL        string        `bson:"custom_url"`
	Keyword          string        `bson:"keyword,omitempty"`
	CreatedAt        time.Time     `bson:"createdAt"`
	UpdatedAt        time.Time     `bson:"updatedAt"`
}

type section1Doc struct {
	Kind         string  `bson:"kind,omitempty"`
	MainImageURL string  `bson:"main_image_url"`
	Title        string  `bson:"title"`
	ImageURL     string  `bson:"imageUrl,omitempty"`
	PDFURL       string  `bson:"pdfUrl,omitempty"`
	Priority     flexInt `bson:"priority"`
}

type section2Doc struct {
	ImageURL    string  `bson:"imageUrl"`
	Title       string  `bson:"title"`
	Description string  `bson:"description,omitempty"`
	Priority    flexInt `bson:"priority"`
}

type postDoc struct {
	ID             bson.RawValue `bson:"_id"`
	Title          string        `bson:"title"`
	URLSlug        string        `bson:"url_slug"`
	Content        string        `bson:"content"`
	Description    string        `bson:"description,omitempty"`
	CategoryID     bson.RawValue `bson:"categoryId,omitempty"`
	Author         string        `bson:"author,omitempty"`
	Status         string        `bson:"status"`
	FeaturedImage  string        `bson:"featuredImage,omitempty"`
	DownloadLink   string        `bson:"download_link,omitempty"`
	Download5File  string        `bson:"download_5_file,omitempty"`
	Download10File string        `bson:"download_10_file,omitempty"`
	Download15File string        `bson:"download_15_file,omitempty"`
	Section1Images []section1Doc `bson:"section1_images"`
	Section2Images []section2Doc `bson:"section2_images"`
	Section2Title  string        `bson:"section2_title,omitempty"`
	Tags           flexStrings   `bson:"tags"`
	CreatedAt      time.Time     `bson:"createdAt"`
	UpdatedAt      time.Time     `bson:"updatedAt"`
}

type youtubeDoc struct {
	VideoURL  string    `bson:"videoUrl"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type slugHistoryDoc struct {
	Slug      string    `bson:"slug"`
	Type      string    `bson:"type"`
	TargetID  string    `bson:"targetId"`
	CreatedAt time.Time `bson:"createdAt"`
}

// flexInt decodes numbers stored as int32, int64, double or numeric string.
type flexInt int

func (f flexInt) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(int32(f))
}

func (f *flexInt) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeInt32:
		*f = flexInt(raw.Int32())
	case bson.TypeInt64:
		*f = flexInt(raw.Int64())
	case bson.TypeDouble:
		*f = flexInt(raw.Double())
	case bson.TypeString:
		n, err := strconv.Atoi(strings.TrimSpace(raw.StringValue()))
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexInt(n)
	case bson.TypeNull, bson.TypeUndefined:
		*f = 0
	default:
		return fmt.Errorf("priority: unsupported bson type %s", t)
	}
	return nil
}

// flexStrings decodes an array of strings or a comma separated string.
type flexStrings []string

func (f flexStrings) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if f == nil {
		return bson.MarshalValue([]string{})
	}
	return bson.MarshalValue([]string(f))
}

func (f *flexStrings) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeArray:
		var out []string
		if err := raw.Unmarshal(&out); err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		*f = out
	case bson.TypeString:
		var out []string
		for _, part := range strings.Split(raw.StringValue(), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*f = out
	case bson.TypeNull, bson.TypeUndefined:
		*f = nil
	default:
		return fmt.Errorf("tags: unsupported bson type %s", t)
	}
	return nil
}
