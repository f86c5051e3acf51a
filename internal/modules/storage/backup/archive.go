package backup

import (
	"archive/zip"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"go.mongodb.org/mongo-driver/bson"
)

// Export writes every gallery collection into w as a zip of concatenated
// BSON documents, one file per collection.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	db := s.db.WithContext(ctx)

	var categories []models.CategoryModel
	if err := db.Order("created_at ASC, id ASC").Find(&categories).Error; err != nil {
		return apperror.Storage("export categories", err)
	}
	var posts []models.PostModel
	if err := db.Order("created_at ASC, id ASC").Find(&posts).Error; err != nil {
		return apperror.Storage("export posts", err)
	}
	var videos []models.YouTubeModel
	if err := db.Find(&videos).Error; err != nil {
		return apperror.Storage("export youtube", err)
	}
	var history []models.SlugHistoryModel
	if err := db.Order("id ASC").Find(&history).Error; err != nil {
		return apperror.Storage("export slug history", err)
	}

	collections := []struct {
		name string
		docs []any
	}{
		{collCategories, mapDocs(categories, categoryToDoc)},
		{collPosts, mapDocs(posts, postToDoc)},
		{collYouTube, mapDocs(videos, youtubeToDoc)},
		{collSlugHistory, mapDocs(history, slugHistoryToDoc)},
	}

	zw := zip.NewWriter(w)
	m := manifest{
		Format:    archiveFormat,
		Version:   archiveVersion,
		CreatedAt: s.now().UTC(),
		Counts:    make(map[string]int, len(collections)),
	}
	for _, coll := range collections {
		payload, err := encodeBSONDocs(coll.docs)
		if err != nil {
			return fmt.Errorf("encode %s: %w", coll.name, err)
		}
		f, err := zw.Create(path.Join(archiveDBDir, coll.name+".bson"))
		if err != nil {
			return err
		}
		if _, err := f.Write(payload); err != nil {
			return err
		}
		m.Counts[coll.name] = len(coll.docs)
	}

	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	f, err := zw.Create(manifestFile)
	if err != nil {
		return err
	}
	if _, err := f.Write(raw); err != nil {
		return err
	}
	return zw.Close()
}

func mapDocs[T any](rows []T, fn func(*T) any) []any {
	out := make([]any, len(rows))
	for i := range rows {
		out[i] = fn(&rows[i])
	}
	return out
}

func stringValue(s string) bson.RawValue {
	t, v, err := bson.MarshalValue(s)
	if err != nil {
		return bson.RawValue{}
	}
	return bson.RawValue{Type: t, Value: v}
}

func categoryToDoc(c *models.CategoryModel) any {
	return categoryDoc{
		ID:               stringValue(c.ID),
		Name:             c.Name,
		Thumbnail:        c.Thumbnail,
		ShortDescription: c.ShortDescription,
		LongDescription:  c.LongDescription,
		CustomURL:        c.CustomURL,
		Keyword:          c.Keyword,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func postToDoc(p *models.PostModel) any {
	doc := postDoc{
		ID:             stringValue(p.ID),
		Title:          p.Title,
		URLSlug:        p.URLSlug,
		Content:        p.Content,
		Description:    p.Description,
		Author:         p.Author,
		Status:         string(p.Status),
		FeaturedImage:  p.FeaturedImage,
		DownloadLink:   p.DownloadLink,
		Download5File:  p.Download5File,
		Download10File: p.Download10File,
		Download15File: p.Download15File,
		Section1Images: make([]section1Doc, len(p.Section1Images)),
		Section2Images: make([]section2Doc, len(p.Section2Images)),
		Section2Title:  p.Section2Title,
		Tags:           flexStrings(p.Tags),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.CategoryID != nil {
		doc.CategoryID = stringValue(*p.CategoryID)
	}
	for i, img := range p.Section1Images {
		doc.Section1Images[i] = section1Doc{
			Kind:         string(img.Kind),
			MainImageURL: img.MainImageURL,
			Title:        img.Title,
			ImageURL:     img.ImageURL,
			PDFURL:       img.PDFURL,
			Priority:     flexInt(img.Priority),
		}
	}
	for i, img := range p.Section2Images {
		doc.Section2Images[i] = section2Doc{
			ImageURL:    img.ImageURL,
			Title:       img.Title,
			Description: img.Description,
			Priority:    flexInt(img.Priority),
		}
	}
	return doc
}

func youtubeToDoc(y *models.YouTubeModel) any {
	return youtubeDoc{VideoURL: y.VideoURL, UpdatedAt: y.UpdatedAt}
}

func slugHistoryToDoc(h *models.SlugHistoryModel) any {
	return slugHistoryDoc{Slug: h.Slug, Type: h.Type, TargetID: h.TargetID, CreatedAt: h.CreatedAt}
}

// encodeBSONDocs produces the mongodump layout: documents back to back with
// no separator.
func encodeBSONDocs(docs []any) ([]byte, error) {
	var out []byte
	for i, doc := range docs {
		raw, err := bson.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out = append(out, raw...)
	}
	return out, nil
}

// decodeBSONDocs splits a concatenated BSON stream into raw documents.
func decodeBSONDocs(data []byte) ([]bson.Raw, error) {
	var docs []bson.Raw
	for offset := 0; offset < len(data); {
		if len(data)-offset < 5 {
			return nil, fmt.Errorf("truncated bson document at offset %d", offset)
		}
		size := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		if size < 5 || offset+size > len(data) {
			return nil, fmt.Errorf("invalid bson document length %d at offset %d", size, offset)
		}
		doc := bson.Raw(data[offset : offset+size])
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("document at offset %d: %w", offset, err)
		}
		docs = append(docs, doc)
		offset += size
	}
	return docs, nil
}
