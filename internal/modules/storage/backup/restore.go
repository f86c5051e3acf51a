package backup

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/modules/content/gallery"
	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"github.com/drawing-gallery/core/internal/pkg/slug"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// legacyNamespace derives stable UUIDs from MongoDB ObjectIDs so post
// category references survive an import.
var legacyNamespace = uuid.MustParse("8f2d3c44-6a1e-4f4b-9d0e-52b1c7a9e6f3")

const maxEntryBytes = 256 << 20

// Restore replaces every gallery collection with the contents of a backup
// archive. Archives produced by Export and plain mongodump folders zipped up
// are both accepted. Nothing is written unless the whole archive imports.
func (s *Service) Restore(ctx context.Context, r io.ReaderAt, size int64) (RestoreStats, error) {
	var stats RestoreStats

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return stats, apperror.Invalid("file", "not a zip archive")
	}
	entries, err := readEntries(zr)
	if err != nil {
		return stats, err
	}
	if entries[collPosts] == nil && entries[collCategories] == nil {
		return stats, apperror.Invalid("file", "archive holds no posts or categories")
	}

	var (
		categories []categoryDoc
		posts      []postDoc
		videos     []youtubeDoc
		history    []slugHistoryDoc
	)
	if err := decodeInto(entries[collCategories], &categories); err != nil {
		return stats, apperror.Invalid("file", "categories: %v", err)
	}
	if err := decodeInto(entries[collPosts], &posts); err != nil {
		return stats, apperror.Invalid("file", "posts: %v", err)
	}
	if err := decodeInto(entries[collYouTube], &videos); err != nil {
		return stats, apperror.Invalid("file", "youtube: %v", err)
	}
	if err := decodeInto(entries[collSlugHistory], &history); err != nil {
		return stats, apperror.Invalid("file", "slug history: %v", err)
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{collSlugHistory, collPosts, collCategories, collYouTube} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return apperror.Storage("clear "+table, err)
			}
		}

		imp := importer{
			tx:         tx,
			now:        now,
			categories: slug.NewResolver(tx, collCategories, "custom_url", models.SlugTypeCategory),
			posts:      slug.NewResolver(tx, collPosts, "url_slug", models.SlugTypePost),
			seen:       make(map[string]bool),
			stats:      &stats,
		}
		for i := range categories {
			if err := imp.category(ctx, &categories[i]); err != nil {
				return err
			}
		}
		for i := range posts {
			if err := imp.post(ctx, &posts[i]); err != nil {
				return err
			}
		}
		if err := imp.youtube(videos); err != nil {
			return err
		}
		return imp.slugHistory(history)
	})
	if err != nil {
		return RestoreStats{}, err
	}
	return stats, nil
}

// readEntries indexes .bson files by collection name regardless of the
// folder they sit in.
func readEntries(zr *zip.Reader) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := path.Base(strings.ReplaceAll(f.Name, "\\", "/"))
		if !strings.HasSuffix(base, ".bson") {
			continue
		}
		name := strings.TrimSuffix(base, ".bson")
		switch name {
		case collPosts, collCategories, collYouTube, collSlugHistory:
		default:
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, apperror.Invalid("file", "open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
		rc.Close()
		if err != nil {
			return nil, apperror.Invalid("file", "read %s: %v", f.Name, err)
		}
		if len(data) > maxEntryBytes {
			return nil, apperror.Invalid("file", "%s is too large", f.Name)
		}
		out[name] = data
	}
	return out, nil
}

func decodeInto[T any](data []byte, out *[]T) error {
	docs, err := decodeBSONDocs(data)
	if err != nil {
		return err
	}
	items := make([]T, 0, len(docs))
	for i, raw := range docs {
		var item T
		if err := bson.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		items = append(items, item)
	}
	*out = items
	return nil
}

// mapID converts a stored identifier to the UUID form used by the database.
// ObjectIDs, in binary or hex form, map to a deterministic UUID.
func mapID(v bson.RawValue) (string, bool) {
	switch v.Type {
	case bson.TypeObjectID:
		oid := v.ObjectID()
		return uuid.NewSHA1(legacyNamespace, oid[:]).String(), true
	case bson.TypeString:
		s := strings.TrimSpace(v.StringValue())
		if id, err := uuid.Parse(s); err == nil {
			return id.String(), true
		}
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return uuid.NewSHA1(legacyNamespace, oid[:]).String(), true
		}
	}
	return "", false
}

type importer struct {
	tx         *gorm.DB
	now        time.Time
	categories *slug.Resolver
	posts      *slug.Resolver
	seen       map[string]bool
	stats      *RestoreStats
}

func (imp *importer) uniqueSlug(ctx context.Context, r *slug.Resolver, stored, source string) (string, error) {
	base := strings.TrimSpace(stored)
	if !slug.Valid(base) {
		base = slug.Generate(source)
	}
	resolved, err := r.EnsureUnique(ctx, base, "")
	if err != nil {
		return "", apperror.Storage("resolve slug", err)
	}
	if resolved != stored {
		imp.stats.RenamedSlugs++
	}
	return resolved, nil
}

func (imp *importer) timestamps(created, updated time.Time) (time.Time, time.Time) {
	if created.IsZero() {
		created = imp.now
	}
	if updated.IsZero() {
		updated = created
	}
	return created, updated
}

// claim returns the row id for a document, or "" when the id was already
// imported.
func (imp *importer) claim(v bson.RawValue) string {
	id, ok := mapID(v)
	if !ok {
		id = uuid.NewString()
	}
	if imp.seen[id] {
		return ""
	}
	imp.seen[id] = true
	return id
}

func (imp *importer) category(ctx context.Context, doc *categoryDoc) error {
	id := imp.claim(doc.ID)
	if id == "" {
		return nil
	}
	name := strings.TrimSpace(doc.Name)
	customURL, err := imp.uniqueSlug(ctx, imp.categories, doc.CustomURL, name)
	if err != nil {
		return err
	}

	row := models.CategoryModel{
		Base:             models.Base{ID: id},
		Name:             name,
		Thumbnail:        doc.Thumbnail,
		ShortDescription: doc.ShortDescription,
		LongDescription:  doc.LongDescription,
		CustomURL:        customURL,
		Keyword:          doc.Keyword,
	}
	row.CreatedAt, row.UpdatedAt = imp.timestamps(doc.CreatedAt, doc.UpdatedAt)
	if err := imp.tx.Create(&row).Error; err != nil {
		return apperror.Storage("restore category", err)
	}
	imp.stats.Categories++
	return nil
}

func (imp *importer) post(ctx context.Context, doc *postDoc) error {
	id := imp.claim(doc.ID)
	if id == "" {
		return nil
	}
	title := strings.TrimSpace(doc.Title)
	urlSlug, err := imp.uniqueSlug(ctx, imp.posts, doc.URLSlug, title)
	if err != nil {
		return err
	}

	status := models.StatusDraft
	if strings.EqualFold(strings.TrimSpace(doc.Status), string(models.StatusPublished)) {
		status = models.StatusPublished
	}

	row := models.PostModel{
		Base:           models.Base{ID: id},
		Title:          title,
		URLSlug:        urlSlug,
		Content:        doc.Content,
		Description:    doc.Description,
		Author:         doc.Author,
		Status:         status,
		FeaturedImage:  doc.FeaturedImage,
		DownloadLink:   doc.DownloadLink,
		Download5File:  doc.Download5File,
		Download10File: doc.Download10File,
		Download15File: doc.Download15File,
		Section2Title:  doc.Section2Title,
		Tags:           models.StringArray{},
	}
	if categoryID, ok := mapID(doc.CategoryID); ok {
		row.CategoryID = &categoryID
	}
	for _, t := range doc.Tags {
		if t = strings.TrimSpace(t); t != "" {
			row.Tags = append(row.Tags, t)
		}
	}

	section1 := make([]models.Section1Image, len(doc.Section1Images))
	for i, img := range doc.Section1Images {
		section1[i] = models.Section1Image{
			MainImageURL: img.MainImageURL,
			Title:        img.Title,
			ImageURL:     img.ImageURL,
			PDFURL:       img.PDFURL,
			Priority:     int(img.Priority),
		}
	}
	section2 := make([]models.Section2Image, len(doc.Section2Images))
	for i, img := range doc.Section2Images {
		section2[i] = models.Section2Image{
			ImageURL:    img.ImageURL,
			Title:       img.Title,
			Description: img.Description,
			Priority:    int(img.Priority),
		}
	}
	row.Section1Images = gallery.NormalizeSection1(section1)
	row.Section2Images = gallery.NormalizeSection2(section2)
	row.CreatedAt, row.UpdatedAt = imp.timestamps(doc.CreatedAt, doc.UpdatedAt)

	if err := imp.tx.Create(&row).Error; err != nil {
		return apperror.Storage("restore post", err)
	}
	imp.stats.Posts++
	return nil
}

// youtube keeps the most recently updated non-empty link.
func (imp *importer) youtube(docs []youtubeDoc) error {
	var latest *youtubeDoc
	for i := range docs {
		if strings.TrimSpace(docs[i].VideoURL) == "" {
			continue
		}
		if latest == nil || docs[i].UpdatedAt.After(latest.UpdatedAt) {
			latest = &docs[i]
		}
	}
	if latest == nil {
		return nil
	}
	_, updated := imp.timestamps(latest.UpdatedAt, latest.UpdatedAt)
	row := models.YouTubeModel{
		ID:        models.YouTubeSingletonID,
		VideoURL:  strings.TrimSpace(latest.VideoURL),
		UpdatedAt: updated,
	}
	if err := imp.tx.Create(&row).Error; err != nil {
		return apperror.Storage("restore youtube", err)
	}
	imp.stats.YouTube = 1
	return nil
}

// slugHistory keeps entries whose target was imported.
func (imp *importer) slugHistory(docs []slugHistoryDoc) error {
	type key struct{ slug, typ string }
	done := make(map[key]bool)
	for _, doc := range docs {
		if doc.Slug == "" || !imp.seen[doc.TargetID] {
			continue
		}
		if doc.Type != models.SlugTypePost && doc.Type != models.SlugTypeCategory {
			continue
		}
		k := key{doc.Slug, doc.Type}
		if done[k] {
			continue
		}
		done[k] = true

		row := models.SlugHistoryModel{
			Slug:      doc.Slug,
			Type:      doc.Type,
			TargetID:  doc.TargetID,
			CreatedAt: doc.CreatedAt,
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = imp.now
		}
		if err := imp.tx.Create(&row).Error; err != nil {
			return apperror.Storage("restore slug history", err)
		}
		imp.stats.SlugHistory++
	}
	return nil
}
