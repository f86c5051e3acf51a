package post

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/modules/content/gallery"
	"github.com/drawing-gallery/core/internal/modules/system/util/slugtracker"
	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"github.com/drawing-gallery/core/internal/pkg/pagination"
	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/drawing-gallery/core/internal/pkg/slug"
	"gorm.io/gorm"
)

const fallbackSlug = "post"

// CategoryLookup resolves the categories posts point at.
type CategoryLookup interface {
	GetByID(ctx context.Context, id string) (*models.CategoryModel, error)
	ByIDs(ctx context.Context, ids []string) (map[string]*models.CategoryModel, error)
}

// Post is a stored post with its category attached. Category is nil when the
// post has no category or the category no longer exists.
type Post struct {
	models.PostModel
	Category *models.CategoryModel
}

// PostPage is one page of the post listing.
type PostPage struct {
	Posts      []Post
	Pagination response.Pagination
}

// SlugChange reports one slug rewritten by BackfillSlugs.
type SlugChange struct {
	ID    string
	Title string
	From  string
	To    string
}

// Service handles post persistence.
type Service struct {
	db          *gorm.DB
	resolver    *slug.Resolver
	categories  CategoryLookup
	slugTracker *slugtracker.Service
	now         func() time.Time
}

// NewService creates a post service. categories may be nil, in which case
// posts are returned without their category.
func NewService(db *gorm.DB, categories CategoryLookup) *Service {
	return &Service{
		db:         db,
		resolver:   slug.NewResolver(db, "posts", "url_slug", fallbackSlug),
		categories: categories,
		now:        time.Now,
	}
}

// SetSlugTracker wires up url_slug change tracking (optional).
func (s *Service) SetSlugTracker(st *slugtracker.Service) { s.slugTracker = st }

// GetByID returns (nil, nil) when the id is malformed, unknown, or the post is
// not visible in the given mode.
func (s *Service) GetByID(ctx context.Context, id string, admin bool) (*Post, error) {
	if !models.ValidID(id) {
		return nil, nil
	}
	return s.first(ctx, admin, "id = ?", id)
}

// GetBySlug looks a post up by url_slug, following retired slugs to their
// current owner.
func (s *Service) GetBySlug(ctx context.Context, urlSlug string, admin bool) (*Post, error) {
	if urlSlug == "" {
		return nil, nil
	}
	p, err := s.first(ctx, admin, "url_slug = ?", urlSlug)
	if err != nil || p != nil || s.slugTracker == nil {
		return p, err
	}
	id, err := s.slugTracker.FindBySlug(ctx, urlSlug, models.SlugTypePost)
	if err != nil || id == "" {
		return nil, err
	}
	return s.GetByID(ctx, id, admin)
}

func (s *Service) first(ctx context.Context, admin bool, query string, args ...interface{}) (*Post, error) {
	tx := s.db.WithContext(ctx).Where(query, args...)
	if !admin {
		tx = tx.Where("status = ?", models.StatusPublished)
	}
	var row models.PostModel
	if err := tx.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Storage("find post", err)
	}
	return s.attach(ctx, &row), nil
}

// attach looks up the post's category. A failed lookup leaves it nil.
func (s *Service) attach(ctx context.Context, row *models.PostModel) *Post {
	p := &Post{PostModel: *row}
	if s.categories == nil || row.CategoryID == nil {
		return p
	}
	if cat, err := s.categories.GetByID(ctx, *row.CategoryID); err == nil {
		p.Category = cat
	}
	return p
}

// List returns one page of posts. Public mode only sees published posts.
func (s *Service) List(ctx context.Context, q ListQuery, admin bool) (*PostPage, error) {
	pq := pagination.Query{Page: q.Page, Limit: q.Limit}.Normalize()

	tx := s.db.WithContext(ctx).Model(&models.PostModel{})
	if !admin {
		tx = tx.Where("status = ?", models.StatusPublished)
	}
	if cat := strings.TrimSpace(q.Category); cat != "" && cat != "all" {
		tx = tx.Where("category_id = ?", cat)
	}
	if pattern := searchPattern(q.Search); pattern != "" {
		tx = tx.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!' OR tag_search LIKE ? ESCAPE '!')",
			pattern, pattern, pattern)
	}
	tx = applySort(tx, q.Sort)

	var rows []models.PostModel
	pag, err := pagination.Paginate(tx, pq, &rows)
	if err != nil {
		return nil, apperror.Storage("list posts", err)
	}

	return &PostPage{Posts: s.attachAll(ctx, rows), Pagination: pag}, nil
}

// attachAll resolves the categories of a page with a single lookup.
func (s *Service) attachAll(ctx context.Context, rows []models.PostModel) []Post {
	out := make([]Post, len(rows))
	ids := make([]string, 0, len(rows))
	for i := range rows {
		out[i].PostModel = rows[i]
		if rows[i].CategoryID != nil {
			ids = append(ids, *rows[i].CategoryID)
		}
	}
	if s.categories == nil || len(ids) == 0 {
		return out
	}
	cats, err := s.categories.ByIDs(ctx, ids)
	if err != nil {
		return out
	}
	for i := range out {
		if out[i].CategoryID != nil {
			out[i].Category = cats[*out[i].CategoryID]
		}
	}
	return out
}

// searchPattern builds a LIKE pattern for a case-insensitive substring match,
// escaping wildcards with '!'. Returns "" for a blank term.
func searchPattern(term string) string {
	term = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(term, models.TagSeparator, "")))
	if term == "" {
		return ""
	}
	term = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(term)
	return "%" + term + "%"
}

func applySort(tx *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case SortOldest:
		return tx.Order("created_at ASC").Order("id ASC")
	case SortAZ:
		return tx.Order("title ASC").Order("id ASC")
	case SortZA:
		return tx.Order("title DESC").Order("id DESC")
	default:
		return tx.Order("created_at DESC").Order("id DESC")
	}
}

// Create inserts a post. url_slug is taken from the DTO or derived from the
// title, then made unique.
func (s *Service) Create(ctx context.Context, dto *CreatePostDTO) (*Post, error) {
	base := dto.URLSlug
	if base == "" {
		base = slug.Generate(dto.Title)
	}
	status := dto.Status
	if status == "" {
		status = models.StatusDraft
	}

	now := s.now()
	row := models.PostModel{
		Title:          dto.Title,
		Content:        dto.Content,
		Description:    dto.Description,
		CategoryID:     categoryRef(dto.CategoryID),
		Author:         dto.Author,
		Status:         status,
		FeaturedImage:  dto.FeaturedImage,
		DownloadLink:   dto.DownloadLink,
		Download5File:  dto.Download5File,
		Download10File: dto.Download10File,
		Download15File: dto.Download15File,
		Section1Images: gallery.NormalizeSection1(orEmpty(dto.Section1Images)),
		Section2Images: gallery.NormalizeSection2(orEmpty(dto.Section2Images)),
		Section2Title:  dto.Section2Title,
		Tags:           cleanTags(orEmpty(dto.Tags)),
	}
	row.CreatedAt = now
	row.UpdatedAt = now

	_, err := slug.InsertWithRetry(ctx, "posts",
		func(ctx context.Context) (string, error) { return s.resolver.EnsureUnique(ctx, base, "") },
		func(ctx context.Context, u string) error {
			row.URLSlug = u
			return s.db.WithContext(ctx).Create(&row).Error
		})
	if err != nil {
		return nil, apperror.Storage("create post", err)
	}
	return s.attach(ctx, &row), nil
}

// Update patches a post. An explicit url_slug is made unique against the other
// posts; otherwise a changed title re-derives it; otherwise it is kept.
func (s *Service) Update(ctx context.Context, id string, dto *UpdatePostDTO) (*Post, error) {
	current, err := s.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperror.ErrNotFound
	}
	row := &current.PostModel

	updates := map[string]interface{}{}
	setString := func(column string, v *string) {
		if v != nil {
			updates[column] = *v
		}
	}
	setString("title", dto.Title)
	setString("content", dto.Content)
	setString("description", dto.Description)
	setString("author", dto.Author)
	setString("featured_image", dto.FeaturedImage)
	setString("download_link", dto.DownloadLink)
	setString("download_5_file", dto.Download5File)
	setString("download_10_file", dto.Download10File)
	setString("download_15_file", dto.Download15File)
	setString("section2_title", dto.Section2Title)
	if dto.CategoryID != nil {
		updates["category_id"] = categoryRef(dto.CategoryID)
	}
	if dto.Status != nil {
		updates["status"] = *dto.Status
	}
	if dto.Section1Images != nil {
		updates["section1_images"] = models.JSONList[models.Section1Image](gallery.NormalizeSection1(orEmpty(*dto.Section1Images)))
	}
	if dto.Section2Images != nil {
		updates["section2_images"] = models.JSONList[models.Section2Image](gallery.NormalizeSection2(orEmpty(*dto.Section2Images)))
	}
	if dto.Tags != nil {
		tags := cleanTags(orEmpty(*dto.Tags))
		updates["tags"] = tags
		updates["tag_search"] = models.JoinTags(tags)
	}
	updates["updated_at"] = s.now()

	var base string
	rederive := false
	switch {
	case dto.URLSlug != nil && *dto.URLSlug != "":
		base, rederive = *dto.URLSlug, true
	case dto.Title != nil && *dto.Title != row.Title:
		base, rederive = slug.Generate(*dto.Title), true
	}

	oldSlug := row.URLSlug
	write := func(ctx context.Context) error {
		return s.db.WithContext(ctx).Model(&models.PostModel{}).Where("id = ?", row.ID).Updates(updates).Error
	}
	if rederive {
		_, err = slug.InsertWithRetry(ctx, "posts",
			func(ctx context.Context) (string, error) { return s.resolver.EnsureUnique(ctx, base, row.ID) },
			func(ctx context.Context, u string) error {
				updates["url_slug"] = u
				return write(ctx)
			})
	} else {
		err = write(ctx)
	}
	if err != nil {
		return nil, apperror.Storage("update post", err)
	}

	if newSlug, ok := updates["url_slug"].(string); ok && newSlug != oldSlug && s.slugTracker != nil {
		if err := s.slugTracker.Track(ctx, oldSlug, models.SlugTypePost, row.ID); err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, row.ID, true)
}

// ApplyImageCommands edits the image lists of a post and stores the
// normalised result.
func (s *Service) ApplyImageCommands(ctx context.Context, id string, cmds []gallery.Command) (*Post, error) {
	current, err := s.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperror.ErrNotFound
	}

	lists, err := gallery.Apply(gallery.Lists{
		Section1: current.Section1Images,
		Section2: current.Section2Images,
	}, cmds)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&models.PostModel{}).Where("id = ?", current.ID).Updates(map[string]interface{}{
		"section1_images": models.JSONList[models.Section1Image](orEmpty(lists.Section1)),
		"section2_images": models.JSONList[models.Section2Image](orEmpty(lists.Section2)),
		"updated_at":      s.now(),
	}).Error
	if err != nil {
		return nil, apperror.Storage("update post images", err)
	}
	return s.GetByID(ctx, current.ID, true)
}

// Delete removes a post for good.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !models.ValidID(id) {
		return apperror.ErrNotFound
	}
	res := s.db.WithContext(ctx).Delete(&models.PostModel{}, "id = ?", id)
	if res.Error != nil {
		return apperror.Storage("delete post", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	if s.slugTracker != nil {
		return s.slugTracker.DeleteByTargetID(ctx, id)
	}
	return nil
}

// BackfillSlugs gives every post whose url_slug is empty or malformed a fresh
// unique slug derived from its title, oldest post first. With dryRun nothing
// is written and the returned targets are computed against the current data.
func (s *Service) BackfillSlugs(ctx context.Context, dryRun bool) ([]SlugChange, error) {
	var rows []models.PostModel
	err := s.db.WithContext(ctx).Select("id", "title", "url_slug", "created_at").
		Order("created_at ASC").Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, apperror.Storage("scan posts", err)
	}

	var changes []SlugChange
	for _, row := range rows {
		if slug.Valid(row.URLSlug) {
			continue
		}
		base := slug.Generate(row.Title)
		change := SlugChange{ID: row.ID, Title: row.Title, From: row.URLSlug}
		if dryRun {
			if change.To, err = s.resolver.EnsureUnique(ctx, base, row.ID); err != nil {
				return changes, err
			}
			changes = append(changes, change)
			continue
		}

		change.To, err = slug.InsertWithRetry(ctx, "posts",
			func(ctx context.Context) (string, error) { return s.resolver.EnsureUnique(ctx, base, row.ID) },
			func(ctx context.Context, u string) error {
				return s.db.WithContext(ctx).Model(&models.PostModel{}).Where("id = ?", row.ID).
					Updates(map[string]interface{}{"url_slug": u, "updated_at": s.now()}).Error
			})
		if err != nil {
			return changes, apperror.Storage("backfill slug", err)
		}
		if s.slugTracker != nil {
			if err := s.slugTracker.Track(ctx, row.URLSlug, models.SlugTypePost, row.ID); err != nil {
				return changes, err
			}
		}
		changes = append(changes, change)
	}
	return changes, nil
}

func orEmpty[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
