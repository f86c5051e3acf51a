package category

import (
	"context"
	"errors"
	"time"

	"github.com/drawing-gallery/core/internal/config"
	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/modules/system/util/slugtracker"
	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"github.com/drawing-gallery/core/internal/pkg/slug"
	"gorm.io/gorm"
)

const fallbackSlug = "category"

// Service handles category persistence.
type Service struct {
	db          *gorm.DB
	resolver    *slug.Resolver
	slugTracker *slugtracker.Service
	policy      string
	now         func() time.Time
}

// NewService creates a category service. policy is one of the
// config.DeletePolicy* values and decides what happens to posts of a deleted
// category.
func NewService(db *gorm.DB, policy string) *Service {
	if policy == "" {
		policy = config.DeletePolicyKeep
	}
	return &Service{
		db:       db,
		resolver: slug.NewResolver(db, "categories", "custom_url", fallbackSlug),
		policy:   policy,
		now:      time.Now,
	}
}

// SetSlugTracker wires up custom_url change tracking (optional).
func (s *Service) SetSlugTracker(st *slugtracker.Service) { s.slugTracker = st }

// List returns every category ordered by name.
func (s *Service) List(ctx context.Context) ([]models.CategoryModel, error) {
	var cats []models.CategoryModel
	if err := s.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&cats).Error; err != nil {
		return nil, apperror.Storage("list categories", err)
	}
	return cats, nil
}

// GetByID returns (nil, nil) when the id is malformed or unknown.
func (s *Service) GetByID(ctx context.Context, id string) (*models.CategoryModel, error) {
	if !models.ValidID(id) {
		return nil, nil
	}
	return s.first(ctx, "id = ?", id)
}

// GetByCustomURL returns (nil, nil) when no category uses customURL.
func (s *Service) GetByCustomURL(ctx context.Context, customURL string) (*models.CategoryModel, error) {
	if customURL == "" {
		return nil, nil
	}
	return s.first(ctx, "custom_url = ?", customURL)
}

// ResolveRetired maps a former custom_url to the category now owning it.
func (s *Service) ResolveRetired(ctx context.Context, customURL string) (*models.CategoryModel, error) {
	if s.slugTracker == nil {
		return nil, nil
	}
	id, err := s.slugTracker.FindBySlug(ctx, customURL, models.SlugTypeCategory)
	if err != nil || id == "" {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Service) first(ctx context.Context, query string, args ...interface{}) (*models.CategoryModel, error) {
	var cat models.CategoryModel
	if err := s.db.WithContext(ctx).Where(query, args...).First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Storage("find category", err)
	}
	return &cat, nil
}

// ByIDs loads the categories with the given ids in one query, keyed by id.
// Malformed and unknown ids are skipped.
func (s *Service) ByIDs(ctx context.Context, ids []string) (map[string]*models.CategoryModel, error) {
	seen := make(map[string]struct{}, len(ids))
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || !models.ValidID(id) {
			continue
		}
		seen[id] = struct{}{}
		valid = append(valid, id)
	}

	out := make(map[string]*models.CategoryModel, len(valid))
	if len(valid) == 0 {
		return out, nil
	}

	var cats []models.CategoryModel
	if err := s.db.WithContext(ctx).Where("id IN ?", valid).Find(&cats).Error; err != nil {
		return nil, apperror.Storage("load categories", err)
	}
	for i := range cats {
		out[cats[i].ID] = &cats[i]
	}
	return out, nil
}

// Create inserts a category. custom_url is taken from the DTO or derived from
// the name, then made unique.
func (s *Service) Create(ctx context.Context, dto *CreateCategoryDTO) (*models.CategoryModel, error) {
	base := dto.CustomURL
	if base == "" {
		base = slug.Generate(dto.Name)
	}

	now := s.now()
	cat := models.CategoryModel{
		Name:             dto.Name,
		Thumbnail:        dto.Thumbnail,
		ShortDescription: dto.ShortDescription,
		LongDescription:  dto.LongDescription,
		Keyword:          dto.Keyword,
	}
	cat.CreatedAt = now
	cat.UpdatedAt = now

	_, err := slug.InsertWithRetry(ctx, "categories",
		func(ctx context.Context) (string, error) { return s.resolver.EnsureUnique(ctx, base, "") },
		func(ctx context.Context, u string) error {
			cat.CustomURL = u
			return s.db.WithContext(ctx).Create(&cat).Error
		})
	if err != nil {
		return nil, apperror.Storage("create category", err)
	}
	return &cat, nil
}

// Update patches a category. An explicit custom_url is made unique against
// the other categories; otherwise a changed name re-derives it.
func (s *Service) Update(ctx context.Context, id string, dto *UpdateCategoryDTO) (*models.CategoryModel, error) {
	cat, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperror.ErrNotFound
	}

	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Thumbnail != nil {
		updates["thumbnail"] = *dto.Thumbnail
	}
	if dto.ShortDescription != nil {
		updates["short_description"] = *dto.ShortDescription
	}
	if dto.LongDescription != nil {
		updates["long_description"] = *dto.LongDescription
	}
	if dto.Keyword != nil {
		updates["keyword"] = *dto.Keyword
	}
	updates["updated_at"] = s.now()

	var base string
	rederive := false
	switch {
	case dto.CustomURL != nil && *dto.CustomURL != "":
		base, rederive = *dto.CustomURL, true
	case dto.Name != nil && *dto.Name != cat.Name:
		base, rederive = slug.Generate(*dto.Name), true
	}

	oldURL := cat.CustomURL
	write := func(ctx context.Context) error {
		return s.db.WithContext(ctx).Model(cat).Updates(updates).Error
	}
	if rederive {
		_, err = slug.InsertWithRetry(ctx, "categories",
			func(ctx context.Context) (string, error) { return s.resolver.EnsureUnique(ctx, base, cat.ID) },
			func(ctx context.Context, u string) error {
				updates["custom_url"] = u
				return write(ctx)
			})
	} else {
		err = write(ctx)
	}
	if err != nil {
		return nil, apperror.Storage("update category", err)
	}

	if newURL, ok := updates["custom_url"].(string); ok && newURL != oldURL && s.slugTracker != nil {
		if err := s.slugTracker.Track(ctx, oldURL, models.SlugTypeCategory, cat.ID); err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, cat.ID)
}

// Delete removes a category, applying the configured policy to its posts.
func (s *Service) Delete(ctx context.Context, id string) error {
	cat, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cat == nil {
		return apperror.ErrNotFound
	}

	posts := s.db.WithContext(ctx).Model(&models.PostModel{}).Where("category_id = ?", id)
	switch s.policy {
	case config.DeletePolicyReject:
		var count int64
		if err := posts.Count(&count).Error; err != nil {
			return apperror.Storage("count category posts", err)
		}
		if count > 0 {
			return apperror.Conflict("category %q still has %d posts", cat.Name, count)
		}
	case config.DeletePolicyNullify:
		if err := posts.Updates(map[string]interface{}{"category_id": nil, "updated_at": s.now()}).Error; err != nil {
			return apperror.Storage("detach category posts", err)
		}
	}

	if err := s.db.WithContext(ctx).Delete(&models.CategoryModel{}, "id = ?", id).Error; err != nil {
		return apperror.Storage("delete category", err)
	}
	if s.slugTracker != nil {
		return s.slugTracker.DeleteByTargetID(ctx, id)
	}
	return nil
}
