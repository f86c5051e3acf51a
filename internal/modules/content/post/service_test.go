package post

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/drawing-gallery/core/internal/config"
	"github.com/drawing-gallery/core/internal/database"
	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/modules/content/category"
	"github.com/drawing-gallery/core/internal/modules/content/gallery"
	"github.com/drawing-gallery/core/internal/modules/system/util/slugtracker"
	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	posts *Service
	cats  *category.Service
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(config.DatabaseRuntimeConfig{Driver: config.DriverSQLite, Path: ":memory:"}, "test", nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	tracker := slugtracker.NewService(db)
	cats := category.NewService(db, config.DeletePolicyKeep)
	cats.SetSlugTracker(tracker)
	posts := NewService(db, cats)
	posts.SetSlugTracker(tracker)

	f := &fixture{db: db, posts: posts, cats: cats, clock: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	// Every call advances the clock so createdAt ordering is deterministic.
	posts.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	return f
}

func (f *fixture) create(t *testing.T, dto CreatePostDTO) *Post {
	t.Helper()
	if dto.Content == "" {
		dto.Content = "<p>content</p>"
	}
	require.NoError(t, dto.Validate())
	p, err := f.posts.Create(context.Background(), &dto)
	require.NoError(t, err)
	return p
}

func ptr[T any](v T) *T { return &v }

func TestRedFoxScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	animals, err := f.cats.Create(ctx, &category.CreateCategoryDTO{Name: "Animals"})
	require.NoError(t, err)
	assert.Equal(t, "animals", animals.CustomURL)
	second, err := f.cats.Create(ctx, &category.CreateCategoryDTO{Name: "Animals"})
	require.NoError(t, err)
	assert.Equal(t, "animals-1", second.CustomURL)

	fox := f.create(t, CreatePostDTO{Title: "Red Fox", CategoryID: &animals.ID})
	assert.Equal(t, "red-fox", fox.URLSlug)
	assert.Equal(t, models.StatusDraft, fox.Status)

	got, err := f.posts.GetBySlug(ctx, "red-fox", false)
	require.NoError(t, err)
	assert.Nil(t, got, "drafts are hidden from the public")

	_, err = f.posts.Update(ctx, fox.ID, &UpdatePostDTO{Status: ptr(models.StatusPublished)})
	require.NoError(t, err)

	got, err = f.posts.GetBySlug(ctx, "red-fox", false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fox.ID, got.ID)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Animals", got.Category.Name)
}

func TestIdenticalTitlesGetSequentialSlugs(t *testing.T) {
	f := newFixture(t)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		seen[f.create(t, CreatePostDTO{Title: "Cute Cat"}).URLSlug] = true
	}
	assert.Equal(t, map[string]bool{
		"cute-cat": true, "cute-cat-1": true, "cute-cat-2": true, "cute-cat-3": true, "cute-cat-4": true,
	}, seen)
}

func TestCreateSlugSources(t *testing.T) {
	f := newFixture(t)
	f.create(t, CreatePostDTO{Title: "Owl"})

	explicit := f.create(t, CreatePostDTO{Title: "Anything", URLSlug: "owl"})
	assert.Equal(t, "owl-1", explicit.URLSlug)

	symbols := f.create(t, CreatePostDTO{Title: "!!!"})
	assert.Equal(t, "post", symbols.URLSlug)
}

func TestUpdateSlugRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, CreatePostDTO{Title: "Lion"})
	p := f.create(t, CreatePostDTO{Title: "Tiger"})

	// Same title: slug untouched.
	got, err := f.posts.Update(ctx, p.ID, &UpdatePostDTO{Title: ptr("Tiger")})
	require.NoError(t, err)
	assert.Equal(t, "tiger", got.URLSlug)

	// Differently written title normalising to the same slug reclaims it.
	got, err = f.posts.Update(ctx, p.ID, &UpdatePostDTO{Title: ptr("TIGER!")})
	require.NoError(t, err)
	assert.Equal(t, "tiger", got.URLSlug)

	got, err = f.posts.Update(ctx, p.ID, &UpdatePostDTO{Title: ptr("Lion")})
	require.NoError(t, err)
	assert.Equal(t, "lion-1", got.URLSlug)

	got, err = f.posts.Update(ctx, p.ID, &UpdatePostDTO{URLSlug: ptr("big-cat"), Title: ptr("Something else")})
	require.NoError(t, err)
	assert.Equal(t, "big-cat", got.URLSlug)
	assert.Equal(t, "Something else", got.Title)

	got, err = f.posts.Update(ctx, p.ID, &UpdatePostDTO{Description: ptr("stripes")})
	require.NoError(t, err)
	assert.Equal(t, "big-cat", got.URLSlug)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	// Retired slugs still resolve.
	for _, old := range []string{"tiger", "lion-1"} {
		found, err := f.posts.GetBySlug(ctx, old, true)
		require.NoError(t, err)
		require.NotNil(t, found, old)
		assert.Equal(t, p.ID, found.ID)
	}

	_, err = f.posts.Update(ctx, "nope", &UpdatePostDTO{Title: ptr("x")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat, err := f.cats.Create(ctx, &category.CreateCategoryDTO{Name: "Birds"})
	require.NoError(t, err)
	p := f.create(t, CreatePostDTO{Title: "Parrot", CategoryID: &cat.ID, Tags: []string{"bird"}})

	got, err := f.posts.Update(ctx, p.ID, &UpdatePostDTO{
		Tags:           &[]string{" Tropical ", "", "Green"},
		CategoryID:     ptr(""),
		Section2Images: &[]models.Section2Image{{Title: "b", Priority: 5}, {Title: "a", Priority: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tropical", "Green"}, []string(got.Tags))
	assert.Nil(t, got.CategoryID)
	assert.Nil(t, got.Category)
	require.Len(t, got.Section2Images, 2)
	assert.Equal(t, "a", got.Section2Images[0].Title)
	assert.Equal(t, 2, got.Section2Images[1].Priority)

	page, err := f.posts.List(ctx, ListQuery{Search: "tropical"}, true)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 1)
	page, err = f.posts.List(ctx, ListQuery{Search: "bird"}, true)
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
}

func TestCreateNormalisesSection1(t *testing.T) {
	f := newFixture(t)
	p := f.create(t, CreatePostDTO{
		Title: "Horse",
		Section1Images: []models.Section1Image{
			{Title: "second", ImageURL: "i2", PDFURL: "p2", Priority: 2},
			{Title: "first", ImageURL: "i1", PDFURL: "p1", Priority: 1},
			{Title: "third", ImageURL: "i3"},
		},
	})
	require.Len(t, p.Section1Images, 3)
	first := p.Section1Images[0]
	assert.Equal(t, "first", first.Title)
	assert.Equal(t, models.ImagePrimary, first.Kind)
	assert.Empty(t, first.ImageURL)
	assert.Empty(t, first.PDFURL)
	assert.Equal(t, models.ImageSecondary, p.Section1Images[1].Kind)
	for i, img := range p.Section1Images {
		assert.Equal(t, i+1, img.Priority)
	}

	stored, err := f.posts.GetByID(context.Background(), p.ID, true)
	require.NoError(t, err)
	assert.Equal(t, p.Section1Images, stored.Section1Images)
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.create(t, CreatePostDTO{Title: "Draft"})

	got, err := f.posts.GetByID(ctx, draft.ID, false)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = f.posts.GetByID(ctx, draft.ID, true)
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = f.posts.GetByID(ctx, "not-a-uuid", true)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = f.posts.GetBySlug(ctx, "missing", true)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		f.create(t, CreatePostDTO{Title: fmt.Sprintf("Post %d", i), Status: models.StatusPublished})
	}

	for _, tc := range []struct{ page, limit int }{{1, 3}, {2, 3}, {3, 3}, {4, 3}, {1, 7}, {1, 100}, {2, 10}} {
		page, err := f.posts.List(ctx, ListQuery{Page: tc.page, Limit: tc.limit}, false)
		require.NoError(t, err)
		pag := page.Pagination
		assert.LessOrEqual(t, len(page.Posts), tc.limit)
		assert.Equal(t, int64(7), pag.Total)
		assert.Equal(t, pag.CurrentPage < pag.TotalPages, pag.HasNextPage)
		assert.Equal(t, pag.CurrentPage > 1, pag.HasPrevPage)
	}

	page, err := f.posts.List(ctx, ListQuery{Page: 3, Limit: 3}, false)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 1)
	assert.Equal(t, 3, page.Pagination.TotalPages)

	page, err = f.posts.List(ctx, ListQuery{Page: -2, Limit: 1000}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.CurrentPage)
	assert.Equal(t, 100, page.Pagination.Limit)

	page, err = f.posts.List(ctx, ListQuery{}, false)
	require.NoError(t, err)
	assert.Equal(t, 20, page.Pagination.Limit)
}

func TestListFiltersAndSort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	animals, err := f.cats.Create(ctx, &category.CreateCategoryDTO{Name: "Animals"})
	require.NoError(t, err)
	flowers, err := f.cats.Create(ctx, &category.CreateCategoryDTO{Name: "Flowers"})
	require.NoError(t, err)

	f.create(t, CreatePostDTO{Title: "Bear", CategoryID: &animals.ID, Status: models.StatusPublished})
	f.create(t, CreatePostDTO{Title: "Rose", CategoryID: &flowers.ID, Status: models.StatusPublished})
	f.create(t, CreatePostDTO{Title: "Ant", CategoryID: &animals.ID, Status: models.StatusPublished})
	f.create(t, CreatePostDTO{Title: "Cat", CategoryID: &animals.ID})

	page, err := f.posts.List(ctx, ListQuery{Category: animals.ID}, false)
	require.NoError(t, err)
	require.Len(t, page.Posts, 2)
	for _, p := range page.Posts {
		assert.Equal(t, animals.ID, *p.CategoryID)
		assert.Equal(t, models.StatusPublished, p.Status)
		require.NotNil(t, p.Category)
		assert.Equal(t, "Animals", p.Category.Name)
	}

	page, err = f.posts.List(ctx, ListQuery{Category: animals.ID}, true)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 3)

	page, err = f.posts.List(ctx, ListQuery{Category: "all"}, false)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 3)

	titles := func(q ListQuery) []string {
		page, err := f.posts.List(ctx, q, false)
		require.NoError(t, err)
		out := make([]string, len(page.Posts))
		for i, p := range page.Posts {
			out[i] = p.Title
		}
		return out
	}
	assert.Equal(t, []string{"Ant", "Rose", "Bear"}, titles(ListQuery{}))
	assert.Equal(t, []string{"Ant", "Rose", "Bear"}, titles(ListQuery{Sort: "unknown"}))
	assert.Equal(t, []string{"Bear", "Rose", "Ant"}, titles(ListQuery{Sort: SortOldest}))
	assert.Equal(t, []string{"Ant", "Bear", "Rose"}, titles(ListQuery{Sort: SortAZ}))
	assert.Equal(t, []string{"Rose", "Bear", "Ant"}, titles(ListQuery{Sort: SortZA}))
}

func TestListSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, CreatePostDTO{Title: "Happy Whale", Status: models.StatusPublished})
	f.create(t, CreatePostDTO{Title: "Dolphin", Description: "A friendly WHALE cousin", Status: models.StatusPublished})
	f.create(t, CreatePostDTO{Title: "Shark", Tags: []string{"Ocean", "Whales"}, Status: models.StatusPublished})
	f.create(t, CreatePostDTO{Title: "Tree", Tags: []string{"forest"}, Status: models.StatusPublished})
	f.create(t, CreatePostDTO{Title: "100% Fun_Page", Status: models.StatusPublished})
	f.create(t, CreatePostDTO{Title: "Élan Drawing", Status: models.StatusPublished})

	search := func(term string) []Post {
		page, err := f.posts.List(ctx, ListQuery{Search: term}, false)
		require.NoError(t, err)
		return page.Posts
	}

	hits := search("  wHaLe ")
	assert.Len(t, hits, 3)
	for _, p := range hits {
		haystack := strings.ToLower(p.Title + " " + p.Description + " " + strings.Join(p.Tags, " "))
		assert.Contains(t, haystack, "whale")
	}

	assert.Len(t, search(""), 6)
	assert.Len(t, search("   "), 6)
	assert.Len(t, search("%"), 1)
	assert.Len(t, search("_"), 1)
	assert.Empty(t, search("ocean\x1fwhales"))
	assert.Empty(t, search("forestx"))

	if hits := search("élan"); assert.Len(t, hits, 1) {
		assert.Equal(t, "Élan Drawing", hits[0].Title)
	}
	assert.Len(t, search("ÉLAN"), 1)
}

func TestDeleteCategoryLeavesPostDangling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat, err := f.cats.Create(ctx, &category.CreateCategoryDTO{Name: "Animals"})
	require.NoError(t, err)
	p := f.create(t, CreatePostDTO{Title: "Fox", CategoryID: &cat.ID, Status: models.StatusPublished})

	require.NoError(t, f.cats.Delete(ctx, cat.ID))

	got, err := f.posts.GetByID(ctx, p.ID, false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cat.ID, *got.CategoryID)
	assert.Nil(t, got.Category)

	page, err := f.posts.List(ctx, ListQuery{}, false)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Nil(t, page.Posts[0].Category)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, CreatePostDTO{Title: "Gone"})

	require.NoError(t, f.posts.Delete(ctx, p.ID))
	assert.ErrorIs(t, f.posts.Delete(ctx, p.ID), apperror.ErrNotFound)
	assert.ErrorIs(t, f.posts.Delete(ctx, "bad"), apperror.ErrNotFound)

	// The slug is free again.
	assert.Equal(t, "gone", f.create(t, CreatePostDTO{Title: "Gone"}).URLSlug)
}

func TestApplyImageCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, CreatePostDTO{
		Title: "Cow",
		Section1Images: []models.Section1Image{
			{Title: "lead", MainImageURL: "m0"},
			{Title: "one", MainImageURL: "m1", ImageURL: "i1", PDFURL: "p1"},
		},
	})

	got, err := f.posts.ApplyImageCommands(ctx, p.ID, []gallery.Command{
		{Op: gallery.OpAppend, Section: gallery.Section1, Image: &gallery.ImageInput{Title: "two", ImageURL: "i2"}},
		{Op: gallery.OpReorder, Section: gallery.Section1, Index: 2, To: 0},
		{Op: gallery.OpAppend, Section: gallery.Section2, Image: &gallery.ImageInput{Title: "extra"}},
	})
	require.NoError(t, err)
	require.Len(t, got.Section1Images, 3)
	assert.Equal(t, "two", got.Section1Images[0].Title)
	assert.Equal(t, models.ImagePrimary, got.Section1Images[0].Kind)
	assert.Empty(t, got.Section1Images[0].ImageURL)
	assert.Equal(t, "lead", got.Section1Images[1].Title)
	require.Len(t, got.Section2Images, 1)
	assert.Equal(t, 1, got.Section2Images[0].Priority)

	_, err = f.posts.ApplyImageCommands(ctx, p.ID, []gallery.Command{
		{Op: gallery.OpRemove, Section: gallery.Section1, Index: 9},
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	stored, err := f.posts.GetByID(ctx, p.ID, true)
	require.NoError(t, err)
	assert.Len(t, stored.Section1Images, 3)

	_, err = f.posts.ApplyImageCommands(ctx, "00000000-0000-0000-0000-000000000000", nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestBackfillSlugs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, CreatePostDTO{Title: "Moon"})
	legacy := models.PostModel{Title: "Moon", URLSlug: "Moon Legacy!", Content: "x"}
	require.NoError(t, f.db.Create(&legacy).Error)
	blank := models.PostModel{Title: "Sun & Stars", URLSlug: "", Content: "x"}
	require.NoError(t, f.db.Create(&blank).Error)

	changes, err := f.posts.BackfillSlugs(ctx, true)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	stored, err := f.posts.GetByID(ctx, legacy.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Moon Legacy!", stored.URLSlug)

	changes, err = f.posts.BackfillSlugs(ctx, false)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	byID := map[string]SlugChange{}
	for _, c := range changes {
		byID[c.ID] = c
	}
	assert.Equal(t, "moon-1", byID[legacy.ID].To)
	assert.Equal(t, "sun-stars", byID[blank.ID].To)

	found, err := f.posts.GetBySlug(ctx, "Moon Legacy!", true)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, legacy.ID, found.ID)

	changes, err = f.posts.BackfillSlugs(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestSearchPattern(t *testing.T) {
	assert.Equal(t, "", searchPattern("  "))
	assert.Equal(t, "%fox%", searchPattern(" FOX "))
	assert.Equal(t, "%50!%!_off!!%", searchPattern("50%_off!"))
}
