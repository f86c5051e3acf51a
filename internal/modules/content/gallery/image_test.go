package gallery

import (
	"testing"

	"github.com/drawing-gallery/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSection1FillsAndRenumbers(t *testing.T) {
	in := []models.Section1Image{
		{Title: "c", Priority: 7, ImageURL: "c.png", PDFURL: "c.pdf"},
		{Title: "a", ImageURL: "a.png", PDFURL: "a.pdf"}, // priority 0 -> 2
		{Title: "b", Priority: 2},                         // ties with a, keeps input order
	}
	out := NormalizeSection1(in)

	require.Len(t, out, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{out[0].Title, out[1].Title, out[2].Title})
	for i, img := range out {
		assert.Equal(t, i+1, img.Priority)
	}

	assert.Equal(t, models.ImagePrimary, out[0].Kind)
	assert.Empty(t, out[0].ImageURL)
	assert.Empty(t, out[0].PDFURL)
	assert.Equal(t, models.ImageSecondary, out[2].Kind)
	assert.Equal(t, "c.png", out[2].ImageURL)
	assert.Equal(t, "c.pdf", out[2].PDFURL)

	// Input is not modified.
	assert.Equal(t, 7, in[0].Priority)
	assert.Equal(t, "a.png", in[1].ImageURL)
}

func TestNormalizeNil(t *testing.T) {
	assert.Nil(t, NormalizeSection1(nil))
	assert.Nil(t, NormalizeSection2(nil))
	assert.Empty(t, NormalizeSection1([]models.Section1Image{}))
}

func TestNormalizeSection2(t *testing.T) {
	out := NormalizeSection2([]models.Section2Image{
		{Title: "second", Priority: 10},
		{Title: "first", Priority: 3},
		{Title: "third"}, // -> 3, after "first"
	})
	require.Len(t, out, 3)
	assert.Equal(t, "first", out[0].Title)
	assert.Equal(t, "third", out[1].Title)
	assert.Equal(t, "second", out[2].Title)
	assert.Equal(t, []int{1, 2, 3}, []int{out[0].Priority, out[1].Priority, out[2].Priority})
}

func TestClassifyByPosition(t *testing.T) {
	lead := models.Section1Image{Title: "lead", MainImageURL: "lead.png", ImageURL: "x.png"}
	page := models.Section1Image{Title: "page", MainImageURL: "page.png", ImageURL: "p.png", PDFURL: "p.pdf"}

	assert.Equal(t, Primary{MainImageURL: "lead.png", Title: "lead"}, classify(0, lead))
	assert.Equal(t, Secondary{MainImageURL: "page.png", Title: "page", ImageURL: "p.png", PDFURL: "p.pdf"}, classify(1, page))
}
