package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	assert.Equal(t, "", Render("   "))

	html := Render("**Bold** animals")
	assert.Contains(t, html, "<strong>Bold</strong>")

	html = Render("![fox](https://cdn.example.com/fox.png)")
	assert.Contains(t, html, `<img loading="lazy" src="https://cdn.example.com/fox.png"`)
}

func TestRenderEscapesRawHTML(t *testing.T) {
	html := Render("<script>alert(1)</script>")
	assert.NotContains(t, html, "<script>")
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Cute animals to color", PlainText("# Cute *animals*\n\nto color", 0))
	assert.Equal(t, "abcde…", PlainText("abcdefgh", 5))
	assert.Equal(t, "Tom & Jerry", PlainText("Tom & Jerry", 0))
}
