// Package markdown renders category descriptions to HTML.
package markdown

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var engine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

var (
	imageTagRegex = regexp.MustCompile(`(?i)<img\s`)
	tagRegex      = regexp.MustCompile(`<[^>]*>`)
	spaceRegex    = regexp.MustCompile(`\s+`)
)

// Render converts markdown to HTML. Raw HTML in the source is escaped.
// Images are marked for lazy loading.
func Render(src string) string {
	text := strings.TrimSpace(src)
	if text == "" {
		return ""
	}

	var out bytes.Buffer
	if err := engine.Convert([]byte(text), &out); err != nil {
		return template.HTMLEscapeString(text)
	}
	return imageTagRegex.ReplaceAllString(out.String(), `<img loading="lazy" `)
}

// PlainText renders src and strips every tag, collapsing whitespace. Used for
// meta descriptions.
func PlainText(src string, max int) string {
	text := tagRegex.ReplaceAllString(Render(src), " ")
	text = strings.TrimSpace(spaceRegex.ReplaceAllString(text, " "))
	text = htmlUnescape(text)
	if max > 0 {
		runes := []rune(text)
		if len(runes) > max {
			return strings.TrimSpace(string(runes[:max])) + "…"
		}
	}
	return text
}

var unescaper = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&rsquo;", "’", "&lsquo;", "‘", "&ldquo;", "“", "&rdquo;", "”", "&hellip;", "…", "&ndash;", "–", "&mdash;", "—")

func htmlUnescape(s string) string { return unescaper.Replace(s) }
