package slug

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple two words", input: "Red Fox", want: "red-fox"},
		{name: "punctuation", input: "Red Fox!", want: "red-fox"},
		{name: "surrounding whitespace", input: "  Easy Cat Drawing  ", want: "easy-cat-drawing"},
		{name: "underscores collapse", input: "snake_case__title", want: "snake-case-title"},
		{name: "mixed separators", input: "a - _ b", want: "a-b"},
		{name: "leading and trailing hyphens", input: "--Dragon--", want: "dragon"},
		{name: "digits kept", input: "Top 10 Unicorns 2024", want: "top-10-unicorns-2024"},
		{name: "apostrophe dropped", input: "Kid's Corner", want: "kids-corner"},
		{name: "accented letters dropped", input: "Café Crème", want: "caf-crme"},
		{name: "tabs and newlines", input: "line\tone\nline two", want: "line-one-line-two"},
		{name: "non breaking space", input: "red\u00a0fox", want: "red-fox"},
		{name: "only symbols", input: "!!!", want: ""},
		{name: "non latin", input: "猫の絵", want: ""},
		{name: "empty", input: "", want: ""},
		{name: "already a slug", input: "red-fox", want: "red-fox"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.input))
		})
	}
}

func TestGenerateAlphabetAndIdempotence(t *testing.T) {
	inputs := []string{
		"Red Fox", "  ¡Hola Mundo!  ", "a__b--c  d", "Ünïcödé Tïtle", "100% Fun & Games",
		"-_-", "Ⅻ roman", "tab\tsep", "emoji 🦊 fox", "UPPER lower MiXeD",
	}
	alphabet := regexp.MustCompile(`^[a-z0-9_-]*$`)

	for _, in := range inputs {
		out := Generate(in)
		assert.Regexp(t, alphabet, out, in)
		assert.False(t, len(out) > 0 && (out[0] == '-' || out[len(out)-1] == '-'), in)
		assert.NotContains(t, out, "--", in)
		assert.Equal(t, out, Generate(out), "generate should be idempotent for %q", in)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("red-fox"))
	assert.True(t, Valid("animals-2"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("Red-Fox"))
	assert.False(t, Valid("red_fox"))
	assert.False(t, Valid("red fox"))
}
