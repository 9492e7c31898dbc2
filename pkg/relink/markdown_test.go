package relink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown_Links(t *testing.T) {
	tests := []struct {
		name string
		text string
		from string
		to   string
		want string
	}{
		{"plain", "[caption](#from)", "from", "to", "[caption](#to)"},
		{"encoded on output", "[caption](#from)", "from", "to there", "[caption](#to%20there)"},
		{"decoded for comparison", "[c](#from%20here)", "from here", "x", "[c](#x)"},
		{"decoded sentence", "click [here](#from%20here).", "from here", "to there", "click [here](#to%20there)."},
		{"parentheses", "[c](#from)", "from", "a (b)", "[c](#a%20(b))"},
		{"nested parentheses", "[c](#from)", "from", "to((there))", "[c](#to(%28there)%29)"},
		{"unmatched parentheses", "[c](#from)", "from", "a)b(c)d(e", "[c](#a%29b(c)d%28e)"},
		{"encoded parenthesis decoded", "[c](#with%28p)", "with(p", "there", "[c](#there)"},
		{"hash kept", "[c](#from)", "from", "a#b", "[c](#a#b)"},
		{"double tooltip", `[c](#from "tip")`, "from", "to", `[c](#to "tip")`},
		{"single tooltip", "[c](#from 'tip')", "from", "to", "[c](#to 'tip')"},
		{"paren tooltip", "[c](#from (tip))", "from", "to", "[c](#to (tip))"},
		{"surrounding text", "See [this](#from) now.", "from", "to", "See [this](#to) now."},
		{"image", "![alt](from.png)", "from.png", "to there.png", "![alt](to%20there.png)"},
		{"caption prettylink", "[[[from]]](#other)", "from", "to", "[[[to]]](#other)"},
		{"caption and target", "[see [[from]]](#from)", "from", "to", "[see [[to]]](#to)"},
		{"embedded wikitext", "See [[from]] and {{from}}.", "from", "to", "See [[to]] and {{to}}."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res := relinked(Markdown, tt.text, tt.from, tt.to, nil)
			require.NotNil(t, res)
			assert.False(t, res.Entry.Failed())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarkdown_Unaffected(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"link without hash", "[c](from)"},
		{"image with hash", "![alt](#from)"},
		{"escaped bracket", `\[c](#from)`},
		{"inline code", "`[c](#from)`"},
		{"double backtick code", "`` [c](#from) ``"},
		{"fenced code", "```\n[c](#from)\n```\n"},
		{"indented code", "    [c](#from)\n"},
		{"footnote label with caret", "[^1]: #from\n"},
		{"image footnote outside images", "[img]: from\n"},
		{"other title", "[c](#from%20here)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Markdown.Relink(tt.text, "from", "to", nil))
		})
	}
}

func TestMarkdown_Footnotes(t *testing.T) {
	got, res := relinked(Markdown, "Text [x][1].\n\n[1]: #from\n", "from", "to there", nil)
	require.NotNil(t, res)
	assert.Equal(t, "Text [x][1].\n\n[1]: #to%20there\n", got)

	got, res = relinked(Markdown, "  [img]: from.png\n", "from.png", "to.png", &Options{FromType: "image/png"})
	require.NotNil(t, res)
	assert.Equal(t, "  [img]: to.png\n", got)

	got, res = relinked(Markdown, "[1]: #from%20here\n", "from here", "x", nil)
	require.NotNil(t, res)
	assert.Equal(t, "[1]: #x\n", got)
}

func TestMarkdownMentions(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		title string
		want  bool
	}{
		{"literal", "see from here", "from here", true},
		{"encoded", "[c](#from%20here)", "from here", true},
		{"lowercase hex", "[c](#a%c3%a9)", "aé", true},
		{"stray percent", "50% off [c](#from%20here)", "from here", true},
		{"malformed escape", "100%zz", "from", false},
		{"absent", "[c](#other)", "from", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, markdownMentions(tt.text, tt.title))
		})
	}
}

func TestMarkdown_ImpossibleCaption(t *testing.T) {
	res := Markdown.Relink("[[[from]]](#other)", "from", "x]", nil)
	require.NotNil(t, res)
	assert.False(t, res.Changed)
	assert.True(t, res.Entry.Failed())
}

func TestMarkdown_NoPlaceholders(t *testing.T) {
	to := `x]]"'y"`
	res := Markdown.Relink("[[from]]", "from", to, nil)
	require.NotNil(t, res)
	assert.False(t, res.Changed)
	assert.True(t, res.Entry.Failed())

	// The same link in wikitext falls back to a placeholder.
	got, res := relinked(Wikitext, "[[from]]", "from", to, nil)
	require.NotNil(t, res)
	assert.Contains(t, got, "<$link to=<<relink-1>>/>")
}

func TestEncodeMarkdownTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a b", "a%20b"},
		{"a(b)", "a(b)"},
		{"to((th)(ere))", "to(%28th)(ere)%29"},
		{"with(paren", "with%28paren"},
		{"a&b", "a%26b"},
		{"a#b", "a#b"},
		{"é", "%C3%A9"},
		{"50%", "50%25"},
		{"path/to:x", "path/to:x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeMarkdownTitle(tt.in))
		})
	}
}

func TestMarkdownDestinationValid(t *testing.T) {
	assert.True(t, markdownDestinationValid("#to%20there", false))
	assert.True(t, markdownDestinationValid("to.png", true))
	assert.False(t, markdownDestinationValid("#a b", false))
	assert.False(t, markdownDestinationValid("#a)b", false))
}

func TestMarkdownCodeSpans(t *testing.T) {
	src := "a `code` b\n\n```\nfenced\n```\n"
	spans := markdownCodeSpans(src)
	require.Len(t, spans, 2)
	assert.Equal(t, "`code`", src[spans[0].start:spans[0].end])
	assert.Equal(t, "fenced\n", src[spans[1].start:spans[1].end])
}
