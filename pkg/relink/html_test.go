package relink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	text := `<$link to="a b" flag tip='x' n=3 f={{{[tag[x]]}}} r={{ref}} m=<<mac p>>/>rest`
	tag, ok := parseTag(text, 0, false)
	require.True(t, ok)
	assert.Equal(t, "$link", tag.Name)
	assert.Equal(t, len(text)-len("rest"), tag.End)
	require.Len(t, tag.Attributes, 7)

	kinds := []attrKind{attrString, attrImplicit, attrString, attrString, attrFiltered, attrIndirect, attrMacro}
	values := []string{"a b", "", "x", "3", "[tag[x]]", "ref", "<<mac p>>"}
	for i, attr := range tag.Attributes {
		assert.Equal(t, kinds[i], attr.Kind, attr.Name)
		assert.Equal(t, values[i], attr.Value, attr.Name)
	}
	assert.Equal(t, DoubleQuote, tag.Attributes[0].Quote)
	assert.Equal(t, SingleQuote, tag.Attributes[2].Quote)
	assert.Equal(t, Bare, tag.Attributes[3].Quote)
	assert.Equal(t, "mac", tag.Attributes[6].Macro.Name)
}

func TestParseTag_Rejects(t *testing.T) {
	tests := []string{
		"< a>",
		"<a b='unterminated>",
		"<a b=>",
		"<a",
		"<a<b>",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			_, ok := parseTag(text, 0, false)
			assert.False(t, ok)
		})
	}
}

func TestWikitext_HTMLAttributes(t *testing.T) {
	tests := []struct {
		name string
		text string
		from string
		to   string
		want string
	}{
		{"double quoted", `<$link to="from here">x</$link>`, "from here", "to there", `<$link to="to there">x</$link>`},
		{"single quoted", `<$link to='from here'/>`, "from here", "to there", `<$link to='to there'/>`},
		{"quote switched", `<$link to="from here"/>`, "from here", `say "x"`, `<$link to='say "x"'/>`},
		{"bare gains quotes", `<$link to=from/>`, "from", "to there", `<$link to='to there'/>`},
		{"triple", `<$link to="from"/>`, "from", `it's "x" ok`, `<$link to="""it's "x" ok"""/>`},
		{"filter attribute", `<$list filter="[[from here]] [[b]]"/>`, "from here", "x", `<$list filter="x [[b]]"/>`},
		{"filtered value", `<$set name=v filter={{{[[from here]]}}}/>`, "from here", "to there", `<$set name=v filter={{{[[to there]]}}}/>`},
		{"indirect value", `<$text text={{from here!!title}}/>`, "from here", "to there", `<$text text={{to there!!title}}/>`},
		{"multiline tag", "<$link\n  to=\"from\"\n>", "from", "to", "<$link\n  to=\"to\"\n>"},
		{"nested wikitext", `<$button actions="""<$action-navigate $to="from here"/>"""/>`, "from here", "to there", `<$button actions="""<$action-navigate $to="to there"/>"""/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res := relinked(Wikitext, tt.text, tt.from, tt.to, nil)
			require.NotNil(t, res)
			assert.False(t, res.Entry.Failed())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWikitext_HTMLPlaceholder(t *testing.T) {
	got, _ := relinked(Wikitext, `<$link to="from here"/>`, "from here", `a'b"`, nil)
	assert.Equal(t, "\\define relink-1() a'b\"\n<$link to=<<relink-1>>/>", got)
}

func TestWikitext_NestedWikitextForbidsPlaceholders(t *testing.T) {
	text := `<$button actions="""<$action-navigate $to="from here"/>"""/>`
	res := Wikitext.Relink(text, "from here", `a'b"`, nil)
	require.NotNil(t, res)
	assert.False(t, res.Changed)
	assert.True(t, res.Entry.Failed())
}

func TestHTML_StorageFormat(t *testing.T) {
	tests := []struct {
		name string
		text string
		from string
		to   string
		want string
	}{
		{
			name: "page link",
			text: `<ac:link><ri:page ri:content-title="From Here" /></ac:link>`,
			from: "From Here", to: "To There",
			want: `<ac:link><ri:page ri:content-title="To There" /></ac:link>`,
		},
		{
			name: "entities",
			text: `<p><ac:link><ri:page ri:content-title="A &amp; B"/></ac:link></p>`,
			from: "A & B", to: `Say "Hi" & go`,
			want: `<p><ac:link><ri:page ri:content-title="Say &#34;Hi&#34; &amp; go"/></ac:link></p>`,
		},
		{
			name: "cdata skipped",
			text: `<![CDATA[<ri:page ri:content-title="From Here"/>]]><ri:page ri:content-title="From Here"/>`,
			from: "From Here", to: "To There",
			want: `<![CDATA[<ri:page ri:content-title="From Here"/>]]><ri:page ri:content-title="To There"/>`,
		},
		{
			name: "comment skipped",
			text: `<!-- <ri:page ri:content-title="From Here"/> --><ri:page ri:content-title='From Here'/>`,
			from: "From Here", to: "To There",
			want: `<!-- <ri:page ri:content-title="From Here"/> --><ri:page ri:content-title='To There'/>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res := relinked(HTML, tt.text, tt.from, tt.to, nil)
			require.NotNil(t, res)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTML_NoPlaceholders(t *testing.T) {
	assert.False(t, HTML.Placeholders)
	res := HTML.Relink(`<$link to="from"/>`, "from", "x", nil)
	require.NotNil(t, res)
	assert.Equal(t, `<$link to="x"/>`, res.Text)
	assert.NotContains(t, res.Text, `\define`)
}

func TestRelinkReference(t *testing.T) {
	tests := []struct {
		ref     string
		to      string
		want    string
		changed bool
		ok      bool
	}{
		{"from", "to", "to", true, true},
		{" from!!f ", "to", " to!!f ", true, true},
		{"from##i", "to", "to##i", true, true},
		{"other!!from", "to", "other!!from", false, true},
		{"from", "a##b", "from", true, false},
		{"from", "a|b", "from", true, false},
		{"", "to", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.ref+"->"+tt.to, func(t *testing.T) {
			got, changed, ok := relinkReference(tt.ref, "from", tt.to)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
