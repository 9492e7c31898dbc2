package relink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagDefinitions() *Options {
	return &Options{Definitions: NewDefinitions(map[string][]string{
		"tag":  {"tag"},
		"tabs": {"tabsList", "default", "state", "class", "template"},
	})}
}

func TestParseMacroCall(t *testing.T) {
	text := `xx<<m a "b c" name:'d' other:[[e f]] g:"""h"i""">>yy`
	loc := macroCallRe.FindStringSubmatchIndex(text)
	require.NotNil(t, loc)
	call := parseMacroCall(text, loc)

	assert.Equal(t, "m", call.Name)
	assert.Equal(t, 2, call.Start)
	assert.Equal(t, len(text)-2, call.End)
	require.Len(t, call.Params, 5)

	want := []struct {
		name, value string
		quote       Convention
		raw         string
	}{
		{"", "a", Bare, "a"},
		{"", "b c", DoubleQuote, `"b c"`},
		{"name", "d", SingleQuote, "'d'"},
		{"other", "e f", DoubleBracket, "[[e f]]"},
		{"g", `h"i`, TripleDoubleQuote, `"""h"i"""`},
	}
	for i, w := range want {
		p := call.Params[i]
		assert.Equal(t, w.name, p.Name)
		assert.Equal(t, w.value, p.Value)
		assert.Equal(t, w.quote, p.Quote)
		assert.Equal(t, w.raw, text[p.Start:p.End])
	}
}

func TestParamIndex(t *testing.T) {
	defs := NewDefinitions(map[string][]string{"m": {"x", "y", "z"}})
	tests := []struct {
		name  string
		call  string
		param string
		want  int
		err   error
	}{
		{"named", "<<m y:1>>", "y", 0, nil},
		{"positional", "<<m a b c>>", "y", 1, nil},
		{"named shifts positional", "<<m y:1 a>>", "x", 1, nil},
		{"later named does not shift", "<<m z:1 a b>>", "y", 2, nil},
		{"unbound", "<<m y:1 a>>", "z", -1, nil},
		{"undeclared", "<<m a>>", "q", -1, nil},
		{"missing definition", "<<n a>>", "x", -1, ErrDefinitionNotFound},
		{"named only needs no definition", "<<n a:1>>", "x", -1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPass(Wikitext, tt.call, "a", "b", &Options{Definitions: defs}, false)
			call := parseMacroCallAt(tt.call, 0)
			require.NotNil(t, call)
			got, err := p.paramIndex(call, tt.param)
			assert.Equal(t, tt.want, got)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParamNames(t *testing.T) {
	defs := NewDefinitions(map[string][]string{"m": {"x", "y", "z"}})
	p := newPass(Wikitext, "", "a", "b", &Options{Definitions: defs}, false)

	assert.Equal(t, []string{"y", "x", "z"}, p.paramNames(parseMacroCallAt("<<m y:1 a b>>", 0)))
	assert.Equal(t, []string{"x", "y", "z", ""}, p.paramNames(parseMacroCallAt("<<m a b c d>>", 0)))
	assert.Nil(t, p.paramNames(parseMacroCallAt("<<n a>>", 0)))
	assert.Equal(t, []string{"k"}, p.paramNames(parseMacroCallAt("<<n k:v>>", 0)))
}

func TestWikitext_MacroCall(t *testing.T) {
	tests := []struct {
		name string
		text string
		from string
		to   string
		want string
	}{
		{"positional", "<<tag 'from here'>>", "from here", "to there", "<<tag 'to there'>>"},
		{"named", "<<tag tag:[[from here]]>>", "from here", "to there", "<<tag tag:[[to there]]>>"},
		{"bare gains quotes", "<<tag tag:from>>", "from", "to there", "<<tag tag:'to there'>>"},
		{"quote switched", "<<tag tag:'from'>>", "from", "it's", `<<tag tag:"it's">>`},
		{"filter param", `<<tabs "[[from here]] [[b]]" "from here">>`, "from here", "x", `<<tabs "x [[b]]" "x">>`},
		{"unmanaged param", "<<tabs state:'from here'>>", "from here", "x", "<<tabs state:'from here'>>"},
		{"unmanaged macro", "<<other 'from here'>>", "from here", "x", "<<other 'from here'>>"},
		{"surrounding text", "a <<tag from>> b", "from", "to", "a <<tag to>> b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res := relinked(Wikitext, tt.text, tt.from, tt.to, tagDefinitions())
			assert.Equal(t, tt.want, got)
			if res != nil {
				assert.False(t, res.Entry.Failed())
			}
		})
	}
}

func TestWikitext_MacroCallMissingDefinition(t *testing.T) {
	res := Wikitext.Relink("<<tag 'from here'>>", "from here", "to there", nil)
	require.NotNil(t, res)
	assert.False(t, res.Changed)
	assert.True(t, res.Entry.Failed())
}

func TestWikitext_MacroCallPlaceholder(t *testing.T) {
	to := `a]b'c"`
	got, res := relinked(Wikitext, "<<tag tag:'from here' other:x>>", "from here", to, nil)
	require.NotNil(t, res)
	assert.Equal(t, "\\define relink-1() a]b'c\"\n<$macrocall $name=tag tag=<<relink-1>> other=x/>", got)
	assert.False(t, res.Entry.Failed())
}

func TestWikitext_MacroCallPlaceholderPositional(t *testing.T) {
	to := `a]b'c"`
	got, _ := relinked(Wikitext, "<<tag 'from here'>>", "from here", to, tagDefinitions())
	assert.Equal(t, "\\define relink-1() a]b'c\"\n<$macrocall $name=tag tag=<<relink-1>>/>", got)
}

func TestWikitext_MacroCallLocalDefinition(t *testing.T) {
	text := "\\define mine(first, target) $target$\n<<mine x 'from here'>>"
	opts := &Options{Settings: DefaultSettings().Merge(&Settings{
		Macros: map[string]map[string]string{"mine": {"target": "title"}},
	})}
	got, _ := relinked(Wikitext, text, "from here", "to there", opts)
	assert.Equal(t, "\\define mine(first, target) $target$\n<<mine x 'to there'>>", got)
}

func TestWikitext_AttributeMacro(t *testing.T) {
	got, res := relinked(Wikitext, `<$list filter=<<tag tag:"from here">>/>`, "from here", "to there", nil)
	require.NotNil(t, res)
	assert.Equal(t, `<$list filter=<<tag tag:"to there">>/>`, got)

	// No placeholders inside an attribute value
	res = Wikitext.Relink(`<$list filter=<<tag tag:"from here">>/>`, "from here", `a]b'c"`, nil)
	require.NotNil(t, res)
	assert.False(t, res.Changed)
	assert.True(t, res.Entry.Failed())
}
