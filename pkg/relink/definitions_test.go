package relink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefinitions(t *testing.T) {
	text := "\\define simple(a b) $a$\n" +
		"\\define defaults(title, filter:\"[[x]]\", n:'1') body\n" +
		"  \\define indented() x\n" +
		"not \\define inline() x\n"

	defs := ParseDefinitions(text)
	require.Len(t, defs, 3)

	simple, ok := defs.Lookup("simple")
	require.True(t, ok)
	assert.Equal(t, FormalParams{{Name: "a"}, {Name: "b"}}, simple)

	d, ok := defs.Lookup("defaults")
	require.True(t, ok)
	assert.Equal(t, FormalParams{
		{Name: "title"},
		{Name: "filter", Default: "[[x]]"},
		{Name: "n", Default: "1"},
	}, d)
	assert.Equal(t, 1, d.Index("filter"))
	assert.Equal(t, -1, d.Index("missing"))

	_, ok = defs.Lookup("indented")
	assert.True(t, ok)
	_, ok = defs.Lookup("inline")
	assert.False(t, ok)
}

func TestLayeredDefinitions(t *testing.T) {
	parent := NewDefinitions(map[string][]string{"m": {"p"}, "n": {"q"}})
	l := layered{local: Definitions{"m": {{Name: "local"}}}, parent: parent}

	m, ok := l.Lookup("m")
	require.True(t, ok)
	assert.Equal(t, "local", m[0].Name)

	n, ok := l.Lookup("n")
	require.True(t, ok)
	assert.Equal(t, "q", n[0].Name)

	_, ok = layered{local: Definitions{}}.Lookup("n")
	assert.False(t, ok)
}
